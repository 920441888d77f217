package tasks

import (
	"fmt"

	"github.com/desertthunder/marquee/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLists Phase = iota
	FetchRows
	Hydrate
	Export
)

func (p Phase) String() string {
	switch p {
	case FetchLists:
		return "fetch_lists"
	case FetchRows:
		return "fetch_rows"
	case Hydrate:
		return "hydrate"
	case Export:
		return "export"
	default:
		return ""
	}
}

func fetchListUpdate(step, total int, c models.Collection, count int, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   FetchLists,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v (keeping cached copy)", step, total, c.Label(), err),
		}
	}
	return ProgressUpdate{
		Phase:   FetchLists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d items)", step, total, c.Label(), count),
	}
}

func fetchRowUpdate(step, total int, title string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRows,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d titles)", step, total, title, count),
	}
}

func hydrateUpdate(c models.Collection, thin int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Hydrate,
		Step:    0,
		Total:   thin,
		Message: fmt.Sprintf("Hydrating %d thin records in %s...", thin, c.Label()),
	}
}

func exportingUpdate(step, total int, c models.Collection) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, c.Label()),
	}
}

func exportCompletedUpdate(step, total int, c models.Collection, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, c.Label(), filesCount),
	}
}

func exportFailedUpdate(step, total int, c models.Collection, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, c.Label(), err),
	}
}
