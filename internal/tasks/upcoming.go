package tasks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// ComingSoonLimit is the default number of upcoming titles listed.
const ComingSoonLimit = 20

// Upcoming is a title that has not been released yet, with its trailer when one exists.
type Upcoming struct {
	Item    models.MediaItem `json:"item"`
	Trailer string           `json:"trailer,omitempty"`
}

// ComingSoon lists titles releasing on or after now's date in region, soonest first and
// then most popular. Each entry's trailer key is looked up from its detail record;
// a failed lookup leaves the entry without a trailer. Non-positive limits select [ComingSoonLimit].
func (p *Presenter) ComingSoon(ctx context.Context, region string, now time.Time, limit int) ([]Upcoming, error) {
	if p.catalog == nil {
		return nil, fmt.Errorf("%w: no catalog", shared.ErrServiceUnavailable)
	}
	if limit <= 0 {
		limit = ComingSoonLimit
	}

	listCtx, cancel := context.WithTimeout(ctx, p.timeout)
	records, err := p.catalog.Upcoming(listCtx, region)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming titles: %w", err)
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	items := make([]models.MediaItem, 0, len(records))
	for _, record := range records {
		item, ok := models.NormalizeAs(record, models.MediaTypeMovie)
		if !ok {
			continue
		}
		if released, ok := item.Released(); !ok || released.Before(today) {
			continue
		}
		items = append(items, *item)
	}
	items = models.Dedupe(items)

	slices.SortStableFunc(items, func(a, b models.MediaItem) int {
		ra, _ := a.Released()
		rb, _ := b.Released()
		if c := ra.Compare(rb); c != 0 {
			return c
		}
		return cmp.Compare(b.Popularity, a.Popularity)
	})
	if len(items) > limit {
		items = items[:limit]
	}

	mapper := iter.Mapper[models.MediaItem, Upcoming]{MaxGoroutines: 4}
	return mapper.Map(items, func(item *models.MediaItem) Upcoming {
		return p.upcoming(ctx, *item)
	}), nil
}

func (p *Presenter) upcoming(ctx context.Context, item models.MediaItem) Upcoming {
	record, ok := p.store.Detail(item.MediaType, item.ID)
	if !ok || !record.Has("videos") {
		var (
			detail models.MediaItem
			err    error
		)
		if detail, record, err = p.fetch(ctx, item.MediaType, item.ID); err != nil {
			p.logger.Debug("trailer lookup failed", "item", item.Key(), "error", err)
			return Upcoming{Item: item}
		}
		item = item.FillMissing(detail)
	}
	return Upcoming{Item: item, Trailer: trailerKey(record)}
}
