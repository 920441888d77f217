package tasks

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/shared"
)

// RemoteApplier runs a remote mutation on behalf of a local change that has already been applied.
type RemoteApplier interface {
	Apply(ctx context.Context, op string, write func(context.Context) error)
}

// BestEffort applies remote writes synchronously and swallows their errors after logging them.
type BestEffort struct {
	logger   *log.Logger
	failures atomic.Int64
}

// NewBestEffort creates the default [RemoteApplier].
func NewBestEffort(logger *log.Logger) *BestEffort {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BestEffort{logger: shared.WithLogger(logger, "component", "remote")}
}

// Apply runs write and logs a failure. The local state is never rolled back.
func (b *BestEffort) Apply(ctx context.Context, op string, write func(context.Context) error) {
	if err := write(ctx); err != nil {
		b.failures.Add(1)
		b.logger.Warn("remote write failed", "op", op, "error", err)
		return
	}
	b.logger.Debug("remote write applied", "op", op)
}

// Failures returns how many writes have failed since creation.
func (b *BestEffort) Failures() int64 {
	return b.failures.Load()
}
