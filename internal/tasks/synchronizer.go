package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
)

// Outcome is the result of a membership toggle.
type Outcome int

const (
	OutcomeError Outcome = iota
	OutcomeAdded
	OutcomeRemoved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeRemoved:
		return "removed"
	default:
		return "error"
	}
}

// Synchronizer keeps the store's collections in step with the backend.
type Synchronizer struct {
	store  *store.Store
	lists  services.Lists
	remote RemoteApplier
	logger *log.Logger
}

// NewSynchronizer creates a synchronizer. A nil remote applier defaults to [BestEffort].
func NewSynchronizer(st *store.Store, lists services.Lists, remote RemoteApplier, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if remote == nil {
		remote = NewBestEffort(logger)
	}
	return &Synchronizer{
		store:  st,
		lists:  lists,
		remote: remote,
		logger: shared.WithLogger(logger, "component", "sync"),
	}
}

// LoadAll fetches every collection concurrently and installs each successful result.
// A failed fetch leaves that collection's previous value in place. It never fails as a whole.
func (s *Synchronizer) LoadAll(ctx context.Context) Collections {
	return s.LoadAllProgress(ctx, nil)
}

// LoadAllProgress is [Synchronizer.LoadAll] with per-collection progress updates.
func (s *Synchronizer) LoadAllProgress(ctx context.Context, progress chan<- ProgressUpdate) Collections {
	collections := models.Collections()
	total := len(collections)

	var (
		wg   conc.WaitGroup
		done atomic.Int32
	)
	for _, c := range collections {
		wg.Go(func() {
			records, err := s.lists.List(ctx, c)
			step := int(done.Add(1))
			if err != nil {
				s.logger.Warn("failed to load collection", "collection", c, "error", err)
				sendProgress(progress, fetchListUpdate(step, total, c, 0, err))
				return
			}

			items := models.NormalizeCollection(records)
			s.store.Replace(c, items)
			sendProgress(progress, fetchListUpdate(step, total, c, len(items), nil))
		})
	}
	wg.Wait()

	return s.Snapshot()
}

// Snapshot returns copies of the current in-memory collections.
func (s *Synchronizer) Snapshot() Collections {
	out := make(Collections, 3)
	for _, c := range models.Collections() {
		out[c] = s.store.Get(c)
	}
	return out
}

// Toggle flips membership of (mediaType, id) in collection c.
//
// The record is resolved through fetch first; a fetch or normalization failure leaves the store untouched.
// The store is updated before the remote write, whose failure is only logged.
func (s *Synchronizer) Toggle(ctx context.Context, c models.Collection, id string, mediaType models.MediaType, fetch ItemFetcher) (Outcome, error) {
	if fetch == nil {
		return OutcomeError, fmt.Errorf("%w: no item fetcher", shared.ErrInvalidInput)
	}

	raw, err := fetch(ctx, mediaType, id)
	if err != nil {
		return OutcomeError, fmt.Errorf("failed to fetch %s: %w", models.ItemKey(mediaType, id), err)
	}

	item, ok := models.NormalizeAs(raw, mediaType)
	if !ok {
		return OutcomeError, fmt.Errorf("%w: %s", shared.ErrUnidentifiable, models.ItemKey(mediaType, id))
	}

	removed := false
	s.store.Update(c, func(current []models.MediaItem) []models.MediaItem {
		for i, existing := range current {
			if existing.Matches(item.MediaType, item.ID) {
				removed = true
				return append(current[:i], current[i+1:]...)
			}
		}
		return append([]models.MediaItem{*item}, current...)
	})

	if removed {
		s.remote.Apply(ctx, "remove "+item.Key()+" from "+string(c), func(ctx context.Context) error {
			return s.lists.Remove(ctx, c, item.MediaType, item.ID)
		})
		s.logger.Info("removed from collection", "collection", c, "item", item.Key())
		return OutcomeRemoved, nil
	}

	s.remote.Apply(ctx, "add "+item.Key()+" to "+string(c), func(ctx context.Context) error {
		return s.lists.Add(ctx, c, *item)
	})
	s.logger.Info("added to collection", "collection", c, "item", item.Key())
	return OutcomeAdded, nil
}

// RecordTrailerWatched inserts item at the front of Trailers Watched unless it is already there.
// Reports whether the item was added.
func (s *Synchronizer) RecordTrailerWatched(ctx context.Context, item models.MediaItem) bool {
	if !item.MediaType.Valid() || item.ID == "" {
		return false
	}

	added := false
	s.store.Update(models.CollectionTrailersWatched, func(current []models.MediaItem) []models.MediaItem {
		for _, existing := range current {
			if existing.Matches(item.MediaType, item.ID) {
				return current
			}
		}
		added = true
		return append([]models.MediaItem{item}, current...)
	})

	if added {
		s.remote.Apply(ctx, "record trailer "+item.Key(), func(ctx context.Context) error {
			return s.lists.Add(ctx, models.CollectionTrailersWatched, item)
		})
	}
	return added
}
