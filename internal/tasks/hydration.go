package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/iter"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
)

// DefaultConcurrency bounds catalog fan-out when none is configured.
const DefaultConcurrency = 8

// Hydrator fills display fields of thin records from the catalog.
type Hydrator struct {
	store       *store.Store
	catalog     services.Catalog
	logger      *log.Logger
	concurrency int
}

// NewHydrator creates a hydrator. Non-positive concurrency selects [DefaultConcurrency].
func NewHydrator(st *store.Store, catalog services.Catalog, concurrency int, logger *log.Logger) *Hydrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Hydrator{
		store:       st,
		catalog:     catalog,
		logger:      shared.WithLogger(logger, "component", "hydrate"),
		concurrency: concurrency,
	}
}

// Hydrate returns item with its missing poster, backdrop, overview and title filled in.
//
// Items that already have a poster are returned unchanged. The details cache is consulted before the catalog,
// and a fetched detail is cached. Any failure returns the item as-is.
func (h *Hydrator) Hydrate(ctx context.Context, item models.MediaItem) models.MediaItem {
	if !item.Thin() {
		return item
	}

	record, ok := h.store.Detail(item.MediaType, item.ID)
	if !ok {
		if h.catalog == nil {
			return item
		}

		fetched, err := h.catalog.Detail(ctx, item.MediaType, item.ID)
		if err != nil {
			h.logger.Debug("hydration fetch failed", "item", item.Key(), "error", err)
			return item
		}
		h.store.PutDetail(item.MediaType, item.ID, fetched)
		record = fetched
	}

	detail, ok := models.NormalizeAs(record, item.MediaType)
	if !ok {
		return item
	}
	return item.FillMissing(*detail)
}

// HydrateCollection hydrates items concurrently, preserving their order.
// Items that no longer normalize are dropped.
func (h *Hydrator) HydrateCollection(ctx context.Context, items []models.MediaItem) []models.MediaItem {
	mapper := iter.Mapper[models.MediaItem, models.MediaItem]{MaxGoroutines: h.concurrency}
	hydrated := mapper.Map(items, func(item *models.MediaItem) models.MediaItem {
		return h.Hydrate(ctx, *item)
	})

	out := make([]models.MediaItem, 0, len(hydrated))
	for _, item := range hydrated {
		if _, ok := models.Normalize(item.Record()); !ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// HydrateStored hydrates collection c and writes the filled items back into the store.
// Items added or removed while hydration ran are kept as the store has them.
func (h *Hydrator) HydrateStored(ctx context.Context, c models.Collection) []models.MediaItem {
	return h.HydrateStoredProgress(ctx, c, nil)
}

// HydrateStoredProgress is [Hydrator.HydrateStored] with a progress update announcing the thin count.
func (h *Hydrator) HydrateStoredProgress(ctx context.Context, c models.Collection, progress chan<- ProgressUpdate) []models.MediaItem {
	current := h.store.Get(c)

	thin := 0
	for _, item := range current {
		if item.Thin() {
			thin++
		}
	}
	if thin == 0 {
		return current
	}
	sendProgress(progress, hydrateUpdate(c, thin))

	filled := make(map[string]models.MediaItem, len(current))
	for _, item := range h.HydrateCollection(ctx, current) {
		filled[item.Key()] = item
	}

	return h.store.Update(c, func(latest []models.MediaItem) []models.MediaItem {
		for i, item := range latest {
			if f, ok := filled[item.Key()]; ok {
				latest[i] = f
			}
		}
		return latest
	})
}
