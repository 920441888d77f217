// package tasks implements the session workflows that sit between the store, the catalog and the backend.
package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
)

// Collections is a snapshot of every named collection.
type Collections map[models.Collection][]models.MediaItem

// Count returns the total number of items across collections.
func (c Collections) Count() int {
	total := 0
	for _, items := range c {
		total += len(items)
	}
	return total
}

// ItemFetcher resolves the raw record of a title before a toggle.
type ItemFetcher func(ctx context.Context, mediaType models.MediaType, id string) (models.Record, error)

// LookupFetcher resolves items from the session first: stored collections, then the details cache,
// and only then the catalog. Catalog results are written to the details cache.
func LookupFetcher(st *store.Store, catalog services.Catalog) ItemFetcher {
	return func(ctx context.Context, mediaType models.MediaType, id string) (models.Record, error) {
		if item, ok := st.FindAcrossCollections(mediaType, id); ok {
			return item.Record(), nil
		}
		if record, ok := st.Detail(mediaType, id); ok {
			return record, nil
		}
		if catalog == nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, models.ItemKey(mediaType, id))
		}

		record, err := catalog.Detail(ctx, mediaType, id)
		if err != nil {
			return nil, err
		}
		st.PutDetail(mediaType, id, record)
		return record, nil
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
