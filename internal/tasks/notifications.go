package tasks

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
)

// FeedLimit is how many notifications are requested per load.
const FeedLimit = 50

// NotificationFeed serves the notification list from the durable cache and refreshes it from the backend.
type NotificationFeed struct {
	store   *store.Store
	backend services.Notifications
	remote  RemoteApplier
	logger  *log.Logger

	mu sync.Mutex
}

// NewNotificationFeed creates a feed. A nil remote applier defaults to [BestEffort].
func NewNotificationFeed(st *store.Store, backend services.Notifications, remote RemoteApplier, logger *log.Logger) *NotificationFeed {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if remote == nil {
		remote = NewBestEffort(logger)
	}
	return &NotificationFeed{
		store:   st,
		backend: backend,
		remote:  remote,
		logger:  shared.WithLogger(logger, "component", "notifications"),
	}
}

// Load hands the cached feed to onCached (when set), then fetches the latest feed and rewrites the cache.
// On failure the cached feed is returned together with the error.
func (f *NotificationFeed) Load(ctx context.Context, onCached func([]models.Notification)) ([]models.Notification, error) {
	cached := f.Cached()
	if onCached != nil {
		onCached(cached)
	}

	fresh, err := f.backend.Notifications(ctx, FeedLimit)
	if err != nil {
		f.logger.Warn("failed to refresh notifications", "error", err)
		return cached, err
	}

	f.mu.Lock()
	f.store.WriteNotifications(fresh)
	f.mu.Unlock()
	return fresh, nil
}

// Cached returns the cached feed without touching the network.
func (f *NotificationFeed) Cached() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store.ReadNotifications()
}

// UnreadCount returns the number of unread notifications in the cached feed.
func (f *NotificationFeed) UnreadCount() int {
	count := 0
	for _, n := range f.Cached() {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks id read locally and on the backend.
func (f *NotificationFeed) MarkRead(ctx context.Context, id string) {
	f.edit(func(list []models.Notification) []models.Notification {
		for i := range list {
			if list[i].ID == id {
				list[i].Read = true
			}
		}
		return list
	})
	f.remote.Apply(ctx, "mark notification read "+id, func(ctx context.Context) error {
		return f.backend.MarkRead(ctx, id)
	})
}

// Delete removes id locally and on the backend.
func (f *NotificationFeed) Delete(ctx context.Context, id string) {
	f.edit(func(list []models.Notification) []models.Notification {
		kept := list[:0]
		for _, n := range list {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		return kept
	})
	f.remote.Apply(ctx, "delete notification "+id, func(ctx context.Context) error {
		return f.backend.DeleteNotification(ctx, id)
	})
}

// MarkAllRead marks the whole feed read locally and on the backend.
func (f *NotificationFeed) MarkAllRead(ctx context.Context) {
	f.edit(func(list []models.Notification) []models.Notification {
		for i := range list {
			list[i].Read = true
		}
		return list
	})
	f.remote.Apply(ctx, "mark all notifications read", func(ctx context.Context) error {
		return f.backend.MarkAllRead(ctx)
	})
}

// FetchCatalogNotifications asks the backend to generate release notifications and returns how many it added.
func (f *NotificationFeed) FetchCatalogNotifications(ctx context.Context) (int, error) {
	added, err := f.backend.FetchCatalogNotifications(ctx)
	if err != nil {
		return 0, err
	}
	f.logger.Info("catalog notifications fetched", "added", added)
	return added, nil
}

func (f *NotificationFeed) edit(fn func([]models.Notification) []models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store.WriteNotifications(fn(f.store.ReadNotifications()))
}
