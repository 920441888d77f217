// package services defines the remote collaborators of a session: the media catalog and the list backend
package services

import (
	"context"
	"net/url"

	"github.com/desertthunder/marquee/internal/models"
)

// Catalog is a TMDB-compatible metadata source. Results are raw records; callers normalize them.
type Catalog interface {
	// Detail fetches the full record for one title, including credits, videos and content ratings.
	Detail(ctx context.Context, mediaType models.MediaType, id string) (models.Record, error)

	// Search runs a multi search over movies, shows and people.
	Search(ctx context.Context, query string) ([]models.Record, error)

	// Trending returns today's trending titles of one type, optionally scoped to a region.
	Trending(ctx context.Context, mediaType models.MediaType, region string) ([]models.Record, error)

	// Discover returns titles of one type matching the given query parameters.
	Discover(ctx context.Context, mediaType models.MediaType, params url.Values) ([]models.Record, error)

	// Upcoming returns movies about to be released in region.
	Upcoming(ctx context.Context, region string) ([]models.Record, error)

	// PersonCredits returns the combined movie and tv cast credits of a person.
	PersonCredits(ctx context.Context, personID string) ([]models.Record, error)

	// Season returns the episodes of one season of a show.
	Season(ctx context.Context, showID string, season int) ([]models.Record, error)
}

// Lists reads and writes the user's named collections on the backend.
type Lists interface {
	List(ctx context.Context, c models.Collection) ([]models.Record, error)
	Add(ctx context.Context, c models.Collection, item models.MediaItem) error
	Remove(ctx context.Context, c models.Collection, mediaType models.MediaType, id string) error
}

// Notifications reads and updates the user's notification feed on the backend.
type Notifications interface {
	Notifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	FetchCatalogNotifications(ctx context.Context) (int, error)
}

// Reminders registers release reminders for upcoming titles.
type Reminders interface {
	Remind(ctx context.Context, item models.MediaItem) error
}

// Backend is the complete same-origin REST API used by a client session.
type Backend interface {
	Lists
	Notifications
	Reminders
}

var (
	_ Catalog = (*CatalogService)(nil)
	_ Backend = (*BackendService)(nil)
)
