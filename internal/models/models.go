// package models defines the data model for the marquee browsing client
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models owned by the reference backend.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// MediaType identifies the catalog namespace of a title.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"

	// MediaTypeAll only scopes catalog trending queries; it is never a valid item type.
	MediaTypeAll MediaType = "all"
)

// ParseMediaType accepts "movie" or "tv" (case-insensitive) and rejects everything else.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaTypeMovie:
		return MediaTypeMovie, nil
	case MediaTypeTV:
		return MediaTypeTV, nil
	default:
		return "", fmt.Errorf("unknown media type %q", s)
	}
}

// Valid reports whether m is one of the known media types.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeTV
}

// Label returns the plural display label used in row titles.
func (m MediaType) Label() string {
	if m == MediaTypeTV {
		return "TV Shows"
	}
	return "Movies"
}

// Collection names one of the personal lists kept per user.
type Collection string

const (
	CollectionMyList          Collection = "my_list"
	CollectionLiked           Collection = "likes"
	CollectionTrailersWatched Collection = "trailers_watched"
)

// Collections returns every named collection in lookup order.
func Collections() []Collection {
	return []Collection{CollectionMyList, CollectionLiked, CollectionTrailersWatched}
}

// ParseCollection resolves a collection from its identifier, its REST path segment or its label.
func ParseCollection(s string) (Collection, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Collections() {
		if needle == string(c) || needle == c.Path() || needle == strings.ToLower(c.Label()) {
			return c, nil
		}
	}

	switch needle {
	case "mylist", "list":
		return CollectionMyList, nil
	case "liked", "like":
		return CollectionLiked, nil
	case "trailers", "watched":
		return CollectionTrailersWatched, nil
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// Path returns the REST path segment under /api/me.
func (c Collection) Path() string {
	switch c {
	case CollectionMyList:
		return "my-list"
	case CollectionLiked:
		return "likes"
	case CollectionTrailersWatched:
		return "trailers-watched"
	default:
		return string(c)
	}
}

// Label returns the human readable name.
func (c Collection) Label() string {
	switch c {
	case CollectionMyList:
		return "My List"
	case CollectionLiked:
		return "Liked"
	case CollectionTrailersWatched:
		return "Trailers Watched"
	default:
		return string(c)
	}
}

// CacheKey returns the durable cache key for this collection, namespaced by user.
func (c Collection) CacheKey(userID string) string {
	return "srv_" + string(c) + "_v1_" + userID
}

// NotificationsCacheKey returns the durable cache key for a user's notification feed.
func NotificationsCacheKey(userID string) string {
	return "srv_notifications_v1_" + userID
}
