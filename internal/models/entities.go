package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ListEntry is one title saved on one user's named collection.
//
// The entry keeps the normalized payload posted by the client so that GET can return full records.
type ListEntry struct {
	id         string
	sequence   int
	userID     string
	collection Collection
	tmdbID     string
	mediaType  MediaType
	data       json.RawMessage
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewListEntry creates a [ListEntry] stamped with the current time.
func NewListEntry(userID string, collection Collection, tmdbID string, mediaType MediaType, data json.RawMessage) *ListEntry {
	now := time.Now()
	return &ListEntry{
		userID:     userID,
		collection: collection,
		tmdbID:     tmdbID,
		mediaType:  mediaType,
		data:       data,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (e *ListEntry) ID() string { return e.id }
func (e *ListEntry) Sequence() int { return e.sequence }
func (e *ListEntry) UserID() string { return e.userID }
func (e *ListEntry) Collection() Collection { return e.collection }
func (e *ListEntry) TMDBID() string { return e.tmdbID }
func (e *ListEntry) MediaType() MediaType { return e.mediaType }
func (e *ListEntry) Data() json.RawMessage { return e.data }
func (e *ListEntry) CreatedAt() time.Time { return e.createdAt }
func (e *ListEntry) UpdatedAt() time.Time { return e.updatedAt }
func (e *ListEntry) DeletedAt() *time.Time { return e.deletedAt }
func (e *ListEntry) SetID(id string) { e.id = id }
func (e *ListEntry) SetSequence(seq int) { e.sequence = seq }
func (e *ListEntry) SetData(data json.RawMessage) { e.data = data }
func (e *ListEntry) SetCreatedAt(t time.Time) { e.createdAt = t }
func (e *ListEntry) SetUpdatedAt(t time.Time) { e.updatedAt = t }
func (e *ListEntry) SetDeletedAt(t *time.Time) { e.deletedAt = t }

// Validate checks the identity fields and that any payload is valid JSON.
func (e *ListEntry) Validate() error {
	if e.userID == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := ParseCollection(string(e.collection)); err != nil {
		return err
	}
	if e.tmdbID == "" {
		return fmt.Errorf("tmdb id is required")
	}
	if !e.mediaType.Valid() {
		return fmt.Errorf("invalid media type %q", e.mediaType)
	}
	if len(e.data) > 0 && !json.Valid(e.data) {
		return fmt.Errorf("entry data is not valid JSON")
	}
	return nil
}

// Record returns the stored payload with the entry's identity applied on top.
func (e *ListEntry) Record() Record {
	r := Record{}
	if len(e.data) > 0 {
		if err := json.Unmarshal(e.data, &r); err != nil {
			r = Record{}
		}
	}
	if r == nil {
		r = Record{}
	}
	r["id"] = e.tmdbID
	r["tmdb_id"] = e.tmdbID
	r["media_type"] = string(e.mediaType)
	return r
}

// Reminder is a request to be notified when an upcoming title is released.
type Reminder struct {
	id          string
	userID      string
	tmdbID      string
	mediaType   MediaType
	title       string
	posterPath  string
	releaseDate string
	notifiedAt  *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewReminder creates a [Reminder] stamped with the current time.
func NewReminder(userID, tmdbID string, mediaType MediaType, title, posterPath, releaseDate string) *Reminder {
	now := time.Now()
	return &Reminder{
		userID:      userID,
		tmdbID:      tmdbID,
		mediaType:   mediaType,
		title:       title,
		posterPath:  posterPath,
		releaseDate: releaseDate,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (r *Reminder) ID() string { return r.id }
func (r *Reminder) UserID() string { return r.userID }
func (r *Reminder) TMDBID() string { return r.tmdbID }
func (r *Reminder) MediaType() MediaType { return r.mediaType }
func (r *Reminder) Title() string { return r.title }
func (r *Reminder) PosterPath() string { return r.posterPath }
func (r *Reminder) ReleaseDate() string { return r.releaseDate }
func (r *Reminder) NotifiedAt() *time.Time { return r.notifiedAt }
func (r *Reminder) CreatedAt() time.Time { return r.createdAt }
func (r *Reminder) UpdatedAt() time.Time { return r.updatedAt }
func (r *Reminder) SetID(id string) { r.id = id }
func (r *Reminder) SetNotifiedAt(t *time.Time) { r.notifiedAt = t }
func (r *Reminder) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *Reminder) SetUpdatedAt(t time.Time) { r.updatedAt = t }

// Validate checks identity and that the release date is a calendar date.
func (r *Reminder) Validate() error {
	if r.userID == "" {
		return fmt.Errorf("user id is required")
	}
	if r.tmdbID == "" {
		return fmt.Errorf("tmdb id is required")
	}
	if !r.mediaType.Valid() {
		return fmt.Errorf("invalid media type %q", r.mediaType)
	}
	if r.releaseDate != "" {
		if _, err := time.Parse(time.DateOnly, r.releaseDate); err != nil {
			return fmt.Errorf("invalid release date %q: %w", r.releaseDate, err)
		}
	}
	return nil
}

// Due reports whether the release date has been reached on the given day and no notification was sent yet.
func (r *Reminder) Due(now time.Time) bool {
	if r.notifiedAt != nil || r.releaseDate == "" {
		return false
	}
	release, err := time.Parse(time.DateOnly, r.releaseDate)
	if err != nil {
		return false
	}
	return !release.After(now)
}
