package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// UserHeader carries the user id on every backend request.
const UserHeader string = "X-User-ID"

// BackendService talks to the same-origin REST backend on behalf of one user.
type BackendService struct {
	api    *APIService
	userID string
}

// NewBackendService creates a backend client for userID.
func NewBackendService(cfg shared.BackendConfig, userID string, client *http.Client) (*BackendService, error) {
	if userID == "" {
		return nil, shared.ErrMissingUser
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	api := NewAPIService(cfg.BaseURL, client)
	api.SetHeader(UserHeader, userID)
	return &BackendService{api: api, userID: userID}, nil
}

// API exposes the underlying raw client.
func (b *BackendService) API() *APIService {
	return b.api
}

// listWrite is the POST/DELETE body of the /api/me collection routes.
type listWrite struct {
	TMDBID    string           `json:"tmdb_id"`
	MediaType models.MediaType `json:"media_type"`
	Data      models.Record    `json:"data,omitempty"`
}

// reminderWrite is the POST body of /api/me/reminders.
type reminderWrite struct {
	TMDBID      string           `json:"tmdb_id"`
	MediaType   models.MediaType `json:"media_type"`
	Title       string           `json:"title"`
	PosterPath  string           `json:"poster_path,omitempty"`
	ReleaseDate string           `json:"release_date,omitempty"`
}

// List returns the raw records of a collection, newest first.
func (b *BackendService) List(ctx context.Context, c models.Collection) ([]models.Record, error) {
	var records []models.Record
	if err := b.call(ctx, http.MethodGet, "/api/me/"+c.Path(), nil, &records); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.Label(), err)
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// Add upserts item into a collection with its full record as payload.
func (b *BackendService) Add(ctx context.Context, c models.Collection, item models.MediaItem) error {
	body := listWrite{TMDBID: item.ID, MediaType: item.MediaType, Data: item.Record()}
	if err := b.call(ctx, http.MethodPost, "/api/me/"+c.Path(), body, nil); err != nil {
		return fmt.Errorf("failed to add to %s: %w", c.Label(), err)
	}
	return nil
}

// Remove deletes (mediaType, id) from a collection.
func (b *BackendService) Remove(ctx context.Context, c models.Collection, mediaType models.MediaType, id string) error {
	body := listWrite{TMDBID: id, MediaType: mediaType}
	if err := b.call(ctx, http.MethodDelete, "/api/me/"+c.Path(), body, nil); err != nil {
		return fmt.Errorf("failed to remove from %s: %w", c.Label(), err)
	}
	return nil
}

// Notifications returns up to limit notifications, newest first.
func (b *BackendService) Notifications(ctx context.Context, limit int) ([]models.Notification, error) {
	path := "/api/notifications"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var list []models.Notification
	if err := b.call(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

// MarkRead marks one notification as read.
func (b *BackendService) MarkRead(ctx context.Context, id string) error {
	return b.call(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(id)+"/mark-read", nil, nil)
}

// DeleteNotification removes one notification.
func (b *BackendService) DeleteNotification(ctx context.Context, id string) error {
	return b.call(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil, nil)
}

// MarkAllRead marks the whole feed as read.
func (b *BackendService) MarkAllRead(ctx context.Context) error {
	return b.call(ctx, http.MethodPost, "/api/notifications/mark-all-read", nil, nil)
}

// FetchCatalogNotifications asks the backend to build release notifications from the catalog
// and returns how many were added.
func (b *BackendService) FetchCatalogNotifications(ctx context.Context) (int, error) {
	var out struct {
		Added int `json:"notifications_added"`
	}
	if err := b.call(ctx, http.MethodPost, "/api/admin/fetch-tmdb-notifications", nil, &out); err != nil {
		return 0, fmt.Errorf("failed to fetch catalog notifications: %w", err)
	}
	return out.Added, nil
}

// Remind registers a release reminder for item.
func (b *BackendService) Remind(ctx context.Context, item models.MediaItem) error {
	release := item.ReleaseDate
	if release == "" {
		release = item.FirstAirDate
	}
	body := reminderWrite{
		TMDBID:      item.ID,
		MediaType:   item.MediaType,
		Title:       item.DisplayTitle(),
		PosterPath:  item.PosterPath,
		ReleaseDate: release,
	}
	if err := b.call(ctx, http.MethodPost, "/api/me/reminders", body, nil); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// call sends body as JSON, checks the status and decodes the response into result when non-nil.
func (b *BackendService) call(ctx context.Context, method, path string, body, result any) error {
	var data []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		data = encoded
	}

	resp, err := b.api.Send(ctx, method, path, data)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		return responseError(resp)
	}

	if result != nil {
		return resp.Decode(result)
	}
	return nil
}

// responseError maps a backend error response to a sentinel, using its {"error": "..."} message.
func responseError(resp *APIResponse) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(resp.Body, &body)

	message := body.Error
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		sentinel = shared.ErrInvalidInput
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = shared.ErrMissingUser
	case resp.StatusCode == http.StatusNotFound:
		sentinel = shared.ErrNotFound
	case resp.StatusCode >= 500:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, message)
}
