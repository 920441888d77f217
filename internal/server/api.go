package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/shared"
)

// DefaultNotificationLimit is used when a notifications request has no valid limit.
const DefaultNotificationLimit = 50

// API holds the REST handlers of the reference backend.
type API struct {
	lists         *ListsHandler
	notifications *repositories.NotificationRepository
	reminders     *repositories.ReminderRepository
	notifier      *Notifier
	logger        *log.Logger
}

// NewAPI creates the handler set.
func NewAPI(
	lists *repositories.ListEntryRepository,
	notifications *repositories.NotificationRepository,
	reminders *repositories.ReminderRepository,
	notifier *Notifier,
	logger *log.Logger,
) *API {
	return &API{
		lists:         &ListsHandler{repo: lists, logger: logger},
		notifications: notifications,
		reminders:     reminders,
		notifier:      notifier,
		logger:        logger,
	}
}

// Register adds every route to r. Everything except the admin fetch requires a user id.
func (a *API) Register(r Router) {
	r.Handler(a.lists)
	r.Handle(http.MethodGet, "/api/me/reminders", RequireUser(http.HandlerFunc(a.listReminders)))
	r.Handle(http.MethodPost, "/api/me/reminders", RequireUser(http.HandlerFunc(a.createReminder)))

	r.Handle(http.MethodGet, "/api/notifications", RequireUser(http.HandlerFunc(a.listNotifications)))
	r.Handle(http.MethodPost, "/api/notifications/{id}/mark-read", RequireUser(http.HandlerFunc(a.markRead)))
	r.Handle(http.MethodPost, "/api/notifications/mark-all-read", RequireUser(http.HandlerFunc(a.markAllRead)))
	r.Handle(http.MethodDelete, "/api/notifications/{id}", RequireUser(http.HandlerFunc(a.deleteNotification)))

	r.Handle(http.MethodPost, "/api/admin/fetch-tmdb-notifications", http.HandlerFunc(a.fetchCatalogNotifications))
}

// ListsHandler serves GET, POST and DELETE on /api/me/{collection}.
type ListsHandler struct {
	repo   *repositories.ListEntryRepository
	logger *log.Logger
}

// listWrite is the POST and DELETE body for a collection entry.
type listWrite struct {
	TMDBID    flexibleID      `json:"tmdb_id"`
	MediaType string          `json:"media_type"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Routes implements [Handler].
func (h *ListsHandler) Routes() []string {
	return []string{"/api/me/{collection}"}
}

func (h *ListsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	RequireUser(http.HandlerFunc(h.serve)).ServeHTTP(w, r)
}

func (h *ListsHandler) serve(w http.ResponseWriter, r *http.Request) {
	collection, err := models.ParseCollection(r.PathValue("collection"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	userID := UserFrom(r.Context())

	switch r.Method {
	case http.MethodGet:
		h.list(w, userID, collection)
	case http.MethodPost:
		h.add(w, r, userID, collection)
	case http.MethodDelete:
		h.remove(w, r, userID, collection)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ListsHandler) list(w http.ResponseWriter, userID string, c models.Collection) {
	entries, err := h.repo.List(userID, c)
	if err != nil {
		writeFailure(w, err)
		return
	}

	records := make([]models.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.Record())
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *ListsHandler) add(w http.ResponseWriter, r *http.Request, userID string, c models.Collection) {
	var body listWrite
	if err := decodeBody(w, r, &body); err != nil {
		writeFailure(w, err)
		return
	}

	entry, err := body.entry(userID, c)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.repo.Upsert(entry); err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w)
}

// remove reads the identity from the body, or from the query when the body is empty.
// Removing an absent entry succeeds.
func (h *ListsHandler) remove(w http.ResponseWriter, r *http.Request, userID string, c models.Collection) {
	var body listWrite
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &body); err != nil {
			writeFailure(w, err)
			return
		}
	}
	if body.TMDBID == "" {
		body.TMDBID = flexibleID(r.URL.Query().Get("tmdb_id"))
		body.MediaType = r.URL.Query().Get("media_type")
	}

	mediaType, err := models.ParseMediaType(body.MediaType)
	if err != nil || body.TMDBID == "" {
		writeError(w, http.StatusBadRequest, "tmdb_id and media_type are required")
		return
	}

	err = h.repo.Delete(userID, c, string(body.TMDBID), mediaType)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		writeFailure(w, err)
		return
	}
	writeSuccess(w)
}

func (b listWrite) entry(userID string, c models.Collection) (*models.ListEntry, error) {
	mediaType, err := models.ParseMediaType(b.MediaType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if b.TMDBID == "" {
		return nil, fmt.Errorf("%w: tmdb_id is required", shared.ErrInvalidInput)
	}

	var data json.RawMessage
	if len(b.Data) > 0 && string(b.Data) != "null" {
		data = b.Data
	}
	entry := models.NewListEntry(userID, c, string(b.TMDBID), mediaType, data)
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return entry, nil
}

// reminderWrite is the POST body of /api/me/reminders.
type reminderWrite struct {
	TMDBID      flexibleID `json:"tmdb_id"`
	MediaType   string     `json:"media_type"`
	Title       string     `json:"title"`
	PosterPath  string     `json:"poster_path"`
	ReleaseDate string     `json:"release_date"`
}

// reminderView is the JSON form of a stored reminder.
type reminderView struct {
	TMDBID      string           `json:"tmdb_id"`
	MediaType   models.MediaType `json:"media_type"`
	Title       string           `json:"title"`
	PosterPath  string           `json:"poster_path,omitempty"`
	ReleaseDate string           `json:"release_date,omitempty"`
	Notified    bool             `json:"notified"`
}

func (a *API) listReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := a.reminders.List(UserFrom(r.Context()))
	if err != nil {
		writeFailure(w, err)
		return
	}

	views := make([]reminderView, 0, len(reminders))
	for _, rem := range reminders {
		views = append(views, reminderView{
			TMDBID:      rem.TMDBID(),
			MediaType:   rem.MediaType(),
			Title:       rem.Title(),
			PosterPath:  rem.PosterPath(),
			ReleaseDate: rem.ReleaseDate(),
			Notified:    rem.NotifiedAt() != nil,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) createReminder(w http.ResponseWriter, r *http.Request) {
	var body reminderWrite
	if err := decodeBody(w, r, &body); err != nil {
		writeFailure(w, err)
		return
	}

	mediaType, err := models.ParseMediaType(body.MediaType)
	if err != nil || body.TMDBID == "" {
		writeError(w, http.StatusBadRequest, "tmdb_id and media_type are required")
		return
	}

	reminder := models.NewReminder(UserFrom(r.Context()), string(body.TMDBID), mediaType, body.Title, body.PosterPath, body.ReleaseDate)
	if err := reminder.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.reminders.Upsert(reminder); err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w)
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := a.notifications.List(UserFrom(r.Context()), queryLimit(r, DefaultNotificationLimit))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	if err := a.notifications.MarkRead(UserFrom(r.Context()), r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w)
}

func (a *API) markAllRead(w http.ResponseWriter, r *http.Request) {
	if _, err := a.notifications.MarkAllRead(UserFrom(r.Context())); err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w)
}

func (a *API) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := a.notifications.Delete(UserFrom(r.Context()), r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w)
}

func (a *API) fetchCatalogNotifications(w http.ResponseWriter, r *http.Request) {
	added, err := a.notifier.Run(r.Context())
	if err != nil {
		a.logger.Warn("catalog notification fetch failed", "added", added, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"notifications_added": added})
}
