package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	tu "github.com/desertthunder/marquee/internal/testing"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupServer(t *testing.T, catalog services.Catalog) (*Server, *httptest.Server, *sql.DB) {
	t.Helper()

	db := setupDB(t)
	srv, err := New(shared.ServerConfig{Host: "127.0.0.1"}, db, catalog, "US", shared.DiscardLogger())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, db
}

func client(t *testing.T, ts *httptest.Server, userID string) *services.BackendService {
	t.Helper()

	b, err := services.NewBackendService(shared.BackendConfig{BaseURL: ts.URL}, userID, ts.Client())
	if err != nil {
		t.Fatalf("failed to create backend client: %v", err)
	}
	return b
}

func do(t *testing.T, ts *httptest.Server, method, path, userID, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if userID != "" {
		req.Header.Set(services.UserHeader, userID)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestRouter(t *testing.T) {
	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.HandleFunc(http.MethodGet, "/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("expected first then second, got %v", order)
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc("post", "/only-post", func(w http.ResponseWriter, _ *http.Request) {})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/only-post", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("RequireUser", func(t *testing.T) {
		var seen string
		h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = UserFrom(r.Context()) }))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), services.UserHeader) {
			t.Errorf("expected 401 naming the header, got %d %s", rec.Code, rec.Body.String())
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(services.UserHeader, " u1 ")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seen != "u1" {
			t.Errorf("expected user u1, got %q", seen)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		h := Recover(shared.DiscardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Logging Keeps Status", func(t *testing.T) {
		h := Logging(shared.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("expected 418, got %d", rec.Code)
		}
	})
}

func TestLists(t *testing.T) {
	ctx := context.Background()
	_, ts, _ := setupServer(t, nil)

	t.Run("Round Trip Through Client", func(t *testing.T) {
		b := client(t, ts, "alice")
		matrix := models.MediaItem{ID: "603", MediaType: models.MediaTypeMovie, Title: "The Matrix", PosterPath: "/m.jpg"}
		show := models.MediaItem{ID: "1399", MediaType: models.MediaTypeTV, Name: "Game of Thrones"}

		for _, item := range []models.MediaItem{matrix, show} {
			if err := b.Add(ctx, models.CollectionMyList, item); err != nil {
				t.Fatalf("failed to add %s: %v", item.Key(), err)
			}
		}

		items := models.NormalizeCollection(mustList(t, b, models.CollectionMyList))
		if len(items) != 2 || items[0].Key() != "tv:1399" || items[1].PosterPath != "/m.jpg" {
			t.Errorf("expected newest first with payload, got %+v", items)
		}

		if err := b.Add(ctx, models.CollectionMyList, matrix); err != nil {
			t.Fatalf("failed to re-add: %v", err)
		}
		items = models.NormalizeCollection(mustList(t, b, models.CollectionMyList))
		if len(items) != 2 || items[0].Key() != "movie:603" {
			t.Errorf("expected re-add to be an upsert moved to front, got %+v", items)
		}

		if err := b.Remove(ctx, models.CollectionMyList, models.MediaTypeMovie, "603"); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}
		if err := b.Remove(ctx, models.CollectionMyList, models.MediaTypeMovie, "603"); err != nil {
			t.Errorf("expected removing an absent entry to succeed, got %v", err)
		}
		if records := mustList(t, b, models.CollectionMyList); len(records) != 1 {
			t.Errorf("expected 1 record, got %d", len(records))
		}
	})

	t.Run("Users Are Isolated", func(t *testing.T) {
		if err := client(t, ts, "bob").Add(ctx, models.CollectionLiked, models.MediaItem{ID: "1", MediaType: models.MediaTypeMovie, Title: "A"}); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
		if records := mustList(t, client(t, ts, "carol"), models.CollectionLiked); len(records) != 0 {
			t.Errorf("expected carol's list to be empty, got %v", records)
		}
	})

	t.Run("Numeric Id And Query Delete", func(t *testing.T) {
		resp, body := do(t, ts, http.MethodPost, "/api/me/trailers-watched", "dave", `{"tmdb_id": 42, "media_type": "movie", "data": {"title": "Answer"}}`)
		if resp.StatusCode != http.StatusOK || body["success"] != true {
			t.Fatalf("expected success, got %d %v", resp.StatusCode, body)
		}

		resp, _ = do(t, ts, http.MethodDelete, "/api/me/trailers-watched?tmdb_id=42&media_type=movie", "dave", "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if records := mustList(t, client(t, ts, "dave"), models.CollectionTrailersWatched); len(records) != 0 {
			t.Errorf("expected empty list, got %v", records)
		}
	})

	tc := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		status int
	}{
		{"Missing User", http.MethodGet, "/api/me/my-list", "", "", http.StatusUnauthorized},
		{"Unknown Collection", http.MethodGet, "/api/me/history", "u1", "", http.StatusNotFound},
		{"Malformed Body", http.MethodPost, "/api/me/my-list", "u1", "{", http.StatusBadRequest},
		{"Bad Media Type", http.MethodPost, "/api/me/my-list", "u1", `{"tmdb_id": "1", "media_type": "person"}`, http.StatusBadRequest},
		{"Missing Id", http.MethodDelete, "/api/me/my-list", "u1", `{"media_type": "movie"}`, http.StatusBadRequest},
		{"Scalar Payload", http.MethodPost, "/api/me/my-list", "u1", `{"tmdb_id": "1", "media_type": "movie", "data": 5}`, http.StatusOK},
		{"Wrong Method", http.MethodPut, "/api/me/my-list", "u1", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, tt.method, tt.path, tt.user, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d (%v)", tt.status, resp.StatusCode, body)
			}
			if tt.status >= 400 && body["error"] == nil {
				t.Errorf("expected error body, got %v", body)
			}
		})
	}
}

func mustList(t *testing.T, b *services.BackendService, c models.Collection) []models.Record {
	t.Helper()
	records, err := b.List(context.Background(), c)
	if err != nil {
		t.Fatalf("failed to list %s: %v", c, err)
	}
	return records
}

func TestNotificationRoutes(t *testing.T) {
	ctx := context.Background()
	_, ts, db := setupServer(t, nil)
	repo := repositories.NewNotificationRepository(db)

	for _, title := range []string{"first", "second", "third"} {
		if _, err := repo.Create("u1", "key:"+title, &models.Notification{Title: title}); err != nil {
			t.Fatalf("failed to seed notification: %v", err)
		}
	}
	b := client(t, ts, "u1")

	list, err := b.Notifications(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(list) != 2 || list[0].Title != "third" {
		t.Errorf("expected the 2 newest, got %+v", list)
	}

	if err := b.MarkRead(ctx, list[0].ID); err != nil {
		t.Errorf("failed to mark read: %v", err)
	}
	if err := b.DeleteNotification(ctx, list[1].ID); err != nil {
		t.Errorf("failed to delete: %v", err)
	}
	if err := b.MarkRead(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, _ = b.Notifications(ctx, 0)
	if len(list) != 2 || !list[0].Read || list[1].Read {
		t.Errorf("unexpected feed %+v", list)
	}

	if err := b.MarkAllRead(ctx); err != nil {
		t.Errorf("failed to mark all read: %v", err)
	}
	if n, _ := repo.UnreadCount("u1"); n != 0 {
		t.Errorf("expected no unread, got %d", n)
	}

	if other, _ := client(t, ts, "u2").Notifications(ctx, 0); len(other) != 0 {
		t.Errorf("expected u2 to see nothing, got %+v", other)
	}
}

func TestReminderRoutes(t *testing.T) {
	ctx := context.Background()
	_, ts, _ := setupServer(t, nil)
	b := client(t, ts, "u1")

	item := models.MediaItem{ID: "9", MediaType: models.MediaTypeTV, Name: "Soon", FirstAirDate: "2030-01-01"}
	if err := b.Remind(ctx, item); err != nil {
		t.Fatalf("failed to remind: %v", err)
	}
	if err := b.Remind(ctx, item); err != nil {
		t.Fatalf("expected reminder upsert, got %v", err)
	}

	resp, err := b.API().Get(ctx, "/api/me/reminders")
	if err != nil {
		t.Fatalf("failed to list reminders: %v", err)
	}
	var views []reminderView
	if err := resp.Decode(&views); err != nil {
		t.Fatalf("failed to decode reminders: %v", err)
	}
	if len(views) != 1 || views[0].Title != "Soon" || views[0].ReleaseDate != "2030-01-01" || views[0].Notified {
		t.Errorf("unexpected reminders %+v", views)
	}

	bad := item
	bad.FirstAirDate = "soon"
	if err := b.Remind(ctx, bad); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()

	upcoming := []models.Record{
		{"id": 1, "title": "Alpha", "release_date": "2030-05-01", "poster_path": "/a.jpg"},
		{"id": 2, "title": "Beta"},
		{"title": "No id"},
	}

	t.Run("Announces To Users With Lists", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.UpcomingResults = upcoming
		srv, ts, db := setupServer(t, catalog)

		lists := repositories.NewListEntryRepository(db)
		for _, user := range []string{"u1", "u2"} {
			if err := lists.Upsert(models.NewListEntry(user, models.CollectionMyList, "5", models.MediaTypeMovie, nil)); err != nil {
				t.Fatalf("failed to seed list: %v", err)
			}
		}

		added, err := client(t, ts, "u1").FetchCatalogNotifications(ctx)
		if err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}
		if added != 4 {
			t.Errorf("expected 2 titles for 2 users, got %d", added)
		}

		again, err := srv.Notifier().Run(ctx)
		if err != nil || again != 0 {
			t.Errorf("expected duplicates to be skipped, got %d (%v)", again, err)
		}

		list, _ := repositories.NewNotificationRepository(db).List("u2", 0)
		if len(list) != 2 || !strings.HasPrefix(list[1].Title, "Coming soon: ") || list[1].Message != "Releases 2030-05-01." {
			t.Errorf("unexpected notifications %+v", list)
		}
	})

	t.Run("No Users Skips Catalog", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		srv, _, _ := setupServer(t, catalog)

		if added, err := srv.Notifier().Run(ctx); err != nil || added != 0 {
			t.Errorf("expected nothing, got %d (%v)", added, err)
		}
		if catalog.CallCount("upcoming") != 0 {
			t.Error("expected no catalog call without users")
		}
	})

	t.Run("Due Reminders", func(t *testing.T) {
		srv, _, db := setupServer(t, nil)
		reminders := repositories.NewReminderRepository(db)
		for _, r := range []*models.Reminder{
			models.NewReminder("u1", "1", models.MediaTypeMovie, "Released", "", "2020-01-01"),
			models.NewReminder("u1", "2", models.MediaTypeMovie, "Later", "", "2999-01-01"),
		} {
			if err := reminders.Upsert(r); err != nil {
				t.Fatalf("failed to seed reminder: %v", err)
			}
		}

		if added, err := srv.Notifier().Run(ctx); err != nil || added != 1 {
			t.Errorf("expected 1 reminder notification, got %d (%v)", added, err)
		}
		if added, _ := srv.Notifier().Run(ctx); added != 0 {
			t.Errorf("expected reminder to fire once, got %d", added)
		}

		pending, _ := reminders.Pending()
		if len(pending) != 1 || pending[0].Title() != "Later" {
			t.Errorf("expected only the future reminder pending, got %d", len(pending))
		}
	})

	t.Run("Catalog Failure", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.Errors["upcoming"] = shared.ErrServiceUnavailable
		_, ts, db := setupServer(t, catalog)
		_ = repositories.NewListEntryRepository(db).Upsert(models.NewListEntry("u1", models.CollectionLiked, "5", models.MediaTypeMovie, nil))

		resp, body := do(t, ts, http.MethodPost, "/api/admin/fetch-tmdb-notifications", "", "")
		if resp.StatusCode != http.StatusBadGateway || body["error"] == nil {
			t.Errorf("expected 502 with error, got %d %v", resp.StatusCode, body)
		}
	})
}

func TestScheduler(t *testing.T) {
	s, err := NewScheduler(shared.DiscardLogger())
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	if err := s.Every("bad", 0, func(context.Context) error { return nil }); err == nil {
		t.Error("expected invalid interval to fail")
	}

	var runs atomic.Int32
	if err := s.Every("tick", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("logged only")
	}); err != nil {
		t.Fatalf("failed to register job: %v", err)
	}

	s.Start()
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Shutdown(); err != nil {
		t.Errorf("failed to shut down: %v", err)
	}
	if runs.Load() == 0 {
		t.Error("expected the job to run")
	}
}

func TestListenAndServe(t *testing.T) {
	srv, err := New(shared.ServerConfig{Host: "127.0.0.1", NotifyInterval: time.Hour}, setupDB(t), nil, "", shared.DiscardLogger())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if srv.scheduler == nil {
		t.Fatal("expected a scheduler when an interval is configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
