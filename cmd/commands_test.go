package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	tu "github.com/desertthunder/marquee/internal/testing"
)

type harness struct {
	runner  *Runner
	output  *bytes.Buffer
	catalog *tu.MockCatalog
	backend *tu.MockBackend
	opened  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.User.ID = "u1"
	config.Catalog.PlayerURL = "https://player.test"

	h := &harness{
		output:  &bytes.Buffer{},
		catalog: tu.NewMockCatalog(),
		backend: tu.NewMockBackend(),
	}
	h.runner = NewRunner(RunnerOpts{
		Config:  config,
		Catalog: h.catalog,
		Backend: h.backend,
		DB:      db,
		Logger:  shared.DiscardLogger(),
		Output:  h.output,
		OpenURL: func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		},
	})
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "marquee",
		Writer:   &bytes.Buffer{},
		Commands: h.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"marquee"}, args...))
}

func matrix() models.Record {
	return models.Record{
		"id":           float64(603),
		"title":        "The Matrix",
		"poster_path":  "/matrix.jpg",
		"overview":     "A hacker learns the truth.",
		"release_date": "1999-03-31",
		"runtime":      float64(136),
		"vote_average": 8.2,
		"credits": map[string]any{
			"cast": []any{
				map[string]any{"id": float64(6384), "name": "Keanu Reeves", "character": "Neo"},
				map[string]any{"name": "Carrie-Anne Moss"},
			},
		},
		"videos": map[string]any{
			"results": []any{
				map[string]any{"site": "YouTube", "type": "Trailer", "key": "vKQi3bBA1y8"},
			},
		},
	}
}

func TestListsCommands(t *testing.T) {
	t.Run("Toggle Adds Then Removes", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.AddDetail(models.MediaTypeMovie, "603", matrix())

		if err := h.run(t, "lists", "toggle", "--id", "603", "my-list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "✓ Added The Matrix to My List") {
			t.Errorf("expected add message, got %q", h.output.String())
		}

		h.output.Reset()
		if err := h.run(t, "lists", "toggle", "--id", "603", "my-list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "✓ Removed The Matrix from My List") {
			t.Errorf("expected remove message, got %q", h.output.String())
		}

		calls := h.backend.Called()
		if !slices.Contains(calls, "add:my_list:movie:603") || !slices.Contains(calls, "remove:my_list:movie:603") {
			t.Errorf("expected add and remove calls, got %v", calls)
		}
	})

	t.Run("Toggle Keeps Local Change When Backend Fails", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.AddDetail(models.MediaTypeMovie, "603", matrix())
		h.backend.Errors["add"] = shared.ErrServiceUnavailable

		if err := h.run(t, "lists", "toggle", "--id", "603", "likes"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "kept locally") {
			t.Errorf("expected local-only warning, got %q", h.output.String())
		}
	})

	t.Run("Toggle Rejects Unknown Collection", func(t *testing.T) {
		h := newHarness(t)

		err := h.run(t, "lists", "toggle", "--id", "603", "favourites")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Sync Then Show", func(t *testing.T) {
		h := newHarness(t)
		h.backend.Lists[models.CollectionLiked] = []models.Record{
			{"id": float64(603), "media_type": "movie", "title": "The Matrix"},
			{"id": float64(1399), "media_type": "tv", "name": "Game of Thrones"},
		}

		if err := h.run(t, "lists", "sync"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "2 titles across 3 collections") {
			t.Errorf("expected sync summary, got %q", h.output.String())
		}

		h.output.Reset()
		if err := h.run(t, "lists", "show", "--json", "--pretty=false", "liked"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var shown map[string][]models.MediaItem
		if err := json.Unmarshal(h.output.Bytes(), &shown); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", h.output.String(), err)
		}
		if len(shown["likes"]) != 2 {
			t.Errorf("expected 2 liked titles, got %d", len(shown["likes"]))
		}
	})

	t.Run("Missing User", func(t *testing.T) {
		h := newHarness(t)
		h.runner.backend = nil

		err := h.run(t, "lists", "show")
		if !errors.Is(err, shared.ErrMissingUser) {
			t.Errorf("expected ErrMissingUser, got %v", err)
		}
	})
}

func TestBrowseCommands(t *testing.T) {
	t.Run("Rows", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.Results["trending:movie"] = []models.Record{
			{"id": float64(1), "title": "First", "poster_path": "/1.jpg"},
			{"id": float64(2), "title": "Second", "poster_path": "/2.jpg"},
		}

		if err := h.run(t, "browse", "rows", "--categories", "0"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := h.output.String()
		if !strings.Contains(out, "Top 10 Movies in the U.S. Today") {
			t.Errorf("expected movie row title, got %q", out)
		}
		if !strings.Contains(out, "  1. First") {
			t.Errorf("expected ranked items, got %q", out)
		}
		if strings.Contains(out, "\nTop 10 TV Shows") {
			t.Errorf("expected empty tv row to be dropped, got %q", out)
		}
	})

	t.Run("No Rows", func(t *testing.T) {
		h := newHarness(t)

		err := h.run(t, "browse", "rows", "--categories", "0", "--json")
		if !errors.Is(err, shared.ErrNoRows) {
			t.Errorf("expected ErrNoRows, got %v", err)
		}
	})

	t.Run("Search Requires Query", func(t *testing.T) {
		h := newHarness(t)

		err := h.run(t, "search")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Search Filters Results", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.Results["search:matrix"] = []models.Record{
			{"id": float64(603), "media_type": "movie", "title": "The Matrix", "poster_path": "/m.jpg"},
			{"id": float64(6384), "media_type": "person", "name": "Keanu Reeves", "profile_path": "/k.jpg"},
			{"id": float64(604), "media_type": "movie", "title": "The Matrix Reloaded"},
		}

		if err := h.run(t, "search", "matrix"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := h.output.String()
		if !strings.Contains(out, "The Matrix") || !strings.Contains(out, "(1)") {
			t.Errorf("expected one result, got %q", out)
		}
		if strings.Contains(out, "Keanu") || strings.Contains(out, "Reloaded") {
			t.Errorf("expected people and posterless titles to be dropped, got %q", out)
		}
	})

	t.Run("Detail", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.AddDetail(models.MediaTypeMovie, "603", matrix())

		if err := h.run(t, "detail", "--id", "603"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := h.output.String()
		for _, want := range []string{"The Matrix", "1999", "2h 16m", "Keanu Reeves", "watch?v=vKQi3bBA1y8"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}
	})

	t.Run("Preview Unavailable", func(t *testing.T) {
		h := newHarness(t)

		err := h.run(t, "detail", "--id", "999", "--preview")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Preview unavailable") {
			t.Errorf("expected fallback text, got %q", h.output.String())
		}
	})

	t.Run("Play", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want string
		}{
			{"Movie", []string{"play", "--id", "603"}, "https://player.test/movie/603"},
			{"Episode", []string{"play", "--id", "1399", "-t", "tv", "--season", "1", "--episode", "2"}, "https://player.test/tv/1399/1/2"},
			{"Show Without Episode", []string{"play", "--id", "1399", "-t", "tv"}, "https://player.test/tv/1399"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t)
				if err := h.run(t, tt.args...); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if len(h.opened) != 1 || h.opened[0] != tt.want {
					t.Errorf("expected %s to be opened, got %v", tt.want, h.opened)
				}
			})
		}
	})

	t.Run("Play Print", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "play", "--id", "603", "--print"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if h.output.String() != "https://player.test/movie/603\n" {
			t.Errorf("expected URL, got %q", h.output.String())
		}
		if len(h.opened) != 0 {
			t.Errorf("expected nothing opened, got %v", h.opened)
		}
	})

	t.Run("Invalid Media Type", func(t *testing.T) {
		h := newHarness(t)

		err := h.run(t, "play", "--id", "603", "-t", "person")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("Detail Cast", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.AddDetail(models.MediaTypeMovie, "603", matrix())

		if err := h.run(t, "detail", "--id", "603", "--cast"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Keanu Reeves as Neo  [person 6384]") {
			t.Errorf("expected cast with person id, got %q", h.output.String())
		}
	})

	t.Run("Detail Season", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.AddDetail(models.MediaTypeTV, "1399", models.Record{"id": float64(1399), "name": "Game of Thrones", "number_of_seasons": float64(8)})
		h.catalog.Results["season:1399:2"] = []models.Record{
			{"episode_number": float64(1), "name": "The North Remembers"},
			{"episode_number": float64(2), "name": "The Night Lands"},
		}

		if err := h.run(t, "detail", "--id", "1399", "-t", "tv", "--season", "2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := h.output.String()
		for _, want := range []string{"8 seasons", "Season 2", "1. The North Remembers", "2. The Night Lands"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}

		if err := h.run(t, "detail", "--id", "603", "--season", "1"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag for a movie season, got %v", err)
		}
	})

	t.Run("Person", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.Results["person:6384"] = []models.Record{
			{"id": float64(603), "media_type": "movie", "title": "The Matrix", "poster_path": "/m.jpg", "popularity": 40.0},
			{"id": float64(245891), "media_type": "movie", "title": "John Wick", "poster_path": "/jw.jpg", "popularity": 80.0},
		}

		if err := h.run(t, "browse", "person", "6384"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := h.output.String()
		wick, neo := strings.Index(out, "John Wick"), strings.Index(out, "The Matrix")
		if wick < 0 || neo < 0 || wick > neo {
			t.Errorf("expected works by popularity, got %q", out)
		}

		if err := h.run(t, "browse", "person"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Upcoming", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.UpcomingResults = []models.Record{
			{"id": float64(2), "title": "Later", "release_date": "2999-02-01"},
			{"id": float64(1), "title": "Sooner", "release_date": "2999-01-01"},
			{"id": float64(3), "title": "Past", "release_date": "2000-01-01"},
		}
		h.catalog.AddDetail(models.MediaTypeMovie, "1", models.Record{"id": float64(1), "title": "Sooner", "videos": map[string]any{
			"results": []any{map[string]any{"site": "YouTube", "type": "Trailer", "key": "soon"}},
		}})

		if err := h.run(t, "browse", "upcoming", "--remind", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := h.output.String()
		sooner, later := strings.Index(out, "Sooner"), strings.Index(out, "Later")
		if sooner < 0 || later < 0 || sooner > later || strings.Contains(out, "Past") {
			t.Errorf("expected future titles soonest first, got %q", out)
		}
		if !strings.Contains(out, "watch?v=soon") {
			t.Errorf("expected trailer link, got %q", out)
		}
		if len(h.backend.Reminders) != 1 || h.backend.Reminders[0].ID != "1" {
			t.Errorf("expected reminder for the first title, got %+v", h.backend.Reminders)
		}
		if !strings.Contains(out, "✓ Reminder set for Sooner (2999-01-01)") {
			t.Errorf("expected reminder confirmation, got %q", out)
		}

		if err := h.run(t, "browse", "upcoming", "--remind", "5"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestNotificationCommands(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		h := newHarness(t)
		h.backend.Feed = []models.Notification{
			{ID: "n1", Title: "Dune: Part Two is out", Message: "Now available"},
			{ID: "n2", Title: "Old news", Read: true},
		}

		if err := h.run(t, "notifications", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := h.output.String()
		if !strings.Contains(out, "Notifications (1 unread)") {
			t.Errorf("expected unread count, got %q", out)
		}
		if !strings.Contains(out, "● ") || !strings.Contains(out, "id: n2") {
			t.Errorf("expected both notifications, got %q", out)
		}
	})

	t.Run("List Falls Back To Cache", func(t *testing.T) {
		h := newHarness(t)
		h.backend.Feed = []models.Notification{{ID: "n1", Title: "Cached"}}
		if err := h.run(t, "notifications", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.output.Reset()
		h.backend.Errors["notifications"] = shared.ErrServiceUnavailable
		if err := h.run(t, "notifications", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Cached") {
			t.Errorf("expected cached feed, got %q", h.output.String())
		}
	})

	t.Run("Edits", func(t *testing.T) {
		h := newHarness(t)

		for _, args := range [][]string{
			{"notifications", "read", "n1"},
			{"notifications", "delete", "n2"},
			{"notifications", "read-all"},
		} {
			if err := h.run(t, args...); err != nil {
				t.Fatalf("expected no error for %v, got %v", args, err)
			}
		}

		want := []string{"mark-read:n1", "delete-notification:n2", "mark-all-read"}
		if calls := h.backend.Called(); !slices.Equal(calls, want) {
			t.Errorf("expected %v, got %v", want, calls)
		}
	})

	t.Run("Read Requires Id", func(t *testing.T) {
		h := newHarness(t)

		err := h.run(t, "notifications", "read")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Fetch", func(t *testing.T) {
		h := newHarness(t)
		h.backend.CatalogAdded = 3

		if err := h.run(t, "notifications", "fetch"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "3 new notifications") {
			t.Errorf("expected count, got %q", h.output.String())
		}
	})

	t.Run("Remind", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.AddDetail(models.MediaTypeMovie, "693134", models.Record{
			"id": float64(693134), "title": "Dune: Part Two", "release_date": "2024-03-01",
		})

		if err := h.run(t, "remind", "--id", "693134"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(h.backend.Reminders) != 1 || h.backend.Reminders[0].ReleaseDate != "2024-03-01" {
			t.Errorf("expected one reminder with a release date, got %+v", h.backend.Reminders)
		}
		if !strings.Contains(h.output.String(), "Reminder set for Dune: Part Two (2024-03-01)") {
			t.Errorf("expected confirmation, got %q", h.output.String())
		}
	})
}

func TestExportCommand(t *testing.T) {
	t.Run("Writes Selected Collections", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.AddDetail(models.MediaTypeMovie, "603", matrix())
		if err := h.run(t, "lists", "toggle", "--id", "603", "my-list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		dir := filepath.Join(t.TempDir(), "export")
		h.output.Reset()
		if err := h.run(t, "export", "-f", "csv", "-o", dir, "--only", "my-list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		if !strings.Contains(h.output.String(), "1 succeeded, 0 failed") {
			t.Errorf("expected summary, got %q", h.output.String())
		}
	})

	t.Run("Rejects Unknown Format", func(t *testing.T) {
		h := newHarness(t)

		err := h.run(t, "export", "-f", "xml")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestCacheCommands(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddDetail(models.MediaTypeMovie, "603", matrix())
	if err := h.run(t, "lists", "toggle", "--id", "603", "likes"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	h.output.Reset()
	if err := h.run(t, "cache", "status"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(h.output.String(), models.CollectionLiked.CacheKey("u1")) {
		t.Errorf("expected liked cache entry, got %q", h.output.String())
	}

	h.output.Reset()
	if err := h.run(t, "cache", "clear"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	keys, err := repositories.NewCacheRepository(h.runner.db).Keys("u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected empty cache, got %v", keys)
	}
}

func TestSetupCommands(t *testing.T) {
	t.Run("Config", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := h.run(t, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)

		err := h.run(t, "setup", "config", "--config", path)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument without --force, got %v", err)
		}

		if err := os.WriteFile(path, []byte("stale"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if err := h.run(t, "setup", "config", "--config", path, "--force"); err != nil {
			t.Fatalf("expected no error with --force, got %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected overwritten config to load, got %v", err)
		}
	})

	t.Run("Status", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "setup", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "applied") {
			t.Errorf("expected applied migrations, got %q", h.output.String())
		}
	})
}

func TestAPICommands(t *testing.T) {
	var gotMethod, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.String()

		if r.URL.Path == "/missing" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	newAPIHarness := func(t *testing.T) *harness {
		h := newHarness(t)
		h.runner.api = services.NewAPIService(srv.URL, srv.Client())
		return h
	}

	t.Run("Get", func(t *testing.T) {
		h := newAPIHarness(t)
		if err := h.run(t, "api", "get", "--json", "/api/me/my-list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotMethod != http.MethodGet {
			t.Errorf("expected GET, got %s", gotMethod)
		}
		if h.output.String() != `{"success":true}`+"\n" {
			t.Errorf("expected compact JSON, got %q", h.output.String())
		}
	})

	t.Run("Post Validates Body", func(t *testing.T) {
		h := newAPIHarness(t)
		err := h.run(t, "api", "post", "--data", "{not json", "/api/me/likes")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Delete Sends Body", func(t *testing.T) {
		h := newAPIHarness(t)
		body := `{"tmdb_id":603,"media_type":"movie"}`
		if err := h.run(t, "api", "delete", "-d", body, "/api/me/likes"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotMethod != http.MethodDelete || gotBody != body {
			t.Errorf("expected DELETE with body, got %s %q", gotMethod, gotBody)
		}
	})

	t.Run("Error Status", func(t *testing.T) {
		h := newAPIHarness(t)
		err := h.run(t, "api", "get", "/missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
