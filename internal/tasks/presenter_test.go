package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	tu "github.com/desertthunder/marquee/internal/testing"
)

func matrixDetail() models.Record {
	return models.Record{
		"id":            603,
		"title":         "The Matrix",
		"overview":      "Neo wakes up",
		"poster_path":   "/m.jpg",
		"backdrop_path": "/mb.jpg",
		"release_date":  "1999-03-31",
		"runtime":       136,
		"genres":        []any{map[string]any{"id": 28, "name": "Action"}, map[string]any{"id": 878, "name": "Science Fiction"}},
		"credits": map[string]any{"cast": []any{
			map[string]any{"id": 6384, "name": "Keanu Reeves", "character": "Neo"},
			map[string]any{"name": "Carrie-Anne Moss"},
		}},
		"videos": map[string]any{"results": []any{
			map[string]any{"site": "Vimeo", "type": "Trailer", "key": "vimeo"},
			map[string]any{"site": "YouTube", "type": "Teaser", "key": "teaser"},
			map[string]any{"site": "YouTube", "type": "Trailer", "key": "trailer"},
		}},
	}
}

func TestPresenter(t *testing.T) {
	ctx := context.Background()

	t.Run("Described Stored Item Needs No Fetch", func(t *testing.T) {
		st := setupStore(t)
		st.Replace(models.CollectionMyList, []models.MediaItem{described(movie("1", "Stored"))})
		catalog := tu.NewMockCatalog()
		p := NewPresenter(st, catalog, 0, "https://img/w1280", shared.DiscardLogger())

		card := NewCard(models.MediaTypeMovie, "1")
		if err := p.OnHover(ctx, card); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		preview, ok := card.Preview()
		if !ok || card.State() != CardReady {
			t.Fatalf("expected ready card, got %s", card.State())
		}
		if preview.Title != "Stored" || !preview.InList || preview.Liked {
			t.Errorf("unexpected preview %+v", preview)
		}
		if preview.Backdrop != "https://img/w1280/b1.jpg" {
			t.Errorf("unexpected backdrop %q", preview.Backdrop)
		}
		if catalog.CallCount("detail:movie:1") != 0 {
			t.Error("expected no catalog call")
		}
	})

	t.Run("Incomplete Stored Item Is Refreshed", func(t *testing.T) {
		st := setupStore(t)
		st.Replace(models.CollectionLiked, []models.MediaItem{{ID: "603", MediaType: models.MediaTypeMovie, Title: "Matrix (stored)"}})
		catalog := tu.NewMockCatalog()
		catalog.AddDetail(models.MediaTypeMovie, "603", matrixDetail())
		p := NewPresenter(st, catalog, 0, "", shared.DiscardLogger())

		card := NewCard(models.MediaTypeMovie, "603")
		if err := p.OnIntersect(ctx, card); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		preview, _ := card.Preview()
		if preview.Overview != "Neo wakes up" || preview.Runtime != "2h 16m" || preview.Year != "1999" || !preview.Liked {
			t.Errorf("unexpected preview %+v", preview)
		}
		if stored := st.Get(models.CollectionLiked)[0]; !stored.Described() {
			t.Errorf("expected store to be refreshed, got %+v", stored)
		}
	})

	t.Run("Loads At Most Once", func(t *testing.T) {
		st := setupStore(t)
		catalog := tu.NewMockCatalog()
		catalog.AddDetail(models.MediaTypeMovie, "603", matrixDetail())
		p := NewPresenter(st, catalog, 0, "", shared.DiscardLogger())

		card := NewCard(models.MediaTypeMovie, "603")
		p.OnIntersect(ctx, card)
		p.OnHover(ctx, card)

		if !card.Loaded() {
			t.Error("expected loaded flag")
		}
		if n := catalog.CallCount("detail:movie:603"); n != 1 {
			t.Errorf("expected 1 fetch, got %d", n)
		}

		if err := p.Present(ctx, NewCard(models.MediaTypeMovie, "603")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := catalog.CallCount("detail:movie:603"); n != 1 {
			t.Errorf("expected second card to use the details cache, got %d fetches", n)
		}
	})

	t.Run("Failure Clears Flag", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		p := NewPresenter(setupStore(t), catalog, 0, "", shared.DiscardLogger())
		card := NewCard(models.MediaTypeTV, "77")

		err := p.Present(ctx, card)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		preview, ok := card.Preview()
		if ok || card.State() != CardUnavailable || preview.Overview != PreviewUnavailable {
			t.Errorf("expected unavailable card, got %s %+v", card.State(), preview)
		}
		if card.Loaded() {
			t.Error("expected loaded flag to be cleared")
		}

		catalog.AddDetail(models.MediaTypeTV, "77", models.Record{"id": 77, "name": "Show"})
		if err := p.Present(ctx, card); err != nil || card.State() != CardReady {
			t.Errorf("expected retry to succeed, got %s (%v)", card.State(), err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.AddDetail(models.MediaTypeMovie, "1", matrixDetail())
		catalog.Block = make(chan struct{})
		defer close(catalog.Block)

		p := NewPresenter(setupStore(t), catalog, 10*time.Millisecond, "", shared.DiscardLogger())
		if err := p.Present(ctx, NewCard(models.MediaTypeMovie, "1")); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("BuildPreview", func(t *testing.T) {
		p := NewPresenter(setupStore(t), nil, 0, "", shared.DiscardLogger())
		item := movie("1", "Long")
		item.Overview = strings.Repeat("é", OverviewLimit+10)
		item.Genres = []string{"A", "B", "C", "D"}

		preview := p.BuildPreview(item)
		if got := []rune(preview.Overview); len(got) != OverviewLimit+3 || !strings.HasSuffix(preview.Overview, "...") {
			t.Errorf("expected truncated overview, got %d runes", len(got))
		}
		if len(preview.Genres) != PreviewGenres {
			t.Errorf("expected %d genres, got %v", PreviewGenres, preview.Genres)
		}
		if preview.Rating != "NR" || preview.Runtime != "" {
			t.Errorf("unexpected fallbacks %+v", preview)
		}

		item.Overview = "short"
		if got := p.BuildPreview(item).Overview; got != "short" {
			t.Errorf("expected short overview unchanged, got %q", got)
		}
	})

	t.Run("Open", func(t *testing.T) {
		st := setupStore(t)
		st.Replace(models.CollectionMyList, []models.MediaItem{movie("603", "Matrix")})
		st.PutDetail(models.MediaTypeMovie, "603", models.Record{"id": 603, "title": "no credits"})
		catalog := tu.NewMockCatalog()
		catalog.AddDetail(models.MediaTypeMovie, "603", matrixDetail())
		p := NewPresenter(st, catalog, 0, "", shared.DiscardLogger())

		details, err := p.Open(ctx, models.MediaTypeMovie, "603")
		if err != nil {
			t.Fatalf("expected details, got %v", err)
		}
		if details.Trailer != "trailer" {
			t.Errorf("expected trailer key, got %q", details.Trailer)
		}
		if len(details.Cast) != 2 || details.Cast[0] != "Keanu Reeves" {
			t.Errorf("unexpected cast %v", details.Cast)
		}
		if c := details.Credits[0]; c.ID != "6384" || c.Character != "Neo" || details.Credits[1].ID != "" {
			t.Errorf("unexpected credits %+v", details.Credits)
		}
		if catalog.CallCount("detail:movie:603") != 1 {
			t.Error("expected a detail without credits to be refetched")
		}
		if stored := st.Get(models.CollectionMyList)[0]; stored.Overview != "Neo wakes up" {
			t.Errorf("expected merge into My List, got %+v", stored)
		}

		if _, err := p.Open(ctx, models.MediaTypeMovie, "603"); err != nil || catalog.CallCount("detail:movie:603") != 1 {
			t.Errorf("expected cached detail on second open, got %v", err)
		}
	})

	t.Run("Episodes", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.Results["season:1399:1"] = []models.Record{
			{"episode_number": 1, "name": "Winter Is Coming", "air_date": "2011-04-17", "runtime": 62},
			{"name": "no number"},
			{"episode_number": 2, "name": "The Kingsroad"},
		}
		p := NewPresenter(setupStore(t), catalog, 0, "", shared.DiscardLogger())

		episodes, err := p.Episodes(ctx, "1399", 1)
		if err != nil {
			t.Fatalf("expected episodes, got %v", err)
		}
		if len(episodes) != 2 || episodes[0].Label() != "1. Winter Is Coming" || episodes[1].Season != 1 {
			t.Errorf("unexpected episodes %+v", episodes)
		}

		catalog.Errors["season:1399:9"] = shared.ErrNotFound
		if _, err := p.Episodes(ctx, "1399", 9); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := p.Episodes(ctx, "", 1); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Filmography", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.Results["person:6384"] = []models.Record{
			{"id": 603, "media_type": "movie", "title": "The Matrix", "poster_path": "/m.jpg", "popularity": 50.0},
			{"id": 245891, "media_type": "movie", "title": "John Wick", "poster_path": "/jw.jpg", "popularity": 90.0},
			{"id": 1, "media_type": "movie", "title": "No Poster", "popularity": 99.0},
			{"id": 2, "media_type": "tv", "name": "Show", "poster_path": "/s.jpg", "popularity": 10.0},
		}
		p := NewPresenter(setupStore(t), catalog, 0, "", shared.DiscardLogger())

		works, err := p.Filmography(ctx, "6384")
		if err != nil {
			t.Fatalf("expected works, got %v", err)
		}
		var titles []string
		for _, w := range works {
			titles = append(titles, w.DisplayTitle())
		}
		if strings.Join(titles, ",") != "John Wick,The Matrix,Show" {
			t.Errorf("expected posters sorted by popularity, got %v", titles)
		}
	})

	t.Run("Coming Soon", func(t *testing.T) {
		now := time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)
		catalog := tu.NewMockCatalog()
		catalog.UpcomingResults = []models.Record{
			{"id": 1, "title": "Later", "release_date": "2026-06-01", "popularity": 80.0},
			{"id": 2, "title": "Released", "release_date": "2026-05-09"},
			{"id": 3, "title": "Today Quiet", "release_date": "2026-05-10", "popularity": 5.0},
			{"id": 4, "title": "Today Loud", "release_date": "2026-05-10", "popularity": 50.0},
			{"id": 5, "title": "Undated"},
		}
		catalog.AddDetail(models.MediaTypeMovie, "1", models.Record{"id": 1, "title": "Later", "overview": "Soon", "videos": map[string]any{"results": []any{
			map[string]any{"site": "YouTube", "type": "Trailer", "key": "later"},
		}}})
		catalog.AddDetail(models.MediaTypeMovie, "4", models.Record{"id": 4, "title": "Today Loud"})
		st := setupStore(t)
		p := NewPresenter(st, catalog, 0, "", shared.DiscardLogger())

		upcoming, err := p.ComingSoon(ctx, "US", now, 0)
		if err != nil {
			t.Fatalf("expected upcoming titles, got %v", err)
		}
		var titles []string
		for _, u := range upcoming {
			titles = append(titles, u.Item.DisplayTitle())
		}
		if strings.Join(titles, ",") != "Today Loud,Today Quiet,Later" {
			t.Fatalf("unexpected order %v", titles)
		}
		if upcoming[2].Trailer != "later" || upcoming[2].Item.Overview != "Soon" {
			t.Errorf("expected trailer and overview from the detail, got %+v", upcoming[2])
		}
		if upcoming[0].Trailer != "" || upcoming[1].Trailer != "" {
			t.Errorf("expected titles without videos to have no trailer, got %+v", upcoming[:2])
		}

		if limited, _ := p.ComingSoon(ctx, "US", now, 1); len(limited) != 1 {
			t.Errorf("expected limit to apply, got %d", len(limited))
		}
		if catalog.CallCount("detail:movie:1") != 1 {
			t.Errorf("expected cached detail to be reused, got %d calls", catalog.CallCount("detail:movie:1"))
		}

		catalog.Errors["upcoming"] = shared.ErrServiceUnavailable
		if _, err := p.ComingSoon(ctx, "US", now, 0); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Card States", func(t *testing.T) {
		for state, want := range map[CardState]string{CardIdle: "idle", CardLoading: "loading", CardReady: "ready", CardUnavailable: "unavailable"} {
			if state.String() != want {
				t.Errorf("expected %q, got %q", want, state.String())
			}
		}
	})
}

func TestTrailerKey(t *testing.T) {
	fallback := models.Record{"videos": map[string]any{"results": []any{
		map[string]any{"site": "YouTube", "type": "Clip", "key": "clip"},
	}}}
	if got := trailerKey(fallback); got != "clip" {
		t.Errorf("expected fallback video, got %q", got)
	}
	if got := trailerKey(models.Record{}); got != "" {
		t.Errorf("expected empty key, got %q", got)
	}
	if got := seasonCount(models.Record{"number_of_seasons": float64(4)}); got != 4 {
		t.Errorf("expected 4 seasons, got %d", got)
	}
}
