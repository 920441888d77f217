package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCollection(t *testing.T) {
	t.Run("ParseCollection", func(t *testing.T) {
		tests := []struct {
			in   string
			want Collection
		}{
			{"my_list", CollectionMyList},
			{"my-list", CollectionMyList},
			{"My List", CollectionMyList},
			{"likes", CollectionLiked},
			{"liked", CollectionLiked},
			{"trailers-watched", CollectionTrailersWatched},
			{"watched", CollectionTrailersWatched},
		}
		for _, tt := range tests {
			got, err := ParseCollection(tt.in)
			if err != nil {
				t.Errorf("ParseCollection(%q) returned error: %v", tt.in, err)
				continue
			}
			if got != tt.want {
				t.Errorf("ParseCollection(%q): expected %s, got %s", tt.in, tt.want, got)
			}
		}

		if _, err := ParseCollection("favorites"); err == nil {
			t.Error("expected unknown collection to fail")
		}
	})

	t.Run("CacheKey", func(t *testing.T) {
		if got := CollectionMyList.CacheKey("42"); got != "srv_my_list_v1_42" {
			t.Errorf("unexpected key %s", got)
		}
		if got := CollectionLiked.CacheKey("42"); got != "srv_likes_v1_42" {
			t.Errorf("unexpected key %s", got)
		}
		if got := NotificationsCacheKey("42"); got != "srv_notifications_v1_42" {
			t.Errorf("unexpected key %s", got)
		}
	})
}

func TestMediaItem(t *testing.T) {
	t.Run("FillMissing Never Overwrites", func(t *testing.T) {
		thin := MediaItem{ID: "1", MediaType: MediaTypeMovie, Title: "Mine", Overview: "kept"}
		detail := MediaItem{ID: "1", MediaType: MediaTypeMovie, Title: "Theirs", Overview: "other", PosterPath: "/p.jpg", BackdropPath: "/b.jpg"}

		got := thin.FillMissing(detail)
		if got.Title != "Mine" || got.Overview != "kept" {
			t.Errorf("existing fields overwritten: %+v", got)
		}
		if got.PosterPath != "/p.jpg" || got.BackdropPath != "/b.jpg" {
			t.Errorf("missing fields not filled: %+v", got)
		}
	})

	t.Run("FillMissing Title Or Name", func(t *testing.T) {
		thin := MediaItem{ID: "2", MediaType: MediaTypeTV}
		got := thin.FillMissing(MediaItem{Name: "Show"})
		if got.DisplayTitle() != "Show" {
			t.Errorf("expected name to be filled, got %+v", got)
		}
	})

	t.Run("Merge Keeps Identity", func(t *testing.T) {
		item := MediaItem{ID: "1", MediaType: MediaTypeMovie, Title: "Old"}
		got := item.Merge(MediaItem{ID: "999", MediaType: MediaTypeTV, Title: "New", Genres: []string{"Drama"}})
		if got.ID != "1" || got.MediaType != MediaTypeMovie {
			t.Errorf("identity changed: %+v", got)
		}
		if got.Title != "New" || len(got.Genres) != 1 {
			t.Errorf("merge did not refresh fields: %+v", got)
		}
	})

	t.Run("Formatting", func(t *testing.T) {
		item := MediaItem{ReleaseDate: "1999-03-30", RuntimeMinutes: 136}
		if item.Year() != "1999" {
			t.Errorf("expected 1999, got %s", item.Year())
		}
		if item.Runtime() != "2h 16m" {
			t.Errorf("expected 2h 16m, got %s", item.Runtime())
		}
		if item.Rating() != "NR" {
			t.Errorf("expected NR, got %s", item.Rating())
		}
		if (MediaItem{}).Runtime() != "" {
			t.Error("expected empty runtime for unknown length")
		}
	})

	t.Run("ImageURL", func(t *testing.T) {
		base := "https://image.tmdb.org/t/p/w500"
		if got := ImageURL(base, "/p.jpg"); got != base+"/p.jpg" {
			t.Errorf("unexpected url %s", got)
		}
		if got := ImageURL(base, "https://cdn.example/p.jpg"); got != "https://cdn.example/p.jpg" {
			t.Errorf("absolute url rewritten: %s", got)
		}
		if got := ImageURL(base, ""); got != "" {
			t.Errorf("expected empty url, got %s", got)
		}
	})
}

func TestListEntry(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		entry := NewListEntry("u1", CollectionMyList, "603", MediaTypeMovie, json.RawMessage(`{"title":"The Matrix"}`))
		if err := entry.Validate(); err != nil {
			t.Errorf("expected valid entry, got %v", err)
		}

		bad := NewListEntry("u1", CollectionMyList, "603", MediaType("person"), nil)
		if err := bad.Validate(); err == nil {
			t.Error("expected invalid media type to fail validation")
		}

		broken := NewListEntry("u1", CollectionMyList, "603", MediaTypeMovie, json.RawMessage(`{`))
		if err := broken.Validate(); err == nil {
			t.Error("expected invalid JSON payload to fail validation")
		}
	})

	t.Run("Record Applies Identity", func(t *testing.T) {
		entry := NewListEntry("u1", CollectionLiked, "1399", MediaTypeTV, json.RawMessage(`{"name":"GoT","id":"stale"}`))
		item, ok := Normalize(entry.Record())
		if !ok {
			t.Fatal("expected entry record to normalize")
		}
		if item.ID != "1399" || item.MediaType != MediaTypeTV || item.Name != "GoT" {
			t.Errorf("unexpected item %+v", item)
		}
	})

	t.Run("Record Drops Undecodable Data", func(t *testing.T) {
		for _, data := range []string{`[{"name":"GoT"}]`, `{"name":"GoT","overview":`, `null`} {
			entry := NewListEntry("u1", CollectionLiked, "1399", MediaTypeTV, json.RawMessage(data))
			r := entry.Record()
			if len(r) != 3 || r["id"] != "1399" || r["media_type"] != "tv" {
				t.Errorf("%s: expected identity fields only, got %v", data, r)
			}
		}
	})
}

func TestReminderDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	due := NewReminder("u1", "1", MediaTypeMovie, "A", "", "2025-06-01")
	if !due.Due(now) {
		t.Error("expected reminder on release day to be due")
	}

	future := NewReminder("u1", "2", MediaTypeMovie, "B", "", "2025-07-01")
	if future.Due(now) {
		t.Error("expected future reminder not to be due")
	}

	sent := NewReminder("u1", "3", MediaTypeMovie, "C", "", "2025-05-01")
	sent.SetNotifiedAt(&now)
	if sent.Due(now) {
		t.Error("expected notified reminder not to be due")
	}
}
