package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/shared"
)

func setupDurable(t *testing.T) *repositories.CacheRepository {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return repositories.NewCacheRepository(db)
}

func newStore(t *testing.T, userID string, durable Durable) *Store {
	t.Helper()

	s, err := New(userID, durable, Options{Logger: shared.DiscardLogger()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

// failingDurable fails every operation.
type failingDurable struct{ writes int }

func (f *failingDurable) Read(string) ([]byte, error) { return nil, fmt.Errorf("disk on fire") }
func (f *failingDurable) Write(string, string, []byte) error {
	f.writes++
	return fmt.Errorf("disk on fire")
}
func (f *failingDurable) PurgeExcept(string) (int, error) { return 0, fmt.Errorf("disk on fire") }

func matrix() models.MediaItem {
	return models.MediaItem{ID: "603", MediaType: models.MediaTypeMovie, Title: "The Matrix"}
}

func TestNew(t *testing.T) {
	t.Run("Requires User", func(t *testing.T) {
		if _, err := New("", nil, Options{}); !errors.Is(err, shared.ErrMissingUser) {
			t.Errorf("expected ErrMissingUser, got %v", err)
		}
	})

	t.Run("Purges Other Users", func(t *testing.T) {
		durable := setupDurable(t)
		_ = durable.Write("old", models.CollectionMyList.CacheKey("old"), []byte(`{"data":[],"ts":1}`))
		_ = durable.Write("current", models.CollectionMyList.CacheKey("current"), []byte(`{"data":[],"ts":1}`))

		newStore(t, "current", durable)

		if _, err := durable.Read(models.CollectionMyList.CacheKey("old")); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected stale user entry to be purged, got %v", err)
		}
		if _, err := durable.Read(models.CollectionMyList.CacheKey("current")); err != nil {
			t.Errorf("expected current user entry to survive, got %v", err)
		}
	})

	t.Run("Purge Failure Is Advisory", func(t *testing.T) {
		if _, err := New("u1", &failingDurable{}, Options{Logger: shared.DiscardLogger()}); err != nil {
			t.Errorf("expected purge failure to be swallowed, got %v", err)
		}
	})
}

func TestReplaceAndGet(t *testing.T) {
	t.Run("Writes Durable Copy With Timestamp", func(t *testing.T) {
		durable := setupDurable(t)
		fixed := time.UnixMilli(1700000000000)
		s, err := New("u1", durable, Options{Logger: shared.DiscardLogger(), Now: func() time.Time { return fixed }})
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		s.Replace(models.CollectionMyList, []models.MediaItem{matrix()})

		raw, err := durable.Read("srv_my_list_v1_u1")
		if err != nil {
			t.Fatalf("expected durable entry: %v", err)
		}

		var env struct {
			Data []models.MediaItem `json:"data"`
			TS   int64              `json:"ts"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
		if env.TS != fixed.UnixMilli() {
			t.Errorf("expected ts %d, got %d", fixed.UnixMilli(), env.TS)
		}
		if len(env.Data) != 1 || env.Data[0].ID != "603" {
			t.Errorf("unexpected durable data %+v", env.Data)
		}
	})

	t.Run("Get Returns A Copy", func(t *testing.T) {
		s := newStore(t, "u1", nil)
		s.Replace(models.CollectionLiked, []models.MediaItem{matrix()})

		got := s.Get(models.CollectionLiked)
		got[0].Title = "mutated"

		if s.Get(models.CollectionLiked)[0].Title != "The Matrix" {
			t.Error("mutating a returned slice must not change the store")
		}
	})

	t.Run("Empty Collection", func(t *testing.T) {
		s := newStore(t, "u1", nil)
		if got := s.Get(models.CollectionTrailersWatched); got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("Write Failure Is Swallowed", func(t *testing.T) {
		durable := &failingDurable{}
		s := newStore(t, "u1", durable)

		s.Replace(models.CollectionMyList, []models.MediaItem{matrix()})

		if durable.writes != 1 {
			t.Errorf("expected one write attempt, got %d", durable.writes)
		}
		if len(s.Get(models.CollectionMyList)) != 1 {
			t.Error("in-memory collection must stay authoritative after a failed write")
		}
	})
}

func TestUpdate(t *testing.T) {
	s := newStore(t, "u1", setupDurable(t))
	s.Replace(models.CollectionMyList, []models.MediaItem{matrix()})

	got := s.Update(models.CollectionMyList, func(current []models.MediaItem) []models.MediaItem {
		return append([]models.MediaItem{{ID: "1", MediaType: models.MediaTypeTV, Name: "Show"}}, current...)
	})

	if len(got) != 2 || got[0].ID != "1" {
		t.Errorf("unexpected update result %+v", got)
	}
	if durable := s.ReadDurable(models.CollectionMyList); len(durable) != 2 {
		t.Errorf("expected update to be persisted, got %d items", len(durable))
	}
}

func TestReadDurable(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		durable := setupDurable(t)
		first := newStore(t, "u1", durable)
		first.Replace(models.CollectionMyList, []models.MediaItem{matrix()})

		second := newStore(t, "u1", durable)
		items := second.ReadDurable(models.CollectionMyList)
		if len(items) != 1 || items[0].Title != "The Matrix" {
			t.Errorf("unexpected durable items %+v", items)
		}

		if n := second.Restore(); n != 1 {
			t.Errorf("expected restore to load 1 item, got %d", n)
		}
		if len(second.Get(models.CollectionMyList)) != 1 {
			t.Error("expected restored in-memory collection")
		}
	})

	tc := []struct {
		name  string
		value string
	}{
		{name: "not json", value: "{{{"},
		{name: "wrong shape", value: `{"data":{"id":1},"ts":1}`},
		{name: "missing data", value: `{"ts":1}`},
		{name: "bare array", value: `[{"id":"1","title":"A"}]`},
	}

	for _, tt := range tc {
		t.Run("Corrupt "+tt.name, func(t *testing.T) {
			durable := setupDurable(t)
			_ = durable.Write("u1", models.CollectionLiked.CacheKey("u1"), []byte(tt.value))

			items := newStore(t, "u1", durable).ReadDurable(models.CollectionLiked)
			if items == nil || len(items) != 0 {
				t.Errorf("expected empty slice for corrupt entry, got %#v", items)
			}
		})
	}

	t.Run("Missing", func(t *testing.T) {
		items := newStore(t, "u1", setupDurable(t)).ReadDurable(models.CollectionMyList)
		if len(items) != 0 {
			t.Errorf("expected empty slice, got %+v", items)
		}
	})

	t.Run("Read Failure", func(t *testing.T) {
		items := newStore(t, "u1", &failingDurable{}).ReadDurable(models.CollectionMyList)
		if len(items) != 0 {
			t.Errorf("expected empty slice, got %+v", items)
		}
	})

	t.Run("Drops Unidentifiable Entries", func(t *testing.T) {
		durable := setupDurable(t)
		value := `{"data":[{"id":"1","title":"A"},{"id":"2"},{"id":"1","title":"dup"}],"ts":1}`
		_ = durable.Write("u1", models.CollectionMyList.CacheKey("u1"), []byte(value))

		items := newStore(t, "u1", durable).ReadDurable(models.CollectionMyList)
		if len(items) != 1 || items[0].Title != "A" {
			t.Errorf("expected a single identifiable item, got %+v", items)
		}
	})
}

func TestFindAcrossCollections(t *testing.T) {
	s := newStore(t, "u1", nil)

	liked := matrix()
	liked.Overview = "from liked"
	watched := matrix()
	watched.Overview = "from watched"

	s.Replace(models.CollectionTrailersWatched, []models.MediaItem{watched})
	s.Replace(models.CollectionLiked, []models.MediaItem{liked})

	found, ok := s.FindAcrossCollections(models.MediaTypeMovie, "603")
	if !ok {
		t.Fatal("expected item to be found")
	}
	if found.Overview != "from liked" {
		t.Errorf("expected Liked to be searched before Trailers Watched, got %q", found.Overview)
	}

	if _, ok := s.FindAcrossCollections(models.MediaTypeTV, "603"); ok {
		t.Error("media type must be part of the identity")
	}
}

func TestMerge(t *testing.T) {
	durable := setupDurable(t)
	s := newStore(t, "u1", durable)
	s.Replace(models.CollectionMyList, []models.MediaItem{matrix()})
	s.Replace(models.CollectionLiked, []models.MediaItem{matrix()})

	touched := s.Merge(models.MediaItem{
		ID: "603", MediaType: models.MediaTypeMovie, Overview: "Neo wakes up", Genres: []string{"Action"}, BackdropPath: "/b.jpg",
	})

	if len(touched) != 2 {
		t.Errorf("expected both collections to be touched, got %v", touched)
	}
	for _, c := range []models.Collection{models.CollectionMyList, models.CollectionLiked} {
		item := s.Get(c)[0]
		if !item.Described() || item.Title != "The Matrix" {
			t.Errorf("%s: expected merged item, got %+v", c, item)
		}
	}
	if durable := s.ReadDurable(models.CollectionLiked); durable[0].Overview != "Neo wakes up" {
		t.Error("expected merge to be persisted")
	}
}

func TestDetails(t *testing.T) {
	s, err := New("u1", nil, Options{Logger: shared.DiscardLogger(), DetailsSize: 2})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	s.PutDetail(models.MediaTypeMovie, "1", models.Record{"id": "1"})
	s.PutDetail(models.MediaTypeMovie, "2", models.Record{"id": "2"})
	s.PutDetail(models.MediaTypeMovie, "3", models.Record{"id": "3"})
	s.PutDetail(models.MediaTypeMovie, "4", nil)

	if s.DetailCount() != 2 {
		t.Errorf("expected bounded cache of 2, got %d", s.DetailCount())
	}
	if _, ok := s.Detail(models.MediaTypeMovie, "1"); ok {
		t.Error("expected oldest detail to be evicted")
	}
	if rec, ok := s.Detail(models.MediaTypeMovie, "3"); !ok || rec["id"] != "3" {
		t.Errorf("expected cached detail, got %v %v", rec, ok)
	}
	if _, ok := s.Detail(models.MediaTypeTV, "3"); ok {
		t.Error("details must be keyed by media type and id")
	}
}

func TestNotificationsCache(t *testing.T) {
	durable := setupDurable(t)
	s := newStore(t, "u1", durable)

	if got := s.ReadNotifications(); len(got) != 0 {
		t.Errorf("expected empty feed, got %+v", got)
	}

	s.WriteNotifications([]models.Notification{{ID: "n1", Title: "Coming soon"}})

	got := newStore(t, "u1", durable).ReadNotifications()
	if len(got) != 1 || got[0].ID != "n1" {
		t.Errorf("unexpected cached feed %+v", got)
	}

	_ = durable.Write("u1", models.NotificationsCacheKey("u1"), []byte("garbage"))
	if got := s.ReadNotifications(); len(got) != 0 {
		t.Errorf("expected corrupt feed to read as empty, got %+v", got)
	}
}
