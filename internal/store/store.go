// Package store implements the media cache store: the session's in-memory named collections,
// their durable per-user copies, and the ephemeral details cache.
//
// The store is the only shared mutable state in a session. Collections are mutated through [Store.Replace],
// [Store.Update] and [Store.Merge]; readers always receive copies.
//
// Persistence is advisory. Durable encode, decode and write failures are logged and swallowed,
// and the in-memory view stays authoritative for the current session.
package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// DefaultDetailsSize bounds the details cache when no size is configured.
const DefaultDetailsSize = 512

// Durable is the persisted key/value backend, implemented by [repositories.CacheRepository].
type Durable interface {
	Read(key string) ([]byte, error)
	Write(userID, key string, value []byte) error
	PurgeExcept(userID string) (int, error)
}

// Options configures a [Store]. Zero values select defaults.
type Options struct {
	Logger      *log.Logger
	DetailsSize int
	Now         func() time.Time
}

// envelope is the durable value format: the payload plus the write time in unix milliseconds.
type envelope struct {
	Data json.RawMessage `json:"data"`
	TS   int64           `json:"ts"`
}

// Store owns the named collections and the details cache for one user session.
type Store struct {
	userID  string
	durable Durable
	logger  *log.Logger
	now     func() time.Time

	mu          sync.RWMutex
	collections map[models.Collection][]models.MediaItem
	details     *lru.Cache[string, models.Record]
}

// New creates the store for userID and purges durable entries that belong to other users.
//
// durable may be nil, in which case the store is memory-only.
func New(userID string, durable Durable, opts Options) (*Store, error) {
	if userID == "" {
		return nil, shared.ErrMissingUser
	}

	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.DetailsSize <= 0 {
		opts.DetailsSize = DefaultDetailsSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	details, err := lru.New[string, models.Record](opts.DetailsSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create details cache: %w", err)
	}

	s := &Store{
		userID:      userID,
		durable:     durable,
		logger:      shared.WithLogger(opts.Logger, "component", "store", "user", userID),
		now:         opts.Now,
		collections: make(map[models.Collection][]models.MediaItem, 3),
		details:     details,
	}

	if durable != nil {
		purged, err := durable.PurgeExcept(userID)
		if err != nil {
			s.logger.Warn("failed to purge stale cache entries", "error", err)
		} else if purged > 0 {
			s.logger.Info("purged cache entries for other users", "count", purged)
		}
	}

	return s, nil
}

// UserID returns the user the store is keyed by.
func (s *Store) UserID() string {
	return s.userID
}

// Get returns a copy of the collection, newest first.
func (s *Store) Get(c models.Collection) []models.MediaItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.collections[c])
}

// Replace overwrites the collection in memory and writes it to the durable store.
func (s *Store) Replace(c models.Collection, items []models.MediaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[c] = clone(items)
	s.persist(c.CacheKey(s.userID), s.collections[c])
}

// Update applies fn to the current collection and stores the result atomically.
// The returned slice is a copy of the stored result.
func (s *Store) Update(c models.Collection, fn func(current []models.MediaItem) []models.MediaItem) []models.MediaItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := clone(fn(clone(s.collections[c])))
	s.collections[c] = next
	s.persist(c.CacheKey(s.userID), next)
	return clone(next)
}

// Contains reports whether the collection holds the (mediaType, id) pair.
func (s *Store) Contains(c models.Collection, mediaType models.MediaType, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.collections[c], mediaType, id) >= 0
}

// ReadDurable returns the persisted copy of the collection, re-normalized.
// Missing or undecodable entries yield an empty slice.
func (s *Store) ReadDurable(c models.Collection) []models.MediaItem {
	var raws []models.Record
	if !s.readEnvelope(c.CacheKey(s.userID), &raws) {
		return []models.MediaItem{}
	}
	return models.NormalizeCollection(raws)
}

// Restore seeds every in-memory collection from its durable copy and returns the number of items loaded.
func (s *Store) Restore() int {
	total := 0
	for _, c := range models.Collections() {
		items := s.ReadDurable(c)
		s.mu.Lock()
		s.collections[c] = items
		s.mu.Unlock()
		total += len(items)
	}
	return total
}

// FindAcrossCollections scans My List, Liked and Trailers Watched in that order; the first match wins.
func (s *Store) FindAcrossCollections(mediaType models.MediaType, id string) (*models.MediaItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range models.Collections() {
		items := s.collections[c]
		if i := indexOf(items, mediaType, id); i >= 0 {
			found := items[i]
			return &found, true
		}
	}
	return nil, false
}

// Merge refreshes every stored copy of detail's identity with its fields and persists the touched collections.
// Returns the collections that held the item.
func (s *Store) Merge(detail models.MediaItem) []models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var touched []models.Collection
	for _, c := range models.Collections() {
		items := s.collections[c]
		i := indexOf(items, detail.MediaType, detail.ID)
		if i < 0 {
			continue
		}
		items[i] = items[i].Merge(detail)
		touched = append(touched, c)
		s.persist(c.CacheKey(s.userID), items)
	}
	return touched
}

// Detail returns the cached full detail payload for (mediaType, id).
func (s *Store) Detail(mediaType models.MediaType, id string) (models.Record, bool) {
	return s.details.Get(models.ItemKey(mediaType, id))
}

// PutDetail stores a full detail payload. The details cache is never persisted.
func (s *Store) PutDetail(mediaType models.MediaType, id string, record models.Record) {
	if record == nil {
		return
	}
	s.details.Add(models.ItemKey(mediaType, id), record)
}

// DetailCount returns the number of cached detail payloads.
func (s *Store) DetailCount() int {
	return s.details.Len()
}

// ReadNotifications returns the cached notification feed; missing or corrupt data yields an empty slice.
func (s *Store) ReadNotifications() []models.Notification {
	var list []models.Notification
	if !s.readEnvelope(models.NotificationsCacheKey(s.userID), &list) {
		return []models.Notification{}
	}
	return list
}

// WriteNotifications replaces the cached notification feed.
func (s *Store) WriteNotifications(list []models.Notification) {
	if list == nil {
		list = []models.Notification{}
	}
	s.persist(models.NotificationsCacheKey(s.userID), list)
}

// persist encodes value into an envelope and writes it. Errors are logged only.
func (s *Store) persist(key string, value any) {
	if s.durable == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}

	raw, err := json.Marshal(envelope{Data: data, TS: s.now().UnixMilli()})
	if err != nil {
		s.logger.Warn("failed to encode cache envelope", "key", key, "error", err)
		return
	}

	if err := s.durable.Write(s.userID, key, raw); err != nil {
		s.logger.Warn("failed to write cache entry", "key", key, "error", err)
	}
}

// readEnvelope decodes the durable entry at key into dst and reports whether it succeeded.
func (s *Store) readEnvelope(key string, dst any) bool {
	if s.durable == nil {
		return false
	}

	raw, err := s.durable.Read(key)
	if err != nil {
		s.logger.Debug("cache miss", "key", key, "error", err)
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return false
	}

	if err := json.Unmarshal(env.Data, dst); err != nil {
		s.logger.Warn("discarding undecodable cache payload", "key", key, "error", err)
		return false
	}
	return true
}

func indexOf(items []models.MediaItem, mediaType models.MediaType, id string) int {
	for i, item := range items {
		if item.Matches(mediaType, id) {
			return i
		}
	}
	return -1
}

func clone(items []models.MediaItem) []models.MediaItem {
	out := make([]models.MediaItem, len(items))
	copy(out, items)
	return out
}
