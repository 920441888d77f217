package tasks

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
)

// DefaultDebounce is the quiet period before a search query is sent.
const DefaultDebounce = 500 * time.Millisecond

// SearchResult is delivered once per query that is still the newest when its response arrives.
// No newer input can be registered while a result is being delivered.
type SearchResult struct {
	Seq   uint64
	Query string
	Items []models.MediaItem
	Err   error
}

// Searcher debounces catalog searches and drops out-of-order responses.
type Searcher struct {
	catalog  services.Catalog
	debounce time.Duration
	deliver  func(SearchResult)
	logger   *log.Logger

	seq   atomic.Uint64
	mu    sync.Mutex
	timer *time.Timer
}

// NewSearcher creates a searcher that hands results to deliver. Non-positive debounce selects [DefaultDebounce].
// deliver runs with the searcher locked and must not call back into it.
func NewSearcher(catalog services.Catalog, debounce time.Duration, deliver func(SearchResult), logger *log.Logger) *Searcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if deliver == nil {
		deliver = func(SearchResult) {}
	}
	return &Searcher{
		catalog:  catalog,
		debounce: debounce,
		deliver:  deliver,
		logger:   shared.WithLogger(logger, "component", "search"),
	}
}

// Input registers a keystroke. Every input takes a new sequence number, which invalidates older queries.
// An empty query delivers an empty result immediately; anything else is searched after the debounce period.
func (s *Searcher) Input(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.seq.Add(1)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if query == "" {
		s.deliver(SearchResult{Seq: seq, Items: []models.MediaItem{}})
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.run(ctx, seq, query) })
}

// Latest returns the newest sequence number handed out.
func (s *Searcher) Latest() uint64 {
	return s.seq.Load()
}

// Stop cancels a pending query and invalidates any in flight.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.Add(1)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Searcher) run(ctx context.Context, seq uint64, query string) {
	if s.seq.Load() != seq {
		return
	}

	items, err := s.Search(ctx, query)

	// Sequence numbers only advance under mu, so the check holds until deliver returns.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq.Load() != seq {
		s.logger.Debug("discarding stale search results", "query", query, "seq", seq)
		return
	}
	s.deliver(SearchResult{Seq: seq, Query: query, Items: items, Err: err})
}

// Search queries the catalog immediately, keeping movies and shows that have a poster.
func (s *Searcher) Search(ctx context.Context, query string) ([]models.MediaItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.MediaItem{}, nil
	}

	records, err := s.catalog.Search(ctx, query)
	if err != nil {
		return []models.MediaItem{}, err
	}
	return FilterSearchResults(records), nil
}

// FilterSearchResults keeps records explicitly tagged movie or tv that carry a poster.
func FilterSearchResults(records []models.Record) []models.MediaItem {
	kept := make([]models.Record, 0, len(records))
	for _, r := range records {
		if !models.MediaType(r.String("media_type")).Valid() || r.String("poster_path") == "" {
			continue
		}
		kept = append(kept, r)
	}
	return models.NormalizeCollection(kept)
}
