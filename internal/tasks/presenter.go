package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
)

const (
	// DefaultPreviewTimeout bounds every preview fetch.
	DefaultPreviewTimeout = 8 * time.Second
	// OverviewLimit is the preview overview length before truncation.
	OverviewLimit = 150
	// PreviewGenres is the maximum number of genres a preview lists.
	PreviewGenres = 3
	// PreviewUnavailable is shown when a preview cannot be loaded.
	PreviewUnavailable = "Preview unavailable"
)

// CardState is the preview lifecycle of a [Card].
type CardState int32

const (
	CardIdle CardState = iota
	CardLoading
	CardReady
	CardUnavailable
)

func (s CardState) String() string {
	switch s {
	case CardLoading:
		return "loading"
	case CardReady:
		return "ready"
	case CardUnavailable:
		return "unavailable"
	default:
		return "idle"
	}
}

// Preview is the formatted hover content of a card.
type Preview struct {
	Title    string
	Year     string
	Runtime  string
	Overview string
	Rating   string
	Genres   []string
	Backdrop string
	InList   bool
	Liked    bool
}

// Card is one poster in a row. Its preview is loaded at most once until a load fails.
type Card struct {
	MediaType models.MediaType
	ID        string

	loaded atomic.Bool

	mu      sync.Mutex
	state   CardState
	preview Preview
}

// NewCard creates an idle card for (mediaType, id).
func NewCard(mediaType models.MediaType, id string) *Card {
	return &Card{MediaType: mediaType, ID: id}
}

// Loaded reports whether a preview load has been claimed and not failed.
func (c *Card) Loaded() bool {
	return c.loaded.Load()
}

// State returns the current preview state.
func (c *Card) State() CardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Preview returns the loaded preview; ok is false until the card is ready.
// An unavailable card returns the fallback preview.
func (c *Card) Preview() (Preview, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview, c.state == CardReady
}

func (c *Card) set(state CardState, preview Preview) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.preview = preview
}

// CastLimit is the number of cast members a detail view lists.
const CastLimit = 5

// Details is the full modal view of a title.
type Details struct {
	Item    models.MediaItem
	Cast    []string
	Credits []models.Credit
	Trailer string
	Seasons int
}

// Presenter loads previews and details for cards, preferring data already in the store.
type Presenter struct {
	store        *store.Store
	catalog      services.Catalog
	timeout      time.Duration
	backdropBase string
	logger       *log.Logger
}

// NewPresenter creates a presenter. Non-positive timeouts select [DefaultPreviewTimeout].
func NewPresenter(st *store.Store, catalog services.Catalog, timeout time.Duration, backdropBase string, logger *log.Logger) *Presenter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if timeout <= 0 {
		timeout = DefaultPreviewTimeout
	}
	return &Presenter{
		store:        st,
		catalog:      catalog,
		timeout:      timeout,
		backdropBase: backdropBase,
		logger:       shared.WithLogger(logger, "component", "presenter"),
	}
}

// OnIntersect loads the card's preview when it scrolls into view.
func (p *Presenter) OnIntersect(ctx context.Context, card *Card) error {
	return p.Present(ctx, card)
}

// OnHover loads the card's preview when it is focused.
func (p *Presenter) OnHover(ctx context.Context, card *Card) error {
	return p.Present(ctx, card)
}

// Present loads the card's preview unless a load has already been claimed.
//
// On failure the card shows [PreviewUnavailable] and its loaded flag is cleared so a later trigger retries.
func (p *Presenter) Present(ctx context.Context, card *Card) error {
	if !card.loaded.CompareAndSwap(false, true) {
		return nil
	}
	card.set(CardLoading, Preview{})

	item, err := p.resolve(ctx, card.MediaType, card.ID)
	if err != nil {
		p.logger.Debug("preview failed", "item", models.ItemKey(card.MediaType, card.ID), "error", err)
		card.set(CardUnavailable, Preview{Overview: PreviewUnavailable})
		card.loaded.Store(false)
		return err
	}

	card.set(CardReady, p.BuildPreview(item))
	return nil
}

// BuildPreview formats item for display, flagging My List and Liked membership from the store.
func (p *Presenter) BuildPreview(item models.MediaItem) Preview {
	overview := item.Overview
	if runes := []rune(overview); len(runes) > OverviewLimit {
		overview = string(runes[:OverviewLimit]) + "..."
	}

	genres := item.Genres
	if len(genres) > PreviewGenres {
		genres = genres[:PreviewGenres]
	}

	return Preview{
		Title:    item.DisplayTitle(),
		Year:     item.Year(),
		Runtime:  item.Runtime(),
		Overview: overview,
		Rating:   item.Rating(),
		Genres:   append([]string(nil), genres...),
		Backdrop: models.ImageURL(p.backdropBase, item.BackdropPath),
		InList:   p.store.Contains(models.CollectionMyList, item.MediaType, item.ID),
		Liked:    p.store.Contains(models.CollectionLiked, item.MediaType, item.ID),
	}
}

// resolve finds the item in the store, refreshing incomplete copies, and falls back to the catalog.
func (p *Presenter) resolve(ctx context.Context, mediaType models.MediaType, id string) (models.MediaItem, error) {
	if cached, ok := p.store.FindAcrossCollections(mediaType, id); ok {
		if cached.Described() {
			return *cached, nil
		}

		detail, _, err := p.fetch(ctx, mediaType, id)
		if err != nil {
			return models.MediaItem{}, err
		}
		p.store.Merge(detail)
		return cached.Merge(detail), nil
	}

	if record, ok := p.store.Detail(mediaType, id); ok {
		if item, ok := models.NormalizeAs(record, mediaType); ok && item.Described() {
			return *item, nil
		}
	}

	detail, _, err := p.fetch(ctx, mediaType, id)
	return detail, err
}

// Open loads the full detail view of a title, including cast and trailer, and merges it into the store.
func (p *Presenter) Open(ctx context.Context, mediaType models.MediaType, id string) (*Details, error) {
	record, cached := p.store.Detail(mediaType, id)
	if !cached || !record.Has("credits") {
		var err error
		if _, record, err = p.fetch(ctx, mediaType, id); err != nil {
			return nil, err
		}
	}

	item, ok := models.NormalizeAs(record, mediaType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnidentifiable, models.ItemKey(mediaType, id))
	}
	p.store.Merge(*item)

	credits := models.CastCredits(record, CastLimit)
	cast := make([]string, len(credits))
	for i, c := range credits {
		cast[i] = c.Name
	}

	return &Details{
		Item:    *item,
		Cast:    cast,
		Credits: credits,
		Trailer: trailerKey(record),
		Seasons: seasonCount(record),
	}, nil
}

// Episodes lists one season of a show.
func (p *Presenter) Episodes(ctx context.Context, showID string, season int) ([]models.Episode, error) {
	if p.catalog == nil {
		return nil, fmt.Errorf("%w: no catalog", shared.ErrServiceUnavailable)
	}
	if showID == "" || season < 0 {
		return nil, fmt.Errorf("%w: season %d of %q", shared.ErrInvalidInput, season, showID)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	records, err := p.catalog.Season(ctx, showID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to load season %d: %w", season, err)
	}
	return models.NormalizeEpisodes(records, season), nil
}

// Filmography lists the titles a person appeared in that have a poster, most popular first.
func (p *Presenter) Filmography(ctx context.Context, personID string) ([]models.MediaItem, error) {
	if p.catalog == nil {
		return nil, fmt.Errorf("%w: no catalog", shared.ErrServiceUnavailable)
	}
	if personID == "" {
		return nil, fmt.Errorf("%w: person id is required", shared.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	records, err := p.catalog.PersonCredits(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credits of person %s: %w", personID, err)
	}

	works := FilterSearchResults(records)
	slices.SortStableFunc(works, func(a, b models.MediaItem) int {
		return cmp.Compare(b.Popularity, a.Popularity)
	})
	return works, nil
}

// fetch loads a detail record from the catalog within the presenter timeout and caches it.
func (p *Presenter) fetch(ctx context.Context, mediaType models.MediaType, id string) (models.MediaItem, models.Record, error) {
	if p.catalog == nil {
		return models.MediaItem{}, nil, fmt.Errorf("%w: no catalog", shared.ErrServiceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	record, err := p.catalog.Detail(ctx, mediaType, id)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.MediaItem{}, nil, fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return models.MediaItem{}, nil, err
	}
	p.store.PutDetail(mediaType, id, record)

	item, ok := models.NormalizeAs(record, mediaType)
	if !ok {
		return models.MediaItem{}, nil, fmt.Errorf("%w: %s", shared.ErrUnidentifiable, models.ItemKey(mediaType, id))
	}
	return *item, record, nil
}

// trailerKey returns the YouTube key of the first trailer, falling back to the first YouTube video.
func trailerKey(record models.Record) string {
	videos, _ := record["videos"].(map[string]any)
	results, _ := videos["results"].([]any)

	fallback := ""
	for _, entry := range results {
		video, ok := entry.(map[string]any)
		if !ok || video["site"] != "YouTube" {
			continue
		}
		key, _ := video["key"].(string)
		if key == "" {
			continue
		}
		if video["type"] == "Trailer" {
			return key
		}
		if fallback == "" {
			fallback = key
		}
	}
	return fallback
}

func seasonCount(record models.Record) int {
	switch n := record["number_of_seasons"].(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
