package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
)

const (
	// RankedLimit is the number of items a ranked row keeps.
	RankedLimit = 10
	// HeroPool is how many eligible trending items the hero is picked from.
	HeroPool = 10
	// DefaultCategories is how many custom categories the landing page shows.
	DefaultCategories = 8
)

// QueryKind selects the catalog endpoint a row is built from.
type QueryKind int

const (
	QueryTrending QueryKind = iota
	QueryDiscover
)

// Query describes the catalog request behind a row.
type Query struct {
	Kind   QueryKind
	Region string
	Params url.Values
}

// TrendingQuery returns today's trending titles, optionally for region.
func TrendingQuery(region string) Query {
	return Query{Kind: QueryTrending, Region: region}
}

// DiscoverQuery parses raw discover parameters such as "with_genres=28&sort_by=popularity.desc".
func DiscoverQuery(raw string) Query {
	params, err := url.ParseQuery(raw)
	if err != nil {
		params = url.Values{}
	}
	return Query{Kind: QueryDiscover, Params: params}
}

// RowDefinition is one candidate landing row.
type RowDefinition struct {
	Title     string
	MediaType models.MediaType
	Ranked    bool
	Query     Query
}

// category is a custom discover row before its title is finalized.
type category struct {
	name      string
	mediaType models.MediaType
	params    string
}

// Categories returns the full custom category table. year scopes the documentaries row.
func Categories(year int) []RowDefinition {
	table := []category{
		{"Action", models.MediaTypeMovie, "with_genres=28&sort_by=popularity.desc"},
		{"Comedy", models.MediaTypeMovie, "with_genres=35&sort_by=popularity.desc"},
		{"Horror", models.MediaTypeMovie, "with_genres=27&sort_by=popularity.desc"},
		{"Animation", models.MediaTypeMovie, "with_genres=16&sort_by=popularity.desc"},
		{"Science Fiction", models.MediaTypeMovie, "with_genres=878&sort_by=popularity.desc"},
		{"Blockbuster Action Movies", models.MediaTypeMovie, "with_genres=28&sort_by=revenue.desc"},
		{"Action with a Side of Romance", models.MediaTypeMovie, "with_genres=28,10749&sort_by=popularity.desc"},
		{"Thrillers with a Side of Action", models.MediaTypeMovie, "with_genres=53,28&sort_by=popularity.desc"},
		{"Hollywood Action Movies", models.MediaTypeMovie, "with_origin_country=US&with_genres=28&sort_by=popularity.desc"},
		{"Blockbuster Exciting Movies", models.MediaTypeMovie, "sort_by=revenue.desc"},
		{"Crowd Pleasers Movies", models.MediaTypeMovie, "sort_by=vote_average.desc&vote_count.gte=5000"},
		{"Trending Documentaries", models.MediaTypeMovie, "with_genres=99&sort_by=popularity.desc&primary_release_year=" + strconv.Itoa(year)},

		{"Action & Adventure", models.MediaTypeTV, "with_genres=10759&sort_by=popularity.desc"},
		{"Comedy", models.MediaTypeTV, "with_genres=35&sort_by=popularity.desc"},
		{"Drama", models.MediaTypeTV, "with_genres=18&sort_by=popularity.desc"},
		{"Sci-Fi & Fantasy", models.MediaTypeTV, "with_genres=10765&sort_by=popularity.desc"},
		{"Emmy-Winning TV Shows", models.MediaTypeTV, "with_keywords=1846&sort_by=popularity.desc"},
		{"Award-Winning TV Shows", models.MediaTypeTV, "with_keywords=155798&sort_by=popularity.desc"},
		{"Crowd Pleasers Tv Shows", models.MediaTypeTV, "sort_by=vote_average.desc&vote_count.gte=2000"},
	}

	defs := make([]RowDefinition, len(table))
	for i, c := range table {
		defs[i] = RowDefinition{
			Title:     CategoryTitle(c.name, c.mediaType),
			MediaType: c.mediaType,
			Query:     DiscoverQuery(c.params),
		}
	}
	return defs
}

// CategoryTitle appends the media label to name unless the name already reads as a complete row title.
func CategoryTitle(name string, mediaType models.MediaType) string {
	for _, word := range []string{"Movies", "Shows", "Dramas", "Pleasers", "Weekend"} {
		if strings.Contains(name, word) {
			return name
		}
	}
	return name + " " + mediaType.Label()
}

// CountryName returns the display name used in ranked row titles.
func CountryName(region string) string {
	switch strings.ToUpper(region) {
	case "", "US":
		return "the U.S."
	case "GB", "UK":
		return "the U.K."
	default:
		return strings.ToUpper(region)
	}
}

// DefaultRows returns the two ranked trending rows followed by the first n custom categories.
func DefaultRows(region string, n, year int) []RowDefinition {
	if region == "" {
		region = "US"
	}
	country := CountryName(region)

	defs := []RowDefinition{
		{
			Title:     fmt.Sprintf("Top 10 Movies in %s Today", country),
			MediaType: models.MediaTypeMovie,
			Ranked:    true,
			Query:     TrendingQuery(region),
		},
		{
			Title:     fmt.Sprintf("Top 10 TV Shows in %s Today", country),
			MediaType: models.MediaTypeTV,
			Ranked:    true,
			Query:     TrendingQuery(region),
		},
	}

	categories := Categories(year)
	if n < 0 || n > len(categories) {
		n = len(categories)
	}
	return append(defs, categories[:n]...)
}

// RowComposer fetches and arranges landing rows.
type RowComposer struct {
	catalog     services.Catalog
	logger      *log.Logger
	concurrency int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRowComposer creates a composer. A nil rnd uses a randomly seeded source.
func NewRowComposer(catalog services.Catalog, concurrency int, rnd *rand.Rand, logger *log.Logger) *RowComposer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RowComposer{
		catalog:     catalog,
		logger:      shared.WithLogger(logger, "component", "rows"),
		concurrency: concurrency,
		rnd:         rnd,
	}
}

// ComposeRows runs every definition's query concurrently, drops failed or empty rows,
// truncates ranked rows, shuffles the survivors and breaks up runs of three same-type rows.
func (r *RowComposer) ComposeRows(ctx context.Context, defs []RowDefinition) []models.ContentRow {
	return r.ComposeRowsProgress(ctx, defs, nil)
}

// ComposeRowsProgress is [RowComposer.ComposeRows] with a progress update per finished row.
func (r *RowComposer) ComposeRowsProgress(ctx context.Context, defs []RowDefinition, progress chan<- ProgressUpdate) []models.ContentRow {
	results := make([]*models.ContentRow, len(defs))

	var (
		mu   sync.Mutex
		done int
	)
	p := pool.New().WithMaxGoroutines(r.concurrency)
	for i, def := range defs {
		p.Go(func() {
			row, err := r.fetchRow(ctx, def)
			if err != nil {
				r.logger.Warn("row query failed", "row", def.Title, "error", err)
			}
			results[i] = row

			mu.Lock()
			done++
			count := 0
			if row != nil {
				count = len(row.Items)
			}
			sendProgress(progress, fetchRowUpdate(done, len(defs), def.Title, count))
			mu.Unlock()
		})
	}
	p.Wait()

	rows := make([]models.ContentRow, 0, len(results))
	for _, row := range results {
		if row == nil || len(row.Items) == 0 {
			continue
		}
		rows = append(rows, *row)
	}

	r.mu.Lock()
	Shuffle(rows, r.rnd)
	r.mu.Unlock()

	BalanceTypes(rows)
	return rows
}

func (r *RowComposer) fetchRow(ctx context.Context, def RowDefinition) (*models.ContentRow, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: no catalog", shared.ErrServiceUnavailable)
	}

	var (
		records []models.Record
		err     error
	)
	switch def.Query.Kind {
	case QueryTrending:
		records, err = r.catalog.Trending(ctx, def.MediaType, def.Query.Region)
	case QueryDiscover:
		records, err = r.catalog.Discover(ctx, def.MediaType, def.Query.Params)
	default:
		err = fmt.Errorf("%w: unknown query kind %d", shared.ErrInvalidInput, def.Query.Kind)
	}
	if err != nil {
		return nil, err
	}

	items := make([]models.MediaItem, 0, len(records))
	for _, record := range records {
		if item, ok := models.NormalizeAs(record, def.MediaType); ok {
			items = append(items, *item)
		}
	}
	items = models.Dedupe(items)

	if def.Ranked && len(items) > RankedLimit {
		items = items[:RankedLimit]
	}

	return &models.ContentRow{
		Title:     def.Title,
		MediaType: def.MediaType,
		Ranked:    def.Ranked,
		Items:     items,
	}, nil
}

// Hero fetches today's trending titles of mediaType and picks the featured one.
func (r *RowComposer) Hero(ctx context.Context, mediaType models.MediaType) (*models.MediaItem, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: no catalog", shared.ErrServiceUnavailable)
	}
	if mediaType == "" {
		mediaType = models.MediaTypeAll
	}

	records, err := r.catalog.Trending(ctx, mediaType, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load trending titles: %w", err)
	}

	var items []models.MediaItem
	if mediaType.Valid() {
		for _, record := range records {
			if item, ok := models.NormalizeAs(record, mediaType); ok {
				items = append(items, *item)
			}
		}
	} else {
		items = models.NormalizeCollection(records)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	hero, ok := PickHero(items, r.rnd)
	if !ok {
		return nil, fmt.Errorf("%w: no trending title has artwork", shared.ErrNotFound)
	}
	return hero, nil
}

// Shuffle permutes s in place with the Fisher-Yates algorithm.
func Shuffle[T any](s []T, rnd *rand.Rand) {
	for i := len(s) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// BalanceTypes makes a single forward pass over rows: whenever a row is the third consecutive row
// of its media type, it is swapped with the first later row of a different type, if any.
func BalanceTypes(rows []models.ContentRow) {
	for i := 2; i < len(rows); i++ {
		mt := rows[i].MediaType
		if mt != rows[i-1].MediaType || mt != rows[i-2].MediaType {
			continue
		}
		for j := i + 1; j < len(rows); j++ {
			if rows[j].MediaType != mt {
				rows[i], rows[j] = rows[j], rows[i]
				break
			}
		}
	}
}

// PickHero picks a random item among the first [HeroPool] items that have both a backdrop and a poster.
func PickHero(items []models.MediaItem, rnd *rand.Rand) (*models.MediaItem, bool) {
	eligible := make([]models.MediaItem, 0, HeroPool)
	for _, item := range items {
		if item.BackdropPath == "" || item.PosterPath == "" {
			continue
		}
		eligible = append(eligible, item)
		if len(eligible) == HeroPool {
			break
		}
	}
	if len(eligible) == 0 {
		return nil, false
	}

	hero := eligible[rnd.IntN(len(eligible))]
	return &hero, true
}
