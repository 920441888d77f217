package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

const (
	defaultCatalogURL  string  = "https://api.themoviedb.org/3"
	defaultCatalogRate float64 = 20
)

// CatalogService reads titles from a TMDB-compatible API.
type CatalogService struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewCatalogService creates a catalog client from cfg. A nil client uses [http.DefaultClient].
func NewCatalogService(cfg shared.CatalogConfig, client *http.Client, logger *log.Logger) *CatalogService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCatalogURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultCatalogRate
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &CatalogService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		logger:     shared.WithLogger(logger, "component", "catalog"),
	}
}

// pagedResults is the envelope of every list endpoint.
type pagedResults struct {
	Page    int             `json:"page"`
	Results []models.Record `json:"results"`
}

// Detail fetches a movie or show with credits, videos and its content rating block appended.
func (c *CatalogService) Detail(ctx context.Context, mediaType models.MediaType, id string) (models.Record, error) {
	if !mediaType.Valid() || id == "" {
		return nil, fmt.Errorf("%w: detail requires a media type and id", shared.ErrInvalidInput)
	}

	ratings := "release_dates"
	if mediaType == models.MediaTypeTV {
		ratings = "content_ratings"
	}

	params := url.Values{}
	params.Set("append_to_response", ratings+",credits,videos")

	var record models.Record
	if err := c.get(ctx, fmt.Sprintf("/%s/%s", mediaType, url.PathEscape(id)), params, &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: empty detail for %s", shared.ErrNotFound, models.ItemKey(mediaType, id))
	}
	if _, ok := record["media_type"]; !ok {
		record["media_type"] = string(mediaType)
	}
	return record, nil
}

// Search runs /search/multi. Results keep their media_type tag, including people.
func (c *CatalogService) Search(ctx context.Context, query string) ([]models.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	return c.list(ctx, "/search/multi", params, "")
}

// Trending returns /trending/{type}/day, tagging each result with mediaType.
// [models.MediaTypeAll] mixes movies and shows, each carrying its own media_type.
func (c *CatalogService) Trending(ctx context.Context, mediaType models.MediaType, region string) ([]models.Record, error) {
	params := url.Values{}
	if region != "" {
		params.Set("region", region)
	}
	return c.list(ctx, fmt.Sprintf("/trending/%s/day", mediaType), params, mediaType)
}

// Discover returns /discover/{type} filtered by params, tagging each result with mediaType.
func (c *CatalogService) Discover(ctx context.Context, mediaType models.MediaType, params url.Values) ([]models.Record, error) {
	if params == nil {
		params = url.Values{}
	}
	return c.list(ctx, fmt.Sprintf("/discover/%s", mediaType), params, mediaType)
}

// Upcoming returns /movie/upcoming for region.
func (c *CatalogService) Upcoming(ctx context.Context, region string) ([]models.Record, error) {
	params := url.Values{}
	if region != "" {
		params.Set("region", region)
	}
	return c.list(ctx, "/movie/upcoming", params, models.MediaTypeMovie)
}

// PersonCredits returns the combined movie and tv cast credits of a person.
func (c *CatalogService) PersonCredits(ctx context.Context, personID string) ([]models.Record, error) {
	var body struct {
		Cast []models.Record `json:"cast"`
	}
	if err := c.get(ctx, fmt.Sprintf("/person/%s/combined_credits", url.PathEscape(personID)), nil, &body); err != nil {
		return nil, err
	}
	return body.Cast, nil
}

// Season returns the episodes of one season of a show.
func (c *CatalogService) Season(ctx context.Context, showID string, season int) ([]models.Record, error) {
	var body struct {
		Episodes []models.Record `json:"episodes"`
	}
	if err := c.get(ctx, fmt.Sprintf("/tv/%s/season/%d", url.PathEscape(showID), season), nil, &body); err != nil {
		return nil, err
	}
	return body.Episodes, nil
}

func (c *CatalogService) list(ctx context.Context, path string, params url.Values, tag models.MediaType) ([]models.Record, error) {
	var page pagedResults
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, err
	}

	results := make([]models.Record, 0, len(page.Results))
	for _, r := range page.Results {
		if r == nil {
			continue
		}
		if tag.Valid() && !r.Has("media_type") {
			r["media_type"] = string(tag)
		}
		results = append(results, r)
	}
	return results, nil
}

// get performs a throttled GET and decodes a 2xx body into result.
func (c *CatalogService) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}
	if c.language != "" && query.Get("language") == "" {
		query.Set("language", c.language)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		c.logger.Debug("catalog request failed", "path", path, "status", resp.StatusCode)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError maps a non-2xx response to a sentinel error carrying the body's status_message when present.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body struct {
		StatusMessage string `json:"status_message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	message := body.StatusMessage
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = shared.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		sentinel = shared.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		sentinel = shared.ErrRateLimited
	case resp.StatusCode >= 500:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, message)
}
