// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// MockCatalog is a test double for services.Catalog
type MockCatalog struct {
	mu sync.Mutex

	Details         map[string]models.Record
	Results         map[string][]models.Record
	Errors          map[string]error
	UpcomingResults []models.Record
	Calls           map[string]int

	// Block, when set, is waited on (or ctx cancellation) before every Detail call returns.
	Block chan struct{}
}

// NewMockCatalog creates an empty catalog double.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Details: map[string]models.Record{},
		Results: map[string][]models.Record{},
		Errors:  map[string]error{},
		Calls:   map[string]int{},
	}
}

// AddDetail registers a detail record for (mediaType, id).
func (m *MockCatalog) AddDetail(mediaType models.MediaType, id string, record models.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Details[models.ItemKey(mediaType, id)] = record
}

// CallCount returns the number of calls recorded under key, e.g. "detail:movie:1" or "trending:tv".
func (m *MockCatalog) CallCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[key]
}

func (m *MockCatalog) record(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[key]++
	return m.Errors[key]
}

func (m *MockCatalog) Detail(ctx context.Context, mediaType models.MediaType, id string) (models.Record, error) {
	key := "detail:" + models.ItemKey(mediaType, id)
	if err := m.record(key); err != nil {
		return nil, err
	}
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Details[models.ItemKey(mediaType, id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, key)
	}
	return rec.With("media_type", string(mediaType)), nil
}

func (m *MockCatalog) Search(ctx context.Context, query string) ([]models.Record, error) {
	return m.results("search:" + query)
}

func (m *MockCatalog) Trending(ctx context.Context, mediaType models.MediaType, region string) ([]models.Record, error) {
	return m.results("trending:" + string(mediaType))
}

func (m *MockCatalog) Discover(ctx context.Context, mediaType models.MediaType, params url.Values) ([]models.Record, error) {
	return m.results("discover:" + string(mediaType) + ":" + params.Get("with_genres"))
}

func (m *MockCatalog) Upcoming(ctx context.Context, region string) ([]models.Record, error) {
	if err := m.record("upcoming"); err != nil {
		return nil, err
	}
	return m.UpcomingResults, nil
}

func (m *MockCatalog) PersonCredits(ctx context.Context, personID string) ([]models.Record, error) {
	return m.results("person:" + personID)
}

func (m *MockCatalog) Season(ctx context.Context, showID string, season int) ([]models.Record, error) {
	return m.results(fmt.Sprintf("season:%s:%d", showID, season))
}

func (m *MockCatalog) results(key string) ([]models.Record, error) {
	if err := m.record(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Results[key], nil
}

// MockBackend is a test double for services.Backend that keeps collections in memory.
type MockBackend struct {
	mu sync.Mutex

	Lists        map[models.Collection][]models.Record
	Feed         []models.Notification
	Errors       map[string]error
	Calls        []string
	Reminders    []models.MediaItem
	CatalogAdded int
}

// NewMockBackend creates an empty backend double.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Lists:  map[models.Collection][]models.Record{},
		Errors: map[string]error{},
	}
}

// Called returns a copy of the recorded calls, e.g. "add:my_list:movie:1".
func (m *MockBackend) Called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *MockBackend) record(call, errKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
	return m.Errors[errKey]
}

func (m *MockBackend) List(ctx context.Context, c models.Collection) ([]models.Record, error) {
	if err := m.record("list:"+string(c), "list:"+string(c)); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Record(nil), m.Lists[c]...), nil
}

func (m *MockBackend) Add(ctx context.Context, c models.Collection, item models.MediaItem) error {
	if err := m.record("add:"+string(c)+":"+item.Key(), "add"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists[c] = append([]models.Record{item.Record()}, m.Lists[c]...)
	return nil
}

func (m *MockBackend) Remove(ctx context.Context, c models.Collection, mediaType models.MediaType, id string) error {
	if err := m.record("remove:"+string(c)+":"+models.ItemKey(mediaType, id), "remove"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Lists[c][:0]
	for _, r := range m.Lists[c] {
		if item, ok := models.Normalize(r); ok && item.Matches(mediaType, id) {
			continue
		}
		kept = append(kept, r)
	}
	m.Lists[c] = kept
	return nil
}

func (m *MockBackend) Notifications(ctx context.Context, limit int) ([]models.Notification, error) {
	if err := m.record("notifications", "notifications"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Notification(nil), m.Feed...), nil
}

func (m *MockBackend) MarkRead(ctx context.Context, id string) error {
	return m.record("mark-read:"+id, "mark-read")
}

func (m *MockBackend) DeleteNotification(ctx context.Context, id string) error {
	return m.record("delete-notification:"+id, "delete-notification")
}

func (m *MockBackend) MarkAllRead(ctx context.Context) error {
	return m.record("mark-all-read", "mark-all-read")
}

func (m *MockBackend) FetchCatalogNotifications(ctx context.Context) (int, error) {
	if err := m.record("fetch-catalog", "fetch-catalog"); err != nil {
		return 0, err
	}
	return m.CatalogAdded, nil
}

func (m *MockBackend) Remind(ctx context.Context, item models.MediaItem) error {
	if err := m.record("remind:"+item.Key(), "remind"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reminders = append(m.Reminders, item)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
