package models

import (
	"fmt"
	"strings"
	"time"
)

// Record is an untyped media payload as decoded from a catalog or backend JSON response.
type Record map[string]any

// String returns the string value stored at key, or "" when absent or not a string.
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Has reports whether key is present with a non-nil value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// With returns a shallow copy of r with key set to value.
func (r Record) With(key string, value any) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[key] = value
	return out
}

// MediaItem is a single normalized title.
//
// Identity is the (MediaType, ID) pair; every other field is optional display metadata.
type MediaItem struct {
	ID              string    `json:"id"`
	MediaType       MediaType `json:"media_type"`
	Title           string    `json:"title,omitempty"`
	Name            string    `json:"name,omitempty"`
	PosterPath      string    `json:"poster_path,omitempty"`
	BackdropPath    string    `json:"backdrop_path,omitempty"`
	Overview        string    `json:"overview,omitempty"`
	ReleaseDate     string    `json:"release_date,omitempty"`
	FirstAirDate    string    `json:"first_air_date,omitempty"`
	Genres          []string  `json:"genres,omitempty"`
	RuntimeMinutes  int       `json:"runtime,omitempty"`
	EpisodeRuntimes []int     `json:"episode_run_time,omitempty"`
	Popularity      float64   `json:"popularity,omitempty"`
	VoteAverage     float64   `json:"vote_average,omitempty"`
	Certification   string    `json:"certification,omitempty"`
}

// Key returns the composite "mediaType:id" key used for de-duplication and the details cache.
func (m MediaItem) Key() string {
	return ItemKey(m.MediaType, m.ID)
}

// ItemKey builds the composite key for a (media type, id) pair.
func ItemKey(mediaType MediaType, id string) string {
	return string(mediaType) + ":" + id
}

// Matches reports whether m has the given identity.
func (m MediaItem) Matches(mediaType MediaType, id string) bool {
	return m.MediaType == mediaType && m.ID == id
}

// DisplayTitle prefers the movie title and falls back to the tv name.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// Thin reports whether the item lacks a poster and needs hydration.
func (m MediaItem) Thin() bool {
	return m.PosterPath == ""
}

// Described reports whether the descriptive fields a preview needs are all present.
func (m MediaItem) Described() bool {
	return len(m.Genres) > 0 && m.Overview != "" && m.BackdropPath != ""
}

// Year returns the first four characters of the release or first-air date.
func (m MediaItem) Year() string {
	date := m.ReleaseDate
	if date == "" {
		date = m.FirstAirDate
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// Released parses the release or first-air date.
func (m MediaItem) Released() (time.Time, bool) {
	date := m.ReleaseDate
	if date == "" {
		date = m.FirstAirDate
	}
	if len(date) < 10 {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, date[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Runtime formats the runtime as "Xh Ym", using the first episode runtime for series.
func (m MediaItem) Runtime() string {
	minutes := m.RuntimeMinutes
	if minutes == 0 && len(m.EpisodeRuntimes) > 0 {
		minutes = m.EpisodeRuntimes[0]
	}
	if minutes <= 0 {
		return ""
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// Rating returns the US content rating or "NR".
func (m MediaItem) Rating() string {
	if m.Certification == "" {
		return "NR"
	}
	return m.Certification
}

// FillMissing copies poster, backdrop, overview and title/name from detail into the fields m lacks.
// Fields already present on m are never overwritten.
func (m MediaItem) FillMissing(detail MediaItem) MediaItem {
	if m.PosterPath == "" {
		m.PosterPath = detail.PosterPath
	}
	if m.BackdropPath == "" {
		m.BackdropPath = detail.BackdropPath
	}
	if m.Overview == "" {
		m.Overview = detail.Overview
	}
	if m.Title == "" && m.Name == "" {
		m.Title = detail.Title
		m.Name = detail.Name
	}
	return m
}

// Merge refreshes m with every non-empty field of detail, keeping m's identity.
func (m MediaItem) Merge(detail MediaItem) MediaItem {
	id, mediaType := m.ID, m.MediaType
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&m.Title, detail.Title)
	set(&m.Name, detail.Name)
	set(&m.PosterPath, detail.PosterPath)
	set(&m.BackdropPath, detail.BackdropPath)
	set(&m.Overview, detail.Overview)
	set(&m.ReleaseDate, detail.ReleaseDate)
	set(&m.FirstAirDate, detail.FirstAirDate)
	set(&m.Certification, detail.Certification)
	if len(detail.Genres) > 0 {
		m.Genres = append([]string(nil), detail.Genres...)
	}
	if detail.RuntimeMinutes > 0 {
		m.RuntimeMinutes = detail.RuntimeMinutes
	}
	if len(detail.EpisodeRuntimes) > 0 {
		m.EpisodeRuntimes = append([]int(nil), detail.EpisodeRuntimes...)
	}
	if detail.Popularity > 0 {
		m.Popularity = detail.Popularity
	}
	if detail.VoteAverage > 0 {
		m.VoteAverage = detail.VoteAverage
	}
	m.ID, m.MediaType = id, mediaType
	return m
}

// ImageURL resolves a poster or backdrop reference against base unless it is already absolute.
func ImageURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Record converts m back into a raw record such that Normalize(m.Record()) yields m.
func (m MediaItem) Record() Record {
	r := Record{"id": m.ID, "media_type": string(m.MediaType)}
	put := func(key, value string) {
		if value != "" {
			r[key] = value
		}
	}
	put("title", m.Title)
	put("name", m.Name)
	put("poster_path", m.PosterPath)
	put("backdrop_path", m.BackdropPath)
	put("overview", m.Overview)
	put("release_date", m.ReleaseDate)
	put("first_air_date", m.FirstAirDate)
	put("certification", m.Certification)
	if len(m.Genres) > 0 {
		genres := make([]any, len(m.Genres))
		for i, g := range m.Genres {
			genres[i] = g
		}
		r["genres"] = genres
	}
	if m.RuntimeMinutes > 0 {
		r["runtime"] = m.RuntimeMinutes
	}
	if len(m.EpisodeRuntimes) > 0 {
		runtimes := make([]any, len(m.EpisodeRuntimes))
		for i, v := range m.EpisodeRuntimes {
			runtimes[i] = v
		}
		r["episode_run_time"] = runtimes
	}
	if m.Popularity > 0 {
		r["popularity"] = m.Popularity
	}
	if m.VoteAverage > 0 {
		r["vote_average"] = m.VoteAverage
	}
	return r
}

// ContentRow is one composed landing row.
type ContentRow struct {
	Title     string      `json:"title"`
	MediaType MediaType   `json:"media_type"`
	Ranked    bool        `json:"is_ranked"`
	Items     []MediaItem `json:"items"`
}

// Notification is a backend notification as seen by the client.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	TMDBID    string    `json:"tmdb_id,omitempty"`
	MediaType MediaType `json:"media_type,omitempty"`
	Poster    string    `json:"poster_path,omitempty"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
