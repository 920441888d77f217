package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Normalize resolves the identity of a raw record and copies its display fields.
//
// The id is read from "id", then "tmdb_id". The media type is the explicit "media_type",
// else movie when a "title" is present, else tv when a "name" is present.
// An explicit media type other than movie or tv (e.g. "person") is unidentifiable.
// The second return value is false when either part of the identity cannot be determined.
func Normalize(raw Record) (*MediaItem, bool) {
	if raw == nil {
		return nil, false
	}

	id := identifier(raw["id"])
	if id == "" {
		id = identifier(raw["tmdb_id"])
	}
	if id == "" {
		return nil, false
	}

	mediaType := deriveMediaType(raw)
	if mediaType == "" {
		return nil, false
	}

	item := &MediaItem{
		ID:              id,
		MediaType:       mediaType,
		Title:           raw.String("title"),
		Name:            raw.String("name"),
		PosterPath:      raw.String("poster_path"),
		BackdropPath:    raw.String("backdrop_path"),
		Overview:        raw.String("overview"),
		ReleaseDate:     raw.String("release_date"),
		FirstAirDate:    raw.String("first_air_date"),
		Genres:          genreNames(raw["genres"]),
		RuntimeMinutes:  integer(raw["runtime"]),
		EpisodeRuntimes: integers(raw["episode_run_time"]),
		Popularity:      number(raw["popularity"]),
		VoteAverage:     number(raw["vote_average"]),
		Certification:   certification(raw, mediaType),
	}
	return item, true
}

// NormalizeAs normalizes raw after tagging it with an explicit media type.
func NormalizeAs(raw Record, mediaType MediaType) (*MediaItem, bool) {
	if raw == nil {
		return nil, false
	}
	return Normalize(raw.With("media_type", string(mediaType)))
}

// NormalizeCollection normalizes every record, drops the unidentifiable ones
// and de-duplicates on [MediaItem.Key], keeping the first occurrence.
func NormalizeCollection(raws []Record) []MediaItem {
	items := make([]MediaItem, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		item, ok := Normalize(raw)
		if !ok {
			continue
		}
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		items = append(items, *item)
	}
	return items
}

// Dedupe removes repeated identities from already normalized items, keeping the first occurrence.
func Dedupe(items []MediaItem) []MediaItem {
	out := make([]MediaItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		out = append(out, item)
	}
	return out
}

func deriveMediaType(raw Record) MediaType {
	if explicit := raw.String("media_type"); explicit != "" {
		if mt := MediaType(strings.ToLower(explicit)); mt.Valid() {
			return mt
		}
		return ""
	}
	if raw.Has("title") {
		return MediaTypeMovie
	}
	if raw.Has("name") {
		return MediaTypeTV
	}
	return ""
}

func identifier(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func integer(v any) int {
	return int(number(v))
}

func integers(v any) []int {
	switch list := v.(type) {
	case []int:
		return append([]int(nil), list...)
	case []any:
		out := make([]int, 0, len(list))
		for _, e := range list {
			if n := integer(e); n > 0 {
				out = append(out, n)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// genreNames accepts either ["Drama"] or [{"id": 18, "name": "Drama"}].
func genreNames(v any) []string {
	var out []string
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, e := range list {
			switch g := e.(type) {
			case string:
				out = append(out, g)
			case map[string]any:
				if name, ok := g["name"].(string); ok && name != "" {
					out = append(out, name)
				}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// certification reads the US rating from an appended release_dates or content_ratings block.
func certification(raw Record, mediaType MediaType) string {
	if c := raw.String("certification"); c != "" {
		return c
	}

	results := func(key string) []any {
		block, ok := raw[key].(map[string]any)
		if !ok {
			return nil
		}
		list, _ := block["results"].([]any)
		return list
	}

	if mediaType == MediaTypeTV {
		for _, e := range results("content_ratings") {
			entry, ok := e.(map[string]any)
			if !ok || entry["iso_3166_1"] != "US" {
				continue
			}
			if rating, ok := entry["rating"].(string); ok && rating != "" {
				return rating
			}
		}
		return ""
	}

	for _, e := range results("release_dates") {
		entry, ok := e.(map[string]any)
		if !ok || entry["iso_3166_1"] != "US" {
			continue
		}
		dates, _ := entry["release_dates"].([]any)
		for _, d := range dates {
			rd, ok := d.(map[string]any)
			if !ok {
				continue
			}
			if c, ok := rd["certification"].(string); ok && c != "" {
				return c
			}
		}
	}
	return ""
}
