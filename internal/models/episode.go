package models

import (
	"fmt"
	"strings"
)

// Episode is one episode of a show's season.
type Episode struct {
	Season         int    `json:"season_number"`
	Number         int    `json:"episode_number"`
	Name           string `json:"name"`
	Overview       string `json:"overview,omitempty"`
	AirDate        string `json:"air_date,omitempty"`
	StillPath      string `json:"still_path,omitempty"`
	RuntimeMinutes int    `json:"runtime,omitempty"`
}

// Label renders "3. Name", falling back to "Episode 3" for unnamed episodes.
func (e Episode) Label() string {
	if name := strings.TrimSpace(e.Name); name != "" {
		return fmt.Sprintf("%d. %s", e.Number, name)
	}
	return fmt.Sprintf("Episode %d", e.Number)
}

// NormalizeEpisodes converts raw season episodes, skipping entries without an episode number.
// season fills in records that omit their season_number.
func NormalizeEpisodes(raws []Record, season int) []Episode {
	episodes := make([]Episode, 0, len(raws))
	for _, raw := range raws {
		number := integer(raw["episode_number"])
		if number <= 0 {
			continue
		}
		s := integer(raw["season_number"])
		if s <= 0 {
			s = season
		}
		episodes = append(episodes, Episode{
			Season:         s,
			Number:         number,
			Name:           raw.String("name"),
			Overview:       raw.String("overview"),
			AirDate:        raw.String("air_date"),
			StillPath:      raw.String("still_path"),
			RuntimeMinutes: integer(raw["runtime"]),
		})
	}
	return episodes
}

// Credit is one cast member of a title.
type Credit struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
}

// CastCredits reads up to limit named cast members from a detail record's credits block.
func CastCredits(raw Record, limit int) []Credit {
	credits, _ := raw["credits"].(map[string]any)
	cast, _ := credits["cast"].([]any)

	out := make([]Credit, 0, min(limit, len(cast)))
	for _, entry := range cast {
		if len(out) == limit {
			break
		}
		member, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := member["name"].(string)
		if name == "" {
			continue
		}
		character, _ := member["character"].(string)
		out = append(out, Credit{ID: identifier(member["id"]), Name: name, Character: character})
	}
	return out
}
