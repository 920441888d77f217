package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/tasks"
)

var (
	_ list.Item = rowItem{}
	_ list.Item = mediaItem{}
	_ list.Item = notificationItem{}
)

// rowItem wraps [models.ContentRow] to implement [list.Item].
type rowItem struct {
	row models.ContentRow
}

func (i rowItem) FilterValue() string { return i.row.Title }
func (i rowItem) Title() string       { return i.row.Title }
func (i rowItem) Description() string {
	desc := fmt.Sprintf("%d titles", len(i.row.Items))
	if i.row.Ranked {
		desc = fmt.Sprintf("%s • ranked", desc)
	}
	return desc
}

// mediaItem wraps [models.MediaItem] to implement [list.Item].
type mediaItem struct {
	item    models.MediaItem
	rank    int
	coming  bool
	trailer string
}

func (i mediaItem) FilterValue() string { return i.item.DisplayTitle() }
func (i mediaItem) Title() string {
	if i.rank > 0 {
		return fmt.Sprintf("%d. %s", i.rank, i.item.DisplayTitle())
	}
	return i.item.DisplayTitle()
}
func (i mediaItem) Description() string {
	if i.coming {
		desc := "Coming " + i.item.ReleaseDate
		if i.trailer != "" {
			desc += " • ▶ trailer"
		}
		return desc
	}
	parts := []string{i.item.MediaType.Label()}
	if year := i.item.Year(); year != "" {
		parts = append(parts, year)
	}
	if i.item.VoteAverage > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", i.item.VoteAverage))
	}
	return strings.Join(parts, " • ")
}

// notificationItem wraps [models.Notification] to implement [list.Item].
type notificationItem struct {
	notification models.Notification
}

func (i notificationItem) FilterValue() string { return i.notification.Title }
func (i notificationItem) Title() string {
	if !i.notification.Read {
		return "● " + i.notification.Title
	}
	return i.notification.Title
}
func (i notificationItem) Description() string { return i.notification.Message }

func mediaItems(items []models.MediaItem, ranked bool) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		mi := mediaItem{item: item}
		if ranked {
			mi.rank = i + 1
		}
		out[i] = mi
	}
	return out
}

func upcomingItems(upcoming []tasks.Upcoming) []list.Item {
	out := make([]list.Item, len(upcoming))
	for i, u := range upcoming {
		out[i] = mediaItem{item: u.Item, coming: true, trailer: u.Trailer}
	}
	return out
}

func notificationItems(notifications []models.Notification) []list.Item {
	out := make([]list.Item, len(notifications))
	for i, n := range notifications {
		out[i] = notificationItem{notification: n}
	}
	return out
}

func rowItems(rows []models.ContentRow) []list.Item {
	out := make([]list.Item, len(rows))
	for i, row := range rows {
		out[i] = rowItem{row: row}
	}
	return out
}
