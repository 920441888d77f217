package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgBrowseLoaded MsgKind = iota
	MsgProgressUpdate
	MsgPreviewLoaded
	MsgDetailsLoaded
	MsgSearchResult
	MsgNotificationsLoaded
	MsgToggled
	MsgStatus
	MsgComingSoonLoaded
	MsgEpisodesLoaded
	MsgFilmographyLoaded
)

type browseLoaded struct {
	rows  []models.ContentRow
	lists tasks.Collections
}

type progressUpdate struct {
	update tasks.ProgressUpdate
	next   <-chan tasks.ProgressUpdate
}

type previewLoaded struct {
	key string
	err error
}

type detailsLoaded struct {
	details *tasks.Details
	err     error
}

type notificationsLoaded struct {
	notifications []models.Notification
	err           error
	text          string
}

type toggled struct {
	collection models.Collection
	item       models.MediaItem
	outcome    tasks.Outcome
	err        error
}

type status struct {
	text string
	err  error
}

type comingSoonLoaded struct {
	upcoming []tasks.Upcoming
	err      error
}

type episodesLoaded struct {
	key      string
	season   int
	episodes []models.Episode
	err      error
}

type filmographyLoaded struct {
	name  string
	works []models.MediaItem
	err   error
}

// browseLoadedMsg is the constructor for [MsgBrowseLoaded]
func browseLoadedMsg(rows []models.ContentRow, lists tasks.Collections) Msg {
	return Msg{kind: MsgBrowseLoaded, data: browseLoaded{rows, lists}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]. next is the channel the update came from.
func progressUpdateMsg(update tasks.ProgressUpdate, next <-chan tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: progressUpdate{update, next}}
}

// previewLoadedMsg is the constructor for [MsgPreviewLoaded]
func previewLoadedMsg(key string, err error) Msg {
	return Msg{kind: MsgPreviewLoaded, data: previewLoaded{key, err}}
}

// detailsLoadedMsg is the constructor for [MsgDetailsLoaded]
func detailsLoadedMsg(details *tasks.Details, err error) Msg {
	return Msg{kind: MsgDetailsLoaded, data: detailsLoaded{details, err}}
}

// searchResultMsg is the constructor for [MsgSearchResult]
func searchResultMsg(result tasks.SearchResult) Msg {
	return Msg{kind: MsgSearchResult, data: result}
}

// notificationsLoadedMsg is the constructor for [MsgNotificationsLoaded]
func notificationsLoadedMsg(notifications []models.Notification, err error) Msg {
	return Msg{kind: MsgNotificationsLoaded, data: notificationsLoaded{notifications, err, ""}}
}

// toggledMsg is the constructor for [MsgToggled]
func toggledMsg(c models.Collection, item models.MediaItem, outcome tasks.Outcome, err error) Msg {
	return Msg{kind: MsgToggled, data: toggled{c, item, outcome, err}}
}

// statusMsg is the constructor for [MsgStatus]
func statusMsg(text string, err error) Msg {
	return Msg{kind: MsgStatus, data: status{text, err}}
}

// comingSoonLoadedMsg is the constructor for [MsgComingSoonLoaded]
func comingSoonLoadedMsg(upcoming []tasks.Upcoming, err error) Msg {
	return Msg{kind: MsgComingSoonLoaded, data: comingSoonLoaded{upcoming, err}}
}

// episodesLoadedMsg is the constructor for [MsgEpisodesLoaded]. key identifies the show.
func episodesLoadedMsg(key string, season int, episodes []models.Episode, err error) Msg {
	return Msg{kind: MsgEpisodesLoaded, data: episodesLoaded{key, season, episodes, err}}
}

// filmographyLoadedMsg is the constructor for [MsgFilmographyLoaded]
func filmographyLoadedMsg(name string, works []models.MediaItem, err error) Msg {
	return Msg{kind: MsgFilmographyLoaded, data: filmographyLoaded{name, works, err}}
}
