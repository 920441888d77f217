package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
	"github.com/desertthunder/marquee/internal/tasks"
)

// TrailerBaseURL is the watch page trailers are opened on.
const TrailerBaseURL = "https://www.youtube.com/watch?v="

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BrowseView ViewState = iota
	ItemsView
	CollectionView
	NotificationsView
	SearchView
	DetailView
	ComingSoonView
)

// section is one tab of the header.
type section struct {
	view       ViewState
	collection models.Collection
}

func (s section) label() string {
	switch s.view {
	case BrowseView:
		return "Browse"
	case CollectionView:
		return s.collection.Label()
	case NotificationsView:
		return "Notifications"
	case ComingSoonView:
		return "Coming Soon"
	default:
		return ""
	}
}

var sections = []section{
	{view: BrowseView},
	{view: CollectionView, collection: models.CollectionMyList},
	{view: CollectionView, collection: models.CollectionLiked},
	{view: CollectionView, collection: models.CollectionTrailersWatched},
	{view: ComingSoonView},
	{view: NotificationsView},
}

// Deps are the session components the browser drives.
type Deps struct {
	Store        *store.Store
	Catalog      services.Catalog
	Synchronizer *tasks.Synchronizer
	Hydrator     *tasks.Hydrator
	Composer     *tasks.RowComposer
	Presenter    *tasks.Presenter
	Feed         *tasks.NotificationFeed
	Reminders    services.Reminders
	Rows         []tasks.RowDefinition
	Region       string
	Debounce     time.Duration
	PlayerURL    string
	Logger       *log.Logger

	// OpenURL opens playback and trailer links. Defaults to [shared.OpenBrowser].
	OpenURL func(string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	deps    Deps
	view    ViewState
	section int
	back    ViewState
	width   int
	height  int

	rows     []models.ContentRow
	rowList  list.Model
	itemList list.Model
	noteList list.Model
	query    textinput.Model
	searcher *tasks.Searcher
	results  chan tasks.SearchResult
	cards    map[string]*tasks.Card
	details  *tasks.Details
	episodes []models.Episode
	season   int
	progress tasks.ProgressUpdate
	loading  bool
	spinner  spinner.Model
	status   string
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if deps.OpenURL == nil {
		deps.OpenURL = shared.OpenBrowser
	}

	query := textinput.New()
	query.Placeholder = "Titles, people, genres"
	query.CharLimit = 100

	m := &Model{
		ctx:      ctx,
		deps:     deps,
		view:     BrowseView,
		rowList:  newList("Browse"),
		itemList: newList(""),
		noteList: newList("Notifications"),
		query:    query,
		results:  make(chan tasks.SearchResult, 8),
		cards:    make(map[string]*tasks.Card),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}

	results := m.results
	m.searcher = tasks.NewSearcher(deps.Catalog, deps.Debounce, func(r tasks.SearchResult) {
		select {
		case results <- r:
		default:
		}
	}, deps.Logger)

	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Init seeds the collections from the durable cache and starts loading rows and lists.
func (m *Model) Init() tea.Cmd {
	if m.deps.Store != nil {
		m.deps.Store.Restore()
	}
	return tea.Batch(m.spinner.Tick, m.loadBrowse(), m.waitForSearch())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgBrowseLoaded:
		data := msg.data.(browseLoaded)
		m.loading = false
		m.rows = data.rows
		m.progress = tasks.ProgressUpdate{}
		m.status = fmt.Sprintf("%d rows • %d saved titles", len(data.rows), data.lists.Count())
		cmd := m.rowList.SetItems(rowItems(data.rows))
		if m.view == CollectionView {
			return m, tea.Batch(cmd, m.showCollection())
		}
		return m, cmd

	case MsgProgressUpdate:
		data := msg.data.(progressUpdate)
		m.progress = data.update
		return m, waitForProgress(data.next)

	case MsgPreviewLoaded:
		return m, nil

	case MsgDetailsLoaded:
		data := msg.data.(detailsLoaded)
		m.loading = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.details = data.details
		m.episodes = nil
		m.season = 0
		m.back = m.view
		m.view = DetailView
		delete(m.cards, data.details.Item.Key())
		if data.details.Item.MediaType == models.MediaTypeTV && data.details.Seasons > 0 {
			return m, m.loadEpisodes(1)
		}
		return m, nil

	case MsgSearchResult:
		result := msg.data.(tasks.SearchResult)
		if result.Seq != m.searcher.Latest() {
			return m, m.waitForSearch()
		}
		if result.Err != nil {
			m.err = result.Err
		} else {
			m.err = nil
			m.status = fmt.Sprintf("%d results for %q", len(result.Items), result.Query)
		}
		if result.Query == "" {
			m.status = ""
		}
		m.itemList.Title = "Search"
		cmd := m.itemList.SetItems(mediaItems(result.Items, false))
		return m, tea.Batch(cmd, m.waitForSearch(), m.present())

	case MsgNotificationsLoaded:
		data := msg.data.(notificationsLoaded)
		m.loading = false
		m.err = data.err
		if data.text != "" {
			m.status = data.text
		}
		return m, m.noteList.SetItems(notificationItems(data.notifications))

	case MsgToggled:
		data := msg.data.(toggled)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		delete(m.cards, data.item.Key())
		if data.outcome == tasks.OutcomeAdded {
			m.status = fmt.Sprintf("Added %s to %s", data.item.DisplayTitle(), data.collection.Label())
		} else {
			m.status = fmt.Sprintf("Removed %s from %s", data.item.DisplayTitle(), data.collection.Label())
		}
		if m.view == CollectionView {
			return m, m.showCollection()
		}
		return m, m.present()

	case MsgStatus:
		data := msg.data.(status)
		m.loading = false
		m.status = data.text
		m.err = data.err
		return m, nil

	case MsgComingSoonLoaded:
		data := msg.data.(comingSoonLoaded)
		m.loading = false
		m.err = data.err
		if data.err != nil || m.view != ComingSoonView {
			return m, nil
		}
		m.status = fmt.Sprintf("%d upcoming titles", len(data.upcoming))
		return m, tea.Batch(m.itemList.SetItems(upcomingItems(data.upcoming)), m.present())

	case MsgEpisodesLoaded:
		data := msg.data.(episodesLoaded)
		m.loading = false
		if m.details == nil || m.details.Item.Key() != data.key {
			return m, nil
		}
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.season = data.season
		m.episodes = data.episodes
		return m, nil

	case MsgFilmographyLoaded:
		data := msg.data.(filmographyLoaded)
		m.loading = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.details = nil
		m.view = ItemsView
		m.itemList.Title = data.name
		m.itemList.ResetSelected()
		m.status = fmt.Sprintf("%d titles with %s", len(data.works), data.name)
		return m, tea.Batch(m.itemList.SetItems(mediaItems(data.works, false)), m.present())
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case BrowseView:
		body = m.renderBrowse()
	case ItemsView, CollectionView, ComingSoonView:
		body = m.renderItems()
	case SearchView:
		body = fmt.Sprintf("%s\n\n%s", m.query.View(), m.renderItems())
	case NotificationsView:
		body = m.noteList.View()
	case DetailView:
		body = m.renderDetail()
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s\n%s", m.renderTabs(), body, m.renderStatus(), m.renderHelp())
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == SearchView && m.query.Focused() {
		return m.handleSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.searcher.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		return m, m.nextSection()
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		return m, m.query.Focus()
	}

	switch m.view {
	case BrowseView:
		return m.handleBrowseKeys(msg)
	case ItemsView, CollectionView, SearchView, ComingSoonView:
		return m.handleItemKeys(msg)
	case NotificationsView:
		return m.handleNotificationKeys(msg)
	case DetailView:
		return m.handleDetailKeys(msg)
	}
	return m, nil
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadBrowse()
	case key.Matches(msg, m.keys.enter):
		selected, ok := m.rowList.SelectedItem().(rowItem)
		if !ok {
			return m, nil
		}
		m.view = ItemsView
		m.itemList.Title = selected.row.Title
		m.itemList.ResetSelected()
		return m, tea.Batch(m.itemList.SetItems(mediaItems(selected.row.Items, selected.row.Ranked)), m.present())
	}

	var cmd tea.Cmd
	m.rowList, cmd = m.rowList.Update(msg)
	return m, cmd
}

func (m *Model) handleItemKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		switch m.view {
		case ItemsView:
			m.view = BrowseView
		case SearchView:
			return m, m.query.Focus()
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh) && m.view == CollectionView:
		return m, m.loadBrowse()
	case key.Matches(msg, m.keys.refresh) && m.view == ComingSoonView:
		return m, m.loadComingSoon()
	case key.Matches(msg, m.keys.remind) && m.view == ComingSoonView:
		return m, m.remind()
	case key.Matches(msg, m.keys.trailer) && m.view == ComingSoonView:
		selected, ok := m.itemList.SelectedItem().(mediaItem)
		if !ok {
			return m, nil
		}
		return m, m.playTrailer(selected.item, selected.trailer)
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.selectedMedia(); ok {
			return m, m.openDetails(item)
		}
		return m, nil
	case key.Matches(msg, m.keys.myList):
		return m, m.toggle(models.CollectionMyList)
	case key.Matches(msg, m.keys.like):
		return m, m.toggle(models.CollectionLiked)
	case key.Matches(msg, m.keys.play):
		return m, m.play()
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, tea.Batch(cmd, m.present())
}

func (m *Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.searcher.Stop()
		return m, tea.Quit
	case tea.KeyEsc:
		m.query.Blur()
		m.view = BrowseView
		return m, nil
	case tea.KeyEnter, tea.KeyDown:
		m.query.Blur()
		return m, m.present()
	}

	before := m.query.Value()
	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	if after := m.query.Value(); after != before {
		m.searcher.Input(m.ctx, after)
	}
	return m, cmd
}

func (m *Model) handleNotificationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	feed := m.deps.Feed
	if feed == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadNotifications()
	case key.Matches(msg, m.keys.readAll):
		return m, m.editNotifications(func(ctx context.Context) { feed.MarkAllRead(ctx) })
	case key.Matches(msg, m.keys.fetch):
		return m, m.fetchNotifications()
	case key.Matches(msg, m.keys.read), key.Matches(msg, m.keys.remove):
		selected, ok := m.noteList.SelectedItem().(notificationItem)
		if !ok {
			return m, nil
		}
		id := selected.notification.ID
		if key.Matches(msg, m.keys.remove) {
			return m, m.editNotifications(func(ctx context.Context) { feed.Delete(ctx, id) })
		}
		return m, m.editNotifications(func(ctx context.Context) { feed.MarkRead(ctx, id) })
	}

	var cmd tea.Cmd
	m.noteList, cmd = m.noteList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.details == nil {
		m.view = m.back
		return m, nil
	}

	item := m.details.Item
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = m.back
		m.details = nil
		m.episodes = nil
		return m, m.present()
	case key.Matches(msg, m.keys.myList):
		return m, m.toggleItem(models.CollectionMyList, item)
	case key.Matches(msg, m.keys.like):
		return m, m.toggleItem(models.CollectionLiked, item)
	case key.Matches(msg, m.keys.play):
		return m, m.playItem(item)
	case key.Matches(msg, m.keys.trailer):
		return m, m.playTrailer(item, m.details.Trailer)
	case key.Matches(msg, m.keys.season):
		if item.MediaType != models.MediaTypeTV || m.details.Seasons == 0 {
			return m, nil
		}
		return m, m.loadEpisodes(m.season%m.details.Seasons + 1)
	case key.Matches(msg, m.keys.cast):
		n := int(msg.Runes[0] - '0')
		if n < 1 || n > len(m.details.Credits) {
			return m, nil
		}
		return m, m.loadFilmography(m.details.Credits[n-1])
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case BrowseView:
		m.rowList, cmd = m.rowList.Update(msg)
	case ItemsView, CollectionView, SearchView, ComingSoonView:
		m.itemList, cmd = m.itemList.Update(msg)
	case NotificationsView:
		m.noteList, cmd = m.noteList.Update(msg)
	}
	return m, cmd
}

// nextSection moves to the next header tab.
func (m *Model) nextSection() tea.Cmd {
	m.query.Blur()
	m.details = nil
	m.err = nil
	m.section = (m.section + 1) % len(sections)

	next := sections[m.section]
	m.view = next.view
	switch next.view {
	case CollectionView:
		return m.showCollection()
	case ComingSoonView:
		m.itemList.Title = next.label()
		m.itemList.ResetSelected()
		return tea.Batch(m.itemList.SetItems(nil), m.loadComingSoon())
	case NotificationsView:
		if m.deps.Feed != nil {
			cached := m.deps.Feed.Cached()
			return tea.Batch(m.noteList.SetItems(notificationItems(cached)), m.loadNotifications())
		}
	}
	return nil
}

// showCollection fills the item list from the store for the active collection.
func (m *Model) showCollection() tea.Cmd {
	c := sections[m.section].collection
	m.itemList.Title = c.Label()
	var items []models.MediaItem
	if m.deps.Store != nil {
		items = m.deps.Store.Get(c)
	}
	return tea.Batch(m.itemList.SetItems(mediaItems(items, false)), m.present())
}

func (m *Model) selectedMedia() (models.MediaItem, bool) {
	selected, ok := m.itemList.SelectedItem().(mediaItem)
	if !ok {
		return models.MediaItem{}, false
	}
	return selected.item, true
}

func (m *Model) card(item models.MediaItem) *tasks.Card {
	card, ok := m.cards[item.Key()]
	if !ok {
		card = tasks.NewCard(item.MediaType, item.ID)
		m.cards[item.Key()] = card
	}
	return card
}

// present loads the previews of the focused title and the rest of the visible page.
func (m *Model) present() tea.Cmd {
	return tea.Batch(m.hoverSelected(), m.prefetchVisible())
}

// hoverSelected loads the preview of the focused title unless it has already been claimed.
func (m *Model) hoverSelected() tea.Cmd {
	if m.deps.Presenter == nil {
		return nil
	}
	item, ok := m.selectedMedia()
	if !ok {
		return nil
	}

	card := m.card(item)
	if card.Loaded() {
		return nil
	}

	return func() tea.Msg {
		err := m.deps.Presenter.OnHover(m.ctx, card)
		return previewLoadedMsg(item.Key(), err)
	}
}

// prefetchVisible loads the previews of every unclaimed card on the item list's current page.
func (m *Model) prefetchVisible() tea.Cmd {
	if m.deps.Presenter == nil {
		return nil
	}

	visible := m.itemList.VisibleItems()
	start, end := m.itemList.Paginator.GetSliceBounds(len(visible))

	var cmds []tea.Cmd
	for _, li := range visible[start:end] {
		selected, ok := li.(mediaItem)
		if !ok {
			continue
		}
		item := selected.item
		card := m.card(item)
		if card.Loaded() {
			continue
		}
		cmds = append(cmds, func() tea.Msg {
			err := m.deps.Presenter.OnIntersect(m.ctx, card)
			return previewLoadedMsg(item.Key(), err)
		})
	}
	return tea.Batch(cmds...)
}

func (m *Model) loadBrowse() tea.Cmd {
	if m.deps.Synchronizer == nil || m.deps.Composer == nil {
		return nil
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	m.loading = true

	load := func() tea.Msg {
		defer close(progress)
		lists := m.deps.Synchronizer.LoadAllProgress(m.ctx, progress)
		if m.deps.Hydrator != nil {
			for _, c := range models.Collections() {
				lists[c] = m.deps.Hydrator.HydrateStoredProgress(m.ctx, c, progress)
			}
		}
		rows := m.deps.Composer.ComposeRowsProgress(m.ctx, m.deps.Rows, progress)
		return browseLoadedMsg(rows, lists)
	}
	return tea.Batch(load, waitForProgress(progress))
}

// waitForProgress drains one update from ch. A closed channel ends the chain.
func waitForProgress(ch <-chan tasks.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update, ch)
	}
}

func (m *Model) waitForSearch() tea.Cmd {
	results := m.results
	return func() tea.Msg {
		select {
		case result := <-results:
			return searchResultMsg(result)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) openDetails(item models.MediaItem) tea.Cmd {
	if m.deps.Presenter == nil {
		return nil
	}
	m.loading = true
	return func() tea.Msg {
		details, err := m.deps.Presenter.Open(m.ctx, item.MediaType, item.ID)
		return detailsLoadedMsg(details, err)
	}
}

func (m *Model) loadComingSoon() tea.Cmd {
	if m.deps.Presenter == nil {
		return nil
	}
	m.loading = true
	return func() tea.Msg {
		upcoming, err := m.deps.Presenter.ComingSoon(m.ctx, m.deps.Region, time.Now(), 0)
		return comingSoonLoadedMsg(upcoming, err)
	}
}

func (m *Model) loadEpisodes(season int) tea.Cmd {
	if m.deps.Presenter == nil || m.details == nil {
		return nil
	}
	item := m.details.Item
	m.loading = true
	return func() tea.Msg {
		episodes, err := m.deps.Presenter.Episodes(m.ctx, item.ID, season)
		return episodesLoadedMsg(item.Key(), season, episodes, err)
	}
}

func (m *Model) loadFilmography(credit models.Credit) tea.Cmd {
	if m.deps.Presenter == nil || credit.ID == "" {
		return nil
	}
	m.loading = true
	return func() tea.Msg {
		works, err := m.deps.Presenter.Filmography(m.ctx, credit.ID)
		return filmographyLoadedMsg(credit.Name, works, err)
	}
}

func (m *Model) remind() tea.Cmd {
	item, ok := m.selectedMedia()
	if !ok || m.deps.Reminders == nil {
		return nil
	}
	return func() tea.Msg {
		if err := m.deps.Reminders.Remind(m.ctx, item); err != nil {
			return statusMsg("", err)
		}
		return statusMsg("Reminder set for "+item.DisplayTitle(), nil)
	}
}

func (m *Model) toggle(c models.Collection) tea.Cmd {
	item, ok := m.selectedMedia()
	if !ok {
		return nil
	}
	return m.toggleItem(c, item)
}

func (m *Model) toggleItem(c models.Collection, item models.MediaItem) tea.Cmd {
	if m.deps.Synchronizer == nil {
		return nil
	}
	fetch := tasks.LookupFetcher(m.deps.Store, m.deps.Catalog)
	return func() tea.Msg {
		outcome, err := m.deps.Synchronizer.Toggle(m.ctx, c, item.ID, item.MediaType, fetch)
		return toggledMsg(c, item, outcome, err)
	}
}

func (m *Model) play() tea.Cmd {
	item, ok := m.selectedMedia()
	if !ok {
		return nil
	}
	return m.playItem(item)
}

func (m *Model) playItem(item models.MediaItem) tea.Cmd {
	url := shared.PlayerURL(m.deps.PlayerURL, string(item.MediaType), item.ID, 0, 0)
	open := m.deps.OpenURL
	return func() tea.Msg {
		if err := open(url); err != nil {
			return statusMsg("", err)
		}
		return statusMsg("Playing "+item.DisplayTitle(), nil)
	}
}

// playTrailer opens the trailer and records the title as watched.
func (m *Model) playTrailer(item models.MediaItem, trailer string) tea.Cmd {
	if trailer == "" {
		return func() tea.Msg { return statusMsg("No trailer available", nil) }
	}
	open := m.deps.OpenURL
	return func() tea.Msg {
		if err := open(TrailerBaseURL + trailer); err != nil {
			return statusMsg("", err)
		}
		if m.deps.Synchronizer != nil {
			m.deps.Synchronizer.RecordTrailerWatched(m.ctx, item)
		}
		return statusMsg("Playing trailer for "+item.DisplayTitle(), nil)
	}
}

func (m *Model) loadNotifications() tea.Cmd {
	feed := m.deps.Feed
	if feed == nil {
		return nil
	}
	m.loading = true
	return func() tea.Msg {
		notifications, err := feed.Load(m.ctx, nil)
		return notificationsLoadedMsg(notifications, err)
	}
}

func (m *Model) editNotifications(edit func(context.Context)) tea.Cmd {
	feed := m.deps.Feed
	return func() tea.Msg {
		edit(m.ctx)
		return notificationsLoadedMsg(feed.Cached(), nil)
	}
}

func (m *Model) fetchNotifications() tea.Cmd {
	feed := m.deps.Feed
	m.loading = true
	return func() tea.Msg {
		added, err := feed.FetchCatalogNotifications(m.ctx)
		if err != nil {
			return statusMsg("", err)
		}
		notifications, err := feed.Load(m.ctx, nil)
		return Msg{
			kind: MsgNotificationsLoaded,
			data: notificationsLoaded{notifications, err, fmt.Sprintf("%d new notifications", added)},
		}
	}
}

func (m *Model) resize() {
	width, height := m.width-4, m.height-10
	m.rowList.SetSize(width, height)
	m.noteList.SetSize(width, height)
	m.itemList.SetSize(width/2, height)
	m.query.Width = width - 4
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(sections))
	for i, s := range sections {
		label := s.label()
		if s.view == NotificationsView && m.deps.Feed != nil {
			if unread := m.deps.Feed.UnreadCount(); unread > 0 {
				label = fmt.Sprintf("%s (%d)", label, unread)
			}
		}
		if i == m.section && m.view != SearchView {
			tabs[i] = styles.active.Render(label)
		} else {
			tabs[i] = styles.tab.Render(label)
		}
	}
	return styles.title.Render("marquee") + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderBrowse() string {
	if m.loading && len(m.rows) == 0 {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.progressMessage())
	}
	return m.rowList.View()
}

func (m *Model) renderItems() string {
	return lipgloss.JoinHorizontal(lipgloss.Top, m.itemList.View(), m.renderPreview())
}

func (m *Model) renderPreview() string {
	item, ok := m.selectedMedia()
	if !ok {
		return ""
	}

	card, ok := m.cards[item.Key()]
	if !ok {
		return ""
	}

	width := max(m.width/2-4, 20)
	switch card.State() {
	case tasks.CardIdle, tasks.CardLoading:
		return styles.panel.Width(width).Render(m.spinner.View() + " Loading preview")
	case tasks.CardUnavailable:
		return styles.panel.Width(width).Render(styles.warn.Render(tasks.PreviewUnavailable))
	}

	p, _ := card.Preview()
	var b strings.Builder
	b.WriteString(styles.title.Render(p.Title))
	b.WriteString("\n")
	b.WriteString(joinNonEmpty(" • ", p.Year, p.Runtime, p.Rating))
	if len(p.Genres) > 0 {
		b.WriteString("\n" + strings.Join(p.Genres, ", "))
	}
	if p.Overview != "" {
		b.WriteString("\n\n" + p.Overview)
	}

	var flags []string
	if p.InList {
		flags = append(flags, styles.ok.Render("✓ My List"))
	}
	if p.Liked {
		flags = append(flags, styles.ok.Render("♥ Liked"))
	}
	if len(flags) > 0 {
		b.WriteString("\n\n" + strings.Join(flags, "  "))
	}
	return styles.panel.Width(width).Render(b.String())
}

func (m *Model) renderDetail() string {
	d := m.details
	if d == nil {
		return ""
	}

	item := d.Item
	var b strings.Builder
	b.WriteString(styles.title.Render(item.DisplayTitle()))
	b.WriteString("\n")
	b.WriteString(joinNonEmpty(" • ", item.MediaType.Label(), item.Year(), item.Runtime(), item.Rating()))
	if d.Seasons > 0 {
		b.WriteString(fmt.Sprintf(" • %d seasons", d.Seasons))
	}
	if len(item.Genres) > 0 {
		b.WriteString("\n" + strings.Join(item.Genres, ", "))
	}
	if item.Overview != "" {
		b.WriteString("\n\n" + item.Overview)
	}
	if len(d.Cast) > 0 {
		b.WriteString("\n\nStarring: " + strings.Join(d.Cast, ", "))
	}
	if len(d.Credits) > 0 {
		b.WriteString("\n")
		for i, c := range d.Credits {
			line := fmt.Sprintf("%d %s", i+1, c.Name)
			if c.Character != "" {
				line += " as " + c.Character
			}
			b.WriteString("\n" + styles.help.Render(line))
		}
	}
	if m.season > 0 {
		b.WriteString(fmt.Sprintf("\n\nSeason %d", m.season))
		for _, e := range m.episodes {
			b.WriteString("\n  " + e.Label())
		}
	}

	var flags []string
	if m.deps.Store != nil {
		if m.deps.Store.Contains(models.CollectionMyList, item.MediaType, item.ID) {
			flags = append(flags, styles.ok.Render("✓ My List"))
		}
		if m.deps.Store.Contains(models.CollectionLiked, item.MediaType, item.ID) {
			flags = append(flags, styles.ok.Render("♥ Liked"))
		}
	}
	if d.Trailer == "" {
		flags = append(flags, styles.help.Render("no trailer"))
	}
	if len(flags) > 0 {
		b.WriteString("\n\n" + strings.Join(flags, "  "))
	}

	return styles.panel.Render(b.String())
}

func (m *Model) renderStatus() string {
	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.loading:
		return fmt.Sprintf("%s %s", m.spinner.View(), m.progressMessage())
	case m.status != "":
		return styles.ok.Render(m.status)
	default:
		return ""
	}
}

func (m *Model) progressMessage() string {
	if m.progress.Message == "" {
		return "Loading..."
	}
	if m.progress.Total > 0 {
		return fmt.Sprintf("%s (%d/%d)", m.progress.Message, m.progress.Step, m.progress.Total)
	}
	return m.progress.Message
}

func (m *Model) renderHelp() string {
	var keys []key.Binding
	switch m.view {
	case BrowseView:
		keys = []key.Binding{m.keys.enter, m.keys.tab, m.keys.search, m.keys.refresh, m.keys.quit}
	case ItemsView, CollectionView, SearchView:
		keys = []key.Binding{m.keys.enter, m.keys.myList, m.keys.like, m.keys.play, m.keys.back, m.keys.quit}
	case ComingSoonView:
		keys = []key.Binding{m.keys.enter, m.keys.remind, m.keys.trailer, m.keys.myList, m.keys.refresh, m.keys.tab, m.keys.quit}
	case NotificationsView:
		keys = []key.Binding{m.keys.read, m.keys.remove, m.keys.readAll, m.keys.fetch, m.keys.tab, m.keys.quit}
	case DetailView:
		keys = []key.Binding{m.keys.myList, m.keys.like, m.keys.play, m.keys.trailer, m.keys.season, m.keys.cast, m.keys.back, m.keys.quit}
	}
	return m.help.ShortHelpView(keys)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
