package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	tab     key.Binding
	search  key.Binding
	myList  key.Binding
	like    key.Binding
	play    key.Binding
	trailer key.Binding
	remind  key.Binding
	season  key.Binding
	cast    key.Binding
	read    key.Binding
	remove  key.Binding
	readAll key.Binding
	fetch   key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next section")),
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		myList:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "my list")),
		like:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		play:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		trailer: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "trailer")),
		remind:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "remind me")),
		season:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "next season")),
		cast:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "filmography")),
		read:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "mark read")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		readAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "read all")),
		fetch:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fetch releases")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tab, k.search, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.tab, k.search, k.refresh},
		{k.myList, k.like, k.play, k.trailer},
		{k.remind, k.season, k.cast},
		{k.read, k.remove, k.readAll, k.fetch},
		{k.quit},
	}
}
