// Package ui implements an interactive terminal browser using bubbletea's Elm architecture.
//
// The browser is organized in sections that tab cycles through:
//  1. [BrowseView] : the composed landing rows; enter opens a row in [ItemsView]
//  2. [CollectionView] : My List, Liked and Trailers Watched, served from the store
//  3. [NotificationsView] : the notification feed with read, delete and fetch actions
//
// [SearchView] opens with / and runs a debounced catalog search as the query changes.
// Enter on any title opens [DetailView] with cast, seasons and a trailer.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Long-running work runs in commands; progress updates and search results flow back through channels
// that a waiting command drains one message at a time.
//
// The focused title's preview is loaded through the presenter's hover path, so each card is fetched at most once.
// m and l toggle My List and Liked for the focused title, p opens the player and t opens the trailer.
package ui
