// Package tasks orchestrates a browsing session on top of the media cache store.
//
// # Components
//
//  1. [Synchronizer] : loads My List, Liked and Trailers Watched from the backend and toggles membership
//     - [Synchronizer.LoadAll] fetches the three collections concurrently; a failed branch keeps its cached value
//     - [Synchronizer.Toggle] updates the store first, then sends the remote write through a [RemoteApplier]
//
//  2. [Hydrator] : fills posters and overviews for thin records from the catalog, one detail fetch per title
//
//  3. [RowComposer] : builds the shuffled landing rows
//     - Queries run concurrently and failed or empty rows are dropped
//     - Ranked rows keep their first ten items
//     - No more than two adjacent rows share a media type when a swap can prevent it
//
//  4. [Presenter] : lazily loads hover previews and detail views for [Card] values, bounded by a timeout
//
//  5. [Searcher] : debounced catalog search; only the newest query delivers results
//
//  6. [NotificationFeed] : cache-first notification feed with optimistic updates
//
//  7. [Exporter] : writes stored collections to json, csv, markdown or txt files with a manifest
//
// # Remote Writes
//
// Every remote mutation passes through [RemoteApplier]. The default [BestEffort] applier runs the write
// synchronously, logs a failure and reports it to no one else. There is no retry queue: the local view wins
// until the next [Synchronizer.LoadAll].
//
// # Progress Reporting
//
// Long-running operations accept an optional progress channel. Updates are sent with select/default so
// a slow reader never blocks the operation.
package tasks
