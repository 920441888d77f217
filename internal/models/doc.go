// Package models defines the domain entities shared by the marquee client and its reference backend.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): plain structs carried between the catalog, the backend and the store
//   - [Record] : an untyped catalog or backend payload as decoded from JSON
//   - [MediaItem] : a normalized title with a stable (media type, id) identity
//   - [ContentRow] : a composed landing row
//   - [Notification] : a user notification as returned by the backend
//
// 2. Persistent Entities: backend rows with full lifecycle management
//   - [ListEntry] : one title on one user's named collection
//   - [Reminder] : a "remind me" request for an upcoming release
//
// [Normalize] and [NormalizeCollection] are the only way a [Record] becomes a [MediaItem].
// Records that cannot be identified are dropped rather than stored with a partial identity.
package models
