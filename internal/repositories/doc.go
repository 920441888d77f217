// Package repositories implements SQLite persistence for the client cache and the reference backend.
//
// Key Implementations:
//   - [CacheRepository] : durable per-user key/value cache backing the media store
//   - [ListEntryRepository] : per-user named collections with idempotent upserts and soft deletes
//   - [NotificationRepository] : per-user notification feed with read state and de-duplication
//   - [ReminderRepository] : release reminders consumed by the notification job
//
// Sequence numbers provide stable newest-first ordering independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
