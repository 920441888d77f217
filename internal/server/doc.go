// Package server is the reference implementation of the same-origin REST backend the client syncs with.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// method patterns on an [http.ServeMux]; [Middleware] wraps handlers in reverse order, so the first
// added runs outermost. Custom handlers implement [Handler], which adds the route patterns they own.
//
// # Routes
//
// Every route except the admin fetch requires the X-User-ID header ([RequireUser]).
//
//	GET    /api/me/{collection}                 → collection records, newest first
//	POST   /api/me/{collection}                 → upsert {tmdb_id, media_type, data}
//	DELETE /api/me/{collection}                 → remove by body or ?tmdb_id=&media_type=
//	GET    /api/me/reminders                    → the user's release reminders
//	POST   /api/me/reminders                    → upsert a reminder
//	GET    /api/notifications?limit=            → notifications, newest first
//	POST   /api/notifications/{id}/mark-read
//	POST   /api/notifications/mark-all-read
//	DELETE /api/notifications/{id}
//	POST   /api/admin/fetch-tmdb-notifications  → {notifications_added}
//
// Writes answer {"success": true}; failures answer {"error": "..."} with a matching status.
//
// # Notifications
//
// [Notifier] delivers due reminders and announces upcoming catalog releases to every user with list
// entries. The admin route and the [Scheduler] job (gocron, every server.notify_interval) share it.
package server
