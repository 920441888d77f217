// Package services implements the HTTP clients a session talks to.
//
// # Catalog
//
// [CatalogService] reads a TMDB-compatible v3 API. Requests carry the api_key and language query parameters
// and are throttled by a token bucket ([rate.Limiter]) sized by catalog.requests_per_second.
// Status codes map to sentinel errors from the shared package:
//   - 401 : [shared.ErrUnauthorized]
//   - 404 : [shared.ErrNotFound]
//   - 429 : [shared.ErrRateLimited]
//   - 5xx : [shared.ErrServiceUnavailable]
//   - anything else outside 2xx : [shared.ErrAPIRequest]
//
// # Backend
//
// [BackendService] is a thin typed layer over [APIService] for the /api/me and /api/notifications routes.
// Every request carries the X-User-ID header. Write responses are {"success": true}.
//
// # Raw API
//
// [APIService] performs requests and hands back status, headers and body without interpreting them,
// which the api CLI command uses to inspect a backend directly.
package services
