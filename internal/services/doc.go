// Package services wraps the Spotify Web API used by the freshlist sync engine.
//
// # Interfaces
//
// Consumers depend on the narrowest interface they need:
//   - [Catalog] : artist search, album and track lookups read by the fetch workers
//   - [PlaylistWriter] : the replace/append pair used to write the playlist back
//   - [PlaylistManager] : playlist creation, renaming and item listing
//   - [Service] : all of the above
//   - [OAuthService] : Service plus the OAuth2 authorization-code flow
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 with automatic token refresh. Refreshed tokens are reported through
// [SpotifyService.SetTokenRefreshCallback] so the CLI can persist them.
//
// The client is shared by every fetch worker and is safe for concurrent use. Requests pass
// through a shared [rate.Limiter] and carry a per-request timeout. Retries on 429 and 5xx
// responses are off unless [WithMaxRetries] is given a positive count.
//
// # Error Handling
//
// Responses map to sentinel errors from the shared package:
//   - [shared.ErrTokenExpired] : 401, reauthorization needed
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrRateLimited] : 429
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrAPIRequest] : any other failure
//
// # API Mappings
//
// JSON payloads are decoded into typed records ([SpotifyAlbum], [SpotifySimpleTrack], ...) at this
// boundary; nothing downstream handles untyped responses.
package services
