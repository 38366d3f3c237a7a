// Package server provides HTTP routing, middleware, and handlers for the CLI's short-lived servers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow used by the auth command.
// A temporary server listens on the configured redirect address, handles one callback, and shuts down.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback.
//
// # Watch Endpoints
//
// [MonitorHandler] serves /metrics and /healthz while the watch command runs. [PassStatus] holds the
// outcome of the latest scheduled pass for the health report.
package server
