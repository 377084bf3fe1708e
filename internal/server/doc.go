// Package server provides HTTP routing, middleware, the classification API and OAuth handling.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// Middleware runs outside the method filter, so [CORS] answers preflight requests for every route.
//
// # API
//
// [API] serves the endpoints consumed by the web frontend:
//
//	GET  /               liveness
//	GET  /health         liveness
//	POST /playlist_info  playlist id, size and the first ten tracks
//	POST /classify       full classification run
//	POST /spotify/token  authorization code exchange
//	POST /save_playlists create one playlist per label
//
// Errors are JSON objects with a "detail" field. Bad input maps to 400, missing configuration to 500,
// classifier rate limits to 503 and rejected Spotify tokens to 401.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow for the CLI.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
