// Package services implements the external collaborators of the classification pipeline.
//
// # Interfaces
//
//   - [TrackSource]: playlist reference to ordered tracks with audio features
//   - [TextGenerator]: prompt to raw model text
//   - [PlaylistWriter]: grouped tracks to user playlists
//
// # Spotify
//
// [SpotifyService] reads playlists with the client-credentials grant and writes playlists with a user token
// obtained through the authorization-code flow ([SpotifyService.AuthURL], [SpotifyService.Exchange]).
// Requests are paced by a token-bucket limiter. Audio features are fetched in chunks of 100; a failed
// chunk is logged and its tracks keep nil features.
//
// # Text generation
//
// [OpenRouterGenerator] talks to the OpenAI-compatible chat completions API and [AnthropicGenerator] uses
// the Anthropic SDK. Both return a [shared.ConfigurationError] at construction when no key is configured.
//
// # Retry
//
// [ClassificationClient] retries every failure up to maxRetries times. Between attempts it waits
// min(10n, 30) seconds when the error looks like a rate limit and min(2^n, 8) seconds otherwise.
// Exhausted retries produce a [*ProviderError] carrying the last error.
//
// # Error Handling
//
// Services wrap sentinels from the shared package:
//   - [shared.ErrRateLimited] : HTTP 429
//   - [shared.ErrServiceUnavailable] : HTTP 5xx from the model provider
//   - [shared.ErrEmptyResponse] : provider returned no text
//   - [shared.ErrTokenExpired] : Spotify rejected the user token
//   - [shared.ErrPlaylistNotFound] : playlist ID not found
//   - [shared.ErrAPIRequest] : any other failed request
package services
