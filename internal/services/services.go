// package services defines the collaborators of the classification pipeline and their HTTP implementations
//
// Spotify, OpenRouter, Anthropic
package services

import (
	"context"

	"github.com/desertthunder/moodsplit/internal/models"
	"golang.org/x/oauth2"
)

// TrackSource resolves a playlist reference into its ordered tracks, audio features attached where available.
type TrackSource interface {
	// PlaylistTracks fetches every track of the playlist referenced by a URL, URI or bare ID.
	PlaylistTracks(ctx context.Context, ref string) ([]models.Track, error)
}

// TextGenerator sends a prompt to a remote text-generation model.
type TextGenerator interface {
	// Generate returns the model's text. Errors may carry rate-limit wording that callers inspect.
	Generate(ctx context.Context, prompt string) (*Generation, error)

	// Name returns the provider name recorded in provenance logs (e.g., "openrouter")
	Name() string
}

// Generation is a raw model response.
type Generation struct {
	Text        string
	RawResponse string
}

// PlaylistWriter creates playlists from grouped tracks on behalf of a user.
type PlaylistWriter interface {
	SaveGrouped(ctx context.Context, token *oauth2.Token, req models.SaveRequest) (*models.SaveResult, error)
}
