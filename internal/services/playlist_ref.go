package services

import (
	"regexp"
	"strings"

	"github.com/desertthunder/moodsplit/internal/shared"
)

var (
	playlistURLPattern = regexp.MustCompile(`playlist/([a-zA-Z0-9]+)`)
	playlistIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// ExtractPlaylistID accepts an open.spotify.com playlist URL, a spotify:playlist: URI or a bare ID.
// Anything else is a [shared.ValidationError].
func ExtractPlaylistID(ref string) (string, error) {
	value := strings.TrimSpace(ref)
	if value == "" {
		return "", shared.NewValidationError("playlist_url", "playlist URL or ID must not be empty")
	}

	if strings.Contains(value, "spotify.com/playlist/") {
		match := playlistURLPattern.FindStringSubmatch(value)
		if match == nil {
			return "", shared.NewValidationError("playlist_url", "invalid Spotify playlist URL %q", value)
		}
		return match[1], nil
	}

	if id, ok := strings.CutPrefix(value, "spotify:playlist:"); ok {
		if !playlistIDPattern.MatchString(id) {
			return "", shared.NewValidationError("playlist_url", "invalid Spotify playlist URI %q", value)
		}
		return id, nil
	}

	if playlistIDPattern.MatchString(value) {
		return value, nil
	}

	return "", shared.NewValidationError("playlist_url", "unrecognized playlist reference %q", value)
}
