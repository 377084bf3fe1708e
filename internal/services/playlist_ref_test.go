package services

import (
	"testing"

	"github.com/desertthunder/moodsplit/internal/shared"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"URL", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", "37i9dQZF1DXcBWIGoYBM5M", false},
		{"Localized URL", "https://open.spotify.com/intl-tr/playlist/abc123", "abc123", false},
		{"URI", "spotify:playlist:abc123", "abc123", false},
		{"Bare ID", "  abc123  ", "abc123", false},
		{"Empty", "   ", "", true},
		{"Broken URL", "https://open.spotify.com/playlist/", "", true},
		{"Bad URI", "spotify:playlist:", "", true},
		{"Unrecognized", "https://example.com/list?id=1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPlaylistID(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if !shared.IsValidation(err) {
					t.Errorf("expected validation error, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
