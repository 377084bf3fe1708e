package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/moodsplit/internal/formatter"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/services"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistInfo prints the track count and the first batch of a playlist.
func (r *Runner) PlaylistInfo(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.String("playlist")
	r.logger.Infof("fetching playlist info for %v", ref)

	info, err := r.spotifyClient().Info(ctx, ref)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, true)
	}
	return r.writeBytes(formatter.ExportInfoToText(info))
}

// parseNames turns label=name pairs into a map keyed by label.
func parseNames(pairs []string) (map[string]string, error) {
	names := map[string]string{}
	for _, pair := range pairs {
		label, name, ok := strings.Cut(pair, "=")
		label, name = strings.TrimSpace(label), strings.TrimSpace(name)
		if !ok || label == "" || name == "" {
			return nil, shared.NewValidationError("name", "expected label=name, got %q", pair)
		}
		names[label] = name
	}
	return names, nil
}

// loadSaveRequest reads the grouped tracks of a result written by classify --json.
func loadSaveRequest(path string) (models.SaveRequest, error) {
	var req models.SaveRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read input: %w", err)
	}

	var result models.ClassifyResult
	if err := json.Unmarshal(data, &result); err != nil {
		return req, shared.NewValidationError("input", "invalid result JSON: %v", err)
	}
	if len(result.GroupedTracks) == 0 {
		return req, shared.NewValidationError("input", "no grouped_tracks in %s", path)
	}

	req.GroupedTracks = result.GroupedTracks
	return req, nil
}

// PlaylistSave creates one Spotify playlist per label from a saved classification result.
func (r *Runner) PlaylistSave(ctx context.Context, cmd *cli.Command) error {
	req, err := loadSaveRequest(cmd.String("input"))
	if err != nil {
		return err
	}
	if req.PlaylistNames, err = parseNames(cmd.StringSlice("name")); err != nil {
		return err
	}
	req.Public = cmd.Bool("public")

	token, err := r.userToken(cmd.String("token"))
	if err != nil {
		return err
	}

	result, err := r.spotifyClient().SaveGrouped(ctx, token, req)
	if err != nil {
		if services.IsUnauthorized(err) {
			return fmt.Errorf("%w: %v (run 'moodsplit spotify auth')", shared.ErrTokenExpired, err)
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("✓ Created %d playlists\n", len(result.CreatedPlaylists))
	for _, p := range result.CreatedPlaylists {
		r.writePlain("  %s: %s (%d tracks)\n", p.Emotion, p.PlaylistName, p.AddedTracks)
		r.writePlain("    %s\n", p.PlaylistURL)
	}
	for _, s := range result.Skipped {
		r.writePlain("  skipped %s: %s\n", s.Emotion, s.Reason)
	}
	return nil
}
