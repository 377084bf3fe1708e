package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/desertthunder/moodsplit/internal/ui"
)

// classifyInteractive runs the classification inside the terminal UI.
func (r *Runner) classifyInteractive(ctx context.Context, ref string, emotions []string) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/moodsplit-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, cleanup, err := r.newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	model := ui.NewModel(ctx, engine, ref, emotions, r.tuiSaver())
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if m, ok := final.(ui.Model); ok {
		return m.Err()
	}
	return nil
}

// tuiSaver returns a save action bound to the stored user token, or nil when none is saved.
func (r *Runner) tuiSaver() ui.Saver {
	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return nil
	}
	spotify := r.spotifyClient()
	return func(ctx context.Context, result *models.ClassifyResult) (*models.SaveResult, error) {
		return spotify.SaveGrouped(ctx, token, models.SaveRequest{GroupedTracks: result.GroupedTracks})
	}
}
