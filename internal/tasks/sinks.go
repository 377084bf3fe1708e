package tasks

import (
	"context"
	"errors"

	"github.com/desertthunder/moodsplit/internal/models"
)

// RunArtifacts is everything a run produces for observability.
type RunArtifacts struct {
	PlaylistID string
	Provider   string
	Tracks     []models.Track
	Result     *models.ClassifyResult
}

// ArtifactSink persists run artifacts. Failures are logged by the engine and never abort a run.
type ArtifactSink interface {
	WriteRun(ctx context.Context, artifacts *RunArtifacts) error
}

// MultiSink fans artifacts out to every sink and joins their errors.
type MultiSink []ArtifactSink

func (m MultiSink) WriteRun(ctx context.Context, artifacts *RunArtifacts) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.WriteRun(ctx, artifacts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
