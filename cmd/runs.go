package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodsplit/internal/formatter"
	"github.com/desertthunder/moodsplit/internal/repositories"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/urfave/cli/v3"
)

// openRuns opens the run history database, applying migrations on first use.
func (r *Runner) openRuns() (*repositories.RunRepository, func(), error) {
	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repositories.NewRunRepository(db), func() { db.Close() }, nil
}

// RunsList prints recent runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	repo, closeDB, err := r.openRuns()
	if err != nil {
		return err
	}
	defer closeDB()

	runs, err := repo.List(ctx, repositories.RunFilter{
		PlaylistID: cmd.String("playlist"),
		Limit:      cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		for _, run := range runs {
			run.Result = nil
		}
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded\n")
	}

	r.writePlain("Found %d runs:\n\n", len(runs))
	for _, run := range runs {
		r.writePlain("%d. %s\n", run.Sequence, run.ID)
		r.writePlain("   Playlist: %s\n", run.PlaylistID)
		r.writePlain("   Provider: %s\n", run.Provider)
		r.writePlain("   Songs: %d in %d batches (%d failed)\n", run.TotalSongs, run.TotalBatches, run.FailedBatches)
		r.writePlain("   Created: %s\n\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// RunsShow prints one run with its label distribution and batch logs.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	repo, closeDB, err := r.openRuns()
	if err != nil {
		return err
	}
	defer closeDB()

	run, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(run, true)
	}

	r.writePlain("Run %s (#%d)\n", run.ID, run.Sequence)
	r.writePlain("Provider: %s\n\n", run.Provider)

	data, err := formatter.Render(run.Result, formatter.FormatText)
	if err != nil {
		return err
	}
	if err := r.writeBytes(data); err != nil {
		return err
	}

	r.writePlainln("Batches:")
	for _, entry := range run.Result.BatchLogs {
		r.writePlain("  %d. %s %.2fs %v\n", entry.Batch, entry.Status, entry.DurationSec, entry.Labels)
		if entry.Reason != "" {
			r.writePlain("     reason: %s\n", entry.Reason)
		}
	}
	return nil
}

// RunsDelete soft-deletes a run.
func (r *Runner) RunsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	repo, closeDB, err := r.openRuns()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted run %s\n", id)
}
