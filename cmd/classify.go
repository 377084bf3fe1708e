package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/desertthunder/moodsplit/internal/artifacts"
	"github.com/desertthunder/moodsplit/internal/formatter"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/mood"
	"github.com/desertthunder/moodsplit/internal/repositories"
	"github.com/desertthunder/moodsplit/internal/services"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/desertthunder/moodsplit/internal/tasks"
	"github.com/urfave/cli/v3"
)

// newEngine wires the classification pipeline from the config.
// The returned cleanup closes the run history database and is never nil.
func (r *Runner) newEngine() (*tasks.ClassifyEngine, func(), error) {
	noop := func() {}

	gen, err := r.textGenerator()
	if err != nil {
		return nil, noop, err
	}

	synonyms, err := mood.LoadSynonyms(r.config.Classifier.SynonymsPath)
	if err != nil {
		return nil, noop, err
	}
	parser := mood.NewParser(mood.NewLabelNormalizer(synonyms).WithLogger(r.logger))

	opts := tasks.OptionsFromConfig(r.config.Classifier)
	client := services.NewClassificationClient(gen, opts.MaxRetries,
		services.WithClassifierLogger(shared.WithLogger(r.logger, "provider", gen.Name())),
	)

	var (
		sinks tasks.MultiSink
		db    *sql.DB
	)
	if r.config.Artifacts.Enabled {
		sinks = append(sinks, artifacts.NewFileSink(r.config.Artifacts.Dir, r.logger))
	}
	if r.config.Database.Path != "" {
		db, err = shared.OpenMigrated(r.config.Database)
		if err != nil {
			r.logger.Warn("run history disabled", "error", err)
		} else {
			sinks = append(sinks, repositories.NewRunRepository(db))
		}
	}

	engine := tasks.NewClassifyEngine(r.spotifyClient(), client, opts,
		tasks.WithSink(sinks),
		tasks.WithParser(parser),
		tasks.WithEngineLogger(r.logger),
	)

	cleanup := noop
	if db != nil {
		cleanup = func() { db.Close() }
	}
	return engine, cleanup, nil
}

// splitEmotions accepts repeated and comma-separated flag values.
func splitEmotions(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Classify runs the pipeline for --playlist and prints the result.
//
// When batches failed and the run is configured to fail, the result is still printed before the error is returned.
func (r *Runner) Classify(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.String("playlist")
	emotions := splitEmotions(cmd.StringSlice("emotion"))

	if cmd.Bool("interactive") {
		return r.classifyInteractive(ctx, ref, emotions)
	}

	engine, cleanup, err := r.newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	result, runErr := r.runWithProgress(ctx, engine, ref, emotions)

	var failure *tasks.AggregateBatchFailure
	if errors.As(runErr, &failure) {
		result = failure.Result
		r.logger.Warn("batches fell back to audio hints", "failed", len(failure.Failed))
	} else if runErr != nil {
		return runErr
	}

	if err := r.writeResult(cmd, result); err != nil {
		return err
	}
	return runErr
}

// runWithProgress logs each progress update while the engine runs.
func (r *Runner) runWithProgress(ctx context.Context, engine *tasks.ClassifyEngine, ref string, emotions []string) (*models.ClassifyResult, error) {
	progress := make(chan tasks.ProgressUpdate, 32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String())
		}
	}()

	result, err := engine.Run(ctx, progress, ref, emotions)
	close(progress)
	wg.Wait()
	return result, err
}

func (r *Runner) writeResult(cmd *cli.Command, result *models.ClassifyResult) error {
	if result == nil {
		return nil
	}

	output := cmd.String("output")
	format := cmd.String("format")

	if cmd.Bool("json") {
		if output == "" {
			return r.writeJSON(result, cmd.Bool("pretty"))
		}
		data, err := shared.MarshalJSON(result, cmd.Bool("pretty"))
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return r.writeFile(output, data)
	}

	if format == formatter.FormatCSV && output != "" {
		files, err := formatter.WriteCSVExport(result, output)
		if err != nil {
			return err
		}
		r.logger.Info("csv export written", "tracks", files.TracksFile, "summary", files.SummaryFile)
		return r.writePlain("✓ Exported %s and %s\n", files.TracksFile, files.SummaryFile)
	}

	data, err := formatter.Render(result, format)
	if err != nil {
		return err
	}
	if output != "" {
		return r.writeFile(output, data)
	}
	return r.writeBytes(data)
}

func (r *Runner) writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	r.logger.Info("output written", "file", path)
	return r.writePlain("✓ Output written to %s\n", path)
}
