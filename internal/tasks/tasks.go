package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/mood"
	"github.com/desertthunder/moodsplit/internal/services"
	"github.com/desertthunder/moodsplit/internal/shared"
)

// DefaultDelay is the pause between consecutive batches.
const DefaultDelay = 250 * time.Millisecond

// Options controls batching, retries and the failure policy of a run.
type Options struct {
	BatchSize        int
	MaxRetries       int
	Delay            time.Duration
	FailOnBatchError bool
}

// DefaultOptions returns batch size 20, 3 retries, 250ms delay and fail-on-batch-error.
func DefaultOptions() Options {
	return Options{
		BatchSize:        mood.DefaultBatchSize,
		MaxRetries:       services.DefaultMaxRetries,
		Delay:            DefaultDelay,
		FailOnBatchError: true,
	}
}

// OptionsFromConfig maps the classifier config section onto [Options]. Non-positive sizes
// and retry counts are floored to 1; a negative delay becomes 0.
func OptionsFromConfig(c shared.ClassifierConfig) Options {
	return Options{
		BatchSize:        max(1, c.BatchSize),
		MaxRetries:       max(1, c.MaxRetries),
		Delay:            time.Duration(max(0, c.DelayMS)) * time.Millisecond,
		FailOnBatchError: c.FailOnBatchError,
	}
}

// Classifier is the part of [services.ClassificationClient] the engine depends on.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (*services.Classification, error)
	Provider() string
}

// AggregateBatchFailure is returned when batches fell back to audio hints and the run is configured
// to fail on batch errors. Result holds the complete, fallback-filled run.
type AggregateBatchFailure struct {
	Failed []models.FailedBatch
	Result *models.ClassifyResult
}

func (e *AggregateBatchFailure) Error() string {
	reasons := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		reasons[i] = fmt.Sprintf("batch %d: %s", f.Batch, f.Reason)
	}
	return fmt.Sprintf("%d batches failed at the classifier, results are not reliable, please retry: %s",
		len(e.Failed), strings.Join(reasons, "; "))
}

// Unwrap lets errors.Is match [shared.ErrServiceUnavailable].
func (e *AggregateBatchFailure) Unwrap() error { return shared.ErrServiceUnavailable }

// RateLimited reports whether any failed batch gave up on a rate limit.
func (e *AggregateBatchFailure) RateLimited() bool {
	for _, f := range e.Failed {
		if services.IsRateLimitText(f.Reason) {
			return true
		}
	}
	return false
}

// ClassifyEngine runs the pipeline: plan, prompt, classify with retry, parse, fall back, adjust, aggregate.
type ClassifyEngine struct {
	source     services.TrackSource
	classifier Classifier
	parser     *mood.Parser
	sink       ArtifactSink
	opts       Options
	sleep      services.Sleeper
	now        func() time.Time
	logger     *log.Logger
}

// EngineOption configures a [ClassifyEngine].
type EngineOption func(*ClassifyEngine)

// WithSink sets where artifacts are written after each run.
func WithSink(s ArtifactSink) EngineOption {
	return func(e *ClassifyEngine) { e.sink = s }
}

// WithParser replaces the default response parser, e.g. to use a custom synonym table.
func WithParser(p *mood.Parser) EngineOption {
	return func(e *ClassifyEngine) {
		if p != nil {
			e.parser = p
		}
	}
}

// WithEngineSleeper replaces the inter-batch sleep.
func WithEngineSleeper(s services.Sleeper) EngineOption {
	return func(e *ClassifyEngine) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *ClassifyEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEngineLogger sets the run logger.
func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *ClassifyEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewClassifyEngine creates an engine. source may be nil when only [ClassifyEngine.Classify] is used.
func NewClassifyEngine(source services.TrackSource, classifier Classifier, opts Options, options ...EngineOption) *ClassifyEngine {
	e := &ClassifyEngine{
		source:     source,
		classifier: classifier,
		parser:     mood.NewParser(nil),
		opts:       opts,
		sleep:      services.SleepWithContext,
		now:        time.Now,
		logger:     shared.DiscardLogger(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.opts.BatchSize < 1 {
		e.opts.BatchSize = 1
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ClassifyEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run resolves ref, fetches its tracks and classifies them.
func (e *ClassifyEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, ref string, emotions []string) (*models.ClassifyResult, error) {
	allowed, err := mood.NormalizeEmotions(emotions)
	if err != nil {
		return nil, err
	}
	if e.classifier == nil {
		return nil, &shared.ConfigurationError{Key: "classifier.provider"}
	}
	if e.source == nil {
		return nil, fmt.Errorf("%w: track source not initialized", shared.ErrServiceUnavailable)
	}

	playlistID, err := services.ExtractPlaylistID(ref)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchTracksUpdate(playlistID))
	tracks, err := e.source.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	return e.classify(ctx, progress, playlistID, tracks, allowed)
}

// Classify labels tracks already fetched for playlistID.
//
// It returns a [shared.ValidationError] when emotions normalize to nothing and an
// [*AggregateBatchFailure] when a batch fell back and Options.FailOnBatchError is set.
func (e *ClassifyEngine) Classify(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, tracks []models.Track, emotions []string) (*models.ClassifyResult, error) {
	allowed, err := mood.NormalizeEmotions(emotions)
	if err != nil {
		return nil, err
	}
	if e.classifier == nil {
		return nil, &shared.ConfigurationError{Key: "classifier.provider"}
	}
	return e.classify(ctx, progress, playlistID, tracks, allowed)
}

func (e *ClassifyEngine) classify(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, tracks []models.Track, allowed mood.Emotions) (*models.ClassifyResult, error) {
	runID := shared.GenerateID()
	started := e.now()
	logger := shared.WithLogger(e.logger, "run_id", runID, "playlist_id", playlistID)
	provider := e.classifier.Provider()

	batches := mood.PlanBatches(tracks, e.opts.BatchSize)
	logger.Info("classification started", "provider", provider, "emotions", allowed.String(),
		"tracks", len(tracks), "batch_size", e.opts.BatchSize, "batches", len(batches))
	e.sendProgress(progress, planUpdate(len(tracks), len(batches), e.opts.BatchSize))

	agg := NewResultAggregator(allowed, logger)
	for i, batch := range batches {
		e.sendProgress(progress, classifyBatchUpdate(batch, len(batches)))

		outcome, err := e.classifyBatch(ctx, logger, batch, allowed, provider)
		if err != nil {
			return nil, err
		}
		agg.Add(outcome)
		e.sendProgress(progress, batchDoneUpdate(agg.logs[len(agg.logs)-1], len(batches)))

		if e.opts.Delay > 0 && i < len(batches)-1 {
			if err := e.sleep(ctx, e.opts.Delay); err != nil {
				return nil, err
			}
		}
	}

	result := agg.Result(playlistID, len(tracks), len(batches))
	result.RunID = runID
	result.StartedAt = started
	result.FinishedAt = e.now()

	if e.sink != nil {
		e.sendProgress(progress, writeArtifactsUpdate())
		artifacts := &RunArtifacts{PlaylistID: playlistID, Provider: provider, Tracks: tracks, Result: result}
		if err := e.sink.WriteRun(ctx, artifacts); err != nil {
			logger.Error("failed to write run artifacts", "error", err)
		}
	}

	logger.Info("classification finished", "tracks", result.TotalSongs, "failed_batches", len(result.FailedBatches))
	e.sendProgress(progress, completedUpdate(result))

	if len(result.FailedBatches) > 0 && e.opts.FailOnBatchError {
		return nil, &AggregateBatchFailure{Failed: result.FailedBatches, Result: result}
	}
	return result, nil
}

// classifyBatch returns the outcome of one batch. Classifier failures become fallback outcomes;
// only cancellation of ctx is returned as an error.
func (e *ClassifyEngine) classifyBatch(ctx context.Context, logger *log.Logger, batch mood.Batch, allowed mood.Emotions, provider string) (BatchOutcome, error) {
	started := e.now()
	prompt := mood.BuildPrompt(batch, allowed)
	blog := logger.With("batch", batch.Number)
	blog.Info("sending batch to classifier", "tracks", len(batch.Tracks))

	outcome := BatchOutcome{Batch: batch, Prompt: prompt, Provider: provider}

	cls, err := e.classifier.Classify(ctx, prompt)
	outcome.Duration = e.now().Sub(started)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, fmt.Errorf("%w: %w", shared.ErrTimeout, ctxErr)
		}

		var perr *services.ProviderError
		if errors.As(err, &perr) {
			outcome.Attempts = perr.Attempts
		}

		outcome.Status = models.BatchStatusFallback
		outcome.Reason = err.Error()
		outcome.Labels = make([]string, len(batch.Tracks))
		for i, track := range batch.Tracks {
			outcome.Labels[i] = mood.FallbackLabel(track, allowed, allowed.Fallback())
		}
		blog.Error("batch failed, using audio fallback labels", "error", err, "duration", outcome.Duration)
		return outcome, nil
	}

	outcome.Status = models.BatchStatusOK
	outcome.Provider = cls.Provider
	outcome.Attempts = cls.Attempts
	outcome.ResponseText = cls.Text
	outcome.RawResponse = cls.RawResponse
	outcome.Labels = e.parser.Parse(cls.Text, allowed, len(batch.Tracks))

	if unique := uniqueSorted(outcome.Labels); len(unique) == 1 && len(batch.Tracks) > 1 {
		blog.Warn("batch returned a single label", "label", unique[0])
	}
	blog.Info("batch classified", "attempt", cls.Attempts, "duration", outcome.Duration)
	return outcome, nil
}
