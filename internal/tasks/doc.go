// Package tasks runs playlist classification with real-time progress reporting.
//
// # Pipeline
//
// [ClassifyEngine.Run] resolves a playlist reference, fetches its tracks and hands them to
// [ClassifyEngine.Classify], which:
//
//  1. Plans consecutive batches ([mood.PlanBatches])
//  2. Builds one prompt per batch and sends it through a [Classifier] with retry
//  3. Parses the reply into exactly one allowed label per track
//  4. Falls back to audio-feature hints when a batch exhausts its retries
//  5. Applies hint corrections and aggregates stats and groups ([ResultAggregator])
//  6. Writes artifacts to an optional [ArtifactSink]
//
// Batches run strictly one at a time with a configurable pause between them.
// When a batch fell back and [Options.FailOnBatchError] is set, the run returns an
// [*AggregateBatchFailure] that still carries the complete result.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
