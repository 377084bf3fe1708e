// Package models defines the data carried through a mood classification run.
//
// The package contains two categories of types:
//
// 1. Input entities fetched from the playlist provider
//   - [Track] : Song metadata with optional [AudioFeatures]
//
// 2. Run outputs produced by the classification pipeline
//   - [MergedRecord] : Track plus its final emotion label, in playlist order
//   - [EmotionStat] : Per-label count and percentage
//   - [GroupedTrack] : Minimal track fields grouped under a label
//   - [FailedBatch] : Batch number and reason for batches whose retries were exhausted
//   - [BatchLog], [RawResponseLog] : Provenance kept for observability only
//   - [ClassifyResult] : Everything returned to the caller
//
// Nothing here persists across runs except what an artifact sink chooses to write.
package models
