// Package mood holds the pure parts of the classification pipeline.
//
// # Emotions
//
// [NormalizeEmotions] turns the caller's label list into an [Emotions] set: trimmed, lower-cased,
// de-duplicated, first occurrence wins. The first label is the fallback label.
//
// # Batching and prompts
//
// [PlanBatches] splits tracks into order-preserving [Batch] values numbered from 1.
// [BuildPrompt] renders one batch and the allowed labels into the classifier instruction,
// including a compact audio feature hint per track and the strict JSON response schema.
//
// # Parsing
//
// [Parser] recovers exactly one label per track from whatever text the classifier returned.
// Candidates are mapped onto the allowed set by a [LabelNormalizer], an ordered list of [Matcher]
// strategies (exact, diacritic-folded, synonym table, substring containment) with the fallback label
// as the last resort. Parsing never fails.
//
// # Audio hints
//
// [FallbackLabel] derives a label from valence/energy thresholds when a batch could not be classified,
// and [Adjust] overrides classifier labels that strongly contradict the audio signal.
package mood
