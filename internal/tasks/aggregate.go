package tasks

import (
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/mood"
	"github.com/desertthunder/moodsplit/internal/shared"
)

// BatchOutcome is the labels and provenance of one processed batch.
type BatchOutcome struct {
	Batch        mood.Batch
	Labels       []string
	Status       string
	Reason       string
	Provider     string
	Attempts     int
	Duration     time.Duration
	Prompt       string
	ResponseText string
	RawResponse  string
}

// ResultAggregator merges batch outcomes in playlist order and derives stats and groups.
type ResultAggregator struct {
	emotions mood.Emotions
	merged   []models.MergedRecord
	failed   []models.FailedBatch
	logs     []models.BatchLog
	raw      []models.RawResponseLog
	logger   *log.Logger
}

// NewResultAggregator creates an aggregator for the allowed labels.
func NewResultAggregator(emotions mood.Emotions, logger *log.Logger) *ResultAggregator {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &ResultAggregator{emotions: emotions, failed: []models.FailedBatch{}, logger: logger}
}

// Add records a batch. Every (track, label) pair goes through [mood.Adjust] before merging.
// Outcomes must be added in batch order.
func (a *ResultAggregator) Add(o BatchOutcome) {
	elapsed := shared.Round2(o.Duration.Seconds())
	entry := models.BatchLog{
		Batch:       o.Batch.Number,
		Status:      o.Status,
		DurationSec: elapsed,
		Provider:    o.Provider,
		Attempt:     o.Attempts,
		Songs:       o.Batch.Songs(),
		Labels:      slices.Clone(o.Labels),
		Reason:      o.Reason,
	}

	if o.Status == models.BatchStatusFallback {
		a.failed = append(a.failed, models.FailedBatch{Batch: o.Batch.Number, Reason: o.Reason})
	} else {
		entry.UniqueLabels = uniqueSorted(o.Labels)
		entry.RawResponseText = o.ResponseText
	}

	a.logs = append(a.logs, entry)
	a.raw = append(a.raw, models.RawResponseLog{
		Batch:             o.Batch.Number,
		Provider:          o.Provider,
		Status:            o.Status,
		Attempt:           o.Attempts,
		DurationSec:       elapsed,
		Reason:            o.Reason,
		Prompt:            o.Prompt,
		ModelResponseText: o.ResponseText,
		RawHTTPResponse:   o.RawResponse,
	})

	for i, track := range o.Batch.Tracks {
		label := a.emotions.Fallback()
		if i < len(o.Labels) {
			label = o.Labels[i]
		}

		adjusted := mood.Adjust(track, label, a.emotions)
		if adjusted != label {
			a.logger.Info("label corrected by audio hint", "track", track.Display(), "from", label, "to", adjusted)
		}

		a.merged = append(a.merged, models.MergedRecord{
			ID:      track.ID,
			Name:    track.Name,
			Artist:  track.Artist,
			URL:     track.URL,
			Emotion: adjusted,
		})
	}
}

// Failed returns the batches recorded with fallback labels.
func (a *ResultAggregator) Failed() []models.FailedBatch {
	return a.failed
}

// Result builds the run summary. Every allowed label is a key in the stats and groups,
// even with no tracks; unexpected labels are appended after them.
func (a *ResultAggregator) Result(playlistID string, totalSongs, totalBatches int) *models.ClassifyResult {
	keys := slices.Clone([]string(a.emotions))
	grouped := make(map[string][]models.GroupedTrack, len(keys))
	for _, label := range keys {
		grouped[label] = []models.GroupedTrack{}
	}

	counts := make(map[string]int, len(keys))
	for _, rec := range a.merged {
		if _, ok := grouped[rec.Emotion]; !ok {
			keys = append(keys, rec.Emotion)
			grouped[rec.Emotion] = []models.GroupedTrack{}
		}
		grouped[rec.Emotion] = append(grouped[rec.Emotion], models.GroupedTrack{
			ID: rec.ID, Name: rec.Name, Artist: rec.Artist, URL: rec.URL,
		})
		counts[rec.Emotion]++
	}

	total := len(a.merged)
	stats := make(map[string]models.EmotionStat, len(keys))
	for _, label := range keys {
		stat := models.EmotionStat{Count: counts[label]}
		if total > 0 {
			stat.Percentage = shared.Round2(float64(counts[label]) / float64(total) * 100)
		}
		stats[label] = stat
	}

	return &models.ClassifyResult{
		PlaylistID:    playlistID,
		TotalSongs:    totalSongs,
		TotalBatches:  totalBatches,
		Emotions:      keys,
		EmotionStats:  stats,
		GroupedTracks: grouped,
		FailedBatches: slices.Clone(a.failed),
		Merged:        a.merged,
		BatchLogs:     a.logs,
		RawResponses:  a.raw,
	}
}

func uniqueSorted(labels []string) []string {
	out := slices.Clone(labels)
	slices.Sort(out)
	return slices.Compact(out)
}
