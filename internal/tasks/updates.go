package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/mood"
)

// ProgressUpdate represents a progress event during a classification run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchTracks Phase = iota
	PlanBatches
	ClassifyBatch
	BatchDone
	WriteArtifacts
	Completed
)

func (p Phase) String() string {
	switch p {
	case FetchTracks:
		return "fetch_tracks"
	case PlanBatches:
		return "plan_batches"
	case ClassifyBatch:
		return "classify_batch"
	case BatchDone:
		return "batch_done"
	case WriteArtifacts:
		return "write_artifacts"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

func fetchTracksUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s from Spotify...", playlistID),
	}
}

func planUpdate(tracks, batches, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlanBatches,
		Step:    0,
		Total:   batches,
		Message: fmt.Sprintf("%d tracks in %d batches of up to %d", tracks, batches, size),
	}
}

func classifyBatchUpdate(batch mood.Batch, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClassifyBatch,
		Step:    batch.Number,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Classifying %d tracks...", batch.Number, total, len(batch.Tracks)),
		Data:    batch,
	}
}

func batchDoneUpdate(entry models.BatchLog, total int) ProgressUpdate {
	mark := "✓"
	detail := strings.Join(entry.UniqueLabels, ", ")
	if entry.Status == models.BatchStatusFallback {
		mark = "✗"
		detail = "audio fallback: " + entry.Reason
	}
	return ProgressUpdate{
		Phase:   BatchDone,
		Step:    entry.Batch,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s (%.2fs)", entry.Batch, total, mark, detail, entry.DurationSec),
		Data:    entry,
	}
}

func writeArtifactsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteArtifacts,
		Step:    0,
		Total:   1,
		Message: "Writing run artifacts...",
	}
}

func completedUpdate(result *models.ClassifyResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    result.TotalBatches,
		Total:   result.TotalBatches,
		Message: fmt.Sprintf("Classified %d tracks, %d failed batches", result.TotalSongs, len(result.FailedBatches)),
		Data:    result,
	}
}
