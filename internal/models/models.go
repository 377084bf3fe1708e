// package models defines the data model for the mood classification service
package models

import "time"

// AudioFeatures holds numeric track descriptors reported by the provider.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Liveness         float64 `json:"liveness"`
}

// Track represents a playlist entry. ID is nil for local files and unavailable tracks.
type Track struct {
	ID            *string        `json:"id"`
	Name          string         `json:"name"`
	Artist        string         `json:"artist"`
	URL           string         `json:"url"`
	AudioFeatures *AudioFeatures `json:"audio_features,omitempty"`
}

// TrackID returns the identifier or "" when absent.
func (t Track) TrackID() string {
	if t.ID == nil {
		return ""
	}
	return *t.ID
}

// Display renders "name - artist".
func (t Track) Display() string {
	return t.Name + " - " + t.Artist
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MergedRecord is a track with its final emotion label.
type MergedRecord struct {
	ID      *string `json:"id"`
	Name    string  `json:"name"`
	Artist  string  `json:"artist"`
	URL     string  `json:"url"`
	Emotion string  `json:"emotion"`
}

// GroupedTrack is the minimal track shape used for playlist creation.
type GroupedTrack struct {
	ID     *string `json:"id"`
	Name   string  `json:"name"`
	Artist string  `json:"artist"`
	URL    string  `json:"url"`
}

// EmotionStat is the share of tracks assigned to one label.
type EmotionStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FailedBatch records a batch whose classifier calls exhausted all retries.
type FailedBatch struct {
	Batch  int    `json:"batch"`
	Reason string `json:"reason"`
}

// Batch status values used in [BatchLog.Status].
const (
	BatchStatusOK       = "ok"
	BatchStatusFallback = "fallback"
)

// BatchLog is per-batch provenance.
type BatchLog struct {
	Batch           int      `json:"batch"`
	Status          string   `json:"status"`
	DurationSec     float64  `json:"duration_sec"`
	Provider        string   `json:"provider"`
	Attempt         int      `json:"attempt,omitempty"`
	Songs           []string `json:"songs"`
	Labels          []string `json:"labels"`
	UniqueLabels    []string `json:"unique_labels,omitempty"`
	RawResponseText string   `json:"raw_response_text,omitempty"`
	Reason          string   `json:"reason,omitempty"`
}

// RawResponseLog keeps the exact prompt and classifier output for a batch.
type RawResponseLog struct {
	Batch             int     `json:"batch"`
	Provider          string  `json:"provider"`
	Status            string  `json:"status"`
	Attempt           int     `json:"attempt,omitempty"`
	DurationSec       float64 `json:"duration_sec"`
	Reason            string  `json:"reason,omitempty"`
	Prompt            string  `json:"prompt"`
	ModelResponseText string  `json:"model_response_text"`
	RawHTTPResponse   string  `json:"raw_http_response"`
}

// ClassifyResult is the outcome of one classification run.
type ClassifyResult struct {
	RunID         string                    `json:"run_id,omitempty"`
	PlaylistID    string                    `json:"playlist_id"`
	TotalSongs    int                       `json:"total_songs"`
	TotalBatches  int                       `json:"total_batches"`
	Emotions      []string                  `json:"emotions"`
	EmotionStats  map[string]EmotionStat    `json:"emotion_stats"`
	GroupedTracks map[string][]GroupedTrack `json:"grouped_tracks"`
	FailedBatches []FailedBatch             `json:"failed_batches"`
	Merged        []MergedRecord            `json:"-"`
	BatchLogs     []BatchLog                `json:"-"`
	RawResponses  []RawResponseLog          `json:"-"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at"`
}

// PlaylistInfo summarizes a playlist before classification.
type PlaylistInfo struct {
	PlaylistID   string  `json:"playlist_id"`
	TotalSongs   int     `json:"total_songs"`
	ExampleBatch []Track `json:"example_batch"`
}

// CreatedPlaylist describes one playlist written to the provider.
type CreatedPlaylist struct {
	Emotion      string `json:"emotion"`
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	PlaylistURL  string `json:"playlist_url"`
	AddedTracks  int    `json:"added_tracks"`
}

// SkippedPlaylist is a label that produced no playlist.
type SkippedPlaylist struct {
	Emotion string `json:"emotion"`
	Reason  string `json:"reason"`
}

// SaveResult is returned after writing grouped tracks back to the provider.
type SaveResult struct {
	CreatedPlaylists []CreatedPlaylist `json:"created_playlists"`
	Skipped          []SkippedPlaylist `json:"skipped"`
}

// SaveRequest describes which grouped tracks to write and how to name the playlists.
type SaveRequest struct {
	GroupedTracks map[string][]GroupedTrack `json:"grouped_tracks"`
	PlaylistNames map[string]string         `json:"playlist_names"`
	Public        bool                      `json:"public"`
}

// Run is a persisted classification run.
type Run struct {
	ID            string          `json:"id"`
	Sequence      int             `json:"sequence"`
	PlaylistID    string          `json:"playlist_id"`
	Provider      string          `json:"provider"`
	Emotions      []string        `json:"emotions"`
	TotalSongs    int             `json:"total_songs"`
	TotalBatches  int             `json:"total_batches"`
	FailedBatches int             `json:"failed_batches"`
	CreatedAt     time.Time       `json:"created_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	Result        *ClassifyResult `json:"result,omitempty"`
}
