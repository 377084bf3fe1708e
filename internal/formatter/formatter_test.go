package formatter

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/shared"
	th "github.com/desertthunder/moodsplit/internal/testing"
)

func sampleResult() *models.ClassifyResult {
	return &models.ClassifyResult{
		RunID:        "run-1",
		PlaylistID:   "pl123",
		TotalSongs:   3,
		TotalBatches: 1,
		Emotions:     []string{"mutlu", "sakin", "üzgün"},
		EmotionStats: map[string]models.EmotionStat{
			"mutlu": {Count: 2, Percentage: 66.67},
			"sakin": {Count: 1, Percentage: 33.33},
			"üzgün": {Count: 0, Percentage: 0},
		},
		GroupedTracks: map[string][]models.GroupedTrack{
			"mutlu": {
				{ID: models.StringPtr("t1"), Name: "Song One", Artist: "Artist, One", URL: "https://open.spotify.com/track/t1"},
				{ID: nil, Name: "Song Two", Artist: "Artist Two"},
			},
			"sakin": {{ID: models.StringPtr("t3"), Name: "Song Three", Artist: "Artist Three"}},
			"üzgün": {},
		},
		FailedBatches: []models.FailedBatch{},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleResult())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("CSV output is not parseable: %v", err)
		}

		if len(records) != 4 {
			t.Fatalf("expected header + 3 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Emotion,ID,Name,Artist,URL" {
			t.Errorf("CSV headers = %v", records[0])
		}
		if records[1][0] != "mutlu" || records[1][1] != "t1" || records[1][3] != "Artist, One" {
			t.Errorf("first row = %v", records[1])
		}
		if records[2][1] != "" {
			t.Errorf("track without id should have empty ID column, got %q", records[2][1])
		}
		if records[3][0] != "sakin" {
			t.Errorf("rows should follow label order, got %v", records[3])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleResult())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Playlist pl123",
			"**Tracks**: 3",
			"| mutlu | 2 | 66.67% |",
			"## Mutlu (2)",
			"1. [Song One - Artist, One](https://open.spotify.com/track/t1)",
			"2. Song Two - Artist Two",
			"## Üzgün (0)",
			"_No tracks_",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Failed Batches") {
			t.Error("Markdown should omit failed batches section when none failed")
		}
	})

	t.Run("ExportToMarkdown With Failures", func(t *testing.T) {
		result := sampleResult()
		result.FailedBatches = []models.FailedBatch{{Batch: 2, Reason: "rate limit"}}

		data, err := ExportToMarkdown(result)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		if !strings.Contains(string(data), "- Batch 2: rate limit") {
			t.Errorf("Markdown missing failed batch:\n%s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleResult())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"Playlist: pl123", "Tracks: 3 in 1 batches", "mutlu: 2 (66.67%)", "  - Song Three - Artist Three", "üzgün: 0 (0.00%)"} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("Unlisted Labels Are Rendered", func(t *testing.T) {
		result := sampleResult()
		result.GroupedTracks["extra"] = []models.GroupedTrack{{Name: "Odd"}}

		data, err := ExportToText(result)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "  - Odd - ") {
			t.Errorf("text missing unlisted label tracks:\n%s", data)
		}
	})

	t.Run("ExportInfoToText", func(t *testing.T) {
		info := &models.PlaylistInfo{
			PlaylistID:   "pl123",
			TotalSongs:   42,
			ExampleBatch: []models.Track{{Name: "A", Artist: "B"}},
		}

		output := string(ExportInfoToText(info))
		if !strings.Contains(output, "Tracks: 42") || !strings.Contains(output, "1. A - B") {
			t.Errorf("info text = %s", output)
		}
	})
}

func TestRender(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "Playlist: pl123"},
		{"text", "Playlist: pl123"},
		{"Markdown", "# Playlist pl123"},
		{"md", "# Playlist pl123"},
		{"csv", "Emotion,ID,Name,Artist,URL"},
		{"json", `"playlist_id": "pl123"`},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			data, err := Render(sampleResult(), tt.format)
			if err != nil {
				t.Fatalf("Render(%q) error = %v", tt.format, err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("Render(%q) missing %q:\n%s", tt.format, tt.want, data)
			}
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := Render(sampleResult(), "xml"); !shared.IsValidation(err) {
			t.Errorf("Render(xml) error = %v, want validation error", err)
		}
	})
}

func TestWriteCSVExport(t *testing.T) {
	t.Run("WithDefaultPath", func(t *testing.T) {
		t.Chdir(t.TempDir())

		result, err := WriteCSVExport(sampleResult(), "")
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		if result.TracksFile != "pl123_tracks.csv" || result.SummaryFile != "pl123_result.json" {
			t.Errorf("unexpected paths: %+v", result)
		}
		th.AssertFileExists(t, result.TracksFile)
		th.AssertFileExists(t, result.SummaryFile)

		if content := th.MustReadFile(t, result.SummaryFile); !strings.Contains(content, `"emotion_stats"`) {
			t.Errorf("summary missing stats: %s", content)
		}
	})

	t.Run("WithCustomPath", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "custom")

		result, err := WriteCSVExport(sampleResult(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		th.AssertFileExists(t, base+"_tracks.csv")
		th.AssertFileExists(t, result.SummaryFile)
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		if _, err := WriteCSVExport(sampleResult(), filepath.Join(t.TempDir(), "missing", "dir", "x")); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}
