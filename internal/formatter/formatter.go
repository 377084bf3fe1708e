// package formatter renders classification results as CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/shared"
)

// Format names accepted by [Render].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Render dispatches to the exporter for format. An empty format means text.
func Render(result *models.ClassifyResult, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return ExportToText(result)
	case FormatMarkdown, "md":
		return ExportToMarkdown(result)
	case FormatCSV:
		return ExportToCSV(result)
	case FormatJSON:
		return shared.MarshalJSON(result, true)
	default:
		return nil, shared.NewValidationError("format", "unsupported format %q (text, markdown, csv, json)", format)
	}
}

// labels returns the result's labels in display order, then any grouped label it does not list.
func labels(result *models.ClassifyResult) []string {
	out := append([]string{}, result.Emotions...)
	for label := range result.GroupedTracks {
		found := false
		for _, l := range out {
			if l == label {
				found = true
				break
			}
		}
		if !found {
			out = append(out, label)
		}
	}
	return out
}

func trackID(t models.GroupedTrack) string {
	if t.ID == nil {
		return ""
	}
	return *t.ID
}

// ExportToCSV converts a ClassifyResult to CSV format with columns: Emotion, ID, Name, Artist, URL
func ExportToCSV(result *models.ClassifyResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Emotion", "ID", "Name", "Artist", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, label := range labels(result) {
		for _, track := range result.GroupedTracks[label] {
			record := []string{label, trackID(track), track.Name, track.Artist, track.URL}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a ClassifyResult to Markdown with a stats table and one section per label
func ExportToMarkdown(result *models.ClassifyResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Playlist %s\n\n", result.PlaylistID))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", result.TotalSongs))
	buf.WriteString(fmt.Sprintf("**Batches**: %d\n", result.TotalBatches))
	if result.RunID != "" {
		buf.WriteString(fmt.Sprintf("**Run**: %s\n", result.RunID))
	}
	buf.WriteString("\n")

	buf.WriteString("| Emotion | Count | Percentage |\n")
	buf.WriteString("|---|---:|---:|\n")
	for _, label := range labels(result) {
		stat := result.EmotionStats[label]
		buf.WriteString(fmt.Sprintf("| %s | %d | %.2f%% |\n", label, stat.Count, stat.Percentage))
	}
	buf.WriteString("\n")

	if len(result.FailedBatches) > 0 {
		buf.WriteString("## Failed Batches\n\n")
		for _, f := range result.FailedBatches {
			buf.WriteString(fmt.Sprintf("- Batch %d: %s\n", f.Batch, f.Reason))
		}
		buf.WriteString("\n")
	}

	for _, label := range labels(result) {
		tracks := result.GroupedTracks[label]
		buf.WriteString(fmt.Sprintf("## %s (%d)\n\n", shared.Capitalize(label), len(tracks)))
		if len(tracks) == 0 {
			buf.WriteString("_No tracks_\n\n")
			continue
		}
		for i, track := range tracks {
			line := fmt.Sprintf("%s - %s", track.Name, track.Artist)
			if track.URL != "" {
				line = fmt.Sprintf("[%s](%s)", line, track.URL)
			}
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, line))
		}
		buf.WriteString("\n")
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ExportToText converts a ClassifyResult to plain text format
func ExportToText(result *models.ClassifyResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", result.PlaylistID))
	buf.WriteString(fmt.Sprintf("Tracks: %d in %d batches\n", result.TotalSongs, result.TotalBatches))
	if n := len(result.FailedBatches); n > 0 {
		buf.WriteString(fmt.Sprintf("Failed batches: %d\n", n))
	}
	buf.WriteString("\n")

	for _, label := range labels(result) {
		stat := result.EmotionStats[label]
		buf.WriteString(fmt.Sprintf("%s: %d (%.2f%%)\n", label, stat.Count, stat.Percentage))
		for _, track := range result.GroupedTracks[label] {
			buf.WriteString(fmt.Sprintf("  - %s - %s\n", track.Name, track.Artist))
		}
	}

	return buf.Bytes(), nil
}

// ExportInfoToText renders a playlist summary with its example tracks
func ExportInfoToText(info *models.PlaylistInfo) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", info.PlaylistID))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", info.TotalSongs))
	for i, track := range info.ExampleBatch {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, track.Display()))
	}

	return buf.Bytes()
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile  string
	SummaryFile string
}

// WriteCSVExport writes grouped tracks as CSV with an accompanying result JSON file.
//
// Defaults to the playlist ID as the base filename & creates {base}_tracks.csv and {base}_result.json
func WriteCSVExport(result *models.ClassifyResult, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = result.PlaylistID
	}

	csvData, err := ExportToCSV(result)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	summary, err := shared.MarshalJSON(result, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate result JSON: %w", err)
	}

	summaryFile := baseFilepath + "_result.json"
	if err := os.WriteFile(summaryFile, summary, 0644); err != nil {
		return nil, fmt.Errorf("failed to write result file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:  tracksFile,
		SummaryFile: summaryFile,
	}, nil
}
