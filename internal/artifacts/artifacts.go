// package artifacts writes classification run artifacts to a data directory.
//
// Each run leaves four JSON documents behind, replacing those of the previous run:
//
//   - playlist_<id>.json : the fetched tracks
//   - merged.json : every track with its final label, in playlist order
//   - batch_logs.json : per-batch status, provider, attempt and labels
//   - ai_raw_responses.json : prompts, model replies and raw HTTP bodies
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/desertthunder/moodsplit/internal/tasks"
)

const (
	MergedFile       = "merged.json"
	BatchLogsFile    = "batch_logs.json"
	RawResponsesFile = "ai_raw_responses.json"
)

// PlaylistFile returns the name of the track dump for playlistID.
func PlaylistFile(playlistID string) string {
	return fmt.Sprintf("playlist_%s.json", playlistID)
}

// FileSink implements [tasks.ArtifactSink] on the local filesystem.
//
// Runs are written one at a time; concurrent callers wait for the previous run to finish.
type FileSink struct {
	mu     sync.Mutex
	dir    string
	logger *log.Logger
}

// NewFileSink creates a sink writing into dir. The directory is created on first write.
func NewFileSink(dir string, logger *log.Logger) *FileSink {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &FileSink{dir: dir, logger: logger}
}

// Dir returns the data directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// WriteRun cleans the data directory and writes the artifacts of one run.
func (s *FileSink) WriteRun(ctx context.Context, artifacts *tasks.RunArtifacts) error {
	if artifacts == nil || artifacts.Result == nil {
		return fmt.Errorf("%w: run artifacts without a result", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	if err := s.Clean(); err != nil {
		return err
	}

	result := artifacts.Result
	files := []struct {
		name string
		data any
	}{
		{PlaylistFile(artifacts.PlaylistID), orEmpty(artifacts.Tracks)},
		{MergedFile, orEmpty(result.Merged)},
		{BatchLogsFile, orEmpty(result.BatchLogs)},
		{RawResponsesFile, orEmpty(result.RawResponses)},
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeJSON(f.name, f.data); err != nil {
			return err
		}
	}

	s.logger.Info("artifacts written", "dir", s.dir, "run_id", result.RunID)
	return nil
}

// owned reports whether name is an artifact this sink writes.
func owned(name string) bool {
	switch name {
	case MergedFile, BatchLogsFile, RawResponsesFile:
		return true
	}
	return strings.HasPrefix(name, "playlist_") && strings.HasSuffix(name, ".json")
}

// Clean removes the artifacts of earlier runs. Other files and subdirectories are left alone.
func (s *FileSink) Clean() error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read artifacts directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !owned(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove old artifact", "path", path, "error", err)
		}
	}
	return nil
}

func (s *FileSink) writeJSON(name string, v any) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// orEmpty keeps empty runs encoding as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

var _ tasks.ArtifactSink = (*FileSink)(nil)
