package artifacts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/tasks"
	tu "github.com/desertthunder/moodsplit/internal/testing"
)

func sampleArtifacts() *tasks.RunArtifacts {
	tracks := tu.Tracks(2)
	return &tasks.RunArtifacts{
		PlaylistID: "p1",
		Provider:   "fake",
		Tracks:     tracks,
		Result: &models.ClassifyResult{
			RunID:      "run-1",
			PlaylistID: "p1",
			Merged: []models.MergedRecord{
				{ID: tracks[0].ID, Name: tracks[0].Name, Emotion: "neşeli"},
				{ID: tracks[1].ID, Name: tracks[1].Name, Emotion: "sakin"},
			},
			BatchLogs:    []models.BatchLog{{Batch: 1, Status: models.BatchStatusOK, Labels: []string{"neşeli", "sakin"}}},
			RawResponses: []models.RawResponseLog{{Batch: 1, Prompt: "p", ModelResponseText: "r"}},
		},
	}
}

func TestFileSink(t *testing.T) {
	t.Run("Writes All Files", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		sink := NewFileSink(dir, nil)

		if err := sink.WriteRun(context.Background(), sampleArtifacts()); err != nil {
			t.Fatalf("WriteRun() error = %v", err)
		}

		for _, name := range []string{"playlist_p1.json", MergedFile, BatchLogsFile, RawResponsesFile} {
			tu.AssertFileExists(t, filepath.Join(dir, name))
		}

		var merged []models.MergedRecord
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, filepath.Join(dir, MergedFile))), &merged); err != nil {
			t.Fatalf("merged.json is not valid JSON: %v", err)
		}
		if len(merged) != 2 || merged[0].Emotion != "neşeli" || *merged[1].ID != "t1" {
			t.Errorf("merged = %+v", merged)
		}
	})

	t.Run("Keeps Non ASCII Readable", func(t *testing.T) {
		dir := t.TempDir()
		if err := NewFileSink(dir, nil).WriteRun(context.Background(), sampleArtifacts()); err != nil {
			t.Fatalf("WriteRun() error = %v", err)
		}

		data := tu.MustReadFile(t, filepath.Join(dir, BatchLogsFile))
		if !strings.Contains(data, "neşeli") {
			t.Errorf("batch_logs.json should keep labels unescaped:\n%s", data)
		}
	})

	t.Run("Cleans Previous Run", func(t *testing.T) {
		dir := t.TempDir()
		stale := filepath.Join(dir, "playlist_old.json")
		if err := os.WriteFile(stale, []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.Mkdir(filepath.Join(dir, "keep"), 0755); err != nil {
			t.Fatal(err)
		}

		if err := NewFileSink(dir, nil).WriteRun(context.Background(), sampleArtifacts()); err != nil {
			t.Fatalf("WriteRun() error = %v", err)
		}

		tu.AssertFileMissing(t, stale)
		tu.AssertFileExists(t, filepath.Join(dir, "keep"))
	})

	t.Run("Leaves Foreign Files", func(t *testing.T) {
		dir := t.TempDir()
		foreign := []string{"config.toml", "moodsplit.db", "notes.json", "playlist_notes.txt"}
		for _, name := range foreign {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("keep"), 0644); err != nil {
				t.Fatal(err)
			}
		}

		if err := NewFileSink(dir, nil).WriteRun(context.Background(), sampleArtifacts()); err != nil {
			t.Fatalf("WriteRun() error = %v", err)
		}

		for _, name := range foreign {
			if got := tu.MustReadFile(t, filepath.Join(dir, name)); got != "keep" {
				t.Errorf("%s = %q, want untouched", name, got)
			}
		}
	})

	t.Run("Concurrent Runs", func(t *testing.T) {
		dir := t.TempDir()
		sink := NewFileSink(dir, nil)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- sink.WriteRun(context.Background(), sampleArtifacts())
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("WriteRun() error = %v", err)
			}
		}
		for _, name := range []string{"playlist_p1.json", MergedFile, BatchLogsFile, RawResponsesFile} {
			tu.AssertFileExists(t, filepath.Join(dir, name))
		}
	})

	t.Run("Empty Run Writes Arrays", func(t *testing.T) {
		dir := t.TempDir()
		artifacts := &tasks.RunArtifacts{PlaylistID: "p2", Result: &models.ClassifyResult{PlaylistID: "p2"}}

		if err := NewFileSink(dir, nil).WriteRun(context.Background(), artifacts); err != nil {
			t.Fatalf("WriteRun() error = %v", err)
		}
		for _, name := range []string{"playlist_p2.json", MergedFile, BatchLogsFile, RawResponsesFile} {
			if got := tu.MustReadFile(t, filepath.Join(dir, name)); got != "[]" {
				t.Errorf("%s = %q, want []", name, got)
			}
		}
	})

	t.Run("Missing Result", func(t *testing.T) {
		if err := NewFileSink(t.TempDir(), nil).WriteRun(context.Background(), &tasks.RunArtifacts{}); err == nil {
			t.Error("WriteRun() expected error without result")
		}
	})

	t.Run("Unwritable Directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0644); err != nil {
			t.Fatal(err)
		}

		if err := NewFileSink(filepath.Join(file, "data"), nil).WriteRun(context.Background(), sampleArtifacts()); err == nil {
			t.Error("WriteRun() expected error when directory cannot be created")
		}
	})

	t.Run("Clean Missing Directory", func(t *testing.T) {
		if err := NewFileSink(filepath.Join(t.TempDir(), "nope"), nil).Clean(); err != nil {
			t.Errorf("Clean() error = %v", err)
		}
	})
}
