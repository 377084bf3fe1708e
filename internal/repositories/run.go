package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/shared"
	"github.com/desertthunder/moodsplit/internal/tasks"
)

const runColumns = `id, sequence, playlist_id, provider, emotions, total_songs, total_batches, failed_batches, result_json, created_at, deleted_at`

// RunRepository persists classification runs and their batch logs.
//
// It implements [tasks.ArtifactSink] so the engine can record every run it finishes.
type RunRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db, now: time.Now}
}

// RunFilter narrows [RunRepository.List]. Zero values match everything.
type RunFilter struct {
	PlaylistID string
	Limit      int
}

// WriteRun stores the run described by artifacts.
func (r *RunRepository) WriteRun(ctx context.Context, artifacts *tasks.RunArtifacts) error {
	if artifacts == nil || artifacts.Result == nil {
		return fmt.Errorf("%w: run artifacts without a result", shared.ErrInvalidInput)
	}

	_, err := r.Create(ctx, artifacts.Provider, artifacts.Result)
	return err
}

// Create inserts result with its batch logs in one transaction and returns the stored run.
//
// The run ID is the result's RunID; a new one is generated when it is empty.
func (r *RunRepository) Create(ctx context.Context, provider string, result *models.ClassifyResult) (*models.Run, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil result", shared.ErrInvalidInput)
	}
	if result.PlaylistID == "" {
		return nil, shared.NewValidationError("playlist_id", "must not be empty")
	}

	if result.RunID == "" {
		result.RunID = shared.GenerateID()
	}

	emotions, err := json.Marshal(result.Emotions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode emotions: %w", err)
	}
	doc, err := shared.MarshalJSON(result, false)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequenceTx(tx, "runs")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	run := &models.Run{
		ID:            result.RunID,
		Sequence:      sequence,
		PlaylistID:    result.PlaylistID,
		Provider:      provider,
		Emotions:      result.Emotions,
		TotalSongs:    result.TotalSongs,
		TotalBatches:  result.TotalBatches,
		FailedBatches: len(result.FailedBatches),
		CreatedAt:     r.now().UTC(),
		Result:        result,
	}

	query := `
		INSERT INTO runs (id, sequence, playlist_id, provider, emotions, total_songs, total_batches, failed_batches, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.Sequence,
		run.PlaylistID,
		run.Provider,
		string(emotions),
		run.TotalSongs,
		run.TotalBatches,
		run.FailedBatches,
		string(doc),
		run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	for _, entry := range result.BatchLogs {
		if err := insertBatchLog(ctx, tx, run.ID, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

func insertBatchLog(ctx context.Context, tx *sql.Tx, runID string, entry models.BatchLog) error {
	labels, err := json.Marshal(entry.Labels)
	if err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}

	query := `
		INSERT INTO batch_logs (run_id, batch, status, provider, attempt, duration_sec, labels, reason, raw_response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		runID,
		entry.Batch,
		entry.Status,
		entry.Provider,
		entry.Attempt,
		entry.DurationSec,
		string(labels),
		entry.Reason,
		entry.RawResponseText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch log %d: %w", entry.Batch, err)
	}
	return nil
}

// Get retrieves a run by ID with its result and batch logs, excluding soft-deleted runs
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND deleted_at IS NULL`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	logs, err := r.BatchLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Result.BatchLogs = logs
	return run, nil
}

// List retrieves runs newest first, excluding soft-deleted runs. Results are summaries; batch logs are not loaded.
func (r *RunRepository) List(ctx context.Context, filter RunFilter) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE deleted_at IS NULL`
	args := []any{}

	if filter.PlaylistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, filter.PlaylistID)
	}

	query += " ORDER BY sequence DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

// BatchLogs returns the logs of a run in batch order.
func (r *RunRepository) BatchLogs(ctx context.Context, runID string) ([]models.BatchLog, error) {
	query := `
		SELECT batch, status, provider, attempt, duration_sec, labels, reason, raw_response
		FROM batch_logs
		WHERE run_id = ?
		ORDER BY batch ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch logs: %w", err)
	}
	defer rows.Close()

	logs := []models.BatchLog{}
	for rows.Next() {
		var (
			entry  models.BatchLog
			labels string
		)
		if err := rows.Scan(&entry.Batch, &entry.Status, &entry.Provider, &entry.Attempt,
			&entry.DurationSec, &labels, &entry.Reason, &entry.RawResponseText); err != nil {
			return nil, fmt.Errorf("failed to scan batch log: %w", err)
		}
		if err := json.Unmarshal([]byte(labels), &entry.Labels); err != nil {
			return nil, fmt.Errorf("failed to decode labels: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return logs, nil
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run       models.Run
		emotions  string
		doc       string
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.Sequence,
		&run.PlaylistID,
		&run.Provider,
		&emotions,
		&run.TotalSongs,
		&run.TotalBatches,
		&run.FailedBatches,
		&doc,
		&run.CreatedAt,
		&deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(emotions), &run.Emotions); err != nil {
		return nil, fmt.Errorf("failed to decode emotions: %w", err)
	}

	var result models.ClassifyResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	run.Result = &result

	if deletedAt.Valid {
		run.DeletedAt = &deletedAt.Time
	}
	return &run, nil
}
