package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/model"
	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	StatusRunning     RunStatus = "running"
	StatusCompleted   RunStatus = "completed"
	StatusInterrupted RunStatus = "interrupted"
	StatusFailed      RunStatus = "failed"
)

// Run is one invocation of the extraction batch.
type Run struct {
	StartedAt     time.Time
	CompletedAt   *time.Time
	ID            string
	InputDir      string
	Model         string
	Status        RunStatus
	DocumentCount int
	RecordCount   int
}

// CreateRun records the start of a run and returns it with a new ID.
func (s *SQLiteStorage) CreateRun(ctx context.Context, inputDir, modelName string) (*Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.NewString(),
		InputDir:  inputDir,
		Model:     modelName,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, model, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.InputDir, run.Model, string(run.Status), run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// FinishRun sets the final status of a run.
func (s *SQLiteStorage) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, common.ErrNotFound)
	}
	return nil
}

// SaveDocument stores a document's full result and its found personal
// records. position fixes the document's place in the run.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, runID string, position int, doc *model.DocumentResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}
	if err := validateDocument(doc, position); err != nil {
		return err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", doc.Filename, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (run_id, position, filename, success_count, error_count, result_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, position, doc.Filename, doc.Metadata.SuccessCount, doc.Metadata.ErrorCount, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.Filename, err)
	}
	documentID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read document id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO personal_records (document_id, field_name, field_value, confidence) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range doc.Personal() {
		if !rec.Found {
			continue
		}
		if _, err := stmt.ExecContext(ctx, documentID, rec.FieldName, rec.Value, rec.Confidence); err != nil {
			return fmt.Errorf("failed to save %s record: %w", rec.FieldName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document %s: %w", doc.Filename, err)
	}
	return nil
}

// LoadDocuments returns a run's documents in their original order.
func (s *SQLiteStorage) LoadDocuments(ctx context.Context, runID string) ([]*model.DocumentResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, result_json FROM documents WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*model.DocumentResult
	for rows.Next() {
		var filename, payload string
		if err := rows.Scan(&filename, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var doc model.DocumentResult
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			return nil, fmt.Errorf("%w: document %s: %v", common.ErrDatabaseCorrupted, filename, err)
		}
		if doc.Filename == "" {
			doc.Filename = filename
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return docs, nil
}

const runColumns = `r.id, r.input_dir, r.model, r.status, r.started_at, r.completed_at,
	(SELECT COUNT(*) FROM documents d WHERE d.run_id = r.id),
	(SELECT COUNT(*) FROM personal_records p JOIN documents d ON p.document_id = d.id WHERE d.run_id = r.id)`

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, runID)
	return scanRun(row)
}

// LatestRun returns the most recently started run.
func (s *SQLiteStorage) LatestRun(ctx context.Context) (*Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.rowid DESC LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var status string
	var completed sql.NullTime
	err := row.Scan(&run.ID, &run.InputDir, &run.Model, &status, &run.StartedAt, &completed,
		&run.DocumentCount, &run.RecordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Status = RunStatus(status)
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return &run, nil
}
