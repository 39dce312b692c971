package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists jobs and parts in a SQLite database. Each record is
// stored as a JSON document next to the columns used for lookups and
// conditional updates.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers; the conditional UPDATE still
	// guards every transition.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_user_created ON jobs(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

	CREATE TABLE IF NOT EXISTS parts (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		part_order INTEGER NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_parts_job_order ON parts(job_id, part_order);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *Job) error {
	prepareJob(job, s.now())
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, user_id, status, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, string(job.Status), string(data), formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("job %s: %w", job.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, userID, id string) (*Job, error) {
	return s.getJob(ctx, s.db, userID, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) getJob(ctx context.Context, q queryer, userID, id string) (*Job, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM jobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if userID != "" && job.UserID != userID {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return &job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter ListFilter) ([]*Job, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT data FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]*Job, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job: %w", err)
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, userID, id string, u JobUpdate) (*Job, error) {
	return s.updateJob(ctx, userID, id, nil, nil, u)
}

func (s *SQLiteStore) TransitionJob(ctx context.Context, userID, id string, from []Status, to Status, u JobUpdate) (*Job, error) {
	if len(from) == 0 {
		return nil, fmt.Errorf("transition of job %s needs at least one source status", id)
	}
	return s.updateJob(ctx, userID, id, from, &to, u)
}

// updateJob reads, modifies and writes the job in one transaction. With from
// set the write is conditional on the stored status.
func (s *SQLiteStore) updateJob(ctx context.Context, userID, id string, from []Status, to *Status, u JobUpdate) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	job, err := s.getJob(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if from != nil && !statusIn(job.Status, from) {
		return nil, fmt.Errorf("job %s is %s, want one of %v: %w", id, job.Status, from, ErrConflict)
	}

	u.Apply(job)
	if to != nil {
		job.Status = *to
	}
	job.UpdatedAt = s.now()

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	query := `UPDATE jobs SET status = ?, data = ?, updated_at = ? WHERE id = ?`
	args := []any{string(job.Status), string(data), formatTime(job.UpdatedAt), id}
	if from != nil {
		placeholders := make([]string, len(from))
		for i, st := range from {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += " AND status IN (" + strings.Join(placeholders, ", ") + ")"
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("job %s changed concurrently: %w", id, ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return job, nil
}

func (s *SQLiteStore) CreatePart(ctx context.Context, part *Part) (*Part, error) {
	preparePart(part, s.now())
	data, err := json.Marshal(part)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal part: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO parts (id, job_id, part_order, processed, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, part_order) DO NOTHING`,
		part.ID, part.JobID, part.Order, boolInt(part.Processed), string(data),
		formatTime(part.CreatedAt), formatTime(part.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert part: %w", err)
	}

	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT data FROM parts WHERE job_id = ? AND part_order = ?`, part.JobID, part.Order).Scan(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to read back part: %w", err)
	}
	return decodePart(stored)
}

func (s *SQLiteStore) GetPart(ctx context.Context, jobID, id string) (*Part, error) {
	return s.getPart(ctx, s.db, jobID, id)
}

func (s *SQLiteStore) getPart(ctx context.Context, q queryer, jobID, id string) (*Part, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM parts WHERE id = ? AND job_id = ?`, id, jobID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("part %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get part: %w", err)
	}
	return decodePart(data)
}

func (s *SQLiteStore) ListParts(ctx context.Context, jobID string) ([]*Part, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM parts WHERE job_id = ? ORDER BY part_order`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parts: %w", err)
	}
	defer rows.Close()

	out := make([]*Part, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan part: %w", err)
		}
		part, err := decodePart(data)
		if err != nil {
			return nil, err
		}
		out = append(out, part)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdatePart(ctx context.Context, jobID, id string, u PartUpdate) (*Part, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	part, err := s.getPart(ctx, tx, jobID, id)
	if err != nil {
		return nil, err
	}
	u.Apply(part)
	part.UpdatedAt = s.now()

	data, err := json.Marshal(part)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal part: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE parts SET processed = MAX(processed, ?), data = ?, updated_at = ? WHERE id = ?`,
		boolInt(part.Processed), string(data), formatTime(part.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update part: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return part, nil
}

func (s *SQLiteStore) DeleteParts(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM parts WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to delete parts: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodePart(data string) (*Part, error) {
	var part Part
	if err := json.Unmarshal([]byte(data), &part); err != nil {
		return nil, fmt.Errorf("failed to unmarshal part: %w", err)
	}
	return &part, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
