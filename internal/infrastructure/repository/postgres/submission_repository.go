package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// SubmissionRepository keeps the outcome of every submission attempt.
// File content is never written here.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SubmissionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS form_submissions (
	id TEXT PRIMARY KEY,
	form_id TEXT NOT NULL,
	status TEXT NOT NULL,
	file_count INTEGER NOT NULL DEFAULT 0,
	slots JSONB NOT NULL DEFAULT '{}'::jsonb,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_form_submissions_form_id ON form_submissions(form_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) Record(ctx context.Context, record domain.SubmissionRecord) error {
	slots := record.SlotCounts
	if slots == nil {
		slots = map[domain.SlotName]int{}
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("marshal slot counts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO form_submissions (id, form_id, status, file_count, slots, error_message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		record.ID, record.FormID, string(record.Status), record.FileCount, slotsJSON, record.Error, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) ListByForm(ctx context.Context, formID string) ([]domain.SubmissionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, form_id, status, file_count, slots, error_message, created_at
FROM form_submissions
WHERE form_id = $1
ORDER BY created_at DESC
`, formID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SubmissionRecord, 0)
	for rows.Next() {
		var rec domain.SubmissionRecord
		var status string
		var slotsRaw []byte
		if err := rows.Scan(&rec.ID, &rec.FormID, &status, &rec.FileCount, &slotsRaw, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal(slotsRaw, &rec.SlotCounts); err != nil {
			return nil, fmt.Errorf("unmarshal slot counts: %w", err)
		}
		rec.Status = domain.SubmissionStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}
