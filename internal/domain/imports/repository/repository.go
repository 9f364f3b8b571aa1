// Package repository persists import bookkeeping: remembered bank column
// mappings keyed by header fingerprint, and per-file import jobs.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthfin/hearth/internal/domain/imports/detector"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to
// allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

// BankMapping remembers a resolved column mapping for a bank export,
// keyed by the SHA-256 fingerprint of its normalized header labels.
type BankMapping struct {
	ID          uuid.UUID              `json:"id"`
	HouseholdID uuid.UUID              `json:"household_id"`
	Fingerprint string                 `json:"fingerprint"`
	BankName    string                 `json:"bank_name"`
	Mapping     detector.ColumnMapping `json:"mapping"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Import job statuses.
const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// ImportJob tracks one file's trip through the pipeline.
type ImportJob struct {
	ID             uuid.UUID  `json:"id"`
	HouseholdID    uuid.UUID  `json:"household_id"`
	FileName       string     `json:"file_name"`
	Status         string     `json:"status"`
	RowsTotal      int        `json:"rows_total"`
	RowsImported   int        `json:"rows_imported"`
	RowsDuplicate  int        `json:"rows_duplicate"`
	RowsDropped    int        `json:"rows_dropped"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	RequestedAt    time.Time  `json:"requested_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// ImportRepository stores bank mappings and import jobs.
type ImportRepository interface {
	GetMappingByFingerprint(ctx context.Context, householdID uuid.UUID, fingerprint string) (*BankMapping, error)
	SaveMapping(ctx context.Context, m *BankMapping) error

	CreateJob(ctx context.Context, job *ImportJob) error
	GetJobByID(ctx context.Context, id uuid.UUID) (*ImportJob, error)
	FinishJob(ctx context.Context, id uuid.UUID, status string, imported, duplicate, dropped int, errorMessage *string) error
}
