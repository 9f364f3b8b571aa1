package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hearthfin/hearth/internal/domain/common"
)

// PostgresImportRepository implements ImportRepository on Postgres.
type PostgresImportRepository struct {
	pgpool PgxPool
}

// NewPostgresImportRepository creates a Postgres-backed import repository.
func NewPostgresImportRepository(pgpool PgxPool) *PostgresImportRepository {
	return &PostgresImportRepository{pgpool: pgpool}
}

const getMappingQuery = `
	SELECT id, household_id, fingerprint, bank_name, mapping, created_at, updated_at
	FROM bank_mappings
	WHERE household_id = $1 AND fingerprint = $2
	LIMIT 1
`

// GetMappingByFingerprint returns the remembered mapping for a header
// fingerprint, or nil when the bank has not been seen before.
func (r *PostgresImportRepository) GetMappingByFingerprint(ctx context.Context, householdID uuid.UUID, fingerprint string) (*BankMapping, error) {
	var (
		m       BankMapping
		rawJSON []byte
	)
	err := r.pgpool.QueryRow(ctx, getMappingQuery, householdID, fingerprint).Scan(
		&m.ID, &m.HouseholdID, &m.Fingerprint, &m.BankName, &rawJSON,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank mapping: %w", err)
	}
	if err := json.Unmarshal(rawJSON, &m.Mapping); err != nil {
		return nil, fmt.Errorf("failed to decode bank mapping: %w", err)
	}
	return &m, nil
}

const saveMappingQuery = `
	INSERT INTO bank_mappings (id, household_id, fingerprint, bank_name, mapping)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (household_id, fingerprint) DO UPDATE SET
		bank_name = EXCLUDED.bank_name,
		mapping = EXCLUDED.mapping,
		updated_at = NOW()
`

// SaveMapping upserts a remembered column mapping.
func (r *PostgresImportRepository) SaveMapping(ctx context.Context, m *BankMapping) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	rawJSON, err := json.Marshal(m.Mapping)
	if err != nil {
		return fmt.Errorf("failed to encode bank mapping: %w", err)
	}
	if _, err := r.pgpool.Exec(ctx, saveMappingQuery,
		m.ID, m.HouseholdID, m.Fingerprint, m.BankName, rawJSON); err != nil {
		return fmt.Errorf("failed to save bank mapping: %w", err)
	}
	return nil
}

const createJobQuery = `
	INSERT INTO import_jobs (id, household_id, file_name, status, rows_total)
	VALUES ($1, $2, $3, $4, $5)
`

// CreateJob records a new import job.
func (r *PostgresImportRepository) CreateJob(ctx context.Context, job *ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobStatusRunning
	}
	if _, err := r.pgpool.Exec(ctx, createJobQuery,
		job.ID, job.HouseholdID, job.FileName, job.Status, job.RowsTotal); err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

const getJobQuery = `
	SELECT id, household_id, file_name, status, rows_total, rows_imported,
	       rows_duplicate, rows_dropped, error_message, requested_at, finished_at
	FROM import_jobs
	WHERE id = $1
`

// GetJobByID returns one import job, or common.ErrNotFound.
func (r *PostgresImportRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*ImportJob, error) {
	var job ImportJob
	err := r.pgpool.QueryRow(ctx, getJobQuery, id).Scan(
		&job.ID, &job.HouseholdID, &job.FileName, &job.Status, &job.RowsTotal,
		&job.RowsImported, &job.RowsDuplicate, &job.RowsDropped,
		&job.ErrorMessage, &job.RequestedAt, &job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return &job, nil
}

const finishJobQuery = `
	UPDATE import_jobs SET
		status = $2, rows_imported = $3, rows_duplicate = $4, rows_dropped = $5,
		rows_total = $3 + $4 + $5, error_message = $6, finished_at = NOW()
	WHERE id = $1
`

// FinishJob marks a job complete with its final counts.
func (r *PostgresImportRepository) FinishJob(ctx context.Context, id uuid.UUID, status string, imported, duplicate, dropped int, errorMessage *string) error {
	tag, err := r.pgpool.Exec(ctx, finishJobQuery, id, status, imported, duplicate, dropped, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to finish import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
