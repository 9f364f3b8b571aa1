package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/ledger"
	"github.com/hearthfin/hearth/internal/domain/patterns"
)

// PostgresPatternRepository implements PatternRepository on Postgres.
type PostgresPatternRepository struct {
	pgpool PgxPool
}

// NewPostgresPatternRepository creates a Postgres-backed pattern repository.
func NewPostgresPatternRepository(pgpool PgxPool) *PostgresPatternRepository {
	return &PostgresPatternRepository{pgpool: pgpool}
}

const patternColumns = `
	id, household_id, keywords, amount_min, amount_max, is_debit, type,
	category, owner, confidence, match_count, last_used, user_confirmed,
	user_rejected, created_at, updated_at
`

const listPatternsQuery = `
	SELECT ` + patternColumns + `
	FROM transaction_patterns
	WHERE household_id = $1
	ORDER BY confidence DESC, updated_at DESC
`

// ListByHousehold returns the full catalog for a household, including
// rejected patterns (they are retained for audit and filtered by the
// matcher, not the store).
func (r *PostgresPatternRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*patterns.Pattern, error) {
	rows, err := r.pgpool.Query(ctx, listPatternsQuery, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var catalog []*patterns.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		catalog = append(catalog, p)
	}
	return catalog, rows.Err()
}

const getPatternQuery = `
	SELECT ` + patternColumns + `
	FROM transaction_patterns
	WHERE id = $1
`

// GetByID returns one pattern, or common.ErrNotFound.
func (r *PostgresPatternRepository) GetByID(ctx context.Context, id uuid.UUID) (*patterns.Pattern, error) {
	rows, err := r.pgpool.Query(ctx, getPatternQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get pattern: %w", err)
		}
		return nil, common.ErrNotFound
	}
	return scanPattern(rows)
}

const savePatternQuery = `
	INSERT INTO transaction_patterns (
		id, household_id, keywords, amount_min, amount_max, is_debit, type,
		category, owner, confidence, match_count, last_used, user_confirmed,
		user_rejected, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (id) DO UPDATE SET
		keywords = EXCLUDED.keywords,
		amount_min = EXCLUDED.amount_min,
		amount_max = EXCLUDED.amount_max,
		confidence = EXCLUDED.confidence,
		match_count = EXCLUDED.match_count,
		last_used = EXCLUDED.last_used,
		user_confirmed = EXCLUDED.user_confirmed,
		user_rejected = EXCLUDED.user_rejected,
		updated_at = EXCLUDED.updated_at
`

// Save upserts one pattern.
func (r *PostgresPatternRepository) Save(ctx context.Context, p *patterns.Pattern) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pgpool.Exec(ctx, savePatternQuery,
		p.ID, p.HouseholdID, p.Keywords, p.AmountMin, p.AmountMax, p.IsDebit,
		string(p.Type), p.Category, p.Owner, p.Confidence, p.MatchCount,
		p.LastUsed, p.UserConfirmed, p.UserRejected, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}

// SaveAll upserts an updated catalog snapshot.
func (r *PostgresPatternRepository) SaveAll(ctx context.Context, catalog []*patterns.Pattern) error {
	for _, p := range catalog {
		if err := r.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

const deletePatternQuery = `DELETE FROM transaction_patterns WHERE id = $1`

// Delete removes a pattern.
func (r *PostgresPatternRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, deletePatternQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanPattern(rows pgx.Rows) (*patterns.Pattern, error) {
	var (
		p     patterns.Pattern
		pType string
	)
	if err := rows.Scan(&p.ID, &p.HouseholdID, &p.Keywords, &p.AmountMin,
		&p.AmountMax, &p.IsDebit, &pType, &p.Category, &p.Owner,
		&p.Confidence, &p.MatchCount, &p.LastUsed, &p.UserConfirmed,
		&p.UserRejected, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Type = ledger.Type(pType)
	return &p, nil
}
