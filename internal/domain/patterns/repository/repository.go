// Package repository persists the learned pattern catalog.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthfin/hearth/internal/domain/patterns"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to
// allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

// PatternRepository stores the classification pattern catalog. The catalog
// is treated as a snapshot: matchers and learners receive the full
// household collection and return updated collections to be saved.
type PatternRepository interface {
	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*patterns.Pattern, error)
	GetByID(ctx context.Context, id uuid.UUID) (*patterns.Pattern, error)
	Save(ctx context.Context, p *patterns.Pattern) error
	SaveAll(ctx context.Context, catalog []*patterns.Pattern) error
	Delete(ctx context.Context, id uuid.UUID) error
}
