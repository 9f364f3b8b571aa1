// Package repository persists canonical transactions and recurring cashflows.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthfin/hearth/internal/domain/ledger"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repositories to
// allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var _ PgxPool = (*pgxpool.Pool)(nil)

// TransactionRepository stores and retrieves canonical transactions.
type TransactionRepository interface {
	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*ledger.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
	BulkInsert(ctx context.Context, txs []*ledger.Transaction) (int, error)
	UpdateClassification(ctx context.Context, id uuid.UUID, txType ledger.Type, category string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CashflowRepository retrieves recurring cashflow definitions.
type CashflowRepository interface {
	ListCashflows(ctx context.Context, householdID uuid.UUID) ([]*ledger.Cashflow, error)
}
