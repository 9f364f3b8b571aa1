package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/ledger"
)

const isoDate = "2006-01-02"

// PostgresLedgerRepository implements TransactionRepository and
// CashflowRepository on Postgres.
type PostgresLedgerRepository struct {
	pgpool PgxPool
}

// NewPostgresLedgerRepository creates a Postgres-backed ledger repository.
func NewPostgresLedgerRepository(pgpool PgxPool) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{pgpool: pgpool}
}

const listTransactionsQuery = `
	SELECT id, household_id, posted_on, description, amount, is_debit, type,
	       category, fingerprint, raw_fields, source_file, imported_at
	FROM transactions
	WHERE household_id = $1
	ORDER BY posted_on DESC, imported_at DESC
`

// ListByHousehold returns the full stored transaction set for a household.
func (r *PostgresLedgerRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*ledger.Transaction, error) {
	rows, err := r.pgpool.Query(ctx, listTransactionsQuery, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

const getTransactionQuery = `
	SELECT id, household_id, posted_on, description, amount, is_debit, type,
	       category, fingerprint, raw_fields, source_file, imported_at
	FROM transactions
	WHERE id = $1
`

// GetByID returns one transaction, or common.ErrNotFound.
func (r *PostgresLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	rows, err := r.pgpool.Query(ctx, getTransactionQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get transaction: %w", err)
		}
		return nil, common.ErrNotFound
	}
	return scanTransaction(rows)
}

// BulkInsert writes a batch of transactions with COPY.
func (r *PostgresLedgerRepository) BulkInsert(ctx context.Context, txs []*ledger.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	columns := []string{
		"id", "household_id", "posted_on", "description", "amount", "is_debit",
		"type", "category", "fingerprint", "raw_fields", "source_file", "imported_at",
	}

	count, err := r.pgpool.CopyFrom(ctx,
		pgx.Identifier{"transactions"},
		columns,
		pgx.CopyFromSlice(len(txs), func(i int) ([]any, error) {
			tx := txs[i]
			raw, err := json.Marshal(tx.Raw)
			if err != nil {
				return nil, err
			}
			postedOn, err := time.Parse(isoDate, tx.Date)
			if err != nil {
				return nil, fmt.Errorf("invalid transaction date %q: %w", tx.Date, err)
			}
			return []any{
				tx.ID, tx.HouseholdID, postedOn, tx.Description, tx.Amount,
				tx.IsDebit, string(tx.Type), tx.Category, tx.Fingerprint,
				raw, tx.SourceFile, tx.ImportedAt,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert transactions: %w", err)
	}
	return int(count), nil
}

const updateClassificationQuery = `
	UPDATE transactions SET type = $2, category = $3 WHERE id = $1
`

// UpdateClassification applies a user classification to a stored transaction.
func (r *PostgresLedgerRepository) UpdateClassification(ctx context.Context, id uuid.UUID, txType ledger.Type, category string) error {
	tag, err := r.pgpool.Exec(ctx, updateClassificationQuery, id, string(txType), category)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

const deleteTransactionQuery = `DELETE FROM transactions WHERE id = $1`

// Delete removes a transaction.
func (r *PostgresLedgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, deleteTransactionQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

const listCashflowsQuery = `
	SELECT id, household_id, name, amount, frequency, is_debit, created_at
	FROM cashflows
	WHERE household_id = $1
	ORDER BY name
`

// ListCashflows returns the recurring cashflow definitions for a household.
func (r *PostgresLedgerRepository) ListCashflows(ctx context.Context, householdID uuid.UUID) ([]*ledger.Cashflow, error) {
	rows, err := r.pgpool.Query(ctx, listCashflowsQuery, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cashflows: %w", err)
	}
	defer rows.Close()

	var flows []*ledger.Cashflow
	for rows.Next() {
		var cf ledger.Cashflow
		if err := rows.Scan(&cf.ID, &cf.HouseholdID, &cf.Name, &cf.Amount,
			&cf.Frequency, &cf.IsDebit, &cf.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cashflow: %w", err)
		}
		flows = append(flows, &cf)
	}
	return flows, rows.Err()
}

func scanTransaction(rows pgx.Rows) (*ledger.Transaction, error) {
	var (
		tx       ledger.Transaction
		postedOn time.Time
		txType   string
		raw      []byte
	)
	if err := rows.Scan(&tx.ID, &tx.HouseholdID, &postedOn, &tx.Description,
		&tx.Amount, &tx.IsDebit, &txType, &tx.Category, &tx.Fingerprint,
		&raw, &tx.SourceFile, &tx.ImportedAt); err != nil {
		return nil, err
	}
	tx.Date = postedOn.Format(isoDate)
	tx.Type = ledger.Type(txType)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tx.Raw); err != nil {
			return nil, err
		}
	}
	return &tx, nil
}
