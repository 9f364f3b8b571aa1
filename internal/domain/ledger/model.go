// Package ledger defines the canonical transaction model shared by the
// import pipeline, the duplicate detector, and the pattern catalog.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type classifies the direction/intent of a transaction.
type Type string

const (
	TypeIncome       Type = "income"
	TypeExpense      Type = "expense"
	TypeTransfer     Type = "transfer"
	TypeUnclassified Type = "unclassified"
)

// ValidType reports whether t is one of the known transaction types.
func ValidType(t Type) bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer, TypeUnclassified:
		return true
	}
	return false
}

// Transaction is the canonical unit produced by the import pipeline.
// Amount is always a non-negative magnitude; direction is carried by IsDebit.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	HouseholdID uuid.UUID         `json:"household_id"`
	Date        string            `json:"date"` // ISO YYYY-MM-DD
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
	IsDebit     bool              `json:"is_debit"`
	Type        Type              `json:"type"`
	Category    string            `json:"category,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	Raw         map[string]string `json:"raw,omitempty"` // verbatim source columns, for audit
	SourceFile  string            `json:"source_file"`
	ImportedAt  time.Time         `json:"imported_at"`
}

// Cashflow is a recurring inflow/outflow definition (rent, payroll, ...).
// The duplicate detector uses it only to flag potential linkage.
type Cashflow struct {
	ID          uuid.UUID       `json:"id"`
	HouseholdID uuid.UUID       `json:"household_id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   string          `json:"frequency"` // monthly, biweekly, ...
	IsDebit     bool            `json:"is_debit"`
	CreatedAt   time.Time       `json:"created_at"`
}
