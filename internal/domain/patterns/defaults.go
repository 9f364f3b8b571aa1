package patterns

import (
	"time"

	"github.com/google/uuid"

	"github.com/hearthfin/hearth/internal/domain/ledger"
)

// DefaultPatterns returns the starter catalog installed for a new household.
// These are deliberately conservative: moderate confidence, no amount ranges,
// and they sharpen or die through the normal feedback loop.
func DefaultPatterns(householdID uuid.UUID, now time.Time) []*Pattern {
	seed := []struct {
		keywords []string
		isDebit  bool
		txType   ledger.Type
		category string
		conf     int
	}{
		{[]string{"PAYROLL"}, false, ledger.TypeIncome, "Salary", 70},
		{[]string{"DIRECT", "DEPOSIT"}, false, ledger.TypeIncome, "Salary", 60},
		{[]string{"INTEREST"}, false, ledger.TypeIncome, "Interest", 65},
		{[]string{"REFUND"}, false, ledger.TypeIncome, "Refund", 60},
		{[]string{"E-TRANSFER"}, false, ledger.TypeTransfer, "Transfer", 55},
		{[]string{"TRANSFER"}, true, ledger.TypeTransfer, "Transfer", 55},
		{[]string{"ATM", "WITHDRAWAL"}, true, ledger.TypeExpense, "Cash", 55},
		{[]string{"MONTHLY", "FEE"}, true, ledger.TypeExpense, "Bank Fees", 60},
		{[]string{"NETFLIX"}, true, ledger.TypeExpense, "Subscriptions", 65},
		{[]string{"SPOTIFY"}, true, ledger.TypeExpense, "Subscriptions", 65},
		{[]string{"GROCER"}, true, ledger.TypeExpense, "Groceries", 50},
		{[]string{"RESTAURANT"}, true, ledger.TypeExpense, "Dining", 50},
	}

	catalog := make([]*Pattern, 0, len(seed))
	for _, s := range seed {
		catalog = append(catalog, &Pattern{
			ID:          uuid.New(),
			HouseholdID: householdID,
			Keywords:    s.keywords,
			IsDebit:     s.isDebit,
			Type:        s.txType,
			Category:    s.category,
			Confidence:  s.conf,
			LastUsed:    now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return catalog
}
