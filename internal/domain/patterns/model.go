// Package patterns implements the self-improving classification rule set:
// matching transactions against learned patterns with confidence scoring,
// and revising the catalog from user feedback.
package patterns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hearthfin/hearth/internal/domain/ledger"
)

// Pattern is a learned classification rule. Rejected patterns are excluded
// from matching but retained for audit.
type Pattern struct {
	ID          uuid.UUID `json:"id"`
	HouseholdID uuid.UUID `json:"household_id"`
	// Keywords are uppercase, deduplicated description tokens.
	Keywords []string `json:"keywords"`
	// AmountMin/AmountMax define a soft tolerance band, never a hard filter.
	AmountMin *decimal.Decimal `json:"amount_min,omitempty"`
	AmountMax *decimal.Decimal `json:"amount_max,omitempty"`
	// IsDebit is a hard filter: patterns never cross the debit/credit line.
	IsDebit       bool        `json:"is_debit"`
	Type          ledger.Type `json:"type"`
	Category      string      `json:"category"`
	Owner         string      `json:"owner,omitempty"`
	Confidence    int         `json:"confidence"` // 0-100
	MatchCount    int         `json:"match_count"`
	LastUsed      time.Time   `json:"last_used"`
	UserConfirmed bool        `json:"user_confirmed"`
	UserRejected  bool        `json:"user_rejected"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// HasAmountRange reports whether both soft bounds are set.
func (p *Pattern) HasAmountRange() bool {
	return p.AmountMin != nil && p.AmountMax != nil
}

// Match is the transient result of scoring one transaction against one
// pattern. Not persisted.
type Match struct {
	Pattern         *Pattern `json:"pattern"`
	Confidence      int      `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
	Reason          string   `json:"reason"`
}

// Classification is an explicit user correction fed into the learner.
type Classification struct {
	Type     ledger.Type `json:"type"`
	Category string      `json:"category"`
	Owner    string      `json:"owner,omitempty"`
}

// Feedback grades a previously suggested classification.
type Feedback string

const (
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
	FeedbackPartial   Feedback = "partial"
)
