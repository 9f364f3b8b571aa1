package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Duplicate-detection thresholds. Same-day transactions within one cent of
// each other are compared by description similarity.
var (
	amountTolerance      = decimal.NewFromFloat(0.01)
	similarityThreshold  = 0.90
	cashflowAmountWindow = decimal.NewFromFloat(0.10)
)

// minTokenLen is the shortest description token that counts as a word for
// word-based similarity.
const minTokenLen = 3

// CashflowLink flags a transaction that looks like an occurrence of a
// recurring cashflow. It never affects the duplicate verdict.
type CashflowLink struct {
	Transaction *Transaction
	Cashflow    *Cashflow
}

// DuplicateReport partitions an import batch against the stored set.
type DuplicateReport struct {
	Duplicates    []*Transaction
	Unique        []*Transaction
	CashflowLinks []CashflowLink
}

// IsDuplicate reports whether candidate matches any existing transaction,
// first by exact fingerprint, then by fuzzy match (same date, amount within
// one cent, description similarity above threshold).
func IsDuplicate(candidate *Transaction, existing []*Transaction) bool {
	for _, tx := range existing {
		if tx.Fingerprint == candidate.Fingerprint {
			return true
		}
	}
	for _, tx := range existing {
		if tx.Date != candidate.Date {
			continue
		}
		if tx.Amount.Sub(candidate.Amount).Abs().GreaterThan(amountTolerance) {
			continue
		}
		if DescriptionSimilarity(candidate.Description, tx.Description) > similarityThreshold {
			return true
		}
	}
	return false
}

// FindDuplicates partitions batch into duplicates and unique transactions.
// Accepted batch members are folded into the comparison set incrementally,
// so two near-identical rows inside one file flag each other.
func FindDuplicates(batch []*Transaction, existing []*Transaction, cashflows []*Cashflow) DuplicateReport {
	report := DuplicateReport{}
	known := make([]*Transaction, len(existing), len(existing)+len(batch))
	copy(known, existing)

	for _, tx := range batch {
		if IsDuplicate(tx, known) {
			report.Duplicates = append(report.Duplicates, tx)
			continue
		}
		report.Unique = append(report.Unique, tx)
		known = append(known, tx)

		if cf := MatchCashflow(tx, cashflows); cf != nil {
			report.CashflowLinks = append(report.CashflowLinks, CashflowLink{Transaction: tx, Cashflow: cf})
		}
	}
	return report
}

// MatchCashflow returns the first recurring cashflow whose name contains, or
// is contained by, the transaction description (case-insensitive) with the
// amount within 10%. Informational only.
func MatchCashflow(tx *Transaction, cashflows []*Cashflow) *Cashflow {
	desc := strings.ToLower(tx.Description)
	for _, cf := range cashflows {
		name := strings.ToLower(cf.Name)
		if name == "" || (!strings.Contains(desc, name) && !strings.Contains(name, desc)) {
			continue
		}
		if cf.Amount.IsZero() {
			continue
		}
		diff := tx.Amount.Sub(cf.Amount).Abs()
		if diff.LessThanOrEqual(cf.Amount.Mul(cashflowAmountWindow)) {
			return cf
		}
	}
	return nil
}

// DescriptionSimilarity scores two descriptions in [0,1]. It prefers
// word-based comparison; when either side has no qualifying tokens it falls
// back to character-level Levenshtein similarity.
func DescriptionSimilarity(a, b string) float64 {
	aTokens := qualifyingTokens(a)
	bTokens := qualifyingTokens(b)

	if len(aTokens) > 0 && len(bTokens) > 0 {
		shorter, longer := aTokens, bTokens
		if len(bTokens) < len(aTokens) {
			shorter, longer = bTokens, aTokens
		}
		matched := 0
		for _, tok := range shorter {
			for _, other := range longer {
				if strings.Contains(other, tok) || strings.Contains(tok, other) {
					matched++
					break
				}
			}
		}
		return float64(matched) / float64(len(shorter))
	}

	return levenshteinSimilarity(strings.ToUpper(a), strings.ToUpper(b))
}

func qualifyingTokens(s string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToUpper(s)) {
		if len([]rune(tok)) >= minTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func levenshteinSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes edit distance with a single-row DP table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur := prev[0]
		prev[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min3(prev[j]+1, prev[j-1]+1, cur+cost)
			cur = prev[j]
			prev[j] = next
		}
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
