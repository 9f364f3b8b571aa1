package patterns

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hearthfin/hearth/internal/domain/ledger"
)

// Confidence adjustment constants.
const (
	fullMatchBonus      = 20
	partialMatchFloor   = 0.5
	amountWeight        = 0.1
	confidenceCeiling   = 100
	autoFillThreshold   = 70 // policy constant owned by callers, exported via AutoFillEligible
	maxConfidenceReason = "All keywords matched"
)

// FindMatches scores a transaction against the catalog and returns candidate
// classifications sorted by descending confidence. Hard filters: rejected
// patterns, debit/credit mismatch, and zero keyword hits.
func FindMatches(tx *ledger.Transaction, catalog []*Pattern) []Match {
	desc := strings.ToUpper(tx.Description)

	var matches []Match
	for _, p := range catalog {
		if p.UserRejected || p.IsDebit != tx.IsDebit || len(p.Keywords) == 0 {
			continue
		}

		var hit []string
		for _, kw := range p.Keywords {
			if kw != "" && strings.Contains(desc, strings.ToUpper(kw)) {
				hit = append(hit, kw)
			}
		}
		if len(hit) == 0 {
			continue
		}

		confidence := float64(p.Confidence)
		var reason string
		if len(hit) == len(p.Keywords) {
			confidence = math.Min(confidenceCeiling, confidence+fullMatchBonus)
			reason = fmt.Sprintf("%s: %s", maxConfidenceReason, strings.Join(hit, ", "))
		} else {
			ratio := float64(len(hit)) / float64(len(p.Keywords))
			confidence *= partialMatchFloor + partialMatchFloor*ratio
			reason = fmt.Sprintf("Partial match: %d of %d keywords", len(hit), len(p.Keywords))
		}

		// Amount proximity is a secondary, non-rejecting signal bound to ±10%.
		if p.HasAmountRange() {
			confidence *= 1 - amountWeight + amountWeight*amountProximity(p, tx)
		}

		matches = append(matches, Match{
			Pattern:         p,
			Confidence:      clampConfidence(int(math.Round(confidence))),
			MatchedKeywords: hit,
			Reason:          reason,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// AutoFillEligible reports whether a match clears the UI auto-fill policy
// threshold.
func AutoFillEligible(m Match) bool { return m.Confidence >= autoFillThreshold }

// amountProximity returns 1 at the range midpoint, decaying linearly to 0 at
// one full range-width away.
func amountProximity(p *Pattern, tx *ledger.Transaction) float64 {
	width, _ := p.AmountMax.Sub(*p.AmountMin).Float64()
	if width <= 0 {
		return 1
	}
	mid, _ := p.AmountMin.Add(*p.AmountMax).Div(two).Float64()
	amount, _ := tx.Amount.Float64()
	return math.Max(0, 1-math.Abs(amount-mid)/width)
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > confidenceCeiling {
		return confidenceCeiling
	}
	return c
}
