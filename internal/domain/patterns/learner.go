package patterns

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hearthfin/hearth/internal/domain/ledger"
)

// Learner tuning constants.
const (
	reinforceBonus    = 5
	feedbackCorrect   = 5
	feedbackIncorrect = 10
	feedbackPartial   = 2
	initialConfidence = 50
	maxOverlapNeeded  = 2
	minKeywordLen     = 3
	jaccardThreshold  = 0.5
)

var (
	two             = decimal.NewFromInt(2)
	rangeLowFactor  = decimal.NewFromFloat(0.5)
	rangeHighFactor = decimal.NewFromFloat(2.0)
)

// stopwords are filler tokens that carry no merchant signal.
var stopwords = map[string]struct{}{
	"THE": {}, "AND": {}, "FOR": {}, "FROM": {}, "WITH": {},
	"PAYMENT": {}, "PURCHASE": {}, "POS": {}, "TRANSACTION": {},
	"ONLINE": {}, "WEB": {}, "INC": {}, "LTD": {}, "LLC": {},
}

// ExtractKeywords derives pattern keywords from a description: uppercase,
// stopword-filtered, longer than two characters, non-numeric, deduplicated.
func ExtractKeywords(description string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, tok := range strings.Fields(strings.ToUpper(description)) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(tok)) < minKeywordLen || isNumeric(tok) {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// LearnFromClassification folds a user correction into the catalog: an
// existing pattern with the same target and sufficient keyword overlap is
// reinforced, otherwise a new pattern is synthesized. The input catalog is
// caller-owned; the returned slice is the updated collection.
func LearnFromClassification(tx *ledger.Transaction, c Classification, catalog []*Pattern, now time.Time) []*Pattern {
	extracted := ExtractKeywords(tx.Description)

	needed := len(extracted) / 2
	if needed > maxOverlapNeeded {
		needed = maxOverlapNeeded
	}
	if needed < 1 {
		needed = 1
	}

	for _, p := range catalog {
		if p.Type != c.Type || p.Category != c.Category {
			continue
		}
		if keywordOverlap(extracted, p.Keywords) >= needed {
			p.Confidence = clampConfidence(p.Confidence + reinforceBonus)
			p.MatchCount++
			p.LastUsed = now
			p.UpdatedAt = now
			return catalog
		}
	}

	p := &Pattern{
		ID:          uuid.New(),
		HouseholdID: tx.HouseholdID,
		Keywords:    extracted,
		IsDebit:     tx.IsDebit,
		Type:        c.Type,
		Category:    c.Category,
		Owner:       c.Owner,
		Confidence:  initialConfidence,
		MatchCount:  1,
		LastUsed:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if tx.Amount.IsPositive() {
		low := tx.Amount.Mul(rangeLowFactor)
		high := tx.Amount.Mul(rangeHighFactor)
		p.AmountMin = &low
		p.AmountMax = &high
	}
	return append(catalog, p)
}

// ApplyFeedback revises a pattern's confidence from a graded suggestion.
func ApplyFeedback(p *Pattern, f Feedback, now time.Time) {
	switch f {
	case FeedbackCorrect:
		p.Confidence = clampConfidence(p.Confidence + feedbackCorrect)
		p.UserConfirmed = true
	case FeedbackIncorrect:
		p.Confidence = clampConfidence(p.Confidence - feedbackIncorrect)
		p.UserRejected = true
	case FeedbackPartial:
		p.Confidence = clampConfidence(p.Confidence + feedbackPartial)
	}
	p.UpdatedAt = now
}

// Mergeable reports whether two patterns target the same classification and
// their keyword sets exceed the Jaccard similarity threshold.
func Mergeable(a, b *Pattern) bool {
	if a.Type != b.Type || a.Category != b.Category {
		return false
	}
	return JaccardSimilarity(a.Keywords, b.Keywords) > jaccardThreshold
}

// Merge folds two patterns into one: union of keywords, min/max amount
// envelope, averaged confidence, summed match counts. Confirmed if any input
// was confirmed; rejected only if all inputs were rejected.
func Merge(a, b *Pattern, now time.Time) *Pattern {
	merged := &Pattern{
		ID:            uuid.New(),
		HouseholdID:   a.HouseholdID,
		Keywords:      unionKeywords(a.Keywords, b.Keywords),
		IsDebit:       a.IsDebit,
		Type:          a.Type,
		Category:      a.Category,
		Owner:         a.Owner,
		Confidence:    clampConfidence(int(math.Round(float64(a.Confidence+b.Confidence) / 2))),
		MatchCount:    a.MatchCount + b.MatchCount,
		UserConfirmed: a.UserConfirmed || b.UserConfirmed,
		UserRejected:  a.UserRejected && b.UserRejected,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if merged.Owner == "" {
		merged.Owner = b.Owner
	}

	merged.LastUsed = a.LastUsed
	if b.LastUsed.After(a.LastUsed) {
		merged.LastUsed = b.LastUsed
	}

	merged.AmountMin, merged.AmountMax = mergeRange(a, b)
	return merged
}

// JaccardSimilarity is intersection over union of two keyword sets.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, kw := range a {
		set[strings.ToUpper(kw)] = struct{}{}
	}
	intersection := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, kw := range b {
		kw = strings.ToUpper(kw)
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		if _, ok := set[kw]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// keywordOverlap counts extracted terms that match a pattern keyword,
// substring-tolerant in either direction.
func keywordOverlap(extracted, patternKeywords []string) int {
	overlap := 0
	for _, e := range extracted {
		for _, k := range patternKeywords {
			if strings.Contains(e, k) || strings.Contains(k, e) {
				overlap++
				break
			}
		}
	}
	return overlap
}

func unionKeywords(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, kw := range append(append([]string{}, a...), b...) {
		kw = strings.ToUpper(kw)
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func mergeRange(a, b *Pattern) (*decimal.Decimal, *decimal.Decimal) {
	var minV, maxV *decimal.Decimal
	for _, p := range []*Pattern{a, b} {
		if p.AmountMin != nil && (minV == nil || p.AmountMin.LessThan(*minV)) {
			v := *p.AmountMin
			minV = &v
		}
		if p.AmountMax != nil && (maxV == nil || p.AmountMax.GreaterThan(*maxV)) {
			v := *p.AmountMax
			maxV = &v
		}
	}
	return minV, maxV
}

func isNumeric(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
