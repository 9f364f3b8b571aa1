// Package detector decides whether a bank export carries a header row and
// resolves which columns hold the date, description, and amounts. Bank
// exports rarely self-identify; the layered heuristics here trade perfect
// accuracy for broad coverage with explicit failure when structure cannot
// be inferred.
package detector

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hearthfin/hearth/internal/domain/common"
)

// ColumnMapping resolves column roles to zero-based indices. A role is -1
// when absent. Exactly one of Amount or the Debit/Credit pair is populated.
type ColumnMapping struct {
	Format      string   `json:"format"`
	HasHeader   bool     `json:"has_header"`
	Headers     []string `json:"headers,omitempty"`
	Date        int      `json:"date"`
	Description int      `json:"description"`
	Amount      int      `json:"amount"`
	Debit       int      `json:"debit"`
	Credit      int      `json:"credit"`
	Balance     int      `json:"balance"`
}

// DoubleEntry reports whether the mapping uses separate debit/credit columns.
func (m *ColumnMapping) DoubleEntry() bool { return m.Debit >= 0 }

// Config exposes the positional-inference thresholds. They are heuristics
// tuned to observed bank exports, not invariants.
type Config struct {
	// LongFieldLength marks a field as a real description rather than a
	// header label.
	LongFieldLength int
	// BalanceMagnitude is the minimum value for a trailing column to be
	// read as a running balance in ambiguous 4-column layouts.
	BalanceMagnitude float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		LongFieldLength:  20,
		BalanceMagnitude: 1000,
	}
}

// Detector infers column structure from the first non-empty row of a file.
type Detector struct {
	cfg Config
}

// New creates a Detector. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.LongFieldLength <= 0 {
		cfg.LongFieldLength = def.LongFieldLength
	}
	if cfg.BalanceMagnitude <= 0 {
		cfg.BalanceMagnitude = def.BalanceMagnitude
	}
	return &Detector{cfg: cfg}
}

var (
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	usDatePattern  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
)

// Detect resolves a ColumnMapping from the split fields of the first
// non-empty line. When the line is not a header it is treated as the first
// data row and structure is inferred positionally.
func (d *Detector) Detect(fields []string) (*ColumnMapping, error) {
	if len(fields) == 0 {
		return nil, common.ErrEmptyFile
	}
	if d.looksLikeHeader(fields) {
		return d.resolveHeader(fields)
	}
	return d.inferPositional(fields)
}

// looksLikeHeader applies the header-presence heuristic: the first field must
// not look like a date, the second field must not be long enough to be a real
// description, and the line must mention at least one header keyword.
func (d *Detector) looksLikeHeader(fields []string) bool {
	first := strings.TrimSpace(fields[0])
	if isoDatePattern.MatchString(first) || usDatePattern.MatchString(first) {
		return false
	}
	if len(fields) > 1 && len([]rune(strings.TrimSpace(fields[1]))) > d.cfg.LongFieldLength {
		return false
	}
	line := strings.ToLower(strings.Join(fields, ","))
	for _, kw := range headerKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

// resolveHeader matches normalized header labels against the known bank
// formats, falling back to generic substring resolution.
func (d *Detector) resolveHeader(fields []string) (*ColumnMapping, error) {
	headers := make([]string, len(fields))
	for i, h := range fields {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, format := range bankFormats {
		for _, cand := range format.candidates {
			if m, ok := matchCandidate(headers, fields, format, cand); ok {
				return m, nil
			}
		}
	}
	return d.resolveGeneric(headers, fields)
}

func matchCandidate(headers, original []string, format BankFormat, cand headerCandidate) (*ColumnMapping, bool) {
	find := func(label string) int {
		if label == "" {
			return -1
		}
		for i, h := range headers {
			if h == label {
				return i
			}
		}
		return -1
	}

	m := &ColumnMapping{
		Format:      format.Name,
		HasHeader:   true,
		Headers:     original,
		Date:        find(cand.date),
		Description: find(cand.description),
		Amount:      find(cand.amount),
		Debit:       find(cand.debit),
		Credit:      find(cand.credit),
		Balance:     find(cand.balance),
	}

	// Every label the candidate declares must be present.
	required := []struct {
		label string
		idx   int
	}{
		{cand.date, m.Date}, {cand.description, m.Description}, {cand.amount, m.Amount},
		{cand.debit, m.Debit}, {cand.credit, m.Credit}, {cand.balance, m.Balance},
	}
	for _, r := range required {
		if r.label != "" && r.idx < 0 {
			return nil, false
		}
	}
	return m, true
}

// resolveGeneric searches headers for canonical keyword substrings. Date,
// description, and at least one amount signal are required.
func (d *Detector) resolveGeneric(headers, original []string) (*ColumnMapping, error) {
	find := func(keys []string) int {
		for _, key := range keys {
			for i, h := range headers {
				if strings.Contains(h, key) {
					return i
				}
			}
		}
		return -1
	}

	m := &ColumnMapping{
		Format:      FormatGeneric,
		HasHeader:   true,
		Headers:     original,
		Date:        find(genericDateKeys),
		Description: find(genericDescKeys),
		Debit:       find(genericDebitKeys),
		Credit:      find(genericCreditKeys),
		Balance:     find(genericBalanceKeys),
		Amount:      -1,
	}
	if m.Debit < 0 {
		m.Amount = find(genericAmountKeys)
	}

	if m.Date < 0 || m.Description < 0 || (m.Amount < 0 && m.Debit < 0) {
		return nil, common.ErrUnknownLayout
	}
	return m, nil
}

// inferPositional derives structure from the column count and the numeric
// shape of the first data row.
func (d *Detector) inferPositional(fields []string) (*ColumnMapping, error) {
	n := len(fields)
	m := &ColumnMapping{
		Format:      FormatGeneric,
		HasHeader:   false,
		Date:        0,
		Description: 1,
		Amount:      -1,
		Debit:       -1,
		Credit:      -1,
		Balance:     -1,
	}

	switch {
	case n >= 5:
		col2Num, col2Set := numericShape(fields[2])
		col3Num, col3Set := numericShape(fields[3])
		col4Num, _ := numericShape(fields[4])
		populated := 0
		if col2Set {
			populated++
		}
		if col3Set {
			populated++
		}
		switch {
		case (col2Num || !col2Set) && (col3Num || !col3Set) && populated <= 1:
			m.Debit, m.Credit = 2, 3
			if col4Num {
				m.Balance = 4
			}
		case col4Num:
			m.Debit, m.Credit, m.Balance = 2, 3, 4
		default:
			m.Debit, m.Credit = 2, 3
		}
	case n == 4:
		col2Num, col2Set := numericShape(fields[2])
		col3Num, col3Set := numericShape(fields[3])
		switch {
		case (!col2Set && col3Num) || (!col3Set && col2Num):
			// One of the pair empty, the other numeric: debit/credit layout.
			m.Debit, m.Credit = 2, 3
		case col3Num && d.looksLikeBalance(fields[2], fields[3]):
			m.Amount, m.Balance = 2, 3
		default:
			// Ties default to debit/credit, the more common headerless layout.
			m.Debit, m.Credit = 2, 3
		}
	case n == 3:
		m.Amount = 2
	default:
		return nil, common.ErrUnknownLayout
	}

	return m, nil
}

// looksLikeBalance reports whether the last column's magnitude suggests a
// running balance next to a single amount column.
func (d *Detector) looksLikeBalance(amountField, balanceField string) bool {
	amount, okA := parseNumeric(amountField)
	balance, okB := parseNumeric(balanceField)
	if !okB {
		return false
	}
	if !okA {
		return balance > d.cfg.BalanceMagnitude
	}
	return balance > d.cfg.BalanceMagnitude && abs(amount) < abs(balance)
}

// numericShape reports whether a field parses as a number and whether it is
// populated at all.
func numericShape(field string) (numeric, populated bool) {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return false, false
	}
	_, ok := parseNumeric(trimmed)
	return ok, true
}

func parseNumeric(field string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(field))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
