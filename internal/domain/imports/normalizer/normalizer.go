// Package normalizer converts raw CSV rows into canonical ledger
// transactions: flexible date parsing, currency-symbol stripping, and
// debit/credit direction resolution.
package normalizer

import (
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hearthfin/hearth/internal/domain/imports/detector"
	"github.com/hearthfin/hearth/internal/domain/ledger"
)

var (
	ErrInvalidDate   = errors.New("invalid date format")
	ErrInvalidAmount = errors.New("invalid amount format")
)

// usDatePattern special-cases MM/DD/YYYY before generic parsing to avoid
// month/day ambiguity.
var usDatePattern = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)

// dateLayouts are the accepted bank export date formats.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
}

const isoDate = "2006-01-02"

// Normalizer converts one raw row plus a resolved column mapping into a
// canonical Transaction. Unparseable dates and amounts are soft failures:
// the row is still emitted with a safe default and flagged downstream.
type Normalizer struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Normalizer. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger, now: time.Now}
}

// NormalizeRow converts a raw CSV record into a Transaction. The second
// return value is false when the row is dropped for missing required fields
// (date, description, any amount signal) — a silent drop, since bank exports
// routinely carry trailing summary and blank lines.
func (n *Normalizer) NormalizeRow(record []string, mapping *detector.ColumnMapping, householdID uuid.UUID, sourceFile string) (*ledger.Transaction, bool) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	rawDate := field(mapping.Date)
	description := field(mapping.Description)
	rawAmount := field(mapping.Amount)
	rawDebit := field(mapping.Debit)
	rawCredit := field(mapping.Credit)

	if rawDate == "" || description == "" {
		return nil, false
	}
	if rawAmount == "" && rawDebit == "" && rawCredit == "" {
		return nil, false
	}

	date, err := ParseDate(rawDate)
	if err != nil {
		// Soft failure: substitute today, keep the row, rely on user review.
		date = n.now().Format(isoDate)
		n.logger.Warn("unparseable date, substituting current date",
			"file", sourceFile, "value", rawDate)
	}

	amount, isDebit, txType := n.resolveAmount(rawAmount, rawDebit, rawCredit, sourceFile)

	tx := &ledger.Transaction{
		ID:          uuid.New(),
		HouseholdID: householdID,
		Date:        date,
		Description: description,
		Amount:      amount,
		IsDebit:     isDebit,
		Type:        txType,
		Raw:         rawFields(record, mapping),
		SourceFile:  sourceFile,
		ImportedAt:  n.now(),
	}
	tx.Fingerprint = ledger.Fingerprint(tx.Date, tx.Amount, tx.Description)
	return tx, true
}

// resolveAmount applies the direction rules: a populated debit column wins,
// then a populated credit column, then the sign of a single amount column.
// A zero amount leaves the type unclassified so the row stays visible for
// review.
func (n *Normalizer) resolveAmount(rawAmount, rawDebit, rawCredit, sourceFile string) (decimal.Decimal, bool, ledger.Type) {
	if rawDebit != "" {
		if v, err := ParseAmount(rawDebit); err == nil && v.IsPositive() {
			return v, true, ledger.TypeExpense
		}
	}
	if rawCredit != "" {
		if v, err := ParseAmount(rawCredit); err == nil && v.IsPositive() {
			return v, false, ledger.TypeIncome
		}
	}

	v, err := ParseAmount(rawAmount)
	if err != nil {
		n.logger.Warn("unparseable amount, defaulting to zero",
			"file", sourceFile, "value", rawAmount)
		return decimal.Zero, true, ledger.TypeUnclassified
	}
	if v.IsZero() {
		return decimal.Zero, true, ledger.TypeUnclassified
	}
	if v.IsNegative() {
		return v.Abs(), true, ledger.TypeExpense
	}
	return v, false, ledger.TypeIncome
}

// ParseDate parses a bank export date into ISO form. MM/DD/YYYY is handled
// before the generic layouts.
func ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidDate
	}
	if usDatePattern.MatchString(raw) {
		if t, err := time.Parse("1/2/2006", raw); err == nil {
			return t.Format(isoDate), nil
		}
		return "", ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(isoDate), nil
		}
	}
	return "", ErrInvalidDate
}

// ParseAmount strips currency symbols, thousands separators, and whitespace,
// preserving the sign. Callers take the absolute value once direction is
// resolved.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ',', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	// Accounting-style negatives: (45.00)
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + strings.Trim(cleaned, "()")
	}
	if cleaned == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return v, nil
}

// rawFields preserves the verbatim source values for audit and debugging.
func rawFields(record []string, mapping *detector.ColumnMapping) map[string]string {
	raw := make(map[string]string, len(record))
	for i, v := range record {
		key := ""
		if mapping.HasHeader && i < len(mapping.Headers) {
			key = strings.TrimSpace(mapping.Headers[i])
		}
		if key == "" {
			key = "col" + strconv.Itoa(i)
		}
		raw[key] = v
	}
	return raw
}
