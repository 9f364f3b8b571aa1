package normalizer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hearthfin/hearth/internal/domain/imports/detector"
	"github.com/hearthfin/hearth/internal/domain/ledger"
)

func debitCreditMapping() *detector.ColumnMapping {
	return &detector.ColumnMapping{
		Format:      "td",
		HasHeader:   true,
		Headers:     []string{"Date", "Description", "Debit", "Credit", "Balance"},
		Date:        0,
		Description: 1,
		Amount:      -1,
		Debit:       2,
		Credit:      3,
		Balance:     4,
	}
}

func singleAmountMapping() *detector.ColumnMapping {
	return &detector.ColumnMapping{
		Format:      detector.FormatGeneric,
		HasHeader:   false,
		Date:        0,
		Description: 1,
		Amount:      2,
		Debit:       -1,
		Credit:      -1,
		Balance:     -1,
	}
}

func TestNormalizeRow_DebitColumn(t *testing.T) {
	n := New(nil)
	householdID := uuid.New()

	tx, ok := n.NormalizeRow(
		[]string{"2024-01-02", "TIM HORTONS #1234", "5.40", "", "1240.88"},
		debitCreditMapping(), householdID, "td.csv")
	if !ok {
		t.Fatal("Expected row to normalize")
	}

	if tx.Date != "2024-01-02" {
		t.Errorf("Expected date 2024-01-02, got %s", tx.Date)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("5.40")) {
		t.Errorf("Expected amount 5.40, got %s", tx.Amount)
	}
	if !tx.IsDebit {
		t.Error("Expected debit direction")
	}
	if tx.Type != ledger.TypeExpense {
		t.Errorf("Expected expense type, got %s", tx.Type)
	}
	if tx.HouseholdID != householdID {
		t.Error("Expected household id to carry through")
	}
	if tx.Fingerprint == "" {
		t.Error("Expected fingerprint to be set")
	}
}

func TestNormalizeRow_CreditColumn(t *testing.T) {
	n := New(nil)

	tx, ok := n.NormalizeRow(
		[]string{"2024-01-05", "PAYROLL ACME", "", "2500.00", "3740.88"},
		debitCreditMapping(), uuid.New(), "td.csv")
	if !ok {
		t.Fatal("Expected row to normalize")
	}

	if tx.IsDebit {
		t.Error("Expected credit direction")
	}
	if tx.Type != ledger.TypeIncome {
		t.Errorf("Expected income type, got %s", tx.Type)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("2500")) {
		t.Errorf("Expected amount 2500, got %s", tx.Amount)
	}
}

func TestNormalizeRow_NegativeSingleAmount(t *testing.T) {
	n := New(nil)

	tx, ok := n.NormalizeRow(
		[]string{"01/15/2024", "GROCERY STORE", "-82.17"},
		singleAmountMapping(), uuid.New(), "generic.csv")
	if !ok {
		t.Fatal("Expected row to normalize")
	}

	if tx.Date != "2024-01-15" {
		t.Errorf("Expected US date converted to ISO, got %s", tx.Date)
	}
	if !tx.IsDebit {
		t.Error("Expected negative amount to read as debit")
	}
	if !tx.Amount.Equal(decimal.RequireFromString("82.17")) {
		t.Errorf("Expected absolute amount 82.17, got %s", tx.Amount)
	}
	if tx.Type != ledger.TypeExpense {
		t.Errorf("Expected expense type, got %s", tx.Type)
	}
}

func TestNormalizeRow_PositiveSingleAmount(t *testing.T) {
	n := New(nil)

	tx, ok := n.NormalizeRow(
		[]string{"01/15/2024", "PAYROLL ACME CORP", "2500.00"},
		singleAmountMapping(), uuid.New(), "generic.csv")
	if !ok {
		t.Fatal("Expected row to normalize")
	}

	if tx.IsDebit {
		t.Error("Expected positive amount to read as credit")
	}
	if tx.Type != ledger.TypeIncome {
		t.Errorf("Expected income type, got %s", tx.Type)
	}
}

func TestNormalizeRow_ZeroAmountUnclassified(t *testing.T) {
	n := New(nil)

	tx, ok := n.NormalizeRow(
		[]string{"2024-01-02", "CARD VERIFICATION", "0.00"},
		singleAmountMapping(), uuid.New(), "generic.csv")
	if !ok {
		t.Fatal("Expected row to normalize")
	}

	if tx.Type != ledger.TypeUnclassified {
		t.Errorf("Expected unclassified type for zero amount, got %s", tx.Type)
	}
	if !tx.Amount.IsZero() {
		t.Errorf("Expected zero amount, got %s", tx.Amount)
	}
}

func TestNormalizeRow_DropsMissingRequiredFields(t *testing.T) {
	n := New(nil)

	cases := [][]string{
		{"", "SOMETHING", "5.00"},       // no date
		{"2024-01-02", "", "5.00"},      // no description
		{"2024-01-02", "SOMETHING", ""}, // no amount signal
	}
	for _, record := range cases {
		if _, ok := n.NormalizeRow(record, singleAmountMapping(), uuid.New(), "f.csv"); ok {
			t.Errorf("Expected row %v to be dropped", record)
		}
	}
}

func TestNormalizeRow_UnparseableDateFallsBackToToday(t *testing.T) {
	n := New(nil)

	tx, ok := n.NormalizeRow(
		[]string{"Jan 2nd", "COFFEE", "4.50"},
		singleAmountMapping(), uuid.New(), "f.csv")
	if !ok {
		t.Fatal("Expected row to normalize despite bad date")
	}

	if tx.Date == "" {
		t.Error("Expected substituted date")
	}
	if _, err := ParseDate(tx.Date); err != nil {
		t.Errorf("Substituted date should be ISO, got %s", tx.Date)
	}
}

func TestNormalizeRow_RawFieldsPreserved(t *testing.T) {
	n := New(nil)

	tx, ok := n.NormalizeRow(
		[]string{"2024-01-02", "TIM HORTONS", "$5.40", "", "1,240.88"},
		debitCreditMapping(), uuid.New(), "td.csv")
	if !ok {
		t.Fatal("Expected row to normalize")
	}

	if tx.Raw["Debit"] != "$5.40" {
		t.Errorf("Expected verbatim debit value, got %q", tx.Raw["Debit"])
	}
	if tx.Raw["Balance"] != "1,240.88" {
		t.Errorf("Expected verbatim balance value, got %q", tx.Raw["Balance"])
	}
}

func TestNormalizeRow_RawFieldsPositionalKeys(t *testing.T) {
	n := New(nil)

	tx, ok := n.NormalizeRow(
		[]string{"2024-01-02", "COFFEE", "4.50"},
		singleAmountMapping(), uuid.New(), "f.csv")
	if !ok {
		t.Fatal("Expected row to normalize")
	}

	if tx.Raw["col0"] != "2024-01-02" || tx.Raw["col2"] != "4.50" {
		t.Errorf("Expected positional raw keys, got %v", tx.Raw)
	}
}

func TestParseDate_Layouts(t *testing.T) {
	cases := map[string]string{
		"2024-01-02": "2024-01-02",
		"01/02/2024": "2024-01-02",
		"1/2/2024":   "2024-01-02",
		"01-02-2024": "2024-01-02",
		"2024/01/02": "2024-01-02",
	}
	for raw, want := range cases {
		got, err := ParseDate(raw)
		if err != nil {
			t.Errorf("ParseDate(%q) failed: %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDate(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseDate_USOrder(t *testing.T) {
	// 03/04/2024 must read as March 4th, not April 3rd.
	got, err := ParseDate("03/04/2024")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if got != "2024-03-04" {
		t.Errorf("Expected 2024-03-04, got %s", got)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not a date", "13/45/2024"} {
		if _, err := ParseDate(raw); err == nil {
			t.Errorf("Expected ParseDate(%q) to fail", raw)
		}
	}
}

func TestParseAmount_Formats(t *testing.T) {
	cases := map[string]string{
		"5.40":      "5.40",
		"$5.40":     "5.40",
		"€12,99":    "1299", // comma is a thousands separator, never decimal
		"1,240.88":  "1240.88",
		"-82.17":    "-82.17",
		"(45.00)":   "-45.00",
		"$ 2500.00": "2500.00",
	}
	for raw, want := range cases {
		got, err := ParseAmount(raw)
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", raw, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "$"} {
		if _, err := ParseAmount(raw); err == nil {
			t.Errorf("Expected ParseAmount(%q) to fail", raw)
		}
	}
}
