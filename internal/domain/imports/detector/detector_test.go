package detector

import (
	"errors"
	"testing"

	"github.com/hearthfin/hearth/internal/domain/common"
)

func TestDetect_TDHeader(t *testing.T) {
	det := New(DefaultConfig())

	m, err := det.Detect([]string{"Date", "Description", "Debit", "Credit", "Balance"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.Format != "td" {
		t.Errorf("Expected format td, got %s", m.Format)
	}
	if !m.HasHeader {
		t.Error("Expected HasHeader to be true")
	}
	if m.Date != 0 || m.Description != 1 || m.Debit != 2 || m.Credit != 3 || m.Balance != 4 {
		t.Errorf("Unexpected column mapping: %+v", m)
	}
	if !m.DoubleEntry() {
		t.Error("Expected DoubleEntry to be true")
	}
}

func TestDetect_RBCHeader(t *testing.T) {
	det := New(DefaultConfig())

	m, err := det.Detect([]string{"Transaction Date", "Description 1", "CAD$"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.Format != "rbc" {
		t.Errorf("Expected format rbc, got %s", m.Format)
	}
	if m.Date != 0 || m.Description != 1 || m.Amount != 2 {
		t.Errorf("Unexpected column mapping: %+v", m)
	}
	if m.DoubleEntry() {
		t.Error("Expected single-amount style for rbc")
	}
}

func TestDetect_CIBCHeader(t *testing.T) {
	det := New(DefaultConfig())

	m, err := det.Detect([]string{"Date", "Transaction Description", "Funds Out", "Funds In"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.Format != "cibc" {
		t.Errorf("Expected format cibc, got %s", m.Format)
	}
	if m.Debit != 2 || m.Credit != 3 {
		t.Errorf("Unexpected debit/credit columns: %+v", m)
	}
}

func TestDetect_GenericHeader(t *testing.T) {
	det := New(DefaultConfig())

	m, err := det.Detect([]string{"Posting Date", "Merchant", "Amt"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.Format != FormatGeneric {
		t.Errorf("Expected generic format, got %s", m.Format)
	}
	if m.Date != 0 || m.Description != 1 || m.Amount != 2 {
		t.Errorf("Unexpected column mapping: %+v", m)
	}
}

func TestDetect_HeaderMissingAmountSignal(t *testing.T) {
	det := New(DefaultConfig())

	_, err := det.Detect([]string{"Date", "Description", "Notes"})
	if !errors.Is(err, common.ErrUnknownLayout) {
		t.Errorf("Expected ErrUnknownLayout, got %v", err)
	}
}

func TestDetect_HeaderlessDebitCredit(t *testing.T) {
	det := New(DefaultConfig())

	// First data row of a headerless TD-style export: debit populated,
	// credit empty.
	m, err := det.Detect([]string{"2024-01-02", "TIM HORTONS #1234", "5.40", "", "1240.88"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.HasHeader {
		t.Error("Expected HasHeader to be false for a data row")
	}
	if m.Date != 0 || m.Description != 1 {
		t.Errorf("Unexpected date/description columns: %+v", m)
	}
	if m.Debit != 2 || m.Credit != 3 {
		t.Errorf("Expected debit/credit at 2/3, got %+v", m)
	}
	if m.Balance != 4 {
		t.Errorf("Expected balance at 4, got %d", m.Balance)
	}
}

func TestDetect_HeaderlessFourColumnAmountBalance(t *testing.T) {
	det := New(DefaultConfig())

	// Both trailing columns populated; the last is large enough to be a
	// running balance.
	m, err := det.Detect([]string{"2024-01-02", "PAYROLL DEPOSIT", "250.00", "5240.88"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.Amount != 2 {
		t.Errorf("Expected amount at 2, got %d", m.Amount)
	}
	if m.Balance != 3 {
		t.Errorf("Expected balance at 3, got %d", m.Balance)
	}
}

func TestDetect_HeaderlessFourColumnDebitCredit(t *testing.T) {
	det := New(DefaultConfig())

	// Credit column empty: classic debit/credit split.
	m, err := det.Detect([]string{"01/02/2024", "GROCERY STORE", "82.17", ""})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.Debit != 2 || m.Credit != 3 {
		t.Errorf("Expected debit/credit at 2/3, got %+v", m)
	}
	if m.Balance != -1 {
		t.Errorf("Expected no balance column, got %d", m.Balance)
	}
}

func TestDetect_HeaderlessThreeColumn(t *testing.T) {
	det := New(DefaultConfig())

	m, err := det.Detect([]string{"01/15/2024", "PAYROLL ACME CORP", "-2500.00"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.HasHeader {
		t.Error("Expected HasHeader to be false")
	}
	if m.Amount != 2 {
		t.Errorf("Expected amount at 2, got %d", m.Amount)
	}
	if m.DoubleEntry() {
		t.Error("Expected single-amount style")
	}
}

func TestDetect_TooFewColumns(t *testing.T) {
	det := New(DefaultConfig())

	_, err := det.Detect([]string{"2024-01-02", "SOMETHING"})
	if !errors.Is(err, common.ErrUnknownLayout) {
		t.Errorf("Expected ErrUnknownLayout, got %v", err)
	}
}

func TestDetect_EmptyFields(t *testing.T) {
	det := New(DefaultConfig())

	_, err := det.Detect(nil)
	if !errors.Is(err, common.ErrEmptyFile) {
		t.Errorf("Expected ErrEmptyFile, got %v", err)
	}
}

func TestLooksLikeHeader_DateFirstFieldIsData(t *testing.T) {
	det := New(DefaultConfig())

	// A dated first field always reads as data even when the description
	// mentions a keyword.
	if det.looksLikeHeader([]string{"2024-01-02", "CREDIT CARD PAYMENT", "100.00"}) {
		t.Error("Expected a dated row not to look like a header")
	}
}

func TestLooksLikeHeader_LongSecondField(t *testing.T) {
	det := New(DefaultConfig())

	fields := []string{"X123", "INTERAC E-TRANSFER FROM JANE DOE REF 99812", "40.00"}
	if det.looksLikeHeader(fields) {
		t.Error("Expected a long second field to disqualify the header reading")
	}
}

func TestDetect_ConfigurableBalanceMagnitude(t *testing.T) {
	det := New(Config{BalanceMagnitude: 100})

	m, err := det.Detect([]string{"2024-01-02", "COFFEE", "4.50", "150.00"})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if m.Amount != 2 || m.Balance != 3 {
		t.Errorf("Expected amount/balance with lowered threshold, got %+v", m)
	}
}
