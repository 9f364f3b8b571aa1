package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/imports/detector"
	"github.com/hearthfin/hearth/internal/domain/imports/normalizer"
	importsrepo "github.com/hearthfin/hearth/internal/domain/imports/repository"
	"github.com/hearthfin/hearth/internal/domain/ledger"
	"github.com/hearthfin/hearth/internal/domain/patterns"
)

// In-memory fakes. The import service only ever reads snapshots and writes
// accepted rows, so plain slices are enough.

type fakeTxRepo struct {
	stored   []*ledger.Transaction
	inserted []*ledger.Transaction
}

func (f *fakeTxRepo) ListByHousehold(_ context.Context, _ uuid.UUID) ([]*ledger.Transaction, error) {
	return f.stored, nil
}

func (f *fakeTxRepo) GetByID(_ context.Context, _ uuid.UUID) (*ledger.Transaction, error) {
	return nil, common.ErrNotFound
}

func (f *fakeTxRepo) BulkInsert(_ context.Context, txs []*ledger.Transaction) (int, error) {
	f.inserted = append(f.inserted, txs...)
	return len(txs), nil
}

func (f *fakeTxRepo) UpdateClassification(_ context.Context, _ uuid.UUID, _ ledger.Type, _ string) error {
	return nil
}

func (f *fakeTxRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type fakeCashflowRepo struct {
	flows []*ledger.Cashflow
}

func (f *fakeCashflowRepo) ListCashflows(_ context.Context, _ uuid.UUID) ([]*ledger.Cashflow, error) {
	return f.flows, nil
}

type fakePatternRepo struct {
	catalog []*patterns.Pattern
}

func (f *fakePatternRepo) ListByHousehold(_ context.Context, _ uuid.UUID) ([]*patterns.Pattern, error) {
	return f.catalog, nil
}

func (f *fakePatternRepo) GetByID(_ context.Context, _ uuid.UUID) (*patterns.Pattern, error) {
	return nil, common.ErrNotFound
}

func (f *fakePatternRepo) Save(_ context.Context, _ *patterns.Pattern) error { return nil }

func (f *fakePatternRepo) SaveAll(_ context.Context, catalog []*patterns.Pattern) error {
	f.catalog = catalog
	return nil
}

func (f *fakePatternRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type fakeImportRepo struct {
	mappings map[string]*importsrepo.BankMapping
	jobs     map[uuid.UUID]*importsrepo.ImportJob
}

func newFakeImportRepo() *fakeImportRepo {
	return &fakeImportRepo{
		mappings: make(map[string]*importsrepo.BankMapping),
		jobs:     make(map[uuid.UUID]*importsrepo.ImportJob),
	}
}

func (f *fakeImportRepo) GetMappingByFingerprint(_ context.Context, _ uuid.UUID, fingerprint string) (*importsrepo.BankMapping, error) {
	return f.mappings[fingerprint], nil
}

func (f *fakeImportRepo) SaveMapping(_ context.Context, m *importsrepo.BankMapping) error {
	f.mappings[m.Fingerprint] = m
	return nil
}

func (f *fakeImportRepo) CreateJob(_ context.Context, job *importsrepo.ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = importsrepo.JobStatusRunning
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeImportRepo) GetJobByID(_ context.Context, id uuid.UUID) (*importsrepo.ImportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return job, nil
}

func (f *fakeImportRepo) FinishJob(_ context.Context, id uuid.UUID, status string, imported, duplicate, dropped int, errorMessage *string) error {
	job, ok := f.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	job.Status = status
	job.RowsImported = imported
	job.RowsDuplicate = duplicate
	job.RowsDropped = dropped
	job.RowsTotal = imported + duplicate + dropped
	job.ErrorMessage = errorMessage
	return nil
}

type serviceFixture struct {
	svc        *ImportService
	txRepo     *fakeTxRepo
	flowRepo   *fakeCashflowRepo
	patterns   *fakePatternRepo
	importRepo *fakeImportRepo
}

func newFixture() *serviceFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &serviceFixture{
		txRepo:     &fakeTxRepo{},
		flowRepo:   &fakeCashflowRepo{},
		patterns:   &fakePatternRepo{},
		importRepo: newFakeImportRepo(),
	}
	f.svc = NewImportService(
		f.txRepo, f.flowRepo, f.patterns, f.importRepo,
		detector.New(detector.DefaultConfig()),
		normalizer.New(logger),
		logger,
	)
	return f
}

const tdCSV = `Date,Description,Debit,Credit,Balance
2024-01-02,TIM HORTONS #1234,5.40,,1240.88
2024-01-03,PAYROLL ACME CORP,,2500.00,3740.88
2024-01-05,NETFLIX.COM,16.99,,3723.89
`

func TestImportFiles_EndToEnd(t *testing.T) {
	f := newFixture()
	householdID := uuid.New()

	batch, err := f.svc.ImportFiles(context.Background(), householdID,
		[]FileInput{{Name: "td.csv", Data: []byte(tdCSV)}})
	require.NoError(t, err)
	require.Empty(t, batch.Errors)
	require.Len(t, batch.Results, 1)

	result := batch.Results[0]
	assert.Len(t, result.Transactions, 3)
	assert.Zero(t, result.Duplicates)
	assert.Zero(t, result.Dropped)
	assert.Len(t, f.txRepo.inserted, 3)

	job, err := f.importRepo.GetJobByID(context.Background(), result.JobID)
	require.NoError(t, err)
	assert.Equal(t, importsrepo.JobStatusSucceeded, job.Status)
	assert.Equal(t, 3, job.RowsImported)
	assert.Equal(t, 3, job.RowsTotal)

	// Directions resolved from the debit/credit columns.
	byDesc := make(map[string]*ledger.Transaction)
	for _, tx := range result.Transactions {
		byDesc[tx.Description] = tx
	}
	require.Contains(t, byDesc, "PAYROLL ACME CORP")
	assert.False(t, byDesc["PAYROLL ACME CORP"].IsDebit)
	assert.Equal(t, ledger.TypeIncome, byDesc["PAYROLL ACME CORP"].Type)
	require.Contains(t, byDesc, "TIM HORTONS #1234")
	assert.True(t, byDesc["TIM HORTONS #1234"].IsDebit)
}

func TestImportFiles_DeduplicatesAgainstStored(t *testing.T) {
	f := newFixture()
	householdID := uuid.New()

	amt := decimal.RequireFromString("5.40")
	f.txRepo.stored = []*ledger.Transaction{{
		ID:          uuid.New(),
		HouseholdID: householdID,
		Date:        "2024-01-02",
		Description: "TIM HORTONS #1234",
		Amount:      amt,
		Fingerprint: ledger.Fingerprint("2024-01-02", amt, "TIM HORTONS #1234"),
	}}

	batch, err := f.svc.ImportFiles(context.Background(), householdID,
		[]FileInput{{Name: "td.csv", Data: []byte(tdCSV)}})
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)

	assert.Equal(t, 1, batch.Results[0].Duplicates)
	assert.Len(t, batch.Results[0].Transactions, 2)
}

func TestImportFiles_CrossFileDedupWithinBatch(t *testing.T) {
	f := newFixture()

	batch, err := f.svc.ImportFiles(context.Background(), uuid.New(), []FileInput{
		{Name: "jan.csv", Data: []byte(tdCSV)},
		{Name: "jan-again.csv", Data: []byte(tdCSV)},
	})
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)

	assert.Len(t, batch.Results[0].Transactions, 3)
	// Second file repeats the first: everything flags as duplicate.
	assert.Equal(t, 3, batch.Results[1].Duplicates)
	assert.Empty(t, batch.Results[1].Transactions)
}

func TestImportFiles_BadFileDoesNotAbortBatch(t *testing.T) {
	f := newFixture()

	batch, err := f.svc.ImportFiles(context.Background(), uuid.New(), []FileInput{
		{Name: "empty.csv", Data: []byte("   \n")},
		{Name: "td.csv", Data: []byte(tdCSV)},
	})
	require.NoError(t, err)

	require.Len(t, batch.Errors, 1)
	assert.Equal(t, "empty.csv", batch.Errors[0].File)
	require.Len(t, batch.Results, 1)
	assert.Len(t, batch.Results[0].Transactions, 3)
}

func TestImportFiles_SuggestionsAndAutoFill(t *testing.T) {
	f := newFixture()
	f.patterns.catalog = []*patterns.Pattern{{
		ID:         uuid.New(),
		Keywords:   []string{"NETFLIX"},
		IsDebit:    true,
		Type:       ledger.TypeExpense,
		Category:   "Entertainment",
		Confidence: 80,
	}}

	batch, err := f.svc.ImportFiles(context.Background(), uuid.New(),
		[]FileInput{{Name: "td.csv", Data: []byte(tdCSV)}})
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)

	result := batch.Results[0]
	var netflix *ledger.Transaction
	for _, tx := range result.Transactions {
		if strings.Contains(tx.Description, "NETFLIX") {
			netflix = tx
		}
	}
	require.NotNil(t, netflix)

	suggestions := result.Suggestions[netflix.ID]
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "Entertainment", suggestions[0].Pattern.Category)

	// Full keyword match at confidence 80+20 clears the auto-fill threshold.
	assert.Equal(t, ledger.TypeExpense, netflix.Type)
	assert.Equal(t, "Entertainment", netflix.Category)
}

func TestImportFiles_LinksCashflows(t *testing.T) {
	f := newFixture()
	f.flowRepo.flows = []*ledger.Cashflow{{
		ID:     uuid.New(),
		Name:   "Netflix",
		Amount: decimal.RequireFromString("16.99"),
	}}

	batch, err := f.svc.ImportFiles(context.Background(), uuid.New(),
		[]FileInput{{Name: "td.csv", Data: []byte(tdCSV)}})
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	require.Len(t, batch.Results[0].CashflowLinks, 1)
	assert.Equal(t, "Netflix", batch.Results[0].CashflowLinks[0].Cashflow.Name)
}

func TestAnalyzeFile_DetectsAndRemembers(t *testing.T) {
	f := newFixture()
	householdID := uuid.New()

	first, err := f.svc.AnalyzeFile(context.Background(), householdID,
		FileInput{Name: "td.csv", Data: []byte(tdCSV)})
	require.NoError(t, err)
	assert.Equal(t, "detected", first.MappingSource)
	assert.Equal(t, "td", first.Mapping.Format)
	assert.NotEmpty(t, first.HeaderFingerprint)
	assert.Len(t, first.SampleRows, 3)

	// The resolved mapping is remembered; a repeat upload skips detection.
	second, err := f.svc.AnalyzeFile(context.Background(), householdID,
		FileInput{Name: "td-feb.csv", Data: []byte(tdCSV)})
	require.NoError(t, err)
	assert.Equal(t, "remembered", second.MappingSource)
	assert.Equal(t, "td", second.Mapping.Format)
}

func TestAnalyzeFile_EmptyFile(t *testing.T) {
	f := newFixture()

	_, err := f.svc.AnalyzeFile(context.Background(), uuid.New(),
		FileInput{Name: "empty.csv", Data: nil})
	assert.ErrorIs(t, err, common.ErrEmptyFile)
}

func TestHeaderFingerprint_Normalization(t *testing.T) {
	a := HeaderFingerprint([]string{"Date", "Description", "Debit", "Credit", "Balance"})
	b := HeaderFingerprint([]string{" date ", "DESCRIPTION", "debit", "credit", "balance"})
	c := HeaderFingerprint([]string{"Transaction Date", "Description 1", "CAD$"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestReadRecords_SkipsBlankAndMalformed(t *testing.T) {
	data := "Date,Description,Amount\n" +
		"2024-01-02,\"COFFEE, LARGE\",4.50\n" +
		"\n" +
		"2024-01-03,TEA,3.25\n"

	records, err := readRecords([]byte(data))
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Quoted field with an embedded comma stays one field.
	assert.Equal(t, "COFFEE, LARGE", records[1][1])
}
