// Package service orchestrates the import pipeline: format detection,
// row normalization, duplicate detection, and pattern suggestion, per file,
// with per-file error isolation.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/imports/detector"
	"github.com/hearthfin/hearth/internal/domain/imports/normalizer"
	importsrepo "github.com/hearthfin/hearth/internal/domain/imports/repository"
	"github.com/hearthfin/hearth/internal/domain/ledger"
	ledgerrepo "github.com/hearthfin/hearth/internal/domain/ledger/repository"
	"github.com/hearthfin/hearth/internal/domain/patterns"
	patternsrepo "github.com/hearthfin/hearth/internal/domain/patterns/repository"
	"github.com/hearthfin/hearth/pkg/observability"
)

// FileInput is one uploaded statement export.
type FileInput struct {
	Name string
	Data []byte
}

// FileError reports a file-level failure. Row-level problems never surface
// here; they are soft-handled or silently dropped per the normalizer rules.
type FileError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// FileResult is the outcome of one file's trip through the pipeline.
type FileResult struct {
	File          string                         `json:"file"`
	JobID         uuid.UUID                      `json:"job_id"`
	Transactions  []*ledger.Transaction          `json:"transactions"`
	Duplicates    int                            `json:"duplicates"`
	Dropped       int                            `json:"dropped"`
	Suggestions   map[uuid.UUID][]patterns.Match `json:"suggestions,omitempty"`
	CashflowLinks []ledger.CashflowLink          `json:"cashflow_links,omitempty"`
}

// BatchResult aggregates a multi-file import. Files are processed
// sequentially; one malformed file never aborts the batch.
type BatchResult struct {
	Results []FileResult `json:"results"`
	Errors  []FileError  `json:"errors,omitempty"`
}

// AnalyzeResult describes a file without importing it.
type AnalyzeResult struct {
	Mapping           *detector.ColumnMapping `json:"mapping"`
	MappingSource     string                  `json:"mapping_source"` // "detected" or "remembered"
	HeaderFingerprint string                  `json:"header_fingerprint,omitempty"`
	SampleRows        [][]string              `json:"sample_rows,omitempty"`
}

const maxSampleRows = 5

// ImportService wires the pipeline to storage. The pattern catalog and
// existing-transaction set are loaded once per batch and treated as
// snapshots; only accepted rows are written back.
type ImportService struct {
	txRepo      ledgerrepo.TransactionRepository
	cashflows   ledgerrepo.CashflowRepository
	patternRepo patternsrepo.PatternRepository
	importRepo  importsrepo.ImportRepository
	det         *detector.Detector
	norm        *normalizer.Normalizer
	logger      *slog.Logger
}

// NewImportService creates the import orchestrator.
func NewImportService(
	txRepo ledgerrepo.TransactionRepository,
	cashflows ledgerrepo.CashflowRepository,
	patternRepo patternsrepo.PatternRepository,
	importRepo importsrepo.ImportRepository,
	det *detector.Detector,
	norm *normalizer.Normalizer,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		txRepo:      txRepo,
		cashflows:   cashflows,
		patternRepo: patternRepo,
		importRepo:  importRepo,
		det:         det,
		norm:        norm,
		logger:      logger,
	}
}

// AnalyzeFile detects the column structure of an upload without importing.
// A remembered mapping for the same header fingerprint takes precedence
// over fresh detection.
func (s *ImportService) AnalyzeFile(ctx context.Context, householdID uuid.UUID, file FileInput) (*AnalyzeResult, error) {
	records, err := readRecords(file.Data)
	if err != nil {
		return nil, err
	}

	mapping, err := s.resolveMapping(ctx, householdID, records)
	if err != nil {
		return nil, err
	}

	result := &AnalyzeResult{
		Mapping:       mapping.ColumnMapping,
		MappingSource: mapping.Source,
	}
	if mapping.ColumnMapping.HasHeader {
		result.HeaderFingerprint = HeaderFingerprint(mapping.ColumnMapping.Headers)
	}

	data := dataRecords(records, mapping.ColumnMapping)
	for i := 0; i < len(data) && i < maxSampleRows; i++ {
		result.SampleRows = append(result.SampleRows, data[i])
	}
	return result, nil
}

// ImportFiles runs the full pipeline over a batch. Snapshots of the stored
// transactions, cashflows, and pattern catalog are loaded once; accepted
// rows from earlier files in the batch count as "existing" for later ones.
func (s *ImportService) ImportFiles(ctx context.Context, householdID uuid.UUID, files []FileInput) (*BatchResult, error) {
	existing, err := s.txRepo.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing transactions: %w", err)
	}
	flows, err := s.cashflows.ListCashflows(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cashflows: %w", err)
	}
	catalog, err := s.patternRepo.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern catalog: %w", err)
	}

	batch := &BatchResult{}
	for _, file := range files {
		result, fileErr := s.importOne(ctx, householdID, file, existing, flows, catalog)
		if fileErr != nil {
			observability.FileFailures.Inc()
			batch.Errors = append(batch.Errors, FileError{File: file.Name, Message: fileErr.Error()})
			continue
		}
		batch.Results = append(batch.Results, *result)
		existing = append(existing, result.Transactions...)
	}
	return batch, nil
}

// importOne processes a single file end to end and persists accepted rows.
func (s *ImportService) importOne(
	ctx context.Context,
	householdID uuid.UUID,
	file FileInput,
	existing []*ledger.Transaction,
	flows []*ledger.Cashflow,
	catalog []*patterns.Pattern,
) (*FileResult, error) {
	job := &importsrepo.ImportJob{HouseholdID: householdID, FileName: file.Name}
	if err := s.importRepo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	result, err := s.processFile(ctx, householdID, file, existing, flows, catalog)
	if err != nil {
		msg := err.Error()
		if finishErr := s.importRepo.FinishJob(ctx, job.ID, importsrepo.JobStatusFailed, 0, 0, 0, &msg); finishErr != nil {
			s.logger.Warn("failed to finish import job", "job_id", job.ID, "error", finishErr)
		}
		return nil, err
	}
	result.JobID = job.ID

	if _, err := s.txRepo.BulkInsert(ctx, result.Transactions); err != nil {
		msg := err.Error()
		if finishErr := s.importRepo.FinishJob(ctx, job.ID, importsrepo.JobStatusFailed, 0, result.Duplicates, result.Dropped, &msg); finishErr != nil {
			s.logger.Warn("failed to finish import job", "job_id", job.ID, "error", finishErr)
		}
		return nil, fmt.Errorf("failed to store transactions: %w", err)
	}

	if err := s.importRepo.FinishJob(ctx, job.ID, importsrepo.JobStatusSucceeded,
		len(result.Transactions), result.Duplicates, result.Dropped, nil); err != nil {
		s.logger.Warn("failed to finish import job", "job_id", job.ID, "error", err)
	}

	s.logger.Info("file imported",
		"file", file.Name,
		"imported", len(result.Transactions),
		"duplicates", result.Duplicates,
		"dropped", result.Dropped)
	return result, nil
}

// processFile is the storage-free pipeline core: detect, normalize,
// deduplicate, suggest. Inputs are caller-owned snapshots.
func (s *ImportService) processFile(
	ctx context.Context,
	householdID uuid.UUID,
	file FileInput,
	existing []*ledger.Transaction,
	flows []*ledger.Cashflow,
	catalog []*patterns.Pattern,
) (*FileResult, error) {
	records, err := readRecords(file.Data)
	if err != nil {
		return nil, err
	}

	mapping, err := s.resolveMapping(ctx, householdID, records)
	if err != nil {
		return nil, err
	}

	data := dataRecords(records, mapping.ColumnMapping)
	var rows []*ledger.Transaction
	dropped := 0
	for _, record := range data {
		tx, ok := s.norm.NormalizeRow(record, mapping.ColumnMapping, householdID, file.Name)
		if !ok {
			dropped++
			observability.RowsDropped.Inc()
			continue
		}
		rows = append(rows, tx)
	}

	report := ledger.FindDuplicates(rows, existing, flows)
	observability.DuplicatesDetected.Add(float64(len(report.Duplicates)))
	observability.RowsImported.Add(float64(len(report.Unique)))

	result := &FileResult{
		File:          file.Name,
		Transactions:  report.Unique,
		Duplicates:    len(report.Duplicates),
		Dropped:       dropped,
		CashflowLinks: report.CashflowLinks,
		Suggestions:   make(map[uuid.UUID][]patterns.Match),
	}

	for _, tx := range report.Unique {
		matches := patterns.FindMatches(tx, catalog)
		if len(matches) == 0 {
			continue
		}
		observability.PatternMatches.Add(float64(len(matches)))
		result.Suggestions[tx.ID] = matches

		// Auto-fill policy: a sufficiently confident top match pre-fills the
		// classification; the user can still correct it.
		if top := matches[0]; patterns.AutoFillEligible(top) {
			tx.Type = top.Pattern.Type
			tx.Category = top.Pattern.Category
		}
	}
	return result, nil
}

// resolvedMapping pairs a ColumnMapping with where it came from.
type resolvedMapping struct {
	ColumnMapping *detector.ColumnMapping
	Source        string
}

// resolveMapping prefers a remembered bank mapping over fresh detection and
// remembers newly detected header mappings for next time.
func (s *ImportService) resolveMapping(ctx context.Context, householdID uuid.UUID, records [][]string) (*resolvedMapping, error) {
	if len(records) == 0 {
		return nil, common.ErrEmptyFile
	}
	first := records[0]

	if fp := headerFingerprintIfHeaderLike(first); fp != "" {
		stored, err := s.importRepo.GetMappingByFingerprint(ctx, householdID, fp)
		if err != nil {
			s.logger.Warn("bank mapping lookup failed, falling back to detection", "error", err)
		} else if stored != nil {
			m := stored.Mapping
			return &resolvedMapping{ColumnMapping: &m, Source: "remembered"}, nil
		}
	}

	mapping, err := s.det.Detect(first)
	if err != nil {
		return nil, err
	}

	if mapping.HasHeader {
		m := &importsrepo.BankMapping{
			HouseholdID: householdID,
			Fingerprint: HeaderFingerprint(mapping.Headers),
			BankName:    mapping.Format,
			Mapping:     *mapping,
		}
		if err := s.importRepo.SaveMapping(ctx, m); err != nil {
			s.logger.Warn("failed to remember bank mapping", "error", err)
		}
	}
	return &resolvedMapping{ColumnMapping: mapping, Source: "detected"}, nil
}

// HeaderFingerprint hashes normalized header labels so repeat uploads of the
// same bank's export skip detection.
func HeaderFingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}

// headerFingerprintIfHeaderLike returns a fingerprint only when the first
// record plausibly holds header labels rather than data; the full heuristic
// lives in the detector, this is just the cheap gate for the mapping cache.
func headerFingerprintIfHeaderLike(first []string) string {
	line := strings.ToLower(strings.Join(first, ","))
	for _, kw := range []string{"date", "description", "amount", "debit", "credit", "balance", "transaction"} {
		if strings.Contains(line, kw) {
			return HeaderFingerprint(first)
		}
	}
	return ""
}

// readRecords parses the file into CSV records, skipping blank lines.
// Quoted fields with embedded commas are honored by the reader's
// per-character scan.
func readRecords(data []byte) ([][]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, common.ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line: skip it, the surrounding rows still parse.
			continue
		}
		if isBlank(record) {
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, common.ErrEmptyFile
	}
	return records, nil
}

// dataRecords strips the header row when one was detected.
func dataRecords(records [][]string, mapping *detector.ColumnMapping) [][]string {
	if mapping.HasHeader && len(records) > 0 {
		return records[1:]
	}
	return records
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
