// Package service exposes transaction queries and user-driven
// classification, feeding every correction back into the pattern learner.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/ledger"
	ledgerrepo "github.com/hearthfin/hearth/internal/domain/ledger/repository"
	"github.com/hearthfin/hearth/internal/domain/patterns"
	patternsrepo "github.com/hearthfin/hearth/internal/domain/patterns/repository"
	"github.com/hearthfin/hearth/pkg/observability"
)

// LedgerService handles transaction retrieval and classification.
type LedgerService struct {
	txRepo      ledgerrepo.TransactionRepository
	patternRepo patternsrepo.PatternRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewLedgerService creates the transaction service.
func NewLedgerService(
	txRepo ledgerrepo.TransactionRepository,
	patternRepo patternsrepo.PatternRepository,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		txRepo:      txRepo,
		patternRepo: patternRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// ListTransactions returns every stored transaction for a household.
func (s *LedgerService) ListTransactions(ctx context.Context, householdID uuid.UUID) ([]*ledger.Transaction, error) {
	return s.txRepo.ListByHousehold(ctx, householdID)
}

// GetTransaction returns a single transaction by id.
func (s *LedgerService) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return s.txRepo.GetByID(ctx, id)
}

// Classify applies a user-supplied classification to a transaction and folds
// the correction into the pattern catalog so future imports benefit from it.
func (s *LedgerService) Classify(ctx context.Context, householdID, txID uuid.UUID, c patterns.Classification) (*ledger.Transaction, error) {
	tx, err := s.txRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.HouseholdID != householdID {
		return nil, common.ErrNotFound
	}

	if err := s.txRepo.UpdateClassification(ctx, txID, c.Type, c.Category); err != nil {
		return nil, fmt.Errorf("failed to update classification: %w", err)
	}
	tx.Type = c.Type
	tx.Category = c.Category

	catalog, err := s.patternRepo.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern catalog: %w", err)
	}

	before := len(catalog)
	catalog = patterns.LearnFromClassification(tx, c, catalog, s.now())
	if len(catalog) > before {
		observability.PatternsLearned.Inc()
	}

	if err := s.patternRepo.SaveAll(ctx, catalog); err != nil {
		return nil, fmt.Errorf("failed to save pattern catalog: %w", err)
	}

	s.logger.Info("transaction classified",
		"transaction_id", txID,
		"type", c.Type,
		"category", c.Category,
		"new_pattern", len(catalog) > before)
	return tx, nil
}

// DeleteTransaction removes a transaction. Transactions belonging to a
// different household read as not found.
func (s *LedgerService) DeleteTransaction(ctx context.Context, householdID, id uuid.UUID) error {
	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tx.HouseholdID != householdID {
		return common.ErrNotFound
	}
	return s.txRepo.Delete(ctx, id)
}
