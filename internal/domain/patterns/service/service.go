// Package service manages the pattern catalog: seeding, feedback, and
// merging of overlapping rules.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/patterns"
	patternsrepo "github.com/hearthfin/hearth/internal/domain/patterns/repository"
)

// PatternService manages the household pattern catalog.
type PatternService struct {
	repo   patternsrepo.PatternRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewPatternService creates the catalog service.
func NewPatternService(repo patternsrepo.PatternRepository, logger *slog.Logger) *PatternService {
	return &PatternService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the household catalog, seeding the built-in starter patterns
// on first use so brand-new households get sensible suggestions immediately.
func (s *PatternService) List(ctx context.Context, householdID uuid.UUID) ([]*patterns.Pattern, error) {
	catalog, err := s.repo.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if len(catalog) > 0 {
		return catalog, nil
	}

	catalog = patterns.DefaultPatterns(householdID, s.now())
	if err := s.repo.SaveAll(ctx, catalog); err != nil {
		return nil, fmt.Errorf("failed to seed default patterns: %w", err)
	}
	s.logger.Info("seeded default patterns", "household_id", householdID, "count", len(catalog))
	return catalog, nil
}

// Feedback grades a suggestion and adjusts the pattern's confidence. The
// pattern must belong to the caller's household; foreign patterns read as
// not found.
func (s *PatternService) Feedback(ctx context.Context, householdID, patternID uuid.UUID, f patterns.Feedback) (*patterns.Pattern, error) {
	p, err := s.getOwned(ctx, householdID, patternID)
	if err != nil {
		return nil, err
	}

	patterns.ApplyFeedback(p, f, s.now())
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save pattern: %w", err)
	}

	s.logger.Info("pattern feedback applied",
		"pattern_id", patternID,
		"feedback", f,
		"confidence", p.Confidence)
	return p, nil
}

// MergePatterns folds two overlapping patterns into one. Both inputs must
// target the same classification and clear the similarity gate; otherwise the
// merge is refused with ErrBadRequest.
func (s *PatternService) MergePatterns(ctx context.Context, householdID, aID, bID uuid.UUID) (*patterns.Pattern, error) {
	a, err := s.getOwned(ctx, householdID, aID)
	if err != nil {
		return nil, err
	}
	b, err := s.getOwned(ctx, householdID, bID)
	if err != nil {
		return nil, err
	}

	if !patterns.Mergeable(a, b) {
		return nil, fmt.Errorf("%w: patterns are not similar enough to merge", common.ErrBadRequest)
	}

	merged := patterns.Merge(a, b, s.now())
	if err := s.repo.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to save merged pattern: %w", err)
	}
	if err := s.repo.Delete(ctx, aID); err != nil {
		return nil, fmt.Errorf("failed to delete source pattern: %w", err)
	}
	if err := s.repo.Delete(ctx, bID); err != nil {
		return nil, fmt.Errorf("failed to delete source pattern: %w", err)
	}

	s.logger.Info("patterns merged",
		"source_a", aID,
		"source_b", bID,
		"merged_id", merged.ID,
		"keywords", len(merged.Keywords))
	return merged, nil
}

// DeletePattern removes a pattern from the household's catalog.
func (s *PatternService) DeletePattern(ctx context.Context, householdID, id uuid.UUID) error {
	if _, err := s.getOwned(ctx, householdID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// getOwned loads a pattern and hides it behind ErrNotFound when it belongs
// to a different household.
func (s *PatternService) getOwned(ctx context.Context, householdID, id uuid.UUID) (*patterns.Pattern, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.HouseholdID != householdID {
		return nil, common.ErrNotFound
	}
	return p, nil
}
