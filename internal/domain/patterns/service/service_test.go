package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/ledger"
	"github.com/hearthfin/hearth/internal/domain/patterns"
)

type fakePatternRepo struct {
	byID map[uuid.UUID]*patterns.Pattern
}

func newFakePatternRepo(ps ...*patterns.Pattern) *fakePatternRepo {
	f := &fakePatternRepo{byID: make(map[uuid.UUID]*patterns.Pattern)}
	for _, p := range ps {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePatternRepo) ListByHousehold(_ context.Context, householdID uuid.UUID) ([]*patterns.Pattern, error) {
	var out []*patterns.Pattern
	for _, p := range f.byID {
		if p.HouseholdID == householdID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePatternRepo) GetByID(_ context.Context, id uuid.UUID) (*patterns.Pattern, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (f *fakePatternRepo) Save(_ context.Context, p *patterns.Pattern) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.byID[p.ID] = p
	return nil
}

func (f *fakePatternRepo) SaveAll(ctx context.Context, catalog []*patterns.Pattern) error {
	for _, p := range catalog {
		if err := f.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakePatternRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func newTestService(repo *fakePatternRepo) *PatternService {
	svc := NewPatternService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func catalogPattern(householdID uuid.UUID, keywords []string, confidence int) *patterns.Pattern {
	return &patterns.Pattern{
		ID:          uuid.New(),
		HouseholdID: householdID,
		Keywords:    keywords,
		IsDebit:     true,
		Type:        ledger.TypeExpense,
		Category:    "Dining",
		Confidence:  confidence,
		MatchCount:  3,
	}
}

func TestFeedbackAdjustsConfidence(t *testing.T) {
	household := uuid.New()
	p := catalogPattern(household, []string{"TIM", "HORTONS"}, 60)
	repo := newFakePatternRepo(p)
	svc := newTestService(repo)

	got, err := svc.Feedback(context.Background(), household, p.ID, patterns.FeedbackCorrect)
	require.NoError(t, err)
	assert.Equal(t, 65, got.Confidence)
	assert.True(t, got.UserConfirmed)
}

func TestFeedbackOtherHouseholdReadsAsNotFound(t *testing.T) {
	victim := catalogPattern(uuid.New(), []string{"NETFLIX"}, 70)
	repo := newFakePatternRepo(victim)
	svc := newTestService(repo)

	_, err := svc.Feedback(context.Background(), uuid.New(), victim.ID, patterns.FeedbackIncorrect)
	require.ErrorIs(t, err, common.ErrNotFound)

	// The foreign pattern must be untouched.
	assert.Equal(t, 70, victim.Confidence)
	assert.False(t, victim.UserRejected)
}

func TestMergePatternsSameHousehold(t *testing.T) {
	household := uuid.New()
	a := catalogPattern(household, []string{"TIM", "HORTONS"}, 60)
	b := catalogPattern(household, []string{"TIM", "HORTONS", "DRIVETHRU"}, 70)
	repo := newFakePatternRepo(a, b)
	svc := newTestService(repo)

	merged, err := svc.MergePatterns(context.Background(), household, a.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, merged.Keywords, 3)
	assert.Len(t, repo.byID, 1)
}

func TestMergePatternsOtherHouseholdReadsAsNotFound(t *testing.T) {
	attacker := uuid.New()
	victimPattern := catalogPattern(uuid.New(), []string{"TIM", "HORTONS"}, 60)
	own := catalogPattern(attacker, []string{"TIM", "HORTONS"}, 70)
	repo := newFakePatternRepo(victimPattern, own)
	svc := newTestService(repo)

	_, err := svc.MergePatterns(context.Background(), attacker, victimPattern.ID, own.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	// Neither source may be deleted when the merge is refused.
	assert.Len(t, repo.byID, 2)
}

func TestMergePatternsDissimilarRefused(t *testing.T) {
	household := uuid.New()
	a := catalogPattern(household, []string{"TIM", "HORTONS"}, 60)
	b := catalogPattern(household, []string{"NETFLIX", "STREAMING"}, 70)
	repo := newFakePatternRepo(a, b)
	svc := newTestService(repo)

	_, err := svc.MergePatterns(context.Background(), household, a.ID, b.ID)
	require.ErrorIs(t, err, common.ErrBadRequest)
	assert.Len(t, repo.byID, 2)
}

func TestDeletePattern(t *testing.T) {
	household := uuid.New()
	p := catalogPattern(household, []string{"NETFLIX"}, 70)
	repo := newFakePatternRepo(p)
	svc := newTestService(repo)

	require.NoError(t, svc.DeletePattern(context.Background(), household, p.ID))
	assert.Empty(t, repo.byID)
}

func TestDeletePatternOtherHouseholdReadsAsNotFound(t *testing.T) {
	victim := catalogPattern(uuid.New(), []string{"NETFLIX"}, 70)
	repo := newFakePatternRepo(victim)
	svc := newTestService(repo)

	err := svc.DeletePattern(context.Background(), uuid.New(), victim.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Len(t, repo.byID, 1)
}
