package review_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/mocks"
	"github.com/phrazzld/kioku-api/internal/service/review"
	"github.com/phrazzld/kioku-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradeOnce(t *testing.T, f *fixture, mode domain.Mode, target string, correct bool) review.CompletionSummary {
	t.Helper()
	ctx := context.Background()
	exam, err := f.assembler.CreateExam(ctx, review.CreateExamRequest{Subject: "s", Mode: mode, Count: 10})
	require.NoError(t, err)
	require.Contains(t, exam.TargetIDs, target)

	_, summary, err := f.reconciler.SubmitResults(ctx, exam.ID, []domain.ItemResult{{TargetID: target, Correct: correct}})
	require.NoError(t, err)
	return summary
}

func TestSubmitResults_MaterialScenario(t *testing.T) {
	f := newFixture(t, "2025-01-01")
	f.addCandidate(t, "s", "q1", domain.ModeMaterialQuestion, "2025-01-01", 0)

	summary := gradeOnce(t, f, domain.ModeMaterialQuestion, "q1", true)
	assert.Equal(t, review.CompletionSummary{Advanced: 1}, summary)

	next := f.active(t, "s", "q1")
	require.NotNil(t, next)
	assert.Equal(t, 1, next.CorrectCount)
	assert.Equal(t, calendar.MustParse("2025-04-01"), next.NextTime)
	assert.Equal(t, domain.CandidateStatusOpen, next.Status)

	history, err := f.candidates.ListByTarget(context.Background(), "q1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.CandidateStatusClosed, history[0].Status)
	assert.NotNil(t, history[0].ClosedAt)
	assert.Nil(t, history[0].LockOwnerID)

	f.clock.Set("2025-04-01")
	gradeOnce(t, f, domain.ModeMaterialQuestion, "q1", true)
	next = f.active(t, "s", "q1")
	require.NotNil(t, next)
	assert.Equal(t, 2, next.CorrectCount)
	assert.Equal(t, calendar.MustParse("2025-06-30"), next.NextTime)

	f.clock.Set("2025-06-30")
	summary = gradeOnce(t, f, domain.ModeMaterialQuestion, "q1", true)
	assert.Equal(t, review.CompletionSummary{Graduated: 1}, summary)

	assert.Nil(t, f.active(t, "s", "q1"))
	graduated := f.latest(t, "s", "q1")
	require.NotNil(t, graduated)
	assert.Equal(t, domain.CandidateStatusExcluded, graduated.Status)
	assert.Equal(t, calendar.ExcludedSentinel, graduated.NextTime)
	assert.Equal(t, 3, graduated.CorrectCount)

	due, err := f.candidates.ListDue(context.Background(), "s", nil, calendar.MustParse("9999-12-31"))
	require.NoError(t, err)
	assert.Empty(t, due, "graduated items never come due again")
}

func TestSubmitResults_MissResetsStreak(t *testing.T) {
	f := newFixture(t, "2025-01-01")
	f.addKanji(t, "s", "k1", "やま", "mountain")

	gradeOnce(t, f, domain.ModeKanji, "k1", true)
	assert.Equal(t, 1, f.active(t, "s", "k1").CorrectCount)
	assert.Equal(t, calendar.MustParse("2025-01-31"), f.active(t, "s", "k1").NextTime)

	f.clock.Set("2025-01-31")
	gradeOnce(t, f, domain.ModeKanji, "k1", true)
	assert.Equal(t, 2, f.active(t, "s", "k1").CorrectCount)

	f.clock.Set("2025-05-01")
	gradeOnce(t, f, domain.ModeKanji, "k1", false)
	next := f.active(t, "s", "k1")
	assert.Equal(t, 0, next.CorrectCount)
	assert.Equal(t, calendar.MustParse("2025-05-02"), next.NextTime)
}

func TestSubmitResults_UngradedAndUnknownTargets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-01-05")
	graded := f.addCandidate(t, "s", "graded", domain.ModeMaterialQuestion, "2025-01-01", 0)
	skipped := f.addCandidate(t, "s", "skipped", domain.ModeMaterialQuestion, "2025-01-02", 0)

	exam, err := f.assembler.CreateExam(ctx, materialRequest(2))
	require.NoError(t, err)

	completed, summary, err := f.reconciler.SubmitResults(ctx, exam.ID, []domain.ItemResult{
		{TargetID: "graded", Correct: false},
		{TargetID: "not-in-exam", Correct: true},
	})
	require.NoError(t, err)
	assert.Equal(t, review.CompletionSummary{Advanced: 1, Released: 1}, summary)
	assert.True(t, completed.Completed())
	assert.Equal(t, []domain.ItemResult{{TargetID: "graded", Correct: false}}, completed.Results)
	require.NotNil(t, completed.SubmittedDate)
	assert.Equal(t, calendar.MustParse("2025-01-05"), *completed.SubmittedDate)

	restored, err := f.candidates.Get(ctx, "s", skipped.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CandidateStatusOpen, restored.Status)
	assert.Equal(t, skipped.NextTime, restored.NextTime)
	assert.Equal(t, skipped.CorrectCount, restored.CorrectCount)

	old, err := f.candidates.Get(ctx, "s", graded.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CandidateStatusClosed, old.Status)
	assert.Equal(t, calendar.MustParse("2025-02-04"), f.active(t, "s", "graded").NextTime)

	_, _, err = f.reconciler.SubmitResults(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, store.ErrExamNotFound)
}

func TestComplete_UsesRecordedResultsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-01-05")
	f.addCandidate(t, "s", "a", domain.ModeMaterialQuestion, "2025-01-01", 0)
	f.addCandidate(t, "s", "b", domain.ModeMaterialQuestion, "2025-01-02", 0)

	exam, err := f.assembler.CreateExam(ctx, materialRequest(2))
	require.NoError(t, err)
	require.NoError(t, f.exams.RecordResults(ctx, exam.ID, []domain.ItemResult{
		{TargetID: "a", Correct: true},
		{TargetID: "b", Correct: false},
	}, time.Now()))

	_, summary, err := f.reconciler.Complete(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, review.CompletionSummary{Advanced: 2}, summary)

	snapshot := func() []*domain.ReviewCandidate {
		var all []*domain.ReviewCandidate
		for _, target := range []string{"a", "b"} {
			h, err := f.candidates.ListByTarget(ctx, target)
			require.NoError(t, err)
			all = append(all, h...)
		}
		return all
	}
	before := snapshot()

	again, summary, err := f.reconciler.Complete(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, review.CompletionSummary{}, summary)
	assert.True(t, again.Completed())

	_, summary, err = f.reconciler.SubmitResults(ctx, exam.ID, []domain.ItemResult{{TargetID: "a", Correct: false}})
	require.NoError(t, err)
	assert.Equal(t, review.CompletionSummary{}, summary)

	assert.Equal(t, before, snapshot())
}

func TestComplete_ConcurrentCallsCreateOneSuccessor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-01-05")
	targetIDs := []string{"a", "b", "c", "d"}
	var results []domain.ItemResult
	for _, target := range targetIDs {
		f.addCandidate(t, "s", target, domain.ModeMaterialQuestion, "2025-01-01", 0)
		results = append(results, domain.ItemResult{TargetID: target, Correct: true})
	}

	exam, err := f.assembler.CreateExam(ctx, materialRequest(len(targetIDs)))
	require.NoError(t, err)
	require.NoError(t, f.exams.RecordResults(ctx, exam.ID, results, time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.reconciler.Complete(ctx, exam.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, target := range targetIDs {
		history, err := f.candidates.ListByTarget(ctx, target)
		require.NoError(t, err)
		assert.Len(t, history, 2, "target %s", target)
		assert.Equal(t, 1, f.active(t, "s", target).CorrectCount)
	}
}

func TestComplete_ConcurrentMarkCompletedIsSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-01-05")
	f.addCandidate(t, "s", "a", domain.ModeMaterialQuestion, "2025-01-01", 0)

	exam, err := f.assembler.CreateExam(ctx, materialRequest(1))
	require.NoError(t, err)

	exams := &mocks.MockExamStore{ExamStore: f.exams}
	exams.MarkCompletedFn = func(ctx context.Context, id uuid.UUID, submitted calendar.Date, results []domain.ItemResult, at time.Time) error {
		require.NoError(t, f.exams.MarkCompleted(ctx, id, submitted, results, at))
		return store.ErrConditionFailed
	}
	reconciler := review.NewGradingReconciler(f.candidates, exams, policyForTest(), f.clock, nil)

	got, _, err := reconciler.Complete(ctx, exam.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed())
}

func TestDeleteExam_ReleasesLocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-01-05")
	a := f.addCandidate(t, "s", "a", domain.ModeMaterialQuestion, "2025-01-01", 0)
	b := f.addCandidate(t, "s", "b", domain.ModeMaterialQuestion, "2025-01-03", 0)

	exam, err := f.assembler.CreateExam(ctx, materialRequest(2))
	require.NoError(t, err)

	released, err := f.reconciler.DeleteExam(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	for _, c := range []*domain.ReviewCandidate{a, b} {
		got, err := f.candidates.Get(ctx, "s", c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CandidateStatusOpen, got.Status)
		assert.Equal(t, c.NextTime, got.NextTime)
		assert.Equal(t, c.CorrectCount, got.CorrectCount)
	}

	_, err = f.exams.GetByID(ctx, exam.ID)
	assert.ErrorIs(t, err, store.ErrExamNotFound)

	next, err := f.assembler.CreateExam(ctx, materialRequest(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, targets(next))

	_, err = f.reconciler.DeleteExam(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrExamNotFound)
}

func TestNewGradingReconciler_RequiresCollaborators(t *testing.T) {
	f := newFixture(t, "2025-01-01")
	assert.Panics(t, func() { review.NewGradingReconciler(nil, f.exams, policyForTest(), f.clock, nil) })
	assert.Panics(t, func() { review.NewGradingReconciler(f.candidates, f.exams, nil, f.clock, nil) })
	assert.Panics(t, func() { review.NewExamAssembler(f.candidates, f.exams, f.items, nil, nil) })
}
