package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/domain/schedule"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
)

// CompletionSummary counts what a completion did to the exam's candidates.
type CompletionSummary struct {
	Advanced  int
	Graduated int
	Released  int
	Skipped   int
}

// GradingReconciler closes graded candidates into history and schedules
// their successors.
type GradingReconciler struct {
	candidates store.CandidateStore
	exams      store.ExamStore
	lock       *CandidateLock
	policy     schedule.Policy
	dates      calendar.Provider
	logger     *slog.Logger
	now        func() time.Time
}

// NewGradingReconciler creates a reconciler. All collaborators are required.
func NewGradingReconciler(
	candidates store.CandidateStore,
	exams store.ExamStore,
	policy schedule.Policy,
	dates calendar.Provider,
	log *slog.Logger,
) *GradingReconciler {
	if candidates == nil {
		panic("candidates cannot be nil")
	}
	if exams == nil {
		panic("exams cannot be nil")
	}
	if policy == nil {
		panic("policy cannot be nil")
	}
	if dates == nil {
		panic("dates cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &GradingReconciler{
		candidates: candidates,
		exams:      exams,
		lock:       NewCandidateLock(candidates, log),
		policy:     policy,
		dates:      dates,
		logger:     log.With(slog.String("component", "grading_reconciler")),
		now:        time.Now,
	}
}

// SubmitResults records results on the exam and completes it. Results for
// targets outside the exam are ignored. Submitting to a completed exam is a no-op.
func (r *GradingReconciler) SubmitResults(
	ctx context.Context,
	examID uuid.UUID,
	results []domain.ItemResult,
) (*domain.Exam, CompletionSummary, error) {
	log := logger.FromContextOrDefault(ctx, r.logger).With(slog.String("exam_id", examID.String()))

	exam, err := r.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, CompletionSummary{}, err
	}
	if exam.Completed() {
		log.Info("exam already completed, ignoring submission")
		return exam, CompletionSummary{}, nil
	}

	if ignored := countUnknown(exam, results); ignored > 0 {
		log.Debug("ignoring results for unknown targets", slog.Int("ignored", ignored))
	}

	exam.Results = exam.MergeResults(results)
	if err := r.exams.RecordResults(ctx, examID, exam.Results, r.now()); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return r.reload(ctx, examID)
		}
		return nil, CompletionSummary{}, NewCompleteExamError("failed to record results", err)
	}

	return r.complete(ctx, log, exam)
}

// Complete reconciles every candidate the exam still holds using the results
// recorded on the exam. Completing twice has no further effect.
func (r *GradingReconciler) Complete(ctx context.Context, examID uuid.UUID) (*domain.Exam, CompletionSummary, error) {
	log := logger.FromContextOrDefault(ctx, r.logger).With(slog.String("exam_id", examID.String()))

	exam, err := r.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, CompletionSummary{}, err
	}
	if exam.Completed() {
		log.Info("exam already completed")
		return exam, CompletionSummary{}, nil
	}
	return r.complete(ctx, log, exam)
}

func (r *GradingReconciler) complete(
	ctx context.Context,
	log *slog.Logger,
	exam *domain.Exam,
) (*domain.Exam, CompletionSummary, error) {
	var summary CompletionSummary

	locked, err := r.candidates.ListLockedByOwner(ctx, exam.Subject, exam.ID)
	if err != nil {
		return nil, summary, NewCompleteExamError("failed to list locked candidates", err)
	}

	gradedOn := r.dates.Today()
	for _, c := range locked {
		correct, graded := exam.ResultFor(c.TargetID)
		if !graded {
			ok, err := r.lock.Release(ctx, c.Subject, c.ID, exam.ID)
			if err != nil {
				return nil, summary, NewCompleteExamError("failed to release ungraded candidate", err)
			}
			if ok {
				summary.Released++
			} else {
				summary.Skipped++
			}
			continue
		}

		successor, err := r.successor(c, gradedOn, correct)
		if err != nil {
			return nil, summary, NewCompleteExamError("failed to schedule successor", err)
		}

		ok, err := r.lock.Supersede(ctx, c, exam.ID, r.now(), successor)
		if err != nil {
			return nil, summary, NewCompleteExamError("failed to supersede candidate", err)
		}
		switch {
		case !ok:
			summary.Skipped++
		case successor.Status == domain.CandidateStatusExcluded:
			summary.Graduated++
		default:
			summary.Advanced++
		}
	}

	if err := r.exams.MarkCompleted(ctx, exam.ID, gradedOn, exam.Results, r.now()); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			log.Info("exam completed concurrently")
			return r.reloadWith(ctx, exam.ID, summary)
		}
		return nil, summary, NewCompleteExamError("failed to mark exam completed", err)
	}

	exam.Status = domain.ExamStatusCompleted
	exam.SubmittedDate = &gradedOn

	log.Info("exam completed",
		slog.String("date", gradedOn.String()),
		slog.Int("advanced", summary.Advanced),
		slog.Int("graduated", summary.Graduated),
		slog.Int("released", summary.Released),
		slog.Int("skipped", summary.Skipped))
	return exam, summary, nil
}

// successor builds the candidate that replaces c after a graded answer.
func (r *GradingReconciler) successor(c *domain.ReviewCandidate, gradedOn calendar.Date, correct bool) (*domain.ReviewCandidate, error) {
	result, err := r.policy.Compute(c.Mode, gradedOn, correct, c.CorrectCount)
	if err != nil {
		return nil, fmt.Errorf("candidate %s: %w", c.ID, err)
	}

	next, err := domain.NewReviewCandidate(c.Subject, c.TargetID, c.Mode, result.NextDate, result.NextStreak, r.now())
	if err != nil {
		return nil, err
	}
	if result.Excluded {
		next.Status = domain.CandidateStatusExcluded
	}
	return next, nil
}

// DeleteExam releases every lock the exam holds and removes it. Candidates
// return to open with their schedule unchanged.
func (r *GradingReconciler) DeleteExam(ctx context.Context, examID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, r.logger).With(slog.String("exam_id", examID.String()))

	exam, err := r.exams.GetByID(ctx, examID)
	if err != nil {
		return 0, err
	}

	locked, err := r.candidates.ListLockedByOwner(ctx, exam.Subject, exam.ID)
	if err != nil {
		return 0, NewDeleteExamError("failed to list locked candidates", err)
	}

	released := 0
	for _, c := range locked {
		ok, err := r.lock.Release(ctx, c.Subject, c.ID, exam.ID)
		if err != nil {
			return released, NewDeleteExamError("failed to release candidate", err)
		}
		if ok {
			released++
		}
	}

	if err := r.exams.Delete(ctx, exam.ID); err != nil {
		return released, NewDeleteExamError("failed to delete exam", err)
	}

	log.Info("exam deleted",
		slog.Bool("was_completed", exam.Completed()),
		slog.Int("released", released))
	return released, nil
}

func (r *GradingReconciler) reload(ctx context.Context, examID uuid.UUID) (*domain.Exam, CompletionSummary, error) {
	return r.reloadWith(ctx, examID, CompletionSummary{})
}

func (r *GradingReconciler) reloadWith(
	ctx context.Context,
	examID uuid.UUID,
	summary CompletionSummary,
) (*domain.Exam, CompletionSummary, error) {
	exam, err := r.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, summary, err
	}
	return exam, summary, nil
}

func countUnknown(exam *domain.Exam, results []domain.ItemResult) int {
	n := 0
	for _, res := range results {
		if !exam.Contains(res.TargetID) {
			n++
		}
	}
	return n
}
