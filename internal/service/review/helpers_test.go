package review_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/domain/schedule"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/platform/memory"
	"github.com/phrazzld/kioku-api/internal/service/review"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// dayClock is a calendar.Provider tests can advance.
type dayClock struct {
	mu  sync.Mutex
	day calendar.Date
}

func newDayClock(day string) *dayClock {
	return &dayClock{day: calendar.MustParse(day)}
}

func (c *dayClock) Today() calendar.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

func (c *dayClock) Set(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = calendar.MustParse(day)
}

type fixture struct {
	candidates *memory.CandidateStore
	exams      *memory.ExamStore
	items      *memory.ItemStore
	clock      *dayClock
	assembler  *review.ExamAssembler
	reconciler *review.GradingReconciler
}

func newFixture(t *testing.T, day string, opts ...review.AssemblerOption) *fixture {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	f := &fixture{
		candidates: memory.NewCandidateStore(log),
		exams:      memory.NewExamStore(),
		items:      memory.NewItemStore(),
		clock:      newDayClock(day),
	}
	f.assembler = review.NewExamAssembler(f.candidates, f.exams, f.items, f.clock, log, opts...)
	f.reconciler = review.NewGradingReconciler(f.candidates, f.exams, schedule.NewDefaultPolicy(), f.clock, log)
	return f
}

func (f *fixture) addCandidate(
	t *testing.T,
	subject, target string,
	mode domain.Mode,
	next string,
	createdOffset time.Duration,
) *domain.ReviewCandidate {
	t.Helper()
	c, err := domain.NewReviewCandidate(subject, target, mode, calendar.MustParse(next), 0, base.Add(createdOffset))
	require.NoError(t, err)
	require.NoError(t, f.candidates.Create(context.Background(), c))
	return c
}

func (f *fixture) addKanji(t *testing.T, subject, target, reading, meaning string) *domain.ReviewCandidate {
	t.Helper()
	item, err := domain.NewItem(target, subject, domain.ModeKanji, "字"+target, base)
	require.NoError(t, err)
	item.Reading = reading
	item.Meaning = meaning
	require.NoError(t, f.items.Create(context.Background(), item))
	return f.addCandidate(t, subject, target, domain.ModeKanji, "2025-01-01", 0)
}

func (f *fixture) active(t *testing.T, subject, target string) *domain.ReviewCandidate {
	t.Helper()
	history, err := f.candidates.ListByTarget(context.Background(), target)
	require.NoError(t, err)
	for _, c := range history {
		if c.Subject == subject && c.Status.Active() {
			return c
		}
	}
	return nil
}

func (f *fixture) latest(t *testing.T, subject, target string) *domain.ReviewCandidate {
	t.Helper()
	history, err := f.candidates.ListByTarget(context.Background(), target)
	require.NoError(t, err)
	var out *domain.ReviewCandidate
	for _, c := range history {
		if c.Subject == subject && c.Status != domain.CandidateStatusClosed {
			out = c
		}
	}
	return out
}

func targets(exam *domain.Exam) []string {
	return append([]string(nil), exam.TargetIDs...)
}

func policyForTest() schedule.Policy {
	return schedule.NewDefaultPolicy()
}
