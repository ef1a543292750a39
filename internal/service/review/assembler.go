package review

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/generation"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
	"golang.org/x/time/rate"
)

// Finalizer runs after an exam has been persisted, e.g. to render it.
// An error undoes the whole assembly.
type Finalizer interface {
	Finalize(ctx context.Context, exam *domain.Exam) error
}

// Filter narrows the due pool before selection.
type Filter struct {
	// TargetIDs, when non-empty, keeps only these targets.
	TargetIDs []string
	// ExcludeTargetIDs drops these targets.
	ExcludeTargetIDs []string
}

func (f Filter) keep(targetID string) bool {
	if len(f.TargetIDs) > 0 && !slices.Contains(f.TargetIDs, targetID) {
		return false
	}
	return !slices.Contains(f.ExcludeTargetIDs, targetID)
}

// CreateExamRequest describes the exam to assemble.
type CreateExamRequest struct {
	Subject string
	Mode    domain.Mode
	Count   int
	Filter  Filter
}

func (r CreateExamRequest) validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, domain.ErrEmptySubject)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRequest, domain.ErrInvalidMode, r.Mode)
	}
	if r.Count < 1 {
		return ErrInvalidCount
	}
	return nil
}

// BackfillConfig bounds the calls made to the field generator during one assembly.
type BackfillConfig struct {
	Concurrency       int
	RequestsPerSecond float64
}

// ExamAssembler selects due candidates, locks them for a new exam, and
// persists the exam.
type ExamAssembler struct {
	candidates store.CandidateStore
	exams      store.ExamStore
	items      store.ItemStore
	lock       *CandidateLock
	dates      calendar.Provider
	generator  generation.FieldGenerator
	finalizer  Finalizer
	backfill   BackfillConfig
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time
	newID      func() uuid.UUID
}

// AssemblerOption configures optional collaborators.
type AssemblerOption func(*ExamAssembler)

// WithGenerator enables printability backfill through g.
func WithGenerator(g generation.FieldGenerator) AssemblerOption {
	return func(a *ExamAssembler) { a.generator = g }
}

// WithFinalizer installs a hook run after the exam is persisted.
func WithFinalizer(f Finalizer) AssemblerOption {
	return func(a *ExamAssembler) { a.finalizer = f }
}

// WithBackfill overrides the backfill limits.
func WithBackfill(cfg BackfillConfig) AssemblerOption {
	return func(a *ExamAssembler) { a.backfill = cfg }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *ExamAssembler) { a.now = now }
}

// NewExamAssembler creates an assembler. Candidates, exams, items and dates are required.
func NewExamAssembler(
	candidates store.CandidateStore,
	exams store.ExamStore,
	items store.ItemStore,
	dates calendar.Provider,
	log *slog.Logger,
	opts ...AssemblerOption,
) *ExamAssembler {
	if candidates == nil {
		panic("candidates cannot be nil")
	}
	if exams == nil {
		panic("exams cannot be nil")
	}
	if items == nil {
		panic("items cannot be nil")
	}
	if dates == nil {
		panic("dates cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	a := &ExamAssembler{
		candidates: candidates,
		exams:      exams,
		items:      items,
		lock:       NewCandidateLock(candidates, log),
		dates:      dates,
		backfill:   BackfillConfig{Concurrency: 4, RequestsPerSecond: 2},
		logger:     log.With(slog.String("component", "exam_assembler")),
		now:        time.Now,
		newID:      uuid.New,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.backfill.Concurrency < 1 {
		a.backfill.Concurrency = 1
	}
	limit := rate.Inf
	if a.backfill.RequestsPerSecond > 0 {
		limit = rate.Limit(a.backfill.RequestsPerSecond)
	}
	a.limiter = rate.NewLimiter(limit, a.backfill.Concurrency)
	return a
}

// sortCandidates orders by due date, then creation time, then target, then mode.
func sortCandidates(cs []*domain.ReviewCandidate) {
	slices.SortStableFunc(cs, func(a, b *domain.ReviewCandidate) int {
		if c := cmp.Compare(a.NextTime, b.NextTime); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.TargetID, b.TargetID); c != 0 {
			return c
		}
		return cmp.Compare(a.Mode, b.Mode)
	})
}

// CreateExam assembles and persists a new exam. Selecting fewer than
// req.Count candidates is not an error.
func (a *ExamAssembler) CreateExam(ctx context.Context, req CreateExamRequest) (*domain.Exam, error) {
	log := logger.FromContextOrDefault(ctx, a.logger).With(
		slog.String("subject", req.Subject),
		slog.String("mode", string(req.Mode)))

	if err := req.validate(); err != nil {
		return nil, err
	}

	today := a.dates.Today()
	examID := a.newID()
	ctx = logger.WithOperationID(ctx, examID.String())
	log = log.With(slog.String("exam_id", examID.String()))

	pool, err := a.duePool(ctx, log, req, today)
	if err != nil {
		return nil, NewCreateExamError("failed to list due candidates", err)
	}

	if req.Mode.RequiresPrintable() && len(pool) > 0 {
		pool, err = a.printable(ctx, log, pool)
		if err != nil {
			return nil, err
		}
	}

	sortCandidates(pool)

	selected, err := a.lockCandidates(ctx, log, pool, examID, req.Count)
	if err != nil {
		a.unwind(ctx, log, req.Subject, examID, selected, false)
		return nil, NewCreateExamError("failed to lock candidates", err)
	}

	if len(selected) == 0 && req.Mode.RequiresContent() {
		log.Warn("no candidates could be selected", slog.Int("pool_size", len(pool)))
		return nil, ErrNoCandidatesDue
	}
	if len(selected) < req.Count {
		log.Warn("exam has fewer items than requested",
			slog.Int("requested", req.Count),
			slog.Int("selected", len(selected)))
	}

	targetIDs := make([]string, 0, len(selected))
	for _, c := range selected {
		targetIDs = append(targetIDs, c.TargetID)
	}

	exam, err := domain.NewExam(examID, req.Subject, req.Mode, today, targetIDs, a.now())
	if err != nil {
		a.unwind(ctx, log, req.Subject, examID, selected, false)
		return nil, NewCreateExamError("invalid exam", err)
	}

	if err := a.exams.Create(ctx, exam); err != nil {
		a.unwind(ctx, log, req.Subject, examID, selected, false)
		return nil, NewCreateExamError("failed to persist exam", err)
	}

	if a.finalizer != nil {
		if err := a.finalizer.Finalize(ctx, exam); err != nil {
			a.unwind(ctx, log, req.Subject, examID, selected, true)
			return nil, NewCreateExamError("failed to finalize exam", err)
		}
	}

	log.Info("exam created",
		slog.String("date", today.String()),
		slog.Int("item_count", len(selected)))
	return exam, nil
}

// duePool lists due candidates and drops anything the read returned that is
// not open, belongs to another mode, or falls due after today.
func (a *ExamAssembler) duePool(
	ctx context.Context,
	log *slog.Logger,
	req CreateExamRequest,
	today calendar.Date,
) ([]*domain.ReviewCandidate, error) {
	mode := req.Mode
	due, err := a.candidates.ListDue(ctx, req.Subject, &mode, today)
	if err != nil {
		return nil, err
	}

	pool := make([]*domain.ReviewCandidate, 0, len(due))
	for _, c := range due {
		if c.Mode != req.Mode || !c.IsDue(today) {
			continue
		}
		if !req.Filter.keep(c.TargetID) {
			continue
		}
		pool = append(pool, c)
	}

	log.Debug("due pool built",
		slog.Int("listed", len(due)),
		slog.Int("eligible", len(pool)))
	return pool, nil
}

// printable keeps the candidates whose items can be displayed. When none can,
// one backfill pass is attempted before giving up.
func (a *ExamAssembler) printable(
	ctx context.Context,
	log *slog.Logger,
	pool []*domain.ReviewCandidate,
) ([]*domain.ReviewCandidate, error) {
	ids := make([]string, 0, len(pool))
	for _, c := range pool {
		ids = append(ids, c.TargetID)
	}

	items, err := a.items.GetMany(ctx, ids)
	if err != nil {
		return nil, NewCreateExamError("failed to load items", err)
	}

	kept := filterPrintable(pool, items)
	if len(kept) > 0 {
		if dropped := len(pool) - len(kept); dropped > 0 {
			log.Debug("unprintable candidates dropped", slog.Int("dropped", dropped))
		}
		return kept, nil
	}

	if a.generator == nil {
		log.Warn("no printable items and no generator configured", slog.Int("pool_size", len(pool)))
		return nil, ErrNoPrintableItems
	}

	a.backfillItems(ctx, log, items)

	items, err = a.items.GetMany(ctx, ids)
	if err != nil {
		return nil, NewCreateExamError("failed to reload items", err)
	}
	kept = filterPrintable(pool, items)
	if len(kept) == 0 {
		log.Warn("no printable items after backfill", slog.Int("pool_size", len(pool)))
		return nil, ErrNoPrintableItems
	}
	return kept, nil
}

func filterPrintable(pool []*domain.ReviewCandidate, items map[string]*domain.Item) []*domain.ReviewCandidate {
	kept := make([]*domain.ReviewCandidate, 0, len(pool))
	for _, c := range pool {
		if item, ok := items[c.TargetID]; ok && item.Printable() {
			kept = append(kept, c)
		}
	}
	return kept
}

// lockCandidates walks pool in order and locks until count are held. The
// returned slice holds every lock acquired, also when an error is returned.
func (a *ExamAssembler) lockCandidates(
	ctx context.Context,
	log *slog.Logger,
	pool []*domain.ReviewCandidate,
	examID uuid.UUID,
	count int,
) ([]*domain.ReviewCandidate, error) {
	selected := make([]*domain.ReviewCandidate, 0, min(count, len(pool)))
	skipped := 0
	for _, c := range pool {
		if len(selected) == count {
			break
		}
		if err := ctx.Err(); err != nil {
			return selected, err
		}

		ok, err := a.lock.TryLock(ctx, c, examID)
		if err != nil {
			return selected, err
		}
		if !ok {
			skipped++
			continue
		}
		selected = append(selected, c)
	}

	if skipped > 0 {
		log.Debug("candidates lost to concurrent assembly", slog.Int("skipped", skipped))
	}
	return selected, nil
}

// unwind releases every lock taken for examID and, if persisted, deletes the exam.
// It runs on a context that survives cancellation of the request.
func (a *ExamAssembler) unwind(
	ctx context.Context,
	log *slog.Logger,
	subject string,
	examID uuid.UUID,
	locked []*domain.ReviewCandidate,
	persisted bool,
) {
	ctx = context.WithoutCancel(ctx)

	released := 0
	for _, c := range locked {
		ok, err := a.lock.Release(ctx, subject, c.ID, examID)
		if err != nil {
			log.Error("failed to release lock during unwind",
				slog.String("candidate_id", c.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if ok {
			released++
		}
	}

	if persisted {
		if err := a.exams.Delete(ctx, examID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to delete partial exam during unwind",
				slog.String("error", err.Error()))
		}
	}

	log.Warn("exam assembly unwound",
		slog.Int("locks_released", released),
		slog.Int("locks_held", len(locked)))
}
