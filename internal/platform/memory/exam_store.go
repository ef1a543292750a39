package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/store"
)

// ExamStore is a mutex-guarded store.ExamStore.
type ExamStore struct {
	mu    sync.RWMutex
	exams map[uuid.UUID]*domain.Exam
}

// NewExamStore creates an empty ExamStore.
func NewExamStore() *ExamStore {
	return &ExamStore{exams: make(map[uuid.UUID]*domain.Exam)}
}

var _ store.ExamStore = (*ExamStore)(nil)

func cloneExam(e *domain.Exam) *domain.Exam {
	cp := *e
	cp.TargetIDs = append([]string(nil), e.TargetIDs...)
	if e.Results != nil {
		cp.Results = append([]domain.ItemResult(nil), e.Results...)
	}
	if e.SubmittedDate != nil {
		d := *e.SubmittedDate
		cp.SubmittedDate = &d
	}
	return &cp
}

// Create implements store.ExamStore.Create
func (s *ExamStore) Create(ctx context.Context, exam *domain.Exam) error {
	if err := exam.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.exams[exam.ID]; exists {
		return store.ErrDuplicate
	}
	s.exams[exam.ID] = cloneExam(exam)
	return nil
}

// GetByID implements store.ExamStore.GetByID
func (s *ExamStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exams[id]
	if !ok {
		return nil, store.ErrExamNotFound
	}
	return cloneExam(e), nil
}

// ListBySubject implements store.ExamStore.ListBySubject
func (s *ExamStore) ListBySubject(
	ctx context.Context,
	subject string,
	status *domain.ExamStatus,
) ([]*domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Exam
	for _, e := range s.exams {
		if e.Subject == subject && (status == nil || e.Status == *status) {
			out = append(out, cloneExam(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *ExamStore) mutateInProgress(id uuid.UUID, fn func(e *domain.Exam)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exams[id]
	if !ok {
		return store.ErrExamNotFound
	}
	if e.Status != domain.ExamStatusInProgress {
		return store.ErrConditionFailed
	}
	fn(e)
	return nil
}

// RecordResults implements store.ExamStore.RecordResults
func (s *ExamStore) RecordResults(
	ctx context.Context,
	id uuid.UUID,
	results []domain.ItemResult,
	updatedAt time.Time,
) error {
	return s.mutateInProgress(id, func(e *domain.Exam) {
		e.Results = append([]domain.ItemResult(nil), results...)
		e.UpdatedAt = updatedAt.UTC()
	})
}

// MarkCompleted implements store.ExamStore.MarkCompleted
func (s *ExamStore) MarkCompleted(
	ctx context.Context,
	id uuid.UUID,
	submitted calendar.Date,
	results []domain.ItemResult,
	updatedAt time.Time,
) error {
	return s.mutateInProgress(id, func(e *domain.Exam) {
		d := submitted
		e.Status = domain.ExamStatusCompleted
		e.SubmittedDate = &d
		e.Results = append([]domain.ItemResult(nil), results...)
		e.UpdatedAt = updatedAt.UTC()
	})
}

// Delete implements store.ExamStore.Delete
func (s *ExamStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exams[id]; !ok {
		return store.ErrExamNotFound
	}
	delete(s.exams, id)
	return nil
}
