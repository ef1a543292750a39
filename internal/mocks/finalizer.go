package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/kioku-api/internal/domain"
)

// MockFinalizer records the exams handed to it after persistence.
type MockFinalizer struct {
	FinalizeFn func(ctx context.Context, exam *domain.Exam) error
	Err        error

	mu    sync.Mutex
	exams []*domain.Exam
}

// Finalize implements the exam finalizer hook.
func (m *MockFinalizer) Finalize(ctx context.Context, exam *domain.Exam) error {
	m.mu.Lock()
	m.exams = append(m.exams, exam)
	m.mu.Unlock()

	if m.FinalizeFn != nil {
		return m.FinalizeFn(ctx, exam)
	}
	return m.Err
}

// Exams returns every exam passed to Finalize.
func (m *MockFinalizer) Exams() []*domain.Exam {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Exam(nil), m.exams...)
}
