package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/store"
)

// MockExamStore wraps a real store.ExamStore and lets tests override single
// methods to inject failures.
type MockExamStore struct {
	store.ExamStore

	CreateFn        func(ctx context.Context, exam *domain.Exam) error
	MarkCompletedFn func(ctx context.Context, id uuid.UUID, submitted calendar.Date, results []domain.ItemResult, updatedAt time.Time) error
}

// Create implements store.ExamStore.Create
func (m *MockExamStore) Create(ctx context.Context, exam *domain.Exam) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, exam)
	}
	return m.ExamStore.Create(ctx, exam)
}

// MarkCompleted implements store.ExamStore.MarkCompleted
func (m *MockExamStore) MarkCompleted(
	ctx context.Context,
	id uuid.UUID,
	submitted calendar.Date,
	results []domain.ItemResult,
	updatedAt time.Time,
) error {
	if m.MarkCompletedFn != nil {
		return m.MarkCompletedFn(ctx, id, submitted, results, updatedAt)
	}
	return m.ExamStore.MarkCompleted(ctx, id, submitted, results, updatedAt)
}
