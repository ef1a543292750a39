package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
)

// ExamStore defines the interface for exam persistence.
type ExamStore interface {
	// Create saves a new exam.
	// Returns validation errors from the domain Exam if data is invalid.
	Create(ctx context.Context, exam *domain.Exam) error

	// GetByID retrieves an exam.
	// Returns ErrExamNotFound if the exam does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Exam, error)

	// ListBySubject returns exams for a subject, newest first.
	ListBySubject(ctx context.Context, subject string, status *domain.ExamStatus) ([]*domain.Exam, error)

	// RecordResults replaces the results stored on an in-progress exam.
	// Returns ErrConditionFailed if the exam is already completed.
	RecordResults(ctx context.Context, id uuid.UUID, results []domain.ItemResult, updatedAt time.Time) error

	// MarkCompleted moves an in-progress exam to completed.
	// Returns ErrConditionFailed if the exam is not in progress.
	MarkCompleted(
		ctx context.Context,
		id uuid.UUID,
		submitted calendar.Date,
		results []domain.ItemResult,
		updatedAt time.Time,
	) error

	// Delete removes an exam.
	// Returns ErrExamNotFound if the exam does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
