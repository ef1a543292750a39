package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/store"
)

// MockCandidateStore wraps a real store.CandidateStore and lets tests
// override the lock operations.
type MockCandidateStore struct {
	store.CandidateStore

	ListDueFn     func(ctx context.Context, subject string, mode *domain.Mode, asOf calendar.Date) ([]*domain.ReviewCandidate, error)
	TryLockFn     func(ctx context.Context, subject string, id, ownerID uuid.UUID) error
	ReleaseLockFn func(ctx context.Context, subject string, id, ownerID uuid.UUID) error
}

// ListDue implements store.CandidateStore.ListDue
func (m *MockCandidateStore) ListDue(
	ctx context.Context,
	subject string,
	mode *domain.Mode,
	asOf calendar.Date,
) ([]*domain.ReviewCandidate, error) {
	if m.ListDueFn != nil {
		return m.ListDueFn(ctx, subject, mode, asOf)
	}
	return m.CandidateStore.ListDue(ctx, subject, mode, asOf)
}

// TryLock implements store.CandidateStore.TryLock
func (m *MockCandidateStore) TryLock(ctx context.Context, subject string, id, ownerID uuid.UUID) error {
	if m.TryLockFn != nil {
		return m.TryLockFn(ctx, subject, id, ownerID)
	}
	return m.CandidateStore.TryLock(ctx, subject, id, ownerID)
}

// ReleaseLock implements store.CandidateStore.ReleaseLock
func (m *MockCandidateStore) ReleaseLock(ctx context.Context, subject string, id, ownerID uuid.UUID) error {
	if m.ReleaseLockFn != nil {
		return m.ReleaseLockFn(ctx, subject, id, ownerID)
	}
	return m.CandidateStore.ReleaseLock(ctx, subject, id, ownerID)
}
