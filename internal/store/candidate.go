package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
)

// CandidateStore defines the interface for review candidate persistence.
//
// Rows are keyed by (subject, id). Reads may be served from indexes that lag
// behind writes, so callers must re-check status and dates on what they read.
// Every mutating lock method is a single conditional write and reports a lost
// condition as ErrConditionFailed.
type CandidateStore interface {
	// ListDue returns open candidates with NextTime <= asOf, ordered by NextTime,
	// then CreatedAt, then ID. A nil mode lists every mode.
	ListDue(ctx context.Context, subject string, mode *domain.Mode, asOf calendar.Date) ([]*domain.ReviewCandidate, error)

	// ListByTarget returns every row, active or historical, for targetID.
	ListByTarget(ctx context.Context, targetID string) ([]*domain.ReviewCandidate, error)

	// ListOpenBySubject returns open candidates regardless of due date.
	ListOpenBySubject(ctx context.Context, subject string, mode *domain.Mode) ([]*domain.ReviewCandidate, error)

	// ListLockedByOwner returns candidates currently locked by ownerID.
	ListLockedByOwner(ctx context.Context, subject string, ownerID uuid.UUID) ([]*domain.ReviewCandidate, error)

	// Get retrieves a candidate by key.
	// Returns ErrCandidateNotFound if it does not exist.
	Get(ctx context.Context, subject string, id uuid.UUID) (*domain.ReviewCandidate, error)

	// Create inserts a candidate. Open and locked candidates fail with
	// ErrActiveCandidateExists when an active row exists for the same subject and target.
	Create(ctx context.Context, candidate *domain.ReviewCandidate) error

	// Delete removes a candidate.
	// Returns ErrCandidateNotFound if it does not exist.
	Delete(ctx context.Context, subject string, id uuid.UUID) error

	// TryLock assigns an open, unowned candidate to ownerID.
	TryLock(ctx context.Context, subject string, id uuid.UUID, ownerID uuid.UUID) error

	// ReleaseLock returns a candidate locked by ownerID to open, leaving
	// NextTime and CorrectCount untouched.
	ReleaseLock(ctx context.Context, subject string, id uuid.UUID, ownerID uuid.UUID) error

	// CloseLocked moves a locked candidate into history. When expectedOwner is
	// non-nil the write is also conditioned on ownership.
	CloseLocked(ctx context.Context, subject string, id uuid.UUID, expectedOwner *uuid.UUID, closedAt time.Time) error

	// Supersede closes a candidate locked by ownerID and inserts its successor
	// as one atomic unit.
	Supersede(
		ctx context.Context,
		subject string,
		id uuid.UUID,
		ownerID uuid.UUID,
		closedAt time.Time,
		successor *domain.ReviewCandidate,
	) error
}
