package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
)

// CandidateStatus is the lifecycle state of a review candidate.
type CandidateStatus string

// Candidate lifecycle states.
const (
	CandidateStatusOpen     CandidateStatus = "open"
	CandidateStatusLocked   CandidateStatus = "locked"
	CandidateStatusClosed   CandidateStatus = "closed"
	CandidateStatusExcluded CandidateStatus = "excluded"
)

// Candidate-specific validation errors
var (
	ErrCandidateIDEmpty        = errors.New("candidate ID cannot be empty")
	ErrNegativeCorrectCount    = errors.New("correct count cannot be negative")
	ErrInvalidNextTime         = errors.New("next time must be a YYYY-MM-DD date")
	ErrLockOwnerMismatch       = errors.New("lock owner must be set iff status is locked")
	ErrExcludedWithoutSentinel = errors.New("excluded candidates must carry the sentinel date")
)

// Valid reports whether s is a known status.
func (s CandidateStatus) Valid() bool {
	switch s {
	case CandidateStatusOpen, CandidateStatusLocked, CandidateStatusClosed, CandidateStatusExcluded:
		return true
	default:
		return false
	}
}

// Active reports whether a candidate in this status still belongs to the review pool.
func (s CandidateStatus) Active() bool {
	return s == CandidateStatusOpen || s == CandidateStatusLocked
}

// ReviewCandidate is one reviewable item's scheduling state.
// Grading never mutates a candidate in place: the locked row is closed and a
// successor row is inserted, so several rows may exist per (Subject, TargetID).
type ReviewCandidate struct {
	ID           uuid.UUID       `json:"id"`
	Subject      string          `json:"subject"`
	TargetID     string          `json:"target_id"`
	Mode         Mode            `json:"mode"`
	CorrectCount int             `json:"correct_count"`
	NextTime     calendar.Date   `json:"next_time"`
	Status       CandidateStatus `json:"status"`
	LockOwnerID  *uuid.UUID      `json:"lock_owner_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
}

// NewReviewCandidate creates an open candidate due on nextTime.
func NewReviewCandidate(
	subject, targetID string,
	mode Mode,
	nextTime calendar.Date,
	correctCount int,
	now time.Time,
) (*ReviewCandidate, error) {
	c := &ReviewCandidate{
		ID:           uuid.New(),
		Subject:      subject,
		TargetID:     targetID,
		Mode:         mode,
		CorrectCount: correctCount,
		NextTime:     nextTime,
		Status:       CandidateStatusOpen,
		CreatedAt:    now.UTC(),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks if the ReviewCandidate has valid data.
func (c *ReviewCandidate) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCandidateIDEmpty
	}
	if c.Subject == "" {
		return ErrEmptySubject
	}
	if c.TargetID == "" {
		return ErrEmptyTargetID
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}
	if c.CorrectCount < 0 {
		return ErrNegativeCorrectCount
	}
	if !c.NextTime.Valid() {
		return ErrInvalidNextTime
	}
	if (c.Status == CandidateStatusLocked) != (c.LockOwnerID != nil) {
		return ErrLockOwnerMismatch
	}
	if c.Status == CandidateStatusExcluded && !c.NextTime.IsSentinel() {
		return ErrExcludedWithoutSentinel
	}
	return nil
}

// IsDue reports whether the candidate is open and due on or before asOf.
func (c *ReviewCandidate) IsDue(asOf calendar.Date) bool {
	return c.Status == CandidateStatusOpen && !c.NextTime.After(asOf)
}

// IsLockedBy reports whether owner currently holds the candidate.
func (c *ReviewCandidate) IsLockedBy(owner uuid.UUID) bool {
	return c.Status == CandidateStatusLocked && c.LockOwnerID != nil && *c.LockOwnerID == owner
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (c *ReviewCandidate) Clone() *ReviewCandidate {
	cp := *c
	if c.LockOwnerID != nil {
		owner := *c.LockOwnerID
		cp.LockOwnerID = &owner
	}
	if c.ClosedAt != nil {
		closed := *c.ClosedAt
		cp.ClosedAt = &closed
	}
	return &cp
}
