package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
)

type candidateKey struct {
	subject string
	id      uuid.UUID
}

// CandidateStore is a mutex-guarded store.CandidateStore.
type CandidateStore struct {
	mu         sync.RWMutex
	candidates map[candidateKey]*domain.ReviewCandidate
	logger     *slog.Logger
}

// NewCandidateStore creates an empty CandidateStore.
func NewCandidateStore(logger *slog.Logger) *CandidateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidateStore{
		candidates: make(map[candidateKey]*domain.ReviewCandidate),
		logger:     logger.With(slog.String("component", "memory_candidate_store")),
	}
}

var _ store.CandidateStore = (*CandidateStore)(nil)

// sortCandidates orders by NextTime, then CreatedAt, then ID.
func sortCandidates(cs []*domain.ReviewCandidate) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.NextTime != b.NextTime {
			return a.NextTime < b.NextTime
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func (s *CandidateStore) collect(match func(*domain.ReviewCandidate) bool) []*domain.ReviewCandidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ReviewCandidate
	for _, c := range s.candidates {
		if match(c) {
			out = append(out, c.Clone())
		}
	}
	sortCandidates(out)
	return out
}

// ListDue implements store.CandidateStore.ListDue
func (s *CandidateStore) ListDue(
	ctx context.Context,
	subject string,
	mode *domain.Mode,
	asOf calendar.Date,
) ([]*domain.ReviewCandidate, error) {
	out := s.collect(func(c *domain.ReviewCandidate) bool {
		return c.Subject == subject && (mode == nil || c.Mode == *mode) && c.IsDue(asOf)
	})
	logger.FromContextOrDefault(ctx, s.logger).Debug("listed due candidates",
		slog.String("subject", subject),
		slog.String("as_of", asOf.String()),
		slog.Int("count", len(out)))
	return out, nil
}

// ListByTarget implements store.CandidateStore.ListByTarget
func (s *CandidateStore) ListByTarget(ctx context.Context, targetID string) ([]*domain.ReviewCandidate, error) {
	out := s.collect(func(c *domain.ReviewCandidate) bool { return c.TargetID == targetID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListOpenBySubject implements store.CandidateStore.ListOpenBySubject
func (s *CandidateStore) ListOpenBySubject(
	ctx context.Context,
	subject string,
	mode *domain.Mode,
) ([]*domain.ReviewCandidate, error) {
	return s.collect(func(c *domain.ReviewCandidate) bool {
		return c.Subject == subject && c.Status == domain.CandidateStatusOpen && (mode == nil || c.Mode == *mode)
	}), nil
}

// ListLockedByOwner implements store.CandidateStore.ListLockedByOwner
func (s *CandidateStore) ListLockedByOwner(
	ctx context.Context,
	subject string,
	ownerID uuid.UUID,
) ([]*domain.ReviewCandidate, error) {
	return s.collect(func(c *domain.ReviewCandidate) bool {
		return c.Subject == subject && c.IsLockedBy(ownerID)
	}), nil
}

// Get implements store.CandidateStore.Get
func (s *CandidateStore) Get(ctx context.Context, subject string, id uuid.UUID) (*domain.ReviewCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.candidates[candidateKey{subject, id}]
	if !ok {
		return nil, store.ErrCandidateNotFound
	}
	return c.Clone(), nil
}

// insertLocked requires s.mu held for writing.
func (s *CandidateStore) insertLocked(c *domain.ReviewCandidate) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	key := candidateKey{c.Subject, c.ID}
	if _, exists := s.candidates[key]; exists {
		return store.ErrDuplicate
	}
	if c.Status.Active() {
		for _, other := range s.candidates {
			if other.Subject == c.Subject && other.TargetID == c.TargetID && other.Status.Active() {
				return store.ErrActiveCandidateExists
			}
		}
	}
	s.candidates[key] = c.Clone()
	return nil
}

// Create implements store.CandidateStore.Create
func (s *CandidateStore) Create(ctx context.Context, c *domain.ReviewCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(c)
}

// Delete implements store.CandidateStore.Delete
func (s *CandidateStore) Delete(ctx context.Context, subject string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := candidateKey{subject, id}
	if _, ok := s.candidates[key]; !ok {
		return store.ErrCandidateNotFound
	}
	delete(s.candidates, key)
	return nil
}

// mutate applies fn to the stored candidate while holding the write lock.
func (s *CandidateStore) mutate(subject string, id uuid.UUID, fn func(c *domain.ReviewCandidate) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateKey{subject, id}]
	if !ok {
		return store.ErrCandidateNotFound
	}
	return fn(c)
}

// TryLock implements store.CandidateStore.TryLock
func (s *CandidateStore) TryLock(ctx context.Context, subject string, id uuid.UUID, ownerID uuid.UUID) error {
	return s.mutate(subject, id, func(c *domain.ReviewCandidate) error {
		if c.Status != domain.CandidateStatusOpen || c.LockOwnerID != nil {
			return store.ErrConditionFailed
		}
		owner := ownerID
		c.Status = domain.CandidateStatusLocked
		c.LockOwnerID = &owner
		return nil
	})
}

// ReleaseLock implements store.CandidateStore.ReleaseLock
func (s *CandidateStore) ReleaseLock(ctx context.Context, subject string, id uuid.UUID, ownerID uuid.UUID) error {
	return s.mutate(subject, id, func(c *domain.ReviewCandidate) error {
		if !c.IsLockedBy(ownerID) {
			return store.ErrConditionFailed
		}
		c.Status = domain.CandidateStatusOpen
		c.LockOwnerID = nil
		return nil
	})
}

func closeCandidate(c *domain.ReviewCandidate, expectedOwner *uuid.UUID, closedAt time.Time) error {
	if c.Status != domain.CandidateStatusLocked {
		return store.ErrConditionFailed
	}
	if expectedOwner != nil && !c.IsLockedBy(*expectedOwner) {
		return store.ErrConditionFailed
	}
	at := closedAt.UTC()
	c.Status = domain.CandidateStatusClosed
	c.LockOwnerID = nil
	c.ClosedAt = &at
	return nil
}

// CloseLocked implements store.CandidateStore.CloseLocked
func (s *CandidateStore) CloseLocked(
	ctx context.Context,
	subject string,
	id uuid.UUID,
	expectedOwner *uuid.UUID,
	closedAt time.Time,
) error {
	return s.mutate(subject, id, func(c *domain.ReviewCandidate) error {
		return closeCandidate(c, expectedOwner, closedAt)
	})
}

// Supersede implements store.CandidateStore.Supersede
// Both writes happen under one critical section and the close is undone if the insert fails.
func (s *CandidateStore) Supersede(
	ctx context.Context,
	subject string,
	id uuid.UUID,
	ownerID uuid.UUID,
	closedAt time.Time,
	successor *domain.ReviewCandidate,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateKey{subject, id}]
	if !ok {
		return store.ErrCandidateNotFound
	}
	before := c.Clone()
	if err := closeCandidate(c, &ownerID, closedAt); err != nil {
		return err
	}
	if err := s.insertLocked(successor); err != nil {
		s.candidates[candidateKey{subject, id}] = before
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("candidate superseded",
		slog.String("candidate_id", id.String()),
		slog.String("successor_id", successor.ID.String()))
	return nil
}
