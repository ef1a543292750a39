package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
)

// CandidateLock turns the store's conditional writes into acquire/release
// results. A lost conditional write returns false with a nil error.
type CandidateLock struct {
	store  store.CandidateStore
	logger *slog.Logger
}

// NewCandidateLock creates a CandidateLock over s.
func NewCandidateLock(s store.CandidateStore, log *slog.Logger) *CandidateLock {
	if s == nil {
		panic("candidate store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CandidateLock{
		store:  s,
		logger: log.With(slog.String("component", "candidate_lock")),
	}
}

// lost reports whether err means another writer got there first.
// A candidate deleted between listing and locking counts as lost.
func lost(err error) bool {
	return store.IsConditionFailed(err) || store.IsNotFoundError(err)
}

func (l *CandidateLock) outcome(ctx context.Context, op string, subject string, id, owner uuid.UUID, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if lost(err) {
		logger.FromContextOrDefault(ctx, l.logger).Debug("conditional write lost",
			slog.String("op", op),
			slog.String("subject", subject),
			slog.String("candidate_id", id.String()),
			slog.String("owner_id", owner.String()))
		return false, nil
	}
	return false, err
}

// TryLock assigns an open candidate to owner.
func (l *CandidateLock) TryLock(ctx context.Context, c *domain.ReviewCandidate, owner uuid.UUID) (bool, error) {
	err := l.store.TryLock(ctx, c.Subject, c.ID, owner)
	return l.outcome(ctx, "try_lock", c.Subject, c.ID, owner, err)
}

// Release returns a candidate held by owner to open with its schedule unchanged.
func (l *CandidateLock) Release(ctx context.Context, subject string, id, owner uuid.UUID) (bool, error) {
	err := l.store.ReleaseLock(ctx, subject, id, owner)
	return l.outcome(ctx, "release_lock", subject, id, owner, err)
}

// Close moves a candidate held by owner into history.
func (l *CandidateLock) Close(ctx context.Context, subject string, id, owner uuid.UUID, closedAt time.Time) (bool, error) {
	err := l.store.CloseLocked(ctx, subject, id, &owner, closedAt)
	return l.outcome(ctx, "close_locked", subject, id, owner, err)
}

// Supersede closes a candidate held by owner and inserts its successor atomically.
func (l *CandidateLock) Supersede(
	ctx context.Context,
	c *domain.ReviewCandidate,
	owner uuid.UUID,
	closedAt time.Time,
	successor *domain.ReviewCandidate,
) (bool, error) {
	err := l.store.Supersede(ctx, c.Subject, c.ID, owner, closedAt, successor)
	return l.outcome(ctx, "supersede", c.Subject, c.ID, owner, err)
}
