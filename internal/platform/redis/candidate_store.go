package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
)

// CandidateStore implements store.CandidateStore on Redis.
//
// Each candidate is a JSON document under its own key. Secondary indexes
// (a due-date sorted set per subject, owner and target sets, and one
// active-marker key per item) are maintained in the same MULTI block as the
// document. Conditional writes WATCH the document key; a concurrent change
// aborts the transaction and is reported as store.ErrConditionFailed.
type CandidateStore struct {
	rdb    goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewCandidateStore creates a Redis CandidateStore. All keys start with prefix.
func NewCandidateStore(rdb goredis.UniversalClient, prefix string, logger *slog.Logger) *CandidateStore {
	if rdb == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidateStore{
		rdb:    rdb,
		prefix: strings.TrimSuffix(prefix, ":"),
		logger: logger.With(slog.String("component", "redis_candidate_store")),
	}
}

var _ store.CandidateStore = (*CandidateStore)(nil)

func (s *CandidateStore) docKey(subject string, id uuid.UUID) string {
	return fmt.Sprintf("%s:candidate:%s:%s", s.prefix, subject, id)
}

func (s *CandidateStore) dueKey(subject string) string {
	return fmt.Sprintf("%s:due:%s", s.prefix, subject)
}

func (s *CandidateStore) ownerKey(subject string, owner uuid.UUID) string {
	return fmt.Sprintf("%s:owner:%s:%s", s.prefix, subject, owner)
}

func (s *CandidateStore) targetKey(targetID string) string {
	return fmt.Sprintf("%s:target:%s", s.prefix, targetID)
}

func (s *CandidateStore) activeKey(subject, targetID string) string {
	return fmt.Sprintf("%s:active:%s:%s", s.prefix, subject, targetID)
}

// dateScore maps a date onto a sortable YYYYMMDD number.
func dateScore(d calendar.Date) (float64, error) {
	if !d.Valid() {
		return 0, calendar.ErrInvalidDate
	}
	n, err := strconv.Atoi(strings.ReplaceAll(d.String(), "-", ""))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", calendar.ErrInvalidDate, d)
	}
	return float64(n), nil
}

func targetMember(subject string, id uuid.UUID) string {
	return subject + "|" + id.String()
}

func decodeCandidate(raw string) (*domain.ReviewCandidate, error) {
	var c domain.ReviewCandidate
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("failed to decode candidate: %w", err)
	}
	return &c, nil
}

// load reads one candidate through the WATCHing transaction.
func (s *CandidateStore) load(ctx context.Context, tx *goredis.Tx, subject string, id uuid.UUID) (*domain.ReviewCandidate, error) {
	raw, err := tx.Get(ctx, s.docKey(subject, id)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrCandidateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get candidate: %w", err)
	}
	return decodeCandidate(raw)
}

// writeDoc queues the document and every index entry implied by c's status.
func (s *CandidateStore) writeDoc(ctx context.Context, pipe goredis.Pipeliner, c *domain.ReviewCandidate) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode candidate: %w", err)
	}
	pipe.Set(ctx, s.docKey(c.Subject, c.ID), raw, 0)
	pipe.SAdd(ctx, s.targetKey(c.TargetID), targetMember(c.Subject, c.ID))

	switch c.Status {
	case domain.CandidateStatusOpen:
		score, err := dateScore(c.NextTime)
		if err != nil {
			return err
		}
		pipe.ZAdd(ctx, s.dueKey(c.Subject), goredis.Z{Score: score, Member: c.ID.String()})
	default:
		pipe.ZRem(ctx, s.dueKey(c.Subject), c.ID.String())
	}
	if c.Status == domain.CandidateStatusLocked && c.LockOwnerID != nil {
		pipe.SAdd(ctx, s.ownerKey(c.Subject, *c.LockOwnerID), c.ID.String())
	}
	if c.Status.Active() {
		pipe.Set(ctx, s.activeKey(c.Subject, c.TargetID), c.ID.String(), 0)
	}
	return nil
}

// createAttempts bounds how often Create re-checks after losing a WATCH race.
const createAttempts = 3

// conditional runs fn under WATCH on keys and maps an aborted EXEC to ErrConditionFailed.
func (s *CandidateStore) conditional(ctx context.Context, fn func(tx *goredis.Tx) error, keys ...string) error {
	err := s.rdb.Watch(ctx, fn, keys...)
	if errors.Is(err, goredis.TxFailedErr) {
		return store.ErrConditionFailed
	}
	return err
}

func (s *CandidateStore) fetch(ctx context.Context, keys []string) ([]*domain.ReviewCandidate, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget candidates: %w", err)
	}

	out := make([]*domain.ReviewCandidate, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// index entry outlived its document
			continue
		}
		c, err := decodeCandidate(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

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

func (s *CandidateStore) listOpen(
	ctx context.Context,
	subject string,
	mode *domain.Mode,
	maxScore string,
) ([]*domain.ReviewCandidate, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, s.dueKey(subject), &goredis.ZRangeBy{Min: "-inf", Max: maxScore}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range due index: %w", err)
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		keys = append(keys, s.docKey(subject, id))
	}

	candidates, err := s.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := candidates[:0]
	for _, c := range candidates {
		if c.Status != domain.CandidateStatusOpen {
			continue
		}
		if mode != nil && c.Mode != *mode {
			continue
		}
		out = append(out, c)
	}
	sortCandidates(out)
	return out, nil
}

// ListDue implements store.CandidateStore.ListDue
func (s *CandidateStore) ListDue(
	ctx context.Context,
	subject string,
	mode *domain.Mode,
	asOf calendar.Date,
) ([]*domain.ReviewCandidate, error) {
	score, err := dateScore(asOf)
	if err != nil {
		return nil, err
	}
	open, err := s.listOpen(ctx, subject, mode, strconv.FormatFloat(score, 'f', 0, 64))
	if err != nil {
		return nil, err
	}

	due := open[:0]
	for _, c := range open {
		if c.IsDue(asOf) {
			due = append(due, c)
		}
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("listed due candidates",
		slog.String("subject", subject),
		slog.String("as_of", asOf.String()),
		slog.Int("count", len(due)))
	return due, nil
}

// ListOpenBySubject implements store.CandidateStore.ListOpenBySubject
func (s *CandidateStore) ListOpenBySubject(
	ctx context.Context,
	subject string,
	mode *domain.Mode,
) ([]*domain.ReviewCandidate, error) {
	return s.listOpen(ctx, subject, mode, "+inf")
}

// ListByTarget implements store.CandidateStore.ListByTarget
func (s *CandidateStore) ListByTarget(ctx context.Context, targetID string) ([]*domain.ReviewCandidate, error) {
	members, err := s.rdb.SMembers(ctx, s.targetKey(targetID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read target index: %w", err)
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		subject, rawID, ok := strings.Cut(m, "|")
		if !ok {
			continue
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			continue
		}
		keys = append(keys, s.docKey(subject, id))
	}

	candidates, err := s.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
	return candidates, nil
}

// ListLockedByOwner implements store.CandidateStore.ListLockedByOwner
func (s *CandidateStore) ListLockedByOwner(
	ctx context.Context,
	subject string,
	ownerID uuid.UUID,
) ([]*domain.ReviewCandidate, error) {
	ids, err := s.rdb.SMembers(ctx, s.ownerKey(subject, ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read owner index: %w", err)
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		keys = append(keys, s.docKey(subject, id))
	}

	candidates, err := s.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, c := range candidates {
		if c.IsLockedBy(ownerID) {
			out = append(out, c)
		}
	}
	sortCandidates(out)
	return out, nil
}

// Get implements store.CandidateStore.Get
func (s *CandidateStore) Get(ctx context.Context, subject string, id uuid.UUID) (*domain.ReviewCandidate, error) {
	raw, err := s.rdb.Get(ctx, s.docKey(subject, id)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrCandidateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get candidate: %w", err)
	}
	return decodeCandidate(raw)
}

// checkInsert verifies c can be inserted given the current state seen by tx.
// replacing is the ID allowed to hold the active marker, or uuid.Nil.
func (s *CandidateStore) checkInsert(
	ctx context.Context,
	tx *goredis.Tx,
	c *domain.ReviewCandidate,
	replacing uuid.UUID,
) error {
	n, err := tx.Exists(ctx, s.docKey(c.Subject, c.ID)).Result()
	if err != nil {
		return fmt.Errorf("redis check candidate: %w", err)
	}
	if n > 0 {
		return store.ErrDuplicate
	}
	if !c.Status.Active() {
		return nil
	}

	holder, err := tx.Get(ctx, s.activeKey(c.Subject, c.TargetID)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis check active marker: %w", err)
	}
	if replacing != uuid.Nil && holder == replacing.String() {
		return nil
	}
	return store.ErrActiveCandidateExists
}

// Create implements store.CandidateStore.Create
func (s *CandidateStore) Create(ctx context.Context, c *domain.ReviewCandidate) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	insert := func(tx *goredis.Tx) error {
		if err := s.checkInsert(ctx, tx, c, uuid.Nil); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			return s.writeDoc(ctx, pipe, c)
		})
		return err
	}

	// An aborted EXEC means a concurrent writer touched the active marker;
	// re-running the check reports what that writer left behind.
	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		err = s.conditional(ctx, insert, s.docKey(c.Subject, c.ID), s.activeKey(c.Subject, c.TargetID))
		if !errors.Is(err, store.ErrConditionFailed) {
			break
		}
	}
	if errors.Is(err, store.ErrConditionFailed) {
		return store.ErrActiveCandidateExists
	}
	if err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("candidate created",
		slog.String("subject", c.Subject),
		slog.String("candidate_id", c.ID.String()),
		slog.String("target_id", c.TargetID),
		slog.String("next_time", c.NextTime.String()))
	return nil
}

// Delete implements store.CandidateStore.Delete
func (s *CandidateStore) Delete(ctx context.Context, subject string, id uuid.UUID) error {
	key := s.docKey(subject, id)
	return s.conditional(ctx, func(tx *goredis.Tx) error {
		c, err := s.load(ctx, tx, subject, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, s.dueKey(subject), id.String())
			pipe.SRem(ctx, s.targetKey(c.TargetID), targetMember(subject, id))
			if c.LockOwnerID != nil {
				pipe.SRem(ctx, s.ownerKey(subject, *c.LockOwnerID), id.String())
			}
			if c.Status.Active() {
				pipe.Del(ctx, s.activeKey(subject, c.TargetID))
			}
			return nil
		})
		return err
	}, key)
}

// TryLock implements store.CandidateStore.TryLock
func (s *CandidateStore) TryLock(ctx context.Context, subject string, id uuid.UUID, ownerID uuid.UUID) error {
	err := s.conditional(ctx, func(tx *goredis.Tx) error {
		c, err := s.load(ctx, tx, subject, id)
		if err != nil {
			return err
		}
		if c.Status != domain.CandidateStatusOpen || c.LockOwnerID != nil {
			return store.ErrConditionFailed
		}
		owner := ownerID
		c.Status = domain.CandidateStatusLocked
		c.LockOwnerID = &owner
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			return s.writeDoc(ctx, pipe, c)
		})
		return err
	}, s.docKey(subject, id))

	log := logger.FromContextOrDefault(ctx, s.logger)
	if err != nil {
		log.Debug("candidate lock not acquired",
			slog.String("candidate_id", id.String()),
			slog.String("reason", err.Error()))
		return err
	}
	log.Debug("candidate locked",
		slog.String("candidate_id", id.String()),
		slog.String("owner_id", ownerID.String()))
	return nil
}

// ReleaseLock implements store.CandidateStore.ReleaseLock
func (s *CandidateStore) ReleaseLock(ctx context.Context, subject string, id uuid.UUID, ownerID uuid.UUID) error {
	return s.conditional(ctx, func(tx *goredis.Tx) error {
		c, err := s.load(ctx, tx, subject, id)
		if err != nil {
			return err
		}
		if !c.IsLockedBy(ownerID) {
			return store.ErrConditionFailed
		}
		c.Status = domain.CandidateStatusOpen
		c.LockOwnerID = nil
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.SRem(ctx, s.ownerKey(subject, ownerID), id.String())
			return s.writeDoc(ctx, pipe, c)
		})
		return err
	}, s.docKey(subject, id))
}

// queueClose marks the locked candidate c closed and queues its writes.
func (s *CandidateStore) queueClose(
	ctx context.Context,
	pipe goredis.Pipeliner,
	c *domain.ReviewCandidate,
	closedAt time.Time,
) error {
	owner := *c.LockOwnerID
	at := closedAt.UTC()
	c.Status = domain.CandidateStatusClosed
	c.LockOwnerID = nil
	c.ClosedAt = &at

	pipe.SRem(ctx, s.ownerKey(c.Subject, owner), c.ID.String())
	pipe.Del(ctx, s.activeKey(c.Subject, c.TargetID))
	return s.writeDoc(ctx, pipe, c)
}

func lockedBy(c *domain.ReviewCandidate, expectedOwner *uuid.UUID) bool {
	if c.Status != domain.CandidateStatusLocked || c.LockOwnerID == nil {
		return false
	}
	return expectedOwner == nil || *c.LockOwnerID == *expectedOwner
}

// CloseLocked implements store.CandidateStore.CloseLocked
func (s *CandidateStore) CloseLocked(
	ctx context.Context,
	subject string,
	id uuid.UUID,
	expectedOwner *uuid.UUID,
	closedAt time.Time,
) error {
	return s.conditional(ctx, func(tx *goredis.Tx) error {
		c, err := s.load(ctx, tx, subject, id)
		if err != nil {
			return err
		}
		if !lockedBy(c, expectedOwner) {
			return store.ErrConditionFailed
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			return s.queueClose(ctx, pipe, c, closedAt)
		})
		return err
	}, s.docKey(subject, id))
}

// Supersede implements store.CandidateStore.Supersede
// The close and the successor insert share one MULTI block.
func (s *CandidateStore) Supersede(
	ctx context.Context,
	subject string,
	id uuid.UUID,
	ownerID uuid.UUID,
	closedAt time.Time,
	successor *domain.ReviewCandidate,
) error {
	if err := successor.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	err := s.conditional(ctx, func(tx *goredis.Tx) error {
		c, err := s.load(ctx, tx, subject, id)
		if err != nil {
			return err
		}
		if !c.IsLockedBy(ownerID) {
			return store.ErrConditionFailed
		}
		if err := s.checkInsert(ctx, tx, successor, c.ID); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if err := s.queueClose(ctx, pipe, c, closedAt); err != nil {
				return err
			}
			return s.writeDoc(ctx, pipe, successor)
		})
		return err
	},
		s.docKey(subject, id),
		s.docKey(successor.Subject, successor.ID),
		s.activeKey(successor.Subject, successor.TargetID),
	)
	if err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("candidate superseded",
		slog.String("candidate_id", id.String()),
		slog.String("successor_id", successor.ID.String()),
		slog.String("next_time", successor.NextTime.String()),
		slog.String("status", string(successor.Status)))
	return nil
}
