package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
)

const candidateColumns = `subject, id, target_id, mode, correct_count, next_time, status,
	lock_owner_id, created_at, closed_at`

const candidateExistsQuery = `SELECT EXISTS(SELECT 1 FROM review_candidates WHERE subject = $1 AND id = $2)`

// PostgresCandidateStore implements the store.CandidateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCandidateStore struct {
	db     store.DBTX
	sqlDB  *sql.DB
	logger *slog.Logger
}

// NewPostgresCandidateStore creates a new PostgreSQL implementation of the CandidateStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCandidateStore(db store.DBTX, logger *slog.Logger) *PostgresCandidateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	sqlDB, _ := db.(*sql.DB)
	return &PostgresCandidateStore{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(slog.String("component", "candidate_store")),
	}
}

// WithTx returns a store that runs every statement inside tx.
func (s *PostgresCandidateStore) WithTx(tx *sql.Tx) *PostgresCandidateStore {
	return &PostgresCandidateStore{db: tx, logger: s.logger}
}

// Ensure PostgresCandidateStore implements store.CandidateStore interface
var _ store.CandidateStore = (*PostgresCandidateStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*domain.ReviewCandidate, error) {
	var (
		c      domain.ReviewCandidate
		mode   string
		status string
		next   time.Time
		owner  uuid.NullUUID
		closed sql.NullTime
	)
	if err := row.Scan(
		&c.Subject,
		&c.ID,
		&c.TargetID,
		&mode,
		&c.CorrectCount,
		&next,
		&status,
		&owner,
		&c.CreatedAt,
		&closed,
	); err != nil {
		return nil, err
	}

	c.Mode = domain.Mode(mode)
	c.Status = domain.CandidateStatus(status)
	c.NextTime = calendar.FromStoredTime(next)
	c.CreatedAt = c.CreatedAt.UTC()
	if owner.Valid {
		id := owner.UUID
		c.LockOwnerID = &id
	}
	if closed.Valid {
		t := closed.Time.UTC()
		c.ClosedAt = &t
	}
	return &c, nil
}

func (s *PostgresCandidateStore) queryCandidates(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.ReviewCandidate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []*domain.ReviewCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return candidates, nil
}

func modeArg(mode *domain.Mode) sql.NullString {
	if mode == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*mode), Valid: true}
}

// ListDue implements store.CandidateStore.ListDue
func (s *PostgresCandidateStore) ListDue(
	ctx context.Context,
	subject string,
	mode *domain.Mode,
	asOf calendar.Date,
) ([]*domain.ReviewCandidate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + candidateColumns + `
		FROM review_candidates
		WHERE subject = $1
		  AND status = 'open'
		  AND next_time <= $2::date
		  AND ($3::text IS NULL OR mode = $3)
		ORDER BY next_time, created_at, id`

	candidates, err := s.queryCandidates(ctx, query, subject, asOf.String(), modeArg(mode))
	if err != nil {
		log.Error("failed to list due candidates",
			slog.String("subject", subject),
			slog.String("as_of", asOf.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed due candidates",
		slog.String("subject", subject),
		slog.String("as_of", asOf.String()),
		slog.Int("count", len(candidates)))
	return candidates, nil
}

// ListByTarget implements store.CandidateStore.ListByTarget
func (s *PostgresCandidateStore) ListByTarget(
	ctx context.Context,
	targetID string,
) ([]*domain.ReviewCandidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM review_candidates
		WHERE target_id = $1
		ORDER BY created_at, id`
	return s.queryCandidates(ctx, query, targetID)
}

// ListOpenBySubject implements store.CandidateStore.ListOpenBySubject
func (s *PostgresCandidateStore) ListOpenBySubject(
	ctx context.Context,
	subject string,
	mode *domain.Mode,
) ([]*domain.ReviewCandidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM review_candidates
		WHERE subject = $1
		  AND status = 'open'
		  AND ($2::text IS NULL OR mode = $2)
		ORDER BY next_time, created_at, id`
	return s.queryCandidates(ctx, query, subject, modeArg(mode))
}

// ListLockedByOwner implements store.CandidateStore.ListLockedByOwner
func (s *PostgresCandidateStore) ListLockedByOwner(
	ctx context.Context,
	subject string,
	ownerID uuid.UUID,
) ([]*domain.ReviewCandidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM review_candidates
		WHERE subject = $1
		  AND status = 'locked'
		  AND lock_owner_id = $2
		ORDER BY created_at, id`
	return s.queryCandidates(ctx, query, subject, ownerID)
}

// Get implements store.CandidateStore.Get
func (s *PostgresCandidateStore) Get(
	ctx context.Context,
	subject string,
	id uuid.UUID,
) (*domain.ReviewCandidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM review_candidates
		WHERE subject = $1 AND id = $2`

	c, err := scanCandidate(s.db.QueryRowContext(ctx, query, subject, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCandidateNotFound
		}
		return nil, MapError(err)
	}
	return c, nil
}

func insertCandidate(ctx context.Context, db store.DBTX, c *domain.ReviewCandidate) error {
	var owner uuid.NullUUID
	if c.LockOwnerID != nil {
		owner = uuid.NullUUID{UUID: *c.LockOwnerID, Valid: true}
	}
	var closed sql.NullTime
	if c.ClosedAt != nil {
		closed = sql.NullTime{Time: *c.ClosedAt, Valid: true}
	}

	query := `INSERT INTO review_candidates (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10)`

	_, err := db.ExecContext(ctx, query,
		c.Subject,
		c.ID,
		c.TargetID,
		string(c.Mode),
		c.CorrectCount,
		c.NextTime.String(),
		string(c.Status),
		owner,
		c.CreatedAt,
		closed,
	)
	return MapError(err)
}

// Create implements store.CandidateStore.Create
func (s *PostgresCandidateStore) Create(ctx context.Context, c *domain.ReviewCandidate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if err := insertCandidate(ctx, s.db, c); err != nil {
		log.Error("failed to create candidate",
			slog.String("subject", c.Subject),
			slog.String("target_id", c.TargetID),
			slog.String("error", err.Error()))
		return err
	}

	log.Info("candidate created",
		slog.String("subject", c.Subject),
		slog.String("candidate_id", c.ID.String()),
		slog.String("target_id", c.TargetID),
		slog.String("next_time", c.NextTime.String()),
		slog.String("status", string(c.Status)))
	return nil
}

// Delete implements store.CandidateStore.Delete
func (s *PostgresCandidateStore) Delete(ctx context.Context, subject string, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM review_candidates WHERE subject = $1 AND id = $2`, subject, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCandidateNotFound)
}

// TryLock implements store.CandidateStore.TryLock
func (s *PostgresCandidateStore) TryLock(
	ctx context.Context,
	subject string,
	id uuid.UUID,
	ownerID uuid.UUID,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE review_candidates
		SET status = 'locked', lock_owner_id = $3
		WHERE subject = $1 AND id = $2
		  AND status = 'open' AND lock_owner_id IS NULL`,
		subject, id, ownerID)
	if err != nil {
		return store.NewStoreError("candidate", "try_lock", "failed to lock candidate", MapError(err))
	}

	if err := checkConditional(ctx, s.db, result, store.ErrCandidateNotFound,
		candidateExistsQuery, subject, id); err != nil {
		log.Debug("candidate lock not acquired",
			slog.String("candidate_id", id.String()),
			slog.String("owner_id", ownerID.String()),
			slog.String("reason", err.Error()))
		return err
	}

	log.Debug("candidate locked",
		slog.String("candidate_id", id.String()),
		slog.String("owner_id", ownerID.String()))
	return nil
}

// ReleaseLock implements store.CandidateStore.ReleaseLock
func (s *PostgresCandidateStore) ReleaseLock(
	ctx context.Context,
	subject string,
	id uuid.UUID,
	ownerID uuid.UUID,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE review_candidates
		SET status = 'open', lock_owner_id = NULL
		WHERE subject = $1 AND id = $2
		  AND status = 'locked' AND lock_owner_id = $3`,
		subject, id, ownerID)
	if err != nil {
		return store.NewStoreError("candidate", "release_lock", "failed to release candidate", MapError(err))
	}
	return checkConditional(ctx, s.db, result, store.ErrCandidateNotFound,
		candidateExistsQuery, subject, id)
}

func closeLocked(
	ctx context.Context,
	db store.DBTX,
	subject string,
	id uuid.UUID,
	expectedOwner *uuid.UUID,
	closedAt time.Time,
) error {
	var owner uuid.NullUUID
	if expectedOwner != nil {
		owner = uuid.NullUUID{UUID: *expectedOwner, Valid: true}
	}

	result, err := db.ExecContext(ctx, `
		UPDATE review_candidates
		SET status = 'closed', lock_owner_id = NULL, closed_at = $4
		WHERE subject = $1 AND id = $2
		  AND status = 'locked'
		  AND ($3::uuid IS NULL OR lock_owner_id = $3)`,
		subject, id, owner, closedAt.UTC())
	if err != nil {
		return store.NewStoreError("candidate", "close_locked", "failed to close candidate", MapError(err))
	}
	return checkConditional(ctx, db, result, store.ErrCandidateNotFound,
		candidateExistsQuery, subject, id)
}

// CloseLocked implements store.CandidateStore.CloseLocked
func (s *PostgresCandidateStore) CloseLocked(
	ctx context.Context,
	subject string,
	id uuid.UUID,
	expectedOwner *uuid.UUID,
	closedAt time.Time,
) error {
	if err := closeLocked(ctx, s.db, subject, id, expectedOwner, closedAt); err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("candidate closed",
		slog.String("candidate_id", id.String()))
	return nil
}

// Supersede implements store.CandidateStore.Supersede
// When the store wraps a *sql.DB the close and insert share one transaction;
// a store created over a transaction uses the caller's.
func (s *PostgresCandidateStore) Supersede(
	ctx context.Context,
	subject string,
	id uuid.UUID,
	ownerID uuid.UUID,
	closedAt time.Time,
	successor *domain.ReviewCandidate,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := successor.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	run := func(ctx context.Context, db store.DBTX) error {
		if err := closeLocked(ctx, db, subject, id, &ownerID, closedAt); err != nil {
			return err
		}
		return insertCandidate(ctx, db, successor)
	}

	var err error
	if s.sqlDB != nil {
		err = store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
			return run(ctx, tx)
		})
	} else {
		err = run(ctx, s.db)
	}
	if err != nil {
		log.Warn("candidate supersede failed",
			slog.String("candidate_id", id.String()),
			slog.String("target_id", successor.TargetID),
			slog.String("error", err.Error()))
		return err
	}

	log.Info("candidate superseded",
		slog.String("candidate_id", id.String()),
		slog.String("successor_id", successor.ID.String()),
		slog.String("target_id", successor.TargetID),
		slog.String("next_time", successor.NextTime.String()),
		slog.Int("correct_count", successor.CorrectCount),
		slog.String("status", string(successor.Status)))
	return nil
}
