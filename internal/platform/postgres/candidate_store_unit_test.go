package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockCandidateStore(t *testing.T) (*PostgresCandidateStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresCandidateStore(db, nil), mock
}

func TestNewPostgresCandidateStore(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewPostgresCandidateStore(nil, nil) })

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCandidateStore(db, nil)
	assert.NotNil(t, s.logger)
	assert.Same(t, db, s.sqlDB)
}

func TestPostgresCandidateStore_TryLock(t *testing.T) {
	t.Parallel()

	subject := "math"
	id := uuid.New()
	owner := uuid.New()

	t.Run("acquired", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCandidateStore(t)
		mock.ExpectExec("UPDATE review_candidates").
			WithArgs(subject, id, owner).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.TryLock(context.Background(), subject, id, owner))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCandidateStore(t)
		mock.ExpectExec("UPDATE review_candidates").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(subject, id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := s.TryLock(context.Background(), subject, id, owner)
		assert.ErrorIs(t, err, store.ErrConditionFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCandidateStore(t)
		mock.ExpectExec("UPDATE review_candidates").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := s.TryLock(context.Background(), subject, id, owner)
		assert.ErrorIs(t, err, store.ErrCandidateNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCandidateStore(t)
		mock.ExpectExec("UPDATE review_candidates").
			WillReturnError(sql.ErrConnDone)

		err := s.TryLock(context.Background(), subject, id, owner)
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "candidate", storeErr.Entity)
		assert.Equal(t, "try_lock", storeErr.Operation)
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.False(t, store.IsConditionFailed(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresCandidateStore_Supersede(t *testing.T) {
	t.Parallel()

	subject := "math"
	id := uuid.New()
	owner := uuid.New()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	successor, err := domain.NewReviewCandidate(
		subject, "q-1", domain.ModeMaterialQuestion, calendar.MustParse("2025-04-01"), 1, now)
	require.NoError(t, err)

	t.Run("commits close and insert together", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCandidateStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE review_candidates").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO review_candidates").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, s.Supersede(context.Background(), subject, id, owner, now, successor))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost lock rolls back without insert", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCandidateStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE review_candidates").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := s.Supersede(context.Background(), subject, id, owner, now, successor)
		assert.ErrorIs(t, err, store.ErrConditionFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid successor rejected before any statement", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCandidateStore(t)
		bad := successor.Clone()
		bad.Status = domain.CandidateStatusExcluded

		err := s.Supersede(context.Background(), subject, id, owner, now, bad)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresCandidateStore_WithTxSkipsNestedTransaction(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE review_candidates").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO review_candidates").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now()
	successor, err := domain.NewReviewCandidate("math", "q-2", domain.ModeKanji, calendar.ExcludedSentinel, 3, now)
	require.NoError(t, err)
	successor.Status = domain.CandidateStatusExcluded

	err = store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		s := NewPostgresCandidateStore(db, nil).WithTx(tx)
		return s.Supersede(ctx, "math", uuid.New(), uuid.New(), now, successor)
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
