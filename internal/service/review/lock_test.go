package review_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/mocks"
	"github.com/phrazzld/kioku-api/internal/platform/memory"
	"github.com/phrazzld/kioku-api/internal/service/review"
	"github.com/phrazzld/kioku-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2025-01-01")
	c := f.addCandidate(t, "s", "q1", domain.ModeMaterialQuestion, "2025-01-01", 0)
	lock := review.NewCandidateLock(f.candidates, nil)
	ownerA, ownerB := uuid.New(), uuid.New()

	ok, err := lock.TryLock(ctx, c, ownerA)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.TryLock(ctx, c, ownerB)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must lose, not error")

	ok, err = lock.Release(ctx, "s", c.ID, ownerB)
	require.NoError(t, err)
	assert.False(t, ok, "release by non-owner must fail")

	ok, err = lock.Close(ctx, "s", c.ID, ownerA, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Release(ctx, "s", c.ID, ownerA)
	require.NoError(t, err)
	assert.False(t, ok, "closed candidate cannot be released")

	missing := *c
	missing.ID = uuid.New()
	ok, err = lock.TryLock(ctx, &missing, ownerA)
	require.NoError(t, err)
	assert.False(t, ok, "deleted candidate reads as lost")
}

func TestCandidateLock_UnexpectedError(t *testing.T) {
	ctx := context.Background()
	s := &mocks.MockCandidateStore{
		CandidateStore: memory.NewCandidateStore(nil),
		TryLockFn: func(context.Context, string, uuid.UUID, uuid.UUID) error {
			return store.NewStoreError("candidate", "try_lock", "connection reset", assert.AnError)
		},
	}
	lock := review.NewCandidateLock(s, nil)

	c, err := domain.NewReviewCandidate("s", "q", domain.ModeKanji, "2025-01-01", 0, base)
	require.NoError(t, err)

	ok, err := lock.TryLock(ctx, c, uuid.New())
	assert.False(t, ok)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewCandidateLock_NilStorePanics(t *testing.T) {
	assert.Panics(t, func() { review.NewCandidateLock(nil, nil) })
}
