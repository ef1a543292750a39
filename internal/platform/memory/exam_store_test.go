package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/platform/memory"
	"github.com/phrazzld/kioku-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamStore_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewExamStore()

	exam, err := domain.NewExam(uuid.New(), "math", domain.ModeMaterialQuestion,
		calendar.MustParse("2025-01-01"), []string{"a", "b"}, base)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, exam))
	assert.ErrorIs(t, s.Create(ctx, exam), store.ErrDuplicate)

	results := []domain.ItemResult{{TargetID: "a", Correct: true}}
	require.NoError(t, s.RecordResults(ctx, exam.ID, results, base))

	got, err := s.GetByID(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, results, got.Results)

	submitted := calendar.MustParse("2025-01-02")
	require.NoError(t, s.MarkCompleted(ctx, exam.ID, submitted, results, base))
	assert.ErrorIs(t, s.MarkCompleted(ctx, exam.ID, submitted, results, base), store.ErrConditionFailed)
	assert.ErrorIs(t, s.RecordResults(ctx, exam.ID, nil, base), store.ErrConditionFailed)

	inProgress := domain.ExamStatusInProgress
	listed, err := s.ListBySubject(ctx, "math", &inProgress)
	require.NoError(t, err)
	assert.Empty(t, listed)

	listed, err = s.ListBySubject(ctx, "math", nil)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].SubmittedDate)
	assert.Equal(t, submitted, *listed[0].SubmittedDate)

	require.NoError(t, s.Delete(ctx, exam.ID))
	assert.ErrorIs(t, s.Delete(ctx, exam.ID), store.ErrExamNotFound)
	_, err = s.GetByID(ctx, exam.ID)
	assert.ErrorIs(t, err, store.ErrExamNotFound)
}

func TestItemStore_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewItemStore()

	item, err := domain.NewItem("k-1", "kanji", domain.ModeKanji, "漢字", base)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, item))
	assert.ErrorIs(t, s.Create(ctx, item), store.ErrDuplicate)
	assert.ErrorIs(t, s.Create(ctx, &domain.Item{}), store.ErrInvalidEntity)

	require.NoError(t, s.UpdateFields(ctx, "k-1", "かんじ", "Chinese characters"))
	many, err := s.GetMany(ctx, []string{"k-1", "missing"})
	require.NoError(t, err)
	require.Len(t, many, 1)
	assert.True(t, many["k-1"].Printable())

	require.NoError(t, s.Delete(ctx, "k-1"))
	_, err = s.GetByID(ctx, "k-1")
	assert.ErrorIs(t, err, store.ErrItemNotFound)
	assert.ErrorIs(t, s.UpdateFields(ctx, "k-1", "", ""), store.ErrItemNotFound)
}
