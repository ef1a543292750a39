package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExam(t *testing.T) {
	t.Parallel()

	ids := []string{"q1", "q2"}
	exam, err := NewExam(uuid.New(), "S", ModeMaterialQuestion, "2025-01-01", ids, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ExamStatusInProgress, exam.Status)
	assert.False(t, exam.Completed())

	ids[0] = "mutated"
	assert.Equal(t, []string{"q1", "q2"}, exam.TargetIDs, "exam must own a copy of its target ids")

	_, err = NewExam(uuid.Nil, "S", ModeKanji, "2025-01-01", nil, time.Now())
	assert.True(t, errors.Is(err, ErrExamIDEmpty))

	_, err = NewExam(uuid.New(), "S", ModeKanji, "01/01/2025", nil, time.Now())
	assert.True(t, errors.Is(err, ErrInvalidCreatedDate))
}

func TestExamMergeResults(t *testing.T) {
	t.Parallel()

	exam := &Exam{
		TargetIDs: []string{"q1", "q2", "q3"},
		Results:   []ItemResult{{TargetID: "q1", Correct: false}, {TargetID: "q2", Correct: true}},
	}

	merged := exam.MergeResults([]ItemResult{
		{TargetID: "q1", Correct: true},
		{TargetID: "unknown", Correct: true},
	})

	assert.Equal(t, []ItemResult{
		{TargetID: "q1", Correct: true},
		{TargetID: "q2", Correct: true},
	}, merged)

	correct, ok := exam.ResultFor("q2")
	assert.True(t, ok)
	assert.True(t, correct)

	_, ok = exam.ResultFor("q3")
	assert.False(t, ok)
}
