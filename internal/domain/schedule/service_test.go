package schedule

import (
	"errors"
	"testing"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPolicyGraduationScenario walks one material question through three
// consecutive correct gradings.
func TestPolicyGraduationScenario(t *testing.T) {
	t.Parallel()
	policy := NewDefaultPolicy()

	first, err := policy.Compute(domain.ModeMaterialQuestion, "2025-01-01", true, 0)
	require.NoError(t, err)
	assert.Equal(t, Result{NextDate: "2025-04-01", NextStreak: 1}, first)

	second, err := policy.Compute(domain.ModeMaterialQuestion, "2025-04-01", true, first.NextStreak)
	require.NoError(t, err)
	assert.Equal(t, 2, second.NextStreak)
	assert.False(t, second.Excluded)
	assert.Equal(t, calendar.Date("2025-06-30"), second.NextDate)

	third, err := policy.Compute(domain.ModeMaterialQuestion, second.NextDate, true, second.NextStreak)
	require.NoError(t, err)
	assert.True(t, third.Excluded)
	assert.Equal(t, calendar.ExcludedSentinel, third.NextDate)
}

func TestPolicyRejectsNegativeStreak(t *testing.T) {
	t.Parallel()
	_, err := NewDefaultPolicy().Compute(domain.ModeKanji, "2025-01-01", true, -1)
	assert.True(t, errors.Is(err, ErrNegativeStreak))
}

func TestPolicyWithCustomParams(t *testing.T) {
	t.Parallel()
	policy := NewPolicyWithParams(NewParams(ParamsConfig{
		GraduationStreak:      5,
		MaterialIncorrectDays: 3,
		KanjiInitialDays:      2,
	}))

	miss, err := policy.Compute(domain.ModeMaterialQuestion, "2025-01-01", false, 4)
	require.NoError(t, err)
	assert.Equal(t, calendar.Date("2025-01-04"), miss.NextDate)

	hit, err := policy.Compute(domain.ModeKanji, "2025-01-01", true, 2)
	require.NoError(t, err)
	assert.False(t, hit.Excluded, "graduation threshold was raised to 5")
	assert.Equal(t, 3, hit.NextStreak)
	assert.Equal(t, calendar.Date("2025-04-01"), hit.NextDate, "streak 3 reuses the longest kanji interval")

	initial, err := policy.Initial(domain.ModeKanji, "2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, calendar.Date("2025-02-03"), initial)
}

func TestNewParamsKeepsDefaults(t *testing.T) {
	t.Parallel()
	params := NewParams(ParamsConfig{})
	defaults := NewDefaultParams()
	assert.Equal(t, defaults, params)
}
