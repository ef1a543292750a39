package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/config"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/phrazzld/kioku-api/internal/generation"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   []string
		want    []domain.ItemResult
		wantErr bool
	}{
		{
			name:  "empty",
			input: nil,
			want:  []domain.ItemResult{},
		},
		{
			name:  "mixed",
			input: []string{"q1=true", " q2 = false", "q3=1"},
			want: []domain.ItemResult{
				{TargetID: "q1", Correct: true},
				{TargetID: "q2", Correct: false},
				{TargetID: "q3", Correct: true},
			},
		},
		{name: "missing separator", input: []string{"q1"}, wantErr: true},
		{name: "missing target", input: []string{"=true"}, wantErr: true},
		{name: "not a bool", input: []string{"q1=maybe"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseResults(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPolicy(t *testing.T) {
	t.Parallel()

	policy := newPolicy(config.SchedulerConfig{
		GraduationStreak:       3,
		MaterialIncorrectDays:  30,
		MaterialCorrectDays:    90,
		KanjiInitialDays:       7,
		KanjiIncorrectDays:     1,
		KanjiFirstCorrectDays:  30,
		KanjiSecondCorrectDays: 90,
	})

	base := calendar.MustParse("2025-01-01")

	r, err := policy.Compute(domain.ModeMaterialQuestion, base, true, 0)
	require.NoError(t, err)
	assert.Equal(t, calendar.MustParse("2025-04-01"), r.NextDate)

	r, err = policy.Compute(domain.ModeKanji, base, true, 2)
	require.NoError(t, err)
	assert.True(t, r.Excluded)

	initial, err := policy.Initial(domain.ModeKanji, base)
	require.NoError(t, err)
	assert.Equal(t, calendar.MustParse("2025-01-08"), initial)
}

func TestNewGenerator(t *testing.T) {
	t.Parallel()
	log, _ := logger.GetTestLogger(t)

	for _, provider := range []string{"", config.ProviderNone} {
		gen, err := newGenerator(context.Background(), config.LLMConfig{Provider: provider}, log)
		require.NoError(t, err)
		assert.Nil(t, gen)
	}

	_, err := newGenerator(context.Background(), config.LLMConfig{Provider: "anthropic"}, log)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	gen, err := newGenerator(context.Background(), config.LLMConfig{
		Provider:     config.ProviderOpenAI,
		OpenAIAPIKey: "test-key",
	}, log)
	require.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestRootCommand(t *testing.T) {
	t.Parallel()

	root := newRootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"migrate", "item", "candidates", "exam"})

	exam, _, err := root.Find([]string{"exam", "submit"})
	require.NoError(t, err)
	assert.Equal(t, "submit", exam.Name())
	assert.NotNil(t, exam.Flags().Lookup("result"))

	due, _, err := root.Find([]string{"candidates", "due"})
	require.NoError(t, err)
	assert.NotNil(t, due.Flags().Lookup("as-of"))
}

func TestCLIPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := &cli{out: &buf}
	require.NoError(t, c.print(map[string]int{"locks_released": 2}))
	assert.JSONEq(t, `{"locks_released": 2}`, buf.String())
}

func TestParseExamID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got, err := parseExamID(" " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = parseExamID("exam-1")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestModeUsage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "material_question or kanji", modeUsage(""))
	assert.Equal(t, "restrict to material_question or kanji", modeUsage("restrict to "))
}
