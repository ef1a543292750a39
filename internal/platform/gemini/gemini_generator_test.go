package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/kioku-api/internal/config"
	"github.com/phrazzld/kioku-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	lastModel string
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	_ *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.lastModel = model
	if len(contents) == 0 {
		return nil, errors.New("no contents")
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp *genai.GenerateContentResponse
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), nil, config.LLMConfig{Provider: config.ProviderGemini})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGeminiGenerator_Generate(t *testing.T) {
	cfg := config.LLMConfig{MaxRetries: 0}

	t.Run("parses fields", func(t *testing.T) {
		fake := &fakeModels{responses: []*genai.GenerateContentResponse{
			textResponse(`{"reading":"やま","meaning":"mountain"}`),
		}}
		g := newGenerator(nil, fake, cfg)

		got, err := g.Generate(context.Background(), "k1", "山")
		require.NoError(t, err)
		assert.Equal(t, "やま", got.Reading)
		assert.Equal(t, "mountain", got.Meaning)
		assert.Equal(t, DefaultModel, fake.lastModel)
	})

	t.Run("safety block is permanent", func(t *testing.T) {
		fake := &fakeModels{responses: []*genai.GenerateContentResponse{{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}}}
		g := newGenerator(nil, fake, config.LLMConfig{MaxRetries: 3})

		_, err := g.Generate(context.Background(), "k1", "山")
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("no candidates is invalid", func(t *testing.T) {
		fake := &fakeModels{responses: []*genai.GenerateContentResponse{{}}}
		g := newGenerator(nil, fake, cfg)

		_, err := g.Generate(context.Background(), "k1", "山")
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("api error exhausts retries", func(t *testing.T) {
		fake := &fakeModels{errs: []error{errors.New("unavailable")}}
		g := newGenerator(nil, fake, cfg)

		_, err := g.Generate(context.Background(), "k1", "山")
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("empty text never calls api", func(t *testing.T) {
		fake := &fakeModels{}
		g := newGenerator(nil, fake, cfg)

		_, err := g.Generate(context.Background(), "k1", " ")
		assert.ErrorIs(t, err, generation.ErrEmptyText)
		assert.Zero(t, fake.calls)
	})

	t.Run("configured model is used", func(t *testing.T) {
		fake := &fakeModels{responses: []*genai.GenerateContentResponse{
			textResponse(`{"reading":"かわ","meaning":"river"}`),
		}}
		g := newGenerator(nil, fake, config.LLMConfig{Model: "gemini-custom"})

		_, err := g.Generate(context.Background(), "k2", "川")
		require.NoError(t, err)
		assert.Equal(t, "gemini-custom", fake.lastModel)
	})
}
