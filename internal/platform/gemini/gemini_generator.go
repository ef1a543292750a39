package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/kioku-api/internal/config"
	"github.com/phrazzld/kioku-api/internal/generation"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"google.golang.org/genai"
)

// DefaultModel is used when the configuration does not name a model.
const DefaultModel = "gemini-2.0-flash"

// contentGenerator is the subset of *genai.Models the generator calls.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements generation.FieldGenerator using the Gemini API.
type GeminiGenerator struct {
	logger *slog.Logger
	models contentGenerator
	model  string
	retry  generation.RetryPolicy
}

var _ generation.FieldGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a generator backed by a new genai client.
func NewGeminiGenerator(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(log, client.Models, cfg), nil
}

func newGenerator(log *slog.Logger, models contentGenerator, cfg config.LLMConfig) *GeminiGenerator {
	if log == nil {
		log = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GeminiGenerator{
		logger: log.With(slog.String("component", "gemini_generator")),
		models: models,
		model:  model,
		retry:  generation.NewRetryPolicy(cfg.MaxRetries, cfg.RetryDelay()),
	}
}

// Generate implements generation.FieldGenerator.
func (g *GeminiGenerator) Generate(ctx context.Context, itemID, text string) (*generation.GeneratedFields, error) {
	log := logger.FromContextOrDefault(ctx, g.logger).With(slog.String("item_id", itemID))

	prompt, err := generation.BuildPrompt(text)
	if err != nil {
		return nil, err
	}

	fields, err := g.retry.Do(ctx, log, func(ctx context.Context) (*generation.GeneratedFields, error) {
		return g.call(ctx, log, prompt)
	})
	if err != nil {
		if !errors.Is(err, generation.ErrTransientFailure) && !generation.IsPermanent(err) {
			err = fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}
		log.ErrorContext(ctx, "field generation failed", slog.String("error", err.Error()))
		return nil, err
	}

	log.DebugContext(ctx, "fields generated", slog.String("model", g.model))
	return fields, nil
}

func (g *GeminiGenerator) call(ctx context.Context, log *slog.Logger, prompt string) (*generation.GeneratedFields, error) {
	temperature := float32(0.2)
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	})
	if err != nil {
		log.WarnContext(ctx, "Gemini API call error", slog.String("error", err.Error()))
		return nil, err
	}

	switch {
	case resp == nil:
		return nil, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	case resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "":
		return nil, fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	case len(resp.Candidates) == 0:
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return nil, fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	case resp.Candidates[0].Content == nil:
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return generation.ParseFields(b.String())
}
