package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/phrazzld/kioku-api/internal/config"
	"github.com/phrazzld/kioku-api/internal/generation"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
)

// DefaultModel is used when the configuration does not name a model.
const DefaultModel = goopenai.GPT4oMini

const systemPrompt = "You produce dictionary fields for Japanese vocabulary. Reply with JSON only."

// chatCompleter is the subset of *goopenai.Client the generator calls.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Generator implements generation.FieldGenerator with a chat completion model.
type Generator struct {
	logger *slog.Logger
	client chatCompleter
	model  string
	retry  generation.RetryPolicy
}

var _ generation.FieldGenerator = (*Generator)(nil)

// NewGenerator creates a generator from the LLM configuration.
func NewGenerator(log *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := goopenai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}

	return newGenerator(log, goopenai.NewClientWithConfig(clientConfig), cfg), nil
}

func newGenerator(log *slog.Logger, client chatCompleter, cfg config.LLMConfig) *Generator {
	if log == nil {
		log = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		logger: log.With(slog.String("component", "openai_generator")),
		client: client,
		model:  model,
		retry:  generation.NewRetryPolicy(cfg.MaxRetries, cfg.RetryDelay()),
	}
}

// Generate implements generation.FieldGenerator.
func (g *Generator) Generate(ctx context.Context, itemID, text string) (*generation.GeneratedFields, error) {
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
	return fields, nil
}

func (g *Generator) call(ctx context.Context, log *slog.Logger, prompt string) (*generation.GeneratedFields, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.2,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) && isClientError(apiErr.HTTPStatusCode) {
			return nil, fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
		}
		log.WarnContext(ctx, "chat completion request failed",
			slog.String("error", err.Error()),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()))
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", generation.ErrInvalidResponse)
	}
	if resp.Choices[0].FinishReason == goopenai.FinishReasonContentFilter {
		return nil, fmt.Errorf("%w: content filtered", generation.ErrContentBlocked)
	}

	log.DebugContext(ctx, "chat completion finished",
		slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		slog.Int("tokens", resp.Usage.TotalTokens))

	return generation.ParseFields(resp.Choices[0].Message.Content)
}

// isClientError reports request errors that a retry cannot fix. Rate limits are retried.
func isClientError(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout
}
