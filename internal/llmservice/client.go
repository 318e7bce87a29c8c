package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-chat/internal/config"
	"pdf-chat/internal/metrics"
)

var ErrMissingAPIKey = errors.New("inference API key is not set")

// NewLLM builds the chat model described by llmConfig.
func NewLLM(ctx context.Context, llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating chat model")

	switch llmConfig.Provider {
	case "openai", "":
		if llmConfig.Key == "" {
			return nil, fmt.Errorf("%w (set %s)", ErrMissingAPIKey, llmConfig.KeyEnv)
		}
		llm, err := openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai model: %w", err)
		}
		return llm, nil
	case "googleai":
		if llmConfig.Key == "" {
			return nil, fmt.Errorf("%w (set %s)", ErrMissingAPIKey, llmConfig.KeyEnv)
		}
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(llmConfig.Key),
			googleai.WithDefaultModel(llmConfig.Model),
			googleai.WithDefaultTemperature(llmConfig.GetTemperature()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize googleai model: %w", err)
		}
		return llm, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama model: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown inference provider: %s", llmConfig.Provider)
	}
}

// call llm
func GenerateContent(ctx context.Context, llm llms.Model, temperature float64, messages []llms.MessageContent) (string, error) {
	start := time.Now()
	res, err := llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	metrics.ObserveRemoteCall("generate_content", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return res.Choices[0].Content, nil
}
