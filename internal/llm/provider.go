package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"bookbot/internal/config"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewFromConfig elige el proveedor según LLM_PROVIDER. schema solo lo usa Gemini.
func NewFromConfig(ctx context.Context, cfg *config.Config, schema *genai.Schema, logger *zap.Logger) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, cfg.LLMAPIKey, cfg.LLMModel, schema, logger)
	case ProviderOpenAI:
		return NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger), nil
	case ProviderMock:
		return &MockClient{Response: `{"reply":"I'm running in offline mode, so no books today 📴","books":[]}`}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.LLMProvider)
	}
}
