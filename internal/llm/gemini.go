package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient implementa Client con la API de Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
	schema *genai.Schema
	logger *zap.Logger
}

// NewGeminiClient abre el cliente de Gemini. Si schema no es nil se usa como
// esquema de respuesta en las peticiones JSON.
func NewGeminiClient(ctx context.Context, apiKey, model string, schema *genai.Schema, logger *zap.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, schema: schema, logger: logger}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, r Request) (string, error) {
	contents := toGeminiContents(r)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, c.config(r))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("gemini returned no text", zap.String("model", c.model))
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *GeminiClient) config(r Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if r.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}
	if r.JSON {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = c.schema
	}
	return cfg
}

func toGeminiContents(r Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(r.History)+1)
	for _, t := range r.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return append(contents, genai.NewContentFromText(r.Utterance, genai.RoleUser))
}
