package llmclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

var _ Client = (*OpenAIClient)(nil)

// OpenAIClient talks to an OpenAI-compatible endpoint with bearer-token auth
// and strict json_schema structured output.
type OpenAIClient struct {
	core
}

func NewOpenAIClient(cfg config.LLMConfig, logger *slog.Logger) *OpenAIClient {
	auth := func(req *http.Request) {
		if cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		}
	}
	return &OpenAIClient{core: newCore("openai", cfg, auth, logger)}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(c.baseRequest(prompt, false))
	if err != nil {
		return "", c.wrap(types.LLMBadResponse, err)
	}
	return c.withRetry(ctx, "Complete", func(ctx context.Context) (string, error) {
		return c.completeOnce(ctx, body)
	})
}

func (c *OpenAIClient) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	body, err := json.Marshal(c.baseRequest(prompt, true))
	if err != nil {
		return nil, c.wrap(types.LLMBadResponse, err)
	}
	return c.stream(ctx, body, nil)
}

func (c *OpenAIClient) CompleteStructured(ctx context.Context, prompt string, schema map[string]any, out any) error {
	strict := EnforceNoAdditionalProperties(schema)
	return c.completeStructured(ctx, "CompleteStructured", func() ([]byte, error) {
		req := c.baseRequest(prompt, false)
		req.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   "response",
				Strict: true,
				Schema: strict,
			},
		}
		return json.Marshal(req)
	}, out)
}
