package llmclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

var _ Client = (*VLLMClient)(nil)

// VLLMClient talks to a vLLM server: no auth header, structured output via the
// guided_json request extension instead of response_format.
type VLLMClient struct {
	core
}

func NewVLLMClient(cfg config.LLMConfig, logger *slog.Logger) *VLLMClient {
	return &VLLMClient{core: newCore("vllm", cfg, nil, logger)}
}

func (c *VLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(c.baseRequest(prompt, false))
	if err != nil {
		return "", c.wrap(types.LLMBadResponse, err)
	}
	return c.withRetry(ctx, "Complete", func(ctx context.Context) (string, error) {
		return c.completeOnce(ctx, body)
	})
}

// Stream de-duplicates cumulative deltas: vLLM repeats the full generated
// prefix in each chunk, so only the unseen suffix is forwarded.
func (c *VLLMClient) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	body, err := json.Marshal(c.baseRequest(prompt, true))
	if err != nil {
		return nil, c.wrap(types.LLMBadResponse, err)
	}
	var seen string
	return c.stream(ctx, body, func(delta string) string {
		if strings.HasPrefix(delta, seen) {
			delta = delta[len(seen):]
		}
		seen += delta
		return delta
	})
}

func (c *VLLMClient) CompleteStructured(ctx context.Context, prompt string, schema map[string]any, out any) error {
	guided := EnforceNoAdditionalProperties(schema)
	return c.completeStructured(ctx, "CompleteStructured", func() ([]byte, error) {
		req := c.baseRequest(prompt, false)
		req.GuidedJSON = guided
		return json.Marshal(req)
	}, out)
}
