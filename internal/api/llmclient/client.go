package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

// Client is the uniform contract over chat-completion providers. All three
// operations honour ctx cancellation and retry transient failures internally;
// a returned error is always a *types.LLMError after the retry budget is spent.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (<-chan string, error)
	CompleteStructured(ctx context.Context, prompt string, schema map[string]any, out any) error
}

const maxBackoff = 30 * time.Second

// New selects the provider variant from config.
func New(cfg config.LLMConfig, logger *slog.Logger) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg, logger), nil
	case "vllm":
		return NewVLLMClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	// OpenAI strict structured-output mode.
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	// vLLM guided-decoding extension.
	GuidedJSON map[string]any `json:"guided_json,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// core carries everything the two provider variants share: the HTTP plumbing,
// the retry law and the error taxonomy. Variants differ only in request shape.
type core struct {
	provider   string
	cfg        config.LLMConfig
	http       *http.Client
	streamHTTP *http.Client
	auth       func(*http.Request)
	logger     *slog.Logger
}

func newCore(provider string, cfg config.LLMConfig, auth func(*http.Request), logger *slog.Logger) core {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	// A stream legitimately outlives the per-attempt timeout, so the stream
	// client bounds only the wait for response headers; the body stays open
	// until the end-of-stream marker or cancellation.
	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = timeout
	return core{
		provider:   provider,
		cfg:        cfg,
		http:       &http.Client{Timeout: timeout},
		streamHTTP: &http.Client{Transport: streamTransport},
		auth:       auth,
		logger:     logger,
	}
}

func (c *core) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.auth != nil {
		c.auth(req)
	}
	return req, nil
}

// completeOnce performs a single non-streaming attempt.
func (c *core) completeOnce(ctx context.Context, body []byte) (string, error) {
	req, err := c.newRequest(ctx, body)
	if err != nil {
		return "", c.wrap(types.LLMBadResponse, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", c.wrap(types.LLMUpstream5xx, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", c.wrapPermanent(types.LLMBadResponse, fmt.Errorf("status %d: %s", resp.StatusCode, payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", c.wrap(types.LLMBadResponse, fmt.Errorf("decoding response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", c.wrap(types.LLMBadResponse, errors.New("empty choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

// withRetry runs fn up to MaxRetries times with 2^attempt seconds of backoff,
// capped at maxBackoff. 503 and every other retryable kind re-enter the loop;
// cancellation never does.
func (c *core) withRetry(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			c.logger.WarnContext(ctx, "Retrying LLM call",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", c.wrap(types.LLMCancelled, ctx.Err())
			}
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

// retryable admits upstream outages, timeouts and malformed payloads back
// into the retry loop. Permanent failures (4xx statuses) and cancellation
// fail fast.
func retryable(err error) bool {
	var llmErr *types.LLMError
	if !errors.As(err, &llmErr) {
		return false
	}
	if llmErr.Permanent {
		return false
	}
	switch llmErr.Kind {
	case types.LLMUpstream5xx, types.LLMTimeout, types.LLMBadResponse, types.LLMSchemaViolation:
		return true
	default:
		return false
	}
}

func (c *core) classifyTransport(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return c.wrap(types.LLMCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return c.wrap(types.LLMTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.wrap(types.LLMTimeout, err)
	}
	// Connection-level failures are treated like upstream outages.
	return c.wrap(types.LLMUpstream5xx, err)
}

func (c *core) wrap(kind types.LLMErrorKind, err error) error {
	return &types.LLMError{Kind: kind, Provider: c.provider, Err: err}
}

func (c *core) wrapPermanent(kind types.LLMErrorKind, err error) error {
	return &types.LLMError{Kind: kind, Provider: c.provider, Permanent: true, Err: err}
}

func (c *core) baseRequest(prompt string, stream bool) chatRequest {
	return chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		Stream:      stream,
	}
}

// stripJSONFences removes a surrounding ```json ... ``` block when present.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// completeStructured is shared by both variants once the request body is built.
func (c *core) completeStructured(ctx context.Context, op string, body func() ([]byte, error), out any) error {
	_, err := c.withRetry(ctx, op, func(ctx context.Context) (string, error) {
		payload, err := body()
		if err != nil {
			return "", c.wrap(types.LLMBadResponse, err)
		}
		raw, err := c.completeOnce(ctx, payload)
		if err != nil {
			return "", err
		}
		cleaned := stripJSONFences(raw)
		if err := json.Unmarshal([]byte(cleaned), out); err != nil {
			return "", c.wrap(types.LLMSchemaViolation, fmt.Errorf("parsing structured response: %w", err))
		}
		return cleaned, nil
	})
	return err
}
