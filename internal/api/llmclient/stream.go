package llmclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// stream issues a streaming request and forwards content deltas on the
// returned channel. The channel is closed on the `data: [DONE]` terminator,
// end of stream, or ctx cancellation; the consumer may simply stop reading.
// transform lets a variant rewrite each raw delta before it is emitted.
func (c *core) stream(ctx context.Context, body []byte, transform func(string) string) (<-chan string, error) {
	req, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, c.wrap(types.LLMBadResponse, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, c.classifyTransport(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return nil, c.wrap(types.LLMUpstream5xx, fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil, c.wrap(types.LLMBadResponse, fmt.Errorf("status %d", resp.StatusCode))
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				c.logger.WarnContext(ctx, "Skipping malformed stream chunk", slog.String("error", err.Error()))
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if transform != nil {
				delta = transform(delta)
			}
			if delta == "" {
				continue
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "LLM stream ended abnormally", slog.String("error", err.Error()))
		}
	}()
	return out, nil
}
