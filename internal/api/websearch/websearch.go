package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

var _ Service = (*TavilyClient)(nil)

// Service turns keywords into ranked web candidates. A missing API key or an
// upstream failure yields an empty slice, never an error that stops the
// discovery pipeline.
type Service interface {
	Search(ctx context.Context, query string, n int) ([]types.PoiCandidate, error)
	SearchMulti(ctx context.Context, queries []string, perQuery int) ([]types.PoiCandidate, error)
}

type TavilyClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewTavilyClient(cfg config.WebSearchConfig, logger *slog.Logger) *TavilyClient {
	return &TavilyClient{
		logger:  logger,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		Content string  `json:"content"`
		URL     string  `json:"url"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (c *TavilyClient) Search(ctx context.Context, query string, n int) ([]types.PoiCandidate, error) {
	l := c.logger.With(slog.String("method", "Search"))

	if c.apiKey == "" {
		l.WarnContext(ctx, "Web search API key not configured, returning no results")
		return []types.PoiCandidate{}, nil
	}

	body, err := json.Marshal(searchRequest{APIKey: c.apiKey, Query: query, MaxResults: n})
	if err != nil {
		return nil, fmt.Errorf("marshalling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.WarnContext(ctx, "Web search request failed, degrading to empty", slog.String("error", err.Error()))
		return []types.PoiCandidate{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.WarnContext(ctx, "Web search returned non-200, degrading to empty",
			slog.Int("status", resp.StatusCode), slog.String("query", query))
		return []types.PoiCandidate{}, nil
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		l.WarnContext(ctx, "Web search response unparseable, degrading to empty", slog.String("error", err.Error()))
		return []types.PoiCandidate{}, nil
	}

	candidates := make([]types.PoiCandidate, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		candidates = append(candidates, types.PoiCandidate{
			Title:     r.Title,
			Snippet:   r.Content,
			SourceURL: r.URL,
			Source:    types.SourceWeb,
			Relevance: clamp01(r.Score),
		})
	}
	return candidates, nil
}

// SearchMulti fans the queries out concurrently, deduplicates by URL keeping
// the first hit seen, and sorts by descending relevance.
func (c *TavilyClient) SearchMulti(ctx context.Context, queries []string, perQuery int) ([]types.PoiCandidate, error) {
	l := c.logger.With(slog.String("method", "SearchMulti"))

	var mu sync.Mutex
	var all []types.PoiCandidate

	g, gctx := errgroup.WithContext(ctx)
	for _, query := range queries {
		g.Go(func() error {
			hits, err := c.Search(gctx, query, perQuery)
			if err != nil {
				l.WarnContext(gctx, "Skipping failed query", slog.String("query", query), slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			all = append(all, hits...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(all))
	deduped := make([]types.PoiCandidate, 0, len(all))
	for _, cand := range all {
		if cand.SourceURL != "" && seen[cand.SourceURL] {
			continue
		}
		seen[cand.SourceURL] = true
		deduped = append(deduped, cand)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Relevance > deduped[j].Relevance
	})
	return deduped, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
