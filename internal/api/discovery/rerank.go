package discovery

import (
	"context"
	"log/slog"
	"sort"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

// rerank asks the LLM to score candidates against the persona and keeps the
// top n. Every non-empty set is scored, even ones already within the cap, so
// persona fit always drives the final ordering; any LLM failure passes the
// original top n through unchanged.
func (s *ServiceImpl) rerank(ctx context.Context, candidates []types.PoiCandidate, persona string) []types.PoiCandidate {
	l := s.logger.With(slog.String("method", "rerank"))

	if len(candidates) == 0 {
		return candidates
	}
	topN := min(s.cfg.RerankTopN, len(candidates))

	var out struct {
		Scores []float64 `json:"scores"`
	}
	if err := s.llm.CompleteStructured(ctx, rerankPrompt(candidates, persona), rerankSchema, &out); err != nil {
		l.WarnContext(ctx, "Rerank failed, passing original order through", slog.String("error", err.Error()))
		return candidates[:topN]
	}
	if len(out.Scores) != len(candidates) {
		l.WarnContext(ctx, "Rerank score count mismatch, passing original order through",
			slog.Int("scores", len(out.Scores)), slog.Int("candidates", len(candidates)))
		return candidates[:topN]
	}

	rescored := make([]types.PoiCandidate, len(candidates))
	for i, cand := range candidates {
		cand.Relevance = clamp01(out.Scores[i])
		rescored[i] = cand
	}
	sort.SliceStable(rescored, func(i, j int) bool {
		return rescored[i].Relevance > rescored[j].Relevance
	})
	return rescored[:topN]
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
