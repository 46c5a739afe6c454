package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

func mergeService(cfg config.DiscoveryConfig) *ServiceImpl {
	return NewServiceImpl(nil, nil, nil, nil, cfg, testLogger())
}

func TestMergeResults_WeightedScores(t *testing.T) {
	s := mergeService(config.DiscoveryConfig{WebWeight: 0.6, EmbeddingWeight: 0.4})

	web := []types.PoiCandidate{
		{PoiID: "both", Title: "Both Sides", Relevance: 0.5},
		{PoiID: "web-only", Title: "Web Only", Relevance: 1.0},
	}
	vector := []types.PoiCandidate{
		{PoiID: "both", Title: "Both Sides", Relevance: 1.0},
		{PoiID: "vec-only", Title: "Vector Only", Relevance: 1.0},
	}

	merged := s.mergeResults(web, vector)

	require.Len(t, merged, 3)
	// both: 0.6*0.5 + 0.4*1.0 = 0.7; web-only: 0.6; vec-only: 0.4
	assert.Equal(t, "both", merged[0].PoiID)
	assert.InDelta(t, 0.7, merged[0].Relevance, 1e-9)
	assert.Equal(t, "web-only", merged[1].PoiID)
	assert.InDelta(t, 0.6, merged[1].Relevance, 1e-9)
	assert.Equal(t, "vec-only", merged[2].PoiID)
	assert.InDelta(t, 0.4, merged[2].Relevance, 1e-9)
}

func TestMergeResults_TruncatesToFinalCount(t *testing.T) {
	s := mergeService(config.DiscoveryConfig{WebWeight: 0.6, EmbeddingWeight: 0.4, FinalPoiCount: 2})

	var web []types.PoiCandidate
	for i := 0; i < 5; i++ {
		web = append(web, types.PoiCandidate{PoiID: fmt.Sprintf("p%d", i), Relevance: float64(5-i) / 10})
	}

	merged := s.mergeResults(web, nil)

	require.Len(t, merged, 2)
	assert.Equal(t, "p0", merged[0].PoiID)
	assert.Equal(t, "p1", merged[1].PoiID)
}

func TestMergeResults_UnvalidatedCandidatesDedupeByURL(t *testing.T) {
	s := mergeService(config.DiscoveryConfig{WebWeight: 0.6, EmbeddingWeight: 0.4})

	web := []types.PoiCandidate{{Title: "A", SourceURL: "https://a.example", Relevance: 0.5}}
	vector := []types.PoiCandidate{{Title: "A again", SourceURL: "https://a.example", Relevance: 0.5}}

	merged := s.mergeResults(web, vector)

	require.Len(t, merged, 1)
	assert.InDelta(t, 0.5, merged[0].Relevance, 1e-9)
}

func TestMergeResults_ValidatedKeyedSeparatelyFromURL(t *testing.T) {
	s := mergeService(config.DiscoveryConfig{WebWeight: 0.6, EmbeddingWeight: 0.4})

	web := []types.PoiCandidate{{Title: "A", SourceURL: "https://a.example", Relevance: 0.5}}
	vector := []types.PoiCandidate{{Title: "A", SourceURL: "https://a.example", PoiID: "id-a", Relevance: 0.5}}

	merged := s.mergeResults(web, vector)

	// A validated candidate keys by poi_id even when it shares a URL with an
	// unvalidated one; only the validated slot resolves to a record later.
	require.Len(t, merged, 2)
	ids := []string{merged[0].PoiID, merged[1].PoiID}
	assert.Contains(t, ids, "id-a")
}

func TestMergeKey_Precedence(t *testing.T) {
	assert.Equal(t, "id:x", mergeKey(types.PoiCandidate{PoiID: "x", SourceURL: "u", Title: "t"}))
	assert.Equal(t, "url:u", mergeKey(types.PoiCandidate{SourceURL: "u", Title: "t"}))
	assert.Equal(t, "title:t", mergeKey(types.PoiCandidate{Title: "t"}))
}

func TestMergePoiDataMap_UnionIncomingWins(t *testing.T) {
	a := map[string]types.PoiRecord{
		"x": {PoiID: "x", Name: "from a"},
		"y": {PoiID: "y", Name: "y"},
	}
	b := map[string]types.PoiRecord{
		"x": {PoiID: "x", Name: "from b"},
		"z": {PoiID: "z", Name: "z"},
	}

	merged := MergePoiDataMap(a, b)

	require.Len(t, merged, 3)
	assert.Equal(t, "from b", merged["x"].Name)
	assert.Equal(t, "y", merged["y"].Name)
	assert.Equal(t, "z", merged["z"].Name)

	// Key sets are identical regardless of argument order.
	reversed := MergePoiDataMap(b, a)
	assert.Len(t, reversed, 3)
	for id := range merged {
		assert.Contains(t, reversed, id)
	}
}

func TestRerank_ScoresSetsBelowTheCap(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteStructured", mock.Anything, mock.MatchedBy(isRerankPrompt), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			fill(args.Get(3), map[string]any{"scores": []float64{0.3, 0.8}})
		}).Return(nil)
	s := NewServiceImpl(llm, nil, nil, nil, config.DiscoveryConfig{RerankTopN: 5}, testLogger())

	candidates := []types.PoiCandidate{{Title: "a", Relevance: 0.9}, {Title: "b", Relevance: 0.1}}
	out := s.rerank(context.Background(), candidates, "foodie")

	// Even a set smaller than the cap is reordered by persona fit.
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Title)
	assert.Equal(t, "a", out[1].Title)
	llm.AssertExpectations(t)
}

func TestRerank_EmptySetSkipsCall(t *testing.T) {
	llm := new(MockLLM)
	s := NewServiceImpl(llm, nil, nil, nil, config.DiscoveryConfig{RerankTopN: 5}, testLogger())

	out := s.rerank(context.Background(), nil, "foodie")

	assert.Empty(t, out)
	llm.AssertNotCalled(t, "CompleteStructured", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRerank_PassthroughOnFailure(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteStructured", mock.Anything, mock.MatchedBy(isRerankPrompt), mock.Anything, mock.Anything).
		Return(errors.New("llm down"))
	s := NewServiceImpl(llm, nil, nil, nil, config.DiscoveryConfig{RerankTopN: 2}, testLogger())

	candidates := []types.PoiCandidate{
		{Title: "a", Relevance: 0.9},
		{Title: "b", Relevance: 0.8},
		{Title: "c", Relevance: 0.7},
	}
	out := s.rerank(context.Background(), candidates, "foodie")

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Title)
	assert.Equal(t, "b", out[1].Title)
}

func TestRerank_ScoreCountMismatchPassesThrough(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteStructured", mock.Anything, mock.MatchedBy(isRerankPrompt), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			fill(args.Get(3), map[string]any{"scores": []float64{0.1}})
		}).Return(nil)
	s := NewServiceImpl(llm, nil, nil, nil, config.DiscoveryConfig{RerankTopN: 2}, testLogger())

	candidates := []types.PoiCandidate{
		{Title: "a", Relevance: 0.9},
		{Title: "b", Relevance: 0.8},
		{Title: "c", Relevance: 0.7},
	}
	out := s.rerank(context.Background(), candidates, "foodie")

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Title)
}

func TestRerank_ReordersByScores(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteStructured", mock.Anything, mock.MatchedBy(isRerankPrompt), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			fill(args.Get(3), map[string]any{"scores": []float64{0.2, 1.5, 0.9}})
		}).Return(nil)
	s := NewServiceImpl(llm, nil, nil, nil, config.DiscoveryConfig{RerankTopN: 2}, testLogger())

	candidates := []types.PoiCandidate{
		{Title: "a", Relevance: 0.9},
		{Title: "b", Relevance: 0.1},
		{Title: "c", Relevance: 0.5},
	}
	out := s.rerank(context.Background(), candidates, "foodie")

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Title)
	assert.InDelta(t, 1.0, out[0].Relevance, 1e-9, "scores are clamped to [0,1]")
	assert.Equal(t, "c", out[1].Title)
}
