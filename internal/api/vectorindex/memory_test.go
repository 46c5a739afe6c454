package vectorindex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

func newMemoryIndex() *Memory {
	return NewMemory(NewHashingEmbedder(64))
}

func record(id, name, city string) types.PoiRecord {
	return types.PoiRecord{
		PoiID:       id,
		Name:        name,
		Category:    types.CategoryAttraction,
		Description: name + " description",
		City:        city,
		RawText:     name,
		Source:      types.SourceWeb,
		CreatedAt:   time.Now(),
	}
}

func TestMemoryAddBatch_Idempotent(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex()
	recs := []types.PoiRecord{
		record("a1", "Gwangjang Market", "Seoul"),
		record("b2", "Euljiro Nogari Alley", "Seoul"),
	}

	inserted, err := idx.AddBatch(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = idx.AddBatch(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	size, err := idx.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestMemoryAddBatch_InBatchDuplicatesKeepFirst(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex()

	first := record("dup", "First Version", "Seoul")
	second := record("dup", "Second Version", "Seoul")
	inserted, err := idx.AddBatch(ctx, []types.PoiRecord{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	hits, err := idx.SearchByText(ctx, "First Version", 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "First Version", hits[0].Record.Name)
}

func TestMemorySearchByText_OrderedAndFiltered(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex()
	_, err := idx.AddBatch(ctx, []types.PoiRecord{
		record("a1", "Euljiro craft beer bar", "Seoul"),
		record("b2", "Euljiro specialty coffee", "Seoul"),
		record("c3", "Dotonbori street food", "Osaka"),
	})
	require.NoError(t, err)

	hits, err := idx.SearchByText(ctx, "Euljiro craft beer bar", 10, "Seoul")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a1", hits[0].Candidate.PoiID)
	assert.Equal(t, types.SourceVector, hits[0].Candidate.Source)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Candidate.Relevance, hits[i].Candidate.Relevance)
	}
	for _, h := range hits {
		assert.InDelta(t, 0.5, h.Candidate.Relevance, 0.5, "relevance must be within [0,1]")
	}
}

func TestMemorySearch_EmptyIndexReturnsEmpty(t *testing.T) {
	idx := newMemoryIndex()

	hits, err := idx.SearchByText(context.Background(), "anything", 5, "")

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemorySearch_RespectsK(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex()
	_, err := idx.AddBatch(ctx, []types.PoiRecord{
		record("a1", "market stall one", "Seoul"),
		record("b2", "market stall two", "Seoul"),
		record("c3", "market stall three", "Seoul"),
	})
	require.NoError(t, err)

	hits, err := idx.SearchByText(ctx, "market stall", 2, "")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}
