package vectorindex

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

var _ Index = (*Memory)(nil)

// Memory is an in-process index with the same contract as Postgres. It backs
// unit tests and keyless development runs where no database is configured.
type Memory struct {
	embedder Embedder

	mu   sync.RWMutex
	recs map[string]memoryEntry
}

type memoryEntry struct {
	rec types.PoiRecord
	vec []float32
}

func NewMemory(embedder Embedder) *Memory {
	return &Memory{embedder: embedder, recs: make(map[string]memoryEntry)}
}

func (m *Memory) Add(ctx context.Context, rec types.PoiRecord) error {
	_, err := m.AddBatch(ctx, []types.PoiRecord{rec})
	return err
}

func (m *Memory) AddBatch(ctx context.Context, recs []types.PoiRecord) (int, error) {
	batch := dedupeBatch(recs)

	inserted := 0
	for _, rec := range batch {
		m.mu.RLock()
		_, exists := m.recs[rec.PoiID]
		m.mu.RUnlock()
		if exists {
			continue
		}
		vec, err := m.embedder.Embed(ctx, embeddingText(rec))
		if err != nil {
			return inserted, err
		}
		m.mu.Lock()
		if _, exists := m.recs[rec.PoiID]; !exists {
			m.recs[rec.PoiID] = memoryEntry{rec: rec, vec: vec}
			inserted++
		}
		m.mu.Unlock()
	}
	return inserted, nil
}

func (m *Memory) SearchByText(ctx context.Context, query string, k int, cityFilter string) ([]Hit, error) {
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return m.SearchByVector(ctx, vec, k, cityFilter)
}

func (m *Memory) SearchByVector(_ context.Context, vec []float32, k int, cityFilter string) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.recs))
	for _, entry := range m.recs {
		if cityFilter != "" && !strings.EqualFold(entry.rec.City, cityFilter) {
			continue
		}
		hits = append(hits, hitFromRecord(entry.rec, cosineSimilarity(vec, entry.vec)))
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Candidate.Relevance > hits[j].Candidate.Relevance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Size(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
