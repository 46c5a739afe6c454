package vectorindex

import (
	"context"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

// Hit pairs a similarity candidate with the full record reconstructed from the
// store's metadata.
type Hit struct {
	Candidate types.PoiCandidate
	Record    types.PoiRecord
}

// Index is the content-addressed POI store. Inserts are idempotent by poi_id;
// searches return hits in descending similarity, and an empty index yields an
// empty slice rather than an error.
type Index interface {
	Add(ctx context.Context, rec types.PoiRecord) error
	AddBatch(ctx context.Context, recs []types.PoiRecord) (int, error)
	SearchByText(ctx context.Context, query string, k int, cityFilter string) ([]Hit, error)
	SearchByVector(ctx context.Context, vec []float32, k int, cityFilter string) ([]Hit, error)
	Size(ctx context.Context) (int, error)
}

// dedupeBatch drops in-batch poi_id duplicates, keeping the first occurrence.
func dedupeBatch(recs []types.PoiRecord) []types.PoiRecord {
	seen := make(map[string]bool, len(recs))
	out := make([]types.PoiRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.PoiID == "" || seen[rec.PoiID] {
			continue
		}
		seen[rec.PoiID] = true
		out = append(out, rec)
	}
	return out
}

// embeddingText is the string a record is embedded under.
func embeddingText(rec types.PoiRecord) string {
	if rec.RawText != "" {
		return rec.RawText
	}
	return rec.Name + " " + rec.Description
}

func hitFromRecord(rec types.PoiRecord, relevance float64) Hit {
	if relevance < 0 {
		relevance = 0
	}
	if relevance > 1 {
		relevance = 1
	}
	return Hit{
		Candidate: types.PoiCandidate{
			Title:     rec.Name,
			Snippet:   rec.Description,
			Source:    types.SourceVector,
			Relevance: relevance,
			PoiID:     rec.PoiID,
		},
		Record: rec,
	}
}
