package discovery

import (
	"sort"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

// mergeResults combines the two reranked branches with the configured weights.
// A POI present in both branches scores w_web*web + w_vec*vec; one-sided POIs
// keep their side's weighted score. Deduplication is by poi_id first, then by
// URL for candidates that were never validated.
func (s *ServiceImpl) mergeResults(web, vector []types.PoiCandidate) []types.PoiCandidate {
	type slot struct {
		candidate types.PoiCandidate
		score     float64
		order     int
	}

	combined := make(map[string]*slot, len(web)+len(vector))
	add := func(cand types.PoiCandidate, weight float64, order int) {
		k := mergeKey(cand)
		if existing, ok := combined[k]; ok {
			existing.score += weight * cand.Relevance
			return
		}
		combined[k] = &slot{candidate: cand, score: weight * cand.Relevance, order: order}
	}
	for i, cand := range web {
		add(cand, s.cfg.WebWeight, i)
	}
	for i, cand := range vector {
		add(cand, s.cfg.EmbeddingWeight, len(web)+i)
	}

	slots := make([]*slot, 0, len(combined))
	for _, sl := range combined {
		slots = append(slots, sl)
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].score != slots[j].score {
			return slots[i].score > slots[j].score
		}
		return slots[i].order < slots[j].order
	})

	limit := s.cfg.FinalPoiCount
	merged := make([]types.PoiCandidate, 0, limit)
	for _, sl := range slots {
		if len(merged) == limit {
			break
		}
		cand := sl.candidate
		cand.Relevance = clamp01(sl.score)
		merged = append(merged, cand)
	}
	return merged
}

func mergeKey(cand types.PoiCandidate) string {
	if cand.PoiID != "" {
		return "id:" + cand.PoiID
	}
	if cand.SourceURL != "" {
		return "url:" + cand.SourceURL
	}
	return "title:" + cand.Title
}
