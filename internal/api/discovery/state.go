package discovery

import "github.com/FACorreiaa/go-travel-planner/internal/types"

// State is the per-request discovery record. Every field except PoiDataMap is
// written by exactly one node; PoiDataMap is the fan-out join point and is
// only ever combined through MergePoiDataMap.
type State struct {
	Persona     string
	Destination string

	Keywords []string

	WebResults     []types.PoiCandidate
	VectorResults  []types.PoiCandidate
	RerankedWeb    []types.PoiCandidate
	RerankedVector []types.PoiCandidate
	Merged         []types.PoiCandidate

	PoiDataMap   map[string]types.PoiRecord
	FinalPoiData []types.PoiRecord
}

// branchResult is what each parallel branch hands to the join.
type branchResult struct {
	candidates []types.PoiCandidate
	poiData    map[string]types.PoiRecord
}

// MergePoiDataMap is the poi_data_map reducer: map union with incoming
// winning on key collision. Colliding keys describe the same POI, so the
// tie-break keeps the reducer commutative in effect.
func MergePoiDataMap(existing, incoming map[string]types.PoiRecord) map[string]types.PoiRecord {
	merged := make(map[string]types.PoiRecord, len(existing)+len(incoming))
	for id, rec := range existing {
		merged[id] = rec
	}
	for id, rec := range incoming {
		merged[id] = rec
	}
	return merged
}
