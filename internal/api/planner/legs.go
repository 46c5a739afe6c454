package planner

import (
	"context"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

const defaultVisitMinutes = 60

// runLegs fills each day's transfers and recomputes the day total as travel
// plus the per-category visit estimate.
func (s *ServiceImpl) runLegs(ctx context.Context, st *State) {
	for i := range st.Itineraries {
		day := &st.Itineraries[i]
		day.Transfers = s.directions.CalcSequence(ctx, day.Pois, types.ModeDriving)

		total := 0
		for _, transfer := range day.Transfers {
			total += transfer.DurationMinutes
		}
		for _, poi := range day.Pois {
			total += s.visitMinutes(poi.Category)
		}
		day.TotalDurationMinutes = total
	}
	st.IsPoiChanged = false
}

func (s *ServiceImpl) visitMinutes(category types.Category) int {
	if minutes, ok := s.cfg.VisitMinutes[string(category)]; ok {
		return minutes
	}
	if minutes, ok := s.cfg.VisitMinutes[string(types.CategoryOther)]; ok {
		return minutes
	}
	return defaultVisitMinutes
}
