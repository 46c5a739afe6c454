package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

const dateLayout = "2006-01-02"

// runValidate checks daily duration, estimated budget and date range. It
// returns a feedback string naming the offending day, or "" when the plan
// passes.
func (s *ServiceImpl) runValidate(st *State) string {
	var problems []string

	for _, day := range st.Itineraries {
		if day.TotalDurationMinutes > s.cfg.MaxDailyMinutes {
			problems = append(problems, fmt.Sprintf(
				"Day %s runs %d minutes, over the %d minute limit. Move or drop a stop.",
				day.Date, day.TotalDurationMinutes, s.cfg.MaxDailyMinutes))
		}
		if !s.dateInRange(day.Date, st.StartDate, st.EndDate) {
			problems = append(problems, fmt.Sprintf(
				"Day %s is outside the trip dates %s to %s.", day.Date, st.StartDate, st.EndDate))
		}
	}

	if st.Budget > 0 {
		if cost := s.estimatedCost(st.Itineraries); cost > st.Budget {
			problems = append(problems, fmt.Sprintf(
				"Estimated cost %.0f exceeds the budget %.0f. Swap expensive stops for cheaper ones.",
				cost, st.Budget))
		}
	}

	return strings.Join(problems, "\n")
}

func (s *ServiceImpl) dateInRange(date, start, end string) bool {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return true
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return true
	}
	return !d.Before(from) && !d.After(to)
}

func (s *ServiceImpl) estimatedCost(itineraries []types.DayItinerary) float64 {
	var cost float64
	for _, day := range itineraries {
		for _, poi := range day.Pois {
			cost += s.categoryCost(poi.Category)
		}
	}
	return cost
}

func (s *ServiceImpl) categoryCost(category types.Category) float64 {
	if cost, ok := s.cfg.CategoryCost[string(category)]; ok {
		return cost
	}
	return s.cfg.DefaultCost
}

// penalty scores an attempt for best-so-far tracking: minute overage per day,
// budget overage in cost units, and per-day POI count overage. Zero means the
// plan passes every check the penalty covers.
func (s *ServiceImpl) penalty(st *State) float64 {
	var p float64
	for _, day := range st.Itineraries {
		if over := day.TotalDurationMinutes - s.cfg.MaxDailyMinutes; over > 0 {
			p += float64(over)
		}
		if over := len(day.Pois) - s.cfg.MaxPoiCount; over > 0 {
			p += float64(over)
		}
	}
	if st.Budget > 0 {
		if over := s.estimatedCost(st.Itineraries) - st.Budget; over > 0 {
			unit := s.cfg.DefaultCost
			if unit <= 0 {
				unit = 1
			}
			p += over / unit
		}
	}
	return p
}

// updateBest keeps the lowest-penalty attempt for the exhaustion fallback.
func (s *ServiceImpl) updateBest(st *State) {
	p := s.penalty(st)
	if st.BestItineraries != nil && p >= st.BestPenalty {
		return
	}
	st.BestPenalty = p
	st.BestItineraries = make([]types.DayItinerary, len(st.Itineraries))
	copy(st.BestItineraries, st.Itineraries)
}
