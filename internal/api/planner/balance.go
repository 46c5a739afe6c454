package planner

import "fmt"

// runBalance checks per-day POI counts: no day over the hard cap, and no
// starved day while another is over the comfortable optimum. Returns movement
// feedback or "" when the distribution is fine.
func (s *ServiceImpl) runBalance(st *State) string {
	var lightest, heaviest int = -1, -1
	for i, day := range st.Itineraries {
		count := len(day.Pois)
		if count > s.cfg.MaxPoiCount {
			return fmt.Sprintf("Day %s has %d stops, keep it at %d or fewer.",
				day.Date, count, s.cfg.MaxPoiCount)
		}
		if lightest == -1 || count < len(st.Itineraries[lightest].Pois) {
			lightest = i
		}
		if heaviest == -1 || count > len(st.Itineraries[heaviest].Pois) {
			heaviest = i
		}
	}
	if lightest == -1 || heaviest == -1 || lightest == heaviest {
		return ""
	}

	light, heavy := st.Itineraries[lightest], st.Itineraries[heaviest]
	if len(light.Pois) < s.cfg.MinPoiCountPerDay && len(heavy.Pois) > s.cfg.OptimalPoiCount {
		return fmt.Sprintf("Day %s has only %d stops while day %s has %d. Move a stop from %s to %s.",
			light.Date, len(light.Pois), heavy.Date, len(heavy.Pois), heavy.Date, light.Date)
	}
	return ""
}
