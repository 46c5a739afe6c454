package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

func day(date string, pois ...types.PoiRecord) types.DayItinerary {
	return types.DayItinerary{Date: date, Pois: pois}
}

func dayWithLegs(date string, total int, pois ...types.PoiRecord) types.DayItinerary {
	d := day(date, pois...)
	d.TotalDurationMinutes = total
	for i := 0; i < len(pois)-1; i++ {
		d.Transfers = append(d.Transfers, types.Transfer{
			FromPoiID: pois[i].PoiID, ToPoiID: pois[i+1].PoiID, Mode: types.ModeDriving,
		})
	}
	return d
}

func TestPoiSetHash_StableUnderReordering(t *testing.T) {
	a := []types.DayItinerary{
		day("2026-09-12", restaurant("x", "X"), restaurant("y", "Y")),
		day("2026-09-13", restaurant("z", "Z")),
	}
	b := []types.DayItinerary{
		day("2026-09-12", restaurant("z", "Z"), restaurant("x", "X")),
		day("2026-09-13", restaurant("y", "Y")),
	}
	assert.Equal(t, poiSetHash(a), poiSetHash(b))
	assert.NotEqual(t, poiSetHash(a), poiSetHash(a[:1]))
}

func TestNextTasks_RuleTable(t *testing.T) {
	empty := &State{}
	assert.Equal(t, []taskName{taskPlan}, nextTasks(empty))

	planned := &State{Itineraries: []types.DayItinerary{day("2026-09-12", restaurant("a", "A"), restaurant("b", "B"))}}
	assert.Equal(t, []taskName{taskLegs, taskValidate, taskBalance}, nextTasks(planned),
		"no transfers yet")

	evaluated := &State{Itineraries: []types.DayItinerary{
		dayWithLegs("2026-09-12", 300, restaurant("a", "A"), restaurant("b", "B")),
	}}
	assert.Nil(t, nextTasks(evaluated), "converged")

	evaluated.IsPoiChanged = true
	assert.Equal(t, []taskName{taskLegs, taskValidate, taskBalance}, nextTasks(evaluated))
	evaluated.IsPoiChanged = false

	evaluated.ValidationFeedback = "day over limit"
	assert.Equal(t, []taskName{taskPlan}, nextTasks(evaluated))
	evaluated.ValidationFeedback = ""

	evaluated.ScheduleFeedback = "move a stop"
	assert.Equal(t, []taskName{taskPlan}, nextTasks(evaluated))
}

func TestRunValidate(t *testing.T) {
	s := testService(nil, nil, testConfig())

	t.Run("passes a clean plan", func(t *testing.T) {
		st := newState(Request{StartDate: "2026-09-12", EndDate: "2026-09-13"})
		st.Itineraries = []types.DayItinerary{
			dayWithLegs("2026-09-12", 300, restaurant("a", "A"), restaurant("b", "B")),
		}
		assert.Empty(t, s.runValidate(st))
	})

	t.Run("names the over-long day", func(t *testing.T) {
		st := newState(Request{StartDate: "2026-09-12", EndDate: "2026-09-13"})
		st.Itineraries = []types.DayItinerary{
			dayWithLegs("2026-09-12", 300, restaurant("a", "A")),
			dayWithLegs("2026-09-13", 800, restaurant("b", "B")),
		}
		feedback := s.runValidate(st)
		assert.Contains(t, feedback, "2026-09-13")
		assert.NotContains(t, feedback, "Day 2026-09-12")
	})

	t.Run("flags dates outside the trip", func(t *testing.T) {
		st := newState(Request{StartDate: "2026-09-12", EndDate: "2026-09-13"})
		st.Itineraries = []types.DayItinerary{dayWithLegs("2026-09-20", 100, restaurant("a", "A"))}
		assert.Contains(t, s.runValidate(st), "outside the trip dates")
	})

	t.Run("flags a blown budget", func(t *testing.T) {
		st := newState(Request{StartDate: "2026-09-12", EndDate: "2026-09-12", Budget: 150})
		// Two restaurants at 100 each.
		st.Itineraries = []types.DayItinerary{
			dayWithLegs("2026-09-12", 100, restaurant("a", "A"), restaurant("b", "B")),
		}
		assert.Contains(t, s.runValidate(st), "budget")
	})

	t.Run("zero budget disables the check", func(t *testing.T) {
		st := newState(Request{StartDate: "2026-09-12", EndDate: "2026-09-12"})
		st.Itineraries = []types.DayItinerary{
			dayWithLegs("2026-09-12", 100, restaurant("a", "A"), restaurant("b", "B")),
		}
		assert.Empty(t, s.runValidate(st))
	})
}

func TestRunBalance(t *testing.T) {
	s := testService(nil, nil, testConfig())

	t.Run("over the hard cap", func(t *testing.T) {
		pois := []types.PoiRecord{
			restaurant("a", "A"), restaurant("b", "B"), restaurant("c", "C"),
			restaurant("d", "D"), restaurant("e", "E"), restaurant("f", "F"), restaurant("g", "G"),
		}
		st := &State{Itineraries: []types.DayItinerary{day("2026-09-12", pois...)}}
		assert.Contains(t, s.runBalance(st), "7 stops")
	})

	t.Run("starved day next to a packed one", func(t *testing.T) {
		st := &State{Itineraries: []types.DayItinerary{
			day("2026-09-12", restaurant("a", "A")),
			day("2026-09-13", restaurant("b", "B"), restaurant("c", "C"), restaurant("d", "D"),
				restaurant("e", "E"), restaurant("f", "F")),
		}}
		feedback := s.runBalance(st)
		assert.Contains(t, feedback, "2026-09-12")
		assert.Contains(t, feedback, "2026-09-13")
	})

	t.Run("balanced plan passes", func(t *testing.T) {
		st := &State{Itineraries: []types.DayItinerary{
			day("2026-09-12", restaurant("a", "A"), restaurant("b", "B")),
			day("2026-09-13", restaurant("c", "C"), restaurant("d", "D"), restaurant("e", "E")),
		}}
		assert.Empty(t, s.runBalance(st))
	})
}

func TestPenalty_OrdersAttempts(t *testing.T) {
	s := testService(nil, nil, testConfig())

	worse := newState(Request{Budget: 0})
	worse.Itineraries = []types.DayItinerary{dayWithLegs("2026-09-12", 970, restaurant("a", "A"))}

	better := newState(Request{Budget: 0})
	better.Itineraries = []types.DayItinerary{dayWithLegs("2026-09-12", 860, restaurant("a", "A"))}

	clean := newState(Request{Budget: 0})
	clean.Itineraries = []types.DayItinerary{dayWithLegs("2026-09-12", 300, restaurant("a", "A"))}

	assert.Greater(t, s.penalty(worse), s.penalty(better))
	assert.Greater(t, s.penalty(better), s.penalty(clean))
	assert.Zero(t, s.penalty(clean))
}

func TestUpdateBest_KeepsStrictlyLowerPenalty(t *testing.T) {
	s := testService(nil, nil, testConfig())

	st := newState(Request{})
	st.Itineraries = []types.DayItinerary{dayWithLegs("2026-09-12", 970, restaurant("a", "A"))}
	s.updateBest(st)
	firstPenalty := st.BestPenalty

	st.Itineraries = []types.DayItinerary{dayWithLegs("2026-09-12", 860, restaurant("b", "B"))}
	s.updateBest(st)
	assert.Less(t, st.BestPenalty, firstPenalty)
	assert.Equal(t, "b", st.BestItineraries[0].Pois[0].PoiID)

	// An equal or worse attempt never displaces the best.
	st.Itineraries = []types.DayItinerary{dayWithLegs("2026-09-12", 970, restaurant("c", "C"))}
	s.updateBest(st)
	assert.Equal(t, "b", st.BestItineraries[0].Pois[0].PoiID)
}
