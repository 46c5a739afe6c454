package planner

import (
	"sort"
	"strings"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

// Request is the caller's input to the itinerary pipeline. Dates are
// YYYY-MM-DD; Budget is in the destination currency, 0 disables the check.
type Request struct {
	Persona     string
	Destination string
	StartDate   string
	EndDate     string
	Budget      float64
	Pois        []types.PoiRecord
}

// Result carries the final itineraries. Fallback marks a best-effort plan
// returned after the refinement budget ran out.
type Result struct {
	Itineraries []types.DayItinerary
	Reasoning   string
	Fallback    bool
}

type taskName string

const (
	taskPlan     taskName = "plan"
	taskLegs     taskName = "legs"
	taskValidate taskName = "validate"
	taskBalance  taskName = "balance"
)

// State is the per-request planning record. The task queue is strictly FIFO
// and tasks never run in parallel, so no field needs a reducer here.
type State struct {
	Pois        []types.PoiRecord
	Destination string
	StartDate   string
	EndDate     string
	Budget      float64
	Persona     string

	Itineraries        []types.DayItinerary
	Reasoning          string
	ValidationFeedback string
	ScheduleFeedback   string
	IterationCount     int
	PreviousPoiIDs     string
	PoiEnrichAttempts  int
	IsPoiSufficient    bool
	IsPoiChanged       bool

	TaskQueue   []taskName
	CurrentTask taskName

	BestItineraries []types.DayItinerary
	BestPenalty     float64
}

func newState(req Request) *State {
	return &State{
		Pois:        req.Pois,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		Persona:     req.Persona,
	}
}

// poiSetHash is the change-detection key: the sorted poi ids joined. Stable
// across reordering so a pure reshuffle of days does not count as a change.
func poiSetHash(itineraries []types.DayItinerary) string {
	var ids []string
	for _, day := range itineraries {
		for _, poi := range day.Pois {
			ids = append(ids, poi.PoiID)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// legsComputed reports whether every day has been through the legs task. A
// nil slice means legs never ran for that day; a single-stop day legitimately
// carries an empty, non-nil slice.
func legsComputed(itineraries []types.DayItinerary) bool {
	for _, day := range itineraries {
		if day.Transfers == nil {
			return false
		}
	}
	return true
}

// pendingFeedback combines whatever the last validate/balance pass left for
// the next refine call.
func (st *State) pendingFeedback() string {
	var parts []string
	if st.ValidationFeedback != "" {
		parts = append(parts, st.ValidationFeedback)
	}
	if st.ScheduleFeedback != "" {
		parts = append(parts, st.ScheduleFeedback)
	}
	return strings.Join(parts, "\n")
}

func (st *State) clearFeedback() {
	st.ValidationFeedback = ""
	st.ScheduleFeedback = ""
}
