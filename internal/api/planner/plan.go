package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

var dayPlanSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"day_plans": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{"type": "string"},
					"scheduled_pois": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"poi_id":           map[string]any{"type": "string"},
								"start_time":       map[string]any{"type": "string"},
								"duration_minutes": map[string]any{"type": "integer"},
							},
							"required": []any{"poi_id", "start_time", "duration_minutes"},
						},
					},
				},
				"required": []any{"date", "scheduled_pois"},
			},
		},
		"reasoning": map[string]any{"type": "string"},
	},
	"required": []any{"day_plans", "reasoning"},
}

func planPrompt(st *State, feedback string) string {
	var b strings.Builder
	for _, poi := range st.Pois {
		fmt.Fprintf(&b, "- %s | %s | %s", poi.PoiID, poi.Name, poi.Category)
		if poi.Description != "" {
			fmt.Fprintf(&b, " | %s", poi.Description)
		}
		b.WriteString("\n")
	}

	prompt := fmt.Sprintf(`Assign the places below to daily itineraries.

<traveler>
%s
</traveler>

<trip>
destination: %s
dates: %s to %s, inclusive
budget: %.0f (0 means unconstrained)
</trip>

<places>
%s</places>

Rules:
- Use only the poi_id values listed above.
- Every date must fall within the trip dates.
- start_time is HH:MM local time; visits must not overlap within a day.
- Group nearby places on the same day and order them to minimize travel.
- A place appears at most once across the whole trip.`,
		st.Persona, st.Destination, st.StartDate, st.EndDate, st.Budget, b.String())

	if feedback != "" {
		prompt += fmt.Sprintf(`

<feedback>
%s
</feedback>

Revise the previous plan to resolve the feedback. Keep everything else stable.`, feedback)
	}
	return prompt
}

// runPlan asks the LLM for day assignments, resolves poi_ids back to records
// and refreshes the change-detection hash. Transfers are dropped here; the
// legs task recomputes them for the new assignment.
func (s *ServiceImpl) runPlan(ctx context.Context, st *State) error {
	l := s.logger.With(slog.String("method", "runPlan"), slog.Int("iteration", st.IterationCount))

	feedback := st.pendingFeedback()
	st.clearFeedback()

	var out struct {
		DayPlans []struct {
			Date          string `json:"date"`
			ScheduledPois []struct {
				PoiID           string `json:"poi_id"`
				StartTime       string `json:"start_time"`
				DurationMinutes int    `json:"duration_minutes"`
			} `json:"scheduled_pois"`
		} `json:"day_plans"`
		Reasoning string `json:"reasoning"`
	}
	if err := s.llm.CompleteStructured(ctx, planPrompt(st, feedback), dayPlanSchema, &out); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCoreUnavailable, err)
	}

	byID := make(map[string]types.PoiRecord, len(st.Pois))
	for _, poi := range st.Pois {
		byID[poi.PoiID] = poi
	}

	itineraries := make([]types.DayItinerary, 0, len(out.DayPlans))
	for _, plan := range out.DayPlans {
		day := types.DayItinerary{Date: plan.Date}
		for _, slot := range plan.ScheduledPois {
			poi, ok := byID[slot.PoiID]
			if !ok {
				l.WarnContext(ctx, "Planner referenced unknown poi_id, skipping",
					slog.String("poi_id", slot.PoiID), slog.String("date", plan.Date))
				continue
			}
			day.Pois = append(day.Pois, poi)
			day.Schedule = append(day.Schedule, types.ScheduledPoi{
				PoiID:           slot.PoiID,
				StartTime:       slot.StartTime,
				DurationMinutes: slot.DurationMinutes,
			})
		}
		if len(day.Pois) > 0 {
			itineraries = append(itineraries, day)
		}
	}

	st.Itineraries = itineraries
	st.Reasoning = out.Reasoning
	hash := poiSetHash(itineraries)
	st.IsPoiChanged = hash != st.PreviousPoiIDs
	st.PreviousPoiIDs = hash
	st.IterationCount++
	return nil
}
