package places

import (
	"fmt"
	"sort"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

type hoursPayload struct {
	Periods []hoursPeriod `json:"periods"`
}

type hoursPeriod struct {
	Open  hourPoint `json:"open"`
	Close hourPoint `json:"close"`
}

// hourPoint.Day uses the Places convention: 0=Sunday .. 6=Saturday.
type hourPoint struct {
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// parseOpeningHours converts Places periods into the ISO week. Days without a
// period are marked closed, so the result always carries 7 entries, Monday
// first.
func parseOpeningHours(payload hoursPayload) types.OpeningHours {
	if len(payload.Periods) == 0 {
		return nil
	}

	slotsByDay := make(map[int][]types.TimeSlot, 7)
	for _, period := range payload.Periods {
		day := isoDay(period.Open.Day)
		slotsByDay[day] = append(slotsByDay[day], types.TimeSlot{
			Open:  fmt.Sprintf("%02d:%02d", period.Open.Hour, period.Open.Minute),
			Close: fmt.Sprintf("%02d:%02d", period.Close.Hour, period.Close.Minute),
		})
	}

	week := make(types.OpeningHours, 0, 7)
	for day := 1; day <= 7; day++ {
		slots := slotsByDay[day]
		sort.Slice(slots, func(i, j int) bool { return slots[i].Open < slots[j].Open })
		week = append(week, types.DayHours{
			Day:      day,
			IsClosed: len(slots) == 0,
			Slots:    slots,
		})
	}
	return week
}

// isoDay maps Places day numbering (0=Sunday) to ISO-8601 (Monday=1).
func isoDay(googleDay int) int {
	if googleDay == 0 {
		return 7
	}
	return googleDay
}
