package types

// TravelMode is the transport mode of a transfer between two POIs.
type TravelMode string

const (
	ModeDriving   TravelMode = "driving"
	ModeWalking   TravelMode = "walking"
	ModeTransit   TravelMode = "transit"
	ModeBicycling TravelMode = "bicycling"
)

// Transfer is a directed travel leg between two consecutive POIs.
type Transfer struct {
	FromPoiID       string     `json:"from_poi_id"`
	ToPoiID         string     `json:"to_poi_id"`
	Mode            TravelMode `json:"mode"`
	DurationMinutes int        `json:"duration_minutes"`
	DistanceKm      float64    `json:"distance_km"`
}

// ScheduledPoi is one planner-assigned slot inside a day: which POI, when it
// starts and how long the visit runs.
type ScheduledPoi struct {
	PoiID           string `json:"poi_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// DayItinerary is one day of the final plan. Transfers align with consecutive
// POI pairs in order, so len(Transfers) == len(Pois)-1 whenever legs have been
// computed.
type DayItinerary struct {
	Date                 string         `json:"date"`
	Pois                 []PoiRecord    `json:"pois"`
	Schedule             []ScheduledPoi `json:"schedule,omitempty"`
	Transfers            []Transfer     `json:"transfers"`
	TotalDurationMinutes int            `json:"total_duration_minutes"`
}
