package types

import "time"

// PoiSource identifies which pipeline branch produced a candidate.
type PoiSource string

const (
	SourceWeb      PoiSource = "web"
	SourceVector   PoiSource = "vector"
	SourceFeedback PoiSource = "feedback"
)

// Category is the closed set of POI categories used across the pipelines.
type Category string

const (
	CategoryRestaurant    Category = "restaurant"
	CategoryCafe          Category = "cafe"
	CategoryAttraction    Category = "attraction"
	CategoryAccommodation Category = "accommodation"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// PoiCandidate is an unvalidated hit from web search or the vector index.
// PoiID is empty until the candidate has been validated against the places API
// (vector hits carry it from the stored record).
type PoiCandidate struct {
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	SourceURL string    `json:"source_url,omitempty"`
	Source    PoiSource `json:"source"`
	Relevance float64   `json:"relevance"`
	PoiID     string    `json:"poi_id,omitempty"`
}

// TimeSlot is a half-open [Open, Close) interval within a day, "15:04" format.
type TimeSlot struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// DayHours holds one day's opening slots. Day is ISO-8601, Monday=1..Sunday=7.
type DayHours struct {
	Day      int        `json:"day"`
	IsClosed bool       `json:"is_closed"`
	Slots    []TimeSlot `json:"slots,omitempty"`
}

// OpeningHours is the full week, ordered Monday through Sunday, always 7 entries.
type OpeningHours []DayHours

// PoiRecord is the authoritative, validated POI. PoiID is stable: it is derived
// from the canonical source URL alone, so re-validating the same URL yields the
// same id.
type PoiRecord struct {
	PoiID         string       `json:"poi_id"`
	Name          string       `json:"name"`
	Category      Category     `json:"category"`
	Description   string       `json:"description"`
	Address       string       `json:"address,omitempty"`
	City          string       `json:"city,omitempty"`
	Latitude      float64      `json:"latitude,omitempty"`
	Longitude     float64      `json:"longitude,omitempty"`
	GooglePlaceID string       `json:"google_place_id,omitempty"`
	Rating        float64      `json:"rating,omitempty"`
	RatingCount   int          `json:"rating_count,omitempty"`
	PriceLevel    string       `json:"price_level,omitempty"`
	OpeningHours  OpeningHours `json:"opening_hours,omitempty"`
	RawText       string       `json:"raw_text"`
	Types         []string     `json:"types,omitempty"`
	Source        PoiSource    `json:"source"`
	CreatedAt     time.Time    `json:"created_at"`
}

// PoiSummary is the LLM-produced per-POI digest handed to the places validator
// and the planner prompt builder. It never crosses the external boundary.
type PoiSummary struct {
	PoiID      string   `json:"poi_id,omitempty"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights,omitempty"`
}
