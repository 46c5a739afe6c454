package places

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/semaphore"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

const (
	batchConcurrency = 5
	searchRadiusKm   = 50.0

	fieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.types,places.primaryType,places.googleMapsUri,places.rating," +
		"places.userRatingCount,places.priceLevel,places.priceRange,places.websiteUri," +
		"places.nationalPhoneNumber,places.regularOpeningHours"
)

var _ Validator = (*GoogleValidator)(nil)

// Validator confirms candidate POIs against the places API and enriches them
// into authoritative records.
type Validator interface {
	Map(ctx context.Context, summary types.PoiSummary, city, sourceURL string, raiseOnFailure bool) (*types.PoiRecord, error)
	MapBatch(ctx context.Context, summaries []types.PoiSummary, city string) ([]types.PoiRecord, error)
}

// GoogleValidator talks to the Places text-search endpoint. City centers are
// resolved once and cached so every POI lookup can carry a location rectangle.
type GoogleValidator struct {
	logger    *slog.Logger
	baseURL   string
	apiKey    string
	http      *http.Client
	cityCache *cache.Cache
}

func NewGoogleValidator(cfg config.GoogleMapsConfig, logger *slog.Logger) *GoogleValidator {
	return &GoogleValidator{
		logger:    logger,
		baseURL:   cfg.PlacesBaseURL,
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: 30 * time.Second},
		cityCache: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

// PoiID derives the stable 32-hex id from the canonical source URL. The same
// URL always maps to the same id.
func PoiID(sourceURL string) string {
	sum := md5.Sum([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// SynthesizeSourceURL builds a deterministic URL for POIs discovered without
// one, so PoiID stays a pure function of name and city.
func SynthesizeSourceURL(name, city string) string {
	return "poi://" + slugify(name) + "/" + slugify(city)
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		default:
			// Non-latin scripts pass through so ids stay distinct.
			if r > 127 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func (v *GoogleValidator) Map(ctx context.Context, summary types.PoiSummary, city, sourceURL string, raiseOnFailure bool) (*types.PoiRecord, error) {
	l := v.logger.With(slog.String("method", "Map"), slog.String("poi", summary.Name))

	found, err := v.searchText(ctx, summary.Name+" "+city, city, "")
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		l.DebugContext(ctx, "No result for name+city query, retrying with name only")
		found, err = v.searchText(ctx, summary.Name, city, "")
		if err != nil {
			return nil, err
		}
	}
	if len(found) == 0 {
		if raiseOnFailure {
			return nil, &types.PoiValidationError{Name: summary.Name, City: city}
		}
		l.DebugContext(ctx, "POI could not be validated, dropping")
		return nil, nil
	}

	if sourceURL == "" {
		sourceURL = SynthesizeSourceURL(summary.Name, city)
	}
	rec := recordFromPlace(found[0], summary, city, sourceURL)
	return &rec, nil
}

// MapBatch validates summaries in parallel under a fixed semaphore. Validation
// failures are logged and skipped; input order is preserved for the survivors.
func (v *GoogleValidator) MapBatch(ctx context.Context, summaries []types.PoiSummary, city string) ([]types.PoiRecord, error) {
	l := v.logger.With(slog.String("method", "MapBatch"))

	sem := semaphore.NewWeighted(batchConcurrency)
	results := make([]*types.PoiRecord, len(summaries))

	done := make(chan struct{})
	for i, summary := range summaries {
		go func() {
			defer func() { done <- struct{}{} }()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			rec, err := v.Map(ctx, summary, city, "", false)
			if err != nil {
				l.WarnContext(ctx, "Skipping POI that failed validation",
					slog.String("poi", summary.Name), slog.String("error", err.Error()))
				return
			}
			results[i] = rec
		}()
	}
	for range summaries {
		<-done
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	records := make([]types.PoiRecord, 0, len(summaries))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

type searchTextRequest struct {
	TextQuery           string               `json:"textQuery"`
	PageSize            int                  `json:"pageSize,omitempty"`
	IncludedType        string               `json:"includedType,omitempty"`
	LocationRestriction *locationRestriction `json:"locationRestriction,omitempty"`
}

type locationRestriction struct {
	Rectangle rectangle `json:"rectangle"`
}

type rectangle struct {
	Low  latLng `json:"low"`
	High latLng `json:"high"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string   `json:"formattedAddress"`
	Location         latLng   `json:"location"`
	Types            []string `json:"types"`
	PrimaryType      string   `json:"primaryType"`
	GoogleMapsURI    string   `json:"googleMapsUri"`
	Rating           float64  `json:"rating"`
	UserRatingCount  int      `json:"userRatingCount"`
	PriceLevel       string   `json:"priceLevel"`
	PriceRange       struct {
		StartPrice priceAmount `json:"startPrice"`
		EndPrice   priceAmount `json:"endPrice"`
	} `json:"priceRange"`
	RegularOpeningHours hoursPayload `json:"regularOpeningHours"`
}

type priceAmount struct {
	CurrencyCode string `json:"currencyCode"`
	Units        string `json:"units"`
}

type searchTextResponse struct {
	Places []place `json:"places"`
}

// searchText issues one text-search call, restricted to a rectangle around the
// city center when the center can be resolved.
func (v *GoogleValidator) searchText(ctx context.Context, query, city, includedType string) ([]place, error) {
	reqBody := searchTextRequest{TextQuery: query, PageSize: 5, IncludedType: includedType}
	if includedType != "locality" {
		if center, ok := v.resolveCityLocation(ctx, city); ok {
			reqBody.LocationRestriction = &locationRestriction{Rectangle: rectAround(center, searchRadiusKm)}
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling places request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/places:searchText", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building places request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", v.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling places API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API status %d", resp.StatusCode)
	}

	var parsed searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding places response: %w", err)
	}
	return parsed.Places, nil
}

// resolveCityLocation finds and caches the city center.
func (v *GoogleValidator) resolveCityLocation(ctx context.Context, city string) (latLng, bool) {
	if city == "" {
		return latLng{}, false
	}
	if cached, ok := v.cityCache.Get(city); ok {
		center, ok := cached.(latLng)
		return center, ok
	}
	found, err := v.searchText(ctx, city, "", "locality")
	if err != nil || len(found) == 0 {
		v.logger.DebugContext(ctx, "Could not resolve city center", slog.String("city", city))
		return latLng{}, false
	}
	center := found[0].Location
	v.cityCache.Set(city, center, cache.NoExpiration)
	return center, true
}

func rectAround(center latLng, radiusKm float64) rectangle {
	dLat := radiusKm / 111.0
	dLng := radiusKm / (111.0 * math.Cos(center.Latitude*math.Pi/180))
	return rectangle{
		Low:  latLng{Latitude: center.Latitude - dLat, Longitude: center.Longitude - dLng},
		High: latLng{Latitude: center.Latitude + dLat, Longitude: center.Longitude + dLng},
	}
}

func recordFromPlace(p place, summary types.PoiSummary, city, sourceURL string) types.PoiRecord {
	name := p.DisplayName.Text
	if name == "" {
		name = summary.Name
	}
	rawText := strings.TrimSpace(name + " " + summary.Summary + " " + strings.Join(summary.Highlights, " "))
	return types.PoiRecord{
		PoiID:         PoiID(sourceURL),
		Name:          name,
		Category:      mapCategory(p.PrimaryType, p.Types),
		Description:   summary.Summary,
		Address:       p.FormattedAddress,
		City:          city,
		Latitude:      p.Location.Latitude,
		Longitude:     p.Location.Longitude,
		GooglePlaceID: p.ID,
		Rating:        p.Rating,
		RatingCount:   p.UserRatingCount,
		PriceLevel:    formatPriceRange(p),
		OpeningHours:  parseOpeningHours(p.RegularOpeningHours),
		RawText:       rawText,
		Types:         p.Types,
		Source:        types.SourceWeb,
		CreatedAt:     time.Now().UTC(),
	}
}

// formatPriceRange prefers the explicit range, falling back to the level enum.
func formatPriceRange(p place) string {
	start, end := p.PriceRange.StartPrice, p.PriceRange.EndPrice
	if start.Units != "" || end.Units != "" {
		return fmt.Sprintf("%s %s ~ %s %s", start.CurrencyCode, start.Units, end.CurrencyCode, end.Units)
	}
	return p.PriceLevel
}
