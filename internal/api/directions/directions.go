package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

var _ Calculator = (*GoogleCalculator)(nil)

// Calculator computes travel legs between POIs. It never fails the caller: a
// missing key or upstream error produces a sentinel zero transfer.
type Calculator interface {
	Calc(ctx context.Context, from, to types.PoiRecord, mode types.TravelMode) types.Transfer
	CalcSequence(ctx context.Context, pois []types.PoiRecord, mode types.TravelMode) []types.Transfer
}

// GoogleCalculator queries the Directions API and memoizes each
// (from, to, mode) pair for the process lifetime.
type GoogleCalculator struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	http    *http.Client
	memo    *cache.Cache
}

func NewGoogleCalculator(cfg config.GoogleMapsConfig, logger *slog.Logger) *GoogleCalculator {
	return &GoogleCalculator{
		logger:  logger,
		baseURL: cfg.DirectionsBaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		memo:    cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func pairKey(fromID, toID string, mode types.TravelMode) string {
	return fromID + "|" + toID + "|" + string(mode)
}

func sentinel(from, to types.PoiRecord, mode types.TravelMode) types.Transfer {
	return types.Transfer{FromPoiID: from.PoiID, ToPoiID: to.PoiID, Mode: mode}
}

func (c *GoogleCalculator) Calc(ctx context.Context, from, to types.PoiRecord, mode types.TravelMode) types.Transfer {
	l := c.logger.With(slog.String("method", "Calc"))

	key := pairKey(from.PoiID, to.PoiID, mode)
	if cached, ok := c.memo.Get(key); ok {
		if transfer, ok := cached.(types.Transfer); ok {
			return transfer
		}
	}

	if c.apiKey == "" {
		l.DebugContext(ctx, "Directions API key not configured, using zero transfer")
		return sentinel(from, to, mode)
	}

	transfer, err := c.fetch(ctx, from, to, mode)
	if err != nil {
		l.WarnContext(ctx, "Directions lookup failed, using zero transfer",
			slog.String("from", from.PoiID), slog.String("to", to.PoiID), slog.String("error", err.Error()))
		return sentinel(from, to, mode)
	}

	c.memo.Set(key, transfer, cache.NoExpiration)
	return transfer
}

type directionsResponse struct {
	Routes []struct {
		Legs []struct {
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
	Status string `json:"status"`
}

func (c *GoogleCalculator) fetch(ctx context.Context, from, to types.PoiRecord, mode types.TravelMode) (types.Transfer, error) {
	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%f,%f", from.Latitude, from.Longitude))
	params.Set("destination", fmt.Sprintf("%f,%f", to.Latitude, to.Longitude))
	params.Set("mode", string(mode))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/directions/json?"+params.Encode(), nil)
	if err != nil {
		return types.Transfer{}, fmt.Errorf("building directions request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Transfer{}, fmt.Errorf("calling directions API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.Transfer{}, fmt.Errorf("directions API status %d", resp.StatusCode)
	}

	var parsed directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.Transfer{}, fmt.Errorf("decoding directions response: %w", err)
	}
	if parsed.Status != "OK" || len(parsed.Routes) == 0 || len(parsed.Routes[0].Legs) == 0 {
		return types.Transfer{}, fmt.Errorf("directions API returned status %q with no route", parsed.Status)
	}

	leg := parsed.Routes[0].Legs[0]
	return types.Transfer{
		FromPoiID:       from.PoiID,
		ToPoiID:         to.PoiID,
		Mode:            mode,
		DurationMinutes: leg.Duration.Value / 60,
		DistanceKm:      float64(leg.Distance.Value) / 1000,
	}, nil
}

// CalcSequence yields len(pois)-1 transfers for consecutive pairs, fetching
// uncached pairs concurrently while preserving order in the result.
func (c *GoogleCalculator) CalcSequence(ctx context.Context, pois []types.PoiRecord, mode types.TravelMode) []types.Transfer {
	if len(pois) < 2 {
		return []types.Transfer{}
	}

	transfers := make([]types.Transfer, len(pois)-1)
	var wg sync.WaitGroup
	for i := 0; i < len(pois)-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transfers[i] = c.Calc(ctx, pois[i], pois[i+1], mode)
		}()
	}
	wg.Wait()
	return transfers
}
