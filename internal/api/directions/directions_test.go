package directions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func poi(id string, lat, lng float64) types.PoiRecord {
	return types.PoiRecord{PoiID: id, Name: "poi-" + id, Latitude: lat, Longitude: lng}
}

func routeBody(durationSec, distanceM int) string {
	return fmt.Sprintf(`{"status":"OK","routes":[{"legs":[{"duration":{"value":%d},"distance":{"value":%d}}]}]}`,
		durationSec, distanceM)
}

func TestCalc_ParsesDurationAndDistance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "driving", r.URL.Query().Get("mode"))
		assert.NotEmpty(t, r.URL.Query().Get("origin"))
		fmt.Fprint(w, routeBody(1200, 3400))
	}))
	defer srv.Close()

	calc := NewGoogleCalculator(config.GoogleMapsConfig{DirectionsBaseURL: srv.URL, APIKey: "k"}, testLogger())
	transfer := calc.Calc(context.Background(), poi("a", 37.5, 127.0), poi("b", 37.6, 127.1), types.ModeDriving)

	assert.Equal(t, "a", transfer.FromPoiID)
	assert.Equal(t, "b", transfer.ToPoiID)
	assert.Equal(t, 20, transfer.DurationMinutes)
	assert.Equal(t, 3.4, transfer.DistanceKm)
	assert.Equal(t, types.ModeDriving, transfer.Mode)
}

func TestCalc_MemoizesPerPairAndMode(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, routeBody(600, 1000))
	}))
	defer srv.Close()

	calc := NewGoogleCalculator(config.GoogleMapsConfig{DirectionsBaseURL: srv.URL, APIKey: "k"}, testLogger())
	a, b := poi("a", 37.5, 127.0), poi("b", 37.6, 127.1)

	calc.Calc(context.Background(), a, b, types.ModeDriving)
	calc.Calc(context.Background(), a, b, types.ModeDriving)
	assert.Equal(t, int32(1), calls.Load())

	// Different mode and reversed direction are distinct cache entries.
	calc.Calc(context.Background(), a, b, types.ModeWalking)
	calc.Calc(context.Background(), b, a, types.ModeDriving)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCalc_MissingKeyReturnsSentinel(t *testing.T) {
	calc := NewGoogleCalculator(config.GoogleMapsConfig{DirectionsBaseURL: "http://unused"}, testLogger())

	transfer := calc.Calc(context.Background(), poi("a", 0, 0), poi("b", 0, 0), types.ModeTransit)

	assert.Equal(t, types.Transfer{FromPoiID: "a", ToPoiID: "b", Mode: types.ModeTransit}, transfer)
}

func TestCalc_UpstreamFailureReturnsSentinelUncached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	calc := NewGoogleCalculator(config.GoogleMapsConfig{DirectionsBaseURL: srv.URL, APIKey: "k"}, testLogger())
	a, b := poi("a", 37.5, 127.0), poi("b", 37.6, 127.1)

	transfer := calc.Calc(context.Background(), a, b, types.ModeDriving)
	assert.Equal(t, 0, transfer.DurationMinutes)
	assert.Equal(t, 0.0, transfer.DistanceKm)

	// Failures are not memoized; the next call retries upstream.
	calc.Calc(context.Background(), a, b, types.ModeDriving)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCalcSequence_TransferCountInvariant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, routeBody(1200, 2000))
	}))
	defer srv.Close()

	calc := NewGoogleCalculator(config.GoogleMapsConfig{DirectionsBaseURL: srv.URL, APIKey: "k"}, testLogger())
	pois := []types.PoiRecord{
		poi("a", 37.50, 127.00),
		poi("b", 37.55, 127.01),
		poi("c", 37.60, 127.02),
	}

	transfers := calc.CalcSequence(context.Background(), pois, types.ModeDriving)

	require.Len(t, transfers, len(pois)-1)
	assert.Equal(t, "a", transfers[0].FromPoiID)
	assert.Equal(t, "b", transfers[0].ToPoiID)
	assert.Equal(t, "b", transfers[1].FromPoiID)
	assert.Equal(t, "c", transfers[1].ToPoiID)
}

func TestCalcSequence_FewerThanTwoPois(t *testing.T) {
	calc := NewGoogleCalculator(config.GoogleMapsConfig{}, testLogger())

	assert.Empty(t, calc.CalcSequence(context.Background(), nil, types.ModeDriving))
	assert.Empty(t, calc.CalcSequence(context.Background(), []types.PoiRecord{poi("a", 0, 0)}, types.ModeDriving))
}
