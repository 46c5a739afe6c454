package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	PoisDiscoveredTotal        metric.Int64Counter
	PoiValidationFailuresTotal metric.Int64Counter
	DiscoveryDurationSeconds   metric.Float64Histogram
	PlanIterationsTotal        metric.Int64Counter
	PlanFallbacksTotal         metric.Int64Counter
	PlanDurationSeconds        metric.Float64Histogram
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider, so with no
// provider installed every instrument is a no-op.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-travel-planner")
		var err error
		m := &AppMetrics{}

		m.PoisDiscoveredTotal, err = meter.Int64Counter(
			"pois_discovered_total",
			metric.WithDescription("Total number of POIs returned by discovery runs"),
			metric.WithUnit("{poi}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create pois_discovered_total: %v", err)
		}

		m.PoiValidationFailuresTotal, err = meter.Int64Counter(
			"poi_validation_failures_total",
			metric.WithDescription("Total number of candidate POIs rejected by the places validator"),
			metric.WithUnit("{poi}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create poi_validation_failures_total: %v", err)
		}

		m.DiscoveryDurationSeconds, err = meter.Float64Histogram(
			"discovery_duration_seconds",
			metric.WithDescription("Duration of POI discovery runs in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create discovery_duration_seconds: %v", err)
		}

		m.PlanIterationsTotal, err = meter.Int64Counter(
			"plan_iterations_total",
			metric.WithDescription("Total number of itinerary refinement iterations"),
			metric.WithUnit("{iteration}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_iterations_total: %v", err)
		}

		m.PlanFallbacksTotal, err = meter.Int64Counter(
			"plan_fallbacks_total",
			metric.WithDescription("Total number of itineraries returned via best-attempt fallback"),
			metric.WithUnit("{plan}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_fallbacks_total: %v", err)
		}

		m.PlanDurationSeconds, err = meter.Float64Histogram(
			"plan_duration_seconds",
			metric.WithDescription("Duration of itinerary planning runs in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_duration_seconds: %v", err)
		}

		appMetrics = m // Assign to global variable
	})
}

// Get returns the globally initialized AppMetrics instance, initializing
// lazily on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
