package planner

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/api/directions"
	"github.com/FACorreiaa/go-travel-planner/internal/api/discovery"
	"github.com/FACorreiaa/go-travel-planner/internal/api/llmclient"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service builds per-day itineraries for a validated POI set.
type Service interface {
	Plan(ctx context.Context, req Request) (*Result, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	cfg        config.PlannerConfig
	llm        llmclient.Client
	discovery  discovery.Service
	directions directions.Calculator
}

func NewServiceImpl(llm llmclient.Client, discoveryService discovery.Service, calc directions.Calculator, cfg config.PlannerConfig, logger *slog.Logger) *ServiceImpl {
	applyPlannerDefaults(&cfg)
	return &ServiceImpl{
		logger:     logger,
		cfg:        cfg,
		llm:        llm,
		discovery:  discoveryService,
		directions: calc,
	}
}

func applyPlannerDefaults(cfg *config.PlannerConfig) {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 5
	}
	if cfg.MaxDailyMinutes <= 0 {
		cfg.MaxDailyMinutes = 720
	}
	if cfg.OptimalPoiCount <= 0 {
		cfg.OptimalPoiCount = 4
	}
	if cfg.MaxPoiCount <= 0 {
		cfg.MaxPoiCount = 6
	}
	if cfg.MinPoiCountPerDay <= 0 {
		cfg.MinPoiCountPerDay = 2
	}
	if cfg.MaxEnrichAttempts <= 0 {
		cfg.MaxEnrichAttempts = 2
	}
}

// Plan runs the sufficiency gate and then the bounded refinement loop: plan,
// legs, validate, balance, dispatched FIFO by the rule table in todo.go.
// Running out of iterations is not an error; the lowest-penalty attempt comes
// back with Fallback set.
func (s *ServiceImpl) Plan(ctx context.Context, req Request) (*Result, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Plan", trace.WithAttributes(
		attribute.String("destination", req.Destination),
		attribute.Int("pois.input", len(req.Pois)),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		metrics.Get().PlanDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	l := s.logger.With(slog.String("method", "Plan"), slog.String("destination", req.Destination))

	st := newState(req)
	s.ensureSufficiency(ctx, st)
	if len(st.Pois) == 0 {
		l.InfoContext(ctx, "No POIs to plan, returning zero days")
		span.SetStatus(codes.Ok, "Nothing to plan")
		return &Result{Itineraries: []types.DayItinerary{}}, nil
	}

	for {
		st.TaskQueue = nextTasks(st)
		if len(st.TaskQueue) == 0 {
			span.SetAttributes(attribute.Int("iterations", st.IterationCount))
			span.SetStatus(codes.Ok, "Plan converged")
			l.InfoContext(ctx, "Plan converged",
				slog.Int("iterations", st.IterationCount), slog.Int("days", len(st.Itineraries)))
			return &Result{Itineraries: st.Itineraries, Reasoning: st.Reasoning}, nil
		}
		if st.TaskQueue[0] == taskPlan && st.IterationCount >= s.cfg.MaxIterations {
			break
		}

		for len(st.TaskQueue) > 0 {
			st.CurrentTask = st.TaskQueue[0]
			st.TaskQueue = st.TaskQueue[1:]

			switch st.CurrentTask {
			case taskPlan:
				metrics.Get().PlanIterationsTotal.Add(ctx, 1)
				if err := s.runPlan(ctx, st); err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, "Planning LLM unavailable")
					return nil, err
				}
				if len(st.Itineraries) == 0 {
					l.WarnContext(ctx, "Planner produced no days")
					span.SetStatus(codes.Ok, "Empty plan")
					return &Result{Itineraries: []types.DayItinerary{}, Reasoning: st.Reasoning}, nil
				}
			case taskLegs:
				s.runLegs(ctx, st)
			case taskValidate:
				if feedback := s.runValidate(st); feedback != "" {
					st.ValidationFeedback = feedback
					l.DebugContext(ctx, "Validation feedback", slog.String("feedback", feedback))
				}
			case taskBalance:
				if feedback := s.runBalance(st); feedback != "" {
					st.ScheduleFeedback = feedback
					l.DebugContext(ctx, "Balance feedback", slog.String("feedback", feedback))
				}
				s.updateBest(st)
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	metrics.Get().PlanFallbacksTotal.Add(ctx, 1)
	span.SetAttributes(attribute.Int("iterations", st.IterationCount), attribute.Bool("fallback", true))
	span.SetStatus(codes.Ok, "Refinement budget exhausted, best attempt returned")
	l.WarnContext(ctx, "Refinement budget exhausted, returning best attempt",
		slog.Int("iterations", st.IterationCount), slog.Float64("penalty", st.BestPenalty))
	return &Result{Itineraries: st.BestItineraries, Reasoning: st.Reasoning, Fallback: true}, nil
}

// ensureSufficiency tops the POI set up through discovery when it is below
// min_poi_count. A zero minimum disables the gate; attempts are bounded and
// the planner proceeds with whatever it has afterwards.
func (s *ServiceImpl) ensureSufficiency(ctx context.Context, st *State) {
	l := s.logger.With(slog.String("method", "ensureSufficiency"))

	minCount := s.cfg.MinPoiCount
	if minCount <= 0 {
		st.IsPoiSufficient = true
		return
	}

	for len(st.Pois) < minCount && st.PoiEnrichAttempts < s.cfg.MaxEnrichAttempts {
		st.PoiEnrichAttempts++
		extra, err := s.discovery.Discover(ctx, st.Persona, st.Destination)
		if err != nil {
			l.WarnContext(ctx, "Enrichment attempt failed",
				slog.Int("attempt", st.PoiEnrichAttempts), slog.String("error", err.Error()))
			break
		}
		st.Pois = mergePois(st.Pois, extra)
		l.InfoContext(ctx, "Enriched POI set",
			slog.Int("attempt", st.PoiEnrichAttempts), slog.Int("pois", len(st.Pois)))
	}
	st.IsPoiSufficient = len(st.Pois) >= minCount
}

func mergePois(existing, incoming []types.PoiRecord) []types.PoiRecord {
	seen := make(map[string]bool, len(existing))
	for _, poi := range existing {
		seen[poi.PoiID] = true
	}
	merged := existing
	for _, poi := range incoming {
		if seen[poi.PoiID] {
			continue
		}
		seen[poi.PoiID] = true
		merged = append(merged, poi)
	}
	return merged
}
