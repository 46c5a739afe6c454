package plan

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-planner/internal/api/discovery"
	"github.com/FACorreiaa/go-travel-planner/internal/api/planner"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

const dateLayout = "2006-01-02"

type Handler struct {
	logger    *slog.Logger
	discovery discovery.Service
	planner   planner.Service
}

func NewPlanHandler(discoveryService discovery.Service, plannerService planner.Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		discovery: discoveryService,
		planner:   plannerService,
	}
}

type planRequest struct {
	Persona     string  `json:"persona"`
	Destination string  `json:"destination"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Budget      float64 `json:"budget"`
}

type planResponse struct {
	PlanID      string               `json:"plan_id"`
	Pois        []types.PoiRecord    `json:"pois"`
	Itineraries []types.DayItinerary `json:"itineraries"`
	Reasoning   string               `json:"reasoning,omitempty"`
	Fallback    bool                 `json:"fallback"`
}

// CreatePlan handles POST /api/v1/plan - discovers POIs for the persona and
// plans the trip over them.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanHandler").Start(r.Context(), "CreatePlan")
	defer span.End()

	l := h.logger.With(slog.String("method", "CreatePlan"))

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := validateRequest(req); msg != "" {
		l.WarnContext(ctx, "Invalid plan request", slog.String("reason", msg))
		span.SetStatus(codes.Error, "Invalid plan request")
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	planID := uuid.New()
	l = l.With(slog.String("plan_id", planID.String()))
	span.SetAttributes(
		attribute.String("destination", req.Destination),
		attribute.String("plan_id", planID.String()),
	)

	l.InfoContext(ctx, "Planning trip",
		slog.String("destination", req.Destination),
		slog.String("start_date", req.StartDate),
		slog.String("end_date", req.EndDate),
	)

	pois, err := h.discovery.Discover(ctx, req.Persona, req.Destination)
	if err != nil {
		h.writeServiceError(ctx, w, span, l, "Discovery failed", err)
		return
	}

	result, err := h.planner.Plan(ctx, planner.Request{
		Persona:     req.Persona,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		Pois:        pois,
	})
	if err != nil {
		h.writeServiceError(ctx, w, span, l, "Planning failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(planResponse{
		PlanID:      planID.String(),
		Pois:        pois,
		Itineraries: result.Itineraries,
		Reasoning:   result.Reasoning,
		Fallback:    result.Fallback,
	}); err != nil {
		l.ErrorContext(ctx, "Failed to encode plan response", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "JSON encoding failed")
		return
	}

	l.InfoContext(ctx, "Plan returned",
		slog.Int("pois", len(pois)),
		slog.Int("days", len(result.Itineraries)),
		slog.Bool("fallback", result.Fallback),
	)
	span.SetStatus(codes.Ok, "Plan returned")
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, span trace.Span, l *slog.Logger, msg string, err error) {
	l.ErrorContext(ctx, msg, slog.Any("error", err))
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	if errors.Is(err, types.ErrCoreUnavailable) {
		http.Error(w, "LLM backend unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, msg, http.StatusInternalServerError)
}

func validateRequest(req planRequest) string {
	if req.Persona == "" {
		return "persona is required"
	}
	if req.Destination == "" {
		return "destination is required"
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return "start_date must be YYYY-MM-DD"
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return "end_date must be YYYY-MM-DD"
	}
	if end.Before(start) {
		return "end_date must not be before start_date"
	}
	if req.Budget < 0 {
		return "budget must be non-negative"
	}
	return ""
}
