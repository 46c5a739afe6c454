package discovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/FACorreiaa/go-travel-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/api/llmclient"
	"github.com/FACorreiaa/go-travel-planner/internal/api/places"
	"github.com/FACorreiaa/go-travel-planner/internal/api/vectorindex"
	"github.com/FACorreiaa/go-travel-planner/internal/api/websearch"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

const processConcurrency = 5

var _ Service = (*ServiceImpl)(nil)

// Service runs the POI discovery pipeline for one (persona, destination) pair.
type Service interface {
	Discover(ctx context.Context, persona, destination string) ([]types.PoiRecord, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	cfg       config.DiscoveryConfig
	llm       llmclient.Client
	web       websearch.Service
	index     vectorindex.Index
	validator places.Validator
}

func NewServiceImpl(llm llmclient.Client, web websearch.Service, index vectorindex.Index, validator places.Validator, cfg config.DiscoveryConfig, logger *slog.Logger) *ServiceImpl {
	applyDiscoveryDefaults(&cfg)
	return &ServiceImpl{
		logger:    logger,
		cfg:       cfg,
		llm:       llm,
		web:       web,
		index:     index,
		validator: validator,
	}
}

func applyDiscoveryDefaults(cfg *config.DiscoveryConfig) {
	if cfg.WebWeight == 0 && cfg.EmbeddingWeight == 0 {
		cfg.WebWeight, cfg.EmbeddingWeight = 0.6, 0.4
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = 10
	}
	if cfg.EmbeddingK <= 0 {
		cfg.EmbeddingK = 5
	}
	if cfg.WebSearchK <= 0 {
		cfg.WebSearchK = 10
	}
	if cfg.FinalPoiCount <= 0 {
		cfg.FinalPoiCount = 15
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.EarlyExitCount <= 0 {
		cfg.EarlyExitCount = 20
	}
	if cfg.EarlyExitScore <= 0 {
		cfg.EarlyExitScore = 0.5
	}
}

// Discover walks the node graph: keyword extraction, then the web and vector
// branches in parallel, then rerank and the weighted merge. The pipeline
// degrades locally on every external failure and never fails as a whole.
func (s *ServiceImpl) Discover(ctx context.Context, persona, destination string) ([]types.PoiRecord, error) {
	ctx, span := otel.Tracer("DiscoveryService").Start(ctx, "Discover", trace.WithAttributes(
		attribute.String("destination", destination),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		metrics.Get().DiscoveryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	l := s.logger.With(slog.String("method", "Discover"), slog.String("destination", destination))

	state := &State{Persona: persona, Destination: destination}
	state.Keywords = s.extractKeywords(ctx, persona, destination)
	if len(state.Keywords) == 0 {
		l.InfoContext(ctx, "No keywords extracted, returning empty result")
		return []types.PoiRecord{}, nil
	}
	span.SetAttributes(attribute.Int("keywords.count", len(state.Keywords)))

	var webBranch, vectorBranch branchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		candidates, err := s.web.SearchMulti(gctx, state.Keywords, s.cfg.WebSearchK)
		if err != nil {
			l.WarnContext(gctx, "Web search branch failed, continuing without it", slog.String("error", err.Error()))
			candidates = nil
		}
		if len(candidates) > s.cfg.WebSearchK {
			candidates = candidates[:s.cfg.WebSearchK]
		}
		state.WebResults = candidates
		webBranch = s.processWebResults(gctx, candidates, persona, destination)
		state.RerankedWeb = s.rerank(gctx, webBranch.candidates, persona)
		return nil
	})
	g.Go(func() error {
		vectorBranch = s.vectorSearch(gctx, state.Keywords, destination)
		state.VectorResults = vectorBranch.candidates
		state.RerankedVector = s.rerank(gctx, vectorBranch.candidates, persona)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	state.PoiDataMap = MergePoiDataMap(webBranch.poiData, vectorBranch.poiData)
	state.Merged = s.mergeResults(state.RerankedWeb, state.RerankedVector)
	state.FinalPoiData = resolveRecords(state.Merged, state.PoiDataMap)

	metrics.Get().PoisDiscoveredTotal.Add(ctx, int64(len(state.FinalPoiData)))
	span.SetAttributes(attribute.Int("pois.final", len(state.FinalPoiData)))
	span.SetStatus(codes.Ok, "Discovery complete")
	l.InfoContext(ctx, "Discovery complete",
		slog.Int("web", len(state.RerankedWeb)),
		slog.Int("vector", len(state.RerankedVector)),
		slog.Int("final", len(state.FinalPoiData)),
	)
	return state.FinalPoiData, nil
}

// extractKeywords asks the LLM for persona keywords; an unreachable LLM
// degrades to the destination as the single keyword.
func (s *ServiceImpl) extractKeywords(ctx context.Context, persona, destination string) []string {
	l := s.logger.With(slog.String("method", "extractKeywords"))

	var out struct {
		Keywords []string `json:"keywords"`
	}
	if err := s.llm.CompleteStructured(ctx, keywordPrompt(persona, destination), keywordSchema, &out); err != nil {
		l.WarnContext(ctx, "Keyword extraction failed, falling back to destination",
			slog.String("error", err.Error()))
		return []string{destination}
	}
	keywords := out.Keywords
	if k := s.cfg.KeywordK; k > 0 && len(keywords) > k {
		keywords = keywords[:k]
	}
	return keywords
}

// processWebResults runs summarize -> validate -> persist for each web hit,
// bounded by a semaphore, in batches. Once enough well-scored candidates have
// been collected the remaining batches are skipped.
func (s *ServiceImpl) processWebResults(ctx context.Context, candidates []types.PoiCandidate, persona, destination string) branchResult {
	l := s.logger.With(slog.String("method", "processWebResults"))

	result := branchResult{poiData: make(map[string]types.PoiRecord)}
	sem := semaphore.NewWeighted(processConcurrency)

	for batchStart := 0; batchStart < len(candidates); batchStart += s.cfg.BatchSize {
		batchEnd := min(batchStart+s.cfg.BatchSize, len(candidates))
		batch := candidates[batchStart:batchEnd]

		processed := make([]*processedHit, len(batch))
		done := make(chan struct{})
		for i, cand := range batch {
			go func() {
				defer func() { done <- struct{}{} }()
				if err := sem.Acquire(ctx, 1); err != nil {
					return
				}
				defer sem.Release(1)
				processed[i] = s.processCandidate(ctx, cand, persona, destination)
			}()
		}
		for range batch {
			<-done
		}

		for _, hit := range processed {
			if hit == nil {
				continue
			}
			result.candidates = append(result.candidates, hit.candidate)
			result.poiData[hit.record.PoiID] = hit.record
		}

		if s.enoughCandidates(result.candidates) {
			l.DebugContext(ctx, "Early exit from web processing",
				slog.Int("processed", batchEnd), slog.Int("collected", len(result.candidates)))
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return result
}

type processedHit struct {
	candidate types.PoiCandidate
	record    types.PoiRecord
}

// processCandidate is the per-hit unit of work. Every failure mode skips the
// hit; PoiValidationError is expected traffic, not an error path.
func (s *ServiceImpl) processCandidate(ctx context.Context, cand types.PoiCandidate, persona, destination string) *processedHit {
	l := s.logger.With(slog.String("method", "processCandidate"), slog.String("title", cand.Title))

	var out struct {
		Name       string   `json:"name"`
		Category   string   `json:"category"`
		Summary    string   `json:"summary"`
		Highlights []string `json:"highlights"`
	}
	if err := s.llm.CompleteStructured(ctx, summaryPrompt(cand, persona), summarySchema, &out); err != nil {
		l.WarnContext(ctx, "Summarization failed, skipping hit", slog.String("error", err.Error()))
		return nil
	}
	if out.Name == "" {
		l.DebugContext(ctx, "Hit does not describe a concrete place, skipping")
		return nil
	}

	summary := types.PoiSummary{
		Name:       out.Name,
		Category:   types.Category(out.Category),
		Summary:    out.Summary,
		Highlights: out.Highlights,
	}
	record, err := s.validator.Map(ctx, summary, destination, cand.SourceURL, true)
	if err != nil {
		var vErr *types.PoiValidationError
		if errors.As(err, &vErr) {
			metrics.Get().PoiValidationFailuresTotal.Add(ctx, 1)
			l.InfoContext(ctx, "POI failed validation, skipping", slog.String("poi", vErr.Name))
		} else {
			l.WarnContext(ctx, "Places lookup failed, skipping", slog.String("error", err.Error()))
		}
		return nil
	}

	if err := s.index.Add(ctx, *record); err != nil {
		// Best-effort persistence; the candidate still flows downstream.
		l.WarnContext(ctx, "Vector index write failed", slog.String("poi_id", record.PoiID), slog.String("error", err.Error()))
	}

	cand.PoiID = record.PoiID
	return &processedHit{candidate: cand, record: *record}
}

func (s *ServiceImpl) enoughCandidates(candidates []types.PoiCandidate) bool {
	scored := 0
	for _, cand := range candidates {
		if cand.Relevance >= s.cfg.EarlyExitScore {
			scored++
		}
	}
	return scored >= s.cfg.EarlyExitCount
}

// vectorSearch queries the index per keyword and deduplicates by poi_id. Read
// failures degrade to an empty branch.
func (s *ServiceImpl) vectorSearch(ctx context.Context, keywords []string, destination string) branchResult {
	l := s.logger.With(slog.String("method", "vectorSearch"))

	result := branchResult{poiData: make(map[string]types.PoiRecord)}
	seen := make(map[string]bool)
	for _, keyword := range keywords {
		hits, err := s.index.SearchByText(ctx, keyword, s.cfg.EmbeddingK, destination)
		if err != nil {
			l.WarnContext(ctx, "Vector search failed for keyword, skipping",
				slog.String("keyword", keyword), slog.String("error", err.Error()))
			continue
		}
		for _, hit := range hits {
			if seen[hit.Candidate.PoiID] {
				continue
			}
			seen[hit.Candidate.PoiID] = true
			result.candidates = append(result.candidates, hit.Candidate)
			result.poiData[hit.Record.PoiID] = hit.Record
		}
	}
	return result
}

func resolveRecords(merged []types.PoiCandidate, poiData map[string]types.PoiRecord) []types.PoiRecord {
	final := make([]types.PoiRecord, 0, len(merged))
	for _, cand := range merged {
		if rec, ok := poiData[cand.PoiID]; ok {
			final = append(final, rec)
		}
	}
	return final
}
