// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package riskengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianRisk/pkg/validation"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/observability"
)

var tracer = otel.Tracer("aleutian.risk.engine")

// DefaultCacheTTL is how long cached assessments live.
const DefaultCacheTTL = 15 * time.Minute

// EngineConfig tunes the engine. Zero values fall back to defaults.
type EngineConfig struct {
	InsightTimeout    time.Duration
	SimilarityTimeout time.Duration
	PriceTimeout      time.Duration

	TopK          int
	MinSimilarity float64

	Weights Weights
	Curves  Curves
	Breaker BreakerConfig

	// EnrichQueryWithSummary makes the similarity query wait for the AI
	// summary instead of running concurrently with it.
	EnrichQueryWithSummary bool

	CacheTTL time.Duration
	// CacheDegraded allows degraded assessments into the cache.
	CacheDegraded bool
}

// DefaultEngineConfig returns the production configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		InsightTimeout:    DefaultInsightTimeout,
		SimilarityTimeout: DefaultSimilarityTimeout,
		PriceTimeout:      DefaultPriceTimeout,
		TopK:              DefaultTopK,
		MinSimilarity:     DefaultMinSimilarity,
		Weights:           DefaultWeights(),
		Curves:            DefaultCurves(),
		Breaker:           DefaultBreakerConfig(),
		CacheTTL:          DefaultCacheTTL,
	}
}

// Collaborators are the external services the engine consumes. Any of them
// may be nil, in which case its signal is always unavailable.
type Collaborators struct {
	Understander EventUnderstander
	Searcher     VectorSearcher
	Prices       PriceSeries
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.RiskMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCache enables the read-through result cache.
func WithCache(c ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// Engine assesses the risk of news events.
//
// # Description
//
// Assess normalizes the event, gathers the AI insight, historical analogs
// and price reaction concurrently, aggregates them into a score and renders
// an explanation. Collaborator failures degrade the result; they never fail
// the request.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Concurrent requests for the same event
// share one computation.
type Engine struct {
	cfg        EngineConfig
	insight    *InsightAdapter
	similarity *SimilarityRetriever
	price      *PriceReactionCalculator
	aggregator *Aggregator
	explainer  *Explainer

	cache      ResultCache
	scoringTag string
	flight     singleflight.Group
	logger     *slog.Logger
	metrics    *observability.RiskMetrics
}

// NewEngine creates an engine.
//
// # Inputs
//
//   - cfg: Tuning. Weights and curves are validated.
//   - c: Collaborators. Nil members disable their signal.
//   - opts: Logger, metrics, cache.
//
// # Outputs
//
//   - *Engine: Ready to use.
//   - error: Non-nil when weights or curves are invalid.
func NewEngine(cfg EngineConfig, c Collaborators, opts ...Option) (*Engine, error) {
	cfg = applyConfigDefaults(cfg)

	agg, err := NewAggregator(cfg.Weights, cfg.Curves)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		aggregator: agg,
		explainer:  NewExplainer(),
		scoringTag: ScoringTag(cfg.Weights, cfg.Curves),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.insight = NewInsightAdapter(c.Understander, cfg.InsightTimeout, cfg.Breaker, e.logger, e.metrics)
	e.similarity = NewSimilarityRetriever(c.Searcher, cfg.TopK, cfg.MinSimilarity, cfg.SimilarityTimeout, cfg.Breaker, e.logger, e.metrics)
	e.price = NewPriceReactionCalculator(c.Prices, cfg.PriceTimeout, cfg.Breaker, e.logger, e.metrics)
	return e, nil
}

func applyConfigDefaults(cfg EngineConfig) EngineConfig {
	def := DefaultEngineConfig()
	if cfg.InsightTimeout <= 0 {
		cfg.InsightTimeout = def.InsightTimeout
	}
	if cfg.SimilarityTimeout <= 0 {
		cfg.SimilarityTimeout = def.SimilarityTimeout
	}
	if cfg.PriceTimeout <= 0 {
		cfg.PriceTimeout = def.PriceTimeout
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = def.MinSimilarity
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = def.Weights
	}
	if cfg.Curves == (Curves{}) {
		cfg.Curves = def.Curves
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	return cfg
}

// ScoringTag identifies the scoring configuration: the algorithm version
// and a digest of the weights and curves. It prefixes result keys so that
// a reconfigured engine never reads scores computed under other settings.
func ScoringTag(w Weights, c Curves) string {
	h := sha256.New()
	fmt.Fprintf(h, "%+v|%+v", w, c)
	return "v" + AlgorithmVersion + "-" + hex.EncodeToString(h.Sum(nil))[:12]
}

// Assess scores one event.
//
// # Inputs
//
//   - ctx: Cancellation abandons the request and returns ctx.Err().
//   - raw: The unvalidated event.
//
// # Outputs
//
//   - *RiskAssessment: Owned by the caller.
//   - error: *ValidationError for bad input, *AggregationError for an
//     internal invariant violation, or the context error.
func (e *Engine) Assess(ctx context.Context, raw RawEvent) (*RiskAssessment, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Engine.Assess")
	defer span.End()

	markStage(span, StageNormalizing)
	ev, err := Normalize(raw)
	if err != nil {
		markStage(span, StageFailed)
		span.SetStatus(codes.Error, "validation failed")
		e.metrics.RecordAssessment(observability.OutcomeValidation, time.Since(start), 0)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("risk.ticker", ev.Ticker),
		attribute.String("risk.event_date", validation.FormatEventDate(ev.Date)),
	)

	key := e.scoringTag + ":" + Fingerprint(ev)
	if cached, ok := e.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("risk.cache_hit", true))
		e.metrics.RecordAssessment(observability.OutcomeCacheHit, time.Since(start), cached.RiskScore)
		return cached, nil
	}

	for {
		ch := e.flight.DoChan(key, func() (interface{}, error) {
			return e.compute(ctx, ev, key)
		})

		select {
		case <-ctx.Done():
			return nil, e.canceled(ctx, span, start)
		case res := <-ch:
			if res.Err != nil {
				// A shared flight whose leader was canceled is retried
				// under this caller's context.
				if isContextError(res.Err) && ctx.Err() == nil {
					continue
				}
				if isContextError(res.Err) {
					return nil, e.canceled(ctx, span, start)
				}
				span.RecordError(res.Err)
				span.SetStatus(codes.Error, res.Err.Error())
				e.metrics.RecordAssessment(observability.OutcomeFailed, time.Since(start), 0)
				return nil, res.Err
			}

			a := res.Val.(*RiskAssessment).Clone()
			outcome := observability.OutcomeComplete
			if a.Degraded {
				outcome = observability.OutcomeDegraded
			}
			span.SetAttributes(
				attribute.Int("risk.score", a.RiskScore),
				attribute.String("risk.level", string(a.RiskLevel)),
				attribute.Bool("risk.degraded", a.Degraded),
				attribute.Bool("risk.shared", res.Shared),
			)
			e.metrics.RecordAssessment(outcome, time.Since(start), a.RiskScore)
			return a, nil
		}
	}
}

// compute gathers, aggregates, explains and caches one event.
func (e *Engine) compute(ctx context.Context, ev Event, key string) (*RiskAssessment, error) {
	span := trace.SpanFromContext(ctx)

	markStage(span, StageGathering)
	var (
		wg       sync.WaitGroup
		insight  AIInsight
		matches  []SimilarEventMatch
		analogOK bool
		price    PriceReaction
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		insight = e.insight.Gather(ctx, ev)
		if e.cfg.EnrichQueryWithSummary {
			matches, analogOK = e.similarity.Retrieve(ctx, ev, BuildQuery(ev, insight.Summary))
		}
	}()
	if !e.cfg.EnrichQueryWithSummary {
		wg.Add(1)
		go func() {
			defer wg.Done()
			matches, analogOK = e.similarity.Retrieve(ctx, ev, BuildQuery(ev, ""))
		}()
	}
	go func() {
		defer wg.Done()
		price = e.price.Calculate(ctx, ev.Ticker, ev.Date)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}
	// Gatherers absorb cancellation as unavailability; do not score that.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	markStage(span, StageAggregating)
	headline := ScanHeadline(ev.Title)
	breakdown, err := e.aggregator.Aggregate(Signals{
		Insight:          insight,
		Headline:         headline,
		Matches:          matches,
		AnalogsAvailable: analogOK,
		Price:            price,
	})
	if err != nil {
		markStage(span, StageFailed)
		e.logger.Error("risk aggregation failed", "ticker", ev.Ticker, "error", err)
		return nil, err
	}

	reasoning, recs := e.explainer.Explain(breakdown, breakdown.Level)
	a := &RiskAssessment{
		Ticker:           ev.Ticker,
		EventDate:        validation.FormatEventDate(ev.Date),
		RiskScore:        breakdown.Score,
		RiskLevel:        breakdown.Level,
		FactorBreakdown:  breakdown.Factors,
		Reasoning:        reasoning,
		Recommendations:  recs,
		Degraded:         breakdown.Degraded,
		SimilarEvents:    matches,
		PriceReaction:    price,
		RawMetrics:       buildRawMetrics(headline, breakdown.SentimentUsed, matches, price),
		AlgorithmVersion: AlgorithmVersion,
	}
	a.RiskFactors = BuildRiskFactors(insight, analogOK, a.RawMetrics, price)
	if insight.Available {
		a.Summary = insight.Summary
	}
	if a.SimilarEvents == nil {
		a.SimilarEvents = []SimilarEventMatch{}
	}

	for _, f := range a.FactorBreakdown {
		e.metrics.RecordProvenance(string(f.FactorName), string(f.Provenance))
	}
	if a.Degraded {
		markStage(span, StageDegraded)
		e.logger.Info("risk assessment degraded", "ticker", ev.Ticker, "risk_score", a.RiskScore)
	} else {
		markStage(span, StageComplete)
	}

	e.store(ctx, key, a)
	return a, nil
}

// buildRawMetrics collects the intermediate measurements shown to users.
func buildRawMetrics(h HeadlineSignals, used Sentiment, matches []SimilarEventMatch, price PriceReaction) RawMetrics {
	rm := RawMetrics{
		SentimentUsed:      used,
		NegativeKeywords:   h.Negative,
		PositiveKeywords:   h.Positive,
		HighImpactKeywords: h.HighImpact,
		SimilarEventCount:  len(matches),
		PriceHorizons:      cloneSlice(price.Horizons),
	}
	for _, m := range matches {
		if m.HistoricalSentiment == SentimentNegative {
			rm.NegativeAnalogCount++
		}
		if m.HistoricalSeverity > 0.7 {
			rm.HighImpactAnalogCount++
		}
	}
	if rm.PriceHorizons == nil {
		rm.PriceHorizons = []HorizonPrice{}
	}
	return rm
}

func (e *Engine) lookup(ctx context.Context, key string) (*RiskAssessment, bool) {
	if e.cache == nil {
		return nil, false
	}
	a, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		e.logger.Warn("result cache lookup failed", "error", err)
		e.metrics.RecordCacheLookup(observability.CacheError)
		return nil, false
	case !ok || a == nil:
		e.metrics.RecordCacheLookup(observability.CacheMiss)
		return nil, false
	default:
		e.metrics.RecordCacheLookup(observability.CacheHit)
		return a.Clone(), true
	}
}

func (e *Engine) store(ctx context.Context, key string, a *RiskAssessment) {
	if e.cache == nil || (a.Degraded && !e.cfg.CacheDegraded) {
		return
	}
	if err := e.cache.Add(ctx, key, a.Clone(), e.cfg.CacheTTL); err != nil {
		e.logger.Warn("result cache write failed", "ticker", a.Ticker, "error", err)
	}
}

func (e *Engine) canceled(ctx context.Context, span trace.Span, start time.Time) error {
	err := ctx.Err()
	span.SetStatus(codes.Error, "canceled")
	e.metrics.RecordAssessment(observability.OutcomeCanceled, time.Since(start), 0)
	e.logger.Debug("risk assessment canceled", "error", err)
	return err
}

func markStage(span trace.Span, s Stage) {
	span.AddEvent("stage", trace.WithAttributes(attribute.String("risk.stage", string(s))))
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
