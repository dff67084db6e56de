// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package riskengine_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/enginetest"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/observability"
)

func newEngine(t *testing.T, cfg riskengine.EngineConfig, c riskengine.Collaborators, opts ...riskengine.Option) *riskengine.Engine {
	t.Helper()
	opts = append([]riskengine.Option{riskengine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	e, err := riskengine.NewEngine(cfg, c, opts...)
	require.NoError(t, err)
	return e
}

func recallEngine(t *testing.T, opts ...riskengine.Option) (*riskengine.Engine, *enginetest.Understander, *enginetest.Searcher, *enginetest.Prices) {
	t.Helper()
	u, s, p := enginetest.AAPLRecallCollaborators()
	e := newEngine(t, riskengine.DefaultEngineConfig(), riskengine.Collaborators{
		Understander: u,
		Searcher:     s,
		Prices:       p,
	}, opts...)
	return e, u, s, p
}

func TestAssess_AAPLRecall(t *testing.T) {
	e, _, _, _ := recallEngine(t)

	a, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)

	assert.Equal(t, riskengine.RiskHigh, a.RiskLevel)
	assert.Equal(t, 72, a.RiskScore)
	assert.False(t, a.Degraded)
	assert.Equal(t, "AAPL", a.Ticker)
	assert.Equal(t, "2024-01-17", a.EventDate)
	assert.Equal(t, riskengine.AlgorithmVersion, a.AlgorithmVersion)
	assert.Contains(t, a.Reasoning, "sentiment")
	assert.Contains(t, a.Reasoning, "historical-analog")
	assert.Equal(t, "[HIGH RISK] Immediate attention required", a.Recommendations[0])
	assert.NotEmpty(t, a.Summary)

	require.Len(t, a.SimilarEvents, 2)
	assert.InDelta(t, 0.9, a.SimilarEvents[0].Similarity, 1e-12)
	assert.InDelta(t, 0.75, a.SimilarEvents[1].Similarity, 1e-12)

	require.NotNil(t, a.PriceReaction.Return1d)
	assert.InDelta(t, -0.03, *a.PriceReaction.Return1d, 1e-9)
	require.NotNil(t, a.PriceReaction.Volatility20d)
	assert.InDelta(t, 0.35, *a.PriceReaction.Volatility20d, 0.005)

	assert.Equal(t, riskengine.SentimentNegative, a.RawMetrics.SentimentUsed)
	assert.Equal(t, []string{"recall"}, a.RawMetrics.NegativeKeywords)
	assert.Equal(t, []string{"major"}, a.RawMetrics.HighImpactKeywords)
	assert.Equal(t, 2, a.RawMetrics.SimilarEventCount)
	assert.Equal(t, 2, a.RawMetrics.NegativeAnalogCount)
	assert.Equal(t, 0, a.RawMetrics.HighImpactAnalogCount)
	assert.Len(t, a.RawMetrics.PriceHorizons, 3)

	require.Len(t, a.RiskFactors, 4)
	assert.Equal(t, "Found 2 similar negative events", a.RiskFactors[0])
	assert.Equal(t, "Moderate negative market reaction: average return -2.50%", a.RiskFactors[1])
	assert.True(t, strings.HasPrefix(a.RiskFactors[2], "High market volatility: 0.3"), a.RiskFactors[2])
	assert.Equal(t, "AI-detected negative sentiment", a.RiskFactors[3])

	var sum float64
	for _, f := range a.FactorBreakdown {
		sum += f.Weight
		assert.Equal(t, riskengine.ProvenanceComputed, f.Provenance)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestAssess_VectorSearchFailureDegrades(t *testing.T) {
	e, _, s, _ := recallEngine(t)
	s.Err = errors.New("weaviate: connection refused")

	a, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	analog, ok := a.Factor(riskengine.FactorAnalog)
	require.True(t, ok)
	assert.Equal(t, riskengine.ProvenanceUnavailable, analog.Provenance)
	assert.Zero(t, analog.Weight)

	sentiment, _ := a.Factor(riskengine.FactorSentiment)
	assert.InDelta(t, 0.30/0.70, sentiment.Weight, 1e-12)

	var sum float64
	for _, f := range a.FactorBreakdown {
		sum += f.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Contains(t, a.Reasoning, "unavailable: historical-analog severity")
	assert.NotNil(t, a.SimilarEvents)
	assert.Empty(t, a.SimilarEvents)
	assert.Equal(t, "Could not retrieve similar events", a.RiskFactors[0])
}

func TestAssess_AllCollaboratorsDown(t *testing.T) {
	e := newEngine(t, riskengine.DefaultEngineConfig(), riskengine.Collaborators{
		Understander: &enginetest.Understander{Err: errors.New("down")},
		Searcher:     &enginetest.Searcher{Err: errors.New("down")},
		Prices:       &enginetest.Prices{Err: errors.New("down")},
	})

	a, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	sentiment, _ := a.Factor(riskengine.FactorSentiment)
	assert.Equal(t, riskengine.ProvenanceDefaulted, sentiment.Provenance)
	assert.Equal(t, 1.0, sentiment.Weight)
	assert.Empty(t, a.Summary)
	assert.GreaterOrEqual(t, a.RiskScore, 0)
	assert.LessOrEqual(t, a.RiskScore, 100)
	assert.Equal(t, riskengine.LevelForScore(a.RiskScore), a.RiskLevel)
}

func TestAssess_SlowCollaboratorIsBounded(t *testing.T) {
	u, s, p := enginetest.AAPLRecallCollaborators()
	p.Delay = 2 * time.Second

	cfg := riskengine.DefaultEngineConfig()
	cfg.PriceTimeout = 30 * time.Millisecond
	e := newEngine(t, cfg, riskengine.Collaborators{Understander: u, Searcher: s, Prices: p})

	start := time.Now()
	a, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	price, _ := a.Factor(riskengine.FactorPrice)
	vol, _ := a.Factor(riskengine.FactorVolatility)
	assert.Equal(t, riskengine.ProvenanceUnavailable, price.Provenance)
	assert.Equal(t, riskengine.ProvenanceUnavailable, vol.Provenance)
	assert.False(t, a.PriceReaction.Available)
	assert.True(t, a.Degraded)
}

func TestAssess_ByteIdenticalForIdenticalInputs(t *testing.T) {
	e1, _, _, _ := recallEngine(t)
	e2, _, _, _ := recallEngine(t)

	a1, err := e1.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	a2, err := e2.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)

	b1, err := json.Marshal(a1)
	require.NoError(t, err)
	b2, err := json.Marshal(a2)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestAssess_ValidationErrors(t *testing.T) {
	e, u, s, p := recallEngine(t)

	tests := []struct {
		name string
		raw  riskengine.RawEvent
	}{
		{"empty title", riskengine.RawEvent{Title: "", Ticker: "AAPL", Date: "2024-01-17"}},
		{"lowercase ticker", riskengine.RawEvent{Title: "x", Ticker: "aapl1", Date: "2024-01-17"}},
		{"bad date", riskengine.RawEvent{Title: "x", Ticker: "AAPL", Date: "Jan 17"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := e.Assess(context.Background(), tt.raw)
			assert.Nil(t, a)
			assert.True(t, errors.Is(err, riskengine.ErrValidation))
		})
	}
	assert.Zero(t, u.Calls()+s.Calls()+p.Calls())
}

func TestAssess_CacheHitSkipsCollaborators(t *testing.T) {
	cache := &enginetest.Cache{}
	e, u, s, p := recallEngine(t, riskengine.WithCache(cache))

	first, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, u.Calls())

	// Mutating the caller's copy must not leak into the cache.
	first.Recommendations[0] = "mutated"

	second, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)

	assert.Equal(t, 1, u.Calls())
	assert.Equal(t, 1, s.Calls())
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, "[HIGH RISK] Immediate attention required", second.Recommendations[0])
	assert.Equal(t, first.RiskScore, second.RiskScore)
}

func TestAssess_DegradedResultsNotCachedByDefault(t *testing.T) {
	cache := &enginetest.Cache{}
	e, _, s, _ := recallEngine(t, riskengine.WithCache(cache))
	s.Err = errors.New("down")

	_, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Zero(t, cache.Len())

	cfg := riskengine.DefaultEngineConfig()
	cfg.CacheDegraded = true
	u, s2, p := enginetest.AAPLRecallCollaborators()
	s2.Err = errors.New("down")
	e2 := newEngine(t, cfg, riskengine.Collaborators{Understander: u, Searcher: s2, Prices: p}, riskengine.WithCache(cache))

	_, err = e2.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestAssess_CacheFailuresAreIgnored(t *testing.T) {
	cache := &enginetest.Cache{GetErr: errors.New("redis down"), AddErr: errors.New("redis down")}
	e, _, _, _ := recallEngine(t, riskengine.WithCache(cache))

	a, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Equal(t, 72, a.RiskScore)
}

func TestAssess_ConcurrentIdenticalRequestsShareWork(t *testing.T) {
	e, u, _, _ := recallEngine(t)
	u.Delay = 150 * time.Millisecond

	const n = 8
	var (
		wg      sync.WaitGroup
		results = make([]*riskengine.RiskAssessment, n)
		errs    = make([]error, n)
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = e.Assess(context.Background(), enginetest.AAPLRecallEvent())
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 72, results[i].RiskScore)
	}
	assert.Equal(t, 1, u.Calls())
	// Each caller owns its copy.
	assert.NotSame(t, results[0], results[1])
}

func TestAssess_CallerCancellation(t *testing.T) {
	e, u, _, _ := recallEngine(t)
	u.Delay = 5 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	a, err := e.Assess(ctx, enginetest.AAPLRecallEvent())
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestAssess_EnrichQueryWithSummary(t *testing.T) {
	u, s, p := enginetest.AAPLRecallCollaborators()
	cfg := riskengine.DefaultEngineConfig()
	cfg.EnrichQueryWithSummary = true
	e := newEngine(t, cfg, riskengine.Collaborators{Understander: u, Searcher: s, Prices: p})

	_, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Contains(t, s.LastQuery(), enginetest.AAPLRecallInsight().Summary)

	e2, _, s2, _ := recallEngine(t)
	_, err = e2.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Equal(t, "Apple announces major product recall", s2.LastQuery())
}

func TestAssess_RecordsMetrics(t *testing.T) {
	m := observability.NewRiskMetrics(prometheus.NewRegistry())
	e, _, s, _ := recallEngine(t, riskengine.WithMetrics(m))
	s.Err = errors.New("down")

	_, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	_, err = e.Assess(context.Background(), riskengine.RawEvent{Title: "x", Ticker: "bad", Date: "2024-01-17"})
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues(observability.OutcomeDegraded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues(observability.OutcomeValidation)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FactorProvenanceTotal.WithLabelValues("analog_severity", "Unavailable")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CollaboratorCallsTotal.WithLabelValues(riskengine.CollaboratorVector, "error")))
}

func TestNewEngine_RejectsInvalidWeights(t *testing.T) {
	cfg := riskengine.DefaultEngineConfig()
	cfg.Weights.Price = 0.9
	_, err := riskengine.NewEngine(cfg, riskengine.Collaborators{})
	assert.Error(t, err)
}

// queryRoutedSearcher returns analogs only for queries containing match.
type queryRoutedSearcher struct {
	match string
	hits  []riskengine.HistoricalEvent

	mu      sync.Mutex
	queries []string
}

func (s *queryRoutedSearcher) Search(_ context.Context, query string, _ int) ([]riskengine.HistoricalEvent, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if strings.Contains(query, s.match) {
		return s.hits, nil
	}
	return []riskengine.HistoricalEvent{}, nil
}

func TestAssess_RawTextDistinguishesEvents(t *testing.T) {
	u, _, p := enginetest.AAPLRecallCollaborators()
	s := &queryRoutedSearcher{match: "battery fires", hits: enginetest.AAPLRecallAnalogs()}
	cache := &enginetest.Cache{}
	cfg := riskengine.DefaultEngineConfig()
	cfg.CacheDegraded = true
	e := newEngine(t, cfg, riskengine.Collaborators{Understander: u, Searcher: s, Prices: p}, riskengine.WithCache(cache))

	withFires := enginetest.AAPLRecallEvent()
	withFires.RawText = "Units overheated and caused battery fires"
	withLabels := enginetest.AAPLRecallEvent()
	withLabels.RawText = "A minor labelling correction on packaging"

	a, err := e.Assess(context.Background(), withFires)
	require.NoError(t, err)
	b, err := e.Assess(context.Background(), withLabels)
	require.NoError(t, err)

	assert.Len(t, s.queries, 2)
	assert.Equal(t, 2, u.Calls())
	assert.Equal(t, withLabels.RawText, u.LastRequest().Context)
	assert.Len(t, a.SimilarEvents, 2)
	assert.Empty(t, b.SimilarEvents)
	assert.NotEqual(t, a.RiskScore, b.RiskScore)
	assert.Equal(t, 2, cache.Len())

	// The same raw text is served from the cache.
	again, err := e.Assess(context.Background(), withFires)
	require.NoError(t, err)
	assert.Len(t, s.queries, 2)
	assert.Equal(t, a.RiskScore, again.RiskScore)
}

func TestAssess_RiskFactorsClonedFromCache(t *testing.T) {
	cache := &enginetest.Cache{}
	e, _, _, _ := recallEngine(t, riskengine.WithCache(cache))

	first, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	first.RiskFactors[0] = "mutated"

	second, err := e.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Equal(t, "Found 2 similar negative events", second.RiskFactors[0])
}

func TestAssess_CacheKeyedByScoringConfig(t *testing.T) {
	cache := &enginetest.Cache{}
	e1, _, _, _ := recallEngine(t, riskengine.WithCache(cache))
	_, err := e1.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)

	cfg := riskengine.DefaultEngineConfig()
	cfg.Weights = riskengine.Weights{Sentiment: 0.1, Analog: 0.1, Price: 0.4, Volatility: 0.4}
	u, s, p := enginetest.AAPLRecallCollaborators()
	e2 := newEngine(t, cfg, riskengine.Collaborators{Understander: u, Searcher: s, Prices: p}, riskengine.WithCache(cache))

	a, err := e2.Assess(context.Background(), enginetest.AAPLRecallEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, u.Calls())
	assert.Equal(t, 2, cache.Len())
	sentiment, _ := a.Factor(riskengine.FactorSentiment)
	assert.InDelta(t, 0.1, sentiment.Weight, 1e-12)
}

func TestScoringTag(t *testing.T) {
	w, c := riskengine.DefaultWeights(), riskengine.DefaultCurves()
	tag := riskengine.ScoringTag(w, c)
	assert.True(t, strings.HasPrefix(tag, "v"+riskengine.AlgorithmVersion+"-"))
	assert.Equal(t, tag, riskengine.ScoringTag(w, c))

	c.PriceSaturation = 0.08
	assert.NotEqual(t, tag, riskengine.ScoringTag(w, c))
}
