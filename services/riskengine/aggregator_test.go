// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package riskengine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(DefaultWeights(), DefaultCurves())
	require.NoError(t, err)
	return agg
}

// recallSignals mirrors the AAPL recall scenario with every source available.
func recallSignals() Signals {
	return Signals{
		Insight: AIInsight{
			Sentiment:  SentimentNegative,
			EventType:  EventTypeProduct,
			Confidence: 0.8,
			Available:  true,
		},
		Headline: ScanHeadline("Apple announces major product recall"),
		Matches: []SimilarEventMatch{
			{ReferenceID: "a", Similarity: 0.9, HistoricalSeverity: 0.7},
			{ReferenceID: "b", Similarity: 0.75, HistoricalSeverity: 0.5},
		},
		AnalogsAvailable: true,
		Price: PriceReaction{
			Available:     true,
			Return1d:      ptr(-0.03),
			Return3d:      ptr(-0.025),
			Return5d:      ptr(-0.02),
			Volatility20d: ptr(0.35),
		},
	}
}

func TestAggregate_RecallScenario(t *testing.T) {
	b, err := newTestAggregator(t).Aggregate(recallSignals())
	require.NoError(t, err)

	require.Len(t, b.Factors, 4)
	for i, name := range factorOrder {
		assert.Equal(t, name, b.Factors[i].FactorName)
		assert.Equal(t, ProvenanceComputed, b.Factors[i].Provenance)
	}

	sentiment, _ := b.Factor(FactorSentiment)
	assert.InDelta(t, 0.945, sentiment.RawValue, 1e-9)
	analog, _ := b.Factor(FactorAnalog)
	assert.InDelta(t, 1.005/1.65, analog.RawValue, 1e-9)
	price, _ := b.Factor(FactorPrice)
	assert.InDelta(t, 0.6, price.RawValue, 1e-9)
	vol, _ := b.Factor(FactorVolatility)
	assert.InDelta(t, 0.7, vol.RawValue, 1e-9)

	assert.Equal(t, 72, b.Score)
	assert.Equal(t, RiskHigh, b.Level)
	assert.False(t, b.Degraded)
	assert.Equal(t, SentimentNegative, b.SentimentUsed)
}

func TestAggregate_WeightsSumToOne(t *testing.T) {
	full := recallSignals()

	noAnalogs := recallSignals()
	noAnalogs.AnalogsAvailable = false

	noPrice := recallSignals()
	noPrice.Price = PriceReaction{}

	onlySentiment := recallSignals()
	onlySentiment.Matches = nil
	onlySentiment.Price = PriceReaction{}
	onlySentiment.Insight = UnavailableInsight()

	missingVol := recallSignals()
	missingVol.Price.Volatility20d = nil

	tests := []struct {
		name        string
		signals     Signals
		unavailable []FactorName
	}{
		{"all available", full, nil},
		{"no analogs", noAnalogs, []FactorName{FactorAnalog}},
		{"no price", noPrice, []FactorName{FactorPrice, FactorVolatility}},
		{"missing volatility", missingVol, []FactorName{FactorVolatility}},
		{"sentiment only", onlySentiment, []FactorName{FactorAnalog, FactorPrice, FactorVolatility}},
	}

	agg := newTestAggregator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := agg.Aggregate(tt.signals)
			require.NoError(t, err)

			var sum float64
			for _, f := range b.Factors {
				sum += f.Weight
			}
			assert.InDelta(t, 1.0, sum, 1e-9)

			for _, name := range tt.unavailable {
				f, ok := b.Factor(name)
				require.True(t, ok)
				assert.Equal(t, ProvenanceUnavailable, f.Provenance)
				assert.Zero(t, f.Weight)
				assert.Zero(t, f.WeightedContribution)
			}
			assert.Equal(t, len(tt.unavailable) > 0 || !tt.signals.Insight.Available, b.Degraded)
			assert.GreaterOrEqual(t, b.Score, 0)
			assert.LessOrEqual(t, b.Score, 100)
			assert.Equal(t, LevelForScore(b.Score), b.Level)
		})
	}
}

func TestAggregate_RedistributesProportionally(t *testing.T) {
	s := recallSignals()
	s.AnalogsAvailable = false

	b, err := newTestAggregator(t).Aggregate(s)
	require.NoError(t, err)

	sentiment, _ := b.Factor(FactorSentiment)
	price, _ := b.Factor(FactorPrice)
	vol, _ := b.Factor(FactorVolatility)
	assert.InDelta(t, 0.30/0.70, sentiment.Weight, 1e-12)
	assert.InDelta(t, 0.25/0.70, price.Weight, 1e-12)
	assert.InDelta(t, 0.15/0.70, vol.Weight, 1e-12)
}

func TestAggregate_NegativeNeverScoresBelowNeutral(t *testing.T) {
	agg := newTestAggregator(t)
	for _, et := range []EventType{EventTypeRegulatory, EventTypeEarnings, EventTypeMA, EventTypeProduct, EventTypeLegal, EventTypeOther} {
		for _, conf := range []float64{0, 0.3, 0.8, 1} {
			neutral := recallSignals()
			neutral.Insight = AIInsight{Sentiment: SentimentNeutral, EventType: et, Confidence: conf, Available: true}
			negative := neutral
			negative.Insight.Sentiment = SentimentNegative
			positive := neutral
			positive.Insight.Sentiment = SentimentPositive

			bn, err := agg.Aggregate(neutral)
			require.NoError(t, err)
			bneg, err := agg.Aggregate(negative)
			require.NoError(t, err)
			bpos, err := agg.Aggregate(positive)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, bneg.Score, bn.Score, "event type %s confidence %v", et, conf)
			assert.GreaterOrEqual(t, bn.Score, bpos.Score, "event type %s confidence %v", et, conf)
		}
	}
}

func TestAggregate_DefaultedSentimentUsesHeadline(t *testing.T) {
	s := recallSignals()
	s.Insight = UnavailableInsight()

	b, err := newTestAggregator(t).Aggregate(s)
	require.NoError(t, err)

	f, _ := b.Factor(FactorSentiment)
	assert.Equal(t, ProvenanceDefaulted, f.Provenance)
	assert.Equal(t, SentimentNegative, b.SentimentUsed)
	// Negative 0.85 + high-impact 0.05 = 0.90, pulled toward neutral at
	// confidence 0.5.
	assert.InDelta(t, 0.45+0.45*0.75, f.RawValue, 1e-9)
	assert.InDelta(t, DefaultWeightSentiment, f.Weight, 1e-12)
	assert.True(t, b.Degraded)
}

func TestAggregate_PriceCurveSaturates(t *testing.T) {
	s := recallSignals()
	s.Price.Return1d = ptr(0.12)
	s.Price.Volatility20d = ptr(1.4)

	b, err := newTestAggregator(t).Aggregate(s)
	require.NoError(t, err)

	price, _ := b.Factor(FactorPrice)
	vol, _ := b.Factor(FactorVolatility)
	assert.Equal(t, 1.0, price.RawValue)
	assert.Equal(t, 1.0, vol.RawValue)
}

func TestAggregate_FailsClosedOnBadRawValue(t *testing.T) {
	s := recallSignals()
	s.Price.Volatility20d = ptr(math.NaN())

	_, err := newTestAggregator(t).Aggregate(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAggregation))

	var aerr *AggregationError
	require.True(t, errors.As(err, &aerr))
	assert.Contains(t, aerr.Reason, "volatility")
}

func TestNewAggregator_RejectsBadWeights(t *testing.T) {
	tests := []struct {
		name string
		w    Weights
	}{
		{"not summing to one", Weights{Sentiment: 0.5, Analog: 0.5, Price: 0.5, Volatility: 0.5}},
		{"zero weight", Weights{Sentiment: 0.5, Analog: 0.5, Price: 0, Volatility: 0}},
		{"negative weight", Weights{Sentiment: 0.6, Analog: 0.6, Price: -0.3, Volatility: 0.1}},
		{"nan weight", Weights{Sentiment: math.NaN(), Analog: 0.3, Price: 0.25, Volatility: 0.15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator(tt.w, DefaultCurves())
			assert.Error(t, err)
		})
	}
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow},
		{33, RiskLow},
		{34, RiskMedium},
		{66, RiskMedium},
		{67, RiskHigh},
		{100, RiskHigh},
	}
	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
