// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package riskengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain_RecallScenario(t *testing.T) {
	b, err := newTestAggregator(t).Aggregate(recallSignals())
	require.NoError(t, err)

	reasoning, recs := NewExplainer().Explain(b, b.Level)

	assert.True(t, strings.HasPrefix(reasoning, "High risk (score 72/100). Main drivers: negative sentiment ("))
	assert.True(t, strings.HasSuffix(reasoning, " and moderate historical-analog severity (0.61, +18.3 points)."))
	assert.Equal(t, recommendations[RiskHigh], recs)
	assert.Equal(t, "[HIGH RISK] Immediate attention required", recs[0])
}

func TestExplain_Degraded(t *testing.T) {
	s := recallSignals()
	s.Insight = UnavailableInsight()
	s.AnalogsAvailable = false

	b, err := newTestAggregator(t).Aggregate(s)
	require.NoError(t, err)

	reasoning, _ := NewExplainer().Explain(b, b.Level)

	assert.Contains(t, reasoning, "unavailable: historical-analog severity;")
	assert.Contains(t, reasoning, "defaulted from headline keywords: sentiment severity;")
	assert.Contains(t, reasoning, "weights were redistributed")
	assert.NotContains(t, reasoning, "historical-analog severity (")
}

func TestExplain_TiesFollowFactorOrder(t *testing.T) {
	b := &Breakdown{
		Score:         50,
		Level:         RiskMedium,
		SentimentUsed: SentimentNeutral,
		Factors: []FactorContribution{
			{FactorName: FactorSentiment, RawValue: 0.5, Weight: 0.25, WeightedContribution: 0.125, Provenance: ProvenanceComputed},
			{FactorName: FactorAnalog, RawValue: 0.5, Weight: 0.25, WeightedContribution: 0.125, Provenance: ProvenanceComputed},
			{FactorName: FactorPrice, RawValue: 0.5, Weight: 0.25, WeightedContribution: 0.125, Provenance: ProvenanceComputed},
			{FactorName: FactorVolatility, RawValue: 0.5, Weight: 0.25, WeightedContribution: 0.125, Provenance: ProvenanceComputed},
		},
	}

	reasoning, recs := NewExplainer().Explain(b, b.Level)

	assert.Contains(t, reasoning, "neutral sentiment (0.50, +12.5 points) and moderate historical-analog severity")
	assert.NotContains(t, reasoning, "price-reaction")
	assert.Len(t, recs, 4)
}

func TestExplain_Deterministic(t *testing.T) {
	b, err := newTestAggregator(t).Aggregate(recallSignals())
	require.NoError(t, err)

	x := NewExplainer()
	r1, recs1 := x.Explain(b, b.Level)
	r2, recs2 := x.Explain(b, b.Level)
	assert.Equal(t, r1, r2)
	assert.Equal(t, recs1, recs2)

	// Callers own the returned slice.
	recs1[0] = "mutated"
	_, recs3 := x.Explain(b, b.Level)
	assert.Equal(t, "[HIGH RISK] Immediate attention required", recs3[0])
}

func TestSeverityWord(t *testing.T) {
	assert.Equal(t, "low", severityWord(0.33))
	assert.Equal(t, "moderate", severityWord(0.34))
	assert.Equal(t, "moderate", severityWord(0.66))
	assert.Equal(t, "high", severityWord(0.67))
}
