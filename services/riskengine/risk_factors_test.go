// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package riskengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func reactionWith(returns map[int]float64, vol *float64) PriceReaction {
	base := day(2024, 1, 17)
	p := PriceReaction{Available: true, BaselineDate: &base, Volatility20d: vol}
	for _, n := range priceHorizons {
		r, ok := returns[n]
		if !ok {
			continue
		}
		v := r
		switch n {
		case 1:
			p.Return1d = &v
		case 3:
			p.Return3d = &v
		case 5:
			p.Return5d = &v
		}
		p.Horizons = append(p.Horizons, HorizonPrice{Days: n, Date: base.AddDate(0, 0, n), Close: 100 * (1 + r)})
	}
	return p
}

func TestBuildRiskFactors(t *testing.T) {
	negative := AIInsight{Sentiment: SentimentNegative, Available: true}
	positive := AIInsight{Sentiment: SentimentPositive, Available: true}
	neutral := AIInsight{Sentiment: SentimentNeutral, Available: true}

	tests := []struct {
		name      string
		insight   AIInsight
		analogsOK bool
		rm        RawMetrics
		price     PriceReaction
		want      []string
	}{
		{
			name:      "severe and extreme with very high volatility",
			insight:   negative,
			analogsOK: true,
			rm:        RawMetrics{NegativeAnalogCount: 3, HighImpactAnalogCount: 1},
			price:     reactionWith(map[int]float64{1: -0.04, 3: -0.12, 5: -0.08}, ptr(0.62)),
			want: []string{
				"Found 3 similar negative events",
				"Found 1 similar high-impact events",
				"Severe negative market reaction: average return -8.00%",
				"Extreme single-horizon drop: -12.00%",
				"Very high market volatility: 0.62",
				"AI-detected negative sentiment",
			},
		},
		{
			name:      "calm positive event",
			insight:   positive,
			analogsOK: true,
			price:     reactionWith(map[int]float64{1: 0.01, 3: 0.02, 5: 0.015}, ptr(0.2)),
			want:      []string{"AI-detected positive sentiment"},
		},
		{
			name:      "collaborators unavailable",
			insight:   UnavailableInsight(),
			analogsOK: false,
			price:     PriceReaction{},
			want: []string{
				"Could not retrieve similar events",
				"Could not retrieve price history",
				"AI analysis unavailable",
			},
		},
		{
			name:      "no baseline",
			insight:   neutral,
			analogsOK: true,
			price:     PriceReaction{Available: true, Volatility20d: ptr(0.4)},
			want: []string{
				"No trading data within 7 days before the event date",
				"High market volatility: 0.40",
			},
		},
		{
			name:      "missing horizons",
			insight:   neutral,
			analogsOK: true,
			price:     reactionWith(map[int]float64{1: -0.03}, nil),
			want: []string{
				"No trading data for the 3-day horizon",
				"No trading data for the 5-day horizon",
				"Moderate negative market reaction: average return -3.00%",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRiskFactors(tt.insight, tt.analogsOK, tt.rm, tt.price)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildRiskFactors_NeverNil(t *testing.T) {
	got := BuildRiskFactors(AIInsight{Sentiment: SentimentNeutral, Available: true}, true, RawMetrics{}, reactionWith(map[int]float64{1: 0, 3: 0, 5: 0}, nil))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
