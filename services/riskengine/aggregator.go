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
	"fmt"
	"math"
)

const (
	// weightSumTolerance bounds the drift of redistributed weights from 1.
	weightSumTolerance = 1e-9

	// scoreTolerance bounds how far a pre-clamp score may stray outside
	// [0, 100] before it is treated as a bug.
	scoreTolerance = 1e-6
)

// Weights are the base factor weights. They must be positive and sum to 1.
type Weights struct {
	Sentiment  float64 `json:"sentiment" yaml:"sentiment" toml:"sentiment"`
	Analog     float64 `json:"analog" yaml:"analog" toml:"analog"`
	Price      float64 `json:"price" yaml:"price" toml:"price"`
	Volatility float64 `json:"volatility" yaml:"volatility" toml:"volatility"`
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Sentiment:  DefaultWeightSentiment,
		Analog:     DefaultWeightAnalog,
		Price:      DefaultWeightPrice,
		Volatility: DefaultWeightVolatility,
	}
}

func (w Weights) of(name FactorName) float64 {
	switch name {
	case FactorSentiment:
		return w.Sentiment
	case FactorAnalog:
		return w.Analog
	case FactorPrice:
		return w.Price
	case FactorVolatility:
		return w.Volatility
	default:
		return 0
	}
}

// Validate checks that every weight is positive and that they sum to 1.
func (w Weights) Validate() error {
	var sum float64
	for _, name := range factorOrder {
		v := w.of(name)
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be positive, got %v", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Curves map signals onto [0,1] factor values.
type Curves struct {
	NegativeBase float64 `json:"negative_base" yaml:"negative_base" toml:"negative_base"`
	NeutralBase  float64 `json:"neutral_base" yaml:"neutral_base" toml:"neutral_base"`
	PositiveBase float64 `json:"positive_base" yaml:"positive_base" toml:"positive_base"`

	// Event-type bonuses. Regulatory and Legal share one, M&A and Earnings
	// share another.
	RegulatoryBonus float64 `json:"regulatory_bonus" yaml:"regulatory_bonus" toml:"regulatory_bonus"`
	ProductBonus    float64 `json:"product_bonus" yaml:"product_bonus" toml:"product_bonus"`
	CorporateBonus  float64 `json:"corporate_bonus" yaml:"corporate_bonus" toml:"corporate_bonus"`
	HighImpactBonus float64 `json:"high_impact_bonus" yaml:"high_impact_bonus" toml:"high_impact_bonus"`

	// DefaultedConfidence is the confidence used when the sentiment comes
	// from headline keywords.
	DefaultedConfidence float64 `json:"defaulted_confidence" yaml:"defaulted_confidence" toml:"defaulted_confidence"`

	// PriceSaturation is the absolute return that maps to 1.0.
	PriceSaturation float64 `json:"price_saturation" yaml:"price_saturation" toml:"price_saturation"`
	// VolatilitySaturation is the annualized volatility that maps to 1.0.
	VolatilitySaturation float64 `json:"volatility_saturation" yaml:"volatility_saturation" toml:"volatility_saturation"`
}

// DefaultCurves returns the production curves.
func DefaultCurves() Curves {
	return Curves{
		NegativeBase:         0.85,
		NeutralBase:          0.45,
		PositiveBase:         0.15,
		RegulatoryBonus:      0.15,
		ProductBonus:         0.10,
		CorporateBonus:       0.05,
		HighImpactBonus:      0.05,
		DefaultedConfidence:  0.5,
		PriceSaturation:      0.05,
		VolatilitySaturation: 0.50,
	}
}

// Validate checks the curve parameters.
func (c Curves) Validate() error {
	for name, v := range map[string]float64{
		"negative_base":        c.NegativeBase,
		"neutral_base":         c.NeutralBase,
		"positive_base":        c.PositiveBase,
		"defaulted_confidence": c.DefaultedConfidence,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("curve %s must be in [0,1], got %v", name, v)
		}
	}
	for name, v := range map[string]float64{
		"regulatory_bonus":  c.RegulatoryBonus,
		"product_bonus":     c.ProductBonus,
		"corporate_bonus":   c.CorporateBonus,
		"high_impact_bonus": c.HighImpactBonus,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("curve %s must be in [0,1], got %v", name, v)
		}
	}
	if !(c.PriceSaturation > 0) || !(c.VolatilitySaturation > 0) {
		return fmt.Errorf("saturation points must be positive")
	}
	return nil
}

// Signals is everything the aggregator needs for one event.
type Signals struct {
	Insight          AIInsight
	Headline         HeadlineSignals
	Matches          []SimilarEventMatch
	AnalogsAvailable bool
	Price            PriceReaction
}

// Breakdown is the aggregator's output.
type Breakdown struct {
	Factors       []FactorContribution
	Score         int
	Level         RiskLevel
	Degraded      bool
	SentimentUsed Sentiment
}

// Factor returns the contribution for name.
func (b *Breakdown) Factor(name FactorName) (FactorContribution, bool) {
	for _, f := range b.Factors {
		if f.FactorName == name {
			return f, true
		}
	}
	return FactorContribution{}, false
}

// factorValue is one factor before weighting.
type factorValue struct {
	name FactorName
	raw  float64
	prov Provenance
}

// Aggregator combines signals into a weighted score.
//
// # Thread Safety
//
// Aggregator is immutable after construction and safe for concurrent use.
type Aggregator struct {
	weights Weights
	curves  Curves
}

// NewAggregator validates the weights and curves.
func NewAggregator(w Weights, c Curves) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid curves: %w", err)
	}
	return &Aggregator{weights: w, curves: c}, nil
}

// Aggregate scores the signals.
//
// # Description
//
// Computes the four factors in fixed order, gives Unavailable factors zero
// weight, rescales the remaining base weights to sum to 1, and rounds
// 100 * sum(weight * raw) to an integer score.
//
// # Outputs
//
//   - *Breakdown: Factors always has four entries in fixed order.
//   - error: *AggregationError when an invariant check fails.
func (a *Aggregator) Aggregate(s Signals) (*Breakdown, error) {
	sentimentRaw, sentimentProv, used := a.sentimentSeverity(s)

	factors := []factorValue{
		{name: FactorSentiment, raw: sentimentRaw, prov: sentimentProv},
		a.analogFactor(s),
		a.priceFactor(s),
		a.volatilityFactor(s),
	}

	var available float64
	for _, f := range factors {
		if f.prov == ProvenanceUnavailable {
			continue
		}
		if math.IsNaN(f.raw) || f.raw < 0 || f.raw > 1 {
			return nil, aggregationErrorf("factor %s raw value %v outside [0,1]", f.name, f.raw)
		}
		available += a.weights.of(f.name)
	}
	if !(available > 0) {
		return nil, aggregationErrorf("no factor available")
	}

	out := &Breakdown{
		Factors:       make([]FactorContribution, 0, len(factors)),
		SentimentUsed: used,
	}
	var weightSum, total float64
	for _, f := range factors {
		fc := FactorContribution{FactorName: f.name, Provenance: f.prov}
		if f.prov != ProvenanceUnavailable {
			fc.RawValue = f.raw
			fc.Weight = a.weights.of(f.name) / available
			fc.WeightedContribution = fc.Weight * fc.RawValue
		}
		if f.prov != ProvenanceComputed {
			out.Degraded = true
		}
		weightSum += fc.Weight
		total += fc.WeightedContribution
		out.Factors = append(out.Factors, fc)
	}

	if math.Abs(weightSum-1) > weightSumTolerance {
		return nil, aggregationErrorf("weights sum to %v", weightSum)
	}
	scaled := 100 * total
	if math.IsNaN(scaled) || scaled < -scoreTolerance || scaled > 100+scoreTolerance {
		return nil, aggregationErrorf("score %v outside [0,100]", scaled)
	}

	score := int(math.Round(scaled))
	switch {
	case score < 0:
		score = 0
	case score > 100:
		score = 100
	}
	out.Score = score
	out.Level = LevelForScore(score)
	return out, nil
}

// sentimentSeverity applies the sentiment curve. Without an insight the
// headline keywords stand in at the defaulted confidence.
func (a *Aggregator) sentimentSeverity(s Signals) (float64, Provenance, Sentiment) {
	sentiment, eventType, confidence := s.Insight.Sentiment, s.Insight.EventType, s.Insight.Confidence
	prov := ProvenanceComputed
	if !s.Insight.Available {
		sentiment, eventType, confidence = s.Headline.Sentiment(), EventTypeOther, a.curves.DefaultedConfidence
		prov = ProvenanceDefaulted
	}

	var sev float64
	switch sentiment {
	case SentimentNegative:
		sev = a.curves.NegativeBase
	case SentimentPositive:
		sev = a.curves.PositiveBase
	default:
		sev = a.curves.NeutralBase
	}

	switch eventType {
	case EventTypeRegulatory, EventTypeLegal:
		sev += a.curves.RegulatoryBonus
	case EventTypeProduct:
		sev += a.curves.ProductBonus
	case EventTypeMA, EventTypeEarnings:
		sev += a.curves.CorporateBonus
	}
	if len(s.Headline.HighImpact) > 0 {
		sev += a.curves.HighImpactBonus
	}
	sev = clamp01(sev)

	neutral := a.curves.NeutralBase
	raw := neutral + (sev-neutral)*(0.5+0.5*confidence)
	return raw, prov, sentiment
}

func (a *Aggregator) analogFactor(s Signals) factorValue {
	var num, den float64
	if s.AnalogsAvailable {
		for _, m := range s.Matches {
			num += m.Similarity * m.HistoricalSeverity
			den += m.Similarity
		}
	}
	if den <= 0 {
		return factorValue{name: FactorAnalog, prov: ProvenanceUnavailable}
	}
	return factorValue{name: FactorAnalog, raw: num / den, prov: ProvenanceComputed}
}

func (a *Aggregator) priceFactor(s Signals) factorValue {
	returns := s.Price.Returns()
	if !s.Price.Available || len(returns) == 0 {
		return factorValue{name: FactorPrice, prov: ProvenanceUnavailable}
	}
	var maxAbs float64
	for _, r := range returns {
		maxAbs = math.Max(maxAbs, math.Abs(r))
	}
	return factorValue{name: FactorPrice, raw: math.Min(1, maxAbs/a.curves.PriceSaturation), prov: ProvenanceComputed}
}

func (a *Aggregator) volatilityFactor(s Signals) factorValue {
	if !s.Price.Available || s.Price.Volatility20d == nil {
		return factorValue{name: FactorVolatility, prov: ProvenanceUnavailable}
	}
	return factorValue{name: FactorVolatility, raw: math.Min(1, *s.Price.Volatility20d/a.curves.VolatilitySaturation), prov: ProvenanceComputed}
}
