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
	"strings"
	"time"
)

// AlgorithmVersion is the version of the scoring and explanation algorithm.
// Increment when making changes that affect scores or reasoning text.
const AlgorithmVersion = "1.0"

// Default base weights. They sum to 1.0.
const (
	DefaultWeightSentiment  = 0.30
	DefaultWeightAnalog     = 0.30
	DefaultWeightPrice      = 0.25
	DefaultWeightVolatility = 0.15
)

// Score band boundaries. Low < 34 <= Medium <= 66 < High.
const (
	MediumBandFloor = 34
	HighBandFloor   = 67
)

// =============================================================================
// Enumerations
// =============================================================================

// Sentiment is the directional read of an event.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// ParseSentiment maps a collaborator label onto a Sentiment.
// The second return is false for labels that cannot be mapped.
func ParseSentiment(s string) (Sentiment, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "bullish", "pos":
		return SentimentPositive, true
	case "neutral", "mixed", "neu":
		return SentimentNeutral, true
	case "negative", "bearish", "neg":
		return SentimentNegative, true
	default:
		return SentimentNeutral, false
	}
}

// EventType is the category of an event.
type EventType string

const (
	EventTypeRegulatory EventType = "Regulatory"
	EventTypeEarnings   EventType = "Earnings"
	EventTypeMA         EventType = "M&A"
	EventTypeProduct    EventType = "Product"
	EventTypeLegal      EventType = "Legal"
	EventTypeOther      EventType = "Other"
)

// ParseEventType maps a collaborator label onto an EventType.
// Unknown non-empty labels map to Other; the second return is false only
// for an empty label.
func ParseEventType(s string) (EventType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "":
		return EventTypeOther, false
	case "regulatory", "regulation", "compliance":
		return EventTypeRegulatory, true
	case "earnings", "earnings report", "guidance":
		return EventTypeEarnings, true
	case "m&a", "m and a", "merger", "acquisition", "mergers and acquisitions":
		return EventTypeMA, true
	case "product", "product launch", "recall":
		return EventTypeProduct, true
	case "legal", "lawsuit", "litigation":
		return EventTypeLegal, true
	default:
		return EventTypeOther, true
	}
}

// RiskLevel is the band a score falls into.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// LevelForScore maps a 0-100 score onto its fixed band.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= HighBandFloor:
		return RiskHigh
	case score >= MediumBandFloor:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Provenance records where a factor's value came from.
type Provenance string

const (
	// ProvenanceComputed means the value was derived from a live signal.
	ProvenanceComputed Provenance = "Computed"
	// ProvenanceDefaulted means the signal failed and a fallback value was
	// used. The factor keeps its weight.
	ProvenanceDefaulted Provenance = "Defaulted"
	// ProvenanceUnavailable means no value exists. The factor's weight is
	// redistributed.
	ProvenanceUnavailable Provenance = "Unavailable"
)

// FactorName identifies a scoring factor.
type FactorName string

const (
	FactorSentiment  FactorName = "sentiment_severity"
	FactorAnalog     FactorName = "analog_severity"
	FactorPrice      FactorName = "price_reaction"
	FactorVolatility FactorName = "volatility"
)

// factorOrder is the fixed order of the breakdown and of explanation ties.
var factorOrder = []FactorName{FactorSentiment, FactorAnalog, FactorPrice, FactorVolatility}

// Stage is the lifecycle stage of a single assessment.
type Stage string

const (
	StagePending     Stage = "pending"
	StageNormalizing Stage = "normalizing"
	StageGathering   Stage = "gathering"
	StageAggregating Stage = "aggregating"
	StageComplete    Stage = "complete"
	StageDegraded    Stage = "degraded"
	StageFailed      Stage = "failed"
)

// =============================================================================
// Input
// =============================================================================

// RawEvent is an unvalidated event as received from a caller.
type RawEvent struct {
	Title   string `json:"title"`
	Ticker  string `json:"ticker"`
	Date    string `json:"date"`
	RawText string `json:"raw_text,omitempty"`
}

// Event is a validated, canonical event. Construct it with Normalize.
type Event struct {
	Title   string
	Ticker  string
	Date    time.Time
	RawText string
}

// =============================================================================
// Gathered signals
// =============================================================================

// AIInsight is the normalized read of the event-understanding collaborator.
type AIInsight struct {
	Sentiment  Sentiment `json:"sentiment"`
	EventType  EventType `json:"event_type"`
	Summary    string    `json:"summary"`
	Confidence float64   `json:"confidence"`
	Sector     string    `json:"sector,omitempty"`
	Available  bool      `json:"available"`
}

// UnavailableInsight is the neutral insight used when the collaborator fails.
func UnavailableInsight() AIInsight {
	return AIInsight{
		Sentiment:  SentimentNeutral,
		EventType:  EventTypeOther,
		Confidence: 0,
		Available:  false,
	}
}

// SimilarEventMatch is a retained historical analog.
type SimilarEventMatch struct {
	ReferenceID         string    `json:"reference_id"`
	ReferenceTitle      string    `json:"reference_title"`
	Similarity          float64   `json:"similarity"`
	HistoricalSentiment Sentiment `json:"historical_sentiment"`
	HistoricalSeverity  float64   `json:"historical_severity"`
	EventDate           time.Time `json:"event_date"`
}

// HorizonPrice records the bar used for one forward horizon.
type HorizonPrice struct {
	Days  int       `json:"days"`
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceReaction holds forward returns and trailing volatility around an event.
// Nil pointers mean the value could not be computed.
type PriceReaction struct {
	Return1d      *float64       `json:"return_1d"`
	Return3d      *float64       `json:"return_3d"`
	Return5d      *float64       `json:"return_5d"`
	Volatility20d *float64       `json:"volatility_20d"`
	Available     bool           `json:"available"`
	BaselineDate  *time.Time     `json:"baseline_date,omitempty"`
	BaselineClose *float64       `json:"baseline_close,omitempty"`
	Horizons      []HorizonPrice `json:"horizons,omitempty"`
}

// Returns lists the non-nil forward returns in horizon order.
func (p PriceReaction) Returns() []float64 {
	out := make([]float64, 0, 3)
	for _, r := range []*float64{p.Return1d, p.Return3d, p.Return5d} {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// =============================================================================
// Output
// =============================================================================

// FactorContribution is one line of the score breakdown.
type FactorContribution struct {
	FactorName           FactorName `json:"factor_name"`
	RawValue             float64    `json:"raw_value"`
	Weight               float64    `json:"weight"`
	WeightedContribution float64    `json:"weighted_contribution"`
	Provenance           Provenance `json:"provenance"`
}

// RawMetrics carries the intermediate measurements behind the factors.
type RawMetrics struct {
	SentimentUsed         Sentiment      `json:"sentiment_used"`
	NegativeKeywords      []string       `json:"negative_keywords"`
	PositiveKeywords      []string       `json:"positive_keywords"`
	HighImpactKeywords    []string       `json:"high_impact_keywords"`
	SimilarEventCount     int            `json:"similar_event_count"`
	NegativeAnalogCount   int            `json:"negative_analog_count"`
	HighImpactAnalogCount int            `json:"high_impact_analog_count"`
	PriceHorizons         []HorizonPrice `json:"price_horizons"`
}

// RiskAssessment is the sealed result of one assessment.
//
// It carries no timestamps or random identifiers, so identical inputs and
// collaborator responses serialize to identical bytes.
type RiskAssessment struct {
	Ticker           string               `json:"ticker"`
	EventDate        string               `json:"event_date"`
	RiskScore        int                  `json:"risk_score"`
	RiskLevel        RiskLevel            `json:"risk_level"`
	FactorBreakdown  []FactorContribution `json:"factor_breakdown"`
	Reasoning        string               `json:"reasoning"`
	Recommendations  []string             `json:"recommendations"`
	Degraded         bool                 `json:"degraded"`
	Summary          string               `json:"summary,omitempty"`
	SimilarEvents    []SimilarEventMatch  `json:"similar_events"`
	PriceReaction    PriceReaction        `json:"price_reaction"`
	RawMetrics       RawMetrics           `json:"raw_metrics"`
	RiskFactors      []string             `json:"risk_factors"`
	AlgorithmVersion string               `json:"algorithm_version"`
}

// Factor returns the breakdown line for name.
func (a *RiskAssessment) Factor(name FactorName) (FactorContribution, bool) {
	for _, f := range a.FactorBreakdown {
		if f.FactorName == name {
			return f, true
		}
	}
	return FactorContribution{}, false
}

// Clone returns a deep copy so cached assessments are never shared mutably.
func (a *RiskAssessment) Clone() *RiskAssessment {
	if a == nil {
		return nil
	}
	c := *a
	c.FactorBreakdown = cloneSlice(a.FactorBreakdown)
	c.Recommendations = cloneSlice(a.Recommendations)
	c.RiskFactors = cloneSlice(a.RiskFactors)
	c.SimilarEvents = cloneSlice(a.SimilarEvents)
	c.PriceReaction = clonePriceReaction(a.PriceReaction)
	c.RawMetrics.NegativeKeywords = cloneSlice(a.RawMetrics.NegativeKeywords)
	c.RawMetrics.PositiveKeywords = cloneSlice(a.RawMetrics.PositiveKeywords)
	c.RawMetrics.HighImpactKeywords = cloneSlice(a.RawMetrics.HighImpactKeywords)
	c.RawMetrics.PriceHorizons = cloneSlice(a.RawMetrics.PriceHorizons)
	return &c
}

func clonePriceReaction(p PriceReaction) PriceReaction {
	c := p
	c.Return1d = cloneFloat(p.Return1d)
	c.Return3d = cloneFloat(p.Return3d)
	c.Return5d = cloneFloat(p.Return5d)
	c.Volatility20d = cloneFloat(p.Volatility20d)
	c.BaselineClose = cloneFloat(p.BaselineClose)
	if p.BaselineDate != nil {
		d := *p.BaselineDate
		c.BaselineDate = &d
	}
	c.Horizons = cloneSlice(p.Horizons)
	return c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
