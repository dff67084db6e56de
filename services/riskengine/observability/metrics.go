// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the risk engine.
//
// # Description
//
// Metrics cover:
//   - Assessment outcomes and latency
//   - Collaborator calls by status (ok, error, timeout, breaker_open)
//   - Factor provenance (Computed, Defaulted, Unavailable)
//   - Result cache lookups
//   - The distribution of emitted scores
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint of the risk API.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every Record method is a no-op on a nil *RiskMetrics, so components can
// run without metrics in tests.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian_risk"

// Outcome labels for assessments_total.
const (
	OutcomeComplete   = "complete"
	OutcomeDegraded   = "degraded"
	OutcomeFailed     = "failed"
	OutcomeValidation = "validation_error"
	OutcomeCanceled   = "canceled"
	OutcomeCacheHit   = "cache_hit"
)

// Cache lookup labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// RiskMetrics holds all Prometheus metrics for the engine.
//
// # Fields
//
//   - AssessmentsTotal: Assessments by outcome
//   - AssessmentDuration: Assessment latency by outcome
//   - CollaboratorCallsTotal: Collaborator calls by collaborator and status
//   - CollaboratorDuration: Collaborator latency by collaborator
//   - FactorProvenanceTotal: Factor provenance by factor and provenance
//   - CacheLookupsTotal: Cache lookups by result
//   - RiskScore: Distribution of emitted scores
//   - BreakerState: Current breaker state per collaborator (0 closed, 1 half-open, 2 open)
type RiskMetrics struct {
	AssessmentsTotal       *prometheus.CounterVec
	AssessmentDuration     *prometheus.HistogramVec
	CollaboratorCallsTotal *prometheus.CounterVec
	CollaboratorDuration   *prometheus.HistogramVec
	FactorProvenanceTotal  *prometheus.CounterVec
	CacheLookupsTotal      *prometheus.CounterVec
	RiskScore              prometheus.Histogram
	BreakerState           *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *RiskMetrics
)

// InitMetrics registers the metrics with the default Prometheus registry.
// Repeated calls return the same instance.
func InitMetrics() *RiskMetrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewRiskMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewRiskMetrics creates and registers the metrics with reg.
//
// # Inputs
//
//   - reg: Registry to register with. Tests pass prometheus.NewRegistry().
//
// # Limitations
//
//   - Panics if the same registry already holds these metrics.
func NewRiskMetrics(reg prometheus.Registerer) *RiskMetrics {
	f := promauto.With(reg)
	return &RiskMetrics{
		AssessmentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "assessments_total",
				Help:      "Total risk assessments by outcome",
			},
			[]string{"outcome"},
		),

		AssessmentDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "assessment_duration_seconds",
				Help:      "Risk assessment latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"outcome"},
		),

		CollaboratorCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "collaborator_calls_total",
				Help:      "Total collaborator calls by collaborator and status",
			},
			[]string{"collaborator", "status"},
		),

		CollaboratorDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "collaborator_duration_seconds",
				Help:      "Collaborator call latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"collaborator"},
		),

		FactorProvenanceTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "factor_provenance_total",
				Help:      "Factor values by factor and provenance",
			},
			[]string{"factor", "provenance"},
		),

		CacheLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by result",
			},
			[]string{"result"},
		),

		RiskScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "risk_score",
				Help:      "Distribution of emitted risk scores",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
		),

		BreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "breaker_state",
				Help:      "Collaborator circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"collaborator"},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordAssessment records a finished assessment. score is observed only
// for outcomes that produce one.
func (m *RiskMetrics) RecordAssessment(outcome string, d time.Duration, score int) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(outcome).Inc()
	m.AssessmentDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == OutcomeComplete || outcome == OutcomeDegraded {
		m.RiskScore.Observe(float64(score))
	}
}

// RecordCollaboratorCall records one guarded collaborator call.
func (m *RiskMetrics) RecordCollaboratorCall(collaborator, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CollaboratorCallsTotal.WithLabelValues(collaborator, status).Inc()
	m.CollaboratorDuration.WithLabelValues(collaborator).Observe(d.Seconds())
}

// RecordProvenance records the provenance of one factor.
func (m *RiskMetrics) RecordProvenance(factor, provenance string) {
	if m == nil {
		return
	}
	m.FactorProvenanceTotal.WithLabelValues(factor, provenance).Inc()
}

// RecordCacheLookup records a cache lookup result.
func (m *RiskMetrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetBreakerState records a breaker transition.
func (m *RiskMetrics) SetBreakerState(collaborator string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(collaborator).Set(float64(state))
}
