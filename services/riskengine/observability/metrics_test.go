// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMetrics creates metrics on an isolated registry so tests never
// collide with the global one.
func newTestMetrics(t *testing.T) *RiskMetrics {
	t.Helper()
	return NewRiskMetrics(prometheus.NewRegistry())
}

func TestRecordAssessment(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordAssessment(OutcomeComplete, 120*time.Millisecond, 72)
	m.RecordAssessment(OutcomeDegraded, 80*time.Millisecond, 40)
	m.RecordAssessment(OutcomeValidation, time.Millisecond, 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues(OutcomeComplete)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues(OutcomeDegraded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues(OutcomeValidation)))

	// Only scored outcomes reach the score histogram.
	var out dto.Metric
	require.NoError(t, m.RiskScore.Write(&out))
	assert.Equal(t, uint64(2), out.GetHistogram().GetSampleCount())
	assert.InDelta(t, 112.0, out.GetHistogram().GetSampleSum(), 1e-9)

	assert.Equal(t, 3, testutil.CollectAndCount(m.AssessmentDuration))
}

func TestRecordCollaboratorCall(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCollaboratorCall("vector_search", "ok", 10*time.Millisecond)
	m.RecordCollaboratorCall("vector_search", "timeout", time.Second)
	m.RecordCollaboratorCall("vector_search", "timeout", time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CollaboratorCallsTotal.WithLabelValues("vector_search", "ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CollaboratorCallsTotal.WithLabelValues("vector_search", "timeout")))
}

func TestRecordProvenanceAndCache(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordProvenance("analog_severity", "Unavailable")
	m.RecordCacheLookup(CacheMiss)
	m.RecordCacheLookup(CacheHit)
	m.RecordCacheLookup(CacheHit)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.FactorProvenanceTotal.WithLabelValues("analog_severity", "Unavailable")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues(CacheHit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues(CacheMiss)))
}

func TestSetBreakerState(t *testing.T) {
	m := newTestMetrics(t)

	m.SetBreakerState("price_series", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.BreakerState.WithLabelValues("price_series")))

	m.SetBreakerState("price_series", 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.BreakerState.WithLabelValues("price_series")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *RiskMetrics
	assert.NotPanics(t, func() {
		m.RecordAssessment(OutcomeComplete, time.Second, 50)
		m.RecordCollaboratorCall("x", "ok", time.Second)
		m.RecordProvenance("f", "Computed")
		m.RecordCacheLookup(CacheHit)
		m.SetBreakerState("x", 1)
	})
}
