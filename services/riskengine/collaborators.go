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
	"time"
)

// =============================================================================
// Event understanding
// =============================================================================

// InsightRequest is what the engine sends to the event-understanding service.
type InsightRequest struct {
	Title   string
	Ticker  string
	Date    time.Time
	Context string
}

// InsightResponse is the collaborator's raw answer. Labels are free text;
// the InsightAdapter maps them onto enums and rejects malformed answers.
type InsightResponse struct {
	Sentiment  string
	EventType  string
	Summary    string
	Confidence float64
	Sector     string
}

// EventUnderstander produces a qualitative read of an event.
//
// # Description
//
// Implementations call an LLM or similar service. They should honor ctx
// cancellation; the engine enforces its own deadline regardless.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type EventUnderstander interface {
	Understand(ctx context.Context, req InsightRequest) (*InsightResponse, error)
}

// =============================================================================
// Vector search
// =============================================================================

// HistoricalEvent is one nearest-neighbor hit from the vector index.
//
// Distance is a cosine distance in [0, 2]. Severity is the stored impact
// proxy in [0, 1]. Sentiment is a free-text label.
type HistoricalEvent struct {
	ID        string
	Title     string
	Distance  float64
	Sentiment string
	Severity  float64
	EventDate time.Time
}

// VectorSearcher returns the nearest historical events to a query text.
type VectorSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]HistoricalEvent, error)
}

// =============================================================================
// Price series
// =============================================================================

// DailyClose is one trading day's closing price.
type DailyClose struct {
	Date  time.Time
	Close float64
}

// PriceSeries returns daily closes for a ticker within [from, to], ascending.
// Gaps (weekends, holidays, suspensions) are simply absent.
type PriceSeries interface {
	DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]DailyClose, error)
}

// =============================================================================
// Result cache
// =============================================================================

// ResultCache is an optional read-through cache of sealed assessments.
//
// # Description
//
// Add must be insert-if-absent: when the key already holds a live entry, the
// existing entry wins. Entries are immutable and expire after ttl.
// Implementations return copies so callers cannot mutate cached values.
type ResultCache interface {
	Get(ctx context.Context, key string) (*RiskAssessment, bool, error)
	Add(ctx context.Context, key string, a *RiskAssessment, ttl time.Duration) error
}
