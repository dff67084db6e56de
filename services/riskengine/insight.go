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
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine/observability"
)

// DefaultInsightTimeout bounds the event-understanding call.
const DefaultInsightTimeout = 20 * time.Second

// InsightAdapter turns the event-understanding collaborator into an AIInsight.
//
// # Description
//
// One call per event, no retries. Every failure collapses to
// UnavailableInsight; the adapter never returns an error.
//
// # Thread Safety
//
// InsightAdapter is safe for concurrent use.
type InsightAdapter struct {
	understander EventUnderstander
	guard        *guard
	logger       *slog.Logger
}

// NewInsightAdapter creates an adapter. A nil understander yields an adapter
// that always reports the insight as unavailable.
func NewInsightAdapter(u EventUnderstander, timeout time.Duration, breaker BreakerConfig, logger *slog.Logger, metrics *observability.RiskMetrics) *InsightAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultInsightTimeout
	}
	return &InsightAdapter{
		understander: u,
		guard:        newGuard(CollaboratorInsight, timeout, breaker, logger, metrics),
		logger:       logger,
	}
}

// Gather asks the collaborator about the event.
//
// # Inputs
//
//   - ctx: Caller context. Cancellation abandons the call.
//   - e: Normalized event. RawText is sent as context when present.
//
// # Outputs
//
//   - AIInsight: Available is false on timeout, transport error, open
//     breaker, or malformed response.
func (a *InsightAdapter) Gather(ctx context.Context, e Event) AIInsight {
	if a == nil || a.understander == nil {
		return UnavailableInsight()
	}

	req := InsightRequest{
		Title:   e.Title,
		Ticker:  e.Ticker,
		Date:    e.Date,
		Context: e.RawText,
	}
	resp, err := call(ctx, a.guard, func(ctx context.Context) (*InsightResponse, error) {
		return a.understander.Understand(ctx, req)
	})
	if err != nil {
		a.logger.Warn("event understanding unavailable",
			"ticker", e.Ticker, "collaborator", CollaboratorInsight, "error", err)
		return UnavailableInsight()
	}

	insight, err := normalizeInsight(resp)
	if err != nil {
		uerr := &UpstreamError{Collaborator: CollaboratorInsight, Err: err}
		a.logger.Warn("event understanding returned malformed response",
			"ticker", e.Ticker, "collaborator", CollaboratorInsight, "error", uerr)
		return UnavailableInsight()
	}
	return insight
}

// normalizeInsight maps free-text labels onto enums. An unknown sentiment, a
// missing event type, or a confidence outside [0,1] is malformed.
func normalizeInsight(resp *InsightResponse) (AIInsight, error) {
	if resp == nil {
		return AIInsight{}, fmt.Errorf("empty response")
	}
	sentiment, ok := ParseSentiment(resp.Sentiment)
	if !ok {
		return AIInsight{}, fmt.Errorf("invalid sentiment %q", resp.Sentiment)
	}
	eventType, ok := ParseEventType(resp.EventType)
	if !ok {
		return AIInsight{}, fmt.Errorf("missing event type")
	}
	if math.IsNaN(resp.Confidence) || resp.Confidence < 0 || resp.Confidence > 1 {
		return AIInsight{}, fmt.Errorf("confidence %v outside [0,1]", resp.Confidence)
	}
	return AIInsight{
		Sentiment:  sentiment,
		EventType:  eventType,
		Summary:    strings.TrimSpace(resp.Summary),
		Confidence: resp.Confidence,
		Sector:     strings.TrimSpace(resp.Sector),
		Available:  true,
	}, nil
}
