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
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine/observability"
)

// Retrieval defaults.
const (
	DefaultTopK              = 5
	DefaultMinSimilarity     = 0.5
	DefaultSimilarityTimeout = 10 * time.Second
)

// numericSentimentThreshold splits numeric historical sentiment scores into
// Negative, Neutral and Positive.
const numericSentimentThreshold = 0.3

// SimilarityRetriever finds historical analogs of an event.
//
// # Thread Safety
//
// SimilarityRetriever is safe for concurrent use.
type SimilarityRetriever struct {
	searcher      VectorSearcher
	topK          int
	minSimilarity float64
	guard         *guard
	logger        *slog.Logger
}

// NewSimilarityRetriever creates a retriever. topK <= 0 and minSimilarity
// outside [0,1] fall back to the defaults.
func NewSimilarityRetriever(s VectorSearcher, topK int, minSimilarity float64, timeout time.Duration, breaker BreakerConfig, logger *slog.Logger, metrics *observability.RiskMetrics) *SimilarityRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minSimilarity < 0 || minSimilarity > 1 || math.IsNaN(minSimilarity) {
		minSimilarity = DefaultMinSimilarity
	}
	if timeout <= 0 {
		timeout = DefaultSimilarityTimeout
	}
	return &SimilarityRetriever{
		searcher:      s,
		topK:          topK,
		minSimilarity: minSimilarity,
		guard:         newGuard(CollaboratorVector, timeout, breaker, logger, metrics),
		logger:        logger,
	}
}

// BuildQuery is the text sent to the vector index: the title, followed by the
// raw text when present, else the AI summary when present.
func BuildQuery(e Event, summary string) string {
	parts := []string{e.Title}
	switch {
	case e.RawText != "":
		parts = append(parts, e.RawText)
	case strings.TrimSpace(summary) != "":
		parts = append(parts, strings.TrimSpace(summary))
	}
	return strings.Join(parts, "\n")
}

// DistanceToSimilarity maps a cosine distance in [0,2] onto [0,1].
// It is monotonically decreasing; NaN maps to 0.
func DistanceToSimilarity(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}
	return clamp01(1 - distance/2)
}

// Retrieve returns the retained analogs, most similar first.
//
// # Description
//
// Hits are converted to similarity, filtered by the floor, deduplicated by
// reference identity keeping the most similar, ordered by similarity with
// ties going to the more recent event, and truncated to topK.
//
// # Outputs
//
//   - []SimilarEventMatch: Never nil when ok is true.
//   - bool: False when the collaborator failed. An empty list with ok true
//     means nothing cleared the floor.
func (r *SimilarityRetriever) Retrieve(ctx context.Context, e Event, query string) ([]SimilarEventMatch, bool) {
	if r == nil || r.searcher == nil {
		return nil, false
	}

	hits, err := call(ctx, r.guard, func(ctx context.Context) ([]HistoricalEvent, error) {
		return r.searcher.Search(ctx, query, r.topK)
	})
	if err != nil {
		r.logger.Warn("vector search unavailable",
			"ticker", e.Ticker, "collaborator", CollaboratorVector, "error", err)
		return nil, false
	}

	best := make(map[string]SimilarEventMatch, len(hits))
	for _, h := range hits {
		sim := DistanceToSimilarity(h.Distance)
		if sim < r.minSimilarity {
			continue
		}
		m := SimilarEventMatch{
			ReferenceID:         h.ID,
			ReferenceTitle:      strings.TrimSpace(h.Title),
			Similarity:          sim,
			HistoricalSentiment: historicalSentiment(h.Sentiment),
			HistoricalSeverity:  severity(h.Severity),
			EventDate:           h.EventDate.UTC(),
		}
		key := referenceKey(m)
		if prev, seen := best[key]; seen && !ranksBefore(m, prev) {
			continue
		}
		best[key] = m
	}

	matches := make([]SimilarEventMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		return ranksBefore(matches[i], matches[j])
	})
	if len(matches) > r.topK {
		matches = matches[:r.topK]
	}
	return matches, true
}

// ranksBefore orders by similarity, then recency, then reference ID.
func ranksBefore(a, b SimilarEventMatch) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	if !a.EventDate.Equal(b.EventDate) {
		return a.EventDate.After(b.EventDate)
	}
	return a.ReferenceID < b.ReferenceID
}

func referenceKey(m SimilarEventMatch) string {
	if m.ReferenceID != "" {
		return "id:" + m.ReferenceID
	}
	return "title:" + strings.ToLower(strings.Join(strings.Fields(m.ReferenceTitle), " "))
}

// historicalSentiment accepts either a label or a numeric score in [-1,1].
func historicalSentiment(label string) Sentiment {
	if v, err := strconv.ParseFloat(strings.TrimSpace(label), 64); err == nil {
		switch {
		case v < -numericSentimentThreshold:
			return SentimentNegative
		case v > numericSentimentThreshold:
			return SentimentPositive
		default:
			return SentimentNeutral
		}
	}
	s, _ := ParseSentiment(label)
	return s
}

func severity(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
