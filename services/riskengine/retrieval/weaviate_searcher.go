// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval implements riskengine.VectorSearcher on Weaviate.
//
// Queries are embedded by an external embedding service and matched with a
// NearVector search against the HistoricalEvent class.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WeaviateSearcher finds historical events near a query text.
//
// # Thread Safety
//
// Safe for concurrent use. The Weaviate client and embedder are shared and
// never mutated after construction.
type WeaviateSearcher struct {
	client    *weaviate.Client
	embedder  Embedder
	className string
	logger    *slog.Logger
}

// NewWeaviateSearcher creates a searcher over className. An empty class
// name means DefaultClassName.
func NewWeaviateSearcher(client *weaviate.Client, embedder Embedder, className string, logger *slog.Logger) (*WeaviateSearcher, error) {
	if client == nil {
		return nil, errors.New("weaviate client is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if className == "" {
		className = DefaultClassName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WeaviateSearcher{
		client:    client,
		embedder:  embedder,
		className: className,
		logger:    logger,
	}, nil
}

// Search embeds query and returns up to topK nearest events.
//
// # Outputs
//
//   - []riskengine.HistoricalEvent: Hits in Weaviate's order (nearest first).
//     Hits without a distance are dropped.
//   - error: Non-nil if embedding, the query or parsing fails.
func (s *WeaviateSearcher) Search(ctx context.Context, query string, topK int) ([]riskengine.HistoricalEvent, error) {
	ctx, span := tracer.Start(ctx, "WeaviateSearcher.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("weaviate.class", s.className),
		attribute.Int("search.top_k", topK),
	)

	if topK <= 0 {
		return []riskengine.HistoricalEvent{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed failed")
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := []graphql.Field{
		{Name: "event_id"},
		{Name: "title"},
		{Name: "sentiment"},
		{Name: "severity"},
		{Name: "event_date"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "distance"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := ParseGraphQLResponse[historicalEventQueryResponse](result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	events := s.toHistoricalEvents(parsed.Get[s.className])
	span.SetAttributes(attribute.Int("search.hits", len(events)))
	return events, nil
}

func (s *WeaviateSearcher) toHistoricalEvents(hits []historicalEventHit) []riskengine.HistoricalEvent {
	events := make([]riskengine.HistoricalEvent, 0, len(hits))
	for _, h := range hits {
		if h.Additional.Distance == nil {
			s.logger.Debug("dropping hit without distance", "id", h.Additional.ID)
			continue
		}
		id := h.EventID
		if id == "" {
			id = h.Additional.ID
		}
		ev := riskengine.HistoricalEvent{
			ID:        id,
			Title:     h.Title,
			Distance:  *h.Additional.Distance,
			Sentiment: h.Sentiment,
		}
		if h.Severity != nil {
			ev.Severity = *h.Severity
		}
		if h.EventDate != "" {
			if t, err := time.Parse(time.RFC3339, h.EventDate); err == nil {
				ev.EventDate = t.UTC()
			} else {
				s.logger.Debug("unparseable event_date", "id", id, "event_date", h.EventDate)
			}
		}
		events = append(events, ev)
	}
	return events
}
