// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// DefaultClassName is the Weaviate class holding historical events.
const DefaultClassName = "HistoricalEvent"

// HistoricalEventSchema returns the class definition for historical events.
// Vectors are supplied by the embedding service, so the vectorizer is none
// and the distance metric is cosine.
func HistoricalEventSchema(className string) *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       className,
		Description: "A past market event with its observed sentiment and impact.",
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{
				Name:            "event_id",
				DataType:        []string{"text"},
				Description:     "Stable identifier of the historical event.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "title",
				DataType:     []string{"text"},
				Description:  "Headline of the historical event.",
				Tokenization: "word",
			},
			{
				Name:            "ticker",
				DataType:        []string{"text"},
				Description:     "Ticker the event concerned.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "sentiment",
				DataType:    []string{"text"},
				Description: "Observed sentiment: a label or a score in [-1, 1].",
			},
			{
				Name:        "severity",
				DataType:    []string{"number"},
				Description: "Observed impact in [0, 1].",
			},
			{
				Name:            "event_date",
				DataType:        []string{"date"},
				Description:     "When the event happened.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureSchema creates the historical event class if it does not exist.
func EnsureSchema(ctx context.Context, client *weaviate.Client, className string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if className == "" {
		className = DefaultClassName
	}

	_, err := client.Schema().ClassGetter().WithClassName(className).Do(ctx)
	if err == nil {
		logger.Debug("schema already exists", "class", className)
		return nil
	}

	logger.Info("schema not found, creating it", "class", className)
	if err := client.Schema().ClassCreator().WithClass(HistoricalEventSchema(className)).Do(ctx); err != nil {
		return fmt.Errorf("failed to create schema for class %s: %w", className, err)
	}
	logger.Info("created schema", "class", className)
	return nil
}
