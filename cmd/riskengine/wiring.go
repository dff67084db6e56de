// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/AleutianAI/AleutianRisk/cmd/riskengine/config"
	"github.com/AleutianAI/AleutianRisk/pkg/telemetry"
	"github.com/AleutianAI/AleutianRisk/services/llm"
	"github.com/AleutianAI/AleutianRisk/services/riskapi"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/prices"
)

// toServiceConfig maps the file config onto the service config.
func toServiceConfig(c *config.AppConfig) riskapi.Config {
	eng := riskengine.DefaultEngineConfig()
	eng.InsightTimeout = c.Engine.InsightTimeout.Std()
	eng.SimilarityTimeout = c.Engine.SimilarityTimeout.Std()
	eng.PriceTimeout = c.Engine.PriceTimeout.Std()
	eng.TopK = c.Engine.TopK
	eng.MinSimilarity = c.Engine.MinSimilarity
	eng.Weights = c.Engine.Weights
	eng.Curves = c.Engine.Curves
	eng.EnrichQueryWithSummary = c.Engine.EnrichQueryWithSummary
	eng.Breaker = riskengine.BreakerConfig{
		ConsecutiveFailures: c.Engine.Breaker.ConsecutiveFailures,
		OpenTimeout:         c.Engine.Breaker.OpenTimeout.Std(),
		HalfOpenRequests:    c.Engine.Breaker.HalfOpenRequests,
	}
	eng.CacheTTL = c.Cache.TTL.Std()
	eng.CacheDegraded = c.Cache.CacheDegraded

	tel := telemetry.DefaultConfig()
	if c.Telemetry.ServiceName != "" {
		tel.ServiceName = c.Telemetry.ServiceName
	}
	tel.TraceExporter = c.Telemetry.TraceExporter
	tel.MetricExporter = c.Telemetry.MetricExporter
	tel.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	tel.SampleRate = c.Telemetry.SampleRate

	return riskapi.Config{
		Port:          c.Server.Port,
		EnableMetrics: c.Server.EnableMetrics,
		APITokens:     c.Server.APITokens,
		Engine:        eng,
		LLM: llm.Config{
			Backend:           c.LLM.Backend,
			Model:             c.LLM.Model,
			BaseURL:           c.LLM.BaseURL,
			APIKey:            c.LLM.APIKey,
			Timeout:           c.LLM.Timeout.Std(),
			MaxTokens:         c.LLM.MaxTokens,
			RequestsPerSecond: c.LLM.RequestsPerSecond,
			Burst:             c.LLM.Burst,
		},
		Vector: riskapi.VectorConfig{
			WeaviateURL:  c.Vector.WeaviateURL,
			ClassName:    c.Vector.ClassName,
			EmbeddingURL: c.Vector.EmbeddingURL,
			EmbedTimeout: c.Engine.SimilarityTimeout.Std(),
			EnsureSchema: c.Vector.EnsureSchema,
		},
		Prices: prices.InfluxConfig{
			URL:         c.Prices.URL,
			Token:       c.Prices.Token,
			Org:         c.Prices.Org,
			Bucket:      c.Prices.Bucket,
			Measurement: c.Prices.Measurement,
		},
		Cache: riskapi.CacheConfig{
			Backend:    c.Cache.Backend,
			MaxEntries: c.Cache.MaxEntries,
			Path:       c.Cache.Path,
			Addr:       c.Cache.Addr,
			Password:   c.Cache.Password,
			DB:         c.Cache.DB,
		},
		Telemetry: tel,
	}
}
