// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package riskapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/AleutianAI/AleutianRisk/services/llm"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/cache"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/observability"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/prices"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/retrieval"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/understanding"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// Components owns the engine and every shared client behind it.
//
// # Description
//
// Clients are created once here and handed to the engine. They are never
// mutated afterwards. Close releases them in reverse creation order.
//
// Collaborators that are not configured are left nil. The engine reports
// their factors as Unavailable instead of failing.
type Components struct {
	Engine *riskengine.Engine

	logger  *slog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// NewComponents builds the engine from cfg. metrics may be nil.
func NewComponents(ctx context.Context, cfg Config, logger *slog.Logger, metrics *observability.RiskMetrics) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Components{logger: logger}

	understander, err := c.initUnderstander(cfg.LLM)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	searcher, err := c.initSearcher(ctx, cfg.Vector)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector search: %w", err)
	}

	series, err := c.initPrices(cfg.Prices)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize price series: %w", err)
	}

	resultCache, err := c.initCache(ctx, cfg.Cache)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	opts := []riskengine.Option{riskengine.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, riskengine.WithMetrics(metrics))
	}
	if resultCache != nil {
		opts = append(opts, riskengine.WithCache(resultCache))
	}

	c.Engine, err = riskengine.NewEngine(cfg.Engine, riskengine.Collaborators{
		Understander: understander,
		Searcher:     searcher,
		Prices:       series,
	}, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	return c, nil
}

// Close releases every client. Errors are joined.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.close(); err != nil {
			c.logger.Warn("close failed", "component", cl.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", cl.name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Components) addCloser(name string, fn func() error) {
	c.closers = append(c.closers, namedCloser{name: name, close: fn})
}

func (c *Components) initUnderstander(cfg llm.Config) (riskengine.EventUnderstander, error) {
	if strings.EqualFold(cfg.Backend, LLMBackendNone) {
		c.logger.Info("LLM backend disabled, AI insight will be unavailable")
		return nil, nil
	}
	client, err := llm.New(cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Using LLM backend", "backend", cfg.Backend, "model", cfg.Model)
	return understanding.NewLLMUnderstander(client, c.logger), nil
}

func (c *Components) initSearcher(ctx context.Context, cfg VectorConfig) (riskengine.VectorSearcher, error) {
	weaviateURL := strings.Trim(cfg.WeaviateURL, "\"' ")
	if weaviateURL == "" {
		c.logger.Info("Weaviate URL not configured, historical analogs will be unavailable")
		return nil, nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid Weaviate URL: %s", weaviateURL)
	}
	if cfg.EmbeddingURL == "" {
		return nil, errors.New("embedding service URL is required when Weaviate is configured")
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	if cfg.EnsureSchema {
		// Not fatal: the index may be owned by another service.
		if err := retrieval.EnsureSchema(ctx, client, cfg.ClassName, c.logger); err != nil {
			c.logger.Warn("Weaviate schema check failed", "error", err)
		}
	}

	embedder := retrieval.NewHTTPEmbedder(cfg.EmbeddingURL, cfg.EmbedTimeout, c.logger)
	searcher, err := retrieval.NewWeaviateSearcher(client, embedder, cfg.ClassName, c.logger)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Weaviate client initialized", "url", weaviateURL)
	return searcher, nil
}

func (c *Components) initPrices(cfg prices.InfluxConfig) (riskengine.PriceSeries, error) {
	if cfg.URL == "" {
		c.logger.Info("InfluxDB URL not configured, price reaction will be unavailable")
		return nil, nil
	}
	series, err := prices.NewInfluxSeries(cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.addCloser("influxdb", func() error {
		series.Close()
		return nil
	})
	c.logger.Info("InfluxDB client initialized", "url", cfg.URL, "bucket", cfg.Bucket)
	return series, nil
}

func (c *Components) initCache(ctx context.Context, cfg CacheConfig) (riskengine.ResultCache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", CacheNone:
		return nil, nil
	case CacheMemory:
		return cache.NewMemoryCache(cfg.MaxEntries), nil
	case CacheBadger:
		bcfg := cache.DefaultBadgerConfig(cfg.Path)
		bcfg.Logger = c.logger
		bc, err := cache.OpenBadgerCache(bcfg)
		if err != nil {
			return nil, err
		}
		c.addCloser("badger", bc.Close)
		return bc, nil
	case CacheRedis:
		client, err := cache.DialRedis(ctx, cfg.Addr, cfg.Password, cfg.DB)
		if err != nil {
			return nil, err
		}
		c.addCloser("redis", client.Close)
		return cache.NewRedisCache(client), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
