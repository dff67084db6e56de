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
	"time"

	"github.com/AleutianAI/AleutianRisk/pkg/telemetry"
	"github.com/AleutianAI/AleutianRisk/services/llm"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/prices"
)

// DefaultPort is the HTTP listen port when none is configured.
const DefaultPort = 12220

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheBadger = "badger"
	CacheRedis  = "redis"
)

// LLMBackendNone disables event understanding.
const LLMBackendNone = "none"

// VectorConfig locates the historical event index.
// An empty WeaviateURL disables similarity retrieval.
type VectorConfig struct {
	WeaviateURL  string
	ClassName    string
	EmbeddingURL string
	EmbedTimeout time.Duration
	EnsureSchema bool
}

// CacheConfig selects the result cache backend. TTL and whether degraded
// results are cached live on the engine config.
type CacheConfig struct {
	Backend    string
	MaxEntries int
	Path       string
	Addr       string
	Password   string
	DB         int
}

// Config holds everything needed to build the service.
type Config struct {
	Port          int
	EnableMetrics bool

	// APITokens, when set, are required as bearer tokens on /v1 routes.
	APITokens []string

	Engine    riskengine.EngineConfig
	LLM       llm.Config
	Vector    VectorConfig
	Prices    prices.InfluxConfig
	Cache     CacheConfig
	Telemetry telemetry.Config
}

// DefaultConfig returns a config that runs with an in-memory cache and no
// external collaborators until they are configured.
func DefaultConfig() Config {
	return Config{
		Port:          DefaultPort,
		EnableMetrics: true,
		Engine:        riskengine.DefaultEngineConfig(),
		LLM:           llm.Config{Backend: LLMBackendNone},
		Cache:         CacheConfig{Backend: CacheMemory},
		Telemetry:     telemetry.DefaultConfig(),
	}
}

// applyConfigDefaults fills in zero-valued fields.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheNone
	}
	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = LLMBackendNone
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "aleutian-risk"
	}
	return cfg
}
