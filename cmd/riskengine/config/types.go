// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config defines the riskengine configuration file.
//
// The file is YAML by default; a path ending in .toml is read as TOML.
// Every field can be overridden from the environment (see ApplyEnvOverrides).
package config

import (
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
)

// Duration is a time.Duration that reads and writes as "20s" in both
// YAML and TOML.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig is the root of the configuration file.
type AppConfig struct {
	Engine    EngineSection    `yaml:"engine" toml:"engine"`
	LLM       LLMSection       `yaml:"llm" toml:"llm"`
	Vector    VectorSection    `yaml:"vector" toml:"vector"`
	Prices    PricesSection    `yaml:"prices" toml:"prices"`
	Cache     CacheSection     `yaml:"cache" toml:"cache"`
	Server    ServerSection    `yaml:"server" toml:"server"`
	Telemetry TelemetrySection `yaml:"telemetry" toml:"telemetry"`
	Logging   LoggingSection   `yaml:"logging" toml:"logging"`
}

// EngineSection tunes the assessment engine.
type EngineSection struct {
	InsightTimeout         Duration           `yaml:"insight_timeout" toml:"insight_timeout" validate:"gt=0"`
	SimilarityTimeout      Duration           `yaml:"similarity_timeout" toml:"similarity_timeout" validate:"gt=0"`
	PriceTimeout           Duration           `yaml:"price_timeout" toml:"price_timeout" validate:"gt=0"`
	TopK                   int                `yaml:"top_k" toml:"top_k" validate:"gte=1,lte=50"`
	MinSimilarity          float64            `yaml:"min_similarity" toml:"min_similarity" validate:"gte=0,lte=1"`
	EnrichQueryWithSummary bool               `yaml:"enrich_query_with_summary" toml:"enrich_query_with_summary"`
	Weights                riskengine.Weights `yaml:"weights" toml:"weights"`
	Curves                 riskengine.Curves  `yaml:"curves" toml:"curves"`
	Breaker                BreakerSection     `yaml:"breaker" toml:"breaker"`
}

// BreakerSection configures the per-collaborator circuit breakers.
type BreakerSection struct {
	ConsecutiveFailures uint32   `yaml:"consecutive_failures" toml:"consecutive_failures" validate:"gte=1"`
	OpenTimeout         Duration `yaml:"open_timeout" toml:"open_timeout" validate:"gt=0"`
	HalfOpenRequests    uint32   `yaml:"half_open_requests" toml:"half_open_requests" validate:"gte=1"`
}

// LLMSection selects the event-understanding backend.
type LLMSection struct {
	Backend           string   `yaml:"backend" toml:"backend" validate:"oneof=none ollama openai anthropic"`
	Model             string   `yaml:"model" toml:"model"`
	BaseURL           string   `yaml:"base_url" toml:"base_url" validate:"omitempty,url"`
	APIKey            string   `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	Timeout           Duration `yaml:"timeout" toml:"timeout" validate:"gte=0"`
	MaxTokens         int      `yaml:"max_tokens" toml:"max_tokens" validate:"gte=0"`
	RequestsPerSecond float64  `yaml:"requests_per_second" toml:"requests_per_second" validate:"gte=0"`
	Burst             int      `yaml:"burst" toml:"burst" validate:"gte=0"`
}

// VectorSection locates the historical event index.
type VectorSection struct {
	WeaviateURL  string `yaml:"weaviate_url" toml:"weaviate_url" validate:"omitempty,url"`
	ClassName    string `yaml:"class_name" toml:"class_name"`
	EmbeddingURL string `yaml:"embedding_url" toml:"embedding_url" validate:"required_with=WeaviateURL"`
	EnsureSchema bool   `yaml:"ensure_schema" toml:"ensure_schema"`
}

// PricesSection locates daily closes in InfluxDB.
type PricesSection struct {
	URL         string `yaml:"url" toml:"url" validate:"omitempty,url"`
	Token       string `yaml:"token,omitempty" toml:"token,omitempty"`
	Org         string `yaml:"org" toml:"org" validate:"required_with=URL"`
	Bucket      string `yaml:"bucket" toml:"bucket" validate:"required_with=URL"`
	Measurement string `yaml:"measurement" toml:"measurement"`
}

// CacheSection selects the result cache.
type CacheSection struct {
	Backend       string   `yaml:"backend" toml:"backend" validate:"oneof=none memory badger redis"`
	TTL           Duration `yaml:"ttl" toml:"ttl" validate:"gte=0"`
	CacheDegraded bool     `yaml:"cache_degraded" toml:"cache_degraded"`
	MaxEntries    int      `yaml:"max_entries" toml:"max_entries" validate:"gte=0"`
	Path          string   `yaml:"path" toml:"path" validate:"required_if=Backend badger"`
	Addr          string   `yaml:"addr" toml:"addr" validate:"required_if=Backend redis"`
	Password      string   `yaml:"password,omitempty" toml:"password,omitempty"`
	DB            int      `yaml:"db" toml:"db" validate:"gte=0"`
}

// ServerSection configures the HTTP API.
type ServerSection struct {
	Port          int  `yaml:"port" toml:"port" validate:"gte=1,lte=65535"`
	EnableMetrics bool `yaml:"enable_metrics" toml:"enable_metrics"`

	// APITokens, when non-empty, are required as bearer tokens.
	APITokens []string `yaml:"api_tokens,omitempty" toml:"api_tokens,omitempty"`
}

// TelemetrySection selects trace and metric exporters.
type TelemetrySection struct {
	ServiceName    string  `yaml:"service_name" toml:"service_name"`
	TraceExporter  string  `yaml:"trace_exporter" toml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string  `yaml:"metric_exporter" toml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint" toml:"otlp_endpoint"`
	SampleRate     float64 `yaml:"sample_rate" toml:"sample_rate" validate:"gte=0,lte=1"`
}

// LoggingSection configures pkg/logging.
type LoggingSection struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=auto text json"`
	Dir    string `yaml:"dir" toml:"dir"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() AppConfig {
	eng := riskengine.DefaultEngineConfig()
	return AppConfig{
		Engine: EngineSection{
			InsightTimeout:    Duration(eng.InsightTimeout),
			SimilarityTimeout: Duration(eng.SimilarityTimeout),
			PriceTimeout:      Duration(eng.PriceTimeout),
			TopK:              eng.TopK,
			MinSimilarity:     eng.MinSimilarity,
			Weights:           eng.Weights,
			Curves:            eng.Curves,
			Breaker: BreakerSection{
				ConsecutiveFailures: eng.Breaker.ConsecutiveFailures,
				OpenTimeout:         Duration(eng.Breaker.OpenTimeout),
				HalfOpenRequests:    eng.Breaker.HalfOpenRequests,
			},
		},
		LLM: LLMSection{
			Backend: "ollama",
			Model:   "llama3",
			BaseURL: "http://localhost:11434",
			Timeout: Duration(2 * time.Minute),
		},
		Vector: VectorSection{
			ClassName:    "HistoricalEvent",
			EnsureSchema: true,
		},
		Prices: PricesSection{
			Org:         "aleutian-finance",
			Bucket:      "financial-data",
			Measurement: "stock_prices",
		},
		Cache: CacheSection{
			Backend:    "memory",
			TTL:        Duration(eng.CacheTTL),
			MaxEntries: 1024,
		},
		Server: ServerSection{
			Port:          12220,
			EnableMetrics: true,
		},
		Telemetry: TelemetrySection{
			ServiceName:    "aleutian-risk",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
			SampleRate:     1.0,
		},
		Logging: LoggingSection{
			Level:  "info",
			Format: "auto",
		},
	}
}
