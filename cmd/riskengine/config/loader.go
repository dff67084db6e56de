// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a config file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DefaultPath returns ~/.aleutian/riskengine.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".aleutian", "riskengine.yaml"), nil
}

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads, overrides, and validates the config at path.
//
// # Description
//
// A missing file is created with DefaultConfig first, so a fresh install
// runs without setup. Environment overrides are applied after decoding and
// before validation.
func Load(path string) (*AppConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Info("First run detected, creating the config", "path", path)
		if err := CreateDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg, err := Decode(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	ApplyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses data on top of DefaultConfig, so omitted keys keep their
// defaults.
func Decode(data []byte, format Format) (*AppConfig, error) {
	cfg := DefaultConfig()
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode renders cfg in format.
func Encode(cfg *AppConfig, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(cfg)
	default:
		return yaml.Marshal(cfg)
	}
}

// CreateDefault writes DefaultConfig to path, creating parent directories.
func CreateDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := Encode(&defaultCfg, FormatForPath(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

var validate = validator.New()

// Validate checks field constraints and the weight and curve invariants.
func Validate(cfg *AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Engine.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid config: engine.weights: %w", err)
	}
	if err := cfg.Engine.Curves.Validate(); err != nil {
		return fmt.Errorf("invalid config: engine.curves: %w", err)
	}
	return nil
}

// ApplyEnvOverrides replaces config values with any set environment
// variables.
//
//	RISK_PORT, RISK_API_TOKENS (comma-separated), RISK_LOG_LEVEL, RISK_CACHE_BACKEND, RISK_CACHE_TTL,
//	RISK_CACHE_PATH, RISK_TOP_K, RISK_MIN_SIMILARITY, LLM_BACKEND_TYPE,
//	OLLAMA_URL, OLLAMA_MODEL, OPENAI_API_KEY, OPENAI_MODEL,
//	ANTHROPIC_API_KEY, ANTHROPIC_MODEL, WEAVIATE_URL,
//	EMBEDDING_SERVICE_URL, INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG,
//	INFLUXDB_BUCKET, REDIS_ADDR, REDIS_PASSWORD,
//	OTEL_TRACES_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT
func ApplyEnvOverrides(cfg *AppConfig) {
	cfg.Server.Port = getEnvInt("RISK_PORT", cfg.Server.Port)
	cfg.Server.APITokens = getEnvList("RISK_API_TOKENS", cfg.Server.APITokens)
	cfg.Logging.Level = getEnvString("RISK_LOG_LEVEL", cfg.Logging.Level)

	cfg.Engine.TopK = getEnvInt("RISK_TOP_K", cfg.Engine.TopK)
	cfg.Engine.MinSimilarity = getEnvFloat("RISK_MIN_SIMILARITY", cfg.Engine.MinSimilarity)

	cfg.Cache.Backend = getEnvString("RISK_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.TTL = getEnvDuration("RISK_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.Path = getEnvString("RISK_CACHE_PATH", cfg.Cache.Path)
	cfg.Cache.Addr = getEnvString("REDIS_ADDR", cfg.Cache.Addr)
	cfg.Cache.Password = getEnvString("REDIS_PASSWORD", cfg.Cache.Password)

	cfg.LLM.Backend = getEnvString("LLM_BACKEND_TYPE", cfg.LLM.Backend)
	switch cfg.LLM.Backend {
	case "ollama":
		cfg.LLM.BaseURL = getEnvString("OLLAMA_URL", cfg.LLM.BaseURL)
		cfg.LLM.Model = getEnvString("OLLAMA_MODEL", cfg.LLM.Model)
	case "openai":
		cfg.LLM.APIKey = getEnvString("OPENAI_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.Model = getEnvString("OPENAI_MODEL", cfg.LLM.Model)
	case "anthropic":
		cfg.LLM.APIKey = getEnvString("ANTHROPIC_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.Model = getEnvString("ANTHROPIC_MODEL", cfg.LLM.Model)
	}

	cfg.Vector.WeaviateURL = getEnvString("WEAVIATE_URL", cfg.Vector.WeaviateURL)
	cfg.Vector.EmbeddingURL = getEnvString("EMBEDDING_SERVICE_URL", cfg.Vector.EmbeddingURL)

	cfg.Prices.URL = getEnvString("INFLUXDB_URL", cfg.Prices.URL)
	cfg.Prices.Token = getEnvString("INFLUXDB_TOKEN", cfg.Prices.Token)
	cfg.Prices.Org = getEnvString("INFLUXDB_ORG", cfg.Prices.Org)
	cfg.Prices.Bucket = getEnvString("INFLUXDB_BUCKET", cfg.Prices.Bucket)

	cfg.Telemetry.TraceExporter = getEnvString("OTEL_TRACES_EXPORTER", cfg.Telemetry.TraceExporter)
	cfg.Telemetry.OTLPEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("ignoring non-integer environment value", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("ignoring non-numeric environment value", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return Duration(d)
		}
		slog.Warn("ignoring invalid duration environment value", "key", key, "value", value)
	}
	return defaultValue
}
