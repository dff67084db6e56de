// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var overrideKeys = []string{
	"RISK_PORT", "RISK_API_TOKENS", "RISK_LOG_LEVEL", "RISK_CACHE_BACKEND", "RISK_CACHE_TTL",
	"RISK_CACHE_PATH", "RISK_TOP_K", "RISK_MIN_SIMILARITY", "LLM_BACKEND_TYPE",
	"OLLAMA_URL", "OLLAMA_MODEL", "OPENAI_API_KEY", "OPENAI_MODEL",
	"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "WEAVIATE_URL",
	"EMBEDDING_SERVICE_URL", "INFLUXDB_URL", "INFLUXDB_TOKEN", "INFLUXDB_ORG",
	"INFLUXDB_BUCKET", "REDIS_ADDR", "REDIS_PASSWORD",
	"OTEL_TRACES_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, k := range overrideKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_CreatesDefaultOnFirstRun(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), ".aleutian", "riskengine.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr, "config file should have been written")

	want := DefaultConfig()
	assert.Equal(t, &want, cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoad_YAMLKeepsUnsetDefaults(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), "riskengine.yaml")
	body := `
engine:
  top_k: 7
  price_timeout: 3s
cache:
  backend: badger
  path: /var/lib/aleutian/risk
server:
  port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Engine.TopK)
	assert.Equal(t, 3*time.Second, cfg.Engine.PriceTimeout.Std())
	assert.Equal(t, "badger", cfg.Cache.Backend)
	assert.Equal(t, 9000, cfg.Server.Port)

	def := DefaultConfig()
	assert.Equal(t, def.Engine.InsightTimeout, cfg.Engine.InsightTimeout)
	assert.Equal(t, def.Engine.Weights, cfg.Engine.Weights)
	assert.Equal(t, def.LLM, cfg.LLM)
}

func TestLoad_TOML(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), "riskengine.toml")
	body := `
[engine]
top_k = 3
similarity_timeout = "750ms"

[llm]
backend = "anthropic"
model = "claude-sonnet-4-5"

[cache]
backend = "redis"
addr = "localhost:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Engine.TopK)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.SimilarityTimeout.Std())
	assert.Equal(t, "anthropic", cfg.LLM.Backend)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
}

func TestLoad_CreatesTOMLDefault(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), "riskengine.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Engine.TopK, cfg.Engine.TopK)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[engine]")
}

func TestLoad_MalformedFile(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), "riskengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [unclosed"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), "riskengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  price_timeout: soon\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_ValidationFailure(t *testing.T) {
	clearOverrides(t)
	path := filepath.Join(t.TempDir(), "riskengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: badger\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Path")
	assert.Contains(t, err.Error(), "required_if")
}

func TestApplyEnvOverrides(t *testing.T) {
	clearOverrides(t)
	t.Setenv("RISK_PORT", "13000")
	t.Setenv("RISK_TOP_K", "9")
	t.Setenv("RISK_MIN_SIMILARITY", "0.4")
	t.Setenv("RISK_CACHE_TTL", "1m")
	t.Setenv("LLM_BACKEND_TYPE", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OLLAMA_MODEL", "ignored")
	t.Setenv("WEAVIATE_URL", "http://weaviate:8080")
	t.Setenv("EMBEDDING_SERVICE_URL", "http://embed:8000/embed")
	t.Setenv("INFLUXDB_URL", "http://influx:8086")
	t.Setenv("INFLUXDB_TOKEN", "tok")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RISK_API_TOKENS", " tok-a, ,tok-b ")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)

	assert.Equal(t, 13000, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Engine.TopK)
	assert.InDelta(t, 0.4, cfg.Engine.MinSimilarity, 1e-9)
	assert.Equal(t, time.Minute, cfg.Cache.TTL.Std())
	assert.Equal(t, "openai", cfg.LLM.Backend)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "http://weaviate:8080", cfg.Vector.WeaviateURL)
	assert.Equal(t, "http://embed:8000/embed", cfg.Vector.EmbeddingURL)
	assert.Equal(t, "http://influx:8086", cfg.Prices.URL)
	assert.Equal(t, "tok", cfg.Prices.Token)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
	assert.Equal(t, []string{"tok-a", "tok-b"}, cfg.Server.APITokens)
}

func TestApplyEnvOverrides_IgnoresMalformedNumbers(t *testing.T) {
	clearOverrides(t)
	t.Setenv("RISK_PORT", "not-a-port")
	t.Setenv("RISK_MIN_SIMILARITY", "high")
	t.Setenv("RISK_CACHE_TTL", "forever")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)

	def := DefaultConfig()
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.Engine.MinSimilarity, cfg.Engine.MinSimilarity)
	assert.Equal(t, def.Cache.TTL, cfg.Cache.TTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearOverrides(t)
	t.Setenv("RISK_LOG_LEVEL", "debug")
	path := filepath.Join(t.TempDir(), "riskengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEncode_YAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.TopK = 11

	data, err := Encode(&cfg, FormatYAML)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	engine := raw["engine"].(map[string]any)
	assert.Equal(t, "20s", engine["insight_timeout"], "durations are written as strings")

	back, err := Decode(data, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, &cfg, back)
}

func TestEncode_TOMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTL = Duration(90 * time.Second)

	data, err := Encode(&cfg, FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1m30s")

	back, err := Decode(data, FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, &cfg, back)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatTOML, FormatForPath("/etc/risk.toml"))
	assert.Equal(t, FormatTOML, FormatForPath("/etc/risk.TOML"))
	assert.Equal(t, FormatYAML, FormatForPath("/etc/risk.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("/etc/risk"))
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/analyst")
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/analyst/.aleutian/riskengine.yaml", path)
}
