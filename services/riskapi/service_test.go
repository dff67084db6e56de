// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package riskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/AleutianRisk/pkg/extensions"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Telemetry.TraceExporter = "none"
	cfg.Telemetry.MetricExporter = "none"
	return cfg
}

func TestApplyConfigDefaults(t *testing.T) {
	cfg := applyConfigDefaults(Config{})

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.Equal(t, LLMBackendNone, cfg.LLM.Backend)
	assert.Equal(t, "aleutian-risk", cfg.Telemetry.ServiceName)
}

func TestService_Routes(t *testing.T) {
	svc, err := New(testConfig(), quietLogger(), nil)
	require.NoError(t, err)
	router := svc.Router()

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("assess degrades without collaborators", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"title":"Apple announces major product recall","ticker":"AAPL","date":"2024-01-17"}`
		req, _ := http.NewRequest(http.MethodPost, "/v1/risk/assess", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got riskengine.RiskAssessment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.Degraded)
		f, ok := got.Factor(riskengine.FactorSentiment)
		require.True(t, ok)
		assert.Equal(t, riskengine.ProvenanceDefaulted, f.Provenance)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})
}

func TestService_APITokens(t *testing.T) {
	cfg := testConfig()
	cfg.APITokens = []string{"secret"}
	svc, err := New(cfg, quietLogger(), nil)
	require.NoError(t, err)
	router := svc.Router()

	body := `{"title":"Apple announces major product recall","ticker":"AAPL","date":"2024-01-17"}`
	send := func(auth string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/v1/risk/assess", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send(""))
	assert.Equal(t, http.StatusUnauthorized, send("Bearer wrong"))
	assert.Equal(t, http.StatusOK, send("Bearer secret"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "health stays open")
}

func TestService_CustomExtensions(t *testing.T) {
	opts := extensions.DefaultOptions().WithAuth(extensions.NewStaticTokenAuthProvider([]string{"custom"}))
	cfg := testConfig()
	cfg.APITokens = []string{"ignored-when-options-are-given"}
	svc, err := New(cfg, quietLogger(), &opts)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	body := `{"title":"Apple announces major product recall","ticker":"AAPL","date":"2024-01-17"}`
	req, _ := http.NewRequest(http.MethodPost, "/v1/risk/assess", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer custom")
	svc.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_InvalidEngineConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Weights = riskengine.Weights{Sentiment: 0.9, Analog: 0.9, Price: 0.1, Volatility: 0.1}

	_, err := New(cfg, quietLogger(), nil)
	require.Error(t, err)
}

func TestNewComponents(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no cache", func(c *Config) { c.Cache.Backend = CacheNone }, ""},
		{"badger cache", func(c *Config) { c.Cache = CacheConfig{Backend: CacheBadger, Path: t.TempDir()} }, ""},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown cache backend"},
		{"bad weaviate url", func(c *Config) { c.Vector.WeaviateURL = "http://" }, "invalid Weaviate URL"},
		{"weaviate without embedder", func(c *Config) { c.Vector.WeaviateURL = "http://localhost:8080" }, "embedding service URL"},
		{"unknown llm backend", func(c *Config) { c.LLM.Backend = "gemini" }, "unknown llm backend"},
		{"influx missing org", func(c *Config) { c.Prices.URL = "http://localhost:8086" }, "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			c, err := NewComponents(context.Background(), applyConfigDefaults(cfg), quietLogger(), nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c.Engine)
			assert.NoError(t, c.Close())
		})
	}
}

func TestNewComponents_WithCollaborators(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Backend = "ollama"
	cfg.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.Vector = VectorConfig{WeaviateURL: "http://127.0.0.1:1", EmbeddingURL: "http://127.0.0.1:1/embed"}
	cfg.Prices.URL = "http://127.0.0.1:1"
	cfg.Prices.Org = "aleutian-finance"
	cfg.Prices.Bucket = "financial-data"

	c, err := NewComponents(context.Background(), cfg, quietLogger(), nil)
	require.NoError(t, err)
	defer c.Close()

	a, err := c.Engine.Assess(context.Background(), riskengine.RawEvent{
		Title: "Apple announces major product recall", Ticker: "AAPL", Date: "2024-01-17",
	})
	require.NoError(t, err)
	assert.True(t, a.Degraded, "unreachable collaborators degrade rather than fail")
}
