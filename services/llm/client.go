// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides text-generation clients for Ollama, OpenAI and
// Anthropic behind a single interface.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Supported backends.
const (
	BackendOllama    = "ollama"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// Config selects and configures a backend.
//
// RequestsPerSecond > 0 wraps the client in a RateLimitedClient.
type Config struct {
	Backend           string
	Model             string
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxTokens         int
	RequestsPerSecond float64
	Burst             int
}

// New builds the client named by cfg.Backend.
func New(cfg Config, logger *slog.Logger) (LLMClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		client LLMClient
		err    error
	)
	switch strings.ToLower(cfg.Backend) {
	case BackendOllama, "":
		client, err = NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: cfg.Timeout}, logger)
	case BackendOpenAI:
		client, err = NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}, logger)
	case BackendAnthropic:
		client, err = NewAnthropicClient(AnthropicConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, MaxTokens: cfg.MaxTokens}, logger)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		client = NewRateLimitedClient(client, cfg.RequestsPerSecond, cfg.Burst)
	}
	return client, nil
}

// resolveAPIKey returns key, else the contents of the mounted secret file.
func resolveAPIKey(key, secretPath string, logger *slog.Logger) string {
	if key != "" {
		return key
	}
	if content, err := os.ReadFile(secretPath); err == nil {
		logger.Info("Read API key from mounted secret", "path", secretPath)
		return strings.TrimSpace(string(content))
	}
	return ""
}
