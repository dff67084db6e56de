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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("aleutian.risk.retrieval")

const (
	// DefaultMaxEmbedLength caps the query text sent to the embedding service.
	DefaultMaxEmbedLength = 2048

	defaultEmbedTimeout = 30 * time.Second
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type embeddingRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector"`
	Dim       int       `json:"dim"`
}

// HTTPEmbedder calls the embedding service's /embed endpoint.
type HTTPEmbedder struct {
	url        string
	httpClient *http.Client
	maxLength  int
	logger     *slog.Logger
}

// NewHTTPEmbedder creates an embedder for the service at url.
// A zero timeout means 30s.
func NewHTTPEmbedder(url string, timeout time.Duration, logger *slog.Logger) *HTTPEmbedder {
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPEmbedder{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		maxLength:  DefaultMaxEmbedLength,
		logger:     logger,
	}
}

// Embed returns the vector for text. Text longer than the max embed length
// is truncated before sending.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "HTTPEmbedder.Embed")
	defer span.End()

	if len(text) > e.maxLength {
		e.logger.Debug("truncated query for embedding", "original_len", len(text), "truncated_len", e.maxLength)
		text = text[:e.maxLength]
	}
	span.SetAttributes(attribute.Int("embed.text_len", len(text)))

	reqBody, err := json.Marshal(embeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to setup a new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make the request to the embedding service: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			e.logger.Warn("failed to close embedding response body", "error", cerr)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out embeddingResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, fmt.Errorf("failed to parse the response from the embedding service: %w", err)
	}
	if len(out.Vector) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	span.SetAttributes(attribute.Int("embed.dim", len(out.Vector)))
	return out.Vector, nil
}
