// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package understanding implements the event-understanding collaborator on
// top of an LLM.
package understanding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianRisk/pkg/validation"
	"github.com/AleutianAI/AleutianRisk/services/llm"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
)

// defaultConfidence is assumed when the model omits a confidence.
const defaultConfidence = 0.5

// maxContextChars caps the article text placed in the prompt.
const maxContextChars = 4000

var (
	// ErrNoJSON means the model answer contained no JSON object.
	ErrNoJSON = errors.New("no JSON object in model output")

	answerValidate = newAnswerValidator()
)

func newAnswerValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("sentimentlabel", func(fl validator.FieldLevel) bool {
		_, ok := riskengine.ParseSentiment(fl.Field().String())
		return ok
	})
	return v
}

// Answer is the JSON object the prompt asks for.
type Answer struct {
	EventType  string   `json:"event_type" validate:"required,max=64"`
	Sentiment  string   `json:"sentiment" validate:"required,sentimentlabel"`
	Ticker     string   `json:"ticker" validate:"max=16"`
	Sector     string   `json:"sector" validate:"max=64"`
	Summary    string   `json:"summary" validate:"max=2000"`
	Confidence *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
}

// LLMUnderstander asks an LLM to classify an event.
//
// # Thread Safety
//
// Safe for concurrent use if the LLM client is.
type LLMUnderstander struct {
	client llm.LLMClient
	params llm.GenerationParams
	logger *slog.Logger
}

// NewLLMUnderstander wraps client. Generation runs at temperature 0.
func NewLLMUnderstander(client llm.LLMClient, logger *slog.Logger) *LLMUnderstander {
	if logger == nil {
		logger = slog.Default()
	}
	temp := float32(0)
	maxTokens := 512
	return &LLMUnderstander{
		client: client,
		params: llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens},
		logger: logger,
	}
}

// Understand implements riskengine.EventUnderstander.
//
// # Outputs
//
//   - *riskengine.InsightResponse: Raw labels as the model gave them.
//   - error: Transport failure, no JSON in the answer, or an answer that
//     fails validation.
func (u *LLMUnderstander) Understand(ctx context.Context, req riskengine.InsightRequest) (*riskengine.InsightResponse, error) {
	out, err := u.client.Generate(ctx, BuildPrompt(req), u.params)
	if err != nil {
		return nil, fmt.Errorf("llm generate: %w", err)
	}

	answer, err := ParseAnswer(out)
	if err != nil {
		u.logger.Debug("unusable model answer", "ticker", req.Ticker, "error", err)
		return nil, err
	}

	conf := defaultConfidence
	if answer.Confidence != nil {
		conf = *answer.Confidence
	}
	return &riskengine.InsightResponse{
		Sentiment:  answer.Sentiment,
		EventType:  answer.EventType,
		Summary:    answer.Summary,
		Confidence: conf,
		Sector:     answer.Sector,
	}, nil
}

// BuildPrompt renders the fixed instruction template for an event.
func BuildPrompt(req riskengine.InsightRequest) string {
	var sb strings.Builder
	sb.WriteString("Given the following market news event, extract:\n")
	sb.WriteString("- event_type (one of: Regulatory, Earnings, M&A, Product, Legal, Other)\n")
	sb.WriteString("- sentiment (one of: Positive, Negative, Neutral)\n")
	sb.WriteString("- ticker (if mentioned, else empty string)\n")
	sb.WriteString("- sector (if known, else empty string)\n")
	sb.WriteString("- summary (a 1-2 sentence summary of the event in plain English)\n")
	sb.WriteString("- confidence (a number between 0 and 1)\n\n")
	sb.WriteString("Respond in valid JSON using keys: event_type, sentiment, ticker, sector, summary, confidence.\n\n")
	fmt.Fprintf(&sb, "Ticker: %s\n", req.Ticker)
	fmt.Fprintf(&sb, "Date: %s\n", validation.FormatEventDate(req.Date))
	fmt.Fprintf(&sb, "Headline:\n\"\"\"%s\"\"\"\n", req.Title)
	if ctxText := strings.TrimSpace(req.Context); ctxText != "" {
		if len(ctxText) > maxContextChars {
			ctxText = ctxText[:maxContextChars]
		}
		fmt.Fprintf(&sb, "\nArticle:\n\"\"\"%s\"\"\"\n", ctxText)
	}
	return sb.String()
}

// ParseAnswer extracts the JSON object spanning the first '{' to the last
// '}' of a model answer and validates it.
func ParseAnswer(out string) (*Answer, error) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}

	var answer Answer
	if err := json.Unmarshal([]byte(out[start:end+1]), &answer); err != nil {
		return nil, fmt.Errorf("decode model answer: %w", err)
	}
	if err := answerValidate.Struct(&answer); err != nil {
		return nil, fmt.Errorf("invalid model answer: %w", err)
	}
	return &answer, nil
}
