// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package understanding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRisk/services/llm"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
)

type stubLLM struct {
	out    string
	err    error
	prompt string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	s.prompt = prompt
	return s.out, s.err
}

func recallRequest() riskengine.InsightRequest {
	return riskengine.InsightRequest{
		Title:   "Apple announces major product recall",
		Ticker:  "AAPL",
		Date:    time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
		Context: "Apple said on Wednesday it will recall devices.",
	}
}

func TestUnderstand(t *testing.T) {
	stub := &stubLLM{out: `Sure! Here is the analysis:
{"event_type": "Product", "sentiment": "Negative", "ticker": "AAPL", "sector": "Technology",
 "summary": "Apple is recalling devices.", "confidence": 0.8}
Let me know if you need more.`}
	u := NewLLMUnderstander(stub, nil)

	resp, err := u.Understand(context.Background(), recallRequest())
	require.NoError(t, err)

	assert.Equal(t, &riskengine.InsightResponse{
		Sentiment:  "Negative",
		EventType:  "Product",
		Summary:    "Apple is recalling devices.",
		Confidence: 0.8,
		Sector:     "Technology",
	}, resp)
	assert.Contains(t, stub.prompt, `"""Apple announces major product recall"""`)
	assert.Contains(t, stub.prompt, "Date: 2024-01-17")
	assert.Contains(t, stub.prompt, "Article:")
}

func TestUnderstand_DefaultsConfidence(t *testing.T) {
	u := NewLLMUnderstander(&stubLLM{out: `{"event_type":"Legal","sentiment":"bearish","summary":"s"}`}, nil)

	resp, err := u.Understand(context.Background(), recallRequest())
	require.NoError(t, err)
	assert.Equal(t, defaultConfidence, resp.Confidence)
	assert.Equal(t, "bearish", resp.Sentiment)
}

func TestUnderstand_Errors(t *testing.T) {
	tests := []struct {
		name string
		stub *stubLLM
		is   error
	}{
		{"transport", &stubLLM{err: errors.New("connection refused")}, nil},
		{"no json", &stubLLM{out: "I cannot help with that."}, ErrNoJSON},
		{"broken json", &stubLLM{out: `{"event_type": "Legal", "sentiment": }`}, nil},
		{"missing sentiment", &stubLLM{out: `{"event_type":"Legal"}`}, nil},
		{"unknown sentiment", &stubLLM{out: `{"event_type":"Legal","sentiment":"furious"}`}, nil},
		{"confidence out of range", &stubLLM{out: `{"event_type":"Legal","sentiment":"Neutral","confidence":7}`}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMUnderstander(tt.stub, nil).Understand(context.Background(), recallRequest())
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestBuildPrompt_OmitsEmptyContext(t *testing.T) {
	req := recallRequest()
	req.Context = "  "
	p := BuildPrompt(req)
	assert.NotContains(t, p, "Article:")
	assert.Contains(t, p, "Ticker: AAPL")
}
