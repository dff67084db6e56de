// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package riskengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanHeadline(t *testing.T) {
	tests := []struct {
		title      string
		negative   []string
		positive   []string
		highImpact []string
		sentiment  Sentiment
	}{
		{
			title:      "Apple announces major product recall",
			negative:   []string{"recall"},
			positive:   []string{},
			highImpact: []string{"major"},
			sentiment:  SentimentNegative,
		},
		{
			title:      "Shares surge on strong quarter",
			negative:   []string{},
			positive:   []string{"surge", "strong"},
			highImpact: []string{},
			sentiment:  SentimentPositive,
		},
		{
			title:      "Bank lowers guidance",
			negative:   []string{},
			positive:   []string{},
			highImpact: []string{},
			sentiment:  SentimentNeutral,
		},
		{
			title:      "Regulators issue bans; stock rally fades",
			negative:   []string{"ban"},
			positive:   []string{"rally"},
			highImpact: []string{},
			sentiment:  SentimentNeutral,
		},
		{
			title:      "Historic BREAKTHROUGH amid crisis",
			negative:   []string{"crisis"},
			positive:   []string{"breakthrough"},
			highImpact: []string{"historic", "breakthrough", "crisis"},
			sentiment:  SentimentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := ScanHeadline(tt.title)
			assert.Equal(t, tt.negative, got.Negative)
			assert.Equal(t, tt.positive, got.Positive)
			assert.Equal(t, tt.highImpact, got.HighImpact)
			assert.Equal(t, tt.sentiment, got.Sentiment())
		})
	}
}
