// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package riskengine

import (
	"strings"
	"unicode"
)

// Headline keyword lists. They back the Defaulted sentiment when the
// event-understanding service is down, and the high-impact bonus always.
var (
	negativeKeywords = []string{
		"faces", "investigation", "probe", "recall", "lawsuit", "crisis", "scandal",
		"violation", "penalty", "ban", "shutdown", "failure", "breach",
	}
	positiveKeywords = []string{
		"rally", "surge", "strong", "positive", "gains", "success", "breakthrough",
	}
	highImpactKeywords = []string{
		"major", "massive", "significant", "historic", "unprecedented",
		"revolutionary", "breakthrough", "crisis", "emergency",
	}
)

// HeadlineSignals is the keyword read of a title.
type HeadlineSignals struct {
	Negative   []string
	Positive   []string
	HighImpact []string
}

// Sentiment derives a sentiment from keyword counts. Ties are Neutral.
func (h HeadlineSignals) Sentiment() Sentiment {
	switch {
	case len(h.Negative) > len(h.Positive):
		return SentimentNegative
	case len(h.Positive) > len(h.Negative):
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

// ScanHeadline matches whole words of title against the keyword lists.
// A word matches a keyword exactly or with a plural "s" suffix, so "ban"
// matches "bans" but not "bank".
func ScanHeadline(title string) HeadlineSignals {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[w] = struct{}{}
	}

	return HeadlineSignals{
		Negative:   matchKeywords(present, negativeKeywords),
		Positive:   matchKeywords(present, positiveKeywords),
		HighImpact: matchKeywords(present, highImpactKeywords),
	}
}

// matchKeywords returns the keywords found, in list order.
func matchKeywords(present map[string]struct{}, keywords []string) []string {
	found := make([]string, 0)
	for _, kw := range keywords {
		_, exact := present[kw]
		_, plural := present[kw+"s"]
		if exact || plural {
			found = append(found, kw)
		}
	}
	return found
}
