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

import "fmt"

// Thresholds for the human-readable risk factor notes.
const (
	severeReactionReturn   = -0.05
	moderateReactionReturn = -0.02
	extremeDropReturn      = -0.10
	veryHighVolatility     = 0.5
	highVolatility         = 0.3
)

// BuildRiskFactors lists the notable observations behind an assessment.
//
// # Description
//
// Notes are emitted in a fixed order: historical analogs, then price
// reaction and volatility, then the AI sentiment. Collaborator failures
// and missing horizons produce a note of their own. The result depends
// only on its inputs and is never nil.
//
// # Inputs
//
//   - insight: The gathered AI insight.
//   - analogsOK: Whether the vector search succeeded.
//   - rm: Raw metrics, for the analog counts.
//   - price: The price reaction.
func BuildRiskFactors(insight AIInsight, analogsOK bool, rm RawMetrics, price PriceReaction) []string {
	notes := []string{}

	if !analogsOK {
		notes = append(notes, "Could not retrieve similar events")
	} else {
		if rm.NegativeAnalogCount > 0 {
			notes = append(notes, fmt.Sprintf("Found %d similar negative events", rm.NegativeAnalogCount))
		}
		if rm.HighImpactAnalogCount > 0 {
			notes = append(notes, fmt.Sprintf("Found %d similar high-impact events", rm.HighImpactAnalogCount))
		}
	}

	switch {
	case !price.Available:
		notes = append(notes, "Could not retrieve price history")
	case price.BaselineDate == nil:
		notes = append(notes, fmt.Sprintf("No trading data within %d days before the event date", baselineToleranceDays))
	default:
		notes = append(notes, horizonNotes(price)...)
		notes = append(notes, reactionNotes(price.Returns())...)
	}
	if v := price.Volatility20d; v != nil {
		switch {
		case *v > veryHighVolatility:
			notes = append(notes, fmt.Sprintf("Very high market volatility: %.2f", *v))
		case *v > highVolatility:
			notes = append(notes, fmt.Sprintf("High market volatility: %.2f", *v))
		}
	}

	if insight.Available {
		switch insight.Sentiment {
		case SentimentNegative:
			notes = append(notes, "AI-detected negative sentiment")
		case SentimentPositive:
			notes = append(notes, "AI-detected positive sentiment")
		}
	} else {
		notes = append(notes, "AI analysis unavailable")
	}
	return notes
}

func horizonNotes(price PriceReaction) []string {
	var notes []string
	for _, n := range priceHorizons {
		found := false
		for _, h := range price.Horizons {
			if h.Days == n {
				found = true
				break
			}
		}
		if !found {
			notes = append(notes, fmt.Sprintf("No trading data for the %d-day horizon", n))
		}
	}
	return notes
}

func reactionNotes(returns []float64) []string {
	if len(returns) == 0 {
		return nil
	}
	var sum float64
	worst := returns[0]
	for _, r := range returns {
		sum += r
		if r < worst {
			worst = r
		}
	}
	avg := sum / float64(len(returns))

	var notes []string
	switch {
	case avg < severeReactionReturn:
		notes = append(notes, fmt.Sprintf("Severe negative market reaction: average return %.2f%%", avg*100))
	case avg < moderateReactionReturn:
		notes = append(notes, fmt.Sprintf("Moderate negative market reaction: average return %.2f%%", avg*100))
	}
	if worst < extremeDropReturn {
		notes = append(notes, fmt.Sprintf("Extreme single-horizon drop: %.2f%%", worst*100))
	}
	return notes
}
