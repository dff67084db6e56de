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
	"fmt"
	"sort"
	"strings"
)

// Severity word bands for non-sentiment factors.
const (
	highSeverityFloor     = 0.67
	moderateSeverityFloor = 0.34
)

// recommendations maps risk levels to their fixed action lists.
var recommendations = map[RiskLevel][]string{
	RiskHigh: {
		"[HIGH RISK] Immediate attention required",
		"Consider reducing position size or hedging exposure",
		"Monitor for follow-up regulatory action",
		"Prepare contingency plans for further developments",
		"Escalate to the risk management team",
	},
	RiskMedium: {
		"[MEDIUM RISK] Increased monitoring recommended",
		"Review position sizing",
		"Track related news developments",
		"Consider tighter stop-loss levels",
	},
	RiskLow: {
		"[LOW RISK] Normal monitoring",
		"No immediate action indicated",
		"Note event for regular portfolio review",
	},
}

// factorLabels are the human names used in reasoning text.
var factorLabels = map[FactorName]string{
	FactorSentiment:  "sentiment severity",
	FactorAnalog:     "historical-analog severity",
	FactorPrice:      "price-reaction magnitude",
	FactorVolatility: "volatility",
}

// Explainer renders reasoning and recommendations from a breakdown.
// Output depends only on its inputs.
type Explainer struct{}

// NewExplainer creates an Explainer.
func NewExplainer() *Explainer {
	return &Explainer{}
}

// Explain describes the score.
//
// # Description
//
// Names the top two contributing factors (ties broken by factor order) with
// their severity in words and their points contribution. A degraded
// breakdown gets a sentence naming the unavailable and defaulted factors.
//
// # Outputs
//
//   - string: Reasoning text.
//   - []string: A fresh copy of the level's recommendation list.
func (x *Explainer) Explain(b *Breakdown, level RiskLevel) (string, []string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s risk (score %d/100).", level, b.Score)

	drivers := topFactors(b.Factors, 2)
	if len(drivers) > 0 {
		phrases := make([]string, 0, len(drivers))
		for _, f := range drivers {
			phrases = append(phrases, fmt.Sprintf("%s (%.2f, +%.1f points)",
				describeFactor(f, b.SentimentUsed), f.RawValue, 100*f.WeightedContribution))
		}
		fmt.Fprintf(&sb, " Main drivers: %s.", strings.Join(phrases, " and "))
	}

	if b.Degraded {
		var unavailable, defaulted []string
		for _, f := range b.Factors {
			switch f.Provenance {
			case ProvenanceUnavailable:
				unavailable = append(unavailable, factorLabels[f.FactorName])
			case ProvenanceDefaulted:
				defaulted = append(defaulted, factorLabels[f.FactorName])
			}
		}
		sb.WriteString(" Degraded assessment:")
		if len(unavailable) > 0 {
			fmt.Fprintf(&sb, " unavailable: %s;", strings.Join(unavailable, ", "))
		}
		if len(defaulted) > 0 {
			fmt.Fprintf(&sb, " defaulted from headline keywords: %s;", strings.Join(defaulted, ", "))
		}
		sb.WriteString(" weights were redistributed across the remaining factors.")
	}

	recs := recommendations[level]
	return sb.String(), append(make([]string, 0, len(recs)), recs...)
}

// topFactors returns up to n non-Unavailable factors by weighted
// contribution, ties kept in factor order.
func topFactors(factors []FactorContribution, n int) []FactorContribution {
	ranked := make([]FactorContribution, 0, len(factors))
	for _, f := range factors {
		if f.Provenance != ProvenanceUnavailable {
			ranked = append(ranked, f)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].WeightedContribution > ranked[j].WeightedContribution
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func describeFactor(f FactorContribution, used Sentiment) string {
	if f.FactorName == FactorSentiment {
		return strings.ToLower(string(used)) + " sentiment"
	}
	return severityWord(f.RawValue) + " " + factorLabels[f.FactorName]
}

func severityWord(v float64) string {
	switch {
	case v >= highSeverityFloor:
		return "high"
	case v >= moderateSeverityFloor:
		return "moderate"
	default:
		return "low"
	}
}
