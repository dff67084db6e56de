// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/charmbracelet/lipgloss"
)

const maxRenderedAnalogs = 3

// levelStyle colors a risk level.
func levelStyle(level riskengine.RiskLevel) lipgloss.Style {
	switch level {
	case riskengine.RiskHigh:
		return Styles.Error.Bold(true)
	case riskengine.RiskMedium:
		return Styles.Warning.Bold(true)
	default:
		return Styles.Success.Bold(true)
	}
}

// RenderAssessment writes a human-readable view of a to w.
//
// # Description
//
// LevelMachine emits one "key<TAB>value" line per field so the output can be
// piped into awk or cut. The other levels render a headline score, the
// factor breakdown, and the recommendations; LevelFull adds boxes and bars.
func RenderAssessment(w io.Writer, a *riskengine.RiskAssessment, level Level) {
	if a == nil {
		return
	}
	if level == LevelMachine {
		renderMachine(w, a)
		return
	}

	var b strings.Builder
	ls := levelStyle(a.RiskLevel)
	fmt.Fprintf(&b, "%s  %s %s\n",
		ls.Render(strings.ToUpper(string(a.RiskLevel))+" RISK"),
		Styles.Bold.Render(fmt.Sprintf("%d", a.RiskScore)),
		Styles.Muted.Render("/ 100"))
	if level == LevelFull {
		fmt.Fprintf(&b, "%s\n", ProgressBar(float64(a.RiskScore)/100, 40, ls))
	}

	b.WriteString("\n" + Styles.Subtitle.Render("Factors") + "\n")
	for _, f := range a.FactorBreakdown {
		b.WriteString(renderFactor(f, level))
	}

	if len(a.SimilarEvents) > 0 {
		b.WriteString("\n" + Styles.Subtitle.Render("Historical analogs") + "\n")
		for i, m := range a.SimilarEvents {
			if i == maxRenderedAnalogs {
				fmt.Fprintf(&b, "  %s\n", Styles.Muted.Render(fmt.Sprintf("... and %d more", len(a.SimilarEvents)-i)))
				break
			}
			fmt.Fprintf(&b, "  %s %s %s\n", IconBullet, m.ReferenceTitle,
				Styles.Muted.Render(fmt.Sprintf("(similarity %.2f, %s, severity %.2f)",
					m.Similarity, m.HistoricalSentiment, m.HistoricalSeverity)))
		}
	}

	if a.PriceReaction.Available {
		b.WriteString("\n" + Styles.Subtitle.Render("Price reaction") + "\n")
		fmt.Fprintf(&b, "  1d %s  3d %s  5d %s  vol %s\n",
			formatPct(a.PriceReaction.Return1d),
			formatPct(a.PriceReaction.Return3d),
			formatPct(a.PriceReaction.Return5d),
			formatPct(a.PriceReaction.Volatility20d))
	}

	if len(a.RiskFactors) > 0 {
		b.WriteString("\n" + Styles.Subtitle.Render("Risk factors") + "\n")
		for _, f := range a.RiskFactors {
			fmt.Fprintf(&b, "  %s %s\n", IconBullet, f)
		}
	}

	b.WriteString("\n" + a.Reasoning + "\n")
	if a.Summary != "" {
		b.WriteString("\n" + Styles.Muted.Render("AI summary: ") + a.Summary + "\n")
	}

	if len(a.Recommendations) > 0 {
		b.WriteString("\n" + Styles.Subtitle.Render("Recommendations") + "\n")
		for _, r := range a.Recommendations {
			fmt.Fprintf(&b, "  %s %s\n", IconArrow, r)
		}
	}

	title := fmt.Sprintf("%s  %s", a.Ticker, a.EventDate)
	body := strings.TrimRight(b.String(), "\n")
	if level == LevelFull {
		box := Styles.Box
		if a.Degraded {
			box = Styles.WarningBox
		}
		fmt.Fprintln(w, box.Width(80).Render(Styles.Title.Render(title)+"\n"+body))
	} else {
		fmt.Fprintln(w, Styles.Title.Render(title))
		fmt.Fprintln(w, body)
	}
	if a.Degraded {
		NewPrinter(w, level).Warning("degraded assessment: one or more data sources were unavailable")
	}
}

func renderFactor(f riskengine.FactorContribution, level Level) string {
	name := fmt.Sprintf("%-20s", f.FactorName)
	if f.Provenance == riskengine.ProvenanceUnavailable {
		return fmt.Sprintf("  %s %s\n", name, Styles.Muted.Render("unavailable"))
	}
	bar := ""
	if level == LevelFull {
		bar = ProgressBar(f.RawValue, 20, Styles.Subtitle) + " "
	}
	prov := ""
	if f.Provenance == riskengine.ProvenanceDefaulted {
		prov = " " + Styles.Warning.Render("(defaulted)")
	}
	return fmt.Sprintf("  %s %s%.2f  %s%s\n", name, bar, f.RawValue,
		Styles.Muted.Render(fmt.Sprintf("w=%.2f +%.1f", f.Weight, f.WeightedContribution*100)), prov)
}

func renderMachine(w io.Writer, a *riskengine.RiskAssessment) {
	fmt.Fprintf(w, "ticker\t%s\n", a.Ticker)
	fmt.Fprintf(w, "event_date\t%s\n", a.EventDate)
	fmt.Fprintf(w, "risk_score\t%d\n", a.RiskScore)
	fmt.Fprintf(w, "risk_level\t%s\n", a.RiskLevel)
	fmt.Fprintf(w, "degraded\t%t\n", a.Degraded)
	for _, f := range a.FactorBreakdown {
		fmt.Fprintf(w, "factor.%s\t%.4f\t%.4f\t%s\n", f.FactorName, f.RawValue, f.Weight, f.Provenance)
	}
	fmt.Fprintf(w, "similar_events\t%d\n", len(a.SimilarEvents))
	for _, f := range a.RiskFactors {
		fmt.Fprintf(w, "risk_factor\t%s\n", f)
	}
	fmt.Fprintf(w, "reasoning\t%s\n", a.Reasoning)
	for _, r := range a.Recommendations {
		fmt.Fprintf(w, "recommendation\t%s\n", r)
	}
}

func formatPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v*100)
}
