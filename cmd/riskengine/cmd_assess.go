// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianRisk/pkg/ux"
	"github.com/AleutianAI/AleutianRisk/services/riskapi"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

type assessOptions struct {
	title   string
	ticker  string
	date    string
	rawText string
	json    bool
	failOn  string
	timeout time.Duration
}

func newAssessCmd(app *cli) *cobra.Command {
	opts := &assessOptions{}
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess the risk of one news event",
		Long: `Assess the short-term risk of a single news event.

Examples:
  riskengine assess --ticker AAPL --title "Apple faces recall over battery defects"
  riskengine assess --ticker TSLA --title "Tesla beats estimates" --date 2024-01-24
  riskengine assess --ticker AAPL --title "..." --json
  riskengine assess --ticker AAPL --title "..." --fail-on high

Exit Codes:
  0 = Assessed, risk below --fail-on (if set)
  1 = Risk at or above --fail-on
  2 = Error (invalid event, configuration, timeout)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd.Context(), app, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "",
		"Event headline (required)")
	cmd.Flags().StringVar(&opts.ticker, "ticker", "",
		"Stock symbol (required)")
	cmd.Flags().StringVar(&opts.date, "date", "",
		"Event date as YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().StringVar(&opts.rawText, "raw-text", "",
		"Article body, sent to the event-understanding model and added to the similarity query")
	cmd.Flags().BoolVar(&opts.json, "json", false,
		"Output as JSON")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "",
		"Exit 1 if the risk level is at or above: low, medium, high")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second,
		"Total timeout for the assessment")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("ticker")
	return cmd
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runAssess(ctx context.Context, app *cli, opts *assessOptions, out io.Writer) error {
	var threshold riskengine.RiskLevel
	if opts.failOn != "" {
		var ok bool
		threshold, ok = parseRiskLevel(opts.failOn)
		if !ok {
			return &exitError{code: ExitError, err: fmt.Errorf("invalid --fail-on %q: want low, medium or high", opts.failOn)}
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	logger := app.logger.Slog()
	components, err := riskapi.NewComponents(ctx, toServiceConfig(app.cfg), logger, nil)
	if err != nil {
		return &exitError{code: ExitError, err: fmt.Errorf("failed to build engine: %w", err)}
	}
	defer func() {
		if cerr := components.Close(); cerr != nil {
			logger.Warn("failed to release collaborators", "error", cerr)
		}
	}()

	return assessAndRender(ctx, components.Engine, opts, app.outputLevel(), out, threshold)
}

// assessAndRender runs one assessment and writes it to out.
func assessAndRender(ctx context.Context, a riskAssessor, opts *assessOptions, level ux.Level, out io.Writer, threshold riskengine.RiskLevel) error {
	date := opts.date
	if date == "" {
		date = time.Now().UTC().Format(time.DateOnly)
	}

	result, err := a.Assess(ctx, riskengine.RawEvent{
		Title:   opts.title,
		Ticker:  opts.ticker,
		Date:    date,
		RawText: opts.rawText,
	})
	if err != nil {
		return &exitError{code: ExitError, err: fmt.Errorf("risk assessment failed: %w", err)}
	}

	if opts.json {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return &exitError{code: ExitError, err: fmt.Errorf("failed to encode JSON: %w", err)}
		}
	} else {
		ux.RenderAssessment(out, result, level)
	}

	if threshold != "" && levelRank(result.RiskLevel) >= levelRank(threshold) {
		return &exitError{code: ExitRiskFound}
	}
	return nil
}

// riskAssessor is the part of the engine the assess command needs.
type riskAssessor interface {
	Assess(ctx context.Context, raw riskengine.RawEvent) (*riskengine.RiskAssessment, error)
}

func parseRiskLevel(s string) (riskengine.RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return riskengine.RiskLow, true
	case "medium":
		return riskengine.RiskMedium, true
	case "high":
		return riskengine.RiskHigh, true
	default:
		return "", false
	}
}

func levelRank(l riskengine.RiskLevel) int {
	switch l {
	case riskengine.RiskHigh:
		return 2
	case riskengine.RiskMedium:
		return 1
	default:
		return 0
	}
}
