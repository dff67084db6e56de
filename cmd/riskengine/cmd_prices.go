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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianRisk/pkg/ux"
	"github.com/AleutianAI/AleutianRisk/pkg/validation"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/prices"
	"github.com/spf13/cobra"
)

type backfillOptions struct {
	tickers  []string
	from     string
	to       string
	chartURL string
	workers  int
}

func newPricesCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Manage the daily price history used for price reaction",
	}

	opts := &backfillOptions{}
	backfill := &cobra.Command{
		Use:   "backfill",
		Short: "Load daily bars into InfluxDB",
		Long: `Fetch daily OHLCV bars and write them to the configured InfluxDB bucket.

Bars land in the measurement the price collaborator reads (prices.measurement),
so analogs for these tickers gain price reaction and volatility factors.

Examples:
  riskengine prices backfill --ticker AAPL --ticker MSFT --from 2020-01-01
  riskengine prices backfill --ticker TSLA --from 2024-01-01 --to 2024-06-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.Prices.URL == "" {
				return &exitError{code: ExitError, err: errors.New("prices.url is not configured")}
			}
			tickers, err := opts.normalizedTickers()
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}
			from, to, err := opts.window(time.Now().UTC())
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}

			scfg := toServiceConfig(app.cfg)
			series, err := prices.NewInfluxSeries(scfg.Prices, app.logger.Slog())
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}
			defer series.Close()

			b := prices.NewBackfiller(
				prices.NewYahooSource(opts.chartURL, 30*time.Second),
				series.WriteAPI(), series.Measurement(), opts.workers, app.logger.Slog())
			printer := ux.NewPrinter(cmd.OutOrStdout(), app.outputLevel())
			return runBackfill(cmd.Context(), b, tickers, from, to, printer)
		},
	}
	backfill.Flags().StringSliceVar(&opts.tickers, "ticker", nil,
		"Ticker to load (repeatable, required)")
	backfill.Flags().StringVar(&opts.from, "from", "",
		"First day as YYYY-MM-DD (default: one year ago)")
	backfill.Flags().StringVar(&opts.to, "to", "",
		"Last day as YYYY-MM-DD (default: today)")
	backfill.Flags().StringVar(&opts.chartURL, "chart-url", prices.DefaultChartURL,
		"Chart API base URL")
	backfill.Flags().IntVar(&opts.workers, "workers", prices.DefaultBackfillWorkers,
		"Tickers fetched in parallel")
	_ = backfill.MarkFlagRequired("ticker")

	cmd.AddCommand(backfill)
	return cmd
}

// normalizedTickers upper-cases and de-duplicates --ticker values, and
// rejects the whole set if any symbol is malformed.
func (o *backfillOptions) normalizedTickers() ([]string, error) {
	seen := make(map[string]struct{}, len(o.tickers))
	out := make([]string, 0, len(o.tickers))
	for _, t := range o.tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if err := validation.ValidateTickers(out); err != nil {
		return nil, err
	}
	return out, nil
}

// window resolves --from and --to against now.
func (o *backfillOptions) window(now time.Time) (time.Time, time.Time, error) {
	to := now
	if o.to != "" {
		t, err := validation.ParseEventDate(o.to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		to = t.Add(24*time.Hour - time.Second)
	}
	from := to.AddDate(-1, 0, 0)
	if o.from != "" {
		t, err := validation.ParseEventDate(o.from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = t
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s is after --to %s",
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return from, to, nil
}

// runBackfill reports each ticker and fails if any ticker failed.
func runBackfill(ctx context.Context, b *prices.Backfiller, tickers []string, from, to time.Time, printer *ux.Printer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := b.Backfill(ctx, tickers, from, to)
	if err != nil {
		return &exitError{code: ExitError, err: err}
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			printer.Error(fmt.Sprintf("%s: %v", r.Ticker, r.Err))
		case r.Points == 0:
			printer.Warning(fmt.Sprintf("%s: no bars in range", r.Ticker))
		default:
			printer.Success(fmt.Sprintf("%s: %d bars written", r.Ticker, r.Points))
		}
	}
	if failed > 0 {
		return &exitError{code: ExitError, err: fmt.Errorf("%d of %d tickers failed", failed, len(results))}
	}
	return nil
}
