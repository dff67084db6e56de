// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prices

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianRisk/pkg/validation"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"golang.org/x/sync/errgroup"
)

// DefaultBackfillWorkers is the number of tickers fetched in parallel.
const DefaultBackfillWorkers = 8

// BackfillResult is the outcome for one ticker.
type BackfillResult struct {
	Ticker string
	Points int
	Err    error
}

// Backfiller loads daily bars into InfluxDB in the layout InfluxSeries
// reads: one point per bar in the measurement, tagged by ticker, with
// open, high, low, close, adj_close and volume fields.
type Backfiller struct {
	source      BarSource
	writer      api.WriteAPIBlocking
	measurement string
	workers     int
	logger      *slog.Logger
}

// NewBackfiller wires source to writer. workers <= 0 means
// DefaultBackfillWorkers.
func NewBackfiller(source BarSource, writer api.WriteAPIBlocking, measurement string, workers int, logger *slog.Logger) *Backfiller {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	if workers <= 0 {
		workers = DefaultBackfillWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{
		source:      source,
		writer:      writer,
		measurement: measurement,
		workers:     workers,
		logger:      logger,
	}
}

// Backfill fetches and writes bars for every ticker in [from, to].
//
// # Description
//
// Tickers are sanitized first; any invalid ticker fails the whole call
// before anything is fetched. Per-ticker fetch or write failures are
// reported in that ticker's result and do not stop the others. Results
// are returned in input order. The returned error is non-nil only for
// invalid input or a canceled ctx.
func (b *Backfiller) Backfill(ctx context.Context, tickers []string, from, to time.Time) ([]BackfillResult, error) {
	clean := make([]string, len(tickers))
	for i, t := range tickers {
		s, err := validation.SanitizeTicker(t)
		if err != nil {
			return nil, fmt.Errorf("invalid ticker %q: %w", t, err)
		}
		clean[i] = s
	}

	results := make([]BackfillResult, len(clean))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, ticker := range clean {
		g.Go(func() error {
			n, err := b.backfillOne(gctx, ticker, from, to)
			mu.Lock()
			results[i] = BackfillResult{Ticker: ticker, Points: n, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (b *Backfiller) backfillOne(ctx context.Context, ticker string, from, to time.Time) (int, error) {
	bars, err := b.source.DailyBars(ctx, ticker, from, to)
	if err != nil {
		b.logger.Error("failed to fetch bars", "ticker", ticker, "error", err)
		return 0, err
	}
	if len(bars) == 0 {
		b.logger.Info("no bars to write", "ticker", ticker)
		return 0, nil
	}

	points := make([]*write.Point, 0, len(bars))
	for _, bar := range bars {
		points = append(points, influxdb2.NewPoint(
			b.measurement,
			map[string]string{"ticker": ticker},
			map[string]interface{}{
				"open":      bar.Open,
				"high":      bar.High,
				"low":       bar.Low,
				"close":     bar.Close,
				"adj_close": bar.AdjClose,
				"volume":    bar.Volume,
			},
			bar.Time,
		))
	}
	if err := b.writer.WritePoint(ctx, points...); err != nil {
		b.logger.Error("failed to write bars", "ticker", ticker, "error", err)
		return 0, fmt.Errorf("InfluxDB write failed: %w", err)
	}
	b.logger.Info("bars written", "ticker", ticker, "points", len(points))
	return len(points), nil
}
