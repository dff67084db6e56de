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
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine/observability"
)

// Price window constants.
const (
	DefaultPriceTimeout = 10 * time.Second

	lookbackDays          = 45
	lookaheadDays         = 14
	baselineToleranceDays = 7
	horizonSlackDays      = 7
	volatilityWindow      = 20
	minVolatilityReturns  = 5
	tradingDaysPerYear    = 252
)

// priceHorizons are the forward horizons in trading days.
var priceHorizons = []int{1, 3, 5}

const oneDay = 24 * time.Hour

// PriceReactionCalculator measures how a ticker moved around an event.
//
// # Thread Safety
//
// PriceReactionCalculator is safe for concurrent use.
type PriceReactionCalculator struct {
	series PriceSeries
	guard  *guard
	logger *slog.Logger
}

// NewPriceReactionCalculator creates a calculator over series.
func NewPriceReactionCalculator(series PriceSeries, timeout time.Duration, breaker BreakerConfig, logger *slog.Logger, metrics *observability.RiskMetrics) *PriceReactionCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultPriceTimeout
	}
	return &PriceReactionCalculator{
		series: series,
		guard:  newGuard(CollaboratorPrices, timeout, breaker, logger, metrics),
		logger: logger,
	}
}

// Calculate fetches closes around date and computes the reaction.
//
// # Description
//
// The baseline is the close on date or the nearest prior bar within seven
// calendar days. Horizon N is the Nth bar after the baseline, provided it
// lies within N+7 calendar days. Volatility is the annualized sample
// standard deviation of up to 20 trailing daily log returns ending at the
// baseline, and needs at least 5 returns.
//
// # Outputs
//
//   - PriceReaction: Available is false with every field nil when the
//     collaborator failed or returned no bars.
func (c *PriceReactionCalculator) Calculate(ctx context.Context, ticker string, date time.Time) PriceReaction {
	if c == nil || c.series == nil {
		return PriceReaction{}
	}

	date = truncateDay(date)
	from := date.Add(-lookbackDays * oneDay)
	to := date.Add(lookaheadDays * oneDay)

	bars, err := call(ctx, c.guard, func(ctx context.Context) ([]DailyClose, error) {
		return c.series.DailyCloses(ctx, ticker, from, to)
	})
	if err != nil {
		c.logger.Warn("price series unavailable",
			"ticker", ticker, "collaborator", CollaboratorPrices, "error", err)
		return PriceReaction{}
	}

	bars = cleanBars(bars)
	if len(bars) == 0 {
		c.logger.Debug("price series empty", "ticker", ticker)
		return PriceReaction{}
	}
	return reactionFromBars(bars, date)
}

// reactionFromBars computes the reaction from ascending, de-duplicated bars.
func reactionFromBars(bars []DailyClose, date time.Time) PriceReaction {
	out := PriceReaction{Available: true}

	base := -1
	for i, b := range bars {
		if b.Date.After(date) {
			break
		}
		base = i
	}
	if base >= 0 && date.Sub(bars[base].Date) > baselineToleranceDays*oneDay {
		base = -1
	}

	if base >= 0 {
		baseBar := bars[base]
		bd, bc := baseBar.Date, baseBar.Close
		out.BaselineDate = &bd
		out.BaselineClose = &bc

		for _, n := range priceHorizons {
			idx := base + n
			if idx >= len(bars) {
				continue
			}
			h := bars[idx]
			if h.Date.Sub(baseBar.Date) > time.Duration(n+horizonSlackDays)*oneDay {
				continue
			}
			r := h.Close/baseBar.Close - 1
			switch n {
			case 1:
				out.Return1d = &r
			case 3:
				out.Return3d = &r
			case 5:
				out.Return5d = &r
			}
			out.Horizons = append(out.Horizons, HorizonPrice{Days: n, Date: h.Date, Close: h.Close})
		}
	}

	// Without a baseline, volatility uses whatever history precedes the event.
	end := base
	if end < 0 {
		for i, b := range bars {
			if b.Date.After(date) {
				break
			}
			end = i
		}
	}
	if end >= 0 {
		out.Volatility20d = trailingVolatility(bars[:end+1])
	}
	return out
}

// trailingVolatility is the annualized sample std of the last 20 daily log
// returns in bars, or nil with fewer than 5 returns.
func trailingVolatility(bars []DailyClose) *float64 {
	start := len(bars) - (volatilityWindow + 1)
	if start < 0 {
		start = 0
	}
	window := bars[start:]

	returns := make([]float64, 0, volatilityWindow)
	for i := 1; i < len(window); i++ {
		returns = append(returns, math.Log(window[i].Close/window[i-1].Close))
	}
	if len(returns) < minVolatilityReturns {
		return nil
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	vol := math.Sqrt(ss/float64(len(returns)-1)) * math.Sqrt(tradingDaysPerYear)
	return &vol
}

// cleanBars drops unusable closes, truncates dates to the day, sorts
// ascending, and keeps the last bar for any repeated date.
func cleanBars(in []DailyClose) []DailyClose {
	out := make([]DailyClose, 0, len(in))
	for _, b := range in {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		out = append(out, DailyClose{Date: truncateDay(b.Date), Close: b.Close})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
