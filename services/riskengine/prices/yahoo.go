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
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultChartURL is the public Yahoo Finance chart endpoint.
const DefaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Bar is one daily OHLCV bar.
type Bar struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// BarSource returns daily bars for a ticker in [from, to].
type BarSource interface {
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error)
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

type yahooResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// YahooSource reads daily bars from the Yahoo Finance chart API.
type YahooSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewYahooSource returns a source for baseURL (DefaultChartURL when empty).
func NewYahooSource(baseURL string, timeout time.Duration) *YahooSource {
	if baseURL == "" {
		baseURL = DefaultChartURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DailyBars fetches daily bars. Rows with a missing or null field are
// skipped; the chart API reports halted sessions as nulls.
func (y *YahooSource) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error) {
	if from.After(to) {
		return nil, nil
	}
	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&events=history",
		y.baseURL, ticker, from.Unix(), to.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call chart API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned status %s", resp.Status)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("failed to decode chart JSON: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %v", chart.Chart.Error)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no results for ticker %s", ticker)
	}

	res := chart.Chart.Result[0]
	if len(res.Indicators.AdjClose) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("incomplete indicators for ticker %s", ticker)
	}
	adj := res.Indicators.AdjClose[0].AdjClose
	q := res.Indicators.Quote[0]

	bars := make([]Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		open, high, low := at(q.Open, i), at(q.High, i), at(q.Low, i)
		closePx, adjClose, volume := at(q.Close, i), at(adj, i), at(q.Volume, i)
		if open == nil || high == nil || low == nil || closePx == nil || adjClose == nil || volume == nil {
			continue
		}
		bars = append(bars, Bar{
			Time:     time.Unix(ts, 0).UTC(),
			Open:     *open,
			High:     *high,
			Low:      *low,
			Close:    *closePx,
			AdjClose: *adjClose,
			Volume:   *volume,
		})
	}
	return bars, nil
}

// at returns s[i], or nil when i is out of range.
func at[T any](s []*T, i int) *T {
	if i >= len(s) {
		return nil
	}
	return s[i]
}

var _ BarSource = (*YahooSource)(nil)
