// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package riskengine

import (
	"context"
	"io"
	"log/slog"
	"time"
)

type understanderFunc func(ctx context.Context, req InsightRequest) (*InsightResponse, error)

func (f understanderFunc) Understand(ctx context.Context, req InsightRequest) (*InsightResponse, error) {
	return f(ctx, req)
}

type searcherFunc func(ctx context.Context, query string, topK int) ([]HistoricalEvent, error)

func (f searcherFunc) Search(ctx context.Context, query string, topK int) ([]HistoricalEvent, error) {
	return f(ctx, query, topK)
}

type seriesFunc func(ctx context.Context, ticker string, from, to time.Time) ([]DailyClose, error)

func (f seriesFunc) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]DailyClose, error) {
	return f(ctx, ticker, from, to)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
