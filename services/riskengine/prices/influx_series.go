// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prices implements riskengine.PriceSeries on InfluxDB.
package prices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianRisk/pkg/validation"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.risk.prices")

// DefaultMeasurement is the measurement daily bars are written to.
const DefaultMeasurement = "stock_prices"

// InfluxConfig locates the price data.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// InfluxSeries reads daily closes from a pivoted OHLC measurement.
//
// # Thread Safety
//
// Safe for concurrent use. The underlying client is shared.
type InfluxSeries struct {
	client      influxdb2.Client
	queryAPI    api.QueryAPI
	org         string
	bucket      string
	measurement string
	logger      *slog.Logger
}

// NewInfluxSeries opens an InfluxDB client for cfg. Call Close when done.
func NewInfluxSeries(cfg InfluxConfig, logger *slog.Logger) (*InfluxSeries, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx url, org and bucket are required")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = DefaultMeasurement
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSeries{
		client:      client,
		queryAPI:    client.QueryAPI(cfg.Org),
		org:         cfg.Org,
		bucket:      cfg.Bucket,
		measurement: cfg.Measurement,
		logger:      logger,
	}, nil
}

// DailyCloses returns closes for ticker in [from, to] inclusive, ascending.
// Rows without a numeric close are skipped.
func (s *InfluxSeries) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]riskengine.DailyClose, error) {
	ctx, span := tracer.Start(ctx, "InfluxSeries.DailyCloses")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker))

	// Ticker is interpolated into Flux.
	if err := validation.ValidateTicker(ticker); err != nil {
		return nil, fmt.Errorf("invalid ticker: %w", err)
	}

	query := BuildCloseQuery(s.bucket, s.measurement, ticker, from, to)
	s.logger.Debug("fetching daily closes from InfluxDB",
		"ticker", ticker,
		"start", from.Format("2006-01-02"),
		"end", to.Format("2006-01-02"))

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("InfluxDB query failed: %w", err)
	}
	defer func() { _ = result.Close() }()

	closes := make([]riskengine.DailyClose, 0, 32)
	for result.Next() {
		record := result.Record()
		px, ok := record.ValueByKey("close").(float64)
		if !ok {
			continue
		}
		closes = append(closes, riskengine.DailyClose{Date: record.Time().UTC(), Close: px})
	}
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, "read failed")
		return nil, fmt.Errorf("error reading InfluxDB results: %w", result.Err())
	}

	span.SetAttributes(attribute.Int("prices.rows", len(closes)))
	return closes, nil
}

// WriteAPI returns a blocking writer for the configured org and bucket.
func (s *InfluxSeries) WriteAPI() api.WriteAPIBlocking {
	return s.client.WriteAPIBlocking(s.org, s.bucket)
}

// Measurement is the measurement closes are read from.
func (s *InfluxSeries) Measurement() string {
	return s.measurement
}

// Close releases the client's connections.
func (s *InfluxSeries) Close() {
	s.client.Close()
}

// BuildCloseQuery returns the Flux query for daily closes. The stop bound is
// exclusive in Flux, so it is pushed to the day after to.
func BuildCloseQuery(bucket, measurement, ticker string, from, to time.Time) string {
	start := truncateDay(from).Format(time.RFC3339)
	stop := truncateDay(to).Add(24 * time.Hour).Format(time.RFC3339)

	return fmt.Sprintf(`
		from(bucket: %q)
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == %q)
		  |> filter(fn: (r) => r.ticker == %q)
		  |> filter(fn: (r) => r._field == "close")
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, bucket, start, stop, measurement, ticker)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
