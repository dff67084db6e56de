// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package enginetest

import (
	"math"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
)

// AAPLRecallDate is the event date of the product recall fixture.
var AAPLRecallDate = time.Date(2024, time.January, 17, 0, 0, 0, 0, time.UTC)

// AAPLRecallEvent is a negative, high-impact product event.
func AAPLRecallEvent() riskengine.RawEvent {
	return riskengine.RawEvent{
		Title:  "Apple announces major product recall",
		Ticker: "AAPL",
		Date:   "2024-01-17",
	}
}

// AAPLRecallInsight is a confident Negative/Product read.
func AAPLRecallInsight() *riskengine.InsightResponse {
	return &riskengine.InsightResponse{
		Sentiment:  "Negative",
		EventType:  "Product",
		Summary:    "Apple is recalling a flagship product after safety reports.",
		Confidence: 0.8,
		Sector:     "Technology",
	}
}

// AAPLRecallAnalogs are two analogs at similarity 0.9 and 0.75.
func AAPLRecallAnalogs() []riskengine.HistoricalEvent {
	return []riskengine.HistoricalEvent{
		{
			ID:        "hist-001",
			Title:     "Samsung recalls Galaxy Note 7 over battery fires",
			Distance:  0.2,
			Sentiment: "Negative",
			Severity:  0.7,
			EventDate: time.Date(2016, time.September, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "hist-002",
			Title:     "Apple faces battery throttling probe",
			Distance:  0.5,
			Sentiment: "-0.6",
			Severity:  0.5,
			EventDate: time.Date(2017, time.December, 21, 0, 0, 0, 0, time.UTC),
		},
	}
}

// dailyLogMove is the alternating daily log return of the fixture series.
// Twenty alternating moves give an annualized volatility of about 0.35.
const dailyLogMove = 0.0215

// AAPLRecallBars is a weekday close series around the event date. Closes
// alternate up and down before the event; after it they sit 3%, 2.5% and
// 2% below the event close at 1, 3 and 5 trading days.
func AAPLRecallBars() []riskengine.DailyClose {
	var bars []riskengine.DailyClose
	px := 180.0
	up := true
	for d := time.Date(2023, time.November, 20, 0, 0, 0, 0, time.UTC); !d.After(AAPLRecallDate); d = d.AddDate(0, 0, 1) {
		if isWeekend(d) {
			continue
		}
		if len(bars) > 0 {
			if up {
				px *= math.Exp(dailyLogMove)
			} else {
				px *= math.Exp(-dailyLogMove)
			}
			up = !up
		}
		bars = append(bars, riskengine.DailyClose{Date: d, Close: px})
	}

	base := px
	after := []float64{0.97, 0.965, 0.975, 0.978, 0.98, 0.985, 0.99}
	d := AAPLRecallDate
	for _, f := range after {
		d = d.AddDate(0, 0, 1)
		for isWeekend(d) {
			d = d.AddDate(0, 0, 1)
		}
		bars = append(bars, riskengine.DailyClose{Date: d, Close: base * f})
	}
	return bars
}

func isWeekend(d time.Time) bool {
	return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
}

// AAPLRecallCollaborators wires fresh doubles loaded with the AAPL fixture.
func AAPLRecallCollaborators() (*Understander, *Searcher, *Prices) {
	return &Understander{Response: AAPLRecallInsight()},
		&Searcher{Hits: AAPLRecallAnalogs()},
		&Prices{Bars: AAPLRecallBars()}
}
