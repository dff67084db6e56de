// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package riskengine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		raw       RawEvent
		wantField string
	}{
		{"valid", RawEvent{Title: "Apple announces recall", Ticker: "AAPL", Date: "2024-01-17"}, ""},
		{"rfc3339 date", RawEvent{Title: "x", Ticker: "MSFT", Date: "2024-01-17T21:30:00Z"}, ""},
		{"digits in ticker", RawEvent{Title: "x", Ticker: "BRK1", Date: "2024-01-17"}, ""},
		{"empty title", RawEvent{Title: "", Ticker: "AAPL", Date: "2024-01-17"}, "title"},
		{"whitespace title", RawEvent{Title: "   ", Ticker: "AAPL", Date: "2024-01-17"}, "title"},
		{"lowercase ticker", RawEvent{Title: "x", Ticker: "aapl1", Date: "2024-01-17"}, "ticker"},
		{"ticker too long", RawEvent{Title: "x", Ticker: "ABCDEFG", Date: "2024-01-17"}, "ticker"},
		{"dotted ticker", RawEvent{Title: "x", Ticker: "BRK.A", Date: "2024-01-17"}, "ticker"},
		{"empty ticker", RawEvent{Title: "x", Ticker: "", Date: "2024-01-17"}, "ticker"},
		{"bad date", RawEvent{Title: "x", Ticker: "AAPL", Date: "17/01/2024"}, "date"},
		{"empty date", RawEvent{Title: "x", Ticker: "AAPL", Date: ""}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Normalize(tt.raw)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, 0, ev.Date.Hour())
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestNormalize_TrimsWithoutFolding(t *testing.T) {
	ev, err := Normalize(RawEvent{
		Title:   "  Apple announces recall \n",
		Ticker:  " AAPL ",
		Date:    "2024-01-17",
		RawText: "  body  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Apple announces recall", ev.Title)
	assert.Equal(t, "AAPL", ev.Ticker)
	assert.Equal(t, "body", ev.RawText)
	assert.Equal(t, day(2024, 1, 17), ev.Date)
}

func TestFingerprint(t *testing.T) {
	a, err := Normalize(RawEvent{Title: "Recall", Ticker: "AAPL", Date: "2024-01-17"})
	require.NoError(t, err)
	b, err := Normalize(RawEvent{Title: " Recall ", Ticker: "AAPL", Date: "2024-01-17T10:00:00Z", RawText: "  "})
	require.NoError(t, err)
	c, err := Normalize(RawEvent{Title: "Recall", Ticker: "AAPL", Date: "2024-01-18"})
	require.NoError(t, err)
	d, err := Normalize(RawEvent{Title: "Recall", Ticker: "AAPL", Date: "2024-01-17", RawText: "battery fires"})
	require.NoError(t, err)
	e, err := Normalize(RawEvent{Title: "Recall", Ticker: "AAPL", Date: "2024-01-17", RawText: "labelling correction"})
	require.NoError(t, err)

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(d))
	assert.NotEqual(t, Fingerprint(d), Fingerprint(e))
	assert.Len(t, Fingerprint(a), 64)
}
