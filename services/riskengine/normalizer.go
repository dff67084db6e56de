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
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/AleutianAI/AleutianRisk/pkg/validation"
)

// Normalize validates a RawEvent and returns its canonical form.
//
// Title and raw text are whitespace-trimmed. The ticker is checked as given,
// so "aapl" fails instead of being folded. Dates are canonicalized to UTC
// midnight.
func Normalize(raw RawEvent) (Event, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return Event{}, &ValidationError{Field: "title", Value: raw.Title, Reason: "title cannot be empty"}
	}

	ticker := strings.TrimSpace(raw.Ticker)
	if err := validation.ValidateTicker(ticker); err != nil {
		return Event{}, &ValidationError{Field: "ticker", Value: raw.Ticker, Reason: err.Error()}
	}

	date, err := validation.ParseEventDate(raw.Date)
	if err != nil {
		return Event{}, &ValidationError{Field: "date", Value: raw.Date, Reason: err.Error()}
	}

	return Event{
		Title:   title,
		Ticker:  ticker,
		Date:    date,
		RawText: strings.TrimSpace(raw.RawText),
	}, nil
}

// Fingerprint is the cache and dedup key for an event: SHA-256 of title,
// ticker, date and, when present, raw text.
func Fingerprint(e Event) string {
	h := sha256.New()
	h.Write([]byte(e.Title))
	h.Write([]byte{0})
	h.Write([]byte(e.Ticker))
	h.Write([]byte{0})
	h.Write([]byte(validation.FormatEventDate(e.Date)))
	if e.RawText != "" {
		h.Write([]byte{0})
		h.Write([]byte(e.RawText))
	}
	return hex.EncodeToString(h.Sum(nil))
}
