// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for event fields that flow
// into collaborator queries.
//
// Tickers end up inside Flux queries and Weaviate filters, so they are
// checked against a strict symbol pattern before anything else sees them.
// Dates are parsed into a canonical UTC calendar day.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxTickerLength is the longest symbol accepted.
const MaxTickerLength = 6

// tickerPattern matches 1-6 uppercase letters or digits. Lowercase input is
// rejected rather than folded so a caller typo is visible.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9]{1,6}$`)

// ErrEmptyTicker is returned for a blank symbol.
var ErrEmptyTicker = errors.New("ticker cannot be empty")

// ValidateTicker validates a stock ticker symbol.
//
// Valid tickers:
//   - 1-6 characters
//   - Uppercase letters A-Z
//   - Digits 0-9
//
// Example:
//
//	if err := validation.ValidateTicker(ticker); err != nil {
//	    return nil, fmt.Errorf("invalid ticker: %w", err)
//	}
//	// Safe to use in Flux query
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return ErrEmptyTicker
	}

	if !tickerPattern.MatchString(ticker) {
		return fmt.Errorf("invalid ticker format: %q (must be 1-%d uppercase alphanumeric chars)", ticker, MaxTickerLength)
	}

	return nil
}

// ValidateTickers validates multiple ticker symbols.
// Returns an error listing all invalid tickers if any fail validation.
func ValidateTickers(tickers []string) error {
	var invalid []string
	for _, t := range tickers {
		if err := ValidateTicker(t); err != nil {
			invalid = append(invalid, t)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid tickers: %v", invalid)
	}
	return nil
}

// SanitizeTicker trims and upper-cases a ticker, then validates it.
//
// Use this for operator-facing inputs such as CLI flags, where folding case
// is friendlier. The engine itself calls ValidateTicker on the raw value.
func SanitizeTicker(ticker string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(ticker))
	if err := ValidateTicker(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
