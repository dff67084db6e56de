// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date layout for events.
const DateLayout = "2006-01-02"

// ErrEmptyDate is returned for a blank date.
var ErrEmptyDate = errors.New("date cannot be empty")

// ParseEventDate parses a calendar date into UTC midnight.
//
// Accepts "2006-01-02" and RFC 3339 timestamps. Timestamps are truncated to
// their calendar date in their own offset, so "2024-01-17T23:30:00-05:00"
// becomes 2024-01-17.
func ParseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %q (want YYYY-MM-DD)", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FormatEventDate renders a date in the canonical layout.
func FormatEventDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
