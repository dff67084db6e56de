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
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrAggregation         = errors.New("aggregation invariant violated")
)

// ValidationError reports a malformed event field. It is the only failure
// the engine surfaces for bad input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Collaborator names used in UpstreamError, logs, and metric labels.
const (
	CollaboratorInsight = "event_understanding"
	CollaboratorVector  = "vector_search"
	CollaboratorPrices  = "price_series"
)

// UpstreamError wraps a collaborator failure: timeout, transport error,
// open breaker, or malformed response. It is absorbed inside the engine.
type UpstreamError struct {
	Collaborator string
	Err          error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// AggregationError reports an internal invariant violation during scoring.
// The request fails closed rather than returning a wrong score.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return "aggregation failed: " + e.Reason
}

// Is reports whether target is ErrAggregation.
func (e *AggregationError) Is(target error) bool {
	return target == ErrAggregation
}

func aggregationErrorf(format string, args ...any) *AggregationError {
	return &AggregationError{Reason: fmt.Sprintf(format, args...)}
}
