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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AleutianAI/AleutianRisk/services/riskengine/observability"
)

// BreakerConfig configures the circuit breaker in front of each collaborator.
//
// # Description
//
// After ConsecutiveFailures failed calls the breaker opens and calls fail
// immediately for OpenTimeout. It then lets HalfOpenRequests probes through;
// a success closes it again.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// DefaultBreakerConfig returns the production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// Call status labels for metrics.
const (
	callStatusOK      = "ok"
	callStatusError   = "error"
	callStatusTimeout = "timeout"
	callStatusOpen    = "breaker_open"
)

// guard bounds one collaborator call by a timeout and a circuit breaker.
//
// # Thread Safety
//
// guard is safe for concurrent use.
type guard struct {
	name    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	logger  *slog.Logger
	metrics *observability.RiskMetrics
}

func newGuard(name string, timeout time.Duration, cfg BreakerConfig, logger *slog.Logger, metrics *observability.RiskMetrics) *guard {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultBreakerConfig()
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}

	g := &guard{name: name, timeout: timeout, logger: logger, metrics: metrics}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("collaborator breaker state changed",
				"collaborator", name, "from", from.String(), "to", to.String())
			metrics.SetBreakerState(name, int(to))
		},
		// Caller cancellation says nothing about collaborator health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	metrics.SetBreakerState(name, int(gobreaker.StateClosed))
	return g
}

// call runs fn under the guard's deadline and breaker. The wait is bounded
// even if fn ignores its context; a late result is discarded.
func call[T any](ctx context.Context, g *guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.cb.Execute(func() (interface{}, error) {
		type result struct {
			v   T
			err error
		}
		done := make(chan result, 1)
		go func() {
			v, err := fn(callCtx)
			done <- result{v: v, err: err}
		}()

		select {
		case r := <-done:
			return r.v, r.err
		case <-callCtx.Done():
			return zero, callCtx.Err()
		}
	})

	status := callStatusOK
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = callStatusOpen
	case errors.Is(err, context.DeadlineExceeded):
		status = callStatusTimeout
	default:
		status = callStatusError
	}
	g.metrics.RecordCollaboratorCall(g.name, status, time.Since(start))

	if err != nil {
		return zero, &UpstreamError{Collaborator: g.name, Err: err}
	}
	v, ok := out.(T)
	if !ok {
		return zero, &UpstreamError{Collaborator: g.name, Err: fmt.Errorf("unexpected result type %T", out)}
	}
	return v, nil
}
