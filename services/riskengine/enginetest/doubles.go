// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package enginetest provides in-memory collaborators for testing code that
// uses the risk engine.
//
// Each double returns a fixed response or error, optionally after a delay,
// and counts its calls. Delays honor context cancellation.
package enginetest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
)

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Understander is a fixed EventUnderstander.
type Understander struct {
	Response *riskengine.InsightResponse
	Err      error
	Delay    time.Duration

	calls atomic.Int64
	mu    sync.Mutex
	last  riskengine.InsightRequest
}

// Understand returns the configured response.
func (u *Understander) Understand(ctx context.Context, req riskengine.InsightRequest) (*riskengine.InsightResponse, error) {
	u.calls.Add(1)
	u.mu.Lock()
	u.last = req
	u.mu.Unlock()
	if err := wait(ctx, u.Delay); err != nil {
		return nil, err
	}
	if u.Err != nil {
		return nil, u.Err
	}
	if u.Response == nil {
		return nil, nil
	}
	resp := *u.Response
	return &resp, nil
}

// Calls is the number of Understand calls.
func (u *Understander) Calls() int { return int(u.calls.Load()) }

// LastRequest is the most recent request.
func (u *Understander) LastRequest() riskengine.InsightRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}

// Searcher is a fixed VectorSearcher.
type Searcher struct {
	Hits  []riskengine.HistoricalEvent
	Err   error
	Delay time.Duration

	calls     atomic.Int64
	mu        sync.Mutex
	lastQuery string
}

// Search returns the configured hits, at most topK of them.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]riskengine.HistoricalEvent, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastQuery = query
	s.mu.Unlock()
	if err := wait(ctx, s.Delay); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	hits := append([]riskengine.HistoricalEvent(nil), s.Hits...)
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Calls is the number of Search calls.
func (s *Searcher) Calls() int { return int(s.calls.Load()) }

// LastQuery is the most recent query text.
func (s *Searcher) LastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// Prices is a fixed PriceSeries. Bars outside the requested window are
// filtered out, as a real store would.
type Prices struct {
	Bars  []riskengine.DailyClose
	Err   error
	Delay time.Duration

	calls atomic.Int64
}

// DailyCloses returns the configured bars within [from, to].
func (p *Prices) DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]riskengine.DailyClose, error) {
	p.calls.Add(1)
	if err := wait(ctx, p.Delay); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]riskengine.DailyClose, 0, len(p.Bars))
	for _, b := range p.Bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Calls is the number of DailyCloses calls.
func (p *Prices) Calls() int { return int(p.calls.Load()) }

// Cache is a map-backed ResultCache that ignores TTLs.
type Cache struct {
	GetErr error
	AddErr error

	mu      sync.Mutex
	entries map[string]*riskengine.RiskAssessment
	adds    int
}

// Get returns a copy of the entry for key.
func (c *Cache) Get(_ context.Context, key string) (*riskengine.RiskAssessment, bool, error) {
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

// Add stores a copy of a unless key is already present.
func (c *Cache) Add(_ context.Context, key string, a *riskengine.RiskAssessment, _ time.Duration) error {
	if c.AddErr != nil {
		return c.AddErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]*riskengine.RiskAssessment)
	}
	c.adds++
	if _, ok := c.entries[key]; !ok {
		c.entries[key] = a.Clone()
	}
	return nil
}

// Len is the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
