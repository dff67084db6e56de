// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides riskengine.ResultCache implementations.
//
// Three backends share one contract: Get returns a private copy, Add is an
// insert-if-absent with a TTL, and entries are never updated in place.
//
//   - MemoryCache: process-local, LRU-bounded.
//   - BadgerCache: embedded on-disk store, survives restarts.
//   - RedisCache: shared between replicas.
//
// The persistent backends treat entries written by a different
// AlgorithmVersion as misses.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
)

// KeyPrefix namespaces assessment keys in shared stores.
const KeyPrefix = "risk:assessment:"

func encodeAssessment(a *riskengine.RiskAssessment) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("nil assessment")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode assessment: %w", err)
	}
	return data, nil
}

func decodeAssessment(data []byte) (*riskengine.RiskAssessment, error) {
	var a riskengine.RiskAssessment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	return &a, nil
}

// current reports whether a was produced by this build's scoring algorithm.
func current(a *riskengine.RiskAssessment) bool {
	return a != nil && a.AlgorithmVersion == riskengine.AlgorithmVersion
}
