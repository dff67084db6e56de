// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package riskengine assigns a 0-100 risk score and an explanation to a
// market-moving news event.
//
// The engine fuses three signals, each served by an external collaborator
// that may be slow or unavailable:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     Risk Assessment Pipeline                    │
//	├─────────────────────────────────────────────────────────────────┤
//	│                                                                 │
//	│  RawEvent ──► Normalizer ──(ValidationError)──► caller          │
//	│                   │                                             │
//	│                   ▼                                             │
//	│  ┌──────────────┬──────────────────┬──────────────────┐         │
//	│  │  AI Insight  │    Similarity    │  Price Reaction  │         │
//	│  │  (LLM read)  │  (vector search) │  (daily closes)  │         │
//	│  └──────────────┴──────────────────┴──────────────────┘         │
//	│         │                │                  │                   │
//	│         └────────────────┼──────────────────┘                   │
//	│                          ▼                                      │
//	│                   ┌────────────┐                                │
//	│                   │ Aggregator │  weights redistributed over    │
//	│                   └────────────┘  available factors             │
//	│                          ▼                                      │
//	│                   ┌────────────┐                                │
//	│                   │ Explainer  │  reasoning + recommendations   │
//	│                   └────────────┘                                │
//	│                          ▼                                      │
//	│                   RiskAssessment (Low / Medium / High)          │
//	│                                                                 │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Factors
//
//	sentiment_severity  0.30  AI sentiment, event type, headline keywords
//	analog_severity     0.30  similarity-weighted severity of past events
//	price_reaction      0.25  largest forward return magnitude (1/3/5 days)
//	volatility          0.15  20-day annualized volatility
//
// Every factor carries a Provenance. A Defaulted factor keeps its weight
// with a fallback value. An Unavailable factor gets weight zero and its
// share is spread proportionally over the rest, so the engine always
// answers and the degradation is visible in the output.
//
// # Errors
//
// Only *ValidationError and *AggregationError are returned from Assess.
// Collaborator failures are absorbed as *UpstreamError values that are
// logged and counted but never surfaced.
//
// # Thread Safety
//
// Engine is safe for concurrent use. It holds no per-request mutable state;
// the optional ResultCache is the only structure shared between requests.
//
// # Algorithm Versioning
//
// When changing weights, curves, or text templates, increment
// AlgorithmVersion so cached and persisted assessments can be told apart.
package riskengine
