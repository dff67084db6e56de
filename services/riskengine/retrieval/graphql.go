// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// ParseGraphQLResponse converts a Weaviate GraphQL response into a typed struct.
//
// # Description
//
// The client returns Data as nested map[string]interface{} values. Rather
// than walking that by hand, the data is re-marshaled to JSON and decoded
// into T, so field tags on T drive the mapping.
//
// GraphQL-level errors (resp.Errors) are returned as an error even when Data
// is present, since a partial Get result is not trustworthy for ranking.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 && resp.Errors[0] != nil {
		return nil, fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}
	return &result, nil
}

// additional is the `_additional` block requested on every hit.
type additional struct {
	ID       string   `json:"id"`
	Distance *float64 `json:"distance"`
}

// historicalEventHit is one object of the HistoricalEvent class.
type historicalEventHit struct {
	EventID    string     `json:"event_id"`
	Title      string     `json:"title"`
	Sentiment  string     `json:"sentiment"`
	Severity   *float64   `json:"severity"`
	EventDate  string     `json:"event_date"`
	Additional additional `json:"_additional"`
}

// historicalEventQueryResponse is the Data shape of a Get on the class.
// The class name is dynamic, so Get is decoded as a map keyed by class.
type historicalEventQueryResponse struct {
	Get map[string][]historicalEventHit `json:"Get"`
}
