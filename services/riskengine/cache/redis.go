// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares assessments between engine replicas.
//
// Add uses SET NX with an expiry, so the first replica to finish wins and
// later writers leave the entry untouched.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing client. The caller owns the client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// DialRedis creates a client for addr and verifies it with PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Get returns the entry for key. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (*riskengine.RiskAssessment, bool, error) {
	data, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	a, err := decodeAssessment(data)
	if err != nil {
		return nil, false, err
	}
	if !current(a) {
		return nil, false, nil
	}
	return a, true, nil
}

// Add stores a under key with ttl unless the key already exists.
func (c *RedisCache) Add(ctx context.Context, key string, a *riskengine.RiskAssessment, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := encodeAssessment(a)
	if err != nil {
		return err
	}
	if err := c.client.SetNX(ctx, KeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	return nil
}
