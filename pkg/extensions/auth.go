// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when a token is missing or not recognized.
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo identifies an authenticated caller.
type AuthInfo struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the caller holds role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates a bearer token.
//
// Implementations must be safe for concurrent use. Validate returns an
// error wrapping ErrUnauthorized for a bad token; any other error is
// treated as a provider failure.
type AuthProvider interface {
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request as the local user.
type NopAuthProvider struct{}

// Validate always succeeds.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"analyst"},
	}, nil
}

// StaticTokenAuthProvider accepts a fixed set of API tokens.
//
// Tokens are compared by SHA-256 digest in constant time. The caller's
// UserID is "token-<n>", where n is the token's position in the
// configured list.
type StaticTokenAuthProvider struct {
	digests [][sha256.Size]byte
}

// NewStaticTokenAuthProvider builds a provider for tokens. Empty tokens
// are ignored.
func NewStaticTokenAuthProvider(tokens []string) *StaticTokenAuthProvider {
	p := &StaticTokenAuthProvider{}
	for _, t := range tokens {
		if t == "" {
			continue
		}
		p.digests = append(p.digests, sha256.Sum256([]byte(t)))
	}
	return p
}

// Validate matches token against the configured set.
func (p *StaticTokenAuthProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	got := sha256.Sum256([]byte(token))
	match := -1
	for i, d := range p.digests {
		if subtle.ConstantTimeCompare(got[:], d[:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return nil, fmt.Errorf("%w: unknown token", ErrUnauthorized)
	}
	return &AuthInfo{
		UserID: fmt.Sprintf("token-%d", match),
		Roles:  []string{"analyst"},
	}, nil
}

var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*StaticTokenAuthProvider)(nil)
)
