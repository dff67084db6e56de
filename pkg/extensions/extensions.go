// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extensions defines the hooks the risk API calls around each
// request: who is calling, and what gets recorded about the call.
//
// The open source build authenticates nobody (NopAuthProvider) unless
// static API tokens are configured, and writes audit events to the process
// logger. Deployments with an identity provider or a compliance store
// inject their own implementations through ServiceOptions.
//
// # Usage
//
//	opts := extensions.DefaultOptions().
//	    WithAuth(extensions.NewStaticTokenAuthProvider(tokens)).
//	    WithAudit(extensions.NewSlogAuditLogger(logger))
//	svc, err := riskapi.New(cfg, logger, &opts)
package extensions

// ServiceOptions carries the extension implementations for one service.
//
// All fields must be non-nil. Start from DefaultOptions and replace what
// you need with the With* methods.
type ServiceOptions struct {
	// AuthProvider validates bearer tokens on /v1 routes.
	// Default: NopAuthProvider (every caller is the local user)
	AuthProvider AuthProvider

	// AuditLogger records every assessment request and its outcome.
	// Default: NopAuditLogger
	AuditLogger AuditLogger
}

// DefaultOptions returns options with no-op implementations.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
		AuditLogger:  &NopAuditLogger{},
	}
}

// WithAuth returns a copy of opts using provider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAudit returns a copy of opts using logger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}
