// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package riskapi serves the risk engine over HTTP.
//
// # Routes
//
//   - POST /v1/risk/assess: run one assessment
//   - GET  /health: liveness
//   - GET  /metrics: Prometheus scrape endpoint (when metrics are enabled)
package riskapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianRisk/pkg/extensions"
	"github.com/AleutianAI/AleutianRisk/pkg/telemetry"
	"github.com/AleutianAI/AleutianRisk/services/riskapi/handlers"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/AleutianAI/AleutianRisk/services/riskengine/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const shutdownTimeout = 10 * time.Second

// Service is a runnable risk API.
type Service interface {
	// Run serves HTTP until ctx is canceled or the listener fails, then
	// shuts down gracefully and releases all resources.
	Run(ctx context.Context) error

	// Router returns the configured gin engine for testing.
	Router() *gin.Engine

	// Engine returns the underlying assessment engine.
	Engine() *riskengine.Engine
}

type service struct {
	config            Config
	logger            *slog.Logger
	components        *Components
	router            *gin.Engine
	extensions        extensions.ServiceOptions
	telemetryShutdown func(context.Context) error
}

// New builds the service: telemetry, metrics, collaborators, and routes.
//
// # Description
//
// Missing collaborators are not fatal; the engine runs degraded. A
// collaborator that is configured but cannot be created is fatal, as is a
// bad engine configuration.
//
// opts may be nil. The default authenticates with cfg.APITokens when any
// are set (otherwise nobody is authenticated) and audits to logger.
func New(cfg Config, logger *slog.Logger, opts *extensions.ServiceOptions) (Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{
		config:     applyConfigDefaults(cfg),
		logger:     logger,
		extensions: defaultExtensions(cfg, logger),
	}
	if opts != nil {
		s.extensions = *opts
	}

	shutdown, err := telemetry.Init(context.Background(), s.config.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	var metrics *observability.RiskMetrics
	if s.config.EnableMetrics {
		metrics = observability.InitMetrics()
		logger.Info("Initialized Prometheus metrics")
	}

	s.components, err = NewComponents(context.Background(), s.config, logger, metrics)
	if err != nil {
		s.cleanup()
		return nil, err
	}

	s.initRouter()
	return s, nil
}

// Run serves until ctx is done.
func (s *service) Run(ctx context.Context) error {
	defer s.cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting risk API server", "port", s.config.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down risk API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *service) Router() *gin.Engine {
	return s.router
}

func (s *service) Engine() *riskengine.Engine {
	return s.components.Engine
}

func (s *service) initRouter() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(otelgin.Middleware(s.config.Telemetry.ServiceName))
	s.router.Use(handlers.RequestID())

	s.router.GET("/health", handlers.HealthCheck)
	if s.config.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := s.router.Group("/v1", handlers.Authenticate(s.extensions.AuthProvider, s.logger))
	v1.POST("/risk/assess", handlers.HandleAssess(s.components.Engine, s.extensions.AuditLogger, s.logger))
}

func defaultExtensions(cfg Config, logger *slog.Logger) extensions.ServiceOptions {
	opts := extensions.DefaultOptions().WithAudit(extensions.NewSlogAuditLogger(logger))
	if len(cfg.APITokens) > 0 {
		opts = opts.WithAuth(extensions.NewStaticTokenAuthProvider(cfg.APITokens))
	}
	return opts
}

// cleanup releases clients and flushes telemetry.
func (s *service) cleanup() {
	if s.components != nil {
		if err := s.components.Close(); err != nil {
			s.logger.Warn("component close error", "error", err)
		}
	}
	if s.telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.telemetryShutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown telemetry", "error", err)
		}
	}
}
