// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers holds the gin handlers for the risk API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianRisk/pkg/extensions"
	"github.com/AleutianAI/AleutianRisk/services/riskengine"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// StatusClientClosedRequest is the non-standard status logged when the
// caller goes away before the assessment finishes.
const StatusClientClosedRequest = 499

const (
	requestIDKey = "request_id"
	userIDKey    = "user_id"
)

// Assessor produces risk assessments.
type Assessor interface {
	Assess(ctx context.Context, raw riskengine.RawEvent) (*riskengine.RiskAssessment, error)
}

// AssessRequest is the POST /v1/risk/assess body.
type AssessRequest struct {
	Title   string `json:"title"`
	Ticker  string `json:"ticker"`
	Date    string `json:"date"`
	RawText string `json:"raw_text,omitempty"`
}

// RequestID reuses an incoming X-Request-ID or mints a new one, and echoes
// it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// HandleAssess runs one assessment.
//
// # Responses
//
//   - 200: the RiskAssessment
//   - 400: body is not valid JSON
//   - 422: event failed validation
//   - 499: caller canceled (nothing is written)
//   - 504: the request deadline passed
//   - 500: internal aggregation failure
//
// Every request that reaches the engine is recorded on audit. audit may be
// nil.
func HandleAssess(a Assessor, audit extensions.AuditLogger, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = &extensions.NopAuditLogger{}
	}
	return func(c *gin.Context) {
		log := logger.With("request_id", c.GetString(requestIDKey))

		var req AssessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Debug("invalid assess request body", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}

		result, err := a.Assess(c.Request.Context(), riskengine.RawEvent{
			Title:   req.Title,
			Ticker:  req.Ticker,
			Date:    req.Date,
			RawText: req.RawText,
		})
		recordAudit(c, audit, log, req.Ticker, result, err)
		if err != nil {
			writeAssessError(c, log, err)
			return
		}

		log.Info("assessment served",
			"ticker", result.Ticker,
			"risk_score", result.RiskScore,
			"degraded", result.Degraded)
		c.JSON(http.StatusOK, result)
	}
}

func writeAssessError(c *gin.Context, log *slog.Logger, err error) {
	var vErr *riskengine.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid event", "details": vErr.Error()})
	case errors.Is(err, context.Canceled):
		log.Info("client canceled assessment")
		c.AbortWithStatus(StatusClientClosedRequest)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("assessment deadline exceeded")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "assessment timed out"})
	case errors.Is(err, riskengine.ErrAggregation):
		log.Error("assessment failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assessment failed"})
	default:
		log.Error("unexpected assessment error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func recordAudit(c *gin.Context, audit extensions.AuditLogger, log *slog.Logger, ticker string, result *riskengine.RiskAssessment, err error) {
	event := extensions.AuditEvent{
		EventType:    "risk.assess",
		UserID:       c.GetString(userIDKey),
		Action:       "assess",
		ResourceType: "ticker",
		ResourceID:   ticker,
		Metadata:     map[string]any{"request_id": c.GetString(requestIDKey)},
	}
	switch {
	case err != nil:
		event.Outcome = extensions.OutcomeFailure
		event.Metadata["error"] = err.Error()
	case result.Degraded:
		event.Outcome = extensions.OutcomeDegraded
		event.Metadata["risk_score"] = result.RiskScore
	default:
		event.Outcome = extensions.OutcomeSuccess
		event.Metadata["risk_score"] = result.RiskScore
	}
	if result != nil {
		event.ResourceID = result.Ticker
	}
	if aerr := audit.Log(c.Request.Context(), event); aerr != nil {
		log.Warn("failed to record audit event", "error", aerr)
	}
}
