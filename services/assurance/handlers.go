// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assurance

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mintwell/mintwell/pkg/logging"
	"github.com/mintwell/mintwell/services/assurance/breaker"
	"github.com/mintwell/mintwell/services/assurance/monitor"
)

// Handlers contains the HTTP handlers for the assurance ops surface.
//
// Thread Safety: Handlers is safe for concurrent use.
type Handlers struct {
	svc *Service
	log *logging.Logger
}

// NewHandlers creates handlers for the assurance service.
//
// Inputs:
//
//	svc - The response gate. Must not be nil.
//	log - Logger for request events. Nil uses the package default.
//
// Outputs:
//
//	*Handlers - The configured handlers.
func NewHandlers(svc *Service, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.Default()
	}
	return &Handlers{svc: svc, log: log}
}

// statsResponse pairs raw breaker counters with the derived scores the
// dashboard shows next to them.
type statsResponse struct {
	Stats            breaker.Stats `json:"stats"`
	FailureRate      float64       `json:"failure_rate"`
	SuccessRate      float64       `json:"success_rate"`
	ReliabilityScore float64       `json:"reliability_score"`
}

// HandleHealth handles GET /v1/assure/health.
//
// Response:
//
//	200 OK: monitor.OverallHealth (always 200; the status field carries
//	the verdict so degraded fleets still render on the dashboard)
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Monitor().OverallHealth())
}

// HandleServiceStats handles GET /v1/assure/services/:name/stats.
//
// Response:
//
//	200 OK: statsResponse
//	404 Not Found: no breaker exists for the named service
func (h *Handlers) HandleServiceStats(c *gin.Context) {
	name := c.Param("name")
	stats, ok := h.svc.Breakers().Stats(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrUnknownService.Error(),
			Code:  "UNKNOWN_SERVICE",
		})
		return
	}
	c.JSON(http.StatusOK, statsResponse{
		Stats:            stats,
		FailureRate:      stats.FailureRate(),
		SuccessRate:      stats.SuccessRate(),
		ReliabilityScore: h.svc.Monitor().ServiceReliabilityScore(name),
	})
}

// HandleServiceMetrics handles GET /v1/assure/services/:name/metrics.
//
// Description:
//
//	Returns the recorded metric history for one service, filtered by an
//	optional RFC 3339 time range. Defaults to the full history.
//
// Query Parameters:
//
//	start - Inclusive lower bound (RFC 3339). Default: epoch.
//	end - Inclusive upper bound (RFC 3339). Default: now.
//
// Response:
//
//	200 OK: []monitor.MetricPoint
//	400 Bad Request: unparseable time bound
//	404 Not Found: service is not under supervision
func (h *Handlers) HandleServiceMetrics(c *gin.Context) {
	name := c.Param("name")
	if !h.supervised(name) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrUnknownService.Error(),
			Code:  "UNKNOWN_SERVICE",
		})
		return
	}

	window := monitor.TimeRange{Start: time.Unix(0, 0), End: time.Now()}
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid start time",
				Code:    "INVALID_TIME",
				Details: err.Error(),
			})
			return
		}
		window.Start = t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid end time",
				Code:    "INVALID_TIME",
				Details: err.Error(),
			})
			return
		}
		window.End = t
	}

	points := h.svc.Monitor().GetServiceMetrics(name, window)
	c.JSON(http.StatusOK, points)
}

// HandleAlerts handles GET /v1/assure/alerts.
//
// Response:
//
//	200 OK: []monitor.ServiceAlert (unresolved alerts, newest last)
func (h *Handlers) HandleAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Monitor().ActiveAlerts())
}

// HandleResolveAlert handles POST /v1/assure/alerts/:id/resolve.
//
// Response:
//
//	200 OK: {"resolved": true}
//	404 Not Found: no alert matches the ID
func (h *Handlers) HandleResolveAlert(c *gin.Context) {
	id := c.Param("id")
	if !h.svc.Monitor().ResolveAlert(id) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrAlertNotFound.Error(),
			Code:  "ALERT_NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": true})
}

// HandleValidate handles POST /v1/assure/validate.
//
// Description:
//
//	Dry-runs the critic against a candidate answer without invoking the
//	backend or touching breaker state. Used by the dashboard and by
//	offline answer review.
//
// Request Body:
//
//	ValidateRequest
//
// Response:
//
//	200 OK: critic.ValidationResult
//	400 Bad Request: missing message
func (h *Handlers) HandleValidate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	log := h.log.With("request_id", requestID, "handler", "HandleValidate")

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Message is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result := h.svc.Critic().Validate(c.Request.Context(), req.Message, req.Query, req.Facts)
	log.Info("Dry-run validation",
		"valid", result.IsValid,
		"escalation", result.EscalationTriggered)
	c.JSON(http.StatusOK, result)
}

// HandleVocabulary handles GET /v1/assure/vocabulary.
//
// Description:
//
//	Returns the guardrail pattern sets the critic is currently
//	matching against. After a config hot reload this reflects the
//	swapped-in vocabulary, so operators can confirm a reload took.
//
// Response:
//
//	200 OK: critic.Vocabulary (raw pattern fragments only)
func (h *Handlers) HandleVocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Critic().Vocabulary())
}

func (h *Handlers) supervised(name string) bool {
	if slices.Contains(h.svc.Monitor().Services(), name) {
		return true
	}
	_, ok := h.svc.Breakers().Stats(name)
	return ok
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
