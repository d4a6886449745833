// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package monitor aggregates circuit breaker statistics into per-service
// metric history, threshold alerts, and reliability scores. All state is
// held by an explicitly constructed Monitor instance so tests can run
// isolated copies; there are no package-level registries.
package monitor

import (
	"context"
	"time"
)

// AlertType identifies what condition produced a ServiceAlert.
type AlertType string

const (
	// AlertCircuitOpen fires when a breaker is observed in the open state.
	AlertCircuitOpen AlertType = "circuit_open"

	// AlertHighFailureRate fires when the failure rate crosses 0.3.
	AlertHighFailureRate AlertType = "high_failure_rate"

	// AlertSlowResponse fires when average latency exceeds 5 seconds.
	AlertSlowResponse AlertType = "slow_response"

	// AlertServiceDown records a fail-fast rejection seen by a caller.
	AlertServiceDown AlertType = "service_down"
)

// AlertSeverity ranks how urgently an alert needs operator attention.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// ServiceAlert is one threshold breach. Alerts are created on every
// breach with no coalescing, so a flapping service produces many alerts;
// the per-monitor cap of 1000 bounds the flood. The only mutation after
// creation is resolution via Monitor.ResolveAlert.
type ServiceAlert struct {
	ID          string        `json:"id"`
	ServiceName string        `json:"service_name"`
	Type        AlertType     `json:"type"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
	Resolved    bool          `json:"resolved"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

// MetricPoint is one sampled view of a service's breaker statistics.
type MetricPoint struct {
	Timestamp           time.Time     `json:"timestamp"`
	State               string        `json:"state"`
	TotalCalls          int64         `json:"total_calls"`
	FailureRate         float64       `json:"failure_rate"`
	SuccessRate         float64       `json:"success_rate"`
	AverageResponseTime time.Duration `json:"average_response_time"`
}

// HealthCheckResult is the outcome of one probe against a backend.
// Probe errors are folded into the result rather than propagated, so a
// broken health check degrades the score instead of crashing a caller.
type HealthCheckResult struct {
	ServiceName  string        `json:"service_name"`
	Healthy      bool          `json:"healthy"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// HealthStatus is the 3-tier rollup of the overall score.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// OverallHealth is the fleet-wide view across the monitor's fixed
// service set.
type OverallHealth struct {
	Score    float64            `json:"score"`
	Status   HealthStatus       `json:"status"`
	Services map[string]float64 `json:"services"`
}

// TimeRange bounds a metric history query. Both ends are inclusive.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// HealthChecker probes a backend service. The monitor never performs
// I/O itself; the actual probe is delegated to this collaborator.
type HealthChecker interface {
	// Check probes the named service and reports whether it responded
	// and how long the probe took. An error means the probe itself
	// failed; the monitor records that as an unhealthy result.
	Check(ctx context.Context, serviceName string) (healthy bool, responseTime time.Duration, err error)
}
