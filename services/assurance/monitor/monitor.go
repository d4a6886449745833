// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mintwell/mintwell/pkg/logging"
	"github.com/mintwell/mintwell/services/assurance/breaker"
)

const (
	// maxMetricHistory bounds the per-service metric ring.
	maxMetricHistory = 1000

	// maxHealthHistory bounds the per-service health check ring.
	maxHealthHistory = 100

	// maxAlerts bounds the monitor-wide alert list; oldest are evicted.
	maxAlerts = 1000

	// scoreWindow is how many recent metric points feed the
	// reliability score.
	scoreWindow = 100

	healthyThreshold  = 90.0
	degradedThreshold = 70.0
)

// Alert rule thresholds applied on every RecordMetrics call.
const (
	criticalFailureRate = 0.5
	mediumFailureRate   = 0.3
	slowResponseCutoff  = 5 * time.Second
)

// responseTimePenalties is the ordered penalty table for the
// reliability score. Entries are sorted by threshold descending and
// exactly one multiplier is applied, highest matching first.
var responseTimePenalties = []struct {
	threshold  time.Duration
	multiplier float64
}{
	{5 * time.Second, 0.6},
	{2 * time.Second, 0.8},
}

// Config configures a Monitor instance.
type Config struct {
	// Services is the fixed set of service names that OverallHealth
	// averages over. Metrics may still be recorded for names outside
	// this set; they just do not contribute to the fleet score.
	Services []string

	// Checker performs the actual backend probes for
	// PerformHealthCheck. Optional; without one, health checks record
	// an unhealthy result.
	Checker HealthChecker

	// Logger receives alert and health check events. Defaults to the
	// package default logger when nil.
	Logger *logging.Logger
}

// partition holds one service's history behind its own lock so
// concurrent RecordMetrics calls for unrelated services never
// serialize against each other.
type partition struct {
	mu      sync.Mutex
	metrics []MetricPoint
	health  []HealthCheckResult
}

// Monitor aggregates breaker statistics into metric history, alerts,
// and reliability scores.
//
// Thread Safety: Safe for concurrent use. Histories are partitioned by
// service key; the alert list has its own lock.
type Monitor struct {
	services []string
	checker  HealthChecker
	log      *logging.Logger

	mu         sync.RWMutex
	partitions map[string]*partition

	alertMu sync.Mutex
	alerts  []ServiceAlert

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty Monitor. Each instance owns its own store;
// nothing is shared between instances.
func New(config Config) *Monitor {
	log := config.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Monitor{
		services:   append([]string(nil), config.Services...),
		checker:    config.Checker,
		log:        log,
		partitions: make(map[string]*partition),
		now:        time.Now,
	}
}

// Services returns the fixed service set used by OverallHealth.
func (m *Monitor) Services() []string {
	return append([]string(nil), m.services...)
}

func (m *Monitor) partition(serviceName string) *partition {
	m.mu.RLock()
	p, ok := m.partitions[serviceName]
	m.mu.RUnlock()
	if ok {
		return p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.partitions[serviceName]; ok {
		return p
	}
	p = &partition{}
	m.partitions[serviceName] = p
	return p
}

// RecordMetrics samples one breaker snapshot into the service's metric
// history and evaluates the alert rules against it.
//
// Description:
//
//	Appends a MetricPoint (evicting beyond 1000 per service), then
//	checks: open state raises a high-severity circuit_open alert; a
//	failure rate above 0.5 raises a critical high_failure_rate alert,
//	above 0.3 a medium one; average latency above 5s raises a medium
//	slow_response alert independent of the failure rate. Every breach
//	creates a new alert; there is no coalescing.
//
// Inputs:
//
//	serviceName - The backend the stats describe.
//	stats - A breaker stats copy, typically from CircuitBreaker.Stats.
//
// Thread Safety: Safe for concurrent use across services.
func (m *Monitor) RecordMetrics(serviceName string, stats breaker.Stats) {
	point := MetricPoint{
		Timestamp:           m.now(),
		State:               stats.State,
		TotalCalls:          stats.TotalCalls,
		FailureRate:         stats.FailureRate(),
		SuccessRate:         stats.SuccessRate(),
		AverageResponseTime: stats.AverageResponseTime,
	}

	p := m.partition(serviceName)
	p.mu.Lock()
	p.metrics = append(p.metrics, point)
	if len(p.metrics) > maxMetricHistory {
		p.metrics = p.metrics[len(p.metrics)-maxMetricHistory:]
	}
	p.mu.Unlock()

	if stats.State == breaker.StateOpen.String() {
		m.addAlert(serviceName, AlertCircuitOpen, SeverityHigh,
			fmt.Sprintf("circuit breaker for %s is open", serviceName))
	}

	switch {
	case point.FailureRate > criticalFailureRate:
		m.addAlert(serviceName, AlertHighFailureRate, SeverityCritical,
			fmt.Sprintf("failure rate for %s at %.0f%%", serviceName, point.FailureRate*100))
	case point.FailureRate > mediumFailureRate:
		m.addAlert(serviceName, AlertHighFailureRate, SeverityMedium,
			fmt.Sprintf("failure rate for %s at %.0f%%", serviceName, point.FailureRate*100))
	}

	if point.AverageResponseTime > slowResponseCutoff {
		m.addAlert(serviceName, AlertSlowResponse, SeverityMedium,
			fmt.Sprintf("average response time for %s is %s", serviceName, point.AverageResponseTime))
	}
}

// RecordServiceDown records that a caller hit a fail-fast rejection and
// served fallback content instead of reaching the backend.
func (m *Monitor) RecordServiceDown(serviceName string) {
	m.addAlert(serviceName, AlertServiceDown, SeverityHigh,
		fmt.Sprintf("call to %s rejected while circuit open, fallback served", serviceName))
}

func (m *Monitor) addAlert(serviceName string, alertType AlertType, severity AlertSeverity, message string) {
	alert := ServiceAlert{
		ID:          uuid.NewString(),
		ServiceName: serviceName,
		Type:        alertType,
		Severity:    severity,
		Message:     message,
		Timestamp:   m.now(),
	}

	m.alertMu.Lock()
	m.alerts = append(m.alerts, alert)
	if len(m.alerts) > maxAlerts {
		m.alerts = m.alerts[len(m.alerts)-maxAlerts:]
	}
	m.alertMu.Unlock()

	m.log.Warn("service alert raised",
		"service", serviceName,
		"type", string(alertType),
		"severity", string(severity),
		"message", message)
}

// PerformHealthCheck probes one backend via the configured checker and
// records the result.
//
// Description:
//
//	Probe errors are recorded as an unhealthy HealthCheckResult and
//	never returned to the caller; a broken probe must not take down
//	the loop that runs it. The last 100 results per service are
//	retained.
func (m *Monitor) PerformHealthCheck(ctx context.Context, serviceName string) HealthCheckResult {
	result := HealthCheckResult{
		ServiceName: serviceName,
		Timestamp:   m.now(),
	}

	if m.checker == nil {
		result.Error = "no health checker configured"
	} else {
		healthy, elapsed, err := m.checker.Check(ctx, serviceName)
		result.Healthy = healthy
		result.ResponseTime = elapsed
		if err != nil {
			result.Healthy = false
			result.Error = err.Error()
		}
	}

	p := m.partition(serviceName)
	p.mu.Lock()
	p.health = append(p.health, result)
	if len(p.health) > maxHealthHistory {
		p.health = p.health[len(p.health)-maxHealthHistory:]
	}
	p.mu.Unlock()

	if !result.Healthy {
		m.log.Warn("health check failed",
			"service", serviceName,
			"error", result.Error)
	}
	return result
}

// GetServiceMetrics returns the recorded metric points for a service
// that fall within the given range, oldest first.
func (m *Monitor) GetServiceMetrics(serviceName string, window TimeRange) []MetricPoint {
	p := m.partition(serviceName)
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]MetricPoint, 0, len(p.metrics))
	for _, point := range p.metrics {
		if window.Contains(point.Timestamp) {
			out = append(out, point)
		}
	}
	return out
}

// HealthHistory returns the retained health check results for a
// service, oldest first.
func (m *Monitor) HealthHistory(serviceName string) []HealthCheckResult {
	p := m.partition(serviceName)
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]HealthCheckResult(nil), p.health...)
}

// ServiceReliabilityScore computes a 0-100 score for one service.
//
// Description:
//
//	Averages the success rate over the last 100 metric points and
//	scales to 0-100, then applies exactly one response-time penalty
//	from the ordered table (0.6 above 5s average, else 0.8 above 2s).
//	A service with no recorded metrics scores 100; absence of data is
//	not treated as an outage.
func (m *Monitor) ServiceReliabilityScore(serviceName string) float64 {
	p := m.partition(serviceName)
	p.mu.Lock()
	defer p.mu.Unlock()

	points := p.metrics
	if len(points) > scoreWindow {
		points = points[len(points)-scoreWindow:]
	}
	if len(points) == 0 {
		return 100
	}

	var successSum float64
	var latencySum time.Duration
	for _, point := range points {
		successSum += point.SuccessRate
		latencySum += point.AverageResponseTime
	}
	score := successSum / float64(len(points)) * 100
	avgLatency := latencySum / time.Duration(len(points))

	for _, penalty := range responseTimePenalties {
		if avgLatency > penalty.threshold {
			score *= penalty.multiplier
			break
		}
	}
	return score
}

// OverallHealth averages the reliability scores across the monitor's
// fixed service set into a 3-tier status: healthy at 90 or above,
// degraded at 70 or above, unhealthy below.
func (m *Monitor) OverallHealth() OverallHealth {
	health := OverallHealth{
		Services: make(map[string]float64, len(m.services)),
	}
	if len(m.services) == 0 {
		health.Status = StatusHealthy
		health.Score = 100
		return health
	}

	var sum float64
	for _, name := range m.services {
		score := m.ServiceReliabilityScore(name)
		health.Services[name] = score
		sum += score
	}
	health.Score = sum / float64(len(m.services))

	switch {
	case health.Score >= healthyThreshold:
		health.Status = StatusHealthy
	case health.Score >= degradedThreshold:
		health.Status = StatusDegraded
	default:
		health.Status = StatusUnhealthy
	}
	return health
}

// ActiveAlerts returns all unresolved alerts, oldest first.
func (m *Monitor) ActiveAlerts() []ServiceAlert {
	m.alertMu.Lock()
	defer m.alertMu.Unlock()

	out := make([]ServiceAlert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if !alert.Resolved {
			out = append(out, alert)
		}
	}
	return out
}

// ResolveAlert marks the alert with the given id resolved. Returns
// false when no such alert exists.
func (m *Monitor) ResolveAlert(id string) bool {
	m.alertMu.Lock()
	defer m.alertMu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id && !m.alerts[i].Resolved {
			now := m.now()
			m.alerts[i].Resolved = true
			m.alerts[i].ResolvedAt = &now
			return true
		}
	}
	return false
}

// ClearOldData drops metric points, health results, and resolved
// alerts older than maxAge. Unresolved alerts are kept regardless of
// age.
func (m *Monitor) ClearOldData(maxAge time.Duration) {
	cutoff := m.now().Add(-maxAge)

	m.mu.RLock()
	parts := make([]*partition, 0, len(m.partitions))
	for _, p := range m.partitions {
		parts = append(parts, p)
	}
	m.mu.RUnlock()

	for _, p := range parts {
		p.mu.Lock()
		p.metrics = pruneMetrics(p.metrics, cutoff)
		p.health = pruneHealth(p.health, cutoff)
		p.mu.Unlock()
	}

	m.alertMu.Lock()
	kept := m.alerts[:0]
	for _, alert := range m.alerts {
		if !alert.Resolved || alert.Timestamp.After(cutoff) {
			kept = append(kept, alert)
		}
	}
	m.alerts = kept
	m.alertMu.Unlock()
}

func pruneMetrics(points []MetricPoint, cutoff time.Time) []MetricPoint {
	kept := points[:0]
	for _, point := range points {
		if point.Timestamp.After(cutoff) {
			kept = append(kept, point)
		}
	}
	return kept
}

func pruneHealth(results []HealthCheckResult, cutoff time.Time) []HealthCheckResult {
	kept := results[:0]
	for _, result := range results {
		if result.Timestamp.After(cutoff) {
			kept = append(kept, result)
		}
	}
	return kept
}
