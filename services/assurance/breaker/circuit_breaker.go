// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package breaker guards backend service calls with per-service circuit
// breakers.
//
// Every chat-turn backend call goes through a breaker; when a dependency
// is unhealthy the breaker fails fast without dispatching, which is the
// backpressure mechanism protecting a failing service from pile-up. No
// caller may bypass it.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a call is rejected without dispatch
// because the breaker is open. Callers treat it as backend-unavailable
// and fall back immediately; no synchronous retry.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed allows requests through normally.
	StateClosed State = iota

	// StateOpen rejects all requests immediately.
	StateOpen

	// StateHalfOpen allows a single trial call to test recovery.
	StateHalfOpen
)

// String returns the human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config configures circuit breaker behavior.
type Config struct {
	// TripThreshold is the number of failures within Window before opening.
	// Default: 5
	TripThreshold int

	// Window is the rolling window failures are counted over.
	// Default: 60s
	Window time.Duration

	// Cooldown is how long to stay open before allowing a trial call.
	// Default: 30s
	Cooldown time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TripThreshold: 5,
		Window:        60 * time.Second,
		Cooldown:      30 * time.Second,
	}
}

// Stats is an immutable point-in-time copy of breaker counters.
type Stats struct {
	ServiceName         string        `json:"service_name"`
	State               string        `json:"state"`
	TotalCalls          int64         `json:"total_calls"`
	TotalSuccesses      int64         `json:"total_successes"`
	TotalFailures       int64         `json:"total_failures"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	LastFailureTime     *time.Time    `json:"last_failure_time,omitempty"`
	LastSuccessTime     *time.Time    `json:"last_success_time,omitempty"`
}

// FailureRate returns TotalFailures/TotalCalls, or 0 for no calls.
func (s Stats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalCalls)
}

// SuccessRate returns TotalSuccesses/TotalCalls, or 1 for no calls.
func (s Stats) SuccessRate() float64 {
	if s.TotalCalls == 0 {
		return 1
	}
	return float64(s.TotalSuccesses) / float64(s.TotalCalls)
}

// CircuitBreaker tracks failures for one named backend service.
//
// States: closed (pass-through) -> open (fail fast) once failures within
// the rolling window reach the trip threshold -> half-open (single trial
// call) after the cooldown -> closed on trial success, open on trial
// failure.
//
// Thread Safety: Safe for concurrent use. Each breaker has its own lock,
// so unrelated services never serialize against each other.
type CircuitBreaker struct {
	name   string
	config Config

	mu              sync.RWMutex
	state           State
	recentFailures  []time.Time
	trialInFlight   bool
	lastStateChange time.Time

	totalCalls     int64
	totalSuccesses int64
	totalFailures  int64
	totalLatency   time.Duration
	completedCalls int64
	lastFailure    time.Time
	lastSuccess    time.Time

	now func() time.Time
}

// New creates a circuit breaker for a named service.
//
// Inputs:
//
//	name - Service name the breaker guards.
//	config - Thresholds and timings. Zero-value fields take defaults.
//
// Outputs:
//
//	*CircuitBreaker - A new breaker in the closed state.
func New(name string, config Config) *CircuitBreaker {
	if config.TripThreshold <= 0 {
		config.TripThreshold = DefaultConfig().TripThreshold
	}
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultConfig().Cooldown
	}
	cb := &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
	cb.lastStateChange = cb.now()
	return cb
}

// Name returns the service name this breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow decides synchronously, with no I/O, whether a call may dispatch.
//
// Every attempt counts toward TotalCalls, including rejected ones. In
// the open state the cooldown is checked and the breaker may move to
// half-open, admitting exactly one trial call.
//
// Outputs:
//
//	bool - True if the call may proceed.
//
// Thread Safety: Safe for concurrent use.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.totalCalls++

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if now.Sub(cb.lastStateChange) >= cb.config.Cooldown {
			cb.transitionTo(StateHalfOpen, now)
			cb.trialInFlight = true
			return true
		}
		return false

	case StateHalfOpen:
		if !cb.trialInFlight {
			cb.trialInFlight = true
			return true
		}
		return false

	default:
		return false
	}
}

// RecordSuccess records a completed successful call and its latency.
//
// Thread Safety: Safe for concurrent use.
func (cb *CircuitBreaker) RecordSuccess(latency time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.totalSuccesses++
	cb.completedCalls++
	cb.totalLatency += latency
	cb.lastSuccess = now

	switch cb.state {
	case StateClosed:
		cb.pruneFailures(now)
	case StateHalfOpen:
		cb.transitionTo(StateClosed, now)
	}
}

// RecordFailure records a completed failed call and its latency.
//
// Thread Safety: Safe for concurrent use.
func (cb *CircuitBreaker) RecordFailure(latency time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.totalFailures++
	cb.completedCalls++
	cb.totalLatency += latency
	cb.lastFailure = now

	switch cb.state {
	case StateClosed:
		cb.recentFailures = append(cb.recentFailures, now)
		cb.pruneFailures(now)
		if len(cb.recentFailures) >= cb.config.TripThreshold {
			cb.transitionTo(StateOpen, now)
		}
	case StateHalfOpen:
		// The trial call failed; back to open for another cooldown.
		cb.transitionTo(StateOpen, now)
	}
}

// Execute runs fn through the breaker.
//
// Description:
//
//	Rejects with ErrCircuitOpen when the breaker disallows dispatch. On
//	dispatch, fn runs detached from the caller's context lifetime: if
//	ctx is cancelled mid-flight, Execute returns ctx.Err() immediately
//	but the completion is still recorded when fn eventually returns.
//	Dropping that event would corrupt reliability statistics.
//
// Inputs:
//
//	ctx - Caller's context; bounds how long Execute waits, not fn itself.
//	fn - The guarded backend call.
//
// Outputs:
//
//	error - ErrCircuitOpen, ctx.Err(), or fn's error.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	done := make(chan error, 1)
	start := cb.now()

	go func() {
		err := fn(ctx)
		latency := cb.now().Sub(start)
		if err != nil {
			cb.RecordFailure(latency)
		} else {
			cb.RecordSuccess(latency)
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state, applying any pending cooldown expiry.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats returns an immutable copy of the breaker's counters.
//
// Thread Safety: Safe for concurrent use.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	stats := Stats{
		ServiceName:    cb.name,
		State:          cb.state.String(),
		TotalCalls:     cb.totalCalls,
		TotalSuccesses: cb.totalSuccesses,
		TotalFailures:  cb.totalFailures,
	}
	if cb.completedCalls > 0 {
		stats.AverageResponseTime = cb.totalLatency / time.Duration(cb.completedCalls)
	}
	if !cb.lastFailure.IsZero() {
		t := cb.lastFailure
		stats.LastFailureTime = &t
	}
	if !cb.lastSuccess.IsZero() {
		t := cb.lastSuccess
		stats.LastSuccessTime = &t
	}
	return stats
}

// Reset returns the breaker to closed with counters intact.
//
// Intended for manual operator intervention.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(StateClosed, cb.now())
}

// transitionTo changes state. Must be called with the lock held.
func (cb *CircuitBreaker) transitionTo(newState State, now time.Time) {
	cb.state = newState
	cb.lastStateChange = now
	cb.trialInFlight = false
	if newState == StateClosed {
		cb.recentFailures = cb.recentFailures[:0]
	}
}

// pruneFailures drops failures older than the rolling window.
// Must be called with the lock held.
func (cb *CircuitBreaker) pruneFailures(now time.Time) {
	cutoff := now.Add(-cb.config.Window)
	i := 0
	for ; i < len(cb.recentFailures); i++ {
		if cb.recentFailures[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		cb.recentFailures = append(cb.recentFailures[:0], cb.recentFailures[i:]...)
	}
}
