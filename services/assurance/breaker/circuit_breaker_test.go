// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		TripThreshold: 3,
		Window:        time.Minute,
		Cooldown:      10 * time.Millisecond,
	}
}

func TestInitialState(t *testing.T) {
	cb := New("chat-backend", DefaultConfig())

	if cb.State() != StateClosed {
		t.Errorf("expected initial state closed, got %v", cb.State())
	}
	if !cb.Allow() {
		t.Error("expected Allow() to return true in closed state")
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	cb := New("chat-backend", testConfig())

	for i := 0; i < 3; i++ {
		if cb.State() != StateClosed {
			t.Fatalf("expected closed before threshold, got %v at failure %d", cb.State(), i)
		}
		cb.RecordFailure(5 * time.Millisecond)
	}

	if cb.State() != StateOpen {
		t.Errorf("expected open after threshold, got %v", cb.State())
	}
	if cb.Allow() {
		t.Error("expected Allow() to return false in open state")
	}
}

func TestTotalCallsCountsRejectedAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Cooldown = time.Hour
	cb := New("chat-backend", cfg)

	for i := 0; i < 3; i++ {
		cb.Allow()
		cb.RecordFailure(time.Millisecond)
	}
	// Two more attempts that are rejected without dispatch.
	cb.Allow()
	cb.Allow()

	stats := cb.Stats()
	if stats.TotalCalls != 5 {
		t.Errorf("expected totalCalls=5 including rejections, got %d", stats.TotalCalls)
	}
	if stats.TotalFailures != 3 {
		t.Errorf("expected totalFailures=3, got %d", stats.TotalFailures)
	}
}

func TestFailuresOutsideWindowDoNotTrip(t *testing.T) {
	cfg := testConfig()
	cb := New("chat-backend", cfg)

	base := time.Now()
	cb.now = func() time.Time { return base }
	cb.RecordFailure(time.Millisecond)
	cb.RecordFailure(time.Millisecond)

	// Third failure lands after the window has slid past the first two.
	cb.now = func() time.Time { return base.Add(2 * time.Minute) }
	cb.RecordFailure(time.Millisecond)

	if cb.State() != StateClosed {
		t.Errorf("expected closed (stale failures pruned), got %v", cb.State())
	}
}

func TestHalfOpenSingleTrial(t *testing.T) {
	cb := New("chat-backend", testConfig())

	for i := 0; i < 3; i++ {
		cb.RecordFailure(time.Millisecond)
	}
	time.Sleep(15 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expected trial call to be admitted after cooldown")
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half_open, got %v", cb.State())
	}
	if cb.Allow() {
		t.Error("expected second call to be rejected while trial in flight")
	}
}

func TestHalfOpenClosesOnTrialSuccess(t *testing.T) {
	cb := New("chat-backend", testConfig())

	for i := 0; i < 3; i++ {
		cb.RecordFailure(time.Millisecond)
	}
	time.Sleep(15 * time.Millisecond)
	cb.Allow()
	cb.RecordSuccess(time.Millisecond)

	if cb.State() != StateClosed {
		t.Errorf("expected closed after trial success, got %v", cb.State())
	}
}

func TestHalfOpenReopensOnTrialFailure(t *testing.T) {
	cb := New("chat-backend", testConfig())

	for i := 0; i < 3; i++ {
		cb.RecordFailure(time.Millisecond)
	}
	time.Sleep(15 * time.Millisecond)
	cb.Allow()
	cb.RecordFailure(time.Millisecond)

	if cb.State() != StateOpen {
		t.Errorf("expected open after trial failure, got %v", cb.State())
	}
}

func TestExecuteFailsFastWhenOpen(t *testing.T) {
	cfg := testConfig()
	cfg.Cooldown = time.Hour
	cb := New("chat-backend", cfg)

	for i := 0; i < 3; i++ {
		cb.RecordFailure(time.Millisecond)
	}

	dispatched := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		dispatched = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if dispatched {
		t.Error("open breaker must not dispatch the call")
	}
}

func TestExecuteRecordsCompletionAfterCancellation(t *testing.T) {
	cb := New("chat-backend", testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- cb.Execute(ctx, func(ctx context.Context) error {
			<-release
			return errors.New("backend error")
		})
	}()

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The abandoned call completes later; its failure must still land.
	close(release)
	deadline := time.After(time.Second)
	for {
		if cb.Stats().TotalFailures == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("completion of abandoned call was never recorded")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestStatsAverageResponseTime(t *testing.T) {
	cb := New("chat-backend", testConfig())

	cb.RecordSuccess(100 * time.Millisecond)
	cb.RecordSuccess(300 * time.Millisecond)

	stats := cb.Stats()
	if stats.AverageResponseTime != 200*time.Millisecond {
		t.Errorf("expected average 200ms, got %v", stats.AverageResponseTime)
	}
	if stats.LastSuccessTime == nil {
		t.Error("expected lastSuccessTime to be set")
	}
	if stats.LastFailureTime != nil {
		t.Error("expected lastFailureTime to be unset")
	}
}

func TestRegistryPartitionsByService(t *testing.T) {
	r := NewRegistry(testConfig())

	a := r.Get("chat-backend")
	b := r.Get("insights-engine")
	if a == b {
		t.Fatal("expected distinct breakers per service")
	}
	if r.Get("chat-backend") != a {
		t.Error("expected stable instance per service name")
	}

	a.RecordFailure(time.Millisecond)
	stats, ok := r.Stats("chat-backend")
	if !ok || stats.TotalFailures != 1 {
		t.Errorf("expected failure recorded on chat-backend only, got %+v ok=%v", stats, ok)
	}
	stats, _ = r.Stats("insights-engine")
	if stats.TotalFailures != 0 {
		t.Error("failure leaked across service partition")
	}
}

func TestConcurrentRecording(t *testing.T) {
	cb := New("chat-backend", Config{TripThreshold: 1000000, Window: time.Hour, Cooldown: time.Hour})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cb.Allow()
				if j%2 == 0 {
					cb.RecordSuccess(time.Millisecond)
				} else {
					cb.RecordFailure(time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()

	stats := cb.Stats()
	if stats.TotalCalls != 5000 {
		t.Errorf("expected 5000 calls, got %d", stats.TotalCalls)
	}
	if stats.TotalSuccesses+stats.TotalFailures != 5000 {
		t.Errorf("expected 5000 completions, got %d", stats.TotalSuccesses+stats.TotalFailures)
	}
}
