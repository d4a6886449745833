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
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mintwell/mintwell/pkg/logging"
)

// SchedulerConfig configures the background health check loop.
type SchedulerConfig struct {
	// Schedule is a cron expression (robfig/cron v3 syntax, including
	// "@every 30s" descriptors) for how often the full service set is
	// probed.
	Schedule string

	// ProbesPerSecond rate-limits outbound probes so a large service
	// set does not burst against its backends. Zero means 5/s.
	ProbesPerSecond float64

	// ProbeTimeout bounds each individual probe. Zero means 10s.
	ProbeTimeout time.Duration

	Logger *logging.Logger
}

// Scheduler runs periodic health checks against the monitor's service
// set on a schedule independent of user-triggered traffic. Probes
// never pass through a circuit breaker, so a scheduled check can never
// block or consume a half-open trial slot.
type Scheduler struct {
	monitor *Monitor
	cron    *cron.Cron
	limiter *rate.Limiter
	timeout time.Duration
	log     *logging.Logger

	cancel context.CancelFunc
}

// NewScheduler builds a stopped scheduler; call Start to begin probing.
func NewScheduler(m *Monitor, config SchedulerConfig) (*Scheduler, error) {
	if config.Schedule == "" {
		config.Schedule = "@every 30s"
	}
	if config.ProbesPerSecond <= 0 {
		config.ProbesPerSecond = 5
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 10 * time.Second
	}
	log := config.Logger
	if log == nil {
		log = logging.Default()
	}

	s := &Scheduler{
		monitor: m,
		cron:    cron.New(),
		limiter: rate.NewLimiter(rate.Limit(config.ProbesPerSecond), 1),
		timeout: config.ProbeTimeout,
		log:     log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if _, err := s.cron.AddFunc(config.Schedule, func() { s.sweep(ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid health check schedule %q: %w", config.Schedule, err)
	}
	return s, nil
}

// Start begins the cron loop. Safe to call once.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("health check scheduler started",
		"services", len(s.monitor.Services()))
}

// Stop halts the cron loop and cancels any in-flight sweep. Blocks
// until running jobs finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// sweep probes every configured service once, in parallel, respecting
// the rate limit.
func (s *Scheduler) sweep(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range s.monitor.Services() {
		g.Go(func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			s.monitor.PerformHealthCheck(probeCtx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		s.log.Warn("health check sweep interrupted", "error", err)
	}
}
