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
	"context"
	"encoding/json"
	"errors"

	"github.com/mintwell/mintwell/pkg/logging"
	"github.com/mintwell/mintwell/services/assurance/breaker"
	"github.com/mintwell/mintwell/services/assurance/critic"
	"github.com/mintwell/mintwell/services/assurance/factpack"
	"github.com/mintwell/mintwell/services/assurance/llm"
	"github.com/mintwell/mintwell/services/assurance/monitor"
)

// FallbackMessage is the fixed text returned when the backend is
// unreachable. It is the only content the gate produces on its own.
const FallbackMessage = "I can't reach your financial data right now. " +
	"Please try again in a few minutes; your accounts are unaffected."

// DefaultServiceName is the backend a turn targets when Turn.ServiceName
// is empty.
const DefaultServiceName = "chat-backend"

// ServiceConfig configures the response gate.
type ServiceConfig struct {
	// Invoker calls the answer backend. Required.
	Invoker Invoker

	// Facts builds the per-turn snapshot. Required.
	Facts FactSource

	// Escalator supplies replacement content for rejected answers.
	// Required.
	Escalator Escalator

	// Critic validates backend answers. Nil uses critic.New(nil).
	Critic *critic.Critic

	// Breakers partitions circuit breakers by service name. Nil creates
	// a registry with default thresholds.
	Breakers *breaker.Registry

	// Monitor aggregates breaker stats into alerts and scores. Nil
	// creates a monitor supervising only DefaultServiceName.
	Monitor *monitor.Monitor

	// Archive persists each turn's snapshot for audit lookup by hash.
	// Optional.
	Archive *factpack.Archive

	// DefaultService overrides DefaultServiceName.
	DefaultService string

	// Logger receives gate events. Nil uses the package default.
	Logger *logging.Logger
}

// Service is the response gate: the composition root that runs every
// chat turn through the breaker, the monitor, and the critic before a
// single character reaches the user.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	invoker    Invoker
	facts      FactSource
	escalator  Escalator
	critic     *critic.Critic
	breakers   *breaker.Registry
	monitor    *monitor.Monitor
	archive    *factpack.Archive
	defaultSvc string
	log        *logging.Logger
}

// NewService creates the response gate.
//
// Description:
//
//	Wires the invoker, fact source, critic, breaker registry, and
//	monitor into a single per-turn pipeline. Optional collaborators
//	(archive) may be nil; required ones are checked up front.
//
// Inputs:
//
//	config - Collaborators and defaults. Invoker, Facts, and Escalator
//	are required.
//
// Outputs:
//
//	*Service - The configured gate.
//	error - ErrNilInvoker, ErrNilFactSource, or ErrNilEscalator.
func NewService(config ServiceConfig) (*Service, error) {
	if config.Invoker == nil {
		return nil, ErrNilInvoker
	}
	if config.Facts == nil {
		return nil, ErrNilFactSource
	}
	if config.Escalator == nil {
		return nil, ErrNilEscalator
	}
	log := config.Logger
	if log == nil {
		log = logging.Default()
	}
	cr := config.Critic
	if cr == nil {
		cr = critic.New(nil)
	}
	reg := config.Breakers
	if reg == nil {
		reg = breaker.NewRegistry(breaker.DefaultConfig())
	}
	defaultSvc := config.DefaultService
	if defaultSvc == "" {
		defaultSvc = DefaultServiceName
	}
	mon := config.Monitor
	if mon == nil {
		mon = monitor.New(monitor.Config{
			Services: []string{defaultSvc},
			Logger:   log,
		})
	}
	return &Service{
		invoker:    config.Invoker,
		facts:      config.Facts,
		escalator:  config.Escalator,
		critic:     cr,
		breakers:   reg,
		monitor:    mon,
		archive:    config.Archive,
		defaultSvc: defaultSvc,
		log:        log,
	}, nil
}

// Monitor returns the gate's monitor, for the ops endpoints.
func (s *Service) Monitor() *monitor.Monitor { return s.monitor }

// Breakers returns the gate's breaker registry, for the ops endpoints.
func (s *Service) Breakers() *breaker.Registry { return s.breakers }

// Critic returns the gate's validator, for dry-run validation.
func (s *Service) Critic() *critic.Critic { return s.critic }

// HandleTurn runs one chat turn end to end.
//
// Description:
//
//	Builds the turn's snapshot, invokes the backend through its circuit
//	breaker, feeds the resulting stats into the monitor, validates the
//	answer with the critic, and either delivers it or routes it to the
//	escalator. A backend rejection or any internal failure yields the
//	fixed fallback message.
//
// Inputs:
//
//	ctx - Context for cancellation. Bounds the backend call.
//	turn - The user turn to answer.
//
// Outputs:
//
//	*TurnOutcome - Always non-nil. Internal errors never cross this
//	boundary; they surface as FallbackUsed outcomes.
//
// Thread Safety: Safe for concurrent use.
func (s *Service) HandleTurn(ctx context.Context, turn Turn) *TurnOutcome {
	serviceName := turn.ServiceName
	if serviceName == "" {
		serviceName = s.defaultSvc
	}
	log := s.log.With("user_id", turn.UserID, "service", serviceName)

	pack, err := s.facts.Build(ctx, turn.UserID, turn.Window)
	if err != nil {
		log.Warn("Snapshot build failed, answering with fallback", "error", err)
		return &TurnOutcome{Answer: FallbackMessage, FallbackUsed: true}
	}
	outcome := &TurnOutcome{FactHash: pack.Meta.Hash}

	if s.archive != nil {
		if err := s.archive.Put(pack); err != nil {
			// Archival is audit-only; the turn proceeds without it.
			log.Warn("Snapshot archival failed", "error", err, "hash", pack.Meta.Hash)
		}
	}

	factsJSON, err := json.Marshal(pack)
	if err != nil {
		log.Error("Snapshot serialization failed", "error", err)
		outcome.Answer = FallbackMessage
		outcome.FallbackUsed = true
		return outcome
	}

	cb := s.breakers.Get(serviceName)
	var resp *llm.Response
	execErr := cb.Execute(ctx, func(ctx context.Context) error {
		r, err := s.invoker.Invoke(ctx, llm.Request{
			Query: turn.Query,
			Facts: string(factsJSON),
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	// Every attempt, including fail-fast rejections, updates the
	// monitoring history so alert rules see the breaker state.
	if stats, ok := s.breakers.Stats(serviceName); ok {
		s.monitor.RecordMetrics(serviceName, stats)
	}

	if execErr != nil {
		if errors.Is(execErr, breaker.ErrCircuitOpen) {
			s.monitor.RecordServiceDown(serviceName)
			log.Warn("Backend circuit open, answering with fallback")
		} else {
			log.Warn("Backend call failed, answering with fallback", "error", execErr)
		}
		outcome.Answer = FallbackMessage
		outcome.FallbackUsed = true
		return outcome
	}

	result := s.critic.Validate(ctx, resp.Text, turn.Query, pack)
	outcome.Validation = result

	if result.IsValid && !result.EscalationTriggered {
		outcome.Answer = resp.Text
		outcome.Delivered = true
		return outcome
	}

	outcome.Escalated = true
	outcome.Answer = s.escalator.Escalate(ctx, turn, resp.Text, result)
	log.Info("Answer escalated",
		"reason", result.EscalationReason,
		"valid", result.IsValid)
	return outcome
}
