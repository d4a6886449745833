// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package critic

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mintwell/mintwell/pkg/logging"
	"github.com/mintwell/mintwell/services/assurance/factpack"
)

// Escalation reasons surfaced to the gate. Only one is ever surfaced
// per answer, chosen by fixed priority.
const (
	// ReasonHallucination is surfaced when a figure fails to trace to
	// the FactPack.
	ReasonHallucination = "Hallucination guard tripped"

	// ReasonAmbiguity is surfaced when the answer hedges.
	ReasonAmbiguity = "Critic flags unresolved ambiguity"

	// ReasonHighStakes is surfaced for long-horizon or restructuring
	// queries.
	ReasonHighStakes = "High-stakes task detected"

	// ReasonStrategic is surfaced for investment-advice queries.
	ReasonStrategic = "User asks strategic planning"
)

// Critic composes the guardrails into the full validation pipeline.
//
// Thread Safety: Safe for concurrent use. Validation reads only the
// per-call inputs and the current vocabulary snapshot; SwapVocabulary
// may run concurrently with Validate.
type Critic struct {
	checkers []Checker
	vocab    atomic.Pointer[Vocabulary]
	log      *logging.Logger
}

// SwapVocabulary atomically replaces the pattern sets. The vocabulary
// must already be compiled; in-flight validations keep the snapshot
// they started with.
func (c *Critic) SwapVocabulary(v *Vocabulary) {
	c.vocab.Store(v)
}

// Vocabulary returns the current pattern sets.
func (c *Critic) Vocabulary() *Vocabulary {
	return c.vocab.Load()
}

// Validate checks one candidate answer against the turn's FactPack.
//
// Description:
//
//	Runs every guardrail, then folds the findings into a
//	ValidationResult. The escalation reason is chosen by an explicit
//	ordered policy: rule-guard failure, then hallucination, then
//	ambiguity, then high-stakes, then strategic. IsValid reflects only
//	the correctness guards; a stakes match escalates without
//	invalidating.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	message - The candidate answer text.
//	query - The user question that produced the answer.
//	pack - The turn's immutable FactPack. May be nil, in which case
//	  the fact-dependent guards are skipped.
//
// Outputs:
//
//	*ValidationResult - The validation outcome. Never nil.
func (c *Critic) Validate(ctx context.Context, message, query string, pack *factpack.FactPack) *ValidationResult {
	if err := initMetrics(); err != nil {
		c.log.Warn("critic metrics unavailable", "error", err)
	}
	start := time.Now()

	input := &CheckInput{
		Message:    message,
		Query:      query,
		Facts:      pack,
		Index:      NewFactIndex(pack),
		Vocabulary: c.vocab.Load(),
	}

	var findings []Finding
	for _, checker := range c.checkers {
		findings = append(findings, checker.Check(ctx, input)...)
	}

	result := c.assemble(findings)
	c.record(ctx, result, time.Since(start))
	return result
}

// assemble folds raw findings into the result struct and applies the
// escalation policy.
func (c *Critic) assemble(findings []Finding) *ValidationResult {
	result := &ValidationResult{
		NumericGuardrails: NumericGuardrails{
			AmountsNonNegative:    true,
			SumsConsistent:        true,
			BudgetLimitsRespected: true,
		},
		ClaimTypes: ClaimTypes{RiskLevel: RiskNone},
		Findings:   findings,
	}

	var hallucination, ambiguity, highStakes, strategic bool
	for _, f := range findings {
		switch f.Type {
		case FindingNegativeAmount:
			result.NumericGuardrails.AmountsNonNegative = false
		case FindingSumMismatch:
			result.NumericGuardrails.SumsConsistent = false
		case FindingBudgetLimitExceeded:
			result.NumericGuardrails.BudgetLimitsRespected = false
		case FindingForbiddenClaim:
			result.ClaimTypes.HasForbiddenPhrasing = true
			result.ClaimTypes.ForbiddenClaims = append(result.ClaimTypes.ForbiddenClaims, f.Evidence)
		case FindingUntraceableNumber:
			hallucination = true
		case FindingHedging:
			ambiguity = true
		case FindingHighStakesQuery:
			highStakes = true
		case FindingStrategicQuery:
			strategic = true
		}
	}
	result.ClaimTypes.RiskLevel = classifyRisk(len(result.ClaimTypes.ForbiddenClaims))
	result.HallucinationDetected = hallucination
	result.AmbiguityDetected = ambiguity

	// First failed guard in fixed order wins GuardFailed.
	switch {
	case !result.NumericGuardrails.AmountsNonNegative:
		result.RuleValidation.GuardFailed = GuardNegativeAmounts
	case !result.NumericGuardrails.SumsConsistent:
		result.RuleValidation.GuardFailed = GuardSumMismatch
	case !result.NumericGuardrails.BudgetLimitsRespected:
		result.RuleValidation.GuardFailed = GuardBudgetLimitExceeded
	case result.ClaimTypes.HasForbiddenPhrasing:
		result.RuleValidation.GuardFailed = GuardForbiddenPhrasing
	}
	result.RuleValidation.Passed = result.RuleValidation.GuardFailed == ""

	// Ordered escalation policy. Every predicate contributes to
	// EscalationTriggered; only the first match supplies the reason.
	policy := []struct {
		triggered bool
		reason    string
	}{
		{!result.RuleValidation.Passed, fmt.Sprintf("Rule validation failed: %s", result.RuleValidation.GuardFailed)},
		{hallucination, ReasonHallucination},
		{ambiguity, ReasonAmbiguity},
		{highStakes, ReasonHighStakes},
		{strategic, ReasonStrategic},
	}
	for _, rule := range policy {
		if rule.triggered {
			result.EscalationTriggered = true
			if result.EscalationReason == "" {
				result.EscalationReason = rule.reason
			}
		}
	}

	result.IsValid = result.RuleValidation.Passed && !hallucination && !ambiguity
	return result
}

// record emits metrics and a log line for one validation.
func (c *Critic) record(ctx context.Context, result *ValidationResult, elapsed time.Duration) {
	outcome := "valid"
	if !result.IsValid {
		outcome = "invalid"
	}
	if validationsTotal != nil {
		validationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if validationDuration != nil {
		validationDuration.Record(ctx, elapsed.Seconds())
	}
	if result.EscalationTriggered && escalationsTotal != nil {
		escalationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", result.EscalationReason)))
	}
	if !result.RuleValidation.Passed && guardFailuresTotal != nil {
		guardFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("guard", result.RuleValidation.GuardFailed)))
	}
	if result.HallucinationDetected && hallucinationsTotal != nil {
		hallucinationsTotal.Add(ctx, 1)
	}

	if result.EscalationTriggered {
		c.log.Info("answer escalated",
			"reason", result.EscalationReason,
			"valid", result.IsValid,
			"findings", len(result.Findings))
	} else {
		c.log.Debug("answer validated",
			"valid", result.IsValid,
			"duration_ms", elapsed.Milliseconds())
	}
}
