// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package critic validates candidate assistant answers against a
// trusted FactPack snapshot before delivery. It is pure and stateless:
// no mutation of the FactPack or any shared state, safe to run
// concurrently across chat turns.
package critic

import (
	"context"

	"github.com/mintwell/mintwell/services/assurance/factpack"
)

// Severity indicates how serious a finding is.
type Severity string

const (
	// SeverityInfo is for advisory findings that never block delivery.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityHigh is for findings that make the answer unsafe to show.
	SeverityHigh Severity = "high"

	// SeverityCritical is for findings that indicate fabricated numbers.
	SeverityCritical Severity = "critical"
)

// FindingType categorizes what a guardrail detected.
type FindingType string

const (
	// FindingNegativeAmount indicates a stated dollar figure below zero.
	FindingNegativeAmount FindingType = "negative_amount"

	// FindingSumMismatch indicates a claimed total that does not equal
	// the FactPack figures it summarizes.
	FindingSumMismatch FindingType = "sum_mismatch"

	// FindingBudgetLimitExceeded indicates a stated spending ceiling
	// above the matching budget's limit.
	FindingBudgetLimitExceeded FindingType = "budget_limit_exceeded"

	// FindingForbiddenClaim indicates high-risk phrasing from the
	// forbidden vocabulary.
	FindingForbiddenClaim FindingType = "forbidden_claim"

	// FindingUntraceableNumber indicates a quantitative claim that does
	// not trace to any FactPack value or direct derivation.
	FindingUntraceableNumber FindingType = "untraceable_number"

	// FindingHedging indicates unresolved ambiguity in the answer.
	FindingHedging FindingType = "hedging"

	// FindingHighStakesQuery indicates the user's question matches a
	// long-horizon or restructuring pattern.
	FindingHighStakesQuery FindingType = "high_stakes_query"

	// FindingStrategicQuery indicates the user's question asks for
	// investment or strategic planning advice.
	FindingStrategicQuery FindingType = "strategic_query"
)

// Guard names surfaced in RuleValidation.GuardFailed.
const (
	GuardNegativeAmounts     = "numeric_negative_amounts"
	GuardSumMismatch         = "numeric_sum_mismatch"
	GuardBudgetLimitExceeded = "numeric_budget_limit_exceeded"
	GuardForbiddenPhrasing   = "claim_forbidden_phrasing"
)

// Finding is a single guardrail detection.
type Finding struct {
	// Type is the kind of finding.
	Type FindingType `json:"type"`

	// Guard is the rule-guard name this finding fails, empty for
	// findings outside the rule guards (hallucination, ambiguity,
	// stakes).
	Guard string `json:"guard,omitempty"`

	// Severity indicates how serious the finding is.
	Severity Severity `json:"severity"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Evidence is the answer or query text that triggered the finding.
	Evidence string `json:"evidence,omitempty"`
}

// RiskLevel classifies forbidden-phrasing density in an answer.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RuleValidation is the combined outcome of the rule guards.
type RuleValidation struct {
	// Passed is true when no rule guard failed.
	Passed bool `json:"passed"`

	// GuardFailed names the first failed guard, empty when Passed.
	GuardFailed string `json:"guard_failed,omitempty"`
}

// NumericGuardrails reports the individual numeric guard outcomes.
type NumericGuardrails struct {
	AmountsNonNegative    bool `json:"amounts_non_negative"`
	SumsConsistent        bool `json:"sums_consistent"`
	BudgetLimitsRespected bool `json:"budget_limits_respected"`
}

// ClaimTypes reports the forbidden-phrasing guard outcome.
type ClaimTypes struct {
	HasForbiddenPhrasing bool      `json:"has_forbidden_phrasing"`
	RiskLevel            RiskLevel `json:"risk_level"`
	ForbiddenClaims      []string  `json:"forbidden_claims,omitempty"`
}

// ValidationResult is the outcome of validating one candidate answer.
// Created fresh per call and never persisted by this package.
//
// IsValid and EscalationTriggered are deliberately independent: a
// stakes or strategic query match escalates a numerically correct
// answer to a secondary path without marking it invalid.
type ValidationResult struct {
	// IsValid is true when the rule guards passed and neither the
	// hallucination nor the ambiguity guard tripped.
	IsValid bool `json:"is_valid"`

	// RuleValidation is the combined rule-guard outcome.
	RuleValidation RuleValidation `json:"rule_validation"`

	// NumericGuardrails breaks down the numeric guard outcomes.
	NumericGuardrails NumericGuardrails `json:"numeric_guardrails"`

	// ClaimTypes breaks down the forbidden-phrasing guard outcome.
	ClaimTypes ClaimTypes `json:"claim_types"`

	// HallucinationDetected is true when any quantitative claim failed
	// to trace to the FactPack.
	HallucinationDetected bool `json:"hallucination_detected"`

	// AmbiguityDetected is true when the answer hedges instead of
	// committing to a grounded statement.
	AmbiguityDetected bool `json:"ambiguity_detected"`

	// EscalationTriggered is true when any guardrail or the stakes
	// classifier fired.
	EscalationTriggered bool `json:"escalation_triggered"`

	// EscalationReason is the single surfaced reason, chosen by fixed
	// priority when several guards fire. Empty when no escalation.
	EscalationReason string `json:"escalation_reason,omitempty"`

	// Findings lists every individual detection for diagnostics.
	Findings []Finding `json:"findings,omitempty"`
}

// CheckInput provides all data a guardrail needs for one answer.
type CheckInput struct {
	// Message is the candidate answer text.
	Message string

	// Query is the user question that produced the answer.
	Query string

	// Facts is the turn's immutable FactPack. Never mutated.
	Facts *factpack.FactPack

	// Index is the pre-built value index over Facts.
	Index *FactIndex

	// Vocabulary holds the configurable pattern sets.
	Vocabulary *Vocabulary
}

// Checker is a single guardrail.
//
// Each checker focuses on one validation aspect; the critic composes
// them into the full pipeline.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Checker interface {
	// Name returns the checker name for logging and metrics.
	Name() string

	// Check runs the guardrail against one answer.
	Check(ctx context.Context, input *CheckInput) []Finding
}
