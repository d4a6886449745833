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

	"github.com/shopspring/decimal"
)

// NumericChecker enforces the numeric rule guards: no negative stated
// amounts, claimed totals must equal the FactPack figures they
// summarize, and stated spending ceilings must not exceed the matching
// budget's limit.
type NumericChecker struct{}

// NewNumericChecker creates the numeric guardrail.
func NewNumericChecker() *NumericChecker {
	return &NumericChecker{}
}

// Name returns the checker name for logging and metrics.
func (c *NumericChecker) Name() string {
	return "numeric"
}

// Check runs the three numeric guards against the answer.
func (c *NumericChecker) Check(ctx context.Context, input *CheckInput) []Finding {
	var findings []Finding

	for _, amount := range ExtractAmounts(input.Message) {
		if amount.Percent {
			continue
		}
		if amount.Value.IsNegative() {
			findings = append(findings, Finding{
				Type:     FindingNegativeAmount,
				Guard:    GuardNegativeAmounts,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("stated amount %s is negative", amount.Raw),
				Evidence: amount.Raw,
			})
		}
	}

	if input.Facts == nil || input.Index == nil {
		return findings
	}

	for _, claim := range ExtractTotalClaims(input.Message) {
		if !c.totalTraceable(input, claim) {
			findings = append(findings, Finding{
				Type:     FindingSumMismatch,
				Guard:    GuardSumMismatch,
				Severity: SeverityCritical,
				Message: fmt.Sprintf("claimed total %s does not match the underlying figures",
					claim.Value.StringFixed(2)),
				Evidence: claim.Raw,
			})
		}
	}

	for _, claim := range ExtractCeilingClaims(input.Message) {
		if limit, name, ok := c.ceilingLimit(input, claim); ok && claim.Value.GreaterThan(limit) {
			findings = append(findings, Finding{
				Type:     FindingBudgetLimitExceeded,
				Guard:    GuardBudgetLimitExceeded,
				Severity: SeverityHigh,
				Message: fmt.Sprintf("stated ceiling %s exceeds the %s limit of %s",
					claim.Value.StringFixed(2), name, limit.StringFixed(2)),
				Evidence: claim.Raw,
			})
		}
	}

	return findings
}

// totalTraceable reports whether a claimed total matches the sums it
// could plausibly summarize, or a single matching figure when the
// phrasing refers to one budget ("out of $500 total").
func (c *NumericChecker) totalTraceable(input *CheckInput, claim TotalClaim) bool {
	facts, idx := input.Facts, input.Index

	var candidates []decimal.Decimal
	switch claim.Kind {
	case "budget":
		candidates = append(candidates, facts.TotalBudgetLimit(), facts.TotalBudgetSpent())
	case "spent":
		candidates = append(candidates, facts.TotalBudgetSpent(), facts.Patterns.TotalSpent)
	default:
		candidates = append(candidates,
			facts.TotalBudgetLimit(),
			facts.TotalBudgetSpent(),
			facts.TotalBudgetLimit().Sub(facts.TotalBudgetSpent()),
			facts.Patterns.TotalSpent)
	}
	for _, b := range facts.Budgets {
		candidates = append(candidates, b.Limit, b.Spent, b.Remaining)
	}

	for _, candidate := range candidates {
		if idx.Matches(claim.Value, candidate) {
			return true
		}
	}
	return false
}

// ceilingLimit resolves which budget limit a ceiling claim is bound by.
func (c *NumericChecker) ceilingLimit(input *CheckInput, claim CeilingClaim) (decimal.Decimal, string, bool) {
	if claim.Category != "" {
		if b := input.Facts.BudgetByName(claim.Category); b != nil {
			return b.Limit, b.Name, true
		}
		return decimal.Zero, "", false
	}
	if len(input.Facts.Budgets) == 0 {
		return decimal.Zero, "", false
	}
	return input.Facts.TotalBudgetLimit(), "overall budget", true
}
