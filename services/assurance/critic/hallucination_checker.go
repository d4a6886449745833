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
)

// HallucinationChecker verifies that every quantitative claim in the
// answer traces to a FactPack value or a direct derivation of one.
//
// Figures already owned by the numeric rule guards are skipped here:
// negative amounts belong to the negative guard, and amounts inside
// total or ceiling claims belong to the sum and limit guards. What
// remains are free-standing figures, and a free-standing figure with
// no source in the snapshot is a fabricated number.
type HallucinationChecker struct{}

// NewHallucinationChecker creates the hallucination guardrail.
func NewHallucinationChecker() *HallucinationChecker {
	return &HallucinationChecker{}
}

// Name returns the checker name for logging and metrics.
func (c *HallucinationChecker) Name() string {
	return "hallucination"
}

// Check returns one finding per untraceable figure.
func (c *HallucinationChecker) Check(ctx context.Context, input *CheckInput) []Finding {
	if input.Index == nil {
		return nil
	}

	var ruleSpans []span
	for _, claim := range ExtractTotalClaims(input.Message) {
		ruleSpans = append(ruleSpans, span{claim.Start, claim.End})
	}
	for _, claim := range ExtractCeilingClaims(input.Message) {
		ruleSpans = append(ruleSpans, span{claim.Start, claim.End})
	}

	var findings []Finding
	for _, amount := range ExtractAmounts(input.Message) {
		if inAnySpan(amount.Position, ruleSpans) {
			continue
		}
		if !amount.Percent && amount.Value.IsNegative() {
			continue
		}

		traceable := amount.Percent && input.Index.TraceablePercent(amount.Value) ||
			!amount.Percent && input.Index.Traceable(amount.Value)
		if !traceable {
			findings = append(findings, Finding{
				Type:     FindingUntraceableNumber,
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("figure %s does not trace to any known value", amount.Raw),
				Evidence: amount.Raw,
			})
		}
	}
	return findings
}
