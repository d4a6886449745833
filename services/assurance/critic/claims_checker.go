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

// ClaimsChecker matches the answer against the forbidden high-risk
// vocabulary ("guaranteed return", "risk-free", "surefire profit").
// Any match fails the claim_forbidden_phrasing guard.
type ClaimsChecker struct{}

// NewClaimsChecker creates the claim-type guardrail.
func NewClaimsChecker() *ClaimsChecker {
	return &ClaimsChecker{}
}

// Name returns the checker name for logging and metrics.
func (c *ClaimsChecker) Name() string {
	return "claims"
}

// Check returns one finding per matched forbidden phrase.
func (c *ClaimsChecker) Check(ctx context.Context, input *CheckInput) []Finding {
	var findings []Finding
	for _, re := range input.Vocabulary.forbidden {
		for _, match := range re.FindAllString(input.Message, -1) {
			findings = append(findings, Finding{
				Type:     FindingForbiddenClaim,
				Guard:    GuardForbiddenPhrasing,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("forbidden phrasing %q", match),
				Evidence: match,
			})
		}
	}
	return findings
}

// classifyRisk maps a forbidden-claim count to a risk level. The
// observed product behavior is preserved exactly: high at three or
// more matches, medium at exactly one, none otherwise, including the
// two-match case.
func classifyRisk(matches int) RiskLevel {
	switch {
	case matches >= 3:
		return RiskHigh
	case matches == 1:
		return RiskMedium
	default:
		return RiskNone
	}
}
