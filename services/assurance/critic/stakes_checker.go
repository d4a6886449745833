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

// StakesChecker classifies the user's query, not the answer. A
// long-horizon or restructuring question, or a request for investment
// advice, routes to a secondary path even when the answer itself is
// numerically correct. Advisory only: findings here never fail a rule
// guard or invalidate the answer.
type StakesChecker struct{}

// NewStakesChecker creates the stakes classifier.
func NewStakesChecker() *StakesChecker {
	return &StakesChecker{}
}

// Name returns the checker name for logging and metrics.
func (c *StakesChecker) Name() string {
	return "stakes"
}

// Check matches the query against the high-stakes and strategic
// pattern sets. At most one finding of each kind is reported.
func (c *StakesChecker) Check(ctx context.Context, input *CheckInput) []Finding {
	var findings []Finding

	for _, re := range input.Vocabulary.highStakes {
		if match := re.FindString(input.Query); match != "" {
			findings = append(findings, Finding{
				Type:     FindingHighStakesQuery,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("query matches high-stakes pattern %q", match),
				Evidence: match,
			})
			break
		}
	}

	for _, re := range input.Vocabulary.strategic {
		if match := re.FindString(input.Query); match != "" {
			findings = append(findings, Finding{
				Type:     FindingStrategicQuery,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("query matches strategic-planning pattern %q", match),
				Evidence: match,
			})
			break
		}
	}

	return findings
}
