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
	"strings"
)

// ambiguityConditionalThreshold is how many weak conditional markers
// ("if", "could", "might") one answer may contain before it counts as
// hedging. A single strong hedge word ("maybe", "depends") is enough
// on its own.
const ambiguityConditionalThreshold = 2

// AmbiguityChecker detects answers that hedge instead of committing to
// a grounded statement. A hedged answer about money is worth as little
// as a wrong one, so ambiguity invalidates the answer outright.
type AmbiguityChecker struct{}

// NewAmbiguityChecker creates the ambiguity guardrail.
func NewAmbiguityChecker() *AmbiguityChecker {
	return &AmbiguityChecker{}
}

// Name returns the checker name for logging and metrics.
func (c *AmbiguityChecker) Name() string {
	return "ambiguity"
}

// Check flags strong hedge words and conditional pile-ups.
func (c *AmbiguityChecker) Check(ctx context.Context, input *CheckInput) []Finding {
	vocab := input.Vocabulary

	if match := vocab.hedging.FindString(input.Message); match != "" {
		return []Finding{{
			Type:     FindingHedging,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("answer hedges with %q", strings.ToLower(match)),
			Evidence: match,
		}}
	}

	conditionals := vocab.conditionals.FindAllString(input.Message, -1)
	if len(conditionals) >= ambiguityConditionalThreshold {
		return []Finding{{
			Type:     FindingHedging,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("answer stacks %d conditionals (%s)",
				len(conditionals), strings.ToLower(strings.Join(conditionals, ", "))),
			Evidence: strings.Join(conditionals, ", "),
		}}
	}
	return nil
}
