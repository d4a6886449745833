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

	"github.com/mintwell/mintwell/services/assurance/critic"
)

// TemplateEscalator maps escalation reasons to reviewed safe templates.
// Answers routed here are never shown verbatim; the user sees the
// template for the winning reason, or the default template when no
// specific one is configured.
//
// Thread Safety: Safe for concurrent use after construction. Do not
// mutate Templates while the escalator is in use.
type TemplateEscalator struct {
	// Templates keys safe content by critic escalation reason.
	Templates map[string]string

	// Default is shown when no template matches the reason.
	Default string
}

// NewTemplateEscalator returns an escalator preloaded with reviewed
// templates for every built-in escalation reason.
func NewTemplateEscalator() *TemplateEscalator {
	return &TemplateEscalator{
		Templates: map[string]string{
			critic.ReasonHallucination: "I couldn't verify some of the numbers in that answer " +
				"against your accounts, so I'm not going to show it. " +
				"You can review the underlying figures on your dashboard.",
			critic.ReasonAmbiguity: "I don't have a confident answer to that from your data alone. " +
				"A Mintwell advisor can follow up with you directly.",
			critic.ReasonHighStakes: "Decisions on this scale deserve more than a chat answer. " +
				"I've flagged this for a human advisor to review with you.",
			critic.ReasonStrategic: "I can show you your own numbers, but investment strategy " +
				"is outside what I'll advise on. A licensed advisor can help from here.",
		},
		Default: "I'm not able to answer that reliably right now. " +
			"This conversation has been flagged for review.",
	}
}

// Escalate returns the safe template for the result's escalation reason.
func (e *TemplateEscalator) Escalate(_ context.Context, _ Turn, _ string, result *critic.ValidationResult) string {
	if result != nil {
		if t, ok := e.Templates[result.EscalationReason]; ok {
			return t
		}
	}
	return e.Default
}
