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
	"github.com/mintwell/mintwell/services/assurance/factpack"
	"github.com/mintwell/mintwell/services/assurance/llm"
)

// Turn is one user chat turn entering the gate.
type Turn struct {
	// UserID identifies whose financial snapshot grounds the answer.
	UserID string `json:"user_id"`

	// Query is the user's question, verbatim.
	Query string `json:"query"`

	// Window bounds the snapshot period for this turn.
	Window factpack.TimeWindow `json:"window"`

	// ServiceName selects which supervised backend handles the turn.
	// Empty uses the gate's default backend.
	ServiceName string `json:"service_name,omitempty"`
}

// TurnOutcome describes how a turn resolved. Every turn yields exactly
// one outcome; the gate never propagates internal errors to the caller.
type TurnOutcome struct {
	// Answer is the text to show the user. Either the validated backend
	// answer, escalation content, or the fixed fallback message.
	Answer string `json:"answer"`

	// Delivered is true when the backend answer passed validation and
	// was returned verbatim.
	Delivered bool `json:"delivered"`

	// Escalated is true when the answer was routed to the escalation
	// path instead of being delivered.
	Escalated bool `json:"escalated"`

	// FallbackUsed is true when the backend was unreachable and the
	// fixed fallback message was returned.
	FallbackUsed bool `json:"fallback_used"`

	// Validation is the critic's verdict. Nil when the backend was
	// never invoked.
	Validation *critic.ValidationResult `json:"validation,omitempty"`

	// FactHash is the fingerprint of the snapshot the turn was grounded
	// on, for audit lookup in the archive.
	FactHash string `json:"fact_hash,omitempty"`
}

// Invoker calls the answer backend. The backend is treated as an
// untrusted black box; every call goes through a circuit breaker and
// every answer through the critic.
type Invoker interface {
	Invoke(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// FactSource builds the financial snapshot a turn is grounded on.
type FactSource interface {
	Build(ctx context.Context, userID string, window factpack.TimeWindow) (*factpack.FactPack, error)
}

// Escalator chooses the content shown in place of a rejected answer.
// The gate itself never invents escalation content.
type Escalator interface {
	Escalate(ctx context.Context, turn Turn, answer string, result *critic.ValidationResult) string
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}

// ValidateRequest is the body for the dry-run validation endpoint.
type ValidateRequest struct {
	// Message is the candidate answer to validate.
	Message string `json:"message" binding:"required"`

	// Query is the user question the answer responds to.
	Query string `json:"query"`

	// Facts is the snapshot to validate against. Nil skips the
	// fact-backed guards and runs only the text guards.
	Facts *factpack.FactPack `json:"facts,omitempty"`
}
