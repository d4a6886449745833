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
	"github.com/mintwell/mintwell/pkg/logging"
)

// Config configures critic construction.
type Config struct {
	// Vocabulary overrides the built-in pattern sets. Must already be
	// compiled. Nil uses DefaultVocabulary.
	Vocabulary *Vocabulary

	// Logger receives validation events. Nil uses the package default.
	Logger *logging.Logger

	// ExtraCheckers are appended after the built-in pipeline.
	ExtraCheckers []Checker
}

// New creates a fully configured Critic with all guardrails.
//
// Inputs:
//
//	config - Configuration for critic behavior. Nil uses defaults.
//
// Outputs:
//
//	*Critic - A configured critic ready for use.
//
// Example:
//
//	c := critic.New(nil) // use defaults
//	result := c.Validate(ctx, answer, question, pack)
//	if result.EscalationTriggered {
//	    return escalate(result)
//	}
func New(config *Config) *Critic {
	if config == nil {
		config = &Config{}
	}
	vocab := config.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	log := config.Logger
	if log == nil {
		log = logging.Default()
	}

	checkers := []Checker{
		NewNumericChecker(),
		NewClaimsChecker(),
		NewHallucinationChecker(),
		NewAmbiguityChecker(),
		NewStakesChecker(),
	}
	checkers = append(checkers, config.ExtraCheckers...)

	c := &Critic{
		checkers: checkers,
		log:      log,
	}
	c.vocab.Store(vocab)
	return c
}
