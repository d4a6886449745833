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
	"fmt"
	"regexp"
	"strings"
)

// Vocabulary holds the configurable pattern sets the guardrails match
// against. Entries are case-insensitive regular expression fragments.
//
// A Vocabulary must be compiled before use; DefaultVocabulary returns
// one ready to go. Instances are immutable after Compile, so a live
// critic can swap vocabularies atomically on config reload.
type Vocabulary struct {
	// ForbiddenPhrases is the high-risk phrasing the claim-type guard
	// rejects.
	ForbiddenPhrases []string `json:"forbidden_phrases"`

	// HedgingWords are terms that mark unresolved ambiguity on their
	// own ("maybe", "perhaps", "depends").
	HedgingWords []string `json:"hedging_words"`

	// ConditionalMarkers are weaker hedges; two or more in one answer
	// count as ambiguity.
	ConditionalMarkers []string `json:"conditional_markers"`

	// HighStakesPatterns match long-horizon or restructuring queries.
	HighStakesPatterns []string `json:"high_stakes_patterns"`

	// StrategicPatterns match investment-advice queries.
	StrategicPatterns []string `json:"strategic_patterns"`

	forbidden    []*regexp.Regexp
	hedging      *regexp.Regexp
	conditionals *regexp.Regexp
	highStakes   []*regexp.Regexp
	strategic    []*regexp.Regexp
}

// DefaultVocabulary returns the built-in pattern sets, compiled.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		ForbiddenPhrases: []string{
			`guaranteed returns?`,
			`risk[- ]?free`,
			`surefire profits?`,
			`can(?:no|')t lose`,
			`sure thing`,
			`double your money`,
			`get rich quick`,
			`no[- ]risk`,
			`always profitable`,
			`never loses? money`,
		},
		HedgingWords: []string{
			`maybe`,
			`perhaps`,
			`depends`,
			`possibly`,
			`hard to say`,
			`not sure`,
			`it varies`,
		},
		ConditionalMarkers: []string{
			`if`,
			`could`,
			`might`,
			`would`,
			`unless`,
			`assuming`,
		},
		HighStakesPatterns: []string{
			`retire`,
			`long[- ]term`,
			`restructur`,
			`refinanc`,
			`consolidat`,
			`mortgage`,
			`\d{1,2}[- ]years?`,
			`estate plan`,
		},
		StrategicPatterns: []string{
			`invest`,
			`portfolio`,
			`stocks?`,
			`bonds?`,
			`asset allocation`,
			`strateg`,
			`diversif`,
		},
	}
	if err := v.Compile(); err != nil {
		// The built-in patterns are static and tested; a failure here
		// is a programming error.
		panic(err)
	}
	return v
}

// Compile builds the matchers from the raw pattern fragments. Must be
// called once before the vocabulary is handed to a critic; the
// vocabulary must not be modified afterwards.
func (v *Vocabulary) Compile() error {
	var err error
	if v.forbidden, err = compileEach(v.ForbiddenPhrases); err != nil {
		return fmt.Errorf("forbidden phrase: %w", err)
	}
	if v.hedging, err = compileAlternation(v.HedgingWords); err != nil {
		return fmt.Errorf("hedging word: %w", err)
	}
	if v.conditionals, err = compileAlternation(v.ConditionalMarkers); err != nil {
		return fmt.Errorf("conditional marker: %w", err)
	}
	if v.highStakes, err = compileEach(v.HighStakesPatterns); err != nil {
		return fmt.Errorf("high stakes pattern: %w", err)
	}
	if v.strategic, err = compileEach(v.StrategicPatterns); err != nil {
		return fmt.Errorf("strategic pattern: %w", err)
	}
	return nil
}

func compileEach(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// compileAlternation joins word patterns into one bounded matcher.
func compileAlternation(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return regexp.Compile(`\z.\A`) // matches nothing
	}
	expr := `(?i)\b(?:` + strings.Join(patterns, `|`) + `)\b`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", expr, err)
	}
	return re, nil
}
