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
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is one quantitative figure extracted from answer text.
type Amount struct {
	// Value is the parsed figure. Negative for "-$50" and "$-50".
	Value decimal.Decimal

	// Raw is the matched text.
	Raw string

	// Position is the character offset in the message.
	Position int

	// Percent is true for percentage figures ("60%").
	Percent bool
}

// TotalClaim is an aggregate claim like "your total budget is $1000"
// or "$500 total". These are validated by the sum guard rather than
// the hallucination guard.
type TotalClaim struct {
	Value decimal.Decimal
	Raw   string
	Start int
	End   int

	// Kind is "budget", "spent", or "generic" depending on what the
	// surrounding words say is being totaled.
	Kind string
}

// CeilingClaim is a stated spending ceiling like "spend up to $600 on
// groceries". Validated against the matching budget's limit.
type CeilingClaim struct {
	Value    decimal.Decimal
	Category string
	Raw      string
	Start    int
	End      int
}

const moneyFragment = `-?\$\s?-?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?`

var (
	moneyPattern   = regexp.MustCompile(moneyFragment)
	percentPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?\s?%`)

	// "total budget is $1000", "your total spending of $490"
	totalBeforePattern = regexp.MustCompile(
		`(?i)total\s+(?:budget|budgets|spend|spending|spent)?[^.$]{0,40}?(` + moneyFragment + `)`)

	// "out of $500 total", "$700 in total"
	totalAfterPattern = regexp.MustCompile(
		`(?i)(` + moneyFragment + `)\s+(?:in\s+)?total\b`)

	// "budgets add up to $700", "altogether that's $490"
	totalVerbPattern = regexp.MustCompile(
		`(?i)(?:altogether|in\s+total|sums?\s+to|adds?\s+up\s+to)[^.$]{0,30}?(` + moneyFragment + `)`)

	// "spend up to $600 on groceries", "cap of $500 for dining"
	ceilingPattern = regexp.MustCompile(
		`(?i)(?:spend(?:ing)?\s+up\s+to|up\s+to|limit\s+of|cap\s+of|ceiling\s+of)\s+(` +
			moneyFragment + `)(?:\s+(?:on|for|in)\s+([a-zA-Z][a-zA-Z ]{0,30}?))?(?:[.,!?;]|$)`)
)

// parseMoney converts a matched money string to a decimal. A leading
// minus on either side of the dollar sign makes the value negative.
func parseMoney(raw string) decimal.Decimal {
	s := strings.ReplaceAll(raw, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	negative := strings.Contains(s, "-")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.TrimPrefix(s, "$")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// ExtractAmounts returns every dollar and percentage figure in the
// message, in order of appearance.
func ExtractAmounts(message string) []Amount {
	var amounts []Amount

	for _, loc := range moneyPattern.FindAllStringIndex(message, -1) {
		raw := message[loc[0]:loc[1]]
		amounts = append(amounts, Amount{
			Value:    parseMoney(raw),
			Raw:      raw,
			Position: loc[0],
		})
	}

	for _, loc := range percentPattern.FindAllStringIndex(message, -1) {
		raw := message[loc[0]:loc[1]]
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
		d, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		amounts = append(amounts, Amount{
			Value:    d,
			Raw:      raw,
			Position: loc[0],
			Percent:  true,
		})
	}
	return amounts
}

// ExtractTotalClaims returns every aggregate-total claim in the message.
func ExtractTotalClaims(message string) []TotalClaim {
	var claims []TotalClaim
	seen := make(map[int]bool)

	collect := func(re *regexp.Regexp) {
		for _, m := range re.FindAllStringSubmatchIndex(message, -1) {
			// Group 1 is the money fragment.
			amtStart, amtEnd := m[2], m[3]
			if seen[amtStart] {
				continue
			}
			seen[amtStart] = true
			raw := message[m[0]:m[1]]
			claims = append(claims, TotalClaim{
				Value: parseMoney(message[amtStart:amtEnd]),
				Raw:   raw,
				Start: m[0],
				End:   m[1],
				Kind:  totalKind(raw),
			})
		}
	}
	collect(totalBeforePattern)
	collect(totalAfterPattern)
	collect(totalVerbPattern)
	return claims
}

func totalKind(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "budget"):
		return "budget"
	case strings.Contains(lower, "spen"):
		return "spent"
	default:
		return "generic"
	}
}

// aggregateVerbBefore matches text whose trailing words turn a bare
// "up to" into an aggregation ("adds up to", "sums to") rather than a
// ceiling.
var aggregateVerbBefore = regexp.MustCompile(`(?i)(?:adds?|sums?)\s*$`)

// ExtractCeilingClaims returns every stated spending ceiling.
func ExtractCeilingClaims(message string) []CeilingClaim {
	var claims []CeilingClaim
	for _, m := range ceilingPattern.FindAllStringSubmatchIndex(message, -1) {
		if aggregateVerbBefore.MatchString(message[:m[0]]) {
			continue
		}
		claim := CeilingClaim{
			Value: parseMoney(message[m[2]:m[3]]),
			Raw:   message[m[0]:m[1]],
			Start: m[0],
			End:   m[1],
		}
		if m[4] >= 0 {
			claim.Category = strings.TrimSpace(message[m[4]:m[5]])
		}
		claims = append(claims, claim)
	}
	return claims
}

// span is a half-open [start, end) character range in the message.
type span struct {
	start, end int
}

func inAnySpan(pos int, spans []span) bool {
	for _, s := range spans {
		if pos >= s.start && pos < s.end {
			return true
		}
	}
	return false
}
