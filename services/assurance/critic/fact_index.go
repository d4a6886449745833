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
	"github.com/shopspring/decimal"

	"github.com/mintwell/mintwell/services/assurance/factpack"
)

// defaultTolerance is the maximum absolute difference under which two
// monetary values are considered the same figure.
var defaultTolerance = decimal.NewFromFloat(0.01)

// FactIndex is the evidence index over one FactPack: every numeric
// field value plus direct derivations (collection sums, spent/limit/
// remaining relations, percentage forms). Built once per chat turn and
// consulted by the guardrails; read-only after construction.
//
// Thread Safety: Safe for concurrent reads.
type FactIndex struct {
	values    []decimal.Decimal
	percents  []decimal.Decimal
	tolerance decimal.Decimal
}

// NewFactIndex builds the index for a pack. A nil pack yields an empty
// index where nothing is traceable.
func NewFactIndex(pack *factpack.FactPack) *FactIndex {
	idx := &FactIndex{tolerance: defaultTolerance}
	if pack == nil {
		return idx
	}

	add := func(vals ...decimal.Decimal) {
		idx.values = append(idx.values, vals...)
	}
	addPercent := func(ratio decimal.Decimal) {
		// Stored as the 0-100 form an answer would state ("60%").
		idx.percents = append(idx.percents, ratio.Mul(decimal.NewFromInt(100)))
	}

	for _, b := range pack.Balances {
		add(b.Amount)
	}
	for _, b := range pack.Budgets {
		add(b.Spent, b.Limit, b.Remaining)
		add(b.Limit.Sub(b.Spent)) // stated "left" even when Remaining drifts
		addPercent(b.Utilization)
		for _, c := range b.TopCategories {
			add(c.Amount)
		}
	}
	for _, g := range pack.Goals {
		add(g.TargetAmount, g.CurrentAmount, g.Remaining)
		add(g.TargetAmount.Sub(g.CurrentAmount))
		addPercent(g.Progress)
	}
	for _, r := range pack.Recurring {
		add(r.Amount)
	}
	for _, t := range pack.RecentTransactions {
		add(t.Amount, t.Amount.Abs())
	}
	add(pack.Patterns.TotalSpent, pack.Patterns.AverageDaily)
	idx.percents = append(idx.percents, pack.Patterns.Comparison, pack.Patterns.Comparison.Abs())
	for _, c := range pack.Patterns.TopCategories {
		add(c.Amount)
	}
	add(pack.Profile.MonthlyIncome)

	// Collection sums, so "you spent $490 across your budgets" traces.
	add(pack.TotalBudgetLimit(), pack.TotalBudgetSpent())
	add(pack.TotalBudgetLimit().Sub(pack.TotalBudgetSpent()))

	return idx
}

// Traceable reports whether a stated dollar figure matches any indexed
// value within tolerance.
func (idx *FactIndex) Traceable(v decimal.Decimal) bool {
	return withinAny(v, idx.values, idx.tolerance)
}

// TraceablePercent reports whether a stated percentage (0-100 form)
// matches any indexed ratio within tolerance.
func (idx *FactIndex) TraceablePercent(v decimal.Decimal) bool {
	// Percentages are usually stated rounded ("61%" for 60.7), so the
	// tolerance is a full point.
	return withinAny(v, idx.percents, decimal.NewFromInt(1))
}

// Matches reports whether a and b are the same figure within the
// index tolerance.
func (idx *FactIndex) Matches(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(idx.tolerance)
}

func withinAny(v decimal.Decimal, candidates []decimal.Decimal, tolerance decimal.Decimal) bool {
	for _, c := range candidates {
		if v.Sub(c).Abs().LessThanOrEqual(tolerance) {
			return true
		}
	}
	return false
}
