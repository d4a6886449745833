// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package factpack

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DataVersion is the current snapshot schema version.
const DataVersion = "2.3"

// RawData is what a DataProvider returns: upstream figures before the
// builder derives utilization, progress, and fingerprints the result.
type RawData struct {
	Balances           []Balance        `json:"balances"`
	Budgets            []Budget         `json:"budgets"`
	Goals              []Goal           `json:"goals"`
	Recurring          []RecurringItem  `json:"recurring"`
	RecentTransactions []Transaction    `json:"recent_transactions"`
	Patterns           SpendingPatterns `json:"patterns"`
	Profile            UserProfile      `json:"profile"`

	// OldestFigure is the timestamp of the stalest upstream datum,
	// used to compute Metadata.Freshness.
	OldestFigure time.Time `json:"oldest_figure"`
}

// DataProvider supplies raw financial figures for a user and window.
//
// Implementations typically front the accounts/budgets backend API.
//
// Thread Safety: Implementations must be safe for concurrent use.
type DataProvider interface {
	// Fetch returns the raw figures for one user and window.
	Fetch(ctx context.Context, userID string, window TimeWindow) (*RawData, error)
}

// Builder assembles immutable FactPack snapshots.
//
// Thread Safety: Safe for concurrent use; the builder holds no mutable
// state beyond its collaborators.
type Builder struct {
	provider DataProvider
	source   string
	now      func() time.Time
}

// NewBuilder creates a Builder backed by the given provider.
//
// Inputs:
//
//	provider - Upstream figure source. Must not be nil.
//	source - Name recorded in Metadata.Source (e.g. "ledger-api").
//
// Outputs:
//
//	*Builder - Ready to build snapshots.
func NewBuilder(provider DataProvider, source string) *Builder {
	return &Builder{
		provider: provider,
		source:   source,
		now:      time.Now,
	}
}

// Build produces one immutable, hashed, timestamped snapshot.
//
// Description:
//
//	Fetches raw figures, derives the dependent fields (Remaining,
//	Utilization, Progress, budget/goal statuses), stamps metadata, and
//	fingerprints the body. The returned pack must never be mutated;
//	every numeric claim the critic validates traces back to it.
//
// Inputs:
//
//	ctx - Context for cancellation of the upstream fetch.
//	userID - The user the snapshot is for.
//	window - The time window the figures cover.
//
// Outputs:
//
//	*FactPack - The completed snapshot.
//	error - Non-nil if the upstream fetch or hashing fails.
func (b *Builder) Build(ctx context.Context, userID string, window TimeWindow) (*FactPack, error) {
	raw, err := b.provider.Fetch(ctx, userID, window)
	if err != nil {
		return nil, fmt.Errorf("fetching figures for %s: %w", userID, err)
	}

	now := b.now()

	pack := &FactPack{
		UserID:             userID,
		Window:             window,
		Balances:           raw.Balances,
		Budgets:            deriveBudgets(raw.Budgets),
		Goals:              deriveGoals(raw.Goals, now),
		Recurring:          raw.Recurring,
		RecentTransactions: raw.RecentTransactions,
		Patterns:           raw.Patterns,
		Profile:            raw.Profile,
	}

	freshness := time.Duration(0)
	if !raw.OldestFigure.IsZero() {
		freshness = now.Sub(raw.OldestFigure)
	}

	hash, err := Fingerprint(pack)
	if err != nil {
		return nil, err
	}

	pack.Meta = Metadata{
		GeneratedAt: now,
		DataVersion: DataVersion,
		Hash:        hash,
		Source:      b.source,
		Freshness:   freshness,
	}

	return pack, nil
}

// deriveBudgets fills Remaining, Utilization, and Status for each budget.
func deriveBudgets(in []Budget) []Budget {
	out := make([]Budget, len(in))
	for i, bud := range in {
		bud.Remaining = bud.Limit.Sub(bud.Spent)
		if bud.Limit.IsPositive() {
			bud.Utilization = bud.Spent.Div(bud.Limit).Round(4)
		}
		switch {
		case bud.Spent.GreaterThan(bud.Limit):
			bud.Status = BudgetExceeded
		case bud.Limit.IsPositive() && bud.Utilization.InexactFloat64() > 0.85:
			bud.Status = BudgetAtRisk
		default:
			bud.Status = BudgetOnTrack
		}
		out[i] = bud
	}
	return out
}

// deriveGoals fills Progress, Remaining, and Status for each goal.
func deriveGoals(in []Goal, now time.Time) []Goal {
	out := make([]Goal, len(in))
	for i, g := range in {
		g.Remaining = g.TargetAmount.Sub(g.CurrentAmount)
		if g.TargetAmount.IsPositive() {
			g.Progress = g.CurrentAmount.Div(g.TargetAmount).Round(4)
		}
		switch {
		case g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount):
			g.Status = GoalCompleted
		case !g.Deadline.IsZero() && behindSchedule(g, now):
			g.Status = GoalBehind
		default:
			g.Status = GoalActive
		}
		out[i] = g
	}
	return out
}

// behindSchedule reports whether goal progress lags the elapsed fraction
// of the time remaining to the deadline. A goal with no history baseline
// is compared linearly over the year preceding its deadline.
func behindSchedule(g Goal, now time.Time) bool {
	start := g.Deadline.AddDate(-1, 0, 0)
	if !now.After(start) || !g.Deadline.After(start) {
		return false
	}
	elapsed := now.Sub(start).Seconds() / g.Deadline.Sub(start).Seconds()
	if elapsed > 1 {
		elapsed = 1
	}
	return g.Progress.InexactFloat64() < elapsed-0.1
}

// containsFold reports whether s contains substr, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
