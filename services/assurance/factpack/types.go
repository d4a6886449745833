// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package factpack builds immutable ground-truth snapshots of a user's
// financial data for a single chat turn.
//
// A FactPack is the trusted reference the critic validates AI-generated
// answers against: every numeric claim in an answer must be traceable to a
// field value in the turn's FactPack (or a direct derivation of one). The
// consistency guarantees of that validation depend on the snapshot being
// hashed, timestamped, and never mutated after construction.
package factpack

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeWindow bounds the data included in a snapshot.
type TimeWindow struct {
	// Start is the inclusive lower bound of the window.
	Start time.Time `json:"start"`

	// End is the exclusive upper bound of the window.
	End time.Time `json:"end"`

	// TZ is the IANA timezone the window was computed in.
	TZ string `json:"tz"`

	// Period is the human period label ("month", "week", "quarter").
	Period string `json:"period"`
}

// BudgetStatus describes where a budget stands inside its period.
type BudgetStatus string

const (
	// BudgetOnTrack means utilization is proportionate to elapsed time.
	BudgetOnTrack BudgetStatus = "on_track"

	// BudgetAtRisk means utilization is running ahead of the period.
	BudgetAtRisk BudgetStatus = "at_risk"

	// BudgetExceeded means spending has passed the limit.
	BudgetExceeded BudgetStatus = "exceeded"
)

// Balance is the balance of one linked account at snapshot time.
type Balance struct {
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// Budget is one spending budget with derived utilization figures.
type Budget struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Period string `json:"period"`

	// Spent is the amount consumed so far in the period.
	Spent decimal.Decimal `json:"spent"`

	// Limit is the configured ceiling for the period.
	Limit decimal.Decimal `json:"limit"`

	// Remaining is Limit - Spent, floored at the builder's discretion
	// (a budget can be overspent, so Remaining may be negative).
	Remaining decimal.Decimal `json:"remaining"`

	// Utilization is Spent/Limit in [0,1+); zero when Limit is zero.
	Utilization decimal.Decimal `json:"utilization"`

	Status BudgetStatus `json:"status"`

	// TopCategories are the highest-spend categories inside this budget.
	TopCategories []CategorySpend `json:"top_categories,omitempty"`
}

// CategorySpend is per-category spend used in budgets and patterns.
type CategorySpend struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// GoalStatus describes progress toward a savings goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalBehind    GoalStatus = "behind"
	GoalCompleted GoalStatus = "completed"
)

// Goal is one savings goal with derived progress figures.
type Goal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`

	// Progress is CurrentAmount/TargetAmount in [0,1].
	Progress decimal.Decimal `json:"progress"`

	// Remaining is TargetAmount - CurrentAmount.
	Remaining decimal.Decimal `json:"remaining"`

	Deadline time.Time  `json:"deadline"`
	Status   GoalStatus `json:"status"`
}

// RecurringItem is a detected recurring charge or deposit.
type RecurringItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Cadence   string          `json:"cadence"`
	NextDue   time.Time       `json:"next_due"`
	Direction string          `json:"direction"`
}

// Transaction is one recent transaction included for reference.
type Transaction struct {
	ID       string          `json:"id"`
	Date     time.Time       `json:"date"`
	Merchant string          `json:"merchant"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// SpendingPatterns summarizes spend behavior over the window.
type SpendingPatterns struct {
	TotalSpent    decimal.Decimal `json:"total_spent"`
	AverageDaily  decimal.Decimal `json:"average_daily"`
	TopCategories []CategorySpend `json:"top_categories,omitempty"`

	// Trend is "up", "down", or "flat" versus the prior window.
	Trend string `json:"trend"`

	// Comparison is the percent change versus the prior window.
	Comparison decimal.Decimal `json:"comparison"`
}

// UserProfile carries the profile fields the critic may reference.
type UserProfile struct {
	MonthlyIncome decimal.Decimal   `json:"monthly_income"`
	FinancialGoal string            `json:"financial_goal"`
	RiskProfile   string            `json:"risk_profile"`
	Preferences   map[string]string `json:"preferences,omitempty"`
}

// Metadata identifies and fingerprints a snapshot.
type Metadata struct {
	// GeneratedAt is when the snapshot was built.
	GeneratedAt time.Time `json:"generated_at"`

	// DataVersion is the schema version of the snapshot layout.
	DataVersion string `json:"data_version"`

	// Hash is the SHA-256 of the canonical JSON encoding of the pack
	// body (everything except Metadata itself).
	Hash string `json:"hash"`

	// Source names the upstream data provider.
	Source string `json:"source"`

	// Freshness is the age of the oldest upstream figure at build time.
	Freshness time.Duration `json:"freshness"`
}

// FactPack is the immutable ground-truth snapshot for one chat turn.
//
// Invariant: once Build returns a pack, no field is mutated again. The
// critic and the archive both rely on Hash staying truthful; treat the
// struct as read-only everywhere downstream.
type FactPack struct {
	UserID             string           `json:"user_id"`
	Window             TimeWindow       `json:"time_window"`
	Balances           []Balance        `json:"balances,omitempty"`
	Budgets            []Budget         `json:"budgets,omitempty"`
	Goals              []Goal           `json:"goals,omitempty"`
	Recurring          []RecurringItem  `json:"recurring,omitempty"`
	RecentTransactions []Transaction    `json:"recent_transactions,omitempty"`
	Patterns           SpendingPatterns `json:"spending_patterns"`
	Profile            UserProfile      `json:"user_profile"`
	Meta               Metadata         `json:"metadata"`
}

// BudgetByName returns the budget whose name contains the given text
// (case-insensitive), or nil when no budget matches.
func (p *FactPack) BudgetByName(name string) *Budget {
	for i := range p.Budgets {
		if containsFold(p.Budgets[i].Name, name) || containsFold(name, p.Budgets[i].Name) {
			return &p.Budgets[i]
		}
	}
	return nil
}

// TotalBudgetLimit returns the sum of all budget limits.
func (p *FactPack) TotalBudgetLimit() decimal.Decimal {
	total := decimal.Zero
	for _, b := range p.Budgets {
		total = total.Add(b.Limit)
	}
	return total
}

// TotalBudgetSpent returns the sum of all budget spent amounts.
func (p *FactPack) TotalBudgetSpent() decimal.Decimal {
	total := decimal.Zero
	for _, b := range p.Budgets {
		total = total.Add(b.Spent)
	}
	return total
}
