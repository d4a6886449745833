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
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintwell/mintwell/pkg/logging"
	"github.com/mintwell/mintwell/services/assurance/factpack"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testPack mirrors a typical monthly snapshot: two budgets summing to
// a 700 limit with 490 spent, and one savings goal.
func testPack() *factpack.FactPack {
	return &factpack.FactPack{
		UserID: "user-1",
		Budgets: []factpack.Budget{
			{
				ID: "b1", Name: "Groceries",
				Spent: d("300"), Limit: d("500"), Remaining: d("200"),
				Utilization: d("0.6"), Status: factpack.BudgetOnTrack,
			},
			{
				ID: "b2", Name: "Dining",
				Spent: d("190"), Limit: d("200"), Remaining: d("10"),
				Utilization: d("0.95"), Status: factpack.BudgetAtRisk,
			},
		},
		Goals: []factpack.Goal{
			{
				ID: "g1", Name: "Emergency fund",
				TargetAmount: d("5000"), CurrentAmount: d("2000"),
				Progress: d("0.4"), Remaining: d("3000"),
				Status: factpack.GoalActive,
			},
		},
		Patterns: factpack.SpendingPatterns{
			TotalSpent:   d("490"),
			AverageDaily: d("16.33"),
			Trend:        "flat",
		},
		Profile: factpack.UserProfile{MonthlyIncome: d("4200")},
	}
}

func testCritic() *Critic {
	return New(&Config{Logger: logging.New(logging.Config{Quiet: true})})
}

func validate(t *testing.T, message, query string) *ValidationResult {
	t.Helper()
	return testCritic().Validate(context.Background(), message, query, testPack())
}

func TestGroundedAnswerPasses(t *testing.T) {
	result := validate(t,
		"Your grocery budget has $200 remaining out of $500 total.",
		"How is my grocery budget doing?")

	assert.True(t, result.IsValid)
	assert.False(t, result.EscalationTriggered)
	assert.Empty(t, result.EscalationReason)
	assert.True(t, result.RuleValidation.Passed)
	assert.False(t, result.HallucinationDetected)
}

func TestClaimedTotalMismatchFailsSumGuard(t *testing.T) {
	result := validate(t, "Your total budget is $1000.", "What's my total budget?")

	assert.Equal(t, GuardSumMismatch, result.RuleValidation.GuardFailed)
	assert.False(t, result.RuleValidation.Passed)
	assert.False(t, result.NumericGuardrails.SumsConsistent)
	assert.True(t, result.EscalationTriggered)
	assert.False(t, result.IsValid)
}

func TestClaimedTotalMatchingSumPasses(t *testing.T) {
	result := validate(t, "Your total budget is $700.", "What's my total budget?")

	assert.True(t, result.NumericGuardrails.SumsConsistent)
	assert.True(t, result.IsValid)
}

func TestForbiddenPhrasingHighRisk(t *testing.T) {
	result := validate(t,
		"Guaranteed returns! Risk-free investment! Surefire profits!",
		"Tell me about this opportunity")

	assert.Equal(t, RiskHigh, result.ClaimTypes.RiskLevel)
	assert.GreaterOrEqual(t, len(result.ClaimTypes.ForbiddenClaims), 3)
	assert.True(t, result.ClaimTypes.HasForbiddenPhrasing)
	assert.Equal(t, GuardForbiddenPhrasing, result.RuleValidation.GuardFailed)
	assert.True(t, result.EscalationTriggered)
}

func TestForbiddenPhrasingRiskLevels(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    RiskLevel
	}{
		{"single match is medium", "This fund offers a guaranteed return.", RiskMedium},
		// Two matches map to none; the observed product behavior is
		// kept until the risk table is revisited.
		{"two matches fall back to none", "It's risk-free, a real sure thing.", RiskNone},
		{"clean answer", "You spent $300 on groceries.", RiskNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := validate(t, tc.message, "question")
			assert.Equal(t, tc.want, result.ClaimTypes.RiskLevel)
		})
	}
}

func TestAnyForbiddenMatchStillEscalates(t *testing.T) {
	result := validate(t, "It's risk-free, a real sure thing.", "question")

	assert.Equal(t, RiskNone, result.ClaimTypes.RiskLevel)
	assert.True(t, result.ClaimTypes.HasForbiddenPhrasing)
	assert.True(t, result.EscalationTriggered, "any match fails the guard regardless of risk level")
}

func TestNegativeAmountFailsGuard(t *testing.T) {
	result := validate(t, "You spent -$50 on dining.", "What did I spend?")

	assert.False(t, result.NumericGuardrails.AmountsNonNegative)
	assert.Equal(t, GuardNegativeAmounts, result.RuleValidation.GuardFailed)
	assert.True(t, result.EscalationTriggered)
	assert.False(t, result.IsValid)
}

func TestUntraceableNumberEscalatesAsHallucination(t *testing.T) {
	result := validate(t, "You have $999 available to spend.", "How much can I spend?")

	assert.True(t, result.HallucinationDetected)
	assert.Equal(t, ReasonHallucination, result.EscalationReason)
	assert.False(t, result.IsValid)
	assert.True(t, result.RuleValidation.Passed, "no rule guard fires on a free-standing figure")
}

func TestHallucinationReasonWinsOverAmbiguity(t *testing.T) {
	result := validate(t, "You have $999 available, maybe.", "How much can I spend?")

	assert.True(t, result.HallucinationDetected)
	assert.True(t, result.AmbiguityDetected)
	assert.Equal(t, ReasonHallucination, result.EscalationReason,
		"hallucination outranks ambiguity in the reason order")
}

func TestDerivedFiguresAreTraceable(t *testing.T) {
	// 210 = 700 limit - 490 spent, a direct derivation.
	result := validate(t, "You have $210 left across all budgets.", "How much is left?")

	assert.False(t, result.HallucinationDetected)
	assert.True(t, result.IsValid)
}

func TestTraceablePercentage(t *testing.T) {
	result := validate(t, "You've used 60% of your grocery budget.", "How is my budget?")
	assert.False(t, result.HallucinationDetected)

	result = validate(t, "You've used 87% of your grocery budget.", "How is my budget?")
	assert.True(t, result.HallucinationDetected)
}

func TestHedgingInvalidatesAnswer(t *testing.T) {
	result := validate(t, "It depends on your spending habits.", "Can I afford this?")

	assert.True(t, result.AmbiguityDetected)
	assert.Equal(t, ReasonAmbiguity, result.EscalationReason)
	assert.False(t, result.IsValid)
}

func TestStackedConditionalsCountAsHedging(t *testing.T) {
	result := validate(t,
		"If you skip dining out, you could save more this month.",
		"Can I save more?")

	assert.True(t, result.AmbiguityDetected)
	assert.False(t, result.IsValid)
}

func TestSingleConditionalIsNotHedging(t *testing.T) {
	result := validate(t, "You could reduce your dining spend.", "Any advice?")
	assert.False(t, result.AmbiguityDetected)
}

func TestStrategicQueryEscalatesValidAnswer(t *testing.T) {
	result := validate(t,
		"You spent $300 on groceries this month.",
		"Should I invest my savings in stocks?")

	assert.True(t, result.IsValid, "a stakes match never invalidates a correct answer")
	assert.True(t, result.EscalationTriggered)
	assert.Equal(t, ReasonStrategic, result.EscalationReason)
}

func TestHighStakesQueryOutranksStrategic(t *testing.T) {
	result := validate(t,
		"You spent $300 on groceries this month.",
		"Should I refinance my mortgage and restructure my portfolio?")

	assert.True(t, result.EscalationTriggered)
	assert.Equal(t, ReasonHighStakes, result.EscalationReason)
}

func TestRuleFailureOutranksStakes(t *testing.T) {
	result := validate(t,
		"Your total budget is $1000.",
		"Should I invest in stocks?")

	assert.Equal(t, "Rule validation failed: numeric_sum_mismatch", result.EscalationReason)
}

func TestCeilingAboveBudgetLimitFailsGuard(t *testing.T) {
	result := validate(t,
		"You can spend up to $600 on groceries.",
		"How much can I spend on groceries?")

	assert.False(t, result.NumericGuardrails.BudgetLimitsRespected)
	assert.Equal(t, GuardBudgetLimitExceeded, result.RuleValidation.GuardFailed)
	assert.True(t, result.EscalationTriggered)
}

func TestCeilingWithinBudgetLimitPasses(t *testing.T) {
	result := validate(t,
		"You can spend up to $500 on groceries.",
		"How much can I spend on groceries?")

	assert.True(t, result.NumericGuardrails.BudgetLimitsRespected)
	assert.True(t, result.IsValid)
}

func TestValidateDoesNotMutatePack(t *testing.T) {
	pack := testPack()
	fp, err := factpack.Fingerprint(pack)
	require.NoError(t, err)
	pack.Meta.Hash = fp

	c := testCritic()
	c.Validate(context.Background(), "Your total budget is $1000, maybe -$50.", "invest?", pack)

	ok, err := factpack.VerifyFingerprint(pack)
	require.NoError(t, err)
	assert.True(t, ok, "pack mutated during validation")
}

func TestConcurrentValidation(t *testing.T) {
	c := testCritic()
	pack := testPack()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				result := c.Validate(context.Background(),
					"Your grocery budget has $200 remaining out of $500 total.",
					"How is my grocery budget?", pack)
				if !result.IsValid {
					t.Error("grounded answer flagged invalid under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSwapVocabulary(t *testing.T) {
	c := testCritic()

	before := c.Validate(context.Background(), "A totally moonproof plan.", "question", testPack())
	assert.True(t, before.RuleValidation.Passed)

	vocab := DefaultVocabulary()
	vocab.ForbiddenPhrases = append(vocab.ForbiddenPhrases, `moonproof`)
	require.NoError(t, vocab.Compile())
	c.SwapVocabulary(vocab)

	after := c.Validate(context.Background(), "A totally moonproof plan.", "question", testPack())
	assert.Equal(t, GuardForbiddenPhrasing, after.RuleValidation.GuardFailed)
}

func TestNilPackSkipsFactGuards(t *testing.T) {
	c := testCritic()
	result := c.Validate(context.Background(), "Keep up the good work.", "How am I doing?", nil)

	assert.True(t, result.IsValid)
	assert.False(t, result.EscalationTriggered)
}
