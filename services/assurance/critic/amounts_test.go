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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAmounts(t *testing.T) {
	amounts := ExtractAmounts("You spent $1,234.56 and saved $1000, trend -5% with 60% used, -$50 refunded.")

	var money, percents []string
	for _, a := range amounts {
		if a.Percent {
			percents = append(percents, a.Value.String())
		} else {
			money = append(money, a.Value.String())
		}
	}
	assert.Equal(t, []string{"1234.56", "1000", "-50"}, money)
	assert.Equal(t, []string{"-5", "60"}, percents)
}

func TestExtractAmountsNegativeForms(t *testing.T) {
	for _, raw := range []string{"-$50", "$-50", "$ -50"} {
		amounts := ExtractAmounts("balance " + raw + " now")
		require.Len(t, amounts, 1, raw)
		assert.True(t, amounts[0].Value.IsNegative(), raw)
	}
}

func TestExtractTotalClaims(t *testing.T) {
	cases := []struct {
		name    string
		message string
		value   string
		kind    string
	}{
		{"total before", "Your total budget is $1000 this month.", "1000", "budget"},
		{"total after", "That's $500 total for groceries.", "500", "generic"},
		{"adds up to", "Your budgets add up to $700.", "700", "generic"},
		{"total spending", "Total spending reached $490.", "490", "spent"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := ExtractTotalClaims(tc.message)
			require.Len(t, claims, 1)
			assert.Equal(t, tc.value, claims[0].Value.String())
			assert.Equal(t, tc.kind, claims[0].Kind)
		})
	}
}

func TestExtractTotalClaimsNone(t *testing.T) {
	assert.Empty(t, ExtractTotalClaims("You spent $300 on groceries."))
}

func TestExtractCeilingClaims(t *testing.T) {
	claims := ExtractCeilingClaims("You can spend up to $600 on groceries.")
	require.Len(t, claims, 1)
	assert.Equal(t, "600", claims[0].Value.String())
	assert.Equal(t, "groceries", claims[0].Category)

	claims = ExtractCeilingClaims("Stay under a cap of $700.")
	require.Len(t, claims, 1)
	assert.Equal(t, "", claims[0].Category)
}

func TestFactIndexTraceability(t *testing.T) {
	idx := NewFactIndex(testPack())

	for _, v := range []string{"300", "500", "200", "490", "700", "210", "3000", "4200"} {
		assert.True(t, idx.Traceable(d(v)), v)
	}
	assert.False(t, idx.Traceable(d("999")))
	assert.True(t, idx.Traceable(d("300.005")), "within tolerance")

	assert.True(t, idx.TraceablePercent(d("60")))
	assert.True(t, idx.TraceablePercent(d("40")), "goal progress")
	assert.False(t, idx.TraceablePercent(d("87")))
}

func TestFactIndexNilPack(t *testing.T) {
	idx := NewFactIndex(nil)
	assert.False(t, idx.Traceable(d("1")))
}
