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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider returns fixed raw data for builder tests.
type stubProvider struct {
	raw *RawData
	err error
}

func (p *stubProvider) Fetch(ctx context.Context, userID string, window TimeWindow) (*RawData, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.raw, nil
}

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func testWindow() TimeWindow {
	return TimeWindow{
		Start:  time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		TZ:     "America/New_York",
		Period: "month",
	}
}

func testRaw() *RawData {
	return &RawData{
		Balances: []Balance{
			{AccountID: "a1", Name: "Checking", Type: "depository", Amount: d("2450.10"), Currency: "USD"},
		},
		Budgets: []Budget{
			{ID: "b1", Name: "Groceries", Period: "month", Spent: d("300"), Limit: d("500")},
			{ID: "b2", Name: "Dining", Period: "month", Spent: d("190"), Limit: d("200")},
		},
		Goals: []Goal{
			{ID: "g1", Name: "Emergency fund", TargetAmount: d("5000"), CurrentAmount: d("5000")},
		},
		Patterns: SpendingPatterns{
			TotalSpent:   d("490"),
			AverageDaily: d("16.33"),
			Trend:        "flat",
		},
		Profile: UserProfile{MonthlyIncome: d("4200"), RiskProfile: "conservative"},
	}
}

func TestBuilderDerivesBudgetFields(t *testing.T) {
	b := NewBuilder(&stubProvider{raw: testRaw()}, "ledger-api")

	pack, err := b.Build(context.Background(), "u1", testWindow())
	require.NoError(t, err)
	require.Len(t, pack.Budgets, 2)

	groceries := pack.Budgets[0]
	assert.True(t, groceries.Remaining.Equal(d("200")), "remaining = limit - spent")
	assert.True(t, groceries.Utilization.Equal(d("0.6")), "utilization = spent/limit, got %s", groceries.Utilization)
	assert.Equal(t, BudgetOnTrack, groceries.Status)

	dining := pack.Budgets[1]
	assert.Equal(t, BudgetAtRisk, dining.Status, "95%% utilization is at risk")
}

func TestBuilderDerivesGoalFields(t *testing.T) {
	b := NewBuilder(&stubProvider{raw: testRaw()}, "ledger-api")

	pack, err := b.Build(context.Background(), "u1", testWindow())
	require.NoError(t, err)
	require.Len(t, pack.Goals, 1)

	g := pack.Goals[0]
	assert.Equal(t, GoalCompleted, g.Status)
	assert.True(t, g.Progress.Equal(d("1")))
	assert.True(t, g.Remaining.IsZero())
}

func TestBuilderStampsMetadata(t *testing.T) {
	b := NewBuilder(&stubProvider{raw: testRaw()}, "ledger-api")

	pack, err := b.Build(context.Background(), "u1", testWindow())
	require.NoError(t, err)

	assert.Equal(t, DataVersion, pack.Meta.DataVersion)
	assert.Equal(t, "ledger-api", pack.Meta.Source)
	assert.NotEmpty(t, pack.Meta.Hash)
	assert.False(t, pack.Meta.GeneratedAt.IsZero())

	ok, err := VerifyFingerprint(pack)
	require.NoError(t, err)
	assert.True(t, ok, "freshly built pack must verify")
}

func TestFingerprintDetectsMutation(t *testing.T) {
	b := NewBuilder(&stubProvider{raw: testRaw()}, "ledger-api")
	pack, err := b.Build(context.Background(), "u1", testWindow())
	require.NoError(t, err)

	pack.Budgets[0].Spent = d("999")

	ok, err := VerifyFingerprint(pack)
	require.NoError(t, err)
	assert.False(t, ok, "mutated pack must fail verification")
}

func TestFingerprintIsDeterministic(t *testing.T) {
	b := NewBuilder(&stubProvider{raw: testRaw()}, "ledger-api")
	pack, err := b.Build(context.Background(), "u1", testWindow())
	require.NoError(t, err)

	h1, err := Fingerprint(pack)
	require.NoError(t, err)
	h2, err := Fingerprint(pack)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestBudgetByName(t *testing.T) {
	b := NewBuilder(&stubProvider{raw: testRaw()}, "ledger-api")
	pack, err := b.Build(context.Background(), "u1", testWindow())
	require.NoError(t, err)

	assert.NotNil(t, pack.BudgetByName("grocery"), "substring should resolve")
	assert.Nil(t, pack.BudgetByName("vacation"))
	if got := pack.BudgetByName("Groceries"); assert.NotNil(t, got) {
		assert.Equal(t, "b1", got.ID)
	}
}

func TestTotals(t *testing.T) {
	b := NewBuilder(&stubProvider{raw: testRaw()}, "ledger-api")
	pack, err := b.Build(context.Background(), "u1", testWindow())
	require.NoError(t, err)

	assert.True(t, pack.TotalBudgetLimit().Equal(d("700")))
	assert.True(t, pack.TotalBudgetSpent().Equal(d("490")))
}

func TestArchiveRoundTrip(t *testing.T) {
	archive, err := OpenArchive(ArchiveConfig{InMemory: true})
	require.NoError(t, err)
	defer archive.Close()

	b := NewBuilder(&stubProvider{raw: testRaw()}, "ledger-api")
	pack, err := b.Build(context.Background(), "u1", testWindow())
	require.NoError(t, err)

	require.NoError(t, archive.Put(pack))

	got, err := archive.Get(pack.Meta.Hash)
	require.NoError(t, err)
	assert.Equal(t, pack.UserID, got.UserID)
	assert.Equal(t, pack.Meta.Hash, got.Meta.Hash)
	assert.True(t, got.Budgets[0].Limit.Equal(d("500")))
}

func TestArchiveUnknownHash(t *testing.T) {
	archive, err := OpenArchive(ArchiveConfig{InMemory: true})
	require.NoError(t, err)
	defer archive.Close()

	_, err = archive.Get("deadbeef")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestArchiveRejectsUnhashedPack(t *testing.T) {
	archive, err := OpenArchive(ArchiveConfig{InMemory: true})
	require.NoError(t, err)
	defer archive.Close()

	err = archive.Put(&FactPack{UserID: "u1"})
	assert.Error(t, err)
}
