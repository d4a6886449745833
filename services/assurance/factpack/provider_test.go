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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderFetch(t *testing.T) {
	var gotPath, gotStart string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotStart = r.URL.Query().Get("start")
		_ = json.NewEncoder(w).Encode(RawData{
			Budgets: []Budget{{Name: "Groceries", Spent: d("300"), Limit: d("500")}},
		})
	}))
	defer backend.Close()

	p := NewHTTPProvider(backend.URL, nil)
	window := TimeWindow{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := p.Fetch(context.Background(), "user-1", window)
	require.NoError(t, err)

	assert.Equal(t, "/users/user-1/figures", gotPath)
	assert.Equal(t, "2026-08-01T00:00:00Z", gotStart)
	require.Len(t, raw.Budgets, 1)
	assert.Equal(t, "Groceries", raw.Budgets[0].Name)
}

func TestHTTPProviderNonOKStatus(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer backend.Close()

	p := NewHTTPProvider(backend.URL, nil)
	_, err := p.Fetch(context.Background(), "user-1", TimeWindow{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPProviderFeedsBuilder(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(RawData{
			Budgets: []Budget{{Name: "Dining", Spent: d("190"), Limit: d("200")}},
		})
	}))
	defer backend.Close()

	b := NewBuilder(NewHTTPProvider(backend.URL, nil), "ledger-api")
	pack, err := b.Build(context.Background(), "user-1", TimeWindow{})
	require.NoError(t, err)

	require.Len(t, pack.Budgets, 1)
	assert.True(t, pack.Budgets[0].Remaining.Equal(d("10")))
	assert.NotEmpty(t, pack.Meta.Hash)
}