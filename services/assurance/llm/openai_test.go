// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintwell/mintwell/pkg/logging"
)

func fakeBackend(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
			"usage": map[string]any{"total_tokens": 42},
		})
	}))
}

func testClient(baseURL string) *Client {
	return New(Config{
		Model:   "test-model",
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, logging.New(logging.Config{Quiet: true}))
}

func TestInvokeReturnsAnswer(t *testing.T) {
	server := fakeBackend(t, "Your grocery budget has $200 remaining.")
	defer server.Close()

	resp, err := testClient(server.URL).Invoke(context.Background(), Request{
		Query: "How is my grocery budget?",
		Facts: `{"budgets":[{"name":"Groceries","remaining":"200"}]}`,
	})
	require.NoError(t, err)

	assert.Equal(t, "Your grocery budget has $200 remaining.", resp.Text)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 42, resp.TokensUsed)
}

func TestInvokeEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test-model","choices":[]}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Invoke(context.Background(), Request{Query: "hello"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestInvokeBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Invoke(context.Background(), Request{Query: "hello"})
	assert.Error(t, err)
}
