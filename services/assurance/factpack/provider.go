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
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient interface allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProvider fetches raw financial figures from the ledger API.
//
// Thread Safety: Safe for concurrent use.
type HTTPProvider struct {
	baseURL string
	client  HTTPClient
}

// NewHTTPProvider creates a provider against the ledger API base URL.
//
// Inputs:
//
//	baseURL - API root, e.g. "http://ledger.internal:8090".
//	client - HTTP client. Nil uses a 10 second timeout default.
//
// Outputs:
//
//	*HTTPProvider - Ready to fetch.
func NewHTTPProvider(baseURL string, client HTTPClient) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{baseURL: baseURL, client: client}
}

// Fetch retrieves the raw figures for one user and window.
//
// The ledger API contract is GET /users/{id}/figures?start=...&end=...
// returning a RawData JSON body.
func (p *HTTPProvider) Fetch(ctx context.Context, userID string, window TimeWindow) (*RawData, error) {
	endpoint := fmt.Sprintf("%s/users/%s/figures?start=%s&end=%s",
		p.baseURL,
		url.PathEscape(userID),
		url.QueryEscape(window.Start.Format(time.RFC3339)),
		url.QueryEscape(window.End.Format(time.RFC3339)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ledger API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ledger API returned status %s", resp.Status)
	}

	var raw RawData
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode ledger JSON: %w", err)
	}
	return &raw, nil
}
