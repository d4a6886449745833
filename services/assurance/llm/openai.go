// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm adapts the chat backend behind an OpenAI-compatible API.
// The model is an untrusted black box: nothing it returns is shown to
// a user without passing the critic first.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mintwell/mintwell/pkg/logging"
)

// ErrEmptyCompletion indicates the backend returned no choices.
var ErrEmptyCompletion = errors.New("llm: empty completion")

const systemPrompt = `You are a personal finance assistant. Answer only from the
user's financial snapshot provided below. State figures exactly as given;
never invent numbers, never promise investment outcomes.`

// Config configures the backend client.
type Config struct {
	// Model is the chat model name.
	Model string

	// BaseURL overrides the API endpoint, for self-hosted gateways.
	BaseURL string

	// APIKey authenticates against the endpoint.
	APIKey string

	// Timeout bounds each completion call.
	Timeout time.Duration
}

// Request is one chat turn sent to the backend.
type Request struct {
	// Query is the user's question.
	Query string

	// Facts is the serialized snapshot the model must ground on.
	Facts string
}

// Response is the backend's answer.
type Response struct {
	// Text is the candidate answer, unvalidated.
	Text string

	// Model echoes which model produced the answer.
	Model string

	// TokensUsed is total prompt plus completion tokens.
	TokensUsed int
}

// Client calls an OpenAI-compatible chat completion endpoint.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     *logging.Logger
}

// New creates a backend client. A nil logger uses the package default.
func New(cfg Config, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Default()
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   cfg.Model,
		timeout: timeout,
		log:     log,
	}
}

// Invoke sends one chat turn and returns the raw candidate answer.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt + "\n\nSnapshot:\n" + req.Facts,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Query,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	c.log.Debug("completion received",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens)

	return &Response{
		Text:       resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// Ping probes the models endpoint, for health checks. Returns how long
// the probe took.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	if _, err := c.api.ListModels(ctx); err != nil {
		return time.Since(start), fmt.Errorf("list models: %w", err)
	}
	return time.Since(start), nil
}
