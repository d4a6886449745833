// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestInitNilContext(t *testing.T) {
	//nolint:staticcheck // passing nil deliberately
	_, err := Init(nil, DefaultConfig())
	if !errors.Is(err, ErrNilContext) {
		t.Errorf("expected ErrNilContext, got %v", err)
	}
}

func TestInitNoneExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricExporter = "none"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestInitStdoutExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricExporter = "stdout"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestInitUnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricExporter = "graphite"

	_, err := Init(context.Background(), cfg)
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("expected ErrUnknownExporter, got %v", err)
	}
}

func TestDefaultConfigEnvOverride(t *testing.T) {
	t.Setenv("OTEL_METRICS_EXPORTER", "stdout")
	if got := DefaultConfig().MetricExporter; got != "stdout" {
		t.Errorf("expected env override, got %q", got)
	}
}
