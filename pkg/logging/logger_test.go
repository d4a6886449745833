// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestNewWithFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "assurance",
		Quiet:   true,
	})

	logger.Info("breaker tripped", "service_name", "chat-backend", "failures", 5)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading log dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "assurance_") {
		t.Errorf("log file %q missing service prefix", entries[0].Name())
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log file is not JSON: %v", err)
	}
	if entry["msg"] != "breaker tripped" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["service"] != "assurance" {
		t.Errorf("expected service attribute, got %v", entry["service"])
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "assurance",
		Quiet:   true,
	})

	logger.Debug("should be filtered")
	logger.Info("should be filtered too")
	logger.Warn("kept")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	got := strings.TrimSpace(string(data))
	if got == "" {
		t.Fatal("expected one entry at Warn level, log file is empty")
	}
	if n := len(strings.Split(got, "\n")); n != 1 {
		t.Errorf("expected exactly 1 entry at Warn level, got %d: %s", n, data)
	}
}

func TestWithAddsAttributes(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		LogDir:  dir,
		Service: "assurance",
		Quiet:   true,
	})

	child := logger.With("turn_id", "t-123")
	child.Info("validated")
	logger.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) == 0 {
		t.Fatal("no log file written")
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log file is not JSON: %v", err)
	}
	if entry["turn_id"] != "t-123" {
		t.Errorf("child attribute missing: %v", entry)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}
