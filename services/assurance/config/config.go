// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the assurance service
// configuration from YAML, with hot reload of the critic vocabulary.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mintwell/mintwell/services/assurance/critic"
)

// ServerConfig configures the ops HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// BreakerConfig configures the per-service circuit breakers.
type BreakerConfig struct {
	TripThreshold   int `yaml:"trip_threshold" validate:"min=1"`
	WindowSeconds   int `yaml:"window_seconds" validate:"min=1"`
	CooldownSeconds int `yaml:"cooldown_seconds" validate:"min=1"`
}

// MonitorConfig configures metrics aggregation and health checking.
type MonitorConfig struct {
	// Services is the fixed set contributing to overall health.
	Services []string `yaml:"services" validate:"min=1,dive,required"`

	// HealthSchedule is a cron expression for the probe sweep.
	HealthSchedule string `yaml:"health_schedule"`

	ProbesPerSecond float64 `yaml:"probes_per_second" validate:"min=0"`

	// RetentionHours bounds how long metric history is kept before
	// ClearOldData prunes it.
	RetentionHours int `yaml:"retention_hours" validate:"min=1"`
}

// ArchiveConfig configures the FactPack archive.
type ArchiveConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	TTLHours int    `yaml:"ttl_hours" validate:"min=1"`
}

// LLMConfig configures the backend chat model adapter.
type LLMConfig struct {
	Model          string `yaml:"model" validate:"required"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=1"`
}

// ProviderConfig configures the ledger API the snapshot builder
// fetches raw figures from.
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=1"`
}

// CriticConfig holds the hot-reloadable guardrail vocabulary. Empty
// lists fall back to the critic's built-in patterns.
type CriticConfig struct {
	ForbiddenPhrases   []string `yaml:"forbidden_phrases"`
	HedgingWords       []string `yaml:"hedging_words"`
	ConditionalMarkers []string `yaml:"conditional_markers"`
	HighStakesPatterns []string `yaml:"high_stakes_patterns"`
	StrategicPatterns  []string `yaml:"strategic_patterns"`
}

// Config is the full assurance service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Archive  ArchiveConfig  `yaml:"archive"`
	LLM      LLMConfig      `yaml:"llm"`
	Provider ProviderConfig `yaml:"provider"`
	Critic   CriticConfig   `yaml:"critic"`
}

// Default returns a configuration that passes validation without any
// file present.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8095},
		Logging: LoggingConfig{Level: "info"},
		Breaker: BreakerConfig{
			TripThreshold:   5,
			WindowSeconds:   60,
			CooldownSeconds: 30,
		},
		Monitor: MonitorConfig{
			Services:        []string{"chat-backend"},
			HealthSchedule:  "@every 30s",
			ProbesPerSecond: 5,
			RetentionHours:  24,
		},
		Archive: ArchiveConfig{InMemory: true, TTLHours: 720},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 30,
		},
		Provider: ProviderConfig{
			BaseURL:        "http://127.0.0.1:8090",
			TimeoutSeconds: 10,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Vocabulary converts the critic section into a compiled vocabulary.
// Empty lists keep the built-in defaults for that list.
func (c *Config) Vocabulary() (*critic.Vocabulary, error) {
	v := critic.DefaultVocabulary()
	merged := *v
	if len(c.Critic.ForbiddenPhrases) > 0 {
		merged.ForbiddenPhrases = c.Critic.ForbiddenPhrases
	}
	if len(c.Critic.HedgingWords) > 0 {
		merged.HedgingWords = c.Critic.HedgingWords
	}
	if len(c.Critic.ConditionalMarkers) > 0 {
		merged.ConditionalMarkers = c.Critic.ConditionalMarkers
	}
	if len(c.Critic.HighStakesPatterns) > 0 {
		merged.HighStakesPatterns = c.Critic.HighStakesPatterns
	}
	if len(c.Critic.StrategicPatterns) > 0 {
		merged.StrategicPatterns = c.Critic.StrategicPatterns
	}
	if err := merged.Compile(); err != nil {
		return nil, fmt.Errorf("critic vocabulary: %w", err)
	}
	return &merged, nil
}

// BreakerWindow returns the rolling window as a duration.
func (c *Config) BreakerWindow() time.Duration {
	return time.Duration(c.Breaker.WindowSeconds) * time.Second
}

// BreakerCooldown returns the cooldown as a duration.
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Breaker.CooldownSeconds) * time.Second
}

// LLMTimeout returns the per-call timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ProviderTimeout returns the ledger API timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}
