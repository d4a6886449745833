// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command assure starts the Mintwell assurance server.
//
// The assurance server sits between the chat backend and the user:
// every answer passes through a circuit breaker, a monitoring layer,
// and the critic guardrails before delivery.
//
// Usage:
//
//	go run ./cmd/assure serve
//	go run ./cmd/assure serve --config /etc/mintwell/assure.yaml --port 9095
//
// Example requests:
//
//	# Fleet health
//	curl http://localhost:8095/v1/assure/health
//
//	# Breaker stats for the chat backend
//	curl http://localhost:8095/v1/assure/services/chat-backend/stats
//
//	# Dry-run validation of a candidate answer
//	curl -X POST http://localhost:8095/v1/assure/validate \
//	  -H "Content-Type: application/json" \
//	  -d '{"message": "Your total budget is $1000."}'
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mintwell/mintwell/pkg/logging"
	"github.com/mintwell/mintwell/services/assurance"
	"github.com/mintwell/mintwell/services/assurance/breaker"
	"github.com/mintwell/mintwell/services/assurance/config"
	"github.com/mintwell/mintwell/services/assurance/critic"
	"github.com/mintwell/mintwell/services/assurance/factpack"
	"github.com/mintwell/mintwell/services/assurance/llm"
	"github.com/mintwell/mintwell/services/assurance/monitor"
	"github.com/mintwell/mintwell/services/assurance/telemetry"
)

var (
	configPath string
	portFlag   int
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "assure",
		Short: "Mintwell answer assurance server",
		Long: `Assure runs the reliability layer for Mintwell's AI answers:
circuit breaking around the chat backend, monitoring and alerting,
and critic guardrails that validate every answer against the user's
own financial snapshot before it is shown.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the assurance HTTP server",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (defaults apply when omitted)")
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Override the configured listen port")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// pingChecker probes the chat backend for the health check sweep.
type pingChecker struct {
	client *llm.Client
}

func (p *pingChecker) Check(ctx context.Context, _ string) (bool, time.Duration, error) {
	elapsed, err := p.client.Ping(ctx)
	return err == nil, elapsed, err
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}

	log := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "assurance",
		JSON:    cfg.Logging.JSON,
	})
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	vocab, err := cfg.Vocabulary()
	if err != nil {
		return err
	}
	cr := critic.New(&critic.Config{Vocabulary: vocab, Logger: log})

	backend := llm.New(llm.Config{
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  os.Getenv(cfg.LLM.APIKeyEnv),
		Timeout: cfg.LLMTimeout(),
	}, log)

	registry := breaker.NewRegistry(breaker.Config{
		TripThreshold: cfg.Breaker.TripThreshold,
		Window:        cfg.BreakerWindow(),
		Cooldown:      cfg.BreakerCooldown(),
	})

	mon := monitor.New(monitor.Config{
		Services: cfg.Monitor.Services,
		Checker:  &pingChecker{client: backend},
		Logger:   log,
	})

	scheduler, err := monitor.NewScheduler(mon, monitor.SchedulerConfig{
		Schedule:        cfg.Monitor.HealthSchedule,
		ProbesPerSecond: cfg.Monitor.ProbesPerSecond,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("health scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	archive, err := factpack.OpenArchive(factpack.ArchiveConfig{
		Path:     cfg.Archive.Path,
		InMemory: cfg.Archive.InMemory,
		TTL:      time.Duration(cfg.Archive.TTLHours) * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("snapshot archive: %w", err)
	}
	defer archive.Close()

	provider := factpack.NewHTTPProvider(cfg.Provider.BaseURL,
		&http.Client{Timeout: cfg.ProviderTimeout()})
	builder := factpack.NewBuilder(provider, "ledger-api")

	svc, err := assurance.NewService(assurance.ServiceConfig{
		Invoker:   backend,
		Facts:     builder,
		Escalator: assurance.NewTemplateEscalator(),
		Critic:    cr,
		Breakers:  registry,
		Monitor:   mon,
		Archive:   archive,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	// Hot reload of the guardrail vocabulary on config file changes.
	if configPath != "" {
		watcher, err := config.Watch(configPath, log, func(next *config.Config) {
			v, err := next.Vocabulary()
			if err != nil {
				log.Warn("Reloaded config has bad vocabulary, keeping current", "error", err)
				return
			}
			cr.SwapVocabulary(v)
			log.Info("Critic vocabulary reloaded")
		})
		if err != nil {
			log.Warn("Config watch disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	assurance.RegisterRoutes(v1, assurance.NewHandlers(svc, log))
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Assurance server listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	// Periodic retention sweep for monitoring history.
	retention := time.Duration(cfg.Monitor.RetentionHours) * time.Hour
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mon.ClearOldData(retention)
			}
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
