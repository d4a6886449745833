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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for validation operations.
var meter = otel.Meter("mintwell.assurance.critic")

var (
	validationsTotal    metric.Int64Counter
	escalationsTotal    metric.Int64Counter
	guardFailuresTotal  metric.Int64Counter
	hallucinationsTotal metric.Int64Counter
	validationDuration  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		validationsTotal, err = meter.Int64Counter(
			"critic_validations_total",
			metric.WithDescription("Total answer validations by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		escalationsTotal, err = meter.Int64Counter(
			"critic_escalations_total",
			metric.WithDescription("Total escalations by surfaced reason"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		guardFailuresTotal, err = meter.Int64Counter(
			"critic_guard_failures_total",
			metric.WithDescription("Total rule guard failures by guard name"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		hallucinationsTotal, err = meter.Int64Counter(
			"critic_hallucinations_total",
			metric.WithDescription("Total untraceable quantitative claims"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		validationDuration, err = meter.Float64Histogram(
			"critic_validation_duration_seconds",
			metric.WithDescription("Validation duration per answer"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}
