// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assurance

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all assurance routes with the router.
//
// Description:
//
//	Registers all /v1/assure/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET  /v1/assure/health - Fleet health summary
//	GET  /v1/assure/services/:name/stats - Breaker counters and scores
//	GET  /v1/assure/services/:name/metrics - Metric history by time range
//	GET  /v1/assure/alerts - Unresolved alerts
//	POST /v1/assure/alerts/:id/resolve - Mark an alert resolved
//	POST /v1/assure/validate - Dry-run critic validation
//	GET  /v1/assure/vocabulary - Active guardrail pattern sets
//
// Example:
//
//	svc, _ := assurance.NewService(cfg)
//	handlers := assurance.NewHandlers(svc, nil)
//
//	v1 := router.Group("/v1")
//	assurance.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	assure := rg.Group("/assure")
	{
		// Fleet and per-service observability
		assure.GET("/health", handlers.HandleHealth)
		assure.GET("/services/:name/stats", handlers.HandleServiceStats)
		assure.GET("/services/:name/metrics", handlers.HandleServiceMetrics)

		// Alert lifecycle
		assure.GET("/alerts", handlers.HandleAlerts)
		assure.POST("/alerts/:id/resolve", handlers.HandleResolveAlert)

		// Offline answer review
		assure.POST("/validate", handlers.HandleValidate)
		assure.GET("/vocabulary", handlers.HandleVocabulary)
	}
}
