// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package breaker

import "sync"

// Registry holds one circuit breaker per named backend service.
//
// The registry lock only guards the map; counter mutation happens under
// each breaker's own lock, so traffic to one service never serializes
// against another.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	config   Config
}

// NewRegistry creates an empty registry using config for new breakers.
func NewRegistry(config Config) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
	}
}

// Get returns the breaker for a service, creating it on first use.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Get(serviceName string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[serviceName]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[serviceName]; ok {
		return cb
	}
	cb = New(serviceName, r.config)
	r.breakers[serviceName] = cb
	return cb
}

// Stats returns the stats copy for one service.
//
// Outputs:
//
//	Stats - The stats; zero value when the service is unknown.
//	bool - False when no breaker exists for the service.
func (r *Registry) Stats(serviceName string) (Stats, bool) {
	r.mu.RLock()
	cb, ok := r.breakers[serviceName]
	r.mu.RUnlock()
	if !ok {
		return Stats{}, false
	}
	return cb.Stats(), true
}

// Services returns the names of all registered services.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}
