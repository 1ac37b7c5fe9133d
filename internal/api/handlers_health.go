// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"net/http"
	"time"
)

// Health handles GET /api/v1/health: liveness plus dependency status.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	status := map[string]string{
		"registry":  "ok",
		"metricsdb": "ok",
	}
	healthy := true

	ctx := r.Context()
	if err := h.registry.Ping(ctx); err != nil {
		status["registry"] = err.Error()
		healthy = false
	}
	if err := h.metrics.Ping(ctx); err != nil {
		status["metricsdb"] = err.Error()
		healthy = false
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	respond(w, code, map[string]any{
		"healthy":   healthy,
		"checks":    status,
		"timestamp": time.Now().UTC(),
	}, start)
}

// Live handles GET /api/v1/health/live: process is up.
func (h *Handlers) Live(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "alive"}, h.now())
}

// Ready handles GET /api/v1/health/ready: dependencies answer.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	ctx := r.Context()
	if err := h.registry.Ping(ctx); err != nil {
		respond(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"}, start)
		return
	}
	if err := h.metrics.Ping(ctx); err != nil {
		respond(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"}, start)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ready"}, start)
}
