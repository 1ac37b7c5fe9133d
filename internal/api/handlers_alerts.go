// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/metrics"
	"github.com/inethi/manage-backend/internal/models"
)

// ListAlerts handles GET /api/v1/monitoring/alerts. Filters: ?mesh=,
// ?node=, ?resolved=.
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	alerts, err := h.registry.ListAlerts(r.Context(), database.AlertFilter{
		Mesh:     r.URL.Query().Get("mesh"),
		Node:     r.URL.Query().Get("node"),
		Resolved: queryBoolPtr(r, "resolved"),
	})
	if err != nil {
		respondStoreError(w, err, "alerts")
		return
	}
	respond(w, http.StatusOK, alerts, start)
}

// GetAlert handles GET /api/v1/monitoring/alerts/{id}.
func (h *Handlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid alert id", nil)
		return
	}
	alert, err := h.registry.GetAlert(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "alert")
		return
	}
	respond(w, http.StatusOK, alert, start)
}

// ResolveAlert handles POST /api/v1/monitoring/alerts/{id}/resolve.
// Resolving an already resolved alert is a no-op.
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid alert id", nil)
		return
	}
	alert, err := h.registry.GetAlert(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "alert")
		return
	}
	if !alert.Resolved() {
		alert.Resolve(h.now().UTC())
		if err := h.registry.UpdateAlert(r.Context(), alert); err != nil {
			respondStoreError(w, err, "alert")
			return
		}
		metrics.RecordAlertTransition("resolved")
	}
	respond(w, http.StatusOK, alert, start)
}
