// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"net/http"

	"github.com/inethi/manage-backend/internal/database"
)

// ListSessions handles GET /api/v1/radius/sessions. Filters: ?username=,
// ?uplink=, ?open=, ?limit=.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	sessions, err := h.registry.ListClientSessions(r.Context(), database.SessionFilter{
		Username: r.URL.Query().Get("username"),
		Uplink:   r.URL.Query().Get("uplink"),
		Open:     queryBoolPtr(r, "open"),
		Limit:    h.pageLimit(r),
	})
	if err != nil {
		respondStoreError(w, err, "sessions")
		return
	}
	respond(w, http.StatusOK, sessions, start)
}

// UserUsage handles GET /api/v1/radius/usage: per-user session counts and
// byte totals, heaviest users first.
func (h *Handlers) UserUsage(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	usage, err := h.registry.UserUsageTotals(r.Context())
	if err != nil {
		respondStoreError(w, err, "usage")
		return
	}
	respond(w, http.StatusOK, usage, start)
}
