// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"context"
	"net/http"

	"github.com/inethi/manage-backend/internal/metricsdb"
	"github.com/inethi/manage-backend/internal/models"
)

// metricFilter builds the store filter from query parameters. ?mac=
// scopes to one device, ?mesh= to all devices of a mesh; ?min_time= and
// ?granularity= narrow further, ?limit= pages.
func (h *Handlers) metricFilter(r *http.Request) (metricsdb.Filter, bool) {
	f := metricsdb.Filter{
		MAC:     r.URL.Query().Get("mac"),
		MinTime: queryTime(r, "min_time"),
		Limit:   h.pageLimit(r),
	}
	if g := r.URL.Query().Get("granularity"); g != "" {
		gran := models.Granularity(g)
		if !gran.Valid() {
			return f, false
		}
		f.Granularity = gran
	}
	if mesh := r.URL.Query().Get("mesh"); mesh != "" && f.MAC == "" {
		macs, err := h.registry.ListMeshMACs(r.Context(), mesh)
		if err != nil {
			return f, false
		}
		if len(macs) == 0 {
			// A mesh without nodes matches nothing.
			macs = []string{""}
		}
		f.MACs = macs
	}
	return f, true
}

func (h *Handlers) handleMetricQuery(w http.ResponseWriter, r *http.Request,
	query func(context.Context, metricsdb.Filter) (any, error)) {
	start := h.now()
	f, ok := h.metricFilter(r)
	if !ok {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid metric filter", nil)
		return
	}
	rows, err := query(r.Context(), f)
	if err != nil {
		respondStoreError(w, err, "metrics")
		return
	}
	respond(w, http.StatusOK, rows, start)
}

// QueryUptime handles GET /api/v1/metrics/uptime.
func (h *Handlers) QueryUptime(w http.ResponseWriter, r *http.Request) {
	h.handleMetricQuery(w, r, func(ctx context.Context, f metricsdb.Filter) (any, error) {
		return h.metrics.QueryUptime(ctx, f)
	})
}

// QueryRTT handles GET /api/v1/metrics/rtt.
func (h *Handlers) QueryRTT(w http.ResponseWriter, r *http.Request) {
	h.handleMetricQuery(w, r, func(ctx context.Context, f metricsdb.Filter) (any, error) {
		return h.metrics.QueryRTT(ctx, f)
	})
}

// QueryResources handles GET /api/v1/metrics/resources.
func (h *Handlers) QueryResources(w http.ResponseWriter, r *http.Request) {
	h.handleMetricQuery(w, r, func(ctx context.Context, f metricsdb.Filter) (any, error) {
		return h.metrics.QueryResources(ctx, f)
	})
}

// QueryDataUsage handles GET /api/v1/metrics/data-usage.
func (h *Handlers) QueryDataUsage(w http.ResponseWriter, r *http.Request) {
	h.handleMetricQuery(w, r, func(ctx context.Context, f metricsdb.Filter) (any, error) {
		return h.metrics.QueryDataUsage(ctx, f)
	})
}

// QueryDataRate handles GET /api/v1/metrics/data-rate.
func (h *Handlers) QueryDataRate(w http.ResponseWriter, r *http.Request) {
	h.handleMetricQuery(w, r, func(ctx context.Context, f metricsdb.Filter) (any, error) {
		return h.metrics.QueryDataRate(ctx, f)
	})
}

// QueryFailures handles GET /api/v1/metrics/failures.
func (h *Handlers) QueryFailures(w http.ResponseWriter, r *http.Request) {
	h.handleMetricQuery(w, r, func(ctx context.Context, f metricsdb.Filter) (any, error) {
		return h.metrics.QueryFailures(ctx, f)
	})
}
