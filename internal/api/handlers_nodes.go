// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/events"
	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/metrics"
	"github.com/inethi/manage-backend/internal/models"
	"github.com/inethi/manage-backend/internal/monitoring"
)

// ListNodes handles GET /api/v1/monitoring/nodes. ?mesh= narrows to one
// mesh.
func (h *Handlers) ListNodes(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	nodes, err := h.registry.ListNodes(r.Context(), r.URL.Query().Get("mesh"))
	if err != nil {
		respondStoreError(w, err, "nodes")
		return
	}
	respond(w, http.StatusOK, nodes, start)
}

// GetNode handles GET /api/v1/monitoring/nodes/{mac}.
func (h *Handlers) GetNode(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	node, err := h.registry.GetNode(r.Context(), chi.URLParam(r, "mac"))
	if err != nil {
		respondStoreError(w, err, "node")
		return
	}
	respond(w, http.StatusOK, node, start)
}

// CreateNode handles POST /api/v1/monitoring/nodes. Adopting a
// previously unknown node goes through here too; the unknown row is left
// for the next sync to clean up.
func (h *Handlers) CreateNode(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	var node models.Node
	if !h.decodeBody(w, r, &node) {
		return
	}
	if _, err := h.registry.GetNode(r.Context(), node.MAC); err == nil {
		respondError(w, http.StatusConflict, models.ErrCodeConflict, "node already exists", nil)
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		respondStoreError(w, err, "node")
		return
	}
	if err := h.registry.CreateNode(r.Context(), &node); err != nil {
		respondStoreError(w, err, "node")
		return
	}
	h.publishNode(&node)
	respond(w, http.StatusCreated, node, start)
}

// UpdateNode handles PUT /api/v1/monitoring/nodes/{mac}.
func (h *Handlers) UpdateNode(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	var node models.Node
	if !h.decodeBody(w, r, &node) {
		return
	}
	node.MAC = chi.URLParam(r, "mac")
	if err := h.registry.UpdateNode(r.Context(), &node); err != nil {
		respondStoreError(w, err, "node")
		return
	}
	h.publishNode(&node)
	respond(w, http.StatusOK, node, start)
}

// DeleteNode handles DELETE /api/v1/monitoring/nodes/{mac}.
func (h *Handlers) DeleteNode(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	if err := h.registry.DeleteNode(r.Context(), chi.URLParam(r, "mac")); err != nil {
		respondStoreError(w, err, "node")
		return
	}
	respond(w, http.StatusOK, nil, start)
}

// RebootNode handles POST /api/v1/monitoring/nodes/{mac}/reboot. The
// flag is delivered on the device's next report.
func (h *Handlers) RebootNode(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	mac := chi.URLParam(r, "mac")
	if err := h.registry.SetRebootFlag(r.Context(), mac, true); err != nil {
		respondStoreError(w, err, "node")
		return
	}
	logging.Info().Str("mac", mac).Msg("Reboot requested")
	respond(w, http.StatusAccepted, map[string]any{"mac": mac, "reboot_flag": true}, start)
}

// NodeChecks handles GET /api/v1/monitoring/nodes/{mac}/checks: the
// node's current health check outcomes against its mesh thresholds.
func (h *Handlers) NodeChecks(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	ctx := r.Context()

	node, err := h.registry.GetNode(ctx, chi.URLParam(r, "mac"))
	if err != nil {
		respondStoreError(w, err, "node")
		return
	}

	var settings *models.MeshSettings
	if node.Mesh != "" {
		settings, err = h.registry.GetMeshSettings(ctx, node.Mesh)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			respondStoreError(w, err, "mesh settings")
			return
		}
	}
	thresholds := monitoring.ResolveThresholds(h.checks, settings)

	facts := monitoring.NodeFacts{
		LastPing:    node.LastPing,
		LastContact: node.LastContact,
	}
	if node.LastPing != nil {
		reachable := node.Reachable
		facts.Reachable = &reachable
	}
	if res, err := h.metrics.LatestResources(ctx, node.MAC); err == nil && res != nil {
		facts.Mem = &res.Memory
		if res.CPU >= 0 {
			facts.CPU = &res.CPU
		}
	}
	if rtt, err := h.metrics.LatestRTT(ctx, node.MAC); err == nil && rtt != nil {
		facts.RTT = rtt.RTTAvg
	}

	results := monitoring.RunDeviceChecks(facts, thresholds, h.now())
	respond(w, http.StatusOK, map[string]any{
		"mac":           node.MAC,
		"health_status": results.HealthStatus(),
		"checks":        results,
	}, start)
}

// ListUnknownNodes handles GET /api/v1/monitoring/unknown-nodes.
func (h *Handlers) ListUnknownNodes(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	nodes, err := h.registry.ListUnknownNodes(r.Context())
	if err != nil {
		respondStoreError(w, err, "unknown nodes")
		return
	}
	respond(w, http.StatusOK, nodes, start)
}

// Overview handles GET /api/v1/monitoring/overview: fleet-wide counters
// across all meshes. A node counts as positioned when it has both
// coordinates, and as ok on its last computed health status.
func (h *Handlers) Overview(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	ctx := r.Context()

	nodes, err := h.registry.ListNodes(ctx, "")
	if err != nil {
		respondStoreError(w, err, "nodes")
		return
	}
	unknown, err := h.registry.ListUnknownNodes(ctx)
	if err != nil {
		respondStoreError(w, err, "unknown nodes")
		return
	}

	overview := models.MonitoringOverview{
		Nodes:        len(nodes),
		UnknownNodes: len(unknown),
	}
	for i := range nodes {
		if nodes[i].Lat != nil && nodes[i].Lon != nil {
			overview.PositionedNodes++
		}
		if nodes[i].HealthStatus == models.HealthOK {
			overview.OKNodes++
		}
	}
	respond(w, http.StatusOK, overview, start)
}

// NodeReport handles POST /api/v1/monitoring/nodes/{mac}/report: the
// periodic phone-home from the reverse proxy on each device. The response
// tells the device whether to reboot; answering the flag also clears it.
func (h *Handlers) NodeReport(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	ctx := r.Context()
	mac := chi.URLParam(r, "mac")

	var report models.NodeReport
	report.MAC = mac
	if r.ContentLength > 0 {
		if !h.decodeBody(w, r, &report) {
			metrics.DeviceReports.WithLabelValues("invalid").Inc()
			return
		}
		report.MAC = mac
	}

	// Some devices report every few seconds; one report per gap is enough.
	if h.throttleReport(mac) {
		metrics.DeviceReports.WithLabelValues("throttled").Inc()
		respond(w, http.StatusOK, map[string]any{"reboot": false}, start)
		return
	}

	ip := report.IP
	if ip == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
	}

	now := h.now().UTC()
	err := h.registry.TouchNodeContact(ctx, mac, ip, now)
	if errors.Is(err, database.ErrNotFound) {
		// First sight of this MAC; park it for an operator to adopt.
		if _, uerr := h.registry.UpsertUnknownNode(ctx, &models.UnknownNode{
			MAC:         mac,
			FromIP:      ip,
			LastContact: &now,
		}); uerr != nil {
			respondStoreError(w, uerr, "unknown node")
			return
		}
		metrics.DeviceReports.WithLabelValues("unknown").Inc()
		respond(w, http.StatusAccepted, map[string]any{"reboot": false}, start)
		return
	}
	if err != nil {
		respondStoreError(w, err, "node")
		return
	}

	if report.Memory != nil {
		res := &models.ResourcesMetric{MAC: mac, Memory: *report.Memory, CPU: -1, Created: now}
		if report.CPU != nil {
			res.CPU = *report.CPU
		}
		if err := h.metrics.InsertResources(ctx, res); err != nil {
			logging.Warn().Err(err).Str("mac", mac).Msg("Failed to store reported resources")
		}
	}

	reboot, err := h.registry.ConsumeRebootFlag(ctx, mac)
	if err != nil {
		respondStoreError(w, err, "node")
		return
	}

	if node, err := h.registry.GetNode(ctx, mac); err == nil {
		h.publishNode(node)
	}
	metrics.DeviceReports.WithLabelValues("ok").Inc()
	respond(w, http.StatusOK, map[string]any{"reboot": reboot}, start)
}

// throttleReport reports whether this MAC reported too recently.
func (h *Handlers) throttleReport(mac string) bool {
	if h.cfg.ReportMinGap <= 0 {
		return false
	}
	now := h.now()
	h.reportMu.Lock()
	defer h.reportMu.Unlock()
	if last, ok := h.lastReport[mac]; ok && now.Sub(last) < h.cfg.ReportMinGap {
		return true
	}
	h.lastReport[mac] = now
	return false
}

func (h *Handlers) publishNode(node *models.Node) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(events.TopicNodeUpdated, events.NewNodeUpdated(node)); err != nil {
		logging.Warn().Err(err).Str("mac", node.MAC).Msg("Failed to publish node update")
	}
}
