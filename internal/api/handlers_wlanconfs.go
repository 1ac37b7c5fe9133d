// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inethi/manage-backend/internal/models"
)

// ListWlanConfs handles GET /api/v1/monitoring/wlanconfs. ?mesh= narrows
// to one mesh.
func (h *Handlers) ListWlanConfs(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	confs, err := h.registry.ListWlanConfs(r.Context(), r.URL.Query().Get("mesh"))
	if err != nil {
		respondStoreError(w, err, "wlanconfs")
		return
	}
	respond(w, http.StatusOK, confs, start)
}

// GetWlanConf handles GET /api/v1/monitoring/wlanconfs/{id}.
func (h *Handlers) GetWlanConf(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid wlanconf id", nil)
		return
	}
	conf, err := h.registry.GetWlanConf(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "wlanconf")
		return
	}
	respond(w, http.StatusOK, conf, start)
}

// CreateWlanConf handles POST /api/v1/monitoring/wlanconfs.
func (h *Handlers) CreateWlanConf(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	var conf models.WlanConf
	if !h.decodeBody(w, r, &conf) {
		return
	}
	if conf.Security == models.SecurityWPAPSK && len(conf.Passphrase) < 8 {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation,
			"wpapsk requires a passphrase of at least 8 characters", nil)
		return
	}
	if err := h.registry.CreateWlanConf(r.Context(), &conf); err != nil {
		respondStoreError(w, err, "wlanconf")
		return
	}
	respond(w, http.StatusCreated, conf, start)
}

// DeleteWlanConf handles DELETE /api/v1/monitoring/wlanconfs/{id}.
func (h *Handlers) DeleteWlanConf(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid wlanconf id", nil)
		return
	}
	if err := h.registry.DeleteWlanConf(r.Context(), id); err != nil {
		respondStoreError(w, err, "wlanconf")
		return
	}
	respond(w, http.StatusOK, nil, start)
}
