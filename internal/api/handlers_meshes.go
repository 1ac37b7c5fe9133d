// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/models"
)

// ListMeshes handles GET /api/v1/monitoring/meshes.
func (h *Handlers) ListMeshes(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	meshes, err := h.registry.ListMeshes(r.Context())
	if err != nil {
		respondStoreError(w, err, "meshes")
		return
	}
	respond(w, http.StatusOK, meshes, start)
}

// GetMesh handles GET /api/v1/monitoring/meshes/{name}.
func (h *Handlers) GetMesh(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	mesh, err := h.registry.GetMesh(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondStoreError(w, err, "mesh")
		return
	}
	respond(w, http.StatusOK, mesh, start)
}

// CreateMesh handles POST /api/v1/monitoring/meshes. Creating a mesh
// also creates its settings row with defaults.
func (h *Handlers) CreateMesh(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	var mesh models.Mesh
	if !h.decodeBody(w, r, &mesh) {
		return
	}
	if _, err := h.registry.GetMesh(r.Context(), mesh.Name); err == nil {
		respondError(w, http.StatusConflict, models.ErrCodeConflict, "mesh already exists", nil)
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		respondStoreError(w, err, "mesh")
		return
	}
	if err := h.registry.CreateMesh(r.Context(), &mesh); err != nil {
		respondStoreError(w, err, "mesh")
		return
	}
	respond(w, http.StatusCreated, mesh, start)
}

// UpdateMesh handles PUT /api/v1/monitoring/meshes/{name}.
func (h *Handlers) UpdateMesh(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	var mesh models.Mesh
	if !h.decodeBody(w, r, &mesh) {
		return
	}
	mesh.Name = chi.URLParam(r, "name")
	if err := h.registry.UpdateMesh(r.Context(), &mesh); err != nil {
		respondStoreError(w, err, "mesh")
		return
	}
	respond(w, http.StatusOK, mesh, start)
}

// DeleteMesh handles DELETE /api/v1/monitoring/meshes/{name}.
func (h *Handlers) DeleteMesh(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	if err := h.registry.DeleteMesh(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondStoreError(w, err, "mesh")
		return
	}
	respond(w, http.StatusOK, nil, start)
}

// GetMeshSettings handles GET /api/v1/monitoring/meshes/{name}/settings.
func (h *Handlers) GetMeshSettings(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	settings, err := h.registry.GetMeshSettings(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondStoreError(w, err, "mesh settings")
		return
	}
	respond(w, http.StatusOK, settings, start)
}

// UpdateMeshSettings handles PUT /api/v1/monitoring/meshes/{name}/settings.
func (h *Handlers) UpdateMeshSettings(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	var settings models.MeshSettings
	if !h.decodeBody(w, r, &settings) {
		return
	}
	settings.Mesh = chi.URLParam(r, "name")
	if err := h.registry.UpdateMeshSettings(r.Context(), &settings); err != nil {
		respondStoreError(w, err, "mesh settings")
		return
	}
	respond(w, http.StatusOK, settings, start)
}
