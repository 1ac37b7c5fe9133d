// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/models"
)

// respond writes the success envelope. start stamps the query time.
func respond(w http.ResponseWriter, status int, data any, start time.Time) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMs: time.Since(start).Milliseconds(),
		},
	})
	if err != nil {
		logging.Debug().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes the error envelope.
func respondError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{Code: code, Message: message, Details: details},
	})
	if err != nil {
		logging.Debug().Err(err).Msg("Failed to encode error response")
	}
}

// respondStoreError maps store errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, what+" not found", nil)
		return
	}
	logging.Error().Err(err).Str("what", what).Msg("Store operation failed")
	respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "internal error", nil)
}

// decodeBody decodes and validates a JSON request body.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid JSON body", err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		details := []string{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details = append(details, fe.Namespace()+": failed "+fe.Tag())
			}
		}
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "validation failed", details)
		return false
	}
	return true
}

// queryInt reads an integer query parameter, 0 when absent or invalid.
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

// queryTime reads an RFC 3339 or unix-seconds query parameter.
func queryTime(r *http.Request, key string) time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}

// queryBoolPtr reads a tri-state boolean query parameter.
func queryBoolPtr(r *http.Request, key string) *bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

// pageLimit clamps a requested page size to the configured bounds.
func (h *Handlers) pageLimit(r *http.Request) int {
	limit := queryInt(r, "limit")
	if limit <= 0 {
		return h.cfg.DefaultPageSize
	}
	if limit > h.cfg.MaxPageSize {
		return h.cfg.MaxPageSize
	}
	return limit
}
