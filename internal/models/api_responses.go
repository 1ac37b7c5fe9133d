// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package models

import "time"

// APIResponse is the envelope returned by all HTTP endpoints.
//
// Status is "success" or "error". Data carries the payload on success;
// Error carries details when Status is "error".
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries response timing information for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMs int64     `json:"query_time_ms"`
}

// MonitoringOverview summarizes the node fleet for dashboard landing
// pages: totals, how many nodes carry map coordinates, how many
// unadopted devices are waiting, and how many nodes are healthy.
type MonitoringOverview struct {
	Nodes           int `json:"n_nodes"`
	PositionedNodes int `json:"n_positioned_nodes"`
	UnknownNodes    int `json:"n_unknown_nodes"`
	OKNodes         int `json:"n_ok_nodes"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes used across the API.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeRateLimited  = "RATE_LIMITED"
)
