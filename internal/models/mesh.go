// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package models

import "time"

// HealthStatus classifies how well a node or mesh is performing, derived
// from its health check pass ratio. Distinct from online status: a device
// that answers pings may still be in bad health.
type HealthStatus string

const (
	HealthUnknown  HealthStatus = "unknown"
	HealthCritical HealthStatus = "critical"
	HealthError    HealthStatus = "error"
	HealthWarning  HealthStatus = "warning"
	HealthOK       HealthStatus = "ok"
)

// Valid reports whether s is a recognized health status.
func (s HealthStatus) Valid() bool {
	switch s {
	case HealthUnknown, HealthCritical, HealthError, HealthWarning, HealthOK:
		return true
	}
	return false
}

// Mesh is a named group of nodes.
//
// RadiusDesk differentiates between a realm, a mesh and a site (where
// realm > mesh > site) but we keep nodes in a flat mesh group, keyed on the
// mesh name.
type Mesh struct {
	Name         string       `json:"name" validate:"required,max=128"`
	Location     string       `json:"location,omitempty"`
	Lat          float64      `json:"lat"`
	Lon          float64      `json:"lon"`
	HealthStatus HealthStatus `json:"health_status"`
	Created      time.Time    `json:"created"`
}

// MeshSettings holds per-mesh health check thresholds. A nil threshold means
// the configured default applies; see internal/monitoring.
type MeshSettings struct {
	Mesh                 string         `json:"mesh"`
	AlertsEnabled        bool           `json:"alerts_enabled"`
	CheckRTT             *float64       `json:"check_rtt,omitempty"`       // ms
	CheckCPU             *float64       `json:"check_cpu,omitempty"`       // percent
	CheckMem             *float64       `json:"check_mem,omitempty"`       // percent
	CheckActive          *time.Duration `json:"check_active,omitempty"`    // max age of last contact
	CheckLastPing        *time.Duration `json:"check_last_ping,omitempty"` // max age of last ping
	CheckDailyDataUsage  *float64       `json:"check_daily_data_usage,omitempty"`  // bytes
	CheckHourlyDataUsage *float64       `json:"check_hourly_data_usage,omitempty"` // bytes
}

// WlanConfSecurity is the security mechanism for wireless access.
type WlanConfSecurity string

const (
	SecurityOpen   WlanConfSecurity = "open"
	SecurityWPAPSK WlanConfSecurity = "wpapsk"
)

// WlanConf is a wireless network configuration attached to a mesh.
type WlanConf struct {
	ID         int64            `json:"id"`
	Mesh       string           `json:"mesh"`
	Name       string           `json:"name" validate:"required,max=32"`
	Passphrase string           `json:"passphrase,omitempty"`
	Security   WlanConfSecurity `json:"security" validate:"oneof=open wpapsk"`
	IsGuest    bool             `json:"is_guest"`
}

// Service is a network service advertised to community members.
type Service struct {
	ID          int64  `json:"id"`
	URL         string `json:"url" validate:"required,url,max=100"`
	Name        string `json:"name" validate:"required,max=20"`
	ServiceType string `json:"service_type" validate:"oneof=utility entertainment games education"`
	APILocation string `json:"api_location" validate:"oneof=cloud local"`
}
