// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package config loads and validates the backend configuration from three
// layered sources: built-in defaults, an optional YAML config file, and
// environment variables (highest priority). A .env file in the working
// directory is honored for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the management backend.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Keycloak   KeycloakConfig   `koanf:"keycloak"`
	Database   DatabaseConfig   `koanf:"database"`
	MetricsDB  MetricsDBConfig  `koanf:"metrics_db"`
	RadiusDesk RadiusDeskConfig `koanf:"radiusdesk"`
	UniFi      UniFiConfig      `koanf:"unifi"`
	Checks     ChecksConfig     `koanf:"checks"`
	Schedule   ScheduleConfig   `koanf:"schedule"`
	Pinger     PingerConfig     `koanf:"pinger"`
	Prometheus PrometheusConfig `koanf:"prometheus"`
	API        APIConfig        `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// KeycloakConfig holds the OIDC resource-server settings.
//
// The backend is a confidential Keycloak client; FrontendClientID is the
// public client used by the web frontend, accepted as an additional token
// audience. AuthMode "none" disables authentication entirely and is only
// for development.
type KeycloakConfig struct {
	AuthMode         string `koanf:"auth_mode" validate:"oneof=oidc none"`
	URL              string `koanf:"url" validate:"omitempty,url"`
	Realm            string `koanf:"realm"`
	ClientID         string `koanf:"client_id"`
	ClientSecret     string `koanf:"client_secret"`
	FrontendClientID string `koanf:"frontend_client_id"`
	AdminRole        string `koanf:"admin_role"`
}

// IssuerURL returns the OIDC issuer for the configured realm.
func (k KeycloakConfig) IssuerURL() string {
	return strings.TrimSuffix(k.URL, "/") + "/realms/" + k.Realm
}

// DatabaseConfig holds the default MySQL database settings (the `manage`
// database holding registry state).
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=1,lte=65535"`
	Name     string `koanf:"name" validate:"required"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
}

// DSN returns the go-sql-driver/mysql connection string. clientFoundRows
// makes RowsAffected count matched rows, so updates that leave values
// unchanged are not mistaken for missing records.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&clientFoundRows=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MetricsDBConfig holds settings for the dedicated DuckDB metrics store.
type MetricsDBConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// RadiusDeskConfig holds the RadiusDesk MariaDB coupling. The backend reads
// the RadiusDesk tables directly rather than going through its API.
type RadiusDeskConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=1,lte=65535"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	URL      string `koanf:"url" validate:"omitempty,url"`
	Timezone string `koanf:"timezone"` // IANA zone RadiusDesk stores naive timestamps in
}

// DSN returns the go-sql-driver/mysql connection string.
func (r RadiusDeskConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=false",
		r.User, r.Password, r.Host, r.Port, r.Name)
}

// UniFiConfig holds the optional UniFi controller MongoDB coupling.
type UniFiConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=1,lte=65535"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	URL      string `koanf:"url" validate:"omitempty,url"`
}

// URI returns the MongoDB connection URI.
func (u UniFiConfig) URI() string {
	if u.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", u.User, u.Password, u.Host, u.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", u.Host, u.Port)
}

// ChecksConfig holds default health check thresholds. Per-mesh settings
// override these.
type ChecksConfig struct {
	CPUMax         float64       `koanf:"cpu_max" validate:"gt=0,lte=100"`
	MemMax         float64       `koanf:"mem_max" validate:"gt=0,lte=100"`
	RTTMax         float64       `koanf:"rtt_max_ms" validate:"gt=0"`
	LastPingMax    time.Duration `koanf:"last_ping_max" validate:"gt=0"`
	LastContactMax time.Duration `koanf:"last_contact_max" validate:"gt=0"`
}

// ScheduleConfig holds the periodic task intervals.
type ScheduleConfig struct {
	PingInterval   time.Duration `koanf:"ping_interval" validate:"gt=0"`
	SyncInterval   time.Duration `koanf:"sync_interval" validate:"gt=0"`
	AlertsInterval time.Duration `koanf:"alerts_interval" validate:"gt=0"`
	// Aggregation tickers; monthly runs on the daily ticker and skips
	// until a calendar month boundary has passed.
	AggregateHourly time.Duration `koanf:"aggregate_hourly" validate:"gt=0"`
	AggregateDaily  time.Duration `koanf:"aggregate_daily" validate:"gt=0"`
}

// PingerConfig holds settings for the periodic device pinger.
type PingerConfig struct {
	Count       int           `koanf:"count" validate:"gte=1,lte=20"` // echo requests per round
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	Concurrency int           `koanf:"concurrency" validate:"gte=1,lte=256"`
}

// PrometheusConfig holds settings for keeping the blackbox scrape targets
// in the operator-mounted prometheus.yml aligned with the node registry.
type PrometheusConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ConfigPath string `koanf:"config_path"`
	JobName    string `koanf:"job_name"`
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size" validate:"gte=1"`
	MaxPageSize     int           `koanf:"max_page_size" validate:"gte=1"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// Device reports arrive unauthenticated from inside the network;
	// ReportMinGap throttles per-MAC report processing.
	ReportMinGap time.Duration `koanf:"report_min_gap"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Keycloak: KeycloakConfig{
			AuthMode:  "oidc",
			AdminRole: "admin",
		},
		Database: DatabaseConfig{
			Host: "inethi-manage-mysql",
			Port: 3306,
			Name: "manage",
			User: "inethi",
		},
		MetricsDB: MetricsDBConfig{
			Path:      "/data/metrics.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		RadiusDesk: RadiusDeskConfig{
			Enabled:  true,
			Host:     "127.0.0.1",
			Port:     3306,
			Name:     "rd",
			User:     "rd",
			Password: "rd",
			Timezone: "Africa/Johannesburg",
		},
		UniFi: UniFiConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    27117,
			Name:    "ace",
		},
		Checks: ChecksConfig{
			CPUMax:         80,
			MemMax:         70,
			RTTMax:         40,
			LastPingMax:    20 * time.Minute,
			LastContactMax: 5 * time.Minute,
		},
		Schedule: ScheduleConfig{
			PingInterval:    5 * time.Minute,
			SyncInterval:    60 * time.Minute,
			AlertsInterval:  10 * time.Minute,
			AggregateHourly: time.Hour,
			AggregateDaily:  24 * time.Hour,
		},
		Pinger: PingerConfig{
			Count:       4,
			Timeout:     10 * time.Second,
			Concurrency: 16,
		},
		Prometheus: PrometheusConfig{
			Enabled:    true,
			ConfigPath: "/etc/prometheus/prometheus.yml",
			JobName:    "blackbox",
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			ReportMinGap:    time.Minute,
		},
	}
}

// Validate checks the configuration for inconsistencies beyond what struct
// tags can express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if c.Keycloak.AuthMode == "oidc" {
		switch {
		case c.Keycloak.URL == "":
			return fmt.Errorf("keycloak.url is required when auth_mode is oidc")
		case c.Keycloak.Realm == "":
			return fmt.Errorf("keycloak.realm is required when auth_mode is oidc")
		case c.Keycloak.ClientID == "":
			return fmt.Errorf("keycloak.client_id is required when auth_mode is oidc")
		}
	}
	if c.Keycloak.AuthMode == "none" && c.Server.Environment == "production" {
		return fmt.Errorf("auth_mode none is not allowed in production")
	}

	if c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size (%d) exceeds api.max_page_size (%d)",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}

	if c.RadiusDesk.Enabled {
		if _, err := time.LoadLocation(c.RadiusDesk.Timezone); err != nil {
			return fmt.Errorf("radiusdesk.timezone: %w", err)
		}
	}

	return nil
}
