// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/inethi/config.yaml",
	"/etc/inethi/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
//
// A .env file in the working directory is loaded into the process
// environment first, so deployments can keep secrets out of the compose
// file the same way the frontend stack does.
func Load() (*Config, error) {
	// Missing .env is fine; only report parse failures.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive via env vars.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated env strings to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("setting %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths. The
// variable names match the ones the deployment stack already exports
// (KEYCLOAK_*, MYSQL_*, RD_DB_*, UNIFI_DB_*), so existing .env files keep
// working unchanged. Unmapped variables are dropped so random environment
// noise cannot pollute the config.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		// Keycloak clients: confidential backend client plus the public
		// frontend client accepted as an extra audience.
		"auth_mode":               "keycloak.auth_mode",
		"keycloak_url":            "keycloak.url",
		"keycloak_realm":          "keycloak.realm",
		"keycloak_client_id":      "keycloak.client_id",
		"keycloak_client_secret":  "keycloak.client_secret",
		"drf_keycloak_client_id":  "keycloak.frontend_client_id",
		"keycloak_admin_role":     "keycloak.admin_role",

		// Default MySQL database
		"mysql_host":     "database.host",
		"mysql_port":     "database.port",
		"mysql_database": "database.name",
		"mysql_user":     "database.user",
		"mysql_password": "database.password",

		// Metrics store
		"metrics_db_path":       "metrics_db.path",
		"metrics_db_max_memory": "metrics_db.max_memory",
		"metrics_db_threads":    "metrics_db.threads",

		// RadiusDesk coupling
		"radiusdesk_enabled":  "radiusdesk.enabled",
		"rd_db_host":          "radiusdesk.host",
		"rd_db_port":          "radiusdesk.port",
		"rd_db_name":          "radiusdesk.name",
		"rd_db_user":          "radiusdesk.user",
		"rd_db_password":      "radiusdesk.password",
		"radiusdesk_url":      "radiusdesk.url",
		"radiusdesk_timezone": "radiusdesk.timezone",

		// UniFi coupling
		"unifi_enabled":     "unifi.enabled",
		"unifi_db_host":     "unifi.host",
		"unifi_db_port":     "unifi.port",
		"unifi_db_name":     "unifi.name",
		"unifi_db_user":     "unifi.user",
		"unifi_db_password": "unifi.password",
		"unifi_url":         "unifi.url",

		// Server
		"http_host":   "server.host",
		"http_port":   "server.port",
		"http_timeout": "server.timeout",
		"environment": "server.environment",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Health check thresholds
		"check_cpu_max":          "checks.cpu_max",
		"check_mem_max":          "checks.mem_max",
		"check_rtt_max_ms":       "checks.rtt_max_ms",
		"check_last_ping_max":    "checks.last_ping_max",
		"check_last_contact_max": "checks.last_contact_max",

		// Schedule
		"ping_interval":    "schedule.ping_interval",
		"sync_interval":    "schedule.sync_interval",
		"alerts_interval":  "schedule.alerts_interval",
		"aggregate_hourly": "schedule.aggregate_hourly",
		"aggregate_daily":  "schedule.aggregate_daily",

		// Pinger
		"ping_count":       "pinger.count",
		"ping_timeout":     "pinger.timeout",
		"ping_concurrency": "pinger.concurrency",

		// Prometheus target sync
		"prometheus_sync_enabled": "prometheus.enabled",
		"prometheus_config":       "prometheus.config_path",
		"prometheus_blackbox_job": "prometheus.job_name",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
		"rate_limit_requests":   "api.rate_limit_reqs",
		"rate_limit_window":     "api.rate_limit_window",
		"cors_origins":          "api.cors_origins",
		"report_min_gap":        "api.report_min_gap",
	}

	if mapped, ok := mappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
