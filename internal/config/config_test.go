// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	// Defaults ship without Keycloak coordinates; dev mode must still load.
	cfg.Keycloak.AuthMode = "none"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestDefaultSchedule(t *testing.T) {
	cfg := defaultConfig()
	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"ping_interval", cfg.Schedule.PingInterval, 5 * time.Minute},
		{"sync_interval", cfg.Schedule.SyncInterval, 60 * time.Minute},
		{"alerts_interval", cfg.Schedule.AlertsInterval, 10 * time.Minute},
		{"aggregate_hourly", cfg.Schedule.AggregateHourly, time.Hour},
		{"aggregate_daily", cfg.Schedule.AggregateDaily, 24 * time.Hour},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestDefaultCheckThresholds(t *testing.T) {
	checks := defaultConfig().Checks
	if checks.CPUMax != 80 || checks.MemMax != 70 || checks.RTTMax != 40 {
		t.Errorf("unexpected thresholds: %+v", checks)
	}
	if checks.LastPingMax != 20*time.Minute {
		t.Errorf("LastPingMax = %v, want 20m", checks.LastPingMax)
	}
	if checks.LastContactMax != 5*time.Minute {
		t.Errorf("LastContactMax = %v, want 5m", checks.LastContactMax)
	}
}

func TestKeycloakIssuerURL(t *testing.T) {
	tests := []struct {
		url   string
		realm string
		want  string
	}{
		{"https://keycloak.example.net", "inethi", "https://keycloak.example.net/realms/inethi"},
		{"https://keycloak.example.net/", "inethi", "https://keycloak.example.net/realms/inethi"},
	}
	for _, tt := range tests {
		kc := KeycloakConfig{URL: tt.url, Realm: tt.realm}
		if got := kc.IssuerURL(); got != tt.want {
			t.Errorf("IssuerURL(%q, %q) = %q, want %q", tt.url, tt.realm, got, tt.want)
		}
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 3306, Name: "manage", User: "inethi", Password: "s3cret"}
	dsn := d.DSN()
	if !strings.HasPrefix(dsn, "inethi:s3cret@tcp(db:3306)/manage") {
		t.Errorf("unexpected DSN %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN must request parseTime, got %q", dsn)
	}
}

func TestUniFiURI(t *testing.T) {
	u := UniFiConfig{Host: "unifi", Port: 27117}
	if got := u.URI(); got != "mongodb://unifi:27117" {
		t.Errorf("URI() = %q", got)
	}
	u.User, u.Password = "ro", "pw"
	if got := u.URI(); got != "mongodb://ro:pw@unifi:27117" {
		t.Errorf("URI() with credentials = %q", got)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "oidc without url",
			mutate: func(c *Config) { c.Keycloak.URL = "" },
			want:   "keycloak.url",
		},
		{
			name: "oidc without realm",
			mutate: func(c *Config) {
				c.Keycloak.URL = "https://kc.example.net"
				c.Keycloak.Realm = ""
			},
			want: "keycloak.realm",
		},
		{
			name: "auth disabled in production",
			mutate: func(c *Config) {
				c.Keycloak.AuthMode = "none"
				c.Server.Environment = "production"
			},
			want: "not allowed in production",
		},
		{
			name: "page size inversion",
			mutate: func(c *Config) {
				c.Keycloak.AuthMode = "none"
				c.API.DefaultPageSize = 1000
			},
			want: "max_page_size",
		},
		{
			name: "bad radiusdesk timezone",
			mutate: func(c *Config) {
				c.Keycloak.AuthMode = "none"
				c.RadiusDesk.Timezone = "Mars/Olympus"
			},
			want: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidConfigWithOIDC(t *testing.T) {
	cfg := defaultConfig()
	cfg.Keycloak.URL = "https://keycloak.example.net"
	cfg.Keycloak.Realm = "inethi"
	cfg.Keycloak.ClientID = "manage-backend"
	cfg.Keycloak.ClientSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"KEYCLOAK_URL", "keycloak.url"},
		{"DRF_KEYCLOAK_CLIENT_ID", "keycloak.frontend_client_id"},
		{"MYSQL_DATABASE", "database.name"},
		{"MYSQL_PASSWORD", "database.password"},
		{"RD_DB_HOST", "radiusdesk.host"},
		{"UNIFI_DB_PORT", "unifi.port"},
		{"PING_INTERVAL", "schedule.ping_interval"},
		{"PROMETHEUS_CONFIG", "prometheus.config_path"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""}, // unmapped noise is dropped
		{"LD_PRELOAD", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}
