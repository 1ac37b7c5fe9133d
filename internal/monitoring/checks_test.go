// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package monitoring

import (
	"testing"
	"time"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/models"
)

func defaultChecks() config.ChecksConfig {
	return config.ChecksConfig{
		CPUMax:         80,
		MemMax:         70,
		RTTMax:         40,
		LastPingMax:    20 * time.Minute,
		LastContactMax: 5 * time.Minute,
	}
}

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func resultsOf(passed ...*bool) CheckResults {
	rs := make(CheckResults, 0, len(passed))
	for i, p := range passed {
		rs = append(rs, CheckResult{Key: string(rune('a' + i)), Passed: p})
	}
	return rs
}

func TestHealthStatusLadder(t *testing.T) {
	yes := boolPtr(true)
	no := boolPtr(false)

	tests := []struct {
		name    string
		results CheckResults
		want    models.HealthStatus
	}{
		{"nothing ran", resultsOf(nil, nil, nil), models.HealthUnknown},
		{"empty", CheckResults{}, models.HealthUnknown},
		{"all passed", resultsOf(yes, yes, yes), models.HealthOK},
		{"skipped checks ignored", resultsOf(yes, nil, nil), models.HealthOK},
		{"one of four failed", resultsOf(no, yes, yes, yes), models.HealthWarning},
		{"exactly half failed", resultsOf(no, no, yes, yes), models.HealthWarning},
		{"three of four failed", resultsOf(no, no, no, yes), models.HealthError},
		{"all failed", resultsOf(no, no, no), models.HealthCritical},
		{"single check failed", resultsOf(no), models.HealthCritical},
		{"single check passed", resultsOf(yes), models.HealthOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.results.HealthStatus(); got != tt.want {
				t.Errorf("HealthStatus() = %v, want %v (passed=%d failed=%d)",
					got, tt.want, tt.results.NumPassed(), tt.results.NumFailed())
			}
		})
	}
}

func TestResolveThresholds(t *testing.T) {
	defaults := defaultChecks()

	t.Run("nil settings keeps defaults", func(t *testing.T) {
		got := ResolveThresholds(defaults, nil)
		if got.CPUMax != 80 || got.MemMax != 70 || got.RTTMax != 40 {
			t.Errorf("unexpected thresholds: %+v", got)
		}
		if got.LastPingMax != 20*time.Minute || got.LastContactMax != 5*time.Minute {
			t.Errorf("unexpected durations: %+v", got)
		}
	})

	t.Run("mesh overrides win", func(t *testing.T) {
		active := 10 * time.Minute
		settings := &models.MeshSettings{
			CheckCPU:    floatPtr(50),
			CheckRTT:    floatPtr(120),
			CheckActive: &active,
		}
		got := ResolveThresholds(defaults, settings)
		if got.CPUMax != 50 {
			t.Errorf("CPUMax = %v, want 50", got.CPUMax)
		}
		if got.MemMax != 70 {
			t.Errorf("MemMax = %v, want default 70", got.MemMax)
		}
		if got.RTTMax != 120 {
			t.Errorf("RTTMax = %v, want 120", got.RTTMax)
		}
		if got.LastContactMax != 10*time.Minute {
			t.Errorf("LastContactMax = %v, want 10m", got.LastContactMax)
		}
	})
}

func TestRunDeviceChecks(t *testing.T) {
	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	thresholds := ResolveThresholds(defaultChecks(), nil)

	t.Run("no facts runs nothing", func(t *testing.T) {
		results := RunDeviceChecks(NodeFacts{}, thresholds, now)
		if len(results) != 6 {
			t.Fatalf("got %d checks, want 6", len(results))
		}
		if results.NumRun() != 0 {
			t.Errorf("NumRun() = %d, want 0", results.NumRun())
		}
		if results.HealthStatus() != models.HealthUnknown {
			t.Errorf("health = %v, want unknown", results.HealthStatus())
		}
	})

	t.Run("healthy node passes everything", func(t *testing.T) {
		facts := NodeFacts{
			CPU:         floatPtr(20),
			Mem:         floatPtr(40),
			RTT:         floatPtr(12),
			LastPing:    timePtr(now.Add(-time.Minute)),
			LastContact: timePtr(now.Add(-30 * time.Second)),
			Reachable:   boolPtr(true),
		}
		results := RunDeviceChecks(facts, thresholds, now)
		if results.NumFailed() != 0 {
			t.Errorf("NumFailed() = %d, want 0", results.NumFailed())
		}
		if results.HealthStatus() != models.HealthOK {
			t.Errorf("health = %v, want ok", results.HealthStatus())
		}
	})

	t.Run("threshold breaches fail with named keys", func(t *testing.T) {
		facts := NodeFacts{
			CPU:         floatPtr(95),
			Mem:         floatPtr(90),
			RTT:         floatPtr(12),
			LastPing:    timePtr(now.Add(-time.Minute)),
			LastContact: timePtr(now.Add(-30 * time.Second)),
			Reachable:   boolPtr(true),
		}
		results := RunDeviceChecks(facts, thresholds, now)
		if results.NumFailed() != 2 {
			t.Fatalf("NumFailed() = %d, want 2", results.NumFailed())
		}
		if got := results.FailedKeys(); got != "cpu, mem" {
			t.Errorf("FailedKeys() = %q, want %q", got, "cpu, mem")
		}
		if results.HealthStatus() != models.HealthWarning {
			t.Errorf("health = %v, want warning", results.HealthStatus())
		}
	})

	t.Run("value at threshold fails", func(t *testing.T) {
		facts := NodeFacts{CPU: floatPtr(80)}
		results := RunDeviceChecks(facts, thresholds, now)
		for _, r := range results {
			if r.Key == "cpu" {
				if r.Passed == nil || *r.Passed {
					t.Error("cpu at exactly the limit should fail")
				}
				if r.Feedback != "CPU usage is high" {
					t.Errorf("feedback = %q", r.Feedback)
				}
			}
		}
	})

	t.Run("stale ping and contact fail", func(t *testing.T) {
		facts := NodeFacts{
			LastPing:    timePtr(now.Add(-time.Hour)),
			LastContact: timePtr(now.Add(-time.Hour)),
			Reachable:   boolPtr(false),
		}
		results := RunDeviceChecks(facts, thresholds, now)
		if results.NumFailed() != 3 {
			t.Errorf("NumFailed() = %d, want 3", results.NumFailed())
		}
		if results.HealthStatus() != models.HealthCritical {
			t.Errorf("health = %v, want critical", results.HealthStatus())
		}
	})
}

func TestRunMeshChecks(t *testing.T) {
	t.Run("no limits means no checks", func(t *testing.T) {
		results := RunMeshChecks(MeshFacts{DailyUsage: int64Ptr(1 << 30)}, MeshLimits{})
		if len(results) != 0 {
			t.Fatalf("got %d checks, want 0", len(results))
		}
		if results.HealthStatus() != models.HealthUnknown {
			t.Errorf("health = %v, want unknown", results.HealthStatus())
		}
	})

	t.Run("usage under the limit passes", func(t *testing.T) {
		results := RunMeshChecks(
			MeshFacts{DailyUsage: int64Ptr(600)},
			MeshLimits{DailyUsageMax: 650})
		if results.NumFailed() != 0 {
			t.Errorf("NumFailed() = %d, want 0", results.NumFailed())
		}
	})

	t.Run("usage over the limit fails", func(t *testing.T) {
		results := RunMeshChecks(
			MeshFacts{DailyUsage: int64Ptr(700), HourlyUsage: int64Ptr(700)},
			MeshLimits{DailyUsageMax: 650, HourlyUsageMax: 1000})
		if results.NumFailed() != 1 || results.NumPassed() != 1 {
			t.Fatalf("failed=%d passed=%d, want 1/1", results.NumFailed(), results.NumPassed())
		}
		if got := results.FailedKeys(); got != "daily_data_usage" {
			t.Errorf("FailedKeys() = %q", got)
		}
	})
}

func int64Ptr(n int64) *int64 { return &n }
