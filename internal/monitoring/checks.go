// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package monitoring evaluates device and mesh health and drives the
// alert lifecycle. Checks compare a node's latest facts against per-mesh
// thresholds (falling back to configured defaults); the pass/fail ratio
// maps onto a health status ladder, and status changes feed the alert
// state machine.
package monitoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/models"
)

// CheckResult is the outcome of one health check. Passed is nil when the
// check could not run because the fact it needs was never recorded; such
// checks count as neither passed nor failed.
type CheckResult struct {
	Title    string `json:"title"`
	Key      string `json:"key"`
	Passed   *bool  `json:"passed"`
	Feedback string `json:"feedback"`
}

// CheckResults is the outcome of one full check run.
type CheckResults []CheckResult

// NumPassed returns the number of checks that passed.
func (rs CheckResults) NumPassed() int {
	n := 0
	for _, r := range rs {
		if r.Passed != nil && *r.Passed {
			n++
		}
	}
	return n
}

// NumFailed returns the number of checks that failed.
func (rs CheckResults) NumFailed() int {
	n := 0
	for _, r := range rs {
		if r.Passed != nil && !*r.Passed {
			n++
		}
	}
	return n
}

// NumRun returns the number of checks that actually ran.
func (rs CheckResults) NumRun() int {
	return rs.NumPassed() + rs.NumFailed()
}

// HealthStatus folds the pass/fail ratio into a health status:
// nothing ran -> unknown; no failures -> ok; at most half failed ->
// warning; more than half but not all -> error; everything failed ->
// critical.
func (rs CheckResults) HealthStatus() models.HealthStatus {
	run := rs.NumRun()
	if run == 0 {
		return models.HealthUnknown
	}
	failed := rs.NumFailed()
	switch {
	case failed == 0:
		return models.HealthOK
	case float64(failed) <= float64(run)/2:
		return models.HealthWarning
	case rs.NumPassed() > 0:
		return models.HealthError
	default:
		return models.HealthCritical
	}
}

// FailedKeys returns the keys of failed checks, comma separated, for
// alert texts.
func (rs CheckResults) FailedKeys() string {
	var keys []string
	for _, r := range rs {
		if r.Passed != nil && !*r.Passed {
			keys = append(keys, r.Key)
		}
	}
	return strings.Join(keys, ", ")
}

// Thresholds are the effective check limits for one node, after applying
// mesh overrides on top of the configured defaults.
type Thresholds struct {
	CPUMax         float64
	MemMax         float64
	RTTMax         float64
	LastPingMax    time.Duration
	LastContactMax time.Duration
}

// ResolveThresholds layers per-mesh overrides over the defaults. A nil
// settings pointer (node without a mesh) keeps the defaults.
func ResolveThresholds(defaults config.ChecksConfig, settings *models.MeshSettings) Thresholds {
	t := Thresholds{
		CPUMax:         defaults.CPUMax,
		MemMax:         defaults.MemMax,
		RTTMax:         defaults.RTTMax,
		LastPingMax:    defaults.LastPingMax,
		LastContactMax: defaults.LastContactMax,
	}
	if settings == nil {
		return t
	}
	if settings.CheckCPU != nil {
		t.CPUMax = *settings.CheckCPU
	}
	if settings.CheckMem != nil {
		t.MemMax = *settings.CheckMem
	}
	if settings.CheckRTT != nil {
		t.RTTMax = *settings.CheckRTT
	}
	if settings.CheckLastPing != nil {
		t.LastPingMax = *settings.CheckLastPing
	}
	if settings.CheckActive != nil {
		t.LastContactMax = *settings.CheckActive
	}
	return t
}

// NodeFacts are the observations device checks run against. Nil fields
// mean the fact was never recorded and skip the corresponding check.
type NodeFacts struct {
	CPU         *float64
	Mem         *float64
	RTT         *float64
	LastPing    *time.Time
	LastContact *time.Time
	Reachable   *bool
}

func boolPtr(b bool) *bool { return &b }

// RunDeviceChecks evaluates the standard device check set.
func RunDeviceChecks(facts NodeFacts, t Thresholds, now time.Time) CheckResults {
	results := CheckResults{}

	appendCheck := func(title, key string, passed *bool, none, bad, good string) {
		feedback := none
		if passed != nil {
			if *passed {
				feedback = good
			} else {
				feedback = bad
			}
		}
		results = append(results, CheckResult{Title: title, Key: key, Passed: passed, Feedback: feedback})
	}

	var cpuPassed *bool
	if facts.CPU != nil {
		cpuPassed = boolPtr(*facts.CPU < t.CPUMax)
	}
	appendCheck("CPU Usage", "cpu", cpuPassed,
		"No CPU usage recorded",
		"CPU usage is high",
		"CPU usage falls in an acceptable range")

	var memPassed *bool
	if facts.Mem != nil {
		memPassed = boolPtr(*facts.Mem < t.MemMax)
	}
	appendCheck("Memory Usage", "mem", memPassed,
		"No memory usage recorded",
		"Memory usage is high",
		"Memory usage falls in an acceptable range")

	var pingPassed *bool
	if facts.LastPing != nil {
		pingPassed = boolPtr(now.Sub(*facts.LastPing) < t.LastPingMax)
	}
	appendCheck("Recently Contacted", "last_ping", pingPassed,
		"Device has never been pinged",
		"Device has not been pinged recently",
		"Device has been pinged recently")

	var contactPassed *bool
	if facts.LastContact != nil {
		contactPassed = boolPtr(now.Sub(*facts.LastContact) < t.LastContactMax)
	}
	appendCheck("Active", "last_contact", contactPassed,
		"Device has not contacted the server",
		"Device has not contacted the server recently",
		"Device is active")

	var reachPassed *bool
	if facts.Reachable != nil {
		reachPassed = boolPtr(*facts.Reachable)
	}
	appendCheck("Reachable", "reachable", reachPassed,
		"Device has not been contacted yet",
		"Device is unreachable",
		"Device is reachable")

	var rttPassed *bool
	if facts.RTT != nil {
		rttPassed = boolPtr(*facts.RTT < t.RTTMax)
	}
	appendCheck("RTT", "rtt", rttPassed,
		"No RTT data",
		"Took too long to return a response",
		"Response time is acceptable")

	return results
}

// MeshFacts are the observations mesh checks run against.
type MeshFacts struct {
	// DailyUsage and HourlyUsage are the mesh's byte totals for the
	// current calendar day and hour.
	DailyUsage  *int64
	HourlyUsage *int64
}

// MeshLimits are per-mesh usage limits. Zero values disable a check.
type MeshLimits struct {
	DailyUsageMax  float64
	HourlyUsageMax float64
}

// RunMeshChecks evaluates mesh-level checks. A mesh with no limits
// configured runs no checks and stays at health unknown.
func RunMeshChecks(facts MeshFacts, limits MeshLimits) CheckResults {
	results := CheckResults{}

	if limits.DailyUsageMax > 0 {
		var passed *bool
		feedback := "No daily usage recorded"
		if facts.DailyUsage != nil {
			passed = boolPtr(float64(*facts.DailyUsage) < limits.DailyUsageMax)
			if *passed {
				feedback = "Daily data usage falls in an acceptable range"
			} else {
				feedback = fmt.Sprintf("Daily data usage exceeds %0.f bytes", limits.DailyUsageMax)
			}
		}
		results = append(results, CheckResult{
			Title: "Daily Data Usage", Key: "daily_data_usage", Passed: passed, Feedback: feedback,
		})
	}

	if limits.HourlyUsageMax > 0 {
		var passed *bool
		feedback := "No hourly usage recorded"
		if facts.HourlyUsage != nil {
			passed = boolPtr(float64(*facts.HourlyUsage) < limits.HourlyUsageMax)
			if *passed {
				feedback = "Hourly data usage falls in an acceptable range"
			} else {
				feedback = fmt.Sprintf("Hourly data usage exceeds %0.f bytes", limits.HourlyUsageMax)
			}
		}
		results = append(results, CheckResult{
			Title: "Hourly Data Usage", Key: "hourly_data_usage", Passed: passed, Feedback: feedback,
		})
	}

	return results
}
