// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/models"
)

// Registry is the slice of the registry store the engine reads and writes.
// *database.DB satisfies it.
type Registry interface {
	AlertStore
	ListMeshes(ctx context.Context) ([]models.Mesh, error)
	ListNodes(ctx context.Context, mesh string) ([]models.Node, error)
	ListMeshMACs(ctx context.Context, mesh string) ([]string, error)
	GetMeshSettings(ctx context.Context, mesh string) (*models.MeshSettings, error)
	UpdateNodeHealth(ctx context.Context, mac string, status models.HealthStatus) error
	UpdateMeshHealth(ctx context.Context, name string, status models.HealthStatus) error
}

// MetricSource is the slice of the metric store the engine reads facts
// from. *metricsdb.DB satisfies it.
type MetricSource interface {
	LatestResources(ctx context.Context, mac string) (*models.ResourcesMetric, error)
	LatestRTT(ctx context.Context, mac string) (*models.RTTMetric, error)
	SumDataUsage(ctx context.Context, macs []string, t0, t1 time.Time) (int64, error)
}

// Engine runs health checks across the registry and keeps health statuses
// and alerts current. One run visits every mesh and every node.
type Engine struct {
	registry Registry
	metrics  MetricSource
	defaults config.ChecksConfig

	// OnAlert is called for every alert that was newly raised or changed
	// by a run. Optional; the supervisor wires event publishing here.
	OnAlert func(alert models.Alert)

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine builds a monitoring engine over the given stores.
func NewEngine(registry Registry, metrics MetricSource, defaults config.ChecksConfig) *Engine {
	return &Engine{
		registry: registry,
		metrics:  metrics,
		defaults: defaults,
		now:      time.Now,
	}
}

// Run performs one full check-and-alert pass. Per-target failures are
// logged and counted but do not abort the pass; the other targets still
// deserve their checks.
func (e *Engine) Run(ctx context.Context) error {
	started := e.now()
	meshes, err := e.registry.ListMeshes(ctx)
	if err != nil {
		return fmt.Errorf("listing meshes: %w", err)
	}

	var nodesChecked, failures int
	for i := range meshes {
		n, err := e.runMesh(ctx, &meshes[i])
		nodesChecked += n
		if err != nil {
			failures++
			logging.Error().Err(err).Str("mesh", meshes[i].Name).Msg("Mesh check run failed")
		}
	}

	logging.Info().
		Int("meshes", len(meshes)).
		Int("nodes", nodesChecked).
		Int("failures", failures).
		Dur("elapsed", e.now().Sub(started)).
		Msg("Check run complete")
	return nil
}

func (e *Engine) runMesh(ctx context.Context, mesh *models.Mesh) (int, error) {
	settings, err := e.registry.GetMeshSettings(ctx, mesh.Name)
	if err != nil {
		// A mesh without a settings row still gets checked with defaults.
		settings = nil
		logging.Debug().Err(err).Str("mesh", mesh.Name).Msg("No mesh settings, using defaults")
	}
	alertsEnabled := settings == nil || settings.AlertsEnabled
	thresholds := ResolveThresholds(e.defaults, settings)

	nodes, err := e.registry.ListNodes(ctx, mesh.Name)
	if err != nil {
		return 0, fmt.Errorf("listing nodes: %w", err)
	}

	now := e.now()
	for i := range nodes {
		node := &nodes[i]
		if err := e.runNode(ctx, node, thresholds, alertsEnabled, now); err != nil {
			logging.Error().Err(err).Str("mac", node.MAC).Msg("Node check run failed")
		}
	}

	if err := e.runMeshUsage(ctx, mesh, settings, alertsEnabled, now); err != nil {
		return len(nodes), err
	}
	return len(nodes), nil
}

func (e *Engine) runNode(ctx context.Context, node *models.Node, t Thresholds, alertsEnabled bool, now time.Time) error {
	facts, err := e.nodeFacts(ctx, node)
	if err != nil {
		return fmt.Errorf("gathering facts: %w", err)
	}

	results := RunDeviceChecks(facts, t, now)
	health := results.HealthStatus()
	if health != node.HealthStatus {
		if err := e.registry.UpdateNodeHealth(ctx, node.MAC, health); err != nil {
			return fmt.Errorf("updating health: %w", err)
		}
		node.HealthStatus = health
	}

	if !alertsEnabled {
		return nil
	}
	return e.settle(ctx, BuildNodeAlert(node, results, now), node.Mesh, node.MAC, now)
}

func (e *Engine) runMeshUsage(ctx context.Context, mesh *models.Mesh, settings *models.MeshSettings, alertsEnabled bool, now time.Time) error {
	limits := MeshLimits{}
	if settings != nil {
		if settings.CheckDailyDataUsage != nil {
			limits.DailyUsageMax = *settings.CheckDailyDataUsage
		}
		if settings.CheckHourlyDataUsage != nil {
			limits.HourlyUsageMax = *settings.CheckHourlyDataUsage
		}
	}

	facts := MeshFacts{}
	if limits.DailyUsageMax > 0 || limits.HourlyUsageMax > 0 {
		macs, err := e.registry.ListMeshMACs(ctx, mesh.Name)
		if err != nil {
			return fmt.Errorf("listing mesh macs: %w", err)
		}
		if limits.DailyUsageMax > 0 {
			dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			total, err := e.metrics.SumDataUsage(ctx, macs, dayStart, now)
			if err != nil {
				return fmt.Errorf("summing daily usage: %w", err)
			}
			facts.DailyUsage = &total
		}
		if limits.HourlyUsageMax > 0 {
			hourStart := now.UTC().Truncate(time.Hour)
			total, err := e.metrics.SumDataUsage(ctx, macs, hourStart, now)
			if err != nil {
				return fmt.Errorf("summing hourly usage: %w", err)
			}
			facts.HourlyUsage = &total
		}
	}

	results := RunMeshChecks(facts, limits)
	health := results.HealthStatus()
	if health != mesh.HealthStatus {
		if err := e.registry.UpdateMeshHealth(ctx, mesh.Name, health); err != nil {
			return fmt.Errorf("updating mesh health: %w", err)
		}
		mesh.HealthStatus = health
	}

	if !alertsEnabled {
		return nil
	}
	return e.settle(ctx, BuildMeshAlert(mesh.Name, results, now), mesh.Name, "", now)
}

// settle applies a candidate alert, or resolves the target's unresolved
// alerts when the target came back healthy.
func (e *Engine) settle(ctx context.Context, alert *models.Alert, mesh, node string, now time.Time) error {
	if alert == nil {
		resolved, err := ResolveAll(ctx, e.registry, mesh, node, now)
		if resolved > 0 {
			logging.Info().Str("mesh", mesh).Str("node", node).Int("resolved", resolved).Msg("Alerts resolved")
		}
		return err
	}

	applied, err := ApplyAlert(ctx, e.registry, alert, now)
	if err != nil {
		return err
	}
	if applied {
		logging.Warn().
			Str("mesh", mesh).
			Str("node", node).
			Str("level", alert.Level.String()).
			Str("title", alert.Title).
			Msg("Alert raised")
		if e.OnAlert != nil {
			e.OnAlert(*alert)
		}
	}
	return nil
}

// nodeFacts assembles the observations device checks need: ping state off
// the node row, cpu/memory and rtt off the latest metric rows.
func (e *Engine) nodeFacts(ctx context.Context, node *models.Node) (NodeFacts, error) {
	facts := NodeFacts{
		LastPing:    node.LastPing,
		LastContact: node.LastContact,
	}
	if node.LastPing != nil {
		r := node.Reachable
		facts.Reachable = &r
	}

	res, err := e.metrics.LatestResources(ctx, node.MAC)
	if err != nil {
		return facts, err
	}
	if res != nil {
		facts.Mem = &res.Memory
		if res.CPU >= 0 {
			facts.CPU = &res.CPU
		}
	}

	rtt, err := e.metrics.LatestRTT(ctx, node.MAC)
	if err != nil {
		return facts, err
	}
	if rtt != nil {
		facts.RTT = rtt.RTTAvg
	}
	return facts, nil
}
