// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/inethi/manage-backend/internal/models"
)

// AlertStore is the persistence surface the alert lifecycle needs.
// *database.DB satisfies it.
type AlertStore interface {
	InsertAlert(ctx context.Context, a *models.Alert) error
	UpdateAlert(ctx context.Context, a *models.Alert) error
	UnresolvedAlertsFor(ctx context.Context, mesh, node string) ([]models.Alert, error)
}

// BuildNodeAlert derives the alert a node's current state calls for, or
// nil when the node is fine. An offline node yields a critical offline
// alert that overrides health check results; running health checks on a
// node that does not answer pings tells you nothing new.
func BuildNodeAlert(node *models.Node, results CheckResults, now time.Time) *models.Alert {
	if node.Status == models.StatusOffline {
		stamp := now.UTC().Format("2006-01-02 15:04:05")
		return &models.Alert{
			Level: models.LevelCritical,
			Title: models.TitleOffline,
			Text:  fmt.Sprintf("_%s_ %s", stamp, models.TextOffline),
			Node:  node.MAC,
			Mesh:  node.Mesh,
		}
	}
	return buildHealthAlert(node.Mesh, node.MAC, results, now)
}

// BuildMeshAlert derives the alert a mesh's check results call for, or nil
// when the mesh is fine. Mesh alerts carry no node.
func BuildMeshAlert(mesh string, results CheckResults, now time.Time) *models.Alert {
	return buildHealthAlert(mesh, "", results, now)
}

func buildHealthAlert(mesh, node string, results CheckResults, now time.Time) *models.Alert {
	stamp := now.UTC().Format("2006-01-02 15:04:05")
	switch results.HealthStatus() {
	case models.HealthCritical:
		return &models.Alert{
			Level: models.LevelCritical,
			Title: models.TitleHealthCritical,
			Text:  fmt.Sprintf("_%s_ "+models.TextHealthChecksFailedF, stamp, results.FailedKeys()),
			Node:  node,
			Mesh:  mesh,
		}
	case models.HealthError, models.HealthWarning:
		return &models.Alert{
			Level: models.LevelError,
			Title: models.TitleHealthBad,
			Text:  fmt.Sprintf("_%s_ "+models.TextHealthChecksFailedF, stamp, results.FailedKeys()),
			Node:  node,
			Mesh:  mesh,
		}
	default:
		return nil
	}
}

// ApplyAlert folds a candidate alert into the target's unresolved set:
//
//   - no unresolved prior alert: the candidate is saved as new;
//   - the candidate is worse than the latest: the latest is upgraded in
//     place, keeping its history;
//   - equally bad but a different condition: the latest is renamed;
//   - otherwise nothing happens (no duplicate alerts for a steady state).
//
// Afterwards every unresolved alert worse than the candidate's level is
// resolved; the state evidently improved to the candidate's severity.
// Returns true when the candidate changed the alert set.
func ApplyAlert(ctx context.Context, store AlertStore, alert *models.Alert, now time.Time) (bool, error) {
	unresolved, err := store.UnresolvedAlertsFor(ctx, alert.Mesh, alert.Node)
	if err != nil {
		return false, fmt.Errorf("loading unresolved alerts: %w", err)
	}

	applied := true
	switch {
	case len(unresolved) == 0:
		alert.Created = now
		alert.Modified = now
		if err := store.InsertAlert(ctx, alert); err != nil {
			return false, fmt.Errorf("saving alert: %w", err)
		}
	case alert.Level > unresolved[0].Level:
		latest := unresolved[0]
		latest.Upgrade(alert, now)
		if err := store.UpdateAlert(ctx, &latest); err != nil {
			return false, fmt.Errorf("upgrading alert %d: %w", latest.ID, err)
		}
	case alert.Level == unresolved[0].Level && alert.Title != unresolved[0].Title:
		latest := unresolved[0]
		latest.Rename(alert, now)
		if err := store.UpdateAlert(ctx, &latest); err != nil {
			return false, fmt.Errorf("renaming alert %d: %w", latest.ID, err)
		}
	default:
		applied = false
	}

	for i := range unresolved {
		a := unresolved[i]
		if a.Level > alert.Level && !a.Resolved() {
			a.Resolve(now)
			if err := store.UpdateAlert(ctx, &a); err != nil {
				return applied, fmt.Errorf("resolving alert %d: %w", a.ID, err)
			}
		}
	}

	return applied, nil
}

// ResolveAll resolves every unresolved alert for a target. Called when a
// check run finds the target healthy.
func ResolveAll(ctx context.Context, store AlertStore, mesh, node string, now time.Time) (int, error) {
	unresolved, err := store.UnresolvedAlertsFor(ctx, mesh, node)
	if err != nil {
		return 0, err
	}
	for i := range unresolved {
		a := unresolved[i]
		a.Resolve(now)
		if err := store.UpdateAlert(ctx, &a); err != nil {
			return i, fmt.Errorf("resolving alert %d: %w", a.ID, err)
		}
	}
	return len(unresolved), nil
}
