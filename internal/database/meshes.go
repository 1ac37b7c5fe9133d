// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inethi/manage-backend/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// CreateMesh inserts a mesh and its default settings row. Every mesh gets
// a settings row so per-mesh threshold overrides always have a home.
func (db *DB) CreateMesh(ctx context.Context, m *models.Mesh) error {
	if m.Created.IsZero() {
		m.Created = time.Now().UTC()
	}
	if m.HealthStatus == "" {
		m.HealthStatus = models.HealthUnknown
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meshes (name, location, lat, lon, health_status, created) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Name, m.Location, m.Lat, m.Lon, string(m.HealthStatus), m.Created)
	if err != nil {
		return fmt.Errorf("inserting mesh %s: %w", m.Name, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO mesh_settings (mesh, alerts_enabled) VALUES (?, TRUE)`, m.Name)
	if err != nil {
		return fmt.Errorf("inserting settings for mesh %s: %w", m.Name, err)
	}
	return tx.Commit()
}

// EnsureMesh creates the mesh if it does not exist yet. Returns true when a
// new mesh was created. Sync uses this for RadiusDesk clouds and UniFi sites.
func (db *DB) EnsureMesh(ctx context.Context, name string) (bool, error) {
	var existing string
	err := db.conn.QueryRowContext(ctx, `SELECT name FROM meshes WHERE name = ?`, name).Scan(&existing)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, err
	}
	if err := db.CreateMesh(ctx, &models.Mesh{Name: name}); err != nil {
		return false, err
	}
	return true, nil
}

// GetMesh fetches a mesh by name.
func (db *DB) GetMesh(ctx context.Context, name string) (*models.Mesh, error) {
	var m models.Mesh
	var health string
	err := db.conn.QueryRowContext(ctx,
		`SELECT name, location, lat, lon, health_status, created FROM meshes WHERE name = ?`, name).
		Scan(&m.Name, &m.Location, &m.Lat, &m.Lon, &health, &m.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.HealthStatus = models.HealthStatus(health)
	return &m, nil
}

// ListMeshes returns all meshes ordered by name.
func (db *DB) ListMeshes(ctx context.Context) ([]models.Mesh, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, location, lat, lon, health_status, created FROM meshes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.Mesh
	for rows.Next() {
		var m models.Mesh
		var health string
		if err := rows.Scan(&m.Name, &m.Location, &m.Lat, &m.Lon, &health, &m.Created); err != nil {
			return nil, err
		}
		m.HealthStatus = models.HealthStatus(health)
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMesh updates mutable mesh fields.
func (db *DB) UpdateMesh(ctx context.Context, m *models.Mesh) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE meshes SET location = ?, lat = ?, lon = ? WHERE name = ?`,
		m.Location, m.Lat, m.Lon, m.Name)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateMeshHealth stores a freshly computed mesh health status.
func (db *DB) UpdateMeshHealth(ctx context.Context, name string, status models.HealthStatus) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE meshes SET health_status = ? WHERE name = ?`, string(status), name)
	return err
}

// DeleteMesh removes a mesh; nodes, settings and wlanconfs cascade.
func (db *DB) DeleteMesh(ctx context.Context, name string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM meshes WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GetMeshSettings fetches the settings row for a mesh.
func (db *DB) GetMeshSettings(ctx context.Context, mesh string) (*models.MeshSettings, error) {
	var s models.MeshSettings
	var activeSec, pingSec *int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT mesh, alerts_enabled, check_rtt, check_cpu, check_mem, check_active_sec, check_last_ping_sec,
		 check_daily_data_usage, check_hourly_data_usage
		 FROM mesh_settings WHERE mesh = ?`, mesh).
		Scan(&s.Mesh, &s.AlertsEnabled, &s.CheckRTT, &s.CheckCPU, &s.CheckMem, &activeSec, &pingSec,
			&s.CheckDailyDataUsage, &s.CheckHourlyDataUsage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if activeSec != nil {
		d := time.Duration(*activeSec) * time.Second
		s.CheckActive = &d
	}
	if pingSec != nil {
		d := time.Duration(*pingSec) * time.Second
		s.CheckLastPing = &d
	}
	return &s, nil
}

// UpdateMeshSettings replaces the settings row for a mesh.
func (db *DB) UpdateMeshSettings(ctx context.Context, s *models.MeshSettings) error {
	var activeSec, pingSec *int64
	if s.CheckActive != nil {
		v := int64(s.CheckActive.Seconds())
		activeSec = &v
	}
	if s.CheckLastPing != nil {
		v := int64(s.CheckLastPing.Seconds())
		pingSec = &v
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE mesh_settings SET alerts_enabled = ?, check_rtt = ?, check_cpu = ?, check_mem = ?,
		 check_active_sec = ?, check_last_ping_sec = ?, check_daily_data_usage = ?, check_hourly_data_usage = ?
		 WHERE mesh = ?`,
		s.AlertsEnabled, s.CheckRTT, s.CheckCPU, s.CheckMem, activeSec, pingSec,
		s.CheckDailyDataUsage, s.CheckHourlyDataUsage, s.Mesh)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow translates "no rows matched" into ErrNotFound. The DSN sets
// clientFoundRows so no-op updates still count their matched row.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
