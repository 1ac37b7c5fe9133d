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

const nodeColumns = `mac, name, mesh, description, hardware, ip, is_ap, nas_name, reachable,
	status, health_status, reboot_flag, lat, lon, adopted_at, last_contact, last_ping, created`

func scanNode(scan func(dest ...any) error) (*models.Node, error) {
	var n models.Node
	var mesh sql.NullString
	var status, health string
	err := scan(&n.MAC, &n.Name, &mesh, &n.Description, &n.Hardware, &n.IP, &n.IsAP, &n.NASName,
		&n.Reachable, &status, &health, &n.RebootFlag, &n.Lat, &n.Lon,
		&n.AdoptedAt, &n.LastContact, &n.LastPing, &n.Created)
	if err != nil {
		return nil, err
	}
	n.Mesh = mesh.String
	n.Status = models.NodeStatus(status)
	n.HealthStatus = models.HealthStatus(health)
	return &n, nil
}

func meshArg(mesh string) any {
	if mesh == "" {
		return nil
	}
	return mesh
}

// CreateNode inserts a new node.
func (db *DB) CreateNode(ctx context.Context, n *models.Node) error {
	if n.Created.IsZero() {
		n.Created = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = models.StatusUnknown
	}
	if n.HealthStatus == "" {
		n.HealthStatus = models.HealthUnknown
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.MAC, n.Name, meshArg(n.Mesh), n.Description, n.Hardware, n.IP, n.IsAP, n.NASName,
		n.Reachable, string(n.Status), string(n.HealthStatus), n.RebootFlag, n.Lat, n.Lon,
		n.AdoptedAt, n.LastContact, n.LastPing, n.Created)
	if err != nil {
		return fmt.Errorf("inserting node %s: %w", n.MAC, err)
	}
	return nil
}

// GetNode fetches a node by MAC.
func (db *DB) GetNode(ctx context.Context, mac string) (*models.Node, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE mac = ?`, mac)
	n, err := scanNode(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

// ListNodes returns nodes ordered by name, optionally restricted to a mesh.
func (db *DB) ListNodes(ctx context.Context, mesh string) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes`
	var args []any
	if mesh != "" {
		query += ` WHERE mesh = ?`
		args = append(args, mesh)
	}
	query += ` ORDER BY name`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.Node
	for rows.Next() {
		n, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// ListNodesWithIP returns nodes that have an IP address; these are the ping
// targets.
func (db *DB) ListNodesWithIP(ctx context.Context) ([]models.Node, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE ip <> '' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.Node
	for rows.Next() {
		n, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// ListMeshMACs returns the MAC addresses of all nodes in a mesh.
func (db *DB) ListMeshMACs(ctx context.Context, mesh string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT mac FROM nodes WHERE mesh = ?`, mesh)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []string
	for rows.Next() {
		var mac string
		if err := rows.Scan(&mac); err != nil {
			return nil, err
		}
		out = append(out, mac)
	}
	return out, rows.Err()
}

// UpdateNode updates the user-editable node fields.
func (db *DB) UpdateNode(ctx context.Context, n *models.Node) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE nodes SET name = ?, mesh = ?, description = ?, hardware = ?, ip = ?, is_ap = ?,
		 nas_name = ?, lat = ?, lon = ? WHERE mac = ?`,
		n.Name, meshArg(n.Mesh), n.Description, n.Hardware, n.IP, n.IsAP, n.NASName,
		n.Lat, n.Lon, n.MAC)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpsertSyncedNode reconciles a node from an upstream source. Mesh and IP
// are kept in sync on every run; name, description and hardware are
// create-only so local edits survive later syncs. Existing nodes are never
// deleted when they disappear upstream.
func (db *DB) UpsertSyncedNode(ctx context.Context, n *models.Node) (created bool, err error) {
	existing, err := db.GetNode(ctx, n.MAC)
	if errors.Is(err, ErrNotFound) {
		if err := db.CreateNode(ctx, n); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE nodes SET mesh = ?, ip = ? WHERE mac = ?`,
		meshArg(n.Mesh), n.IP, existing.MAC)
	return false, err
}

// UpdateNodePingState persists the outcome of one ping round for a node.
func (db *DB) UpdateNodePingState(ctx context.Context, n *models.Node) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE nodes SET reachable = ?, status = ?, health_status = ?, last_ping = ? WHERE mac = ?`,
		n.Reachable, string(n.Status), string(n.HealthStatus), n.LastPing, n.MAC)
	return err
}

// UpdateNodeHealth stores a freshly computed node health status.
func (db *DB) UpdateNodeHealth(ctx context.Context, mac string, status models.HealthStatus) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE nodes SET health_status = ? WHERE mac = ?`, string(status), mac)
	return err
}

// TouchNodeContact records a device report: last contact time, the address
// the report came from, and online status.
func (db *DB) TouchNodeContact(ctx context.Context, mac, ip string, when time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE nodes SET last_contact = ?, ip = ?, status = ? WHERE mac = ?`,
		when, ip, string(models.StatusOnline), mac)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetRebootFlag sets or clears a node's reboot flag. The flag is delivered
// to the device on its next report and cleared then.
func (db *DB) SetRebootFlag(ctx context.Context, mac string, flag bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE nodes SET reboot_flag = ? WHERE mac = ?`, flag, mac)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumeRebootFlag atomically reads and clears the reboot flag, flipping a
// rebooting node's status. Returns whether the device should reboot.
func (db *DB) ConsumeRebootFlag(ctx context.Context, mac string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var flag bool
	err = tx.QueryRowContext(ctx, `SELECT reboot_flag FROM nodes WHERE mac = ? FOR UPDATE`, mac).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if flag {
		if _, err := tx.ExecContext(ctx,
			`UPDATE nodes SET reboot_flag = FALSE, status = ? WHERE mac = ?`,
			string(models.StatusRebooting), mac); err != nil {
			return false, err
		}
	}
	return flag, tx.Commit()
}

// DeleteNode removes a node.
func (db *DB) DeleteNode(ctx context.Context, mac string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM nodes WHERE mac = ?`, mac)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// NodeIPs returns the distinct non-empty node IPs, used to rebuild the
// Prometheus blackbox target list.
func (db *DB) NodeIPs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT ip FROM nodes WHERE ip <> '' ORDER BY ip`)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []string
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, err
		}
		out = append(out, ip)
	}
	return out, rows.Err()
}
