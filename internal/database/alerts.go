// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/inethi/manage-backend/internal/models"
)

const alertColumns = `id, level, status, title, text, node, mesh, created, modified`

func scanAlert(scan func(dest ...any) error) (*models.Alert, error) {
	var a models.Alert
	var node, mesh sql.NullString
	var level, status int
	err := scan(&a.ID, &level, &status, &a.Title, &a.Text, &node, &mesh, &a.Created, &a.Modified)
	if err != nil {
		return nil, err
	}
	a.Level = models.AlertLevel(level)
	a.Status = models.AlertStatus(status)
	a.Node = node.String
	a.Mesh = mesh.String
	return &a, nil
}

// InsertAlert saves a new alert and fills in its ID.
func (db *DB) InsertAlert(ctx context.Context, a *models.Alert) error {
	now := time.Now().UTC()
	if a.Created.IsZero() {
		a.Created = now
	}
	if a.Modified.IsZero() {
		a.Modified = now
	}
	if a.Status == 0 {
		a.Status = models.AlertNew
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO alerts (level, status, title, text, node, mesh, created, modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int(a.Level), int(a.Status), a.Title, a.Text,
		nullable(a.Node), nullable(a.Mesh), a.Created, a.Modified)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// UpdateAlert persists lifecycle transitions (upgrade, rename, resolve).
func (db *DB) UpdateAlert(ctx context.Context, a *models.Alert) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE alerts SET level = ?, status = ?, title = ?, text = ?, modified = ? WHERE id = ?`,
		int(a.Level), int(a.Status), a.Title, a.Text, a.Modified, a.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GetAlert fetches an alert by ID.
func (db *DB) GetAlert(ctx context.Context, id int64) (*models.Alert, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Mesh string
	Node string
	// Resolved: nil lists all, true only resolved, false only unresolved.
	Resolved *bool
}

// ListAlerts returns alerts newest first.
func (db *DB) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []any
	if f.Mesh != "" {
		query += ` AND mesh = ?`
		args = append(args, f.Mesh)
	}
	if f.Node != "" {
		query += ` AND node = ?`
		args = append(args, f.Node)
	}
	if f.Resolved != nil {
		if *f.Resolved {
			query += ` AND status = ?`
		} else {
			query += ` AND status <> ?`
		}
		args = append(args, int(models.AlertResolved))
	}
	query += ` ORDER BY created DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UnresolvedAlertsFor returns the unresolved alerts for one target, newest
// first. Mesh-level alerts are those with no node; node alerts are scoped
// to the node.
func (db *DB) UnresolvedAlertsFor(ctx context.Context, mesh, node string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE status <> ? AND mesh = ?`
	args := []any{int(models.AlertResolved), mesh}
	if node == "" {
		query += ` AND node IS NULL`
	} else {
		query += ` AND node = ?`
		args = append(args, node)
	}
	query += ` ORDER BY created DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
