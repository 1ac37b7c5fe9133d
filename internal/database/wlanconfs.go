// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/inethi/manage-backend/internal/models"
)

// CreateWlanConf inserts a wireless configuration for a mesh.
func (db *DB) CreateWlanConf(ctx context.Context, w *models.WlanConf) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO wlanconfs (mesh, name, passphrase, security, is_guest) VALUES (?, ?, ?, ?, ?)`,
		w.Mesh, w.Name, w.Passphrase, string(w.Security), w.IsGuest)
	if err != nil {
		return err
	}
	w.ID, err = res.LastInsertId()
	return err
}

// GetWlanConf fetches a wireless configuration by ID.
func (db *DB) GetWlanConf(ctx context.Context, id int64) (*models.WlanConf, error) {
	var w models.WlanConf
	var security string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, mesh, name, passphrase, security, is_guest FROM wlanconfs WHERE id = ?`, id).
		Scan(&w.ID, &w.Mesh, &w.Name, &w.Passphrase, &security, &w.IsGuest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Security = models.WlanConfSecurity(security)
	return &w, nil
}

// ListWlanConfs returns the wireless configurations of a mesh.
func (db *DB) ListWlanConfs(ctx context.Context, mesh string) ([]models.WlanConf, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, mesh, name, passphrase, security, is_guest FROM wlanconfs WHERE mesh = ? ORDER BY name`, mesh)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.WlanConf
	for rows.Next() {
		var w models.WlanConf
		var security string
		if err := rows.Scan(&w.ID, &w.Mesh, &w.Name, &w.Passphrase, &security, &w.IsGuest); err != nil {
			return nil, err
		}
		w.Security = models.WlanConfSecurity(security)
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWlanConf removes a wireless configuration.
func (db *DB) DeleteWlanConf(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM wlanconfs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
