// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package database

import (
	"context"
	"time"

	"github.com/inethi/manage-backend/internal/models"
)

// UpsertUnknownNode records or refreshes a sighting of an unregistered
// device. Returns true when the device was seen for the first time.
func (db *DB) UpsertUnknownNode(ctx context.Context, u *models.UnknownNode) (bool, error) {
	if u.Created.IsZero() {
		u.Created = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO unknown_nodes (mac, name, vendor, from_ip, gateway, last_contact, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
			name = VALUES(name), vendor = VALUES(vendor), from_ip = VALUES(from_ip),
			gateway = VALUES(gateway), last_contact = VALUES(last_contact)`,
		u.MAC, u.Name, u.Vendor, u.FromIP, u.Gateway, u.LastContact, u.Created)
	if err != nil {
		return false, err
	}
	// MySQL reports 1 affected row for an insert, 2 for a duplicate-key
	// update (with clientFoundRows, 2 covers the matched case as well).
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListUnknownNodes returns all unregistered device sightings, most
// recently contacted first.
func (db *DB) ListUnknownNodes(ctx context.Context) ([]models.UnknownNode, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT mac, name, vendor, from_ip, gateway, last_contact, created
		 FROM unknown_nodes ORDER BY last_contact DESC`)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.UnknownNode
	for rows.Next() {
		var u models.UnknownNode
		if err := rows.Scan(&u.MAC, &u.Name, &u.Vendor, &u.FromIP, &u.Gateway, &u.LastContact, &u.Created); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteUnknownNode drops a sighting, typically after the device has been
// registered as a proper node.
func (db *DB) DeleteUnknownNode(ctx context.Context, mac string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM unknown_nodes WHERE mac = ?`, mac)
	return err
}
