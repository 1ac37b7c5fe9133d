// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package database

import (
	"context"

	"github.com/inethi/manage-backend/internal/models"
)

// UpsertClientSession reconciles a session from accounting data. The
// (mac, start_time, uplink) triple identifies a session; byte counters,
// username and end time are refreshed on every sync round.
func (db *DB) UpsertClientSession(ctx context.Context, s *models.ClientSession) (created bool, err error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO client_sessions (mac, username, uplink, bytes_recv, bytes_sent, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
			username = VALUES(username), bytes_recv = VALUES(bytes_recv),
			bytes_sent = VALUES(bytes_sent), end_time = VALUES(end_time)`,
		s.MAC, s.Username, s.Uplink, s.BytesRecv, s.BytesSent, s.StartTime, s.EndTime)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SessionFilter narrows client session listings.
type SessionFilter struct {
	Username string
	Uplink   string
	// Open: nil lists all, true only sessions without an end time.
	Open  *bool
	Limit int
}

// ListClientSessions returns sessions newest first.
func (db *DB) ListClientSessions(ctx context.Context, f SessionFilter) ([]models.ClientSession, error) {
	query := `SELECT id, mac, username, uplink, bytes_recv, bytes_sent, start_time, end_time
		 FROM client_sessions WHERE 1=1`
	var args []any
	if f.Username != "" {
		query += ` AND username = ?`
		args = append(args, f.Username)
	}
	if f.Uplink != "" {
		query += ` AND uplink = ?`
		args = append(args, f.Uplink)
	}
	if f.Open != nil {
		if *f.Open {
			query += ` AND end_time IS NULL`
		} else {
			query += ` AND end_time IS NOT NULL`
		}
	}
	query += ` ORDER BY start_time DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.ClientSession
	for rows.Next() {
		var s models.ClientSession
		if err := rows.Scan(&s.ID, &s.MAC, &s.Username, &s.Uplink,
			&s.BytesRecv, &s.BytesSent, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UserUsageTotals rolls sessions up per user: session count and byte
// totals, heaviest users first.
func (db *DB) UserUsageTotals(ctx context.Context) ([]models.UserUsage, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT username, COUNT(*), COALESCE(SUM(bytes_recv), 0), COALESCE(SUM(bytes_sent), 0)
		 FROM client_sessions WHERE username <> ''
		 GROUP BY username
		 ORDER BY SUM(bytes_recv) + SUM(bytes_sent) DESC`)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.UserUsage
	for rows.Next() {
		var u models.UserUsage
		if err := rows.Scan(&u.Username, &u.Sessions, &u.BytesRecv, &u.BytesSent); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
