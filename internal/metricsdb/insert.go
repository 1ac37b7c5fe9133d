// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package metricsdb

import (
	"context"
	"time"

	"github.com/inethi/manage-backend/internal/models"
)

// Timestamps are stored naive in UTC; normalize on the way in so bucket
// boundaries line up regardless of the caller's zone.
func storedTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func gran(g models.Granularity) string {
	if !g.Valid() {
		return string(models.GranularityRaw)
	}
	return string(g)
}

// InsertUptime records one ping round result for a device.
func (db *DB) InsertUptime(ctx context.Context, m *models.UptimeMetric) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO uptime_metrics (mac, reachable, loss, granularity, created) VALUES (?, ?, ?, ?, ?)`,
		m.MAC, m.Reachable, m.Loss, gran(m.Granularity), storedTime(m.Created))
	return err
}

// InsertRTT records ping round trip times for a device.
func (db *DB) InsertRTT(ctx context.Context, m *models.RTTMetric) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO rtt_metrics (mac, rtt_min, rtt_avg, rtt_max, granularity, created) VALUES (?, ?, ?, ?, ?, ?)`,
		m.MAC, m.RTTMin, m.RTTAvg, m.RTTMax, gran(m.Granularity), storedTime(m.Created))
	return err
}

// InsertResources records device memory/CPU usage.
func (db *DB) InsertResources(ctx context.Context, m *models.ResourcesMetric) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO resources_metrics (mac, memory, cpu, granularity, created) VALUES (?, ?, ?, ?, ?)`,
		m.MAC, m.Memory, m.CPU, gran(m.Granularity), storedTime(m.Created))
	return err
}

// InsertDataUsage records byte counters for a device.
func (db *DB) InsertDataUsage(ctx context.Context, m *models.DataUsageMetric) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO data_usage_metrics (mac, tx_bytes, rx_bytes, granularity, created) VALUES (?, ?, ?, ?, ?)`,
		m.MAC, m.TxBytes, m.RxBytes, gran(m.Granularity), storedTime(m.Created))
	return err
}

// InsertDataRate records transfer bitrates for a device.
func (db *DB) InsertDataRate(ctx context.Context, m *models.DataRateMetric) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO data_rate_metrics (mac, tx_rate, rx_rate, granularity, created) VALUES (?, ?, ?, ?, ?)`,
		m.MAC, m.TxRate, m.RxRate, gran(m.Granularity), storedTime(m.Created))
	return err
}

// InsertFailures records wifi failure counters for a device.
func (db *DB) InsertFailures(ctx context.Context, m *models.FailuresMetric) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO failures_metrics (mac, tx_packets, rx_packets, tx_dropped, rx_dropped, tx_retries, tx_errors, rx_errors, granularity, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MAC, m.TxPackets, m.RxPackets, m.TxDropped, m.RxDropped, m.TxRetries, m.TxErrors, m.RxErrors,
		gran(m.Granularity), storedTime(m.Created))
	return err
}

// HasDataUsageAt reports whether a usage row already exists for the MAC at
// the exact timestamp. Sync uses this to keep re-imports idempotent, since
// RadiusDesk station rows carry their own created stamps.
func (db *DB) HasDataUsageAt(ctx context.Context, mac string, created time.Time) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM data_usage_metrics WHERE mac = ? AND created = ?`,
		mac, storedTime(created)).Scan(&n)
	return n > 0, err
}

// LatestMetricTime returns the newest row stamp for a MAC in the given
// table, or the zero time when none exist. Sync uses it to fetch only rows
// newer than what is already stored.
func (db *DB) LatestMetricTime(ctx context.Context, table, mac string) (time.Time, error) {
	if !knownTable(table) {
		return time.Time{}, errUnknownTable(table)
	}
	var ts *time.Time
	err := db.conn.QueryRowContext(ctx,
		"SELECT MAX(created) FROM "+table+" WHERE mac = ?", mac).Scan(&ts)
	if err != nil || ts == nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}
