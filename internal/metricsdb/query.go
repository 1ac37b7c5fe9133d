// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package metricsdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inethi/manage-backend/internal/models"
)

// Filter narrows metric queries. Zero values mean "no restriction".
// MAC and MACs are mutually exclusive; MACs supports mesh-wide queries
// (all node MACs of a mesh).
type Filter struct {
	MAC         string
	MACs        []string
	MinTime     time.Time
	Granularity models.Granularity
	Limit       int
}

func (f Filter) whereClause() (string, []any) {
	var conds []string
	var args []any

	switch {
	case f.MAC != "":
		conds = append(conds, "mac = ?")
		args = append(args, f.MAC)
	case len(f.MACs) > 0:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.MACs)), ", ")
		conds = append(conds, "mac IN ("+placeholders+")")
		for _, mac := range f.MACs {
			args = append(args, mac)
		}
	}
	if !f.MinTime.IsZero() {
		conds = append(conds, "created >= ?")
		args = append(args, f.MinTime.UTC())
	}
	if f.Granularity != "" {
		conds = append(conds, "granularity = ?")
		args = append(args, string(f.Granularity))
	}

	clause := ""
	if len(conds) > 0 {
		clause = " WHERE " + strings.Join(conds, " AND ")
	}
	clause += " ORDER BY created"
	if f.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return clause, args
}

// QueryUptime returns uptime metric rows matching the filter, oldest first.
func (db *DB) QueryUptime(ctx context.Context, f Filter) ([]models.UptimeMetric, error) {
	clause, args := f.whereClause()
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, reachable, loss, granularity, created FROM uptime_metrics"+clause, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.UptimeMetric
	for rows.Next() {
		var m models.UptimeMetric
		var g string
		if err := rows.Scan(&m.MAC, &m.Reachable, &m.Loss, &g, &m.Created); err != nil {
			return nil, err
		}
		m.Granularity = models.Granularity(g)
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryRTT returns RTT metric rows matching the filter, oldest first.
func (db *DB) QueryRTT(ctx context.Context, f Filter) ([]models.RTTMetric, error) {
	clause, args := f.whereClause()
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, rtt_min, rtt_avg, rtt_max, granularity, created FROM rtt_metrics"+clause, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.RTTMetric
	for rows.Next() {
		var m models.RTTMetric
		var g string
		if err := rows.Scan(&m.MAC, &m.RTTMin, &m.RTTAvg, &m.RTTMax, &g, &m.Created); err != nil {
			return nil, err
		}
		m.Granularity = models.Granularity(g)
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryResources returns resource metric rows matching the filter, oldest first.
func (db *DB) QueryResources(ctx context.Context, f Filter) ([]models.ResourcesMetric, error) {
	clause, args := f.whereClause()
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, memory, cpu, granularity, created FROM resources_metrics"+clause, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.ResourcesMetric
	for rows.Next() {
		var m models.ResourcesMetric
		var g string
		if err := rows.Scan(&m.MAC, &m.Memory, &m.CPU, &g, &m.Created); err != nil {
			return nil, err
		}
		m.Granularity = models.Granularity(g)
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryDataUsage returns data usage rows matching the filter, oldest first.
func (db *DB) QueryDataUsage(ctx context.Context, f Filter) ([]models.DataUsageMetric, error) {
	clause, args := f.whereClause()
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, tx_bytes, rx_bytes, granularity, created FROM data_usage_metrics"+clause, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.DataUsageMetric
	for rows.Next() {
		var m models.DataUsageMetric
		var g string
		if err := rows.Scan(&m.MAC, &m.TxBytes, &m.RxBytes, &g, &m.Created); err != nil {
			return nil, err
		}
		m.Granularity = models.Granularity(g)
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryDataRate returns data rate rows matching the filter, oldest first.
func (db *DB) QueryDataRate(ctx context.Context, f Filter) ([]models.DataRateMetric, error) {
	clause, args := f.whereClause()
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, tx_rate, rx_rate, granularity, created FROM data_rate_metrics"+clause, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.DataRateMetric
	for rows.Next() {
		var m models.DataRateMetric
		var g string
		if err := rows.Scan(&m.MAC, &m.TxRate, &m.RxRate, &g, &m.Created); err != nil {
			return nil, err
		}
		m.Granularity = models.Granularity(g)
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryFailures returns failure metric rows matching the filter, oldest first.
func (db *DB) QueryFailures(ctx context.Context, f Filter) ([]models.FailuresMetric, error) {
	clause, args := f.whereClause()
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, tx_packets, rx_packets, tx_dropped, rx_dropped, tx_retries, tx_errors, rx_errors, granularity, created FROM failures_metrics"+clause, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.FailuresMetric
	for rows.Next() {
		var m models.FailuresMetric
		var g string
		if err := rows.Scan(&m.MAC, &m.TxPackets, &m.RxPackets, &m.TxDropped, &m.RxDropped,
			&m.TxRetries, &m.TxErrors, &m.RxErrors, &g, &m.Created); err != nil {
			return nil, err
		}
		m.Granularity = models.Granularity(g)
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestResources returns the newest resource metric for a MAC, or nil.
// Health checks read cpu/memory from here.
func (db *DB) LatestResources(ctx context.Context, mac string) (*models.ResourcesMetric, error) {
	ms, err := db.queryLatestResources(ctx, mac)
	if err != nil || len(ms) == 0 {
		return nil, err
	}
	return &ms[0], nil
}

func (db *DB) queryLatestResources(ctx context.Context, mac string) ([]models.ResourcesMetric, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, memory, cpu, granularity, created FROM resources_metrics WHERE mac = ? ORDER BY created DESC LIMIT 1", mac)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	var out []models.ResourcesMetric
	for rows.Next() {
		var m models.ResourcesMetric
		var g string
		if err := rows.Scan(&m.MAC, &m.Memory, &m.CPU, &g, &m.Created); err != nil {
			return nil, err
		}
		m.Granularity = models.Granularity(g)
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestRTT returns the newest RTT metric for a MAC, or nil.
func (db *DB) LatestRTT(ctx context.Context, mac string) (*models.RTTMetric, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, rtt_min, rtt_avg, rtt_max, granularity, created FROM rtt_metrics WHERE mac = ? ORDER BY created DESC LIMIT 1", mac)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	if !rows.Next() {
		return nil, rows.Err()
	}
	var m models.RTTMetric
	var g string
	if err := rows.Scan(&m.MAC, &m.RTTMin, &m.RTTAvg, &m.RTTMax, &g, &m.Created); err != nil {
		return nil, err
	}
	m.Granularity = models.Granularity(g)
	return &m, rows.Err()
}

// LatestDataRate returns the newest rate metric with both rates set, or nil.
func (db *DB) LatestDataRate(ctx context.Context, mac string) (*models.DataRateMetric, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT mac, tx_rate, rx_rate, granularity, created FROM data_rate_metrics WHERE mac = ? AND tx_rate IS NOT NULL AND rx_rate IS NOT NULL ORDER BY created DESC LIMIT 1", mac)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	if !rows.Next() {
		return nil, rows.Err()
	}
	var m models.DataRateMetric
	var g string
	if err := rows.Scan(&m.MAC, &m.TxRate, &m.RxRate, &g, &m.Created); err != nil {
		return nil, err
	}
	m.Granularity = models.Granularity(g)
	return &m, rows.Err()
}

// SumDataUsage totals tx+rx bytes for the MACs in the window [t0, t1).
// Mesh-level data usage checks are built on this.
func (db *DB) SumDataUsage(ctx context.Context, macs []string, t0, t1 time.Time) (int64, error) {
	if len(macs) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(macs)), ", ")
	args := make([]any, 0, len(macs)+2)
	for _, mac := range macs {
		args = append(args, mac)
	}
	args = append(args, t0.UTC(), t1.UTC())

	var total *int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT SUM(tx_bytes) + SUM(rx_bytes) FROM data_usage_metrics WHERE mac IN ("+placeholders+") AND created >= ? AND created < ?",
		args...).Scan(&total)
	if err != nil || total == nil {
		return 0, err
	}
	return *total, nil
}

var validTables = map[string]bool{
	"uptime_metrics":     true,
	"rtt_metrics":        true,
	"resources_metrics":  true,
	"data_usage_metrics": true,
	"data_rate_metrics":  true,
	"failures_metrics":   true,
}

func knownTable(table string) bool {
	return validTables[table]
}

func errUnknownTable(table string) error {
	return fmt.Errorf("unknown metric table %q", table)
}
