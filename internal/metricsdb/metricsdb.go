// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package metricsdb is the dedicated metric store, backed by DuckDB.
//
// It holds only metric rows (one table per metric family); registry state
// lives in the default MySQL database. The pinger and the sync services
// write raw rows, the aggregator rolls them up to hourly, daily and
// monthly granularity, and the API reads filtered slices back out.
package metricsdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/logging"
)

// DB wraps the DuckDB connection for the metric store.
type DB struct {
	conn *sql.DB
	cfg  *config.MetricsDBConfig
}

// New opens (or creates) the metric store and initializes its schema.
func New(cfg *config.MetricsDBConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// The data directory may not exist on first boot.
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." && cfg.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating metrics db directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, cfg.MaxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening metrics db: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initializing metrics db schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Msg("Metrics store opened")
	return db, nil
}

// Conn returns the underlying SQL connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks that the store is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("metrics db connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints the WAL and closes the store.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint metrics db before close")
	}
	return db.conn.Close()
}

func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS uptime_metrics (
			mac VARCHAR NOT NULL,
			reachable BOOLEAN NOT NULL,
			loss INTEGER NOT NULL,
			granularity VARCHAR NOT NULL DEFAULT 'raw',
			created TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rtt_metrics (
			mac VARCHAR NOT NULL,
			rtt_min DOUBLE,
			rtt_avg DOUBLE,
			rtt_max DOUBLE,
			granularity VARCHAR NOT NULL DEFAULT 'raw',
			created TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS resources_metrics (
			mac VARCHAR NOT NULL,
			memory DOUBLE NOT NULL,
			cpu DOUBLE NOT NULL,
			granularity VARCHAR NOT NULL DEFAULT 'raw',
			created TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS data_usage_metrics (
			mac VARCHAR NOT NULL,
			tx_bytes BIGINT NOT NULL,
			rx_bytes BIGINT NOT NULL,
			granularity VARCHAR NOT NULL DEFAULT 'raw',
			created TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS data_rate_metrics (
			mac VARCHAR NOT NULL,
			tx_rate DOUBLE,
			rx_rate DOUBLE,
			granularity VARCHAR NOT NULL DEFAULT 'raw',
			created TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS failures_metrics (
			mac VARCHAR NOT NULL,
			tx_packets BIGINT NOT NULL,
			rx_packets BIGINT NOT NULL,
			tx_dropped BIGINT,
			rx_dropped BIGINT,
			tx_retries BIGINT,
			tx_errors BIGINT,
			rx_errors BIGINT,
			granularity VARCHAR NOT NULL DEFAULT 'raw',
			created TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range schemas {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_uptime_mac_created ON uptime_metrics (mac, created)`,
		`CREATE INDEX IF NOT EXISTS idx_rtt_mac_created ON rtt_metrics (mac, created)`,
		`CREATE INDEX IF NOT EXISTS idx_resources_mac_created ON resources_metrics (mac, created)`,
		`CREATE INDEX IF NOT EXISTS idx_data_usage_mac_created ON data_usage_metrics (mac, created)`,
		`CREATE INDEX IF NOT EXISTS idx_data_rate_mac_created ON data_rate_metrics (mac, created)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_mac_created ON failures_metrics (mac, created)`,
	}
	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// RowCounts returns the number of rows per metric table, used for the
// metric-store gauges exposed to Prometheus.
func (db *DB) RowCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(families))
	for _, fam := range families {
		var n int64
		// Table names come from the static family list, not user input.
		row := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+fam.table)
		if err := row.Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", fam.table, err)
		}
		counts[fam.table] = n
	}
	return counts, nil
}

func closeQuietly(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Close failed")
	}
}
