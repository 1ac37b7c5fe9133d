// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package database is the default registry store: meshes, nodes, alerts,
// unknown nodes, client sessions and wireless configurations, persisted in
// the `manage` MySQL database. Metric rows live in internal/metricsdb.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/logging"
)

// DB wraps the MySQL connection and provides the registry repositories.
type DB struct {
	conn *sql.DB
}

// New connects to the registry database and bootstraps the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}

	conn.SetMaxOpenConns(16)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("pinging registry db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initializing registry schema: %w", err)
	}

	logging.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("Registry database connected")
	return db, nil
}

// Conn returns the underlying SQL connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks that the registry database is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("registry db connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close closes the registry database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS meshes (
			name VARCHAR(128) NOT NULL PRIMARY KEY,
			location VARCHAR(255) NOT NULL DEFAULT '',
			lat DOUBLE NOT NULL DEFAULT 0,
			lon DOUBLE NOT NULL DEFAULT 0,
			health_status VARCHAR(16) NOT NULL DEFAULT 'unknown',
			created DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS mesh_settings (
			mesh VARCHAR(128) NOT NULL PRIMARY KEY,
			alerts_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			check_rtt DOUBLE NULL,
			check_cpu DOUBLE NULL,
			check_mem DOUBLE NULL,
			check_active_sec BIGINT NULL,
			check_last_ping_sec BIGINT NULL,
			check_daily_data_usage DOUBLE NULL,
			check_hourly_data_usage DOUBLE NULL,
			CONSTRAINT fk_settings_mesh FOREIGN KEY (mesh) REFERENCES meshes (name) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			mac VARCHAR(17) NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			mesh VARCHAR(128) NULL,
			description VARCHAR(255) NOT NULL DEFAULT '',
			hardware VARCHAR(255) NOT NULL DEFAULT '',
			ip VARCHAR(255) NOT NULL DEFAULT '',
			is_ap BOOLEAN NOT NULL DEFAULT FALSE,
			nas_name VARCHAR(128) NOT NULL DEFAULT '',
			reachable BOOLEAN NOT NULL DEFAULT FALSE,
			status VARCHAR(16) NOT NULL DEFAULT 'unknown',
			health_status VARCHAR(16) NOT NULL DEFAULT 'unknown',
			reboot_flag BOOLEAN NOT NULL DEFAULT FALSE,
			lat DOUBLE NULL,
			lon DOUBLE NULL,
			adopted_at DATETIME NULL,
			last_contact DATETIME NULL,
			last_ping DATETIME NULL,
			created DATETIME NOT NULL,
			UNIQUE KEY uniq_nodes_name (name),
			KEY idx_nodes_mesh (mesh),
			CONSTRAINT fk_nodes_mesh FOREIGN KEY (mesh) REFERENCES meshes (name) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			level SMALLINT NOT NULL,
			status SMALLINT NOT NULL DEFAULT 1,
			title VARCHAR(100) NOT NULL,
			text TEXT NOT NULL,
			node VARCHAR(17) NULL,
			mesh VARCHAR(128) NULL,
			created DATETIME NOT NULL,
			modified DATETIME NOT NULL,
			KEY idx_alerts_node (node),
			KEY idx_alerts_mesh (mesh),
			KEY idx_alerts_status (status)
		)`,
		`CREATE TABLE IF NOT EXISTS unknown_nodes (
			mac VARCHAR(17) NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			vendor VARCHAR(255) NOT NULL DEFAULT '',
			from_ip VARCHAR(255) NOT NULL DEFAULT '',
			gateway VARCHAR(255) NOT NULL DEFAULT '',
			last_contact DATETIME NULL,
			created DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS client_sessions (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			mac VARCHAR(17) NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			uplink VARCHAR(17) NOT NULL,
			bytes_recv BIGINT NOT NULL DEFAULT 0,
			bytes_sent BIGINT NOT NULL DEFAULT 0,
			start_time DATETIME NOT NULL,
			end_time DATETIME NULL,
			UNIQUE KEY uniq_session (mac, start_time, uplink),
			KEY idx_sessions_username (username)
		)`,
		`CREATE TABLE IF NOT EXISTS wlanconfs (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			mesh VARCHAR(128) NOT NULL,
			name VARCHAR(32) NOT NULL,
			passphrase VARCHAR(100) NOT NULL DEFAULT '',
			security VARCHAR(6) NOT NULL,
			is_guest BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT fk_wlanconfs_mesh FOREIGN KEY (mesh) REFERENCES meshes (name) ON DELETE CASCADE
		)`,
	}

	for _, stmt := range schemas {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SyncCounters tallies the outcome of a bulk upsert for sync logging.
type SyncCounters struct {
	Created int
	Updated int
	Skipped int
}

// Add merges other into c.
func (c *SyncCounters) Add(other SyncCounters) {
	c.Created += other.Created
	c.Updated += other.Updated
	c.Skipped += other.Skipped
}

func closeQuietly(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Close failed")
	}
}
