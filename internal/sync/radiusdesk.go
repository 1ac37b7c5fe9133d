// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/models"
)

// RadiusDesk queries. Clouds map to meshes, nodes and aps both become
// nodes here. The radacct join goes through data_collectors because the
// calledstationid matches neither an ap nor an ap_station directly.
const (
	rdMeshesQuery = `SELECT c.name FROM clouds c`

	rdNodesQuery = `SELECT m.name, n.name, n.description, n.mac, n.hardware, n.ip, n.last_contact_from_ip
		FROM nodes n JOIN meshes m ON n.mesh_id = m.id`

	rdAPsQuery = `SELECT c.name, a.name, a.description, a.mac, a.hardware, NULL, a.last_contact_from_ip
		FROM aps a
		JOIN ap_profiles p ON a.ap_profile_id = p.id
		JOIN clouds c ON p.cloud_id = c.id`

	rdNodeStationsQuery = `SELECT n.mac, s.tx_bytes, s.rx_bytes, s.rx_bitrate, s.tx_bitrate,
			s.tx_packets, s.rx_packets, s.tx_failed, s.tx_retries, s.created
		FROM node_stations s JOIN nodes n ON s.node_id = n.id`

	rdAPStationsQuery = `SELECT a.mac, s.tx_bytes, s.rx_bytes, s.rx_bitrate, s.tx_bitrate,
			s.tx_packets, s.rx_packets, s.tx_failed, s.tx_retries, s.created
		FROM ap_stations s JOIN aps a ON s.ap_id = a.id`

	rdNodeLoadsQuery = `SELECT n.mac, l.mem_total, l.mem_free
		FROM node_loads l JOIN nodes n ON l.node_id = n.id`

	rdAPLoadsQuery = `SELECT a.mac, l.mem_total, l.mem_free
		FROM ap_loads l JOIN aps a ON l.ap_id = a.id`

	rdUnknownNodesQuery = `SELECT u.mac, u.vendor, u.from_ip, u.gateway, u.last_contact, u.created, u.name
		FROM unknown_nodes u`

	rdSessionsQuery = `SELECT r.username, ap.mac, r.acctstarttime, r.acctstoptime,
			r.acctinputoctets, r.acctoutputoctets, r.callingstationid
		FROM radacct r
		JOIN data_collectors d ON d.cp_mac = r.calledstationid
		JOIN aps ap ON ap.lan_ip = d.public_ip`
)

// rdRegistry is the slice of the local registry the RadiusDesk sync needs.
type rdRegistry interface {
	EnsureMesh(ctx context.Context, name string) (bool, error)
	GetNode(ctx context.Context, mac string) (*models.Node, error)
	UpsertSyncedNode(ctx context.Context, n *models.Node) (bool, error)
	UpsertUnknownNode(ctx context.Context, u *models.UnknownNode) (bool, error)
	UpsertClientSession(ctx context.Context, s *models.ClientSession) (bool, error)
}

// rdMetricSink receives the synced metric rows.
type rdMetricSink interface {
	InsertDataUsage(ctx context.Context, m *models.DataUsageMetric) error
	InsertDataRate(ctx context.Context, m *models.DataRateMetric) error
	InsertFailures(ctx context.Context, m *models.FailuresMetric) error
	InsertResources(ctx context.Context, m *models.ResourcesMetric) error
	HasDataUsageAt(ctx context.Context, mac string, created time.Time) (bool, error)
}

// RadiusDesk reconciles the local registry against a RadiusDesk MariaDB
// instance. It owns its connection pool; RadiusDesk stores naive local
// timestamps, so rows are parsed in the configured zone.
type RadiusDesk struct {
	conn     *sql.DB
	registry rdRegistry
	metrics  rdMetricSink
	loc      *time.Location
	now      func() time.Time
}

// NewRadiusDesk opens the upstream connection pool. The pool is small on
// purpose, sync is a single sequential reader.
func NewRadiusDesk(cfg config.RadiusDeskConfig, registry rdRegistry, sink rdMetricSink) (*RadiusDesk, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading radiusdesk timezone %q: %w", cfg.Timezone, err)
	}
	conn, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening radiusdesk connection: %w", err)
	}
	conn.SetMaxOpenConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &RadiusDesk{
		conn:     conn,
		registry: registry,
		metrics:  sink,
		loc:      loc,
		now:      time.Now,
	}, nil
}

func (r *RadiusDesk) Name() string { return "radiusdesk" }

// Close releases the upstream connection pool.
func (r *RadiusDesk) Close() error { return r.conn.Close() }

// Sync pulls meshes, nodes, unknown nodes, station metrics, loads and
// accounting sessions. Local nodes absent upstream are left alone; they
// may be re-added to RadiusDesk later.
func (r *RadiusDesk) Sync(ctx context.Context) (database.SyncCounters, error) {
	var total database.SyncCounters

	steps := []struct {
		name string
		run  func(context.Context) (database.SyncCounters, error)
	}{
		{"meshes", r.syncMeshes},
		{"nodes", r.syncNodes},
		{"unknown_nodes", r.syncUnknownNodes},
		{"stations", r.syncStations},
		{"loads", r.syncLoads},
		{"sessions", r.syncSessions},
	}
	for _, step := range steps {
		counters, err := step.run(ctx)
		total.Add(counters)
		if err != nil {
			return total, fmt.Errorf("radiusdesk %s: %w", step.name, err)
		}
	}
	return total, nil
}

func (r *RadiusDesk) syncMeshes(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	rows, err := r.conn.QueryContext(ctx, rdMeshesQuery)
	if err != nil {
		return c, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return c, err
		}
		created, err := r.registry.EnsureMesh(ctx, name)
		if err != nil {
			return c, err
		}
		if created {
			c.Created++
		} else {
			c.Skipped++
		}
	}
	return c, rows.Err()
}

func (r *RadiusDesk) syncNodes(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	for _, q := range []struct {
		query string
		isAP  bool
	}{
		{rdNodesQuery, false},
		{rdAPsQuery, true},
	} {
		counters, err := r.syncNodeRows(ctx, q.query, q.isAP)
		c.Add(counters)
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

func (r *RadiusDesk) syncNodeRows(ctx context.Context, query string, isAP bool) (database.SyncCounters, error) {
	var c database.SyncCounters
	rows, err := r.conn.QueryContext(ctx, query)
	if err != nil {
		return c, err
	}
	defer rows.Close()

	for rows.Next() {
		var mesh, name, mac string
		var description, hardware, ip, lastContactIP sql.NullString
		if err := rows.Scan(&mesh, &name, &description, &mac, &hardware, &ip, &lastContactIP); err != nil {
			return c, err
		}
		node := &models.Node{
			MAC:         mac,
			Name:        name,
			Mesh:        mesh,
			Description: description.String,
			Hardware:    hardware.String,
			IP:          ip.String,
			IsAP:        isAP,
		}
		// APs carry no static IP; fall back to where they last called from.
		if node.IP == "" {
			node.IP = lastContactIP.String
		}
		created, err := r.registry.UpsertSyncedNode(ctx, node)
		if err != nil {
			return c, err
		}
		if created {
			c.Created++
		} else {
			c.Updated++
		}
	}
	return c, rows.Err()
}

func (r *RadiusDesk) syncUnknownNodes(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	rows, err := r.conn.QueryContext(ctx, rdUnknownNodesQuery)
	if err != nil {
		return c, err
	}
	defer rows.Close()

	for rows.Next() {
		var mac string
		var vendor, fromIP, gateway, name sql.NullString
		var lastContact, created sql.NullString
		if err := rows.Scan(&mac, &vendor, &fromIP, &gateway, &lastContact, &created, &name); err != nil {
			return c, err
		}

		// A MAC that is already a proper node never becomes unknown.
		if _, err := r.registry.GetNode(ctx, mac); err == nil {
			c.Skipped++
			continue
		} else if !errors.Is(err, database.ErrNotFound) {
			return c, err
		}

		u := &models.UnknownNode{
			MAC:     mac,
			Name:    name.String,
			Vendor:  vendor.String,
			FromIP:  fromIP.String,
			Gateway: gateway.String,
		}
		if t, ok := r.parseNaive(lastContact); ok {
			u.LastContact = &t
		}
		if t, ok := r.parseNaive(created); ok {
			u.Created = t
		}
		wasCreated, err := r.registry.UpsertUnknownNode(ctx, u)
		if err != nil {
			return c, err
		}
		if wasCreated {
			c.Created++
		} else {
			c.Updated++
		}
	}
	return c, rows.Err()
}

// syncStations reads node_stations and ap_stations once each and fans the
// columns out into usage, rate and failure rows. Station rows carry their
// own created stamps, so the existing usage row at the same stamp marks a
// row as already imported.
func (r *RadiusDesk) syncStations(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	for _, query := range []string{rdNodeStationsQuery, rdAPStationsQuery} {
		counters, err := r.syncStationRows(ctx, query)
		c.Add(counters)
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

func (r *RadiusDesk) syncStationRows(ctx context.Context, query string) (database.SyncCounters, error) {
	var c database.SyncCounters
	rows, err := r.conn.QueryContext(ctx, query)
	if err != nil {
		return c, err
	}
	defer rows.Close()

	for rows.Next() {
		var mac string
		var txBytes, rxBytes, txPackets, rxPackets sql.NullInt64
		var txFailed, txRetries sql.NullInt64
		var rxBitrate, txBitrate sql.NullFloat64
		var created sql.NullString
		if err := rows.Scan(&mac, &txBytes, &rxBytes, &rxBitrate, &txBitrate,
			&txPackets, &rxPackets, &txFailed, &txRetries, &created); err != nil {
			return c, err
		}
		stamp, ok := r.parseNaive(created)
		if !ok {
			c.Skipped++
			continue
		}

		exists, err := r.metrics.HasDataUsageAt(ctx, mac, stamp)
		if err != nil {
			return c, err
		}
		if exists {
			c.Skipped++
			continue
		}

		if err := r.metrics.InsertDataUsage(ctx, &models.DataUsageMetric{
			MAC:     mac,
			TxBytes: txBytes.Int64,
			RxBytes: rxBytes.Int64,
			Created: stamp,
		}); err != nil {
			return c, err
		}
		rate := &models.DataRateMetric{MAC: mac, Created: stamp}
		if txBitrate.Valid {
			rate.TxRate = &txBitrate.Float64
		}
		if rxBitrate.Valid {
			rate.RxRate = &rxBitrate.Float64
		}
		if err := r.metrics.InsertDataRate(ctx, rate); err != nil {
			return c, err
		}
		failures := &models.FailuresMetric{
			MAC:       mac,
			TxPackets: txPackets.Int64,
			RxPackets: rxPackets.Int64,
			Created:   stamp,
		}
		if txFailed.Valid {
			failures.TxDropped = &txFailed.Int64
		}
		if txRetries.Valid {
			failures.TxRetries = &txRetries.Int64
		}
		if err := r.metrics.InsertFailures(ctx, failures); err != nil {
			return c, err
		}
		c.Created++
	}
	return c, rows.Err()
}

// syncLoads imports memory readings from node_loads and ap_loads. The
// upstream rows are unstamped snapshots, so each run stores one fresh row
// per device. RadiusDesk does not track CPU load; -1 marks that.
func (r *RadiusDesk) syncLoads(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	now := r.now().UTC()
	for _, query := range []string{rdNodeLoadsQuery, rdAPLoadsQuery} {
		rows, err := r.conn.QueryContext(ctx, query)
		if err != nil {
			return c, err
		}
		for rows.Next() {
			var mac string
			var memTotal, memFree sql.NullFloat64
			if err := rows.Scan(&mac, &memTotal, &memFree); err != nil {
				rows.Close()
				return c, err
			}
			if !memTotal.Valid || memTotal.Float64 <= 0 {
				c.Skipped++
				continue
			}
			if err := r.metrics.InsertResources(ctx, &models.ResourcesMetric{
				MAC:     mac,
				Memory:  memFree.Float64 / memTotal.Float64 * 100,
				CPU:     -1,
				Created: now,
			}); err != nil {
				rows.Close()
				return c, err
			}
			c.Created++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return c, err
		}
		rows.Close()
	}
	return c, nil
}

func (r *RadiusDesk) syncSessions(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	rows, err := r.conn.QueryContext(ctx, rdSessionsQuery)
	if err != nil {
		return c, err
	}
	defer rows.Close()

	for rows.Next() {
		var username, apMAC, clientMAC string
		var startTime, stopTime sql.NullString
		var bytesIn, bytesOut sql.NullInt64
		if err := rows.Scan(&username, &apMAC, &startTime, &stopTime, &bytesIn, &bytesOut, &clientMAC); err != nil {
			return c, err
		}

		if _, err := r.registry.GetNode(ctx, apMAC); errors.Is(err, database.ErrNotFound) {
			logging.Debug().Str("uplink", apMAC).Msg("Skipping session, uplink unknown")
			c.Skipped++
			continue
		} else if err != nil {
			return c, err
		}

		start, ok := r.parseNaive(startTime)
		if !ok {
			c.Skipped++
			continue
		}
		session := &models.ClientSession{
			MAC:       clientMAC,
			Username:  username,
			Uplink:    apMAC,
			BytesRecv: bytesIn.Int64,
			BytesSent: bytesOut.Int64,
			StartTime: start,
		}
		if end, ok := r.parseNaive(stopTime); ok {
			session.EndTime = &end
		}
		created, err := r.registry.UpsertClientSession(ctx, session)
		if err != nil {
			return c, err
		}
		if created {
			c.Created++
		} else {
			c.Updated++
		}
	}
	return c, rows.Err()
}

// parseNaive interprets an upstream DATETIME string in the RadiusDesk
// zone and converts it to UTC.
func (r *RadiusDesk) parseNaive(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s.String, r.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
