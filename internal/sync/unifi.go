// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/models"
)

// A session ends when more than this passes between two 5-minute samples.
const sessionGap = 6 * time.Minute

// Bytes accumulated over a 5-minute window to bits per second.
const bytesPer5MinToBitsPerSec = 8.0 / (5 * 60)

// unifiMetricSink receives metric rows derived from controller stats.
type unifiMetricSink interface {
	InsertDataUsage(ctx context.Context, m *models.DataUsageMetric) error
	InsertDataRate(ctx context.Context, m *models.DataRateMetric) error
	InsertFailures(ctx context.Context, m *models.FailuresMetric) error
	InsertResources(ctx context.Context, m *models.ResourcesMetric) error
	LatestMetricTime(ctx context.Context, table, mac string) (time.Time, error)
}

// UniFi reconciles the local registry against a UniFi controller's
// MongoDB: sites become meshes, adopted devices become nodes, the ap
// stat rollups become metric rows and per-user 5-minute stats are
// stitched into client sessions.
type UniFi struct {
	client   *mongo.Client
	registry rdRegistry
	metrics  unifiMetricSink
}

// NewUniFi connects to the controller database.
func NewUniFi(ctx context.Context, cfg config.UniFiConfig, registry rdRegistry, sink unifiMetricSink) (*UniFi, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI()))
	if err != nil {
		return nil, fmt.Errorf("connecting to unifi mongodb: %w", err)
	}
	return &UniFi{client: client, registry: registry, metrics: sink}, nil
}

func (u *UniFi) Name() string { return "unifi" }

// Close disconnects from the controller database.
func (u *UniFi) Close(ctx context.Context) error { return u.client.Disconnect(ctx) }

func (u *UniFi) ace() *mongo.Database     { return u.client.Database("ace") }
func (u *UniFi) aceStat() *mongo.Database { return u.client.Database("ace_stat") }

// Sync imports sites, devices, stat rollups and client sessions.
func (u *UniFi) Sync(ctx context.Context) (database.SyncCounters, error) {
	var total database.SyncCounters

	steps := []struct {
		name string
		run  func(context.Context) (database.SyncCounters, error)
	}{
		{"sites", u.syncSites},
		{"devices", u.syncDevices},
		{"hourly_stats", u.syncHourlyStats},
		{"rates", u.syncRates},
		{"sessions", u.syncSessions},
	}
	for _, step := range steps {
		counters, err := step.run(ctx)
		total.Add(counters)
		if err != nil {
			return total, fmt.Errorf("unifi %s: %w", step.name, err)
		}
	}
	return total, nil
}

func (u *UniFi) syncSites(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	cursor, err := u.ace().Collection("site").Find(ctx, bson.M{})
	if err != nil {
		return c, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return c, err
		}
		name := docString(doc, "name")
		if name == "" {
			c.Skipped++
			continue
		}
		created, err := u.registry.EnsureMesh(ctx, name)
		if err != nil {
			return c, err
		}
		if created {
			c.Created++
		} else {
			c.Skipped++
		}
	}
	return c, cursor.Err()
}

func (u *UniFi) syncDevices(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	cursor, err := u.ace().Collection("device").Find(ctx, bson.M{})
	if err != nil {
		return c, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return c, err
		}
		mac := docString(doc, "mac")
		if mac == "" {
			c.Skipped++
			continue
		}
		node := &models.Node{
			MAC:      mac,
			Name:     u.deviceName(ctx, doc),
			Mesh:     strings.ToLower(docString(doc, "last_connection_network_name")),
			Hardware: docString(doc, "model"),
			IP:       docString(doc, "ip"),
			IsAP:     true,
		}
		if adopted, ok := docTimeMs(doc, "adopted_at"); ok {
			node.AdoptedAt = &adopted
		}
		created, err := u.registry.UpsertSyncedNode(ctx, node)
		if err != nil {
			return c, err
		}
		if created {
			c.Created++
		} else {
			c.Updated++
		}
	}
	return c, cursor.Err()
}

// deviceName prefers the name the AP was given at adoption; the device
// document itself only carries the model.
func (u *UniFi) deviceName(ctx context.Context, device bson.M) string {
	mac := docString(device, "mac")
	var event bson.M
	err := u.ace().Collection("event").
		FindOne(ctx, bson.M{"key": "EVT_AP_Adopted", "ap": mac}).
		Decode(&event)
	if err == nil {
		if name := docString(event, "ap_name"); name != "" {
			return name
		}
	}
	return docString(device, "model")
}

// syncHourlyStats fans one pass over ace_stat.stat_hourly out into usage,
// failure and resource rows. Only rows newer than what is already stored
// per device and family are imported.
func (u *UniFi) syncHourlyStats(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	cursor, err := u.aceStat().Collection("stat_hourly").Find(ctx, bson.M{"o": "ap"})
	if err != nil {
		return c, err
	}
	defer cursor.Close(ctx)

	usageSeen := newLatestCache(u.metrics, "data_usage_metrics")
	failuresSeen := newLatestCache(u.metrics, "failures_metrics")
	resourcesSeen := newLatestCache(u.metrics, "resources_metrics")

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return c, err
		}
		mac := docString(doc, "ap")
		stamp, ok := docTimeMs(doc, "time")
		if mac == "" || !ok {
			c.Skipped++
			continue
		}

		stored := false

		fresh, err := usageSeen.isNewer(ctx, mac, stamp)
		if err != nil {
			return c, err
		}
		if fresh {
			if err := u.metrics.InsertDataUsage(ctx, &models.DataUsageMetric{
				MAC:     mac,
				TxBytes: docInt64(doc, "tx_bytes"),
				RxBytes: docInt64(doc, "rx_bytes"),
				Created: stamp,
			}); err != nil {
				return c, err
			}
			stored = true
		}

		fresh, err = failuresSeen.isNewer(ctx, mac, stamp)
		if err != nil {
			return c, err
		}
		if fresh {
			failures := &models.FailuresMetric{
				MAC:       mac,
				TxPackets: docInt64(doc, "tx_packets"),
				RxPackets: docInt64(doc, "rx_packets"),
				Created:   stamp,
			}
			failures.TxDropped = docInt64Ptr(doc, "tx_dropped")
			failures.RxDropped = docInt64Ptr(doc, "rx_dropped")
			failures.TxErrors = docInt64Ptr(doc, "tx_failed")
			failures.RxErrors = docInt64Ptr(doc, "rx_failed")
			failures.TxRetries = docInt64Ptr(doc, "tx_retries")
			if err := u.metrics.InsertFailures(ctx, failures); err != nil {
				return c, err
			}
			stored = true
		}

		fresh, err = resourcesSeen.isNewer(ctx, mac, stamp)
		if err != nil {
			return c, err
		}
		if fresh {
			if err := u.metrics.InsertResources(ctx, &models.ResourcesMetric{
				MAC:     mac,
				Memory:  docFloat(doc, "mem"),
				CPU:     docFloat(doc, "cpu"),
				Created: stamp,
			}); err != nil {
				return c, err
			}
			stored = true
		}

		if stored {
			c.Created++
		} else {
			c.Skipped++
		}
	}
	return c, cursor.Err()
}

// syncRates derives bitrates from the client byte counters in the
// 5-minute ap rollups.
func (u *UniFi) syncRates(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	cursor, err := u.aceStat().Collection("stat_5minutes").Find(ctx, bson.M{"o": "ap"})
	if err != nil {
		return c, err
	}
	defer cursor.Close(ctx)

	seen := newLatestCache(u.metrics, "data_rate_metrics")
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return c, err
		}
		mac := docString(doc, "ap")
		stamp, ok := docTimeMs(doc, "time")
		if mac == "" || !ok {
			c.Skipped++
			continue
		}
		fresh, err := seen.isNewer(ctx, mac, stamp)
		if err != nil {
			return c, err
		}
		if !fresh {
			c.Skipped++
			continue
		}
		txRate := docFloat(doc, "client-tx_bytes") * bytesPer5MinToBitsPerSec
		rxRate := docFloat(doc, "client-rx_bytes") * bytesPer5MinToBitsPerSec
		if err := u.metrics.InsertDataRate(ctx, &models.DataRateMetric{
			MAC:     mac,
			TxRate:  &txRate,
			RxRate:  &rxRate,
			Created: stamp,
		}); err != nil {
			return c, err
		}
		c.Created++
	}
	return c, cursor.Err()
}

// syncSessions rebuilds client sessions from per-user 5-minute stats.
// The controller never stores sessions, only samples; consecutive samples
// for a user belong to one session until a gap longer than sessionGap.
func (u *UniFi) syncSessions(ctx context.Context) (database.SyncCounters, error) {
	var c database.SyncCounters
	stats := u.aceStat().Collection("stat_5minutes")

	userMACs, err := stats.Distinct(ctx, "user", bson.M{"o": "user"})
	if err != nil {
		return c, err
	}

	for _, raw := range userMACs {
		mac, ok := raw.(string)
		if !ok || mac == "" {
			continue
		}
		var user bson.M
		err := u.ace().Collection("user").FindOne(ctx, bson.M{"mac": mac}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.Skipped++
			continue
		}
		if err != nil {
			return c, err
		}

		samples, err := u.userSamples(ctx, stats, mac)
		if err != nil {
			return c, err
		}
		for _, session := range stitchSessions(mac, docString(user, "hostname"), samples) {
			if _, err := u.registry.GetNode(ctx, session.Uplink); errors.Is(err, database.ErrNotFound) {
				logging.Debug().Str("uplink", session.Uplink).Msg("Skipping session, uplink unknown")
				c.Skipped++
				continue
			} else if err != nil {
				return c, err
			}
			created, err := u.registry.UpsertClientSession(ctx, &session)
			if err != nil {
				return c, err
			}
			if created {
				c.Created++
			} else {
				c.Updated++
			}
		}
	}
	return c, nil
}

// userSample is one 5-minute stat row for a client.
type userSample struct {
	Time    time.Time
	APMAC   string
	TxBytes int64
	RxBytes int64
}

func (u *UniFi) userSamples(ctx context.Context, stats *mongo.Collection, mac string) ([]userSample, error) {
	cursor, err := stats.Find(ctx, bson.M{"o": "user", "user": mac},
		options.Find().SetSort(bson.D{{Key: "time", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []userSample
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		stamp, ok := docTimeMs(doc, "time")
		if !ok {
			continue
		}
		sample := userSample{
			Time:    stamp,
			TxBytes: docInt64(doc, "tx_bytes"),
			RxBytes: docInt64(doc, "rx_bytes"),
		}
		if aps, ok := doc["x-set-ap_macs"].(bson.A); ok && len(aps) > 0 {
			sample.APMAC, _ = aps[0].(string)
		}
		out = append(out, sample)
	}
	return out, cursor.Err()
}

// stitchSessions folds time-ordered samples into sessions. The start
// time, uplink and client MAC identify a session; bytes accumulate and
// the end time tracks the last sample seen.
func stitchSessions(mac, username string, samples []userSample) []models.ClientSession {
	var sessions []models.ClientSession
	var current *models.ClientSession

	for i, sample := range samples {
		if current == nil {
			end := sample.Time
			current = &models.ClientSession{
				MAC:       mac,
				Username:  username,
				Uplink:    sample.APMAC,
				StartTime: sample.Time,
				EndTime:   &end,
			}
		}
		current.BytesRecv += sample.RxBytes
		current.BytesSent += sample.TxBytes
		end := sample.Time
		current.EndTime = &end

		last := i == len(samples)-1
		if last || samples[i+1].Time.Sub(sample.Time) > sessionGap {
			sessions = append(sessions, *current)
			current = nil
		}
	}
	return sessions
}

// latestCache remembers the newest stored stamp per device for one metric
// table, priming each entry from the store on first use.
type latestCache struct {
	sink  unifiMetricSink
	table string
	seen  map[string]time.Time
}

func newLatestCache(sink unifiMetricSink, table string) *latestCache {
	return &latestCache{sink: sink, table: table, seen: make(map[string]time.Time)}
}

func (l *latestCache) isNewer(ctx context.Context, mac string, stamp time.Time) (bool, error) {
	latest, ok := l.seen[mac]
	if !ok {
		var err error
		latest, err = l.sink.LatestMetricTime(ctx, l.table, mac)
		if err != nil {
			return false, err
		}
		l.seen[mac] = latest
	}
	return stamp.After(latest), nil
}

// Mongo documents are loosely typed; these helpers tolerate the numeric
// type drift between controller versions.

func docString(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}

func docInt64(doc bson.M, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func docInt64Ptr(doc bson.M, key string) *int64 {
	if _, ok := doc[key]; !ok {
		return nil
	}
	v := docInt64(doc, key)
	return &v
}

func docFloat(doc bson.M, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// docTimeMs reads a millisecond epoch stamp.
func docTimeMs(doc bson.M, key string) (time.Time, bool) {
	ms := docInt64(doc, key)
	if ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}
