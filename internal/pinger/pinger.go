// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package pinger probes every registered node on a fixed interval and
// records the outcome: reachability flags and ping state on the node row,
// uptime and round trip time rows in the metric store.
//
// A failed round marks the node offline unless it is mid-reboot; a
// successful round only refreshes last_ping. Nodes come back online
// through their own status reports, not through ping replies, so a host
// that answers ICMP but whose services are dead never shows as online.
package pinger

import (
	"context"
	"sync"
	"time"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/events"
	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/metrics"
	"github.com/inethi/manage-backend/internal/models"
)

// NodeStore is the slice of the node registry the pinger needs.
type NodeStore interface {
	ListNodesWithIP(ctx context.Context) ([]models.Node, error)
	UpdateNodePingState(ctx context.Context, n *models.Node) error
}

// MetricStore receives the per-round uptime and rtt rows.
type MetricStore interface {
	InsertUptime(ctx context.Context, m *models.UptimeMetric) error
	InsertRTT(ctx context.Context, m *models.RTTMetric) error
}

// Publisher pushes node state changes onto the event bus.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Pinger runs ping rounds against all nodes that have an IP address.
type Pinger struct {
	nodes   NodeStore
	metrics MetricStore
	bus     Publisher
	prober  Prober

	interval    time.Duration
	concurrency int

	now func() time.Time
}

// New builds a Pinger from configuration. bus may be nil when no event
// consumers exist, as in one-shot CLI invocations.
func New(nodes NodeStore, store MetricStore, bus Publisher, cfg config.PingerConfig, interval time.Duration) *Pinger {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pinger{
		nodes:   nodes,
		metrics: store,
		bus:     bus,
		prober: &ExecProber{
			Count:   cfg.Count,
			Timeout: cfg.Timeout,
		},
		interval:    interval,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Serve runs ping rounds until the context is canceled. Implements
// suture.Service.
func (p *Pinger) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", p.interval).
		Int("concurrency", p.concurrency).
		Msg("Pinger started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.RunRound(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.RunRound(ctx)
		}
	}
}

func (p *Pinger) String() string { return "pinger" }

// RunRound probes every node with an IP once and persists the results.
func (p *Pinger) RunRound(ctx context.Context) {
	start := p.now()

	nodes, err := p.nodes.ListNodesWithIP(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Pinger failed to list nodes")
		return
	}
	if len(nodes) == 0 {
		metrics.RecordPingRound(p.now().Sub(start), 0, 0)
		return
	}

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, p.concurrency)
		mu        sync.Mutex
		reachable int
	)
	for i := range nodes {
		node := &nodes[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if p.pingNode(ctx, node) {
				mu.Lock()
				reachable++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	elapsed := p.now().Sub(start)
	metrics.RecordPingRound(elapsed, reachable, len(nodes))
	logging.Info().
		Int("nodes", len(nodes)).
		Int("reachable", reachable).
		Dur("elapsed", elapsed).
		Msg("Ping round complete")
}

// pingNode probes one node and writes its ping state and metric rows.
// Reports whether the node answered.
func (p *Pinger) pingNode(ctx context.Context, node *models.Node) bool {
	result, err := p.prober.Probe(ctx, hostOnly(node.IP))
	if err != nil {
		logging.Warn().Err(err).Str("mac", node.MAC).Str("ip", node.IP).Msg("Probe failed")
		metrics.RecordPingResult("error")
		return false
	}

	now := p.now().UTC()
	prevStatus, prevReachable := node.Status, node.Reachable

	node.Reachable = result.Reachable
	if result.Reachable {
		node.LastPing = &now
		metrics.RecordPingResult("reachable")
	} else {
		// A rebooting node is expected to drop pings; leave its status
		// alone so the report endpoint can flip it back to online.
		if node.Status != models.StatusRebooting {
			node.Status = models.StatusOffline
		}
		metrics.RecordPingResult("unreachable")
	}

	if err := p.nodes.UpdateNodePingState(ctx, node); err != nil {
		logging.Error().Err(err).Str("mac", node.MAC).Msg("Failed to store ping state")
		return result.Reachable
	}

	p.storeMetrics(ctx, node.MAC, result, now)

	if p.bus != nil && (node.Status != prevStatus || node.Reachable != prevReachable) {
		if err := p.bus.Publish(events.TopicNodeUpdated, events.NewNodeUpdated(node)); err != nil {
			logging.Warn().Err(err).Str("mac", node.MAC).Msg("Failed to publish node update")
		}
	}
	return result.Reachable
}

func (p *Pinger) storeMetrics(ctx context.Context, mac string, result ProbeResult, now time.Time) {
	uptime := &models.UptimeMetric{
		MAC:         mac,
		Reachable:   result.Reachable,
		Loss:        result.Lost,
		Granularity: models.GranularityRaw,
		Created:     now,
	}
	if err := p.metrics.InsertUptime(ctx, uptime); err != nil {
		logging.Error().Err(err).Str("mac", mac).Msg("Failed to store uptime metric")
	} else {
		metrics.MetricRowsStored.WithLabelValues("uptime").Inc()
	}

	if result.RTTAvg == nil {
		return
	}
	rtt := &models.RTTMetric{
		MAC:         mac,
		RTTMin:      result.RTTMin,
		RTTAvg:      result.RTTAvg,
		RTTMax:      result.RTTMax,
		Granularity: models.GranularityRaw,
		Created:     now,
	}
	if err := p.metrics.InsertRTT(ctx, rtt); err != nil {
		logging.Error().Err(err).Str("mac", mac).Msg("Failed to store rtt metric")
	} else {
		metrics.MetricRowsStored.WithLabelValues("rtt").Inc()
	}
}
