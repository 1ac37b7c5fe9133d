// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package sync pulls device inventory, usage metrics and client sessions
// from the upstream sources of truth: the RadiusDesk MariaDB instance and,
// when configured, a UniFi controller's MongoDB. Each source runs behind
// its own circuit breaker so a flapping upstream is skipped for a round
// instead of taking the whole sync service down with it.
package sync

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/events"
	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/metrics"
)

// Source is one upstream to reconcile against.
type Source interface {
	Name() string
	Sync(ctx context.Context) (database.SyncCounters, error)
}

// Publisher pushes sync outcomes onto the event bus.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Manager runs all configured sources on a shared interval.
type Manager struct {
	sources  []Source
	breakers map[string]*gobreaker.CircuitBreaker[database.SyncCounters]
	bus      Publisher
	interval time.Duration
}

// NewManager wires the sources behind per-source circuit breakers.
// bus may be nil.
func NewManager(sources []Source, bus Publisher, interval time.Duration) *Manager {
	m := &Manager{
		sources:  sources,
		breakers: make(map[string]*gobreaker.CircuitBreaker[database.SyncCounters], len(sources)),
		bus:      bus,
		interval: interval,
	}
	for _, src := range sources {
		name := src.Name()
		settings := gobreaker.Settings{
			Name:        "sync-" + name,
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     5 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(cbName string, from, to gobreaker.State) {
				logging.Warn().
					Str("breaker", cbName).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Sync circuit breaker state change")
				metrics.SetCircuitBreakerState(cbName, int(to))
			},
		}
		m.breakers[name] = gobreaker.NewCircuitBreaker[database.SyncCounters](settings)
	}
	return m
}

// Serve syncs all sources until the context is canceled. Implements
// suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	logging.Info().
		Int("sources", len(m.sources)).
		Dur("interval", m.interval).
		Msg("Sync manager started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.RunRound(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.RunRound(ctx)
		}
	}
}

func (m *Manager) String() string { return "sync-manager" }

// RunRound syncs every source once.
func (m *Manager) RunRound(ctx context.Context) {
	for _, src := range m.sources {
		if ctx.Err() != nil {
			return
		}
		m.runSource(ctx, src)
	}
}

func (m *Manager) runSource(ctx context.Context, src Source) {
	name := src.Name()
	start := time.Now()

	counters, err := m.breakers[name].Execute(func() (database.SyncCounters, error) {
		return src.Sync(ctx)
	})
	elapsed := time.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logging.Warn().Str("source", name).Msg("Sync skipped, circuit breaker open")
		return
	}

	metrics.RecordSync(name, elapsed, err)
	metrics.RecordSyncRows(name, "created", counters.Created)
	metrics.RecordSyncRows(name, "updated", counters.Updated)
	metrics.RecordSyncRows(name, "skipped", counters.Skipped)

	if err != nil {
		logging.Error().Err(err).Str("source", name).Dur("elapsed", elapsed).Msg("Sync failed")
	} else {
		logging.Info().
			Str("source", name).
			Int("created", counters.Created).
			Int("updated", counters.Updated).
			Int("skipped", counters.Skipped).
			Dur("elapsed", elapsed).
			Msg("Sync complete")
	}

	if m.bus != nil {
		event := events.NewSyncCompleted(name, counters.Created, counters.Updated, counters.Skipped, err)
		if pubErr := m.bus.Publish(events.TopicSyncCompleted, event); pubErr != nil {
			logging.Warn().Err(pubErr).Str("source", name).Msg("Failed to publish sync event")
		}
	}
}
