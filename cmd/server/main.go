// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package main is the entry point for the iNethi management backend.
//
// The backend watches community network meshes: it pings nodes, pulls
// accounting and telemetry from RadiusDesk (MariaDB) and UniFi
// (MongoDB), evaluates health checks into alerts, keeps Prometheus
// blackbox targets in sync, and serves a REST API plus websocket
// updates for the frontend.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables, .env file and defaults (Koanf v2)
//  2. Registry database: MySQL/MariaDB holding meshes, nodes, alerts, sessions
//  3. Metric store: DuckDB holding time-series metrics and their rollups
//  4. Event bus: in-process Watermill pub/sub for node and alert events
//  5. Authentication: Keycloak OIDC token verification, or none for development
//  6. Supervisor tree: pinger, sync sources, alert engine, aggregation,
//     websocket hub and HTTP server under Suture supervision
//
// # Sync Sources
//
// Both upstream sources are optional and enabled independently:
//   - RadiusDesk: RADIUSDESK_ENABLED=true plus the MariaDB connection settings
//   - UniFi: UNIFI_ENABLED=true plus the MongoDB connection settings
//
// A per-source circuit breaker keeps a flapping upstream from burning
// every sync round.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, supervised services stop on context cancellation,
// and both databases are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/inethi/manage-backend/internal/api"
	"github.com/inethi/manage-backend/internal/auth"
	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/events"
	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/metrics"
	"github.com/inethi/manage-backend/internal/metricsdb"
	"github.com/inethi/manage-backend/internal/models"
	"github.com/inethi/manage-backend/internal/monitoring"
	"github.com/inethi/manage-backend/internal/pinger"
	"github.com/inethi/manage-backend/internal/promsync"
	"github.com/inethi/manage-backend/internal/supervisor"
	"github.com/inethi/manage-backend/internal/supervisor/services"
	"github.com/inethi/manage-backend/internal/sync"
	ws "github.com/inethi/manage-backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Keycloak.AuthMode).
		Bool("radiusdesk", cfg.RadiusDesk.Enabled).
		Bool("unifi", cfg.UniFi.Enabled).
		Msg("Starting iNethi management backend")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open registry database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing registry database")
		}
	}()

	mdb, err := metricsdb.New(&cfg.MetricsDB)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open metric store")
	}
	defer func() {
		if err := mdb.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing metric store")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	authenticator, err := auth.NewAuthenticator(ctx, &cfg.Keycloak)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Data layer: metric rollups. Monthly piggybacks on the daily ticker.
	tree.AddDataService(services.NewAggregationService(mdb, models.GranularityHourly, cfg.Schedule.AggregateHourly, false))
	tree.AddDataService(services.NewAggregationService(mdb, models.GranularityDaily, cfg.Schedule.AggregateDaily, true))

	// Monitoring layer: pinger, sync sources, alert engine, promsync.
	tree.AddMonitoringService(pinger.New(db, mdb, bus, cfg.Pinger, cfg.Schedule.PingInterval))

	var sources []sync.Source
	if cfg.RadiusDesk.Enabled {
		rd, err := sync.NewRadiusDesk(cfg.RadiusDesk, db, mdb)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize RadiusDesk sync")
		}
		defer func() {
			if err := rd.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing RadiusDesk connection")
			}
		}()
		sources = append(sources, rd)
	}
	if cfg.UniFi.Enabled {
		uf, err := sync.NewUniFi(ctx, cfg.UniFi, db, mdb)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize UniFi sync")
		}
		defer func() {
			if err := uf.Close(context.Background()); err != nil {
				logging.Error().Err(err).Msg("Error closing UniFi connection")
			}
		}()
		sources = append(sources, uf)
	}
	if len(sources) > 0 {
		tree.AddMonitoringService(sync.NewManager(sources, bus, cfg.Schedule.SyncInterval))
	} else {
		logging.Info().Msg("No sync sources enabled")
	}

	engine := monitoring.NewEngine(db, mdb, cfg.Checks)
	engine.OnAlert = func(alert models.Alert) {
		metrics.RecordAlertTransition("raised")
		if err := bus.Publish(events.TopicAlertRaised, events.NewAlertRaised(&alert)); err != nil {
			logging.Warn().Err(err).Int64("alert_id", alert.ID).Msg("Failed to publish alert event")
		}
	}
	tree.AddMonitoringService(services.NewTickerService("alert-engine", cfg.Schedule.AlertsInterval, true, engine.Run))

	// The syncer idles when Prometheus integration is disabled.
	tree.AddMonitoringService(services.NewRunnerService("promsync", promsync.NewSyncer(cfg.Prometheus, db, bus)))

	// Messaging layer: websocket hub plus the bus-to-hub forwarder.
	hub := ws.NewHub()
	tree.AddMessagingService(services.NewRunnerService("ws-hub", hub))
	tree.AddMessagingService(services.NewRunnerService("ws-forwarder", ws.NewForwarder(bus, hub)))

	// API layer.
	handlers := api.NewHandlers(db, mdb, bus, cfg.API, cfg.Checks)
	router := api.NewRouter(handlers, auth.NewMiddleware(authenticator, cfg.Keycloak.AdminRole), ws.ServeWS(hub))
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.Timeout))

	logging.Info().Str("addr", srv.Addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}
	logging.Info().Msg("Shutdown complete")
}
