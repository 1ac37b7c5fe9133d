// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package api is the HTTP surface of the backend: mesh, node, alert,
// wlanconf and session management, metric queries, device report
// ingestion and the health endpoints. All responses use the APIResponse
// envelope.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/metricsdb"
	"github.com/inethi/manage-backend/internal/models"
)

// Registry is the slice of the registry database the handlers need.
// *database.DB satisfies it.
type Registry interface {
	Ping(ctx context.Context) error

	CreateMesh(ctx context.Context, m *models.Mesh) error
	GetMesh(ctx context.Context, name string) (*models.Mesh, error)
	ListMeshes(ctx context.Context) ([]models.Mesh, error)
	UpdateMesh(ctx context.Context, m *models.Mesh) error
	DeleteMesh(ctx context.Context, name string) error
	GetMeshSettings(ctx context.Context, mesh string) (*models.MeshSettings, error)
	UpdateMeshSettings(ctx context.Context, s *models.MeshSettings) error

	CreateNode(ctx context.Context, n *models.Node) error
	GetNode(ctx context.Context, mac string) (*models.Node, error)
	ListNodes(ctx context.Context, mesh string) ([]models.Node, error)
	ListMeshMACs(ctx context.Context, mesh string) ([]string, error)
	UpdateNode(ctx context.Context, n *models.Node) error
	DeleteNode(ctx context.Context, mac string) error
	SetRebootFlag(ctx context.Context, mac string, flag bool) error
	ConsumeRebootFlag(ctx context.Context, mac string) (bool, error)
	TouchNodeContact(ctx context.Context, mac, ip string, when time.Time) error
	UpsertUnknownNode(ctx context.Context, u *models.UnknownNode) (bool, error)
	ListUnknownNodes(ctx context.Context) ([]models.UnknownNode, error)

	ListAlerts(ctx context.Context, f database.AlertFilter) ([]models.Alert, error)
	GetAlert(ctx context.Context, id int64) (*models.Alert, error)
	UpdateAlert(ctx context.Context, a *models.Alert) error

	ListClientSessions(ctx context.Context, f database.SessionFilter) ([]models.ClientSession, error)
	UserUsageTotals(ctx context.Context) ([]models.UserUsage, error)

	CreateWlanConf(ctx context.Context, w *models.WlanConf) error
	GetWlanConf(ctx context.Context, id int64) (*models.WlanConf, error)
	ListWlanConfs(ctx context.Context, mesh string) ([]models.WlanConf, error)
	DeleteWlanConf(ctx context.Context, id int64) error
}

// MetricStore is the slice of the metric store the handlers need.
// *metricsdb.DB satisfies it.
type MetricStore interface {
	Ping(ctx context.Context) error

	QueryUptime(ctx context.Context, f metricsdb.Filter) ([]models.UptimeMetric, error)
	QueryRTT(ctx context.Context, f metricsdb.Filter) ([]models.RTTMetric, error)
	QueryResources(ctx context.Context, f metricsdb.Filter) ([]models.ResourcesMetric, error)
	QueryDataUsage(ctx context.Context, f metricsdb.Filter) ([]models.DataUsageMetric, error)
	QueryDataRate(ctx context.Context, f metricsdb.Filter) ([]models.DataRateMetric, error)
	QueryFailures(ctx context.Context, f metricsdb.Filter) ([]models.FailuresMetric, error)

	InsertResources(ctx context.Context, m *models.ResourcesMetric) error
	LatestResources(ctx context.Context, mac string) (*models.ResourcesMetric, error)
	LatestRTT(ctx context.Context, mac string) (*models.RTTMetric, error)
}

// Publisher pushes node updates onto the event bus. May be nil.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Handlers carries the dependencies shared by all endpoint handlers.
type Handlers struct {
	registry Registry
	metrics  MetricStore
	bus      Publisher
	cfg      config.APIConfig
	checks   config.ChecksConfig
	validate *validator.Validate

	// Per-MAC report throttle state.
	reportMu   sync.Mutex
	lastReport map[string]time.Time

	now func() time.Time
}

// NewHandlers builds the handler set.
func NewHandlers(registry Registry, metrics MetricStore, bus Publisher, cfg config.APIConfig, checks config.ChecksConfig) *Handlers {
	return &Handlers{
		registry:   registry,
		metrics:    metrics,
		bus:        bus,
		cfg:        cfg,
		checks:     checks,
		validate:   validator.New(),
		lastReport: make(map[string]time.Time),
		now:        time.Now,
	}
}
