// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inethi/manage-backend/internal/auth"
	appmw "github.com/inethi/manage-backend/internal/middleware"
)

// NewRouter assembles the full route tree. wsHandler serves the
// /ws/updates/{mesh} websocket and may be nil to disable it.
func NewRouter(h *Handlers, authMW *auth.Middleware, wsHandler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(appmw.RequestID)
	r.Use(appmw.Logger)
	r.Use(appmw.Prometheus)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	if wsHandler != nil {
		r.Get("/ws/updates/{mesh}", wsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(h.cfg.RateLimitReqs, h.cfg.RateLimitWindow))

		r.Get("/health", h.Health)
		r.Get("/health/live", h.Live)
		r.Get("/health/ready", h.Ready)

		// Device reports come from inside the network, before any
		// operator has credentials for the node.
		r.Post("/monitoring/nodes/{mac}/report", h.NodeReport)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)

			r.Get("/monitoring/overview", h.Overview)
			r.Get("/monitoring/meshes", h.ListMeshes)
			r.Get("/monitoring/meshes/{name}", h.GetMesh)
			r.Get("/monitoring/meshes/{name}/settings", h.GetMeshSettings)
			r.Get("/monitoring/nodes", h.ListNodes)
			r.Get("/monitoring/nodes/{mac}", h.GetNode)
			r.Get("/monitoring/nodes/{mac}/checks", h.NodeChecks)
			r.Get("/monitoring/unknown-nodes", h.ListUnknownNodes)
			r.Get("/monitoring/alerts", h.ListAlerts)
			r.Get("/monitoring/alerts/{id}", h.GetAlert)
			r.Get("/monitoring/wlanconfs", h.ListWlanConfs)
			r.Get("/monitoring/wlanconfs/{id}", h.GetWlanConf)

			r.Get("/metrics/uptime", h.QueryUptime)
			r.Get("/metrics/rtt", h.QueryRTT)
			r.Get("/metrics/resources", h.QueryResources)
			r.Get("/metrics/data-usage", h.QueryDataUsage)
			r.Get("/metrics/data-rate", h.QueryDataRate)
			r.Get("/metrics/failures", h.QueryFailures)

			r.Get("/radius/sessions", h.ListSessions)
			r.Get("/radius/usage", h.UserUsage)

			// Mutations need the admin realm role.
			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireAdmin)

				r.Post("/monitoring/meshes", h.CreateMesh)
				r.Put("/monitoring/meshes/{name}", h.UpdateMesh)
				r.Delete("/monitoring/meshes/{name}", h.DeleteMesh)
				r.Put("/monitoring/meshes/{name}/settings", h.UpdateMeshSettings)

				r.Post("/monitoring/nodes", h.CreateNode)
				r.Put("/monitoring/nodes/{mac}", h.UpdateNode)
				r.Delete("/monitoring/nodes/{mac}", h.DeleteNode)
				r.Post("/monitoring/nodes/{mac}/reboot", h.RebootNode)

				r.Post("/monitoring/alerts/{id}/resolve", h.ResolveAlert)

				r.Post("/monitoring/wlanconfs", h.CreateWlanConf)
				r.Delete("/monitoring/wlanconfs/{id}", h.DeleteWlanConf)
			})
		})
	})

	return r
}
