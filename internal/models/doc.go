// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package models defines the data structures shared across the management
// backend: the device registry (meshes, nodes), the alert state machine,
// metric records with their aggregation granularities, and API envelopes.
//
// Registry state is persisted in the default MySQL database
// (internal/database); metric records live in the dedicated DuckDB metrics
// store (internal/metricsdb). Types here carry no persistence logic beyond
// small pure state transitions (e.g. Alert.Upgrade) so they can be exercised
// in tests without a database.
package models
