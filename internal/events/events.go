// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package events is the in-process event bus. The pinger, sync workers and
// alert engine publish here; the WebSocket hub and the Prometheus target
// writer subscribe. Messages flow through Watermill's gochannel Pub/Sub, so
// slow subscribers never block publishers.
package events

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/inethi/manage-backend/internal/models"
)

// Topics. Subscribers pick the slice of the system they care about.
const (
	TopicNodeUpdated   = "node.updated"
	TopicSyncCompleted = "sync.completed"
	TopicAlertRaised   = "alert.raised"
)

// NodeUpdatedEvent is published whenever a node's observed state changes:
// a ping round touched it, a sync adopted it, or a device report came in.
type NodeUpdatedEvent struct {
	EventID      string              `json:"event_id"`
	MAC          string              `json:"mac"`
	Mesh         string              `json:"mesh,omitempty"`
	Status       models.NodeStatus   `json:"status"`
	HealthStatus models.HealthStatus `json:"health_status"`
	Reachable    bool                `json:"reachable"`
	Timestamp    time.Time           `json:"timestamp"`
}

// SyncCompletedEvent is published after a sync run against an upstream
// controller finishes.
type SyncCompletedEvent struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source"` // "radiusdesk", "unifi"
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Err       string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertRaisedEvent is published when the alert engine raises or escalates
// an alert.
type AlertRaisedEvent struct {
	EventID   string             `json:"event_id"`
	AlertID   int64              `json:"alert_id"`
	Level     models.AlertLevel  `json:"level"`
	Status    models.AlertStatus `json:"status"`
	Title     string             `json:"title"`
	Node      string             `json:"node,omitempty"`
	Mesh      string             `json:"mesh,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewNodeUpdated builds a node update event off the node's current state.
func NewNodeUpdated(node *models.Node) *NodeUpdatedEvent {
	return &NodeUpdatedEvent{
		EventID:      uuid.New().String(),
		MAC:          node.MAC,
		Mesh:         node.Mesh,
		Status:       node.Status,
		HealthStatus: node.HealthStatus,
		Reachable:    node.Reachable,
		Timestamp:    time.Now().UTC(),
	}
}

// NewSyncCompleted builds a sync completion event.
func NewSyncCompleted(source string, created, updated, skipped int, err error) *SyncCompletedEvent {
	e := &SyncCompletedEvent{
		EventID:   uuid.New().String(),
		Source:    source,
		Created:   created,
		Updated:   updated,
		Skipped:   skipped,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		e.Err = err.Error()
	}
	return e
}

// NewAlertRaised builds an alert event.
func NewAlertRaised(alert *models.Alert) *AlertRaisedEvent {
	return &AlertRaisedEvent{
		EventID:   uuid.New().String(),
		AlertID:   alert.ID,
		Level:     alert.Level,
		Status:    alert.Status,
		Title:     alert.Title,
		Node:      alert.Node,
		Mesh:      alert.Mesh,
		Timestamp: time.Now().UTC(),
	}
}

// Marshal encodes an event payload for the bus.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes an event payload.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
