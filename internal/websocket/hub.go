// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package websocket pushes live monitoring updates to browsers. Clients
// subscribe to one mesh at /ws/updates/{mesh}; node state changes, sync
// completions and alerts for that mesh are forwarded from the event bus.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/metrics"
)

// Message types sent to clients.
const (
	MessageTypeNodeUpdate    = "node_update"
	MessageTypeSyncCompleted = "sync_completed"
	MessageTypeAlert         = "alert"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
)

// Message is the envelope for everything sent over a connection.
type Message struct {
	Type string `json:"type"`
	Mesh string `json:"mesh,omitempty"`
	Data any    `json:"data"`
}

// Hub tracks connected clients and fans broadcasts out to them. Each
// client is scoped to one mesh; a broadcast with an empty mesh reaches
// everyone.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub. Run must be called before clients connect.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run services the hub until ctx is canceled, then closes every client.
// Designed to run under suture supervision.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			closed := h.closeAllClients()
			logging.Info().Int("clients_closed", closed).Msg("WebSocket hub stopped")
			return ctx.Err()

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnections.Set(float64(total))
			logging.Info().Str("mesh", client.mesh).Int("total_clients", total).Msg("WebSocket client connected")

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnections.Set(float64(total))
			logging.Info().Int("total_clients", total).Msg("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Broadcast queues a message for every client subscribed to its mesh.
// Never blocks; if the hub is saturated the message is dropped.
func (h *Hub) Broadcast(messageType, mesh string, data any) {
	message := Message{Type: messageType, Mesh: mesh, Data: data}
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("Broadcast channel full, dropping message")
	}
}

func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Stable iteration order keeps delivery reproducible in tests.
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if message.Mesh == "" || client.mesh == message.Mesh {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			// Send buffer full; the client is too slow to keep.
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
	return n
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
