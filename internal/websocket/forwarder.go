// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package websocket

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/inethi/manage-backend/internal/events"
	"github.com/inethi/manage-backend/internal/logging"
)

// Forwarder bridges the event bus onto the hub: node updates, sync
// completions and alerts become websocket messages scoped to their mesh.
type Forwarder struct {
	bus *events.Bus
	hub *Hub
}

// NewForwarder wires a bus to a hub.
func NewForwarder(bus *events.Bus, hub *Hub) *Forwarder {
	return &Forwarder{bus: bus, hub: hub}
}

// Run consumes bus topics until ctx is canceled. Designed to run under
// suture supervision alongside the hub.
func (f *Forwarder) Run(ctx context.Context) error {
	nodeMsgs, err := f.bus.Subscribe(ctx, events.TopicNodeUpdated)
	if err != nil {
		return err
	}
	syncMsgs, err := f.bus.Subscribe(ctx, events.TopicSyncCompleted)
	if err != nil {
		return err
	}
	alertMsgs, err := f.bus.Subscribe(ctx, events.TopicAlertRaised)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-nodeMsgs:
			if !ok {
				return nil
			}
			f.forwardNode(msg)
		case msg, ok := <-syncMsgs:
			if !ok {
				return nil
			}
			f.forwardSync(msg)
		case msg, ok := <-alertMsgs:
			if !ok {
				return nil
			}
			f.forwardAlert(msg)
		}
	}
}

func (f *Forwarder) forwardNode(msg *message.Message) {
	defer msg.Ack()
	var e events.NodeUpdatedEvent
	if err := events.Unmarshal(msg.Payload, &e); err != nil {
		logging.Warn().Err(err).Msg("Dropping undecodable node event")
		return
	}
	f.hub.Broadcast(MessageTypeNodeUpdate, e.Mesh, e)
}

func (f *Forwarder) forwardSync(msg *message.Message) {
	defer msg.Ack()
	var e events.SyncCompletedEvent
	if err := events.Unmarshal(msg.Payload, &e); err != nil {
		logging.Warn().Err(err).Msg("Dropping undecodable sync event")
		return
	}
	// Sync spans meshes; fan out to every client.
	f.hub.Broadcast(MessageTypeSyncCompleted, "", e)
}

func (f *Forwarder) forwardAlert(msg *message.Message) {
	defer msg.Ack()
	var e events.AlertRaisedEvent
	if err := events.Unmarshal(msg.Payload, &e); err != nil {
		logging.Warn().Err(err).Msg("Dropping undecodable alert event")
		return
	}
	f.hub.Broadcast(MessageTypeAlert, e.Mesh, e)
}
