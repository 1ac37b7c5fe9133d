// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package events

import (
	"context"
	"testing"
	"time"

	"github.com/inethi/manage-backend/internal/models"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Subscribe(ctx, TopicNodeUpdated)
	if err != nil {
		t.Fatal(err)
	}

	node := &models.Node{
		MAC:          "6c:75:14:7d:65:d4",
		Mesh:         "testmesh",
		Status:       models.StatusOnline,
		HealthStatus: models.HealthOK,
		Reachable:    true,
	}
	if err := bus.Publish(TopicNodeUpdated, NewNodeUpdated(node)); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-msgs:
		var got NodeUpdatedEvent
		if err := Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		msg.Ack()
		if got.MAC != node.MAC || got.Mesh != "testmesh" || !got.Reachable {
			t.Errorf("event = %+v", got)
		}
		if got.EventID == "" || got.Timestamp.IsZero() {
			t.Error("event missing id or timestamp")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestBusTopicsAreIsolated(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alerts, err := bus.Subscribe(ctx, TopicAlertRaised)
	if err != nil {
		t.Fatal(err)
	}

	if err := bus.Publish(TopicSyncCompleted, NewSyncCompleted("radiusdesk", 1, 2, 3, nil)); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-alerts:
		t.Fatalf("alert subscriber received %q", string(msg.Payload))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusPublishAfterCloseIsNoop(t *testing.T) {
	bus := NewBus()
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(TopicAlertRaised, NewAlertRaised(&models.Alert{ID: 1})); err != nil {
		t.Errorf("publish after close = %v, want nil", err)
	}
}

func TestNewSyncCompletedCarriesError(t *testing.T) {
	e := NewSyncCompleted("unifi", 0, 0, 0, context.DeadlineExceeded)
	if e.Err == "" {
		t.Error("error not recorded")
	}
	if e.Source != "unifi" {
		t.Errorf("source = %q", e.Source)
	}
}
