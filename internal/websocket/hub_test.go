// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/inethi/manage-backend/internal/events"
)

// fakeClient builds a client that is registered with the hub but has no
// real connection behind it; tests read from its send channel directly.
func fakeClient(t *testing.T, hub *Hub, mesh string) *Client {
	t.Helper()
	c := NewClient(hub, nil, mesh)
	hub.Register <- c
	return c
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubBroadcastScopedToMesh(t *testing.T) {
	hub, _ := startHub(t)

	inMesh := fakeClient(t, hub, "testmesh")
	otherMesh := fakeClient(t, hub, "othermesh")
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast(MessageTypeNodeUpdate, "testmesh", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"})

	select {
	case msg := <-inMesh.send:
		if msg.Type != MessageTypeNodeUpdate || msg.Mesh != "testmesh" {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mesh client received nothing")
	}

	select {
	case msg := <-otherMesh.send:
		t.Fatalf("other mesh client received %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastEmptyMeshReachesAll(t *testing.T) {
	hub, _ := startHub(t)

	a := fakeClient(t, hub, "mesh-a")
	b := fakeClient(t, hub, "mesh-b")
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast(MessageTypeSyncCompleted, "", map[string]int{"created": 3})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeSyncCompleted {
				t.Errorf("got %+v", msg)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("client received nothing")
		}
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	c := fakeClient(t, hub, "testmesh")
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	cancel()
	<-done

	if _, ok := <-c.send; ok {
		t.Error("send channel still open after shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestForwarderBridgesBusToHub(t *testing.T) {
	hub, _ := startHub(t)
	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fwd := NewForwarder(bus, hub)
	go func() { _ = fwd.Run(ctx) }()

	c := fakeClient(t, hub, "testmesh")
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	// Give the forwarder a moment to establish its subscriptions.
	time.Sleep(50 * time.Millisecond)

	e := events.AlertRaisedEvent{AlertID: 7, Title: "Node is offline", Mesh: "testmesh"}
	if err := bus.Publish(events.TopicAlertRaised, e); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-c.send:
		if msg.Type != MessageTypeAlert || msg.Mesh != "testmesh" {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("alert never reached the websocket hub")
	}
}
