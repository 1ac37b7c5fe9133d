// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package models

import (
	"net"
	"strings"
	"time"
)

// NodeStatus is the online status of a device.
//
// Reachability (ping) and online status are separate: a successful ping
// never by itself marks a node online, only a device report does. A failed
// ping marks a node offline unless it is rebooting.
type NodeStatus string

const (
	StatusUnknown   NodeStatus = "unknown"
	StatusOffline   NodeStatus = "offline"
	StatusOnline    NodeStatus = "online"
	StatusRebooting NodeStatus = "rebooting"
)

// Valid reports whether s is a recognized node status.
func (s NodeStatus) Valid() bool {
	switch s {
	case StatusUnknown, StatusOffline, StatusOnline, StatusRebooting:
		return true
	}
	return false
}

// Known hardware identifiers, as reported by RadiusDesk.
const (
	HardwareUbntACMesh = "ubnt_ac_mesh"  // Ubiquiti AC Mesh
	HardwareTPLinkEAP  = "tl_eap225_3_o" // TP-Link EAP225 v3 outdoor
)

// Node is a network device: either an AP (access point) that clients
// connect to, or a mesh node that routes traffic between other nodes.
// RadiusDesk keeps those in two separate tables; we fold them into one
// keyed on the MAC address, with IsAP distinguishing the two.
type Node struct {
	MAC          string       `json:"mac" validate:"required,mac"`
	Name         string       `json:"name" validate:"required,max=255"`
	Mesh         string       `json:"mesh,omitempty"`
	Description  string       `json:"description,omitempty"`
	Hardware     string       `json:"hardware,omitempty"`
	IP           string       `json:"ip,omitempty" validate:"omitempty,ip"`
	IsAP         bool         `json:"is_ap"`
	NASName      string       `json:"nas_name,omitempty"`
	Reachable    bool         `json:"reachable"`
	Status       NodeStatus   `json:"status"`
	HealthStatus HealthStatus `json:"health_status"`
	RebootFlag   bool         `json:"reboot_flag"`
	Lat          *float64     `json:"lat,omitempty"`
	Lon          *float64     `json:"lon,omitempty"`
	AdoptedAt    *time.Time   `json:"adopted_at,omitempty"`
	LastContact  *time.Time   `json:"last_contact,omitempty"`
	LastPing     *time.Time   `json:"last_ping,omitempty"`
	Created      time.Time    `json:"created"`
}

// Online reports whether the node's status is online.
func (n *Node) Online() bool {
	return n.Status == StatusOnline
}

// SetOnline sets the node status to online or offline.
func (n *Node) SetOnline(online bool) {
	if online {
		n.Status = StatusOnline
	} else {
		n.Status = StatusOffline
	}
}

// NormalizeMAC canonicalizes a MAC address to lowercase colon-separated
// form. RadiusDesk, UniFi and device reports disagree on separator and
// case; everything stored locally goes through this first.
func NormalizeMAC(mac string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(mac))
	if err != nil {
		return "", err
	}
	return strings.ToLower(hw.String()), nil
}

// UnknownNode is a device seen on the network (via RadiusDesk or a device
// report) that has no corresponding Node registration yet.
type UnknownNode struct {
	MAC         string     `json:"mac"`
	Name        string     `json:"name,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	FromIP      string     `json:"from_ip,omitempty"`
	Gateway     string     `json:"gateway,omitempty"`
	LastContact *time.Time `json:"last_contact,omitempty"`
	Created     time.Time  `json:"created"`
}

// NodeReport is the payload a device posts when it contacts the server.
// The reverse proxy on each node reports in periodically; the response
// tells the device whether it should reboot.
type NodeReport struct {
	MAC       string   `json:"mac" validate:"required"`
	IP        string   `json:"ip,omitempty" validate:"omitempty,ip"`
	Memory    *float64 `json:"memory,omitempty" validate:"omitempty,gte=0,lte=100"`
	CPU       *float64 `json:"cpu,omitempty" validate:"omitempty,gte=0,lte=100"`
	UptimeSec *int64   `json:"uptime,omitempty"`
}
