// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package models

import "time"

// ClientSession is a client device's connection to an uplink AP, synced
// from RadiusDesk accounting (radacct) or stitched from UniFi 5-minute
// user stats. MAC, start time and uplink uniquely identify a session.
type ClientSession struct {
	ID        int64      `json:"id"`
	MAC       string     `json:"mac"`
	Username  string     `json:"username,omitempty"`
	Uplink    string     `json:"uplink"` // MAC of the AP the client connected through
	BytesRecv int64      `json:"bytes_recv"`
	BytesSent int64      `json:"bytes_sent"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"` // nil while the session is open
}

// Duration returns the session length, using now for open sessions.
func (s *ClientSession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return end.Sub(s.StartTime)
}

// UserUsage is a per-user rollup of session byte counters.
type UserUsage struct {
	Username  string `json:"username"`
	Sessions  int    `json:"sessions"`
	BytesRecv int64  `json:"bytes_recv"`
	BytesSent int64  `json:"bytes_sent"`
}
