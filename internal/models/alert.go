// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package models

import (
	"fmt"
	"time"
)

// AlertLevel orders alert severity. Higher is worse.
type AlertLevel int

const (
	LevelWarning  AlertLevel = 1
	LevelError    AlertLevel = 2
	LevelCritical AlertLevel = 3
)

// String returns the human-readable level name.
func (l AlertLevel) String() string {
	switch l {
	case LevelWarning:
		return "Warning"
	case LevelError:
		return "Error"
	case LevelCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// AlertStatus tracks an alert through its lifecycle. An alert stays in the
// unresolved set until it reaches StatusResolved.
type AlertStatus int

const (
	AlertNew      AlertStatus = 1
	AlertUpgraded AlertStatus = 2
	AlertRenamed  AlertStatus = 3
	AlertResolved AlertStatus = 4
)

// String returns the human-readable status name.
func (s AlertStatus) String() string {
	switch s {
	case AlertNew:
		return "New"
	case AlertUpgraded:
		return "Upgraded"
	case AlertRenamed:
		return "Renamed"
	case AlertResolved:
		return "Resolved"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Alert titles and texts. Title identity matters: two alerts with the same
// level but different titles represent different conditions, which is what
// triggers the rename transition.
const (
	TitleOffline        = "Node is offline"
	TitleHealthBad      = "Node's health is bad"
	TitleHealthCritical = "Node's health is critical"

	TextOffline             = "The device is unreachable by ping"
	TextHealthChecksFailedF = "The following health checks failed: %s"
)

// Alert is a notification for network managers about a node or mesh in a
// bad state. Alerts escalate in place: a worse condition upgrades the
// latest unresolved alert rather than stacking a new row, and resolving is
// the only way out of the unresolved set.
//
// Node is empty for mesh-level alerts.
type Alert struct {
	ID       int64       `json:"id"`
	Level    AlertLevel  `json:"level"`
	Status   AlertStatus `json:"status"`
	Title    string      `json:"title"`
	Text     string      `json:"text"`
	Node     string      `json:"node,omitempty"`
	Mesh     string      `json:"mesh,omitempty"`
	Created  time.Time   `json:"created"`
	Modified time.Time   `json:"modified"`
}

// Resolved reports whether this alert has been resolved.
func (a *Alert) Resolved() bool {
	return a.Status == AlertResolved
}

// addEvent prepends a timestamped event line to the alert text.
func (a *Alert) addEvent(now time.Time, text string) {
	a.Text = fmt.Sprintf("_%s_ %s\n%s", now.UTC().Format("2006-01-02 15:04:05"), text, a.Text)
}

// Upgrade escalates this alert to the level and title of a worse one,
// appending the new alert's text as an event.
func (a *Alert) Upgrade(worse *Alert, now time.Time) {
	a.Level = worse.Level
	a.Title = worse.Title
	a.addEvent(now, worse.Text)
	a.Status = AlertUpgraded
	a.Modified = now
}

// Rename retitles this alert after an equally severe alert with a
// different cause.
func (a *Alert) Rename(other *Alert, now time.Time) {
	prev := a.Title
	a.Title = other.Title
	a.addEvent(now, fmt.Sprintf("Renamed %s -> %s", prev, other.Title))
	a.Status = AlertRenamed
	a.Modified = now
}

// Resolve marks this alert as resolved.
func (a *Alert) Resolve(now time.Time) {
	a.Status = AlertResolved
	a.addEvent(now, "Resolved this alert")
	a.Modified = now
}

// Message formats the alert as a notification string.
func (a *Alert) Message() string {
	text := fmt.Sprintf("*[%s %s]* %s", a.Status, a.Level, a.Title)
	if a.Node != "" {
		text += fmt.Sprintf("\nGenerated by node '%s'", a.Node)
	}
	return text + "\n" + a.Text
}
