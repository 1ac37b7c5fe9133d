// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package models

import "time"

// Granularity is the aggregation level of a metric row. Raw rows are
// written by the pinger and sync; the aggregator rolls them up through
// hourly, daily and monthly, deleting the finer rows as it goes.
type Granularity string

const (
	GranularityRaw     Granularity = "raw"
	GranularityHourly  Granularity = "hourly"
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// Valid reports whether g is a recognized granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityRaw, GranularityHourly, GranularityDaily, GranularityMonthly:
		return true
	}
	return false
}

// Prev returns the granularity one level finer, or raw for raw.
// Aggregation to granularity g always consumes rows at g.Prev().
func (g Granularity) Prev() Granularity {
	switch g {
	case GranularityMonthly:
		return GranularityDaily
	case GranularityDaily:
		return GranularityHourly
	case GranularityHourly:
		return GranularityRaw
	default:
		return GranularityRaw
	}
}

// RoundDown truncates t to the start of the bucket containing it.
// Monthly buckets follow the calendar, so they are not fixed-width.
func (g Granularity) RoundDown(t time.Time) time.Time {
	switch g {
	case GranularityMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case GranularityDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case GranularityHourly:
		return t.Truncate(time.Hour)
	default:
		return t
	}
}

// Next returns the start of the bucket after the one starting at t.
// t must already be bucket-aligned.
func (g Granularity) Next(t time.Time) time.Time {
	switch g {
	case GranularityMonthly:
		return t.AddDate(0, 1, 0)
	case GranularityDaily:
		return t.AddDate(0, 0, 1)
	case GranularityHourly:
		return t.Add(time.Hour)
	default:
		return t
	}
}

// Midpoint returns the middle of the bucket starting at t0. Aggregate rows
// are stamped at the bucket midpoint.
func (g Granularity) Midpoint(t0 time.Time) time.Time {
	return t0.Add(g.Next(t0).Sub(t0) / 2)
}

// UptimeMetric records reachability, gathered during periodic pings.
type UptimeMetric struct {
	MAC         string      `json:"mac"`
	Reachable   bool        `json:"reachable"`
	Loss        int         `json:"loss"` // packets lost in the ping round
	Granularity Granularity `json:"granularity"`
	Created     time.Time   `json:"created"`
}

// RTTMetric records round trip times, gathered during periodic pings.
// Values are in milliseconds.
type RTTMetric struct {
	MAC         string      `json:"mac"`
	RTTMin      *float64    `json:"rtt_min,omitempty"`
	RTTAvg      *float64    `json:"rtt_avg,omitempty"`
	RTTMax      *float64    `json:"rtt_max,omitempty"`
	Granularity Granularity `json:"granularity"`
	Created     time.Time   `json:"created"`
}

// ResourcesMetric records device memory and CPU usage percentages.
// RadiusDesk does not track CPU load, so CPU is -1 for synced rows.
type ResourcesMetric struct {
	MAC         string      `json:"mac"`
	Memory      float64     `json:"memory"`
	CPU         float64     `json:"cpu"`
	Granularity Granularity `json:"granularity"`
	Created     time.Time   `json:"created"`
}

// DataUsageMetric records bytes moved through a node.
type DataUsageMetric struct {
	MAC         string      `json:"mac"`
	TxBytes     int64       `json:"tx_bytes"`
	RxBytes     int64       `json:"rx_bytes"`
	Granularity Granularity `json:"granularity"`
	Created     time.Time   `json:"created"`
}

// DataRateMetric records transfer bitrates for a node.
type DataRateMetric struct {
	MAC         string      `json:"mac"`
	TxRate      *float64    `json:"tx_rate,omitempty"`
	RxRate      *float64    `json:"rx_rate,omitempty"`
	Granularity Granularity `json:"granularity"`
	Created     time.Time   `json:"created"`
}

// FailuresMetric records wifi transmission failures for a node.
type FailuresMetric struct {
	MAC         string      `json:"mac"`
	TxPackets   int64       `json:"tx_packets"`
	RxPackets   int64       `json:"rx_packets"`
	TxDropped   *int64      `json:"tx_dropped,omitempty"`
	RxDropped   *int64      `json:"rx_dropped,omitempty"`
	TxRetries   *int64      `json:"tx_retries,omitempty"`
	TxErrors    *int64      `json:"tx_errors,omitempty"`
	RxErrors    *int64      `json:"rx_errors,omitempty"`
	Granularity Granularity `json:"granularity"`
	Created     time.Time   `json:"created"`
}
