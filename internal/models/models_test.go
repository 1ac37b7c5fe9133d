// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package models

import (
	"strings"
	"testing"
	"time"
)

func TestGranularityRoundDown(t *testing.T) {
	ts := time.Date(2024, 8, 22, 16, 45, 15, 0, time.UTC)

	tests := []struct {
		gran Granularity
		want time.Time
	}{
		{GranularityHourly, time.Date(2024, 8, 22, 16, 0, 0, 0, time.UTC)},
		{GranularityDaily, time.Date(2024, 8, 22, 0, 0, 0, 0, time.UTC)},
		{GranularityMonthly, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)},
		{GranularityRaw, ts},
	}

	for _, tt := range tests {
		t.Run(string(tt.gran), func(t *testing.T) {
			if got := tt.gran.RoundDown(ts); !got.Equal(tt.want) {
				t.Errorf("RoundDown(%v) = %v, want %v", ts, got, tt.want)
			}
		})
	}
}

func TestGranularityNextFollowsCalendar(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := GranularityMonthly.Next(jan); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("monthly Next(Jan 1) = %v, want Feb 1", got)
	}

	day := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	if got := GranularityDaily.Next(day); !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("daily Next(Feb 28) = %v, want Feb 29 (leap year)", got)
	}
}

func TestGranularityMidpoint(t *testing.T) {
	hour := time.Date(2024, 8, 22, 16, 0, 0, 0, time.UTC)
	if got := GranularityHourly.Midpoint(hour); !got.Equal(hour.Add(30 * time.Minute)) {
		t.Errorf("hourly Midpoint = %v, want 16:30", got)
	}
}

func TestGranularityPrev(t *testing.T) {
	chain := []Granularity{GranularityMonthly, GranularityDaily, GranularityHourly, GranularityRaw}
	for i := 0; i < len(chain)-1; i++ {
		if got := chain[i].Prev(); got != chain[i+1] {
			t.Errorf("%s.Prev() = %s, want %s", chain[i], got, chain[i+1])
		}
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"EC:27:2F:BF:12:1C", "ec:27:2f:bf:12:1c", false},
		{"ec-27-2f-bf-12-1c", "ec:27:2f:bf:12:1c", false},
		{" ec:27:2f:bf:12:1c ", "ec:27:2f:bf:12:1c", false},
		{"not-a-mac", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeMAC(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeMAC(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeMAC(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAlertTransitions(t *testing.T) {
	now := time.Date(2024, 8, 22, 12, 0, 0, 0, time.UTC)

	t.Run("upgrade adopts level and title", func(t *testing.T) {
		alert := &Alert{Level: LevelWarning, Status: AlertNew, Title: TitleHealthBad, Text: "original"}
		worse := &Alert{Level: LevelCritical, Title: TitleOffline, Text: TextOffline}

		alert.Upgrade(worse, now)

		if alert.Level != LevelCritical || alert.Title != TitleOffline {
			t.Errorf("upgrade did not adopt level/title: %+v", alert)
		}
		if alert.Status != AlertUpgraded {
			t.Errorf("status = %v, want upgraded", alert.Status)
		}
		if !strings.Contains(alert.Text, TextOffline) || !strings.Contains(alert.Text, "original") {
			t.Errorf("upgrade should prepend event and keep history, got %q", alert.Text)
		}
	})

	t.Run("rename records old and new title", func(t *testing.T) {
		alert := &Alert{Level: LevelError, Status: AlertNew, Title: TitleHealthBad, Text: "t"}
		other := &Alert{Level: LevelError, Title: TitleHealthCritical}

		alert.Rename(other, now)

		if alert.Title != TitleHealthCritical || alert.Status != AlertRenamed {
			t.Errorf("rename result: %+v", alert)
		}
		if !strings.Contains(alert.Text, "Renamed "+TitleHealthBad) {
			t.Errorf("rename should log the transition, got %q", alert.Text)
		}
	})

	t.Run("resolve is terminal", func(t *testing.T) {
		alert := &Alert{Level: LevelWarning, Status: AlertUpgraded, Title: TitleHealthBad, Text: "t"}
		alert.Resolve(now)

		if !alert.Resolved() {
			t.Error("alert should be resolved")
		}
		if !strings.Contains(alert.Text, "Resolved this alert") {
			t.Errorf("resolve should log an event, got %q", alert.Text)
		}
	})

	t.Run("events are timestamped", func(t *testing.T) {
		alert := &Alert{Level: LevelWarning, Title: TitleHealthBad, Text: "t"}
		alert.Resolve(now)

		if !strings.Contains(alert.Text, "_2024-08-22 12:00:00_") {
			t.Errorf("expected timestamp prefix, got %q", alert.Text)
		}
	})
}

func TestNodeOnline(t *testing.T) {
	n := &Node{Status: StatusUnknown}
	if n.Online() {
		t.Error("unknown node should not be online")
	}
	n.SetOnline(true)
	if n.Status != StatusOnline {
		t.Errorf("status = %v, want online", n.Status)
	}
	n.SetOnline(false)
	if n.Status != StatusOffline {
		t.Errorf("status = %v, want offline", n.Status)
	}
}

func TestSessionDuration(t *testing.T) {
	start := time.Date(2024, 8, 22, 10, 0, 0, 0, time.UTC)
	now := start.Add(45 * time.Minute)

	open := &ClientSession{StartTime: start}
	if got := open.Duration(now); got != 45*time.Minute {
		t.Errorf("open session duration = %v, want 45m", got)
	}

	end := start.Add(30 * time.Minute)
	closed := &ClientSession{StartTime: start, EndTime: &end}
	if got := closed.Duration(now); got != 30*time.Minute {
		t.Errorf("closed session duration = %v, want 30m", got)
	}
}
