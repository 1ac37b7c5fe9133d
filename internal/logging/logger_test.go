// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf, Timestamp: true})
	defer Init(DefaultConfig())

	Info().Str("mac", "aa:bb:cc:dd:ee:ff").Msg("device pinged")

	out := buf.String()
	if !strings.Contains(out, `"mac":"aa:bb:cc:dd:ee:ff"`) {
		t.Errorf("expected structured mac field, got %q", out)
	}
	if !strings.Contains(out, `"message":"device pinged"`) {
		t.Errorf("expected message field, got %q", out)
	}
}

func TestSetLoggerReplacesGlobal(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(orig)

	Warn().Msg("replaced")

	if !strings.Contains(buf.String(), "replaced") {
		t.Errorf("expected output via replaced logger, got %q", buf.String())
	}
}

func TestSlogBridge(t *testing.T) {
	t.Run("levels and attrs", func(t *testing.T) {
		var buf bytes.Buffer
		slogger := NewSlogLoggerWith(NewTestLogger(&buf))

		slogger.Info("service started", slog.String("service", "pinger"), slog.Int("interval", 300))

		out := buf.String()
		if !strings.Contains(out, `"level":"info"`) {
			t.Errorf("expected info level, got %q", out)
		}
		if !strings.Contains(out, `"service":"pinger"`) || !strings.Contains(out, `"interval":300`) {
			t.Errorf("expected attrs in output, got %q", out)
		}
	})

	t.Run("groups flatten to dotted keys", func(t *testing.T) {
		var buf bytes.Buffer
		slogger := NewSlogLoggerWith(NewTestLogger(&buf)).WithGroup("supervisor")

		slogger.Warn("service failed", slog.String("name", "sync"))

		if !strings.Contains(buf.String(), `"supervisor.name":"sync"`) {
			t.Errorf("expected dotted group key, got %q", buf.String())
		}
	})

	t.Run("enabled respects logger level", func(t *testing.T) {
		var buf bytes.Buffer
		slogger := NewSlogLoggerWith(NewTestLogger(&buf).Level(zerolog.ErrorLevel))

		slogger.Debug("invisible")
		if buf.Len() != 0 {
			t.Errorf("debug record should be suppressed, got %q", buf.String())
		}

		slogger.Error("visible")
		if !strings.Contains(buf.String(), "visible") {
			t.Errorf("error record should pass, got %q", buf.String())
		}
	})
}

func TestValidLevel(t *testing.T) {
	for _, ok := range []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "INFO"} {
		if !ValidLevel(ok) {
			t.Errorf("ValidLevel(%q) = false, want true", ok)
		}
	}
	for _, bad := range []string{"", "verbose", "quiet"} {
		if ValidLevel(bad) {
			t.Errorf("ValidLevel(%q) = true, want false", bad)
		}
	}
}
