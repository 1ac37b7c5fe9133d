// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package promsync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const testPromYML = `global:
  scrape_interval: 15s
scrape_configs:
  - job_name: prometheus
    static_configs:
      - targets:
          - localhost:9090
  - job_name: blackbox
    metrics_path: /probe
    params:
      module:
        - icmp
    static_configs:
      - targets:
          - 10.0.0.1
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prometheus.yml")
	if err := os.WriteFile(path, []byte(testPromYML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readTargets(t *testing.T, path, job string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg promConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		t.Fatal(err)
	}
	for _, sc := range cfg.ScrapeConfigs {
		if sc.JobName == job {
			return sc.StaticConfigs[0].Targets
		}
	}
	t.Fatalf("no %q job", job)
	return nil
}

func TestMergeTargets(t *testing.T) {
	t.Run("adds new ips and keeps existing", func(t *testing.T) {
		path := writeTestConfig(t)
		added, err := MergeTargets(path, "blackbox", []string{"10.0.0.2", "10.0.0.3"})
		if err != nil {
			t.Fatal(err)
		}
		if added != 2 {
			t.Errorf("added = %d, want 2", added)
		}
		got := readTargets(t, path, "blackbox")
		want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
		if len(got) != len(want) {
			t.Fatalf("targets = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("targets = %v, want %v", got, want)
			}
		}
	})

	t.Run("deduplicates", func(t *testing.T) {
		path := writeTestConfig(t)
		added, err := MergeTargets(path, "blackbox", []string{"10.0.0.1", "10.0.0.1", ""})
		if err != nil {
			t.Fatal(err)
		}
		if added != 0 {
			t.Errorf("added = %d, want 0", added)
		}
	})

	t.Run("no-op leaves the file untouched", func(t *testing.T) {
		path := writeTestConfig(t)
		before, _ := os.ReadFile(path)
		if _, err := MergeTargets(path, "blackbox", []string{"10.0.0.1"}); err != nil {
			t.Fatal(err)
		}
		after, _ := os.ReadFile(path)
		if string(before) != string(after) {
			t.Error("file rewritten without changes")
		}
	})

	t.Run("other jobs survive the rewrite", func(t *testing.T) {
		path := writeTestConfig(t)
		if _, err := MergeTargets(path, "blackbox", []string{"10.0.0.9"}); err != nil {
			t.Fatal(err)
		}
		raw, _ := os.ReadFile(path)
		text := string(raw)
		for _, needle := range []string{"scrape_interval", "job_name: prometheus", "localhost:9090", "metrics_path: /probe", "icmp"} {
			if !strings.Contains(text, needle) {
				t.Errorf("rewritten config lost %q:\n%s", needle, text)
			}
		}
	})

	t.Run("missing job is an error", func(t *testing.T) {
		path := writeTestConfig(t)
		if _, err := MergeTargets(path, "nosuchjob", []string{"10.0.0.1"}); err == nil {
			t.Error("want error for missing job")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := MergeTargets(filepath.Join(t.TempDir(), "absent.yml"), "blackbox", nil); err == nil {
			t.Error("want error for missing file")
		}
	})
}
