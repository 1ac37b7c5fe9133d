// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

// Package promsync keeps the blackbox scrape targets in the operator's
// prometheus.yml aligned with the node registry. Targets are added by
// union and never removed automatically; operators prune by hand so a
// briefly-absent node does not lose its probe history.
package promsync

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/events"
	"github.com/inethi/manage-backend/internal/logging"
)

// TargetSource lists the IP addresses that should be probed.
// *database.DB satisfies it via NodeIPs.
type TargetSource interface {
	NodeIPs(ctx context.Context) ([]string, error)
}

// Syncer rewrites the blackbox job's static targets when nodes change.
type Syncer struct {
	cfg    config.PrometheusConfig
	source TargetSource
	bus    *events.Bus
}

// NewSyncer builds a target syncer.
func NewSyncer(cfg config.PrometheusConfig, source TargetSource, bus *events.Bus) *Syncer {
	return &Syncer{cfg: cfg, source: source, bus: bus}
}

// Run listens for node updates and resyncs targets on each. An initial
// sync runs at startup so a restored registry converges without traffic.
func (s *Syncer) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		<-ctx.Done()
		return ctx.Err()
	}

	if err := s.SyncOnce(ctx); err != nil {
		logging.Error().Err(err).Msg("Initial prometheus target sync failed")
	}

	msgs, err := s.bus.Subscribe(ctx, events.TopicNodeUpdated)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			msg.Ack()
			// Coalesce a burst of node updates into one rewrite.
			drained := true
			for drained {
				select {
				case extra, more := <-msgs:
					if !more {
						drained = false
						break
					}
					extra.Ack()
				default:
					drained = false
				}
			}
			if err := s.SyncOnce(ctx); err != nil {
				logging.Error().Err(err).Msg("Prometheus target sync failed")
			}
		}
	}
}

// SyncOnce reads the registry's node IPs and merges them into the config
// file's blackbox job.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	ips, err := s.source.NodeIPs(ctx)
	if err != nil {
		return fmt.Errorf("listing node ips: %w", err)
	}
	added, err := MergeTargets(s.cfg.ConfigPath, s.cfg.JobName, ips)
	if err != nil {
		return err
	}
	if added > 0 {
		logging.Info().Int("added", added).Str("path", s.cfg.ConfigPath).Msg("Prometheus targets updated")
	}
	return nil
}

// promConfig models just enough of prometheus.yml to edit scrape targets
// while round-tripping everything else untouched.
type promConfig struct {
	ScrapeConfigs []scrapeConfig `yaml:"scrape_configs"`
	Rest          map[string]any `yaml:",inline"`
}

type scrapeConfig struct {
	JobName       string         `yaml:"job_name"`
	StaticConfigs []staticConfig `yaml:"static_configs,omitempty"`
	Rest          map[string]any `yaml:",inline"`
}

type staticConfig struct {
	Targets []string       `yaml:"targets"`
	Rest    map[string]any `yaml:",inline"`
}

// MergeTargets unions ips into the named job's first static config and
// rewrites the file in place. Returns the number of targets added.
func MergeTargets(path, jobName string, ips []string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg promConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	jobIdx := -1
	for i := range cfg.ScrapeConfigs {
		if cfg.ScrapeConfigs[i].JobName == jobName {
			jobIdx = i
			break
		}
	}
	if jobIdx < 0 {
		return 0, fmt.Errorf("no %q job in %s", jobName, path)
	}
	job := &cfg.ScrapeConfigs[jobIdx]
	if len(job.StaticConfigs) == 0 {
		job.StaticConfigs = []staticConfig{{}}
	}

	existing := make(map[string]bool, len(job.StaticConfigs[0].Targets))
	for _, t := range job.StaticConfigs[0].Targets {
		existing[t] = true
	}

	added := 0
	for _, ip := range ips {
		if ip == "" || existing[ip] {
			continue
		}
		existing[ip] = true
		job.StaticConfigs[0].Targets = append(job.StaticConfigs[0].Targets, ip)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	sort.Strings(job.StaticConfigs[0].Targets)

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return 0, fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return added, nil
}
