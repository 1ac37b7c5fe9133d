// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package services

import (
	"context"
	"time"

	"github.com/inethi/manage-backend/internal/logging"
)

// TickerService runs a function on a fixed interval. A failing run is
// logged and the next tick proceeds; only context cancellation stops
// the service. The alert engine runs under this wrapper.
type TickerService struct {
	name      string
	interval  time.Duration
	immediate bool
	run       func(ctx context.Context) error
}

// NewTickerService builds a ticker service. When immediate is set the
// first run happens at startup instead of after one full interval.
func NewTickerService(name string, interval time.Duration, immediate bool, run func(ctx context.Context) error) *TickerService {
	return &TickerService{name: name, interval: interval, immediate: immediate, run: run}
}

func (s *TickerService) Serve(ctx context.Context) error {
	if s.immediate {
		s.runOnce(ctx)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *TickerService) runOnce(ctx context.Context) {
	if err := s.run(ctx); err != nil {
		logging.Error().Err(err).Str("service", s.name).Msg("Scheduled run failed")
	}
}

func (s *TickerService) String() string { return s.name }
