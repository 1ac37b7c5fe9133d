// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package services

import (
	"context"
	"time"

	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/models"
)

// Aggregator rolls raw metric rows up into coarser granularities.
// *metricsdb.DB satisfies it.
type Aggregator interface {
	Aggregate(ctx context.Context, toGran models.Granularity) error
}

// AggregationService periodically aggregates metrics to one
// granularity. The daily service additionally runs the monthly rollup,
// which piggybacks on the daily ticker and only fires once a calendar
// month boundary has passed.
type AggregationService struct {
	store       Aggregator
	gran        models.Granularity
	interval    time.Duration
	withMonthly bool

	lastMonthly time.Time
	now         func() time.Time
}

// NewAggregationService builds the hourly or daily aggregation ticker.
// Pass withMonthly on the daily service only.
func NewAggregationService(store Aggregator, gran models.Granularity, interval time.Duration, withMonthly bool) *AggregationService {
	return &AggregationService{
		store:       store,
		gran:        gran,
		interval:    interval,
		withMonthly: withMonthly,
		now:         time.Now,
	}
}

func (s *AggregationService) Serve(ctx context.Context) error {
	// Start the monthly clock at startup so the rollup waits for the
	// next month boundary instead of firing immediately.
	if s.lastMonthly.IsZero() {
		s.lastMonthly = s.now().UTC()
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

func (s *AggregationService) runOnce(ctx context.Context) {
	if err := s.store.Aggregate(ctx, s.gran); err != nil {
		logging.Error().Err(err).Str("granularity", string(s.gran)).Msg("Aggregation failed")
	}
	if s.withMonthly && s.monthlyDue() {
		if err := s.store.Aggregate(ctx, models.GranularityMonthly); err != nil {
			logging.Error().Err(err).Msg("Monthly aggregation failed")
			return
		}
		s.lastMonthly = s.now().UTC()
	}
}

// monthlyDue reports whether a calendar month boundary has passed since
// the last monthly rollup.
func (s *AggregationService) monthlyDue() bool {
	now := s.now().UTC()
	return now.Year() != s.lastMonthly.Year() || now.Month() != s.lastMonthly.Month()
}

func (s *AggregationService) String() string {
	return "aggregate-" + string(s.gran)
}
