// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package metricsdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inethi/manage-backend/internal/logging"
	"github.com/inethi/manage-backend/internal/models"
)

// aggFn is the rollup statistic applied to a column when raw rows are
// folded into a coarser bucket.
type aggFn string

const (
	// aggSum preserves totals across rollups. Used for counters
	// (bytes, packets, loss).
	aggSum aggFn = "sum"
	// aggAvg is used for gauges (cpu, memory, rtt, rates). NULLs are
	// ignored, matching SQL AVG semantics.
	aggAvg aggFn = "avg"
	// aggMajority folds booleans: true when at least half of the
	// bucket's rows are true.
	aggMajority aggFn = "majority"
	// aggMin / aggMax keep the bucket extremes.
	aggMin aggFn = "min"
	aggMax aggFn = "max"
)

type aggColumn struct {
	name string
	fn   aggFn
}

// family describes one metric table and how each of its value columns
// aggregates.
type family struct {
	table   string
	columns []aggColumn
}

var families = []family{
	{"uptime_metrics", []aggColumn{
		{"reachable", aggMajority},
		{"loss", aggSum},
	}},
	{"rtt_metrics", []aggColumn{
		{"rtt_min", aggMin},
		{"rtt_avg", aggAvg},
		{"rtt_max", aggMax},
	}},
	{"resources_metrics", []aggColumn{
		{"memory", aggAvg},
		{"cpu", aggAvg},
	}},
	{"data_usage_metrics", []aggColumn{
		{"tx_bytes", aggSum},
		{"rx_bytes", aggSum},
	}},
	{"data_rate_metrics", []aggColumn{
		{"tx_rate", aggAvg},
		{"rx_rate", aggAvg},
	}},
	{"failures_metrics", []aggColumn{
		{"tx_packets", aggSum},
		{"rx_packets", aggSum},
		{"tx_dropped", aggSum},
		{"rx_dropped", aggSum},
		{"tx_retries", aggSum},
		{"tx_errors", aggSum},
		{"rx_errors", aggSum},
	}},
}

// sqlExpr renders the aggregate expression for one column.
func (c aggColumn) sqlExpr() string {
	switch c.fn {
	case aggSum:
		return fmt.Sprintf("COALESCE(SUM(%s), 0)", c.name)
	case aggAvg:
		return fmt.Sprintf("AVG(%s)", c.name)
	case aggMajority:
		return fmt.Sprintf("AVG(CASE WHEN %s THEN 1.0 ELSE 0.0 END) >= 0.5", c.name)
	case aggMin:
		return fmt.Sprintf("MIN(%s)", c.name)
	case aggMax:
		return fmt.Sprintf("MAX(%s)", c.name)
	default:
		return c.name
	}
}

// Aggregate rolls up all metric tables to the target granularity, consuming
// rows one level finer. Each (mac, bucket) pair produces a single aggregate
// row stamped at the bucket midpoint; the source rows are deleted in the
// same transaction. Counter totals are preserved and the operation is
// insensitive to the order hourly/daily/monthly rollups run in.
func (db *DB) Aggregate(ctx context.Context, toGran models.Granularity) error {
	if !toGran.Valid() || toGran == models.GranularityRaw {
		return fmt.Errorf("cannot aggregate to granularity %q", toGran)
	}
	start := time.Now()
	var total int64
	for _, fam := range families {
		n, err := db.aggregateFamily(ctx, fam, toGran)
		if err != nil {
			return fmt.Errorf("aggregating %s to %s: %w", fam.table, toGran, err)
		}
		total += n
	}
	logging.Info().
		Str("granularity", string(toGran)).
		Int64("rows_consumed", total).
		Dur("elapsed", time.Since(start)).
		Msg("Aggregated metrics")
	return nil
}

func (db *DB) aggregateFamily(ctx context.Context, fam family, toGran models.Granularity) (int64, error) {
	fromGran := toGran.Prev()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Every (mac, bucket) pair that has source rows.
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf("SELECT mac, created FROM %s WHERE granularity = ?", fam.table), string(fromGran))
	if err != nil {
		return 0, err
	}
	type bucketKey struct {
		mac    string
		bucket time.Time
	}
	buckets := make(map[bucketKey]struct{})
	var consumed int64
	for rows.Next() {
		var mac string
		var created time.Time
		if err := rows.Scan(&mac, &created); err != nil {
			closeQuietly(rows)
			return 0, err
		}
		buckets[bucketKey{mac, toGran.RoundDown(created.UTC())}] = struct{}{}
		consumed++
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return 0, err
	}
	closeQuietly(rows)

	if len(buckets) == 0 {
		return 0, nil
	}

	exprs := make([]string, len(fam.columns))
	names := make([]string, len(fam.columns))
	for i, col := range fam.columns {
		exprs[i] = col.sqlExpr()
		names[i] = col.name
	}
	insertStmt := fmt.Sprintf(
		"INSERT INTO %s (mac, %s, granularity, created) SELECT mac, %s, ?, ? FROM %s WHERE mac = ? AND granularity = ? AND created >= ? AND created < ? GROUP BY mac",
		fam.table, strings.Join(names, ", "), strings.Join(exprs, ", "), fam.table)
	deleteStmt := fmt.Sprintf(
		"DELETE FROM %s WHERE mac = ? AND granularity = ? AND created >= ? AND created < ?",
		fam.table)

	for key := range buckets {
		t0, t1 := key.bucket, toGran.Next(key.bucket)
		mid := toGran.Midpoint(key.bucket)
		if _, err := tx.ExecContext(ctx, insertStmt,
			string(toGran), mid, key.mac, string(fromGran), t0, t1); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, deleteStmt,
			key.mac, string(fromGran), t0, t1); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return consumed, nil
}
