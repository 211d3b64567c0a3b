package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored data.
type DataStats struct {
	TotalMetricSamples int64      `json:"total_metric_samples"`
	TotalSleepSamples  int64      `json:"total_sleep_samples"`
	TotalDayRollups    int64      `json:"total_day_rollups"`
	EarliestSample     *time.Time `json:"earliest_sample"`
	LatestSample       *time.Time `json:"latest_sample"`
	LastSyncedAt       *time.Time `json:"last_synced_at"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM metric_samples WHERE user_id = $1`, userID,
	).Scan(&stats.TotalMetricSamples)
	if err != nil {
		return nil, fmt.Errorf("counting metric samples: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sleep_samples WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSleepSamples)
	if err != nil {
		return nil, fmt.Errorf("counting sleep samples: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM daily_rollups WHERE user_id = $1`, userID,
	).Scan(&stats.TotalDayRollups)
	if err != nil {
		return nil, fmt.Errorf("counting day rollups: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT MIN(d), MAX(d) FROM (
			SELECT MIN(day) AS d FROM metric_samples WHERE user_id = $1
			UNION ALL
			SELECT MIN(day) FROM sleep_samples WHERE user_id = $1
			UNION ALL
			SELECT MAX(day) FROM metric_samples WHERE user_id = $1
			UNION ALL
			SELECT MAX(day) FROM sleep_samples WHERE user_id = $1
		) sub`, userID,
	).Scan(&stats.EarliestSample, &stats.LatestSample)
	if err != nil {
		return nil, fmt.Errorf("querying sample date range: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT last_processed_at FROM sync_cursors WHERE user_id = $1`, userID,
	).Scan(&stats.LastSyncedAt)
	if err != nil && err.Error() != "no rows in result set" {
		return nil, fmt.Errorf("querying cursor: %w", err)
	}

	return stats, nil
}
