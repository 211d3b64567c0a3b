package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/vitalsync/internal/models"
)

// InsertMetricSamples batch-inserts raw metric sample rows. Returns the number
// actually inserted (duplicate day/metric/source rows are overwritten so a
// re-sent export updates rather than duplicates).
func (db *DB) InsertMetricSamples(ctx context.Context, rows []models.MetricSampleRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO metric_samples (day, user_id, metric_name, source, qty)
VALUES `
	args := make([]any, 0, len(rows)*5)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 5
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5,
		))
		args = append(args, r.Day, r.UserID, r.MetricName, r.Source, r.Qty)
	}

	query += strings.Join(valueStrings, ",") +
		" ON CONFLICT (day, user_id, metric_name, source) DO UPDATE SET qty = EXCLUDED.qty"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting metric samples: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertSleepSamples batch-inserts raw nightly sleep sample rows, one per
// day/source pair.
func (db *DB) InsertSleepSamples(ctx context.Context, rows []models.SleepSampleRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO sleep_samples (day, user_id, source, total_minutes, deep_minutes, rem_minutes)
VALUES `
	args := make([]any, 0, len(rows)*6)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 6
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args, r.Day, r.UserID, r.Source, r.TotalMinutes, r.DeepMinutes, r.REMMinutes)
	}

	query += strings.Join(valueStrings, ",") +
		` ON CONFLICT (day, user_id, source) DO UPDATE
		  SET total_minutes = EXCLUDED.total_minutes,
		      deep_minutes = EXCLUDED.deep_minutes,
		      rem_minutes = EXCLUDED.rem_minutes`

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting sleep samples: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryMetricSamplesByName retrieves raw samples for one metric type with
// from <= day <= to. The data source layer fetches type by type so a single
// failing type can degrade to zero instead of aborting the whole sync.
func (db *DB) QueryMetricSamplesByName(ctx context.Context, userID int, metricName string, from, to time.Time) ([]models.MetricSampleRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT day, user_id, metric_name, source, qty
		 FROM metric_samples
		 WHERE user_id = $1 AND metric_name = $2 AND day >= $3 AND day <= $4
		 ORDER BY day ASC`,
		userID, metricName, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying %s samples: %w", metricName, err)
	}
	defer rows.Close()

	return scanMetricSampleRows(rows)
}

// QuerySleepSamples retrieves raw sleep samples with from <= day <= to.
func (db *DB) QuerySleepSamples(ctx context.Context, userID int, from, to time.Time) ([]models.SleepSampleRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT day, user_id, source, total_minutes, deep_minutes, rem_minutes
		 FROM sleep_samples
		 WHERE user_id = $1 AND day >= $2 AND day <= $3
		 ORDER BY day ASC`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying sleep samples: %w", err)
	}
	defer rows.Close()

	var result []models.SleepSampleRow
	for rows.Next() {
		var r models.SleepSampleRow
		if err := rows.Scan(&r.Day, &r.UserID, &r.Source, &r.TotalMinutes, &r.DeepMinutes, &r.REMMinutes); err != nil {
			return nil, fmt.Errorf("scanning sleep sample row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// EarliestSampleDay returns the day of the oldest raw sample for a user
// across both sample tables, or the zero time if the user has no data.
func (db *DB) EarliestSampleDay(ctx context.Context, userID int) (time.Time, error) {
	var earliest *time.Time
	err := db.Pool.QueryRow(ctx,
		`SELECT MIN(d) FROM (
			SELECT MIN(day) AS d FROM metric_samples WHERE user_id = $1
			UNION ALL
			SELECT MIN(day) FROM sleep_samples WHERE user_id = $1
		) sub`, userID,
	).Scan(&earliest)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying earliest sample: %w", err)
	}
	if earliest == nil {
		return time.Time{}, nil
	}
	return *earliest, nil
}

func scanMetricSampleRows(rows pgx.Rows) ([]models.MetricSampleRow, error) {
	var result []models.MetricSampleRow
	for rows.Next() {
		var r models.MetricSampleRow
		if err := rows.Scan(&r.Day, &r.UserID, &r.MetricName, &r.Source, &r.Qty); err != nil {
			return nil, fmt.Errorf("scanning metric sample row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
