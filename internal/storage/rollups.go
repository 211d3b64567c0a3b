package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/vitalsync/internal/models"
)

// bundleColumns is the shared column list for all four rollup tables, in the
// order bundleArgs and scanBundle use.
const bundleColumns = `steps, cycling_m, walking_m, running_m, swimming_m,
	xc_ski_m, downhill_ski_m, swim_strokes, active_kcal, resting_kcal,
	heartbeats, flights_climbed, exercise_min, stand_min,
	sleep_total_min, sleep_deep_min, sleep_rem_min`

// bundleUpdateSet is the DO UPDATE clause shared by the rollup upserts.
const bundleUpdateSet = `steps = EXCLUDED.steps, cycling_m = EXCLUDED.cycling_m,
	walking_m = EXCLUDED.walking_m, running_m = EXCLUDED.running_m,
	swimming_m = EXCLUDED.swimming_m, xc_ski_m = EXCLUDED.xc_ski_m,
	downhill_ski_m = EXCLUDED.downhill_ski_m, swim_strokes = EXCLUDED.swim_strokes,
	active_kcal = EXCLUDED.active_kcal, resting_kcal = EXCLUDED.resting_kcal,
	heartbeats = EXCLUDED.heartbeats, flights_climbed = EXCLUDED.flights_climbed,
	exercise_min = EXCLUDED.exercise_min, stand_min = EXCLUDED.stand_min,
	sleep_total_min = EXCLUDED.sleep_total_min, sleep_deep_min = EXCLUDED.sleep_deep_min,
	sleep_rem_min = EXCLUDED.sleep_rem_min, recorded_at = EXCLUDED.recorded_at`

func bundleArgs(b models.MetricBundle) []any {
	return []any{
		b.Steps, b.CyclingMeters, b.WalkingMeters, b.RunningMeters, b.SwimmingMeters,
		b.CrossCountrySkiMeters, b.DownhillSkiMeters, b.SwimStrokes,
		b.ActiveKilocalories, b.RestingKilocalories, b.Heartbeats, b.FlightsClimbed,
		b.ExerciseMinutes, b.StandMinutes,
		b.SleepTotalMinutes, b.SleepDeepMinutes, b.SleepREMMinutes,
	}
}

func bundleDests(b *models.MetricBundle) []any {
	return []any{
		&b.Steps, &b.CyclingMeters, &b.WalkingMeters, &b.RunningMeters, &b.SwimmingMeters,
		&b.CrossCountrySkiMeters, &b.DownhillSkiMeters, &b.SwimStrokes,
		&b.ActiveKilocalories, &b.RestingKilocalories, &b.Heartbeats, &b.FlightsClimbed,
		&b.ExerciseMinutes, &b.StandMinutes,
		&b.SleepTotalMinutes, &b.SleepDeepMinutes, &b.SleepREMMinutes,
	}
}

const bundlePlaceholders = "$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20"

// UpsertDay writes a day rollup record, overwriting an existing one for the
// same (user, day) key.
func (db *DB) UpsertDay(ctx context.Context, rec models.DayRecord) error {
	args := append([]any{rec.UserID, rec.Day, rec.RecordedAt}, bundleArgs(rec.Bundle)...)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO daily_rollups (user_id, day, recorded_at, `+bundleColumns+`)
		 VALUES ($1,$2,$3,`+bundlePlaceholders+`)
		 ON CONFLICT (user_id, day) DO UPDATE SET `+bundleUpdateSet,
		args...)
	if err != nil {
		return fmt.Errorf("%w: upserting day %s: %v", ErrWriteFailed, rec.Day.Format("2006-01-02"), err)
	}
	return nil
}

// UpsertWeek writes a week rollup record keyed by (user, week start).
func (db *DB) UpsertWeek(ctx context.Context, rec models.WeekRecord) error {
	args := append([]any{rec.UserID, rec.WeekStart, rec.RecordedAt}, bundleArgs(rec.Bundle)...)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO weekly_rollups (user_id, week_start, recorded_at, `+bundleColumns+`)
		 VALUES ($1,$2,$3,`+bundlePlaceholders+`)
		 ON CONFLICT (user_id, week_start) DO UPDATE SET `+bundleUpdateSet,
		args...)
	if err != nil {
		return fmt.Errorf("%w: upserting week %s: %v", ErrWriteFailed, rec.WeekStart.Format("2006-01-02"), err)
	}
	return nil
}

// UpsertMonth writes a month rollup record keyed by (user, year, month).
func (db *DB) UpsertMonth(ctx context.Context, rec models.MonthRecord) error {
	args := append([]any{rec.UserID, rec.Month.Year, int(rec.Month.Month), rec.RecordedAt}, bundleArgs(rec.Bundle)...)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO monthly_rollups (user_id, year, month, recorded_at, `+bundleColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		 ON CONFLICT (user_id, year, month) DO UPDATE SET `+bundleUpdateSet,
		args...)
	if err != nil {
		return fmt.Errorf("%w: upserting month %d-%02d: %v", ErrWriteFailed, rec.Month.Year, rec.Month.Month, err)
	}
	return nil
}

// UpsertYear writes a year rollup record keyed by (user, year).
func (db *DB) UpsertYear(ctx context.Context, rec models.YearRecord) error {
	args := append([]any{rec.UserID, rec.Year, rec.RecordedAt}, bundleArgs(rec.Bundle)...)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO yearly_rollups (user_id, year, recorded_at, `+bundleColumns+`)
		 VALUES ($1,$2,$3,`+bundlePlaceholders+`)
		 ON CONFLICT (user_id, year) DO UPDATE SET `+bundleUpdateSet,
		args...)
	if err != nil {
		return fmt.Errorf("%w: upserting year %d: %v", ErrWriteFailed, rec.Year, err)
	}
	return nil
}

// DaysInRange returns day records with from <= day <= to, ascending.
func (db *DB) DaysInRange(ctx context.Context, userID int, from, to time.Time) ([]models.DayRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, day, recorded_at, `+bundleColumns+`
		 FROM daily_rollups
		 WHERE user_id = $1 AND day >= $2 AND day <= $3
		 ORDER BY day ASC`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying day rollups: %w", err)
	}
	defer rows.Close()

	return scanDayRecords(rows)
}

// AllDays returns every day record for the user, ascending by day.
func (db *DB) AllDays(ctx context.Context, userID int) ([]models.DayRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, day, recorded_at, `+bundleColumns+`
		 FROM daily_rollups
		 WHERE user_id = $1
		 ORDER BY day ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying day rollups: %w", err)
	}
	defer rows.Close()

	return scanDayRecords(rows)
}

// Weeks returns every week record for the user, ascending by week start.
func (db *DB) Weeks(ctx context.Context, userID int) ([]models.WeekRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, week_start, recorded_at, `+bundleColumns+`
		 FROM weekly_rollups
		 WHERE user_id = $1
		 ORDER BY week_start ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying week rollups: %w", err)
	}
	defer rows.Close()

	var result []models.WeekRecord
	for rows.Next() {
		var r models.WeekRecord
		dest := append([]any{&r.UserID, &r.WeekStart, &r.RecordedAt}, bundleDests(&r.Bundle)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning week rollup: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Months returns every month record for the user, ascending.
func (db *DB) Months(ctx context.Context, userID int) ([]models.MonthRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, year, month, recorded_at, `+bundleColumns+`
		 FROM monthly_rollups
		 WHERE user_id = $1
		 ORDER BY year ASC, month ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying month rollups: %w", err)
	}
	defer rows.Close()

	var result []models.MonthRecord
	for rows.Next() {
		var r models.MonthRecord
		var month int
		dest := append([]any{&r.UserID, &r.Month.Year, &month, &r.RecordedAt}, bundleDests(&r.Bundle)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning month rollup: %w", err)
		}
		r.Month.Month = time.Month(month)
		result = append(result, r)
	}
	return result, rows.Err()
}

// Years returns every year record for the user, ascending.
func (db *DB) Years(ctx context.Context, userID int) ([]models.YearRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, year, recorded_at, `+bundleColumns+`
		 FROM yearly_rollups
		 WHERE user_id = $1
		 ORDER BY year ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying year rollups: %w", err)
	}
	defer rows.Close()

	var result []models.YearRecord
	for rows.Next() {
		var r models.YearRecord
		dest := append([]any{&r.UserID, &r.Year, &r.RecordedAt}, bundleDests(&r.Bundle)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning year rollup: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteDerived removes all rollup records, highscores, and the sync cursor
// for a user. Raw samples stay so a re-initialization can rebuild everything.
func (db *DB) DeleteDerived(ctx context.Context, userID int) error {
	for _, table := range []string{
		"daily_rollups", "weekly_rollups", "monthly_rollups", "yearly_rollups",
		"highscores", "sync_cursors",
	} {
		if _, err := db.Pool.Exec(ctx,
			"DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("%w: clearing %s: %v", ErrWriteFailed, table, err)
		}
	}
	return nil
}

func scanDayRecords(rows pgx.Rows) ([]models.DayRecord, error) {
	var result []models.DayRecord
	for rows.Next() {
		var r models.DayRecord
		dest := append([]any{&r.UserID, &r.Day, &r.RecordedAt}, bundleDests(&r.Bundle)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning day rollup: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
