package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/vitalsync/internal/models"
)

// The highscores table keeps one row per user with the full ledger serialized
// per (value, date) column pair. Column order matches hsArgs/hsDests below.
const hsColumns = `most_steps, most_steps_date,
	cycling_m, cycling_date, walking_m, walking_date, running_m, running_date,
	swimming_m, swimming_date, swim_strokes, swim_strokes_date,
	calories, calories_date, heartbeats, heartbeats_date,
	flights, flights_date, exercise_min, exercise_min_date,
	stand_min, stand_min_date, sleep_min, sleep_min_date,
	deep_sleep_min, deep_sleep_min_date, rem_sleep_min, rem_sleep_min_date,
	sleep_streak_len, sleep_streak_start, sleep_streak_end,
	workout_streak_len, workout_streak_start, workout_streak_end,
	updated_at`

func hsArgs(r models.HighscoreRecord) []any {
	return []any{
		r.MostSteps.Value, r.MostSteps.Date,
		r.LongestCyclingDistance.Value, r.LongestCyclingDistance.Date,
		r.LongestWalkingDistance.Value, r.LongestWalkingDistance.Date,
		r.LongestRunningDistance.Value, r.LongestRunningDistance.Date,
		r.LongestSwimmingDistance.Value, r.LongestSwimmingDistance.Date,
		r.MostSwimStrokes.Value, r.MostSwimStrokes.Date,
		r.MostCalories.Value, r.MostCalories.Date,
		r.MostHeartbeats.Value, r.MostHeartbeats.Date,
		r.MostFlightsClimbed.Value, r.MostFlightsClimbed.Date,
		r.MostExerciseMinutes.Value, r.MostExerciseMinutes.Date,
		r.MostStandMinutes.Value, r.MostStandMinutes.Date,
		r.MostSleepMinutes.Value, r.MostSleepMinutes.Date,
		r.MostDeepSleepMinutes.Value, r.MostDeepSleepMinutes.Date,
		r.MostREMSleepMinutes.Value, r.MostREMSleepMinutes.Date,
		r.SleepStreak.Length, r.SleepStreak.Start, r.SleepStreak.End,
		r.WorkoutStreak.Length, r.WorkoutStreak.Start, r.WorkoutStreak.End,
		r.UpdatedAt,
	}
}

func hsDests(r *models.HighscoreRecord) []any {
	return []any{
		&r.MostSteps.Value, &r.MostSteps.Date,
		&r.LongestCyclingDistance.Value, &r.LongestCyclingDistance.Date,
		&r.LongestWalkingDistance.Value, &r.LongestWalkingDistance.Date,
		&r.LongestRunningDistance.Value, &r.LongestRunningDistance.Date,
		&r.LongestSwimmingDistance.Value, &r.LongestSwimmingDistance.Date,
		&r.MostSwimStrokes.Value, &r.MostSwimStrokes.Date,
		&r.MostCalories.Value, &r.MostCalories.Date,
		&r.MostHeartbeats.Value, &r.MostHeartbeats.Date,
		&r.MostFlightsClimbed.Value, &r.MostFlightsClimbed.Date,
		&r.MostExerciseMinutes.Value, &r.MostExerciseMinutes.Date,
		&r.MostStandMinutes.Value, &r.MostStandMinutes.Date,
		&r.MostSleepMinutes.Value, &r.MostSleepMinutes.Date,
		&r.MostDeepSleepMinutes.Value, &r.MostDeepSleepMinutes.Date,
		&r.MostREMSleepMinutes.Value, &r.MostREMSleepMinutes.Date,
		&r.SleepStreak.Length, &r.SleepStreak.Start, &r.SleepStreak.End,
		&r.WorkoutStreak.Length, &r.WorkoutStreak.Start, &r.WorkoutStreak.End,
		&r.UpdatedAt,
	}
}

// GetHighscores returns the user's personal-record ledger, or a zero-valued
// ledger if the user has none stored yet.
func (db *DB) GetHighscores(ctx context.Context, userID int) (models.HighscoreRecord, error) {
	rec := models.HighscoreRecord{UserID: userID}
	dest := hsDests(&rec)
	err := db.Pool.QueryRow(ctx,
		`SELECT `+hsColumns+` FROM highscores WHERE user_id = $1`, userID,
	).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.HighscoreRecord{UserID: userID}, nil
	}
	if err != nil {
		return rec, fmt.Errorf("querying highscores: %w", err)
	}
	return rec, nil
}

// PutHighscores writes the user's record ledger, overwriting any existing row.
func (db *DB) PutHighscores(ctx context.Context, rec models.HighscoreRecord) error {
	placeholders := make([]string, 35)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}
	list := strings.Join(placeholders, ",")
	args := append([]any{rec.UserID}, hsArgs(rec)...)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO highscores (user_id, `+hsColumns+`)
		 VALUES ($1,`+list+`)
		 ON CONFLICT (user_id) DO UPDATE SET (`+hsColumns+`) = (`+list+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("%w: upserting highscores: %v", ErrWriteFailed, err)
	}
	return nil
}
