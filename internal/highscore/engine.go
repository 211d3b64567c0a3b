// Package highscore maintains the personal-record ledger: per-metric running
// maxima over the daily series, and longest-consecutive-day streaks.
package highscore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/storage"
)

// Engine recomputes and persists highscores from day records.
type Engine struct {
	store storage.Store
	log   *slog.Logger
}

// New creates a highscore engine.
func New(store storage.Store, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// HasSleepData reports whether the day recorded any sleep.
func HasSleepData(d models.DayRecord) bool {
	return d.Bundle.SleepTotalMinutes > 0
}

// HasWorkoutData reports whether the day recorded any exercise minutes.
func HasWorkoutData(d models.DayRecord) bool {
	return d.Bundle.ExerciseMinutes > 0
}

// UpdateMaxima folds the supplied day records into the stored ledger. Max is
// associative and commutative, so any subset or order of days is safe: an
// incremental pass over only new days stays correct as long as the maxima
// were already correct for prior days. Only strict improvements replace a
// stored record.
func (e *Engine) UpdateMaxima(ctx context.Context, userID int, days []models.DayRecord, now time.Time) (models.HighscoreRecord, error) {
	rec, err := e.store.GetHighscores(ctx, userID)
	if err != nil {
		return rec, fmt.Errorf("loading highscores: %w", err)
	}

	for _, d := range days {
		b := d.Bundle
		improve(&rec.MostSteps, float64(b.Steps), d.Day)
		improve(&rec.LongestCyclingDistance, b.CyclingMeters, d.Day)
		improve(&rec.LongestWalkingDistance, b.WalkingMeters, d.Day)
		improve(&rec.LongestRunningDistance, b.RunningMeters, d.Day)
		improve(&rec.LongestSwimmingDistance, b.SwimmingMeters, d.Day)
		improve(&rec.MostSwimStrokes, float64(b.SwimStrokes), d.Day)
		improve(&rec.MostCalories, b.Calories(), d.Day)
		improve(&rec.MostHeartbeats, float64(b.Heartbeats), d.Day)
		improve(&rec.MostFlightsClimbed, float64(b.FlightsClimbed), d.Day)
		improve(&rec.MostExerciseMinutes, float64(b.ExerciseMinutes), d.Day)
		improve(&rec.MostStandMinutes, float64(b.StandMinutes), d.Day)
		improve(&rec.MostSleepMinutes, float64(b.SleepTotalMinutes), d.Day)
		improve(&rec.MostDeepSleepMinutes, float64(b.SleepDeepMinutes), d.Day)
		improve(&rec.MostREMSleepMinutes, float64(b.SleepREMMinutes), d.Day)
	}

	rec.UserID = userID
	rec.UpdatedAt = now
	if err := e.store.PutHighscores(ctx, rec); err != nil {
		return rec, fmt.Errorf("storing highscores: %w", err)
	}
	return rec, nil
}

// UpdateStreaks recomputes both streaks over the full day sequence and
// replaces the stored ones only on strict improvement. This is a deliberate
// full rescan: a new day can extend a streak that started arbitrarily far in
// the past, and tracking an open-streak cursor was judged not worth the extra
// state.
func (e *Engine) UpdateStreaks(ctx context.Context, userID int, now time.Time) (models.HighscoreRecord, error) {
	rec, err := e.store.GetHighscores(ctx, userID)
	if err != nil {
		return rec, fmt.Errorf("loading highscores: %w", err)
	}

	days, err := e.store.AllDays(ctx, userID)
	if err != nil {
		return rec, fmt.Errorf("loading day records: %w", err)
	}

	if s := LongestStreak(days, HasSleepData); s.Length > rec.SleepStreak.Length {
		rec.SleepStreak = s
	}
	if s := LongestStreak(days, HasWorkoutData); s.Length > rec.WorkoutStreak.Length {
		rec.WorkoutStreak = s
	}

	rec.UserID = userID
	rec.UpdatedAt = now
	if err := e.store.PutHighscores(ctx, rec); err != nil {
		return rec, fmt.Errorf("storing highscores: %w", err)
	}
	return rec, nil
}

// LongestStreak scans day records in ascending date order and returns the
// best run of consecutive calendar days satisfying the predicate. A false
// day or a calendar gap both break a run.
func LongestStreak(days []models.DayRecord, predicate func(models.DayRecord) bool) models.Streak {
	var best, run models.Streak
	var prevDay time.Time

	for _, d := range days {
		if !predicate(d) {
			run = models.Streak{}
			prevDay = d.Day
			continue
		}
		if run.Length > 0 && d.Day.Sub(prevDay) == 24*time.Hour {
			run.Length++
			run.End = d.Day
		} else {
			run = models.Streak{Length: 1, Start: d.Day, End: d.Day}
		}
		if run.Length > best.Length {
			best = run
		}
		prevDay = d.Day
	}
	return best
}

func improve(hs *models.Highscore, value float64, day time.Time) {
	if value > hs.Value {
		hs.Value = value
		hs.Date = day
	}
}
