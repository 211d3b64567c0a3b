package models

import "time"

// CursorSentinel is the epoch value a fresh or cleared SyncCursor starts at.
// Any real sample date is after it, so the first incremental run behaves like
// a full pass over all available data.
var CursorSentinel = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// DayRecord is the rollup for a single calendar day. Day is the UTC midnight
// of the calendar day and is the record's key.
type DayRecord struct {
	UserID     int          `json:"user_id"`
	Day        time.Time    `json:"day"`
	Bundle     MetricBundle `json:"bundle"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// WeekRecord is the rollup for one calendar week. WeekStart is the UTC
// midnight of the week's Monday and is the record's key; the week ends six
// days later.
type WeekRecord struct {
	UserID     int          `json:"user_id"`
	WeekStart  time.Time    `json:"week_start"`
	Bundle     MetricBundle `json:"bundle"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthRecord is the rollup for one calendar month, keyed by (year, month).
type MonthRecord struct {
	UserID     int          `json:"user_id"`
	Month      MonthKey     `json:"month"`
	Bundle     MetricBundle `json:"bundle"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// YearRecord is the rollup for one calendar year, keyed by the year number.
type YearRecord struct {
	UserID     int          `json:"user_id"`
	Year       int          `json:"year"`
	Bundle     MetricBundle `json:"bundle"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// SyncCursor tracks how far a user's raw data has been processed.
//
// LastProcessedAt is the raw-data high-water mark; the day containing it is
// always re-fetched in full on the next run. HighscoresLastUpdated bounds the
// incremental maxima pass. FirstSampleDate is the earliest raw data ever
// observed and is only consulted during full (re)initialization.
type SyncCursor struct {
	UserID                int       `json:"user_id"`
	LastProcessedAt       time.Time `json:"last_processed_at"`
	HighscoresLastUpdated time.Time `json:"highscores_last_updated"`
	FirstSampleDate       time.Time `json:"first_sample_date"`
}

// NewSyncCursor returns a cursor at the sentinel for a user with no history.
func NewSyncCursor(userID int) SyncCursor {
	return SyncCursor{
		UserID:                userID,
		LastProcessedAt:       CursorSentinel,
		HighscoresLastUpdated: CursorSentinel,
		FirstSampleDate:       CursorSentinel,
	}
}

// Highscore is one personal record: the best single-day value for a metric
// and the day it happened.
type Highscore struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

// Streak is the longest run of consecutive days satisfying a predicate.
type Streak struct {
	Length int       `json:"length"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// HighscoreRecord holds every personal record for one user. Each entry only
// ever increases: a stored maximum or streak length never regresses.
type HighscoreRecord struct {
	UserID int `json:"user_id"`

	MostSteps               Highscore `json:"most_steps"`
	LongestCyclingDistance  Highscore `json:"longest_cycling_distance"`
	LongestWalkingDistance  Highscore `json:"longest_walking_distance"`
	LongestRunningDistance  Highscore `json:"longest_running_distance"`
	LongestSwimmingDistance Highscore `json:"longest_swimming_distance"`
	MostSwimStrokes         Highscore `json:"most_swim_strokes"`
	MostCalories            Highscore `json:"most_calories"`
	MostHeartbeats          Highscore `json:"most_heartbeats"`
	MostFlightsClimbed      Highscore `json:"most_flights_climbed"`
	MostExerciseMinutes     Highscore `json:"most_exercise_minutes"`
	MostStandMinutes        Highscore `json:"most_stand_minutes"`
	MostSleepMinutes        Highscore `json:"most_sleep_minutes"`
	MostDeepSleepMinutes    Highscore `json:"most_deep_sleep_minutes"`
	MostREMSleepMinutes     Highscore `json:"most_rem_sleep_minutes"`

	SleepStreak   Streak `json:"sleep_streak"`
	WorkoutStreak Streak `json:"workout_streak"`

	UpdatedAt time.Time `json:"updated_at"`
}
