package storage

import (
	"context"
	"errors"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
)

// ErrWriteFailed marks a persistence write failure. A failed write aborts the
// remaining phases of the current sync invocation; already-committed records
// stay valid because every write is an idempotent overwrite.
var ErrWriteFailed = errors.New("store write failed")

// Store is the keyed persistence surface the rollup, highscore, and sync
// engines operate against. Period keys are the primary keys; there are no
// surrogate record identifiers. Implementations: *DB (Postgres), *Lite
// (embedded SQLite), *Mem (in-process, for tests and dev mode).
type Store interface {
	UpsertDay(ctx context.Context, rec models.DayRecord) error
	UpsertWeek(ctx context.Context, rec models.WeekRecord) error
	UpsertMonth(ctx context.Context, rec models.MonthRecord) error
	UpsertYear(ctx context.Context, rec models.YearRecord) error

	// DaysInRange returns day records with from <= key <= to, ascending.
	DaysInRange(ctx context.Context, userID int, from, to time.Time) ([]models.DayRecord, error)
	// AllDays returns every day record for the user, ascending by day.
	AllDays(ctx context.Context, userID int) ([]models.DayRecord, error)

	Weeks(ctx context.Context, userID int) ([]models.WeekRecord, error)
	Months(ctx context.Context, userID int) ([]models.MonthRecord, error)
	Years(ctx context.Context, userID int) ([]models.YearRecord, error)

	// GetHighscores returns the user's record ledger, or a zero-valued
	// ledger if none has been stored yet.
	GetHighscores(ctx context.Context, userID int) (models.HighscoreRecord, error)
	PutHighscores(ctx context.Context, rec models.HighscoreRecord) error

	// GetCursor returns the user's sync cursor, or a sentinel cursor if the
	// user has never synced.
	GetCursor(ctx context.Context, userID int) (models.SyncCursor, error)
	PutCursor(ctx context.Context, cur models.SyncCursor) error

	// DeleteDerived removes all rollup records, highscores, and the cursor
	// for a user. Raw samples are untouched.
	DeleteDerived(ctx context.Context, userID int) error
}
