package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meltforce/vitalsync/internal/models"
)

// Lite is an embedded single-user Store backed by SQLite. The backfill CLI
// uses it to build rollups and highscores without a Postgres server.
type Lite struct {
	db *sql.DB
}

var _ Store = (*Lite)(nil)

const liteSchema = `
CREATE TABLE IF NOT EXISTS daily_rollups (
	user_id INTEGER NOT NULL, day TIMESTAMP NOT NULL, recorded_at TIMESTAMP NOT NULL,
	` + liteBundleDDL + `,
	PRIMARY KEY (user_id, day)
);
CREATE TABLE IF NOT EXISTS weekly_rollups (
	user_id INTEGER NOT NULL, week_start TIMESTAMP NOT NULL, recorded_at TIMESTAMP NOT NULL,
	` + liteBundleDDL + `,
	PRIMARY KEY (user_id, week_start)
);
CREATE TABLE IF NOT EXISTS monthly_rollups (
	user_id INTEGER NOT NULL, year INTEGER NOT NULL, month INTEGER NOT NULL, recorded_at TIMESTAMP NOT NULL,
	` + liteBundleDDL + `,
	PRIMARY KEY (user_id, year, month)
);
CREATE TABLE IF NOT EXISTS yearly_rollups (
	user_id INTEGER NOT NULL, year INTEGER NOT NULL, recorded_at TIMESTAMP NOT NULL,
	` + liteBundleDDL + `,
	PRIMARY KEY (user_id, year)
);
CREATE TABLE IF NOT EXISTS highscores (
	user_id INTEGER PRIMARY KEY,
	payload TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sync_cursors (
	user_id INTEGER PRIMARY KEY,
	last_processed_at TIMESTAMP NOT NULL,
	highscores_last_updated TIMESTAMP NOT NULL,
	first_sample_date TIMESTAMP NOT NULL
);
`

const liteBundleDDL = `steps INTEGER NOT NULL, cycling_m REAL NOT NULL, walking_m REAL NOT NULL,
	running_m REAL NOT NULL, swimming_m REAL NOT NULL, xc_ski_m REAL NOT NULL,
	downhill_ski_m REAL NOT NULL, swim_strokes INTEGER NOT NULL,
	active_kcal REAL NOT NULL, resting_kcal REAL NOT NULL,
	heartbeats INTEGER NOT NULL, flights_climbed INTEGER NOT NULL,
	exercise_min INTEGER NOT NULL, stand_min INTEGER NOT NULL,
	sleep_total_min INTEGER NOT NULL, sleep_deep_min INTEGER NOT NULL, sleep_rem_min INTEGER NOT NULL`

// OpenLite opens (or creates) the SQLite store at dir/rollups.db.
func OpenLite(dir string) (*Lite, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "rollups.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening rollup db: %w", err)
	}

	if _, err := db.Exec(liteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating rollup tables: %w", err)
	}

	return &Lite{db: db}, nil
}

// Close closes the underlying database.
func (l *Lite) Close() error {
	return l.db.Close()
}

const liteBundleCols = `steps, cycling_m, walking_m, running_m, swimming_m, xc_ski_m,
	downhill_ski_m, swim_strokes, active_kcal, resting_kcal, heartbeats,
	flights_climbed, exercise_min, stand_min, sleep_total_min, sleep_deep_min, sleep_rem_min`

const liteBundleMarks = "?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?"

// UpsertDay writes a day rollup, replacing any row with the same key.
func (l *Lite) UpsertDay(ctx context.Context, rec models.DayRecord) error {
	args := append([]any{rec.UserID, rec.Day.UTC(), rec.RecordedAt.UTC()}, bundleArgs(rec.Bundle)...)
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO daily_rollups (user_id, day, recorded_at, `+liteBundleCols+`)
		 VALUES (?,?,?,`+liteBundleMarks+`)`, args...)
	if err != nil {
		return fmt.Errorf("%w: upserting day: %v", ErrWriteFailed, err)
	}
	return nil
}

// UpsertWeek writes a week rollup, replacing any row with the same key.
func (l *Lite) UpsertWeek(ctx context.Context, rec models.WeekRecord) error {
	args := append([]any{rec.UserID, rec.WeekStart.UTC(), rec.RecordedAt.UTC()}, bundleArgs(rec.Bundle)...)
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO weekly_rollups (user_id, week_start, recorded_at, `+liteBundleCols+`)
		 VALUES (?,?,?,`+liteBundleMarks+`)`, args...)
	if err != nil {
		return fmt.Errorf("%w: upserting week: %v", ErrWriteFailed, err)
	}
	return nil
}

// UpsertMonth writes a month rollup, replacing any row with the same key.
func (l *Lite) UpsertMonth(ctx context.Context, rec models.MonthRecord) error {
	args := append([]any{rec.UserID, rec.Month.Year, int(rec.Month.Month), rec.RecordedAt.UTC()}, bundleArgs(rec.Bundle)...)
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO monthly_rollups (user_id, year, month, recorded_at, `+liteBundleCols+`)
		 VALUES (?,?,?,?,`+liteBundleMarks+`)`, args...)
	if err != nil {
		return fmt.Errorf("%w: upserting month: %v", ErrWriteFailed, err)
	}
	return nil
}

// UpsertYear writes a year rollup, replacing any row with the same key.
func (l *Lite) UpsertYear(ctx context.Context, rec models.YearRecord) error {
	args := append([]any{rec.UserID, rec.Year, rec.RecordedAt.UTC()}, bundleArgs(rec.Bundle)...)
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO yearly_rollups (user_id, year, recorded_at, `+liteBundleCols+`)
		 VALUES (?,?,?,`+liteBundleMarks+`)`, args...)
	if err != nil {
		return fmt.Errorf("%w: upserting year: %v", ErrWriteFailed, err)
	}
	return nil
}

// DaysInRange returns day records with from <= day <= to, ascending.
func (l *Lite) DaysInRange(ctx context.Context, userID int, from, to time.Time) ([]models.DayRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT user_id, day, recorded_at, `+liteBundleCols+`
		 FROM daily_rollups WHERE user_id = ? AND day >= ? AND day <= ?
		 ORDER BY day ASC`, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying day rollups: %w", err)
	}
	defer rows.Close()
	return l.scanDays(rows)
}

// AllDays returns every day record for the user, ascending by day.
func (l *Lite) AllDays(ctx context.Context, userID int) ([]models.DayRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT user_id, day, recorded_at, `+liteBundleCols+`
		 FROM daily_rollups WHERE user_id = ?
		 ORDER BY day ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying day rollups: %w", err)
	}
	defer rows.Close()
	return l.scanDays(rows)
}

func (l *Lite) scanDays(rows *sql.Rows) ([]models.DayRecord, error) {
	var result []models.DayRecord
	for rows.Next() {
		var r models.DayRecord
		dest := append([]any{&r.UserID, &r.Day, &r.RecordedAt}, bundleDests(&r.Bundle)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning day rollup: %w", err)
		}
		r.Day = r.Day.UTC()
		result = append(result, r)
	}
	return result, rows.Err()
}

// Weeks returns every week record for the user, ascending by week start.
func (l *Lite) Weeks(ctx context.Context, userID int) ([]models.WeekRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT user_id, week_start, recorded_at, `+liteBundleCols+`
		 FROM weekly_rollups WHERE user_id = ?
		 ORDER BY week_start ASC`, userID)
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
		r.WeekStart = r.WeekStart.UTC()
		result = append(result, r)
	}
	return result, rows.Err()
}

// Months returns every month record for the user, ascending.
func (l *Lite) Months(ctx context.Context, userID int) ([]models.MonthRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT user_id, year, month, recorded_at, `+liteBundleCols+`
		 FROM monthly_rollups WHERE user_id = ?
		 ORDER BY year ASC, month ASC`, userID)
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
func (l *Lite) Years(ctx context.Context, userID int) ([]models.YearRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT user_id, year, recorded_at, `+liteBundleCols+`
		 FROM yearly_rollups WHERE user_id = ?
		 ORDER BY year ASC`, userID)
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

// GetHighscores returns the user's ledger, or a zero-valued one. The ledger
// is stored as a single JSON payload; one row per user keeps the embedded
// schema simple.
func (l *Lite) GetHighscores(ctx context.Context, userID int) (models.HighscoreRecord, error) {
	var payload string
	err := l.db.QueryRowContext(ctx,
		`SELECT payload FROM highscores WHERE user_id = ?`, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return models.HighscoreRecord{UserID: userID}, nil
	}
	if err != nil {
		return models.HighscoreRecord{}, fmt.Errorf("querying highscores: %w", err)
	}

	var rec models.HighscoreRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return models.HighscoreRecord{}, fmt.Errorf("decoding highscores: %w", err)
	}
	return rec, nil
}

// PutHighscores stores the user's ledger as a JSON payload.
func (l *Lite) PutHighscores(ctx context.Context, rec models.HighscoreRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding highscores: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO highscores (user_id, payload) VALUES (?, ?)`,
		rec.UserID, string(payload))
	if err != nil {
		return fmt.Errorf("%w: upserting highscores: %v", ErrWriteFailed, err)
	}
	return nil
}

// GetCursor returns the stored cursor or a sentinel one.
func (l *Lite) GetCursor(ctx context.Context, userID int) (models.SyncCursor, error) {
	cur := models.SyncCursor{UserID: userID}
	err := l.db.QueryRowContext(ctx,
		`SELECT last_processed_at, highscores_last_updated, first_sample_date
		 FROM sync_cursors WHERE user_id = ?`, userID,
	).Scan(&cur.LastProcessedAt, &cur.HighscoresLastUpdated, &cur.FirstSampleDate)
	if err == sql.ErrNoRows {
		return models.NewSyncCursor(userID), nil
	}
	if err != nil {
		return cur, fmt.Errorf("querying sync cursor: %w", err)
	}
	return cur, nil
}

// PutCursor stores the user's cursor.
func (l *Lite) PutCursor(ctx context.Context, cur models.SyncCursor) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sync_cursors
		 (user_id, last_processed_at, highscores_last_updated, first_sample_date)
		 VALUES (?,?,?,?)`,
		cur.UserID, cur.LastProcessedAt.UTC(), cur.HighscoresLastUpdated.UTC(), cur.FirstSampleDate.UTC())
	if err != nil {
		return fmt.Errorf("%w: upserting sync cursor: %v", ErrWriteFailed, err)
	}
	return nil
}

// DeleteDerived removes all derived records and the cursor for a user.
func (l *Lite) DeleteDerived(ctx context.Context, userID int) error {
	for _, table := range []string{
		"daily_rollups", "weekly_rollups", "monthly_rollups", "yearly_rollups",
		"highscores", "sync_cursors",
	} {
		if _, err := l.db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("%w: clearing %s: %v", ErrWriteFailed, table, err)
		}
	}
	return nil
}
