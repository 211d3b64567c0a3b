package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncRun records a single synchronization invocation's outcome.
type SyncRun struct {
	ID            uuid.UUID  `json:"id"`
	UserID        int        `json:"user_id"`
	Mode          string     `json:"mode"` // initialize | incremental | refresh
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DaysProcessed int        `json:"days_processed"`
	ErrorMessage  *string    `json:"error_message"`
}

// InsertSyncRun creates a new sync run entry.
func (db *DB) InsertSyncRun(ctx context.Context, run SyncRun) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sync_runs (id, user_id, mode, status, started_at, finished_at, days_processed, error_message)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		run.ID, run.UserID, run.Mode, run.Status, run.StartedAt,
		run.FinishedAt, run.DaysProcessed, run.ErrorMessage)
	if err != nil {
		return fmt.Errorf("inserting sync run: %w", err)
	}
	return nil
}

// FinishSyncRun marks a run completed or failed.
func (db *DB) FinishSyncRun(ctx context.Context, id uuid.UUID, status string, daysProcessed int, errMsg *string) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE sync_runs
		 SET status = $2, finished_at = NOW(), days_processed = $3, error_message = $4
		 WHERE id = $1`,
		id, status, daysProcessed, errMsg)
	if err != nil {
		return fmt.Errorf("finishing sync run: %w", err)
	}
	return nil
}

// RecentSyncRuns returns the most recent runs for a user, newest first.
func (db *DB) RecentSyncRuns(ctx context.Context, userID, limit int) ([]SyncRun, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, mode, status, started_at, finished_at, days_processed, error_message
		 FROM sync_runs
		 WHERE user_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var result []SyncRun
	for rows.Next() {
		var r SyncRun
		if err := rows.Scan(&r.ID, &r.UserID, &r.Mode, &r.Status, &r.StartedAt,
			&r.FinishedAt, &r.DaysProcessed, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
