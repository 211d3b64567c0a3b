package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/vitalsync/internal/models"
)

// GetCursor returns the user's sync cursor, or a sentinel cursor if the user
// has never synced.
func (db *DB) GetCursor(ctx context.Context, userID int) (models.SyncCursor, error) {
	cur := models.SyncCursor{UserID: userID}
	err := db.Pool.QueryRow(ctx,
		`SELECT last_processed_at, highscores_last_updated, first_sample_date
		 FROM sync_cursors WHERE user_id = $1`, userID,
	).Scan(&cur.LastProcessedAt, &cur.HighscoresLastUpdated, &cur.FirstSampleDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewSyncCursor(userID), nil
	}
	if err != nil {
		return cur, fmt.Errorf("querying sync cursor: %w", err)
	}
	return cur, nil
}

// PutCursor writes the user's sync cursor, overwriting any existing row.
func (db *DB) PutCursor(ctx context.Context, cur models.SyncCursor) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sync_cursors (user_id, last_processed_at, highscores_last_updated, first_sample_date)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (user_id) DO UPDATE
			SET last_processed_at = EXCLUDED.last_processed_at,
			    highscores_last_updated = EXCLUDED.highscores_last_updated,
			    first_sample_date = EXCLUDED.first_sample_date`,
		cur.UserID, cur.LastProcessedAt, cur.HighscoresLastUpdated, cur.FirstSampleDate)
	if err != nil {
		return fmt.Errorf("%w: upserting sync cursor: %v", ErrWriteFailed, err)
	}
	return nil
}
