package mcp

import (
	"context"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/storage"
	vsync "github.com/meltforce/vitalsync/internal/sync"
)

// DataSource abstracts the data layer for MCP tools. Local (in-process store
// plus syncer) and HTTPClient (remote via REST API) both satisfy it.
type DataSource interface {
	DaysInRange(ctx context.Context, userID int, from, to time.Time) ([]models.DayRecord, error)
	Weeks(ctx context.Context, userID int) ([]models.WeekRecord, error)
	Months(ctx context.Context, userID int) ([]models.MonthRecord, error)
	Years(ctx context.Context, userID int) ([]models.YearRecord, error)
	GetHighscores(ctx context.Context, userID int) (models.HighscoreRecord, error)

	// TriggerSync runs one sync invocation. mode is "initialize",
	// "incremental", or "refresh".
	TriggerSync(ctx context.Context, userID int, mode string) error
}

// Local serves MCP tools from an in-process store and syncer.
type Local struct {
	storage.Store
	Syncer *vsync.Syncer
}

// Compile-time check: *Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

func (l *Local) TriggerSync(ctx context.Context, userID int, mode string) error {
	switch mode {
	case "initialize":
		return l.Syncer.Initialize(ctx, userID, nil)
	case "refresh":
		return l.Syncer.Refresh(ctx, userID, nil)
	default:
		return l.Syncer.IncrementalUpdate(ctx, userID, nil)
	}
}
