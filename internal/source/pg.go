package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
)

// Querier is the sample-table read surface PG needs. *storage.DB satisfies it.
type Querier interface {
	QueryMetricSamplesByName(ctx context.Context, userID int, metricName string, from, to time.Time) ([]models.MetricSampleRow, error)
	QuerySleepSamples(ctx context.Context, userID int, from, to time.Time) ([]models.SleepSampleRow, error)
	EarliestSampleDay(ctx context.Context, userID int) (time.Time, error)
}

// PG reads raw samples from the Postgres sample tables populated by the
// ingest path.
type PG struct {
	db       Querier
	priority []string
	log      *slog.Logger
}

var _ DataSource = (*PG)(nil)

// NewPG creates a Postgres-backed data source. priority is the ranked sleep
// source list, best first.
func NewPG(db Querier, priority []string, log *slog.Logger) *PG {
	return &PG{db: db, priority: priority, log: log}
}

// FetchDailyMetrics fetches each tracked metric type for the window, then
// sleep. Sample rows are keyed by UTC day, so the window bounds are widened
// to their day keys before querying: a mid-day lower bound must still match
// the boundary day's rows, which carry midnight timestamps. A type that
// fails to fetch is recorded as zero for the affected days and listed on the
// result; if every type fails the source is treated as unavailable.
func (p *PG) FetchDailyMetrics(ctx context.Context, userID int, from, to time.Time) (*FetchResult, error) {
	start, end := period.DayOf(from), period.DayOf(to)

	var metricRows []models.MetricSampleRow
	var failed []string

	for _, name := range models.TrackedMetrics {
		rows, err := p.db.QueryMetricSamplesByName(ctx, userID, name, start, end)
		if err != nil {
			p.log.Warn("metric type fetch failed, recording zeros", "metric", name, "error", err)
			failed = append(failed, name)
			continue
		}
		metricRows = append(metricRows, rows...)
	}

	sleepRows, err := p.db.QuerySleepSamples(ctx, userID, start, end)
	if err != nil {
		p.log.Warn("sleep fetch failed, recording zeros", "error", err)
		failed = append(failed, "sleep")
	}

	if len(failed) == len(models.TrackedMetrics)+1 {
		return nil, fmt.Errorf("%w: all metric types failed", ErrUnavailable)
	}

	return &FetchResult{
		Days:          BuildDays(metricRows, sleepRows, p.priority, from, to),
		FailedMetrics: failed,
	}, nil
}

// EarliestSampleDate returns the oldest sample day across both sample tables.
func (p *PG) EarliestSampleDate(ctx context.Context, userID int) (time.Time, error) {
	day, err := p.db.EarliestSampleDay(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return day, nil
}
