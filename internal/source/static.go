package source

import (
	"context"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
)

// Static serves a fixed set of sample rows held in memory. The backfill CLI
// wraps a parsed export file in one; tests use it as a canned source.
type Static struct {
	metricRows []models.MetricSampleRow
	sleepRows  []models.SleepSampleRow
	priority   []string

	// Err, when set, is returned by every call. Simulates an unreachable
	// source in tests.
	Err error
}

var _ DataSource = (*Static)(nil)

// NewStatic creates a source over fixed sample rows.
func NewStatic(metricRows []models.MetricSampleRow, sleepRows []models.SleepSampleRow, priority []string) *Static {
	return &Static{metricRows: metricRows, sleepRows: sleepRows, priority: priority}
}

// FetchDailyMetrics builds bundles from the held rows restricted to the window.
func (s *Static) FetchDailyMetrics(ctx context.Context, userID int, from, to time.Time) (*FetchResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	start, end := period.DayOf(from), period.DayOf(to)
	var metricRows []models.MetricSampleRow
	for _, r := range s.metricRows {
		if r.UserID != userID {
			continue
		}
		d := period.DayOf(r.Day)
		if d.Before(start) || d.After(end) {
			continue
		}
		metricRows = append(metricRows, r)
	}
	var sleepRows []models.SleepSampleRow
	for _, r := range s.sleepRows {
		if r.UserID != userID {
			continue
		}
		d := period.DayOf(r.Day)
		if d.Before(start) || d.After(end) {
			continue
		}
		sleepRows = append(sleepRows, r)
	}

	return &FetchResult{Days: BuildDays(metricRows, sleepRows, s.priority, from, to)}, nil
}

// EarliestSampleDate returns the oldest held sample day, or the zero time.
func (s *Static) EarliestSampleDate(ctx context.Context, userID int) (time.Time, error) {
	if s.Err != nil {
		return time.Time{}, s.Err
	}

	var earliest time.Time
	consider := func(day time.Time) {
		d := period.DayOf(day)
		if earliest.IsZero() || d.Before(earliest) {
			earliest = d
		}
	}
	for _, r := range s.metricRows {
		if r.UserID == userID {
			consider(r.Day)
		}
	}
	for _, r := range s.sleepRows {
		if r.UserID == userID {
			consider(r.Day)
		}
	}
	return earliest, nil
}
