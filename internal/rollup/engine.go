// Package rollup maintains the day, week, month, and year aggregation levels.
// Upper levels are always recomputed from the stored day records rather than
// patched with deltas; bundle addition is associative and commutative, so the
// recomputation is order-independent and eliminates drift between levels.
package rollup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
	"github.com/meltforce/vitalsync/internal/storage"
)

// ErrInvariant means a stored period record's bundle diverges from the sum of
// its days. Not expected in normal operation; surfaced, never silently fixed.
var ErrInvariant = errors.New("period sum invariant violated")

// Engine builds and updates period records against a Store.
type Engine struct {
	store storage.Store
	log   *slog.Logger
}

// New creates a rollup engine.
func New(store storage.Store, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// RollupDays upserts one day record per entry in daily, overwriting the
// bundle and recorded-at time of any existing record for the same day.
// onDay, if non-nil, is called after each successful write for progress
// accounting.
func (e *Engine) RollupDays(ctx context.Context, userID int, daily map[time.Time]models.MetricBundle, now time.Time, onDay func()) error {
	for day, bundle := range daily {
		rec := models.DayRecord{
			UserID:     userID,
			Day:        period.DayOf(day),
			Bundle:     bundle,
			RecordedAt: now,
		}
		if err := e.store.UpsertDay(ctx, rec); err != nil {
			return fmt.Errorf("day rollup: %w", err)
		}
		if onDay != nil {
			onDay()
		}
	}
	return nil
}

// RollupWeeks recomputes every week whose bounds intersect [from, to] as the
// sum of all day records currently inside those bounds, not just newly
// touched days, so a partially updated week still reflects the full set.
func (e *Engine) RollupWeeks(ctx context.Context, userID int, from, to, now time.Time, onPeriod func()) error {
	for _, weekStart := range period.WeeksIn(from, to) {
		first, last := period.WeekBounds(weekStart)
		bundle, err := e.sumDays(ctx, userID, first, last)
		if err != nil {
			return fmt.Errorf("week rollup: %w", err)
		}
		rec := models.WeekRecord{UserID: userID, WeekStart: weekStart, Bundle: bundle, RecordedAt: now}
		if err := e.store.UpsertWeek(ctx, rec); err != nil {
			return fmt.Errorf("week rollup: %w", err)
		}
		if onPeriod != nil {
			onPeriod()
		}
	}
	return nil
}

// RollupMonths recomputes every month whose bounds intersect [from, to].
func (e *Engine) RollupMonths(ctx context.Context, userID int, from, to, now time.Time, onPeriod func()) error {
	for _, m := range period.MonthsIn(from, to) {
		year, month := m[0], time.Month(m[1])
		first, last := period.MonthBounds(year, month)
		bundle, err := e.sumDays(ctx, userID, first, last)
		if err != nil {
			return fmt.Errorf("month rollup: %w", err)
		}
		rec := models.MonthRecord{
			UserID:     userID,
			Month:      models.MonthKey{Year: year, Month: month},
			Bundle:     bundle,
			RecordedAt: now,
		}
		if err := e.store.UpsertMonth(ctx, rec); err != nil {
			return fmt.Errorf("month rollup: %w", err)
		}
		if onPeriod != nil {
			onPeriod()
		}
	}
	return nil
}

// RollupYears recomputes every year whose bounds intersect [from, to].
func (e *Engine) RollupYears(ctx context.Context, userID int, from, to, now time.Time, onPeriod func()) error {
	for _, year := range period.YearsIn(from, to) {
		first, last := period.YearBounds(year)
		bundle, err := e.sumDays(ctx, userID, first, last)
		if err != nil {
			return fmt.Errorf("year rollup: %w", err)
		}
		rec := models.YearRecord{UserID: userID, Year: year, Bundle: bundle, RecordedAt: now}
		if err := e.store.UpsertYear(ctx, rec); err != nil {
			return fmt.Errorf("year rollup: %w", err)
		}
		if onPeriod != nil {
			onPeriod()
		}
	}
	return nil
}

// VerifyWeek recomputes a stored week's bundle from its days and reports
// ErrInvariant on divergence.
func (e *Engine) VerifyWeek(ctx context.Context, rec models.WeekRecord) error {
	first, last := period.WeekBounds(rec.WeekStart)
	bundle, err := e.sumDays(ctx, rec.UserID, first, last)
	if err != nil {
		return err
	}
	if bundle != rec.Bundle {
		return fmt.Errorf("%w: week %s", ErrInvariant, rec.WeekStart.Format("2006-01-02"))
	}
	return nil
}

func (e *Engine) sumDays(ctx context.Context, userID int, from, to time.Time) (models.MetricBundle, error) {
	days, err := e.store.DaysInRange(ctx, userID, from, to)
	if err != nil {
		return models.MetricBundle{}, err
	}
	var total models.MetricBundle
	for _, d := range days {
		total = total.Add(d.Bundle)
	}
	return total, nil
}
