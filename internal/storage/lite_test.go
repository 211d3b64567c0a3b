package storage

import (
	"context"
	"testing"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
)

func openTestLite(t *testing.T) *Lite {
	t.Helper()
	l, err := OpenLite(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLiteDayRoundTrip(t *testing.T) {
	l := openTestLite(t)
	ctx := context.Background()
	rec := models.DayRecord{
		UserID:     1,
		Day:        date(2026, 3, 2),
		Bundle:     models.MetricBundle{Steps: 12000, CyclingMeters: 15400.5, SleepTotalMinutes: 420},
		RecordedAt: time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC),
	}
	if err := l.UpsertDay(ctx, rec); err != nil {
		t.Fatal(err)
	}

	days, err := l.AllDays(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 {
		t.Fatalf("got %d records, want 1", len(days))
	}
	got := days[0]
	if !got.Day.Equal(rec.Day) {
		t.Errorf("day = %v, want %v", got.Day, rec.Day)
	}
	if got.Bundle != rec.Bundle {
		t.Errorf("bundle = %+v, want %+v", got.Bundle, rec.Bundle)
	}
}

func TestLiteDayOverwrite(t *testing.T) {
	l := openTestLite(t)
	ctx := context.Background()
	day := date(2026, 3, 2)

	if err := l.UpsertDay(ctx, models.DayRecord{UserID: 1, Day: day, Bundle: models.MetricBundle{Steps: 100}}); err != nil {
		t.Fatal(err)
	}
	if err := l.UpsertDay(ctx, models.DayRecord{UserID: 1, Day: day, Bundle: models.MetricBundle{Steps: 300}}); err != nil {
		t.Fatal(err)
	}

	days, _ := l.AllDays(ctx, 1)
	if len(days) != 1 || days[0].Bundle.Steps != 300 {
		t.Errorf("days = %+v, want one record at 300 steps", days)
	}
}

func TestLiteDaysInRange(t *testing.T) {
	l := openTestLite(t)
	ctx := context.Background()
	for d := 1; d <= 5; d++ {
		rec := models.DayRecord{UserID: 1, Day: date(2026, 3, d), Bundle: models.MetricBundle{Steps: int64(d)}}
		if err := l.UpsertDay(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	days, err := l.DaysInRange(ctx, 1, date(2026, 3, 2), date(2026, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 3 {
		t.Fatalf("got %d records, want 3", len(days))
	}
	if days[0].Bundle.Steps != 2 || days[2].Bundle.Steps != 4 {
		t.Errorf("range = %+v", days)
	}
}

func TestLitePeriodRecords(t *testing.T) {
	l := openTestLite(t)
	ctx := context.Background()

	wk := models.WeekRecord{UserID: 1, WeekStart: date(2026, 3, 2), Bundle: models.MetricBundle{Steps: 70000}}
	if err := l.UpsertWeek(ctx, wk); err != nil {
		t.Fatal(err)
	}
	mo := models.MonthRecord{UserID: 1, Month: models.MonthKey{Year: 2026, Month: time.March}, Bundle: models.MetricBundle{Steps: 300000}}
	if err := l.UpsertMonth(ctx, mo); err != nil {
		t.Fatal(err)
	}
	yr := models.YearRecord{UserID: 1, Year: 2026, Bundle: models.MetricBundle{Steps: 3000000}}
	if err := l.UpsertYear(ctx, yr); err != nil {
		t.Fatal(err)
	}

	weeks, err := l.Weeks(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(weeks) != 1 || !weeks[0].WeekStart.Equal(wk.WeekStart) || weeks[0].Bundle.Steps != 70000 {
		t.Errorf("weeks = %+v", weeks)
	}

	months, err := l.Months(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != 1 || months[0].Month.Month != time.March {
		t.Errorf("months = %+v", months)
	}

	years, err := l.Years(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(years) != 1 || years[0].Year != 2026 {
		t.Errorf("years = %+v", years)
	}
}

func TestLiteHighscores(t *testing.T) {
	l := openTestLite(t)
	ctx := context.Background()

	rec, err := l.GetHighscores(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.UserID != 1 || rec.MostSteps.Value != 0 {
		t.Errorf("fresh ledger = %+v", rec)
	}

	rec.MostSteps = models.Highscore{Value: 21000, Date: date(2026, 3, 3)}
	rec.SleepStreak = models.Streak{Length: 12, Start: date(2026, 2, 1), End: date(2026, 2, 12)}
	if err := l.PutHighscores(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := l.GetHighscores(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.MostSteps.Value != 21000 || !got.MostSteps.Date.Equal(date(2026, 3, 3)) {
		t.Errorf("most steps = %+v", got.MostSteps)
	}
	if got.SleepStreak.Length != 12 {
		t.Errorf("sleep streak = %+v", got.SleepStreak)
	}
}

func TestLiteCursor(t *testing.T) {
	l := openTestLite(t)
	ctx := context.Background()

	cur, err := l.GetCursor(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !cur.LastProcessedAt.Equal(models.CursorSentinel) {
		t.Errorf("fresh cursor = %v, want sentinel", cur.LastProcessedAt)
	}

	cur.LastProcessedAt = time.Date(2026, 3, 4, 12, 30, 0, 0, time.UTC)
	cur.HighscoresLastUpdated = cur.LastProcessedAt
	cur.FirstSampleDate = date(2025, 11, 1)
	if err := l.PutCursor(ctx, cur); err != nil {
		t.Fatal(err)
	}

	got, err := l.GetCursor(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastProcessedAt.Equal(cur.LastProcessedAt) || !got.FirstSampleDate.Equal(cur.FirstSampleDate) {
		t.Errorf("cursor = %+v, want %+v", got, cur)
	}
}

func TestLiteDeleteDerived(t *testing.T) {
	l := openTestLite(t)
	ctx := context.Background()

	if err := l.UpsertDay(ctx, models.DayRecord{UserID: 1, Day: date(2026, 3, 2)}); err != nil {
		t.Fatal(err)
	}
	if err := l.PutCursor(ctx, models.SyncCursor{UserID: 1, LastProcessedAt: date(2026, 3, 2), HighscoresLastUpdated: date(2026, 3, 2), FirstSampleDate: date(2026, 3, 2)}); err != nil {
		t.Fatal(err)
	}

	if err := l.DeleteDerived(ctx, 1); err != nil {
		t.Fatal(err)
	}

	days, _ := l.AllDays(ctx, 1)
	if len(days) != 0 {
		t.Errorf("got %d records after clear", len(days))
	}
	cur, _ := l.GetCursor(ctx, 1)
	if !cur.LastProcessedAt.Equal(models.CursorSentinel) {
		t.Errorf("cursor after clear = %v, want sentinel", cur.LastProcessedAt)
	}
}
