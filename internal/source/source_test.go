package source

import (
	"context"
	"testing"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var testPriority = []string{"Apple Watch", "iPhone"}

// TestResolveSleepPriority verifies the highest-priority source wins even
// when a lower-priority source reports a longer night.
func TestResolveSleepPriority(t *testing.T) {
	night := date(2026, 3, 2)
	rows := []models.SleepSampleRow{
		{Day: night, UserID: 1, Source: "iPhone", TotalMinutes: 420, DeepMinutes: 0, REMMinutes: 0},
		{Day: night, UserID: 1, Source: "Apple Watch", TotalMinutes: 400, DeepMinutes: 85, REMMinutes: 95},
	}

	resolved := ResolveSleep(rows, testPriority)
	got, ok := resolved[night]
	if !ok {
		t.Fatal("night missing from resolution")
	}
	if got.Source != "Apple Watch" {
		t.Errorf("source = %q, want Apple Watch", got.Source)
	}
	if got.TotalMinutes != 400 {
		t.Errorf("total = %d, want 400 (watch value, not phone's longer one)", got.TotalMinutes)
	}
}

// TestResolveSleepUnlistedSource verifies sources missing from the priority
// list rank below every listed one, and that ties between unlisted sources
// break deterministically by name.
func TestResolveSleepUnlistedSource(t *testing.T) {
	night := date(2026, 3, 2)

	resolved := ResolveSleep([]models.SleepSampleRow{
		{Day: night, UserID: 1, Source: "Garmin", TotalMinutes: 500},
		{Day: night, UserID: 1, Source: "iPhone", TotalMinutes: 410},
	}, testPriority)
	if got := resolved[night].Source; got != "iPhone" {
		t.Errorf("source = %q, want iPhone (listed beats unlisted)", got)
	}

	resolved = ResolveSleep([]models.SleepSampleRow{
		{Day: night, UserID: 1, Source: "Zepp", TotalMinutes: 480},
		{Day: night, UserID: 1, Source: "Garmin", TotalMinutes: 470},
	}, testPriority)
	if got := resolved[night].Source; got != "Garmin" {
		t.Errorf("source = %q, want Garmin (name tiebreak)", got)
	}
}

// TestResolveSleepPerDay verifies resolution is independent per night.
func TestResolveSleepPerDay(t *testing.T) {
	rows := []models.SleepSampleRow{
		{Day: date(2026, 3, 2), UserID: 1, Source: "iPhone", TotalMinutes: 420},
		{Day: date(2026, 3, 3), UserID: 1, Source: "Apple Watch", TotalMinutes: 390},
		{Day: date(2026, 3, 3), UserID: 1, Source: "iPhone", TotalMinutes: 430},
	}

	resolved := ResolveSleep(rows, testPriority)
	if len(resolved) != 2 {
		t.Fatalf("got %d nights, want 2", len(resolved))
	}
	if resolved[date(2026, 3, 2)].Source != "iPhone" {
		t.Error("night with only iPhone data should use iPhone")
	}
	if resolved[date(2026, 3, 3)].Source != "Apple Watch" {
		t.Error("night with both sources should use Apple Watch")
	}
}

// TestBuildDays verifies metric samples sum across sources while sleep is
// resolved exclusively, and that empty days appear with the zero bundle.
func TestBuildDays(t *testing.T) {
	from, to := date(2026, 3, 1), date(2026, 3, 3)
	metricRows := []models.MetricSampleRow{
		{Day: date(2026, 3, 2), UserID: 1, MetricName: models.MetricSteps, Source: "iPhone", Qty: 6000},
		{Day: date(2026, 3, 2), UserID: 1, MetricName: models.MetricSteps, Source: "Apple Watch", Qty: 4000},
		{Day: date(2026, 3, 2), UserID: 1, MetricName: models.MetricExerciseTime, Source: "Apple Watch", Qty: 45},
	}
	sleepRows := []models.SleepSampleRow{
		{Day: date(2026, 3, 2), UserID: 1, Source: "Apple Watch", TotalMinutes: 400, DeepMinutes: 85, REMMinutes: 95},
		{Day: date(2026, 3, 2), UserID: 1, Source: "iPhone", TotalMinutes: 430},
	}

	days := BuildDays(metricRows, sleepRows, testPriority, from, to)
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3", len(days))
	}

	b := days[date(2026, 3, 2)]
	if b.Steps != 10000 {
		t.Errorf("steps = %d, want 10000 (summed across sources)", b.Steps)
	}
	if b.ExerciseMinutes != 45 {
		t.Errorf("exercise = %d, want 45", b.ExerciseMinutes)
	}
	if b.SleepTotalMinutes != 400 || b.SleepDeepMinutes != 85 || b.SleepREMMinutes != 95 {
		t.Errorf("sleep = %d/%d/%d, want 400/85/95 (watch only, never summed)",
			b.SleepTotalMinutes, b.SleepDeepMinutes, b.SleepREMMinutes)
	}

	if !days[date(2026, 3, 1)].IsZero() {
		t.Error("day without samples should hold the zero bundle")
	}
	if !days[date(2026, 3, 3)].IsZero() {
		t.Error("day without samples should hold the zero bundle")
	}
}

// TestBuildDaysIgnoresOutOfWindow verifies samples outside [from, to] are
// dropped rather than creating extra days.
func TestBuildDaysIgnoresOutOfWindow(t *testing.T) {
	days := BuildDays(
		[]models.MetricSampleRow{
			{Day: date(2026, 2, 28), UserID: 1, MetricName: models.MetricSteps, Qty: 5000},
		},
		nil, testPriority, date(2026, 3, 1), date(2026, 3, 2),
	)
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	for d, b := range days {
		if !b.IsZero() {
			t.Errorf("day %v should be zero, got %+v", d, b)
		}
	}
}

// TestStaticWindowFilter verifies the static source restricts rows to the
// requested window and user.
func TestStaticWindowFilter(t *testing.T) {
	src := NewStatic(
		[]models.MetricSampleRow{
			{Day: date(2026, 3, 1), UserID: 1, MetricName: models.MetricSteps, Qty: 1000},
			{Day: date(2026, 3, 2), UserID: 1, MetricName: models.MetricSteps, Qty: 2000},
			{Day: date(2026, 3, 2), UserID: 2, MetricName: models.MetricSteps, Qty: 9999},
			{Day: date(2026, 3, 5), UserID: 1, MetricName: models.MetricSteps, Qty: 4000},
		},
		nil, testPriority,
	)

	res, err := src.FetchDailyMetrics(context.Background(), 1, date(2026, 3, 2), date(2026, 3, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Days) != 2 {
		t.Fatalf("got %d days, want 2", len(res.Days))
	}
	if got := res.Days[date(2026, 3, 2)].Steps; got != 2000 {
		t.Errorf("steps = %d, want 2000 (other user's rows excluded)", got)
	}
}

// TestStaticEarliestSampleDate covers both sample kinds and the empty case.
func TestStaticEarliestSampleDate(t *testing.T) {
	src := NewStatic(
		[]models.MetricSampleRow{{Day: date(2026, 3, 2), UserID: 1, MetricName: models.MetricSteps, Qty: 1}},
		[]models.SleepSampleRow{{Day: date(2026, 2, 27), UserID: 1, Source: "Apple Watch", TotalMinutes: 400}},
		testPriority,
	)

	got, err := src.EarliestSampleDate(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(date(2026, 2, 27)) {
		t.Errorf("earliest = %v, want 2026-02-27", got)
	}

	empty := NewStatic(nil, nil, testPriority)
	got, err = empty.EarliestSampleDate(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsZero() {
		t.Errorf("earliest for empty source = %v, want zero", got)
	}
}

// TestStaticErr verifies the injected error propagates from every call.
func TestStaticErr(t *testing.T) {
	src := NewStatic(nil, nil, testPriority)
	src.Err = ErrUnavailable

	if _, err := src.FetchDailyMetrics(context.Background(), 1, date(2026, 3, 1), date(2026, 3, 2)); err == nil {
		t.Error("expected fetch error")
	}
	if _, err := src.EarliestSampleDate(context.Background(), 1); err == nil {
		t.Error("expected earliest-date error")
	}
}
