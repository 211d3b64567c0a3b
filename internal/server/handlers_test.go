package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/source"
	"github.com/meltforce/vitalsync/internal/storage"
	vsync "github.com/meltforce/vitalsync/internal/sync"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestServer builds a Server over the in-memory store with a canned raw
// source. db and hae stay nil, as in embedded-store deployments.
func newTestServer(rows []models.MetricSampleRow) (*Server, *storage.Mem) {
	store := storage.NewMem()
	src := source.NewStatic(rows, nil, []string{"Apple Watch", "iPhone"})
	syncer := vsync.New(src, store, testLogger())
	syncer.SetClock(func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) })
	return New(store, nil, nil, syncer, "test-key", testLogger()), store
}

func TestHandleHealthz(t *testing.T) {
	s, _ := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

// TestHandleMeDefault verifies /api/v1/me reports the dev identity when no
// Tailscale client is configured.
func TestHandleMeDefault(t *testing.T) {
	s, _ := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeResolvedUser verifies /api/v1/me echoes the identity set by
// middleware.
func TestHandleMeResolvedUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
}

func TestHandleHighscores(t *testing.T) {
	s, store := newTestServer(nil)
	hs := models.HighscoreRecord{UserID: 1}
	hs.MostSteps = models.Highscore{Value: 21000, Date: date(2026, 3, 3)}
	if err := store.PutHighscores(context.Background(), hs); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/highscores", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got models.HighscoreRecord
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.MostSteps.Value != 21000 {
		t.Errorf("most steps = %v, want 21000", got.MostSteps.Value)
	}
}

func TestHandleRollupDay(t *testing.T) {
	s, store := newTestServer(nil)
	ctx := context.Background()
	for d := 2; d <= 4; d++ {
		rec := models.DayRecord{UserID: 1, Day: date(2026, 3, d), Bundle: models.MetricBundle{Steps: int64(d * 1000)}}
		if err := store.UpsertDay(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rollup/day?start=2026-03-02&end=2026-03-03", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var days []models.DayRecord
	if err := json.NewDecoder(rec.Body).Decode(&days); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2 (end date is inclusive)", len(days))
	}
	if days[1].Bundle.Steps != 3000 {
		t.Errorf("second day steps = %d, want 3000", days[1].Bundle.Steps)
	}
}

func TestHandleRollupWeek(t *testing.T) {
	s, store := newTestServer(nil)
	ctx := context.Background()
	for _, wk := range []models.WeekRecord{
		{UserID: 1, WeekStart: date(2026, 2, 23), Bundle: models.MetricBundle{Steps: 30000}},
		{UserID: 1, WeekStart: date(2026, 3, 2), Bundle: models.MetricBundle{Steps: 42000}},
		{UserID: 1, WeekStart: date(2026, 3, 9), Bundle: models.MetricBundle{Steps: 51000}},
	} {
		if err := store.UpsertWeek(ctx, wk); err != nil {
			t.Fatal(err)
		}
	}

	// Requesting mid-week still keeps the week containing the start date.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rollup/week?start=2026-03-04&end=2026-03-10", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var weeks []models.WeekRecord
	if err := json.NewDecoder(rec.Body).Decode(&weeks); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(weeks) != 2 {
		t.Fatalf("got %d weeks, want 2: %+v", len(weeks), weeks)
	}
	if weeks[0].Bundle.Steps != 42000 || weeks[1].Bundle.Steps != 51000 {
		t.Errorf("weeks = %+v", weeks)
	}
}

// TestHandleRollupWeekNoRange pins that a request without range parameters
// returns full history. The MCP data source fetches everything this way and
// narrows on its own side.
func TestHandleRollupWeekNoRange(t *testing.T) {
	s, store := newTestServer(nil)
	ctx := context.Background()
	for _, wk := range []models.WeekRecord{
		{UserID: 1, WeekStart: date(2025, 6, 2), Bundle: models.MetricBundle{Steps: 20000}},
		{UserID: 1, WeekStart: date(2026, 3, 2), Bundle: models.MetricBundle{Steps: 42000}},
	} {
		if err := store.UpsertWeek(ctx, wk); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rollup/week", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var weeks []models.WeekRecord
	if err := json.NewDecoder(rec.Body).Decode(&weeks); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(weeks) != 2 {
		t.Errorf("got %d weeks, want full history of 2", len(weeks))
	}
}

func TestHandleRollupMonthRange(t *testing.T) {
	s, store := newTestServer(nil)
	ctx := context.Background()
	for _, m := range []models.MonthRecord{
		{UserID: 1, Month: models.MonthKey{Year: 2026, Month: 1}, Bundle: models.MetricBundle{Steps: 100000}},
		{UserID: 1, Month: models.MonthKey{Year: 2026, Month: 2}, Bundle: models.MetricBundle{Steps: 110000}},
		{UserID: 1, Month: models.MonthKey{Year: 2026, Month: 3}, Bundle: models.MetricBundle{Steps: 120000}},
	} {
		if err := store.UpsertMonth(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rollup/month?start=2026-02-10&end=2026-03-05", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var months []models.MonthRecord
	if err := json.NewDecoder(rec.Body).Decode(&months); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(months) != 2 {
		t.Fatalf("got %d months, want 2: %+v", len(months), months)
	}
	if months[0].Month.Month != 2 || months[1].Month.Month != 3 {
		t.Errorf("months = %+v", months)
	}
}

func TestHandleRollupYearRange(t *testing.T) {
	s, store := newTestServer(nil)
	ctx := context.Background()
	for _, y := range []models.YearRecord{
		{UserID: 1, Year: 2025, Bundle: models.MetricBundle{Steps: 900000}},
		{UserID: 1, Year: 2026, Bundle: models.MetricBundle{Steps: 500000}},
	} {
		if err := store.UpsertYear(ctx, y); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rollup/year?start=2026-01-01&end=2026-12-31", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var years []models.YearRecord
	if err := json.NewDecoder(rec.Body).Decode(&years); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(years) != 1 || years[0].Year != 2026 {
		t.Errorf("years = %+v", years)
	}
}

func TestHandleRollupBadGranularity(t *testing.T) {
	s, _ := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rollup/decade", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRollupBadRange(t *testing.T) {
	s, _ := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rollup/day?start=not-a-date", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestPostgresOnlyEndpoints verifies the endpoints backed by the Postgres
// store respond 503 on an embedded deployment rather than panicking.
func TestPostgresOnlyEndpoints(t *testing.T) {
	s, _ := newTestServer(nil)

	for _, tt := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/stats"},
		{http.MethodGet, "/api/v1/sync/runs"},
	} {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: status = %d, want 503", tt.method, tt.path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader("{}"))
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ingest: status = %d, want 503", rec.Code)
	}
}

// TestSyncStream runs an initialize through the HTTP surface and checks the
// NDJSON stream: progress lines first, then a terminal status line.
func TestSyncStream(t *testing.T) {
	rows := []models.MetricSampleRow{
		{Day: date(2026, 3, 2), UserID: 1, MetricName: "step_count", Source: "iPhone", Qty: 12000},
	}
	s, store := newTestServer(rows)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/initialize", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q, want application/x-ndjson", ct)
	}

	var lines []string
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	if len(lines) < 2 {
		t.Fatalf("got %d lines, want progress plus a status line", len(lines))
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &status); err != nil {
		t.Fatalf("terminal line %q: %v", lines[len(lines)-1], err)
	}
	if status.Status != "ok" {
		t.Errorf("status = %q, want ok", status.Status)
	}

	var ev vsync.Progress
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("first line %q: %v", lines[0], err)
	}
	if ev.Phase == "" {
		t.Error("first progress line has no phase")
	}

	days, _ := store.AllDays(context.Background(), 1)
	if len(days) == 0 {
		t.Error("sync produced no day records")
	}
}

// TestSyncStreamFailure verifies a failing run still ends the stream with a
// parseable failed status line.
func TestSyncStreamFailure(t *testing.T) {
	rows := []models.MetricSampleRow{
		{Day: date(2026, 3, 2), UserID: 1, MetricName: "step_count", Source: "iPhone", Qty: 12000},
	}
	s, store := newTestServer(rows)
	store.FailWrites = true

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/initialize", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var lines []string
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	if len(lines) == 0 {
		t.Fatal("no output lines")
	}

	var status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &status); err != nil {
		t.Fatalf("terminal line %q: %v", lines[len(lines)-1], err)
	}
	if status.Status != "failed" || status.Error == "" {
		t.Errorf("terminal status = %+v, want failed with an error message", status)
	}
}

func TestHandleSyncClear(t *testing.T) {
	s, store := newTestServer(nil)
	ctx := context.Background()
	rec := models.DayRecord{UserID: 1, Day: date(2026, 3, 2), Bundle: models.MetricBundle{Steps: 1000}}
	if err := store.UpsertDay(ctx, rec); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/clear", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	days, _ := store.AllDays(ctx, 1)
	if len(days) != 0 {
		t.Errorf("got %d day records after clear", len(days))
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "bare dates",
			query:     "start=2026-03-02&end=2026-03-03",
			wantStart: date(2026, 3, 2),
			wantEnd:   date(2026, 3, 3).Add(24*time.Hour - time.Nanosecond),
		},
		{
			name:      "rfc3339",
			query:     "start=2026-03-02T06:00:00Z&end=2026-03-02T18:00:00Z",
			wantStart: time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
		},
		{
			name:    "bad start",
			query:   "start=yesterday",
			wantErr: true,
		},
		{
			name:    "bad end",
			query:   "start=2026-03-02&end=tomorrow",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			start, end, err := parseTimeRange(req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
		})
	}
}

func TestParseTimeRangeDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	start, end, err := parseTimeRange(req)
	if err != nil {
		t.Fatal(err)
	}
	if window := end.Sub(start); window != 30*24*time.Hour {
		t.Errorf("default window = %v, want 720h", window)
	}
}
