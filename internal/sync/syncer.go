// Package sync drives the phase sequence of a synchronization run: raw fetch,
// daily rollup, weekly/monthly/yearly rollups, highscore pass, cursor commit.
// The cursor is written only after every phase of the invocation commits, so
// a failed run resumes from the same window on retry. Each phase's writes are
// idempotent overwrites; re-running repairs any partially written levels.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/vitalsync/internal/highscore"
	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
	"github.com/meltforce/vitalsync/internal/rollup"
	"github.com/meltforce/vitalsync/internal/source"
	"github.com/meltforce/vitalsync/internal/storage"
)

// RunLog records sync invocations for later inspection. Optional; a nil log
// disables recording. *storage.DB satisfies it.
type RunLog interface {
	InsertSyncRun(ctx context.Context, run storage.SyncRun) error
	FinishSyncRun(ctx context.Context, id uuid.UUID, status string, daysProcessed int, errMsg *string) error
}

// Syncer exposes the synchronization operations for a user.
type Syncer struct {
	source    source.DataSource
	store     storage.Store
	rollup    *rollup.Engine
	highscore *highscore.Engine
	log       *slog.Logger
	runlog    RunLog
	now       func() time.Time

	// One sync per user at a time. The cursor and ledger are read-then-
	// written within a run and are not designed for concurrent writers.
	mu    sync.Mutex
	users map[int]*sync.Mutex
}

// New creates a Syncer over the given collaborators.
func New(src source.DataSource, store storage.Store, log *slog.Logger) *Syncer {
	return &Syncer{
		source:    src,
		store:     store,
		rollup:    rollup.New(store, log),
		highscore: highscore.New(store, log),
		log:       log,
		now:       time.Now,
		users:     map[int]*sync.Mutex{},
	}
}

// SetClock overrides the time source, for tests.
func (s *Syncer) SetClock(now func() time.Time) {
	s.now = now
}

// SetRunLog enables sync-run recording.
func (s *Syncer) SetRunLog(rl RunLog) {
	s.runlog = rl
}

// startRun records the beginning of an invocation. Run logging is best
// effort; a failure to record never fails the sync.
func (s *Syncer) startRun(ctx context.Context, runID uuid.UUID, userID int, mode string, startedAt time.Time) {
	if s.runlog == nil {
		return
	}
	err := s.runlog.InsertSyncRun(ctx, storage.SyncRun{
		ID: runID, UserID: userID, Mode: mode, Status: "running", StartedAt: startedAt,
	})
	if err != nil {
		s.log.Warn("recording sync run failed", "run", runID, "error", err)
	}
}

func (s *Syncer) endRun(ctx context.Context, runID uuid.UUID, daysProcessed int, runErr error) {
	if s.runlog == nil {
		return
	}
	status := "ok"
	var errMsg *string
	if runErr != nil {
		status = "failed"
		msg := runErr.Error()
		errMsg = &msg
	}
	if err := s.runlog.FinishSyncRun(ctx, runID, status, daysProcessed, errMsg); err != nil {
		s.log.Warn("finishing sync run failed", "run", runID, "error", err)
	}
}

func (s *Syncer) userLock(userID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[userID] == nil {
		s.users[userID] = &sync.Mutex{}
	}
	return s.users[userID]
}

// Initialize performs a full (re)initialization: the raw window spans from
// the earliest sample ever observed to now, and the highscore ledger is
// rebuilt from every day record.
func (s *Syncer) Initialize(ctx context.Context, userID int, events chan<- Progress) (err error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	runID := uuid.New()
	rep := newReporter(events, runID)
	now := s.now().UTC()

	s.log.Info("full initialization starting", "user", userID, "run", runID)
	s.startRun(ctx, runID, userID, "initialize", now)
	daysProcessed := 0
	defer func() { s.endRun(ctx, runID, daysProcessed, err) }()

	first, err := s.source.EarliestSampleDate(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolving earliest sample: %w", err)
	}
	if first.IsZero() {
		s.log.Info("no raw data, nothing to initialize", "user", userID)
		rep.done("no data")
		return nil
	}

	daysProcessed, err = s.runWindow(ctx, userID, first, now, now, rep)
	if err != nil {
		return err
	}

	// Full ledger rebuild over every stored day.
	rep.emit(PhaseHighscores, "rebuilding highscores", 0)
	allDays, err := s.store.AllDays(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading day records: %w", err)
	}
	if _, err := s.highscore.UpdateMaxima(ctx, userID, allDays, now); err != nil {
		return err
	}
	if _, err := s.highscore.UpdateStreaks(ctx, userID, now); err != nil {
		return err
	}
	rep.emit(PhaseHighscores, "highscores rebuilt", 1)

	cur := models.SyncCursor{
		UserID:                userID,
		LastProcessedAt:       now,
		HighscoresLastUpdated: now,
		FirstSampleDate:       first,
	}
	rep.emit(PhaseCommit, "committing cursor", 0)
	if err := s.store.PutCursor(ctx, cur); err != nil {
		return fmt.Errorf("committing cursor: %w", err)
	}

	s.log.Info("full initialization complete", "user", userID, "run", runID, "from", first, "to", now)
	rep.done("initialized")
	return nil
}

// IncrementalUpdate processes the window from the last processed instant to
// now. The boundary day is re-processed in full, never assumed partially
// complete. An empty window (cursor ahead of the clock, or no new data)
// reports completion without touching any record.
func (s *Syncer) IncrementalUpdate(ctx context.Context, userID int, events chan<- Progress) (err error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	runID := uuid.New()
	rep := newReporter(events, runID)
	now := s.now().UTC()

	s.startRun(ctx, runID, userID, "incremental", now)
	daysProcessed := 0
	defer func() { s.endRun(ctx, runID, daysProcessed, err) }()

	cur, err := s.store.GetCursor(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading cursor: %w", err)
	}
	if !cur.LastProcessedAt.Before(now) {
		s.log.Info("empty sync window, nothing to do", "user", userID)
		rep.done("up to date")
		return nil
	}

	s.log.Info("incremental update starting",
		"user", userID, "run", runID, "from", cur.LastProcessedAt, "to", now)

	daysProcessed, err = s.runWindow(ctx, userID, cur.LastProcessedAt, now, now, rep)
	if err != nil {
		return err
	}
	if err := s.highscorePass(ctx, userID, cur, now, rep); err != nil {
		return err
	}

	cur.LastProcessedAt = now
	cur.HighscoresLastUpdated = now
	rep.emit(PhaseCommit, "committing cursor", 0)
	if err := s.store.PutCursor(ctx, cur); err != nil {
		return fmt.Errorf("committing cursor: %w", err)
	}

	s.log.Info("incremental update complete", "user", userID, "run", runID)
	rep.done("updated")
	return nil
}

// Refresh performs an incremental raw update but recomputes only the periods
// containing the current day, plus the incremental highscore window. It is
// the cheap composite used for frequent foreground refreshes.
func (s *Syncer) Refresh(ctx context.Context, userID int, events chan<- Progress) (err error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	runID := uuid.New()
	rep := newReporter(events, runID)
	now := s.now().UTC()

	s.startRun(ctx, runID, userID, "refresh", now)
	daysProcessed := 0
	defer func() { s.endRun(ctx, runID, daysProcessed, err) }()

	cur, err := s.store.GetCursor(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading cursor: %w", err)
	}
	if !cur.LastProcessedAt.Before(now) {
		rep.done("up to date")
		return nil
	}

	s.log.Info("refresh starting", "user", userID, "run", runID)

	days, err := s.fetchDays(ctx, userID, cur.LastProcessedAt, now, rep)
	if err != nil {
		return err
	}
	daysProcessed = len(days)
	if err := s.rollupDayPhase(ctx, userID, days, now, rep); err != nil {
		return err
	}
	// Current-period-only upper rollups: from == to == now touches exactly
	// the week, month, and year containing today.
	if err := s.upperRollups(ctx, userID, now, now, now, rep); err != nil {
		return err
	}
	if err := s.highscorePass(ctx, userID, cur, now, rep); err != nil {
		return err
	}

	cur.LastProcessedAt = now
	cur.HighscoresLastUpdated = now
	rep.emit(PhaseCommit, "committing cursor", 0)
	if err := s.store.PutCursor(ctx, cur); err != nil {
		return fmt.Errorf("committing cursor: %w", err)
	}

	s.log.Info("refresh complete", "user", userID, "run", runID)
	rep.done("refreshed")
	return nil
}

// ClearAnalytics deletes every derived record and resets the cursor to the
// sentinel. The next Initialize re-derives the data lower bound from the raw
// source.
func (s *Syncer) ClearAnalytics(ctx context.Context, userID int) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.DeleteDerived(ctx, userID); err != nil {
		return fmt.Errorf("clearing analytics: %w", err)
	}
	s.log.Info("analytics cleared", "user", userID)
	return nil
}

// runWindow runs the fetch and all four rollup phases over [from, to].
// Returns the number of days processed.
func (s *Syncer) runWindow(ctx context.Context, userID int, from, to, now time.Time, rep *reporter) (int, error) {
	days, err := s.fetchDays(ctx, userID, from, to, rep)
	if err != nil {
		return 0, err
	}
	if err := s.rollupDayPhase(ctx, userID, days, now, rep); err != nil {
		return len(days), err
	}
	return len(days), s.upperRollups(ctx, userID, from, to, now, rep)
}

func (s *Syncer) fetchDays(ctx context.Context, userID int, from, to time.Time, rep *reporter) (map[time.Time]models.MetricBundle, error) {
	rep.emit(PhaseFetch, "fetching raw metrics", 0)
	res, err := s.source.FetchDailyMetrics(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching raw metrics: %w", err)
	}
	for _, m := range res.FailedMetrics {
		s.log.Warn("metric type unavailable for window, recorded as zero", "user", userID, "metric", m)
	}
	rep.emit(PhaseFetch, "raw metrics fetched", 1)
	return res.Days, nil
}

func (s *Syncer) rollupDayPhase(ctx context.Context, userID int, days map[time.Time]models.MetricBundle, now time.Time, rep *reporter) error {
	total := len(days)
	done := 0
	rep.emit(PhaseDays, "rolling up days", 0)
	err := s.rollup.RollupDays(ctx, userID, days, now, func() {
		done++
		rep.emit(PhaseDays, "rolling up days", float64(done)/float64(max(total, 1)))
	})
	if err != nil {
		return err
	}
	rep.emit(PhaseDays, "days rolled up", 1)
	return nil
}

func (s *Syncer) upperRollups(ctx context.Context, userID int, from, to, now time.Time, rep *reporter) error {
	weekTotal := len(period.WeeksIn(from, to))
	weekDone := 0
	rep.emit(PhaseWeeks, "rolling up weeks", 0)
	if err := s.rollup.RollupWeeks(ctx, userID, from, to, now, func() {
		weekDone++
		rep.emit(PhaseWeeks, "rolling up weeks", float64(weekDone)/float64(max(weekTotal, 1)))
	}); err != nil {
		return err
	}

	monthTotal := len(period.MonthsIn(from, to))
	monthDone := 0
	rep.emit(PhaseMonths, "rolling up months", 0)
	if err := s.rollup.RollupMonths(ctx, userID, from, to, now, func() {
		monthDone++
		rep.emit(PhaseMonths, "rolling up months", float64(monthDone)/float64(max(monthTotal, 1)))
	}); err != nil {
		return err
	}

	yearTotal := len(period.YearsIn(from, to))
	yearDone := 0
	rep.emit(PhaseYears, "rolling up years", 0)
	if err := s.rollup.RollupYears(ctx, userID, from, to, now, func() {
		yearDone++
		rep.emit(PhaseYears, "rolling up years", float64(yearDone)/float64(max(yearTotal, 1)))
	}); err != nil {
		return err
	}
	return nil
}

// highscorePass runs the incremental maxima window plus the full streak
// recomputation. Streaks always rescan the whole day sequence: a new day can
// retroactively extend a run that started long before the incremental window.
func (s *Syncer) highscorePass(ctx context.Context, userID int, cur models.SyncCursor, now time.Time, rep *reporter) error {
	rep.emit(PhaseHighscores, "updating highscores", 0)
	windowDays, err := s.store.DaysInRange(ctx, userID, period.DayOf(cur.HighscoresLastUpdated), period.DayOf(now))
	if err != nil {
		return fmt.Errorf("loading highscore window: %w", err)
	}
	if _, err := s.highscore.UpdateMaxima(ctx, userID, windowDays, now); err != nil {
		return err
	}
	if _, err := s.highscore.UpdateStreaks(ctx, userID, now); err != nil {
		return err
	}
	rep.emit(PhaseHighscores, "highscores updated", 1)
	return nil
}
