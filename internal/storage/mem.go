package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
)

// Mem is an in-process Store used by engine tests and the dev/demo mode.
// Keys follow the same content-addressed scheme as the SQL backends.
type Mem struct {
	mu         sync.Mutex
	days       map[int]map[time.Time]models.DayRecord
	weeks      map[int]map[time.Time]models.WeekRecord
	months     map[int]map[models.MonthKey]models.MonthRecord
	years      map[int]map[int]models.YearRecord
	highscores map[int]models.HighscoreRecord
	cursors    map[int]models.SyncCursor

	// FailWrites makes every write return ErrWriteFailed, for testing the
	// abort-remaining-phases behavior.
	FailWrites bool
}

var _ Store = (*Mem)(nil)

// NewMem returns an empty in-memory store.
func NewMem() *Mem {
	return &Mem{
		days:       map[int]map[time.Time]models.DayRecord{},
		weeks:      map[int]map[time.Time]models.WeekRecord{},
		months:     map[int]map[models.MonthKey]models.MonthRecord{},
		years:      map[int]map[int]models.YearRecord{},
		highscores: map[int]models.HighscoreRecord{},
		cursors:    map[int]models.SyncCursor{},
	}
}

func (m *Mem) writeErr() error {
	if m.FailWrites {
		return ErrWriteFailed
	}
	return nil
}

// UpsertDay stores a day record keyed by (user, day).
func (m *Mem) UpsertDay(ctx context.Context, rec models.DayRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(); err != nil {
		return err
	}
	if m.days[rec.UserID] == nil {
		m.days[rec.UserID] = map[time.Time]models.DayRecord{}
	}
	m.days[rec.UserID][rec.Day.UTC()] = rec
	return nil
}

// UpsertWeek stores a week record keyed by (user, week start).
func (m *Mem) UpsertWeek(ctx context.Context, rec models.WeekRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(); err != nil {
		return err
	}
	if m.weeks[rec.UserID] == nil {
		m.weeks[rec.UserID] = map[time.Time]models.WeekRecord{}
	}
	m.weeks[rec.UserID][rec.WeekStart.UTC()] = rec
	return nil
}

// UpsertMonth stores a month record keyed by (user, year, month).
func (m *Mem) UpsertMonth(ctx context.Context, rec models.MonthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(); err != nil {
		return err
	}
	if m.months[rec.UserID] == nil {
		m.months[rec.UserID] = map[models.MonthKey]models.MonthRecord{}
	}
	m.months[rec.UserID][rec.Month] = rec
	return nil
}

// UpsertYear stores a year record keyed by (user, year).
func (m *Mem) UpsertYear(ctx context.Context, rec models.YearRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(); err != nil {
		return err
	}
	if m.years[rec.UserID] == nil {
		m.years[rec.UserID] = map[int]models.YearRecord{}
	}
	m.years[rec.UserID][rec.Year] = rec
	return nil
}

// DaysInRange returns day records with from <= day <= to, ascending.
func (m *Mem) DaysInRange(ctx context.Context, userID int, from, to time.Time) ([]models.DayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.DayRecord
	for day, rec := range m.days[userID] {
		if day.Before(from) || day.After(to) {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.Before(result[j].Day) })
	return result, nil
}

// AllDays returns every day record for the user, ascending by day.
func (m *Mem) AllDays(ctx context.Context, userID int) ([]models.DayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.DayRecord
	for _, rec := range m.days[userID] {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.Before(result[j].Day) })
	return result, nil
}

// Weeks returns every week record for the user, ascending by week start.
func (m *Mem) Weeks(ctx context.Context, userID int) ([]models.WeekRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.WeekRecord
	for _, rec := range m.weeks[userID] {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].WeekStart.Before(result[j].WeekStart) })
	return result, nil
}

// Months returns every month record for the user, ascending.
func (m *Mem) Months(ctx context.Context, userID int) ([]models.MonthRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.MonthRecord
	for _, rec := range m.months[userID] {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Month.Year != result[j].Month.Year {
			return result[i].Month.Year < result[j].Month.Year
		}
		return result[i].Month.Month < result[j].Month.Month
	})
	return result, nil
}

// Years returns every year record for the user, ascending.
func (m *Mem) Years(ctx context.Context, userID int) ([]models.YearRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.YearRecord
	for _, rec := range m.years[userID] {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Year < result[j].Year })
	return result, nil
}

// GetHighscores returns the stored ledger or a zero-valued one.
func (m *Mem) GetHighscores(ctx context.Context, userID int) (models.HighscoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.highscores[userID]; ok {
		return rec, nil
	}
	return models.HighscoreRecord{UserID: userID}, nil
}

// PutHighscores stores the user's ledger.
func (m *Mem) PutHighscores(ctx context.Context, rec models.HighscoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(); err != nil {
		return err
	}
	m.highscores[rec.UserID] = rec
	return nil
}

// GetCursor returns the stored cursor or a sentinel one.
func (m *Mem) GetCursor(ctx context.Context, userID int) (models.SyncCursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.cursors[userID]; ok {
		return cur, nil
	}
	return models.NewSyncCursor(userID), nil
}

// PutCursor stores the user's cursor.
func (m *Mem) PutCursor(ctx context.Context, cur models.SyncCursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(); err != nil {
		return err
	}
	m.cursors[cur.UserID] = cur
	return nil
}

// DeleteDerived removes all derived records and the cursor for a user.
func (m *Mem) DeleteDerived(ctx context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErr(); err != nil {
		return err
	}
	delete(m.days, userID)
	delete(m.weeks, userID)
	delete(m.months, userID)
	delete(m.years, userID)
	delete(m.highscores, userID)
	delete(m.cursors, userID)
	return nil
}
