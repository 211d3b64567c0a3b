package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.hae == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ingest requires the Postgres store"})
		return
	}

	var payload models.HAEPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	result, err := s.hae.Ingest(r.Context(), &payload, userIDFromContext(r))
	if err != nil {
		s.log.Error("ingest error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHighscores(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetHighscores(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)

	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	// Coarser granularities return full history unless a range was asked for.
	ranged := r.URL.Query().Get("start") != "" || r.URL.Query().Get("end") != ""

	var payload any
	switch chi.URLParam(r, "granularity") {
	case "day":
		payload, err = s.store.DaysInRange(r.Context(), userID, start, end)
	case "week":
		var weeks []models.WeekRecord
		weeks, err = s.store.Weeks(r.Context(), userID)
		if err == nil && ranged {
			// A week counts when its start key falls inside the range.
			kept := weeks[:0]
			for _, wk := range weeks {
				if !wk.WeekStart.Before(period.WeekStartOf(start)) && !wk.WeekStart.After(end) {
					kept = append(kept, wk)
				}
			}
			weeks = kept
		}
		payload = weeks
	case "month":
		var months []models.MonthRecord
		months, err = s.store.Months(r.Context(), userID)
		if err == nil && ranged {
			kept := months[:0]
			fy, fm := period.MonthOf(start)
			ly, lm := period.MonthOf(end)
			first := models.MonthKey{Year: fy, Month: fm}
			last := models.MonthKey{Year: ly, Month: lm}
			for _, m := range months {
				if !monthBefore(m.Month, first) && !monthBefore(last, m.Month) {
					kept = append(kept, m)
				}
			}
			months = kept
		}
		payload = months
	case "year":
		var years []models.YearRecord
		years, err = s.store.Years(r.Context(), userID)
		if err == nil && ranged {
			kept := years[:0]
			for _, y := range years {
				if y.Year >= start.Year() && y.Year <= end.Year() {
					kept = append(kept, y)
				}
			}
			years = kept
		}
		payload = years
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "granularity must be day, week, month, or year"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func monthBefore(a, b models.MonthKey) bool {
	return a.Year < b.Year || (a.Year == b.Year && a.Month < b.Month)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "stats require the Postgres store"})
		return
	}
	stats, err := s.db.GetDataStats(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSyncRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run history requires the Postgres store"})
		return
	}
	runs, err := s.db.RecentSyncRuns(r.Context(), userIDFromContext(r), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads optional start/end query parameters. Values are
// RFC3339 timestamps or bare dates; a bare end date is extended to the end
// of that day. Defaults to the last 30 days.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		end = time.Now().UTC()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now().UTC()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return
}
