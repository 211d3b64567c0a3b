package server

import (
	"context"
	"encoding/json"
	"net/http"

	vsync "github.com/meltforce/vitalsync/internal/sync"
)

// syncOp is one of the Syncer's run modes.
type syncOp func(ctx context.Context, userID int, events chan<- vsync.Progress) error

func (s *Server) handleSyncInitialize(w http.ResponseWriter, r *http.Request) {
	s.streamSync(w, r, s.syncer.Initialize)
}

func (s *Server) handleSyncIncremental(w http.ResponseWriter, r *http.Request) {
	s.streamSync(w, r, s.syncer.IncrementalUpdate)
}

func (s *Server) handleSyncRefresh(w http.ResponseWriter, r *http.Request) {
	s.streamSync(w, r, s.syncer.Refresh)
}

// streamSync runs a sync operation and streams its progress events to the
// client as newline-delimited JSON, one event per line, ending with a status
// line. The run itself is unaffected if the client disconnects early: the
// request context cancels the fetch, but progress delivery is advisory.
func (s *Server) streamSync(w http.ResponseWriter, r *http.Request, op syncOp) {
	if s.syncer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "sync is not configured"})
		return
	}
	userID := userIDFromContext(r)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	events := make(chan vsync.Progress, 64)
	done := make(chan error, 1)
	go func() {
		done <- op(r.Context(), userID, events)
		close(events)
	}()

	enc := json.NewEncoder(w)
	for ev := range events {
		enc.Encode(ev)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := <-done; err != nil {
		s.log.Error("sync failed", "user", userID, "error", err)
		enc.Encode(map[string]string{"status": "failed", "error": err.Error()})
	} else {
		enc.Encode(map[string]string{"status": "ok"})
	}
	if flusher != nil {
		flusher.Flush()
	}
}

func (s *Server) handleSyncClear(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "sync is not configured"})
		return
	}
	userID := userIDFromContext(r)
	if err := s.syncer.ClearAnalytics(r.Context(), userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
