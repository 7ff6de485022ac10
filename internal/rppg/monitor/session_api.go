package monitor

import (
	"fmt"
	"net/http"

	"github.com/heartbeam-data/pulse.report/internal/httputil"
)

// handleSessions returns recent sessions, newest first.
// Query params:
//
//	limit (optional, default 20)
func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.store == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	limit := httputil.QueryInt(r, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	sessions, err := ws.store.RecentSessions(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list sessions: %v", err))
		return
	}

	httputil.WriteJSONOK(w, sessions)
}

// handleReadings returns one session's readings in time order.
// Query params:
//
//	session (required)
//	limit (optional, default 500)
func (ws *WebServer) handleReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.store == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		httputil.BadRequest(w, "missing 'session' parameter")
		return
	}

	limit := httputil.QueryInt(r, "limit", 500)
	if limit <= 0 || limit > 10000 {
		limit = 500
	}

	readings, err := ws.store.ListReadings(sessionID, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list readings: %v", err))
		return
	}

	summary, err := ws.store.SessionSummary(sessionID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("session summary: %v", err))
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"session":  sessionID,
		"summary":  summary,
		"readings": readings,
	})
}
