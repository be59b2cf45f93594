package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/ghostglove/internal/store"
)

// HistoryHandler serves keystroke history from the store.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// ServeHTTP routes:
//
//	GET /api/history                 per-label counts, optionally ?session={id}
//	GET /api/history/sessions        all sessions
//	GET /api/history/sessions/{id}   one session and its keystrokes
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/history")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		h.counts(w, r)
	case path == "sessions":
		h.sessions(w, r)
	case strings.HasPrefix(path, "sessions/"):
		h.session(w, r, strings.TrimPrefix(path, "sessions/"))
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type countsResponse struct {
	Session string             `json:"session,omitempty"`
	Counts  []store.LabelCount `json:"counts"`
}

type sessionResponse struct {
	ID         string              `json:"id"`
	Strategy   string              `json:"strategy"`
	StartedAt  string              `json:"started_at"`
	EndedAt    string              `json:"ended_at,omitempty"`
	Keystrokes []keystrokeResponse `json:"keystrokes,omitempty"`
}

type keystrokeResponse struct {
	Label     string  `json:"label"`
	Slot      int     `json:"slot"`
	Distance  float64 `json:"distance"`
	CreatedAt string  `json:"created_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Strategy:  s.Strategy,
		StartedAt: s.StartedAt.Format(timeFormat),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(timeFormat)
	}
	return resp
}

// counts handles GET /api/history.
func (h *HistoryHandler) counts(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")

	counts, err := h.store.Keystrokes().CountByLabel(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count keystrokes")
		return
	}

	writeJSON(w, http.StatusOK, countsResponse{Session: sessionID, Counts: counts})
}

// sessions handles GET /api/history/sessions.
func (h *HistoryHandler) sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// session handles GET /api/history/sessions/{id}.
func (h *HistoryHandler) session(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	keystrokes, err := h.store.Keystrokes().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list keystrokes")
		return
	}

	response := toSessionResponse(sess)
	for _, k := range keystrokes {
		response.Keystrokes = append(response.Keystrokes, keystrokeResponse{
			Label:     k.Label,
			Slot:      k.Slot,
			Distance:  k.Distance,
			CreatedAt: k.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
