package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/signlens/internal/store"
)

// SessionsHandler serves recorded sessions and their confirmed signs.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type sessionResponse struct {
	ID        string `json:"id"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type signResponse struct {
	Label       string `json:"label"`
	ConfirmedAt string `json:"confirmed_at"`
}

type listSignsResponse struct {
	SessionID string         `json:"session_id"`
	Signs     []signResponse `json:"signs"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{ID: s.ID, StartedAt: s.StartedAt.Format(timeFormat)}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(timeFormat)
	}
	return resp
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/signs.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	parts := pathParts(r.URL.Path, "/api/sessions")
	switch {
	case len(parts) == 0:
		h.list(w)
	case len(parts) == 1:
		h.get(w, parts[0])
	case len(parts) == 2 && parts[1] == "signs":
		h.signs(w, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionsHandler) list(w http.ResponseWriter) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

func (h *SessionsHandler) signs(w http.ResponseWriter, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	signs, err := h.store.Signs().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{SessionID: id, Signs: make([]signResponse, 0, len(signs))}
	for _, s := range signs {
		response.Signs = append(response.Signs, signResponse{Label: s.Label, ConfirmedAt: s.ConfirmedAt.Format(timeFormat)})
	}
	writeJSON(w, http.StatusOK, response)
}
