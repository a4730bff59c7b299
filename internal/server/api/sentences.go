package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/signlens/internal/store"
)

// SentenceHandler serves saved sentences.
type SentenceHandler struct {
	store *store.Store
}

// NewSentenceHandler creates a SentenceHandler with the given store.
func NewSentenceHandler(s *store.Store) *SentenceHandler {
	return &SentenceHandler{store: s}
}

type sentenceResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type listSentencesResponse struct {
	Sentences []sentenceResponse `json:"sentences"`
}

func toSentenceResponse(s *store.Sentence) sentenceResponse {
	return sentenceResponse{
		ID:        s.ID,
		SessionID: s.SessionID,
		Text:      s.Text,
		CreatedAt: s.CreatedAt.Format(timeFormat),
	}
}

// ServeHTTP routes /api/sentences and /api/sentences/{id}.
func (h *SentenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/sentences")

	switch len(parts) {
	case 0:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.list(w)
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, parts[0])
		case http.MethodDelete:
			h.delete(w, parts[0])
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SentenceHandler) list(w http.ResponseWriter) {
	sentences, err := h.store.Sentences().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sentences")
		return
	}

	response := listSentencesResponse{Sentences: make([]sentenceResponse, 0, len(sentences))}
	for _, s := range sentences {
		response.Sentences = append(response.Sentences, toSentenceResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SentenceHandler) get(w http.ResponseWriter, id string) {
	s, err := h.store.Sentences().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sentence not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sentence")
		return
	}
	writeJSON(w, http.StatusOK, toSentenceResponse(s))
}

func (h *SentenceHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Sentences().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sentence not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sentence")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
