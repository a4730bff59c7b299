package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/signlens/internal/dataset"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/pipeline"
	"github.com/ayusman/signlens/internal/store"
)

// maxCaptureBody bounds a capture upload.
const maxCaptureBody = 16 << 20

// CaptureHandler saves labelled dataset images and lists them.
type CaptureHandler struct {
	saver *dataset.Saver
	store *store.Store
}

// NewCaptureHandler creates a CaptureHandler.
func NewCaptureHandler(saver *dataset.Saver, s *store.Store) *CaptureHandler {
	return &CaptureHandler{saver: saver, store: s}
}

type createCaptureRequest struct {
	ImageData   string `json:"image_data"`
	Hand        string `json:"hand"`
	GestureName string `json:"gesture_name"`
}

type captureResponse struct {
	ID        string `json:"id"`
	Hand      string `json:"hand"`
	Gesture   string `json:"gesture"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at,omitempty"`
}

type listCapturesResponse struct {
	Captures []captureResponse    `json:"captures"`
	Counts   []store.GestureCount `json:"counts"`
}

func toCaptureResponse(c *store.Capture) captureResponse {
	resp := captureResponse{ID: c.ID, Hand: c.Hand, Gesture: c.Gesture, Path: c.Path}
	if !c.CreatedAt.IsZero() {
		resp.CreatedAt = c.CreatedAt.Format(timeFormat)
	}
	return resp
}

// ServeHTTP handles POST and GET /api/captures.
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *CaptureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createCaptureRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCaptureBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ImageData == "" {
		writeError(w, http.StatusBadRequest, "image_data is required")
		return
	}

	c, err := h.saver.Save(req.ImageData, req.Hand, req.GestureName)
	switch {
	case errors.Is(err, dataset.ErrInvalidCapture):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, pipeline.ErrDecode):
		writeError(w, http.StatusBadRequest, "Invalid image data")
		return
	case err != nil:
		logging.Error.Printf("save capture: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save capture")
		return
	}

	logging.Info.Printf("capture saved: %s", c.Path)
	writeJSON(w, http.StatusCreated, toCaptureResponse(c))
}

func (h *CaptureHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	captures, err := h.store.Captures().List(q.Get("hand"), q.Get("gesture"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list captures")
		return
	}
	counts, err := h.store.Captures().Counts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count captures")
		return
	}

	response := listCapturesResponse{
		Captures: make([]captureResponse, 0, len(captures)),
		Counts:   counts,
	}
	if response.Counts == nil {
		response.Counts = []store.GestureCount{}
	}
	for _, c := range captures {
		response.Captures = append(response.Captures, toCaptureResponse(c))
	}
	writeJSON(w, http.StatusOK, response)
}
