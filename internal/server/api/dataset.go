package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ayusman/signlens/internal/dataset"
)

// DatasetHandler starts, stops and reports dataset builds.
type DatasetHandler struct {
	builder *dataset.Builder
	// ctx bounds background builds; it outlives any single request.
	ctx context.Context
}

// NewDatasetHandler creates a DatasetHandler. Builds started through it are
// cancelled with ctx.
func NewDatasetHandler(ctx context.Context, b *dataset.Builder) *DatasetHandler {
	return &DatasetHandler{builder: b, ctx: ctx}
}

type datasetStatusResponse struct {
	Status string `json:"status"`
}

// ServeHTTP handles POST (start), GET (status) and DELETE (stop) on
// /api/dataset.
func (h *DatasetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if err := h.builder.Start(h.ctx); err != nil {
			if errors.Is(err, dataset.ErrBusy) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to start dataset creation")
			return
		}
		writeJSON(w, http.StatusAccepted, datasetStatusResponse{Status: string(dataset.StatusInProgress)})
	case http.MethodGet:
		writeJSON(w, http.StatusOK, datasetStatusResponse{Status: string(h.builder.Status())})
	case http.MethodDelete:
		h.builder.Stop()
		h.builder.Wait()
		writeJSON(w, http.StatusOK, datasetStatusResponse{Status: string(h.builder.Status())})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
