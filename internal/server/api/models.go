package api

import (
	"net/http"

	"github.com/ayusman/signlens/internal/classifier"
)

// ModelsHandler lists the loaded classifiers.
type ModelsHandler struct {
	models *classifier.Set
}

// NewModelsHandler creates a ModelsHandler over models.
func NewModelsHandler(models *classifier.Set) *ModelsHandler {
	return &ModelsHandler{models: models}
}

type modelResponse struct {
	Selector string `json:"selector"`
	Kind     string `json:"kind"`
	Features int    `json:"features"`
}

type listModelsResponse struct {
	Models []modelResponse `json:"models"`
}

// ServeHTTP handles GET /api/models.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	response := listModelsResponse{Models: []modelResponse{}}
	for _, sel := range h.models.Selectors() {
		c, err := h.models.Get(sel)
		if err != nil {
			continue
		}
		response.Models = append(response.Models, modelResponse{
			Selector: sel,
			Kind:     string(c.Kind()),
			Features: c.NumFeatures(),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
