package api

import (
	"encoding/json"
	"net/http"
)

// Toggle switches gesture detection on and off.
type Toggle interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
}

// DetectionHandler serves GET and PUT /api/detection.
type DetectionHandler struct {
	toggle Toggle
}

// NewDetectionHandler creates a DetectionHandler.
func NewDetectionHandler(t Toggle) *DetectionHandler {
	return &DetectionHandler{toggle: t}
}

type detectionState struct {
	Enabled *bool `json:"enabled"`
}

func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req detectionState
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.toggle.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	enabled := h.toggle.IsEnabled()
	writeJSON(w, http.StatusOK, detectionState{Enabled: &enabled})
}
