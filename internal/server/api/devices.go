package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pixelrelapse/handplay/internal/playback"
)

// DeviceSelector lists player devices and moves playback between them.
type DeviceSelector interface {
	Devices(ctx context.Context) ([]playback.Device, error)
	TransferPlayback(ctx context.Context, id string, play bool) error
}

// DevicesHandler serves GET and PUT /api/devices.
type DevicesHandler struct {
	devices DeviceSelector
}

// NewDevicesHandler creates a DevicesHandler.
func NewDevicesHandler(d DeviceSelector) *DevicesHandler {
	return &DevicesHandler{devices: d}
}

type transferRequest struct {
	DeviceID string `json:"device_id"`
	Play     bool   `json:"play"`
}

func (h *DevicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		devices, err := h.devices.Devices(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if devices == nil {
			devices = []playback.Device{}
		}
		writeJSON(w, http.StatusOK, map[string][]playback.Device{"devices": devices})

	case http.MethodPut:
		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.DeviceID == "" {
			writeError(w, http.StatusBadRequest, "device_id is required")
			return
		}
		if err := h.devices.TransferPlayback(r.Context(), req.DeviceID, req.Play); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "device_id": req.DeviceID})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
