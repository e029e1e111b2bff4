package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pixelrelapse/handplay/internal/store"
)

// MaxEventLimit caps the limit query parameter.
const MaxEventLimit = 500

// EventsHandler serves the gesture history.
type EventsHandler struct {
	store *store.Store
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(s *store.Store) *EventsHandler {
	return &EventsHandler{store: s}
}

type listEventsResponse struct {
	Events []*store.Event `json:"events"`
}

type statsResponse struct {
	Counts map[string]int `json:"counts"`
}

// ServeHTTP routes /api/events and /api/events/stats.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/events"), "/") {
	case "":
		h.list(w, r)
	case "stats":
		h.stats(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxEventLimit)
	}

	events, err := h.store.Events().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}

	writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}

func (h *EventsHandler) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Events().CountByGesture()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Counts: counts})
}
