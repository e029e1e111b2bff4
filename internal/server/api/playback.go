package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pixelrelapse/handplay/internal/playback"
)

// CommandRunner executes playback commands.
type CommandRunner interface {
	Execute(ctx context.Context, cmd playback.Command) error
}

// PlaybackHandler serves POST /api/playback/{command}.
type PlaybackHandler struct {
	runner CommandRunner
}

// NewPlaybackHandler creates a PlaybackHandler.
func NewPlaybackHandler(runner CommandRunner) *PlaybackHandler {
	return &PlaybackHandler{runner: runner}
}

type playbackResponse struct {
	Status  string `json:"status"`
	Command string `json:"command"`
}

func (h *PlaybackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/playback"), "/")

	if name == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		names := make([]string, len(playback.Commands))
		for i, c := range playback.Commands {
			names[i] = string(c)
		}
		writeJSON(w, http.StatusOK, map[string][]string{"commands": names})
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cmd, err := playback.ParseCommand(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown command: "+name)
		return
	}

	if err := h.runner.Execute(r.Context(), cmd); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, playbackResponse{Status: "ok", Command: string(cmd)})
}
