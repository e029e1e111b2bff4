package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// FrameSource provides the latest camera frame as JPEG. Frames are only
// produced while at least one watcher is registered.
type FrameSource interface {
	LatestJPEG() []byte
	// WatchPreview registers a viewer until the returned stop is called.
	WatchPreview() (stop func())
}

// StreamInterval is the delay between MJPEG parts (~15 FPS).
const StreamInterval = 66 * time.Millisecond

// StreamHandler serves an MJPEG preview of the frames the pipeline sees.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler over frames.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames, interval: StreamInterval}
}

// ServeHTTP streams frames until the client disconnects. Repeated frames are skipped.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stop := h.frames.WatchPreview()
	defer stop()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame := h.frames.LatestJPEG()
		if len(frame) == 0 || bytes.Equal(frame, last) {
			continue
		}
		last = frame

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
