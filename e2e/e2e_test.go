package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/pixelrelapse/handplay/internal/app"
	"github.com/pixelrelapse/handplay/internal/capture"
	"github.com/pixelrelapse/handplay/internal/config"
	"github.com/pixelrelapse/handplay/internal/detector"
	"github.com/pixelrelapse/handplay/internal/playback"
	"github.com/pixelrelapse/handplay/internal/plugin"
	"github.com/pixelrelapse/handplay/internal/server"
	"github.com/pixelrelapse/handplay/internal/store"
)

// installMediaPlugin writes a media-control stand-in that logs each action.
func installMediaPlugin(t *testing.T, dir string) string {
	t.Helper()

	pluginDir := filepath.Join(dir, playback.DefaultPluginName)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	logPath := filepath.Join(dir, "actions.log")
	script := "#!/bin/sh\n" +
		"input=$(cat)\n" +
		"echo \"$input\" >> '" + logPath + "'\n" +
		"echo '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write plugin: %v", err)
	}

	manifest, _ := json.Marshal(plugin.Manifest{
		Name:       playback.DefaultPluginName,
		Version:    "1.0.0",
		Executable: "run.sh",
		Actions:    []string{playback.ActionPlayPause, playback.ActionNext, playback.ActionPrevious},
	})
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifest, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	return logPath
}

func TestE2E_GestureToPlayback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell plugin requires a POSIX shell")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	pluginRoot := filepath.Join(tmpDir, "plugins")
	logPath := installMediaPlugin(t, pluginRoot)

	plugins := plugin.NewManager(pluginRoot)
	if err := plugins.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	controller, err := playback.New(config.Playback{Backend: config.BackendPlugin, TimeoutMs: 5000}, playback.Deps{Plugins: plugins})
	if err != nil {
		t.Fatalf("playback.New() error = %v", err)
	}

	// Alternating frames keep the motion gate open.
	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.HandLandmarks{detector.SwipeForwardLandmarks()})

	application := app.New(app.Config{
		Store:      s,
		Controller: controller,
		Camera:     capture.NewMockCamera([]*gocv.Mat{&black, &white}, true),
		Detector:   mockDetector,
	})

	hub := server.NewHub()
	application.OnGesture(func(e app.Event) { hub.Publish(e) })

	ts := httptest.NewServer(server.New(server.Config{
		Store:     s,
		Playback:  application,
		Detection: application,
		Frames:    application,
		Hub:       hub,
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := application.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer application.Stop()

	t.Run("GestureReachesWebSocket", func(t *testing.T) {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))

		var event store.Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if event.Gesture != "swipe_forward" || event.Command != "next" {
			t.Errorf("unexpected event: %+v", event)
		}
		if !event.Succeeded {
			t.Errorf("plugin dispatch failed: %s", event.Error)
		}
	})

	t.Run("PluginReceivedAction", func(t *testing.T) {
		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("plugin never ran: %v", err)
		}
		if !strings.Contains(string(data), `"action":"media-next"`) {
			t.Errorf("plugin log = %s", data)
		}
	})

	t.Run("HistoryAndStats", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/events/stats")
		if err != nil {
			t.Fatalf("GET /api/events/stats error = %v", err)
		}
		defer resp.Body.Close()

		var stats struct {
			Counts map[string]int `json:"counts"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			t.Fatalf("failed to decode stats: %v", err)
		}
		if stats.Counts["swipe_forward"] < 1 {
			t.Errorf("counts = %v", stats.Counts)
		}
	})

	t.Run("CooldownLimitsEmissions", func(t *testing.T) {
		time.Sleep(500 * time.Millisecond)

		events, err := s.Events().List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for i := 1; i < len(events); i++ {
			gap := events[i-1].EmittedMs - events[i].EmittedMs
			if gap < 1000 {
				t.Errorf("events %s and %s only %dms apart", events[i].ID, events[i-1].ID, gap)
			}
		}
	})

	t.Run("ManualCommandOverHTTP", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/api/playback/previous", "application/json", nil)
		if err != nil {
			t.Fatalf("POST error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		data, _ := os.ReadFile(logPath)
		if !strings.Contains(string(data), `"action":"media-prev"`) {
			t.Errorf("plugin log missing media-prev: %s", data)
		}
	})

	t.Run("DisableStopsDispatch", func(t *testing.T) {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodPut, ts.URL+"/api/detection", strings.NewReader(`{"enabled":false}`))
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("PUT error = %v", err)
		}
		resp.Body.Close()

		if application.IsEnabled() {
			t.Error("detection should be disabled")
		}
	})
}
