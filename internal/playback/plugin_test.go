package playback

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pixelrelapse/handplay/internal/plugin"
)

// installPlugin writes a media-control plugin that appends each action to a
// log file and answers with the given response.
func installPlugin(t *testing.T, response string, actions []string) (*plugin.Manager, string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()
	dir := filepath.Join(root, DefaultPluginName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	logPath := filepath.Join(dir, "calls.log")
	script := "#!/bin/sh\n" +
		"input=$(cat)\n" +
		"echo \"$input\" >> '" + logPath + "'\n" +
		"echo '" + response + "'\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	manifest, _ := json.Marshal(plugin.Manifest{
		Name:       DefaultPluginName,
		Version:    "1.0.0",
		Executable: "run.sh",
		Actions:    actions,
	})
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), manifest, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	manager := plugin.NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	return manager, logPath
}

func readActions(t *testing.T, logPath string) []string {
	t.Helper()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read call log: %v", err)
	}

	var actions []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var req plugin.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			t.Fatalf("bad request line %q: %v", line, err)
		}
		if req.Timestamp == 0 {
			t.Error("request should carry a timestamp")
		}
		actions = append(actions, req.Action)
	}
	return actions
}

func TestPluginController(t *testing.T) {
	manager, logPath := installPlugin(t, `{"success":true}`,
		[]string{ActionPlayPause, ActionNext, ActionPrevious})

	c := NewPluginController(manager, "", 5*time.Second)
	ctx := context.Background()

	for _, cmd := range []Command{Toggle, Next, Previous} {
		if err := Dispatch(ctx, c, cmd); err != nil {
			t.Fatalf("Dispatch(%q) error = %v", cmd, err)
		}
	}

	got := readActions(t, logPath)
	want := []string{ActionPlayPause, ActionNext, ActionPrevious}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("actions = %v, want %v", got, want)
	}
}

func TestPluginController_Failure(t *testing.T) {
	manager, _ := installPlugin(t, `{"success":false,"error":"no player"}`, Actions)

	err := NewPluginController(manager, "", 5*time.Second).NextTrack(context.Background())
	if !errors.Is(err, ErrPluginFailed) {
		t.Fatalf("expected ErrPluginFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no player") {
		t.Errorf("error should carry the plugin message: %v", err)
	}
}

func TestPluginController_UnsupportedAction(t *testing.T) {
	manager, logPath := installPlugin(t, `{"success":true}`, []string{ActionNext})

	c := NewPluginController(manager, "", 5*time.Second)

	if _, err := manager.Get(DefaultPluginName); !errors.Is(err, plugin.ErrMissingActions) {
		t.Fatalf("incomplete plugin should be rejected up front, Get() = %v", err)
	}

	for _, cmd := range Commands {
		if err := Dispatch(context.Background(), c, cmd); !errors.Is(err, plugin.ErrMissingActions) {
			t.Errorf("Dispatch(%q) = %v, want ErrMissingActions", cmd, err)
		}
	}
	if _, err := os.Stat(logPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("a rejected plugin must never be executed")
	}
}

func TestPluginController_RejectedOnRescan(t *testing.T) {
	manager, _ := installPlugin(t, `{"success":true}`, []string{ActionPlayPause})
	NewPluginController(manager, "", 5*time.Second)

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if _, ok := manager.Rejected()[DefaultPluginName]; !ok {
		t.Error("expected the plugin to stay rejected after a rescan")
	}
}

func TestPluginController_Missing(t *testing.T) {
	manager := plugin.NewManager(t.TempDir())

	err := NewPluginController(manager, "absent", time.Second).TogglePlayPause(context.Background())
	if !errors.Is(err, plugin.ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}
