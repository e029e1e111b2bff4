// Package plugin discovers and runs the out-of-process helpers that talk to
// the local media player.
package plugin

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// Manifest describes a plugin's metadata and the actions it understands.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the manifest lists the action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Validate reports whether the manifest names a plugin and an executable
// inside the plugin directory.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidManifest)
	}
	if m.Executable == "" {
		return fmt.Errorf("%w: %s: missing executable", ErrInvalidManifest, m.Name)
	}
	if !filepath.IsLocal(m.Executable) {
		return fmt.Errorf("%w: %s: executable %q is outside the plugin directory", ErrInvalidManifest, m.Name, m.Executable)
	}
	for _, a := range m.Actions {
		if a == "" {
			return fmt.Errorf("%w: %s: empty action name", ErrInvalidManifest, m.Name)
		}
	}
	return nil
}

// Request is written as JSON to the plugin's stdin.
type Request struct {
	Action    string          `json:"action"`
	Gesture   string          `json:"gesture,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Response is read as JSON from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
