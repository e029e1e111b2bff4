// Package main is the media-control plugin. It reads one JSON request from
// stdin, presses the matching media key and writes a JSON response to stdout.
// macOS uses osascript; Linux uses playerctl.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action    string          `json:"action"`
	Gesture   string          `json:"gesture,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// macKeyCodes are the System Events key codes for the media keys.
var macKeyCodes = map[string]int{
	"media-play-pause": 100,
	"media-next":       101,
	"media-prev":       98,
}

// playerctlVerbs map actions to playerctl subcommands.
var playerctlVerbs = map[string]string{
	"media-play-pause": "play-pause",
	"media-next":       "next",
	"media-prev":       "previous",
}

// runner executes a command and returns its combined output.
type runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

func main() {
	json.NewEncoder(os.Stdout).Encode(handle(os.Stdin, runtime.GOOS, execRunner))
}

// handle decodes a request and runs the command for goos.
func handle(in io.Reader, goos string, run runner) Response {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}

	name, args, err := commandFor(goos, req.Action)
	if err != nil {
		return Response{Error: err.Error()}
	}

	if out, err := run(name, args...); err != nil {
		return Response{Error: fmt.Sprintf("action %s failed: %v: %s", req.Action, err, out)}
	}
	return Response{Success: true}
}

// commandFor returns the program and arguments that perform action on goos.
func commandFor(goos, action string) (string, []string, error) {
	switch goos {
	case "darwin":
		code, ok := macKeyCodes[action]
		if !ok {
			return "", nil, fmt.Errorf("unknown action: %s", action)
		}
		script := fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code)
		return "osascript", []string{"-e", script}, nil
	case "linux":
		verb, ok := playerctlVerbs[action]
		if !ok {
			return "", nil, fmt.Errorf("unknown action: %s", action)
		}
		return "playerctl", []string{verb}, nil
	}
	return "", nil, fmt.Errorf("unsupported platform: %s", goos)
}
