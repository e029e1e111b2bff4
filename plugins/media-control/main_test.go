package main

import (
	"errors"
	"strings"
	"testing"
)

func TestCommandFor(t *testing.T) {
	tests := []struct {
		goos    string
		action  string
		name    string
		argPart string
		wantErr bool
	}{
		{goos: "darwin", action: "media-play-pause", name: "osascript", argPart: "key code 100"},
		{goos: "darwin", action: "media-next", name: "osascript", argPart: "key code 101"},
		{goos: "darwin", action: "media-prev", name: "osascript", argPart: "key code 98"},
		{goos: "linux", action: "media-play-pause", name: "playerctl", argPart: "play-pause"},
		{goos: "linux", action: "media-next", name: "playerctl", argPart: "next"},
		{goos: "linux", action: "media-prev", name: "playerctl", argPart: "previous"},
		{goos: "linux", action: "volume-up", wantErr: true},
		{goos: "windows", action: "media-next", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.action, func(t *testing.T) {
			name, args, err := commandFor(tt.goos, tt.action)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("commandFor() error = %v", err)
			}
			if name != tt.name {
				t.Errorf("name = %q, want %q", name, tt.name)
			}
			if !strings.Contains(strings.Join(args, " "), tt.argPart) {
				t.Errorf("args %q do not contain %q", args, tt.argPart)
			}
		})
	}
}

func TestHandle(t *testing.T) {
	var ran []string
	ok := func(name string, args ...string) ([]byte, error) {
		ran = append(ran, name+" "+strings.Join(args, " "))
		return nil, nil
	}

	resp := handle(strings.NewReader(`{"action":"media-next","timestamp":1}`), "linux", ok)
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if len(ran) != 1 || ran[0] != "playerctl next" {
		t.Errorf("ran %v", ran)
	}

	failing := func(name string, args ...string) ([]byte, error) {
		return []byte("No players found"), errors.New("exit status 1")
	}
	resp = handle(strings.NewReader(`{"action":"media-prev"}`), "linux", failing)
	if resp.Success || !strings.Contains(resp.Error, "No players found") {
		t.Errorf("expected failure with output, got %+v", resp)
	}

	resp = handle(strings.NewReader(`not json`), "linux", ok)
	if resp.Success || !strings.Contains(resp.Error, "decode") {
		t.Errorf("expected decode failure, got %+v", resp)
	}
}
