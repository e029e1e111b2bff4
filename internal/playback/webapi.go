package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAPIBaseURL is the Spotify Web API root.
const DefaultAPIBaseURL = "https://api.spotify.com/v1"

// APIError is a non-2xx response from the player API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.StatusCode)
}

// Device is a playback target reported by the player API.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent int    `json:"volume_percent"`
}

// WebAPIController drives a remote player over a Spotify-style HTTP API.
// Requests are authorized with tokens from an oauth2.TokenSource, so an
// Authenticator refreshes expired tokens transparently.
type WebAPIController struct {
	baseURL string
	client  *http.Client

	mu          sync.Mutex
	deviceID    string
	transferred bool
}

// NewWebAPIController creates a controller for the API at baseURL.
func NewWebAPIController(baseURL string, tokens oauth2.TokenSource, timeout time.Duration) *WebAPIController {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &WebAPIController{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: tokens},
		},
	}
}

// SetDevice selects the device playback is moved to before the next
// command. An empty id leaves playback wherever the player has it.
func (c *WebAPIController) SetDevice(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deviceID = id
	c.transferred = false
}

type playerState struct {
	IsPlaying bool `json:"is_playing"`
}

// TogglePlayPause reads the current state and pauses or resumes.
func (c *WebAPIController) TogglePlayPause(ctx context.Context) error {
	if err := c.ensureDevice(ctx); err != nil {
		return err
	}

	var state playerState
	if err := c.do(ctx, http.MethodGet, "/me/player", nil, &state); err != nil {
		return err
	}
	if state.IsPlaying {
		return c.do(ctx, http.MethodPut, "/me/player/pause", nil, nil)
	}
	return c.do(ctx, http.MethodPut, "/me/player/play", nil, nil)
}

// NextTrack implements Controller.
func (c *WebAPIController) NextTrack(ctx context.Context) error {
	if err := c.ensureDevice(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/me/player/next", nil, nil)
}

// PreviousTrack implements Controller.
func (c *WebAPIController) PreviousTrack(ctx context.Context) error {
	if err := c.ensureDevice(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/me/player/previous", nil, nil)
}

// Devices lists the devices the player API can control.
func (c *WebAPIController) Devices(ctx context.Context) ([]Device, error) {
	var out struct {
		Devices []Device `json:"devices"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/player/devices", nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// TransferPlayback moves playback to the device and remembers it as the
// selected device. When play is set playback starts on the new device.
func (c *WebAPIController) TransferPlayback(ctx context.Context, id string, play bool) error {
	body := struct {
		DeviceIDs []string `json:"device_ids"`
		Play      bool     `json:"play"`
	}{DeviceIDs: []string{id}, Play: play}

	if err := c.do(ctx, http.MethodPut, "/me/player", body, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.deviceID = id
	c.transferred = true
	c.mu.Unlock()
	log.Printf("Playback transferred to device %s", id)
	return nil
}

// ensureDevice transfers playback to the selected device once.
func (c *WebAPIController) ensureDevice(ctx context.Context) error {
	c.mu.Lock()
	id, done := c.deviceID, c.transferred
	c.mu.Unlock()

	if id == "" || done {
		return nil
	}
	return c.TransferPlayback(ctx, id, false)
}

// do sends a request with an optional JSON body and decodes a JSON response
// into out when out is non-nil. A 204 leaves out untouched.
func (c *WebAPIController) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage extracts {"error":{"message":...}} when present.
func errorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}
