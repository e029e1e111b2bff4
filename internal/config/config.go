// Package config loads and validates handplay's runtime configuration.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Playback backend names.
const (
	BackendPlugin = "plugin"
	BackendWebAPI = "webapi"
	BackendLog    = "log"
)

// Environment variables that override Playback credentials.
const (
	EnvAPIToken     = "HANDPLAY_API_TOKEN"
	EnvClientID     = "HANDPLAY_CLIENT_ID"
	EnvClientSecret = "HANDPLAY_CLIENT_SECRET"
)

// DefaultScopes are the OAuth scopes needed to read and steer playback.
var DefaultScopes = []string{"user-read-playback-state", "user-modify-playback-state"}

// Gesture holds the classifier thresholds.
type Gesture struct {
	PinchThreshold float64 `json:"pinch_threshold"`
	SwipeOffset    float64 `json:"swipe_offset"`
	CooldownMs     int     `json:"cooldown_ms"`
}

// Cooldown returns CooldownMs as a duration.
func (g Gesture) Cooldown() time.Duration {
	return time.Duration(g.CooldownMs) * time.Millisecond
}

// Detector holds the pose-estimation settings passed to MediaPipe.
type Detector struct {
	MaxHands        int     `json:"max_hands"`
	MinDetection    float64 `json:"min_detection"`
	MinTracking     float64 `json:"min_tracking"`
	ModelComplexity int     `json:"model_complexity"`
}

// Camera holds capture settings.
type Camera struct {
	DeviceID        int     `json:"device_id"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	MotionThreshold float64 `json:"motion_threshold"` // percent of changed pixels
}

// Playback selects and configures the playback backend.
//
// The webapi backend authenticates either with a fixed APIToken or through
// the OAuth authorization code flow when ClientID is set. AuthURL and
// TokenURL default to the Spotify accounts service when empty.
type Playback struct {
	Backend    string `json:"backend"`
	PluginDir  string `json:"plugin_dir"`
	PluginName string `json:"plugin_name"`
	TimeoutMs  int    `json:"timeout_ms"`
	APIBaseURL string `json:"api_base_url"`
	APIToken   string `json:"api_token,omitempty"`

	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret,omitempty"`
	RedirectURL  string   `json:"redirect_url"`
	AuthURL      string   `json:"auth_url,omitempty"`
	TokenURL     string   `json:"token_url,omitempty"`
	Scopes       []string `json:"scopes"`
	DeviceID     string   `json:"device_id,omitempty"` // playback is moved here before the first command
}

// UsesOAuth reports whether the webapi backend should run the OAuth flow.
func (p Playback) UsesOAuth() bool {
	return p.APIToken == "" && p.ClientID != ""
}

// Timeout returns TimeoutMs as a duration.
func (p Playback) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Server holds HTTP settings.
type Server struct {
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir"`
}

// Config is the complete runtime configuration.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	DataDir  string   `json:"data_dir"`
	Tray     bool     `json:"tray"`
	Gesture  Gesture  `json:"gesture"`
	Detector Detector `json:"detector"`
	Camera   Camera   `json:"camera"`
	Playback Playback `json:"playback"`
	Server   Server   `json:"server"`
}

// DefaultDataDir returns ~/.handplay, or .handplay when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".handplay"
	}
	return filepath.Join(home, ".handplay")
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		DataDir: dataDir,
		Tray:    true,
		Gesture: Gesture{
			PinchThreshold: 0.05,
			SwipeOffset:    0.2,
			CooldownMs:     1000,
		},
		Detector: Detector{
			MaxHands:        1,
			MinDetection:    0.5,
			MinTracking:     0.5,
			ModelComplexity: 1,
		},
		Camera: Camera{
			DeviceID:        0,
			Width:           640,
			Height:          480,
			MotionThreshold: 1.0,
		},
		Playback: Playback{
			Backend:    BackendPlugin,
			PluginDir:  filepath.Join(dataDir, "plugins"),
			PluginName: "media-control",
			TimeoutMs:  5000,
			APIBaseURL: "https://api.spotify.com/v1",
			Scopes:     append([]string(nil), DefaultScopes...),
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Validate clamps out-of-range values back to their defaults.
// It only fails for settings that cannot be repaired.
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}

	if c.Gesture.PinchThreshold <= 0 || c.Gesture.PinchThreshold >= 1 {
		c.Gesture.PinchThreshold = def.Gesture.PinchThreshold
	}
	if c.Gesture.SwipeOffset <= 0 || c.Gesture.SwipeOffset >= 1 {
		c.Gesture.SwipeOffset = def.Gesture.SwipeOffset
	}
	if c.Gesture.CooldownMs < 0 {
		c.Gesture.CooldownMs = def.Gesture.CooldownMs
	}

	if c.Detector.MaxHands <= 0 {
		c.Detector.MaxHands = def.Detector.MaxHands
	}
	if c.Detector.MinDetection <= 0 || c.Detector.MinDetection > 1 {
		c.Detector.MinDetection = def.Detector.MinDetection
	}
	if c.Detector.MinTracking <= 0 || c.Detector.MinTracking > 1 {
		c.Detector.MinTracking = def.Detector.MinTracking
	}
	if c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 1 {
		c.Detector.ModelComplexity = def.Detector.ModelComplexity
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		c.Camera.Width = def.Camera.Width
		c.Camera.Height = def.Camera.Height
	}
	if c.Camera.MotionThreshold <= 0 {
		c.Camera.MotionThreshold = def.Camera.MotionThreshold
	}

	switch c.Playback.Backend {
	case "":
		c.Playback.Backend = def.Playback.Backend
	case BackendPlugin, BackendWebAPI, BackendLog:
	default:
		return errors.New("unknown playback backend: " + c.Playback.Backend)
	}
	if c.Playback.PluginDir == "" {
		c.Playback.PluginDir = filepath.Join(c.DataDir, "plugins")
	}
	if c.Playback.PluginName == "" {
		c.Playback.PluginName = def.Playback.PluginName
	}
	if c.Playback.TimeoutMs <= 0 {
		c.Playback.TimeoutMs = def.Playback.TimeoutMs
	}
	if c.Playback.APIBaseURL == "" {
		c.Playback.APIBaseURL = def.Playback.APIBaseURL
	}
	if len(c.Playback.Scopes) == 0 {
		c.Playback.Scopes = def.Playback.Scopes
	}

	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}

	return nil
}

// DBPath returns the location of the SQLite database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "handplay.db")
}

// Load reads configuration from the given JSON file path. A missing file
// yields DefaultConfig(). Credential environment variables always win.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, err
	default:
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return cfg, err
		}
	}

	if token := os.Getenv(EnvAPIToken); token != "" {
		cfg.Playback.APIToken = token
	}
	if id := os.Getenv(EnvClientID); id != "" {
		cfg.Playback.ClientID = id
	}
	if secret := os.Getenv(EnvClientSecret); secret != "" {
		cfg.Playback.ClientSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
// The API token and client secret are never written.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out := *c
	out.Playback.APIToken = ""
	out.Playback.ClientSecret = ""

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(&out)
}
