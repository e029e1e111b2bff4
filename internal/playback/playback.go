// Package playback turns recognized commands into media player actions.
package playback

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/pixelrelapse/handplay/internal/config"
	"github.com/pixelrelapse/handplay/internal/plugin"
)

// ErrUnknownCommand is returned when a command name is not recognized.
var ErrUnknownCommand = errors.New("unknown playback command")

// Command is a playback request.
type Command string

const (
	Toggle   Command = "toggle"
	Next     Command = "next"
	Previous Command = "previous"
)

// Commands lists every command in a stable order.
var Commands = []Command{Toggle, Next, Previous}

// ParseCommand returns the command with the given name.
func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case Toggle, Next, Previous:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Controller drives a media player.
type Controller interface {
	TogglePlayPause(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
}

// Dispatch invokes the controller method matching cmd.
func Dispatch(ctx context.Context, c Controller, cmd Command) error {
	switch cmd {
	case Toggle:
		return c.TogglePlayPause(ctx)
	case Next:
		return c.NextTrack(ctx)
	case Previous:
		return c.PreviousTrack(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd))
}

// Deps carries the collaborators some backends need.
type Deps struct {
	// Plugins is required by the plugin backend.
	Plugins *plugin.Manager
	// Tokens authorizes the webapi backend when no fixed token is configured,
	// usually an *Authenticator.
	Tokens oauth2.TokenSource
}

// New builds the controller selected by cfg.Backend.
func New(cfg config.Playback, deps Deps) (Controller, error) {
	switch cfg.Backend {
	case config.BackendPlugin, "":
		if deps.Plugins == nil {
			return nil, errors.New("plugin backend requires a plugin manager")
		}
		return NewPluginController(deps.Plugins, cfg.PluginName, cfg.Timeout()), nil
	case config.BackendWebAPI:
		tokens := deps.Tokens
		if cfg.APIToken != "" {
			tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken, TokenType: "Bearer"})
		}
		if tokens == nil {
			return nil, fmt.Errorf("webapi backend requires a token (set %s) or an OAuth client (set %s)",
				config.EnvAPIToken, config.EnvClientID)
		}
		c := NewWebAPIController(cfg.APIBaseURL, tokens, cfg.Timeout())
		c.SetDevice(cfg.DeviceID)
		return c, nil
	case config.BackendLog:
		return NewLoggingRecorder(), nil
	}
	return nil, fmt.Errorf("unknown playback backend: %s", cfg.Backend)
}
