package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixelrelapse/handplay/internal/plugin"
)

// DefaultPluginName is the plugin used when none is configured.
const DefaultPluginName = "media-control"

// Plugin actions for each command.
const (
	ActionPlayPause = "media-play-pause"
	ActionNext      = "media-next"
	ActionPrevious  = "media-prev"
)

// ErrPluginFailed is returned when the plugin reports an unsuccessful run.
var ErrPluginFailed = errors.New("media plugin failed")

// PluginController sends media keys through an external plugin.
type PluginController struct {
	plugins  *plugin.Manager
	executor *plugin.Executor
	name     string
}

// Actions lists the plugin actions a PluginController sends.
var Actions = []string{ActionPlayPause, ActionNext, ActionPrevious}

// NewPluginController creates a controller that runs the named plugin. It
// registers Actions with the manager, so a plugin that cannot handle every
// command is rejected at discovery. The plugin is looked up on every call so
// a rescan picks up new installs.
func NewPluginController(plugins *plugin.Manager, name string, timeout time.Duration) *PluginController {
	if name == "" {
		name = DefaultPluginName
	}
	plugins.Expect(name, Actions...)
	return &PluginController{
		plugins:  plugins,
		executor: plugin.NewExecutor(timeout),
		name:     name,
	}
}

// TogglePlayPause implements Controller.
func (c *PluginController) TogglePlayPause(ctx context.Context) error {
	return c.run(ctx, ActionPlayPause)
}

// NextTrack implements Controller.
func (c *PluginController) NextTrack(ctx context.Context) error {
	return c.run(ctx, ActionNext)
}

// PreviousTrack implements Controller.
func (c *PluginController) PreviousTrack(ctx context.Context) error {
	return c.run(ctx, ActionPrevious)
}

func (c *PluginController) run(ctx context.Context, action string) error {
	p, err := c.plugins.Get(c.name)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}

	resp, err := c.executor.Execute(ctx, p, &plugin.Request{
		Action:    action,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s: %s", ErrPluginFailed, action, resp.Error)
	}
	return nil
}
