package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ManifestFile is the name of the manifest inside each plugin directory.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrInvalidManifest marks a plugin.json that cannot describe a runnable plugin.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
	// ErrMissingActions marks a plugin that lacks actions its consumer expects.
	ErrMissingActions = errors.New("plugin is missing required actions")
)

// Manager discovers plugins and checks them against the actions their
// consumers expect. A plugin that fails a check is rejected at discovery and
// Get reports why.
type Manager struct {
	pluginDir string

	mu       sync.RWMutex
	plugins  map[string]*Plugin
	rejected map[string]error
	expected map[string][]string
}

// NewManager creates a Manager for the plugins under pluginDir.
func NewManager(pluginDir string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		plugins:   make(map[string]*Plugin),
		rejected:  make(map[string]error),
		expected:  make(map[string][]string),
	}
}

// Expect declares that the plugin called name must support every action in
// actions. An already discovered plugin is checked immediately; later scans
// check it as it is loaded.
func (m *Manager) Expect(name string, actions ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expected[name] = append(m.expected[name], actions...)

	if p, ok := m.plugins[name]; ok {
		if err := m.check(p.Manifest); err != nil {
			m.reject(name, err)
		}
	}
}

// Discover scans the plugin directory. Each subdirectory holding a
// plugin.json is a candidate; a missing directory means no plugins.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plugins = make(map[string]*Plugin)
	m.rejected = make(map[string]error)

	entries, err := os.ReadDir(m.pluginDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read plugin dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(m.pluginDir, entry.Name())
		manifest, err := readManifest(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			key := manifest.Name
			if key == "" {
				key = entry.Name()
			}
			m.reject(key, err)
			continue
		}

		if err := m.check(manifest); err != nil {
			m.reject(manifest.Name, err)
			continue
		}

		m.plugins[manifest.Name] = &Plugin{
			Manifest:   manifest,
			Path:       dir,
			Executable: filepath.Join(dir, manifest.Executable),
		}
	}

	return nil
}

func readManifest(dir string) (Manifest, error) {
	var manifest Manifest

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return manifest, err
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := manifest.Validate(); err != nil {
		return manifest, err
	}
	return manifest, nil
}

// check must be called with m.mu held.
func (m *Manager) check(manifest Manifest) error {
	var missing []string
	for _, action := range m.expected[manifest.Name] {
		if !manifest.Supports(action) {
			missing = append(missing, action)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingActions, strings.Join(missing, ", "))
	}
	return nil
}

// reject must be called with m.mu held.
func (m *Manager) reject(name string, err error) {
	delete(m.plugins, name)
	m.rejected[name] = err
	log.Printf("Rejected plugin %s: %v", name, err)
}

// Get returns a plugin by name. A plugin rejected during discovery returns
// the rejection reason, which wraps ErrInvalidManifest or ErrMissingActions.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.plugins[name]; ok {
		return p, nil
	}
	if err, ok := m.rejected[name]; ok {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	return nil, ErrPluginNotFound
}

// List returns the accepted plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins
}

// Rejected returns why each rejected plugin was turned away, keyed by plugin
// name, or by directory name when the manifest could not be read.
func (m *Manager) Rejected() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]error, len(m.rejected))
	for k, v := range m.rejected {
		out[k] = v
	}
	return out
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
