package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/pixelrelapse/handplay/internal/app"
	"github.com/pixelrelapse/handplay/internal/config"
	"github.com/pixelrelapse/handplay/internal/playback"
	"github.com/pixelrelapse/handplay/internal/plugin"
	"github.com/pixelrelapse/handplay/internal/server"
	"github.com/pixelrelapse/handplay/internal/store"
	"github.com/pixelrelapse/handplay/internal/tray"
)

// historyRetention is how long gesture events are kept.
const historyRetention = 30 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "path to config.json (default ~/.handplay/config.json)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	cameraID := flag.Int("camera", -1, "camera device ID (overrides config)")
	backend := flag.String("backend", "", "playback backend: plugin, webapi or log (overrides config)")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	flag.Parse()

	fmt.Println("Handplay - Gesture Playback Control")

	path := *configPath
	if path == "" {
		path = filepath.Join(config.DefaultDataDir(), "config.json")
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(path); err != nil {
			log.Printf("Failed to write default config: %v", err)
		} else {
			log.Printf("Wrote default config to %s", path)
		}
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *cameraID >= 0 {
		cfg.Camera.DeviceID = *cameraID
	}
	if *backend != "" {
		cfg.Playback.Backend = *backend
	}
	if *noTray {
		cfg.Tray = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	if n, err := st.Events().DeleteBefore(time.Now().Add(-historyRetention)); err != nil {
		log.Printf("Failed to prune gesture history: %v", err)
	} else if n > 0 {
		log.Printf("Pruned %d old gesture events", n)
	}

	deps := playback.Deps{Plugins: plugin.NewManager(cfg.Playback.PluginDir)}

	var auth *playback.Authenticator
	if cfg.Playback.Backend == config.BackendWebAPI && cfg.Playback.UsesOAuth() {
		if cfg.Playback.RedirectURL == "" {
			cfg.Playback.RedirectURL = settingsURL(cfg.Server.Addr) + "/api/auth/callback"
		}
		auth = playback.NewAuthenticator(cfg.Playback, playback.NewSettingsTokenStore(st.Settings()))
		deps.Tokens = auth
		if !auth.Authorized() {
			log.Printf("Player API not authorized, log in at %s/api/auth/login", settingsURL(cfg.Server.Addr))
		}
	}

	controller, err := playback.New(cfg.Playback, deps)
	if err != nil {
		log.Fatalf("Failed to create playback controller: %v", err)
	}

	if err := deps.Plugins.Discover(); err != nil {
		log.Printf("Failed to discover plugins: %v", err)
	}
	log.Printf("Found %d plugins in %s", len(deps.Plugins.List()), deps.Plugins.PluginDir())

	application := app.New(app.Config{
		Store:          st,
		Controller:     controller,
		CameraConfig:   cfg.Camera,
		DetectorConfig: cfg.Detector,
		Gesture:        cfg.Gesture,
	})

	hub := server.NewHub()
	application.OnGesture(func(e app.Event) { hub.Publish(e) })

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srvCfg := server.Config{
		StaticDir: webDir,
		Store:     st,
		Playback:  application,
		Detection: application,
		Frames:    application,
		Hub:       hub,
	}
	if auth != nil {
		srvCfg.Auth = auth
	}
	if c, ok := controller.(*playback.WebAPIController); ok {
		srvCfg.Devices = c
	}
	srv := server.New(srvCfg)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	if err := application.Start(); err != nil {
		log.Printf("Camera unavailable, gesture detection is off: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tray {
		runTray(ctx, application, settingsURL(cfg.Server.Addr))
	} else {
		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				log.Printf("Server failed: %v", err)
			}
		}
	}

	log.Println("Shutting down")
	application.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// runTray blocks in the tray event loop until the user quits or ctx ends.
func runTray(ctx context.Context, application *app.App, url string) {
	tr := tray.New(application.IsEnabled())

	tr.OnToggle(application.SetEnabled)
	tr.OnCommand(func(cmd playback.Command) {
		application.Execute(context.Background(), cmd)
	})
	tr.OnSettings(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})
	application.OnGesture(func(e app.Event) {
		tr.SetLastGesture(e.Gesture)
	})

	go func() {
		<-ctx.Done()
		tr.Quit()
	}()

	tr.Run()
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	}
	return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
}

// findWebDir searches "web", "../web", "../../web" and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
