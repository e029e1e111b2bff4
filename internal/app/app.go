// Package app wires the camera, hand detector, gesture classifier and
// playback controller into the detection pipeline.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pixelrelapse/handplay/internal/capture"
	"github.com/pixelrelapse/handplay/internal/config"
	"github.com/pixelrelapse/handplay/internal/detector"
	"github.com/pixelrelapse/handplay/internal/gesture"
	"github.com/pixelrelapse/handplay/internal/playback"
	"github.com/pixelrelapse/handplay/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeoutMs is how long the scene must stay still before dropping back to idle.
	IdleTimeoutMs = 2000
)

// SettingEnabled is the settings key holding the detection toggle.
const SettingEnabled = "detection.enabled"

// Event is delivered to gesture listeners. It is the same record that is stored.
type Event = store.Event

// Config holds the collaborators and tuning for an App. Camera and Detector
// are built from CameraConfig and DetectorConfig when left nil.
type Config struct {
	Store          *store.Store
	Controller     playback.Controller
	Camera         capture.Camera
	Detector       detector.Detector
	CameraConfig   config.Camera
	DetectorConfig config.Detector
	Gesture        config.Gesture
}

// App runs the detection pipeline and turns gestures into playback commands.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	detector   detector.Detector
	classifier *gesture.Classifier
	controller playback.Controller
	store      *store.Store

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	listenerMu sync.RWMutex
	listeners  []func(Event)
	last       *Event

	frameMu   sync.RWMutex
	lastFrame []byte
	viewers   atomic.Int32
}

// New creates an App. Detection starts enabled unless a stored setting says otherwise.
func New(cfg Config) *App {
	a := &App{
		config:     cfg,
		camera:     cfg.Camera,
		motion:     capture.NewMotionDetector(cfg.CameraConfig.MotionThreshold),
		detector:   cfg.Detector,
		classifier: gesture.NewClassifier(thresholdsFrom(cfg.Gesture)),
		controller: cfg.Controller,
		store:      cfg.Store,
		enabled:    true,
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(cfg.CameraConfig)
	}

	if a.controller == nil {
		log.Println("No playback controller configured, logging commands only")
		a.controller = playback.NewLoggingRecorder()
	}

	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detectorConfigFrom(cfg.DetectorConfig)); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	if a.store != nil {
		enabled, err := a.store.Settings().GetBool(SettingEnabled, true)
		if err != nil {
			log.Printf("Failed to load detection setting: %v", err)
		}
		a.enabled = enabled
	}

	return a
}

func thresholdsFrom(g config.Gesture) gesture.Thresholds {
	t := gesture.DefaultThresholds()
	if g.PinchThreshold > 0 {
		t.Pinch = g.PinchThreshold
	}
	if g.SwipeOffset > 0 {
		t.Swipe = g.SwipeOffset
	}
	if g.CooldownMs >= 0 && g != (config.Gesture{}) {
		t.Cooldown = g.Cooldown()
	}
	return t
}

func detectorConfigFrom(d config.Detector) detector.Config {
	c := detector.DefaultConfig()
	if d.MaxHands > 0 {
		c.MaxHands = d.MaxHands
	}
	if d.MinDetection > 0 {
		c.MinConfidence = d.MinDetection
	}
	if d.MinTracking > 0 {
		c.MinTrackingConf = d.MinTracking
	}
	if d.ModelComplexity >= 0 && d != (config.Detector{}) {
		c.ModelComplexity = d.ModelComplexity
	}
	return c
}

// SetEnabled turns detection on or off and persists the choice.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Settings().SetBool(SettingEnabled, enabled); err != nil {
			log.Printf("Failed to persist detection setting: %v", err)
		}
	}
	log.Printf("Detection enabled: %v", enabled)
}

// IsEnabled reports whether detection is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the hand detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Controller returns the playback controller.
func (a *App) Controller() playback.Controller {
	return a.controller
}

// Classifier returns the gesture classifier.
func (a *App) Classifier() *gesture.Classifier {
	return a.classifier
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// OnGesture registers fn to be called after every emitted gesture.
// Listeners run on the pipeline goroutine and must not block.
func (a *App) OnGesture(fn func(Event)) {
	a.listenerMu.Lock()
	defer a.listenerMu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// LastEvent returns the most recent gesture event, or nil.
func (a *App) LastEvent() *Event {
	a.listenerMu.RLock()
	defer a.listenerMu.RUnlock()
	if a.last == nil {
		return nil
	}
	e := *a.last
	return &e
}

// Execute runs a playback command outside the gesture path, for the HTTP API
// and the tray. It does not touch the cooldown.
func (a *App) Execute(ctx context.Context, cmd playback.Command) error {
	if err := playback.Dispatch(ctx, a.controller, cmd); err != nil {
		log.Printf("Playback %s failed: %v", cmd, err)
		return err
	}
	log.Printf("Playback %s", cmd)
	return nil
}

// CommandFor maps a gesture to its playback command.
func CommandFor(g gesture.Gesture) (playback.Command, bool) {
	switch g {
	case gesture.PinchToggle:
		return playback.Toggle, true
	case gesture.SwipeForward:
		return playback.Next, true
	case gesture.SwipeBackward:
		return playback.Previous, true
	}
	return "", false
}

// HandleHands classifies the first detected hand at time now and, when a
// gesture fires, dispatches its command, records it and notifies listeners.
// Additional hands are ignored.
//
// now is in milliseconds on a monotonic clock; the pipeline passes the time
// since it started. It becomes the event's EmittedMs. CreatedAt is wall time.
func (a *App) HandleHands(ctx context.Context, hands []detector.HandLandmarks, now int64) gesture.Gesture {
	return a.handleHands(ctx, hands, now, time.Now())
}

func (a *App) handleHands(ctx context.Context, hands []detector.HandLandmarks, now int64, wall time.Time) gesture.Gesture {
	if len(hands) == 0 || !a.IsEnabled() {
		return gesture.None
	}

	hand := hands[0]
	g := a.classifier.Observe(hand.Points, now)
	if g == gesture.None {
		return gesture.None
	}

	cmd, _ := CommandFor(g)
	event := Event{
		ID:         uuid.NewString(),
		Gesture:    g.String(),
		Command:    string(cmd),
		Handedness: hand.Handedness,
		Succeeded:  true,
		EmittedMs:  now,
		CreatedAt:  wall,
	}

	log.Printf("Gesture %s -> %s", g, cmd)
	if err := playback.Dispatch(ctx, a.controller, cmd); err != nil {
		log.Printf("Playback %s failed: %v", cmd, err)
		event.Succeeded = false
		event.Error = err.Error()
	}

	if a.store != nil {
		if err := a.store.Events().Create(&event); err != nil {
			log.Printf("Failed to record gesture event: %v", err)
		}
	}

	a.publish(event)
	return g
}

func (a *App) publish(e Event) {
	a.listenerMu.Lock()
	a.last = &e
	listeners := make([]func(Event), len(a.listeners))
	copy(listeners, a.listeners)
	a.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(e)
	}
}

// ErrAlreadyRunning is returned by Start when the pipeline is running.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Start opens the camera and launches the pipeline goroutine.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return ErrAlreadyRunning
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the pipeline and releases camera and detector resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// WatchPreview registers a preview viewer. Frames are only encoded while at
// least one viewer is registered. stop may be called more than once.
func (a *App) WatchPreview() (stop func()) {
	a.viewers.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			if a.viewers.Add(-1) == 0 {
				a.setLatestJPEG(nil)
			}
		})
	}
}

func (a *App) previewWatched() bool {
	return a.viewers.Load() > 0
}

// LatestJPEG returns the most recent camera frame encoded as JPEG, or nil
// when nobody is watching.
func (a *App) LatestJPEG() []byte {
	a.frameMu.RLock()
	defer a.frameMu.RUnlock()
	return a.lastFrame
}

func (a *App) setLatestJPEG(b []byte) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	a.lastFrame = b
}
