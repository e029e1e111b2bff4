package gesture

import (
	"math"
	"sync"
	"time"

	"github.com/pixelrelapse/handplay/internal/detector"
)

// Default thresholds, in normalized image units and milliseconds.
const (
	DefaultPinchThreshold = 0.05
	DefaultSwipeOffset    = 0.2
	DefaultCooldown       = 1000 * time.Millisecond
)

// NeverEmitted is the lastEmitted value of a classifier that has not fired yet.
// Classify treats any lastEmitted at or below it as never emitted, so
// math.MinInt64 is accepted too.
const NeverEmitted int64 = math.MinInt64 / 2

// minLandmarks is the smallest hand that still has wrist, thumb tip and index tip.
const minLandmarks = detector.IndexTip + 1

// Thresholds holds the spatial and temporal limits used to classify a frame.
type Thresholds struct {
	// Pinch is the thumb-index distance below which a pinch is recognized.
	Pinch float64
	// Swipe is how far the index tip must sit from the wrist along x.
	Swipe float64
	// Cooldown is the minimum interval between two emitted gestures.
	Cooldown time.Duration
}

// DefaultThresholds returns the thresholds the player was tuned with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pinch:    DefaultPinchThreshold,
		Swipe:    DefaultSwipeOffset,
		Cooldown: DefaultCooldown,
	}
}

// Classify evaluates one hand with the default thresholds.
// See Thresholds.Classify.
func Classify(points []detector.Point3D, now, lastEmitted int64) (Gesture, int64) {
	return DefaultThresholds().Classify(points, now, lastEmitted)
}

// Classify evaluates one hand's landmarks at time now (milliseconds) and
// returns the recognized gesture together with the updated lastEmitted.
//
// The cooldown gate is checked first: within Cooldown of lastEmitted the
// result is None whatever the hand is doing. A lastEmitted at or below
// NeverEmitted leaves the gate open. Hands with fewer than nine
// landmarks are ignored. Otherwise pinch wins over swipe, and all
// comparisons are strict.
func (t Thresholds) Classify(points []detector.Point3D, now, lastEmitted int64) (Gesture, int64) {
	if lastEmitted > NeverEmitted && now-lastEmitted < t.Cooldown.Milliseconds() {
		return None, lastEmitted
	}
	if len(points) < minLandmarks {
		return None, lastEmitted
	}

	wrist := points[detector.Wrist]
	thumb := points[detector.ThumbTip]
	index := points[detector.IndexTip]

	g := None
	switch {
	case thumb.Distance2D(index) < t.Pinch:
		g = PinchToggle
	case index.X > wrist.X+t.Swipe:
		g = SwipeForward
	case index.X < wrist.X-t.Swipe:
		g = SwipeBackward
	}

	if g != None {
		lastEmitted = now
	}
	return g, lastEmitted
}

// Classifier owns the cooldown timestamp so callers don't have to thread it
// through. It is safe for concurrent use; observations are serialized.
type Classifier struct {
	mu          sync.Mutex
	thresholds  Thresholds
	lastEmitted int64
}

// NewClassifier creates an armed classifier.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{
		thresholds:  t,
		lastEmitted: NeverEmitted,
	}
}

// Observe classifies the first hand of a frame taken at now (milliseconds).
func (c *Classifier) Observe(points []detector.Point3D, now int64) Gesture {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, last := c.thresholds.Classify(points, now, c.lastEmitted)
	c.lastEmitted = last
	return g
}

// State reports whether the classifier would evaluate a frame taken at now.
func (c *Classifier) State(now int64) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now-c.lastEmitted < c.thresholds.Cooldown.Milliseconds() {
		return Cooling
	}
	return Armed
}

// LastEmitted returns the time of the last emitted gesture, or NeverEmitted.
func (c *Classifier) LastEmitted() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEmitted
}

// Thresholds returns the classifier's thresholds.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}
