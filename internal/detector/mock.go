package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// restingPoints lays out a relaxed right hand, palm to camera, with the
// wrist at (0.5, 0.8) and the fingertips well apart.
func restingPoints() []Point3D {
	points := make([]Point3D, NumLandmarks)

	points[Wrist] = Point3D{X: 0.50, Y: 0.80}

	points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	points[ThumbMCP] = Point3D{X: 0.60, Y: 0.70, Z: 0.03}
	points[ThumbIP] = Point3D{X: 0.64, Y: 0.65, Z: 0.03}
	points[ThumbTip] = Point3D{X: 0.67, Y: 0.60, Z: 0.03}

	points[IndexMCP] = Point3D{X: 0.55, Y: 0.66}
	points[IndexPIP] = Point3D{X: 0.56, Y: 0.55}
	points[IndexDIP] = Point3D{X: 0.57, Y: 0.47}
	points[IndexTip] = Point3D{X: 0.57, Y: 0.40}

	points[MiddleMCP] = Point3D{X: 0.50, Y: 0.65}
	points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	points[MiddleDIP] = Point3D{X: 0.50, Y: 0.42}
	points[MiddleTip] = Point3D{X: 0.50, Y: 0.34}

	points[RingMCP] = Point3D{X: 0.45, Y: 0.67}
	points[RingPIP] = Point3D{X: 0.44, Y: 0.56}
	points[RingDIP] = Point3D{X: 0.43, Y: 0.47}
	points[RingTip] = Point3D{X: 0.43, Y: 0.40}

	points[PinkyMCP] = Point3D{X: 0.41, Y: 0.70}
	points[PinkyPIP] = Point3D{X: 0.38, Y: 0.61}
	points[PinkyDIP] = Point3D{X: 0.36, Y: 0.54}
	points[PinkyTip] = Point3D{X: 0.35, Y: 0.48}

	return points
}

// RestingLandmarks returns an open hand that triggers no gesture.
func RestingLandmarks() HandLandmarks {
	return HandLandmarks{
		Points:     restingPoints(),
		Handedness: "Right",
		Score:      0.95,
	}
}

// PinchLandmarks returns a hand with the thumb tip touching the index tip.
func PinchLandmarks() HandLandmarks {
	h := RestingLandmarks()
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.55}
	h.Points[IndexTip] = Point3D{X: 0.60, Y: 0.58}
	h.Points[ThumbTip] = Point3D{X: 0.61, Y: 0.59}
	return h
}

// SwipeForwardLandmarks returns a hand with the index finger pointing far to
// the right of the wrist.
func SwipeForwardLandmarks() HandLandmarks {
	h := RestingLandmarks()
	h.Points[IndexPIP] = Point3D{X: 0.66, Y: 0.62}
	h.Points[IndexDIP] = Point3D{X: 0.74, Y: 0.61}
	h.Points[IndexTip] = Point3D{X: 0.82, Y: 0.60}
	return h
}

// SwipeBackwardLandmarks returns a hand with the index finger pointing far to
// the left of the wrist, away from the thumb.
func SwipeBackwardLandmarks() HandLandmarks {
	h := RestingLandmarks()
	h.Points[IndexPIP] = Point3D{X: 0.40, Y: 0.62}
	h.Points[IndexDIP] = Point3D{X: 0.30, Y: 0.61}
	h.Points[IndexTip] = Point3D{X: 0.22, Y: 0.60}
	return h
}

// TruncatedLandmarks returns a partial detection that stops before the index tip.
func TruncatedLandmarks() HandLandmarks {
	h := PinchLandmarks()
	h.Points = h.Points[:IndexTip]
	return h
}
