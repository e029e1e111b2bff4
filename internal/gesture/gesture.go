// Package gesture classifies hand landmarks into playback gestures.
package gesture

import "fmt"

// Gesture is a discrete intent derived from one frame's landmarks.
type Gesture int

const (
	// None means no gesture was recognized, or the classifier is cooling down.
	None Gesture = iota
	// PinchToggle is the thumb tip touching the index fingertip.
	PinchToggle
	// SwipeForward is the index fingertip held well to the right of the wrist.
	SwipeForward
	// SwipeBackward is the index fingertip held well to the left of the wrist.
	SwipeBackward
)

var gestureNames = map[Gesture]string{
	None:          "none",
	PinchToggle:   "pinch_toggle",
	SwipeForward:  "swipe_forward",
	SwipeBackward: "swipe_backward",
}

// String returns the stable name used in storage and over the wire.
func (g Gesture) String() string {
	if name, ok := gestureNames[g]; ok {
		return name
	}
	return fmt.Sprintf("gesture(%d)", int(g))
}

// Parse returns the gesture with the given name.
func Parse(name string) (Gesture, error) {
	for g, n := range gestureNames {
		if n == name {
			return g, nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gesture) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// State is the classifier's cooldown state.
type State int

const (
	// Armed evaluates landmarks normally.
	Armed State = iota
	// Cooling suppresses all classification until the cooldown elapses.
	Cooling
)

func (s State) String() string {
	if s == Cooling {
		return "cooling"
	}
	return "armed"
}
