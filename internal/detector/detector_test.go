package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestPoint3D_Distance2D(t *testing.T) {
	t.Run("ignores depth", func(t *testing.T) {
		a := Point3D{X: 0.0, Y: 0.0, Z: 5.0}
		b := Point3D{X: 0.3, Y: 0.4, Z: -5.0}

		if d := a.Distance2D(b); math.Abs(d-0.5) > epsilon {
			t.Errorf("expected distance 0.5, got %f", d)
		}
	})

	t.Run("is symmetric", func(t *testing.T) {
		a := Point3D{X: 0.1, Y: 0.7}
		b := Point3D{X: 0.6, Y: 0.2}

		if a.Distance2D(b) != b.Distance2D(a) {
			t.Error("expected symmetric distance")
		}
	})
}

func TestHandLandmarks_Has(t *testing.T) {
	full := RestingLandmarks()
	if !full.Has(Wrist) || !full.Has(PinkyTip) {
		t.Error("complete hand should have wrist and pinky tip")
	}
	if full.Has(NumLandmarks) || full.Has(-1) {
		t.Error("out of range indices should not be present")
	}
	if !full.Complete() {
		t.Error("resting hand should be complete")
	}

	partial := TruncatedLandmarks()
	if partial.Has(IndexTip) {
		t.Error("truncated hand should not have index tip")
	}
	if partial.Complete() {
		t.Error("truncated hand should not be complete")
	}

	var none *HandLandmarks
	if none.Has(Wrist) {
		t.Error("nil hand should have no landmarks")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{PinchLandmarks(), RestingLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
		if !mock.Closed() {
			t.Error("expected mock to be closed")
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestPresets(t *testing.T) {
	t.Run("pinch brings thumb and index together", func(t *testing.T) {
		h := PinchLandmarks()
		if d := h.Points[ThumbTip].Distance2D(h.Points[IndexTip]); d >= 0.05 {
			t.Errorf("expected thumb-index distance < 0.05, got %f", d)
		}
	})

	t.Run("resting hand keeps fingers apart and centered", func(t *testing.T) {
		h := RestingLandmarks()
		if d := h.Points[ThumbTip].Distance2D(h.Points[IndexTip]); d < 0.05 {
			t.Errorf("expected thumb-index distance >= 0.05, got %f", d)
		}
		offset := h.Points[IndexTip].X - h.Points[Wrist].X
		if math.Abs(offset) > 0.2 {
			t.Errorf("expected index within 0.2 of wrist, got offset %f", offset)
		}
	})

	t.Run("swipe forward points right of the wrist", func(t *testing.T) {
		h := SwipeForwardLandmarks()
		if h.Points[IndexTip].X <= h.Points[Wrist].X+0.2 {
			t.Errorf("index x %f not beyond wrist + 0.2", h.Points[IndexTip].X)
		}
	})

	t.Run("swipe backward points left of the wrist", func(t *testing.T) {
		h := SwipeBackwardLandmarks()
		if h.Points[IndexTip].X >= h.Points[Wrist].X-0.2 {
			t.Errorf("index x %f not beyond wrist - 0.2", h.Points[IndexTip].X)
		}
	})

	t.Run("presets do not share backing arrays", func(t *testing.T) {
		a := RestingLandmarks()
		b := RestingLandmarks()
		a.Points[Wrist].X = 0
		if b.Points[Wrist].X == 0 {
			t.Error("modifying one preset changed another")
		}
	})
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}

	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	out := buf.Bytes()
	if len(out) != 4+len(payload) {
		t.Fatalf("expected %d bytes, got %d", 4+len(payload), len(out))
	}
	if n := binary.BigEndian.Uint32(out[:4]); n != uint32(len(payload)) {
		t.Errorf("expected length prefix %d, got %d", len(payload), n)
	}
	if !bytes.Equal(out[4:], payload) {
		t.Error("payload mismatch")
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		hands, err := decodeResponse([]byte(`{"hands":[]}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("keeps partial detections", func(t *testing.T) {
		line := `{"hands":[{"points":[{"x":0.5,"y":0.5,"z":0},{"x":0.6,"y":0.4,"z":0}],"handedness":"Left","score":0.8}]}`
		hands, err := decodeResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if len(hands[0].Points) != 2 {
			t.Errorf("expected 2 points, got %d", len(hands[0].Points))
		}
		if hands[0].Handedness != "Left" {
			t.Errorf("expected Left, got %s", hands[0].Handedness)
		}
	})

	t.Run("caps extra points", func(t *testing.T) {
		h := jsonHand{Points: make([]Point3D, NumLandmarks+4)}
		if got := len(h.toHandLandmarks().Points); got != NumLandmarks {
			t.Errorf("expected %d points, got %d", NumLandmarks, got)
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		if _, err := decodeResponse([]byte("not json")); err == nil {
			t.Error("expected parse error")
		}
	})
}
