package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{name: "default threshold", threshold: 1.0, want: 1.0},
		{name: "high threshold", threshold: 5.0, want: 5.0},
		{name: "zero falls back", threshold: 0, want: DefaultMotionThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if md.Threshold() != tt.want {
				t.Errorf("Threshold() = %f, want %f", md.Threshold(), tt.want)
			}
			if md.initialized {
				t.Error("motion detector should not be initialized initially")
			}
		})
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	detected, changePercent := md.Detect(&frame1)
	if detected || changePercent != 0 {
		t.Errorf("first frame = (%v, %f), want (false, 0)", detected, changePercent)
	}

	detected, changePercent = md.Detect(&frame2)
	if detected {
		t.Errorf("identical frames should not detect motion, changePercent = %f", changePercent)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	blackFrame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer blackFrame.Close()
	whiteFrame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer whiteFrame.Close()
	whiteFrame.SetTo(gocv.NewScalar(255, 255, 255, 0))

	if detected, _ := md.Detect(&blackFrame); detected {
		t.Error("first frame should not detect motion")
	}

	detected, changePercent := md.Detect(&whiteFrame)
	if !detected {
		t.Errorf("black to white should detect motion, changePercent = %f", changePercent)
	}
	if changePercent < 50.0 {
		t.Errorf("changePercent = %f, expected > 50%% for black to white transition", changePercent)
	}
}

func TestMotionDetector_GrayscaleInput(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	dark := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC1)
	defer dark.Close()
	bright := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC1)
	defer bright.Close()
	bright.SetTo(gocv.NewScalar(200, 0, 0, 0))

	md.Detect(&dark)
	if detected, pct := md.Detect(&bright); !detected {
		t.Errorf("single channel frames should be compared directly, changePercent = %f", pct)
	}
}

func TestMotionDetector_EmptyFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if detected, pct := md.Detect(nil); detected || pct != 0 {
		t.Errorf("nil frame = (%v, %f), want (false, 0)", detected, pct)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if detected, _ := md.Detect(&empty); detected {
		t.Error("empty frame should not detect motion")
	}
	if md.initialized {
		t.Error("empty frame should not set a baseline")
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)
	if !md.initialized {
		t.Error("detector should be initialized after first Detect")
	}

	md.Reset()
	if md.initialized {
		t.Error("detector should not be initialized after Reset")
	}
	if !md.prevGray.Empty() {
		t.Error("prevGray should be empty after Reset")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(5.0)
	if md.Threshold() != 5.0 {
		t.Errorf("Threshold() = %f, want 5.0", md.Threshold())
	}

	md.SetThreshold(-1)
	if md.Threshold() != 5.0 {
		t.Errorf("negative threshold should be ignored, got %f", md.Threshold())
	}
}
