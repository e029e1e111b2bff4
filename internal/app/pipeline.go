package app

import (
	"context"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/pixelrelapse/handplay/internal/detector"
	"github.com/pixelrelapse/handplay/internal/gesture"
)

// frameTime stamps one frame. mono is the time since the pipeline started,
// read from the monotonic clock; it drives the cooldown and the idle timeout
// and is unaffected by wall clock steps. wall is only recorded on events.
type frameTime struct {
	wall time.Time
	mono time.Duration
}

// pipelineState tracks idle/active mode between frames.
type pipelineState struct {
	active     bool
	lastMotion time.Duration // mono time of the last frame with motion
}

// runPipeline reads frames until stopCh closes.
//
// The loop starts idle at IdleFPS. Motion switches it to ActiveFPS and turns
// on hand detection. After IdleTimeoutMs without motion it drops back to idle.
func (a *App) runPipeline(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stopCh
		cancel()
	}()

	start := time.Now()
	state := &pipelineState{}

	ticker := time.NewTicker(time.Second / time.Duration(IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			wasActive := state.active
			now := time.Now()
			a.processFrame(ctx, frame, state, frameTime{wall: now, mono: now.Sub(start)})
			frame.Close()

			if state.active != wasActive {
				fps := IdleFPS
				if state.active {
					fps = ActiveFPS
				}
				a.camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
			}
		}
	}
}

// processFrame runs motion gating, hand detection and classification for one
// frame. While the preview is watched the frame is encoded with the first
// hand drawn over it. It returns the emitted gesture, or None.
func (a *App) processFrame(ctx context.Context, frame *gocv.Mat, state *pipelineState, t frameTime) gesture.Gesture {
	moved, changed := a.motion.Detect(frame)

	if moved {
		state.lastMotion = t.mono
		if !state.active {
			state.active = true
			log.Printf("Switched to active mode (%.1f%% of pixels changed)", changed)
		}
	} else if state.active && t.mono-state.lastMotion > time.Duration(IdleTimeoutMs)*time.Millisecond {
		state.active = false
		log.Println("Switched to idle mode")
	}

	g := gesture.None
	var hands []detector.HandLandmarks

	if d := a.Detector(); state.active && d != nil {
		var err error
		hands, err = d.Detect(frame)
		if err != nil {
			log.Printf("Error detecting hands: %v", err)
		} else {
			g = a.handleHands(ctx, hands, t.mono.Milliseconds(), t.wall)
		}
	}

	if a.previewWatched() {
		if len(hands) > 0 {
			detector.DrawHand(frame, hands[0])
		}
		a.encodePreview(frame)
	}

	return g
}

func (a *App) encodePreview(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Printf("Error encoding preview frame: %v", err)
		return
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	a.setLatestJPEG(jpeg)
}
