package playback

import (
	"context"
	"log"
	"sync"
)

// Recorder is an in-memory Controller that remembers every command.
// A logging Recorder writes commands to the log instead of keeping them.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	err      error
	logged   bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// NewLoggingRecorder creates a Recorder that logs each command and keeps
// none of them. It backs the log playback backend, which runs indefinitely.
func NewLoggingRecorder() *Recorder {
	return &Recorder{logged: true}
}

// SetError makes subsequent commands fail with err. The command is still recorded.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// TogglePlayPause implements Controller.
func (r *Recorder) TogglePlayPause(ctx context.Context) error {
	return r.record(Toggle)
}

// NextTrack implements Controller.
func (r *Recorder) NextTrack(ctx context.Context) error {
	return r.record(Next)
}

// PreviousTrack implements Controller.
func (r *Recorder) PreviousTrack(ctx context.Context) error {
	return r.record(Previous)
}

func (r *Recorder) record(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logged {
		log.Printf("Playback: %s", cmd)
	} else {
		r.commands = append(r.commands, cmd)
	}
	return r.err
}
