package camera

import (
	"context"
	"fmt"
	"sync"
)

// State is the lifecycle state of a Session
type State int

const (
	// Idle means the session has not been started yet
	Idle State = iota
	// Active means a stream is acquired and live
	Active
	// Capturing means a frame grab is outstanding
	Capturing
	// Stopped means the stream has been released
	Stopped
)

// String returns the state name for logging
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Capturing:
		return "capturing"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Session owns one acquired camera stream and enforces its lifecycle:
// Idle -> Active -> Capturing -> Stopped. Only one stream may be active at
// a time; starting over an active stream is an error, and a second grab
// while one is outstanding is refused with ErrBusy rather than queued.
type Session struct {
	device Device

	mu     sync.Mutex
	stream Stream
	state  State
}

// NewSession creates a Session over a device
func NewSession(device Device) *Session {
	return &Session{device: device, state: Idle}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the device stream. It may be called from Idle or Stopped;
// an already-active session must be stopped first.
func (s *Session) Start(ctx context.Context, constraints Constraints) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Active || s.state == Capturing {
		return fmt.Errorf("session already %s, stop it first", s.state)
	}

	stream, err := s.device.Acquire(ctx, constraints)
	if err != nil {
		s.state = Stopped
		return fmt.Errorf("acquiring camera stream: %w", err)
	}

	s.stream = stream
	s.state = Active
	return nil
}

// Grab snapshots the current frame. The session must be active; a grab
// while another is outstanding returns ErrBusy. The session remains in
// Capturing state afterwards: capture is single-shot, and the caller is
// expected to Stop the session once the frame is in hand.
func (s *Session) Grab() (*Frame, error) {
	s.mu.Lock()
	switch s.state {
	case Capturing:
		s.mu.Unlock()
		return nil, ErrBusy
	case Active:
		// fall through to grab
	default:
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	s.state = Capturing
	stream := s.stream
	s.mu.Unlock()

	frame, err := stream.Frame()
	if err != nil {
		return nil, fmt.Errorf("grabbing frame: %w", err)
	}
	return frame, nil
}

// Stop releases the stream. Safe to call from any state and on every exit
// path; repeated calls are no-ops.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		s.stream.Release()
		s.stream = nil
	}
	s.state = Stopped
}
