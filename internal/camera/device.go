// Package camera models acquisition of a frame source as a scoped
// resource: a Device hands out a Stream under requested Constraints, and a
// Session tracks the stream's lifecycle so it is released on every exit
// path.
package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Classified acquisition and capture errors, matched with errors.Is.
var (
	// ErrPermissionDenied means access to the device was refused. The
	// user can retry after adjusting settings; it is not retried
	// automatically.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrDeviceUnavailable means no usable device exists. Terminal for
	// the session.
	ErrDeviceUnavailable = errors.New("no usable camera device")
	// ErrNotReady means capture was attempted with no active session
	ErrNotReady = errors.New("no active camera session")
	// ErrBusy means a capture is already outstanding on the session
	ErrBusy = errors.New("capture already in progress")
)

// Facing is the camera facing preference
type Facing string

const (
	// FacingEnvironment is the rear-facing camera, preferred for bill
	// scanning
	FacingEnvironment Facing = "environment"
	// FacingUser is the front-facing camera
	FacingUser Facing = "user"
)

// Constraints is the capability request passed to a Device
type Constraints struct {
	Facing Facing
	Width  int
	Height int
}

// DefaultConstraints returns the capability request used by the scan
// screen: rear-facing, full-HD resolution hint.
func DefaultConstraints() Constraints {
	return Constraints{Facing: FacingEnvironment, Width: 1920, Height: 1080}
}

// Frame is a single still captured from a stream
type Frame struct {
	Data        []byte
	ContentType string
}

// Device defines the interface for acquiring a frame source
type Device interface {
	// Acquire requests exclusive access to the device. Failures are
	// classified as ErrPermissionDenied or ErrDeviceUnavailable.
	Acquire(ctx context.Context, constraints Constraints) (Stream, error)
}

// Stream is a live frame source that must be released when done
type Stream interface {
	// Frame returns the current frame
	Frame() (*Frame, error)
	// Release releases the stream. Idempotent.
	Release()
}

// StaticDevice is a Device whose stream always yields one fixed frame.
// The mobile-web upload path uses it: the browser already captured the
// frame, so the server-side "device" simply wraps it.
type StaticDevice struct {
	frame Frame
}

// NewStaticDevice creates a StaticDevice around an already-captured frame
func NewStaticDevice(data []byte, contentType string) (*StaticDevice, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrDeviceUnavailable)
	}
	return &StaticDevice{frame: Frame{Data: data, ContentType: contentType}}, nil
}

// Acquire returns a stream over the fixed frame
func (d *StaticDevice) Acquire(ctx context.Context, constraints Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return &staticStream{frame: d.frame}, nil
}

type staticStream struct {
	frame    Frame
	released bool
}

func (s *staticStream) Frame() (*Frame, error) {
	if s.released {
		return nil, fmt.Errorf("stream released")
	}
	return &s.frame, nil
}

func (s *staticStream) Release() {
	s.released = true
}

// DirDevice is a Device backed by a frame spool directory. The newest file
// in the directory is treated as the current frame. Useful for local
// development without a browser in front of the service.
type DirDevice struct {
	dir string
}

// NewDirDevice creates a DirDevice over a spool directory
func NewDirDevice(dir string) *DirDevice {
	return &DirDevice{dir: dir}
}

// Acquire verifies the spool directory is usable and returns a stream
// over it
func (d *DirDevice) Acquire(ctx context.Context, constraints Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	info, err := os.Stat(d.dir)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDeviceUnavailable, d.dir)
	}
	return &dirStream{dir: d.dir}, nil
}

type dirStream struct {
	dir      string
	released bool
}

// Frame reads the newest frame file in the spool directory
func (s *dirStream) Frame() (*Frame, error) {
	if s.released {
		return nil, fmt.Errorf("stream released")
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	type candidate struct {
		name    string
		modTime int64
	}
	var frames []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		frames = append(frames, candidate{name: entry.Name(), modTime: info.ModTime().UnixNano()})
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames in %s", s.dir)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].modTime > frames[j].modTime })

	name := frames[0].name
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	return &Frame{Data: data, ContentType: contentTypeForFile(name)}, nil
}

func (s *dirStream) Release() {
	s.released = true
}

// contentTypeForFile guesses a frame's content type from its extension
func contentTypeForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
