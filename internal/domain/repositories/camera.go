package repositories

import (
	"context"
	"errors"

	"tryon-live/internal/domain/valueobjects"
)

var (
	// ErrPermissionDenied means the platform refused camera access.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrDeviceUnavailable means no usable camera device could be opened.
	ErrDeviceUnavailable = errors.New("camera device unavailable")

	// ErrNoActiveStream means a frame capture was requested before a
	// stream was ready.
	ErrNoActiveStream = errors.New("no active camera stream")
)

// StreamConfig describes the preferred stream. The device may deliver a
// different resolution than requested.
type StreamConfig struct {
	DeviceID int
	Width    int
	Height   int
}

// CameraProvider acquires the device camera. Each successful Acquire must
// be paired with exactly one Close on the returned stream.
type CameraProvider interface {
	Acquire(ctx context.Context, cfg StreamConfig) (CameraStream, error)
}

// CameraStream is an exclusively owned live video resource. Close is
// idempotent; closing an already-released stream is a no-op.
type CameraStream interface {
	// ReadJPEG rasterizes the current video frame at the stream's native
	// resolution and returns it as a compressed still image.
	ReadJPEG() (*valueobjects.ImageData, error)

	Resolution() (width, height int)

	Active() bool

	Close() error
}

// FrameCapturer turns the current frame of a stream into a still image.
type FrameCapturer interface {
	Capture(stream CameraStream) (*valueobjects.ImageData, error)
}
