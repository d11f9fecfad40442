package camera

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"tryon-live/internal/domain/repositories"
	"tryon-live/internal/domain/valueobjects"
)

// Manager acquires the device camera. It implements
// repositories.CameraProvider on top of OpenCV video capture.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Acquire(ctx context.Context, cfg repositories.StreamConfig) (repositories.CameraStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrDeviceUnavailable, err)
	}

	webcam, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, classifyOpenError(cfg.DeviceID, err)
	}

	if cfg.Width > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	// The device may not honor the requested resolution; capture at
	// whatever it actually delivers.
	width := int(webcam.Get(gocv.VideoCaptureFrameWidth))
	height := int(webcam.Get(gocv.VideoCaptureFrameHeight))

	slog.Info("Camera stream acquired", "device", cfg.DeviceID, "width", width, "height", height)

	return &Stream{
		webcam: webcam,
		device: cfg.DeviceID,
		width:  width,
		height: height,
	}, nil
}

func classifyOpenError(deviceID int, err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "permission") {
		return fmt.Errorf("%w: device %d: %v", repositories.ErrPermissionDenied, deviceID, err)
	}
	return fmt.Errorf("%w: device %d: %v", repositories.ErrDeviceUnavailable, deviceID, err)
}

// Stream is an exclusively owned camera handle. Close is idempotent.
type Stream struct {
	mu     sync.Mutex
	webcam *gocv.VideoCapture
	device int
	width  int
	height int
}

// ReadJPEG rasterizes the current video frame at the stream's native
// resolution and encodes it as JPEG.
func (s *Stream) ReadJPEG() (*valueobjects.ImageData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.webcam == nil {
		return nil, repositories.ErrNoActiveStream
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := s.webcam.Read(&frame); !ok || frame.Empty() {
		return nil, fmt.Errorf("%w: device %d delivered no frame", repositories.ErrNoActiveStream, s.device)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	return valueobjects.NewImageData(data, "image/jpeg")
}

func (s *Stream) Resolution() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.width, s.height
}

func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.webcam != nil
}

// Close releases the camera. Closing an already-released stream is a no-op.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.webcam == nil {
		return nil
	}

	err := s.webcam.Close()
	s.webcam = nil
	slog.Info("Camera stream released", "device", s.device)
	return err
}
