package camera

import (
	"fmt"

	"tryon-live/internal/domain/repositories"
	"tryon-live/internal/domain/valueobjects"
)

// FrameCaptureService rasterizes the current video frame of a stream into
// a compressed still image. The draw happens at the stream's native
// resolution, not the display size.
type FrameCaptureService struct{}

func NewFrameCaptureService() *FrameCaptureService {
	return &FrameCaptureService{}
}

func (s *FrameCaptureService) Capture(stream repositories.CameraStream) (*valueobjects.ImageData, error) {
	if stream == nil || !stream.Active() {
		return nil, repositories.ErrNoActiveStream
	}

	frame, err := stream.ReadJPEG()
	if err != nil {
		return nil, fmt.Errorf("frame capture failed: %w", err)
	}

	return frame, nil
}
