package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tryon-live/internal/domain/valueobjects"
)

// SessionPhase is the state of one try-on attempt.
type SessionPhase string

const (
	PhaseLive       SessionPhase = "live"
	PhaseCapturing  SessionPhase = "capturing"
	PhaseProcessing SessionPhase = "processing"
	PhaseEdited     SessionPhase = "edited"
	PhaseRefining   SessionPhase = "refining"
	PhaseError      SessionPhase = "error"
)

var (
	// ErrSessionBusy is returned while a capture or refinement round-trip
	// is still in flight.
	ErrSessionBusy = errors.New("an edit is already in flight")

	// ErrEmptyInstruction rejects a refinement with no instruction text
	// before any network call happens.
	ErrEmptyInstruction = errors.New("refinement instruction is empty")
)

type SessionID string

// CaptureSession is the aggregate root of one try-on attempt. It owns the
// captured frame buffers exclusively and enforces the phase transitions.
// Callers serialize access; the session itself does no locking.
type CaptureSession struct {
	id               SessionID
	product          *Product
	rawFrame         *valueobjects.ImageData
	editedFrame      *valueobjects.ImageData
	refinementPrompt string
	phase            SessionPhase
	version          uint64
	capturedAt       time.Time
	createdAt        time.Time
}

func NewCaptureSession(product *Product) (*CaptureSession, error) {
	if product == nil {
		return nil, fmt.Errorf("product is required")
	}

	id := SessionID(fmt.Sprintf("session_%d", time.Now().UnixNano()))

	return &CaptureSession{
		id:        id,
		product:   product,
		phase:     PhaseLive,
		createdAt: time.Now(),
	}, nil
}

func (s *CaptureSession) ID() SessionID {
	return s.id
}

func (s *CaptureSession) Product() *Product {
	return s.product
}

func (s *CaptureSession) Phase() SessionPhase {
	return s.phase
}

func (s *CaptureSession) RawFrame() *valueobjects.ImageData {
	return s.rawFrame
}

func (s *CaptureSession) EditedFrame() *valueobjects.ImageData {
	return s.editedFrame
}

func (s *CaptureSession) RefinementPrompt() string {
	return s.refinementPrompt
}

// Version identifies the edit round-trip currently allowed to mutate the
// session. A result stamped with an older version is stale and discarded.
func (s *CaptureSession) Version() uint64 {
	return s.version
}

func (s *CaptureSession) CreatedAt() time.Time {
	return s.createdAt
}

func (s *CaptureSession) CapturedAt() time.Time {
	return s.capturedAt
}

// BeginCapture moves the session out of the live preview. Only one capture
// or refinement can be in flight at a time.
func (s *CaptureSession) BeginCapture() error {
	switch s.phase {
	case PhaseLive:
		s.phase = PhaseCapturing
		return nil
	case PhaseCapturing, PhaseProcessing, PhaseRefining:
		return ErrSessionBusy
	default:
		return fmt.Errorf("capture not allowed in phase %s", s.phase)
	}
}

// AbortCapture returns to the live preview when no frame could be taken.
func (s *CaptureSession) AbortCapture() {
	if s.phase == PhaseCapturing {
		s.phase = PhaseLive
	}
}

// FrameCaptured records the still frame and starts the edit round-trip.
// The returned version must be presented back by CompleteEdit or FailEdit.
func (s *CaptureSession) FrameCaptured(frame *valueobjects.ImageData) (uint64, error) {
	if s.phase != PhaseCapturing {
		return 0, fmt.Errorf("no capture in progress (phase %s)", s.phase)
	}

	if frame == nil {
		return 0, fmt.Errorf("captured frame is required")
	}

	s.rawFrame = frame
	s.capturedAt = time.Now()
	s.phase = PhaseProcessing
	s.version++
	return s.version, nil
}

// BeginRefine starts a follow-up edit on the current result with a
// user-supplied instruction.
func (s *CaptureSession) BeginRefine(instruction string) (uint64, error) {
	if s.phase != PhaseEdited {
		if s.phase == PhaseProcessing || s.phase == PhaseRefining {
			return 0, ErrSessionBusy
		}
		return 0, fmt.Errorf("refinement not allowed in phase %s", s.phase)
	}

	if strings.TrimSpace(instruction) == "" {
		return 0, ErrEmptyInstruction
	}

	s.refinementPrompt = instruction
	s.phase = PhaseRefining
	s.version++
	return s.version, nil
}

// CompleteEdit applies a successful edit result. It reports whether the
// result was applied; a stale version is discarded without touching state.
func (s *CaptureSession) CompleteEdit(version uint64, frame *valueobjects.ImageData) bool {
	if version != s.version || frame == nil {
		return false
	}

	switch s.phase {
	case PhaseProcessing, PhaseRefining:
		s.editedFrame = frame
		s.phase = PhaseEdited
		return true
	default:
		return false
	}
}

// FailEdit records an edit failure. The raw frame is always retained so the
// user can retry or retake; a failed refinement keeps the previous result.
func (s *CaptureSession) FailEdit(version uint64) bool {
	if version != s.version {
		return false
	}

	switch s.phase {
	case PhaseProcessing:
		s.phase = PhaseLive
		return true
	case PhaseRefining:
		s.phase = PhaseEdited
		return true
	default:
		return false
	}
}

// Retake discards the captured frames and returns to the live preview.
// Bumping the version invalidates any edit still in flight.
func (s *CaptureSession) Retake() error {
	if s.phase == PhaseError {
		return fmt.Errorf("session is in a terminal error state")
	}

	s.rawFrame = nil
	s.editedFrame = nil
	s.refinementPrompt = ""
	s.phase = PhaseLive
	s.version++
	return nil
}

// FailCamera marks an unrecoverable camera fault. The only exit from this
// state is leaving the screen.
func (s *CaptureSession) FailCamera() {
	s.phase = PhaseError
	s.version++
}
