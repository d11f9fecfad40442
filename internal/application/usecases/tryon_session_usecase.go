package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	appservices "tryon-live/internal/application/services"
	"tryon-live/internal/domain/entities"
	"tryon-live/internal/domain/repositories"
	domainservices "tryon-live/internal/domain/services"
	"tryon-live/internal/domain/valueobjects"
)

// TryOnSessionUseCase coordinates one try-on session: the camera stream,
// the overlay gesture state, frame capture and the asynchronous edit
// round-trip. At most one session is active at a time.
type TryOnSessionUseCase struct {
	cameras     repositories.CameraProvider
	capturer    repositories.FrameCapturer
	editService *domainservices.EditDomainService
	sessions    repositories.SessionRepository
	onAddToCart func(*entities.Product)

	mu      sync.Mutex
	session *entities.CaptureSession
	stream  repositories.CameraStream
	gesture *appservices.GestureService

	// lastSessionID outlives the session so the shell can re-fetch the
	// last edited frame after teardown.
	lastSessionID entities.SessionID

	// sessionCtx covers in-flight network work; it is cancelled only by
	// full session teardown.
	sessionCtx    context.Context
	cancelSession context.CancelFunc

	pending sync.WaitGroup
}

func NewTryOnSessionUseCase(
	cameras repositories.CameraProvider,
	capturer repositories.FrameCapturer,
	editService *domainservices.EditDomainService,
	sessions repositories.SessionRepository,
	onAddToCart func(*entities.Product),
) *TryOnSessionUseCase {
	return &TryOnSessionUseCase{
		cameras:     cameras,
		capturer:    capturer,
		editService: editService,
		sessions:    sessions,
		onAddToCart: onAddToCart,
	}
}

// StartInput carries the product handed over by the catalog collaborator
// and the viewport the pointer coordinates are expressed in.
type StartInput struct {
	Product        *entities.Product
	ViewportWidth  float64
	ViewportHeight float64
	CameraDeviceID int
}

// Start opens a new session and acquires the camera. A camera fault is
// terminal for the session: the session is kept in its error phase so the
// caller can surface it, and the only exit is End.
func (uc *TryOnSessionUseCase) Start(ctx context.Context, input StartInput) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.session != nil {
		return fmt.Errorf("a try-on session is already active")
	}

	session, err := entities.NewCaptureSession(input.Product)
	if err != nil {
		return err
	}

	uc.sessionCtx, uc.cancelSession = context.WithCancel(context.Background())

	stream, err := uc.cameras.Acquire(ctx, repositories.StreamConfig{
		DeviceID: input.CameraDeviceID,
		Width:    1080,
		Height:   1920,
	})
	if err != nil {
		session.FailCamera()
		uc.session = session
		uc.lastSessionID = session.ID()
		if saveErr := uc.sessions.Save(ctx, session); saveErr != nil {
			slog.Warn("Failed to save session", "error", saveErr)
		}
		return fmt.Errorf("failed to acquire camera: %w", err)
	}

	gesture := appservices.NewGestureService(input.ViewportWidth, input.ViewportHeight)
	gesture.BindProduct(input.Product)

	uc.session = session
	uc.stream = stream
	uc.gesture = gesture
	uc.lastSessionID = session.ID()

	if err := uc.sessions.Save(ctx, session); err != nil {
		slog.Warn("Failed to save session", "error", err)
	}

	slog.Info("Try-on session started",
		"session", session.ID(),
		"product", input.Product.ID(),
		"anchor", input.Product.Anchor())
	return nil
}

// Capture rasterizes the current frame and kicks off the edit round-trip.
// It returns as soon as the frame is taken; the edit resolves in the
// background and is applied through the session's version stamp.
func (uc *TryOnSessionUseCase) Capture(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.session == nil {
		return fmt.Errorf("no active try-on session")
	}

	if err := uc.session.BeginCapture(); err != nil {
		return err
	}

	frame, err := uc.capturer.Capture(uc.stream)
	if err != nil {
		uc.session.AbortCapture()
		return err
	}

	version, err := uc.session.FrameCaptured(frame)
	if err != nil {
		uc.session.AbortCapture()
		return err
	}
	uc.gesture.Freeze()

	instruction := domainservices.AutoInstruction(uc.session.Product())
	uc.startEdit(frame, instruction, version)
	return nil
}

// Refine submits a follow-up edit with the user's instruction. Each call
// is independent; the current edited frame is the person input so
// adjustments accumulate visually.
func (uc *TryOnSessionUseCase) Refine(ctx context.Context, instruction string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.session == nil {
		return fmt.Errorf("no active try-on session")
	}

	version, err := uc.session.BeginRefine(instruction)
	if err != nil {
		return err
	}

	uc.startEdit(uc.session.EditedFrame(), instruction, version)
	return nil
}

// startEdit launches the fetch+edit round-trip. Caller holds uc.mu.
func (uc *TryOnSessionUseCase) startEdit(frame *valueobjects.ImageData, instruction string, version uint64) {
	product := uc.session.Product()
	sessionID := uc.session.ID()
	ctx := uc.sessionCtx

	uc.pending.Add(1)
	go func() {
		defer uc.pending.Done()

		result, err := uc.editService.ProcessEdit(ctx, frame, product, instruction)

		uc.mu.Lock()
		defer uc.mu.Unlock()

		if uc.session == nil || uc.session.ID() != sessionID {
			slog.Info("Discarding edit result for ended session", "session", sessionID)
			return
		}

		if err != nil {
			if !uc.session.FailEdit(version) {
				slog.Info("Discarding stale edit failure", "session", sessionID, "version", version)
				return
			}
			slog.Warn("Edit failed", "session", sessionID, "error", err)
			if uc.session.Phase() == entities.PhaseLive {
				uc.gesture.Unfreeze()
			}
			return
		}

		if !uc.session.CompleteEdit(version, result.Image()) {
			slog.Info("Discarding stale edit result", "session", sessionID, "version", version)
			return
		}

		if saveErr := uc.sessions.SaveResult(ctx, sessionID, result); saveErr != nil {
			slog.Warn("Failed to save edit result", "session", sessionID, "error", saveErr)
		}
		slog.Info("Edit applied", "session", sessionID, "version", version)
	}()
}

// Retake discards the captured frames and returns to the live preview. An
// edit still in flight becomes stale and its result is dropped.
func (uc *TryOnSessionUseCase) Retake() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.session == nil {
		return fmt.Errorf("no active try-on session")
	}

	if err := uc.session.Retake(); err != nil {
		return err
	}

	uc.gesture.Unfreeze()
	return nil
}

// AddToCart hands the product to the cart collaborator. Cart state lives
// entirely on the other side of the callback.
func (uc *TryOnSessionUseCase) AddToCart() error {
	uc.mu.Lock()
	if uc.session == nil {
		uc.mu.Unlock()
		return fmt.Errorf("no active try-on session")
	}
	product := uc.session.Product()
	callback := uc.onAddToCart
	uc.mu.Unlock()

	if callback != nil {
		callback(product)
	}
	return nil
}

// End tears the session down: the camera is released exactly once, any
// in-flight edit is cancelled and the session is discarded. End is
// idempotent.
func (uc *TryOnSessionUseCase) End(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.cancelSession != nil {
		uc.cancelSession()
		uc.cancelSession = nil
	}

	var err error
	if uc.stream != nil {
		err = uc.stream.Close()
		uc.stream = nil
	}

	if uc.session != nil {
		if delErr := uc.sessions.Delete(ctx, uc.session.ID()); delErr != nil {
			slog.Warn("Failed to delete session", "error", delErr)
		}
		slog.Info("Try-on session ended", "session", uc.session.ID())
		uc.session = nil
	}
	uc.gesture = nil

	return err
}

// LastResult returns the most recent completed edit. Results outlive the
// session, so this still works after End.
func (uc *TryOnSessionUseCase) LastResult(ctx context.Context) (*entities.EditResult, error) {
	uc.mu.Lock()
	sessionID := uc.lastSessionID
	uc.mu.Unlock()

	if sessionID == "" {
		return nil, fmt.Errorf("no try-on session has run")
	}

	return uc.sessions.FindResultBySessionID(ctx, sessionID)
}

// Gesture exposes the overlay controller of the active session.
func (uc *TryOnSessionUseCase) Gesture() (*appservices.GestureService, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.gesture == nil {
		return nil, fmt.Errorf("no active try-on session")
	}
	return uc.gesture, nil
}

// Snapshot is a read-only view of the active session for the API layer.
type Snapshot struct {
	SessionID      entities.SessionID
	Phase          entities.SessionPhase
	Product        *entities.Product
	RawFrame       *valueobjects.ImageData
	EditedFrame    *valueobjects.ImageData
	CapturedAt     time.Time
	Placement      valueobjects.OverlayPlacement
	OverlayWidth   float64
	OverlayVisible bool
}

func (uc *TryOnSessionUseCase) Snapshot() (*Snapshot, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.session == nil {
		return nil, fmt.Errorf("no active try-on session")
	}

	snap := &Snapshot{
		SessionID:   uc.session.ID(),
		Phase:       uc.session.Phase(),
		Product:     uc.session.Product(),
		RawFrame:    uc.session.RawFrame(),
		EditedFrame: uc.session.EditedFrame(),
		CapturedAt:  uc.session.CapturedAt(),
	}
	if uc.gesture != nil {
		snap.Placement = uc.gesture.Placement()
		snap.OverlayWidth = uc.gesture.WidthPercent()
		snap.OverlayVisible = uc.gesture.Visible()
	}
	return snap, nil
}

// waitForEdits blocks until in-flight edit goroutines settle. Test hook.
func (uc *TryOnSessionUseCase) waitForEdits() {
	uc.pending.Wait()
}
