package usecases

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"testing"

	"tryon-live/internal/domain/entities"
	"tryon-live/internal/domain/repositories"
	domainservices "tryon-live/internal/domain/services"
	"tryon-live/internal/domain/valueobjects"
)

type fakeStream struct {
	mu         sync.Mutex
	active     bool
	closeCalls int
}

func (s *fakeStream) ReadJPEG() (*valueobjects.ImageData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, repositories.ErrNoActiveStream
	}
	return nil, nil
}

func (s *fakeStream) Resolution() (int, int) { return 1080, 1920 }

func (s *fakeStream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	s.active = false
	return nil
}

type fakeCameraProvider struct {
	stream   *fakeStream
	err      error
	acquires int
}

func (p *fakeCameraProvider) Acquire(ctx context.Context, cfg repositories.StreamConfig) (repositories.CameraStream, error) {
	p.acquires++
	if p.err != nil {
		return nil, p.err
	}
	return p.stream, nil
}

type stubCapturer struct {
	frame *valueobjects.ImageData
	err   error
}

func (c *stubCapturer) Capture(stream repositories.CameraStream) (*valueobjects.ImageData, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.frame, nil
}

type stubFetcher struct {
	outcome *repositories.FetchOutcome
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*repositories.FetchOutcome, error) {
	return f.outcome, nil
}

// blockingEditService holds every EditImage call until release is closed,
// so tests can observe the in-flight state deterministically.
type blockingEditService struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	result  *entities.EditResult
	err     error
}

func (s *blockingEditService) EditImage(ctx context.Context, request *entities.EditRequest) (*entities.EditResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

func (s *blockingEditService) Close() error { return nil }

func (s *blockingEditService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubSessionRepo struct {
	mu      sync.Mutex
	saved   map[entities.SessionID]*entities.CaptureSession
	results map[entities.SessionID]*entities.EditResult
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{
		saved:   make(map[entities.SessionID]*entities.CaptureSession),
		results: make(map[entities.SessionID]*entities.EditResult),
	}
}

func (r *stubSessionRepo) Save(ctx context.Context, session *entities.CaptureSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[session.ID()] = session
	return nil
}

func (r *stubSessionRepo) Delete(ctx context.Context, id entities.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.saved, id)
	return nil
}

func (r *stubSessionRepo) SaveResult(ctx context.Context, id entities.SessionID, result *entities.EditResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[id] = result
	return nil
}

func (r *stubSessionRepo) FindResultBySessionID(ctx context.Context, id entities.SessionID) (*entities.EditResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return result, nil
}

func testFrame(t *testing.T) *valueobjects.ImageData {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}
	frame, err := valueobjects.NewImageData(buf.Bytes(), "image/jpeg")
	if err != nil {
		t.Fatalf("Failed to create ImageData: %v", err)
	}
	return frame
}

func testProduct(t *testing.T) *entities.Product {
	t.Helper()

	product, err := entities.NewProduct("p1", "Aviator Sunglasses", "Lux", "https://example.com/p1.jpg", entities.AnchorFace, "acetate")
	if err != nil {
		t.Fatalf("NewProduct() error = %v", err)
	}
	return product
}

type fixture struct {
	uc     *TryOnSessionUseCase
	camera *fakeCameraProvider
	stream *fakeStream
	ai     *blockingEditService
	repo   *stubSessionRepo
	carted []*entities.Product
}

func newFixture(t *testing.T, ai *blockingEditService) *fixture {
	t.Helper()

	frame := testFrame(t)
	stream := &fakeStream{active: true}
	camera := &fakeCameraProvider{stream: stream}
	repo := newStubSessionRepo()
	fetcher := &stubFetcher{outcome: repositories.NewFetchOutcome(frame.Data(), "image/jpeg", "direct")}

	f := &fixture{camera: camera, stream: stream, ai: ai, repo: repo}
	f.uc = NewTryOnSessionUseCase(
		camera,
		&stubCapturer{frame: frame},
		domainservices.NewEditDomainService(fetcher, ai),
		repo,
		func(p *entities.Product) { f.carted = append(f.carted, p) },
	)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()

	err := f.uc.Start(context.Background(), StartInput{
		Product:        testProduct(t),
		ViewportWidth:  1000,
		ViewportHeight: 2000,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func (f *fixture) phase(t *testing.T) entities.SessionPhase {
	t.Helper()

	snap, err := f.uc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	return snap.Phase
}

func TestTryOnSessionUseCase_CaptureAndEdit(t *testing.T) {
	ai := &blockingEditService{result: entities.NewEditResult("edit_1", testFrame(t), "")}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	f.uc.waitForEdits()

	if got := f.phase(t); got != entities.PhaseEdited {
		t.Errorf("Phase = %s, want edited", got)
	}

	snap, _ := f.uc.Snapshot()
	if snap.EditedFrame == nil {
		t.Error("Edited frame missing after successful edit")
	}
	if _, err := f.repo.FindResultBySessionID(context.Background(), snap.SessionID); err != nil {
		t.Errorf("Edit result not persisted: %v", err)
	}
}

func TestTryOnSessionUseCase_SingleInFlightEdit(t *testing.T) {
	ai := &blockingEditService{
		release: make(chan struct{}),
		result:  entities.NewEditResult("edit_1", testFrame(t), ""),
	}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	if err := f.uc.Capture(context.Background()); !errors.Is(err, entities.ErrSessionBusy) {
		t.Errorf("Second capture: expected ErrSessionBusy, got %v", err)
	}
	if err := f.uc.Refine(context.Background(), "anything"); !errors.Is(err, entities.ErrSessionBusy) {
		t.Errorf("Refine while processing: expected ErrSessionBusy, got %v", err)
	}

	close(ai.release)
	f.uc.waitForEdits()

	if got := ai.callCount(); got != 1 {
		t.Errorf("Backend called %d times, want 1", got)
	}
}

func TestTryOnSessionUseCase_CaptureWithoutStream(t *testing.T) {
	ai := &blockingEditService{}
	f := newFixture(t, ai)
	f.start(t)

	f.uc.capturer = &stubCapturer{err: repositories.ErrNoActiveStream}

	err := f.uc.Capture(context.Background())
	if !errors.Is(err, repositories.ErrNoActiveStream) {
		t.Fatalf("Expected ErrNoActiveStream, got %v", err)
	}
	if got := f.phase(t); got != entities.PhaseLive {
		t.Errorf("Phase = %s, want live", got)
	}
	if ai.callCount() != 0 {
		t.Error("Backend must not be called when no frame was captured")
	}
}

func TestTryOnSessionUseCase_BackendUnsupportedKeepsRawFrame(t *testing.T) {
	ai := &blockingEditService{err: repositories.ErrBackendUnsupported}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	f.uc.waitForEdits()

	snap, _ := f.uc.Snapshot()
	if snap.Phase != entities.PhaseLive {
		t.Errorf("Phase = %s, want live", snap.Phase)
	}
	if snap.RawFrame == nil {
		t.Error("Raw frame must be retained after a capability mismatch")
	}
	if snap.EditedFrame != nil {
		t.Error("No edited frame should exist after a failed edit")
	}
}

func TestTryOnSessionUseCase_RetakeDiscardsStaleResult(t *testing.T) {
	ai := &blockingEditService{
		release: make(chan struct{}),
		result:  entities.NewEditResult("edit_1", testFrame(t), ""),
	}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	// Retake while the edit is still in flight.
	if err := f.uc.Retake(); err != nil {
		t.Fatalf("Retake() error = %v", err)
	}

	close(ai.release)
	f.uc.waitForEdits()

	snap, _ := f.uc.Snapshot()
	if snap.Phase != entities.PhaseLive {
		t.Errorf("Phase = %s, want live", snap.Phase)
	}
	if snap.EditedFrame != nil {
		t.Error("Stale edit result must never be applied after retake")
	}
}

func TestTryOnSessionUseCase_EmptyRefinementRejectedWithoutNetworkCall(t *testing.T) {
	ai := &blockingEditService{result: entities.NewEditResult("edit_1", testFrame(t), "")}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	f.uc.waitForEdits()
	callsAfterCapture := ai.callCount()

	if err := f.uc.Refine(context.Background(), "  "); !errors.Is(err, entities.ErrEmptyInstruction) {
		t.Fatalf("Expected ErrEmptyInstruction, got %v", err)
	}
	if got := ai.callCount(); got != callsAfterCapture {
		t.Errorf("Empty refinement triggered a backend call (%d -> %d)", callsAfterCapture, got)
	}
	if got := f.phase(t); got != entities.PhaseEdited {
		t.Errorf("Phase = %s, want edited", got)
	}
}

func TestTryOnSessionUseCase_RefinementOverwritesOnSuccessOnly(t *testing.T) {
	ai := &blockingEditService{result: entities.NewEditResult("edit_1", testFrame(t), "")}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	f.uc.waitForEdits()

	snap, _ := f.uc.Snapshot()
	firstEdit := snap.EditedFrame

	// A failing refinement keeps the prior result.
	ai.mu.Lock()
	ai.err = repositories.ErrBackendError
	ai.result = nil
	ai.mu.Unlock()

	if err := f.uc.Refine(context.Background(), "make it gold"); err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	f.uc.waitForEdits()

	snap, _ = f.uc.Snapshot()
	if snap.Phase != entities.PhaseEdited {
		t.Errorf("Phase = %s, want edited", snap.Phase)
	}
	if snap.EditedFrame != firstEdit {
		t.Error("Failed refinement must retain the prior edited frame")
	}
}

func TestTryOnSessionUseCase_EndReleasesCameraExactlyOnce(t *testing.T) {
	ai := &blockingEditService{}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.End(context.Background()); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if f.stream.closeCalls != 1 {
		t.Errorf("Stream closed %d times, want 1", f.stream.closeCalls)
	}

	// End is idempotent; the released stream is not touched again.
	if err := f.uc.End(context.Background()); err != nil {
		t.Fatalf("Second End() error = %v", err)
	}
	if f.stream.closeCalls != 1 {
		t.Errorf("Stream closed %d times after double End, want 1", f.stream.closeCalls)
	}

	if _, err := f.uc.Snapshot(); err == nil {
		t.Error("Snapshot should fail after End")
	}
}

func TestTryOnSessionUseCase_CameraFaultIsTerminal(t *testing.T) {
	ai := &blockingEditService{}
	f := newFixture(t, ai)
	f.camera.err = repositories.ErrPermissionDenied

	err := f.uc.Start(context.Background(), StartInput{
		Product:        testProduct(t),
		ViewportWidth:  1000,
		ViewportHeight: 2000,
	})
	if !errors.Is(err, repositories.ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}

	if got := f.phase(t); got != entities.PhaseError {
		t.Errorf("Phase = %s, want error", got)
	}
	if err := f.uc.Retake(); err == nil {
		t.Error("Retake must be rejected after a camera fault")
	}
}

func TestTryOnSessionUseCase_AddToCart(t *testing.T) {
	ai := &blockingEditService{}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.AddToCart(); err != nil {
		t.Fatalf("AddToCart() error = %v", err)
	}
	if len(f.carted) != 1 || f.carted[0].ID() != "p1" {
		t.Errorf("Cart callback not invoked with the product: %+v", f.carted)
	}
}

func TestTryOnSessionUseCase_SecondSessionRejected(t *testing.T) {
	ai := &blockingEditService{}
	f := newFixture(t, ai)
	f.start(t)

	err := f.uc.Start(context.Background(), StartInput{
		Product:        testProduct(t),
		ViewportWidth:  1000,
		ViewportHeight: 2000,
	})
	if err == nil {
		t.Error("Second Start must be rejected while a session is active")
	}
	if f.camera.acquires != 1 {
		t.Errorf("Camera acquired %d times, want 1", f.camera.acquires)
	}
}

func TestTryOnSessionUseCase_LastResultSurvivesEnd(t *testing.T) {
	edited := testFrame(t)
	ai := &blockingEditService{result: entities.NewEditResult("edit_1", edited, "")}
	f := newFixture(t, ai)
	f.start(t)

	if err := f.uc.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	f.uc.waitForEdits()

	if err := f.uc.End(context.Background()); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	result, err := f.uc.LastResult(context.Background())
	if err != nil {
		t.Fatalf("LastResult() after End error = %v", err)
	}
	if !result.HasImage() {
		t.Fatal("LastResult() returned no image")
	}
	if !bytes.Equal(result.Image().Data(), edited.Data()) {
		t.Error("LastResult() image differs from the edited frame")
	}
}

func TestTryOnSessionUseCase_LastResultWithoutAnySession(t *testing.T) {
	ai := &blockingEditService{}
	f := newFixture(t, ai)

	if _, err := f.uc.LastResult(context.Background()); err == nil {
		t.Error("LastResult() must fail before any session has run")
	}
}

func TestTryOnSessionUseCase_CaptureAbortsOnMissingFrame(t *testing.T) {
	ai := &blockingEditService{result: entities.NewEditResult("edit_1", testFrame(t), "")}
	f := newFixture(t, ai)
	f.start(t)

	// A capturer that yields neither a frame nor an error; the session
	// must not be left stuck in the capturing phase.
	f.uc.capturer = &stubCapturer{}

	if err := f.uc.Capture(context.Background()); err == nil {
		t.Fatal("Capture() must fail when no frame is delivered")
	}
	if got := f.phase(t); got != entities.PhaseLive {
		t.Errorf("Phase = %s, want live after failed capture", got)
	}

	f.uc.capturer = &stubCapturer{frame: testFrame(t)}
	if err := f.uc.Capture(context.Background()); err != nil {
		t.Errorf("Capture() after recovery error = %v", err)
	}
	f.uc.waitForEdits()
}

func TestTryOnSessionUseCase_SnapshotCarriesCaptureTime(t *testing.T) {
	ai := &blockingEditService{result: entities.NewEditResult("edit_1", testFrame(t), "")}
	f := newFixture(t, ai)
	f.start(t)

	snap, err := f.uc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snap.CapturedAt.IsZero() {
		t.Error("CapturedAt must be zero before the first capture")
	}

	if err := f.uc.Capture(context.Background()); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	f.uc.waitForEdits()

	snap, err = f.uc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("CapturedAt missing after capture")
	}
}
