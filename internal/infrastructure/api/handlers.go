package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tryon-live/internal/application/usecases"
	"tryon-live/internal/domain/entities"
	"tryon-live/internal/domain/repositories"
)

const maxBodySize = 1 * 1024 * 1024 // 1MB

// SessionHandler exposes the try-on session over HTTP. All pointer and
// session endpoints operate on the single active session.
type SessionHandler struct {
	sessionUseCase *usecases.TryOnSessionUseCase
	defaultCamera  int
}

func NewSessionHandler(sessionUseCase *usecases.TryOnSessionUseCase, defaultCamera int) *SessionHandler {
	return &SessionHandler{
		sessionUseCase: sessionUseCase,
		defaultCamera:  defaultCamera,
	}
}

// RegisterRoutes wires every session endpoint onto the router.
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tryon/session", h.HandleStart).Methods("POST")
	r.HandleFunc("/tryon/session", h.HandleSnapshot).Methods("GET")
	r.HandleFunc("/tryon/session", h.HandleEnd).Methods("DELETE")
	r.HandleFunc("/tryon/session/result", h.HandleLastResult).Methods("GET")
	r.HandleFunc("/tryon/session/capture", h.HandleCapture).Methods("POST")
	r.HandleFunc("/tryon/session/refine", h.HandleRefine).Methods("POST")
	r.HandleFunc("/tryon/session/retake", h.HandleRetake).Methods("POST")
	r.HandleFunc("/tryon/session/pointer", h.HandlePointer).Methods("POST")
	r.HandleFunc("/tryon/session/scale", h.HandleScale).Methods("POST")
	r.HandleFunc("/tryon/session/overlay", h.HandleOverlay).Methods("POST")
	r.HandleFunc("/tryon/session/cart", h.HandleAddToCart).Methods("POST")
	r.HandleFunc("/healthz", h.HandleHealth).Methods("GET")
}

type startRequest struct {
	Product struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Brand    string `json:"brand"`
		ImageURL string `json:"imageUrl"`
		Anchor   string `json:"anchor"`
		Material string `json:"material"`
	} `json:"product"`
	ViewportWidth  float64 `json:"viewportWidth"`
	ViewportHeight float64 `json:"viewportHeight"`
	CameraDeviceID *int    `json:"cameraDeviceId"`
}

func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	product, err := entities.NewProduct(
		req.Product.ID,
		req.Product.Name,
		req.Product.Brand,
		req.Product.ImageURL,
		entities.AnchorType(req.Product.Anchor),
		req.Product.Material,
	)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cameraDevice := h.defaultCamera
	if req.CameraDeviceID != nil {
		cameraDevice = *req.CameraDeviceID
	}

	input := usecases.StartInput{
		Product:        product,
		ViewportWidth:  req.ViewportWidth,
		ViewportHeight: req.ViewportHeight,
		CameraDeviceID: cameraDevice,
	}

	if err := h.sessionUseCase.Start(r.Context(), input); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.writeSnapshot(w)
}

func (h *SessionHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w)
}

func (h *SessionHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionUseCase.End(r.Context()); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, map[string]any{"success": true})
}

// HandleLastResult serves the most recent completed edit. It keeps
// working after the session ends, so the shell can re-fetch the last
// edited frame.
func (h *SessionHandler) HandleLastResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionUseCase.LastResult(r.Context())
	if err != nil {
		h.sendError(w, err.Error(), http.StatusNotFound)
		return
	}

	response := map[string]any{
		"success":  true,
		"resultId": string(result.ID()),
	}
	if result.HasImage() {
		image := result.Image()
		response["image"] = "data:" + image.MimeType() + ";base64," + image.ToBase64()
	}
	if result.ResponseText() != "" {
		response["responseText"] = result.ResponseText()
	}

	h.sendSuccess(w, response)
}

func (h *SessionHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionUseCase.Capture(r.Context()); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.writeSnapshot(w)
}

type refineRequest struct {
	Instruction string `json:"instruction"`
}

func (h *SessionHandler) HandleRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.sessionUseCase.Refine(r.Context(), req.Instruction); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.writeSnapshot(w)
}

func (h *SessionHandler) HandleRetake(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionUseCase.Retake(); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.writeSnapshot(w)
}

type pointerRequest struct {
	Event     string  `json:"event"`
	PointerID int64   `json:"pointerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (h *SessionHandler) HandlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	gesture, err := h.sessionUseCase.Gesture()
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	switch req.Event {
	case "down":
		gesture.PointerDown(req.PointerID, req.X, req.Y)
	case "move":
		gesture.PointerMove(req.PointerID, req.X, req.Y)
	case "up":
		gesture.PointerUp(req.PointerID)
	default:
		h.sendError(w, "unknown pointer event: "+req.Event, http.StatusBadRequest)
		return
	}

	placement := gesture.Placement()
	h.sendSuccess(w, map[string]any{
		"success": true,
		"placement": map[string]float64{
			"x":     placement.X(),
			"y":     placement.Y(),
			"scale": placement.Scale(),
		},
	})
}

type scaleRequest struct {
	Scale float64 `json:"scale"`
}

func (h *SessionHandler) HandleScale(w http.ResponseWriter, r *http.Request) {
	var req scaleRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	gesture, err := h.sessionUseCase.Gesture()
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	gesture.SetScale(req.Scale)

	placement := gesture.Placement()
	h.sendSuccess(w, map[string]any{
		"success": true,
		"placement": map[string]float64{
			"x":     placement.X(),
			"y":     placement.Y(),
			"scale": placement.Scale(),
		},
	})
}

type overlayRequest struct {
	Visible bool `json:"visible"`
}

func (h *SessionHandler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	var req overlayRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	gesture, err := h.sessionUseCase.Gesture()
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	gesture.SetVisible(req.Visible)
	h.sendSuccess(w, map[string]any{"success": true, "visible": req.Visible})
}

func (h *SessionHandler) HandleAddToCart(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionUseCase.AddToCart(); err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, map[string]any{"success": true})
}

func (h *SessionHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *SessionHandler) writeSnapshot(w http.ResponseWriter) {
	snap, err := h.sessionUseCase.Snapshot()
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	response := map[string]any{
		"success":   true,
		"sessionId": string(snap.SessionID),
		"phase":     string(snap.Phase),
		"product": map[string]any{
			"id":     snap.Product.ID(),
			"name":   snap.Product.Name(),
			"brand":  snap.Product.Brand(),
			"anchor": string(snap.Product.Anchor()),
		},
		"placement": map[string]float64{
			"x":     snap.Placement.X(),
			"y":     snap.Placement.Y(),
			"scale": snap.Placement.Scale(),
		},
		"overlayWidthPercent": snap.OverlayWidth,
		"overlayVisible":      snap.OverlayVisible,
	}

	if !snap.CapturedAt.IsZero() {
		response["capturedAt"] = snap.CapturedAt.UTC().Format(time.RFC3339)
	}
	if snap.RawFrame != nil {
		response["rawFrame"] = "data:" + snap.RawFrame.MimeType() + ";base64," + snap.RawFrame.ToBase64()
	}
	if snap.EditedFrame != nil {
		response["editedFrame"] = "data:" + snap.EditedFrame.MimeType() + ";base64," + snap.EditedFrame.ToBase64()
	}

	h.sendSuccess(w, response)
}

func (h *SessionHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// sendDomainError maps domain sentinels onto HTTP status codes.
func (h *SessionHandler) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrSessionBusy):
		h.sendError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, entities.ErrEmptyInstruction):
		h.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repositories.ErrInvalidInput):
		h.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repositories.ErrPermissionDenied):
		h.sendError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, repositories.ErrDeviceUnavailable),
		errors.Is(err, repositories.ErrNoActiveStream):
		h.sendError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.sendError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *SessionHandler) sendSuccess(w http.ResponseWriter, response map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *SessionHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
