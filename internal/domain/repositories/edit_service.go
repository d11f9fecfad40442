package repositories

import (
	"context"
	"errors"

	"tryon-live/internal/domain/entities"
)

var (
	// ErrInvalidInput means the request carried malformed or missing frame
	// data and never reached the backend.
	ErrInvalidInput = errors.New("invalid edit input")

	// ErrReferenceFetchFailed means the product reference image could not
	// be retrieved through any route.
	ErrReferenceFetchFailed = errors.New("product reference fetch failed")

	// ErrBackendError means the generative call itself failed or returned
	// no usable content.
	ErrBackendError = errors.New("edit backend error")

	// ErrBackendUnsupported means the selected backend model cannot emit
	// image bytes at all. This is a structural capability mismatch, not a
	// transient failure, and is reported distinctly.
	ErrBackendUnsupported = errors.New("edit backend cannot return image output")
)

// EditAIService submits one multimodal edit request to a generative image
// backend and waits for the single result.
type EditAIService interface {
	EditImage(ctx context.Context, request *entities.EditRequest) (*entities.EditResult, error)

	Close() error
}
