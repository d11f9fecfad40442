package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tryon-live/internal/domain/entities"
	"tryon-live/internal/domain/repositories"
	"tryon-live/internal/domain/valueobjects"
)

// EditDomainService orchestrates one generative edit: it validates the
// captured frame, fetches the product reference through the route chain and
// submits the multimodal request to the backend.
type EditDomainService struct {
	fetcher   repositories.ImageFetcher
	aiService repositories.EditAIService
}

func NewEditDomainService(fetcher repositories.ImageFetcher, aiService repositories.EditAIService) *EditDomainService {
	return &EditDomainService{
		fetcher:   fetcher,
		aiService: aiService,
	}
}

// AutoInstruction is the instruction used on first capture, before the user
// has typed anything.
func AutoInstruction(product *entities.Product) string {
	return fmt.Sprintf("High-end fashion fit for the %s. Ensure natural draping and high-quality textures.", product.Name())
}

func (s *EditDomainService) ProcessEdit(
	ctx context.Context,
	personFrame *valueobjects.ImageData,
	product *entities.Product,
	instruction string,
) (*entities.EditResult, error) {
	if personFrame == nil || len(personFrame.Data()) == 0 {
		return nil, fmt.Errorf("%w: person frame is missing", repositories.ErrInvalidInput)
	}

	if product == nil {
		return nil, fmt.Errorf("%w: product is missing", repositories.ErrInvalidInput)
	}

	outcome, err := s.fetcher.Fetch(ctx, product.ImageURL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrReferenceFetchFailed, err)
	}
	slog.Info("Fetched product reference", "product", product.ID(), "route", outcome.Route(), "bytes", len(outcome.Data()))

	productImage, err := valueobjects.NewImageData(outcome.Data(), outcome.MimeType())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrReferenceFetchFailed, err)
	}

	request, err := entities.NewEditRequest(personFrame, productImage, buildEditInstruction(instruction))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidInput, err)
	}

	if err := request.PrepareImages(); err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidInput, err)
	}

	result, err := s.aiService.EditImage(ctx, request)
	if err != nil {
		if errors.Is(err, repositories.ErrBackendUnsupported) || errors.Is(err, repositories.ErrBackendError) {
			return nil, err
		}
		if isQuotaError(err) {
			return nil, fmt.Errorf("%w: service temporarily unavailable due to high demand: %v", repositories.ErrBackendError, err)
		}
		return nil, fmt.Errorf("%w: %v", repositories.ErrBackendError, err)
	}

	if !result.HasImage() {
		return nil, fmt.Errorf("%w: response carried no image bytes", repositories.ErrBackendUnsupported)
	}

	return result, nil
}

// buildEditInstruction wraps the instruction with the fixed try-on
// directive the backends are prompted with.
func buildEditInstruction(instruction string) string {
	var sb strings.Builder

	sb.WriteString("Instruction: " + instruction + ".\n")
	sb.WriteString("The first image is the person. The second image is the product to be tried on.\n")
	sb.WriteString("Perform a professional Virtual Try-On.\n")
	sb.WriteString("Ensure:\n")
	sb.WriteString("1. The product is perfectly fitted\n")
	sb.WriteString("2. Lighting and shadows match\n")
	sb.WriteString("3. High texture detail\n")
	sb.WriteString("4. Background remains unchanged\n")
	sb.WriteString("Return only the resulting image.")

	return sb.String()
}

func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "quota exceeded") ||
		strings.Contains(errStr, "resourceexhausted")
}
