package external

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"tryon-live/internal/domain/entities"
	"tryon-live/internal/domain/repositories"
	"tryon-live/internal/domain/valueobjects"
)

// GeminiEditService submits try-on edits to a Gemini image model through
// the GenAI SDK. The person frame and the product reference are sent as
// inline JPEG blobs followed by the instruction text.
type GeminiEditService struct {
	genAIClient *genai.Client
	model       string
}

func NewGeminiEditService(genAIClient *genai.Client, model string) repositories.EditAIService {
	return &GeminiEditService{
		genAIClient: genAIClient,
		model:       model,
	}
}

func (s *GeminiEditService) EditImage(ctx context.Context, request *entities.EditRequest) (*entities.EditResult, error) {
	slog.Info("EditImage", "model", s.model, "request", request.ID())

	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: request.PersonImage().MimeType(),
				Data:     request.PersonImage().Data(),
			},
		},
		{
			InlineData: &genai.Blob{
				MIMEType: request.ProductImage().MimeType(),
				Data:     request.ProductImage().Data(),
			},
		},
		genai.NewPartFromText(request.Instruction()),
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := s.genAIClient.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate content: %v", repositories.ErrBackendError, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty response from model %s", repositories.ErrBackendError, s.model)
	}

	var image *valueobjects.ImageData
	var responseText string

	for i, part := range resp.Candidates[0].Content.Parts {
		slog.Info("Processing part", "index", i, "hasText", part.Text != "", "hasInlineData", part.InlineData != nil)

		if part.Text != "" {
			responseText = part.Text
		} else if part.InlineData != nil {
			imageData, err := valueobjects.NewImageData(part.InlineData.Data, part.InlineData.MIMEType)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to decode returned image: %v", repositories.ErrBackendError, err)
			}
			image = imageData
		}
	}

	// A model that answers with text but no inline image cannot produce
	// image output at all. Report the capability mismatch as such instead
	// of a generic failure.
	if image == nil {
		slog.Warn("No image data in response", "model", s.model, "responseText", responseText)
		return nil, fmt.Errorf("%w: model %s returned text only", repositories.ErrBackendUnsupported, s.model)
	}

	return entities.NewEditResult(request.ID(), image, responseText), nil
}

func (s *GeminiEditService) Close() error {
	// The GenAI client needs no cleanup; the pool owns it.
	return nil
}
