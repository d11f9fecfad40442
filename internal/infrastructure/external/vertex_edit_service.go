package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"golang.org/x/oauth2/google"

	"tryon-live/internal/domain/entities"
	"tryon-live/internal/domain/repositories"
	"tryon-live/internal/domain/valueobjects"
	"tryon-live/model"
)

// VertexEditService runs try-on edits against the Vertex AI virtual
// try-on model, either through the SDK or the REST predict endpoint.
type VertexEditService struct {
	pool      repositories.VertexAIClientPool
	projectID string
	location  string
	vtoModel  string
	useSDK    bool
	client    *http.Client
}

func NewVertexEditService(
	pool repositories.VertexAIClientPool,
	projectID, location, vtoModel string,
	useSDK bool,
) repositories.EditAIService {
	return &VertexEditService{
		pool:      pool,
		projectID: projectID,
		location:  location,
		vtoModel:  vtoModel,
		useSDK:    useSDK,
		client:    &http.Client{Timeout: 300 * time.Second},
	}
}

func (s *VertexEditService) EditImage(ctx context.Context, request *entities.EditRequest) (*entities.EditResult, error) {
	slog.Info("EditImage", "model", s.vtoModel, "request", request.ID(), "useSDK", s.useSDK)

	if s.useSDK {
		return s.editWithSDK(ctx, request)
	}
	return s.editWithREST(ctx, request)
}

func (s *VertexEditService) editWithSDK(ctx context.Context, request *entities.EditRequest) (*entities.EditResult, error) {
	client, err := s.pool.GetVertexAIClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrBackendError, err)
	}

	genModel := client.GenerativeModel(s.vtoModel)

	personPart := vertexgenai.ImageData("image/jpeg", request.PersonImage().Data())
	productPart := vertexgenai.ImageData("image/jpeg", request.ProductImage().Data())

	prompt := []vertexgenai.Part{
		vertexgenai.Text("person:"),
		personPart,
		vertexgenai.Text("garment:"),
		productPart,
		vertexgenai.Text(request.Instruction()),
	}

	genModel.SetTemperature(0.4)
	genModel.SetTopK(32)
	genModel.SetTopP(1)
	genModel.SetMaxOutputTokens(2048)
	genModel.ResponseMIMEType = "image/jpeg"

	resp, err := genModel.GenerateContent(ctx, prompt...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate content: %v", repositories.ErrBackendError, err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", repositories.ErrBackendError)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no content in response", repositories.ErrBackendError)
	}

	for _, part := range candidate.Content.Parts {
		if blob, ok := part.(vertexgenai.Blob); ok {
			if blob.MIMEType == "image/jpeg" || blob.MIMEType == "image/png" {
				imageData, err := valueobjects.NewImageData(blob.Data, blob.MIMEType)
				if err != nil {
					return nil, fmt.Errorf("%w: failed to decode returned image: %v", repositories.ErrBackendError, err)
				}
				return entities.NewEditResult(request.ID(), imageData, ""), nil
			}
		}
	}

	return nil, fmt.Errorf("%w: model %s returned no image part", repositories.ErrBackendUnsupported, s.vtoModel)
}

func (s *VertexEditService) editWithREST(ctx context.Context, request *entities.EditRequest) (*entities.EditResult, error) {
	accessToken, err := s.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get access token: %v", repositories.ErrBackendError, err)
	}

	apiRequest := map[string]interface{}{
		"instances": []map[string]interface{}{
			{
				"personImage": map[string]interface{}{
					"image": map[string]interface{}{
						"bytesBase64Encoded": request.PersonImage().ToBase64(),
					},
				},
				"productImages": []map[string]interface{}{
					{
						"image": map[string]interface{}{
							"bytesBase64Encoded": request.ProductImage().ToBase64(),
						},
					},
				},
			},
		},
		"parameters": map[string]interface{}{
			"sampleCount": 1,
			"outputOptions": map[string]interface{}{
				"mimeType": "image/jpeg",
			},
		},
	}

	reqBody, err := json.Marshal(apiRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", repositories.ErrBackendError, err)
	}

	url := fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		s.location, s.projectID, s.location, s.vtoModel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", repositories.ErrBackendError, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", repositories.ErrBackendError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", repositories.ErrBackendError, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: predict returned status %d: %s", repositories.ErrBackendError, resp.StatusCode, string(respBody))
	}

	var predResp model.VirtualTryOnResponse
	if err := json.Unmarshal(respBody, &predResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", repositories.ErrBackendError, err)
	}

	if len(predResp.Predictions) == 0 {
		return nil, fmt.Errorf("%w: no predictions in response", repositories.ErrBackendError)
	}

	for _, prediction := range predResp.Predictions {
		if prediction.BytesBase64Encoded == "" {
			continue
		}

		imageBytes, err := base64.StdEncoding.DecodeString(prediction.BytesBase64Encoded)
		if err != nil {
			continue
		}

		imageData, err := valueobjects.NewImageData(imageBytes, prediction.MimeType)
		if err != nil {
			continue
		}

		return entities.NewEditResult(request.ID(), imageData, ""), nil
	}

	// Predictions arrived but none carried image bytes: the configured
	// model cannot emit images for this request shape.
	return nil, fmt.Errorf("%w: model %s returned predictions without image bytes", repositories.ErrBackendUnsupported, s.vtoModel)
}

func (s *VertexEditService) getAccessToken(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx,
		"https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("failed to find default credentials: %w", err)
	}

	token, err := creds.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	return token.AccessToken, nil
}

func (s *VertexEditService) Close() error {
	// The Vertex client belongs to the pool.
	return nil
}
