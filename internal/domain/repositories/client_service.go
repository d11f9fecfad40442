package repositories

import (
	"context"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	genai_std "google.golang.org/genai"
)

// AIClientConfig is shared by all backend clients.
type AIClientConfig struct {
	ProjectID string
	Location  string
}

// GenAIClientPool hands out the shared Gemini API client used by the
// generative edit service.
type GenAIClientPool interface {
	GetGenAIClient(ctx context.Context, geminiAPIKey string) (*genai_std.Client, error)

	Close() error
}

// VertexAIClientPool hands out the shared Vertex AI client used by the
// virtual try-on backend.
type VertexAIClientPool interface {
	GetVertexAIClient(ctx context.Context) (*vertexgenai.Client, error)

	Close() error
}

// ClientPoolService aggregates all backend client pools.
type ClientPoolService interface {
	GenAIPool() GenAIClientPool

	VertexAIPool() VertexAIClientPool

	Config() *AIClientConfig

	Close() error
}
