package model

// VirtualTryOnResponse represents the response structure from the
// Vertex AI virtual try-on predict endpoint.
type VirtualTryOnResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// Prediction represents a single prediction result.
type Prediction struct {
	MimeType           string `json:"mimeType"`
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	// Set when a storage URI was requested instead of inline bytes.
	StorageUri string `json:"storageUri,omitempty"`
	// Additional metadata fields.
	SafetyAttributes map[string]interface{} `json:"safetyAttributes,omitempty"`
}
