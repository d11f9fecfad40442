package entities

import (
	"fmt"
	"time"

	"tryon-live/internal/domain/valueobjects"
)

type EditResultID string

// EditResult is the outcome of one generative edit call: the composited
// image and any accompanying text the backend returned.
type EditResult struct {
	id           EditResultID
	requestID    EditRequestID
	image        *valueobjects.ImageData
	responseText string
	createdAt    time.Time
}

func NewEditResult(requestID EditRequestID, image *valueobjects.ImageData, responseText string) *EditResult {
	id := EditResultID(fmt.Sprintf("result_%d", time.Now().UnixNano()))

	return &EditResult{
		id:           id,
		requestID:    requestID,
		image:        image,
		responseText: responseText,
		createdAt:    time.Now(),
	}
}

func (r *EditResult) ID() EditResultID {
	return r.id
}

func (r *EditResult) RequestID() EditRequestID {
	return r.requestID
}

func (r *EditResult) Image() *valueobjects.ImageData {
	return r.image
}

func (r *EditResult) ResponseText() string {
	return r.responseText
}

func (r *EditResult) HasImage() bool {
	return r.image != nil
}
