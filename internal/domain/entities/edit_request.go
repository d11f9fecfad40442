package entities

import (
	"fmt"
	"time"

	"tryon-live/internal/domain/valueobjects"
)

type EditRequestID string

// EditRequest bundles the captured frame, the fetched product reference and
// the instruction text for one generative edit call.
type EditRequest struct {
	id           EditRequestID
	personImage  *valueobjects.ImageData
	productImage *valueobjects.ImageData
	instruction  string
	createdAt    time.Time
}

func NewEditRequest(
	personImage *valueobjects.ImageData,
	productImage *valueobjects.ImageData,
	instruction string,
) (*EditRequest, error) {
	if personImage == nil {
		return nil, fmt.Errorf("person image is required")
	}

	if productImage == nil {
		return nil, fmt.Errorf("product image is required")
	}

	if instruction == "" {
		return nil, fmt.Errorf("instruction text is required")
	}

	id := EditRequestID(fmt.Sprintf("edit_%d", time.Now().UnixNano()))

	return &EditRequest{
		id:           id,
		personImage:  personImage,
		productImage: productImage,
		instruction:  instruction,
		createdAt:    time.Now(),
	}, nil
}

func (r *EditRequest) ID() EditRequestID {
	return r.id
}

func (r *EditRequest) PersonImage() *valueobjects.ImageData {
	return r.personImage
}

func (r *EditRequest) ProductImage() *valueobjects.ImageData {
	return r.productImage
}

func (r *EditRequest) Instruction() string {
	return r.instruction
}

func (r *EditRequest) CreatedAt() time.Time {
	return r.createdAt
}

// PrepareImages converts both payloads to JPEG, the encoding the backends
// are asked to consume.
func (r *EditRequest) PrepareImages() error {
	var err error

	r.personImage, err = r.personImage.ToJPEG()
	if err != nil {
		return fmt.Errorf("failed to convert person image to JPEG: %w", err)
	}

	r.productImage, err = r.productImage.ToJPEG()
	if err != nil {
		return fmt.Errorf("failed to convert product image to JPEG: %w", err)
	}

	return nil
}
