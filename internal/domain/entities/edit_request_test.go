package entities

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"tryon-live/internal/domain/valueobjects"
)

func createTestPNG(t *testing.T) *valueobjects.ImageData {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to create test PNG: %v", err)
	}

	imageData, err := valueobjects.NewImageData(buf.Bytes(), "image/png")
	if err != nil {
		t.Fatalf("Failed to create ImageData: %v", err)
	}
	return imageData
}

func TestNewEditRequest(t *testing.T) {
	personImage := createTestFrame(t)
	productImage := createTestFrame(t)

	tests := []struct {
		name         string
		personImage  *valueobjects.ImageData
		productImage *valueobjects.ImageData
		instruction  string
		wantErr      bool
	}{
		{
			name:         "valid request",
			personImage:  personImage,
			productImage: productImage,
			instruction:  "fit the glasses",
			wantErr:      false,
		},
		{
			name:         "nil person image should fail",
			personImage:  nil,
			productImage: productImage,
			instruction:  "fit the glasses",
			wantErr:      true,
		},
		{
			name:         "nil product image should fail",
			personImage:  personImage,
			productImage: nil,
			instruction:  "fit the glasses",
			wantErr:      true,
		},
		{
			name:         "empty instruction should fail",
			personImage:  personImage,
			productImage: productImage,
			instruction:  "",
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := NewEditRequest(tt.personImage, tt.productImage, tt.instruction)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEditRequest() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if request.ID() == "" {
					t.Errorf("Expected non-empty ID")
				}
				if request.Instruction() != tt.instruction {
					t.Errorf("Instruction not set correctly")
				}
			}
		})
	}
}

func TestEditRequest_PrepareImages(t *testing.T) {
	request, err := NewEditRequest(createTestPNG(t), createTestPNG(t), "fit the glasses")
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if err := request.PrepareImages(); err != nil {
		t.Errorf("PrepareImages() error = %v", err)
	}

	if !request.PersonImage().IsJPEG() {
		t.Errorf("Person image should be JPEG after preparation")
	}
	if !request.ProductImage().IsJPEG() {
		t.Errorf("Product image should be JPEG after preparation")
	}
}
