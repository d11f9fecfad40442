package entities

import "fmt"

// AnchorType classifies where a product sits on the wearer. It drives the
// default overlay sizing on the live preview.
type AnchorType string

const (
	AnchorFace AnchorType = "face"
	AnchorBody AnchorType = "body"
)

// Product is supplied by the catalog collaborator and never mutated here.
type Product struct {
	id       string
	name     string
	brand    string
	imageURL string
	anchor   AnchorType
	material string
}

func NewProduct(id, name, brand, imageURL string, anchor AnchorType, material string) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product id is required")
	}

	if name == "" {
		return nil, fmt.Errorf("product name is required")
	}

	if imageURL == "" {
		return nil, fmt.Errorf("product image URL is required")
	}

	if anchor != AnchorFace && anchor != AnchorBody {
		return nil, fmt.Errorf("unknown anchor type: %s", anchor)
	}

	return &Product{
		id:       id,
		name:     name,
		brand:    brand,
		imageURL: imageURL,
		anchor:   anchor,
		material: material,
	}, nil
}

func (p *Product) ID() string {
	return p.id
}

func (p *Product) Name() string {
	return p.name
}

func (p *Product) Brand() string {
	return p.brand
}

func (p *Product) ImageURL() string {
	return p.imageURL
}

func (p *Product) Anchor() AnchorType {
	return p.anchor
}

func (p *Product) Material() string {
	return p.material
}

// DefaultOverlayWidthPercent returns the initial overlay width as a percent
// of the viewport. Face-anchored products (eyewear, jewelry) render smaller
// than body-anchored ones (apparel).
func (p *Product) DefaultOverlayWidthPercent() float64 {
	if p.anchor == AnchorFace {
		return 30
	}
	return 50
}
