package valueobjects

const (
	MinOverlayScale = 0.4
	MaxOverlayScale = 1.8
)

// OverlayPlacement positions the product overlay over the live preview.
// X and Y are percentages of the viewport, Scale multiplies the default
// overlay size.
type OverlayPlacement struct {
	x     float64
	y     float64
	scale float64
}

func NewOverlayPlacement(x, y, scale float64) OverlayPlacement {
	return OverlayPlacement{
		x:     clampPercent(x),
		y:     clampPercent(y),
		scale: clampScale(scale),
	}
}

// DefaultOverlayPlacement centers the overlay slightly above the middle of
// the viewport, where a face or torso usually sits.
func DefaultOverlayPlacement() OverlayPlacement {
	return OverlayPlacement{x: 50, y: 35, scale: 1}
}

func (p OverlayPlacement) X() float64 {
	return p.x
}

func (p OverlayPlacement) Y() float64 {
	return p.y
}

func (p OverlayPlacement) Scale() float64 {
	return p.scale
}

// Translate returns a placement moved by dx/dy viewport percent, clamped
// back into the viewport.
func (p OverlayPlacement) Translate(dx, dy float64) OverlayPlacement {
	return OverlayPlacement{
		x:     clampPercent(p.x + dx),
		y:     clampPercent(p.y + dy),
		scale: p.scale,
	}
}

func (p OverlayPlacement) WithScale(scale float64) OverlayPlacement {
	return OverlayPlacement{
		x:     p.x,
		y:     p.y,
		scale: clampScale(scale),
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampScale(v float64) float64 {
	if v < MinOverlayScale {
		return MinOverlayScale
	}
	if v > MaxOverlayScale {
		return MaxOverlayScale
	}
	return v
}
