package services

import (
	"sync"

	"tryon-live/internal/domain/entities"
	"tryon-live/internal/domain/valueobjects"
)

// GestureService converts raw pointer events into an OverlayPlacement.
//
// Exactly one drag can be active at a time: the first pointer that goes
// down becomes the drag owner and every other pointer is ignored until it
// releases. Placement updates are last-write-wins; pointer moves arrive at
// display rate and are never queued.
type GestureService struct {
	mu sync.Mutex

	placement    valueobjects.OverlayPlacement
	widthPercent float64
	visible      bool

	viewportWidth  float64
	viewportHeight float64

	// frozen blocks dragging once a still frame exists. The scale control
	// stays available.
	frozen bool

	dragging  bool
	dragOwner int64
	startX    float64
	startY    float64
	startPos  valueobjects.OverlayPlacement
}

func NewGestureService(viewportWidth, viewportHeight float64) *GestureService {
	if viewportWidth <= 0 {
		viewportWidth = 1080
	}
	if viewportHeight <= 0 {
		viewportHeight = 1920
	}

	return &GestureService{
		placement:      valueobjects.DefaultOverlayPlacement(),
		visible:        true,
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
	}
}

// BindProduct sizes the overlay for the product's anchor type and resets
// the placement to its default.
func (g *GestureService) BindProduct(product *entities.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.widthPercent = product.DefaultOverlayWidthPercent()
	g.placement = valueobjects.DefaultOverlayPlacement()
	g.dragging = false
}

// PointerDown begins a drag. It is a no-op while another drag is active,
// while the overlay is frozen, or when no product is bound.
func (g *GestureService) PointerDown(pointerID int64, x, y float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dragging || g.frozen || g.widthPercent == 0 {
		return
	}

	g.dragging = true
	g.dragOwner = pointerID
	g.startX = x
	g.startY = y
	g.startPos = g.placement
}

// PointerMove updates the placement from the drag-start deltas expressed as
// viewport percentages. A move without a preceding down, or from a pointer
// that does not own the drag, is a no-op.
func (g *GestureService) PointerMove(pointerID int64, x, y float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.dragging || pointerID != g.dragOwner || g.frozen {
		return
	}

	dx := (x - g.startX) / g.viewportWidth * 100
	dy := (y - g.startY) / g.viewportHeight * 100
	g.placement = g.startPos.Translate(dx, dy)
}

// PointerUp ends the drag. The placement persists at its last value.
func (g *GestureService) PointerUp(pointerID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.dragging || pointerID != g.dragOwner {
		return
	}

	g.dragging = false
}

// SetScale adjusts the overlay scale independently of any drag.
func (g *GestureService) SetScale(scale float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.placement = g.placement.WithScale(scale)
}

// Freeze stops drags once a still frame exists.
func (g *GestureService) Freeze() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.frozen = true
	g.dragging = false
}

// Unfreeze re-enables dragging when the live preview returns.
func (g *GestureService) Unfreeze() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.frozen = false
}

func (g *GestureService) SetVisible(visible bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.visible = visible
}

func (g *GestureService) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.visible
}

func (g *GestureService) Placement() valueobjects.OverlayPlacement {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.placement
}

// WidthPercent is the overlay's base width as a percent of the viewport,
// before the user scale is applied.
func (g *GestureService) WidthPercent() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.widthPercent
}

func (g *GestureService) Dragging() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.dragging
}
