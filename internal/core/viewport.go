package core

import (
	"math"

	"github.com/lovenda/seatplan/internal/domain"
)

const (
	MinZoom  = 0.1
	MaxZoom  = 3.0
	ZoomStep = 1.2

	// fitMargin leaves 10% breathing room around fitted content.
	fitMargin = 0.9
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport maps world coordinates to screen pixels. It is a plain value:
// every operation returns a new Viewport, no hidden state.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	Pan  Point   `json:"pan"`
}

func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v Viewport) ToScreen(world Point) Point {
	return Point{
		X: world.X*v.Zoom + v.Pan.X,
		Y: world.Y*v.Zoom + v.Pan.Y,
	}
}

func (v Viewport) ToWorld(screen Point) Point {
	return Point{
		X: (screen.X - v.Pan.X) / v.Zoom,
		Y: (screen.Y - v.Pan.Y) / v.Zoom,
	}
}

func clampZoom(z float64) float64 {
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

func (v Viewport) ZoomIn() Viewport {
	v.Zoom = clampZoom(v.Zoom * ZoomStep)
	return v
}

func (v Viewport) ZoomOut() Viewport {
	v.Zoom = clampZoom(v.Zoom / ZoomStep)
	return v
}

// ZoomAtPoint rescales around a screen point so the world point under the
// cursor stays fixed. Factor > 1 zooms in.
func (v Viewport) ZoomAtPoint(screen Point, factor float64) (Viewport, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return v, domain.ErrInvalidZoom
	}
	next := clampZoom(v.Zoom * factor)
	ratio := next / v.Zoom
	v.Pan = Point{
		X: screen.X - (screen.X-v.Pan.X)*ratio,
		Y: screen.Y - (screen.Y-v.Pan.Y)*ratio,
	}
	v.Zoom = next
	return v, nil
}

// FitToScreen picks the zoom that shows the whole content inside the
// container with a 10% margin and resets the pan.
func (v Viewport) FitToScreen(contentW, contentH, containerW, containerH float64) (Viewport, error) {
	if contentW <= 0 || contentH <= 0 || containerW <= 0 || containerH <= 0 {
		return v, domain.ErrInvalidBounds
	}
	v.Zoom = clampZoom(math.Min(containerW/contentW, containerH/contentH) * fitMargin)
	v.Pan = Point{}
	return v, nil
}

// PanBy adds raw pixel deltas. The world is unbounded, so no clamping.
func (v Viewport) PanBy(dx, dy float64) Viewport {
	v.Pan.X += dx
	v.Pan.Y += dy
	return v
}

// NavigateTo centers the given world point in the viewport at current zoom.
func (v Viewport) NavigateTo(world Point, containerCenter Point) Viewport {
	v.Pan = Point{
		X: containerCenter.X - world.X*v.Zoom,
		Y: containerCenter.Y - world.Y*v.Zoom,
	}
	return v
}

// Sanitize coerces a persisted or otherwise untrusted viewport into a
// usable one instead of letting NaN poison the transform chain.
func (v Viewport) Sanitize() Viewport {
	if math.IsNaN(v.Zoom) || math.IsInf(v.Zoom, 0) || v.Zoom <= 0 {
		v.Zoom = 1
	}
	v.Zoom = clampZoom(v.Zoom)
	if math.IsNaN(v.Pan.X) || math.IsInf(v.Pan.X, 0) {
		v.Pan.X = 0
	}
	if math.IsNaN(v.Pan.Y) || math.IsInf(v.Pan.Y, 0) {
		v.Pan.Y = 0
	}
	return v
}
