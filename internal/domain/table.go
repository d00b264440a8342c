// Package domain contains entity without logic, just meta-data
package domain

import (
	"math"

	"github.com/google/uuid"
)

type (
	WeddingID string
	TableID   string
)

// Shape is a closed set; anything else is rejected at construction.
type Shape string

const (
	ShapeCircle    Shape = "circle"
	ShapeRectangle Shape = "rectangle"
)

// Default table sizes in world units, matching the product defaults.
const (
	DefaultCircleDiameter  = 60.0
	DefaultRectangleWidth  = 80.0
	DefaultRectangleHeight = 60.0
)

// Table is positioned by its center in world coordinates.
// For circles Width and Height both hold the diameter.
type Table struct {
	ID          TableID `json:"id"`
	Shape       Shape   `json:"shape"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	RotationDeg float64 `json:"rotationDeg"`
	Capacity    int     `json:"capacity"`
}

// NewTable validates shape, dimensions and capacity, applies product
// defaults for zero sizes and normalizes rotation into [0,360).
func NewTable(shape Shape, x, y, width, height float64, capacity int) (Table, error) {
	switch shape {
	case ShapeCircle:
		if width == 0 {
			width = DefaultCircleDiameter
		}
		height = width
	case ShapeRectangle:
		if width == 0 {
			width = DefaultRectangleWidth
		}
		if height == 0 {
			height = DefaultRectangleHeight
		}
	default:
		return Table{}, ErrInvalidShape
	}
	if width <= 0 || height <= 0 {
		return Table{}, ErrInvalidTableSize
	}
	if capacity <= 0 {
		return Table{}, ErrInvalidCapacity
	}
	return Table{
		ID:       TableID(uuid.NewString()),
		Shape:    shape,
		X:        x,
		Y:        y,
		Width:    width,
		Height:   height,
		Capacity: capacity,
	}, nil
}

// NormalizeRotation maps any finite angle into [0,360).
func NormalizeRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func (t *Table) SetRotation(deg float64) {
	t.RotationDeg = NormalizeRotation(deg)
}
