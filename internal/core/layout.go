package core

import (
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/domain"
)

const (
	// DefaultSnapStep is the manual-drag grid increment in world units.
	DefaultSnapStep = 10.0
	// DefaultGutter separates auto-layout cells.
	DefaultGutter = 40.0
	// Hall defaults match the product's banquet surface.
	DefaultHallWidth  = 1800.0
	DefaultHallHeight = 1200.0

	radialBaseRadius = 160.0
	radialRowSpacing = 120.0
)

type Strategy string

const (
	StrategyGrid   Strategy = "grid"
	StrategyRadial Strategy = "radial"
)

type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout is the threadsafe in-memory table surface. It owns placement
// and the non-overlap invariant, nothing else.
type Layout struct {
	mu        sync.RWMutex
	tables    map[domain.TableID]domain.Table
	bounds    Bounds
	snapStep  float64
	tolerance float64
}

func NewLayout(bounds Bounds) *Layout {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		bounds = Bounds{Width: DefaultHallWidth, Height: DefaultHallHeight}
	}
	return &Layout{
		tables:   make(map[domain.TableID]domain.Table),
		bounds:   bounds,
		snapStep: DefaultSnapStep,
	}
}

func (l *Layout) Bounds() Bounds { return l.bounds }

func (l *Layout) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tables)
}

func (l *Layout) Table(id domain.TableID) (domain.Table, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tables[id]
	return t, ok
}

// Tables returns a snapshot ordered by id so callers iterate
// deterministically.
func (l *Layout) Tables() []domain.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Table, 0, len(l.tables))
	for _, t := range l.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddTable admits a new table at its declared position, subject to the
// same snap and overlap rules as a manual drag.
func (l *Layout) AddTable(t domain.Table) (domain.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tables[t.ID]; ok {
		return t, domain.ErrTableOverlap
	}
	pos := l.snap(Point{X: t.X, Y: t.Y})
	t.X, t.Y = pos.X, pos.Y
	if hit, ok := l.overlaps(t); ok {
		log.Debug().Str("module", "core.layout").Str("table", string(t.ID)).Str("hit", string(hit)).Msg("add rejected")
		return t, domain.ErrTableOverlap
	}
	l.tables[t.ID] = t
	log.Info().Str("module", "core.layout").Str("table", string(t.ID)).Msg("table added")
	return t, nil
}

// PlaceTable moves an existing table to the candidate position, snapped
// to the grid. On rejection the table keeps its last valid position.
func (l *Layout) PlaceTable(id domain.TableID, candidate Point) (Point, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[id]
	if !ok {
		return Point{}, domain.ErrUnknownTable
	}
	pos := l.snap(candidate)
	moved := t
	moved.X, moved.Y = pos.X, pos.Y
	if hit, bad := l.overlaps(moved); bad {
		log.Debug().Str("module", "core.layout").Str("table", string(id)).Str("hit", string(hit)).Msg("placement rejected")
		return Point{X: t.X, Y: t.Y}, domain.ErrTableOverlap
	}
	l.tables[id] = moved
	return pos, nil
}

func (l *Layout) RemoveTable(id domain.TableID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tables, id)
	log.Info().Str("module", "core.layout").Str("table", string(id)).Msg("table removed")
}

// Restore replaces the whole surface, bypassing overlap checks: the
// snapshot being restored was valid when captured.
func (l *Layout) Restore(tables []domain.Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables = make(map[domain.TableID]domain.Table, len(tables))
	for _, t := range tables {
		l.tables[t.ID] = t
	}
}

// Capacity reports seat count for a table; used by the assignment book.
func (l *Layout) Capacity(id domain.TableID) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tables[id]
	if !ok {
		return 0, false
	}
	return t.Capacity, true
}

func (l *Layout) snap(p Point) Point {
	if l.snapStep <= 0 {
		return p
	}
	return Point{
		X: math.Round(p.X/l.snapStep) * l.snapStep,
		Y: math.Round(p.Y/l.snapStep) * l.snapStep,
	}
}

// overlaps reports the first table whose bounding box intersects t's by
// more than the tolerance. Touching edges pass at tolerance 0.
func (l *Layout) overlaps(t domain.Table) (domain.TableID, bool) {
	box := boundingBox(t)
	for id, other := range l.tables {
		if id == t.ID {
			continue
		}
		if overlapDepth(box, boundingBox(other)) > l.tolerance {
			return id, true
		}
	}
	return "", false
}

type rect struct {
	minX, minY, maxX, maxY float64
}

// boundingBox returns the rotation-aware axis-aligned box of a table.
func boundingBox(t domain.Table) rect {
	w, h := t.Width, t.Height
	if t.Shape == domain.ShapeRectangle && t.RotationDeg != 0 {
		rad := t.RotationDeg * math.Pi / 180
		sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
		w, h = t.Width*cos+t.Height*sin, t.Width*sin+t.Height*cos
	}
	return rect{
		minX: t.X - w/2,
		minY: t.Y - h/2,
		maxX: t.X + w/2,
		maxY: t.Y + h/2,
	}
}

// overlapDepth is the smaller of the two axis penetration depths, or 0
// when the boxes are disjoint or merely touching.
func overlapDepth(a, b rect) float64 {
	dx := math.Min(a.maxX, b.maxX) - math.Max(a.minX, b.minX)
	dy := math.Min(a.maxY, b.maxY) - math.Max(a.minY, b.minY)
	if dx <= 0 || dy <= 0 {
		return 0
	}
	return math.Min(dx, dy)
}

// AutoLayout computes a fresh arrangement. It is a pure function of its
// inputs: same tables, bounds and strategy always produce the same
// output, which is what makes undo/redo replays reproducible. Callers
// that re-invoke it mid-computation simply discard the earlier result.
func AutoLayout(tables []domain.Table, bounds Bounds, strategy Strategy) ([]domain.Table, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, domain.ErrInvalidBounds
	}
	out := make([]domain.Table, len(tables))
	copy(out, tables)
	if len(out) == 0 {
		return out, nil
	}
	switch strategy {
	case StrategyGrid:
		layoutGrid(out, bounds)
	case StrategyRadial:
		layoutRadial(out, bounds)
	default:
		layoutGrid(out, bounds)
	}
	return out, nil
}

// layoutGrid tiles row-major into uniform cells sized from the largest
// bounding box plus the gutter, wrapping when a cell would spill past
// the right edge.
func layoutGrid(tables []domain.Table, bounds Bounds) {
	var cellW, cellH float64
	for _, t := range tables {
		box := boundingBox(t)
		cellW = math.Max(cellW, box.maxX-box.minX)
		cellH = math.Max(cellH, box.maxY-box.minY)
	}
	cellW += DefaultGutter
	cellH += DefaultGutter

	x, y := 0.0, 0.0
	for i := range tables {
		if x+cellW > bounds.Width && x > 0 {
			x = 0
			y += cellH
		}
		tables[i].X = x + cellW/2
		tables[i].Y = y + cellH/2
		x += cellW
	}
}

// layoutRadial arranges tables along concentric semicircular arcs facing
// a focal point at the top center of the surface (the altar/stage in the
// ceremony view). Row index sets the radius; how many fit on a row
// follows from the arc length at that radius.
func layoutRadial(tables []domain.Table, bounds Bounds) {
	var cell float64
	for _, t := range tables {
		box := boundingBox(t)
		cell = math.Max(cell, math.Max(box.maxX-box.minX, box.maxY-box.minY))
	}
	cell += DefaultGutter

	focal := Point{X: bounds.Width / 2, Y: 0}
	i := 0
	for row := 0; i < len(tables); row++ {
		radius := radialBaseRadius + float64(row)*radialRowSpacing
		rowCap := int(math.Max(1, math.Floor(math.Pi*radius/cell)))
		n := len(tables) - i
		if n > rowCap {
			n = rowCap
		}
		for k := 0; k < n; k++ {
			angle := math.Pi * (float64(k) + 0.5) / float64(n)
			tables[i].X = focal.X + radius*math.Cos(angle)
			tables[i].Y = focal.Y + radius*math.Sin(angle)
			i++
		}
	}
}
