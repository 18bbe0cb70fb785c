package model

import (
	"fmt"
	"slices"

	"github.com/inamate/diagram/internal/geom"
)

// Geometry is the position and size of a cell relative to its parent. For
// edges it also holds the control points and the terminal points used when
// a terminal is missing.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Relative interprets X and Y as fractions of the parent bounds for
	// vertices, and as the label position along the route for edges.
	Relative bool `json:"relative,omitempty"`

	Offset          *geom.Point  `json:"offset,omitempty"`
	AlternateBounds *geom.Rect   `json:"alternateBounds,omitempty"`
	Points          []geom.Point `json:"points,omitempty"`
	SourcePoint     *geom.Point  `json:"sourcePoint,omitempty"`
	TargetPoint     *geom.Point  `json:"targetPoint,omitempty"`
}

// NewGeometry returns an absolute geometry.
func NewGeometry(x, y, w, h float64) *Geometry {
	return &Geometry{X: x, Y: y, Width: w, Height: h}
}

// Clone returns a deep copy of g.
func (g *Geometry) Clone() *Geometry {
	if g == nil {
		return nil
	}
	c := *g
	if g.Offset != nil {
		o := *g.Offset
		c.Offset = &o
	}
	if g.AlternateBounds != nil {
		a := *g.AlternateBounds
		c.AlternateBounds = &a
	}
	if g.SourcePoint != nil {
		p := *g.SourcePoint
		c.SourcePoint = &p
	}
	if g.TargetPoint != nil {
		p := *g.TargetPoint
		c.TargetPoint = &p
	}
	c.Points = slices.Clone(g.Points)
	return &c
}

// Equal compares two geometries field by field.
func (g *Geometry) Equal(o *Geometry) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.X == o.X && g.Y == o.Y && g.Width == o.Width && g.Height == o.Height &&
		g.Relative == o.Relative &&
		equalPtr(g.Offset, o.Offset) &&
		equalPtr(g.AlternateBounds, o.AlternateBounds) &&
		equalPtr(g.SourcePoint, o.SourcePoint) &&
		equalPtr(g.TargetPoint, o.TargetPoint) &&
		slices.Equal(g.Points, o.Points)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Bounds returns the position and size as a rect.
func (g *Geometry) Bounds() geom.Rect {
	return geom.Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

// SetBounds copies position and size from r.
func (g *Geometry) SetBounds(r geom.Rect) {
	g.X, g.Y, g.Width, g.Height = r.X, r.Y, r.Width, r.Height
}

// SwapBounds exchanges the bounds with the alternate bounds. It is a no-op
// without alternate bounds.
func (g *Geometry) SwapBounds() {
	if g.AlternateBounds == nil {
		return
	}
	old := g.Bounds()
	g.SetBounds(*g.AlternateBounds)
	g.AlternateBounds = &old
}

// TerminalPoint returns the explicit source or target point.
func (g *Geometry) TerminalPoint(source bool) *geom.Point {
	if source {
		return g.SourcePoint
	}
	return g.TargetPoint
}

// SetTerminalPoint sets the explicit source or target point.
func (g *Geometry) SetTerminalPoint(p *geom.Point, source bool) {
	if source {
		g.SourcePoint = p
	} else {
		g.TargetPoint = p
	}
}

// Translate moves absolute geometries and all control and terminal points.
func (g *Geometry) Translate(dx, dy float64) {
	if !g.Relative {
		g.X += dx
		g.Y += dy
	}
	if g.SourcePoint != nil {
		g.SourcePoint = &geom.Point{X: g.SourcePoint.X + dx, Y: g.SourcePoint.Y + dy}
	}
	if g.TargetPoint != nil {
		g.TargetPoint = &geom.Point{X: g.TargetPoint.X + dx, Y: g.TargetPoint.Y + dy}
	}
	for i := range g.Points {
		g.Points[i].X += dx
		g.Points[i].Y += dy
	}
}

// Scale multiplies position, size and points by sx, sy. With fixedAspect
// the size is scaled by the smaller factor in both directions.
func (g *Geometry) Scale(sx, sy float64, fixedAspect bool) {
	if g.SourcePoint != nil {
		g.SourcePoint = &geom.Point{X: g.SourcePoint.X * sx, Y: g.SourcePoint.Y * sy}
	}
	if g.TargetPoint != nil {
		g.TargetPoint = &geom.Point{X: g.TargetPoint.X * sx, Y: g.TargetPoint.Y * sy}
	}
	for i := range g.Points {
		g.Points[i].X *= sx
		g.Points[i].Y *= sy
	}
	if !g.Relative {
		g.X *= sx
		g.Y *= sy
		if fixedAspect {
			s := min(sx, sy)
			sx, sy = s, s
		}
		g.Width *= sx
		g.Height *= sy
	}
}

// Validate rejects non-finite numbers and negative sizes.
func (g *Geometry) Validate() error {
	if !g.Bounds().IsFinite() {
		return fmt.Errorf("%w: bounds %v", ErrNotFinite, g.Bounds())
	}
	if g.Width < 0 || g.Height < 0 {
		return fmt.Errorf("%w: negative size %vx%v", ErrInvalidGeometry, g.Width, g.Height)
	}
	if g.Offset != nil && !g.Offset.IsFinite() {
		return fmt.Errorf("%w: offset %v", ErrNotFinite, *g.Offset)
	}
	if g.AlternateBounds != nil && !g.AlternateBounds.IsFinite() {
		return fmt.Errorf("%w: alternate bounds %v", ErrNotFinite, *g.AlternateBounds)
	}
	for _, p := range g.Points {
		if !p.IsFinite() {
			return fmt.Errorf("%w: point %v", ErrNotFinite, p)
		}
	}
	for _, p := range []*geom.Point{g.SourcePoint, g.TargetPoint} {
		if p != nil && !p.IsFinite() {
			return fmt.Errorf("%w: terminal point %v", ErrNotFinite, *p)
		}
	}
	return nil
}
