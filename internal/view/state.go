package view

import (
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

// CellState is the derived, render-ready geometry of one cell. States are
// owned by the View and replaced, never mutated, when recomputed.
type CellState struct {
	// Cell is a lookup-only reference back to the model.
	Cell  *model.Cell
	ID    string
	Style style.Style

	// Origin is the absolute, unscaled position of the cell's geometry.
	Origin geom.Point
	// Bounds is the scaled and translated rectangle of the cell. For edges
	// it spans the route.
	Bounds geom.Rect
	// RotatedBounds is Bounds expanded for the rotation style.
	RotatedBounds geom.Rect
	Rotation      float64

	// AbsoluteOffset is the scaled geometry offset.
	AbsoluteOffset geom.Point

	// Edges only.
	Points           []geom.Point
	Segments         []float64
	Length           float64
	TerminalDistance float64
	LabelPosition    geom.Point
	SourceState      *CellState
	TargetState      *CellState

	invalid bool
}

// IsEdge reports whether the state belongs to an edge.
func (s *CellState) IsEdge() bool { return s.Cell.IsEdge() }

// Center returns the center of Bounds.
func (s *CellState) Center() geom.Point { return s.Bounds.Center() }

// UnscaledBounds divides Bounds by scale, undoing the view translation.
func (s *CellState) UnscaledBounds(scale float64, translate geom.Point) geom.Rect {
	return geom.Rect{
		X:      s.Bounds.X/scale - translate.X,
		Y:      s.Bounds.Y/scale - translate.Y,
		Width:  s.Bounds.Width / scale,
		Height: s.Bounds.Height / scale,
	}
}

// TerminalPoint returns the first or last point of an edge route.
func (s *CellState) TerminalPoint(source bool) (geom.Point, bool) {
	if len(s.Points) == 0 {
		return geom.Point{}, false
	}
	if source {
		return s.Points[0], true
	}
	return s.Points[len(s.Points)-1], true
}

// PointAt returns the point at fraction f of the route length. f is
// clamped to [0, 1].
func (s *CellState) PointAt(f float64) geom.Point {
	if len(s.Points) == 0 {
		return s.Center()
	}
	if s.Length == 0 || len(s.Segments) == 0 {
		return s.Points[0]
	}
	f = max(0, min(1, f))
	dist := f * s.Length
	for i, seg := range s.Segments {
		if dist <= seg || i == len(s.Segments)-1 {
			if seg == 0 {
				return s.Points[i]
			}
			t := min(1, dist/seg)
			a, b := s.Points[i], s.Points[i+1]
			return geom.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
		}
		dist -= seg
	}
	return s.Points[len(s.Points)-1]
}
