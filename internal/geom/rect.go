package geom

import "math"

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// R is shorthand for a Rect literal.
func R(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// ContainsRect checks if other lies fully inside r.
func (r Rect) ContainsRect(other Rect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// Intersects checks if the two rects overlap or touch.
func (r Rect) Intersects(other Rect) bool {
	return other.X <= r.X+r.Width && r.X <= other.X+other.Width &&
		other.Y <= r.Y+r.Height && r.Y <= other.Y+other.Height
}

// Intersect returns the overlapping region of r and other, or an empty rect.
func (r Rect) Intersect(other Rect) Rect {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.X+r.Width, other.X+other.Width)
	y1 := min(r.Y+r.Height, other.Y+other.Height)
	if x1 < x0 || y1 < y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects. Empty rects are
// ignored.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return r.Add(other)
}

// Add returns the smallest rect containing both rects, including degenerate
// (zero width or height) ones such as the span of a straight edge.
func (r Rect) Add(other Rect) Rect {
	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// AddPoint grows r to include p.
func (r Rect) AddPoint(p Point) Rect {
	return r.Add(Rect{X: p.X, Y: p.Y})
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Origin returns the top-left corner.
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Translate returns r moved by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Grow returns r expanded by amount on every side.
func (r Rect) Grow(amount float64) Rect {
	return Rect{
		X:      r.X - amount,
		Y:      r.Y - amount,
		Width:  r.Width + 2*amount,
		Height: r.Height + 2*amount,
	}
}

// Rotate90 swaps width and height around the center.
func (r Rect) Rotate90() Rect {
	c := r.Center()
	return Rect{
		X:      c.X - r.Height/2,
		Y:      c.Y - r.Width/2,
		Width:  r.Height,
		Height: r.Width,
	}
}

// RotatedBounds returns the bounding box of r rotated by degrees around its
// own center.
func (r Rect) RotatedBounds(degrees float64) Rect {
	if math.Mod(degrees, 360) == 0 {
		return r
	}
	return RotateAround(degrees, r.Center()).TransformRect(r)
}

// Round rounds all fields to the nearest integer.
func (r Rect) Round() Rect {
	return Rect{
		X:      math.Round(r.X),
		Y:      math.Round(r.Y),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}

// IsFinite reports whether every field is a finite number.
func (r Rect) IsFinite() bool {
	return IsFinite(r.X) && IsFinite(r.Y) && IsFinite(r.Width) && IsFinite(r.Height)
}

// ContainsRotated checks if p lies inside r rotated by degrees around its
// center.
func (r Rect) ContainsRotated(p Point, degrees float64) bool {
	if degrees != 0 {
		p = RotatePointDegrees(p, -degrees, r.Center())
	}
	return r.Contains(p.X, p.Y)
}
