// Package geom holds the value types and pure functions the diagram core is
// built on: points, axis-aligned rectangles, affine matrices, shape
// perimeters and segment distance tests.
package geom

import "math"

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Mul scales both coordinates by s.
func (p Point) Mul(s float64) Point {
	return Point{p.X * s, p.Y * s}
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Round rounds both coordinates to the nearest integer.
func (p Point) Round() Point {
	return Point{math.Round(p.X), math.Round(p.Y)}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return IsFinite(p.X) && IsFinite(p.Y)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RotatePoint rotates p around center using precomputed cos and sin.
func RotatePoint(p Point, cos, sin float64, center Point) Point {
	x := p.X - center.X
	y := p.Y - center.Y
	return Point{
		X: x*cos - y*sin + center.X,
		Y: y*cos + x*sin + center.Y,
	}
}

// RotatePointDegrees rotates p around center by the given angle.
func RotatePointDegrees(p Point, degrees float64, center Point) Point {
	if degrees == 0 {
		return p
	}
	rad := ToRadians(degrees)
	return RotatePoint(p, math.Cos(rad), math.Sin(rad), center)
}

// PtSegDistSq returns the squared distance from p to the segment a-b.
func PtSegDistSq(a, b, p Point) float64 {
	x2 := b.X - a.X
	y2 := b.Y - a.Y
	px := p.X - a.X
	py := p.Y - a.Y

	dot := px*x2 + py*y2
	var projLenSq float64
	if dot <= 0 {
		projLenSq = 0
	} else {
		px = x2 - px
		py = y2 - py
		dot = px*x2 + py*y2
		if dot <= 0 {
			projLenSq = 0
		} else {
			projLenSq = dot * dot / (x2*x2 + y2*y2)
		}
	}

	lenSq := px*px + py*py - projLenSq
	if lenSq < 0 {
		lenSq = 0
	}
	return lenSq
}

// Intersection returns the intersection of segments a1-a2 and b1-b2.
func Intersection(a1, a2, b1, b2 Point) (Point, bool) {
	denom := (b2.Y-b1.Y)*(a2.X-a1.X) - (b2.X-b1.X)*(a2.Y-a1.Y)
	if denom == 0 {
		return Point{}, false
	}
	ua := ((b2.X-b1.X)*(a1.Y-b1.Y) - (b2.Y-b1.Y)*(a1.X-b1.X)) / denom
	ub := ((a2.X-a1.X)*(a1.Y-b1.Y) - (a2.Y-a1.Y)*(a1.X-b1.X)) / denom
	if ua < 0 || ua > 1 || ub < 0 || ub > 1 {
		return Point{}, false
	}
	return Point{
		X: a1.X + ua*(a2.X-a1.X),
		Y: a1.Y + ua*(a2.Y-a1.Y),
	}, true
}

// BoundsOf returns the smallest rect containing all points.
func BoundsOf(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
