package geom

import "math"

// Perimeter clips the line from the center of bounds towards next against
// the outline of a shape and returns the point on the outline. If orthogonal
// is true the result is snapped so the connecting segment stays axis aligned
// whenever next lies within the span of bounds.
type Perimeter func(bounds Rect, next Point, orthogonal bool) Point

// RectanglePerimeter intersects the ray from the center towards next with the
// side of the rectangle that matches the angular sector of next.
func RectanglePerimeter(bounds Rect, next Point, orthogonal bool) Point {
	c := bounds.Center()
	dx := next.X - c.X
	dy := next.Y - c.Y
	alpha := math.Atan2(dy, dx)
	beta := math.Pi/2 - alpha
	t := math.Atan2(bounds.Height, bounds.Width)

	var p Point
	switch {
	case alpha < -math.Pi+t || alpha > math.Pi-t:
		// left side
		p.X = bounds.X
		p.Y = c.Y - bounds.Width*math.Tan(alpha)/2
	case alpha < -t:
		// top side
		p.Y = bounds.Y
		p.X = c.X - bounds.Height*math.Tan(beta)/2
	case alpha < t:
		// right side
		p.X = bounds.X + bounds.Width
		p.Y = c.Y + bounds.Width*math.Tan(alpha)/2
	default:
		// bottom side
		p.Y = bounds.Y + bounds.Height
		p.X = c.X + bounds.Height*math.Tan(beta)/2
	}

	if orthogonal {
		if next.X >= bounds.X && next.X <= bounds.X+bounds.Width {
			p.X = next.X
		} else if next.Y >= bounds.Y && next.Y <= bounds.Y+bounds.Height {
			p.Y = next.Y
		}
		if next.X < bounds.X {
			p.X = bounds.X
		} else if next.X > bounds.X+bounds.Width {
			p.X = bounds.X + bounds.Width
		}
		if next.Y < bounds.Y {
			p.Y = bounds.Y
		} else if next.Y > bounds.Y+bounds.Height {
			p.Y = bounds.Y + bounds.Height
		}
	}

	return clampToSpan(p, bounds)
}

// EllipsePerimeter intersects the line through the center and next with the
// ellipse inscribed in bounds.
func EllipsePerimeter(bounds Rect, next Point, orthogonal bool) Point {
	a := bounds.Width / 2
	b := bounds.Height / 2
	cx := bounds.X + a
	cy := bounds.Y + b
	px, py := next.X, next.Y

	if a == 0 || b == 0 {
		return Point{cx, cy}
	}

	if orthogonal {
		if py >= bounds.Y && py <= bounds.Y+bounds.Height {
			ty := py - cy
			tx := a * math.Sqrt(max(0, 1-(ty*ty)/(b*b)))
			if px <= bounds.X {
				tx = -tx
			}
			return Point{cx + tx, py}
		}
		if px >= bounds.X && px <= bounds.X+bounds.Width {
			tx := px - cx
			ty := b * math.Sqrt(max(0, 1-(tx*tx)/(a*a)))
			if py <= bounds.Y {
				ty = -ty
			}
			return Point{px, cy + ty}
		}
	}

	dx := px - cx
	dy := py - cy
	if dx == 0 {
		if dy == 0 {
			return Point{cx + a, cy}
		}
		return Point{cx, cy + math.Copysign(b, dy)}
	}

	// Scale the direction vector so it lands on the ellipse.
	k := 1 / math.Sqrt((dx*dx)/(a*a)+(dy*dy)/(b*b))
	return Point{cx + dx*k, cy + dy*k}
}

// RhombusPerimeter clips against the diamond inscribed in bounds.
func RhombusPerimeter(bounds Rect, next Point, orthogonal bool) Point {
	c := bounds.Center()
	return PolygonPerimeter([]Point{
		{c.X, bounds.Y},
		{bounds.X + bounds.Width, c.Y},
		{c.X, bounds.Y + bounds.Height},
		{bounds.X, c.Y},
	}, bounds, next, orthogonal)
}

// TrianglePerimeter clips against an east-pointing triangle inscribed in
// bounds. Callers rotate bounds and points for other directions.
func TrianglePerimeter(bounds Rect, next Point, orthogonal bool) Point {
	return PolygonPerimeter([]Point{
		{bounds.X, bounds.Y},
		{bounds.X + bounds.Width, bounds.Y + bounds.Height/2},
		{bounds.X, bounds.Y + bounds.Height},
	}, bounds, next, orthogonal)
}

// PolygonPerimeter clips the ray from the center of bounds towards next
// against the closed polygon. Falls back to the rectangle perimeter when no
// side is hit.
func PolygonPerimeter(polygon []Point, bounds Rect, next Point, orthogonal bool) Point {
	c := bounds.Center()
	if orthogonal {
		if next.X >= bounds.X && next.X <= bounds.X+bounds.Width {
			c.X = next.X
		} else if next.Y >= bounds.Y && next.Y <= bounds.Y+bounds.Height {
			c.Y = next.Y
		}
	}

	// Extend the ray well past the bounds so it always crosses the outline.
	dx := next.X - c.X
	dy := next.Y - c.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return RectanglePerimeter(bounds, next, orthogonal)
	}
	reach := (bounds.Width + bounds.Height + length) * 2
	far := Point{c.X + dx/length*reach, c.Y + dy/length*reach}

	best := Point{}
	bestDist := math.Inf(1)
	for i := range polygon {
		a := polygon[i]
		b := polygon[(i+1)%len(polygon)]
		if p, ok := Intersection(c, far, a, b); ok {
			if d := p.Dist(c); d < bestDist {
				best, bestDist = p, d
			}
		}
	}
	if math.IsInf(bestDist, 1) {
		return RectanglePerimeter(bounds, next, orthogonal)
	}
	return best
}

// PerimeterByName returns the perimeter function for a style name, or nil.
func PerimeterByName(name string) Perimeter {
	switch name {
	case "rectangle", "rectanglePerimeter":
		return RectanglePerimeter
	case "ellipse", "ellipsePerimeter":
		return EllipsePerimeter
	case "rhombus", "rhombusPerimeter":
		return RhombusPerimeter
	case "triangle", "trianglePerimeter":
		return TrianglePerimeter
	default:
		return nil
	}
}

func clampToSpan(p Point, bounds Rect) Point {
	p.X = math.Max(bounds.X, math.Min(bounds.X+bounds.Width, p.X))
	p.Y = math.Max(bounds.Y, math.Min(bounds.Y+bounds.Height, p.Y))
	return p
}
