package view

import (
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
)

// Filter selects the kinds of cells a hit test considers.
type Filter struct {
	Vertices bool
	Edges    bool
	// Ignore, if set, excludes cells for which it returns true.
	Ignore func(*model.Cell) bool
}

// AllCells accepts vertices and edges.
var AllCells = Filter{Vertices: true, Edges: true}

func (f Filter) accepts(c *model.Cell) bool {
	if f.Ignore != nil && f.Ignore(c) {
		return false
	}
	return (f.Vertices && c.IsVertex()) || (f.Edges && c.IsEdge())
}

// Intersects reports whether the point hits the state: within tolerance of
// a segment for edges, inside the rotated bounds for vertices.
func (v *View) Intersects(st *CellState, p geom.Point) bool {
	if st.IsEdge() {
		t2 := v.tolerance * v.tolerance
		for i := 1; i < len(st.Points); i++ {
			if geom.PtSegDistSq(st.Points[i-1], st.Points[i], p) <= t2 {
				return true
			}
		}
		return false
	}
	return st.Bounds.ContainsRotated(p, st.Rotation)
}

// CellAt returns the topmost cell under (x, y) below parent, or nil. A nil
// parent searches the whole model. Children are tested before their parent
// and later siblings before earlier ones.
func (v *View) CellAt(x, y float64, parent *model.Cell, f Filter) *model.Cell {
	v.begin()
	defer v.end()

	var hit *model.Cell
	v.hitTest(geom.Point{X: x, Y: y}, v.searchRoot(parent), f, func(c *model.Cell) bool {
		hit = c
		return false
	})
	return hit
}

// CellsAt returns every cell under (x, y), topmost first.
func (v *View) CellsAt(x, y float64, parent *model.Cell, f Filter) []*model.Cell {
	v.begin()
	defer v.end()

	var hits []*model.Cell
	v.hitTest(geom.Point{X: x, Y: y}, v.searchRoot(parent), f, func(c *model.Cell) bool {
		hits = append(hits, c)
		return true
	})
	return hits
}

func (v *View) searchRoot(parent *model.Cell) *model.Cell {
	if parent == nil {
		return v.model.Root()
	}
	return parent
}

// hitTest visits the hits below parent in front-to-back order until visit
// returns false. It reports whether the walk should continue.
func (v *View) hitTest(p geom.Point, parent *model.Cell, f Filter, visit func(*model.Cell) bool) bool {
	if parent == nil {
		return true
	}
	for i := parent.ChildCount() - 1; i >= 0; i-- {
		c := parent.ChildAt(i)
		if !v.hitTest(p, c, f, visit) {
			return false
		}
		if !f.accepts(c) {
			continue
		}
		if st := v.state(c); st != nil && v.Intersects(st, p) {
			if !visit(c) {
				return false
			}
		}
	}
	return true
}

// RectQuery controls CellsInRect.
type RectQuery struct {
	// Intersect accepts cells whose bounds intersect the rectangle instead
	// of lying fully inside it.
	Intersect bool
	// IncludeDescendants keeps descending into accepted cells.
	IncludeDescendants bool
	Ignore             func(*model.Cell) bool
}

// CellsInRect returns the cells below parent whose (rotated) bounds lie in
// r. A nil parent searches the whole model.
func (v *View) CellsInRect(r geom.Rect, parent *model.Cell, q RectQuery) []*model.Cell {
	v.begin()
	defer v.end()

	if r.Width <= 0 && r.Height <= 0 && !q.Intersect {
		return nil
	}
	var out []*model.Cell
	var walk func(*model.Cell)
	walk = func(parent *model.Cell) {
		for _, c := range parent.Children() {
			st := v.state(c)
			if st == nil || (q.Ignore != nil && q.Ignore(c)) {
				continue
			}
			box := st.RotatedBounds
			var hit bool
			if q.Intersect {
				hit = intersectsInclusive(box, r)
			} else {
				hit = box.X >= r.X && box.Y >= r.Y &&
					box.X+box.Width <= r.X+r.Width && box.Y+box.Height <= r.Y+r.Height
			}
			graphCell := c.IsVertex() || c.IsEdge()
			if hit && graphCell {
				out = append(out, c)
			}
			if (!hit || !graphCell || q.IncludeDescendants) && !c.IsCollapsed() {
				walk(c)
			}
		}
	}
	walk(v.searchRoot(parent))
	return out
}

// intersectsInclusive treats touching rectangles and zero-height edge
// bounds as intersecting.
func intersectsInclusive(a, b geom.Rect) bool {
	return a.X <= b.X+b.Width && b.X <= a.X+a.Width &&
		a.Y <= b.Y+b.Height && b.Y <= a.Y+a.Height
}

// BoundingBox unions the rendered bounds of cells: rotated bounds for
// vertices and the route span for edges. ok is false when none of the
// cells has a state.
func (v *View) BoundingBox(cells []*model.Cell) (box geom.Rect, ok bool) {
	v.begin()
	defer v.end()

	for _, c := range cells {
		st := v.state(c)
		if st == nil || !(c.IsVertex() || c.IsEdge()) {
			continue
		}
		b := st.RotatedBounds
		if !ok {
			box, ok = b, true
			continue
		}
		box = box.Add(b)
	}
	return box, ok
}

// GraphBounds returns the bounding box of every shown vertex and edge.
func (v *View) GraphBounds() (geom.Rect, bool) {
	var cells []*model.Cell
	for _, layer := range v.model.Layers() {
		cells = append(cells, model.FilterDescendants(layer, func(c *model.Cell) bool {
			return c.IsVertex() || c.IsEdge()
		})...)
	}
	return v.BoundingBox(cells)
}

// IntersectsEdge reports whether the segment route of edge passes within
// tolerance of p.
func (v *View) IntersectsEdge(edge *model.Cell, p geom.Point) bool {
	st := v.State(edge)
	return st != nil && st.IsEdge() && v.Intersects(st, p)
}
