package graph

import (
	"math"

	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
)

// ResizeCells sets the bounds of the resizable cells in cells. bounds is
// aligned with cells. With recurse, children scale with their parent.
func (g *Graph) ResizeCells(cells []*model.Cell, bounds []geom.Rect, recurse bool) error {
	var cs []*model.Cell
	var bs []geom.Rect
	for i, c := range cells {
		if c == nil || i >= len(bounds) || !c.Style().IsResizable() {
			continue
		}
		if !bounds[i].IsFinite() {
			return model.ErrNotFinite
		}
		cs = append(cs, c)
		bs = append(bs, bounds[i])
	}
	if len(cs) == 0 {
		return nil
	}
	return g.model.Update(func() error { return g.cellsResized(cs, bs, recurse) })
}

func (g *Graph) cellsResized(cells []*model.Cell, bounds []geom.Rect, recurse bool) error {
	for i, c := range cells {
		if err := g.cellResized(c, bounds[i], false, recurse); err != nil {
			return err
		}
		if g.isExtendParent(c) {
			if err := g.ExtendParent(c); err != nil {
				return err
			}
		}
		if err := g.ConstrainChild(c); err != nil {
			return err
		}
	}
	if g.opts.ResetEdgesOnResize {
		return g.resetEdges(cells, setOf(cells))
	}
	return nil
}

// cellResized applies b to the geometry of c. A relative geometry moves by
// its offset unless ignoreRelative is set.
func (g *Graph) cellResized(c *model.Cell, b geom.Rect, ignoreRelative, recurse bool) error {
	prev := c.Geometry()
	if prev == nil || prev.Bounds() == b {
		return nil
	}
	geo := prev.Clone()
	if !ignoreRelative && geo.Relative {
		if geo.Offset != nil {
			geo.Offset = &geom.Point{X: geo.Offset.X + b.X - geo.X, Y: geo.Offset.Y + b.Y - geo.Y}
		}
	} else {
		geo.X, geo.Y = b.X, b.Y
	}
	geo.Width, geo.Height = b.Width, b.Height
	if !geo.Relative && c.IsVertex() && !g.opts.AllowNegativeCoordinates {
		geo.X = max(0, geo.X)
		geo.Y = max(0, geo.Y)
	}

	if recurse {
		if err := g.resizeChildCells(c, geo); err != nil {
			return err
		}
	}
	if err := g.model.SetGeometry(c, geo); err != nil {
		return err
	}
	for _, child := range c.Children() {
		if err := g.ConstrainChild(child); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) resizeChildCells(c *model.Cell, next *model.Geometry) error {
	cur := c.Geometry()
	sx, sy := 1.0, 1.0
	if cur.Width != 0 {
		sx = next.Width / cur.Width
	}
	if cur.Height != 0 {
		sy = next.Height / cur.Height
	}
	for _, child := range c.Children() {
		if err := g.scaleCell(child, sx, sy); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) scaleCell(c *model.Cell, sx, sy float64) error {
	geo := c.Geometry()
	if geo == nil {
		return nil
	}
	geo = geo.Clone()
	geo.Scale(sx, sy, false)
	if c.IsEdge() {
		return g.model.SetGeometry(c, geo)
	}
	return g.cellResized(c, geo.Bounds(), true, true)
}

// ExtendParent grows the ancestors of cell until each contains its child.
// Collapsed parents are left alone.
func (g *Graph) ExtendParent(cell *model.Cell) error {
	visited := make(map[*model.Cell]bool)
	for c := cell; c != nil && !visited[c]; c = c.Parent() {
		visited[c] = true
		parent := c.Parent()
		geo := c.Geometry()
		if parent == nil || geo == nil || geo.Relative || !g.isExtendParent(c) {
			return nil
		}
		p := parent.Geometry()
		if p == nil || parent.IsCollapsed() || g.model.IsLayer(parent) {
			return nil
		}
		if p.Width >= geo.X+geo.Width && p.Height >= geo.Y+geo.Height {
			return nil
		}
		p = p.Clone()
		p.Width = max(p.Width, geo.X+geo.Width)
		p.Height = max(p.Height, geo.Y+geo.Height)
		if err := g.cellResized(parent, p.Bounds(), false, false); err != nil {
			return err
		}
	}
	return nil
}

// ConstrainChild moves and, if needed, shrinks cell so that it and its
// visible descendants stay inside the parent's content area and the maximum
// graph bounds.
func (g *Graph) ConstrainChild(cell *model.Cell) error {
	geo := cell.Geometry()
	if geo == nil || (geo.Relative && !g.opts.ConstrainRelativeChildren) {
		return nil
	}
	parent := cell.Parent()

	var area *geom.Rect
	if g.opts.MaximumGraphBounds != nil {
		r := *g.opts.MaximumGraphBounds
		if off, ok := g.boundingBoxFromGeometry([]*model.Cell{parent}, false); ok {
			r.X -= off.X
			r.Y -= off.Y
		}
		area = &r
	}
	if g.isConstrainChild(cell) {
		if tmp, ok := g.containmentArea(cell); ok {
			if area == nil {
				area = &tmp
			} else {
				r := area.Intersect(tmp)
				area = &r
			}
		}
	}
	if area == nil {
		return nil
	}

	cells := []*model.Cell{cell}
	if !cell.IsCollapsed() {
		cells = append(cells, model.FilterDescendants(cell, func(d *model.Cell) bool {
			return d != cell && d.IsVisible()
		})...)
	}
	bbox, ok := g.boundingBoxFromGeometry(cells, false)
	if !ok {
		return nil
	}

	geo = geo.Clone()
	var dx, dy float64
	if geo.Width > area.Width {
		dx = geo.Width - area.Width
		geo.Width -= dx
	}
	if bbox.X+bbox.Width > area.X+area.Width {
		dx -= bbox.X + bbox.Width - area.X - area.Width - dx
	}
	if geo.Height > area.Height {
		dy = geo.Height - area.Height
		geo.Height -= dy
	}
	if bbox.Y+bbox.Height > area.Y+area.Height {
		dy -= bbox.Y + bbox.Height - area.Y - area.Height - dy
	}
	if bbox.X < area.X {
		dx -= bbox.X - area.X
	}
	if bbox.Y < area.Y {
		dy -= bbox.Y - area.Y
	}
	if dx != 0 || dy != 0 {
		if geo.Relative {
			off := geom.Point{}
			if geo.Offset != nil {
				off = *geo.Offset
			}
			geo.Offset = &geom.Point{X: off.X + dx, Y: off.Y + dy}
		} else {
			geo.X += dx
			geo.Y += dy
		}
	}
	return g.model.SetGeometry(cell, geo)
}

// containmentArea returns the content area of the parent of c in the
// parent's coordinates, excluding a swimlane title.
func (g *Graph) containmentArea(c *model.Cell) (geom.Rect, bool) {
	if c.IsEdge() {
		return geom.Rect{}, false
	}
	parent := c.Parent()
	if parent == nil || g.model.IsLayer(parent) || parent == g.model.Root() {
		return geom.Rect{}, false
	}
	pg := parent.Geometry()
	if pg == nil {
		return geom.Rect{}, false
	}
	sw, sh := startSize(parent)
	return geom.Rect{X: sw, Y: sh, Width: pg.Width - sw, Height: pg.Height - sh}, true
}

// boundingBoxFromGeometry unions the geometries of cells in the coordinates
// of their parents. Edges contribute their loose terminal points and control
// points when includeEdges is set.
func (g *Graph) boundingBoxFromGeometry(cells []*model.Cell, includeEdges bool) (geom.Rect, bool) {
	var result geom.Rect
	found := false
	add := func(r geom.Rect) {
		if !found {
			result, found = r, true
			return
		}
		result = result.Add(r)
	}
	set := setOf(cells)

	for _, c := range cells {
		if c == nil || !(includeEdges || c.IsVertex()) {
			continue
		}
		geo := c.Geometry()
		if geo == nil {
			continue
		}
		if c.IsEdge() {
			var pts []geom.Point
			for _, source := range []bool{true, false} {
				if c.Terminal(source) == nil {
					if p := geo.TerminalPoint(source); p != nil {
						pts = append(pts, *p)
					}
				}
			}
			pts = append(pts, geo.Points...)
			if len(pts) > 0 {
				add(geom.BoundsOf(pts))
			}
			continue
		}

		parent := c.Parent()
		var box geom.Rect
		switch {
		case geo.Relative:
			if parent == nil || !parent.IsVertex() {
				continue
			}
			tmp, ok := g.boundingBoxFromGeometry([]*model.Cell{parent}, false)
			if !ok {
				continue
			}
			box = geom.Rect{X: geo.X * tmp.Width, Y: geo.Y * tmp.Height, Width: geo.Width, Height: geo.Height}
			if set[parent] {
				box = box.Translate(tmp.X, tmp.Y)
			}
		default:
			box = geo.Bounds()
			if parent != nil && parent.IsVertex() && set[parent] {
				if tmp, ok := g.boundingBoxFromGeometry([]*model.Cell{parent}, false); ok {
					box = box.Translate(tmp.X, tmp.Y)
				}
			}
		}
		if geo.Offset != nil {
			box = box.Translate(geo.Offset.X, geo.Offset.Y)
		}
		if r := c.Style().Rotation; r != 0 {
			box = box.RotatedBounds(r)
		}
		add(box)
	}
	return result, found
}

// UpdateCellSize resizes cell to its preferred size, keeping its position.
// Cells the host cannot measure are left unchanged. Unless ignoreChildren
// is set, a cell with children also grows to contain them.
func (g *Graph) UpdateCellSize(cell *model.Cell, ignoreChildren bool) error {
	geo := cell.Geometry()
	if geo == nil || g.opts.PreferredSize == nil || !cell.Style().IsResizable() {
		return nil
	}
	w, h, ok := g.opts.PreferredSize(cell)
	if !ok {
		return nil
	}
	b := geom.Rect{X: geo.X, Y: geo.Y, Width: w, Height: h}
	if !ignoreChildren && cell.ChildCount() > 0 && !cell.IsCollapsed() {
		if cb, ok := g.boundingBoxFromGeometry(cell.Children(), false); ok {
			b.Width = max(b.Width, cb.X+cb.Width)
			b.Height = max(b.Height, cb.Y+cb.Height)
		}
	}
	if !b.IsFinite() {
		return model.ErrNotFinite
	}
	return g.model.Update(func() error {
		return g.cellsResized([]*model.Cell{cell}, []geom.Rect{b}, false)
	})
}

// SnapCells rounds the position and size of every vertex in cells to
// multiples of gridSize. Sizes never snap below one grid step.
func (g *Graph) SnapCells(cells []*model.Cell, gridSize float64) error {
	if gridSize <= 0 || !geom.IsFinite(gridSize) {
		return nil
	}
	snap := func(v float64) float64 { return math.Round(v/gridSize) * gridSize }
	return g.model.Update(func() error {
		for _, c := range cells {
			geo := c.Geometry()
			if geo == nil || c.IsEdge() || geo.Relative {
				continue
			}
			b := geom.Rect{X: snap(geo.X), Y: snap(geo.Y), Width: snap(geo.Width), Height: snap(geo.Height)}
			if b.Width == 0 {
				b.Width = gridSize
			}
			if b.Height == 0 {
				b.Height = gridSize
			}
			if err := g.cellsResized([]*model.Cell{c}, []geom.Rect{b}, false); err != nil {
				return err
			}
		}
		return nil
	})
}
