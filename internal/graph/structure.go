package graph

import (
	"math"
	"slices"

	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

// GroupCells moves the siblings of the first cell in cells into group,
// creating an empty group when group is nil. The group is sized to the union
// of the children grown by border and the children are translated to be
// group-relative. Fewer than two siblings leave the model unchanged and
// return nil.
func (g *Graph) GroupCells(group *model.Cell, border float64, cells []*model.Cell) (*model.Cell, error) {
	cells = cellsForGroup(cells)
	if len(cells) < 2 || !geom.IsFinite(border) {
		return nil, nil
	}
	if group == nil {
		group = model.NewVertex("", nil, model.NewGeometry(0, 0, 0, 0), style.Style{})
		group.SetConnectable(false)
	}
	bounds, ok := g.boundsForGroup(group, cells, border)
	if !ok {
		return nil, nil
	}

	parent := group.Parent()
	if parent == nil {
		parent = cells[0].Parent()
	}
	err := g.model.Update(func() error {
		if group.Geometry() == nil {
			if err := g.model.SetGeometry(group, &model.Geometry{}); err != nil {
				return err
			}
		}
		if err := g.cellsAdded([]*model.Cell{group}, parent, parent.ChildCount(), nil, nil, false, false, false); err != nil {
			return err
		}
		if err := g.cellsAdded(cells, group, group.ChildCount(), nil, nil, false, false, false); err != nil {
			return err
		}
		if err := g.cellsMoved(cells, -bounds.X, -bounds.Y, false, false, false); err != nil {
			return err
		}
		return g.cellsResized([]*model.Cell{group}, []geom.Rect{bounds}, false)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// cellsForGroup keeps the cells that share the parent of the first one.
func cellsForGroup(cells []*model.Cell) []*model.Cell {
	cells = filter(cells, func(*model.Cell) bool { return true })
	if len(cells) == 0 {
		return nil
	}
	parent := cells[0].Parent()
	return filter(cells, func(c *model.Cell) bool { return c.Parent() == parent })
}

func (g *Graph) boundsForGroup(group *model.Cell, children []*model.Cell, border float64) (geom.Rect, bool) {
	r, ok := g.boundingBoxFromGeometry(children, true)
	if !ok {
		return geom.Rect{}, false
	}
	if sw, sh := startSize(group); sw != 0 || sh != 0 {
		r = geom.Rect{X: r.X - sw, Y: r.Y - sh, Width: r.Width + sw, Height: r.Height + sh}
	}
	if border != 0 {
		r = geom.Rect{X: r.X - border, Y: r.Y - border, Width: r.Width + 2*border, Height: r.Height + 2*border}
	}
	return r, true
}

// UngroupCells moves the children of each cell into the cell's parent,
// keeping their absolute position, and removes the emptied cells. Relative
// children become absolute. It returns the moved children.
func (g *Graph) UngroupCells(cells []*model.Cell) ([]*model.Cell, error) {
	cells = filter(cells, func(c *model.Cell) bool { return c.ChildCount() > 0 })
	if len(cells) == 0 {
		return nil, nil
	}
	var result []*model.Cell
	err := g.model.Update(func() error {
		for _, c := range cells {
			children := c.Children()
			parent := c.Parent()
			if parent == nil {
				continue
			}
			pg := c.Geometry()
			for _, child := range children {
				geo := child.Geometry()
				if geo == nil || !geo.Relative || child.IsEdge() || pg == nil {
					continue
				}
				abs := geo.Clone()
				abs.X = geo.X * pg.Width
				abs.Y = geo.Y * pg.Height
				if geo.Offset != nil {
					abs.X += geo.Offset.X
					abs.Y += geo.Offset.Y
				}
				abs.Relative = false
				abs.Offset = nil
				if err := g.model.SetGeometry(child, abs); err != nil {
					return err
				}
			}
			if err := g.cellsAdded(children, parent, parent.ChildCount(), nil, nil, true, true, true); err != nil {
				return err
			}
			result = append(result, children...)
		}
		return g.cellsRemoved(g.withAllEdges(cells))
	})
	return result, err
}

// FoldCells collapses or expands cells, swapping each geometry with its
// alternate bounds. With checkFoldable, cells without children or with
// foldable=false are skipped. With recurse, descendants fold too.
func (g *Graph) FoldCells(collapse, recurse bool, cells []*model.Cell, checkFoldable bool) ([]*model.Cell, error) {
	cells = filter(cells, func(c *model.Cell) bool {
		return (!checkFoldable || isCellFoldable(c)) && c.IsCollapsed() != collapse
	})
	if len(cells) == 0 {
		return nil, nil
	}
	err := g.model.Update(func() error {
		return g.cellsFolded(cells, collapse, recurse, checkFoldable)
	})
	return cells, err
}

func (g *Graph) cellsFolded(cells []*model.Cell, collapse, recurse, checkFoldable bool) error {
	for _, c := range cells {
		if (checkFoldable && !isCellFoldable(c)) || c.IsCollapsed() == collapse {
			continue
		}
		if err := g.model.SetCollapsed(c, collapse); err != nil {
			return err
		}
		if err := g.swapBounds(c, collapse); err != nil {
			return err
		}
		if g.isExtendParent(c) {
			if err := g.ExtendParent(c); err != nil {
				return err
			}
		}
		if recurse {
			if err := g.cellsFolded(c.Children(), collapse, recurse, checkFoldable); err != nil {
				return err
			}
		}
		if err := g.ConstrainChild(c); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) swapBounds(c *model.Cell, willCollapse bool) error {
	geo := c.Geometry()
	if geo == nil {
		return nil
	}
	geo = geo.Clone()
	g.updateAlternateBounds(c, geo, willCollapse)
	geo.SwapBounds()
	return g.model.SetGeometry(c, geo)
}

// updateAlternateBounds creates the folded size on first use and moves the
// alternate bounds to the current position, compensating for rotation so
// the center stays put.
func (g *Graph) updateAlternateBounds(c *model.Cell, geo *model.Geometry, willCollapse bool) {
	if geo.AlternateBounds == nil {
		w, h := geo.Width, geo.Height
		if g.opts.CollapseToPreferredSize && willCollapse {
			if g.opts.PreferredSize != nil {
				if pw, ph, ok := g.opts.PreferredSize(c); ok {
					w, h = pw, ph
				}
			} else {
				h = CollapsedHeight
			}
			if s := c.Style().StartSize; s > 0 {
				h = max(h, s)
			}
		}
		geo.AlternateBounds = &geom.Rect{Width: w, Height: h}
	}

	alt := *geo.AlternateBounds
	alt.X, alt.Y = geo.X, geo.Y
	if r := c.Style().Rotation; r != 0 {
		alpha := geom.ToRadians(r)
		cos, sin := math.Cos(-alpha), math.Sin(-alpha)
		dx := alt.Center().X - geo.Bounds().Center().X
		dy := alt.Center().Y - geo.Bounds().Center().Y
		dx2 := cos*dx - sin*dy
		dy2 := sin*dx + cos*dy
		alt.X += dx2 - dx
		alt.Y += dy2 - dy
	}
	geo.AlternateBounds = &alt
}

// OrderCells moves cells to the back or the front of their parents'
// children, keeping their relative order.
func (g *Graph) OrderCells(back bool, cells []*model.Cell) error {
	cells = filter(cells, func(c *model.Cell) bool { return c.Parent() != nil })
	if len(cells) == 0 {
		return nil
	}
	sortCells(cells)
	return g.model.Update(func() error {
		for i, c := range cells {
			parent := c.Parent()
			index := parent.ChildCount() - 1
			if back {
				index = i
			}
			if err := g.model.Add(parent, c, index); err != nil {
				return err
			}
		}
		return nil
	})
}

// sortCells orders cells by their position in the tree.
func sortCells(cells []*model.Cell) {
	path := func(c *model.Cell) []int {
		var p []int
		for ; c.Parent() != nil; c = c.Parent() {
			p = append(p, c.Parent().IndexOf(c))
		}
		slices.Reverse(p)
		return p
	}
	slices.SortStableFunc(cells, func(a, b *model.Cell) int {
		return slices.Compare(path(a), path(b))
	})
}

// RemoveCells removes the deletable cells. With includeEdges, every edge
// connected to a removed cell or its descendants is removed as well;
// otherwise those edges are disconnected and keep their loose end at the
// removed terminal's last rendered center. It returns the removed cells.
func (g *Graph) RemoveCells(cells []*model.Cell, includeEdges bool) ([]*model.Cell, error) {
	if includeEdges {
		cells = g.withAllEdges(cells)
	} else {
		cells = slices.Clone(cells)
		set := setOf(cells)
		// Edges without a state cannot be given a terminal point.
		for _, e := range allEdges(cells) {
			if !set[e] && g.view.State(e) == nil && e.Style().IsDeletable() {
				set[e] = true
				cells = append(cells, e)
			}
		}
	}
	cells = filter(cells, func(c *model.Cell) bool { return c.Style().IsDeletable() && g.model.Contains(c) })
	if len(cells) == 0 {
		return nil, nil
	}
	err := g.model.Update(func() error { return g.cellsRemoved(cells) })
	return cells, err
}

// withAllEdges appends to cells every deletable edge connected to them or
// their descendants.
func (g *Graph) withAllEdges(cells []*model.Cell) []*model.Cell {
	out := slices.Clone(cells)
	set := setOf(out)
	for _, e := range allEdges(cells) {
		if !set[e] && e.Style().IsDeletable() {
			set[e] = true
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) cellsRemoved(cells []*model.Cell) error {
	scale, tr := g.view.Scale(), g.view.Translate()
	set := setOf(cells)
	cells = model.TopmostCells(cells)
	removed := setOf(cells)

	for _, e := range allEdges(cells) {
		if set[e] || inSet(removed, e) {
			continue
		}
		set[e] = true
		geo := e.Geometry()
		if geo == nil {
			continue
		}
		geo = geo.Clone()
		changed := false
		for _, source := range []bool{true, false} {
			t := e.Terminal(source)
			if !inSet(removed, t) {
				continue
			}
			if tst := g.view.State(t); tst != nil {
				c := tst.Center()
				o := model.Origin(e.Parent())
				geo.SetTerminalPoint(&geom.Point{
					X: c.X/scale - tr.X - o.X,
					Y: c.Y/scale - tr.Y - o.Y,
				}, source)
			}
			if err := g.model.SetTerminal(e, nil, source); err != nil {
				return err
			}
			changed = true
		}
		if changed {
			if err := g.model.SetGeometry(e, geo); err != nil {
				return err
			}
		}
	}

	for _, c := range cells {
		if err := g.model.Remove(c); err != nil {
			return err
		}
	}
	return nil
}
