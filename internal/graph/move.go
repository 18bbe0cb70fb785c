package graph

import (
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
)

// MoveCells translates the movable cells by (dx, dy). With clone set, copies
// are moved instead and the copies are returned. A non-nil target reparents
// the moved cells into it while keeping their absolute position. Edges in
// the moved set let go of terminals that stay behind when disconnecting on
// move is enabled.
func (g *Graph) MoveCells(cells []*model.Cell, dx, dy float64, clone bool, target *model.Cell) ([]*model.Cell, error) {
	if !geom.IsFinite(dx) || !geom.IsFinite(dy) {
		return nil, model.ErrNotFinite
	}
	if dx == 0 && dy == 0 && !clone && target == nil {
		return cells, nil
	}
	cells = filter(model.TopmostCells(cells), func(c *model.Cell) bool {
		return clone || c.Style().IsMovable()
	})

	// Edge labels move with their edge when one of its terminals moves.
	set := setOf(cells)
	cells = filter(cells, func(c *model.Cell) bool {
		geo, parent := c.Geometry(), c.Parent()
		return geo == nil || !geo.Relative || parent == nil || !parent.IsEdge() ||
			(!set[parent.Source()] && !set[parent.Target()])
	})
	if len(cells) == 0 {
		return nil, nil
	}

	err := g.model.Update(func() error {
		if clone {
			if target == nil {
				target = g.model.DefaultParent()
			}
			cells = g.placeClones(cells, target)
		}
		if err := g.cellsMoved(cells, dx, dy, !clone && g.opts.DisconnectOnMove, target == nil, g.opts.ExtendParents && target == nil); err != nil {
			return err
		}
		if target != nil {
			return g.cellsAdded(cells, target, target.ChildCount(), nil, nil, !clone, true, true)
		}
		return nil
	})
	return cells, err
}

// cellsMoved translates cells and runs the parent housekeeping for each.
func (g *Graph) cellsMoved(cells []*model.Cell, dx, dy float64, disconnect, constrain, extend bool) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	if disconnect {
		if err := g.disconnectGraph(cells); err != nil {
			return err
		}
	}
	for _, c := range cells {
		if err := g.translateCell(c, dx, dy); err != nil {
			return err
		}
		switch {
		case extend && g.isExtendParent(c):
			if err := g.ExtendParent(c); err != nil {
				return err
			}
		case constrain:
			if err := g.ConstrainChild(c); err != nil {
				return err
			}
		}
	}
	if g.opts.ResetEdgesOnMove {
		return g.resetEdges(cells, setOf(cells))
	}
	return nil
}

// translateCell moves the geometry of c. Relative vertices move by their
// offset.
func (g *Graph) translateCell(c *model.Cell, dx, dy float64) error {
	geo := c.Geometry()
	if geo == nil {
		return nil
	}
	geo = geo.Clone()
	geo.Translate(dx, dy)
	if geo.Relative && !c.IsEdge() {
		off := geom.Point{}
		if geo.Offset != nil {
			off = *geo.Offset
		}
		geo.Offset = &geom.Point{X: off.X + dx, Y: off.Y + dy}
	}
	return g.model.SetGeometry(c, geo)
}

// placeClones clones cells and expresses each clone in the coordinates of
// target. The clones are still detached, so their geometry is adjusted in
// place.
func (g *Graph) placeClones(cells []*model.Cell, target *model.Cell) []*model.Cell {
	o := model.Origin(target)
	var out []*model.Cell
	for i, c := range g.CloneCells(cells, g.opts.CloneInvalidEdges) {
		if c == nil {
			continue
		}
		if geo := c.Geometry(); geo != nil {
			po := model.Origin(cells[i].Parent())
			geo.Translate(po.X-o.X, po.Y-o.Y)
		}
		out = append(out, c)
	}
	return out
}
