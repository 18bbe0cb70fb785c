package graph

import (
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

// InsertVertex creates a vertex and appends it to parent, or to the default
// layer when parent is nil.
func (g *Graph) InsertVertex(parent *model.Cell, id string, value any, x, y, w, h float64, st style.Style, relative bool) (*model.Cell, error) {
	geo := model.NewGeometry(x, y, w, h)
	geo.Relative = relative
	v := model.NewVertex(id, value, geo, st)
	if _, err := g.AddCells([]*model.Cell{v}, parent, -1, nil, nil); err != nil {
		return nil, err
	}
	return v, nil
}

// InsertEdge creates an edge from source to target and appends it to
// parent. Either terminal may be nil, in which case the matching terminal
// point of geo is used.
func (g *Graph) InsertEdge(parent *model.Cell, id string, value any, source, target *model.Cell, geo *model.Geometry, st style.Style) (*model.Cell, error) {
	if geo == nil {
		geo = &model.Geometry{Relative: true}
	}
	e := model.NewEdge(id, value, geo, st)
	if _, err := g.AddCells([]*model.Cell{e}, parent, -1, source, target); err != nil {
		return nil, err
	}
	return e, nil
}

// AddCells inserts cells into parent starting at index. A negative index
// appends. Non-nil source and target connect every added cell.
func (g *Graph) AddCells(cells []*model.Cell, parent *model.Cell, index int, source, target *model.Cell) ([]*model.Cell, error) {
	if parent == nil {
		parent = g.model.DefaultParent()
	}
	if index < 0 {
		index = parent.ChildCount()
	}
	err := g.model.Update(func() error {
		return g.cellsAdded(cells, parent, index, source, target, false, true, true)
	})
	return cells, err
}

// cellsAdded inserts cells into parent. With absolute set, cells coming from
// another parent keep their absolute position.
func (g *Graph) cellsAdded(cells []*model.Cell, parent *model.Cell, index int, source, target *model.Cell, absolute, constrain, extend bool) error {
	o1 := model.Origin(parent)
	for i, c := range cells {
		if c == nil {
			index--
			continue
		}
		previous := c.Parent()
		if absolute && previous != nil && c != parent && parent != previous {
			if geo := c.Geometry(); geo != nil {
				o2 := model.Origin(previous)
				geo = geo.Clone()
				geo.Translate(o2.X-o1.X, o2.Y-o1.Y)
				if !geo.Relative && c.IsVertex() && !g.opts.AllowNegativeCoordinates {
					geo.X = max(0, geo.X)
					geo.Y = max(0, geo.Y)
				}
				if err := g.model.SetGeometry(c, geo); err != nil {
					return err
				}
			}
		}

		// Moving within the same parent shifts the following indices.
		if parent == previous && index+i > parent.ChildCount() {
			index--
		}
		if err := g.model.Add(parent, c, index+i); err != nil {
			return err
		}

		if extend && g.opts.ExtendParentsOnAdd && g.isExtendParent(c) {
			if err := g.ExtendParent(c); err != nil {
				return err
			}
		}
		if constrain {
			if err := g.ConstrainChild(c); err != nil {
				return err
			}
		}
		if source != nil {
			if err := g.cellConnected(c, source, true, nil); err != nil {
				return err
			}
		}
		if target != nil {
			if err := g.cellConnected(c, target, false, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// CloneCells returns detached copies of the cloneable cells and their
// descendants. Edges keep terminals cloned alongside them; an end whose
// terminal stays behind gets a terminal point at its rendered position.
// The result is aligned with cells: entries that are not cloneable, and
// cloned edges failing validation unless invalid edges are allowed, are nil.
func (g *Graph) CloneCells(cells []*model.Cell, allowInvalidEdges bool) []*model.Cell {
	masked := make([]*model.Cell, len(cells))
	for i, c := range cells {
		if c != nil && c.Style().IsCloneable() {
			masked[i] = c
		}
	}
	cells = masked
	clones := model.CloneCells(cells, true)

	scale, tr := g.view.Scale(), g.view.Translate()
	set := setOf(cells)
	for i, clone := range clones {
		if clone == nil || !clone.IsEdge() || clone.Geometry() == nil {
			continue
		}
		st := g.view.State(cells[i])
		if st == nil || len(st.Points) == 0 {
			continue
		}
		geo := clone.Geometry()
		for _, source := range []bool{true, false} {
			if inSet(set, cells[i].Terminal(source)) {
				continue
			}
			p, _ := st.TerminalPoint(source)
			geo.SetTerminalPoint(&geom.Point{
				X: p.X/scale - tr.X - st.Origin.X,
				Y: p.Y/scale - tr.Y - st.Origin.Y,
			}, source)
		}
	}

	if !allowInvalidEdges && !g.opts.CloneInvalidEdges && g.validator != nil {
		for i, clone := range clones {
			if clone == nil || !clone.IsEdge() {
				continue
			}
			if reason, invalid := g.validator.EdgeValidationError(clone, clone.Source(), clone.Target()); invalid {
				g.logger.Debug("dropping invalid cloned edge", "edge", cells[i].ID(), "reason", reason)
				model.DetachClone(clone)
				clones[i] = nil
			}
		}
	}
	return clones
}
