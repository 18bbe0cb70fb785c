package model

import "slices"

// CloneCells returns detached deep copies of cells. Terminals pointing into
// the cloned set are remapped to the clones; terminals outside the set are
// dropped. Clones carry no id and receive a fresh one on insertion.
func CloneCells(cells []*Cell, includeChildren bool) []*Cell {
	mapping := make(map[*Cell]*Cell)
	clones := make([]*Cell, len(cells))
	for i, c := range cells {
		if c != nil {
			clones[i] = cloneCell(c, mapping, includeChildren)
		}
	}
	for _, c := range cells {
		if c != nil {
			restoreClone(c, mapping)
		}
	}
	return clones
}

func cloneCell(c *Cell, mapping map[*Cell]*Cell, includeChildren bool) *Cell {
	clone := &Cell{
		value:       c.value,
		geometry:    c.geometry.Clone(),
		style:       c.style.Clone(),
		vertex:      c.vertex,
		edge:        c.edge,
		visible:     c.visible,
		collapsed:   c.collapsed,
		connectable: c.connectable,
		overlays:    slices.Clone(c.overlays),
	}
	mapping[c] = clone
	if includeChildren {
		for _, child := range c.children {
			cc := cloneCell(child, mapping, true)
			cc.parent = clone
			clone.children = append(clone.children, cc)
		}
	}
	return clone
}

func restoreClone(c *Cell, mapping map[*Cell]*Cell) {
	clone := mapping[c]
	if clone == nil {
		return
	}
	if t, ok := mapping[c.source]; ok {
		clone.source = t
		t.edges = append(t.edges, clone)
	}
	if t, ok := mapping[c.target]; ok {
		clone.target = t
		if !slices.Contains(t.edges, clone) {
			t.edges = append(t.edges, clone)
		}
	}
	for _, child := range c.children {
		restoreClone(child, mapping)
	}
}

// DetachClone unlinks a cloned edge from the edge lists of its cloned
// terminals. Use it on clones that are dropped before insertion.
func DetachClone(edge *Cell) {
	for _, t := range []*Cell{edge.source, edge.target} {
		if t != nil {
			t.edges = slices.DeleteFunc(t.edges, func(e *Cell) bool { return e == edge })
		}
	}
	edge.source, edge.target = nil, nil
}
