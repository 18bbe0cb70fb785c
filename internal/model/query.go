package model

import (
	"slices"

	"github.com/inamate/diagram/internal/geom"
)

// IsAncestor reports whether parent is child or one of its ancestors.
func IsAncestor(parent, child *Cell) bool {
	for child != nil && child != parent {
		child = child.parent
	}
	return child != nil
}

// Contains reports whether cell is reachable from the root.
func (m *Model) Contains(cell *Cell) bool {
	return m.root != nil && cell != nil && IsAncestor(m.root, cell)
}

// IsRoot reports whether cell is the root.
func (m *Model) IsRoot(cell *Cell) bool {
	return cell != nil && cell == m.root
}

// IsLayer reports whether cell is a direct child of the root.
func (m *Model) IsLayer(cell *Cell) bool {
	return cell != nil && m.root != nil && cell.parent == m.root
}

// Layers returns the children of the root.
func (m *Model) Layers() []*Cell {
	if m.root == nil {
		return nil
	}
	return m.root.Children()
}

// Descendants returns cell and all of its descendants in pre-order.
func Descendants(cell *Cell) []*Cell {
	return FilterDescendants(cell, nil)
}

// FilterDescendants walks the subtree of cell in pre-order and returns the
// cells matching fn. A nil fn matches everything.
func FilterDescendants(cell *Cell, fn func(*Cell) bool) []*Cell {
	var out []*Cell
	var walk func(*Cell)
	walk = func(c *Cell) {
		if fn == nil || fn(c) {
			out = append(out, c)
		}
		for _, child := range c.children {
			walk(child)
		}
	}
	if cell != nil {
		walk(cell)
	}
	return out
}

// FilterCells returns the non-nil cells matching fn.
func FilterCells(cells []*Cell, fn func(*Cell) bool) []*Cell {
	var out []*Cell
	for _, c := range cells {
		if c != nil && fn(c) {
			out = append(out, c)
		}
	}
	return out
}

// ChildVertices returns the vertex children of parent.
func ChildVertices(parent *Cell) []*Cell {
	return FilterCells(parent.children, (*Cell).IsVertex)
}

// ChildEdges returns the edge children of parent.
func ChildEdges(parent *Cell) []*Cell {
	return FilterCells(parent.children, (*Cell).IsEdge)
}

// Edges returns the edges connected to cell filtered by direction. Loops are
// returned when includeLoops is set, regardless of direction.
func Edges(cell *Cell, incoming, outgoing, includeLoops bool) []*Cell {
	var out []*Cell
	for _, e := range cell.edges {
		src, trg := e.source, e.target
		switch {
		case src == cell && trg == cell:
			if includeLoops {
				out = append(out, e)
			}
		case (incoming && trg == cell) || (outgoing && src == cell):
			out = append(out, e)
		}
	}
	return out
}

// DirectedEdges returns the outgoing or incoming edges of cell, loops
// excluded.
func DirectedEdges(cell *Cell, outgoing bool) []*Cell {
	return Edges(cell, !outgoing, outgoing, false)
}

// EdgesBetween returns the edges connecting a and b. When directed is set,
// only edges from a to b are returned.
func EdgesBetween(a, b *Cell, directed bool) []*Cell {
	var out []*Cell
	for _, e := range a.edges {
		if (e.source == a && e.target == b) || (!directed && e.source == b && e.target == a) {
			out = append(out, e)
		}
	}
	return out
}

// Opposites returns the terminals at the far end of edges as seen from
// terminal, without duplicates.
func Opposites(edges []*Cell, terminal *Cell, sources, targets bool) []*Cell {
	var out []*Cell
	for _, e := range edges {
		src, trg := e.source, e.target
		switch {
		case src == terminal && trg != nil && trg != terminal && targets:
			if !slices.Contains(out, trg) {
				out = append(out, trg)
			}
		case trg == terminal && src != nil && src != terminal && sources:
			if !slices.Contains(out, src) {
				out = append(out, src)
			}
		}
	}
	return out
}

// TopmostCells drops every cell that has an ancestor in cells.
func TopmostCells(cells []*Cell) []*Cell {
	set := make(map[*Cell]struct{}, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}
	var out []*Cell
	for _, c := range cells {
		top := true
		for p := c.parent; p != nil; p = p.parent {
			if _, ok := set[p]; ok {
				top = false
				break
			}
		}
		if top {
			out = append(out, c)
		}
	}
	return out
}

// NearestCommonAncestor returns the deepest cell that is an ancestor of both
// a and b, or nil when they live in different trees.
func NearestCommonAncestor(a, b *Cell) *Cell {
	if a == nil || b == nil {
		return nil
	}
	var path []*Cell
	for c := b; c != nil; c = c.parent {
		path = append(path, c)
	}
	for c := a; c != nil; c = c.parent {
		if slices.Contains(path, c) {
			return c
		}
	}
	return nil
}

// Origin sums the absolute geometries on the path from cell up to the root.
// Edges and relative geometries do not contribute.
func Origin(cell *Cell) geom.Point {
	var p geom.Point
	for c := cell; c != nil; c = c.parent {
		if g := c.geometry; g != nil && !c.edge && !g.Relative {
			p.X += g.X
			p.Y += g.Y
		}
	}
	return p
}
