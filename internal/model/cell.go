package model

import (
	"slices"

	"github.com/inamate/diagram/internal/style"
)

// Cell is a node of the diagram tree: the root, a layer, a vertex (a group
// when it has children) or an edge. Cells are created detached and become
// part of a model through Model.Add. Every field is mutated by the model's
// change records only.
type Cell struct {
	id          string
	value       any
	geometry    *Geometry
	style       style.Style
	vertex      bool
	edge        bool
	visible     bool
	collapsed   bool
	connectable bool

	parent   *Cell
	children []*Cell
	edges    []*Cell
	source   *Cell
	target   *Cell
	overlays []Overlay
}

// Overlay is an annotation marker attached to a cell. Overlays do not take
// part in transactions.
type Overlay struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"`
	Align   string `json:"align,omitempty"`
	OffsetX float64 `json:"offsetX,omitempty"`
	OffsetY float64 `json:"offsetY,omitempty"`
}

// NewCell returns a detached container cell, used for the root and layers.
func NewCell(id string, value any) *Cell {
	return &Cell{id: id, value: value, visible: true}
}

// NewVertex returns a detached vertex.
func NewVertex(id string, value any, geo *Geometry, st style.Style) *Cell {
	return &Cell{
		id:          id,
		value:       value,
		geometry:    geo,
		style:       st,
		vertex:      true,
		visible:     true,
		connectable: true,
	}
}

// NewEdge returns a detached, unconnected edge. Geometry defaults to a
// relative geometry when nil.
func NewEdge(id string, value any, geo *Geometry, st style.Style) *Cell {
	if geo == nil {
		geo = &Geometry{Relative: true}
	}
	return &Cell{
		id:       id,
		value:    value,
		geometry: geo,
		style:    st,
		edge:     true,
		visible:  true,
	}
}

func (c *Cell) ID() string            { return c.id }
func (c *Cell) Value() any            { return c.value }
func (c *Cell) Style() style.Style    { return c.style }
func (c *Cell) IsVertex() bool        { return c.vertex }
func (c *Cell) IsEdge() bool          { return c.edge }
func (c *Cell) IsVisible() bool       { return c.visible }
func (c *Cell) IsCollapsed() bool     { return c.collapsed }
func (c *Cell) IsConnectable() bool   { return c.connectable }
func (c *Cell) Parent() *Cell         { return c.parent }
func (c *Cell) ChildCount() int       { return len(c.children) }
func (c *Cell) EdgeCount() int        { return len(c.edges) }
func (c *Cell) Overlays() []Overlay   { return slices.Clone(c.overlays) }
func (c *Cell) Children() []*Cell     { return slices.Clone(c.children) }
func (c *Cell) Edges() []*Cell        { return slices.Clone(c.edges) }
func (c *Cell) SetConnectable(b bool) { c.connectable = b }

// Geometry returns the cell's geometry. Callers must Clone it before making
// changes and submit the copy through Model.SetGeometry.
func (c *Cell) Geometry() *Geometry { return c.geometry }

// ChildAt returns the child at index, or nil.
func (c *Cell) ChildAt(index int) *Cell {
	if index < 0 || index >= len(c.children) {
		return nil
	}
	return c.children[index]
}

// IndexOf returns the index of child, or -1.
func (c *Cell) IndexOf(child *Cell) int {
	return slices.Index(c.children, child)
}

// EdgeAt returns the connected edge at index, or nil.
func (c *Cell) EdgeAt(index int) *Cell {
	if index < 0 || index >= len(c.edges) {
		return nil
	}
	return c.edges[index]
}

// Terminal returns the source or target of an edge.
func (c *Cell) Terminal(source bool) *Cell {
	if source {
		return c.source
	}
	return c.target
}

func (c *Cell) Source() *Cell { return c.Terminal(true) }
func (c *Cell) Target() *Cell { return c.Terminal(false) }

func (c *Cell) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.id
}

// insert places child at index, detaching it from its previous parent first.
func (c *Cell) insert(child *Cell, index int) {
	if child.parent == c && index == len(c.children) {
		index--
	}
	child.removeFromParent()
	if index < 0 || index > len(c.children) {
		index = len(c.children)
	}
	child.parent = c
	c.children = slices.Insert(c.children, index, child)
}

func (c *Cell) removeFromParent() {
	if c.parent == nil {
		return
	}
	if i := c.parent.IndexOf(c); i >= 0 {
		c.parent.children = slices.Delete(c.parent.children, i, i+1)
	}
	c.parent = nil
}

// insertEdge records edge as connected to c and sets c as its terminal.
func (c *Cell) insertEdge(edge *Cell, source bool) {
	edge.removeFromTerminal(source)
	edge.setTerminal(c, source)
	if !slices.Contains(c.edges, edge) {
		c.edges = append(c.edges, edge)
	}
}

// removeEdge drops edge from c's connected edges and clears the terminal
// reference on the edge.
func (c *Cell) removeEdge(edge *Cell, source bool) {
	if edge.Terminal(!source) != c {
		if i := slices.Index(c.edges, edge); i >= 0 {
			c.edges = slices.Delete(c.edges, i, i+1)
		}
	}
	edge.setTerminal(nil, source)
}

func (c *Cell) removeFromTerminal(source bool) {
	if t := c.Terminal(source); t != nil {
		t.removeEdge(c, source)
	}
}

func (c *Cell) setTerminal(t *Cell, source bool) {
	if source {
		c.source = t
	} else {
		c.target = t
	}
}
