package model

import "github.com/inamate/diagram/internal/style"

// Change is a reversible change record. Executing a change applies its
// pending value and keeps the replaced value, so executing it again reverts
// it. Undo executes the records of an edit in reverse order, redo in order.
type Change interface {
	Execute()
	// Cells lists the cells directly affected by the change.
	Cells() []*Cell
	// Kind names the change for logging and metrics.
	Kind() string
}

// RootChange replaces the root of the model.
type RootChange struct {
	model    *Model
	Root     *Cell
	Previous *Cell
}

func newRootChange(m *Model, root *Cell) *RootChange {
	return &RootChange{model: m, Root: root, Previous: root}
}

func (c *RootChange) Execute() {
	c.Root = c.Previous
	c.Previous = c.model.rootChanged(c.Previous)
}

func (c *RootChange) Cells() []*Cell { return nonNil(c.Root, c.Previous) }
func (c *RootChange) Kind() string   { return "root" }

// ChildChange adds, removes or moves a child. A nil Parent detaches Child.
type ChildChange struct {
	model         *Model
	Child         *Cell
	Parent        *Cell
	Previous      *Cell
	Index         int
	PreviousIndex int
}

func newChildChange(m *Model, parent, child *Cell, index int) *ChildChange {
	return &ChildChange{
		model:         m,
		Child:         child,
		Parent:        parent,
		Previous:      parent,
		Index:         index,
		PreviousIndex: index,
	}
}

func (c *ChildChange) Execute() {
	old := c.Child.parent
	oldIndex := 0
	if old != nil {
		oldIndex = old.IndexOf(c.Child)
	}

	if c.Previous == nil {
		c.model.connectEdges(c.Child, false)
	}
	old = c.model.parentForCellChanged(c.Child, c.Previous, c.PreviousIndex)
	if c.Previous != nil {
		c.model.connectEdges(c.Child, true)
	}

	c.Parent = c.Previous
	c.Previous = old
	c.Index = c.PreviousIndex
	c.PreviousIndex = oldIndex
}

func (c *ChildChange) Cells() []*Cell { return nonNil(c.Child, c.Parent, c.Previous) }
func (c *ChildChange) Kind() string   { return "child" }

// TerminalChange connects or disconnects one end of an edge.
type TerminalChange struct {
	model    *Model
	Cell     *Cell
	Terminal *Cell
	Previous *Cell
	Source   bool
}

func newTerminalChange(m *Model, edge, terminal *Cell, source bool) *TerminalChange {
	return &TerminalChange{model: m, Cell: edge, Terminal: terminal, Previous: terminal, Source: source}
}

func (c *TerminalChange) Execute() {
	c.Terminal = c.Previous
	c.Previous = c.model.terminalForCellChanged(c.Cell, c.Previous, c.Source)
}

func (c *TerminalChange) Cells() []*Cell { return []*Cell{c.Cell} }
func (c *TerminalChange) Kind() string   { return "terminal" }

// GeometryChange replaces the geometry of a cell.
type GeometryChange struct {
	Cell     *Cell
	Geometry *Geometry
	Previous *Geometry
}

func (c *GeometryChange) Execute() {
	c.Geometry = c.Previous
	c.Previous, c.Cell.geometry = c.Cell.geometry, c.Previous
}

func (c *GeometryChange) Cells() []*Cell { return []*Cell{c.Cell} }
func (c *GeometryChange) Kind() string   { return "geometry" }

// StyleChange replaces the style of a cell.
type StyleChange struct {
	Cell     *Cell
	Style    style.Style
	Previous style.Style
}

func (c *StyleChange) Execute() {
	c.Style = c.Previous
	c.Previous, c.Cell.style = c.Cell.style, c.Previous
}

func (c *StyleChange) Cells() []*Cell { return []*Cell{c.Cell} }
func (c *StyleChange) Kind() string   { return "style" }

// ValueChange replaces the user payload of a cell.
type ValueChange struct {
	Cell     *Cell
	Value    any
	Previous any
}

func (c *ValueChange) Execute() {
	c.Value = c.Previous
	c.Previous, c.Cell.value = c.Cell.value, c.Previous
}

func (c *ValueChange) Cells() []*Cell { return []*Cell{c.Cell} }
func (c *ValueChange) Kind() string   { return "value" }

// VisibleChange shows or hides a cell.
type VisibleChange struct {
	Cell     *Cell
	Visible  bool
	Previous bool
}

func (c *VisibleChange) Execute() {
	c.Visible = c.Previous
	c.Previous, c.Cell.visible = c.Cell.visible, c.Previous
}

func (c *VisibleChange) Cells() []*Cell { return []*Cell{c.Cell} }
func (c *VisibleChange) Kind() string   { return "visible" }

// CollapsedChange folds or unfolds a cell.
type CollapsedChange struct {
	Cell      *Cell
	Collapsed bool
	Previous  bool
}

func (c *CollapsedChange) Execute() {
	c.Collapsed = c.Previous
	c.Previous, c.Cell.collapsed = c.Cell.collapsed, c.Previous
}

func (c *CollapsedChange) Cells() []*Cell { return []*Cell{c.Cell} }
func (c *CollapsedChange) Kind() string   { return "collapsed" }

func nonNil(cells ...*Cell) []*Cell {
	out := cells[:0:0]
	for _, c := range cells {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
