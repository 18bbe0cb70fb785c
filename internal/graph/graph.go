// Package graph implements the structural operations callers use to edit a
// diagram: insert, move, resize, fold, group, connect, remove and friends.
// Every operation filters its input by the style preconditions first, then
// runs as one transaction of model primitives.
//
// The package depends on the model, the validator and the view only through
// the narrow interfaces below, so each operation needs no more than the
// capabilities it uses.
package graph

import (
	"log/slog"
	"math"

	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
	"github.com/inamate/diagram/internal/view"
)

// CellReader resolves cells and the shape of the tree.
type CellReader interface {
	Root() *model.Cell
	DefaultParent() *model.Cell
	Contains(cell *model.Cell) bool
	IsLayer(cell *model.Cell) bool
	CellByID(id string) *model.Cell
}

// CellMutator is the transactional write surface of a model.
type CellMutator interface {
	CellReader
	Update(fn func() error) error
	Add(parent, child *model.Cell, index int) error
	Remove(cell *model.Cell) error
	SetTerminal(edge, terminal *model.Cell, source bool) error
	SetGeometry(cell *model.Cell, geo *model.Geometry) error
	SetStyle(cell *model.Cell, st style.Style) error
	SetValue(cell *model.Cell, value any) error
	SetCollapsed(cell *model.Cell, collapsed bool) error
	SetVisible(cell *model.Cell, visible bool) error
}

// ValidationProvider decides whether an edge may connect two terminals.
type ValidationProvider interface {
	EdgeValidationError(edge, source, target *model.Cell) (reason string, invalid bool)
}

// ViewQuery exposes the rendered states operations read positions from.
type ViewQuery interface {
	State(cell *model.Cell) *view.CellState
	Scale() float64
	Translate() geom.Point
}

// CollapsedHeight is the height of a folded cell without a preferred size.
const CollapsedHeight = 30.0

// Options toggles the housekeeping the operations perform.
type Options struct {
	GridSize    float64
	GridEnabled bool

	// ExtendParents grows a parent to contain a moved or resized child.
	ExtendParents      bool
	ExtendParentsOnAdd bool
	// ConstrainChildren keeps children inside their parent's bounds.
	ConstrainChildren         bool
	ConstrainRelativeChildren bool
	MaximumGraphBounds        *geom.Rect

	ResetEdgesOnConnect bool
	ResetEdgesOnMove    bool
	ResetEdgesOnResize  bool
	DisconnectOnMove    bool

	PortsEnabled             bool
	CloneInvalidEdges        bool
	AllowNegativeCoordinates bool
	CollapseToPreferredSize  bool

	// PreferredSize returns the content size of a cell when the host can
	// measure it.
	PreferredSize func(cell *model.Cell) (width, height float64, ok bool)
	// IsPort reports whether a terminal is a port standing in for its
	// parent. The default treats relative child vertices as ports.
	IsPort func(cell *model.Cell) bool
}

// DefaultOptions returns the standard editing behavior.
func DefaultOptions() Options {
	return Options{
		GridSize:                 10,
		GridEnabled:              true,
		ExtendParents:            true,
		ExtendParentsOnAdd:       true,
		ConstrainChildren:        true,
		ResetEdgesOnConnect:      true,
		DisconnectOnMove:         true,
		PortsEnabled:             true,
		AllowNegativeCoordinates: true,
		CollapseToPreferredSize:  true,
	}
}

// Graph runs structural operations against a model.
type Graph struct {
	model     CellMutator
	view      ViewQuery
	validator ValidationProvider
	opts      Options
	logger    *slog.Logger
}

// New returns a Graph operating on m. v supplies rendered positions and val
// checks connections.
func New(m CellMutator, v ViewQuery, val ValidationProvider, opts Options) *Graph {
	return &Graph{model: m, view: v, validator: val, opts: opts, logger: slog.Default()}
}

func (g *Graph) Options() Options { return g.opts }

func (g *Graph) SetOptions(opts Options) { g.opts = opts }

// SetLogger replaces the logger used for operation tracing.
func (g *Graph) SetLogger(l *slog.Logger) { g.logger = l }

// Snap rounds v to the grid when the grid is enabled.
func (g *Graph) Snap(v float64) float64 {
	if g.opts.GridEnabled && g.opts.GridSize > 0 {
		return math.Round(v/g.opts.GridSize) * g.opts.GridSize
	}
	return v
}

func (g *Graph) isExtendParent(c *model.Cell) bool {
	return g.opts.ExtendParents && !c.IsEdge()
}

func (g *Graph) isConstrainChild(c *model.Cell) bool {
	return g.opts.ConstrainChildren && (c.Parent() == nil || !c.Parent().IsEdge())
}

func (g *Graph) isPort(c *model.Cell) bool {
	if c == nil {
		return false
	}
	if g.opts.IsPort != nil {
		return g.opts.IsPort(c)
	}
	geo := c.Geometry()
	return c.IsVertex() && geo != nil && geo.Relative && c.Parent() != nil && c.Parent().IsVertex()
}

// ConnectionTerminal returns the cell an edge ends up attached to when it
// connects to c. With ports enabled a port resolves to its parent.
func (g *Graph) ConnectionTerminal(c *model.Cell) *model.Cell {
	if g.opts.PortsEnabled && g.isPort(c) {
		return c.Parent()
	}
	return c
}

func isCellFoldable(c *model.Cell) bool {
	return c.ChildCount() > 0 && c.Style().IsFoldable()
}

func isSwimlane(c *model.Cell) bool {
	return c != nil && c.Style().Shape == "swimlane"
}

// startSize returns the title area of a swimlane as a width and a height,
// one of which is zero.
func startSize(c *model.Cell) (w, h float64) {
	if !isSwimlane(c) {
		return 0, 0
	}
	s := c.Style()
	if s.IsHorizontal() {
		return 0, s.StartSize
	}
	return s.StartSize, 0
}

func filter(cells []*model.Cell, fn func(*model.Cell) bool) []*model.Cell {
	var out []*model.Cell
	for _, c := range cells {
		if c != nil && fn(c) {
			out = append(out, c)
		}
	}
	return out
}

func setOf(cells []*model.Cell) map[*model.Cell]bool {
	out := make(map[*model.Cell]bool, len(cells))
	for _, c := range cells {
		if c != nil {
			out[c] = true
		}
	}
	return out
}

// inSet reports whether c or one of its ancestors is in set.
func inSet(set map[*model.Cell]bool, c *model.Cell) bool {
	for ; c != nil; c = c.Parent() {
		if set[c] {
			return true
		}
	}
	return false
}

// allEdges returns the edges connected to cells or any of their
// descendants, each once.
func allEdges(cells []*model.Cell) []*model.Cell {
	seen := make(map[*model.Cell]bool)
	var out []*model.Cell
	var walk func(c *model.Cell)
	walk = func(c *model.Cell) {
		for _, e := range c.Edges() {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
		for _, child := range c.Children() {
			walk(child)
		}
	}
	for _, c := range cells {
		if c != nil {
			walk(c)
		}
	}
	return out
}
