// Package view keeps one derived CellState per visible cell of a model.
// Commits mark the affected states invalid; queries recompute them lazily,
// ancestors before children and terminals before the edges that use them.
package view

import (
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/metrics"
	"github.com/inamate/diagram/internal/model"
)

// DefaultTolerance is the hit tolerance for edges in screen units.
const DefaultTolerance = 4.0

// View is the state cache of a model. It is not safe for concurrent use.
type View struct {
	model     *model.Model
	states    map[*model.Cell]*CellState
	scale     float64
	translate geom.Point
	tolerance float64

	// computing guards against edges whose terminals are edges pointing
	// back at them.
	computing map[*model.Cell]bool

	depth     int
	changed   []string
	listeners []func([]string)

	unsubscribe func()
}

// Option configures a View.
type Option func(*View)

// WithTolerance sets the edge hit tolerance.
func WithTolerance(t float64) Option {
	return func(v *View) { v.tolerance = t }
}

// New creates a view over m and subscribes it to m's change events.
func New(m *model.Model, opts ...Option) *View {
	v := &View{
		model:     m,
		states:    make(map[*model.Cell]*CellState),
		scale:     1,
		tolerance: DefaultTolerance,
		computing: make(map[*model.Cell]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.unsubscribe = m.Subscribe(v.onModelEvent)
	return v
}

// Close detaches the view from the model.
func (v *View) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

func (v *View) Model() *model.Model { return v.model }

func (v *View) Scale() float64 { return v.scale }

func (v *View) Translate() geom.Point { return v.translate }

func (v *View) Tolerance() float64 { return v.tolerance }

func (v *View) SetTolerance(t float64) { v.tolerance = t }

// ScaleAndTranslate changes the view transform and invalidates every state.
func (v *View) ScaleAndTranslate(scale float64, translate geom.Point) {
	if scale <= 0 || !geom.IsFinite(scale) || !translate.IsFinite() {
		return
	}
	if scale == v.scale && translate == v.translate {
		return
	}
	v.scale = scale
	v.translate = translate
	v.InvalidateAll()
}

// Subscribe registers fn to receive the ids of states recomputed or
// dropped by each query that revalidated the cache.
func (v *View) Subscribe(fn func(ids []string)) {
	v.listeners = append(v.listeners, fn)
}

func (v *View) onModelEvent(e model.Event) {
	if e.Kind != model.EventChange {
		return
	}
	for _, c := range e.Edit.Changes {
		if _, ok := c.(*model.RootChange); ok {
			v.Reset()
			return
		}
	}
	visited := make(map[*model.Cell]bool)
	for _, c := range e.Cells {
		v.invalidate(c, visited)
	}
}

// Reset drops every cached state.
func (v *View) Reset() {
	for c, st := range v.states {
		v.drop(c, st)
	}
}

// Invalidate marks the state of cell, its descendants and every edge
// connected to any of them as invalid.
func (v *View) Invalidate(cell *model.Cell) {
	v.invalidate(cell, make(map[*model.Cell]bool))
}

func (v *View) invalidate(cell *model.Cell, visited map[*model.Cell]bool) {
	if cell == nil || visited[cell] {
		return
	}
	visited[cell] = true
	if st, ok := v.states[cell]; ok {
		switch {
		case !v.model.Contains(cell):
			v.drop(cell, st)
		case !st.invalid:
			st.invalid = true
			metrics.StatesInvalidated.Inc()
		}
	}
	for _, child := range cell.Children() {
		v.invalidate(child, visited)
	}
	for _, edge := range cell.Edges() {
		v.invalidate(edge, visited)
	}
	if p := cell.Parent(); p != nil && cell.ID() != "" {
		for _, edge := range p.Edges() {
			if st := edge.Style(); st.SourcePort == cell.ID() || st.TargetPort == cell.ID() {
				v.invalidate(edge, visited)
			}
		}
	}
}

// InvalidateAll marks every cached state invalid.
func (v *View) InvalidateAll() {
	for _, st := range v.states {
		if !st.invalid {
			st.invalid = true
			metrics.StatesInvalidated.Inc()
		}
	}
}

// Cached returns the cached state of cell without revalidating it. The
// second result reports whether the state is currently valid.
func (v *View) Cached(cell *model.Cell) (*CellState, bool) {
	st, ok := v.states[cell]
	if !ok {
		return nil, false
	}
	return st, !st.invalid
}

// State returns the valid state of cell, recomputing it and its ancestors
// as needed. It returns nil for cells that are detached, hidden or inside a
// collapsed ancestor, and for edges whose terminals cannot be resolved.
func (v *View) State(cell *model.Cell) *CellState {
	v.begin()
	defer v.end()
	return v.state(cell)
}

// Validate revalidates every visible cell and drops states of cells that
// are no longer shown.
func (v *View) Validate() {
	v.begin()
	defer v.end()

	seen := make(map[*model.Cell]bool, len(v.states))
	var walk func(c *model.Cell)
	walk = func(c *model.Cell) {
		if v.state(c) == nil {
			return
		}
		seen[c] = true
		if c != v.model.Root() && c.IsCollapsed() {
			return
		}
		for _, child := range c.Children() {
			walk(child)
		}
	}
	if root := v.model.Root(); root != nil {
		walk(root)
	}
	for c, st := range v.states {
		if !seen[c] {
			v.drop(c, st)
		}
	}
}

// States returns the valid states in paint order: parents before children,
// children in z-order.
func (v *View) States() []*CellState {
	v.begin()
	defer v.end()

	var out []*CellState
	var walk func(c *model.Cell)
	walk = func(c *model.Cell) {
		st := v.state(c)
		if st == nil {
			return
		}
		out = append(out, st)
		if c != v.model.Root() && c.IsCollapsed() {
			return
		}
		for _, child := range c.Children() {
			walk(child)
		}
	}
	if root := v.model.Root(); root != nil {
		walk(root)
	}
	return out
}

func (v *View) begin() { v.depth++ }

func (v *View) end() {
	v.depth--
	if v.depth > 0 || len(v.changed) == 0 {
		return
	}
	ids := v.changed
	v.changed = nil
	for _, fn := range v.listeners {
		fn(ids)
	}
}

func (v *View) drop(c *model.Cell, st *CellState) {
	delete(v.states, c)
	v.changed = append(v.changed, st.ID)
}

// IsCellShown reports whether cell is attached, visible and not inside a
// collapsed ancestor.
func (v *View) IsCellShown(cell *model.Cell) bool {
	if !v.model.Contains(cell) {
		return false
	}
	root := v.model.Root()
	for c := cell; c != nil && c != root; c = c.Parent() {
		if !c.IsVisible() {
			return false
		}
		if c != cell && c.IsCollapsed() {
			return false
		}
	}
	return true
}

func (v *View) state(cell *model.Cell) *CellState {
	if cell == nil {
		return nil
	}
	if !v.IsCellShown(cell) {
		if st, ok := v.states[cell]; ok {
			v.drop(cell, st)
		}
		return nil
	}
	if st, ok := v.states[cell]; ok && !st.invalid {
		return st
	}
	if v.computing[cell] {
		return nil
	}
	v.computing[cell] = true
	defer delete(v.computing, cell)

	var parent *CellState
	if p := cell.Parent(); p != nil {
		parent = v.state(p)
	}

	var st *CellState
	if cell.IsEdge() {
		st = v.computeEdge(cell, parent)
	} else {
		st = v.computeVertex(cell, parent)
	}

	if st == nil {
		if old, ok := v.states[cell]; ok {
			v.drop(cell, old)
		}
		return nil
	}
	v.states[cell] = st
	v.changed = append(v.changed, st.ID)
	metrics.StatesRevalidated.WithLabelValues(kindOf(cell)).Inc()
	return st
}

func kindOf(c *model.Cell) string {
	switch {
	case c.IsEdge():
		return "edge"
	case c.IsVertex():
		return "vertex"
	default:
		return "container"
	}
}

func (v *View) newState(cell *model.Cell, parent *CellState) *CellState {
	st := &CellState{
		Cell:  cell,
		ID:    cell.ID(),
		Style: cell.Style(),
	}
	if parent != nil {
		st.Origin = parent.Origin
	}
	return st
}

// computeVertex derives the absolute bounds of a vertex or container.
func (v *View) computeVertex(cell *model.Cell, parent *CellState) *CellState {
	st := v.newState(cell, parent)
	geo := cell.Geometry()
	if geo == nil {
		st.Bounds = geom.Rect{X: v.scale * (v.translate.X + st.Origin.X), Y: v.scale * (v.translate.Y + st.Origin.Y)}
		st.RotatedBounds = st.Bounds
		return st
	}

	var offset geom.Point
	if geo.Offset != nil {
		offset = *geo.Offset
	}

	switch {
	case geo.Relative && parent != nil && parent.IsEdge():
		p := parent.PointAt((geo.X + 1) / 2)
		st.Origin = geom.Point{
			X: p.X/v.scale - v.translate.X + offset.X,
			Y: p.Y/v.scale - v.translate.Y + offset.Y,
		}
	case geo.Relative && parent != nil:
		pw := parent.Bounds.Width / v.scale
		ph := parent.Bounds.Height / v.scale
		st.Origin.X += geo.X*pw + offset.X
		st.Origin.Y += geo.Y*ph + offset.Y
	default:
		st.AbsoluteOffset = offset.Mul(v.scale)
		st.Origin.X += geo.X
		st.Origin.Y += geo.Y
	}

	st.Bounds = geom.Rect{
		X:      v.scale * (v.translate.X + st.Origin.X),
		Y:      v.scale * (v.translate.Y + st.Origin.Y),
		Width:  v.scale * geo.Width,
		Height: v.scale * geo.Height,
	}
	st.Rotation = st.Style.Rotation
	st.RotatedBounds = st.Bounds.RotatedBounds(st.Rotation)
	return st
}
