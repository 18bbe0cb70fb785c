// Package model holds the authoritative diagram tree and the transaction
// machinery around it. Every mutation is a reversible change record that is
// appended to the open edit; the outermost EndUpdate commits the edit, pushes
// it onto the undo history and fires a single change notification.
package model

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/inamate/diagram/internal/metrics"
	"github.com/inamate/diagram/internal/style"
	"github.com/inamate/diagram/internal/typeid"
)

var (
	ErrNilCell         = errors.New("model: nil cell")
	ErrCycle           = errors.New("model: cell would become its own ancestor")
	ErrNotFinite       = errors.New("model: value is not a finite number")
	ErrInvalidGeometry = errors.New("model: invalid geometry")
	ErrInvalidTerminal = errors.New("model: invalid terminal")
	ErrUnknownCell     = errors.New("model: unknown cell")
)

// DefaultHistorySize is the undo capacity used when none is configured.
const DefaultHistorySize = 100

// Model owns the cell tree, the open edit and the undo history.
type Model struct {
	root  *Cell
	cells map[string]*Cell

	updateLevel  int
	endingUpdate bool
	edit         *Edit
	history      *History

	listeners    map[int]func(Event)
	listenerSeq  int
	listenerList []int

	maintainEdgeParent bool
	logger             *slog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithHistorySize sets the number of edits kept for undo. Zero or less keeps
// all edits.
func WithHistorySize(n int) Option {
	return func(m *Model) { m.history.size = n }
}

// WithLogger sets the logger used for commit and undo tracing.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithEdgeParentMaintenance toggles moving edges into the nearest common
// ancestor of their terminals whenever a terminal or parent changes.
func WithEdgeParentMaintenance(enabled bool) Option {
	return func(m *Model) { m.maintainEdgeParent = enabled }
}

// NewModel creates a model with a root cell and one default layer.
func NewModel(opts ...Option) *Model {
	m := &Model{
		cells:              make(map[string]*Cell),
		edit:               newEdit(),
		history:            newHistory(DefaultHistorySize),
		listeners:          make(map[int]func(Event)),
		maintainEdgeParent: true,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	root := NewCell("root", nil)
	root.insert(NewCell(typeid.NewLayerID(), nil), 0)
	m.rootChanged(root)
	return m
}

// Root returns the root cell.
func (m *Model) Root() *Cell { return m.root }

// History returns the undo history.
func (m *Model) History() *History { return m.history }

// CellByID returns the attached cell with the given id, or nil.
func (m *Model) CellByID(id string) *Cell { return m.cells[id] }

// DefaultParent returns the first layer, creating one if the root has none.
func (m *Model) DefaultParent() *Cell {
	if m.root == nil {
		return nil
	}
	if layer := m.root.ChildAt(0); layer != nil {
		return layer
	}
	layer := NewCell("", nil)
	_ = m.Add(m.root, layer, 0)
	return layer
}

// --- Transactions ---

// BeginUpdate opens a transaction or increments the depth of the open one.
func (m *Model) BeginUpdate() {
	m.updateLevel++
}

// EndUpdate closes one level of the open transaction. Closing the outermost
// level commits the edit: listeners receive EventBeforeUndo, the edit is
// pushed onto the history and listeners receive one EventChange.
func (m *Model) EndUpdate() {
	if m.updateLevel == 0 {
		m.logger.Warn("model: unbalanced EndUpdate")
		return
	}
	m.updateLevel--
	if m.updateLevel > 0 || m.endingUpdate {
		return
	}

	m.endingUpdate = true
	defer func() { m.endingUpdate = false }()

	edit := m.edit
	m.edit = newEdit()
	if edit.IsEmpty() {
		return
	}
	edit.ID = typeid.NewEditID()

	if edit.rolledBack {
		metrics.Commits.WithLabelValues(OriginRollback.String()).Inc()
		m.logger.Debug("model rollback", "edit", edit.ID, "changes", len(edit.Changes))
		m.fire(Event{Kind: EventChange, Origin: OriginRollback, Edit: edit, Cells: edit.Cells()})
		return
	}

	metrics.Commits.WithLabelValues(OriginEdit.String()).Inc()
	m.logger.Debug("model commit", "edit", edit.ID, "changes", len(edit.Changes))

	m.fire(Event{Kind: EventBeforeUndo, Origin: OriginEdit, Edit: edit})
	m.history.add(edit)
	m.fire(Event{Kind: EventChange, Origin: OriginEdit, Edit: edit, Cells: edit.Cells()})
}

// IsUpdating reports whether a transaction is open.
func (m *Model) IsUpdating() bool { return m.updateLevel > 0 }

// Update runs fn inside a transaction. The transaction depth is restored
// even if fn panics. If fn returns an error and this is the outermost level,
// the changes applied so far are reverted and no undo entry is recorded.
func (m *Model) Update(fn func() error) (err error) {
	m.BeginUpdate()
	outermost := m.updateLevel == 1
	defer func() {
		if err != nil && outermost {
			m.edit.revert()
		}
		m.EndUpdate()
	}()
	return fn()
}

func (m *Model) execute(c Change) {
	c.Execute()
	m.BeginUpdate()
	m.edit.add(c)
	m.EndUpdate()
	metrics.Changes.WithLabelValues(c.Kind()).Inc()
}

// --- Undo / redo ---

// Undo reverts the most recent edit. It returns false if there is nothing
// to undo.
func (m *Model) Undo() bool {
	edit := m.history.undo()
	if edit == nil {
		return false
	}
	m.replay(edit, OriginUndo)
	return true
}

// Redo reapplies the most recently undone edit. It returns false if there
// is nothing to redo.
func (m *Model) Redo() bool {
	edit := m.history.redo()
	if edit == nil {
		return false
	}
	m.replay(edit, OriginRedo)
	return true
}

func (m *Model) replay(edit *Edit, origin EventOrigin) {
	m.BeginUpdate()
	if origin == OriginUndo {
		for i := len(edit.Changes) - 1; i >= 0; i-- {
			edit.Changes[i].Execute()
		}
	} else {
		for _, c := range edit.Changes {
			c.Execute()
		}
	}
	m.EndUpdate()

	metrics.Commits.WithLabelValues(origin.String()).Inc()
	m.logger.Debug("model replay", "edit", edit.ID, "origin", origin.String(), "changes", len(edit.Changes))
	m.fire(Event{Kind: EventChange, Origin: origin, Edit: edit, Cells: edit.Cells()})
}

// --- Events ---

// Subscribe registers fn for every model event. The returned function
// removes the subscription.
func (m *Model) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.listenerSeq++
	id := m.listenerSeq
	m.listeners[id] = fn
	m.listenerList = append(m.listenerList, id)
	return func() {
		delete(m.listeners, id)
		for i, v := range m.listenerList {
			if v == id {
				m.listenerList = append(m.listenerList[:i], m.listenerList[i+1:]...)
				break
			}
		}
	}
}

func (m *Model) fire(e Event) {
	ids := append([]int(nil), m.listenerList...)
	for _, id := range ids {
		if fn, ok := m.listeners[id]; ok {
			fn(e)
		}
	}
}

// --- Primitives ---

// SetRoot replaces the whole tree.
func (m *Model) SetRoot(root *Cell) {
	m.execute(newRootChange(m, root))
}

// Clear replaces the tree with an empty root and one layer.
func (m *Model) Clear() {
	root := NewCell("root", nil)
	root.insert(NewCell("", nil), 0)
	m.SetRoot(root)
}

// Add inserts child into parent at index. A negative or out of range index
// appends. A child that already has a parent is moved.
func (m *Model) Add(parent, child *Cell, index int) error {
	if parent == nil || child == nil {
		return ErrNilCell
	}
	if IsAncestor(child, parent) {
		return fmt.Errorf("%w: %s into %s", ErrCycle, child, parent)
	}
	if index < 0 || index > parent.ChildCount() {
		index = parent.ChildCount()
	}

	m.BeginUpdate()
	defer m.EndUpdate()

	parentChanged := child.parent != parent
	m.execute(newChildChange(m, parent, child, index))
	if m.maintainEdgeParent && parentChanged {
		m.updateEdgeParents(child)
	}
	return nil
}

// Remove detaches cell from its parent. Removing the root clears the model.
func (m *Model) Remove(cell *Cell) error {
	if cell == nil {
		return ErrNilCell
	}
	if cell == m.root {
		m.SetRoot(nil)
		return nil
	}
	if cell.parent != nil {
		m.execute(newChildChange(m, nil, cell, 0))
	}
	return nil
}

// SetTerminal connects one end of edge to terminal, or disconnects it when
// terminal is nil.
func (m *Model) SetTerminal(edge, terminal *Cell, source bool) error {
	if edge == nil {
		return ErrNilCell
	}
	if terminal == edge {
		return fmt.Errorf("%w: %s cannot connect to itself", ErrInvalidTerminal, edge)
	}
	if edge.Terminal(source) == terminal {
		return nil
	}

	m.BeginUpdate()
	defer m.EndUpdate()

	m.execute(newTerminalChange(m, edge, terminal, source))
	if m.maintainEdgeParent {
		m.updateEdgeParent(edge)
	}
	return nil
}

// SetTerminals sets both ends of edge in one transaction.
func (m *Model) SetTerminals(edge, source, target *Cell) error {
	return m.Update(func() error {
		if err := m.SetTerminal(edge, source, true); err != nil {
			return err
		}
		return m.SetTerminal(edge, target, false)
	})
}

// SetGeometry replaces the geometry of cell. The model takes ownership of
// geo.
func (m *Model) SetGeometry(cell *Cell, geo *Geometry) error {
	if cell == nil {
		return ErrNilCell
	}
	if geo != nil {
		if err := geo.Validate(); err != nil {
			return fmt.Errorf("set geometry of %s: %w", cell, err)
		}
	}
	if geo.Equal(cell.geometry) {
		return nil
	}
	m.execute(&GeometryChange{Cell: cell, Geometry: geo, Previous: geo})
	return nil
}

// SetStyle replaces the style of cell.
func (m *Model) SetStyle(cell *Cell, st style.Style) error {
	if cell == nil {
		return ErrNilCell
	}
	if st.Equal(cell.style) {
		return nil
	}
	st = st.Clone()
	m.execute(&StyleChange{Cell: cell, Style: st, Previous: st})
	return nil
}

// SetValue replaces the user payload of cell.
func (m *Model) SetValue(cell *Cell, value any) error {
	if cell == nil {
		return ErrNilCell
	}
	if reflect.DeepEqual(cell.value, value) {
		return nil
	}
	m.execute(&ValueChange{Cell: cell, Value: value, Previous: value})
	return nil
}

// SetVisible shows or hides cell.
func (m *Model) SetVisible(cell *Cell, visible bool) error {
	if cell == nil {
		return ErrNilCell
	}
	if cell.visible == visible {
		return nil
	}
	m.execute(&VisibleChange{Cell: cell, Visible: visible, Previous: visible})
	return nil
}

// SetCollapsed folds or unfolds cell.
func (m *Model) SetCollapsed(cell *Cell, collapsed bool) error {
	if cell == nil {
		return ErrNilCell
	}
	if cell.collapsed == collapsed {
		return nil
	}
	m.execute(&CollapsedChange{Cell: cell, Collapsed: collapsed, Previous: collapsed})
	return nil
}

// AddOverlay attaches an overlay to cell. Overlays are not undoable.
func (m *Model) AddOverlay(cell *Cell, o Overlay) Overlay {
	if o.ID == "" {
		o.ID = typeid.NewOverlayID()
	}
	cell.overlays = append(cell.overlays, o)
	return o
}

// RemoveOverlay detaches the overlay with the given id. It reports whether
// an overlay was removed.
func (m *Model) RemoveOverlay(cell *Cell, id string) bool {
	for i, o := range cell.overlays {
		if o.ID == id {
			cell.overlays = append(cell.overlays[:i], cell.overlays[i+1:]...)
			return true
		}
	}
	return false
}

// --- Change callbacks ---

func (m *Model) rootChanged(root *Cell) *Cell {
	old := m.root
	m.root = root
	m.cells = make(map[string]*Cell)
	if root != nil {
		m.cellAdded(root)
	}
	return old
}

func (m *Model) parentForCellChanged(cell, parent *Cell, index int) *Cell {
	previous := cell.parent
	if parent != nil {
		if parent != previous || previous.IndexOf(cell) != index {
			parent.insert(cell, index)
		}
	} else if previous != nil {
		cell.removeFromParent()
	}

	parentContains := m.Contains(parent)
	previousContains := m.Contains(previous)
	if parentContains && !previousContains {
		m.cellAdded(cell)
	} else if previousContains && !parentContains {
		m.cellRemoved(cell)
	}
	return previous
}

func (m *Model) terminalForCellChanged(edge, terminal *Cell, source bool) *Cell {
	previous := edge.Terminal(source)
	if terminal != nil {
		terminal.insertEdge(edge, source)
	} else if previous != nil {
		previous.removeEdge(edge, source)
	}
	return previous
}

// connectEdges inserts or removes the edges in the subtree of cell from the
// edge lists of their terminals. The terminal references on the edges are
// kept so a later reattach restores the connections.
func (m *Model) connectEdges(cell *Cell, connect bool) {
	src, trg := cell.source, cell.target
	if src != nil {
		if connect {
			src.insertEdge(cell, true)
		} else {
			src.removeEdge(cell, true)
		}
	}
	if trg != nil {
		if connect {
			trg.insertEdge(cell, false)
		} else {
			trg.removeEdge(cell, false)
		}
	}
	cell.source, cell.target = src, trg

	for _, child := range cell.children {
		m.connectEdges(child, connect)
	}
}

func (m *Model) cellAdded(cell *Cell) {
	if existing, ok := m.cells[cell.id]; cell.id == "" || (ok && existing != cell) {
		cell.id = m.newID(cell)
	}
	m.cells[cell.id] = cell
	for _, child := range cell.children {
		m.cellAdded(child)
	}
}

func (m *Model) cellRemoved(cell *Cell) {
	if m.cells[cell.id] == cell {
		delete(m.cells, cell.id)
	}
	for _, child := range cell.children {
		m.cellRemoved(child)
	}
}

func (m *Model) newID(cell *Cell) string {
	for {
		var id string
		switch {
		case cell.edge:
			id = typeid.NewEdgeID()
		case cell.vertex:
			id = typeid.NewCellID()
		default:
			id = typeid.NewLayerID()
		}
		if _, taken := m.cells[id]; !taken {
			return id
		}
	}
}

// --- Edge parent maintenance ---

func (m *Model) updateEdgeParents(cell *Cell) {
	for _, child := range cell.Children() {
		m.updateEdgeParents(child)
	}
	for _, edge := range cell.Edges() {
		if m.Contains(edge) {
			m.updateEdgeParent(edge)
		}
	}
}

func (m *Model) updateEdgeParent(edge *Cell) {
	source := firstAbsolute(edge.source)
	target := firstAbsolute(edge.target)
	if !m.Contains(source) || !m.Contains(target) {
		return
	}

	var cell *Cell
	if source == target {
		cell = source.parent
	} else {
		cell = NearestCommonAncestor(source, target)
	}
	if cell == nil || cell == m.root || edge.parent == cell {
		return
	}
	if cell.parent == m.root && !IsAncestor(cell, edge) {
		return
	}

	if geo := edge.geometry; geo != nil {
		o1 := Origin(edge.parent)
		o2 := Origin(cell)
		geo = geo.Clone()
		geo.Translate(-(o2.X - o1.X), -(o2.Y - o1.Y))
		_ = m.SetGeometry(edge, geo)
	}
	_ = m.Add(cell, edge, cell.ChildCount())
}

// firstAbsolute walks up from relative children such as ports to the first
// cell with absolute geometry.
func firstAbsolute(c *Cell) *Cell {
	for c != nil && !c.edge && c.geometry != nil && c.geometry.Relative {
		c = c.parent
	}
	return c
}
