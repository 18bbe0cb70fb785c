package model

// EventKind identifies a model notification.
type EventKind int

const (
	// EventBeforeUndo fires at commit, before the edit joins the history.
	EventBeforeUndo EventKind = iota
	// EventChange fires once per outermost commit, undo, redo or rollback.
	EventChange
)

// EventOrigin tells listeners what produced a change event.
type EventOrigin int

const (
	OriginEdit EventOrigin = iota
	OriginUndo
	OriginRedo
	OriginRollback
)

func (o EventOrigin) String() string {
	switch o {
	case OriginUndo:
		return "undo"
	case OriginRedo:
		return "redo"
	case OriginRollback:
		return "rollback"
	default:
		return "edit"
	}
}

// Event is delivered synchronously to subscribers.
type Event struct {
	Kind   EventKind
	Origin EventOrigin
	Edit   *Edit
	// Cells lists every cell touched by the edit, directly or as an old or
	// new parent. Consumers extend this to descendants and connected edges.
	Cells []*Cell
}

// Edit is the ordered change log of one transaction.
type Edit struct {
	ID      string
	Changes []Change

	rolledBack bool
}

func newEdit() *Edit { return &Edit{} }

func (e *Edit) add(c Change) { e.Changes = append(e.Changes, c) }

// IsEmpty reports whether the edit holds no changes.
func (e *Edit) IsEmpty() bool { return len(e.Changes) == 0 }

// Cells returns the distinct cells touched by the edit in first-seen order.
func (e *Edit) Cells() []*Cell {
	seen := make(map[*Cell]struct{})
	var out []*Cell
	for _, c := range e.Changes {
		for _, cell := range c.Cells() {
			if _, ok := seen[cell]; ok {
				continue
			}
			seen[cell] = struct{}{}
			out = append(out, cell)
		}
	}
	return out
}

// revert executes the changes in reverse order, restoring the state before
// the edit.
func (e *Edit) revert() {
	for i := len(e.Changes) - 1; i >= 0; i-- {
		e.Changes[i].Execute()
	}
	e.rolledBack = true
}

// History is a bounded undo stack. Index points just past the most recent
// applied edit; entries from Index onward are redoable.
type History struct {
	edits []*Edit
	index int
	size  int
}

func newHistory(size int) *History {
	return &History{size: size}
}

func (h *History) add(e *Edit) {
	h.edits = append(h.edits[:h.index], e)
	if h.size > 0 && len(h.edits) > h.size {
		h.edits = h.edits[len(h.edits)-h.size:]
	}
	h.index = len(h.edits)
}

func (h *History) undo() *Edit {
	if !h.CanUndo() {
		return nil
	}
	h.index--
	return h.edits[h.index]
}

func (h *History) redo() *Edit {
	if !h.CanRedo() {
		return nil
	}
	e := h.edits[h.index]
	h.index++
	return e
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.edits) }

// Len returns the number of recorded edits, undone ones included.
func (h *History) Len() int { return len(h.edits) }

// Clear drops every recorded edit.
func (h *History) Clear() {
	h.edits = nil
	h.index = 0
}
