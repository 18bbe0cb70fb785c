// Package document converts between a model and its JSON document form. It
// reads and writes the model through its public primitives only.
package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

var (
	ErrInvalidDocument    = errors.New("document: invalid document")
	ErrUnsupportedVersion = errors.New("document: unsupported version")
)

// Encode captures the tree of m. meta is copied into the document with the
// current format version.
func Encode(m *model.Model, meta Meta) *Document {
	meta.Version = FormatVersion
	doc := &Document{Meta: meta, Cells: []CellNode{}}
	root := m.Root()
	if root == nil {
		return doc
	}
	doc.Root = root.ID()

	var walk func(parent *model.Cell)
	walk = func(parent *model.Cell) {
		for _, c := range parent.Children() {
			doc.Cells = append(doc.Cells, nodeOf(c))
			walk(c)
		}
	}
	walk(root)
	return doc
}

func nodeOf(c *model.Cell) CellNode {
	n := CellNode{
		ID:          c.ID(),
		Kind:        CellKindLayer,
		Value:       c.Value(),
		Geometry:    c.Geometry().Clone(),
		Visible:     c.IsVisible(),
		Collapsed:   c.IsCollapsed(),
		Connectable: c.IsConnectable(),
	}
	if p := c.Parent(); p != nil {
		n.Parent = p.ID()
	}
	switch {
	case c.IsVertex():
		n.Kind = CellKindVertex
	case c.IsEdge():
		n.Kind = CellKindEdge
		if s := c.Source(); s != nil {
			n.Source = s.ID()
		}
		if t := c.Target(); t != nil {
			n.Target = t.ID()
		}
	}
	if st := c.Style().Map(); len(st) > 0 {
		n.Style = st
	}
	return n
}

// Decode replaces the content of m with doc in one transaction and clears
// the undo history. On error m is left as it was.
func Decode(m *model.Model, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if doc.Meta.Version > FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Meta.Version)
	}
	rootID := doc.Root
	if rootID == "" {
		rootID = "root"
	}
	root := model.NewCell(rootID, nil)
	cells := map[string]*model.Cell{rootID: root}

	err := m.Update(func() error {
		m.SetRoot(root)
		for _, n := range doc.Cells {
			if err := addNode(m, cells, n); err != nil {
				return err
			}
		}
		// Terminals may come later in the list than their edges.
		for _, n := range doc.Cells {
			if n.Kind != CellKindEdge {
				continue
			}
			edge := cells[n.ID]
			for _, end := range []struct {
				id     string
				source bool
			}{{n.Source, true}, {n.Target, false}} {
				if end.id == "" {
					continue
				}
				t, ok := cells[end.id]
				if !ok {
					return fmt.Errorf("%w: edge %s references unknown terminal %q", ErrInvalidDocument, n.ID, end.id)
				}
				if err := m.SetTerminal(edge, t, end.source); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.History().Clear()
	return nil
}

func addNode(m *model.Model, cells map[string]*model.Cell, n CellNode) error {
	if n.ID == "" {
		return fmt.Errorf("%w: cell without id", ErrInvalidDocument)
	}
	if _, dup := cells[n.ID]; dup {
		return fmt.Errorf("%w: duplicate id %q", ErrInvalidDocument, n.ID)
	}
	parent, ok := cells[n.Parent]
	if !ok {
		return fmt.Errorf("%w: cell %s has unknown parent %q", ErrInvalidDocument, n.ID, n.Parent)
	}
	st, err := style.FromMap(n.Style)
	if err != nil {
		return fmt.Errorf("%w: cell %s: %w", ErrInvalidDocument, n.ID, err)
	}
	if n.Geometry != nil {
		if err := n.Geometry.Validate(); err != nil {
			return fmt.Errorf("%w: cell %s: %w", ErrInvalidDocument, n.ID, err)
		}
	}

	var c *model.Cell
	switch n.Kind {
	case CellKindVertex:
		c = model.NewVertex(n.ID, n.Value, n.Geometry.Clone(), st)
	case CellKindEdge:
		c = model.NewEdge(n.ID, n.Value, n.Geometry.Clone(), st)
	case CellKindLayer, "":
		c = model.NewCell(n.ID, n.Value)
	default:
		return fmt.Errorf("%w: cell %s has unknown kind %q", ErrInvalidDocument, n.ID, n.Kind)
	}
	c.SetConnectable(n.Connectable)

	if err := m.Add(parent, c, -1); err != nil {
		return err
	}
	if err := m.SetVisible(c, n.Visible); err != nil {
		return err
	}
	if err := m.SetCollapsed(c, n.Collapsed); err != nil {
		return err
	}
	cells[n.ID] = c
	return nil
}

// Marshal encodes m as JSON.
func Marshal(m *model.Model, meta Meta) ([]byte, error) {
	return json.Marshal(Encode(m, meta))
}

// Unmarshal decodes data into m and returns the document metadata.
func Unmarshal(data []byte, m *model.Model) (Meta, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Meta{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := Decode(m, &doc); err != nil {
		return Meta{}, err
	}
	return doc.Meta, nil
}
