package validate

import (
	"fmt"

	"github.com/inamate/diagram/internal/model"
)

// Unbounded is the Max of a rule without an upper limit.
const Unbounded = -1

// Typed is implemented by cell values that carry a type name and
// attributes for multiplicity matching.
type Typed interface {
	Type() string
	Attr(name string) (string, bool)
}

// Multiplicity is a cardinality rule for the edges leaving (Source) or
// entering a terminal whose value matches Type and, if Attr is set, has
// Attr equal to Value.
type Multiplicity struct {
	Source bool
	Type   string
	Attr   string
	Value  string

	Min int
	Max int

	// ValidNeighbors lists the types allowed at the opposite end. With
	// NeighborsForbidden the list names forbidden types instead.
	ValidNeighbors     []string
	NeighborsForbidden bool

	CountError string
	TypeError  string
}

// check returns the reasons this rule rejects an edge between source and
// target, given the directed counts that exclude the edge itself.
func (r Multiplicity) check(edge, source, target *model.Cell, sourceOut, targetIn int) []string {
	terminal := target
	count := targetIn
	if r.Source {
		terminal, count = source, sourceOut
	}
	if !r.matches(terminal) {
		return nil
	}

	var reasons []string
	if r.CountError != "" && r.Max != Unbounded && (r.Max == 0 || count >= r.Max) {
		reasons = append(reasons, r.CountError)
	}
	if len(r.ValidNeighbors) > 0 && r.TypeError != "" && !r.checkNeighbors(source, target) {
		reasons = append(reasons, r.TypeError)
	}
	return reasons
}

func (r Multiplicity) checkNeighbors(source, target *model.Cell) bool {
	opposite := target
	if !r.Source {
		opposite = source
	}
	for _, n := range r.ValidNeighbors {
		if typeOf(opposite) == n {
			return !r.NeighborsForbidden
		}
	}
	return r.NeighborsForbidden
}

func (r Multiplicity) matches(cell *model.Cell) bool {
	if cell == nil || typeOf(cell) != r.Type {
		return false
	}
	if r.Attr == "" {
		return true
	}
	v, ok := attrOf(cell, r.Attr)
	return ok && v == r.Value
}

// typeOf derives the type name of a cell value: Typed values report their
// own, maps use their "type" entry and other values their formatted form.
func typeOf(cell *model.Cell) string {
	switch v := cell.Value().(type) {
	case nil:
		return ""
	case Typed:
		return v.Type()
	case map[string]any:
		s, _ := v["type"].(string)
		return s
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func attrOf(cell *model.Cell, name string) (string, bool) {
	switch v := cell.Value().(type) {
	case Typed:
		return v.Attr(name)
	case map[string]any:
		a, ok := v[name]
		if !ok {
			return "", false
		}
		return fmt.Sprint(a), true
	}
	return "", false
}
