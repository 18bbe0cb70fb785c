// Package validate decides whether an edge may connect a given source and
// target, and whether a vertex satisfies its cardinality rules.
package validate

import (
	"strings"

	"github.com/inamate/diagram/internal/model"
)

// DefaultAlreadyConnected is reported for parallel edges when multigraphs
// are disabled.
const DefaultAlreadyConnected = "Nodes already connected"

// Options are the connectivity policies of a graph.
type Options struct {
	AllowDanglingEdges bool
	AllowLoops         bool
	Multigraph         bool
	// ConnectableEdges lets edges act as terminals of other edges.
	ConnectableEdges bool
}

// DefaultOptions allows dangling edges and parallel edges but not loops.
func DefaultOptions() Options {
	return Options{AllowDanglingEdges: true, Multigraph: true}
}

// Validator evaluates connection policies and multiplicity rules.
type Validator struct {
	opts  Options
	rules []Multiplicity

	// AlreadyConnected is the reason reported for parallel edges.
	AlreadyConnected string

	// ConnectionCheck, if set, is consulted after the built-in terminal
	// checks. Returning false rejects the connection silently.
	ConnectionCheck func(source, target *model.Cell) bool

	// EdgeHook, if set, contributes additional reasons for an otherwise
	// complete connection. An empty return adds nothing.
	EdgeHook func(edge, source, target *model.Cell) string
}

// New creates a validator with the given options and rules.
func New(opts Options, rules ...Multiplicity) *Validator {
	return &Validator{
		opts:             opts,
		rules:            rules,
		AlreadyConnected: DefaultAlreadyConnected,
	}
}

func (v *Validator) Options() Options { return v.opts }

func (v *Validator) SetOptions(opts Options) { v.opts = opts }

func (v *Validator) Rules() []Multiplicity { return append([]Multiplicity(nil), v.rules...) }

func (v *Validator) AddRule(rule Multiplicity) { v.rules = append(v.rules, rule) }

// IsCellConnectable reports whether cell accepts connections.
func (v *Validator) IsCellConnectable(cell *model.Cell) bool {
	return cell.IsConnectable() && !cell.Style().Locked
}

// IsValidSource reports whether cell may be the source of an edge. A nil
// cell is valid when dangling edges are allowed.
func (v *Validator) IsValidSource(cell *model.Cell) bool {
	if cell == nil {
		return v.opts.AllowDanglingEdges
	}
	return (!cell.IsEdge() || v.opts.ConnectableEdges) && v.IsCellConnectable(cell)
}

// IsValidTarget reports whether cell may be the target of an edge.
func (v *Validator) IsValidTarget(cell *model.Cell) bool {
	return v.IsValidSource(cell)
}

// IsValidConnection reports whether source and target are acceptable
// terminals, including the ConnectionCheck hook.
func (v *Validator) IsValidConnection(source, target *model.Cell) bool {
	if !v.IsValidSource(source) || !v.IsValidTarget(target) {
		return false
	}
	return v.ConnectionCheck == nil || v.ConnectionCheck(source, target)
}

// EdgeValidationError evaluates connecting edge from source to target.
// invalid is false when the connection is allowed. An invalid result with
// an empty reason is a silent rejection; otherwise reason holds one line
// per violated rule.
func (v *Validator) EdgeValidationError(edge, source, target *model.Cell) (reason string, invalid bool) {
	if edge != nil && !v.opts.AllowDanglingEdges && (source == nil || target == nil) {
		return "", true
	}
	if source == nil && target == nil {
		return "", false
	}
	if !v.opts.AllowLoops && source == target {
		return "", true
	}
	if !v.IsValidConnection(source, target) {
		return "", true
	}
	if source == nil || target == nil {
		return "", !v.opts.AllowDanglingEdges
	}

	var reasons []string
	if !v.opts.Multigraph {
		for _, e := range model.EdgesBetween(source, target, true) {
			if e != edge {
				reasons = append(reasons, v.AlreadyConnected)
				break
			}
		}
	}

	sourceOut := DirectedEdgeCount(source, true, edge)
	targetIn := DirectedEdgeCount(target, false, edge)
	for _, rule := range v.rules {
		reasons = append(reasons, rule.check(edge, source, target, sourceOut, targetIn)...)
	}

	if v.EdgeHook != nil {
		if msg := v.EdgeHook(edge, source, target); msg != "" {
			reasons = append(reasons, msg)
		}
	}
	if len(reasons) == 0 {
		return "", false
	}
	return strings.Join(reasons, "\n"), true
}

// IsEdgeValid reports whether EdgeValidationError accepts the connection.
func (v *Validator) IsEdgeValid(edge, source, target *model.Cell) bool {
	_, invalid := v.EdgeValidationError(edge, source, target)
	return !invalid
}

// CellValidationError checks the edge counts of cell against every rule
// whose matcher accepts it.
func (v *Validator) CellValidationError(cell *model.Cell) (reason string, invalid bool) {
	out := DirectedEdgeCount(cell, true, nil)
	in := DirectedEdgeCount(cell, false, nil)

	var reasons []string
	for _, rule := range v.rules {
		if !rule.matches(cell) {
			continue
		}
		count := in
		if rule.Source {
			count = out
		}
		if count < rule.Min || (rule.Max != Unbounded && count > rule.Max) {
			reasons = append(reasons, rule.CountError)
		}
	}
	if len(reasons) == 0 {
		return "", false
	}
	return strings.Join(reasons, "\n"), true
}

// ValidateGraph checks every edge and vertex below cell and returns the
// reasons keyed by cell id. Silent rejections are reported with an empty
// reason.
func (v *Validator) ValidateGraph(cell *model.Cell) map[string]string {
	out := make(map[string]string)
	for _, c := range model.Descendants(cell) {
		var (
			reason  string
			invalid bool
		)
		switch {
		case c.IsEdge():
			reason, invalid = v.EdgeValidationError(c, c.Source(), c.Target())
		case c.IsVertex():
			reason, invalid = v.CellValidationError(c)
		}
		if invalid {
			out[c.ID()] = reason
		}
	}
	return out
}

// DirectedEdgeCount counts the edges that have cell as their source
// (outgoing) or target, skipping ignored.
func DirectedEdgeCount(cell *model.Cell, outgoing bool, ignored *model.Cell) int {
	n := 0
	for _, e := range cell.Edges() {
		if e != ignored && e.Terminal(outgoing) == cell {
			n++
		}
	}
	return n
}
