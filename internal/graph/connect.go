package graph

import (
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

// Constraint pins an edge end to a fractional point of its terminal. A nil
// Point clears an existing pin.
type Constraint struct {
	Point     *geom.Point
	Perimeter bool
}

// Outcome reports whether a validated operation was applied. Reason holds
// the validator's message when it was not; it may be empty.
type Outcome struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// ConnectCell connects one end of edge to terminal after checking the
// resulting connection. A rejected connection leaves the model untouched.
// A nil constraint keeps the current exit or entry point.
func (g *Graph) ConnectCell(edge, terminal *model.Cell, source bool, c *Constraint) (Outcome, error) {
	if edge == nil || !edge.IsEdge() {
		return Outcome{}, nil
	}
	if g.validator != nil {
		src, trg := edge.Source(), edge.Target()
		end := g.ConnectionTerminal(terminal)
		if source {
			src = end
		} else {
			trg = end
		}
		if reason, invalid := g.validator.EdgeValidationError(edge, src, trg); invalid {
			g.logger.Debug("connection rejected", "edge", edge.ID(), "reason", reason)
			return Outcome{Reason: reason}, nil
		}
	}
	err := g.model.Update(func() error {
		return g.cellConnected(edge, terminal, source, c)
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Applied: true}, nil
}

// cellConnected sets the terminal of edge. A port terminal is replaced by its
// parent and remembered in the edge style.
func (g *Graph) cellConnected(edge, terminal *model.Cell, source bool, c *Constraint) error {
	if err := g.setConnectionConstraint(edge, source, c); err != nil {
		return err
	}
	if g.opts.PortsEnabled {
		var port any
		if g.isPort(terminal) {
			port = terminal.ID()
			terminal = terminal.Parent()
		}
		key := style.KeyTargetPort
		if source {
			key = style.KeySourcePort
		}
		if err := g.SetCellStyles(string(key), port, []*model.Cell{edge}); err != nil {
			return err
		}
	}
	if err := g.model.SetTerminal(edge, terminal, source); err != nil {
		return err
	}
	if g.opts.ResetEdgesOnConnect {
		return g.resetEdge(edge)
	}
	return nil
}

func (g *Graph) setConnectionConstraint(edge *model.Cell, source bool, c *Constraint) error {
	if c == nil {
		return nil
	}
	kx, ky, kp := style.KeyEntryX, style.KeyEntryY, style.KeyEntryPerimeter
	if source {
		kx, ky, kp = style.KeyExitX, style.KeyExitY, style.KeyExitPerimeter
	}
	st := edge.Style().Clone()
	var err error
	if c.Point == nil {
		for _, k := range []style.Key{kx, ky, kp} {
			if err = st.Set(string(k), nil); err != nil {
				return err
			}
		}
	} else {
		if err = st.Set(string(kx), c.Point.X); err != nil {
			return err
		}
		if err = st.Set(string(ky), c.Point.Y); err != nil {
			return err
		}
		// Perimeter projection is the default, so only the opt-out is stored.
		var p any
		if !c.Perimeter {
			p = false
		}
		if err = st.Set(string(kp), p); err != nil {
			return err
		}
	}
	return g.model.SetStyle(edge, st)
}

// DisconnectGraph detaches the edges in cells from terminals outside cells,
// keeping each loose end at its rendered position.
func (g *Graph) DisconnectGraph(cells []*model.Cell) error {
	if len(cells) == 0 {
		return nil
	}
	return g.model.Update(func() error { return g.disconnectGraph(cells) })
}

func (g *Graph) disconnectGraph(cells []*model.Cell) error {
	scale, tr := g.view.Scale(), g.view.Translate()
	set := setOf(cells)
	for _, c := range cells {
		if !c.IsEdge() || c.Geometry() == nil {
			continue
		}
		st := g.view.State(c)
		pst := g.view.State(c.Parent())
		if st == nil || pst == nil || len(st.Points) == 0 {
			continue
		}
		geo := c.Geometry().Clone()
		changed := false
		for _, source := range []bool{true, false} {
			t := c.Terminal(source)
			if t == nil || t.Style().Locked || inSet(set, t) {
				continue
			}
			p, _ := st.TerminalPoint(source)
			geo.SetTerminalPoint(&geom.Point{
				X: p.X/scale - tr.X - pst.Origin.X,
				Y: p.Y/scale - tr.Y - pst.Origin.Y,
			}, source)
			if err := g.model.SetTerminal(c, nil, source); err != nil {
				return err
			}
			changed = true
		}
		if changed {
			if err := g.model.SetGeometry(c, geo); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResetEdges clears the control points of every edge connected to cells or
// their descendants that has at least one terminal outside cells.
func (g *Graph) ResetEdges(cells []*model.Cell) error {
	if len(cells) == 0 {
		return nil
	}
	return g.model.Update(func() error { return g.resetEdges(cells, setOf(cells)) })
}

func (g *Graph) resetEdges(cells []*model.Cell, set map[*model.Cell]bool) error {
	for _, c := range cells {
		for _, e := range c.Edges() {
			if !set[e.Source()] || !set[e.Target()] {
				if err := g.resetEdge(e); err != nil {
					return err
				}
			}
		}
		if err := g.resetEdges(c.Children(), set); err != nil {
			return err
		}
	}
	return nil
}

// resetEdge drops the control points of edge.
func (g *Graph) resetEdge(edge *model.Cell) error {
	geo := edge.Geometry()
	if geo == nil || len(geo.Points) == 0 {
		return nil
	}
	geo = geo.Clone()
	geo.Points = nil
	return g.model.SetGeometry(edge, geo)
}
