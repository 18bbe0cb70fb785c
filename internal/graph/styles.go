package graph

import (
	"fmt"

	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
)

// SetCellStyles sets key to value in the style of every cell. A nil value
// clears the key.
func (g *Graph) SetCellStyles(key string, value any, cells []*model.Cell) error {
	cells = filter(cells, func(*model.Cell) bool { return true })
	if len(cells) == 0 {
		return nil
	}
	return g.model.Update(func() error {
		for _, c := range cells {
			st, err := c.Style().With(key, value)
			if err != nil {
				return fmt.Errorf("set style %q of %s: %w", key, c, err)
			}
			if err := g.model.SetStyle(c, st); err != nil {
				return err
			}
		}
		return nil
	})
}

// ToggleCellStyle flips a boolean key across cells, using the current value
// of the first cell or def when it is unset. It returns the new value.
func (g *Graph) ToggleCellStyle(key string, def bool, cells []*model.Cell) (bool, error) {
	cells = filter(cells, func(*model.Cell) bool { return true })
	if len(cells) == 0 {
		return def, nil
	}
	cur := def
	if v, ok := cells[0].Style().Get(key); ok {
		if b, isBool := v.(bool); isBool {
			cur = b
		}
	}
	next := !cur
	return next, g.SetCellStyles(key, next, cells)
}

// Align names the edge or center line AlignCells lines vertices up on.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
	AlignTop    Align = "top"
	AlignMiddle Align = "middle"
	AlignBottom Align = "bottom"
)

// AlignCells lines up the vertices in cells on the given side. With a nil
// param the outermost side of the set is used (the first cell's center for
// center and middle); otherwise param is a coordinate in view space.
func (g *Graph) AlignCells(align Align, cells []*model.Cell, param *float64) error {
	cells = filter(cells, func(c *model.Cell) bool { return !c.IsEdge() && c.Geometry() != nil })
	if len(cells) < 2 && param == nil {
		return nil
	}

	if param != nil {
		if !geom.IsFinite(*param) {
			return model.ErrNotFinite
		}
		return g.alignTo(align, cells, *param)
	}
	var target float64
	found := false
	for _, c := range cells {
		st := g.view.State(c)
		if st == nil {
			continue
		}
		b := st.Bounds
		if !found {
			found = true
			switch align {
			case AlignCenter:
				target = b.X + b.Width/2
			case AlignRight:
				target = b.X + b.Width
			case AlignTop:
				target = b.Y
			case AlignMiddle:
				target = b.Y + b.Height/2
			case AlignBottom:
				target = b.Y + b.Height
			default:
				target = b.X
			}
			if align == AlignCenter || align == AlignMiddle {
				break
			}
			continue
		}
		switch align {
		case AlignRight:
			target = max(target, b.X+b.Width)
		case AlignTop:
			target = min(target, b.Y)
		case AlignBottom:
			target = max(target, b.Y+b.Height)
		case AlignLeft, "":
			target = min(target, b.X)
		}
	}
	if !found {
		return nil
	}
	return g.alignTo(align, cells, target)
}

func (g *Graph) alignTo(align Align, cells []*model.Cell, target float64) error {
	s := g.view.Scale()
	return g.model.Update(func() error {
		for _, c := range cells {
			st := g.view.State(c)
			if st == nil || !c.Style().IsMovable() {
				continue
			}
			b := st.Bounds
			geo := c.Geometry().Clone()
			switch align {
			case AlignCenter:
				geo.X += (target - b.X - b.Width/2) / s
			case AlignRight:
				geo.X += (target - b.X - b.Width) / s
			case AlignTop:
				geo.Y += (target - b.Y) / s
			case AlignMiddle:
				geo.Y += (target - b.Y - b.Height/2) / s
			case AlignBottom:
				geo.Y += (target - b.Y - b.Height) / s
			default:
				geo.X += (target - b.X) / s
			}
			if err := g.cellsResized([]*model.Cell{c}, []geom.Rect{geo.Bounds()}, false); err != nil {
				return err
			}
		}
		return nil
	})
}
