package engine

import (
	"encoding/json"
	"fmt"

	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/view"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // Operation: "path", "text", "overlay"
	CellID      string        `json:"cellId,omitempty"`      // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64       `json:"opacity,omitempty"`     // Global alpha
	Text        string        `json:"text,omitempty"`        // Label or overlay text
	X           float64       `json:"x,omitempty"`           // Anchor of "text" and "overlay" ops
	Y           float64       `json:"y,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["E", cx, cy, rx, ry], ["Z"].
type PathCommand []any

const (
	defaultFill   = "#ffffff"
	defaultStroke = "#000000"
)

// CompileDrawCommands generates a draw command buffer from view states.
// States arrive parents first, so commands are in painter's order.
func CompileDrawCommands(states []*view.CellState) []DrawCommand {
	var commands []DrawCommand
	for _, st := range states {
		if st == nil || st.Cell == nil || !(st.Cell.IsVertex() || st.Cell.IsEdge()) {
			continue
		}
		if st.IsEdge() {
			compileEdge(st, &commands)
		} else {
			compileVertex(st, &commands)
		}
		compileLabel(st, &commands)
		for _, o := range st.Cell.Overlays() {
			commands = append(commands, DrawCommand{
				Op:     "overlay",
				CellID: st.ID,
				Text:   o.Text,
				X:      st.Bounds.X + st.Bounds.Width + o.OffsetX,
				Y:      st.Bounds.Y + o.OffsetY,
			})
		}
	}
	return commands
}

func compileVertex(st *view.CellState, commands *[]DrawCommand) {
	b := st.Bounds
	s := st.Style
	cmd := DrawCommand{
		Op:          "path",
		CellID:      st.ID,
		Path:        shapePath(s.Shape, b),
		Fill:        orDefault(s.FillColor, defaultFill),
		Stroke:      orDefault(s.StrokeColor, defaultStroke),
		StrokeWidth: 1,
		Opacity:     1,
	}
	if s.StrokeWidth.Valid {
		cmd.StrokeWidth = s.StrokeWidth.Value
	}
	if s.Opacity.Valid {
		cmd.Opacity = s.Opacity.Value
	}
	if st.Rotation != 0 {
		cmd.Transform = geom.RotateAround(st.Rotation, b.Center()).ToSlice()
	}
	*commands = append(*commands, cmd)
}

func compileEdge(st *view.CellState, commands *[]DrawCommand) {
	if len(st.Points) < 2 {
		return
	}
	path := make([]PathCommand, 0, len(st.Points))
	for i, p := range st.Points {
		op := "L"
		if i == 0 {
			op = "M"
		}
		path = append(path, PathCommand{op, p.X, p.Y})
	}
	cmd := DrawCommand{
		Op:          "path",
		CellID:      st.ID,
		Path:        path,
		Stroke:      orDefault(st.Style.StrokeColor, defaultStroke),
		StrokeWidth: 1,
		Opacity:     1,
	}
	if st.Style.StrokeWidth.Valid {
		cmd.StrokeWidth = st.Style.StrokeWidth.Value
	}
	if st.Style.Opacity.Valid {
		cmd.Opacity = st.Style.Opacity.Value
	}
	*commands = append(*commands, cmd)
}

// compileLabel emits the value of the cell as text. Edges place it along the
// route, vertices in the center or in the swimlane title.
func compileLabel(st *view.CellState, commands *[]DrawCommand) {
	text := labelOf(st.Cell.Value())
	if text == "" {
		return
	}
	p := st.Center()
	switch {
	case st.IsEdge():
		p = st.LabelPosition
	case st.Style.Shape == "swimlane" && st.Style.StartSize > 0:
		p.Y = st.Bounds.Y + st.Style.StartSize/2
	}
	*commands = append(*commands, DrawCommand{Op: "text", CellID: st.ID, Text: text, X: p.X, Y: p.Y})
}

func labelOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		if l, ok := t["label"].(string); ok {
			return l
		}
		return ""
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// shapePath outlines b for the named shape. Unknown shapes are rectangles.
func shapePath(shape string, b geom.Rect) []PathCommand {
	c := b.Center()
	switch shape {
	case "ellipse":
		return []PathCommand{{"E", c.X, c.Y, b.Width / 2, b.Height / 2}}
	case "rhombus":
		return []PathCommand{
			{"M", c.X, b.Y},
			{"L", b.X + b.Width, c.Y},
			{"L", c.X, b.Y + b.Height},
			{"L", b.X, c.Y},
			{"Z"},
		}
	case "triangle":
		return []PathCommand{
			{"M", b.X, b.Y},
			{"L", b.X + b.Width, c.Y},
			{"L", b.X, b.Y + b.Height},
			{"Z"},
		}
	default:
		return []PathCommand{
			{"M", b.X, b.Y},
			{"L", b.X + b.Width, b.Y},
			{"L", b.X + b.Width, b.Y + b.Height},
			{"L", b.X, b.Y + b.Height},
			{"Z"},
		}
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r geom.Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
