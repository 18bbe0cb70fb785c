package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/graph"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

var (
	ErrUnknownOperation = errors.New("engine: unknown operation type")
	ErrInvalidOperation = errors.New("engine: invalid operation")
)

// Operation types
const (
	OpInsertVertex = "cell.insertVertex"
	OpInsertEdge   = "cell.insertEdge"
	OpMove         = "cell.move"
	OpResize       = "cell.resize"
	OpRemove       = "cell.remove"
	OpGroup        = "cell.group"
	OpUngroup      = "cell.ungroup"
	OpFold         = "cell.fold"
	OpConnect      = "cell.connect"
	OpStyle        = "cell.style"
	OpOrder        = "cell.order"
	OpAlign        = "cell.align"
	OpUndo         = "edit.undo"
	OpRedo         = "edit.redo"
)

// Operation is a JSON-submitted edit. Which fields are read depends on Type.
type Operation struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`

	// Cells lists the ids the operation applies to.
	Cells []string `json:"cells,omitempty"`

	// For cell.insertVertex and cell.insertEdge
	CellID   string         `json:"cellId,omitempty"`
	Parent   string         `json:"parent,omitempty"`
	Value    any            `json:"value,omitempty"`
	Geometry *geom.Rect     `json:"geometry,omitempty"`
	Relative bool           `json:"relative,omitempty"`
	Style    map[string]any `json:"style,omitempty"`
	Source   string         `json:"source,omitempty"`
	Target   string         `json:"target,omitempty"`
	Points   []geom.Point   `json:"points,omitempty"`

	// For cell.move
	DX    float64 `json:"dx,omitempty"`
	DY    float64 `json:"dy,omitempty"`
	Clone bool    `json:"clone,omitempty"`
	Into  string  `json:"into,omitempty"`

	// For cell.resize, aligned with Cells
	Bounds  []geom.Rect `json:"bounds,omitempty"`
	Recurse bool        `json:"recurse,omitempty"`

	// For cell.remove
	IncludeEdges bool `json:"includeEdges,omitempty"`

	// For cell.group
	Group  string  `json:"group,omitempty"`
	Border float64 `json:"border,omitempty"`

	// For cell.fold
	Collapse bool `json:"collapse,omitempty"`

	// For cell.connect: Cells[0] is the edge.
	Terminal   string      `json:"terminal,omitempty"`
	End        string      `json:"end,omitempty"` // "source" or "target"
	Constraint *Constraint `json:"constraint,omitempty"`

	// For cell.style and cell.align
	Key   string   `json:"key,omitempty"`
	Align string   `json:"align,omitempty"`
	Param *float64 `json:"param,omitempty"`

	// For cell.order
	Back bool `json:"back,omitempty"`
}

// Constraint pins an edge end to a fractional point of its terminal. A
// null point clears the pin.
type Constraint struct {
	Point     *geom.Point `json:"point"`
	Perimeter bool        `json:"perimeter"`
}

// Result reports the effect of an operation. Applied is false when the
// operation was rejected or had nothing to do; Reason then holds the
// validator's message, which may be empty.
type Result struct {
	OperationID string   `json:"operationId,omitempty"`
	Applied     bool     `json:"applied"`
	Reason      string   `json:"reason,omitempty"`
	Cells       []string `json:"cells,omitempty"`
}

// Apply runs op as one undoable edit and brings the view up to date.
// Programmer errors such as unknown ids or non-finite numbers are returned
// as errors and leave the diagram unchanged.
func (e *Engine) Apply(op Operation) (Result, error) {
	before := e.commits
	res, err := e.apply(op)
	if err != nil {
		e.logger.Debug("operation failed", "op", op.Type, "id", op.ID, "error", err)
		return Result{OperationID: op.ID}, err
	}
	res.OperationID = op.ID
	if res.Reason == "" && !res.Applied {
		res.Applied = e.commits != before
	}
	e.view.Validate()
	return res, nil
}

// ApplyJSON decodes and applies an operation, returning the result as JSON.
func (e *Engine) ApplyJSON(data string) (string, error) {
	var op Operation
	if err := json.Unmarshal([]byte(data), &op); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	res, err := e.Apply(op)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(res)
	return string(out), err
}

func (e *Engine) apply(op Operation) (Result, error) {
	switch op.Type {
	case OpInsertVertex:
		return e.applyInsertVertex(op)
	case OpInsertEdge:
		return e.applyInsertEdge(op)
	case OpMove:
		return e.applyMove(op)
	case OpResize:
		return e.applyResize(op)
	case OpRemove:
		return e.applyRemove(op)
	case OpGroup:
		return e.applyGroup(op)
	case OpUngroup:
		return e.applyUngroup(op)
	case OpFold:
		return e.applyFold(op)
	case OpConnect:
		return e.applyConnect(op)
	case OpStyle:
		return e.applyStyle(op)
	case OpOrder:
		return e.applyOrder(op)
	case OpAlign:
		return e.applyAlign(op)
	case OpUndo:
		return Result{Applied: e.model.Undo()}, nil
	case OpRedo:
		return Result{Applied: e.model.Redo()}, nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

// --- Lookups ---

func (e *Engine) cell(id string) (*model.Cell, error) {
	c := e.model.CellByID(id)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownCell, id)
	}
	return c, nil
}

// optionalCell resolves id, mapping "" to nil.
func (e *Engine) optionalCell(id string) (*model.Cell, error) {
	if id == "" {
		return nil, nil
	}
	return e.cell(id)
}

func (e *Engine) cells(ids []string) ([]*model.Cell, error) {
	out := make([]*model.Cell, 0, len(ids))
	for _, id := range ids {
		c, err := e.cell(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func ids(cells []*model.Cell) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c != nil {
			out = append(out, c.ID())
		}
	}
	return out
}

// --- Handlers ---

func (e *Engine) applyInsertVertex(op Operation) (Result, error) {
	parent, err := e.optionalCell(op.Parent)
	if err != nil {
		return Result{}, err
	}
	if op.Geometry == nil {
		return Result{}, fmt.Errorf("%w: %s needs a geometry", ErrInvalidOperation, op.Type)
	}
	st, err := style.FromMap(op.Style)
	if err != nil {
		return Result{}, err
	}
	r := *op.Geometry
	v, err := e.graph.InsertVertex(parent, op.CellID, op.Value, r.X, r.Y, r.Width, r.Height, st, op.Relative)
	if err != nil {
		return Result{}, err
	}
	return Result{Applied: true, Cells: []string{v.ID()}}, nil
}

func (e *Engine) applyInsertEdge(op Operation) (Result, error) {
	parent, err := e.optionalCell(op.Parent)
	if err != nil {
		return Result{}, err
	}
	source, err := e.optionalCell(op.Source)
	if err != nil {
		return Result{}, err
	}
	target, err := e.optionalCell(op.Target)
	if err != nil {
		return Result{}, err
	}
	st, err := style.FromMap(op.Style)
	if err != nil {
		return Result{}, err
	}
	probe := model.NewEdge(op.CellID, op.Value, &model.Geometry{Relative: true}, st)
	if reason, invalid := e.validator.EdgeValidationError(probe, e.graph.ConnectionTerminal(source), e.graph.ConnectionTerminal(target)); invalid {
		return Result{Reason: reason}, nil
	}
	geo := &model.Geometry{Relative: true, Points: op.Points}
	edge, err := e.graph.InsertEdge(parent, op.CellID, op.Value, source, target, geo, st)
	if err != nil {
		return Result{}, err
	}
	return Result{Applied: true, Cells: []string{edge.ID()}}, nil
}

func (e *Engine) applyMove(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	into, err := e.optionalCell(op.Into)
	if err != nil {
		return Result{}, err
	}
	moved, err := e.graph.MoveCells(cells, op.DX, op.DY, op.Clone, into)
	if err != nil {
		return Result{}, err
	}
	return Result{Cells: ids(moved)}, nil
}

func (e *Engine) applyResize(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	if len(op.Bounds) != len(cells) {
		return Result{}, fmt.Errorf("%w: %d bounds for %d cells", ErrInvalidOperation, len(op.Bounds), len(cells))
	}
	return Result{}, e.graph.ResizeCells(cells, op.Bounds, op.Recurse)
}

func (e *Engine) applyRemove(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	removed, err := e.graph.RemoveCells(cells, op.IncludeEdges)
	if err != nil {
		return Result{}, err
	}
	return Result{Cells: ids(removed)}, nil
}

func (e *Engine) applyGroup(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	group, err := e.optionalCell(op.Group)
	if err != nil {
		return Result{}, err
	}
	if !geom.IsFinite(op.Border) {
		return Result{}, model.ErrNotFinite
	}
	g, err := e.graph.GroupCells(group, op.Border, cells)
	if err != nil || g == nil {
		return Result{}, err
	}
	return Result{Cells: []string{g.ID()}}, nil
}

func (e *Engine) applyUngroup(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	children, err := e.graph.UngroupCells(cells)
	if err != nil {
		return Result{}, err
	}
	return Result{Cells: ids(children)}, nil
}

func (e *Engine) applyFold(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	folded, err := e.graph.FoldCells(op.Collapse, op.Recurse, cells, true)
	if err != nil {
		return Result{}, err
	}
	return Result{Cells: ids(folded)}, nil
}

func (e *Engine) applyConnect(op Operation) (Result, error) {
	if len(op.Cells) != 1 {
		return Result{}, fmt.Errorf("%w: %s needs exactly one edge", ErrInvalidOperation, op.Type)
	}
	edge, err := e.cell(op.Cells[0])
	if err != nil {
		return Result{}, err
	}
	terminal, err := e.optionalCell(op.Terminal)
	if err != nil {
		return Result{}, err
	}
	var source bool
	switch op.End {
	case "source":
		source = true
	case "target":
	default:
		return Result{}, fmt.Errorf("%w: end must be source or target, got %q", ErrInvalidOperation, op.End)
	}
	var c *graph.Constraint
	if op.Constraint != nil {
		c = &graph.Constraint{Point: op.Constraint.Point, Perimeter: op.Constraint.Perimeter}
	}
	out, err := e.graph.ConnectCell(edge, terminal, source, c)
	if err != nil {
		return Result{}, err
	}
	return Result{Applied: out.Applied, Reason: out.Reason, Cells: []string{edge.ID()}}, nil
}

func (e *Engine) applyStyle(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	if op.Key == "" {
		return Result{}, fmt.Errorf("%w: %s needs a key", ErrInvalidOperation, op.Type)
	}
	return Result{}, e.graph.SetCellStyles(op.Key, op.Value, cells)
}

func (e *Engine) applyOrder(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	return Result{}, e.graph.OrderCells(op.Back, cells)
}

func (e *Engine) applyAlign(op Operation) (Result, error) {
	cells, err := e.cells(op.Cells)
	if err != nil {
		return Result{}, err
	}
	return Result{}, e.graph.AlignCells(graph.Align(op.Align), cells, op.Param)
}
