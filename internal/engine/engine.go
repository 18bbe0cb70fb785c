// Package engine is the session façade of a diagram. It owns the model, the
// view, the validator and the structural operations, applies submitted
// operations, and answers the queries a renderer needs.
package engine

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/inamate/diagram/internal/document"
	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/graph"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/validate"
	"github.com/inamate/diagram/internal/view"
)

// OverlayValidation is the overlay kind used for validation warnings.
const OverlayValidation = "validation"

// Options configures a new engine.
type Options struct {
	Graph       graph.Options
	Validation  validate.Options
	Rules       []validate.Multiplicity
	HistorySize int
	Tolerance   float64
	Logger      *slog.Logger
}

// DefaultOptions returns the defaults of every layer.
func DefaultOptions() Options {
	return Options{
		Graph:       graph.DefaultOptions(),
		Validation:  validate.DefaultOptions(),
		HistorySize: model.DefaultHistorySize,
		Tolerance:   view.DefaultTolerance,
	}
}

// Engine owns the state of one diagram. It is not safe for concurrent use.
type Engine struct {
	model     *model.Model
	view      *view.View
	validator *validate.Validator
	graph     *graph.Graph
	logger    *slog.Logger

	meta document.Meta

	// Selection state (backend owns this)
	selection []string

	// commits counts outermost commits, undo and redo included.
	commits int
	// invalid holds the cells carrying a validation overlay.
	invalid map[string]string
}

// NewEngine creates an engine with an empty diagram.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := model.NewModel(model.WithHistorySize(opts.HistorySize), model.WithLogger(logger))
	v := view.New(m, view.WithTolerance(opts.Tolerance))
	val := validate.New(opts.Validation, opts.Rules...)
	g := graph.New(m, v, val, opts.Graph)
	g.SetLogger(logger)

	e := &Engine{
		model:     m,
		view:      v,
		validator: val,
		graph:     g,
		logger:    logger,
		invalid:   make(map[string]string),
	}
	m.Subscribe(func(ev model.Event) {
		if ev.Kind == model.EventChange {
			e.commits++
		}
	})
	return e
}

func (e *Engine) Model() *model.Model            { return e.model }
func (e *Engine) View() *view.View               { return e.view }
func (e *Engine) Validator() *validate.Validator { return e.validator }
func (e *Engine) Graph() *graph.Graph            { return e.graph }
func (e *Engine) Meta() document.Meta            { return e.meta }
func (e *Engine) SetMeta(meta document.Meta)     { e.meta = meta }

// OnStatesChanged registers fn for the ids of states recomputed or dropped
// by each validation pass.
func (e *Engine) OnStatesChanged(fn func(ids []string)) {
	e.view.Subscribe(fn)
}

// Close detaches the view from the model.
func (e *Engine) Close() {
	e.view.Close()
}

// --- Commands ---

// LoadDocument replaces the diagram with a JSON document.
func (e *Engine) LoadDocument(jsonData string) error {
	meta, err := document.Unmarshal([]byte(jsonData), e.model)
	if err != nil {
		return err
	}
	e.meta = meta
	e.selection = nil
	e.invalid = make(map[string]string)
	return nil
}

// LoadSampleDocument loads the built-in sample diagram.
func (e *Engine) LoadSampleDocument(id string) {
	doc := document.NewSampleDocument(id)
	if err := document.Decode(e.model, doc); err != nil {
		// The sample is generated and always valid.
		e.logger.Error("load sample document", "error", err)
		return
	}
	e.meta = doc.Meta
	e.selection = nil
	e.invalid = make(map[string]string)
}

// SetSelection sets the selected cell ids. Unknown ids are dropped.
func (e *Engine) SetSelection(ids []string) {
	e.selection = e.selection[:0]
	for _, id := range ids {
		if e.model.CellByID(id) != nil {
			e.selection = append(e.selection, id)
		}
	}
}

// Selection returns the selected cells that are still in the model.
func (e *Engine) Selection() []*model.Cell {
	var out []*model.Cell
	for _, id := range e.selection {
		if c := e.model.CellByID(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// SetScaleAndTranslate changes the view transform.
func (e *Engine) SetScaleAndTranslate(scale, tx, ty float64) {
	if scale <= 0 || !geom.IsFinite(scale) || !geom.IsFinite(tx) || !geom.IsFinite(ty) {
		return
	}
	e.view.ScaleAndTranslate(scale, geom.Pt(tx, ty))
}

// ValidateGraph checks every edge and vertex and replaces the validation
// overlays with the current findings, keyed by cell id.
func (e *Engine) ValidateGraph() map[string]string {
	for id := range e.invalid {
		if c := e.model.CellByID(id); c != nil {
			for _, o := range c.Overlays() {
				if o.Kind == OverlayValidation {
					e.model.RemoveOverlay(c, o.ID)
				}
			}
		}
	}
	e.invalid = e.validator.ValidateGraph(e.model.Root())
	for id, reason := range e.invalid {
		if c := e.model.CellByID(id); c != nil {
			e.model.AddOverlay(c, model.Overlay{Kind: OverlayValidation, Text: reason, Align: "right"})
		}
	}
	return e.invalid
}

// --- Queries ---

// Render validates the view and returns draw commands as JSON.
func (e *Engine) Render() string {
	result, _ := DrawCommandsToJSON(CompileDrawCommands(e.view.States()))
	return result
}

// HitTest returns the id of the topmost cell at (x, y), or "".
func (e *Engine) HitTest(x, y float64) string {
	if c := e.view.CellAt(x, y, nil, view.AllCells); c != nil {
		return c.ID()
	}
	return ""
}

// SelectionBounds returns the rendered bounds of the selection.
func (e *Engine) SelectionBounds() (geom.Rect, bool) {
	return e.view.BoundingBox(e.Selection())
}

// GetSelectionBounds returns the bounding box of the current selection as JSON.
func (e *Engine) GetSelectionBounds() string {
	r, _ := e.SelectionBounds()
	return RectToJSON(r)
}

// Document encodes the diagram, stamping the update time.
func (e *Engine) Document() *document.Document {
	e.meta.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return document.Encode(e.model, e.meta)
}

// GetDocument returns the full document as JSON.
func (e *Engine) GetDocument() string {
	data, _ := json.Marshal(e.Document())
	return string(data)
}

// GetSelection returns the current selection as JSON.
func (e *Engine) GetSelection() string {
	data, _ := json.Marshal(e.selection)
	return string(data)
}

// CanUndo reports whether there is an edit to undo.
func (e *Engine) CanUndo() bool { return e.model.History().CanUndo() }

// CanRedo reports whether there is an edit to redo.
func (e *Engine) CanRedo() bool { return e.model.History().CanRedo() }
