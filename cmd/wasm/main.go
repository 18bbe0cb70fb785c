//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/diagram/internal/engine"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine(engine.DefaultOptions())

	// Create the engine API object
	diagramEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	diagramEngine.Set("loadDocument", js.FuncOf(loadDocument))
	diagramEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	diagramEngine.Set("apply", js.FuncOf(apply))
	diagramEngine.Set("undo", js.FuncOf(undo))
	diagramEngine.Set("redo", js.FuncOf(redo))
	diagramEngine.Set("setSelection", js.FuncOf(setSelection))
	diagramEngine.Set("setScaleAndTranslate", js.FuncOf(setScaleAndTranslate))
	diagramEngine.Set("validateGraph", js.FuncOf(validateGraph))
	diagramEngine.Set("onStatesChanged", js.FuncOf(onStatesChanged))

	// --- Queries (frontend ← backend) ---
	diagramEngine.Set("render", js.FuncOf(render))
	diagramEngine.Set("hitTest", js.FuncOf(hitTest))
	diagramEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	diagramEngine.Set("getDocument", js.FuncOf(getDocument))
	diagramEngine.Set("getSelection", js.FuncOf(getSelection))
	diagramEngine.Set("canUndo", js.FuncOf(canUndo))
	diagramEngine.Set("canRedo", js.FuncOf(canRedo))

	// Register on global scope
	js.Global().Set("diagramEngine", diagramEngine)

	// Signal that WASM is ready
	js.Global().Set("diagramWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorValue(msg string) js.Value {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue("missing document JSON")
	}

	if err := eng.LoadDocument(args[0].String()); err != nil {
		return errorValue(err.Error())
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	id := "sess_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}

	eng.LoadSampleDocument(id)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// apply takes an operation as JSON and returns the result as JSON, or an
// object with an error field.
func apply(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue("missing operation JSON")
	}

	result, err := eng.ApplyJSON(args[0].String())
	if err != nil {
		return errorValue(err.Error())
	}
	return js.ValueOf(result)
}

func undo(this js.Value, args []js.Value) interface{} {
	res, err := eng.Apply(engine.Operation{Type: engine.OpUndo})
	return js.ValueOf(err == nil && res.Applied)
}

func redo(this js.Value, args []js.Value) interface{} {
	res, err := eng.Apply(engine.Operation{Type: engine.OpRedo})
	return js.ValueOf(err == nil && res.Applied)
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		eng.SetSelection(nil)
		return nil
	}

	arr := args[0]
	if arr.Type() != js.TypeObject {
		eng.SetSelection(nil)
		return nil
	}

	length := arr.Length()
	ids := make([]string, length)
	for i := 0; i < length; i++ {
		ids[i] = arr.Index(i).String()
	}
	eng.SetSelection(ids)
	return nil
}

func setScaleAndTranslate(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	eng.SetScaleAndTranslate(args[0].Float(), args[1].Float(), args[2].Float())
	return nil
}

func validateGraph(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(eng.ValidateGraph())
	return js.ValueOf(string(data))
}

// onStatesChanged registers a callback that receives a JSON array of cell
// ids after each validation pass.
func onStatesChanged(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	fn := args[0]
	eng.OnStatesChanged(func(ids []string) {
		data, _ := json.Marshal(ids)
		fn.Invoke(string(data))
	})
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	x := args[0].Float()
	y := args[1].Float()
	return js.ValueOf(eng.HitTest(x, y))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelectionBounds())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelection())
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CanRedo())
}
