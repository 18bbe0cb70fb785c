package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

type fixture struct {
	m     *model.Model
	layer *model.Cell
}

func newFixture() *fixture {
	m := model.NewModel()
	return &fixture{m: m, layer: m.DefaultParent()}
}

func (f *fixture) vertex(t *testing.T, id string, value any, x, y, w, h float64) *model.Cell {
	t.Helper()
	v := model.NewVertex(id, value, model.NewGeometry(x, y, w, h), style.Style{})
	require.NoError(t, f.m.Add(f.layer, v, -1))
	return v
}

func (f *fixture) edge(t *testing.T, id string, src, trg *model.Cell) *model.Cell {
	t.Helper()
	e := model.NewEdge(id, nil, nil, style.Style{})
	require.NoError(t, f.m.Update(func() error {
		if err := f.m.Add(f.layer, e, -1); err != nil {
			return err
		}
		return f.m.SetTerminals(e, src, trg)
	}))
	return e
}

func TestAlreadyConnected(t *testing.T) {
	f := newFixture()
	v1 := f.vertex(t, "v1", nil, 0, 0, 100, 50)
	v2 := f.vertex(t, "v2", nil, 200, 0, 100, 50)

	opts := DefaultOptions()
	opts.Multigraph = false
	v := New(opts)

	e1 := model.NewEdge("e1", nil, nil, style.Style{})
	reason, invalid := v.EdgeValidationError(e1, v1, v2)
	require.False(t, invalid, reason)
	f.edge(t, "e1", v1, v2)

	e2 := model.NewEdge("e2", nil, nil, style.Style{})
	reason, invalid = v.EdgeValidationError(e2, v1, v2)
	assert.True(t, invalid)
	assert.Equal(t, DefaultAlreadyConnected, reason)

	again, invalidAgain := v.EdgeValidationError(e2, v1, v2)
	assert.Equal(t, reason, again)
	assert.Equal(t, invalid, invalidAgain)

	t.Run("existing edge does not count itself", func(t *testing.T) {
		e1 := f.m.CellByID("e1")
		assert.True(t, v.IsEdgeValid(e1, v1, v2))
	})

	t.Run("reverse direction is not parallel", func(t *testing.T) {
		assert.True(t, v.IsEdgeValid(e2, v2, v1))
	})
}

func TestPolicies(t *testing.T) {
	f := newFixture()
	a := f.vertex(t, "a", nil, 0, 0, 10, 10)
	b := f.vertex(t, "b", nil, 20, 0, 10, 10)
	e := model.NewEdge("e", nil, nil, style.Style{})

	tests := []struct {
		name     string
		opts     Options
		src, trg *model.Cell
		invalid  bool
	}{
		{"dangling allowed", Options{AllowDanglingEdges: true}, a, nil, false},
		{"dangling rejected", Options{}, a, nil, true},
		{"detached edge", Options{AllowDanglingEdges: true}, nil, nil, false},
		{"loop rejected", DefaultOptions(), a, a, true},
		{"loop allowed", Options{AllowDanglingEdges: true, AllowLoops: true}, a, a, false},
		{"plain connection", DefaultOptions(), a, b, false},
		{"edge terminal rejected", DefaultOptions(), a, e, true},
		{"unconnectable edge terminal", Options{AllowDanglingEdges: true, ConnectableEdges: true}, a, e, true},
	}
	e.SetConnectable(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, invalid := New(tt.opts).EdgeValidationError(e, tt.src, tt.trg)
			assert.Equal(t, tt.invalid, invalid)
			assert.Empty(t, reason, "policy rejections are silent")
		})
	}
}

func TestLockedTerminalIsRejected(t *testing.T) {
	f := newFixture()
	a := f.vertex(t, "a", nil, 0, 0, 10, 10)
	b := f.vertex(t, "b", nil, 20, 0, 10, 10)
	st, err := b.Style().With("locked", true)
	require.NoError(t, err)
	require.NoError(t, f.m.SetStyle(b, st))

	v := New(DefaultOptions())
	assert.False(t, v.IsValidTarget(b))
	assert.False(t, v.IsEdgeValid(nil, a, b))
}

func TestMultiplicityCount(t *testing.T) {
	f := newFixture()
	src := f.vertex(t, "src", "source", 0, 0, 10, 10)
	t1 := f.vertex(t, "t1", "target", 20, 0, 10, 10)
	t2 := f.vertex(t, "t2", "target", 40, 0, 10, 10)

	v := New(DefaultOptions(), Multiplicity{
		Source:     true,
		Type:       "source",
		Min:        1,
		Max:        1,
		CountError: "Source must have exactly one outgoing edge",
	})
	assert.True(t, v.IsEdgeValid(nil, src, t1))
	f.edge(t, "e1", src, t1)

	reason, invalid := v.EdgeValidationError(nil, src, t2)
	assert.True(t, invalid)
	assert.Equal(t, "Source must have exactly one outgoing edge", reason)

	_, invalid = v.CellValidationError(src)
	assert.False(t, invalid)
	f.edge(t, "e2", src, t2)
	reason, invalid = v.CellValidationError(src)
	assert.True(t, invalid)
	assert.NotEmpty(t, reason)
}

func TestMultiplicityNeighbors(t *testing.T) {
	f := newFixture()
	a := f.vertex(t, "a", map[string]any{"type": "task", "kind": "manual"}, 0, 0, 10, 10)
	b := f.vertex(t, "b", map[string]any{"type": "task"}, 20, 0, 10, 10)
	c := f.vertex(t, "c", map[string]any{"type": "note"}, 40, 0, 10, 10)

	v := New(DefaultOptions(), Multiplicity{
		Source:         true,
		Type:           "task",
		Attr:           "kind",
		Value:          "manual",
		Max:            Unbounded,
		ValidNeighbors: []string{"task"},
		TypeError:      "Manual tasks only connect to tasks",
	})
	assert.True(t, v.IsEdgeValid(nil, a, b))
	reason, invalid := v.EdgeValidationError(nil, a, c)
	assert.True(t, invalid)
	assert.Equal(t, "Manual tasks only connect to tasks", reason)

	assert.True(t, v.IsEdgeValid(nil, b, c), "attribute does not match")
}

func TestReasonsAreJoined(t *testing.T) {
	f := newFixture()
	a := f.vertex(t, "a", "node", 0, 0, 10, 10)
	b := f.vertex(t, "b", "node", 20, 0, 10, 10)
	f.edge(t, "e", a, b)

	opts := DefaultOptions()
	opts.Multigraph = false
	v := New(opts, Multiplicity{Source: true, Type: "node", Max: 1, CountError: "too many"})
	v.EdgeHook = func(_, _, _ *model.Cell) string { return "custom" }

	reason, invalid := v.EdgeValidationError(nil, a, b)
	assert.True(t, invalid)
	assert.Equal(t, DefaultAlreadyConnected+"\ntoo many\ncustom", reason)
}

func TestConnectionCheckHook(t *testing.T) {
	f := newFixture()
	a := f.vertex(t, "a", nil, 0, 0, 10, 10)
	b := f.vertex(t, "b", nil, 20, 0, 10, 10)

	v := New(DefaultOptions())
	v.ConnectionCheck = func(src, trg *model.Cell) bool { return src != b }
	assert.True(t, v.IsEdgeValid(nil, a, b))
	reason, invalid := v.EdgeValidationError(nil, b, a)
	assert.True(t, invalid)
	assert.Empty(t, reason)
}

func TestValidateGraph(t *testing.T) {
	f := newFixture()
	a := f.vertex(t, "a", "node", 0, 0, 10, 10)
	f.vertex(t, "b", "node", 20, 0, 10, 10)
	f.edge(t, "loop", a, a)

	v := New(DefaultOptions(), Multiplicity{Type: "node", Min: 1, Max: Unbounded, CountError: "needs input"})
	errs := v.ValidateGraph(f.m.Root())

	assert.Contains(t, errs, "loop")
	assert.Equal(t, "needs input", errs["b"])
	assert.NotContains(t, errs, "a")
}
