package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
	"github.com/inamate/diagram/internal/validate"
	"github.com/inamate/diagram/internal/view"
)

type fixture struct {
	m   *model.Model
	v   *view.View
	val *validate.Validator
	g   *Graph
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	m := model.NewModel()
	v := view.New(m)
	t.Cleanup(v.Close)
	val := validate.New(validate.DefaultOptions())
	return &fixture{m: m, v: v, val: val, g: New(m, v, val, opts)}
}

func (f *fixture) vertex(t *testing.T, parent *model.Cell, id string, x, y, w, h float64) *model.Cell {
	t.Helper()
	c, err := f.g.InsertVertex(parent, id, nil, x, y, w, h, style.Style{}, false)
	require.NoError(t, err)
	return c
}

func (f *fixture) edge(t *testing.T, id string, src, trg *model.Cell) *model.Cell {
	t.Helper()
	e, err := f.g.InsertEdge(nil, id, nil, src, trg, nil, style.Style{})
	require.NoError(t, err)
	return e
}

func mustStyle(t *testing.T, kv ...any) style.Style {
	t.Helper()
	var s style.Style
	for i := 0; i < len(kv); i += 2 {
		require.NoError(t, s.Set(kv[i].(string), kv[i+1]))
	}
	return s
}

func assertPoint(t *testing.T, want geom.Point, got *geom.Point) {
	t.Helper()
	require.NotNil(t, got)
	assert.InDelta(t, want.X, got.X, 1e-6, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "y")
}

func TestInsertIsOneUndoableEdit(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	before := f.m.History().Len()

	e := f.edge(t, "e", v1, v2)
	assert.Equal(t, before+1, f.m.History().Len())
	assert.Same(t, v1, e.Source())
	assert.Same(t, v2, e.Target())

	require.True(t, f.m.Undo())
	assert.False(t, f.m.Contains(e))
	assert.Empty(t, v1.Edges())
}

func TestRemoveVertexDisconnectsEdge(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	e := f.edge(t, "e", v1, v2)
	v2geo := v2.Geometry().Clone()

	removed, err := f.g.RemoveCells([]*model.Cell{v1}, false)
	require.NoError(t, err)
	assert.Equal(t, []*model.Cell{v1}, removed)

	assert.False(t, f.m.Contains(v1))
	assert.True(t, f.m.Contains(e))
	assert.Nil(t, e.Source())
	assert.Same(t, v2, e.Target())
	assertPoint(t, geom.Pt(50, 25), e.Geometry().SourcePoint)
	assert.True(t, v2geo.Equal(v2.Geometry()))

	st := f.v.State(e)
	require.NotNil(t, st)
	assertPoint(t, geom.Pt(50, 25), &st.Points[0])

	t.Run("undo reconnects", func(t *testing.T) {
		require.True(t, f.m.Undo())
		assert.Same(t, v1, e.Source())
		assert.Nil(t, e.Geometry().SourcePoint)
		assert.True(t, f.m.Contains(v1))
	})
}

func TestRemoveWithEdges(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	g := f.vertex(t, nil, "g", 0, 0, 200, 200)
	c := f.vertex(t, g, "c", 10, 10, 20, 20)
	v := f.vertex(t, nil, "v", 300, 0, 50, 50)
	e := f.edge(t, "e", c, v)

	removed, err := f.g.RemoveCells([]*model.Cell{g}, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []*model.Cell{g, e}, removed)
	assert.False(t, f.m.Contains(e))
	assert.Empty(t, v.Edges())
}

func TestRemoveSkipsLockedCells(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v, err := f.g.InsertVertex(nil, "v", nil, 0, 0, 10, 10, mustStyle(t, "locked", true), false)
	require.NoError(t, err)
	before := f.m.History().Len()

	removed, err := f.g.RemoveCells([]*model.Cell{v}, true)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.True(t, f.m.Contains(v))
	assert.Equal(t, before, f.m.History().Len())
}

func TestGroupUngroupRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		border float64
		want   geom.Rect
	}{
		{"no border", 0, geom.R(10, 20, 150, 50)},
		{"border", 5, geom.R(5, 15, 160, 60)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultOptions())
			layer := f.m.DefaultParent()
			v1 := f.vertex(t, nil, "v1", 10, 20, 50, 50)
			v2 := f.vertex(t, nil, "v2", 110, 20, 50, 50)
			before := f.m.History().Len()

			group, err := f.g.GroupCells(nil, tt.border, []*model.Cell{v1, v2})
			require.NoError(t, err)
			require.NotNil(t, group)
			assert.Equal(t, before+1, f.m.History().Len())

			assert.Equal(t, tt.want, group.Geometry().Bounds())
			assert.Same(t, group, v1.Parent())
			assert.Same(t, group, v2.Parent())
			assert.Equal(t, geom.R(10-tt.want.X, 20-tt.want.Y, 50, 50), v1.Geometry().Bounds())
			assert.Equal(t, geom.R(110-tt.want.X, 20-tt.want.Y, 50, 50), v2.Geometry().Bounds())
			assert.Equal(t, geom.R(10, 20, 50, 50), f.v.State(v1).Bounds)

			children, err := f.g.UngroupCells([]*model.Cell{group})
			require.NoError(t, err)
			assert.Equal(t, []*model.Cell{v1, v2}, children)
			assert.False(t, f.m.Contains(group))
			assert.Same(t, layer, v1.Parent())
			assert.Equal(t, geom.R(10, 20, 50, 50), v1.Geometry().Bounds())
			assert.Equal(t, geom.R(110, 20, 50, 50), v2.Geometry().Bounds())
		})
	}
}

func TestGroupNeedsTwoSiblings(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 50, 50)
	g := f.vertex(t, nil, "g", 100, 100, 100, 100)
	c := f.vertex(t, g, "c", 0, 0, 10, 10)

	group, err := f.g.GroupCells(nil, 0, []*model.Cell{v1, c})
	require.NoError(t, err)
	assert.Nil(t, group)
	assert.Same(t, f.m.DefaultParent(), v1.Parent())
}

func TestUngroupMakesRelativeChildrenAbsolute(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	g := f.vertex(t, nil, "g", 100, 100, 200, 100)
	port, err := f.g.InsertVertex(g, "port", nil, 1, 0.5, 10, 10, style.Style{}, true)
	require.NoError(t, err)

	_, err = f.g.UngroupCells([]*model.Cell{g})
	require.NoError(t, err)
	assert.False(t, port.Geometry().Relative)
	assert.Equal(t, geom.R(300, 150, 10, 10), port.Geometry().Bounds())
}

func TestFoldUnfold(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v := f.vertex(t, nil, "v", 0, 0, 80, 60)
	f.vertex(t, v, "c", 10, 10, 20, 20)

	folded, err := f.g.FoldCells(true, false, []*model.Cell{v}, true)
	require.NoError(t, err)
	assert.Equal(t, []*model.Cell{v}, folded)
	assert.True(t, v.IsCollapsed())
	assert.Equal(t, geom.R(0, 0, 80, CollapsedHeight), v.Geometry().Bounds())
	require.NotNil(t, v.Geometry().AlternateBounds)
	assert.Equal(t, geom.R(0, 0, 80, 60), *v.Geometry().AlternateBounds)

	_, err = f.g.FoldCells(false, false, []*model.Cell{v}, true)
	require.NoError(t, err)
	assert.False(t, v.IsCollapsed())
	assert.Equal(t, geom.R(0, 0, 80, 60), v.Geometry().Bounds())

	t.Run("folded cell keeps its moved position", func(t *testing.T) {
		_, err := f.g.FoldCells(true, false, []*model.Cell{v}, true)
		require.NoError(t, err)
		_, err = f.g.MoveCells([]*model.Cell{v}, 10, 5, false, nil)
		require.NoError(t, err)
		_, err = f.g.FoldCells(false, false, []*model.Cell{v}, true)
		require.NoError(t, err)
		assert.Equal(t, geom.R(10, 5, 80, 60), v.Geometry().Bounds())
	})

	t.Run("leaf is not foldable", func(t *testing.T) {
		leaf := f.vertex(t, nil, "leaf", 0, 0, 10, 10)
		got, err := f.g.FoldCells(true, false, []*model.Cell{leaf}, true)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.False(t, leaf.IsCollapsed())
	})
}

func TestMoveCells(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	e := f.edge(t, "e", v1, v2)

	moved, err := f.g.MoveCells([]*model.Cell{v1}, 10, 20, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []*model.Cell{v1}, moved)
	assert.Equal(t, geom.R(10, 20, 100, 50), v1.Geometry().Bounds())
	assert.Same(t, v1, e.Source(), "terminals of unmoved edges stay connected")

	_, err = f.g.MoveCells([]*model.Cell{v1}, 0, 0, false, nil)
	require.NoError(t, err)

	_, err = f.g.MoveCells([]*model.Cell{v1}, math.Inf(1), 0, false, nil)
	assert.ErrorIs(t, err, model.ErrNotFinite)
}

func TestMoveEdgeDisconnects(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	e := f.edge(t, "e", v1, v2)

	_, err := f.g.MoveCells([]*model.Cell{e}, 0, 50, false, nil)
	require.NoError(t, err)
	assert.Nil(t, e.Source())
	assert.Nil(t, e.Target())
	assertPoint(t, geom.Pt(100, 75), e.Geometry().SourcePoint)
	assertPoint(t, geom.Pt(200, 75), e.Geometry().TargetPoint)

	t.Run("terminal moved along stays connected", func(t *testing.T) {
		e2 := f.edge(t, "e2", v1, v2)
		_, err := f.g.MoveCells([]*model.Cell{v1, e2}, 0, 10, false, nil)
		require.NoError(t, err)
		assert.Same(t, v1, e2.Source())
		assert.Nil(t, e2.Target())
	})
}

func TestMoveLockedIsFiltered(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v, err := f.g.InsertVertex(nil, "v", nil, 0, 0, 10, 10, mustStyle(t, "movable", false), false)
	require.NoError(t, err)
	before := f.m.History().Len()

	moved, err := f.g.MoveCells([]*model.Cell{v}, 10, 10, false, nil)
	require.NoError(t, err)
	assert.Empty(t, moved)
	assert.Equal(t, geom.R(0, 0, 10, 10), v.Geometry().Bounds())
	assert.Equal(t, before, f.m.History().Len())
}

func TestMoveIntoTarget(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	g := f.vertex(t, nil, "g", 100, 100, 200, 200)
	v := f.vertex(t, nil, "v", 150, 150, 20, 20)

	_, err := f.g.MoveCells([]*model.Cell{v}, 10, 0, false, g)
	require.NoError(t, err)
	assert.Same(t, g, v.Parent())
	assert.Equal(t, geom.R(60, 50, 20, 20), v.Geometry().Bounds())
	assert.Equal(t, geom.R(160, 150, 20, 20), f.v.State(v).Bounds)
}

func TestMoveClone(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	e := f.edge(t, "e", v1, v2)

	clones, err := f.g.MoveCells([]*model.Cell{v1}, 0, 100, true, nil)
	require.NoError(t, err)
	require.Len(t, clones, 1)
	assert.NotSame(t, v1, clones[0])
	assert.NotEmpty(t, clones[0].ID())
	assert.NotEqual(t, "v1", clones[0].ID())
	assert.Equal(t, geom.R(0, 100, 100, 50), clones[0].Geometry().Bounds())
	assert.Equal(t, geom.R(0, 0, 100, 50), v1.Geometry().Bounds())

	t.Run("edge clone gets terminal points", func(t *testing.T) {
		clones, err := f.g.MoveCells([]*model.Cell{e}, 0, 100, true, nil)
		require.NoError(t, err)
		require.Len(t, clones, 1)
		c := clones[0]
		assert.Nil(t, c.Source())
		assertPoint(t, geom.Pt(100, 125), c.Geometry().SourcePoint)
		assertPoint(t, geom.Pt(200, 125), c.Geometry().TargetPoint)
		assert.Same(t, v1, e.Source())
	})
}

func TestMoveCloneDropsInvalidEdges(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	e := f.edge(t, "e", v1, v2)
	f.val.SetOptions(validate.Options{Multigraph: true})

	clones, err := f.g.MoveCells([]*model.Cell{v1, e}, 0, 100, true, nil)
	require.NoError(t, err)
	require.Len(t, clones, 1)
	c := clones[0]
	assert.True(t, c.IsVertex())
	assert.Equal(t, 0, c.EdgeCount())
	assert.Equal(t, 0, validate.DirectedEdgeCount(c, true, nil))

	assert.Equal(t, 1, v1.EdgeCount())
	assert.Equal(t, 1, v2.EdgeCount())
	for _, v := range f.m.DefaultParent().Children() {
		for _, edge := range v.Edges() {
			assert.True(t, f.m.Contains(edge), "edge %v of %s is not in the model", edge, v.ID())
		}
	}
}

func TestExtendParent(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	g := f.vertex(t, nil, "g", 0, 0, 100, 100)
	outer := f.vertex(t, nil, "outer", 0, 0, 300, 300)
	_, err := f.g.MoveCells([]*model.Cell{g}, 0, 0, false, outer)
	require.NoError(t, err)
	c := f.vertex(t, g, "c", 10, 10, 20, 20)

	_, err = f.g.MoveCells([]*model.Cell{c}, 100, 0, false, nil)
	require.NoError(t, err)
	assert.Equal(t, geom.R(110, 10, 20, 20), c.Geometry().Bounds())
	assert.Equal(t, 130.0, g.Geometry().Width)
	assert.Equal(t, 300.0, outer.Geometry().Width)

	_, err = f.g.MoveCells([]*model.Cell{c}, 300, 0, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 430.0, g.Geometry().Width)
	assert.Equal(t, 430.0, outer.Geometry().Width, "grandparent grows too")
}

func TestConstrainChild(t *testing.T) {
	opts := DefaultOptions()
	opts.ExtendParents = false
	f := newFixture(t, opts)
	g := f.vertex(t, nil, "g", 0, 0, 100, 100)
	c := f.vertex(t, g, "c", 10, 10, 20, 20)

	_, err := f.g.MoveCells([]*model.Cell{c}, 100, 0, false, nil)
	require.NoError(t, err)
	assert.Equal(t, geom.R(80, 10, 20, 20), c.Geometry().Bounds())

	_, err = f.g.MoveCells([]*model.Cell{c}, -200, -200, false, nil)
	require.NoError(t, err)
	assert.Equal(t, geom.R(0, 0, 20, 20), c.Geometry().Bounds())

	t.Run("swimlane title is excluded", func(t *testing.T) {
		lane, err := f.g.InsertVertex(nil, "lane", nil, 200, 0, 100, 100, mustStyle(t, "shape", "swimlane", "startSize", 30.0), false)
		require.NoError(t, err)
		c := f.vertex(t, lane, "lc", 10, 0, 20, 20)
		assert.Equal(t, 30.0, c.Geometry().Y)
	})

	t.Run("maximum graph bounds", func(t *testing.T) {
		o := f.g.Options()
		o.MaximumGraphBounds = &geom.Rect{Width: 500, Height: 500}
		f.g.SetOptions(o)
		v := f.vertex(t, nil, "far", 490, 0, 20, 20)
		assert.Equal(t, 480.0, v.Geometry().X)
	})
}

func TestResizeCells(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v := f.vertex(t, nil, "v", 0, 0, 100, 50)
	locked, err := f.g.InsertVertex(nil, "locked", nil, 0, 100, 10, 10, mustStyle(t, "locked", true), false)
	require.NoError(t, err)

	require.NoError(t, f.g.ResizeCells(
		[]*model.Cell{v, locked},
		[]geom.Rect{geom.R(0, 0, 200, 100), geom.R(0, 0, 50, 50)},
		false,
	))
	assert.Equal(t, geom.R(0, 0, 200, 100), v.Geometry().Bounds())
	assert.Equal(t, geom.R(0, 100, 10, 10), locked.Geometry().Bounds())

	t.Run("recursive scales children", func(t *testing.T) {
		g := f.vertex(t, nil, "g", 0, 0, 100, 100)
		c := f.vertex(t, g, "c", 10, 10, 20, 20)
		require.NoError(t, f.g.ResizeCells([]*model.Cell{g}, []geom.Rect{geom.R(0, 0, 200, 200)}, true))
		assert.Equal(t, geom.R(20, 20, 40, 40), c.Geometry().Bounds())
	})

	t.Run("non-finite bounds", func(t *testing.T) {
		err := f.g.ResizeCells([]*model.Cell{v}, []geom.Rect{geom.R(0, 0, math.Inf(1), 1)}, false)
		assert.ErrorIs(t, err, model.ErrNotFinite)
	})
}

func TestConnectCell(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	geo := &model.Geometry{Relative: true, TargetPoint: &geom.Point{X: 400, Y: 400}}
	e, err := f.g.InsertEdge(nil, "e", nil, v1, nil, geo, style.Style{})
	require.NoError(t, err)
	bent := e.Geometry().Clone()
	bent.Points = []geom.Point{{X: 150, Y: 200}}
	require.NoError(t, f.m.SetGeometry(e, bent))

	out, err := f.g.ConnectCell(e, v2, false, &Constraint{Point: &geom.Point{X: 0.5, Y: 0}, Perimeter: true})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Same(t, v2, e.Target())
	assert.Empty(t, e.Geometry().Points, "connecting resets control points")
	assert.Equal(t, style.Num(0.5), e.Style().EntryX)
	assert.Equal(t, style.Num(0), e.Style().EntryY)

	t.Run("rejected connection leaves the model alone", func(t *testing.T) {
		o := f.val.Options()
		o.Multigraph = false
		f.val.SetOptions(o)
		t.Cleanup(func() { o.Multigraph = true; f.val.SetOptions(o) })

		e2 := f.edge(t, "e2", v1, nil)
		before := f.m.History().Len()
		out, err := f.g.ConnectCell(e2, v2, false, nil)
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.NotEmpty(t, out.Reason)
		assert.Nil(t, e2.Target())
		assert.Equal(t, before, f.m.History().Len())
	})

	t.Run("port resolves to its parent", func(t *testing.T) {
		port, err := f.g.InsertVertex(v2, "p", nil, 1, 0.5, 10, 10, style.Style{}, true)
		require.NoError(t, err)
		e3 := f.edge(t, "e3", v1, nil)

		out, err := f.g.ConnectCell(e3, port, false, nil)
		require.NoError(t, err)
		require.True(t, out.Applied)
		assert.Same(t, v2, e3.Target())
		assert.Equal(t, "p", e3.Style().TargetPort)

		st := f.v.State(e3)
		require.NotNil(t, st)
		assert.Same(t, f.v.State(port), st.TargetState)
	})
}

func TestOrderCells(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	layer := f.m.DefaultParent()
	v1 := f.vertex(t, nil, "v1", 0, 0, 10, 10)
	v2 := f.vertex(t, nil, "v2", 0, 0, 10, 10)
	v3 := f.vertex(t, nil, "v3", 0, 0, 10, 10)

	require.NoError(t, f.g.OrderCells(true, []*model.Cell{v3, v2}))
	assert.Equal(t, []*model.Cell{v2, v3, v1}, layer.Children())

	require.NoError(t, f.g.OrderCells(false, []*model.Cell{v2}))
	assert.Equal(t, []*model.Cell{v3, v1, v2}, layer.Children())
}

func TestCellStyles(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 10, 10)
	v2 := f.vertex(t, nil, "v2", 0, 0, 10, 10)
	before := f.m.History().Len()

	require.NoError(t, f.g.SetCellStyles("fillColor", "#ff0000", []*model.Cell{v1, v2}))
	assert.Equal(t, "#ff0000", v1.Style().FillColor)
	assert.Equal(t, "#ff0000", v2.Style().FillColor)
	assert.Equal(t, before+1, f.m.History().Len())

	on, err := f.g.ToggleCellStyle("flipH", false, []*model.Cell{v1, v2})
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, v2.Style().FlipH)

	err = f.g.SetCellStyles("rotation", "sideways", []*model.Cell{v1})
	assert.ErrorIs(t, err, style.ErrInvalidValue)
	assert.Zero(t, v1.Style().Rotation)
}

func TestAlignCells(t *testing.T) {
	tests := []struct {
		align  Align
		v1, v2 geom.Rect
	}{
		{AlignLeft, geom.R(0, 0, 100, 50), geom.R(0, 30, 50, 50)},
		{AlignRight, geom.R(150, 0, 100, 50), geom.R(200, 30, 50, 50)},
		{AlignTop, geom.R(0, 0, 100, 50), geom.R(200, 0, 50, 50)},
		{AlignBottom, geom.R(0, 30, 100, 50), geom.R(200, 30, 50, 50)},
		{AlignCenter, geom.R(0, 0, 100, 50), geom.R(25, 30, 50, 50)},
	}
	for _, tt := range tests {
		t.Run(string(tt.align), func(t *testing.T) {
			f := newFixture(t, DefaultOptions())
			v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
			v2 := f.vertex(t, nil, "v2", 200, 30, 50, 50)

			require.NoError(t, f.g.AlignCells(tt.align, []*model.Cell{v1, v2}, nil))
			assert.Equal(t, tt.v1, v1.Geometry().Bounds())
			assert.Equal(t, tt.v2, v2.Geometry().Bounds())
		})
	}
}

func TestSnapCells(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v := f.vertex(t, nil, "v", 13, 27, 41, 4)

	require.NoError(t, f.g.SnapCells([]*model.Cell{v}, 10))
	assert.Equal(t, geom.R(10, 30, 40, 10), v.Geometry().Bounds())
	assert.Equal(t, 20.0, f.g.Snap(17))
}

func TestUpdateCellSize(t *testing.T) {
	opts := DefaultOptions()
	opts.PreferredSize = func(c *model.Cell) (float64, float64, bool) { return 120, 40, c.ID() == "v" }
	f := newFixture(t, opts)
	v := f.vertex(t, nil, "v", 5, 5, 10, 10)
	other := f.vertex(t, nil, "other", 5, 5, 10, 10)

	require.NoError(t, f.g.UpdateCellSize(v, false))
	require.NoError(t, f.g.UpdateCellSize(other, false))
	assert.Equal(t, geom.R(5, 5, 120, 40), v.Geometry().Bounds())
	assert.Equal(t, geom.R(5, 5, 10, 10), other.Geometry().Bounds())
}

func TestResetEdges(t *testing.T) {
	opts := DefaultOptions()
	opts.ResetEdgesOnConnect = false
	f := newFixture(t, opts)
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	geo := &model.Geometry{Relative: true, Points: []geom.Point{{X: 150, Y: 100}}}
	e, err := f.g.InsertEdge(nil, "e", nil, v1, v2, geo, style.Style{})
	require.NoError(t, err)
	require.Len(t, e.Geometry().Points, 1)

	require.NoError(t, f.g.ResetEdges([]*model.Cell{v1, v2}))
	assert.Len(t, e.Geometry().Points, 1, "edges inside the set keep their points")

	require.NoError(t, f.g.ResetEdges([]*model.Cell{v1}))
	assert.Empty(t, e.Geometry().Points)
}

func TestDisconnectGraph(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	v1 := f.vertex(t, nil, "v1", 0, 0, 100, 50)
	v2 := f.vertex(t, nil, "v2", 200, 0, 100, 50)
	e := f.edge(t, "e", v1, v2)

	require.NoError(t, f.g.DisconnectGraph([]*model.Cell{v1, e}))
	assert.Same(t, v1, e.Source())
	assert.Nil(t, e.Target())
	assertPoint(t, geom.Pt(200, 25), e.Geometry().TargetPoint)
}
