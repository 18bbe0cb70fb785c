package view

import (
	"math"

	"github.com/inamate/diagram/internal/geom"
	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/style"
)

// computeEdge resolves the terminal points and the route of an edge. It
// returns nil when a connected terminal has no state or a dangling end has
// no terminal point.
func (v *View) computeEdge(cell *model.Cell, parent *CellState) *CellState {
	st := v.newState(cell, parent)
	geo := cell.Geometry()
	if geo == nil {
		return nil
	}

	src := v.visibleTerminalState(cell, true)
	trg := v.visibleTerminalState(cell, false)
	if (cell.Source() != nil && src == nil) || (src == nil && geo.SourcePoint == nil) ||
		(cell.Target() != nil && trg == nil) || (trg == nil && geo.TargetPoint == nil) {
		return nil
	}
	st.SourceState, st.TargetState = src, trg

	p0 := v.fixedTerminalPoint(st, src, true)
	pn := v.fixedTerminalPoint(st, trg, false)
	mid := v.route(st, geo, src, trg, p0, pn)

	orthogonal := st.Style.IsOrthogonal()
	if p0 == nil {
		next := v.nextPoint(mid, pn, trg, true)
		p := v.perimeterPoint(src, next, orthogonal, st.Style.SourcePerimeterSpacing)
		p0 = &p
	}
	if pn == nil {
		next := v.nextPoint(mid, p0, src, false)
		p := v.perimeterPoint(trg, next, orthogonal, st.Style.TargetPerimeterSpacing)
		pn = &p
	}

	st.Points = make([]geom.Point, 0, len(mid)+2)
	st.Points = append(st.Points, *p0)
	st.Points = append(st.Points, mid...)
	st.Points = append(st.Points, *pn)

	v.updateEdgeBounds(st, geo)
	return st
}

// visibleTerminalState returns the state of the terminal, or of its
// outermost collapsed or hidden ancestor below the layer. A port named in
// the edge style takes the place of the terminal while it is shown.
func (v *View) visibleTerminalState(edge *model.Cell, source bool) *CellState {
	terminal := edge.Terminal(source)
	if terminal == nil {
		return nil
	}
	port := edge.Style().TargetPort
	if source {
		port = edge.Style().SourcePort
	}
	if port != "" {
		if p := v.model.CellByID(port); p != nil && model.IsAncestor(terminal, p) && v.IsCellShown(p) {
			if st := v.state(p); st != nil {
				return st
			}
		}
	}
	best := terminal
	root := v.model.Root()
	for c := terminal; c != nil && c != root; c = c.Parent() {
		if !best.IsVisible() || c.IsCollapsed() {
			best = c
		}
	}
	if v.model.IsLayer(best) {
		return nil
	}
	return v.state(best)
}

// fixedTerminalPoint returns the point given by a connection constraint
// (exitX/exitY, entryX/entryY) or the stored terminal point of a dangling
// end. It returns nil for floating ends.
func (v *View) fixedTerminalPoint(edge, terminal *CellState, source bool) *geom.Point {
	if terminal == nil {
		pt := edge.Cell.Geometry().TerminalPoint(source)
		if pt == nil {
			return nil
		}
		p := v.transformControlPoint(edge, *pt)
		return &p
	}

	s := edge.Style
	fx, fy, perimeter := s.EntryX, s.EntryY, s.EntryPerimeter
	if source {
		fx, fy, perimeter = s.ExitX, s.ExitY, s.ExitPerimeter
	}
	if !fx.Valid || !fy.Valid {
		return nil
	}

	x, y := fx.Value, fy.Value
	if terminal.Style.FlipH {
		x = 1 - x
	}
	if terminal.Style.FlipV {
		y = 1 - y
	}
	b := terminal.Bounds
	p := geom.Point{X: b.X + x*b.Width, Y: b.Y + y*b.Height}
	if terminal.Rotation != 0 {
		p = geom.RotatePointDegrees(p, terminal.Rotation, b.Center())
	}
	if perimeter.Or(true) {
		p = v.perimeterPoint(terminal, p, false, 0)
	}
	return &p
}

// transformControlPoint converts a point relative to the edge's parent into
// view coordinates.
func (v *View) transformControlPoint(st *CellState, p geom.Point) geom.Point {
	return geom.Point{
		X: v.scale * (p.X + v.translate.X + st.Origin.X),
		Y: v.scale * (p.Y + v.translate.Y + st.Origin.Y),
	}
}

// nextPoint returns the point a floating end aims at: the nearest route
// point, else the opposite end, else the opposite terminal's center.
func (v *View) nextPoint(mid []geom.Point, opposite *geom.Point, oppositeState *CellState, source bool) geom.Point {
	if len(mid) > 0 {
		if source {
			return mid[0]
		}
		return mid[len(mid)-1]
	}
	if opposite != nil {
		return *opposite
	}
	if oppositeState != nil {
		return oppositeState.Center()
	}
	return geom.Point{}
}

// perimeterPoint clips the line from the terminal's center towards next
// against the terminal's perimeter, honoring rotation and direction.
func (v *View) perimeterPoint(terminal *CellState, next geom.Point, orthogonal bool, spacing float64) geom.Point {
	fn := perimeterOf(terminal.Style)
	center := terminal.Center()
	if fn == nil {
		return center
	}

	bounds := terminal.Bounds.Grow((terminal.Style.PerimeterSpacing + spacing) * v.scale)
	angle := terminal.Rotation
	switch terminal.Style.Direction {
	case style.DirectionSouth:
		angle += 90
	case style.DirectionWest:
		angle += 180
	case style.DirectionNorth:
		angle += 270
	}
	quarter := math.Mod(math.Abs(angle), 180) == 90
	if quarter {
		bounds = bounds.Rotate90()
	}

	if angle != 0 {
		next = geom.RotatePointDegrees(next, -angle, center)
	}
	p := fn(bounds, next, orthogonal && angle == 0)
	if angle != 0 {
		p = geom.RotatePointDegrees(p, angle, center)
	}
	return p
}

func perimeterOf(s style.Style) geom.Perimeter {
	switch s.Perimeter {
	case "none":
		return nil
	case "":
		if fn := geom.PerimeterByName(s.Shape); fn != nil {
			return fn
		}
		return geom.RectanglePerimeter
	}
	if fn := geom.PerimeterByName(s.Perimeter); fn != nil {
		return fn
	}
	return geom.RectanglePerimeter
}

// route returns the intermediate points of the edge in view coordinates.
func (v *View) route(st *CellState, geo *model.Geometry, src, trg *CellState, p0, pn *geom.Point) []geom.Point {
	points := make([]geom.Point, len(geo.Points))
	for i, p := range geo.Points {
		points[i] = v.transformControlPoint(st, p)
	}

	sb := terminalRect(src, p0)
	tb := terminalRect(trg, pn)

	loop := src != nil && src == trg && len(points) < 2
	switch {
	case st.Style.EdgeStyle == style.EdgeStyleLoop || loop:
		if len(points) > 0 {
			return points
		}
		return loopRoute(sb, st.Style, v.scale)
	case st.Style.EdgeStyle == style.EdgeStyleElbow:
		var hint *geom.Point
		if len(points) > 0 {
			hint = &points[0]
		}
		if st.Style.Elbow == style.ElbowVertical {
			return topToBottom(sb, tb, hint)
		}
		return sideToSide(sb, tb, hint)
	case st.Style.EdgeStyle == style.EdgeStyleOrthogonal:
		return orthogonalRoute(sb, tb, points)
	}

	if len(points) == 0 && src == nil && trg == nil && p0 != nil && pn != nil && *p0 == *pn {
		// Coincident dangling ends would collapse to a dot.
		return loopRoute(sb, st.Style, v.scale)
	}
	return points
}

func terminalRect(st *CellState, p *geom.Point) geom.Rect {
	if st != nil {
		return st.Bounds
	}
	if p != nil {
		return geom.Rect{X: p.X, Y: p.Y}
	}
	return geom.Rect{}
}

// loopRoute synthesizes two points beside the terminal so a self-loop
// stays visible.
func loopRoute(b geom.Rect, s style.Style, scale float64) []geom.Point {
	seg := s.LoopDistance() * scale
	c := b.Center()
	switch s.Direction {
	case style.DirectionNorth, style.DirectionSouth:
		dx := max(seg/4, b.Width/4)
		y := b.Y - seg
		if s.Direction == style.DirectionSouth {
			y = b.Y + b.Height + seg
		}
		return []geom.Point{{X: c.X - dx, Y: y}, {X: c.X + dx, Y: y}}
	default:
		dy := max(seg/4, b.Height/4)
		x := b.X - seg
		if s.Direction == style.DirectionEast {
			x = b.X + b.Width + seg
		}
		return []geom.Point{{X: x, Y: c.Y - dy}, {X: x, Y: c.Y + dy}}
	}
}

// sideToSide routes a horizontal elbow: one vertical segment between the
// terminals at hint.X or halfway between them.
func sideToSide(source, target geom.Rect, hint *geom.Point) []geom.Point {
	l := max(source.X, target.X)
	r := min(source.X+source.Width, target.X+target.Width)
	x := math.Round(r + (l-r)/2)
	if hint != nil {
		x = hint.X
	}

	y1 := source.Center().Y
	y2 := target.Center().Y
	if hint != nil {
		if hint.Y >= source.Y && hint.Y <= source.Y+source.Height {
			y1 = hint.Y
		}
		if hint.Y >= target.Y && hint.Y <= target.Y+target.Height {
			y2 = hint.Y
		}
	}

	var out []geom.Point
	if !source.Contains(x, y1) && !target.Contains(x, y1) {
		out = append(out, geom.Point{X: x, Y: y1})
	}
	if !source.Contains(x, y2) && !target.Contains(x, y2) {
		out = append(out, geom.Point{X: x, Y: y2})
	}
	if len(out) == 1 {
		if hint != nil {
			if !source.Contains(x, hint.Y) && !target.Contains(x, hint.Y) {
				out = append(out, geom.Point{X: x, Y: hint.Y})
			}
		} else {
			t := max(source.Y, target.Y)
			b := min(source.Y+source.Height, target.Y+target.Height)
			out = append(out, geom.Point{X: x, Y: t + (b-t)/2})
		}
	}
	return out
}

// topToBottom is the vertical counterpart of sideToSide.
func topToBottom(source, target geom.Rect, hint *geom.Point) []geom.Point {
	t := max(source.Y, target.Y)
	b := min(source.Y+source.Height, target.Y+target.Height)
	y := math.Round(b + (t-b)/2)
	if hint != nil {
		y = hint.Y
	}

	x1 := source.Center().X
	x2 := target.Center().X
	if hint != nil {
		if hint.X >= source.X && hint.X <= source.X+source.Width {
			x1 = hint.X
		}
		if hint.X >= target.X && hint.X <= target.X+target.Width {
			x2 = hint.X
		}
	}

	var out []geom.Point
	if !source.Contains(x1, y) && !target.Contains(x1, y) {
		out = append(out, geom.Point{X: x1, Y: y})
	}
	if !source.Contains(x2, y) && !target.Contains(x2, y) {
		out = append(out, geom.Point{X: x2, Y: y})
	}
	if len(out) == 1 {
		if hint != nil {
			if !source.Contains(hint.X, y) && !target.Contains(hint.X, y) {
				out = append(out, geom.Point{X: hint.X, Y: y})
			}
		} else {
			l := max(source.X, target.X)
			r := min(source.X+source.Width, target.X+target.Width)
			out = append(out, geom.Point{X: l + (r-l)/2, Y: y})
		}
	}
	return out
}

// orthogonalRoute connects the terminal centers through the waypoints with
// axis-aligned segments, bending halfway along the dominant axis of each
// leg.
func orthogonalRoute(source, target geom.Rect, waypoints []geom.Point) []geom.Point {
	anchors := make([]geom.Point, 0, len(waypoints)+2)
	anchors = append(anchors, source.Center())
	anchors = append(anchors, waypoints...)
	anchors = append(anchors, target.Center())

	var out []geom.Point
	for i := 0; i < len(anchors)-1; i++ {
		a, b := anchors[i], anchors[i+1]
		if i > 0 {
			out = append(out, a)
		}
		if a.X == b.X || a.Y == b.Y {
			continue
		}
		if math.Abs(b.X-a.X) >= math.Abs(b.Y-a.Y) {
			mx := a.X + (b.X-a.X)/2
			out = append(out, geom.Point{X: mx, Y: a.Y}, geom.Point{X: mx, Y: b.Y})
		} else {
			my := a.Y + (b.Y-a.Y)/2
			out = append(out, geom.Point{X: a.X, Y: my}, geom.Point{X: b.X, Y: my})
		}
	}
	return out
}

// updateEdgeBounds fills the length fields, the label position and the
// bounds of an edge state from its points.
func (v *View) updateEdgeBounds(st *CellState, geo *model.Geometry) {
	pts := st.Points
	st.Segments = make([]float64, len(pts)-1)
	st.Length = 0
	for i := 1; i < len(pts); i++ {
		d := pts[i].Dist(pts[i-1])
		st.Segments[i-1] = d
		st.Length += d
	}
	st.TerminalDistance = pts[len(pts)-1].Dist(pts[0])

	st.LabelPosition = st.PointAt((geo.X + 1) / 2)
	if geo.Offset != nil {
		st.AbsoluteOffset = geo.Offset.Mul(v.scale)
		st.LabelPosition = st.LabelPosition.Add(st.AbsoluteOffset)
	}

	st.Bounds = geom.BoundsOf(pts)
	st.RotatedBounds = st.Bounds
}
