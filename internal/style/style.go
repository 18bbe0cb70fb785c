// Package style defines the typed style record attached to every diagram
// element. Known keys map onto typed fields with explicit defaults; any other
// key lands in the Extra map untouched.
package style

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"sort"
	"strconv"
)

var ErrInvalidValue = errors.New("style: invalid value")

// Key names a known style attribute.
type Key string

const (
	KeyShape                  Key = "shape"
	KeyPerimeter              Key = "perimeter"
	KeyPerimeterSpacing       Key = "perimeterSpacing"
	KeySourcePerimeterSpacing Key = "sourcePerimeterSpacing"
	KeyTargetPerimeterSpacing Key = "targetPerimeterSpacing"
	KeyDirection              Key = "direction"
	KeyRotation               Key = "rotation"
	KeyFlipH                  Key = "flipH"
	KeyFlipV                  Key = "flipV"
	KeyExitX                  Key = "exitX"
	KeyExitY                  Key = "exitY"
	KeyExitPerimeter          Key = "exitPerimeter"
	KeyEntryX                 Key = "entryX"
	KeyEntryY                 Key = "entryY"
	KeyEntryPerimeter         Key = "entryPerimeter"
	KeyEdgeStyle              Key = "edgeStyle"
	KeyElbow                  Key = "elbow"
	KeyLoopSize               Key = "loopSize"
	KeyFoldable               Key = "foldable"
	KeyMovable                Key = "movable"
	KeyResizable              Key = "resizable"
	KeyCloneable              Key = "cloneable"
	KeyDeletable              Key = "deletable"
	KeyBendable               Key = "bendable"
	KeyEditable               Key = "editable"
	KeyLocked                 Key = "locked"
	KeyContainer              Key = "container"
	KeyStartSize              Key = "startSize"
	KeyHorizontal             Key = "horizontal"
	KeySourcePort             Key = "sourcePort"
	KeyTargetPort             Key = "targetPort"
	KeyFillColor              Key = "fillColor"
	KeyStrokeColor            Key = "strokeColor"
	KeyStrokeWidth            Key = "strokeWidth"
	KeyOpacity                Key = "opacity"
)

// Direction is the orientation of a shape.
type Direction string

const (
	DirectionEast  Direction = "east"
	DirectionWest  Direction = "west"
	DirectionNorth Direction = "north"
	DirectionSouth Direction = "south"
)

// EdgeStyle selects the router used for an edge.
type EdgeStyle string

const (
	EdgeStyleNone       EdgeStyle = ""
	EdgeStyleElbow      EdgeStyle = "elbow"
	EdgeStyleOrthogonal EdgeStyle = "orthogonal"
	EdgeStyleLoop       EdgeStyle = "loop"
)

// Elbow selects the bend orientation of elbow edges.
type Elbow string

const (
	ElbowHorizontal Elbow = "horizontal"
	ElbowVertical   Elbow = "vertical"
)

// Flag is a boolean that remembers whether it was set.
type Flag uint8

const (
	Unset Flag = iota
	True
	False
)

// FlagOf converts b into a set Flag.
func FlagOf(b bool) Flag {
	if b {
		return True
	}
	return False
}

// Or returns the flag's value, or def when unset.
func (f Flag) Or(def bool) bool {
	switch f {
	case True:
		return true
	case False:
		return false
	default:
		return def
	}
}

// Float is an optional number.
type Float struct {
	Value float64
	Valid bool
}

// Num returns a valid Float.
func Num(v float64) Float {
	return Float{Value: v, Valid: true}
}

// Style is the typed style record of an element. The zero value is the
// default style.
type Style struct {
	Shape                  string
	Perimeter              string
	PerimeterSpacing       float64
	SourcePerimeterSpacing float64
	TargetPerimeterSpacing float64
	Direction              Direction
	Rotation               float64
	FlipH                  bool
	FlipV                  bool

	ExitX, ExitY   Float
	ExitPerimeter  Flag
	EntryX, EntryY Float
	EntryPerimeter Flag

	EdgeStyle EdgeStyle
	Elbow     Elbow
	LoopSize  Float

	Foldable  Flag
	Movable   Flag
	Resizable Flag
	Cloneable Flag
	Deletable Flag
	Bendable  Flag
	Editable  Flag
	Locked    bool

	Container  bool
	StartSize  float64
	Horizontal Flag

	SourcePort string
	TargetPort string

	FillColor   string
	StrokeColor string
	StrokeWidth Float
	Opacity     Float

	// Extra holds keys outside the known set.
	Extra map[string]any
}

// DefaultLoopSize is the distance of a synthesized self-loop from its vertex.
const DefaultLoopSize = 40.0

// Clone returns a deep copy of s.
func (s Style) Clone() Style {
	c := s
	if s.Extra != nil {
		c.Extra = maps.Clone(s.Extra)
	}
	return c
}

// Equal reports whether two styles hold the same values.
func (s Style) Equal(o Style) bool {
	return reflect.DeepEqual(s.Map(), o.Map())
}

// IsFoldable defaults to true.
func (s Style) IsFoldable() bool { return s.Foldable.Or(true) }

// IsMovable defaults to true.
func (s Style) IsMovable() bool { return s.Movable.Or(true) && !s.Locked }

// IsResizable defaults to true.
func (s Style) IsResizable() bool { return s.Resizable.Or(true) && !s.Locked }

// IsCloneable defaults to true.
func (s Style) IsCloneable() bool { return s.Cloneable.Or(true) }

// IsDeletable defaults to true.
func (s Style) IsDeletable() bool { return s.Deletable.Or(true) && !s.Locked }

// IsBendable defaults to true.
func (s Style) IsBendable() bool { return s.Bendable.Or(true) && !s.Locked }

// IsHorizontal defaults to true.
func (s Style) IsHorizontal() bool { return s.Horizontal.Or(true) }

// IsOrthogonal reports whether the edge style routes axis-aligned segments.
func (s Style) IsOrthogonal() bool {
	return s.EdgeStyle == EdgeStyleElbow || s.EdgeStyle == EdgeStyleOrthogonal
}

// LoopDistance returns the self-loop offset.
func (s Style) LoopDistance() float64 {
	if s.LoopSize.Valid {
		return s.LoopSize.Value
	}
	return DefaultLoopSize
}

// Get returns the value stored under key. ok is false if the key is unset.
func (s Style) Get(key string) (any, bool) {
	switch Key(key) {
	case KeyShape:
		return s.Shape, s.Shape != ""
	case KeyPerimeter:
		return s.Perimeter, s.Perimeter != ""
	case KeyPerimeterSpacing:
		return s.PerimeterSpacing, s.PerimeterSpacing != 0
	case KeySourcePerimeterSpacing:
		return s.SourcePerimeterSpacing, s.SourcePerimeterSpacing != 0
	case KeyTargetPerimeterSpacing:
		return s.TargetPerimeterSpacing, s.TargetPerimeterSpacing != 0
	case KeyDirection:
		return string(s.Direction), s.Direction != ""
	case KeyRotation:
		return s.Rotation, s.Rotation != 0
	case KeyFlipH:
		return s.FlipH, s.FlipH
	case KeyFlipV:
		return s.FlipV, s.FlipV
	case KeyExitX:
		return s.ExitX.Value, s.ExitX.Valid
	case KeyExitY:
		return s.ExitY.Value, s.ExitY.Valid
	case KeyExitPerimeter:
		return s.ExitPerimeter.Or(true), s.ExitPerimeter != Unset
	case KeyEntryX:
		return s.EntryX.Value, s.EntryX.Valid
	case KeyEntryY:
		return s.EntryY.Value, s.EntryY.Valid
	case KeyEntryPerimeter:
		return s.EntryPerimeter.Or(true), s.EntryPerimeter != Unset
	case KeyEdgeStyle:
		return string(s.EdgeStyle), s.EdgeStyle != EdgeStyleNone
	case KeyElbow:
		return string(s.Elbow), s.Elbow != ""
	case KeyLoopSize:
		return s.LoopSize.Value, s.LoopSize.Valid
	case KeyFoldable:
		return s.Foldable.Or(true), s.Foldable != Unset
	case KeyMovable:
		return s.Movable.Or(true), s.Movable != Unset
	case KeyResizable:
		return s.Resizable.Or(true), s.Resizable != Unset
	case KeyCloneable:
		return s.Cloneable.Or(true), s.Cloneable != Unset
	case KeyDeletable:
		return s.Deletable.Or(true), s.Deletable != Unset
	case KeyBendable:
		return s.Bendable.Or(true), s.Bendable != Unset
	case KeyEditable:
		return s.Editable.Or(true), s.Editable != Unset
	case KeyLocked:
		return s.Locked, s.Locked
	case KeyContainer:
		return s.Container, s.Container
	case KeyStartSize:
		return s.StartSize, s.StartSize != 0
	case KeyHorizontal:
		return s.Horizontal.Or(true), s.Horizontal != Unset
	case KeySourcePort:
		return s.SourcePort, s.SourcePort != ""
	case KeyTargetPort:
		return s.TargetPort, s.TargetPort != ""
	case KeyFillColor:
		return s.FillColor, s.FillColor != ""
	case KeyStrokeColor:
		return s.StrokeColor, s.StrokeColor != ""
	case KeyStrokeWidth:
		return s.StrokeWidth.Value, s.StrokeWidth.Valid
	case KeyOpacity:
		return s.Opacity.Value, s.Opacity.Valid
	}
	v, ok := s.Extra[key]
	return v, ok
}

// Set stores value under key. A nil value clears the key. Values may be
// given as their natural type or as strings, as they appear in exchange
// formats. Non-finite numbers are rejected and leave s unchanged.
func (s *Style) Set(key string, value any) error {
	if value == nil {
		s.clear(key)
		return nil
	}

	prev := *s
	var err error
	switch Key(key) {
	case KeyShape:
		s.Shape, err = asString(value)
	case KeyPerimeter:
		s.Perimeter, err = asString(value)
	case KeyPerimeterSpacing:
		s.PerimeterSpacing, err = asNumber(value)
	case KeySourcePerimeterSpacing:
		s.SourcePerimeterSpacing, err = asNumber(value)
	case KeyTargetPerimeterSpacing:
		s.TargetPerimeterSpacing, err = asNumber(value)
	case KeyDirection:
		var d string
		d, err = asString(value)
		s.Direction = Direction(d)
	case KeyRotation:
		var r float64
		r, err = asNumber(value)
		s.Rotation = math.Mod(r, 360)
	case KeyFlipH:
		s.FlipH, err = asBool(value)
	case KeyFlipV:
		s.FlipV, err = asBool(value)
	case KeyExitX:
		s.ExitX, err = asFloat(value)
	case KeyExitY:
		s.ExitY, err = asFloat(value)
	case KeyExitPerimeter:
		s.ExitPerimeter, err = asFlag(value)
	case KeyEntryX:
		s.EntryX, err = asFloat(value)
	case KeyEntryY:
		s.EntryY, err = asFloat(value)
	case KeyEntryPerimeter:
		s.EntryPerimeter, err = asFlag(value)
	case KeyEdgeStyle:
		var e string
		e, err = asString(value)
		s.EdgeStyle = EdgeStyle(e)
	case KeyElbow:
		var e string
		e, err = asString(value)
		s.Elbow = Elbow(e)
	case KeyLoopSize:
		s.LoopSize, err = asFloat(value)
	case KeyFoldable:
		s.Foldable, err = asFlag(value)
	case KeyMovable:
		s.Movable, err = asFlag(value)
	case KeyResizable:
		s.Resizable, err = asFlag(value)
	case KeyCloneable:
		s.Cloneable, err = asFlag(value)
	case KeyDeletable:
		s.Deletable, err = asFlag(value)
	case KeyBendable:
		s.Bendable, err = asFlag(value)
	case KeyEditable:
		s.Editable, err = asFlag(value)
	case KeyLocked:
		s.Locked, err = asBool(value)
	case KeyContainer:
		s.Container, err = asBool(value)
	case KeyStartSize:
		s.StartSize, err = asNumber(value)
	case KeyHorizontal:
		s.Horizontal, err = asFlag(value)
	case KeySourcePort:
		s.SourcePort, err = asString(value)
	case KeyTargetPort:
		s.TargetPort, err = asString(value)
	case KeyFillColor:
		s.FillColor, err = asString(value)
	case KeyStrokeColor:
		s.StrokeColor, err = asString(value)
	case KeyStrokeWidth:
		s.StrokeWidth, err = asFloat(value)
	case KeyOpacity:
		s.Opacity, err = asFloat(value)
	default:
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[key] = value
	}
	if err != nil {
		*s = prev
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// With returns a copy of s with key set to value.
func (s Style) With(key string, value any) (Style, error) {
	c := s.Clone()
	if err := c.Set(key, value); err != nil {
		return s, err
	}
	return c, nil
}

// Map returns every set key as a plain map, suitable for encoding.
func (s Style) Map() map[string]any {
	out := make(map[string]any)
	for _, k := range Keys() {
		if v, ok := s.Get(string(k)); ok {
			out[string(k)] = v
		}
	}
	for k, v := range s.Extra {
		out[k] = v
	}
	return out
}

// FromMap builds a style from a plain map.
func FromMap(m map[string]any) (Style, error) {
	var s Style
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.Set(k, m[k]); err != nil {
			return Style{}, err
		}
	}
	return s, nil
}

// Keys lists the known keys.
func Keys() []Key {
	return []Key{
		KeyShape, KeyPerimeter, KeyPerimeterSpacing, KeySourcePerimeterSpacing,
		KeyTargetPerimeterSpacing, KeyDirection, KeyRotation, KeyFlipH, KeyFlipV,
		KeyExitX, KeyExitY, KeyExitPerimeter, KeyEntryX, KeyEntryY, KeyEntryPerimeter,
		KeyEdgeStyle, KeyElbow, KeyLoopSize, KeyFoldable, KeyMovable, KeyResizable,
		KeyCloneable, KeyDeletable, KeyBendable, KeyEditable, KeyLocked, KeyContainer,
		KeyStartSize, KeyHorizontal, KeySourcePort, KeyTargetPort, KeyFillColor,
		KeyStrokeColor, KeyStrokeWidth, KeyOpacity,
	}
}

func (s *Style) clear(key string) {
	var zero Style
	switch Key(key) {
	case KeyShape:
		s.Shape = zero.Shape
	case KeyPerimeter:
		s.Perimeter = zero.Perimeter
	case KeyPerimeterSpacing:
		s.PerimeterSpacing = 0
	case KeySourcePerimeterSpacing:
		s.SourcePerimeterSpacing = 0
	case KeyTargetPerimeterSpacing:
		s.TargetPerimeterSpacing = 0
	case KeyDirection:
		s.Direction = ""
	case KeyRotation:
		s.Rotation = 0
	case KeyFlipH:
		s.FlipH = false
	case KeyFlipV:
		s.FlipV = false
	case KeyExitX:
		s.ExitX = Float{}
	case KeyExitY:
		s.ExitY = Float{}
	case KeyExitPerimeter:
		s.ExitPerimeter = Unset
	case KeyEntryX:
		s.EntryX = Float{}
	case KeyEntryY:
		s.EntryY = Float{}
	case KeyEntryPerimeter:
		s.EntryPerimeter = Unset
	case KeyEdgeStyle:
		s.EdgeStyle = EdgeStyleNone
	case KeyElbow:
		s.Elbow = ""
	case KeyLoopSize:
		s.LoopSize = Float{}
	case KeyFoldable:
		s.Foldable = Unset
	case KeyMovable:
		s.Movable = Unset
	case KeyResizable:
		s.Resizable = Unset
	case KeyCloneable:
		s.Cloneable = Unset
	case KeyDeletable:
		s.Deletable = Unset
	case KeyBendable:
		s.Bendable = Unset
	case KeyEditable:
		s.Editable = Unset
	case KeyLocked:
		s.Locked = false
	case KeyContainer:
		s.Container = false
	case KeyStartSize:
		s.StartSize = 0
	case KeyHorizontal:
		s.Horizontal = Unset
	case KeySourcePort:
		s.SourcePort = ""
	case KeyTargetPort:
		s.TargetPort = ""
	case KeyFillColor:
		s.FillColor = ""
	case KeyStrokeColor:
		s.StrokeColor = ""
	case KeyStrokeWidth:
		s.StrokeWidth = Float{}
	case KeyOpacity:
		s.Opacity = Float{}
	default:
		delete(s.Extra, key)
		if len(s.Extra) == 0 {
			s.Extra = nil
		}
	}
}

func asString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", fmt.Errorf("%w: want string, got %T", ErrInvalidValue, v)
}

func asNumber(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		p, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, t)
		}
		f = p
	default:
		return 0, fmt.Errorf("%w: want number, got %T", ErrInvalidValue, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrInvalidValue, f)
	}
	return f, nil
}

func asFloat(v any) (Float, error) {
	f, err := asNumber(v)
	if err != nil {
		return Float{}, err
	}
	return Num(f), nil
}

func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch t {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	}
	return false, fmt.Errorf("%w: want boolean, got %v", ErrInvalidValue, v)
}

func asFlag(v any) (Flag, error) {
	b, err := asBool(v)
	if err != nil {
		return Unset, err
	}
	return FlagOf(b), nil
}
