package style

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var s Style
	assert.True(t, s.IsFoldable())
	assert.True(t, s.IsMovable())
	assert.True(t, s.IsResizable())
	assert.True(t, s.IsCloneable())
	assert.True(t, s.IsHorizontal())
	assert.False(t, s.IsOrthogonal())
	assert.Equal(t, DefaultLoopSize, s.LoopDistance())

	_, ok := s.Get("exitX")
	assert.False(t, ok)
}

func TestSetKnownKeys(t *testing.T) {
	var s Style
	require.NoError(t, s.Set("rotation", 450.0))
	require.NoError(t, s.Set("foldable", "0"))
	require.NoError(t, s.Set("exitX", "0.5"))
	require.NoError(t, s.Set("edgeStyle", "elbow"))
	require.NoError(t, s.Set("locked", true))

	assert.Equal(t, 90.0, s.Rotation)
	assert.False(t, s.IsFoldable())
	assert.Equal(t, Num(0.5), s.ExitX)
	assert.True(t, s.IsOrthogonal())
	assert.False(t, s.IsMovable(), "locked cells are not movable")
}

func TestSetRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"nan rotation", "rotation", math.NaN()},
		{"infinite size", "startSize", math.Inf(1)},
		{"non numeric", "exitY", "abc"},
		{"bad bool", "foldable", "maybe"},
		{"bad string", "shape", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Style
			require.NoError(t, s.Set("shape", "ellipse"))
			require.NoError(t, s.Set("rotation", 45))
			require.NoError(t, s.Set("startSize", 20))
			require.NoError(t, s.Set("exitY", 0.5))
			require.NoError(t, s.Set("foldable", false))
			before := s.Map()

			err := s.Set(tt.key, tt.value)
			require.ErrorIs(t, err, ErrInvalidValue)
			assert.Equal(t, before, s.Map(), "failed set leaves the style unchanged")
		})
	}
}

func TestExtraKeysAndClear(t *testing.T) {
	var s Style
	require.NoError(t, s.Set("customTag", "db"))
	v, ok := s.Get("customTag")
	require.True(t, ok)
	assert.Equal(t, "db", v)

	require.NoError(t, s.Set("customTag", nil))
	_, ok = s.Get("customTag")
	assert.False(t, ok)
	assert.Nil(t, s.Extra)

	require.NoError(t, s.Set("exitX", 0.25))
	require.NoError(t, s.Set("exitX", nil))
	assert.False(t, s.ExitX.Valid)
}

func TestCloneIsDeep(t *testing.T) {
	var s Style
	require.NoError(t, s.Set("customTag", "a"))
	c := s.Clone()
	require.NoError(t, c.Set("customTag", "b"))

	v, _ := s.Get("customTag")
	assert.Equal(t, "a", v)
	assert.False(t, s.Equal(c))
}

func TestMapRoundTrip(t *testing.T) {
	in := map[string]any{
		"shape":     "ellipse",
		"rotation":  30.0,
		"foldable":  false,
		"entryX":    1.0,
		"customTag": "x",
	}
	s, err := FromMap(in)
	require.NoError(t, err)
	assert.Equal(t, in, s.Map())

	again, err := FromMap(s.Map())
	require.NoError(t, err)
	assert.True(t, s.Equal(again))
}

func TestWithLeavesOriginal(t *testing.T) {
	var s Style
	c, err := s.With("movable", false)
	require.NoError(t, err)
	assert.True(t, s.IsMovable())
	assert.False(t, c.IsMovable())

	_, err = s.With("rotation", math.Inf(-1))
	assert.Error(t, err)
}
