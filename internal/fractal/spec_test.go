package fractal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dims(w, h, i, pw, ph int) Dimensions {
	return Dimensions{Width: w, Height: h, TotalIterations: i, PaddingHorizontal: pw, PaddingVertical: ph}
}

func TestEqual_Equality(t *testing.T) {
	t.Parallel()

	a := Tree{Dimensions: dims(1, 2, 3, 6, 7), Angle: 4, ScalingFactor: 5}
	aEquals := Tree{Dimensions: dims(1, 2, 3, 6, 7), Angle: 4, ScalingFactor: 5}

	// Same value
	assert.True(t, Equal(a, a))

	// Equal by value, constructed separately, in both directions
	assert.True(t, Equal(a, aEquals))
	assert.True(t, Equal(aEquals, a))

	// Pointer and value forms compare by value
	assert.True(t, Equal(&a, aEquals))
}

func TestEqual_InequalityDifferentType(t *testing.T) {
	t.Parallel()

	tree := Tree{Dimensions: dims(1, 2, 3, 6, 7), Angle: 4, ScalingFactor: 5}
	circle := Circle{Dimensions: dims(1, 2, 3, 6, 7), SatelliteCount: 4, ScalingFactor: 5}
	flower := Flower{Dimensions: dims(1, 2, 3, 6, 7), PetalCount: 4, ScalingFactor: 5}

	assert.False(t, Equal(tree, nil))
	assert.False(t, Equal(nil, tree))
	assert.False(t, Equal(nil, nil))
	assert.False(t, Equal(tree, (*Tree)(nil)))

	assert.False(t, Equal(tree, circle))
	assert.False(t, Equal(circle, tree))
	assert.False(t, Equal(circle, flower))
}

func TestEqual_InequalitySameType(t *testing.T) {
	t.Parallel()

	base := dims(1, 2, 3, 6, 7)
	tree := Tree{Dimensions: base, Angle: 4, ScalingFactor: 5}
	circle := Circle{Dimensions: base, SatelliteCount: 4, ScalingFactor: 5, ZoomFactor: 8, Rotation: 9}
	flower := Flower{Dimensions: base, PetalCount: 4, ArcAngle: 5, ScalingFactor: 8, ScalingPower: 9}

	// Each case differs from its base in exactly one parameter
	testCases := []struct {
		name  string
		base  Spec
		other Spec
	}{
		{"tree width", tree, Tree{Dimensions: dims(100, 2, 3, 6, 7), Angle: 4, ScalingFactor: 5}},
		{"tree height", tree, Tree{Dimensions: dims(1, 200, 3, 6, 7), Angle: 4, ScalingFactor: 5}},
		{"tree iterations", tree, Tree{Dimensions: dims(1, 2, 634, 6, 7), Angle: 4, ScalingFactor: 5}},
		{"tree padding horizontal", tree, Tree{Dimensions: dims(1, 2, 3, 600, 7), Angle: 4, ScalingFactor: 5}},
		{"tree padding vertical", tree, Tree{Dimensions: dims(1, 2, 3, 6, 700), Angle: 4, ScalingFactor: 5}},
		{"tree angle", tree, Tree{Dimensions: base, Angle: 400, ScalingFactor: 5}},
		{"tree scaling factor", tree, Tree{Dimensions: base, Angle: 4, ScalingFactor: 500}},
		{"circle satellites", circle, Circle{Dimensions: base, SatelliteCount: 40, ScalingFactor: 5, ZoomFactor: 8, Rotation: 9}},
		{"circle scaling factor", circle, Circle{Dimensions: base, SatelliteCount: 4, ScalingFactor: 50, ZoomFactor: 8, Rotation: 9}},
		{"circle zoom", circle, Circle{Dimensions: base, SatelliteCount: 4, ScalingFactor: 5, ZoomFactor: 80, Rotation: 9}},
		{"circle rotation", circle, Circle{Dimensions: base, SatelliteCount: 4, ScalingFactor: 5, ZoomFactor: 8, Rotation: 90}},
		{"flower petals", flower, Flower{Dimensions: base, PetalCount: 40, ArcAngle: 5, ScalingFactor: 8, ScalingPower: 9}},
		{"flower arc angle", flower, Flower{Dimensions: base, PetalCount: 4, ArcAngle: 50, ScalingFactor: 8, ScalingPower: 9}},
		{"flower scaling factor", flower, Flower{Dimensions: base, PetalCount: 4, ArcAngle: 5, ScalingFactor: 80, ScalingPower: 9}},
		{"flower scaling power", flower, Flower{Dimensions: base, PetalCount: 4, ArcAngle: 5, ScalingFactor: 8, ScalingPower: 90}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, Equal(tc.base, tc.other))
			assert.False(t, Equal(tc.other, tc.base))
			assert.NotEqual(t, Key(tc.base), Key(tc.other))
		})
	}
}

func TestEqual_NoTolerance(t *testing.T) {
	t.Parallel()

	a := Tree{Dimensions: dims(500, 500, 10, 40, 40), Angle: math.Pi / 3, ScalingFactor: 0.77}
	b := a
	b.ScalingFactor = math.Nextafter(0.77, 1)

	assert.False(t, Equal(a, b), "specs one ulp apart must not be equal")
	assert.NotEqual(t, Key(a), Key(b))
}

func TestKey(t *testing.T) {
	t.Parallel()

	t.Run("equal specs share a key", func(t *testing.T) {
		a := Circle{Dimensions: dims(700, 500, 4, 40, 40), SatelliteCount: 4, ScalingFactor: 0.5, ZoomFactor: 0.2}
		b := a
		assert.Equal(t, Key(a), Key(b))
		assert.Equal(t, Key(a), Key(&b))
	})

	t.Run("negative zero", func(t *testing.T) {
		a := Circle{Dimensions: dims(700, 500, 4, 40, 40), Rotation: 0}
		b := Circle{Dimensions: dims(700, 500, 4, 40, 40), Rotation: math.Copysign(0, -1)}
		require.True(t, Equal(a, b))
		assert.Equal(t, Key(a), Key(b))
	})

	t.Run("kind prefix", func(t *testing.T) {
		assert.Contains(t, Key(Flower{}), "flower:")
		assert.Equal(t, "", Key(nil))
	})
}

func TestParams_RoundTrip(t *testing.T) {
	t.Parallel()

	specs := []Spec{
		Tree{Dimensions: dims(500, 500, 10, 40, 40), Angle: math.Pi / 3, ScalingFactor: 0.77},
		Circle{Dimensions: dims(700, 500, 4, 40, 40), SatelliteCount: 4, ScalingFactor: 0.5, ZoomFactor: 0.2, Rotation: 0.1},
		Flower{Dimensions: dims(600, 600, 5, 20, 20), PetalCount: 3, ArcAngle: math.Pi, ScalingFactor: 0.5, ScalingPower: 1.5},
	}

	for _, spec := range specs {
		data, err := MarshalParams(spec)
		require.NoError(t, err)

		decoded, err := UnmarshalParams(spec.Kind(), data)
		require.NoError(t, err)
		assert.True(t, Equal(spec, decoded), "decoded %s should equal original", spec.Kind())
	}

	_, err := UnmarshalParams(Kind("spiral"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind("circle")
	require.NoError(t, err)
	assert.Equal(t, KindCircle, k)

	_, err = ParseKind("mandelbrot")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
