package fractal

import (
	"errors"
	"fmt"
)

// Kind identifies a fractal variant.
type Kind string

// Supported fractal variants
const (
	KindTree   Kind = "tree"
	KindCircle Kind = "circle"
	KindFlower Kind = "flower"
)

// Common errors returned by the fractal package
var (
	// ErrCancelled is returned when rendering or writing was stopped by a CancelToken.
	ErrCancelled = errors.New("fractal generation was cancelled")

	// ErrUnknownKind is returned for a Spec that is not one of the known variants.
	ErrUnknownKind = errors.New("unknown fractal kind")
)

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindTree, KindCircle, KindFlower:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Dimensions holds the parameters shared by every variant.
type Dimensions struct {
	Width             int `json:"width"`
	Height            int `json:"height"`
	TotalIterations   int `json:"total_iterations"`
	PaddingHorizontal int `json:"padding_horizontal"`
	PaddingVertical   int `json:"padding_vertical"`
}

// UsableWidth is the width left after removing the horizontal padding on both sides.
func (d Dimensions) UsableWidth() float64 {
	return float64(d.Width - 2*d.PaddingHorizontal)
}

// UsableHeight is the height left after removing the vertical padding on both sides.
func (d Dimensions) UsableHeight() float64 {
	return float64(d.Height - 2*d.PaddingVertical)
}

// Spec is the closed set of fractal parameter sets: Tree, Circle and Flower.
type Spec interface {
	Kind() Kind
	Dims() Dimensions
	sealed()
}

// Tree is a binary tree of line segments.
type Tree struct {
	Dimensions
	// Angle (radians) between the two child segments.
	Angle float64 `json:"angle"`
	// ScalingFactor scales each child segment relative to its parent.
	ScalingFactor float64 `json:"scaling_factor"`
}

// Circle is a circle surrounded by recursively smaller satellite circles.
type Circle struct {
	Dimensions
	SatelliteCount int     `json:"satellite_count"`
	ScalingFactor  float64 `json:"scaling_factor"`
	// ZoomFactor sizes the root circle relative to the usable area.
	ZoomFactor float64 `json:"zoom_factor"`
	// Rotation (radians) applied to the placement of every satellite.
	Rotation float64 `json:"rotation"`
}

// Flower is a circle from which arcs ("petals") sprout recursively.
type Flower struct {
	Dimensions
	PetalCount int `json:"petal_count"`
	// ArcAngle (radians) spanned by each petal arc, e.g. π for a semicircle.
	ArcAngle      float64 `json:"arc_angle"`
	ScalingFactor float64 `json:"scaling_factor"`
	// ScalingPower is the exponent applied to ScalingFactor (halved) for child radii.
	ScalingPower float64 `json:"scaling_power"`
}

func (Tree) Kind() Kind   { return KindTree }
func (Circle) Kind() Kind { return KindCircle }
func (Flower) Kind() Kind { return KindFlower }

func (t Tree) Dims() Dimensions   { return t.Dimensions }
func (c Circle) Dims() Dimensions { return c.Dimensions }
func (f Flower) Dims() Dimensions { return f.Dimensions }

func (Tree) sealed()   {}
func (Circle) sealed() {}
func (Flower) sealed() {}

// Normalize returns the value form of s, dereferencing pointer variants.
// It returns nil for a nil Spec or a nil pointer.
func Normalize(s Spec) Spec {
	switch v := s.(type) {
	case *Tree:
		if v == nil {
			return nil
		}
		return *v
	case *Circle:
		if v == nil {
			return nil
		}
		return *v
	case *Flower:
		if v == nil {
			return nil
		}
		return *v
	default:
		return s
	}
}

// Equal reports whether a and b are the same variant with identical parameters.
// Floating-point fields are compared exactly. A nil Spec is never equal to anything.
func Equal(a, b Spec) bool {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		return false
	}
	if a.Kind() != b.Kind() || a.Dims() != b.Dims() {
		return false
	}

	switch x := a.(type) {
	case Tree:
		y, ok := b.(Tree)
		return ok &&
			x.Angle == y.Angle &&
			x.ScalingFactor == y.ScalingFactor
	case Circle:
		y, ok := b.(Circle)
		return ok &&
			x.SatelliteCount == y.SatelliteCount &&
			x.ScalingFactor == y.ScalingFactor &&
			x.ZoomFactor == y.ZoomFactor &&
			x.Rotation == y.Rotation
	case Flower:
		y, ok := b.(Flower)
		return ok &&
			x.PetalCount == y.PetalCount &&
			x.ArcAngle == y.ArcAngle &&
			x.ScalingFactor == y.ScalingFactor &&
			x.ScalingPower == y.ScalingPower
	default:
		return false
	}
}
