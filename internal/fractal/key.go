package fractal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Key returns a canonical string for s such that Key(a) == Key(b) exactly when
// Equal(a, b). Stores index records by this string. It returns "" for a nil Spec.
func Key(s Spec) string {
	s = Normalize(s)
	if s == nil {
		return ""
	}

	d := s.Dims()
	var b strings.Builder
	b.WriteString(string(s.Kind()))
	fmt.Fprintf(&b, ":w=%d,h=%d,i=%d,pw=%d,ph=%d",
		d.Width, d.Height, d.TotalIterations, d.PaddingHorizontal, d.PaddingVertical)

	switch v := s.(type) {
	case Tree:
		writeFloat(&b, "angle", v.Angle)
		writeFloat(&b, "factor", v.ScalingFactor)
	case Circle:
		fmt.Fprintf(&b, ",satellites=%d", v.SatelliteCount)
		writeFloat(&b, "factor", v.ScalingFactor)
		writeFloat(&b, "zoom", v.ZoomFactor)
		writeFloat(&b, "rotation", v.Rotation)
	case Flower:
		fmt.Fprintf(&b, ",petals=%d", v.PetalCount)
		writeFloat(&b, "arc", v.ArcAngle)
		writeFloat(&b, "factor", v.ScalingFactor)
		writeFloat(&b, "power", v.ScalingPower)
	}
	return b.String()
}

func writeFloat(b *strings.Builder, name string, f float64) {
	// -0 and 0 compare equal, so they must share a key.
	if f == 0 {
		f = 0
	}
	b.WriteString(",")
	b.WriteString(name)
	b.WriteString("=")
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

// MarshalParams encodes the parameters of s (without its kind) as JSON.
func MarshalParams(s Spec) ([]byte, error) {
	s = Normalize(s)
	if s == nil {
		return nil, fmt.Errorf("%w: nil spec", ErrUnknownKind)
	}
	return json.Marshal(s)
}

// UnmarshalParams decodes parameters produced by MarshalParams into the variant named by kind.
func UnmarshalParams(kind Kind, data []byte) (Spec, error) {
	switch kind {
	case KindTree:
		var t Tree
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to decode tree params: %w", err)
		}
		return t, nil
	case KindCircle:
		var c Circle
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to decode circle params: %w", err)
		}
		return c, nil
	case KindFlower:
		var f Flower
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode flower params: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
