package fractal

import "math"

type flowerRenderer struct {
	spec   Flower
	canvas Canvas
	token  *CancelToken
	// childScale is ScalingFactor^(ScalingPower/2).
	childScale float64
}

// renderFlower starts from a full circle at the image center; every petal is an
// arc of ArcAngle whose ends sit on its parent's arc.
func renderFlower(f Flower, c Canvas, token *CancelToken) {
	radius := initialSizeFactor * math.Min(f.UsableWidth(), f.UsableHeight())

	r := flowerRenderer{
		spec:       f,
		canvas:     c,
		token:      token,
		childScale: math.Pow(f.ScalingFactor, f.ScalingPower/2),
	}
	r.petal(float64(f.Width/2), float64(f.Height/2), radius, 2*math.Pi, 0, f.TotalIterations)
}

func (r *flowerRenderer) petal(centerX, centerY, radius, arcAngle, rotation float64, iterationsRemaining int) {
	if stop(r.token, iterationsRemaining, radius) {
		return
	}

	start := -arcAngle/2 + rotation
	r.canvas.Arc(centerX, centerY, radius*2, radius*2, start, arcAngle)

	childArcAngle := r.spec.ArcAngle
	childRadius := r.childScale * radius

	// Triangle between the parent center, the child center and the point where
	// the child arc meets the parent arc: mu is the angle at that meeting point,
	// lambda the angle at the parent center.
	mu := math.Pi - childArcAngle/2
	phi := math.Asin(childRadius * math.Sin(mu) / radius)
	lambda := childArcAngle/2 - phi
	distance := radius * math.Sin(lambda) / math.Sin(mu)
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return
	}

	n := r.spec.PetalCount
	for i := 0; i < n; i++ {
		childRotation := rotation
		if n > 1 {
			childRotation = -arcAngle/2 + arcAngle/float64(2*n) + float64(i)*arcAngle/float64(n) + rotation
		}

		childX := distance*math.Cos(childRotation) + centerX
		childY := distance*math.Sin(-childRotation) + centerY
		r.petal(childX, childY, childRadius, childArcAngle, childRotation, iterationsRemaining-1)
	}
}
