package fractal

import "math"

type circleRenderer struct {
	spec   Circle
	canvas Canvas
	token  *CancelToken
}

func renderCircle(ci Circle, c Canvas, token *CancelToken) {
	radius := ci.ZoomFactor * math.Min(ci.UsableWidth(), ci.UsableHeight())

	r := circleRenderer{spec: ci, canvas: c, token: token}
	r.node(float64(ci.Width/2), float64(ci.Height/2), radius, ci.TotalIterations)
}

func (r *circleRenderer) node(centerX, centerY, radius float64, iterationsRemaining int) {
	if stop(r.token, iterationsRemaining, radius) {
		return
	}

	r.canvas.Ellipse(centerX, centerY, radius*2, radius*2)

	childRadius := r.spec.ScalingFactor * radius
	distance := radius + childRadius
	n := r.spec.SatelliteCount

	for i := 0; i < n; i++ {
		angle := 2*math.Pi*float64(i)/float64(n) + r.spec.Rotation
		childX := distance*math.Cos(angle) + centerX
		childY := distance*math.Sin(angle) + centerY
		r.node(childX, childY, childRadius, iterationsRemaining-1)
	}
}
