package fractal

import "math"

type treeRenderer struct {
	spec   Tree
	canvas Canvas
	token  *CancelToken
}

// renderTree grows the tree upwards from the middle of the bottom padding line.
func renderTree(t Tree, c Canvas, token *CancelToken) {
	segmentLength := initialSizeFactor * t.UsableHeight()

	startX := float64(t.Width / 2)
	startY := float64(t.Height - t.PaddingVertical)

	r := treeRenderer{spec: t, canvas: c, token: token}
	r.branch(startX, startY, startX, startY-segmentLength, math.Pi/2, segmentLength, t.TotalIterations)
}

func (r *treeRenderer) branch(startX, startY, endX, endY, angle, length float64, iterationsRemaining int) {
	if stop(r.token, iterationsRemaining, length) {
		return
	}

	r.canvas.Line(startX, startY, endX, endY)

	childLength := r.spec.ScalingFactor * length

	leftAngle := angle + r.spec.Angle/2
	leftX := endX + childLength*math.Cos(leftAngle)
	leftY := endY - childLength*math.Sin(leftAngle)

	rightAngle := angle - r.spec.Angle/2
	rightX := endX + childLength*math.Cos(rightAngle)
	rightY := endY - childLength*math.Sin(rightAngle)

	r.branch(endX, endY, leftX, leftY, leftAngle, childLength, iterationsRemaining-1)
	r.branch(endX, endY, rightX, rightY, rightAngle, childLength, iterationsRemaining-1)
}
