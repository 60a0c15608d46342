package fractal

import "fmt"

// initialSizeFactor sizes the root element of Tree and Flower relative to the usable area.
const initialSizeFactor = 0.20

// Render draws s onto c, recursing at most s.Dims().TotalIterations levels deep.
//
// Each recursive step first checks token, the remaining iteration budget and the
// size of the element about to be drawn, and returns without drawing if any of
// them says to stop. Whatever was already drawn stays on the canvas. Render
// returns ErrCancelled if token was set by the time rendering stopped.
func Render(s Spec, c Canvas, token *CancelToken) error {
	switch v := Normalize(s).(type) {
	case Tree:
		renderTree(v, c, token)
	case Circle:
		renderCircle(v, c, token)
	case Flower:
		renderFlower(v, c, token)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownKind, s)
	}

	if token.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// stop reports whether a recursive step must return before drawing.
func stop(token *CancelToken, iterationsRemaining int, size float64) bool {
	return token.Cancelled() || iterationsRemaining <= 0 || !(size > 0)
}
