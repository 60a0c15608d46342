package fractal

import "io"

// Canvas is a drawing surface. Coordinates are in pixels with the origin at the
// top-left corner and y growing downwards.
type Canvas interface {
	// Line strokes a segment from (x1, y1) to (x2, y2).
	Line(x1, y1, x2, y2 float64)

	// Ellipse strokes the outline of an ellipse centered on (cx, cy).
	Ellipse(cx, cy, width, height float64)

	// Arc strokes part of an ellipse centered on (cx, cy). Angles are in radians,
	// measured counter-clockwise from the positive x axis as seen on screen;
	// the arc starts at start and spans sweep.
	Arc(cx, cy, width, height, start, sweep float64)
}

// Image is a Canvas whose pixels can be encoded to a PNG stream.
type Image interface {
	Canvas
	EncodePNG(w io.Writer) error
}
