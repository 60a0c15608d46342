package raster

import (
	"fmt"
	"image"
	"io"

	"github.com/gogpu/gg"
	"github.com/phrazzld/fractal-api/internal/fractal"
)

// Canvas is a fractal.Image backed by a gg drawing context. It starts black and
// strokes every primitive in white with a one pixel line.
type Canvas struct {
	dc *gg.Context
	// err holds the first stroke failure; it is reported by EncodePNG.
	err error
}

var _ fractal.Image = (*Canvas)(nil)

// NewCanvas creates a black canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	dc := gg.NewContext(width, height)
	dc.ClearWithColor(gg.RGB(0, 0, 0))
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(1)
	return &Canvas{dc: dc}
}

// NewImage matches the signature of task.ImageFactory.
func NewImage(width, height int) fractal.Image {
	return NewCanvas(width, height)
}

// Line draws a segment from (x1, y1) to (x2, y2).
func (c *Canvas) Line(x1, y1, x2, y2 float64) {
	c.dc.DrawLine(x1, y1, x2, y2)
	c.stroke()
}

// Ellipse draws the ellipse centered on (cx, cy) with the given bounding box size.
func (c *Canvas) Ellipse(cx, cy, width, height float64) {
	c.dc.DrawEllipse(cx, cy, width/2, height/2)
	c.stroke()
}

// Arc draws an arc of the ellipse centered on (cx, cy). start and sweep are in
// radians, counter-clockwise as seen on screen.
func (c *Canvas) Arc(cx, cy, width, height, start, sweep float64) {
	// gg measures angles clockwise because its y axis points down.
	from, to := -(start + sweep), -start

	c.dc.NewSubPath()
	if width == height {
		c.dc.DrawArc(cx, cy, width/2, from, to)
	} else {
		c.dc.DrawEllipticalArc(cx, cy, width/2, height/2, from, to)
	}
	c.stroke()
}

func (c *Canvas) stroke() {
	if err := c.dc.Stroke(); err != nil && c.err == nil {
		c.err = fmt.Errorf("failed to stroke path: %w", err)
	}
}

// Image returns the rendered image.
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

// EncodePNG writes the canvas as PNG. It fails if any earlier stroke failed.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if c.err != nil {
		return c.err
	}
	if err := c.dc.FlushGPU(); err != nil {
		return fmt.Errorf("failed to flush pending draws: %w", err)
	}
	return c.dc.EncodePNG(w)
}

// Close releases the drawing context.
func (c *Canvas) Close() error {
	return c.dc.Close()
}
