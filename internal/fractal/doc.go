// Package fractal contains the fractal generation engine: the parameter sets of
// the supported fractal variants (Tree, Circle, Flower), their value equality,
// and the recursive algorithms that draw each variant onto a Canvas.
//
// A Spec is an immutable value. Rendering never mutates it; cancellation is
// signalled through a separate CancelToken passed to Render, which is checked
// at the start of every recursive step.
package fractal
