// Package raster renders fractals into images with github.com/gogpu/gg and
// writes them to disk as PNG files.
package raster
