// Package middleware provides HTTP middleware for the fractal API.
package middleware
