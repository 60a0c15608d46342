package fractal

import "sync/atomic"

// CancelToken is a set-once cancellation signal shared between the goroutine
// that requests cancellation and the goroutine doing the rendering.
// A nil *CancelToken is valid and is never cancelled.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns a token that has not been cancelled.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel sets the token. It reports whether this call performed the transition.
func (t *CancelToken) Cancel() bool {
	if t == nil {
		return false
	}
	return t.cancelled.CompareAndSwap(false, true)
}

// Cancelled reports whether the token has been set.
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}
