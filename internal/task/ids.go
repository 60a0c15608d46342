package task

import "sync/atomic"

// IDAllocator hands out record ids from one counter shared by every fractal kind.
type IDAllocator struct {
	last atomic.Int64
}

// Seed makes sure every later id is greater than maxExisting. It never moves
// the counter backwards.
func (a *IDAllocator) Seed(maxExisting int64) {
	for {
		current := a.last.Load()
		if maxExisting <= current || a.last.CompareAndSwap(current, maxExisting) {
			return
		}
	}
}

// Next returns a fresh id.
func (a *IDAllocator) Next() int64 {
	return a.last.Add(1)
}
