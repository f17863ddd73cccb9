package opc

import "sync/atomic"

// IDAllocator is a thread-safe, monotonically increasing counter scoped to
// one comparison. It is the generalization of
// mmonterroca-docxgo/internal/manager.IDGenerator's per-kind atomic
// counters, encapsulated inside the comparer instance rather than kept
// at process scope and Reset on every comparison entry, so revision ids
// never leak state across unrelated comparisons sharing a comparer.
// IDAllocator is reused wherever a comparer needs a fresh monotonic
// sequence (WML revision ids, PML synthetic overlay shape ids).
type IDAllocator struct {
	counter atomic.Uint64
}

// NewIDAllocator returns an allocator starting at 0; the first Next call
// returns 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns the next value in the sequence, starting at 1.
func (a *IDAllocator) Next() uint64 {
	return a.counter.Add(1)
}

// Peek returns the most recently allocated value without allocating a new
// one (0 if Next has never been called).
func (a *IDAllocator) Peek() uint64 {
	return a.counter.Load()
}

// Reset zeroes the counter. The comparers do not call it; each comparison
// creates a fresh allocator with NewIDAllocator instead.
func (a *IDAllocator) Reset() {
	a.counter.Store(0)
}
