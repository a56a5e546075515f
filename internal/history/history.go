// Package history provides a generic undo/redo container.
//
// A History tracks a single value. Every accepted [History.Set] pushes the
// previous value onto the undo stack unless it happens within the batch
// threshold of the previous accepted set, in which case the present value is
// replaced in place. This coalesces keystroke-level updates into a single
// undo step:
//
//	h := history.New("")
//	h.Set("a")  // past: [""]
//	h.Set("ab") // within 500ms: past is still [""]
//	h.Undo()    // present: ""
//
// Setting a value that is deep-equal to the present one is a no-op.
package history

import (
	"reflect"
	"sync"
	"time"
)

const (
	DefaultMaxLength      = 50
	DefaultBatchThreshold = 500 * time.Millisecond
)

type options struct {
	maxLength      int
	batchThreshold time.Duration
	now            func() time.Time
}

type Option func(*options)

// WithMaxLength bounds the number of undo steps.
func WithMaxLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// WithBatchThreshold changes the coalescing window. Zero disables batching.
func WithBatchThreshold(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.batchThreshold = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// History is safe for concurrent use.
type History[T any] struct {
	mu sync.Mutex

	past    []T // oldest first
	present T
	future  []T // next redo first

	lastSet time.Time
	opts    options
}

func New[T any](initial T, opts ...Option) *History[T] {
	o := options{
		maxLength:      DefaultMaxLength,
		batchThreshold: DefaultBatchThreshold,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &History[T]{
		present: initial,
		opts:    o,
	}
}

// Set replaces the present value. It returns false if v equals the present
// value and nothing changed.
func (h *History[T]) Set(v T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setLocked(v)
}

// Update computes the new value from the present one and sets it.
func (h *History[T]) Update(fn func(T) T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setLocked(fn(h.present))
}

// Push sets v as a separate undo step, ignoring the batch threshold. The
// next Set starts a new step as well.
func (h *History[T]) Push(v T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if reflect.DeepEqual(v, h.present) {
		return false
	}
	h.lastSet = time.Time{}
	h.pushLocked(v)
	return true
}

func (h *History[T]) setLocked(v T) bool {
	if reflect.DeepEqual(v, h.present) {
		return false
	}

	now := h.opts.now()
	batched := !h.lastSet.IsZero() &&
		now.Sub(h.lastSet) < h.opts.batchThreshold &&
		len(h.past) > 0
	h.lastSet = now

	if batched {
		h.present = v
		h.future = nil
		return true
	}
	h.pushLocked(v)
	return true
}

func (h *History[T]) pushLocked(v T) {
	h.past = append(h.past, h.present)
	if excess := len(h.past) - h.opts.maxLength; excess > 0 {
		h.past = append(h.past[:0:0], h.past[excess:]...)
	}
	h.present = v
	h.future = nil
}

// Undo moves one step back. It returns false when there is nothing to undo.
func (h *History[T]) Undo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.past) == 0 {
		return false
	}

	last := len(h.past) - 1
	prev := h.past[last]
	h.past = h.past[:last]
	h.future = append([]T{h.present}, h.future...)
	h.present = prev
	// The next edit after an undo always starts a new step.
	h.lastSet = time.Time{}
	return true
}

// Redo moves one step forward. It returns false when there is nothing to redo.
func (h *History[T]) Redo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.future) == 0 {
		return false
	}

	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.present)
	h.present = next
	h.lastSet = time.Time{}
	return true
}

// Clear drops the undo and redo stacks and keeps the present value.
func (h *History[T]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()
}

// Reset sets the present value and clears both stacks.
func (h *History[T]) Reset(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.present = v
	h.clearLocked()
}

func (h *History[T]) clearLocked() {
	h.past = nil
	h.future = nil
	h.lastSet = time.Time{}
}

func (h *History[T]) Present() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.present
}

func (h *History[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

func (h *History[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// Past returns a copy of the undo stack, oldest first.
func (h *History[T]) Past() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]T(nil), h.past...)
}

// Future returns a copy of the redo stack, next redo first.
func (h *History[T]) Future() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]T(nil), h.future...)
}
