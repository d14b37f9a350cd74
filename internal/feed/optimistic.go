package feed

import (
	"errors"
	"sync"
)

var ErrPending = errors.New("update already pending")

// Optimistic holds a locally applied value until the server confirms or
// rejects it.
type Optimistic[T any] struct {
	mu       sync.Mutex
	value    T
	previous T
	pending  bool
}

func NewOptimistic[T any](initial T) *Optimistic[T] {
	return &Optimistic[T]{value: initial}
}

func (o *Optimistic[T]) Value() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

func (o *Optimistic[T]) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// Set replaces the value with server state. It is ignored while a tentative
// value is outstanding.
func (o *Optimistic[T]) Set(value T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending {
		return false
	}
	o.value = value
	return true
}

func (o *Optimistic[T]) Apply(tentative T) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending {
		return ErrPending
	}
	o.previous = o.value
	o.value = tentative
	o.pending = true
	return nil
}

func (o *Optimistic[T]) Confirm(server T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = server
	o.pending = false
}

func (o *Optimistic[T]) Rollback() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.pending {
		return
	}
	o.value = o.previous
	o.pending = false
}
