package stm

import (
	"sync"
	"sync/atomic"
)

// Value is a shared, immutable handle to a committed value. Handles are
// compared by identity: a commit always installs a fresh handle and never
// mutates the value behind an old one, so two equal payloads behind
// different handles count as a change.
type Value struct {
	val any
}

func NewValue(val any) *Value {
	return &Value{val: val}
}

// Interface returns the value behind the handle. Callers assert it to the
// type they stored; a mismatch is a bug in the calling code and panics.
func (v *Value) Interface() any {
	return v.val
}

var varSeq atomic.Uint64

// Var is a transactional variable. The id fixes the order in which commit
// locks vars, so two committing transactions can never deadlock.
type Var struct {
	id uint64

	mu      sync.Mutex // guards current and waiters
	current *Value
	waiters []*ControlBlock
}

// NewVar creates a Var holding val. Values stored in a Var are shared
// across transactions and must not be mutated after the fact.
func NewVar(val any) *Var {
	return &Var{id: varSeq.Add(1), current: NewValue(val)}
}

// loadValue returns the currently committed handle.
func (v *Var) loadValue() *Value {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// publish installs a fresh handle and wakes every blocked transaction
// registered on v. Caller holds v.mu.
func (v *Var) publish(h *Value) {
	v.current = h
	for _, cb := range v.waiters {
		cb.SetChanged()
	}
	v.waiters = nil
}

// waitOn registers cb to be woken by the next publish.
func (v *Var) waitOn(cb *ControlBlock) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.waiters = append(v.waiters, cb)
}

// unregister drops cb from the wake list. A publish may already have
// drained the list, in which case there is nothing to do.
func (v *Var) unregister(cb *ControlBlock) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.waiters[:0]
	for _, w := range v.waiters {
		if w != cb {
			kept = append(kept, w)
		}
	}
	v.waiters = kept
}
