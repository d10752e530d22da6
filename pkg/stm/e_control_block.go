package stm

import (
	"sync/atomic"
	"time"
)

// DefaultParkTimeout bounds how long a blocked transaction sleeps before
// re-checking its wake flag. It is a safety net against a lost wake signal,
// not a delivery guarantee. Set it before any transactions run.
var DefaultParkTimeout = 1000 * time.Millisecond

// ControlBlock parks the goroutine of a retrying transaction until one of
// the vars it read changes. One ControlBlock serves exactly one
// retry-and-block cycle; it is registered with every var in the wake set
// and discarded once Wait returns.
type ControlBlock struct {
	// changed saturates at true. Only the false->true transition sends the
	// single wake token.
	changed atomic.Bool

	wakeCh chan struct{}

	parkTimeout time.Duration
}

func NewControlBlock() *ControlBlock {
	return &ControlBlock{
		wakeCh:      make(chan struct{}, 1),
		parkTimeout: DefaultParkTimeout,
	}
}

// SetChanged informs the block that a watched var has changed. Safe to call
// from any goroutine, any number of times; at most one wake token is ever
// sent per block.
func (cb *ControlBlock) SetChanged() {
	if cb.changed.CompareAndSwap(false, true) {
		cb.wakeCh <- struct{}{}
	}
}

// Wait blocks until SetChanged has been called. The flag is checked before
// every park, so a SetChanged that completes before Wait begins makes it
// return immediately.
//
// Wait is meant for the single goroutine that owns the block. A second
// concurrent waiter can steal the one wake token, leaving the other to
// notice the flag only when a park times out: still correct, but the
// latency degrades to parkTimeout.
func (cb *ControlBlock) Wait() {
	timer := time.NewTimer(cb.parkTimeout)
	defer timer.Stop()
	for !cb.changed.Load() {
		select {
		case <-cb.wakeCh:
		case <-timer.C:
			timer.Reset(cb.parkTimeout)
		}
	}
}

// setParkTimeout keeps tests that exercise the timeout path fast.
func (cb *ControlBlock) setParkTimeout(d time.Duration) {
	cb.parkTimeout = d
}
