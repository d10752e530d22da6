package stm

import (
	"github.com/tidwall/btree"
)

type logPair struct {
	v     *Var
	entry LogEntry
}

// Tx tracks the reads and writes of one transaction attempt. It is owned
// by the goroutine running the attempt and must not be shared.
type Tx struct {
	log *btree.BTreeG[logPair]
}

func newTx() *Tx {
	return &Tx{
		log: btree.NewBTreeG(func(a, b logPair) bool {
			return a.v.id < b.v.id
		}),
	}
}

// Get returns the value of v as seen by this attempt: a pending write if
// one exists, otherwise the value observed by the first read.
func (tx *Tx) Get(v *Var) any {
	if p, ok := tx.log.Get(logPair{v: v}); ok {
		h, _ := p.entry.Read()
		tx.log.Set(p) // Read may have upgraded an obsolete entry
		return h.Interface()
	}
	h := v.loadValue()
	tx.log.Set(logPair{v: v, entry: NewReadEntry(h)})
	return h.Interface()
}

// Set records val as v's pending value for this attempt. Nothing is
// published before commit.
func (tx *Tx) Set(v *Var, val any) {
	h := NewValue(val)
	if p, ok := tx.log.Get(logPair{v: v}); ok {
		p.entry.Write(h)
		tx.log.Set(p)
		return
	}
	tx.log.Set(logPair{v: v, entry: NewWriteEntry(h)})
}

// Retry abandons the attempt and blocks the transaction until one of the
// vars it has read changes.
func (tx *Tx) Retry() {
	panic(retrySignal{})
}

// commit locks all logged vars in id order, validates every checked read
// by handle identity and, if the whole view still holds, publishes the
// pending writes. It reports whether the attempt committed.
func (tx *Tx) commit() bool {
	locked := make([]*Var, 0, tx.log.Len())
	consistent := true
	tx.log.Scan(func(p logPair) bool {
		p.v.mu.Lock()
		locked = append(locked, p.v)
		if p.entry.checked() {
			if observed, _ := p.entry.ReadValue(); observed != p.v.current {
				consistent = false
				return false
			}
		}
		return true
	})
	if consistent {
		tx.log.Scan(func(p logPair) bool {
			if h, ok := p.entry.pendingWrite(); ok {
				p.v.publish(h)
			}
			return true
		})
	}
	for _, v := range locked {
		v.mu.Unlock()
	}
	return consistent
}

// wait parks the goroutine until one of the attempt's reads changes.
// Write-only vars carry no observation and are left out of the wake set;
// if that leaves the set empty, nothing could ever wake the transaction.
func (tx *Tx) wait() error {
	type watched struct {
		v    *Var
		seen *Value
	}
	var wakeSet []watched
	tx.log.Scan(func(p logPair) bool {
		if obs, ok := p.entry.Obsolete(); ok {
			seen, _ := obs.ReadValue()
			wakeSet = append(wakeSet, watched{v: p.v, seen: seen})
		}
		return true
	})
	if len(wakeSet) == 0 {
		return RetryWithoutReadsErr
	}

	cb := NewControlBlock()
	for _, w := range wakeSet {
		w.v.waitOn(cb)
		// A commit landing between our observation and the registration
		// must still wake us.
		if w.v.loadValue() != w.seen {
			cb.SetChanged()
		}
	}
	cb.Wait()
	for _, w := range wakeSet {
		w.v.unregister(cb)
	}
	return nil
}

// orElse runs first; if it retries, the log is rolled back and second runs
// in its place. The abandoned branch's reads stay in the log as obsolete
// entries, so a retry of the combined transaction still wakes on them.
func (tx *Tx) orElse(first, second func(*Tx) error) error {
	snapshot := tx.log.Copy()
	retried, err := catchRetry(first, tx)
	if !retried {
		return err
	}
	branch := tx.log
	tx.log = snapshot
	branch.Scan(func(p logPair) bool {
		if _, ok := tx.log.Get(logPair{v: p.v}); ok {
			return true
		}
		if obs, ok := p.entry.Obsolete(); ok {
			tx.log.Set(logPair{v: p.v, entry: obs})
		}
		return true
	})
	return second(tx)
}

// retrySignal is thrown by Tx.Retry and caught by Atomically and orElse.
type retrySignal struct{}

func catchRetry(fn func(*Tx) error, tx *Tx) (retried bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(retrySignal); ok {
				retried = true
				return
			}
			panic(r)
		}
	}()
	err = fn(tx)
	return
}
