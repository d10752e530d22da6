// Package stm implements optimistic software transactional memory.
//
// Transactions read and write Vars freely; at commit time every read is
// validated against the var's current value and the writes land only if
// the whole view was consistent. A transaction that calls Retry blocks the
// goroutine until another transaction changes one of the vars it read,
// instead of spinning.
package stm

// Atomically runs fn as one transaction. fn may run any number of times
// before its view validates, so it must be free of side effects. A non-nil
// error from fn aborts the transaction and is returned unchanged.
func Atomically(fn func(*Tx) error) error {
	for {
		tx := newTx()
		retried, err := catchRetry(fn, tx)
		if retried {
			if err := tx.wait(); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if tx.commit() {
			return nil
		}
	}
}

// OrElse combines two transaction bodies: if first retries, second runs in
// its place. If both retry, the transaction blocks until a var read by
// either branch changes.
func OrElse(first, second func(*Tx) error) func(*Tx) error {
	return func(tx *Tx) error {
		return tx.orElse(first, second)
	}
}

// AtomicGet reads a single var in its own transaction.
func AtomicGet(v *Var) any {
	var out any
	_ = Atomically(func(tx *Tx) error {
		out = tx.Get(v)
		return nil
	})
	return out
}

// AtomicSet writes a single var in its own transaction.
func AtomicSet(v *Var, val any) {
	_ = Atomically(func(tx *Tx) error {
		tx.Set(v, val)
		return nil
	})
}
