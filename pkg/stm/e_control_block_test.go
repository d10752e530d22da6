package stm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// terminates reports whether fn returns within the given window.
func terminates(window time.Duration, fn func()) bool {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(window):
		return false
	}
}

func TestWaitBlocksWithoutChange(t *testing.T) {
	cb := NewControlBlock()
	assert.False(t, terminates(100*time.Millisecond, cb.Wait))
}

func TestWaitAfterChangeReturnsImmediately(t *testing.T) {
	cb := NewControlBlock()
	cb.SetChanged()
	assert.True(t, terminates(50*time.Millisecond, cb.Wait))
}

func TestWaitAfterRepeatedChanges(t *testing.T) {
	cb := NewControlBlock()
	cb.SetChanged()
	cb.SetChanged()
	cb.SetChanged()
	cb.SetChanged()

	// The wake saturates: four calls sent exactly one token.
	assert.Equal(t, 1, len(cb.wakeCh))
	assert.True(t, terminates(50*time.Millisecond, cb.Wait))
}

func TestCrossGoroutineWakeup(t *testing.T) {
	cb := NewControlBlock()
	// A park timeout far beyond the test window proves the waiter is woken
	// by the signal, not by the polling safety net.
	cb.setParkTimeout(10 * time.Second)

	go func() {
		time.Sleep(100 * time.Millisecond)
		cb.SetChanged()
	}()

	start := time.Now()
	assert.True(t, terminates(time.Second, cb.Wait))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLostTokenIsBoundedByParkTimeout(t *testing.T) {
	cb := NewControlBlock()
	cb.setParkTimeout(50 * time.Millisecond)
	cb.SetChanged()
	<-cb.wakeCh // steal the wake token, as a misplaced waiter would

	// The flag re-check after the park still gets Wait out.
	assert.True(t, terminates(500*time.Millisecond, cb.Wait))
}
