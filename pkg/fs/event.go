package fs

import (
	"sync"
	"sync/atomic"
)

// EventVar is a versioned-value primitive: a monotonically increasing
// counter paired with a broadcast wait queue.
//
// Writers call Bump to record that the observed value changed, and Wake to
// release waiters. Readers snapshot Count, subscribe with Changed, then
// re-check Count; the counter is authoritative, the channel only limits
// busy-waiting. Keeping Bump and Wake separate lets a notification bump a
// target node's counter while waking waiters queued on its owning object's
// directory.
//
// The zero value is not ready for use; call newEventVar.
type EventVar struct {
	count atomic.Uint64

	mu sync.Mutex
	ch chan struct{}
}

func newEventVar() *EventVar {
	return &EventVar{ch: make(chan struct{})}
}

// Count returns the current counter value. It never decreases.
func (v *EventVar) Count() uint64 {
	return v.count.Load()
}

// Bump increments the counter. It does not wake waiters.
func (v *EventVar) Bump() {
	v.count.Add(1)
}

// Wake releases every waiter currently subscribed via Changed.
func (v *EventVar) Wake() {
	v.mu.Lock()
	close(v.ch)
	v.ch = make(chan struct{})
	v.mu.Unlock()
}

// Changed returns a channel that is closed at the next Wake. Subscribe
// before re-checking Count to avoid missing a wakeup.
func (v *EventVar) Changed() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ch
}
