// Package wchan implements the wait-channel primitive the blocking
// synchronization layer (ksync) is built on: a FIFO queue of parked
// waiters, plus the "lock wchan / release caller lock / sleep"
// three-phase sequence that avoids the lost-wakeup race described in
// the scheduler's contract.
//
// A real kernel exposes this as part of the thread/scheduler layer
// (wchan_create/lock/sleep/wakeone/wakeall); on a hosted Go runtime it
// is implemented with a mutex-protected slice of per-waiter channels.
package wchan

import "sync"

// Chan is a wait channel: a queue of parked waiters with its own
// internal lock, independent of whatever lock the caller is using to
// guard the condition being waited on.
type Chan struct {
	name string

	mu      sync.Mutex
	waiters []chan struct{}
}

// New creates a wait channel. name is carried for diagnostics only,
// mirroring wchan_create(name).
func New(name string) *Chan {
	return &Chan{name: name}
}

// Name returns the diagnostic name given at creation.
func (c *Chan) Name() string {
	return c.name
}

// Lock acquires the wait channel's own internal lock. Callers follow
// this with a release of their outer lock, then Sleep, per the
// three-phase pattern: Lock, release outer lock, Sleep.
func (c *Chan) Lock() {
	c.mu.Lock()
}

// Sleep atomically releases the wait channel's internal lock (taken by
// the preceding Lock call) and parks the caller until a matching
// WakeOne or WakeAll. It must only be called while holding the lock
// taken by Lock.
func (c *Chan) Sleep() {
	ticket := make(chan struct{})
	c.waiters = append(c.waiters, ticket)
	c.mu.Unlock()
	<-ticket
}

// WakeOne wakes exactly one waiter, if any are parked, FIFO.
func (c *Chan) WakeOne() {
	c.mu.Lock()
	if len(c.waiters) > 0 {
		ticket := c.waiters[0]
		c.waiters = c.waiters[1:]
		close(ticket)
	}
	c.mu.Unlock()
}

// WakeAll wakes every parked waiter.
func (c *Chan) WakeAll() {
	c.mu.Lock()
	for _, ticket := range c.waiters {
		close(ticket)
	}
	c.waiters = nil
	c.mu.Unlock()
}

// IsEmpty reports whether any thread is currently parked on c. Destroy
// on the primitives built atop Chan requires this to be true.
func (c *Chan) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters) == 0
}
