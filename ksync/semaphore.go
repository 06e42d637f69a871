package ksync

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore is the counting semaphore spec.md treats as "assumed
// available from the host kernel" (P/V). Rather than reimplement one
// atop wchan, it is wired directly to golang.org/x/sync/semaphore,
// which is exactly that kind of host-provided primitive on a hosted
// Go runtime.
type Semaphore struct {
	name string
	sem  *semaphore.Weighted
}

// NewSemaphore creates a semaphore with the given initial count.
//
// semaphore.Weighted is sized for a fixed maximum; to still allow V to
// raise the count far above its start (approximating the classic unbounded counting
// semaphore spec.md assumes), the semaphore is created with
// maxSemaphoreSlack extra capacity, immediately reserved so the
// available count starts out at exactly initialCount.
func NewSemaphore(name string, initialCount int64) *Semaphore {
	sem := semaphore.NewWeighted(initialCount + maxSemaphoreSlack)
	if !sem.TryAcquire(maxSemaphoreSlack) {
		panic("ksync: semaphore: failed to reserve slack capacity")
	}
	return &Semaphore{name: name, sem: sem}
}

// maxSemaphoreSlack bounds how far V may raise the count above
// initialCount at any one time: the count never exceeds
// initialCount+maxSemaphoreSlack, and a V beyond that panics inside
// semaphore.Weighted.Release.
const maxSemaphoreSlack = 1 << 20

// P blocks until the count is greater than zero, then decrements it.
// It never returns an error: ctx.Background() is used internally since
// spec.md's semaphore has no cancellation.
func (s *Semaphore) P() {
	if err := s.sem.Acquire(context.Background(), 1); err != nil {
		panic("ksync: semaphore acquire: " + err.Error())
	}
}

// V increments the count and wakes one waiter if any are parked.
func (s *Semaphore) V() {
	s.sem.Release(1)
}

// Name returns the diagnostic name given at creation.
func (s *Semaphore) Name() string { return s.name }
