package ksync

import (
	"fmt"

	"github.com/seanbriceland/OS161/internal/wchan"
)

// CV is a condition variable tied to a companion Lock, grounded on
// kern/synch/synch.c's cv_wait/cv_signal/cv_broadcast.
type CV struct {
	name string
	w    *wchan.Chan
}

// NewCV creates a condition variable. name is for diagnostics only.
func NewCV(name string) *CV {
	return &CV{name: name, w: wchan.New(name)}
}

// Wait atomically enqueues the caller on the CV's wait channel and
// releases lock; on wake it re-acquires lock before returning. The
// caller must hold lock, identified by holder, on entry.
func (cv *CV) Wait(lock *Lock, holder Holder) {
	cv.w.Lock()
	lock.Release(holder)
	cv.w.Sleep()
	lock.Acquire(holder)
}

// Signal wakes one waiter. The caller must hold lock; this is asserted
// defensively and is fatal if violated, matching cv_signal's KASSERT.
func (cv *CV) Signal(lock *Lock, holder Holder) {
	if !lock.HeldBy(holder) {
		panic(fmt.Sprintf("ksync: Signal on cv %q without holding companion lock", cv.name))
	}
	cv.w.WakeOne()
}

// Broadcast wakes every waiter. The caller must hold lock.
func (cv *CV) Broadcast(lock *Lock, holder Holder) {
	if !lock.HeldBy(holder) {
		panic(fmt.Sprintf("ksync: Broadcast on cv %q without holding companion lock", cv.name))
	}
	cv.w.WakeAll()
}

// Destroy tears down the condition variable. It panics if any thread
// is still parked on it.
func (cv *CV) Destroy() {
	if !cv.w.IsEmpty() {
		panic(fmt.Sprintf("ksync: destroying cv %q with waiters", cv.name))
	}
}
