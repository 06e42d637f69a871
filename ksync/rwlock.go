package ksync

// RWLock is a reader/writer lock with writer preference on
// contention: once a writer is waiting, new readers are held back
// until the readers already in progress drain, but on wake both
// classes compete evenly. Grounded on kern/synch/synch.c's
// rwlock_acquire_read/rwlock_acquire_write family.
type RWLock struct {
	name string

	m           *Lock
	readCV      *CV
	writeCV     *CV
	numReaders  int
	isWriting   bool
	holdReaders bool
}

// NewRWLock creates a reader/writer lock. name is for diagnostics only.
func NewRWLock(name string) *RWLock {
	return &RWLock{
		name:    name,
		m:       NewLock(name + ".m"),
		readCV:  NewCV(name + ".read"),
		writeCV: NewCV(name + ".write"),
	}
}

// AcquireRead blocks while a writer holds or is waiting for the lock,
// then registers the caller as a reader.
func (rw *RWLock) AcquireRead(holder Holder) {
	rw.m.Acquire(holder)
	for rw.isWriting || rw.holdReaders {
		rw.readCV.Wait(rw.m, holder)
	}
	rw.numReaders++
	rw.m.Release(holder)
}

// ReleaseRead unregisters the caller as a reader. If a writer is
// waiting and this was the last reader to drain, it releases the hold
// on new readers and lets a reader and a writer race for the lock;
// otherwise, with no writer waiting, it wakes any waiting readers.
func (rw *RWLock) ReleaseRead(holder Holder) {
	rw.m.Acquire(holder)
	rw.numReaders--

	switch {
	case rw.holdReaders && rw.numReaders > 0:
		// Other readers still draining; nothing to do yet.
	case rw.holdReaders && rw.numReaders == 0:
		rw.holdReaders = false
		rw.readCV.Signal(rw.m, holder)
		rw.writeCV.Signal(rw.m, holder)
	default:
		rw.readCV.Broadcast(rw.m, holder)
	}
	rw.m.Release(holder)
}

// AcquireWrite blocks while any reader or writer holds the lock,
// setting holdReaders so new readers stop arriving while it waits,
// then takes the lock for exclusive writing.
func (rw *RWLock) AcquireWrite(holder Holder) {
	rw.m.Acquire(holder)
	for rw.isWriting || rw.numReaders > 0 {
		rw.holdReaders = true
		rw.writeCV.Wait(rw.m, holder)
	}
	rw.holdReaders = false
	rw.isWriting = true
	rw.m.Release(holder)
}

// ReleaseWrite releases exclusive ownership and wakes one reader and
// one writer to compete for the lock.
func (rw *RWLock) ReleaseWrite(holder Holder) {
	rw.m.Acquire(holder)
	rw.isWriting = false
	rw.readCV.Signal(rw.m, holder)
	rw.writeCV.Signal(rw.m, holder)
	rw.m.Release(holder)
}

// Destroy tears down the reader/writer lock's component primitives.
func (rw *RWLock) Destroy() {
	rw.m.Destroy()
	rw.readCV.Destroy()
	rw.writeCV.Destroy()
}
