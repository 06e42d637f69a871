// Package openfile implements the open-file object (spec.md §3, §4.4):
// a reference-counted handle combining a vnode, the access mode from
// the original open, a seek offset, and a lock serializing every
// access to the offset and every delegation to the vnode.
package openfile

import (
	"sync/atomic"

	"github.com/seanbriceland/OS161/kernelerr"
	"github.com/seanbriceland/OS161/ksync"
	"github.com/seanbriceland/OS161/vfs"
)

// Mode mirrors the access-flag subset spec.md §4.7 cares about.
type Mode int

const (
	ORdonly Mode = iota
	OWronly
	ORdwr
)

// OpenFile is one invocation of "open a file". It is shared across
// descriptor-table slots and across processes after fork/dup2; Lock
// serializes reads/writes of Offset and Mode and every call through to
// Vnode, matching spec.md's invariant that every access to offset
// happens while lock is held.
type OpenFile struct {
	Lock *ksync.Lock

	Vnode  vfs.Vnode
	Mode   Mode
	Offset int64

	// refcount is mutated under Lock by AddRefLocked/DropRefLocked, but
	// read without it by RefcountUnlocked (fdtable's InvariantMutex
	// check can't acquire a per-openfile lock from inside the table
	// lock without risking deadlock against a goroutine that holds
	// Lock while blocked on the table). atomic makes that unlocked read
	// race-free instead of merely unsynchronized.
	refcount atomic.Int32
}

// Init creates an open-file object with refcount 1, offset 0, the
// given vnode and mode. Grounded on kern/syscall/openfile.c's
// openfile_init.
func Init(vn vfs.Vnode, mode Mode) *OpenFile {
	of := &OpenFile{
		Lock:   ksync.NewLock("openfile"),
		Vnode:  vn,
		Mode:   mode,
		Offset: 0,
	}
	of.refcount.Store(1)
	return of
}

// AddRef increments the reference count under Lock. Called by fork
// (fdtable.Table.Fork) when a descriptor-table slot starts referencing
// this object; dup2 uses AddRefLocked instead.
func (of *OpenFile) AddRef(holder ksync.Holder) {
	of.Lock.Acquire(holder)
	of.AddRefLocked()
	of.Lock.Release(holder)
}

// AddRefLocked increments the reference count. The caller must already
// hold Lock — used by syscalls (e.g. dup2) that acquire the lock once
// and perform several operations under it, matching the source's
// single lock_acquire/lock_release bracket per syscall.
func (of *OpenFile) AddRefLocked() {
	of.refcount.Add(1)
}

// DropRef decrements the reference count and returns the new value.
// The caller (fdtable.Table.ReleaseAll, and through it kernel.Exit) is
// responsible for closing the vnode and destroying Lock exactly once,
// when this returns 0 — never while any other thread could still be waiting
// on Lock, which is guaranteed here because the refcount can only hit
// zero while the closer holds the only remaining reference to the
// slot that could have produced a waiter (spec.md §9 item 10).
func (of *OpenFile) DropRef(holder ksync.Holder) (refcount int) {
	of.Lock.Acquire(holder)
	refcount = of.DropRefLocked()
	of.Lock.Release(holder)
	return refcount
}

// DropRefLocked decrements the reference count and returns the new
// value. The caller must already hold Lock.
func (of *OpenFile) DropRefLocked() int {
	return int(of.refcount.Add(-1))
}

// Refcount returns the current reference count, for tests and
// invariant checks (I1).
func (of *OpenFile) Refcount(holder ksync.Holder) int {
	of.Lock.Acquire(holder)
	defer of.Lock.Release(holder)
	return int(of.refcount.Load())
}

// RefcountUnlocked reads the reference count without acquiring Lock,
// for fdtable's InvariantMutex check, which runs on every table
// lock/unlock and must not itself block on a per-openfile lock that
// some other goroutine may be holding across a VFS call. The read
// itself is race-free (refcount is atomic); it can still observe a
// value that's stale by the time the caller acts on it, which is fine
// for a diagnostic invariant check, not a synchronization point.
func (of *OpenFile) RefcountUnlocked() int {
	return int(of.refcount.Load())
}

// Read delegates to Vnode.Read at the current offset and advances
// Offset by the number of bytes actually read. Caller must hold Lock.
func (of *OpenFile) Read(buf []byte) (int, kernelerr.Errno) {
	if of.Mode == OWronly {
		return 0, kernelerr.EBADF
	}
	n, err := of.Vnode.Read(buf, of.Offset)
	if err != nil {
		return 0, kernelerr.ToErrno(err)
	}
	of.Offset += int64(n)
	return n, kernelerr.OK
}

// Write delegates to Vnode.Write at the current offset and advances
// Offset. Caller must hold Lock.
func (of *OpenFile) Write(buf []byte) (int, kernelerr.Errno) {
	if of.Mode == ORdonly {
		return 0, kernelerr.EBADF
	}
	n, err := of.Vnode.Write(buf, of.Offset)
	if err != nil {
		return 0, kernelerr.ToErrno(err)
	}
	of.Offset += int64(n)
	return n, kernelerr.OK
}
