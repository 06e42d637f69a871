// Package fdtable implements the per-process file-descriptor table
// (spec.md §3, §4.5): a fixed-length array of open-file references,
// slots 0/1/2 conventionally stdin/stdout/stderr, grounded on
// kern/syscall/filetable.c and kern/include/filetable.h. The slot
// array shape (fixed-size with a free-index scan) mirrors
// hanwen-go-fuse/nodefs/bridge.go's rawBridge.files/freeFiles.
package fdtable

import (
	"github.com/jacobsa/syncutil"

	"github.com/seanbriceland/OS161/kernelerr"
	"github.com/seanbriceland/OS161/ksync"
	"github.com/seanbriceland/OS161/openfile"
	"github.com/seanbriceland/OS161/vfs"
)

// Table is a fixed-size per-process descriptor table of length Size.
// mu guards slot occupancy only — never held across an open-file read,
// write or seek, so two fds on the same process can be in flight
// concurrently, serialized only by their own OpenFile.Lock. The one
// exception is Fork, which holds mu while it takes each referenced
// object's Lock to raise its refcount. mu
// is an InvariantMutex (grounded on GoogleCloudPlatform-gcsfuse's
// fs/dir_handle.go Mu field), checking I1's "non-null slot implies
// refcount ≥ 1" half on every lock/unlock.
type Table struct {
	size int

	mu    syncutil.InvariantMutex
	slots []*openfile.OpenFile
}

// New creates an empty table of the given size (conventionally
// OPEN_MAX), with all slots null.
func New(size int) *Table {
	t := &Table{size: size, slots: make([]*openfile.OpenFile, size)}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

// checkInvariants asserts that no non-null slot is holding a
// zero-or-negative refcount reference, the cheap half of I1 that
// doesn't require cross-table knowledge.
func (t *Table) checkInvariants() {
	for _, of := range t.slots {
		if of != nil && of.RefcountUnlocked() < 1 {
			panic("fdtable: occupied slot references an object with refcount < 1")
		}
	}
}

// InitStdio installs slots 0, 1, 2 from the console device: slot 0
// read-only, 1 and 2 write-only, each with its own vnode — unlike the
// source's filetable_init, which (per spec.md §9 item 7) aliases all
// three onto the same vnode, stdout and stderr here are independent
// objects, closing the aliasing hazard deliberately rather than
// reproducing it.
func InitStdio(t *Table, fs vfs.FS, stdin, stdout, stderr vfs.Vnode) kernelerr.Errno {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.size < 3 {
		return kernelerr.ENOMEM
	}
	t.slots[0] = openfile.Init(stdin, openfile.ORdonly)
	t.slots[1] = openfile.Init(stdout, openfile.OWronly)
	t.slots[2] = openfile.Init(stderr, openfile.OWronly)
	return kernelerr.OK
}

// Add scans slots starting at index 3 in ascending order and installs
// ofile in the first null slot, returning that index. It returns -1
// if the table is full (the caller translates that to EMFILE),
// grounded on add_filehandle.
func (t *Table) Add(ofile *openfile.OpenFile) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for fd := 3; fd < t.size; fd++ {
		if t.slots[fd] == nil {
			t.slots[fd] = ofile
			return fd
		}
	}
	return -1
}

// Get returns the open-file object in slot fd, or nil if fd is out of
// range or the slot is empty.
func (t *Table) Get(fd int) *openfile.OpenFile {
	if fd < 0 || fd >= t.size {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[fd]
}

// Set installs ofile directly into slot fd, overwriting whatever was
// there (the caller is responsible for closing any previous
// occupant first, as dup2 does). fd must be in range.
func (t *Table) Set(fd int, ofile *openfile.OpenFile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[fd] = ofile
}

// Clear nulls out slot fd.
func (t *Table) Clear(fd int) {
	if fd < 0 || fd >= t.size {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[fd] = nil
}

// Size returns OPEN_MAX for this table.
func (t *Table) Size() int { return t.size }

// Snapshot returns a copy of the slot array for invariant checks and
// tests (I1: refcount equals the number of slots referencing an
// object across all tables).
func (t *Table) Snapshot() []*openfile.OpenFile {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*openfile.OpenFile, len(t.slots))
	copy(out, t.slots)
	return out
}

// Fork duplicates every non-null slot by reference into a new table
// of the same size, incrementing each referenced open-file's refcount
// under its own lock — grounded on sys_fork's filetable-copy loop.
func (t *Table) Fork(holder ksync.Holder) *Table {
	t.mu.Lock()
	defer t.mu.Unlock()

	child := New(t.size)
	for fd, of := range t.slots {
		if of == nil {
			continue
		}
		of.AddRef(holder)
		child.slots[fd] = of
	}
	return child
}

// ReleaseAll decrements the refcount of every non-null slot as if
// close had been called on it, for process teardown. It returns the
// objects whose refcount reached zero, so the caller can close their
// vnodes and destroy their locks.
func (t *Table) ReleaseAll(holder ksync.Holder) []*openfile.OpenFile {
	t.mu.Lock()
	slots := make([]*openfile.OpenFile, len(t.slots))
	copy(slots, t.slots)
	for i := range t.slots {
		t.slots[i] = nil
	}
	t.mu.Unlock()

	var toClose []*openfile.OpenFile
	for _, of := range slots {
		if of == nil {
			continue
		}
		if of.DropRef(holder) == 0 {
			toClose = append(toClose, of)
		}
	}
	return toClose
}
