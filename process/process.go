// Package process implements the process record and process table
// (spec.md §3, §4.6), grounded on kern/include/process.h and
// kern/syscall/proc_syscalls.c's process_init/add_process.
package process

import (
	"github.com/seanbriceland/OS161/fdtable"
	"github.com/seanbriceland/OS161/ksync"
)

// NoParent is the sentinel ParentPID value meaning "no parent": either
// this is the first user process (see kernel.BootProcess), or the
// parent has exited and reparented this process. spec.md §9 item 8 calls out the
// source's use of -5 for the first user process as an undocumented
// magic number; this reimplementation makes the sentinel explicit and
// reuses the same value for both "never had a parent" and "parent
// exited", since spec.md's reparenting rule (set ParentPID = -1) and
// the first-process case are observably identical to a waiting
// parent: there is none to wait on.
const NoParent = -1

// Record is a process control block: pid is implicit (the slot index
// in Table), parent linkage, exit state, and the CV/lock pair used to
// let a parent block in Waitpid until this process calls Exit.
type Record struct {
	Pid       int
	ParentPID int

	Files *fdtable.Table

	waitLock *ksync.Lock
	waitCV   *ksync.CV
	exited   bool
	exitCode int
}

// NewRecord creates a process record with the given pid, parent, and
// descriptor table. exited starts false; exitCode is meaningless until
// Exit is called.
func NewRecord(pid, parentPID int, files *fdtable.Table) *Record {
	return &Record{
		Pid:       pid,
		ParentPID: parentPID,
		Files:     files,
		waitLock:  ksync.NewLock("proc.wait"),
		waitCV:    ksync.NewCV("proc.wait"),
	}
}

// Exit records the encoded exit code, marks the process exited, and
// wakes anyone blocked in Waitpid. holder identifies the exiting
// process's own calling goroutine as the lock holder.
func (r *Record) Exit(holder ksync.Holder, encodedCode int) {
	r.waitLock.Acquire(holder)
	r.exitCode = encodedCode
	r.exited = true
	r.waitCV.Broadcast(r.waitLock, holder)
	r.waitLock.Release(holder)
}

// WaitForExit blocks until the process has exited, then returns its
// encoded exit code. holder identifies the waiting parent's calling
// goroutine.
func (r *Record) WaitForExit(holder ksync.Holder) int {
	r.waitLock.Acquire(holder)
	for !r.exited {
		r.waitCV.Wait(r.waitLock, holder)
	}
	code := r.exitCode
	r.waitLock.Release(holder)
	return code
}

// Exited reports whether the process has already exited, without
// blocking.
func (r *Record) Exited(holder ksync.Holder) bool {
	r.waitLock.Acquire(holder)
	defer r.waitLock.Release(holder)
	return r.exited
}

// Teardown destroys the record's CV and lock. The caller (the reaping
// waitpid) must only call this once no thread can still be waiting on
// them — guaranteed because WaitForExit has already returned by the
// time Waitpid calls Teardown.
func (r *Record) Teardown() {
	r.waitCV.Destroy()
	r.waitLock.Destroy()
}
