package kernel

import (
	"github.com/seanbriceland/OS161/kernelerr"
	"github.com/seanbriceland/OS161/process"
)

// MkWaitExit encodes a normal exit code the way _MKWAIT_EXIT does:
// low byte signals the exit was a normal one (0 = exited normally),
// next byte carries the code.
func MkWaitExit(code int) int {
	return (code & 0xff) << 8
}

// WaitExitCode decodes the exit code _MKWAIT_EXIT encoded.
func WaitExitCode(status int) int {
	return (status >> 8) & 0xff
}

// Getpid implements sys_getpid.
func (k *Kernel) Getpid(caller *process.Record) int {
	return caller.Pid
}

// Exit implements sys__exit (spec.md §4.8): encodes the exit code,
// marks the process exited, reparents every child, and broadcasts to
// any thread blocked in Waitpid. The record itself is not freed here —
// the reaping Waitpid does that, matching the source's "waitpid frees,
// exit does not" split. The descriptor table is released here, though:
// spec.md §3 has the whole table released "on process destruction",
// and destruction is this call, not the later (possibly never-called)
// reap. Every slot still open at exit drops its reference as if closed;
// objects that reach refcount zero are closed and their locks
// destroyed, same as an explicit sys_close on the last reference.
func (k *Kernel) Exit(caller *process.Record, code int) {
	k.procs.ReparentChildren(caller.Pid)

	for _, ofile := range caller.Files.ReleaseAll(caller) {
		ofile.Vnode.Close()
		ofile.Lock.Destroy()
	}

	caller.Exit(caller, MkWaitExit(code))
}

// Waitpid implements sys_waitpid. status receives the encoded exit
// code on success; a nil status is EFAULT, standing in for the
// null-pointer and kernel-range/alignment checks the source performs
// against a real user pointer (those collapse to "is the pointer
// usable" once there is no raw user/kernel address split).
func (k *Kernel) Waitpid(caller *process.Record, pid int, status *int, options int) (int, kernelerr.Errno) {
	child := k.procs.Get(pid)
	if pid < 0 || pid >= k.procs.Size() || child == nil {
		return -1, kernelerr.ESRCH
	}
	if status == nil {
		return -1, kernelerr.EFAULT
	}
	if options != 0 {
		return -1, kernelerr.EINVAL
	}
	if child.ParentPID != caller.Pid {
		return -1, kernelerr.ECHILD
	}

	code := child.WaitForExit(caller)
	*status = code

	child.Teardown()
	k.procs.Clear(pid)
	return pid, kernelerr.OK
}
