package kernel

import (
	"github.com/seanbriceland/OS161/kernelerr"
	"github.com/seanbriceland/OS161/process"
)

// Fork implements sys_fork (spec.md §4.8). There is no real trapframe
// to duplicate and no single call that "returns twice" on a hosted Go
// runtime, so the thread_fork continuation (enter_forked_process) is
// replaced by childBody, a callback that Fork runs on a new goroutine
// once the address space and descriptor table have been duplicated. Fork
// itself returns the child's pid to the caller, matching fork's
// parent-side return value.
//
// splLock stands in for splhigh/splx: it is held for the duration of
// the address-space and descriptor-table copy, masking other Forks
// from observing a half-duplicated state.
func (k *Kernel) Fork(caller *process.Record, as AddressSpace, childBody func(child *process.Record, as AddressSpace)) (childPid int, errno kernelerr.Errno) {
	k.splLock.Lock()
	defer k.splLock.Unlock()

	childAS, err := as.Copy()
	if err != nil {
		return -1, kernelerr.ToErrno(err)
	}

	childFiles := caller.Files.Fork(caller)
	child := process.NewRecord(0, caller.Pid, childFiles)
	pid := k.procs.Add(child)
	if pid < 0 {
		childAS.Destroy()
		return -1, kernelerr.ENOMEM
	}

	if childBody != nil {
		go childBody(child, childAS)
	}

	return pid, kernelerr.OK
}
