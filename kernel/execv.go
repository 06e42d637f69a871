package kernel

import (
	"golang.org/x/sys/unix"

	"github.com/seanbriceland/OS161/kernelerr"
	"github.com/seanbriceland/OS161/process"
)

// Execv implements sys_execv (spec.md §4.8): opens the executable,
// creates and activates a fresh address space, loads the ELF image
// (restoring the old address space on failure), destroys the old
// address space, computes the argv layout relocated to just below the
// new stack top, and transitions to user mode. The layout bytes are
// not copied into the new address space: AddressSpace has no operation
// for writing memory. userEntry.Enter stands in for enter_new_process +
// mips_usermode; per spec.md §7, returning from it on the success path
// is a kernel panic, so Execv only returns at all on failure.
func (k *Kernel) Execv(caller *process.Record, progname string, argv []string, oldAS AddressSpace, userEntry UserEntry) kernelerr.Errno {
	if progname == "" {
		return kernelerr.EINVAL
	}

	layout, errno := packArgv(argv, k.limits.ExecArgMax)
	if !errno.Ok() {
		return errno
	}

	vn, err := k.fs.Open(progname, unix.O_RDONLY, 0)
	if err != nil {
		return kernelerr.ToErrno(err)
	}

	newAS, err := k.asFactory.Create()
	if err != nil {
		vn.Close()
		return kernelerr.ENOMEM
	}
	newAS.Activate()

	entry, err := k.elf.Load(vn, newAS)
	if err != nil {
		oldAS.Activate()
		newAS.Destroy()
		vn.Close()
		return kernelerr.ToErrno(err)
	}
	oldAS.Destroy()

	stackTop, err := newAS.DefineStack()
	if err != nil {
		vn.Close()
		return kernelerr.ToErrno(err)
	}
	stackTop -= uint64(layout.padLen)
	layout.relocate(stackTop)

	vn.Close()

	userEntry.Enter(layout.argc, stackTop, stackTop, entry)
	panic("kernel: Execv: UserEntry.Enter returned")
}
