// Package kernel wires the sync primitives, open-file objects, and the
// file-descriptor/process tables into the two syscall groups spec.md
// §4.7–4.8 describes. It composes the subsystem the way
// hanwen-go-fuse/nodefs/bridge.go's rawBridge composes inodes and file
// handles into the FUSE operation set: one struct per "mounted
// kernel", holding every table and collaborator a syscall needs.
package kernel

import "github.com/seanbriceland/OS161/vfs"

// AddressSpace stands in for struct addrspace: the external
// collaborator spec.md §6 lists as as_create/as_copy/as_activate/
// as_destroy/as_define_stack. Only the operations the fork/execv
// syscalls actually drive are modeled; the rest (page tables, real
// memory mappings) are out of scope by spec.md §1.
type AddressSpace interface {
	// Copy duplicates the address space for fork.
	Copy() (AddressSpace, error)
	// Activate installs this address space as the running one.
	Activate()
	// Destroy releases the address space's resources.
	Destroy()
	// DefineStack reserves the user stack region and returns its
	// initial top.
	DefineStack() (stackTop uint64, err error)
}

// AddressSpaceFactory stands in for as_create.
type AddressSpaceFactory interface {
	Create() (AddressSpace, error)
}

// ELFLoader stands in for load_elf: given the already-opened
// executable vnode and the freshly activated address space, it maps
// the program image and reports the entry point.
type ELFLoader interface {
	Load(v vfs.Vnode, as AddressSpace) (entry uint64, err error)
}

// UserEntry stands in for enter_new_process/mips_usermode: the
// terminal transition into user mode that spec.md §7 says never
// returns on success. Implementations of this callback must not
// return normally on the success path; Execv panics if it does,
// matching enter_new_process being unreachable.
type UserEntry interface {
	Enter(argc int, argvPtr, stackPtr uint64, entry uint64)
}

// enter_forked_process has no separate interface: Kernel.Fork takes a
// childBody callback directly (see fork.go) in place of thread_fork's
// (entry, data1, data2) continuation, since the new "thread" here is
// simply a goroutine running that callback.
