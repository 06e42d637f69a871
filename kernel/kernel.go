package kernel

import (
	"log"
	"os"
	"sync"

	"github.com/seanbriceland/OS161/fdtable"
	"github.com/seanbriceland/OS161/kernelerr"
	"github.com/seanbriceland/OS161/process"
	"github.com/seanbriceland/OS161/vfs"
)

// Limits bundles the fixed-size limits spec.md §6 names: OPEN_MAX,
// MAX_RUNNING_PROCS, PATH_MAX, and execv's argv cap.
type Limits struct {
	OpenMax         int
	MaxRunningProcs int
	PathMax         int
	ExecArgMax      int
}

// DefaultLimits returns the limits spec.md §6 and the OS/161 source
// use: MAX_RUNNING_PROCS=256, a 128-pointer argv cap.
func DefaultLimits() Limits {
	return Limits{
		OpenMax:         64,
		MaxRunningProcs: 256,
		PathMax:         1024,
		ExecArgMax:      128,
	}
}

// Kernel is the composition root: the process table, the VFS
// collaborator, and the address-space/ELF collaborators needed to
// actually run fork/execv end to end.
type Kernel struct {
	limits Limits
	fs     vfs.FS
	procs  *process.Table
	log    *log.Logger

	asFactory AddressSpaceFactory
	elf       ELFLoader

	// splLock stands in for splhigh/splx: Fork holds it for the
	// duration of the address-space and descriptor-table duplication,
	// matching the source's interrupt-masking discipline (spec.md §5).
	splLock sync.Mutex
}

// New creates a Kernel. logger may be nil, in which case a logger
// writing to os.Stderr is used, matching the teacher's convention of a
// stdlib *log.Logger rather than a third-party logging framework.
func New(limits Limits, fs vfs.FS, asFactory AddressSpaceFactory, elf ELFLoader, logger *log.Logger) *Kernel {
	if logger == nil {
		logger = log.New(os.Stderr, "kernel: ", log.LstdFlags)
	}
	return &Kernel{
		limits:    limits,
		fs:        fs,
		procs:     process.New(limits.MaxRunningProcs),
		log:       logger,
		asFactory: asFactory,
		elf:       elf,
	}
}

// Processes returns the process table, for tests and diagnostics.
func (k *Kernel) Processes() *process.Table { return k.procs }

// Limits returns the configured limits.
func (k *Kernel) Limits() Limits { return k.limits }

// BootProcess allocates the first user process (pid 2): creates its
// descriptor table with stdio installed from stdin/stdout/stderr
// vnodes, and registers it in the process table with NoParent.
// Grounded on process_init's special-case for the first process
// (spec.md §9 item 8), made explicit rather than left as a magic
// negative constant.
func (k *Kernel) BootProcess(stdin, stdout, stderr vfs.Vnode) (*process.Record, kernelerr.Errno) {
	files := fdtable.New(k.limits.OpenMax)
	if errno := fdtable.InitStdio(files, k.fs, stdin, stdout, stderr); !errno.Ok() {
		return nil, errno
	}
	rec := process.NewRecord(0, process.NoParent, files)
	pid := k.procs.Add(rec)
	if pid < 0 {
		return nil, kernelerr.ENOMEM
	}
	return rec, kernelerr.OK
}
