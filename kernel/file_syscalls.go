package kernel

import (
	"golang.org/x/sys/unix"

	"github.com/seanbriceland/OS161/kernelerr"
	"github.com/seanbriceland/OS161/openfile"
	"github.com/seanbriceland/OS161/process"
)

// Seek whence values, equal to SEEK_SET, SEEK_CUR and SEEK_END, so
// callers don't need to import golang.org/x/sys/unix for them.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

func modeFromFlags(flags int) openfile.Mode {
	switch flags & (unix.O_WRONLY | unix.O_RDWR) {
	case unix.O_WRONLY:
		return openfile.OWronly
	case unix.O_RDWR:
		return openfile.ORdwr
	default:
		return openfile.ORdonly
	}
}

// Open implements sys_open (spec.md §4.7). path is assumed already
// copied out of user space by the caller (copyinstr's EFAULT case is
// the caller's responsibility — see cmd/kernelshell for the boundary).
func (k *Kernel) Open(caller *process.Record, path string, flags int) (fd int, errno kernelerr.Errno) {
	vn, err := k.fs.Open(path, flags, 0o664)
	if err != nil {
		return -1, kernelerr.ToErrno(err)
	}

	ofile := openfile.Init(vn, modeFromFlags(flags))
	fd = caller.Files.Add(ofile)
	if fd == -1 {
		vn.Close()
		return -1, kernelerr.EMFILE
	}
	return fd, kernelerr.OK
}

// Close implements sys_close. Grounded on spec.md §9 item 10's
// resolution: the lock is destroyed only after it is released and
// only when refcount has just dropped to zero, so no other waiter can
// still be touching it.
func (k *Kernel) Close(caller *process.Record, fd int) kernelerr.Errno {
	if fd < 0 || fd >= caller.Files.Size() {
		return kernelerr.EBADF
	}
	ofile := caller.Files.Get(fd)
	if ofile == nil {
		return kernelerr.EBADF
	}

	ofile.Lock.Acquire(caller)
	remaining := ofile.DropRefLocked()
	caller.Files.Clear(fd)
	ofile.Lock.Release(caller)

	if remaining == 0 {
		ofile.Vnode.Close()
		ofile.Lock.Destroy()
	}
	return kernelerr.OK
}

// Read implements sys_read.
func (k *Kernel) Read(caller *process.Record, fd int, buf []byte) (n int, errno kernelerr.Errno) {
	ofile := caller.Files.Get(fd)
	if fd < 0 || fd >= caller.Files.Size() || ofile == nil {
		return 0, kernelerr.EBADF
	}
	ofile.Lock.Acquire(caller)
	defer ofile.Lock.Release(caller)
	return ofile.Read(buf)
}

// Write implements sys_write.
func (k *Kernel) Write(caller *process.Record, fd int, buf []byte) (n int, errno kernelerr.Errno) {
	ofile := caller.Files.Get(fd)
	if fd < 0 || fd >= caller.Files.Size() || ofile == nil {
		return 0, kernelerr.EBADF
	}
	ofile.Lock.Acquire(caller)
	defer ofile.Lock.Release(caller)
	return ofile.Write(buf)
}

// Lseek implements sys_lseek.
func (k *Kernel) Lseek(caller *process.Record, fd int, pos int64, whence int) (newOffset int64, errno kernelerr.Errno) {
	ofile := caller.Files.Get(fd)
	if fd < 0 || fd >= caller.Files.Size() || ofile == nil {
		return -1, kernelerr.EBADF
	}

	ofile.Lock.Acquire(caller)
	defer ofile.Lock.Release(caller)

	var candidate int64
	switch whence {
	case SeekSet:
		candidate = pos
	case SeekCur:
		candidate = ofile.Offset + pos
	case SeekEnd:
		st, err := ofile.Vnode.Stat()
		if err != nil {
			return -1, kernelerr.ToErrno(err)
		}
		candidate = st.Size + pos
	default:
		return -1, kernelerr.EINVAL
	}

	if err := ofile.Vnode.TrySeek(candidate); err != nil {
		return -1, kernelerr.ToErrno(err)
	}
	ofile.Offset = candidate
	return ofile.Offset, kernelerr.OK
}

// Dup2 implements sys_dup2.
func (k *Kernel) Dup2(caller *process.Record, oldfd, newfd int) (int, kernelerr.Errno) {
	size := caller.Files.Size()
	if oldfd < 0 || oldfd >= size || newfd < 0 || newfd >= size {
		return -1, kernelerr.EBADF
	}
	src := caller.Files.Get(oldfd)
	if src == nil {
		return -1, kernelerr.EBADF
	}
	if oldfd == newfd {
		return newfd, kernelerr.OK
	}

	if caller.Files.Get(newfd) != nil {
		if errno := k.Close(caller, newfd); !errno.Ok() {
			return -1, errno
		}
	}

	src.Lock.Acquire(caller)
	caller.Files.Set(newfd, src)
	src.AddRefLocked()
	src.Lock.Release(caller)

	return newfd, kernelerr.OK
}

// Chdir implements sys_chdir.
func (k *Kernel) Chdir(caller *process.Record, path string) kernelerr.Errno {
	if err := k.fs.Chdir(path); err != nil {
		return kernelerr.ToErrno(err)
	}
	return kernelerr.OK
}

// Getcwd implements sys___getcwd, writing into buf directly rather
// than through a separate uio/copyout step, since that boundary is
// the userspace-copy collaborator spec.md places out of scope.
func (k *Kernel) Getcwd(caller *process.Record, buf []byte) (int, kernelerr.Errno) {
	cwd, err := k.fs.Getcwd()
	if err != nil {
		return 0, kernelerr.ToErrno(err)
	}
	n := copy(buf, cwd)
	return n, kernelerr.OK
}
