// Package kernelerr carries the POSIX errno taxonomy spec.md §7
// defines, wrapping syscall.Errno the way hanwen-go-fuse's fuse.Status
// wraps it for FUSE's protocol errors: a single comparable value that
// prints like the underlying errno and converts cleanly from ordinary
// Go errors returned by the vfs collaborator.
package kernelerr

import (
	"fmt"
	"os"
	"syscall"
)

// Errno is a kernel syscall result: zero means success, otherwise it
// is the POSIX errno to report to userspace.
type Errno syscall.Errno

// OK is the zero value: no error.
const OK Errno = 0

// The subset of errno values spec.md §7 names.
const (
	EBADF  = Errno(syscall.EBADF)
	EMFILE = Errno(syscall.EMFILE)
	ENOMEM = Errno(syscall.ENOMEM)
	EFAULT = Errno(syscall.EFAULT)
	EINVAL = Errno(syscall.EINVAL)
	ESRCH  = Errno(syscall.ESRCH)
	ECHILD = Errno(syscall.ECHILD)
	ENOSYS = Errno(syscall.ENOSYS)
)

// Ok reports whether e represents success.
func (e Errno) Ok() bool { return e == OK }

// Error implements the error interface so Errno can be returned
// wherever Go code expects one, while kernel callers that want the
// bare errno keep using the typed value directly.
func (e Errno) Error() string {
	if e == OK {
		return "OK"
	}
	return syscall.Errno(e).Error()
}

func (e Errno) String() string {
	if e == OK {
		return "OK"
	}
	return fmt.Sprintf("%d=%v", int(e), syscall.Errno(e))
}

// ToErrno converts an arbitrary error returned by a VFS, ELF, or
// thread collaborator into an Errno, grounded on
// hanwen-go-fuse/fuse/misc.go's ToStatus: known sentinel errors and
// syscall.Errno pass through typed, everything else becomes ENOSYS
// rather than being silently swallowed.
func ToErrno(err error) Errno {
	switch err {
	case nil:
		return OK
	case os.ErrNotExist:
		return Errno(syscall.ENOENT)
	case os.ErrPermission:
		return Errno(syscall.EPERM)
	case os.ErrInvalid:
		return EINVAL
	}

	switch t := err.(type) {
	case Errno:
		return t
	case syscall.Errno:
		return Errno(t)
	case *os.SyscallError:
		if errno, ok := t.Err.(syscall.Errno); ok {
			return Errno(errno)
		}
	case *os.PathError:
		return ToErrno(t.Err)
	case *os.LinkError:
		return ToErrno(t.Err)
	}
	return ENOSYS
}
