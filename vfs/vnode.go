// Package vfs is the external VFS collaborator spec.md §6 places out
// of scope: vfs_open/close/chdir/getcwd and VOP_READ/WRITE/TRYSEEK/STAT.
// The process/fd subsystem only depends on the Vnode and FS interfaces
// below; HostFS is one concrete implementation, backed by real host
// syscalls the way hanwen-go-fuse/nodefs/files.go's loopbackFile
// delegates FUSE file operations to an underlying *os.File.
package vfs

import (
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Stat is the subset of file metadata VOP_STAT reports that lseek's
// SEEK_END case needs.
type Stat struct {
	Size int64
	Dev  uint64
}

// Vnode is the opaque handle the filesystem layer hands back from
// Open; all kernel-side access to it (VOP_READ/WRITE/TRYSEEK/STAT,
// vfs_close) goes through this interface.
type Vnode interface {
	// Read reads into buf starting at offset, without touching any
	// seek pointer of its own — the caller (openfile.OpenFile) owns
	// the offset and passes it explicitly, exactly as VOP_READ is
	// handed a uio built from the open-file's offset.
	Read(buf []byte, offset int64) (n int, err error)
	Write(buf []byte, offset int64) (n int, err error)
	// TrySeek validates that offset is a legal seek position for this
	// vnode, returning an error for non-seekable objects (e.g. the
	// console device) or invalid positions.
	TrySeek(offset int64) error
	Stat() (Stat, error)
	Close() error
}

// FS is the filesystem-layer entry points the syscalls call through:
// vfs_open, vfs_chdir, vfs_getcwd.
type FS interface {
	Open(path string, flags int, mode uint32) (Vnode, error)
	Chdir(path string) error
	Getcwd() (string, error)
}

// regularVnode backs a real on-disk file with host syscalls.
type regularVnode struct {
	mu   sync.Mutex
	file *os.File
}

func newRegularVnode(f *os.File) *regularVnode {
	return &regularVnode{file: f}
}

func (v *regularVnode) Read(buf []byte, offset int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, err := v.file.ReadAt(buf, offset)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (v *regularVnode) Write(buf []byte, offset int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.file.WriteAt(buf, offset)
}

func (v *regularVnode) TrySeek(offset int64) error {
	if offset < 0 {
		return unix.EINVAL
	}
	return nil
}

func (v *regularVnode) Stat() (Stat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fi, err := v.file.Stat()
	if err != nil {
		return Stat{}, err
	}
	st, ok := fi.Sys().(*unix.Stat_t)
	var dev uint64
	if ok {
		dev = st.Dev
	}
	return Stat{Size: fi.Size(), Dev: dev}, nil
}

func (v *regularVnode) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.file.Close()
}

// consoleVnode backs the "con:" device: a non-seekable stream over a
// host reader or writer, never both — see DESIGN.md's resolution of
// the stdio-aliasing open question (spec.md §9 item 7).
type consoleVnode struct {
	mu sync.Mutex
	r  io.Reader
	w  io.Writer
}

func newConsoleReadVnode(r io.Reader) *consoleVnode  { return &consoleVnode{r: r} }
func newConsoleWriteVnode(w io.Writer) *consoleVnode { return &consoleVnode{w: w} }

func (v *consoleVnode) Read(buf []byte, offset int64) (int, error) {
	if v.r == nil {
		return 0, unix.EBADF
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	n, err := v.r.Read(buf)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (v *consoleVnode) Write(buf []byte, offset int64) (int, error) {
	if v.w == nil {
		return 0, unix.EBADF
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.w.Write(buf)
}

func (v *consoleVnode) TrySeek(offset int64) error {
	// "It is not meaningful to seek on certain objects (such as the
	// console device). All seeks on these objects fail." (spec.md §4.7)
	return unix.ESPIPE
}

func (v *consoleVnode) Stat() (Stat, error) {
	return Stat{}, unix.ESPIPE
}

func (v *consoleVnode) Close() error { return nil }

// NewConsoleReader returns the read-only console vnode (stdin).
func NewConsoleReader(r io.Reader) Vnode { return newConsoleReadVnode(r) }

// NewConsoleWriter returns a write-only console vnode (stdout/stderr).
// Each call returns a distinct vnode: unlike the stdio-aliasing bug
// this spec calls out, stdout and stderr are independent objects here.
func NewConsoleWriter(w io.Writer) Vnode { return newConsoleWriteVnode(w) }
