package kernel

import (
	"bytes"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/seanbriceland/OS161/kernelerr"
	"github.com/seanbriceland/OS161/process"
	"github.com/seanbriceland/OS161/vfs"
)

// memAddressSpace is a minimal AddressSpace double local to this
// package's tests (kernel/hostenv can't be imported here: it imports
// kernel, and an import cycle would result).
type memAddressSpace struct {
	destroyed bool
}

func (a *memAddressSpace) Copy() (AddressSpace, error)  { return &memAddressSpace{}, nil }
func (a *memAddressSpace) Activate()                    {}
func (a *memAddressSpace) Destroy()                     { a.destroyed = true }
func (a *memAddressSpace) DefineStack() (uint64, error) { return 0x7fff0000, nil }

type memASFactory struct{ fail bool }

func (f memASFactory) Create() (AddressSpace, error) {
	if f.fail {
		return nil, errTest
	}
	return &memAddressSpace{}, nil
}

type memELFLoader struct {
	fail  bool
	entry uint64
}

func (l memELFLoader) Load(v vfs.Vnode, as AddressSpace) (uint64, error) {
	if l.fail {
		return 0, errTest
	}
	return l.entry, nil
}

type recordingUserEntry struct {
	argc  int
	entry uint64
}

func (u *recordingUserEntry) Enter(argc int, argvPtr, stackPtr uint64, entry uint64) {
	u.argc = argc
	u.entry = entry
}

var errTest = errTestType{}

type errTestType struct{}

func (errTestType) Error() string { return "test error" }

func newTestKernel(t *testing.T) (*Kernel, *process.Record) {
	t.Helper()
	dir := t.TempDir()
	fs, err := vfs.NewHostFS(dir)
	if err != nil {
		t.Fatalf("NewHostFS: %v", err)
	}
	k := New(DefaultLimits(), fs, memASFactory{}, memELFLoader{entry: 0x400000}, nil)

	var stdout, stderr bytes.Buffer
	init, errno := k.BootProcess(vfs.NewConsoleReader(&bytes.Buffer{}), vfs.NewConsoleWriter(&stdout), vfs.NewConsoleWriter(&stderr))
	if !errno.Ok() {
		t.Fatalf("BootProcess: %v", errno)
	}
	return k, init
}

func TestOpenWriteReadLseekClose(t *testing.T) {
	k, init := newTestKernel(t)

	fd, errno := k.Open(init, "file.txt", unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC)
	if !errno.Ok() {
		t.Fatalf("Open: %v", errno)
	}

	n, errno := k.Write(init, fd, []byte("ABCD"))
	if !errno.Ok() || n != 4 {
		t.Fatalf("Write = (%d, %v), want (4, OK)", n, errno)
	}

	if _, errno := k.Lseek(init, fd, 1, SeekSet); !errno.Ok() {
		t.Fatalf("Lseek: %v", errno)
	}
	buf := make([]byte, 2)
	n, errno = k.Read(init, fd, buf)
	if !errno.Ok() || string(buf[:n]) != "BC" {
		t.Fatalf("Read after lseek(1, SEEK_SET) = %q, want BC", buf[:n])
	}

	end, errno := k.Lseek(init, fd, 0, SeekEnd)
	if !errno.Ok() || end != 4 {
		t.Fatalf("Lseek SEEK_END = (%d, %v), want (4, OK)", end, errno)
	}

	if errno := k.Close(init, fd); !errno.Ok() {
		t.Fatalf("Close: %v", errno)
	}
	if errno := k.Close(init, fd); errno.Ok() {
		t.Fatal("second Close on the same fd should fail (EBADF)")
	}
}

func TestCloseTwiceReturnsEBADF(t *testing.T) {
	k, init := newTestKernel(t)
	fd, errno := k.Open(init, "f.txt", unix.O_RDWR|unix.O_CREAT)
	if !errno.Ok() {
		t.Fatalf("Open: %v", errno)
	}
	if errno := k.Close(init, fd); !errno.Ok() {
		t.Fatalf("first Close: %v", errno)
	}
	if errno := k.Close(init, fd); errno != kernelerr.EBADF {
		t.Fatalf("second Close on the same fd = %v, want EBADF", errno)
	}
}

func TestBadFdReturnsEBADF(t *testing.T) {
	k, init := newTestKernel(t)
	if _, errno := k.Read(init, -1, make([]byte, 1)); errno != kernelerr.EBADF {
		t.Fatalf("Read with fd == -1 = %v, want EBADF", errno)
	}
	if _, errno := k.Read(init, init.Files.Size(), make([]byte, 1)); errno != kernelerr.EBADF {
		t.Fatalf("Read with fd == OPEN_MAX = %v, want EBADF", errno)
	}
}

func TestDup2SharesObjectAndIncrementsRefcount(t *testing.T) {
	k, init := newTestKernel(t)
	fd, errno := k.Open(init, "f.txt", unix.O_RDWR|unix.O_CREAT)
	if !errno.Ok() {
		t.Fatalf("Open: %v", errno)
	}

	newfd, errno := k.Dup2(init, fd, fd+5)
	if !errno.Ok() {
		t.Fatalf("Dup2: %v", errno)
	}
	if got := init.Files.Get(fd).Refcount(init); got != 2 {
		t.Fatalf("refcount after Dup2 = %d, want 2", got)
	}

	k.Write(init, fd, []byte("hi"))
	buf := make([]byte, 2)
	k.Lseek(init, newfd, 0, SeekSet)
	n, errno := k.Read(init, newfd, buf)
	if !errno.Ok() || string(buf[:n]) != "hi" {
		t.Fatalf("dup2'd fd should observe the same offset-evolving object, got %q", buf[:n])
	}
}

func TestDup2SameFdIsNoop(t *testing.T) {
	k, init := newTestKernel(t)
	fd, errno := k.Open(init, "f.txt", unix.O_RDWR|unix.O_CREAT)
	if !errno.Ok() {
		t.Fatalf("Open: %v", errno)
	}
	if newfd, errno := k.Dup2(init, fd, fd); !errno.Ok() || newfd != fd {
		t.Fatalf("Dup2(fd, fd) = (%d, %v), want (%d, OK)", newfd, errno, fd)
	}
}

func TestForkThenWaitpidDeliversExitCode(t *testing.T) {
	k, init := newTestKernel(t)

	childPid, errno := k.Fork(init, &memAddressSpace{}, func(child *process.Record, as AddressSpace) {
		k.Exit(child, 7)
	})
	if !errno.Ok() {
		t.Fatalf("Fork: %v", errno)
	}
	if childPid <= 0 {
		t.Fatalf("Fork returned pid %d, want > 0", childPid)
	}

	var status int
	waited, errno := k.Waitpid(init, childPid, &status, 0)
	if !errno.Ok() {
		t.Fatalf("Waitpid: %v", errno)
	}
	if waited != childPid {
		t.Fatalf("Waitpid returned pid %d, want %d", waited, childPid)
	}
	if code := WaitExitCode(status); code != 7 {
		t.Fatalf("decoded exit code = %d, want 7", code)
	}
}

func TestWaitpidNotParentReturnsECHILD(t *testing.T) {
	k, init := newTestKernel(t)
	childPid, errno := k.Fork(init, &memAddressSpace{}, func(child *process.Record, as AddressSpace) {
		k.Exit(child, 0)
	})
	if !errno.Ok() {
		t.Fatalf("Fork: %v", errno)
	}

	otherPid, errno := k.Fork(init, &memAddressSpace{}, func(child *process.Record, as AddressSpace) {
		k.Exit(child, 0)
	})
	if !errno.Ok() {
		t.Fatalf("Fork: %v", errno)
	}
	other := k.Processes().Get(otherPid)

	var status int
	if _, errno := k.Waitpid(other, childPid, &status, 0); errno != kernelerr.ECHILD {
		t.Fatalf("Waitpid from a non-parent = %v, want ECHILD", errno)
	}

	var s2 int
	k.Waitpid(init, childPid, &s2, 0)
	k.Waitpid(init, otherPid, &s2, 0)
}

func TestWaitpidNilStatusIsEFAULT(t *testing.T) {
	k, init := newTestKernel(t)
	childPid, errno := k.Fork(init, &memAddressSpace{}, func(child *process.Record, as AddressSpace) {
		k.Exit(child, 0)
	})
	if !errno.Ok() {
		t.Fatalf("Fork: %v", errno)
	}
	if _, errno := k.Waitpid(init, childPid, nil, 0); errno != kernelerr.EFAULT {
		t.Fatalf("Waitpid with a nil status pointer = %v, want EFAULT", errno)
	}
	var status int
	k.Waitpid(init, childPid, &status, 0)
}

func TestWaitpidNonZeroOptionsIsEINVAL(t *testing.T) {
	k, init := newTestKernel(t)
	childPid, errno := k.Fork(init, &memAddressSpace{}, func(child *process.Record, as AddressSpace) {
		k.Exit(child, 0)
	})
	if !errno.Ok() {
		t.Fatalf("Fork: %v", errno)
	}
	var status int
	if _, errno := k.Waitpid(init, childPid, &status, 1); errno != kernelerr.EINVAL {
		t.Fatalf("Waitpid with non-zero options = %v, want EINVAL", errno)
	}
	k.Waitpid(init, childPid, &status, 0)
}

func TestReparentingOnParentExit(t *testing.T) {
	k, init := newTestKernel(t)
	c1, errno := k.Fork(init, &memAddressSpace{}, nil)
	if !errno.Ok() {
		t.Fatalf("Fork c1: %v", errno)
	}
	c2, errno := k.Fork(init, &memAddressSpace{}, nil)
	if !errno.Ok() {
		t.Fatalf("Fork c2: %v", errno)
	}

	k.Exit(init, 0)

	if got := k.Processes().Get(c1).ParentPID; got != process.NoParent {
		t.Fatalf("child 1 ParentPID = %d, want NoParent", got)
	}
	if got := k.Processes().Get(c2).ParentPID; got != process.NoParent {
		t.Fatalf("child 2 ParentPID = %d, want NoParent", got)
	}
}

func TestExitReleasesDescriptorTable(t *testing.T) {
	k, init := newTestKernel(t)
	fd, errno := k.Open(init, "f.txt", unix.O_RDWR|unix.O_CREAT)
	if !errno.Ok() {
		t.Fatalf("Open: %v", errno)
	}
	ofile := init.Files.Get(fd)

	childPid, errno := k.Fork(init, &memAddressSpace{}, func(child *process.Record, as AddressSpace) {
		// Never closes the inherited fd itself — Exit must release it.
		k.Exit(child, 0)
	})
	if !errno.Ok() {
		t.Fatalf("Fork: %v", errno)
	}

	var status int
	if _, errno := k.Waitpid(init, childPid, &status, 0); !errno.Ok() {
		t.Fatalf("Waitpid: %v", errno)
	}

	if got := ofile.Refcount(init); got != 1 {
		t.Fatalf("refcount after child exit without close = %d, want 1 (I1 violated, fd table leaked)", got)
	}
}

func TestExecvEmptyPrognameIsEINVAL(t *testing.T) {
	k, init := newTestKernel(t)
	u := &recordingUserEntry{}
	if errno := k.Execv(init, "", nil, &memAddressSpace{}, u); errno != kernelerr.EINVAL {
		t.Fatalf("Execv with an empty progname = %v, want EINVAL", errno)
	}
}

func TestExecvRestoresOldAddressSpaceOnELFLoadFailure(t *testing.T) {
	dir := t.TempDir()
	fs, err := vfs.NewHostFS(dir)
	if err != nil {
		t.Fatalf("NewHostFS: %v", err)
	}
	k := New(DefaultLimits(), fs, memASFactory{}, memELFLoader{fail: true}, nil)
	init, errno := k.BootProcess(vfs.NewConsoleReader(&bytes.Buffer{}), vfs.NewConsoleWriter(&bytes.Buffer{}), vfs.NewConsoleWriter(&bytes.Buffer{}))
	if !errno.Ok() {
		t.Fatalf("BootProcess: %v", errno)
	}

	fd, errno := k.Open(init, "prog", unix.O_RDWR|unix.O_CREAT)
	if !errno.Ok() {
		t.Fatalf("Open: %v", errno)
	}
	k.Close(init, fd)

	old := &memAddressSpace{}
	u := &recordingUserEntry{}
	errno = k.Execv(init, "prog", []string{"prog"}, old, u)
	if errno.Ok() {
		t.Fatal("Execv should fail when the ELF loader fails")
	}
	if old.destroyed {
		t.Fatal("old address space must not be destroyed on ELF load failure")
	}
}
