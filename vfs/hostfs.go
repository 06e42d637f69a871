package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/moby/sys/mountinfo"
)

// HostFS resolves ordinary paths against the real host filesystem,
// rooted at a base directory (so test suites and the demo CLI don't
// touch the operator's actual filesystem root). It has no console
// device: "con:" is opened as an ordinary file name under the root;
// console vnodes come from NewConsoleReader/NewConsoleWriter and are
// installed as stdio by kernel.BootProcess. It owns the
// simulated process current-working-directory, matching vfs_chdir's
// scope: CWD is filesystem-global in OS/161 (one process at a time on
// real hardware); here it is one HostFS per simulated machine.
type HostFS struct {
	root string

	mu  sync.Mutex
	cwd string

	mounts    *MountTable
	rootMount string
}

// NewHostFS creates a HostFS rooted at root, with the working
// directory initialized to root.
func NewHostFS(root string) (*HostFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	mounts := NewMountTable()
	return &HostFS{
		root:      abs,
		cwd:       abs,
		mounts:    mounts,
		rootMount: mounts.MountPointFor(abs),
	}, nil
}

// Open implements vfs_open for regular paths. "con:" gets no special
// treatment here or in the kernel layer; the console device, which has
// no on-disk backing, is reached only through the vnodes made by
// NewConsoleReader/NewConsoleWriter.
func (fs *HostFS) Open(path string, flags int, mode uint32) (Vnode, error) {
	resolved, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(resolved, flags, os.FileMode(mode))
	if err != nil {
		return nil, err
	}
	return newRegularVnode(f), nil
}

// Chdir implements vfs_chdir.
func (fs *HostFS) Chdir(path string) error {
	resolved, err := fs.resolve(path)
	if err != nil {
		return err
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("chdir %q: not a directory", path)
	}
	fs.mu.Lock()
	fs.cwd = resolved
	fs.mu.Unlock()
	return nil
}

// Getcwd implements vfs_getcwd, returning the path relative to fs's
// root (so it never leaks the host's absolute layout). It also
// reconfirms the working directory still sits under the mount that
// covered it at chdir time: unlike a real vnode reference, a host path
// can have its underlying mount replaced out from under a long-lived
// process (an unmount/remount racing with the simulated kernel), and
// vfs_getcwd has no cached vnode to fall back on to detect that.
func (fs *HostFS) Getcwd() (string, error) {
	fs.mu.Lock()
	cwd := fs.cwd
	fs.mu.Unlock()

	if mp := fs.mounts.MountPointFor(cwd); mp != fs.rootMount {
		return "", fmt.Errorf("getcwd: current directory %q is no longer within mount %q", cwd, fs.rootMount)
	}

	rel, err := filepath.Rel(fs.root, cwd)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "/", nil
	}
	return "/" + rel, nil
}

// Mounts returns the mount table used to reject paths that cross into
// a different mount; see MountTable.
func (fs *HostFS) Mounts() *MountTable { return fs.mounts }

func (fs *HostFS) resolve(path string) (string, error) {
	fs.mu.Lock()
	cwd := fs.cwd
	fs.mu.Unlock()

	var joined string
	if filepath.IsAbs(path) {
		joined = filepath.Join(fs.root, path)
	} else {
		joined = filepath.Join(cwd, path)
	}
	clean := filepath.Clean(joined)
	prefix := fs.root
	if prefix[len(prefix)-1] != filepath.Separator {
		prefix += string(filepath.Separator)
	}
	if clean != fs.root && (len(clean) < len(prefix) || clean[:len(prefix)] != prefix) {
		return "", fmt.Errorf("path %q escapes filesystem root", path)
	}
	if mp := fs.mounts.MountPointFor(clean); mp != fs.rootMount {
		return "", fmt.Errorf("path %q crosses into mount %q, outside %q", path, mp, fs.rootMount)
	}
	return clean, nil
}

// MountTable resolves which host mount backs a given absolute path,
// used by HostFS to give open/chdir/getcwd mount-boundary awareness:
// a path whose covering mount differs from the one covering the HostFS
// root is rejected rather than crossed into. It is a thin, best-effort
// wrapper over github.com/moby/sys/mountinfo: parsing
// /proc/self/mountinfo only works on Linux, so elsewhere MountTable
// degrades to reporting no known mounts rather than failing.
type MountTable struct {
	mu     sync.Mutex
	loaded bool
	infos  []*mountinfo.Info
}

// NewMountTable creates an empty mount table; the host's mount
// information is re-read on every lookup, so mounts added or replaced
// later are seen.
func NewMountTable() *MountTable {
	return &MountTable{}
}

func (mt *MountTable) load() {
	infos, err := mountinfo.GetMounts(nil)
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.loaded = true
	if err == nil {
		mt.infos = infos
	}
}

// MountPointFor returns the mount point covering path: the longest
// known mountpoint prefix of path, or "" if the host doesn't expose
// mount information (e.g. non-Linux) or none matches.
func (mt *MountTable) MountPointFor(path string) string {
	mt.load()

	mt.mu.Lock()
	defer mt.mu.Unlock()

	best := ""
	for _, info := range mt.infos {
		mp := info.Mountpoint
		if len(mp) > len(best) && (path == mp || (len(path) > len(mp) && path[:len(mp)] == mp && (mp == "/" || path[len(mp)] == '/'))) {
			best = mp
		}
	}
	return best
}
