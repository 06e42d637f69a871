package kernel

import (
	"encoding/binary"

	"github.com/seanbriceland/OS161/kernelerr"
)

// argvLayout is the packed (argc+1) pointer slots followed by
// null-terminated, 4-byte-aligned argument strings that execv copies
// onto the new user stack, grounded on sys_execv's kargvp construction.
type argvLayout struct {
	bytes    []byte
	argc     int
	padLen   int
	pointers []uint32 // offsets from the start of bytes, before relocation
}

// packArgv builds the unrelocated layout for argv: a run of
// (argc+1)*4 pointer-sized slots, followed by each argument's bytes,
// NUL-terminated and padded to a 4-byte boundary. argv must already be
// the decoded strings (the copyin/copyinstr loop that builds them from
// a user-space char** is the usercopy collaborator's job, out of
// scope here). Returns EINVAL if argv exceeds argMax entries — the
// source has no explicit check here, but silently overrunning the
// fixed 128-pointer kernel buffer it uses is exactly the kind of bug
// spec.md §9 asks not to reproduce.
func packArgv(argv []string, argMax int) (*argvLayout, kernelerr.Errno) {
	if len(argv) > argMax {
		return nil, kernelerr.EINVAL
	}

	argc := len(argv)
	padLen := (argc + 1) * 4
	for _, a := range argv {
		length := len(a) + 1 // NUL terminator
		pad := (4 - length%4) % 4
		padLen += length + pad
	}

	buf := make([]byte, padLen)
	pointers := make([]uint32, argc+1)

	off := (argc + 1) * 4
	for i, a := range argv {
		pointers[i] = uint32(off)
		copy(buf[off:], a)
		buf[off+len(a)] = 0

		length := len(a) + 1
		pad := (4 - length%4) % 4
		off += length + pad
	}
	// pointers[argc] stays 0: the argv array's NULL terminator.

	for i, p := range pointers[:argc] {
		binary.LittleEndian.PutUint32(buf[i*4:], p)
	}

	return &argvLayout{bytes: buf, argc: argc, padLen: padLen, pointers: pointers}, kernelerr.OK
}

// relocate rewrites the pointer slots so each points at base+offset
// instead of just offset, matching the step where execv adds the new
// stackptr to every embedded pointer right before copying the layout
// out to the user stack.
func (l *argvLayout) relocate(base uint64) {
	for i, p := range l.pointers[:l.argc] {
		binary.LittleEndian.PutUint32(l.bytes[i*4:], uint32(base)+p)
	}
}
