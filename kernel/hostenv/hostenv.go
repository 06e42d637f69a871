// Package hostenv supplies minimal in-memory implementations of the
// kernel package's AddressSpace/ELFLoader/UserEntry collaborators —
// test doubles standing in for as_create/as_copy/as_activate/
// as_destroy/as_define_stack, load_elf, and enter_new_process/
// mips_usermode, all of which spec.md §1 places out of scope for this
// subsystem. They let fork and execv be exercised end to end in tests
// and the demo CLI without a real address-space manager or ELF loader.
package hostenv

import (
	"sync"

	"github.com/seanbriceland/OS161/kernel"
	"github.com/seanbriceland/OS161/vfs"
)

// AddressSpace is a bag of named regions, just detailed enough to
// exercise Copy/Activate/Destroy/DefineStack.
type AddressSpace struct {
	mu       sync.Mutex
	regions  map[string][]byte
	active   bool
	stackTop uint64
}

// NewAddressSpace creates an empty address space with a fixed stack
// top, high enough that subtracting any plausible argv layout still
// leaves a positive stack pointer.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{regions: map[string][]byte{}, stackTop: 0x7fff0000}
}

func (as *AddressSpace) Copy() (kernel.AddressSpace, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	cp := &AddressSpace{regions: map[string][]byte{}, stackTop: as.stackTop}
	for k, v := range as.regions {
		dup := make([]byte, len(v))
		copy(dup, v)
		cp.regions[k] = dup
	}
	return cp, nil
}

func (as *AddressSpace) Activate() {
	as.mu.Lock()
	as.active = true
	as.mu.Unlock()
}

func (as *AddressSpace) Destroy() {
	as.mu.Lock()
	as.regions = nil
	as.active = false
	as.mu.Unlock()
}

func (as *AddressSpace) DefineStack() (uint64, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.stackTop, nil
}

// Active reports whether Activate has been called more recently than
// Destroy, for tests.
func (as *AddressSpace) Active() bool {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.active
}

// AddressSpaceFactory creates fresh AddressSpace values.
type AddressSpaceFactory struct{}

func (AddressSpaceFactory) Create() (kernel.AddressSpace, error) {
	return NewAddressSpace(), nil
}

// ELFLoader is a trivial loader: Load reads the first bytes of the
// vnode and, unless that read returns an error, "loads" successfully
// at a fixed entry point. It does not parse a real ELF image and has
// no configurable failure mode.
type ELFLoader struct {
	// EntryPoint is the entry address Load reports on success.
	EntryPoint uint64
}

func NewELFLoader() *ELFLoader {
	return &ELFLoader{EntryPoint: 0x00400000}
}

func (l *ELFLoader) Load(v vfs.Vnode, as kernel.AddressSpace) (uint64, error) {
	buf := make([]byte, 4)
	if _, err := v.Read(buf, 0); err != nil {
		return 0, err
	}
	return l.EntryPoint, nil
}

// UserEntry records the final transition into "user mode" instead of
// actually performing one, so Execv's terminal call can be observed
// in tests. It must not be used outside tests: a real UserEntry never
// returns on success.
type UserEntry struct {
	mu    sync.Mutex
	calls []UserEntryCall
}

type UserEntryCall struct {
	Argc     int
	ArgvPtr  uint64
	StackPtr uint64
	Entry    uint64
}

func NewUserEntry() *UserEntry { return &UserEntry{} }

func (u *UserEntry) Enter(argc int, argvPtr, stackPtr uint64, entry uint64) {
	u.mu.Lock()
	u.calls = append(u.calls, UserEntryCall{argc, argvPtr, stackPtr, entry})
	u.mu.Unlock()
}

func (u *UserEntry) Calls() []UserEntryCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]UserEntryCall, len(u.calls))
	copy(out, u.calls)
	return out
}
