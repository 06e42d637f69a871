package process

import "github.com/jacobsa/syncutil"

// ReservedSlots is the number of process-table slots reserved before
// user processes begin: spec.md §3 reserves slots 0 and 1, so the
// first user process receives pid 2.
const ReservedSlots = 2

// Table is the fixed-size process table; the position within the
// array is the pid (spec.md §3). A table-level mutex serializes slot
// allocation and clearing; it is never held across a blocking
// operation — only Record.waitLock is. mu is an InvariantMutex, the
// way GoogleCloudPlatform-gcsfuse's inode types guard their mutable
// state (fs/inode/file.go's Mu syncutil.InvariantMutex), so that pid
// uniqueness (I3's precondition) is checked on every lock/unlock in
// tests and debug builds rather than only where a test happens to
// assert it.
type Table struct {
	size int

	mu    syncutil.InvariantMutex
	slots []*Record
}

// New creates a process table of the given size (MAX_RUNNING_PROCS),
// with slots 0 and 1 left permanently reserved (never assigned).
func New(size int) *Table {
	t := &Table{size: size, slots: make([]*Record, size)}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

// checkInvariants asserts pid uniqueness: each occupied slot's own
// Pid field matches its index. Panics (InvariantMutex's contract) if
// violated, which would mean a caller mutated a slot outside of Add,
// Clear, or a Record it already owns.
func (t *Table) checkInvariants() {
	for i, rec := range t.slots {
		if rec != nil && rec.Pid != i {
			panic("process: table slot index does not match record pid")
		}
	}
}

// Add scans slots starting at ReservedSlots and installs rec in the
// first null slot, returning that index as its pid. It returns -1 if
// the table is full. Grounded on add_process, with the off-by-one
// flagged in spec.md §9 item 9 corrected: the scan stops at size, not
// size+ReservedSlots.
func (t *Table) Add(rec *Record) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for pid := ReservedSlots; pid < t.size; pid++ {
		if t.slots[pid] == nil {
			rec.Pid = pid
			t.slots[pid] = rec
			return pid
		}
	}
	return -1
}

// Get returns the record at pid, or nil if pid is out of range or the
// slot is empty.
func (t *Table) Get(pid int) *Record {
	if pid < 0 || pid >= t.size {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[pid]
}

// Clear nulls out slot pid, making the pid reusable. Called by the
// reaping Waitpid after Record.Teardown.
func (t *Table) Clear(pid int) {
	if pid < 0 || pid >= t.size {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[pid] = nil
}

// ReparentChildren sets ParentPID = NoParent on every live process
// whose ParentPID is parentPid, for use by Exit (spec.md I4).
func (t *Table) ReparentChildren(parentPid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range t.slots {
		if rec != nil && rec.ParentPID == parentPid {
			rec.ParentPID = NoParent
		}
	}
}

// Size returns MAX_RUNNING_PROCS for this table.
func (t *Table) Size() int { return t.size }
