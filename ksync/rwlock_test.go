package ksync

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestRWLockExcludesWriters exercises I7: no reader may be admitted
// concurrently with a writer, and no two writers run concurrently.
func TestRWLockExcludesWriters(t *testing.T) {
	rw := NewRWLock("test")
	var readers, writers int32
	var sawOverlap int32
	var wg sync.WaitGroup

	for i := 0; i < 6; i++ {
		holder := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 30; j++ {
				rw.AcquireRead(holder)
				atomic.AddInt32(&readers, 1)
				if atomic.LoadInt32(&writers) > 0 {
					atomic.StoreInt32(&sawOverlap, 1)
				}
				time.Sleep(time.Microsecond)
				atomic.AddInt32(&readers, -1)
				rw.ReleaseRead(holder)
			}
		}()
	}
	for i := 0; i < 3; i++ {
		holder := 100 + i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 30; j++ {
				rw.AcquireWrite(holder)
				atomic.AddInt32(&writers, 1)
				if atomic.LoadInt32(&readers) > 0 || atomic.LoadInt32(&writers) > 1 {
					atomic.StoreInt32(&sawOverlap, 1)
				}
				time.Sleep(time.Microsecond)
				atomic.AddInt32(&writers, -1)
				rw.ReleaseWrite(holder)
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&sawOverlap) != 0 {
		t.Fatal("observed a writer overlapping with a reader or another writer")
	}
}

func TestRWLockMultipleReadersConcurrent(t *testing.T) {
	rw := NewRWLock("test")
	const n = 4
	entered := make(chan struct{}, n)
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		holder := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rw.AcquireRead(holder)
			entered <- struct{}{}
			<-release
			rw.ReleaseRead(holder)
		}()
	}

	deadline := time.After(time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-entered:
		case <-deadline:
			t.Fatalf("only %d of %d readers entered concurrently", i, n)
		}
	}
	close(release)
	wg.Wait()
}

func TestRWLockWriterPreference(t *testing.T) {
	rw := NewRWLock("test")
	rw.AcquireRead("r1")

	writerDone := make(chan struct{})
	go func() {
		rw.AcquireWrite("w")
		close(writerDone)
		rw.ReleaseWrite("w")
	}()

	time.Sleep(10 * time.Millisecond) // let the writer set holdReaders

	lateReaderAdmitted := make(chan struct{})
	go func() {
		rw.AcquireRead("r2")
		close(lateReaderAdmitted)
		rw.ReleaseRead("r2")
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-lateReaderAdmitted:
		t.Fatal("a reader arriving after a waiting writer should be held back")
	default:
	}

	rw.ReleaseRead("r1")

	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired after the existing reader drained")
	}
	select {
	case <-lateReaderAdmitted:
	case <-time.After(time.Second):
		t.Fatal("late reader never admitted after the writer released")
	}
}
