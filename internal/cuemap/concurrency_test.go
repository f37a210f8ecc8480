package cuemap

import (
	"fmt"
	"sync"
	"testing"
)

// These tests target §5's concurrent-readers-and-writers model directly:
// fan-out over the sharded CueIndex/Store with sync.WaitGroup, run under
// `go test -race`. They exist to catch exactly the class of bug a
// single-goroutine test can't: an unsynchronized concurrent map read/write
// on Record.Cues between Reinforce/AttachCue and a racing Recall.

func TestConcurrentRememberAndRecallIsRaceFree(t *testing.T) {
	t.Parallel()
	e := NewEngine(testClock())

	const writers = 16
	const readers = 16
	var wg sync.WaitGroup
	wg.Add(writers + readers)

	for i := 0; i < writers; i++ {
		go func(n int) {
			defer wg.Done()
			cue := fmt.Sprintf("cue%d", n%4)
			e.Remember(fmt.Sprintf("content %d", n), []string{"shared", cue})
		}(i)
	}
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			e.Recall(RecallQuery{Cues: []WeightedCue{{Cue: "shared", Weight: 1.0}}, Limit: 5})
		}()
	}
	wg.Wait()

	if e.Store.Len() != writers {
		t.Errorf("expected %d records stored, got %d", writers, e.Store.Len())
	}
}

// TestConcurrentReinforceAndRecallIsRaceFree races Reinforce (which calls
// Record.addCue for extra cues and reads the cue set for move-to-front)
// against Recall's scoring pass (which reads Record.CueList) on the very
// same shared *Record. Run with -race: prior to guarding Record.Cues with
// cuesMu this triggered "fatal error: concurrent map read and map write".
func TestConcurrentReinforceAndRecallIsRaceFree(t *testing.T) {
	t.Parallel()
	e := NewEngine(testClock())
	res, err := e.Remember("shared record", []string{"go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := res.Record.ID

	const iterations = 200
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			if _, err := e.Reinforce(id, []string{fmt.Sprintf("extra%d", i)}); err != nil {
				t.Errorf("unexpected Reinforce error: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			if err := e.AttachCue(id, fmt.Sprintf("attached%d", i)); err != nil {
				t.Errorf("unexpected AttachCue error: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			if _, err := e.Recall(RecallQuery{
				Cues:  []WeightedCue{{Cue: "go", Weight: 1.0}},
				Limit: 5,
				Flags: RecallFlags{Explain: true},
			}); err != nil {
				t.Errorf("unexpected Recall error: %v", err)
			}
		}
	}()
	wg.Wait()
}

// TestConcurrentAttachCueFanOutIsRaceFree attaches many distinct cues to
// one record from many goroutines at once and checks every cue survives,
// exercising CueIndex.Insert's per-shard locking alongside Record.addCue's
// own lock.
func TestConcurrentAttachCueFanOutIsRaceFree(t *testing.T) {
	t.Parallel()
	e := NewEngine(testClock())
	res, _ := e.Remember("base record", []string{"base"})
	id := res.Record.ID

	const fanout = 64
	var wg sync.WaitGroup
	wg.Add(fanout)
	for i := 0; i < fanout; i++ {
		go func(n int) {
			defer wg.Done()
			if err := e.AttachCue(id, fmt.Sprintf("tag%d", n)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	rec := e.Store.Get(id)
	cues := rec.CueList()
	if len(cues) != fanout+1 { // +1 for "base"
		t.Errorf("expected %d cues attached, got %d: %v", fanout+1, len(cues), cues)
	}
}

// TestConcurrentConsolidateAndRecallIsRaceFree fans Consolidate (which
// reads every live record's cue set via CueSet for Jaccard comparison) out
// against concurrent Remember/Recall traffic.
func TestConcurrentConsolidateAndRecallIsRaceFree(t *testing.T) {
	t.Parallel()
	e := NewEngine(testClock())
	for i := 0; i < 10; i++ {
		e.Remember("similar content", []string{"go", "concurrency", "tutorial"})
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		e.Consolidate()
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			e.Remember("more content", []string{"go", "concurrency"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			e.Recall(RecallQuery{Cues: []WeightedCue{{Cue: "go", Weight: 1.0}}, Limit: 10})
		}
	}()
	wg.Wait()
}
