package kvstore

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestSequenceMonotonic(t *testing.T) {
	store := newTestStore(t)
	seq := NewSequence(store, zap.NewNop())

	for want := int64(1); want <= 10; want++ {
		got, err := seq.Next("posts")
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if got != want {
			t.Errorf("Next: got %d, want %d", got, want)
		}
	}
}

func TestSequenceIndependentCounters(t *testing.T) {
	store := newTestStore(t)
	seq := NewSequence(store, zap.NewNop())

	if _, err := seq.Next("posts"); err != nil {
		t.Fatalf("Next posts failed: %v", err)
	}
	got, err := seq.Next("txns")
	if err != nil {
		t.Fatalf("Next txns failed: %v", err)
	}
	if got != 1 {
		t.Errorf("fresh counter: got %d, want 1", got)
	}
}

func TestSequenceCorruptValueResets(t *testing.T) {
	store := newTestStore(t)
	seq := NewSequence(store, zap.NewNop())

	if err := store.Put("seq:posts", "not-a-number"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := seq.Next("posts")
	if err != nil {
		t.Fatalf("Next after corruption failed: %v", err)
	}
	if got != 1 {
		t.Errorf("Next after corruption: got %d, want 1", got)
	}

	got, err = seq.Next("posts")
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got != 2 {
		t.Errorf("Next: got %d, want 2", got)
	}
}

func TestSequenceQuotedValueParses(t *testing.T) {
	store := newTestStore(t)
	seq := NewSequence(store, zap.NewNop())

	// Older records stored counters as JSON strings.
	if err := store.Put("seq:posts", "41"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := seq.Next("posts")
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if got != 42 {
		t.Errorf("Next: got %d, want 42", got)
	}
}

func TestSequenceConcurrentNoDuplicates(t *testing.T) {
	store := newTestStore(t)
	seq := NewSequence(store, zap.NewNop())

	const workers = 4
	const perWorker = 3

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				n, err := seq.Next("load")
				if err != nil {
					t.Errorf("Next failed: %v", err)
					return
				}
				mu.Lock()
				if seen[n] {
					t.Errorf("duplicate sequence value %d", n)
				}
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("allocated %d values, want %d", len(seen), workers*perWorker)
	}
}
