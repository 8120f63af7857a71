package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestRememberIdempotent(t *testing.T) {
	r := New()

	r.Remember("U123")
	r.Remember("U123")
	r.Remember("U456")
	r.Remember("")

	if r.Len() != 2 {
		t.Fatalf("expected 2 recipients, got %d", r.Len())
	}

	got := r.Snapshot()
	if got[0] != "U123" || got[1] != "U456" {
		t.Errorf("unexpected snapshot: %v", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := New()
	r.Remember("U1")

	snap := r.Snapshot()
	r.Remember("U2")

	if len(snap) != 1 {
		t.Errorf("snapshot should not see later additions: %v", snap)
	}
	if r.Len() != 2 {
		t.Errorf("registry lost an addition: %d", r.Len())
	}
}

func TestConcurrentRemember(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Remember(fmt.Sprintf("U%d", n%10))
		}(i)
	}
	wg.Wait()

	if r.Len() != 10 {
		t.Errorf("expected 10 unique recipients, got %d", r.Len())
	}
}
