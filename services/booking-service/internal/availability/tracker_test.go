package availability

import (
	"context"
	"sync"
	"testing"
)

func TestTracker_NewerComputationSupersedesOlder(t *testing.T) {
	var tr Tracker

	firstCtx, first := tr.Begin(context.Background())
	secondCtx, second := tr.Begin(context.Background())

	select {
	case <-firstCtx.Done():
	default:
		t.Fatalf("first computation should be cancelled")
	}
	if first.Current() {
		t.Fatalf("first ticket must be stale")
	}
	if first.Commit(func() { t.Fatalf("stale ticket must not publish") }) {
		t.Fatalf("stale commit reported success")
	}

	published := false
	if !second.Commit(func() { published = true }) || !published {
		t.Fatalf("current ticket should publish")
	}
	if secondCtx.Err() != nil {
		t.Fatalf("current context must stay live until released")
	}

	first.Release()
	if secondCtx.Err() != nil {
		t.Fatalf("releasing a stale ticket must not cancel the current one")
	}
	second.Release()
	if secondCtx.Err() == nil {
		t.Fatalf("release should cancel the current context")
	}
	if first.Generation() != 1 || second.Generation() != 2 {
		t.Fatalf("unexpected generations %d, %d", first.Generation(), second.Generation())
	}
}

func TestTracker_OnlyLatestOfConcurrentBeginsPublishes(t *testing.T) {
	var tr Tracker
	const n = 32

	tickets := make([]*Ticket, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, tickets[i] = tr.Begin(context.Background())
		}(i)
	}
	wg.Wait()

	current := 0
	for _, tk := range tickets {
		if tk.Current() {
			current++
		}
	}
	if current != 1 {
		t.Fatalf("expected exactly one current ticket, got %d", current)
	}
}
