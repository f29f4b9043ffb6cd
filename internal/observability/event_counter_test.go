package observability_test

import (
	"sync"
	"testing"

	"github.com/rcmate/rcmate/internal/eventbus"
	"github.com/rcmate/rcmate/internal/observability"
)

func TestEventCounterConcurrentRecord(t *testing.T) {
	counter := observability.NewEventCounter()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				counter.Record(eventbus.EventJobProgress)
			}
			counter.Record(eventbus.EventJobFinished)
		}()
	}
	wg.Wait()

	snapshot := counter.Snapshot()
	if snapshot[eventbus.EventJobProgress] != 1000 {
		t.Fatalf("expected 1000 job progress events, got %d", snapshot[eventbus.EventJobProgress])
	}
	if snapshot[eventbus.EventJobFinished] != 10 {
		t.Fatalf("expected 10 job finished events, got %d", snapshot[eventbus.EventJobFinished])
	}
}

func TestEventCounterIgnoresEmptyEvent(t *testing.T) {
	counter := observability.NewEventCounter()
	counter.Record("")
	if len(counter.Snapshot()) != 0 {
		t.Fatal("empty event names must not be counted")
	}
}
