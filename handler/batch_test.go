package handler

import (
	"sync"
	"testing"
	"time"

	"github.com/cascadelog/cascade/core"
)

func testRec(level core.Level) *core.Record {
	return core.NewRecord("svc", level, 1, "m", nil)
}

// collector records every delivered batch under a lock.
type collector struct {
	mu      sync.Mutex
	batches [][]*core.Record
	total   int
}

func (c *collector) send(batch []*core.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make([]*core.Record, len(batch))
	copy(copied, batch)
	c.batches = append(c.batches, copied)
	c.total += len(batch)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func TestBatcher_SizeThreshold(t *testing.T) {
	c := &collector{}
	b := NewBatcher(BatchConfig{BatchSize: 3, FlushInterval: time.Hour}, c.send)
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.Enqueue(testRec(core.InfoLevel))
	}

	deadline := time.After(2 * time.Second)
	for c.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("size-triggered send did not happen, sent=%d", c.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBatcher_IntervalFlush(t *testing.T) {
	c := &collector{}
	b := NewBatcher(BatchConfig{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, c.send)
	defer b.Close()

	b.Enqueue(testRec(core.InfoLevel))

	deadline := time.After(2 * time.Second)
	for c.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("interval-triggered send did not happen")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBatcher_FlushDeliversPartialBatch(t *testing.T) {
	c := &collector{}
	b := NewBatcher(BatchConfig{BatchSize: 100, FlushInterval: time.Hour}, c.send)
	defer b.Close()

	const k = 7
	for i := 0; i < k; i++ {
		b.Enqueue(testRec(core.InfoLevel))
	}

	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := c.count(); got != k {
		t.Errorf("after Flush sent = %d, want %d", got, k)
	}
}

func TestBatcher_CloseDrainsExactly(t *testing.T) {
	c := &collector{}
	b := NewBatcher(BatchConfig{BatchSize: 1000, FlushInterval: time.Hour, Capacity: 1000}, c.send)

	const m = 250
	for i := 0; i < m; i++ {
		b.Enqueue(testRec(core.InfoLevel))
	}

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if got := c.count(); got != m {
		t.Errorf("after Close sent = %d, want exactly %d (no loss, no duplication)", got, m)
	}

	// Closing again must be a no-op.
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if got := c.count(); got != m {
		t.Errorf("second Close changed sent count to %d", got)
	}
}

func TestBatcher_CloseConcurrent(t *testing.T) {
	c := &collector{}
	b := NewBatcher(BatchConfig{BatchSize: 10, FlushInterval: time.Hour}, c.send)

	for i := 0; i < 5; i++ {
		b.Enqueue(testRec(core.InfoLevel))
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Close()
		}()
	}
	wg.Wait()

	if got := c.count(); got != 5 {
		t.Errorf("sent = %d, want 5 after concurrent Close", got)
	}
}

func TestBatcher_EnqueueAfterClose(t *testing.T) {
	c := &collector{}
	b := NewBatcher(BatchConfig{BatchSize: 10, FlushInterval: time.Hour}, c.send)
	b.Close()

	b.Enqueue(testRec(core.InfoLevel))
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := c.count(); got != 0 {
		t.Errorf("record accepted after Close, sent = %d", got)
	}
}

func TestBatcher_OverflowDropNewest(t *testing.T) {
	block := make(chan struct{})
	b := NewBatcher(BatchConfig{
		BatchSize:     1,
		FlushInterval: time.Hour,
		Capacity:      2,
		OverflowPolicy: map[core.Level]OverflowPolicy{
			core.InfoLevel: DropNewest,
		},
	}, func([]*core.Record) { <-block })

	// First record occupies the worker; the next two fill the queue.
	for i := 0; i < 3; i++ {
		b.Enqueue(testRec(core.InfoLevel))
	}
	// Wait until the worker picked one up so the queue state is known.
	time.Sleep(20 * time.Millisecond)
	b.Enqueue(testRec(core.InfoLevel))
	b.Enqueue(testRec(core.InfoLevel))

	if got := b.Stats().GetDropped(core.InfoLevel); got == 0 {
		t.Error("no drops recorded for overflowing DropNewest queue")
	}

	close(block)
	b.Close()
}

func TestBatcher_PanickingSenderKeepsWorkerAlive(t *testing.T) {
	var errs []error
	var mu sync.Mutex
	calls := 0

	b := NewBatcher(BatchConfig{
		BatchSize:     1,
		FlushInterval: time.Hour,
		ErrorCallback: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	}, func([]*core.Record) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			panic("flaky sink")
		}
	})

	b.Enqueue(testRec(core.InfoLevel))
	b.Flush()
	b.Enqueue(testRec(core.InfoLevel))
	b.Flush()
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	if calls < 2 {
		t.Errorf("worker died after panic: %d send calls", calls)
	}
	if len(errs) == 0 {
		t.Error("panic was not reported to the error callback")
	}
}

func TestBatcher_RateLimitDrops(t *testing.T) {
	c := &collector{}
	b := NewBatcher(BatchConfig{
		BatchSize:     1000,
		FlushInterval: time.Hour,
		MaxRate:       10,
	}, c.send)
	defer b.Close()

	for i := 0; i < 200; i++ {
		b.Enqueue(testRec(core.InfoLevel))
	}
	if b.Stats().GetDropped(core.InfoLevel) == 0 {
		t.Error("rate limiter never dropped despite 200 instant enqueues at 10/s")
	}
}
