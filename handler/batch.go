package handler

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/cascadelog/cascade/core"
)

// BatchConfig configures a Batcher.
type BatchConfig struct {
	// BatchSize is the record count that triggers a send (default 100).
	BatchSize int
	// FlushInterval is the longest a buffered record waits before a
	// timed send (default 5s).
	FlushInterval time.Duration
	// Capacity bounds the enqueue channel (default 10*BatchSize).
	Capacity int
	// OverflowPolicy defines per-level behavior on a full queue
	// (default: DefaultLevelPolicy).
	OverflowPolicy map[core.Level]OverflowPolicy
	// BlockTimeout bounds the Block policy (default 100ms).
	BlockTimeout time.Duration
	// MaxRate throttles accepted records per second (0 = unlimited).
	MaxRate int
	// ErrorCallback receives delivery and worker errors. Errors are
	// swallowed after reporting; they never reach the logging caller.
	ErrorCallback func(error)
}

func (cfg *BatchConfig) applyDefaults() {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10 * cfg.BatchSize
	}
	if cfg.OverflowPolicy == nil {
		cfg.OverflowPolicy = DefaultLevelPolicy()
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 100 * time.Millisecond
	}
}

// Batcher owns the background worker shared by the network batching
// handlers. Records are enqueued without blocking the caller; exactly
// one worker goroutine drains them into batches and hands each batch
// to the send function. Flush blocks until everything accepted before
// the call has been sent; Close drains synchronously, sends the
// remainder, and joins the worker. An accepted record is never lost
// on normal shutdown.
type Batcher struct {
	cfg     BatchConfig
	send    func(batch []*core.Record)
	queue   chan *core.Record
	flushCh chan chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	limiter *rate.Limiter
	stats   *Stats
}

// NewBatcher starts the worker. The send function runs only on the
// worker goroutine and may block; it must not retain the batch slice.
func NewBatcher(cfg BatchConfig, send func(batch []*core.Record)) *Batcher {
	cfg.applyDefaults()

	b := &Batcher{
		cfg:     cfg,
		send:    send,
		queue:   make(chan *core.Record, cfg.Capacity),
		flushCh: make(chan chan struct{}),
		done:    make(chan struct{}),
		stats:   NewStats(),
	}
	if cfg.MaxRate > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRate), cfg.MaxRate)
	}

	b.wg.Add(1)
	go b.run()
	return b
}

// Stats returns the batcher's counters.
func (b *Batcher) Stats() *Stats {
	return b.stats
}

// Enqueue accepts a record for batching. It never blocks beyond the
// Block policy's timeout; on overflow the configured policy decides
// which record is dropped.
func (b *Batcher) Enqueue(record *core.Record) {
	if b.closed.Load() {
		return
	}
	if b.limiter != nil && !b.limiter.Allow() {
		b.stats.IncrementDropped(record.Level)
		return
	}

	select {
	case b.queue <- record:
		return
	default:
	}

	policy, ok := b.cfg.OverflowPolicy[record.Level]
	if !ok {
		policy = DropNewest
	}

	switch policy {
	case Block:
		b.stats.IncrementBlocked()
		timer := time.NewTimer(b.cfg.BlockTimeout)
		defer timer.Stop()
		select {
		case b.queue <- record:
		case <-timer.C:
			b.stats.IncrementDropped(record.Level)
		case <-b.done:
			b.stats.IncrementDropped(record.Level)
		}

	case DropOldest:
		select {
		case old := <-b.queue:
			b.stats.IncrementDropped(old.Level)
		default:
		}
		select {
		case b.queue <- record:
		default:
			b.stats.IncrementDropped(record.Level)
		}

	default: // DropNewest
		b.stats.IncrementDropped(record.Level)
	}
}

// Flush blocks until every record accepted before the call has been
// handed to the send function. It is a no-op after Close.
func (b *Batcher) Flush() error {
	if b.closed.Load() {
		return nil
	}
	ack := make(chan struct{})
	select {
	case b.flushCh <- ack:
	case <-b.done:
		return nil
	}
	select {
	case <-ack:
	case <-b.done:
	}
	return nil
}

// RequestFlush asks the worker for an asynchronous flush, used by the
// flush-level path. It silently skips when the worker is busy.
func (b *Batcher) RequestFlush() {
	if b.closed.Load() {
		return
	}
	ack := make(chan struct{})
	select {
	case b.flushCh <- ack:
	default:
	}
}

// Close drains the queue, sends any remaining batch, and joins the
// worker. It is idempotent and safe to call from multiple goroutines;
// only the first call performs the shutdown.
func (b *Batcher) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		b.wg.Wait()
		return nil
	}
	close(b.done)
	b.wg.Wait()
	return nil
}

// run is the worker loop.
func (b *Batcher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*core.Record, 0, b.cfg.BatchSize)

	deliver := func() {
		if len(batch) == 0 {
			return
		}
		b.deliver(batch)
		batch = batch[:0]
	}

	// drain moves everything currently queued into the batch,
	// delivering intermediate full batches.
	drain := func() {
		for {
			select {
			case rec := <-b.queue:
				batch = append(batch, rec)
				if len(batch) >= b.cfg.BatchSize {
					deliver()
				}
			default:
				return
			}
		}
	}

	for {
		select {
		case rec := <-b.queue:
			batch = append(batch, rec)
			if len(batch) >= b.cfg.BatchSize {
				deliver()
			}

		case <-ticker.C:
			deliver()

		case ack := <-b.flushCh:
			drain()
			deliver()
			close(ack)

		case <-b.done:
			drain()
			deliver()
			return
		}
	}
}

// deliver hands one batch to the send function, containing any panic
// so a faulty sender or user callback cannot kill the worker.
func (b *Batcher) deliver(batch []*core.Record) {
	defer func() {
		if r := recover(); r != nil {
			b.reportError(fmt.Errorf("batch delivery panicked: %v", r))
		}
	}()
	b.send(batch)
	for range batch {
		b.stats.IncrementProcessed()
	}
}

func (b *Batcher) reportError(err error) {
	if b.cfg.ErrorCallback != nil {
		b.cfg.ErrorCallback(err)
		return
	}
	fmt.Fprintf(os.Stderr, "cascade: %v\n", err)
}
