package handler

import (
	"sync/atomic"

	"github.com/cascadelog/cascade/core"
)

// OverflowPolicy defines how a batching handler reacts to a full queue
type OverflowPolicy int

const (
	// DropNewest drops the incoming record when the queue is full
	DropNewest OverflowPolicy = iota
	// DropOldest evicts the oldest queued record to make room
	DropOldest
	// Block blocks the caller until space is available (with timeout)
	Block
)

// String returns the string representation of the policy
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "DropNewest"
	case DropOldest:
		return "DropOldest"
	case Block:
		return "Block"
	default:
		return "Unknown"
	}
}

// DefaultLevelPolicy returns the default level-based overflow policies:
// routine records are droppable, errors block briefly rather than drop.
func DefaultLevelPolicy() map[core.Level]OverflowPolicy {
	return map[core.Level]OverflowPolicy{
		core.DebugLevel:    DropNewest,
		core.InfoLevel:     DropNewest,
		core.WarningLevel:  DropNewest,
		core.ErrorLevel:    Block,
		core.CriticalLevel: Block,
	}
}

// Stats tracks batching-handler statistics
type Stats struct {
	// Separate atomic counters per level
	DroppedDebug    uint64
	DroppedInfo     uint64
	DroppedWarning  uint64
	DroppedError    uint64
	DroppedCritical uint64
	// BlockedTotal counts times enqueueing blocked due to a full queue
	BlockedTotal uint64
	// ProcessedTotal counts records handed to the sink
	ProcessedTotal uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) droppedCounter(level core.Level) *uint64 {
	switch {
	case level <= core.DebugLevel:
		return &s.DroppedDebug
	case level <= core.InfoLevel:
		return &s.DroppedInfo
	case level <= core.WarningLevel:
		return &s.DroppedWarning
	case level <= core.ErrorLevel:
		return &s.DroppedError
	default:
		return &s.DroppedCritical
	}
}

// IncrementDropped atomically increments the dropped counter for a level
func (s *Stats) IncrementDropped(level core.Level) {
	atomic.AddUint64(s.droppedCounter(level), 1)
}

// IncrementBlocked atomically increments the blocked counter
func (s *Stats) IncrementBlocked() {
	atomic.AddUint64(&s.BlockedTotal, 1)
}

// IncrementProcessed atomically increments the processed counter
func (s *Stats) IncrementProcessed() {
	atomic.AddUint64(&s.ProcessedTotal, 1)
}

// GetDropped returns the dropped count for a level
func (s *Stats) GetDropped(level core.Level) uint64 {
	return atomic.LoadUint64(s.droppedCounter(level))
}

// GetBlocked returns the blocked count
func (s *Stats) GetBlocked() uint64 {
	return atomic.LoadUint64(&s.BlockedTotal)
}

// GetProcessed returns the processed count
func (s *Stats) GetProcessed() uint64 {
	return atomic.LoadUint64(&s.ProcessedTotal)
}

// GetTotalDropped returns the total dropped across all levels
func (s *Stats) GetTotalDropped() uint64 {
	return atomic.LoadUint64(&s.DroppedDebug) +
		atomic.LoadUint64(&s.DroppedInfo) +
		atomic.LoadUint64(&s.DroppedWarning) +
		atomic.LoadUint64(&s.DroppedError) +
		atomic.LoadUint64(&s.DroppedCritical)
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	DroppedTotal   map[core.Level]uint64
	BlockedTotal   uint64
	ProcessedTotal uint64
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	return Snapshot{
		DroppedTotal: map[core.Level]uint64{
			core.DebugLevel:    s.GetDropped(core.DebugLevel),
			core.InfoLevel:     s.GetDropped(core.InfoLevel),
			core.WarningLevel:  s.GetDropped(core.WarningLevel),
			core.ErrorLevel:    s.GetDropped(core.ErrorLevel),
			core.CriticalLevel: s.GetDropped(core.CriticalLevel),
		},
		BlockedTotal:   s.GetBlocked(),
		ProcessedTotal: s.GetProcessed(),
	}
}
