package handler

import (
	"strings"
	"testing"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/formatter"
)

func TestBase_LevelGate(t *testing.T) {
	var b Base
	b.SetLevel(core.WarningLevel)

	if b.Accepts(core.NewRecord("svc", core.InfoLevel, 1, "m", nil)) {
		t.Error("INFO accepted below WARNING threshold")
	}
	if !b.Accepts(core.NewRecord("svc", core.WarningLevel, 1, "m", nil)) {
		t.Error("WARNING rejected at WARNING threshold")
	}
	if !b.Accepts(core.NewRecord("svc", core.ErrorLevel, 1, "m", nil)) {
		t.Error("ERROR rejected at WARNING threshold")
	}
}

func TestBase_Filters(t *testing.T) {
	var b Base
	noDebugDB := core.FilterFunc(func(r *core.Record) bool {
		return !strings.HasPrefix(r.Name, "db.")
	})
	b.AddFilter(noDebugDB)

	if b.Accepts(core.NewRecord("db.conn", core.ErrorLevel, 1, "m", nil)) {
		t.Error("filtered record accepted")
	}
	if !b.Accepts(core.NewRecord("api", core.ErrorLevel, 1, "m", nil)) {
		t.Error("unfiltered record rejected")
	}

	b.RemoveFilter(noDebugDB)
	if !b.Accepts(core.NewRecord("db.conn", core.ErrorLevel, 1, "m", nil)) {
		t.Error("record rejected after filter removal")
	}
}

func TestBase_FormatRecordDefault(t *testing.T) {
	var b Base
	rec := core.NewRecord("svc", core.InfoLevel, 1, "hello", nil)

	if got := string(b.FormatRecord(rec)); got != "INFO:svc:hello" {
		t.Errorf("default format = %q, want INFO:svc:hello", got)
	}

	f, err := formatter.New("<%(message)s>", formatter.PercentStyle, "")
	if err != nil {
		t.Fatal(err)
	}
	b.SetFormatter(f)
	if got := string(b.FormatRecord(rec)); got != "<hello>" {
		t.Errorf("custom format = %q, want <hello>", got)
	}
}

func TestBase_RemoveFilterFunc(t *testing.T) {
	var b Base
	rejectDB := core.FilterFunc(func(r *core.Record) bool {
		return !strings.HasPrefix(r.Name, "db.")
	})
	rejectAPI := core.FilterFunc(func(r *core.Record) bool {
		return !strings.HasPrefix(r.Name, "api.")
	})
	b.AddFilter(rejectDB)
	b.AddFilter(rejectAPI)

	// Removing one func filter must not panic and must leave the
	// other one in place.
	b.RemoveFilter(rejectDB)
	if !b.Accepts(core.NewRecord("db.conn", core.ErrorLevel, 1, "m", nil)) {
		t.Error("removed filter still rejecting")
	}
	if b.Accepts(core.NewRecord("api.auth", core.ErrorLevel, 1, "m", nil)) {
		t.Error("remaining filter no longer rejecting")
	}
}

func TestBase_RemoveFilterStruct(t *testing.T) {
	var b Base
	f := core.NameFilter{Name: "svc"}
	b.AddFilter(f)
	b.RemoveFilter(core.NameFilter{Name: "svc"})
	if !b.Accepts(core.NewRecord("other", core.ErrorLevel, 1, "m", nil)) {
		t.Error("value-typed filter not removed by an equal value")
	}
}

func TestBase_FlushLevelDefault(t *testing.T) {
	var b Base
	if got := b.FlushLevel(); got != core.ErrorLevel {
		t.Errorf("zero-value flush level = %v, want ERROR", got)
	}
	b.SetFlushLevel(core.CriticalLevel)
	if got := b.FlushLevel(); got != core.CriticalLevel {
		t.Errorf("flush level = %v, want CRITICAL", got)
	}
	b.SetFlushLevel(core.NotSet)
	if got := b.FlushLevel(); got != core.NotSet {
		t.Errorf("flush level = %v, want NOTSET", got)
	}
}

func TestStats_Counters(t *testing.T) {
	s := NewStats()

	s.IncrementDropped(core.DebugLevel)
	s.IncrementDropped(core.ErrorLevel)
	s.IncrementDropped(core.ErrorLevel)
	s.IncrementDropped(core.CriticalLevel)
	s.IncrementBlocked()
	s.IncrementProcessed()

	if got := s.GetDropped(core.ErrorLevel); got != 2 {
		t.Errorf("GetDropped(ERROR) = %d, want 2", got)
	}
	if got := s.GetTotalDropped(); got != 4 {
		t.Errorf("GetTotalDropped() = %d, want 4", got)
	}
	if s.GetBlocked() != 1 || s.GetProcessed() != 1 {
		t.Errorf("blocked/processed = %d/%d, want 1/1", s.GetBlocked(), s.GetProcessed())
	}

	snap := s.GetSnapshot()
	if snap.DroppedTotal[core.ErrorLevel] != 2 || snap.ProcessedTotal != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestOverflowPolicy_String(t *testing.T) {
	tests := []struct {
		policy OverflowPolicy
		want   string
	}{
		{DropNewest, "DropNewest"},
		{DropOldest, "DropOldest"},
		{Block, "Block"},
		{OverflowPolicy(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.policy.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
