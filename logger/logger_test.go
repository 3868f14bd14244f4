package logger

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/handler"
	"github.com/cascadelog/cascade/handler/memoryhandler"
)

func TestGetLoggerIdentity(t *testing.T) {
	r := NewRegistry()
	if r.Logger("app.db") != r.Logger("app.db") {
		t.Fatal("same name produced different loggers")
	}
	if r.Logger("") != r.Root() {
		t.Fatal("empty name is not the root logger")
	}
	if r.Logger("root") != r.Root() {
		t.Fatal(`"root" is not the root logger`)
	}
	if r.Logger("app.db").Parent() != r.Logger("app") {
		t.Fatal("parent pointer does not match ancestor")
	}
	if r.Logger("app").Parent() != r.Root() {
		t.Fatal("top-level logger's parent is not root")
	}
}

func TestGetLoggerConcurrentIdentity(t *testing.T) {
	r := NewRegistry()
	const goroutines = 16
	results := make([]*Logger, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			results[g] = r.Logger("svc.worker.pool")
		}(g)
	}
	wg.Wait()

	for g := 1; g < goroutines; g++ {
		if results[g] != results[0] {
			t.Fatal("concurrent GetLogger returned distinct instances")
		}
	}
}

func TestEagerAncestorCreation(t *testing.T) {
	r := NewRegistry()
	leaf := r.Logger("a.b.c")

	// Setting a level on the middle ancestor must be observed by the
	// leaf even though "a.b" was never requested directly.
	r.Logger("a.b").SetLevel(core.DebugLevel)
	if got := leaf.EffectiveLevel(); got != core.DebugLevel {
		t.Fatalf("effective level = %v, want DEBUG", got)
	}
}

func TestEffectiveLevelInheritance(t *testing.T) {
	r := NewRegistry()
	child := r.Logger("app.db")

	// Nothing set anywhere: root's default applies.
	if got := child.EffectiveLevel(); got != core.WarningLevel {
		t.Fatalf("default effective level = %v, want WARNING", got)
	}

	r.Logger("app").SetLevel(core.InfoLevel)
	if got := child.EffectiveLevel(); got != core.InfoLevel {
		t.Fatalf("after parent SetLevel: %v, want INFO", got)
	}

	child.SetLevel(core.ErrorLevel)
	if got := child.EffectiveLevel(); got != core.ErrorLevel {
		t.Fatalf("explicit level: %v, want ERROR", got)
	}

	child.SetLevel(core.NotSet)
	if got := child.EffectiveLevel(); got != core.InfoLevel {
		t.Fatalf("after clearing: %v, want INFO again", got)
	}
}

func TestLevelGateRunsBeforeFilters(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc")
	l.SetLevel(core.WarningLevel)

	var calls atomic.Int64
	l.AddFilter(core.FilterFunc(func(*core.Record) bool {
		calls.Add(1)
		return true
	}))

	l.Info("suppressed")
	if calls.Load() != 0 {
		t.Fatal("filter ran for a record below the effective level")
	}

	l.Warning("passes")
	if calls.Load() != 1 {
		t.Fatal("filter did not run for an accepted record")
	}
}

func TestDispatchExactOutput(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc")
	l.SetLevel(core.InfoLevel)
	mem := memoryhandler.New()
	l.AddHandler(mem)

	l.Info("hello")
	if got := mem.Text(); got != "INFO:svc:hello\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestPropagation(t *testing.T) {
	r := NewRegistry()
	rootMem := memoryhandler.New()
	r.Root().AddHandler(rootMem)

	child := r.Logger("app.db")
	child.SetLevel(core.InfoLevel)
	childMem := memoryhandler.New()
	child.AddHandler(childMem)

	child.Info("both")
	if childMem.Len() != 1 || rootMem.Len() != 1 {
		t.Fatalf("child=%d root=%d, want 1/1", childMem.Len(), rootMem.Len())
	}

	// Ancestor handlers see the record even when the ancestor's own
	// level would reject it: only the originating logger gates.
	rec := rootMem.Records()[0]
	if rec.Level != core.InfoLevel || rec.Name != "app.db" {
		t.Fatalf("propagated record = %+v", rec)
	}

	child.SetPropagate(false)
	child.Info("child only")
	if childMem.Len() != 2 || rootMem.Len() != 1 {
		t.Fatalf("after SetPropagate(false): child=%d root=%d", childMem.Len(), rootMem.Len())
	}
}

func TestLoggerFilterBlocksAncestors(t *testing.T) {
	r := NewRegistry()
	rootMem := memoryhandler.New()
	r.Root().AddHandler(rootMem)

	child := r.Logger("svc")
	child.SetLevel(core.InfoLevel)
	child.AddFilter(core.FilterFunc(func(*core.Record) bool { return false }))

	child.Info("dropped everywhere")
	if rootMem.Len() != 0 {
		t.Fatal("logger filter did not suppress ancestor delivery")
	}
}

func TestRemoveFilterFunc(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc")
	l.SetLevel(core.InfoLevel)
	mem := memoryhandler.New()
	l.AddHandler(mem)

	reject := core.FilterFunc(func(*core.Record) bool { return false })
	l.AddFilter(reject)
	l.Info("suppressed")
	if mem.Len() != 0 {
		t.Fatal("filter did not reject")
	}

	// Removing a func-typed filter must not panic and must restore
	// delivery.
	l.RemoveFilter(reject)
	l.Info("delivered")
	if mem.Len() != 1 {
		t.Fatal("record not delivered after filter removal")
	}
}

func TestHandlerFilterIsolation(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc")
	l.SetLevel(core.InfoLevel)

	filtered := memoryhandler.New()
	filtered.AddFilter(core.FilterFunc(func(*core.Record) bool { return false }))
	open := memoryhandler.New()
	l.AddHandler(filtered)
	l.AddHandler(open)

	l.Info("one")
	if filtered.Len() != 0 {
		t.Fatal("handler filter did not reject")
	}
	if open.Len() != 1 {
		t.Fatal("sibling handler was affected by another handler's filter")
	}
}

func TestSiblingIsolation(t *testing.T) {
	r := NewRegistry()
	a := r.Logger("svc.a")
	b := r.Logger("svc.b")
	a.SetLevel(core.InfoLevel)
	b.SetLevel(core.InfoLevel)

	memA := memoryhandler.New()
	a.AddHandler(memA)

	b.Info("for b only")
	if memA.Len() != 0 {
		t.Fatal("record leaked to a sibling's handler")
	}
}

func TestRemoveHandler(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc")
	l.SetLevel(core.InfoLevel)
	mem := memoryhandler.New()
	l.AddHandler(mem)
	l.RemoveHandler(mem)

	l.Info("nobody listens")
	if mem.Len() != 0 {
		t.Fatal("removed handler still received records")
	}
}

func TestCallerCapture(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc")
	l.SetLevel(core.InfoLevel)
	mem := memoryhandler.New()
	l.AddHandler(mem)

	l.Info("where am I")
	rec := mem.Records()[0]
	if rec.Caller.ShortFile != "logger_test.go" {
		t.Fatalf("caller file = %q, want logger_test.go", rec.Caller.ShortFile)
	}
	if rec.Caller.Line == 0 {
		t.Fatal("caller line not captured")
	}
}

func TestLogWithOptions(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc")
	l.SetLevel(core.InfoLevel)
	mem := memoryhandler.New()
	l.AddHandler(mem)

	boom := errTest("boom")
	l.LogWith(core.ErrorLevel, Options{
		Extra: []core.Field{core.String("user", "ada")},
		Err:   boom,
		Stack: true,
	}, "failed for %s", "ada")

	rec := mem.Records()[0]
	if rec.Message() != "failed for ada" {
		t.Fatalf("message = %q", rec.Message())
	}
	if f, ok := rec.Lookup("user"); !ok || f.StringValue() != "ada" {
		t.Fatalf("extra field = %+v ok=%v", f, ok)
	}
	if rec.Err != boom {
		t.Fatal("error not attached")
	}
	if rec.Stack == "" {
		t.Fatal("stack not captured")
	}
}

func TestException(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc")
	mem := memoryhandler.New()
	l.AddHandler(mem)

	l.Exception(errTest("disk full"), "write failed")
	rec := mem.Records()[0]
	if rec.Level != core.ErrorLevel {
		t.Fatalf("level = %v", rec.Level)
	}
	if rec.Err == nil || rec.Stack == "" {
		t.Fatal("Exception must attach the error and a stack")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

type countingHandler struct {
	handler.Base
	flushes atomic.Int64
	closes  atomic.Int64
}

func newCountingHandler() *countingHandler {
	return &countingHandler{}
}

func (h *countingHandler) Emit(*core.Record) {}
func (h *countingHandler) Flush() error      { h.flushes.Add(1); return nil }
func (h *countingHandler) Close() error      { h.closes.Add(1); return nil }

func TestFlushAllAndShutdownDedupe(t *testing.T) {
	r := NewRegistry()
	shared := newCountingHandler()

	// The same handler attached in three places must be flushed and
	// closed exactly once.
	r.Root().AddHandler(shared)
	r.Logger("a").AddHandler(shared)
	r.Logger("a.b").AddHandler(shared)

	solo := newCountingHandler()
	r.Logger("c").AddHandler(solo)

	if err := r.FlushAll(); err != nil {
		t.Fatal(err)
	}
	if shared.flushes.Load() != 1 || solo.flushes.Load() != 1 {
		t.Fatalf("flushes: shared=%d solo=%d", shared.flushes.Load(), solo.flushes.Load())
	}

	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if shared.closes.Load() != 1 || solo.closes.Load() != 1 {
		t.Fatalf("closes: shared=%d solo=%d", shared.closes.Load(), solo.closes.Load())
	}
}

func TestConcurrentLoggingAndLevelChanges(t *testing.T) {
	r := NewRegistry()
	l := r.Logger("svc.hot")
	l.SetLevel(core.InfoLevel)
	mem := memoryhandler.New()
	l.AddHandler(mem)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				l.Info("message %d", i)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			r.Logger("svc").SetLevel(core.DebugLevel)
			r.Logger("svc").SetLevel(core.NotSet)
		}
	}()
	wg.Wait()

	if got := mem.Len(); got != 8*200 {
		t.Fatalf("captured %d records, want %d", got, 8*200)
	}
}

func TestPackageFacade(t *testing.T) {
	l := GetLogger("facade.test")
	if l != GetLogger("facade.test") {
		t.Fatal("package facade returned distinct instances")
	}
	if GetLogger("") != Root() {
		t.Fatal("empty name is not the root")
	}

	mem := memoryhandler.New()
	l.AddHandler(mem)
	l.SetPropagate(false)
	defer l.RemoveHandler(mem)

	l.SetLevel(InfoLevel)
	l.Info("via facade")
	if mem.Len() != 1 {
		t.Fatalf("captured %d records, want 1", mem.Len())
	}
	if err := FlushAll(); err != nil {
		t.Fatal(err)
	}
}
