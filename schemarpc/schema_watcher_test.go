package schemarpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aesirxio/concordium-dapp-libraries/schemarpc/internal/testutil"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
	notify   chan struct{}
}

func newOutcomeRecorder() *outcomeRecorder {
	return &outcomeRecorder{notify: make(chan struct{}, 16)}
}

func (r *outcomeRecorder) sink(o Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *outcomeRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for outcome")
	}
}

func (r *outcomeRecorder) snapshot() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

func schemaSource(data byte) []byte {
	return testutil.Source(testutil.ModuleWithCustomSections(
		testutil.Section{Name: "concordium-schema-v1", Data: []byte{data}},
	))
}

func TestSchemaWatcher_PublishesOutcome(t *testing.T) {
	rec := newOutcomeRecorder()
	w := NewSchemaWatcher(NewPipeline(newTestCompiler(t), discardLogger()), rec.sink, discardLogger())
	defer w.Close()

	conn := &moduleSourceClientStub{source: schemaSource(1)}
	w.Update(conn, testContract(testModuleRef))
	rec.wait(t)

	latest, ok := w.Latest()
	if !ok {
		t.Fatal("Expected a published outcome")
	}
	if latest.Schema == nil || latest.Schema.Schema != "AQ==" {
		t.Errorf("Unexpected outcome %+v", latest)
	}
}

func TestSchemaWatcher_IdenticalInputsDoNotRerun(t *testing.T) {
	rec := newOutcomeRecorder()
	w := NewSchemaWatcher(NewPipeline(newTestCompiler(t), discardLogger()), rec.sink, discardLogger())
	defer w.Close()

	conn := &moduleSourceClientStub{source: schemaSource(1)}
	contract := testContract(testModuleRef)
	w.Update(conn, contract)
	rec.wait(t)
	w.Update(conn, contract)
	w.Close()

	if calls := conn.calls.Load(); calls != 1 {
		t.Errorf("Expected one fetch, got %d", calls)
	}
	if n := len(rec.snapshot()); n != 1 {
		t.Errorf("Expected one published outcome, got %d", n)
	}
}

func TestSchemaWatcher_ChangedConnectionReruns(t *testing.T) {
	rec := newOutcomeRecorder()
	w := NewSchemaWatcher(NewPipeline(newTestCompiler(t), discardLogger()), rec.sink, discardLogger())
	defer w.Close()

	contract := testContract(testModuleRef)
	w.Update(&moduleSourceClientStub{source: schemaSource(1)}, contract)
	rec.wait(t)
	w.Update(&moduleSourceClientStub{err: errors.New("disconnected")}, contract)
	rec.wait(t)

	latest, _ := w.Latest()
	if !errors.Is(latest.Err, ErrTransport) {
		t.Errorf("Expected transport error from second connection, got %v", latest.Err)
	}
}

func TestSchemaWatcher_StaleRunIsNotPublished(t *testing.T) {
	rec := newOutcomeRecorder()
	w := NewSchemaWatcher(NewPipeline(newTestCompiler(t), discardLogger()), rec.sink, discardLogger())
	defer w.Close()

	// The first connection ignores cancellation so its run completes after
	// the second one.
	release := make(chan struct{})
	slow := &ignoringCancelConn{release: release, source: schemaSource(1), started: make(chan struct{})}
	fast := &moduleSourceClientStub{source: schemaSource(2)}
	contract := testContract(testModuleRef)

	w.Update(slow, contract)
	<-slow.started
	w.Update(fast, contract)
	rec.wait(t)

	close(release)
	w.Close()

	outcomes := rec.snapshot()
	if len(outcomes) != 1 {
		t.Fatalf("Expected only the newest outcome, got %d", len(outcomes))
	}
	if outcomes[0].Schema == nil || outcomes[0].Schema.Schema != "Ag==" {
		t.Errorf("Expected newest schema, got %+v", outcomes[0])
	}
	latest, _ := w.Latest()
	if latest.Schema.Schema != "Ag==" {
		t.Errorf("Expected latest to stay on newest outcome, got %+v", latest.Schema)
	}
}

func TestSchemaWatcher_UpdateCancelsInFlightRun(t *testing.T) {
	rec := newOutcomeRecorder()
	w := NewSchemaWatcher(NewPipeline(newTestCompiler(t), discardLogger()), rec.sink, discardLogger())
	defer w.Close()

	blocked := &moduleSourceClientStub{gate: make(chan struct{}), source: schemaSource(1)}
	w.Update(blocked, testContract(testModuleRef))
	for blocked.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	w.Update(&moduleSourceClientStub{source: schemaSource(3)}, testContract(testModuleRef))
	rec.wait(t)
	w.Close()

	outcomes := rec.snapshot()
	if len(outcomes) != 1 || outcomes[0].Err != nil {
		t.Fatalf("Expected a single successful outcome, got %+v", outcomes)
	}
}

func TestSchemaWatcher_UpdateAfterCloseIsIgnored(t *testing.T) {
	w := NewSchemaWatcher(NewPipeline(newTestCompiler(t), discardLogger()), nil, discardLogger())
	w.Close()

	conn := &moduleSourceClientStub{source: schemaSource(1)}
	w.Update(conn, testContract(testModuleRef))
	w.Close()

	if conn.calls.Load() != 0 {
		t.Error("Expected no run after Close")
	}
	if _, ok := w.Latest(); ok {
		t.Error("Expected no outcome after Close")
	}
}

// ignoringCancelConn blocks until release is closed, regardless of ctx.
type ignoringCancelConn struct {
	release chan struct{}
	source  []byte
	started chan struct{}
}

func (c *ignoringCancelConn) GetModuleSource(context.Context, ModuleReference) ([]byte, error) {
	close(c.started)
	<-c.release
	return c.source, nil
}

func (c *ignoringCancelConn) WithRPCClient(_ context.Context, fn func(ModuleSourceClient) error) error {
	return fn(c)
}
