package schemarpc

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Sink receives published pipeline outcomes.
type Sink func(Outcome)

// SchemaWatcher reruns the pipeline whenever its inputs change and publishes
// only the outcome of the most recent run. A run superseded by a newer
// Update is cancelled and its result dropped.
type SchemaWatcher struct {
	pipeline *Pipeline
	sink     Sink
	logger   *slog.Logger

	// generation is bumped on every accepted Update; a run publishes only
	// if its generation is still current.
	generation atomic.Uint64

	// publishMu orders sink calls so an older run never publishes after a
	// newer one.
	publishMu sync.Mutex

	mu       sync.Mutex
	conn     Connection
	contract ContractInfo
	started  bool
	closed   bool
	cancel   context.CancelFunc
	latest   *Outcome

	wg sync.WaitGroup
}

// NewSchemaWatcher creates a watcher. sink may be nil when only Latest is used.
func NewSchemaWatcher(pipeline *Pipeline, sink Sink, logger *slog.Logger) *SchemaWatcher {
	if sink == nil {
		sink = func(Outcome) {}
	}
	return &SchemaWatcher{
		pipeline: pipeline,
		sink:     sink,
		logger:   logger,
	}
}

// Update sets the watcher's inputs. Identical inputs are ignored; otherwise
// any in-flight run is cancelled and a new one is started. Connections are
// compared with ==, so conn must be of a comparable type.
func (w *SchemaWatcher) Update(conn Connection, contract ContractInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.started && w.conn == conn && w.contract == contract {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.conn = conn
	w.contract = contract
	w.started = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	gen := w.generation.Add(1)
	invocationID := uuid.New().String()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		w.run(ctx, gen, invocationID, conn, contract)
	}()
}

func (w *SchemaWatcher) run(ctx context.Context, gen uint64, invocationID string, conn Connection, contract ContractInfo) {
	logger := w.logger.With("invocation_id", invocationID, "contract", contract.Name, "module_ref", contract.ModuleRef)
	logger.Debug("Resolving contract schema")

	outcome := w.pipeline.Run(ctx, conn, contract)

	w.publishMu.Lock()
	defer w.publishMu.Unlock()

	w.mu.Lock()
	if w.closed || w.generation.Load() != gen {
		w.mu.Unlock()
		logger.Debug("Discarding stale schema outcome", "error", outcome.Err)
		return
	}
	w.latest = &outcome
	w.mu.Unlock()

	if outcome.Err != nil {
		logger.Info("Schema resolution failed", "error", outcome.Err)
	}
	w.sink(outcome)
}

// Latest returns the most recently published outcome.
func (w *SchemaWatcher) Latest() (Outcome, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest == nil {
		return Outcome{}, false
	}
	return *w.latest, true
}

// Close cancels the current run and waits for all runs to return. Later
// calls to Update are ignored. Close must not be called from the sink.
func (w *SchemaWatcher) Close() {
	w.mu.Lock()
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	w.wg.Wait()
}
