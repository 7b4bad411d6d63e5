package schemarpc

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aesirxio/concordium-dapp-libraries/schemarpc/internal/testutil"
)

const testModuleRef = "5d99b6dfa7ba9dc0cac8626754985500d51d6d06829210748b3fd24fa30cde4a"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContract(ref string) ContractInfo {
	return ContractInfo{Name: "cis2_multi", Index: 4184, Subindex: 0, ModuleRef: ref}
}

// moduleSourceClientStub serves one fixed source and is its own Connection.
type moduleSourceClientStub struct {
	source []byte
	err    error
	// gate, when set, is waited on before answering.
	gate  <-chan struct{}
	calls atomic.Int32

	mu      sync.Mutex
	lastRef ModuleReference
}

func (s *moduleSourceClientStub) GetModuleSource(ctx context.Context, ref ModuleReference) ([]byte, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastRef = ref
	s.mu.Unlock()
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.source, s.err
}

func (s *moduleSourceClientStub) WithRPCClient(_ context.Context, fn func(ModuleSourceClient) error) error {
	return fn(s)
}

// countingCompiler records how often Compile is reached.
type countingCompiler struct {
	inner ModuleCompiler
	calls atomic.Int32
}

func (c *countingCompiler) Compile(ctx context.Context, wasm []byte) (CompiledModule, error) {
	c.calls.Add(1)
	return c.inner.Compile(ctx, wasm)
}

// fakeModule answers CustomSections from a fixed list.
type fakeModule struct {
	sections []testutil.Section
	closed   bool
}

func (m *fakeModule) CustomSections(name string) [][]byte {
	var out [][]byte
	for _, s := range m.sections {
		if s.Name == name {
			out = append(out, s.Data)
		}
	}
	return out
}

func (m *fakeModule) Close(context.Context) error {
	m.closed = true
	return nil
}

func newTestCompiler(t *testing.T) *WazeroCompiler {
	t.Helper()
	ctx := context.Background()
	c := NewWazeroCompiler(ctx, nil)
	t.Cleanup(func() { _ = c.Close(ctx) })
	return c
}
