package schemarpc

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
)

// CompiledModule is a compiled WebAssembly module that can be queried for
// custom sections.
type CompiledModule interface {
	// CustomSections returns the contents of every custom section called name,
	// in binary order.
	CustomSections(name string) [][]byte
	Close(ctx context.Context) error
}

// ModuleCompiler compiles a WebAssembly binary.
type ModuleCompiler interface {
	Compile(ctx context.Context, wasm []byte) (CompiledModule, error)
}

// CompileModuleSource strips the module source header and compiles the
// remaining payload.
func CompileModuleSource(ctx context.Context, compiler ModuleCompiler, source []byte) (CompiledModule, error) {
	if len(source) < ModuleSourceHeaderSize {
		return nil, &Error{Kind: MalformedModuleError, Message: "module source is empty"}
	}
	m, err := compiler.Compile(ctx, source[ModuleSourceHeaderSize:])
	if err != nil {
		if KindOf(err) == CompileError {
			return nil, err
		}
		return nil, newError(CompileError, err)
	}
	return m, nil
}

// WazeroCompiler validates and compiles modules with a wazero runtime.
// Custom sections are read from the binary before compilation and never
// reach the runtime, so errors in their contents (a malformed or repeated
// "name" section) do not fail the compile.
type WazeroCompiler struct {
	runtime wazero.Runtime
}

var _ ModuleCompiler = (*WazeroCompiler)(nil)

// NewWazeroCompiler creates a compiler backed by a new wazero runtime. A nil
// config selects wazero's default.
func NewWazeroCompiler(ctx context.Context, config wazero.RuntimeConfig) *WazeroCompiler {
	if config == nil {
		config = wazero.NewRuntimeConfig()
	}
	return &WazeroCompiler{
		runtime: wazero.NewRuntimeWithConfig(ctx, config),
	}
}

// Compile compiles wasm. Panics raised by the runtime are returned as a
// CompileError.
func (c *WazeroCompiler) Compile(ctx context.Context, wasm []byte) (m CompiledModule, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = &Error{Kind: CompileError, Message: fmt.Sprintf("compiler panicked: %v", rec)}
		}
	}()
	stripped, sections, err := splitCustomSections(wasm)
	if err != nil {
		return nil, newError(CompileError, err)
	}
	compiled, err := c.runtime.CompileModule(ctx, stripped)
	if err != nil {
		return nil, newError(CompileError, err)
	}
	return &wazeroModule{compiled: compiled, sections: sections}, nil
}

// Close releases the runtime and every module compiled by it.
func (c *WazeroCompiler) Close(ctx context.Context) error {
	return c.runtime.Close(ctx)
}

type wazeroModule struct {
	compiled wazero.CompiledModule
	sections []customSection
}

func (m *wazeroModule) CustomSections(name string) [][]byte {
	var out [][]byte
	for _, s := range m.sections {
		if s.name == name {
			out = append(out, s.data)
		}
	}
	return out
}

func (m *wazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
