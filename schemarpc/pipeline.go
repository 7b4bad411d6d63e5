// Package schemarpc fetches a contract module from a Concordium node,
// compiles it and extracts the schema embedded in its custom sections.
package schemarpc

import (
	"context"
	"log/slog"
)

// Outcome is the result of one pipeline run. Schema and Err are both nil
// when the module carries no schema section.
type Outcome struct {
	Schema *SchemaRpcResult
	Err    error
}

// Ok reports whether the run succeeded.
func (o Outcome) Ok() bool {
	return o.Err == nil
}

// ErrorMessage returns the failure text, or "" on success.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Pipeline fetches a contract's module source, compiles it and extracts the
// embedded schema.
type Pipeline struct {
	compiler ModuleCompiler
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline compiling with compiler.
func NewPipeline(compiler ModuleCompiler, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		compiler: compiler,
		logger:   logger,
	}
}

// Run executes one fetch, compile and extract sequence. The first failing
// step ends the run.
func (p *Pipeline) Run(ctx context.Context, conn Connection, contract ContractInfo) Outcome {
	ref, err := ParseModuleReference(contract.ModuleRef)
	if err != nil {
		return Outcome{Err: newError(InvalidReferenceError, err)}
	}
	schema, err := p.runForReference(ctx, conn, ref)
	return Outcome{Schema: schema, Err: err}
}

func (p *Pipeline) runForReference(ctx context.Context, conn Connection, ref ModuleReference) (*SchemaRpcResult, error) {
	source, err := FetchModuleSource(ctx, conn, ref, p.logger)
	if err != nil {
		return nil, err
	}
	m, err := CompileModuleSource(ctx, p.compiler, source)
	if err != nil {
		p.logger.Debug("Module source rejected", "module_ref", ref.String(), "error", err)
		return nil, err
	}
	defer func() {
		if err := m.Close(context.Background()); err != nil {
			p.logger.Warn("Failed to close compiled module", "module_ref", ref.String(), "error", err)
		}
	}()
	schema, err := FindSchema(m)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		p.logger.Debug("Module has no schema section", "module_ref", ref.String())
	} else {
		p.logger.Debug("Extracted schema", "module_ref", ref.String(), "section", schema.SectionName)
	}
	return schema, nil
}
