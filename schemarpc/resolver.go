package schemarpc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tetratelabs/wazero"
)

// SchemaResolver bundles a node connection, a compiler and a pipeline.
type SchemaResolver struct {
	conn     *Client
	compiler *WazeroCompiler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewSchemaResolver connects to the node described by cfg and prepares a
// wazero compiler.
func NewSchemaResolver(ctx context.Context, cfg Config) (*SchemaResolver, error) {
	cfg = cfg.withDefaults()
	conn, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	compiler := NewWazeroCompiler(ctx, wazero.NewRuntimeConfig())
	return &SchemaResolver{
		conn:     conn,
		compiler: compiler,
		pipeline: NewPipeline(compiler, cfg.Logger),
		logger:   cfg.Logger,
	}, nil
}

// Connection returns the resolver's node connection.
func (r *SchemaResolver) Connection() Connection {
	return r.conn
}

// Resolve runs the pipeline once for contract.
func (r *SchemaResolver) Resolve(ctx context.Context, contract ContractInfo) Outcome {
	return r.pipeline.Run(ctx, r.conn, contract)
}

// Watch returns a SchemaWatcher publishing to sink. Callers drive it with
// Update and must Close it before closing the resolver.
func (r *SchemaResolver) Watch(sink Sink) *SchemaWatcher {
	return NewSchemaWatcher(r.pipeline, sink, r.logger)
}

// Close releases the connection and the compiler runtime.
func (r *SchemaResolver) Close(ctx context.Context) error {
	return errors.Join(r.conn.Close(), r.compiler.Close(ctx))
}
