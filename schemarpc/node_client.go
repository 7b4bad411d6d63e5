package schemarpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aesirxio/concordium-dapp-libraries/internal/nodeapi"
	"google.golang.org/grpc"
)

// NodeClient queries module sources from a Concordium node over the v2
// gRPC API.
type NodeClient struct {
	conn    grpc.ClientConnInterface
	block   BlockSelector
	timeout time.Duration
	logger  *slog.Logger
}

var (
	_ ModuleSourceClient = (*NodeClient)(nil)
	_ Connection         = (*NodeClient)(nil)
)

// NewNodeClient creates a NodeClient on an established connection. A zero
// timeout leaves deadlines to the caller's context.
func NewNodeClient(conn grpc.ClientConnInterface, block BlockSelector, timeout time.Duration, logger *slog.Logger) *NodeClient {
	return &NodeClient{
		conn:    conn,
		block:   block,
		timeout: timeout,
		logger:  logger,
	}
}

// GetModuleSource fetches the module and frames it with the module source
// header.
func (c *NodeClient) GetModuleSource(ctx context.Context, ref ModuleReference) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := nodeapi.NewModuleSourceRequest(ref[:], c.block.block)
	resp := nodeapi.NewVersionedModuleSourceMessage()
	if err := c.conn.Invoke(ctx, nodeapi.GetModuleSourceMethod, req, resp); err != nil {
		return nil, err
	}
	version, wasm, err := nodeapi.ParseVersionedModuleSource(resp)
	if err != nil {
		return nil, fmt.Errorf("invalid GetModuleSource response: %w", err)
	}
	c.logger.Debug("Received module source", "module_ref", ref.String(), "version", version, "bytes", len(wasm), "block", c.block.String())
	return FrameModuleSource(version, wasm), nil
}

// WithRPCClient lends the client itself.
func (c *NodeClient) WithRPCClient(_ context.Context, fn func(ModuleSourceClient) error) error {
	return fn(c)
}
