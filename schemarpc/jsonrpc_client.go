package schemarpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const getModuleSourceMethod = "getModuleSource"

// JsonRpcClient queries module sources through a node's JSON-RPC proxy.
type JsonRpcClient struct {
	client  *rpc.Client
	block   BlockSelector
	timeout time.Duration
	logger  *slog.Logger
}

var (
	_ ModuleSourceClient = (*JsonRpcClient)(nil)
	_ Connection         = (*JsonRpcClient)(nil)
)

type moduleSourceParams struct {
	ModuleReference string `json:"moduleReference"`
	BlockHash       string `json:"blockHash,omitempty"`
}

// DialJsonRpc connects to the JSON-RPC endpoint at url. httpClient may be
// nil to use http.DefaultClient.
func DialJsonRpc(ctx context.Context, url string, httpClient *http.Client, block BlockSelector, timeout time.Duration, logger *slog.Logger) (*JsonRpcClient, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to dial JSON-RPC endpoint: %w", err)
	}
	return NewJsonRpcClient(client, block, timeout, logger), nil
}

// NewJsonRpcClient wraps an existing go-ethereum rpc client.
func NewJsonRpcClient(client *rpc.Client, block BlockSelector, timeout time.Duration, logger *slog.Logger) *JsonRpcClient {
	return &JsonRpcClient{
		client:  client,
		block:   block,
		timeout: timeout,
		logger:  logger,
	}
}

// GetModuleSource calls getModuleSource and decodes the base64 result. A
// null result yields an empty source. Only given block hashes are sent; the
// proxy answers other selections at the last finalized block.
func (c *JsonRpcClient) GetModuleSource(ctx context.Context, ref ModuleReference) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := moduleSourceParams{
		ModuleReference: ref.String(),
		BlockHash:       c.block.Hash(),
	}
	var encoded *string
	if err := c.client.CallContext(ctx, &encoded, getModuleSourceMethod, params); err != nil {
		return nil, err
	}
	if encoded == nil {
		c.logger.Debug("Node returned no module source", "module_ref", ref.String())
		return nil, nil
	}
	source, err := base64.StdEncoding.DecodeString(*encoded)
	if err != nil {
		return nil, fmt.Errorf("module source is not valid base64: %w", err)
	}
	c.logger.Debug("Received module source", "module_ref", ref.String(), "bytes", len(source))
	return source, nil
}

// WithRPCClient lends the client itself.
func (c *JsonRpcClient) WithRPCClient(_ context.Context, fn func(ModuleSourceClient) error) error {
	return fn(c)
}

// Close closes the underlying rpc client.
func (c *JsonRpcClient) Close() {
	c.client.Close()
}
