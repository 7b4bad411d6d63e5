package schemarpc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Transports accepted in Config.Transport.
const (
	TransportGRPC    = "grpc"
	TransportJSONRPC = "jsonrpc"
)

const (
	defaultNodeAddress           = "grpc.testnet.concordium.com:20000"
	defaultRequestTimeoutSeconds = 30
)

// ConnFactory is an advanced/testing hook allowing callers to customize how
// gRPC connections are created. It receives the computed target and the
// default DialOptions (credentials and the token interceptor when an access
// token is configured).
type ConnFactory func(ctx context.Context, target string, defaultOpts []grpc.DialOption) (grpc.ClientConnInterface, error)

// DialHooks adjusts networking before connections are made: the gRPC target
// and options, and the HTTP round tripper used for JSON-RPC.
type DialHooks interface {
	GRPCDial(target string, opts []grpc.DialOption) (string, []grpc.DialOption)
	HTTPTransport(base http.RoundTripper) http.RoundTripper
}

type noDialHooks struct{}

func (noDialHooks) GRPCDial(target string, opts []grpc.DialOption) (string, []grpc.DialOption) {
	return target, opts
}

func (noDialHooks) HTTPTransport(base http.RoundTripper) http.RoundTripper {
	return base
}

// Config configures the node connection used to fetch module sources.
type Config struct {
	// Transport is TransportGRPC (default) or TransportJSONRPC.
	Transport string
	// NodeAddress is the gRPC target, host:port.
	NodeAddress string
	// JSONRPCURL is required for TransportJSONRPC.
	JSONRPCURL string
	// AccessToken is sent to the node as "authentication" metadata when set.
	AccessToken string
	// Insecure disables TLS for gRPC.
	Insecure bool
	// Block selects where modules are looked up. Zero value is the last
	// finalized block.
	Block          BlockSelector
	RequestTimeout time.Duration
	Logger         *slog.Logger
	ConnFactory    ConnFactory
	DialHooks      DialHooks
}

// ConfigFromEnv builds a Config from SCHEMARPC_* environment variables.
func ConfigFromEnv() (Config, error) {
	block, err := ParseBlockSelector(os.Getenv("SCHEMARPC_BLOCK_HASH"))
	if err != nil {
		return Config{}, fmt.Errorf("SCHEMARPC_BLOCK_HASH: %w", err)
	}
	return Config{
		Transport:      strings.ToLower(getenv("SCHEMARPC_TRANSPORT", TransportGRPC)),
		NodeAddress:    getenv("SCHEMARPC_NODE_ADDRESS", defaultNodeAddress),
		JSONRPCURL:     os.Getenv("SCHEMARPC_JSONRPC_URL"),
		AccessToken:    os.Getenv("SCHEMARPC_ACCESS_TOKEN"),
		Insecure:       getenvBool("SCHEMARPC_INSECURE", false),
		Block:          block,
		RequestTimeout: time.Duration(getenvInt("SCHEMARPC_REQUEST_TIMEOUT_SECONDS", defaultRequestTimeoutSeconds)) * time.Second,
	}, nil
}

func (c Config) withDefaults() Config {
	if c.Transport == "" {
		c.Transport = TransportGRPC
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if c.DialHooks == nil {
		c.DialHooks = noDialHooks{}
	}
	if c.ConnFactory == nil {
		c.ConnFactory = func(ctx context.Context, target string, defaultOpts []grpc.DialOption) (grpc.ClientConnInterface, error) {
			return grpc.NewClient(target, defaultOpts...)
		}
	}
	return c
}

// Client is a Connection backed by a node transport.
type Client struct {
	Connection
	close func() error
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// NewConnection creates a node connection for cfg.
func NewConnection(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	switch cfg.Transport {
	case TransportGRPC:
		return newGrpcConnection(ctx, cfg)
	case TransportJSONRPC:
		return newJsonRpcConnection(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func newGrpcConnection(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.NodeAddress == "" {
		return nil, fmt.Errorf("NodeAddress is required")
	}
	creds := credentials.NewTLS(nil)
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
	}
	if cfg.AccessToken != "" {
		auth := NewTokenAuthInterceptor(cfg.AccessToken)
		opts = append(opts,
			grpc.WithUnaryInterceptor(auth.UnaryClientInterceptor()),
			grpc.WithStreamInterceptor(auth.StreamClientInterceptor()),
		)
	}
	target, opts := cfg.DialHooks.GRPCDial(cfg.NodeAddress, opts)

	conn, err := cfg.ConnFactory(ctx, target, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create node connection: %w", err)
	}
	client := &Client{Connection: NewNodeClient(conn, cfg.Block, cfg.RequestTimeout, cfg.Logger)}
	if closer, ok := conn.(interface{ Close() error }); ok {
		client.close = closer.Close
	}
	cfg.Logger.Info("Created node connection", "transport", TransportGRPC, "target", target, "block", cfg.Block.String())
	return client, nil
}

func newJsonRpcConnection(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.JSONRPCURL == "" {
		return nil, fmt.Errorf("JSONRPCURL is required")
	}
	httpClient := &http.Client{
		Transport: cfg.DialHooks.HTTPTransport(http.DefaultTransport),
	}
	rpcClient, err := DialJsonRpc(ctx, cfg.JSONRPCURL, httpClient, cfg.Block, cfg.RequestTimeout, cfg.Logger)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Info("Created node connection", "transport", TransportJSONRPC, "url", cfg.JSONRPCURL, "block", cfg.Block.String())
	return &Client{
		Connection: rpcClient,
		close: func() error {
			rpcClient.Close()
			return nil
		},
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(key))); v != "" {
		switch v {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
