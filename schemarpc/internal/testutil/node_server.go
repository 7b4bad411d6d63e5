package testutil

import (
	"context"
	"net"
	"testing"

	"github.com/aesirxio/concordium-dapp-libraries/internal/nodeapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

// StartNodeListener serves srv on an in-memory listener that is shut down
// when the test ends.
func StartNodeListener(t *testing.T, srv nodeapi.ModuleSourceServer, opts ...grpc.ServerOption) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	server := grpc.NewServer(opts...)
	nodeapi.RegisterQueriesServer(server, srv)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)
	return lis
}

// StartNodeServer serves srv in memory and returns a plaintext client
// connection to it.
func StartNodeServer(t *testing.T, srv nodeapi.ModuleSourceServer, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := StartNodeListener(t, srv, opts...)
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Failed to dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
