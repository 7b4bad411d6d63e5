package schemarpc

import (
	"context"
	"encoding/binary"
	"log/slog"

	"google.golang.org/grpc/status"
)

// ModuleSourceHeaderSize is the length of the header preceding the
// WebAssembly payload in a module source.
const ModuleSourceHeaderSize = 12

// ModuleSourceClient is the node capability the pipeline needs.
type ModuleSourceClient interface {
	// GetModuleSource returns the module source: a ModuleSourceHeaderSize
	// header followed by the WebAssembly binary.
	GetModuleSource(ctx context.Context, ref ModuleReference) ([]byte, error)
}

// Connection lends a ModuleSourceClient for the duration of fn.
type Connection interface {
	WithRPCClient(ctx context.Context, fn func(ModuleSourceClient) error) error
}

// FrameModuleSource prefixes wasm with the module source header: the module
// version and payload length as big-endian u32, then four reserved bytes.
func FrameModuleSource(version uint32, wasm []byte) []byte {
	out := make([]byte, ModuleSourceHeaderSize, ModuleSourceHeaderSize+len(wasm))
	binary.BigEndian.PutUint32(out[0:4], version)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(wasm)))
	return append(out, wasm...)
}

// FetchModuleSource performs a single GetModuleSource call through conn.
// Failures are reported as TransportError.
func FetchModuleSource(ctx context.Context, conn Connection, ref ModuleReference, logger *slog.Logger) ([]byte, error) {
	var source []byte
	err := conn.WithRPCClient(ctx, func(client ModuleSourceClient) error {
		var err error
		source, err = client.GetModuleSource(ctx, ref)
		return err
	})
	if err != nil {
		logger.Warn("Failed to fetch module source", "module_ref", ref.String(), "error", err)
		return nil, transportError(err)
	}
	logger.Debug("Fetched module source", "module_ref", ref.String(), "bytes", len(source))
	return source, nil
}

func transportError(err error) *Error {
	if st, ok := status.FromError(err); ok {
		return &Error{Kind: TransportError, Message: st.Message(), Err: err}
	}
	return newError(TransportError, err)
}
