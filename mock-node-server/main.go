package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aesirxio/concordium-dapp-libraries/internal/nodeapi"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type config struct {
	Port       int
	ModulesDir string
	// when set, gRPC calls must carry it as "authentication" metadata
	AccessToken    string
	RequestLogging bool
	// Artificial per-request latency in milliseconds for both HTTP and gRPC
	LatencyMs int
}

func readEnv() config {
	return config{
		Port:           getenvInt("PORT", 20000),
		ModulesDir:     getenv("MODULES_DIR", ""),
		AccessToken:    getenv("ACCESS_TOKEN", ""),
		RequestLogging: getenvBool("REQUEST_LOGGING", false),
		LatencyMs:      getenvInt("LATENCY_MS", 0),
	}
}

// countingStore counts lookups served over either transport.
type countingStore struct {
	*nodeapi.MemoryStore
	requests atomic.Int64
	misses   atomic.Int64
}

func (s *countingStore) GetModuleSource(ctx context.Context, ref []byte, block nodeapi.Block) (uint32, []byte, error) {
	s.requests.Add(1)
	version, wasm, err := s.MemoryStore.GetModuleSource(ctx, ref, block)
	if err != nil {
		s.misses.Add(1)
	}
	return version, wasm, err
}

func main() {
	cfg := readEnv()

	store := &countingStore{MemoryStore: nodeapi.NewMemoryStore()}
	if cfg.ModulesDir != "" {
		n, err := store.LoadDir(cfg.ModulesDir)
		if err != nil {
			log.Fatalf("failed to load modules from %s: %v", cfg.ModulesDir, err)
		}
		log.Printf("loaded %d modules from %s", n, cfg.ModulesDir)
	} else {
		log.Printf("MODULES_DIR not set, every lookup will return NotFound")
	}

	var unaryInterceptors []grpc.UnaryServerInterceptor
	if cfg.RequestLogging {
		unaryInterceptors = append(unaryInterceptors, unaryLoggingInterceptor)
	}
	if cfg.AccessToken != "" {
		unaryInterceptors = append(unaryInterceptors, tokenCheckInterceptor(cfg.AccessToken))
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryInterceptors...))
	nodeapi.RegisterQueriesServer(grpcServer, store)

	if cfg.RequestLogging {
		go func() {
			ticker := time.NewTicker(time.Second)
			for range ticker.C {
				log.Printf("metrics req_total=%d miss_total=%d", store.requests.Load(), store.misses.Load())
			}
		}()
	}

	jsonRPC := newJsonRpcHandler(store)

	// Unified handler that routes gRPC (h2c) vs JSON-RPC
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isGRPC(r) {
			grpcServer.ServeHTTP(w, r)
			return
		}
		jsonRPC.ServeHTTP(w, r)
	})

	var handler http.Handler = base
	if cfg.LatencyMs > 0 {
		handler = withHTTPLatency(handler, time.Duration(cfg.LatencyMs)*time.Millisecond)
	}
	if cfg.RequestLogging {
		handler = withHTTPLoggingSkipGRPC(handler)
	}

	httpAddr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("HTTP+h2c (JSON-RPC+gRPC) listening on %s", httpAddr)
	srv := &http.Server{Addr: httpAddr, Handler: h2c.NewHandler(handler, &http2.Server{})}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("http serve error: %v", err)
	}
}

func isGRPC(r *http.Request) bool {
	return r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc")
}

func withHTTPLoggingSkipGRPC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isGRPC(r) {
			// gRPC interceptor logs these
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		log.Printf("http %s %s status=%d size=%d dur=%s", r.Method, r.URL.RequestURI(), rec.status, rec.size, time.Since(start))
	})
}

// withHTTPLatency sleeps for d before serving the request.
func withHTTPLatency(next http.Handler, d time.Duration) http.Handler {
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func unaryLoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	st, _ := status.FromError(err)
	log.Printf("grpc unary %s code=%s dur=%s", info.FullMethod, st.Code(), time.Since(start))
	return resp, err
}

// tokenCheckInterceptor rejects calls whose "authentication" metadata does
// not equal token.
func tokenCheckInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing authentication")
		}
		if vals := md.Get("authentication"); len(vals) == 0 || vals[0] != token {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authentication")
		}
		return handler(ctx, req)
	}
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
