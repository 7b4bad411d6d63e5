package nodeapi

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type storedModule struct {
	version uint32
	wasm    []byte
}

// MemoryStore is an in-memory ModuleSourceServer keyed by module reference.
// Block selection is ignored.
type MemoryStore struct {
	mu      sync.RWMutex
	modules map[string]storedModule
}

var _ ModuleSourceServer = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{modules: make(map[string]storedModule)}
}

// Put stores wasm under ref.
func (s *MemoryStore) Put(ref []byte, version uint32, wasm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[hex.EncodeToString(ref)] = storedModule{version: version, wasm: wasm}
}

// Len returns the number of stored modules.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.modules)
}

// Lookup returns the stored module for ref.
func (s *MemoryStore) Lookup(ref []byte) (uint32, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[hex.EncodeToString(ref)]
	return m.version, m.wasm, ok
}

func (s *MemoryStore) GetModuleSource(_ context.Context, ref []byte, _ Block) (uint32, []byte, error) {
	version, wasm, ok := s.Lookup(ref)
	if !ok {
		return 0, nil, status.Errorf(codes.NotFound, "module %x not found", ref)
	}
	return version, wasm, nil
}

// LoadDir stores every file in dir named "<hex ref>.wasm.v0" or
// "<hex ref>.wasm.v1". Other files are skipped.
func (s *MemoryStore) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var version uint32
		var refHex string
		switch {
		case strings.HasSuffix(name, ".wasm.v0"):
			refHex = strings.TrimSuffix(name, ".wasm.v0")
		case strings.HasSuffix(name, ".wasm.v1"):
			version = 1
			refHex = strings.TrimSuffix(name, ".wasm.v1")
		default:
			continue
		}
		ref, err := hex.DecodeString(refHex)
		if err != nil || len(ref) != 32 {
			return loaded, fmt.Errorf("file %s is not named by a module reference", name)
		}
		wasm, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return loaded, err
		}
		s.Put(ref, version, wasm)
		loaded++
	}
	return loaded, nil
}
