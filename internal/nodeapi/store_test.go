package nodeapi

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMemoryStore_GetModuleSource(t *testing.T) {
	ref := bytes.Repeat([]byte{0x01}, 32)
	store := NewMemoryStore()
	store.Put(ref, 1, []byte{0xaa})

	version, wasm, err := store.GetModuleSource(context.Background(), ref, Block{Kind: Best})
	if err != nil || version != 1 || !bytes.Equal(wasm, []byte{0xaa}) {
		t.Errorf("Unexpected result v%d %x %v", version, wasm, err)
	}

	_, _, err = store.GetModuleSource(context.Background(), bytes.Repeat([]byte{0x02}, 32), Block{})
	if status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestMemoryStore_LoadDir(t *testing.T) {
	dir := t.TempDir()
	refA := strings.Repeat("aa", 32)
	refB := strings.Repeat("bb", 32)
	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(refA+".wasm.v0", []byte{1})
	write(refB+".wasm.v1", []byte{2, 3})
	write("README.md", []byte("ignored"))

	store := NewMemoryStore()
	n, err := store.LoadDir(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != 2 || store.Len() != 2 {
		t.Fatalf("Expected 2 modules, loaded %d, stored %d", n, store.Len())
	}

	version, wasm, ok := store.Lookup(bytes.Repeat([]byte{0xbb}, 32))
	if !ok || version != 1 || !bytes.Equal(wasm, []byte{2, 3}) {
		t.Errorf("Unexpected lookup result v%d %x %v", version, wasm, ok)
	}
	version, _, ok = store.Lookup(bytes.Repeat([]byte{0xaa}, 32))
	if !ok || version != 0 {
		t.Errorf("Expected v0 module, got v%d %v", version, ok)
	}
}

func TestMemoryStore_LoadDirRejectsBadName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nothex.wasm.v1"), []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMemoryStore().LoadDir(dir); err == nil {
		t.Fatal("Expected error for file not named by a module reference")
	}
}
