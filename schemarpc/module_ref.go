package schemarpc

import (
	"encoding/hex"
	"fmt"
)

// ModuleReferenceSize is the byte length of a module reference hash.
const ModuleReferenceSize = 32

// ModuleReference identifies a deployed contract module on chain.
type ModuleReference [ModuleReferenceSize]byte

// ParseModuleReference parses the hex form of a module reference.
func ParseModuleReference(s string) (ModuleReference, error) {
	var ref ModuleReference
	if len(s) != 2*ModuleReferenceSize {
		return ref, fmt.Errorf("module reference must be %d hex characters, got %d", 2*ModuleReferenceSize, len(s))
	}
	if _, err := hex.Decode(ref[:], []byte(s)); err != nil {
		return ref, fmt.Errorf("module reference is not valid hex: %w", err)
	}
	return ref, nil
}

func (r ModuleReference) String() string {
	return hex.EncodeToString(r[:])
}

// ContractInfo describes the contract whose schema is requested.
type ContractInfo struct {
	Name      string
	Index     uint64
	Subindex  uint64
	ModuleRef string
}
