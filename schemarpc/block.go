package schemarpc

import (
	"encoding/hex"
	"fmt"

	"github.com/aesirxio/concordium-dapp-libraries/internal/nodeapi"
)

// BlockSelector chooses the block at which the node looks up a module.
type BlockSelector struct {
	block nodeapi.Block
}

// LastFinalBlock selects the last finalized block. It is the default.
func LastFinalBlock() BlockSelector {
	return BlockSelector{block: nodeapi.Block{Kind: nodeapi.LastFinal}}
}

// BestBlock selects the node's current best block.
func BestBlock() BlockSelector {
	return BlockSelector{block: nodeapi.Block{Kind: nodeapi.Best}}
}

// GivenBlock selects the block with the given hash.
func GivenBlock(hash [32]byte) BlockSelector {
	return BlockSelector{block: nodeapi.Block{Kind: nodeapi.Given, Hash: hash[:]}}
}

// ParseBlockSelector accepts "", "last_final", "best" or a 64 character hex
// block hash.
func ParseBlockSelector(s string) (BlockSelector, error) {
	switch s {
	case "", "last_final":
		return LastFinalBlock(), nil
	case "best":
		return BestBlock(), nil
	}
	var hash [32]byte
	if len(s) != 64 {
		return BlockSelector{}, fmt.Errorf("block hash must be 64 hex characters, got %d", len(s))
	}
	if _, err := hex.Decode(hash[:], []byte(s)); err != nil {
		return BlockSelector{}, fmt.Errorf("block hash is not valid hex: %w", err)
	}
	return GivenBlock(hash), nil
}

// Hash returns the hex block hash for a given block, or "" otherwise.
func (b BlockSelector) Hash() string {
	if b.block.Kind != nodeapi.Given {
		return ""
	}
	return hex.EncodeToString(b.block.Hash)
}

func (b BlockSelector) String() string {
	switch b.block.Kind {
	case nodeapi.Best:
		return "best"
	case nodeapi.Given:
		return b.Hash()
	default:
		return "last_final"
	}
}
