package chain

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/starnotary/config"
	"github.com/Klingon-tech/starnotary/pkg/block"
)

// genesisPayload is the sentinel carried by the block at height 0.
type genesisPayload struct {
	Data string `json:"data"`
}

// CreateGenesisBlock builds the unsealed genesis block for gen.
func CreateGenesisBlock(gen *config.Genesis) (*block.Block, error) {
	if gen == nil {
		return nil, fmt.Errorf("genesis config is nil")
	}
	return block.New(genesisPayload{Data: gen.Data})
}

// checkGenesis verifies that a stored genesis block carries gen's sentinel.
func checkGenesis(blk *block.Block, gen *config.Genesis) error {
	if blk.Height != 0 {
		return fmt.Errorf("%w: first stored block has height %d", ErrGenesisMismatch, blk.Height)
	}
	raw, err := blk.RawPayload()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenesisMismatch, err)
	}
	var p genesisPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrGenesisMismatch, err)
	}
	if p.Data != gen.Data {
		return fmt.Errorf("%w: stored %q, configured %q", ErrGenesisMismatch, p.Data, gen.Data)
	}
	return nil
}
