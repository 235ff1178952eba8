package chain

import "github.com/Klingon-tech/starnotary/pkg/types"

// State holds the current chain tip state.
type State struct {
	ChainID     string
	Height      int64 // -1 before genesis.
	TipHash     types.Hash
	GenesisHash types.Hash
	TipTime     uint64
}

// IsEmpty returns true if no block has been appended yet.
func (s *State) IsEmpty() bool {
	return s.Height < 0
}

// Stats counts ownership submissions by outcome since the chain was opened.
type Stats struct {
	Accepted         uint64
	Timeouts         uint64
	BadSignatures    uint64
	BadMessages      uint64
	BadPayloads      uint64
	IntegrityFailure uint64 // ValidateChain findings logged by owner lookups.
}
