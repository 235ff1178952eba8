package block

import (
	"errors"
	"fmt"
)

// Errors.
var (
	ErrGenesisPayload = errors.New("genesis block payload is not a caller payload")
	ErrNotSealed      = errors.New("block hash is not set")
	ErrHashMismatch   = errors.New("block hash does not match contents")
	ErrBadHeight      = errors.New("block height does not match its position")
	ErrZeroTime       = errors.New("block time is zero")
)

// Validate reports whether the block's contents still hash to its stored
// hash. It never modifies the block.
func (b *Block) Validate() bool {
	return !b.Hash.IsZero() && b.ComputeHash() == b.Hash
}

// CheckSeal verifies the fields set when sealing the block at position
// height: a non-empty hash matching the contents, the expected height and a
// set timestamp.
func (b *Block) CheckSeal(height uint64) error {
	if b.Hash.IsZero() {
		return ErrNotSealed
	}
	if b.Height != height {
		return fmt.Errorf("%w: got %d, want %d", ErrBadHeight, b.Height, height)
	}
	if b.Time == 0 {
		return ErrZeroTime
	}
	if !b.Validate() {
		return ErrHashMismatch
	}
	return nil
}
