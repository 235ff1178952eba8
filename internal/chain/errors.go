package chain

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/starnotary/pkg/types"
)

// Errors returned by ledger operations.
var (
	ErrInvalidBlock     = errors.New("invalid block")
	ErrTimeout          = errors.New("ownership message expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidMessage   = errors.New("invalid ownership message")
	ErrInvalidPayload   = errors.New("invalid star payload")
	ErrAddressNotFound  = errors.New("no stars found for address")
	ErrGenesisMismatch  = errors.New("stored genesis does not match configuration")

	// ErrIntegrity is wrapped by every finding ValidateChain reports.
	ErrIntegrity = errors.New("chain integrity violation")
)

// TamperedBlockError reports a block whose contents no longer hash to its
// stored hash.
type TamperedBlockError struct {
	Height uint64
	Hash   types.Hash
}

func (e *TamperedBlockError) Error() string {
	return fmt.Sprintf("block %d (%s) failed hash validation", e.Height, e.Hash)
}

func (e *TamperedBlockError) Unwrap() error { return ErrIntegrity }

// BrokenLinkError reports a block whose previous hash does not equal the
// hash of the block before it. For height 0 it means the genesis block has
// a non-empty previous hash.
type BrokenLinkError struct {
	Height uint64
}

func (e *BrokenLinkError) Error() string {
	if e.Height == 0 {
		return "genesis block has a previous hash"
	}
	return fmt.Sprintf("block %d does not link to block %d", e.Height, e.Height-1)
}

func (e *BrokenLinkError) Unwrap() error { return ErrIntegrity }
