// Package block defines the sealed ledger record and its integrity checks.
package block

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/starnotary/pkg/crypto"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

// Block is a single record of the ledger. Height, Time, PreviousBlockHash
// and Hash are assigned when the ledger seals the block; Body and Owner are
// fixed when it is built.
type Block struct {
	Hash              types.Hash    `json:"hash"`
	Height            uint64        `json:"height"`
	Body              string        `json:"body"`
	Time              uint64        `json:"time"`
	PreviousBlockHash types.Hash    `json:"previousBlockHash"`
	Owner             types.Address `json:"owner"`
}

// New builds an unsealed block whose body is the hex encoding of the JSON
// encoding of payload.
func New(payload any) (*Block, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return &Block{Body: hex.EncodeToString(data)}, nil
}

// NewOwned builds an unsealed block authored by owner.
func NewOwned(payload any, owner types.Address) (*Block, error) {
	blk, err := New(payload)
	if err != nil {
		return nil, err
	}
	blk.Owner = owner
	return blk, nil
}

// SigningBytes returns the canonical bytes the block hash commits to.
// The hash itself is excluded.
// Format: height(8) | time(8) | prev_hash(32) | owner(20) | body_len(4) | body
func (b *Block) SigningBytes() []byte {
	buf := make([]byte, 0, 8+8+types.HashSize+types.AddressSize+4+len(b.Body))
	buf = binary.LittleEndian.AppendUint64(buf, b.Height)
	buf = binary.LittleEndian.AppendUint64(buf, b.Time)
	buf = append(buf, b.PreviousBlockHash[:]...)
	buf = append(buf, b.Owner[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b.Body)))
	buf = append(buf, b.Body...)
	return buf
}

// ComputeHash returns the digest of the block's current contents.
func (b *Block) ComputeHash() types.Hash {
	return crypto.Hash(b.SigningBytes())
}

// IsGenesis returns true for the block at height 0.
func (b *Block) IsGenesis() bool {
	return b.Height == 0
}

// RawPayload returns the JSON bytes stored in the body.
func (b *Block) RawPayload() ([]byte, error) {
	data, err := hex.DecodeString(b.Body)
	if err != nil {
		return nil, fmt.Errorf("decode body hex: %w", err)
	}
	return data, nil
}

// DecodePayload decodes the body into dst. The genesis block carries a
// sentinel rather than a caller payload and yields ErrGenesisPayload.
func (b *Block) DecodePayload(dst any) error {
	if b.IsGenesis() {
		return ErrGenesisPayload
	}
	data, err := b.RawPayload()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
