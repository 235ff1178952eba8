package chain

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/starnotary/internal/storage"
	"github.com/Klingon-tech/starnotary/pkg/block"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

// Key prefixes and state keys for the block store.
var (
	prefixBlock  = []byte("b/") // b/<hash(32)> -> block JSON
	prefixHeight = []byte("h/") // h/<height(8)> -> hash(32)
	keyTipHash   = []byte("s/tip")
	keyHeight    = []byte("s/height")
)

// BlockStore persists sealed blocks and the chain tip to a storage.DB.
type BlockStore struct {
	db storage.DB
}

// NewBlockStore creates a block store backed by the given database.
func NewBlockStore(db storage.DB) *BlockStore {
	return &BlockStore{db: db}
}

// PutBlock stores a block, indexes it by height and makes it the tip.
// All writes are committed in one batch.
func (bs *BlockStore) PutBlock(blk *block.Block) error {
	data, err := json.Marshal(blk)
	if err != nil {
		return fmt.Errorf("block marshal: %w", err)
	}

	var heightBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], blk.Height)

	b := storage.NewBatch(bs.db)
	if err := b.Put(blockKey(blk.Hash), data); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	if err := b.Put(heightKey(blk.Height), blk.Hash[:]); err != nil {
		return fmt.Errorf("height index put: %w", err)
	}
	if err := b.Put(keyTipHash, blk.Hash[:]); err != nil {
		return fmt.Errorf("set tip hash: %w", err)
	}
	if err := b.Put(keyHeight, heightBuf[:]); err != nil {
		return fmt.Errorf("set tip height: %w", err)
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("commit block %d: %w", blk.Height, err)
	}
	return nil
}

// GetBlock retrieves a block by its hash.
func (bs *BlockStore) GetBlock(hash types.Hash) (*block.Block, error) {
	data, err := bs.db.Get(blockKey(hash))
	if err != nil {
		return nil, fmt.Errorf("block get: %w", err)
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return nil, fmt.Errorf("block unmarshal: %w", err)
	}
	return &blk, nil
}

// GetBlockByHeight retrieves a block by its height.
func (bs *BlockStore) GetBlockByHeight(height uint64) (*block.Block, error) {
	hashBytes, err := bs.db.Get(heightKey(height))
	if err != nil {
		return nil, fmt.Errorf("height index get: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return nil, fmt.Errorf("corrupt height index: got %d bytes, want %d", len(hashBytes), types.HashSize)
	}
	var hash types.Hash
	copy(hash[:], hashBytes)
	return bs.GetBlock(hash)
}

// GetTip returns the stored tip hash and height. ok is false for an empty store.
func (bs *BlockStore) GetTip() (hash types.Hash, height uint64, ok bool, err error) {
	hashBytes, err := bs.db.Get(keyTipHash)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Hash{}, 0, false, nil
	}
	if err != nil {
		return types.Hash{}, 0, false, fmt.Errorf("tip hash get: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return types.Hash{}, 0, false, fmt.Errorf("corrupt tip hash: got %d bytes", len(hashBytes))
	}

	heightBytes, err := bs.db.Get(keyHeight)
	if err != nil {
		return types.Hash{}, 0, false, fmt.Errorf("tip height missing: %w", err)
	}
	if len(heightBytes) != 8 {
		return types.Hash{}, 0, false, fmt.Errorf("corrupt tip height: got %d bytes", len(heightBytes))
	}

	copy(hash[:], hashBytes)
	return hash, binary.BigEndian.Uint64(heightBytes), true, nil
}

// LoadAll returns every block from height 0 up to the stored tip.
func (bs *BlockStore) LoadAll() ([]*block.Block, error) {
	_, tipHeight, ok, err := bs.GetTip()
	if err != nil || !ok {
		return nil, err
	}
	blocks := make([]*block.Block, 0, tipHeight+1)
	for h := uint64(0); h <= tipHeight; h++ {
		blk, err := bs.GetBlockByHeight(h)
		if err != nil {
			return nil, fmt.Errorf("load block %d: %w", h, err)
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}

func blockKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixBlock)+types.HashSize)
	copy(key, prefixBlock)
	copy(key[len(prefixBlock):], hash[:])
	return key
}

func heightKey(height uint64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], height)
	return key
}
