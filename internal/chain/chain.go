// Package chain implements the star ownership ledger: an append-only,
// hash-linked sequence of blocks with an ownership-proof protocol gating
// who may append a star claim.
package chain

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/starnotary/config"
	"github.com/Klingon-tech/starnotary/internal/log"
	"github.com/Klingon-tech/starnotary/internal/storage"
	"github.com/Klingon-tech/starnotary/pkg/block"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

// Chain is the ledger. All methods are safe for concurrent use.
type Chain struct {
	mu      sync.RWMutex // Guards blocks; Append holds it for the whole seal.
	blocks  []*block.Block
	store   *BlockStore
	genesis *config.Genesis

	clock  Clock
	window time.Duration
	skew   time.Duration

	logger zerolog.Logger

	accepted      atomic.Uint64
	timeouts      atomic.Uint64
	badSignatures atomic.Uint64
	badMessages   atomic.Uint64
	badPayloads   atomic.Uint64
	integrity     atomic.Uint64
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock sets the time source used for block times and message windows.
func WithClock(c Clock) Option {
	return func(ch *Chain) { ch.clock = c }
}

// WithWindow sets how long an ownership message stays valid.
func WithWindow(d time.Duration) Option {
	return func(ch *Chain) { ch.window = d }
}

// WithClockSkew sets how far ahead of the clock a message timestamp may be.
func WithClockSkew(d time.Duration) Option {
	return func(ch *Chain) { ch.skew = d }
}

// New opens the ledger stored in db. Blocks already in the store are
// loaded as they are; an empty store is bootstrapped with the genesis block
// for gen.
func New(db storage.DB, gen *config.Genesis, opts ...Option) (*Chain, error) {
	if db == nil {
		return nil, fmt.Errorf("storage db is nil")
	}
	if gen == nil {
		return nil, fmt.Errorf("genesis config is nil")
	}
	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	ch := &Chain{
		store:   NewBlockStore(db),
		genesis: gen,
		clock:   SystemClock{},
		window:  config.DefaultWindow * time.Second,
		skew:    config.DefaultSkew * time.Second,
		logger:  log.Chain.With().Str("chain_id", gen.ChainID).Logger(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	if ch.window < time.Second {
		return nil, fmt.Errorf("validation window must be at least 1s, got %s", ch.window)
	}
	if ch.skew < 0 {
		return nil, fmt.Errorf("clock skew must not be negative, got %s", ch.skew)
	}

	stored, err := ch.store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	if len(stored) > 0 {
		if err := checkGenesis(stored[0], gen); err != nil {
			return nil, err
		}
		ch.blocks = stored
		ch.logger.Info().
			Int64("height", ch.Height()).
			Str("tip", stored[len(stored)-1].Hash.String()).
			Msg("Loaded chain from storage")
	}

	if err := ch.bootstrap(); err != nil {
		return nil, err
	}
	return ch, nil
}

// bootstrap appends the genesis block if the chain is empty.
func (c *Chain) bootstrap() error {
	if c.Height() >= 0 {
		return nil
	}
	gen, err := CreateGenesisBlock(c.genesis)
	if err != nil {
		return fmt.Errorf("create genesis: %w", err)
	}
	sealed, err := c.Append(gen)
	if err != nil {
		return fmt.Errorf("append genesis: %w", err)
	}
	c.logger.Info().Str("hash", sealed.Hash.String()).Msg("Created genesis block")
	return nil
}

// Append seals blk as the next block and adds it to the chain. blk must be
// unsealed; it is not modified. Append assigns the height, time, previous
// hash and hash, persists the result and returns a copy of it. On error the
// chain is unchanged.
func (c *Chain) Append(blk *block.Block) (*block.Block, error) {
	if blk == nil {
		return nil, fmt.Errorf("%w: nil block", ErrInvalidBlock)
	}
	if !blk.Hash.IsZero() {
		return nil, fmt.Errorf("%w: block is already sealed", ErrInvalidBlock)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sealed := *blk
	n := uint64(len(c.blocks))
	if n > 0 {
		sealed.PreviousBlockHash = c.blocks[n-1].Hash
	} else {
		sealed.PreviousBlockHash = types.Hash{}
	}
	sealed.Height = n
	sealed.Time = unixSeconds(c.clock.Now())
	sealed.Hash = sealed.ComputeHash()

	if err := sealed.CheckSeal(n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlock, err)
	}
	if err := c.store.PutBlock(&sealed); err != nil {
		return nil, fmt.Errorf("persist block %d: %w", n, err)
	}

	c.blocks = append(c.blocks, &sealed)
	c.logger.Debug().
		Uint64("height", sealed.Height).
		Str("hash", sealed.Hash.String()).
		Msg("Appended block")

	out := sealed
	return &out, nil
}

// Height returns the height of the newest block, or -1 for an empty chain.
func (c *Chain) Height() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.blocks)) - 1
}

// State returns a snapshot of the chain tip.
func (c *Chain) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := State{ChainID: c.genesis.ChainID, Height: int64(len(c.blocks)) - 1}
	if len(c.blocks) > 0 {
		tip := c.blocks[len(c.blocks)-1]
		s.TipHash = tip.Hash
		s.TipTime = tip.Time
		s.GenesisHash = c.blocks[0].Hash
	}
	return s
}

// Stats returns submission counters.
func (c *Chain) Stats() Stats {
	return Stats{
		Accepted:         c.accepted.Load(),
		Timeouts:         c.timeouts.Load(),
		BadSignatures:    c.badSignatures.Load(),
		BadMessages:      c.badMessages.Load(),
		BadPayloads:      c.badPayloads.Load(),
		IntegrityFailure: c.integrity.Load(),
	}
}

// Genesis returns the genesis definition the chain was opened with.
func (c *Chain) Genesis() *config.Genesis {
	g := *c.genesis
	return &g
}

// GetBlockByHash returns a copy of the block whose hash equals hash.
func (c *Chain) GetBlockByHash(hash types.Hash) (*block.Block, bool) {
	if hash.IsZero() {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.blocks {
		if b.Hash == hash {
			cp := *b
			return &cp, true
		}
	}
	return nil, false
}

// GetBlockByHeight returns a copy of the block at height.
func (c *Chain) GetBlockByHeight(height uint64) (*block.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if height >= uint64(len(c.blocks)) {
		return nil, false
	}
	cp := *c.blocks[height]
	return &cp, true
}

func unixSeconds(t time.Time) uint64 {
	s := t.Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}
