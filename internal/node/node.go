// Package node wires a star notary ledger and its RPC server into a
// reusable unit that any binary can embed.
package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/starnotary/config"
	"github.com/Klingon-tech/starnotary/internal/chain"
	klog "github.com/Klingon-tech/starnotary/internal/log"
	"github.com/Klingon-tech/starnotary/internal/rpc"
	"github.com/Klingon-tech/starnotary/internal/storage"
	"github.com/Klingon-tech/starnotary/pkg/types"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized ledger node.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis
	logger  zerolog.Logger

	db        storage.DB
	ch        *chain.Chain
	rpcServer *rpc.Server // nil when RPC is disabled.
}

// Option customizes a Node before the ledger is opened.
type Option func(*options)

type options struct {
	clock  chain.Clock
	logger *zerolog.Logger
}

// WithClock overrides the ledger clock.
func WithClock(c chain.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger skips log.Init and keeps the current global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// New creates and initializes a Node: logger, genesis, storage, ledger and
// RPC server. It does not listen; call Start for that.
func New(cfg *config.Config, opts ...Option) (*Node, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// ── 1. Init logger ──────────────────────────────────────────────
	if o.logger != nil {
		klog.SetLogger(*o.logger)
	} else {
		logFile := cfg.Log.File
		if logFile == "" {
			logsDir := cfg.LogsDir()
			if err := os.MkdirAll(logsDir, 0755); err != nil {
				return nil, fmt.Errorf("creating logs dir: %w", err)
			}
			logFile = filepath.Join(logsDir, "starnotary.log")
		}
		if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
			return nil, fmt.Errorf("initializing logger: %w", err)
		}
	}
	logger := klog.WithComponent("node")

	// ── 2. Genesis ──────────────────────────────────────────────────
	genesis, err := resolveGenesis(cfg)
	if err != nil {
		return nil, err
	}
	if err := genesis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	types.SetAddressHRP(genesis.AddressHRP)

	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Str("hrp", genesis.AddressHRP).
		Msg("Starting Star Notary Node")

	// ── 3. Open storage ─────────────────────────────────────────────
	db, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("backend", cfg.Storage.Backend).
		Str("path", cfg.BlocksDir()).
		Msg("Block storage opened")

	// ── 4. Ledger ───────────────────────────────────────────────────
	chainOpts := []chain.Option{
		chain.WithWindow(cfg.Registry.WindowDuration()),
		chain.WithClockSkew(cfg.Registry.SkewDuration()),
	}
	if o.clock != nil {
		chainOpts = append(chainOpts, chain.WithClock(o.clock))
	}
	ch, err := chain.New(storage.NewPrefixDB(db, ledgerPrefix(genesis)), genesis, chainOpts...)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	st := ch.State()
	logger.Info().
		Int64("height", st.Height).
		Str("genesis", st.GenesisHash.String()).
		Dur("window", ch.Window()).
		Msg("Ledger ready")

	// ── 5. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		rpcServer = rpc.New(rpcAddr, ch, cfg.RPC)
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	return &Node{
		cfg:       cfg,
		genesis:   genesis,
		logger:    logger,
		db:        db,
		ch:        ch,
		rpcServer: rpcServer,
	}, nil
}

// Start binds the RPC listener.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc: %w", err)
		}
		n.logger.Info().
			Str("addr", n.rpcServer.Addr()).
			Bool("metrics", n.cfg.RPC.Metrics).
			Msg("RPC server started")
	}

	n.logger.Info().
		Int64("height", n.ch.Height()).
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Closing block storage")
		}
	}

	stats := n.ch.Stats()
	n.logger.Info().
		Uint64("accepted", stats.Accepted).
		Uint64("rejected", stats.Timeouts+stats.BadSignatures+stats.BadMessages+stats.BadPayloads).
		Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Chain returns the node's ledger.
func (n *Node) Chain() *chain.Chain {
	return n.ch
}

// Genesis returns the genesis definition the node runs.
func (n *Node) Genesis() *config.Genesis {
	return n.genesis
}

// Height returns the current chain height.
func (n *Node) Height() int64 {
	return n.ch.Height()
}
