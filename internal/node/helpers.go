package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/starnotary/config"
	"github.com/Klingon-tech/starnotary/internal/storage"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// resolveGenesis returns the genesis file named by cfg, or the built-in
// genesis for the network.
func resolveGenesis(cfg *config.Config) (*config.Genesis, error) {
	if cfg.GenesisFile == "" {
		return config.GenesisFor(cfg.Network), nil
	}
	gen, err := config.LoadGenesis(expandHome(cfg.GenesisFile))
	if err != nil {
		return nil, fmt.Errorf("load genesis %s: %w", cfg.GenesisFile, err)
	}
	return gen, nil
}

// openStorage opens the configured block storage backend.
func openStorage(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendBadger, "":
		db, err := storage.NewBadger(cfg.BlocksDir())
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", cfg.BlocksDir(), err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// ledgerPrefix namespaces a ledger's keys by chain id inside the database.
func ledgerPrefix(gen *config.Genesis) []byte {
	return []byte("ledger/" + gen.ChainID + "/")
}
