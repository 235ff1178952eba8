package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/starnotary/pkg/crypto"
	"github.com/Klingon-tech/starnotary/pkg/types"
)

// MaxGenesisData bounds the sentinel stored in the genesis block.
const MaxGenesisData = 256

// Genesis holds the identity of a ledger. It is fixed once a data
// directory has been bootstrapped; the genesis block embeds Data.
type Genesis struct {
	ChainID   string `json:"chain_id"`
	ChainName string `json:"chain_name"`

	// Data is the sentinel payload of the genesis block.
	Data string `json:"data"`

	// AddressHRP is the bech32 prefix of owner addresses on this ledger.
	AddressHRP string `json:"address_hrp"`
}

// =============================================================================
// Pre-defined genesis configurations
// =============================================================================

// MainnetGenesis returns the mainnet genesis configuration.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:    "starnotary-mainnet-1",
		ChainName:  "Star Notary",
		Data:       "Star Notary Genesis Block",
		AddressHRP: types.MainnetHRP,
	}
}

// TestnetGenesis returns the testnet genesis configuration.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "starnotary-testnet-1"
	g.ChainName = "Star Notary Testnet"
	g.Data = "Star Notary Testnet Genesis Block"
	g.AddressHRP = types.TestnetHRP
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is usable.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if strings.TrimSpace(g.Data) == "" {
		return fmt.Errorf("data is required")
	}
	if len(g.Data) > MaxGenesisData {
		return fmt.Errorf("data is %d bytes, max %d", len(g.Data), MaxGenesisData)
	}
	if g.AddressHRP == "" {
		return fmt.Errorf("address_hrp is required")
	}
	if g.AddressHRP != strings.ToLower(g.AddressHRP) || strings.ContainsAny(g.AddressHRP, "1 ") {
		return fmt.Errorf("address_hrp %q must be lower case without '1' or spaces", g.AddressHRP)
	}
	return nil
}

// Hash returns a BLAKE3 hash of the genesis configuration.
// It namespaces the ledger's keys in shared storage.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
