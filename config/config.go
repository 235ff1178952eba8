// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Ledger identity: defined in genesis, fixed for the life of a data directory
//   - Node settings: runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	Network     NetworkType `conf:"network"`
	DataDir     string      `conf:"datadir"`
	GenesisFile string      `conf:"genesis"` // Optional genesis JSON overriding the built-in one.

	// Block storage
	Storage StorageConfig

	// RPC server
	RPC RPCConfig

	// Ownership registry
	Registry RegistryConfig

	// Logging
	Log LogConfig
}

// StorageConfig selects where blocks are kept.
type StorageConfig struct {
	Backend string `conf:"storage.backend"` // memory or badger
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"`      // Allowed CORS origins ("*" = all).
	RateLimit   float64  `conf:"rpc.ratelimit"` // Requests per second per client IP (0 = unlimited).
	RateBurst   int      `conf:"rpc.rateburst"`
	Metrics     bool     `conf:"rpc.metrics"` // Serve Prometheus metrics on GET /metrics.
}

// RegistryConfig holds the ownership-proof settings.
type RegistryConfig struct {
	// Window is how long a signed ownership message stays valid, in seconds.
	Window int `conf:"registry.window"`
	// Skew is how far in the future a message timestamp may be, in seconds.
	Skew int `conf:"registry.skew"`
}

// WindowDuration returns Window as a time.Duration.
func (r RegistryConfig) WindowDuration() time.Duration {
	return time.Duration(r.Window) * time.Second
}

// SkewDuration returns Skew as a time.Duration.
func (r RegistryConfig) SkewDuration() time.Duration {
	return time.Duration(r.Skew) * time.Second
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.starnotary
//	macOS:   ~/Library/Application Support/StarNotary
//	Windows: %APPDATA%\StarNotary
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".starnotary"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "StarNotary")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "StarNotary")
		}
		return filepath.Join(home, "AppData", "Roaming", "StarNotary")
	default:
		return filepath.Join(home, ".starnotary")
	}
}

// ChainDataDir returns the network-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// BlocksDir returns the block database directory.
func (c *Config) BlocksDir() string {
	return filepath.Join(c.ChainDataDir(), "blocks")
}

// KeysDir returns the directory holding wallet key files.
func (c *Config) KeysDir() string {
	return filepath.Join(c.ChainDataDir(), "keys")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "starnotary.conf")
}
