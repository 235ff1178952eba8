package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value
	case "genesis":
		cfg.GenesisFile = value

	// Storage
	case "storage.backend":
		cfg.Storage.Backend = value

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)
	case "rpc.ratelimit":
		r, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cfg.RPC.RateLimit = r
	case "rpc.rateburst":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.RateBurst = n
	case "rpc.metrics":
		cfg.RPC.Metrics = parseBool(value)

	// Registry
	case "registry.window":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Registry.Window = n
	case "registry.skew":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Registry.Skew = n

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	d := Default(network)
	content := `# Star Notary Node Configuration
#
# Ledger identity (chain id, genesis data, address prefix) comes from the
# genesis definition and cannot be changed for an existing data directory.

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.starnotary)
# datadir = ~/.starnotary

# Custom genesis file (JSON)
# genesis =

# ============================================================================
# Storage
# ============================================================================

# Block storage backend: badger (on disk) or memory (lost on exit)
storage.backend = ` + d.Storage.Backend + `

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + strconv.Itoa(d.RPC.Port) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# Requests per second per client IP (0 disables limiting)
rpc.ratelimit = ` + strconv.FormatFloat(d.RPC.RateLimit, 'f', -1, 64) + `
rpc.rateburst = ` + strconv.Itoa(d.RPC.RateBurst) + `

# Serve Prometheus metrics on GET /metrics
rpc.metrics = true

# ============================================================================
# Ownership Registry
# ============================================================================

# Seconds a signed ownership message stays valid
registry.window = ` + strconv.Itoa(d.Registry.Window) + `

# Seconds a message timestamp may run ahead of the node clock
registry.skew = ` + strconv.Itoa(d.Registry.Skew) + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
