package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/Klingon-tech/starnotary/internal/log"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch cfg.Storage.Backend {
	case BackendMemory, BackendBadger:
	case "":
		cfg.Storage.Backend = BackendBadger
	default:
		return fmt.Errorf("storage.backend must be %q or %q", BackendMemory, BackendBadger)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.RPC.RateLimit < 0 {
		return fmt.Errorf("rpc.ratelimit must not be negative")
	}
	if cfg.RPC.RateLimit > 0 && cfg.RPC.RateBurst < 1 {
		return fmt.Errorf("rpc.rateburst must be at least 1 when rpc.ratelimit is set")
	}
	for i, entry := range cfg.RPC.AllowedIPs {
		if err := validateIPEntry(entry); err != nil {
			return fmt.Errorf("rpc.allowed[%d]: %w", i, err)
		}
	}

	if cfg.Registry.Window <= 0 || cfg.Registry.Window > MaxWindow {
		return fmt.Errorf("registry.window must be between 1 and %d seconds", MaxWindow)
	}
	if cfg.Registry.Skew < 0 || cfg.Registry.Skew > MaxWindow {
		return fmt.Errorf("registry.skew must be between 0 and %d seconds", MaxWindow)
	}

	if cfg.Log.Level != "" && !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error, off", cfg.Log.Level)
	}

	return nil
}

// validateIPEntry accepts a plain IP or a CIDR block.
func validateIPEntry(entry string) error {
	s := strings.TrimSpace(entry)
	if s == "" {
		return fmt.Errorf("empty entry")
	}
	if strings.Contains(s, "/") {
		if _, _, err := net.ParseCIDR(s); err != nil {
			return fmt.Errorf("invalid CIDR %q", s)
		}
		return nil
	}
	if net.ParseIP(s) == nil {
		return fmt.Errorf("invalid IP %q", s)
	}
	return nil
}
