package config

// DefaultWindow is the ownership message validity window in seconds.
const DefaultWindow = 300

// MaxWindow bounds registry.window and registry.skew, in seconds.
const MaxWindow = 24 * 60 * 60

// DefaultSkew is the tolerated future drift of a message timestamp in seconds.
const DefaultSkew = 30

// DefaultMainnet returns the default node configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Storage: StorageConfig{
			Backend: BackendBadger,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8000,
			AllowedIPs: []string{"127.0.0.1"},
			RateLimit:  20,
			RateBurst:  40,
			Metrics:    true,
		},
		Registry: RegistryConfig{
			Window: DefaultWindow,
			Skew:   DefaultSkew,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default node configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.Port = 8100
	return cfg
}

// Default returns the default node configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
