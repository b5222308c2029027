package config

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is required")
	}
	switch cfg.DB.Engine {
	case EngineBadger, EngineLevelDB, EngineMemory:
	default:
		return fmt.Errorf("db.engine must be %s, %s or %s", EngineBadger, EngineLevelDB, EngineMemory)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	for i, ip := range cfg.RPC.AllowedIPs {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("rpc.allowed[%d] %q is not an IP address", i, ip)
		}
	}
	if cfg.Staking.CacheSize < 0 {
		return fmt.Errorf("staking.cache must not be negative")
	}
	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}
