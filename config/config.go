// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Ledger genesis: token identity, cycles and initial allocations, fixed
//     when the ledger is first initialized
//   - Node settings: runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/privia-labs/privia/internal/storage"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Storage engines.
const (
	EngineBadger  = storage.EngineBadger
	EngineLevelDB = storage.EngineLevelDB
	EngineMemory  = storage.EngineMemory
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// GenesisFile overrides the built-in genesis for the network.
	GenesisFile string `conf:"genesis"`

	// Storage
	DB DBConfig

	// RPC server
	RPC RPCConfig

	// Staking score service
	Staking StakingConfig

	// Logging
	Log LogConfig
}

// DBConfig holds storage settings.
type DBConfig struct {
	Engine string `conf:"db.engine"` // badger, leveldb or memory
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// StakingConfig holds score service settings.
type StakingConfig struct {
	CacheSize int `conf:"staking.cache"`
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
//	Linux:   ~/.privia
//	macOS:   ~/Library/Application Support/Privia
//	Windows: %APPDATA%\Privia
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".privia"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Privia")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Privia")
		}
		return filepath.Join(home, "AppData", "Roaming", "Privia")
	default:
		return filepath.Join(home, ".privia")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.NetworkDataDir(), "ledger")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "privia.conf")
}

// EnvFile returns the path of the optional .env override file.
func (c *Config) EnvFile() string {
	return filepath.Join(c.DataDir, ".env")
}
