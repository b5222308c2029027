package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Keys lists every recognised node config key. Env overrides are derived
// from it.
var Keys = []string{
	"network", "datadir", "genesis",
	"db.engine",
	"rpc.enabled", "rpc.addr", "rpc.port", "rpc.allowed", "rpc.cors",
	"staking.cache",
	"log.level", "log.file", "log.json",
}

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

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		values[key] = unquote(strings.TrimSpace(parts[1]))
	}

	return values, scanner.Err()
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
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
	case "db.engine":
		cfg.DB.Engine = strings.ToLower(value)

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

	// Staking
	case "staking.cache":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Staking.CacheSize = n

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
	content := `# Privia Ledger Node Configuration
#
# This file contains NODE settings only. Token identity, cycles and
# initial allocations come from the genesis and are stored in the ledger
# when it is first initialized.

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.privia)
# datadir = ~/.privia

# Genesis file (default: built-in genesis for the network)
# genesis = /path/to/genesis.json

# ============================================================================
# Storage
# ============================================================================

# Engine: badger, leveldb or memory
db.engine = badger

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + defaultRPCPort(network) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Staking
# ============================================================================

# Number of accounts whose score is cached
staking.cache = 4096

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false

# Every key can also be set from the environment as PRIVIA_<KEY>, with dots
# replaced by underscores (e.g. PRIVIA_RPC_PORT=9000), or from <datadir>/.env.
`
	return os.WriteFile(path, []byte(content), 0644)
}

func defaultRPCPort(network NetworkType) string {
	if network == Testnet {
		return "8845"
	}
	return "8745"
}
