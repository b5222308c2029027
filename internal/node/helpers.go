package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/privia-labs/privia/config"
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

// loadGenesis returns the configured genesis file, or the built-in genesis
// of the network.
func loadGenesis(cfg *config.Config) (*config.Genesis, error) {
	if cfg.GenesisFile == "" {
		g := config.GenesisFor(cfg.Network)
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("built-in genesis: %w", err)
		}
		return g, nil
	}
	g, err := config.LoadGenesis(expandHome(cfg.GenesisFile))
	if err != nil {
		return nil, fmt.Errorf("load genesis %s: %w", cfg.GenesisFile, err)
	}
	return g, nil
}
