package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRIVIA_"

// EnvKey returns the environment variable that overrides a config key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadEnv collects overrides from the .env file at path (if it exists) and
// from the process environment. Process variables win over the file.
func LoadEnv(path string) (map[string]string, error) {
	fileVars := map[string]string{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fileVars, err = godotenv.Read(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
		}
	}

	values := make(map[string]string)
	for _, key := range Keys {
		name := EnvKey(key)
		if v, ok := os.LookupEnv(name); ok {
			values[key] = v
		} else if v, ok := fileVars[name]; ok {
			values[key] = v
		}
	}
	return values, nil
}

// ApplyEnv applies overrides collected by LoadEnv.
func ApplyEnv(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("env %s: %w", EnvKey(key), err)
		}
	}
	return nil
}
