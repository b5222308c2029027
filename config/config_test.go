package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privia.conf")
	writeFile(t, path, `
# comment
network = testnet
rpc.port = 9000
rpc.cors = "http://a.example, http://b.example"
log.json = yes
db.engine = LevelDB
unknown.key = ignored
`)
	values, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatal(err)
	}
	if cfg.Network != Testnet || cfg.RPC.Port != 9000 || !cfg.Log.JSON {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DB.Engine != EngineLevelDB {
		t.Errorf("db.engine = %q", cfg.DB.Engine)
	}
	if len(cfg.RPC.CORSOrigins) != 2 || cfg.RPC.CORSOrigins[1] != "http://b.example" {
		t.Errorf("rpc.cors = %v", cfg.RPC.CORSOrigins)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "missing.conf"))
	if err != nil || len(values) != 0 {
		t.Errorf("missing file = %v, %v; want empty", values, err)
	}

	path := filepath.Join(t.TempDir(), "bad.conf")
	writeFile(t, path, "no equals sign\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("expected a format error")
	}

	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, map[string]string{"rpc.port": "abc"}); err == nil {
		t.Error("expected an error for a non-numeric port")
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "PRIVIA_RPC_PORT=7000\nPRIVIA_LOG_LEVEL=debug\n")
	t.Setenv("PRIVIA_RPC_PORT", "7100")

	values, err := LoadEnv(envPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultMainnet()
	if err := ApplyEnv(cfg, values); err != nil {
		t.Fatal(err)
	}
	if cfg.RPC.Port != 7100 {
		t.Errorf("rpc.port = %d, want the process variable 7100", cfg.RPC.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug from .env", cfg.Log.Level)
	}
}

func TestEnvKey(t *testing.T) {
	if got := EnvKey("rpc.allowed"); got != "PRIVIA_RPC_ALLOWED" {
		t.Errorf("EnvKey = %s", got)
	}
}

func TestParseFlagsFrom(t *testing.T) {
	f, err := ParseFlagsFrom([]string{"--testnet", "--rpc=false", "--rpc-port", "9100", "--db-engine", "memory"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultMainnet()
	ApplyFlags(cfg, f)
	if cfg.Network != Testnet || cfg.RPC.Enabled || cfg.RPC.Port != 9100 || cfg.DB.Engine != EngineMemory {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := ParseFlagsFrom([]string{"extra", "--rpc-port", "1"}); err == nil {
		t.Error("expected an error for a flag after a positional argument")
	}
}

func TestLoadWith_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "privia.conf"), "rpc.port = 9000\nlog.level = warn\nrpc.addr = 0.0.0.0\n")
	t.Setenv("PRIVIA_RPC_PORT", "9500")
	t.Setenv("PRIVIA_LOG_LEVEL", "error")

	f, err := ParseFlagsFrom([]string{"--datadir", dir, "--log-level", "debug"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadWith(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RPC.Addr != "0.0.0.0" {
		t.Errorf("rpc.addr = %s, want file value", cfg.RPC.Addr)
	}
	if cfg.RPC.Port != 9500 {
		t.Errorf("rpc.port = %d, want env value", cfg.RPC.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %s, want flag value", cfg.Log.Level)
	}
	if _, err := os.Stat(cfg.LedgerDir()); err != nil {
		t.Errorf("ledger dir not created: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad network", func(c *Config) { c.Network = "devnet" }, false},
		{"bad engine", func(c *Config) { c.DB.Engine = "rocks" }, false},
		{"bad port", func(c *Config) { c.RPC.Port = 70000 }, false},
		{"bad allowed ip", func(c *Config) { c.RPC.AllowedIPs = []string{"localhost"} }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"negative cache", func(c *Config) { c.Staking.CacheSize = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMainnet()
			tt.modify(cfg)
			err := Validate(cfg)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDefaultTestnet(t *testing.T) {
	cfg := Default(Testnet)
	if cfg.Network != Testnet || cfg.RPC.Port == DefaultMainnet().RPC.Port {
		t.Errorf("testnet defaults = %+v", cfg)
	}
}
