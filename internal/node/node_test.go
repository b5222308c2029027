package node

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/privia-labs/privia/config"
	"github.com/privia-labs/privia/internal/ledger"
	"github.com/privia-labs/privia/internal/rpc"
	"github.com/privia-labs/privia/internal/rpcclient"
	"github.com/privia-labs/privia/pkg/crypto"
	"github.com/privia-labs/privia/pkg/types"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.privia/genesis.json", filepath.Join(home, ".privia/genesis.json")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// testGenesis writes a testnet genesis minting from minter and funding user.
func testGenesis(t *testing.T, dir string, minter, user *crypto.PrivateKey) string {
	t.Helper()
	types.SetAddressHRP(types.TestnetHRP)
	g := config.TestnetGenesis()
	g.Token.MintingAccount = types.NewAccount(minter.Address()).String()
	g.Alloc = map[string]types.Tokens{
		types.NewAccount(user.Address()).String(): types.NewTokens(1000),
	}
	path := filepath.Join(dir, "genesis.json")
	if err := g.Save(path); err != nil {
		t.Fatalf("save genesis: %v", err)
	}
	return path
}

func testConfig(t *testing.T, engine string) *config.Config {
	t.Helper()
	cfg := config.DefaultTestnet()
	cfg.DataDir = t.TempDir()
	cfg.DB.Engine = engine
	cfg.RPC.Port = 0
	cfg.Log.Level = "error"
	return cfg
}

func generateKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return k
}

func TestNode_ServesLedgerOverRPC(t *testing.T) {
	minter, user := generateKey(t), generateKey(t)
	cfg := testConfig(t, config.EngineMemory)
	cfg.GenesisFile = testGenesis(t, cfg.DataDir, minter, user)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Stop()

	client := rpcclient.New("http://" + n.RPCAddr())

	sym, err := client.Symbol()
	if err != nil {
		t.Fatalf("Symbol: %v", err)
	}
	if sym != "TPRV" {
		t.Errorf("symbol = %q, want TPRV", sym)
	}

	userAcct := types.NewAccount(user.Address())
	bal, err := client.BalanceOf(userAcct)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !bal.Equal(types.NewTokens(1000)) {
		t.Errorf("balance = %s, want 1000", bal)
	}

	other := types.NewAccount(types.Address{9})
	if _, err := client.Transfer(user, ledger.TransferArgs{To: other, Amount: types.NewTokens(100)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	bal, err = client.BalanceOf(userAcct)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	// 1000 - 100 - fee 10
	if !bal.Equal(types.NewTokens(890)) {
		t.Errorf("balance after transfer = %s, want 890", bal)
	}

	// Staking log is fed by the ledger: genesis mint plus the transfer.
	entries, err := client.StakingLog(userAcct, nil, nil)
	if err != nil {
		t.Fatalf("StakingLog: %v", err)
	}
	if len(entries.Entries) != 2 {
		t.Errorf("staking entries = %d, want 2", len(entries.Entries))
	}
}

func TestNode_RPCDisabled(t *testing.T) {
	cfg := testConfig(t, config.EngineMemory)
	cfg.RPC.Enabled = false

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if addr := n.RPCAddr(); addr != "" {
		t.Errorf("RPCAddr = %q, want empty", addr)
	}
	if !n.Ledger().Initialized() {
		t.Error("ledger not initialized from built-in genesis")
	}
	n.Stop()
	n.Stop()
}

func TestNode_ReopenKeepsState(t *testing.T) {
	minter, user := generateKey(t), generateKey(t)
	cfg := testConfig(t, config.EngineBadger)
	cfg.RPC.Enabled = false
	cfg.GenesisFile = testGenesis(t, cfg.DataDir, minter, user)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	other := types.NewAccount(types.Address{7})
	if _, err := n.Ledger().Transfer(user.Address(), ledger.TransferArgs{To: other, Amount: types.NewTokens(50)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	length := n.Ledger().LogLength()
	n.Stop()

	n, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer n.Stop()
	if got := n.Ledger().LogLength(); got != length {
		t.Errorf("log length after reopen = %d, want %d", got, length)
	}
	bal, err := n.Ledger().BalanceOf(other)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !bal.Equal(types.NewTokens(50)) {
		t.Errorf("balance after reopen = %s, want 50", bal)
	}
}

func TestNode_GenesisMismatch(t *testing.T) {
	minter, user := generateKey(t), generateKey(t)
	cfg := testConfig(t, config.EngineBadger)
	cfg.RPC.Enabled = false
	cfg.GenesisFile = testGenesis(t, cfg.DataDir, minter, user)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n.Stop()

	// Same data dir, different genesis.
	cfg.GenesisFile = ""
	if _, err := New(cfg); !errors.Is(err, ErrGenesisMismatch) {
		t.Fatalf("New with other genesis: got %v, want ErrGenesisMismatch", err)
	}
}

func postRequest(t *testing.T, addr string, req *rpc.Request) rpc.Response {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post("http://"+addr, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out rpc.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestNode_SignedRequestNotReplayedAfterRestart(t *testing.T) {
	minter, user := generateKey(t), generateKey(t)
	cfg := testConfig(t, config.EngineBadger)
	cfg.GenesisFile = testGenesis(t, cfg.DataDir, minter, user)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	target := types.NewAccount(types.Address{5})
	req := &rpc.Request{JSONRPC: "2.0", Method: "ledger_splitBalance", ID: 1}
	req.Params, _ = json.Marshal(rpc.SplitParam{Target: target})
	if err := rpc.SignRequest(req, n.Genesis().ChainID, user, uint64(time.Now().UnixNano())); err != nil {
		t.Fatal(err)
	}
	if resp := postRequest(t, n.RPCAddr(), req); resp.Error != nil {
		t.Fatalf("first send: %+v", resp.Error)
	}
	n.Stop()

	n, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Stop()

	if resp := postRequest(t, n.RPCAddr(), req); resp.Error == nil || resp.Error.Code != rpc.CodeUnauthorized {
		t.Errorf("replay after restart error = %+v, want code %d", resp.Error, rpc.CodeUnauthorized)
	}
	bal, err := n.Ledger().BalanceOf(target)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !bal.Equal(types.NewTokens(500)) {
		t.Errorf("target balance = %s, want 500", bal)
	}
}
