// Package node wires the ledger, the staking service and the RPC server
// into a node that can be embedded in any binary.
package node

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/privia-labs/privia/config"
	"github.com/privia-labs/privia/internal/discount"
	"github.com/privia-labs/privia/internal/ledger"
	klog "github.com/privia-labs/privia/internal/log"
	"github.com/privia-labs/privia/internal/rpc"
	"github.com/privia-labs/privia/internal/staking"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
	"github.com/rs/zerolog"
)

// ErrGenesisMismatch is returned when the database was initialized with a
// different genesis than the one configured.
var ErrGenesisMismatch = errors.New("genesis does not match the database")

var (
	// NamespaceMeta holds node bookkeeping outside the ledger's stores.
	NamespaceMeta = []byte("m/")
	// NamespaceNonces holds the digests of accepted signed RPC requests.
	NamespaceNonces = []byte("n/")
)

var keyGenesisHash = []byte("genesis")

// Node is a fully-initialized ledger node.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis
	logger  zerolog.Logger

	// Core
	db       storage.DB
	ledger   *ledger.Ledger
	staking  *staking.Service
	discount *discount.Calculator

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates and initializes a new Node: logger, genesis, storage,
// ledger, staking service and RPC server. A fresh database is initialized
// from the genesis. Call Start to begin serving.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Set address HRP ──────────────────────────────────────────
	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	// ── 2. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "privia.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	// ── 3. Genesis ──────────────────────────────────────────────────
	genesis, err := loadGenesis(cfg)
	if err != nil {
		return nil, err
	}
	genesisHash, err := genesis.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash genesis: %w", err)
	}
	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Str("symbol", genesis.Token.Symbol).
		Str("genesis_hash", genesisHash.String()).
		Msg("Starting Privia node")

	// ── 4. Open storage ─────────────────────────────────────────────
	if err := os.MkdirAll(cfg.LedgerDir(), 0700); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := storage.Open(cfg.DB.Engine, cfg.LedgerDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.LedgerDir(), err)
	}
	logger.Info().Str("engine", cfg.DB.Engine).Str("path", cfg.LedgerDir()).Msg("Database opened")

	n := &Node{cfg: cfg, genesis: genesis, logger: logger, db: db}
	if err := n.setup(genesisHash); err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

func (n *Node) setup(genesisHash types.Hash) error {
	// ── 5. Ledger ───────────────────────────────────────────────────
	stakes := staking.NewStore(storage.NewPrefixDB(n.db, ledger.NamespaceStaking))
	stores, err := ledger.OpenStores(n.db, stakes)
	if err != nil {
		return fmt.Errorf("open ledger stores: %w", err)
	}
	l, err := ledger.New(n.db, stores, ledger.SystemClock{})
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	if err := n.applyGenesis(l, genesisHash); err != nil {
		return err
	}
	n.ledger = l

	// ── 6. Staking service ──────────────────────────────────────────
	cycles, err := n.genesis.CycleResolver()
	if err != nil {
		return fmt.Errorf("cycle resolver: %w", err)
	}
	svc, err := staking.NewService(stakes, cycles, staking.Options{
		VotingCycles: n.genesis.Cycles.VotingCycles,
		CacheSize:    n.cfg.Staking.CacheSize,
	})
	if err != nil {
		return fmt.Errorf("create staking service: %w", err)
	}
	l.Subscribe(svc.Invalidate)
	n.staking = svc

	// ── 7. Discount ─────────────────────────────────────────────────
	calc, err := discount.NewCalculator(n.genesis.Discount.Max)
	if err != nil {
		return fmt.Errorf("create discount calculator: %w", err)
	}
	n.discount = calc

	// ── 8. RPC server ───────────────────────────────────────────────
	if n.cfg.RPC.Enabled {
		addr := net.JoinHostPort(n.cfg.RPC.Addr, strconv.Itoa(n.cfg.RPC.Port))
		n.rpcServer = rpc.New(addr, rpc.Backend{
			Ledger:   l,
			Staking:  svc,
			Discount: calc,
			ChainID:  n.genesis.ChainID,
			Nonces:   storage.NewPrefixDB(n.db, NamespaceNonces),
		}, n.cfg.RPC)
	}
	return nil
}

// applyGenesis initializes an empty ledger, or checks that an initialized
// one was created from the same genesis.
func (n *Node) applyGenesis(l *ledger.Ledger, genesisHash types.Hash) error {
	meta := storage.NewPrefixDB(n.db, NamespaceMeta)
	stored, err := meta.Get(keyGenesisHash)
	switch {
	case err == nil:
		if !bytes.Equal(stored, genesisHash[:]) {
			return fmt.Errorf("%w: database %x, configured %s", ErrGenesisMismatch, stored, genesisHash)
		}
	case errors.Is(err, storage.ErrNotFound):
		if err := meta.Put(keyGenesisHash, genesisHash[:]); err != nil {
			return fmt.Errorf("store genesis hash: %w", err)
		}
	default:
		return fmt.Errorf("read genesis hash: %w", err)
	}

	if l.Initialized() {
		n.logger.Info().Uint64("log_length", l.LogLength()).Msg("Ledger loaded")
		return nil
	}
	cfg, err := n.genesis.LedgerConfig()
	if err != nil {
		return err
	}
	allocs, err := n.genesis.Allocations()
	if err != nil {
		return err
	}
	if err := l.Initialize(cfg, allocs); err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	n.logger.Info().Int("allocations", len(allocs)).Msg("Ledger initialized from genesis")
	return nil
}

// Start begins serving RPC.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return errors.New("node already started")
	}
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc: %w", err)
		}
	}
	n.started = true
	n.logger.Info().Msg("Node started")
	return nil
}

// Stop shuts the node down and closes the database. It is safe to call
// more than once.
func (n *Node) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return
	}
	n.stopped = true
	if n.rpcServer != nil && n.started {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if err := n.db.Close(); err != nil {
		n.logger.Warn().Err(err).Msg("Database close")
	}
	n.logger.Info().Msg("Node stopped")
}

// RPCAddr returns the bound RPC address, or "" when RPC is disabled.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Genesis returns the genesis the node runs with.
func (n *Node) Genesis() *config.Genesis { return n.genesis }

// Ledger returns the node's ledger.
func (n *Node) Ledger() *ledger.Ledger { return n.ledger }

// Staking returns the node's staking service.
func (n *Node) Staking() *staking.Service { return n.staking }
