package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
)

// Protocol constants.
const (
	DefaultMaxMemoLength = 32
	PermittedDrift       = uint64(60 * time.Second)
	TransactionWindow    = uint64(24 * time.Hour)
)

// Configuration is the ledger's configuration cell.
type Configuration struct {
	Name           string         `cbor:"1,keyasint" json:"name"`
	Symbol         string         `cbor:"2,keyasint" json:"symbol"`
	Decimals       uint8          `cbor:"3,keyasint" json:"decimals"`
	TransferFee    types.Tokens   `cbor:"4,keyasint" json:"transfer_fee"`
	MintingAccount *types.Account `cbor:"5,keyasint,omitempty" json:"minting_account,omitempty"`
	FeeCollector   *types.Account `cbor:"6,keyasint,omitempty" json:"fee_collector,omitempty"`
	MaxMemoLength  uint32         `cbor:"7,keyasint" json:"max_memo_length"`
}

// Validate checks the configuration for internal consistency.
func (c Configuration) Validate() error {
	if c.Name == "" {
		return errors.New("token name is required")
	}
	if c.Symbol == "" {
		return errors.New("token symbol is required")
	}
	if c.MaxMemoLength == 0 {
		return errors.New("max memo length must be positive")
	}
	if c.MintingAccount != nil && c.FeeCollector != nil && *c.MintingAccount == *c.FeeCollector {
		return errors.New("fee collector cannot be the minting account")
	}
	return nil
}

// ConfigUpdate is an administrative change to the configuration. Nil
// fields are left unchanged.
type ConfigUpdate struct {
	TransferFee       *types.Tokens  `json:"transfer_fee,omitempty"`
	FeeCollector      *types.Account `json:"fee_collector,omitempty"`
	ClearFeeCollector bool           `json:"clear_fee_collector,omitempty"`
	MaxMemoLength     *uint32        `json:"max_memo_length,omitempty"`
}

func (u ConfigUpdate) apply(c Configuration) Configuration {
	if u.TransferFee != nil {
		c.TransferFee = *u.TransferFee
	}
	if u.ClearFeeCollector {
		c.FeeCollector = nil
	}
	if u.FeeCollector != nil {
		fc := *u.FeeCollector
		c.FeeCollector = &fc
	}
	if u.MaxMemoLength != nil {
		c.MaxMemoLength = *u.MaxMemoLength
	}
	return c
}

// ConfigStore persists the configuration cell.
type ConfigStore interface {
	// Load returns the stored configuration; ok is false before genesis.
	Load() (cfg Configuration, ok bool, err error)
	Stage(w storage.Writer, cfg Configuration) error
}

var keyConfig = []byte("config")

type dbConfigStore struct {
	ns *storage.PrefixDB
}

// NewConfigStore returns a ConfigStore inside the given namespace.
func NewConfigStore(ns *storage.PrefixDB) ConfigStore {
	return &dbConfigStore{ns: ns}
}

func (s *dbConfigStore) Load() (Configuration, bool, error) {
	data, err := s.ns.Get(keyConfig)
	if errors.Is(err, storage.ErrNotFound) {
		return Configuration{}, false, nil
	}
	if err != nil {
		return Configuration{}, false, fmt.Errorf("load config: %w", err)
	}
	var cfg Configuration
	if err := cbor.Unmarshal(data, &cfg); err != nil {
		return Configuration{}, false, fmt.Errorf("decode config: %w", err)
	}
	return cfg, true, nil
}

func (s *dbConfigStore) Stage(w storage.Writer, cfg Configuration) error {
	data, err := cbor.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return s.ns.Wrap(w).Put(keyConfig, data)
}
