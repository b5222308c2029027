package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/privia-labs/privia/internal/cycle"
	"github.com/privia-labs/privia/internal/ledger"
	"github.com/privia-labs/privia/pkg/crypto"
	"github.com/privia-labs/privia/pkg/types"
	"github.com/shopspring/decimal"
)

// Denomination constants. All ledger values are in base units.
const (
	Decimals = 8
	Coin     = 100_000_000 // 10^8 base units per token
)

// Cycle defaults.
const (
	DefaultCycleLength  = uint64(7 * 24 * time.Hour)
	DefaultVotingCycles = 4
	DefaultHivingCycles = 4
)

// Genesis holds the ledger's initial configuration. It is applied once,
// when the ledger database is empty.
type Genesis struct {
	ChainID string `json:"chain_id"`

	Token    TokenGenesis    `json:"token"`
	Cycles   CycleGenesis    `json:"cycles"`
	Discount DiscountGenesis `json:"discount"`

	// Initial allocations (account -> balance in base units)
	Alloc map[string]types.Tokens `json:"alloc"`
}

// TokenGenesis is the token's identity and fee schedule.
type TokenGenesis struct {
	Name           string       `json:"name"`
	Symbol         string       `json:"symbol"`
	Decimals       uint8        `json:"decimals"`
	TransferFee    types.Tokens `json:"transfer_fee"`
	MintingAccount string       `json:"minting_account,omitempty"`
	FeeCollector   string       `json:"fee_collector,omitempty"`
	MaxMemoLength  uint32       `json:"max_memo_length,omitempty"`
}

// CycleGenesis defines the cycle grid. Times are nanoseconds.
type CycleGenesis struct {
	Genesis      uint64 `json:"genesis"`
	Length       uint64 `json:"length"`
	VotingCycles uint64 `json:"voting_cycles"`
	HivingCycles uint64 `json:"hiving_cycles"`
}

// DiscountGenesis bounds discounts.
type DiscountGenesis struct {
	Max decimal.Decimal `json:"max"`
}

// =============================================================================
// Pre-defined genesis configurations
// =============================================================================

// MainnetGenesis returns the mainnet genesis configuration. It has no
// minting account and no allocations; operators supply a genesis file.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID: "privia-mainnet-1",
		Token: TokenGenesis{
			Name:          "Privia",
			Symbol:        "PRV",
			Decimals:      Decimals,
			TransferFee:   types.NewTokens(10_000),
			MaxMemoLength: ledger.DefaultMaxMemoLength,
		},
		Cycles: CycleGenesis{
			Genesis:      uint64(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC).UnixNano()),
			Length:       DefaultCycleLength,
			VotingCycles: DefaultVotingCycles,
			HivingCycles: DefaultHivingCycles,
		},
		Discount: DiscountGenesis{Max: decimal.NewFromInt(25)},
		Alloc:    map[string]types.Tokens{},
	}
}

// TestnetGenesis returns the testnet genesis configuration.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "privia-testnet-1"
	g.Token.Name = "Privia Testnet"
	g.Token.Symbol = "TPRV"
	g.Token.TransferFee = types.NewTokens(10)
	// Short cycles so scores move within a test session.
	g.Cycles.Length = uint64(time.Minute)
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is valid for a ledger
// started now.
func (g *Genesis) Validate() error {
	return g.ValidateAt(time.Now())
}

// ValidateAt checks that the genesis configuration is valid for a ledger
// started at start. The cycle grid must begin no later than start, since
// scores cannot be computed for times before it.
func (g *Genesis) ValidateAt(start time.Time) error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if !govalidator.IsPrintableASCII(g.Token.Name) || !govalidator.StringLength(g.Token.Name, "1", "64") {
		return fmt.Errorf("token name must be 1-64 printable ASCII characters")
	}
	if !govalidator.IsAlphanumeric(g.Token.Symbol) || !govalidator.IsUpperCase(g.Token.Symbol) ||
		!govalidator.StringLength(g.Token.Symbol, "2", "10") {
		return fmt.Errorf("token symbol must be 2-10 upper-case alphanumerics")
	}
	if g.Cycles.Length == 0 {
		return fmt.Errorf("cycles.length must be positive")
	}
	if g.Cycles.VotingCycles == 0 {
		return fmt.Errorf("cycles.voting_cycles must be positive")
	}
	if g.Cycles.Genesis > uint64(start.UnixNano()) {
		return fmt.Errorf("cycles.genesis %s is after the ledger start %s",
			time.Unix(0, int64(g.Cycles.Genesis)).UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339))
	}
	if g.Discount.Max.IsNegative() || g.Discount.Max.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("discount.max must be between 0 and 100")
	}

	cfg, err := g.LedgerConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	for s := range g.Alloc {
		a, err := types.ParseAccount(s)
		if err != nil {
			return fmt.Errorf("invalid alloc account %q: %w", s, err)
		}
		if cfg.MintingAccount != nil && a == *cfg.MintingAccount {
			return fmt.Errorf("alloc to the minting account %q", s)
		}
	}
	return nil
}

// LedgerConfig converts the token section into the ledger configuration.
func (g *Genesis) LedgerConfig() (ledger.Configuration, error) {
	cfg := ledger.Configuration{
		Name:          g.Token.Name,
		Symbol:        g.Token.Symbol,
		Decimals:      g.Token.Decimals,
		TransferFee:   g.Token.TransferFee,
		MaxMemoLength: g.Token.MaxMemoLength,
	}
	if cfg.MaxMemoLength == 0 {
		cfg.MaxMemoLength = ledger.DefaultMaxMemoLength
	}
	if g.Token.MintingAccount != "" {
		a, err := types.ParseAccount(g.Token.MintingAccount)
		if err != nil {
			return ledger.Configuration{}, fmt.Errorf("invalid minting_account: %w", err)
		}
		cfg.MintingAccount = &a
	}
	if g.Token.FeeCollector != "" {
		a, err := types.ParseAccount(g.Token.FeeCollector)
		if err != nil {
			return ledger.Configuration{}, fmt.Errorf("invalid fee_collector: %w", err)
		}
		cfg.FeeCollector = &a
	}
	return cfg, nil
}

// Allocations returns the initial balances ordered by account.
func (g *Genesis) Allocations() ([]ledger.Allocation, error) {
	allocs := make([]ledger.Allocation, 0, len(g.Alloc))
	for s, amount := range g.Alloc {
		a, err := types.ParseAccount(s)
		if err != nil {
			return nil, fmt.Errorf("invalid alloc account %q: %w", s, err)
		}
		allocs = append(allocs, ledger.Allocation{Account: a, Amount: amount})
	}
	sort.Slice(allocs, func(i, j int) bool {
		return allocs[i].Account.Compare(allocs[j].Account) < 0
	})
	return allocs, nil
}

// CycleResolver returns the resolver for the cycle grid.
func (g *Genesis) CycleResolver() (*cycle.Resolver, error) {
	return cycle.NewResolver(g.Cycles.Genesis, g.Cycles.Length)
}

// Hash returns a BLAKE3 hash of the genesis configuration.
// Used to detect a genesis that differs from the one a database was
// initialized with.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
