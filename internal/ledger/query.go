package ledger

import (
	"github.com/privia-labs/privia/pkg/types"
)

// Metadata keys.
const (
	MetaName         = "icrc1:name"
	MetaSymbol       = "icrc1:symbol"
	MetaDecimals     = "icrc1:decimals"
	MetaFee          = "icrc1:fee"
	MetaFeeCollector = "privia:fee_collector"
)

// MetadataValue holds exactly one of its fields.
type MetadataValue struct {
	Text *string       `json:"Text,omitempty"`
	Nat  *types.Tokens `json:"Nat,omitempty"`
}

func (v MetadataValue) String() string {
	switch {
	case v.Text != nil:
		return *v.Text
	case v.Nat != nil:
		return v.Nat.String()
	default:
		return ""
	}
}

// MetadataEntry is one key/value pair of Metadata.
type MetadataEntry struct {
	Key   string        `json:"key"`
	Value MetadataValue `json:"value"`
}

// Standard is a supported token standard.
type Standard struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SupportedStandards lists the standards the ledger implements.
func SupportedStandards() []Standard {
	return []Standard{
		{Name: "ICRC-1", URL: "https://github.com/dfinity/ICRC-1/tree/main/standards/ICRC-1"},
		{Name: "ICRC-2", URL: "https://github.com/dfinity/ICRC-1/tree/main/standards/ICRC-2"},
	}
}

// Config returns the current configuration.
func (l *Ledger) Config() Configuration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// Name returns the token name.
func (l *Ledger) Name() string { return l.Config().Name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.Config().Symbol }

// Decimals returns the token decimals.
func (l *Ledger) Decimals() uint8 { return l.Config().Decimals }

// Fee returns the transfer fee.
func (l *Ledger) Fee() types.Tokens { return l.Config().TransferFee }

// MintingAccount returns the minting account, if any.
func (l *Ledger) MintingAccount() *types.Account { return l.Config().MintingAccount }

// Metadata returns the ordered metadata list.
func (l *Ledger) Metadata() []MetadataEntry {
	cfg := l.Config()
	text := func(s string) MetadataValue { return MetadataValue{Text: &s} }
	nat := func(t types.Tokens) MetadataValue { return MetadataValue{Nat: &t} }

	md := []MetadataEntry{
		{Key: MetaName, Value: text(cfg.Name)},
		{Key: MetaSymbol, Value: text(cfg.Symbol)},
		{Key: MetaDecimals, Value: nat(types.NewTokens(uint64(cfg.Decimals)))},
		{Key: MetaFee, Value: nat(cfg.TransferFee)},
	}
	if cfg.FeeCollector != nil {
		md = append(md, MetadataEntry{Key: MetaFeeCollector, Value: text(cfg.FeeCollector.String())})
	}
	return md
}

// BalanceOf returns the balance of acct.
func (l *Ledger) BalanceOf(acct types.Account) (types.Tokens, error) {
	return l.stores.Balances.Balance(acct)
}

// TotalSupply returns the total supply.
func (l *Ledger) TotalSupply() (types.Tokens, error) {
	return l.stores.Balances.TotalSupply()
}

// Holders visits every account with a non-zero balance.
func (l *Ledger) Holders(fn func(types.Account, types.Tokens) error) error {
	return l.stores.Balances.ForEach(fn)
}

// LogLength returns the number of recorded transactions.
func (l *Ledger) LogLength() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// Transaction returns the transaction at pos.
func (l *Ledger) Transaction(pos uint64) (*Transaction, error) {
	return l.stores.Transactions.Get(pos)
}

// Transactions returns up to length transactions starting at start.
func (l *Ledger) Transactions(start, length uint64) ([]*Transaction, error) {
	txs := make([]*Transaction, 0)
	if length == 0 {
		return txs, nil
	}
	err := l.stores.Transactions.Scan(start, func(_ uint64, tx *Transaction) error {
		txs = append(txs, tx)
		if uint64(len(txs)) >= length {
			return errScanDone
		}
		return nil
	})
	if err != nil && err != errScanDone {
		return nil, err
	}
	return txs, nil
}
