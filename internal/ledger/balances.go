package ledger

import (
	"errors"
	"fmt"

	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
)

// BalanceStore holds account balances and the total supply.
type BalanceStore interface {
	Balance(acct types.Account) (types.Tokens, error)
	TotalSupply() (types.Tokens, error)
	StageBalance(w storage.Writer, acct types.Account, amount types.Tokens) error
	StageTotalSupply(w storage.Writer, amount types.Tokens) error
	// ForEach visits every account with a non-zero balance in account order.
	ForEach(fn func(acct types.Account, amount types.Tokens) error) error
}

// Key layout inside the namespace:
//
//	a<account 52B> -> big-endian magnitude
//	supply         -> big-endian magnitude
var (
	prefixBalance = []byte("a")
	keySupply     = []byte("supply")
)

type dbBalanceStore struct {
	ns *storage.PrefixDB
}

// NewBalanceStore returns a BalanceStore inside the given namespace.
func NewBalanceStore(ns *storage.PrefixDB) BalanceStore {
	return &dbBalanceStore{ns: ns}
}

func balanceKey(acct types.Account) []byte {
	return append(append([]byte{}, prefixBalance...), acct.Key()...)
}

func (s *dbBalanceStore) get(key []byte) (types.Tokens, error) {
	data, err := s.ns.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Tokens{}, nil
	}
	if err != nil {
		return types.Tokens{}, err
	}
	return types.TokensFromBytes(data), nil
}

func (s *dbBalanceStore) Balance(acct types.Account) (types.Tokens, error) {
	bal, err := s.get(balanceKey(acct))
	if err != nil {
		return types.Tokens{}, fmt.Errorf("read balance of %s: %w", acct, err)
	}
	return bal, nil
}

func (s *dbBalanceStore) TotalSupply() (types.Tokens, error) {
	supply, err := s.get(keySupply)
	if err != nil {
		return types.Tokens{}, fmt.Errorf("read total supply: %w", err)
	}
	return supply, nil
}

func (s *dbBalanceStore) StageBalance(w storage.Writer, acct types.Account, amount types.Tokens) error {
	if amount.IsZero() {
		return s.ns.Wrap(w).Delete(balanceKey(acct))
	}
	return s.ns.Wrap(w).Put(balanceKey(acct), amount.Bytes())
}

func (s *dbBalanceStore) StageTotalSupply(w storage.Writer, amount types.Tokens) error {
	return s.ns.Wrap(w).Put(keySupply, amount.Bytes())
}

func (s *dbBalanceStore) ForEach(fn func(types.Account, types.Tokens) error) error {
	return s.ns.ForEach(prefixBalance, func(key, value []byte) error {
		acct, err := types.AccountFromKey(key[len(prefixBalance):])
		if err != nil {
			return err
		}
		return fn(acct, types.TokensFromBytes(value))
	})
}
