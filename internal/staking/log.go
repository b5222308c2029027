// Package staking keeps the append-only per-account balance history
// written by the ledger and turns it into staking scores and rewards.
package staking

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
)

// Entry records one balance change of an account.
type Entry struct {
	Account        types.Account `cbor:"1,keyasint" json:"account"`
	Timestamp      uint64        `cbor:"2,keyasint" json:"timestamp"`
	PreviousAmount types.Tokens  `cbor:"3,keyasint" json:"previous_amount"`
	CurrentAmount  types.Tokens  `cbor:"4,keyasint" json:"current_amount"`
}

// Key layout inside the namespace:
//
//	e/<account 52B>/<timestamp 8B>/<seq 8B> -> CBOR Entry
var prefixEntry = []byte("e/")

var errStop = errors.New("stop")

// Store is the staking log. Entries of one account are kept in timestamp
// order; seq breaks ties between entries with equal timestamps.
type Store struct {
	ns *storage.PrefixDB
}

// NewStore creates a staking log inside the given namespace.
func NewStore(ns *storage.PrefixDB) *Store {
	return &Store{ns: ns}
}

func accountPrefix(acct types.Account) []byte {
	k := make([]byte, 0, len(prefixEntry)+types.AccountKeySize+1)
	k = append(k, prefixEntry...)
	k = append(k, acct.Key()...)
	return append(k, '/')
}

func entryKey(acct types.Account, ts, seq uint64) []byte {
	k := accountPrefix(acct)
	k = binary.BigEndian.AppendUint64(k, ts)
	return binary.BigEndian.AppendUint64(k, seq)
}

// Stage writes e into w, which must write to the database this store's
// namespace was created on (typically a batch).
func (s *Store) Stage(w storage.Writer, seq uint64, e Entry) error {
	return put(s.ns.Wrap(w), seq, e)
}

// Append writes e directly.
func (s *Store) Append(seq uint64, e Entry) error {
	return put(s.ns, seq, e)
}

func put(w storage.Writer, seq uint64, e Entry) error {
	data, err := cbor.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode staking entry: %w", err)
	}
	return w.Put(entryKey(e.Account, e.Timestamp, seq), data)
}

// Range returns the entries of acct with from <= timestamp < to.
func (s *Store) Range(acct types.Account, from, to uint64) ([]Entry, error) {
	entries := make([]Entry, 0)
	if to <= from {
		return entries, nil
	}
	prefix := accountPrefix(acct)
	err := s.ns.ForEach(prefix, func(key, value []byte) error {
		ts := binary.BigEndian.Uint64(key[len(prefix):])
		if ts < from {
			return nil
		}
		if ts >= to {
			return errStop
		}
		var e Entry
		if err := cbor.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode staking entry: %w", err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return entries, nil
}

// LatestBefore returns the last entry of acct with timestamp < ts, or nil.
func (s *Store) LatestBefore(acct types.Account, ts uint64) (*Entry, error) {
	var latest []byte
	prefix := accountPrefix(acct)
	err := s.ns.ForEach(prefix, func(key, value []byte) error {
		if binary.BigEndian.Uint64(key[len(prefix):]) >= ts {
			return errStop
		}
		latest = value
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}
	var e Entry
	if err := cbor.Unmarshal(latest, &e); err != nil {
		return nil, fmt.Errorf("decode staking entry: %w", err)
	}
	return &e, nil
}
