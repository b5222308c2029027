package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
	"github.com/willf/bloom"
)

// TransactionLog is the append-only transaction log together with the
// fingerprint index used for duplicate detection.
type TransactionLog interface {
	Len() (uint64, error)
	Get(pos uint64) (*Transaction, error)
	// Scan visits transactions from start onward in log order.
	Scan(start uint64, fn func(pos uint64, tx *Transaction) error) error
	// FindDuplicate returns the position recorded for fingerprint fp.
	FindDuplicate(fp types.Hash) (pos uint64, found bool, err error)
	// StageAppend writes tx at pos, which must equal the current length,
	// and indexes fp when it is non-nil. Nothing is visible until w commits.
	StageAppend(w storage.Writer, pos uint64, tx *Transaction, fp *types.Hash) error
}

// Key layout inside the namespace:
//
//	n           -> uint64 log length
//	t<pos 8B>   -> CBOR Transaction
//	f<hash 32B> -> uint64 position
var (
	keyLength   = []byte("n")
	prefixTx    = []byte("t")
	prefixPrint = []byte("f")
)

// Bloom sizing for the fingerprint prefilter.
const (
	bloomCapacity = 1 << 20
	bloomFPRate   = 0.001
)

type dbTransactionLog struct {
	ns *storage.PrefixDB

	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewTransactionLog opens the transaction log inside the given namespace
// and loads existing fingerprints into the bloom prefilter.
func NewTransactionLog(ns *storage.PrefixDB) (TransactionLog, error) {
	l := &dbTransactionLog{
		ns:     ns,
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPRate),
	}
	err := ns.ForEach(prefixPrint, func(key, _ []byte) error {
		l.filter.Add(key[len(prefixPrint):])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load fingerprint index: %w", err)
	}
	return l, nil
}

func txKey(pos uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, prefixTx...), pos)
}

func printKey(fp types.Hash) []byte {
	return append(append([]byte{}, prefixPrint...), fp[:]...)
}

func (l *dbTransactionLog) Len() (uint64, error) {
	data, err := l.ns.Get(keyLength)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read log length: %w", err)
	}
	return binary.BigEndian.Uint64(data), nil
}

func (l *dbTransactionLog) Get(pos uint64) (*Transaction, error) {
	data, err := l.ns.Get(txKey(pos))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTxNotFound, pos)
	}
	if err != nil {
		return nil, fmt.Errorf("read transaction %d: %w", pos, err)
	}
	return decodeTx(data)
}

func decodeTx(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := cbor.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &tx, nil
}

func (l *dbTransactionLog) Scan(start uint64, fn func(uint64, *Transaction) error) error {
	return l.ns.ForEach(prefixTx, func(key, value []byte) error {
		pos := binary.BigEndian.Uint64(key[len(prefixTx):])
		if pos < start {
			return nil
		}
		tx, err := decodeTx(value)
		if err != nil {
			return err
		}
		return fn(pos, tx)
	})
}

func (l *dbTransactionLog) FindDuplicate(fp types.Hash) (uint64, bool, error) {
	l.mu.Lock()
	maybe := l.filter.Test(fp[:])
	l.mu.Unlock()
	if !maybe {
		return 0, false, nil
	}
	data, err := l.ns.Get(printKey(fp))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read fingerprint: %w", err)
	}
	return binary.BigEndian.Uint64(data), true, nil
}

func (l *dbTransactionLog) StageAppend(w storage.Writer, pos uint64, tx *Transaction, fp *types.Hash) error {
	data, err := cbor.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	nw := l.ns.Wrap(w)
	if err := nw.Put(txKey(pos), data); err != nil {
		return err
	}
	if err := nw.Put(keyLength, binary.BigEndian.AppendUint64(nil, pos+1)); err != nil {
		return err
	}
	if fp != nil {
		if err := nw.Put(printKey(*fp), binary.BigEndian.AppendUint64(nil, pos)); err != nil {
			return err
		}
		// A filter hit for an uncommitted print only costs a lookup.
		l.mu.Lock()
		l.filter.Add(fp[:])
		l.mu.Unlock()
	}
	return nil
}
