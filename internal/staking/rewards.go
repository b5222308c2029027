package staking

import (
	"errors"
	"fmt"

	"github.com/privia-labs/privia/pkg/types"
)

// ErrInvalidRange is returned when a time range ends before it starts.
var ErrInvalidRange = errors.New("range end precedes start")

// LogSource is the read side of the staking log.
type LogSource interface {
	Range(acct types.Account, from, to uint64) ([]Entry, error)
	LatestBefore(acct types.Account, ts uint64) (*Entry, error)
}

// Rewards integrates the balance of acct over time in [from, to]. The
// result is in token-nanoseconds.
func Rewards(src LogSource, acct types.Account, from, to uint64) (types.Tokens, error) {
	if to < from {
		return types.Tokens{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, from, to)
	}
	entries, err := src.Range(acct, from, to)
	if err != nil {
		return types.Tokens{}, err
	}

	if len(entries) == 0 {
		latest, err := src.LatestBefore(acct, from)
		if err != nil || latest == nil {
			return types.Tokens{}, err
		}
		return latest.CurrentAmount.MulUint64(to - from), nil
	}

	var sum types.Tokens
	// Before the first change the account held what that change started from.
	sum = sum.Add(entries[0].PreviousAmount.MulUint64(span(from, entries[0].Timestamp)))
	for i := 1; i < len(entries); i++ {
		prev := entries[i-1]
		sum = sum.Add(prev.CurrentAmount.MulUint64(span(prev.Timestamp, entries[i].Timestamp)))
	}
	last := entries[len(entries)-1]
	return sum.Add(last.CurrentAmount.MulUint64(span(last.Timestamp, to))), nil
}
