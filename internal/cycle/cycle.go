// Package cycle maps timestamps onto fixed-length epochs ("cycles") that
// tile the timeline from a genesis instant.
package cycle

import (
	"errors"
	"fmt"
)

var (
	ErrNoGenesis       = errors.New("cycle genesis not set")
	ErrZeroLength      = errors.New("cycle length must be positive")
	ErrBeforeGenesis   = errors.New("timestamp precedes genesis")
	ErrInvalidNumber   = errors.New("cycle numbers start at 1")
	ErrInvalidDivider  = errors.New("divider must be positive")
	ErrCycleOutOfRange = errors.New("cycle end overflows timestamp range")
)

// Cycle is one epoch. Start is exclusive and End inclusive when resolving
// timestamps: a timestamp equal to End belongs to this cycle.
type Cycle struct {
	Number uint64 `json:"number"`
	Start  uint64 `json:"start"`
	End    uint64 `json:"end"`
}

// Resolver computes cycles. Timestamps and lengths are nanoseconds.
type Resolver struct {
	genesis uint64
	length  uint64
	ready   bool
}

// NewResolver returns a resolver for cycles of length ns starting at genesis.
func NewResolver(genesis, length uint64) (*Resolver, error) {
	if length == 0 {
		return nil, ErrZeroLength
	}
	return &Resolver{genesis: genesis, length: length, ready: true}, nil
}

// Genesis returns the genesis instant.
func (r *Resolver) Genesis() uint64 { return r.genesis }

// Length returns the cycle length.
func (r *Resolver) Length() uint64 { return r.length }

// Resolve returns the cycle containing ts. A timestamp exactly on a
// boundary belongs to the cycle that ends there. The genesis instant itself
// resolves to cycle 0, which has no Details.
func (r *Resolver) Resolve(ts uint64) (Cycle, error) {
	if r == nil || !r.ready {
		return Cycle{}, ErrNoGenesis
	}
	if ts < r.genesis {
		return Cycle{}, fmt.Errorf("%w: %d < %d", ErrBeforeGenesis, ts, r.genesis)
	}
	elapsed := ts - r.genesis
	n := elapsed / r.length
	if elapsed%r.length != 0 {
		n++
	}
	if n == 0 {
		return Cycle{Number: 0, Start: r.genesis, End: r.genesis}, nil
	}
	return r.Details(n)
}

// Number is Resolve without the boundaries.
func (r *Resolver) Number(ts uint64) (uint64, error) {
	c, err := r.Resolve(ts)
	if err != nil {
		return 0, err
	}
	return c.Number, nil
}

// Details returns the boundaries of cycle n (n >= 1).
func (r *Resolver) Details(n uint64) (Cycle, error) {
	if r == nil || !r.ready {
		return Cycle{}, ErrNoGenesis
	}
	if n == 0 {
		return Cycle{}, ErrInvalidNumber
	}
	offset := (n - 1) * r.length
	if (n-1) != 0 && offset/(n-1) != r.length {
		return Cycle{}, ErrCycleOutOfRange
	}
	start := r.genesis + offset
	end := start + r.length
	if start < r.genesis || end < start {
		return Cycle{}, ErrCycleOutOfRange
	}
	return Cycle{Number: n, Start: start, End: end}, nil
}

// NextAligned returns the smallest multiple of divider strictly greater
// than n. When n is already a multiple the result is n + divider, so the
// returned cycle is always in the future.
func NextAligned(n, divider uint64) (uint64, error) {
	if divider == 0 {
		return 0, ErrInvalidDivider
	}
	return n + divider - n%divider, nil
}
