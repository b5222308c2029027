package staking

import (
	"fmt"

	"github.com/privia-labs/privia/internal/cycle"
	"github.com/privia-labs/privia/pkg/types"
)

// CycleBalance is the lowest balance observed during one cycle that had
// activity.
type CycleBalance struct {
	Cycle uint64
	Min   types.Tokens
}

// Scorer turns a time-ordered slice of one account's log into a score for
// the target cycle.
type Scorer interface {
	Score(entries []Entry, target uint64) (types.Tokens, error)
}

// LinearMinScorer scores an account by the area under its worst balance
// per cycle, counted in whole cycles up to the start of the target cycle.
type LinearMinScorer struct {
	cycles *cycle.Resolver
}

// NewLinearMinScorer returns a scorer that buckets entries with cycles.
func NewLinearMinScorer(cycles *cycle.Resolver) *LinearMinScorer {
	return &LinearMinScorer{cycles: cycles}
}

// Score implements Scorer.
func (s *LinearMinScorer) Score(entries []Entry, target uint64) (types.Tokens, error) {
	if len(entries) == 0 {
		return types.Tokens{}, nil
	}
	buckets, err := s.Buckets(entries)
	if err != nil {
		return types.Tokens{}, err
	}
	return Integrate(buckets, target), nil
}

// Buckets groups entries by cycle, keeping the minimum current amount of
// each cycle. Entries must be in timestamp order.
func (s *LinearMinScorer) Buckets(entries []Entry) ([]CycleBalance, error) {
	buckets := make([]CycleBalance, 0, len(entries))
	for _, e := range entries {
		n, err := s.cycles.Number(e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("resolve cycle of entry at %d: %w", e.Timestamp, err)
		}
		last := len(buckets) - 1
		if last < 0 || n > buckets[last].Cycle {
			buckets = append(buckets, CycleBalance{Cycle: n, Min: e.CurrentAmount})
			continue
		}
		if e.CurrentAmount.Cmp(buckets[last].Min) < 0 {
			buckets[last].Min = e.CurrentAmount
		}
	}
	return buckets, nil
}

// Integrate accrues bucket values over cycles. A rise counts from the cycle
// after the rising bucket; a fall or a repeat counts the old value through
// the bucket's own cycle.
func Integrate(buckets []CycleBalance, target uint64) types.Tokens {
	var sum types.Tokens
	if len(buckets) == 0 {
		return sum
	}
	lastChange := buckets[0].Cycle + 1
	lastValue := buckets[0].Min

	for _, b := range buckets[1:] {
		if b.Min.Cmp(lastValue) > 0 {
			sum = sum.Add(lastValue.MulUint64(span(lastChange, b.Cycle+1)))
			lastChange = b.Cycle + 1
		} else {
			sum = sum.Add(lastValue.MulUint64(span(lastChange, b.Cycle)))
			lastChange = b.Cycle
		}
		lastValue = b.Min
	}
	return sum.Add(lastValue.MulUint64(span(lastChange, target)))
}

// span is to - from, or zero when to does not follow from.
func span(from, to uint64) uint64 {
	if to <= from {
		return 0
	}
	return to - from
}
