package staking

import (
	"errors"
	"testing"

	"github.com/privia-labs/privia/pkg/types"
)

func TestRewards(t *testing.T) {
	s := newTestStore()
	a := types.NewAccount(types.Address{0x01})
	appendEntries(t, s,
		Entry{Account: a, Timestamp: 10, PreviousAmount: tok(0), CurrentAmount: tok(100)},
		Entry{Account: a, Timestamp: 20, PreviousAmount: tok(100), CurrentAmount: tok(50)},
	)

	tests := []struct {
		name     string
		from, to uint64
		want     uint64
	}{
		{"spans both changes", 0, 30, 0*10 + 100*10 + 50*10},
		{"starts mid history", 15, 25, 100*5 + 50*5},
		{"no entries in range uses latest before", 21, 31, 50 * 10},
		{"before any history", 0, 5, 0},
		{"empty range", 25, 25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rewards(s, a, tt.from, tt.to)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tok(tt.want)) {
				t.Errorf("Rewards(%d, %d) = %s, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}

	if _, err := Rewards(s, a, 10, 5); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("inverted range error = %v", err)
	}
}
