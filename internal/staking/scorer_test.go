package staking

import (
	"errors"
	"testing"
	"time"

	"github.com/privia-labs/privia/internal/cycle"
	"github.com/privia-labs/privia/pkg/types"
)

const cycleLen = uint64(10 * time.Second)

func tok(n uint64) types.Tokens { return types.NewTokens(n) }

func testResolver(t *testing.T) *cycle.Resolver {
	t.Helper()
	r, err := cycle.NewResolver(0, cycleLen)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// at returns a timestamp inside cycle n.
func at(n uint64) uint64 { return (n-1)*cycleLen + cycleLen/2 }

func TestIntegrate_WorkedExample(t *testing.T) {
	buckets := []CycleBalance{
		{Cycle: 5, Min: tok(7)},
		{Cycle: 9, Min: tok(15)},
		{Cycle: 11, Min: tok(11)},
	}
	if got := Integrate(buckets, 14); !got.Equal(tok(76)) {
		t.Fatalf("Integrate = %s, want 76", got)
	}
}

func TestIntegrate(t *testing.T) {
	tests := []struct {
		name    string
		buckets []CycleBalance
		target  uint64
		want    uint64
	}{
		{"no buckets", nil, 10, 0},
		{"single bucket at target", []CycleBalance{{Cycle: 3, Min: tok(50)}}, 4, 0},
		{"single bucket", []CycleBalance{{Cycle: 3, Min: tok(50)}}, 7, 150},
		{"target before last change", []CycleBalance{{Cycle: 8, Min: tok(50)}}, 5, 0},
		{
			name:    "equal value counts through the bucket cycle",
			buckets: []CycleBalance{{Cycle: 1, Min: tok(10)}, {Cycle: 4, Min: tok(10)}},
			target:  6,
			want:    (4-2)*10 + (6-4)*10,
		},
		{
			name:    "rise",
			buckets: []CycleBalance{{Cycle: 1, Min: tok(10)}, {Cycle: 2, Min: tok(30)}},
			target:  5,
			want:    (3-2)*10 + (5-3)*30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Integrate(tt.buckets, tt.target); !got.Equal(tok(tt.want)) {
				t.Errorf("Integrate = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestBuckets_KeepsMinimumPerCycle(t *testing.T) {
	s := NewLinearMinScorer(testResolver(t))
	entries := []Entry{
		{Timestamp: at(2), CurrentAmount: tok(100)},
		{Timestamp: at(2) + 1, CurrentAmount: tok(40)},
		{Timestamp: at(2) + 2, CurrentAmount: tok(90)},
		{Timestamp: at(4), CurrentAmount: tok(70)},
		{Timestamp: at(4) + 1, CurrentAmount: tok(75)},
	}
	buckets, err := s.Buckets(entries)
	if err != nil {
		t.Fatal(err)
	}
	want := []CycleBalance{{Cycle: 2, Min: tok(40)}, {Cycle: 4, Min: tok(70)}}
	if len(buckets) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(buckets), len(want))
	}
	for i := range want {
		if buckets[i].Cycle != want[i].Cycle || !buckets[i].Min.Equal(want[i].Min) {
			t.Errorf("bucket %d = (%d, %s), want (%d, %s)",
				i, buckets[i].Cycle, buckets[i].Min, want[i].Cycle, want[i].Min)
		}
	}
}

func TestBuckets_BoundaryBelongsToEndingCycle(t *testing.T) {
	s := NewLinearMinScorer(testResolver(t))
	buckets, err := s.Buckets([]Entry{
		{Timestamp: at(1), CurrentAmount: tok(5)},
		{Timestamp: cycleLen, CurrentAmount: tok(3)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 1 || !buckets[0].Min.Equal(tok(3)) {
		t.Fatalf("buckets = %+v, want one bucket with min 3", buckets)
	}
}

func TestScore(t *testing.T) {
	s := NewLinearMinScorer(testResolver(t))

	score, err := s.Score(nil, 10)
	if err != nil || !score.IsZero() {
		t.Fatalf("empty log score = %s, %v", score, err)
	}

	entries := []Entry{
		{Timestamp: at(5), CurrentAmount: tok(7)},
		{Timestamp: at(9), CurrentAmount: tok(20)},
		{Timestamp: at(9) + 1, CurrentAmount: tok(15)},
		{Timestamp: at(11), CurrentAmount: tok(11)},
	}
	score, err = s.Score(entries, 14)
	if err != nil {
		t.Fatal(err)
	}
	if !score.Equal(tok(76)) {
		t.Errorf("score = %s, want 76", score)
	}
}

func TestScore_EntryBeforeGenesis(t *testing.T) {
	r, err := cycle.NewResolver(1000, cycleLen)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewLinearMinScorer(r).Score([]Entry{{Timestamp: 10, CurrentAmount: tok(1)}}, 3)
	if !errors.Is(err, cycle.ErrBeforeGenesis) {
		t.Errorf("error = %v, want ErrBeforeGenesis", err)
	}
}
