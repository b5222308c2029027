package staking_test

import (
	"errors"
	"testing"
	"time"

	"github.com/privia-labs/privia/internal/cycle"
	"github.com/privia-labs/privia/internal/ledger"
	"github.com/privia-labs/privia/internal/staking"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
)

const (
	genesis  = uint64(1_700_000_000) * uint64(time.Second)
	cycleLen = uint64(10 * time.Second)
)

var (
	minter = types.Address{0xAA}
	accA   = types.NewAccount(types.Address{0x0A})
	accB   = types.NewAccount(types.Address{0x0B})
)

type harness struct {
	now     uint64
	ledger  *ledger.Ledger
	service *staking.Service
}

// inCycle moves the clock to the middle of cycle n.
func (h *harness) inCycle(n uint64) { h.now = genesis + (n-1)*cycleLen + cycleLen/2 }

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: genesis}
	clock := func() uint64 { return h.now }

	db := storage.NewMemory()
	stakes := staking.NewStore(storage.NewPrefixDB(db, ledger.NamespaceStaking))
	stores, err := ledger.OpenStores(db, stakes)
	if err != nil {
		t.Fatal(err)
	}
	l, err := ledger.New(db, stores, ledger.ClockFunc(clock))
	if err != nil {
		t.Fatal(err)
	}
	mintAcct := types.NewAccount(minter)
	cfg := ledger.Configuration{
		Name:           "Privia",
		Symbol:         "PRV",
		Decimals:       8,
		TransferFee:    types.NewTokens(10),
		MintingAccount: &mintAcct,
		MaxMemoLength:  ledger.DefaultMaxMemoLength,
	}
	if err := l.Initialize(cfg, nil); err != nil {
		t.Fatal(err)
	}

	cycles, err := cycle.NewResolver(genesis, cycleLen)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := staking.NewService(stakes, cycles, staking.Options{VotingCycles: 4, Now: clock})
	if err != nil {
		t.Fatal(err)
	}
	l.Subscribe(svc.Invalidate)
	h.ledger, h.service = l, svc
	return h
}

func (h *harness) score(t *testing.T, a types.Account) uint64 {
	t.Helper()
	s, err := h.service.Score(a)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	return s.Big().Uint64()
}

func TestService_MintScenario(t *testing.T) {
	h := newHarness(t)
	h.inCycle(1)
	for _, m := range []struct {
		to     types.Account
		amount uint64
	}{{accA, 100}, {accB, 1000}} {
		if _, err := h.ledger.Transfer(minter, ledger.TransferArgs{To: m.to, Amount: types.NewTokens(m.amount)}); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}

	tests := []struct {
		cycle uint64
		wantA uint64
		wantB uint64
	}{
		{1, 0, 0},
		{2, 0, 0},
		{3, 100, 1000},
		{5, 300, 3000},
	}
	for _, tt := range tests {
		h.inCycle(tt.cycle)
		if got := h.score(t, accA); got != tt.wantA {
			t.Errorf("cycle %d: score A = %d, want %d", tt.cycle, got, tt.wantA)
		}
		if got := h.score(t, accB); got != tt.wantB {
			t.Errorf("cycle %d: score B = %d, want %d", tt.cycle, got, tt.wantB)
		}
	}
}

func TestService_ScoreTracksSpending(t *testing.T) {
	h := newHarness(t)
	h.inCycle(1)
	if _, err := h.ledger.Transfer(minter, ledger.TransferArgs{To: accA, Amount: types.NewTokens(100)}); err != nil {
		t.Fatal(err)
	}

	h.inCycle(3)
	if got := h.score(t, accA); got != 100 {
		t.Fatalf("score before spending = %d, want 100", got)
	}
	if _, err := h.ledger.Transfer(accA.Owner, ledger.TransferArgs{To: accB, Amount: types.NewTokens(50)}); err != nil {
		t.Fatal(err)
	}
	// Changes inside the current cycle do not affect its score.
	if got := h.score(t, accA); got != 100 {
		t.Errorf("score after spending in the same cycle = %d, want 100", got)
	}

	// Buckets (1, 100), (3, 40): the drop counts 100 through cycle 2.
	h.inCycle(4)
	if got := h.score(t, accA); got != 140 {
		t.Errorf("cycle 4 score = %d, want 140", got)
	}
	h.inCycle(5)
	if got := h.score(t, accA); got != 180 {
		t.Errorf("cycle 5 score = %d, want 180", got)
	}
}

func TestService_Cycles(t *testing.T) {
	h := newHarness(t)

	h.now = genesis
	c, err := h.service.CurrentCycle()
	if err != nil || c.Number != 0 {
		t.Fatalf("cycle at genesis = %+v, %v", c, err)
	}

	h.inCycle(4)
	next, err := h.service.NextVotingCycle()
	if err != nil {
		t.Fatal(err)
	}
	if next.Number != 8 || next.Start != genesis+7*cycleLen {
		t.Errorf("next voting cycle from 4 = %+v, want cycle 8", next)
	}
	h.inCycle(5)
	if next, _ = h.service.NextVotingCycle(); next.Number != 8 {
		t.Errorf("next voting cycle from 5 = %d, want 8", next.Number)
	}

	h.now = genesis - 1
	if _, err := h.service.CurrentCycle(); !errors.Is(err, cycle.ErrBeforeGenesis) {
		t.Errorf("before genesis error = %v", err)
	}
}

func TestService_LogDefaults(t *testing.T) {
	h := newHarness(t)
	h.inCycle(1)
	if _, err := h.ledger.Transfer(minter, ledger.TransferArgs{To: accA, Amount: types.NewTokens(5)}); err != nil {
		t.Fatal(err)
	}
	mintTime := h.now
	h.inCycle(2)

	slice, err := h.service.Log(accA, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if slice.From != 0 || slice.To != h.now || len(slice.Entries) != 1 {
		t.Fatalf("Log = %+v", slice)
	}
	if slice.Entries[0].Timestamp != mintTime {
		t.Errorf("entry timestamp = %d, want %d", slice.Entries[0].Timestamp, mintTime)
	}

	from := mintTime + 1
	slice, err = h.service.Log(accA, &from, nil)
	if err != nil || len(slice.Entries) != 0 {
		t.Errorf("Log from after mint = %+v, %v", slice, err)
	}

	r, err := h.service.Rewards(accA, mintTime, mintTime+100)
	if err != nil || !r.Equal(types.NewTokens(500)) {
		t.Errorf("Rewards = %s, %v; want 500", r, err)
	}
}
