package staking

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/privia-labs/privia/internal/cycle"
	klog "github.com/privia-labs/privia/internal/log"
	"github.com/privia-labs/privia/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultScoreCacheSize is the number of accounts whose score is cached.
const DefaultScoreCacheSize = 4096

// Options configures a Service.
type Options struct {
	// VotingCycles is the period, in cycles, of voting windows.
	VotingCycles uint64
	// CacheSize bounds the score cache. Zero means DefaultScoreCacheSize.
	CacheSize int
	// Scorer defaults to a LinearMinScorer over the service's cycles.
	Scorer Scorer
	// Now defaults to the wall clock, in nanoseconds.
	Now func() uint64
}

// LogSlice is the answer to a log query.
type LogSlice struct {
	Entries []Entry `json:"entries"`
	From    uint64  `json:"from"`
	To      uint64  `json:"to"`
}

type cachedScore struct {
	cycle uint64
	score types.Tokens
}

// Service answers staking queries for the current time: log slices,
// scores for the current cycle, rewards and cycle information.
type Service struct {
	src    LogSource
	cycles *cycle.Resolver
	scorer Scorer
	voting uint64
	now    func() uint64
	cache  *lru.Cache[types.Account, cachedScore]
	logger zerolog.Logger
}

// NewService creates a staking service reading from src.
func NewService(src LogSource, cycles *cycle.Resolver, opts Options) (*Service, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultScoreCacheSize
	}
	cache, err := lru.New[types.Account, cachedScore](size)
	if err != nil {
		return nil, err
	}
	s := &Service{
		src:    src,
		cycles: cycles,
		scorer: opts.Scorer,
		voting: opts.VotingCycles,
		now:    opts.Now,
		cache:  cache,
		logger: klog.Staking,
	}
	if s.scorer == nil {
		s.scorer = NewLinearMinScorer(cycles)
	}
	if s.now == nil {
		s.now = func() uint64 { return uint64(time.Now().UnixNano()) }
	}
	return s, nil
}

// Cycles returns the service's cycle resolver.
func (s *Service) Cycles() *cycle.Resolver { return s.cycles }

// CurrentCycle resolves the cycle containing now.
func (s *Service) CurrentCycle() (cycle.Cycle, error) {
	return s.cycles.Resolve(s.now())
}

// NextVotingCycle returns the next cycle aligned to the voting period. It
// is always after the current cycle.
func (s *Service) NextVotingCycle() (cycle.Cycle, error) {
	current, err := s.CurrentCycle()
	if err != nil {
		return cycle.Cycle{}, err
	}
	n, err := cycle.NextAligned(current.Number, s.voting)
	if err != nil {
		return cycle.Cycle{}, err
	}
	return s.cycles.Details(n)
}

// Log returns the entries of acct in [from, to). A nil from means 0 and a
// nil to means now.
func (s *Service) Log(acct types.Account, from, to *uint64) (LogSlice, error) {
	slice := LogSlice{To: s.now()}
	if from != nil {
		slice.From = *from
	}
	if to != nil {
		slice.To = *to
	}
	entries, err := s.src.Range(acct, slice.From, slice.To)
	if err != nil {
		return LogSlice{}, err
	}
	slice.Entries = entries
	return slice, nil
}

// Score returns the score of acct for the current cycle, computed from the
// entries of all completed cycles.
func (s *Service) Score(acct types.Account) (types.Tokens, error) {
	current, err := s.CurrentCycle()
	if err != nil {
		return types.Tokens{}, err
	}
	if c, ok := s.cache.Get(acct); ok && c.cycle == current.Number {
		return c.score, nil
	}
	if current.Number == 0 {
		return types.Tokens{}, nil
	}

	// A timestamp equal to Start belongs to the previous cycle.
	to := current.Start + 1
	if to == 0 {
		to = current.Start
	}
	entries, err := s.src.Range(acct, 0, to)
	if err != nil {
		return types.Tokens{}, err
	}
	score, err := s.scorer.Score(entries, current.Number)
	if err != nil {
		return types.Tokens{}, err
	}
	s.cache.Add(acct, cachedScore{cycle: current.Number, score: score})
	s.logger.Debug().
		Str("account", acct.String()).
		Uint64("cycle", current.Number).
		Int("entries", len(entries)).
		Str("score", score.String()).
		Msg("Score computed")
	return score, nil
}

// Rewards integrates the balance of acct over [from, to].
func (s *Service) Rewards(acct types.Account, from, to uint64) (types.Tokens, error) {
	return Rewards(s.src, acct, from, to)
}

// Invalidate drops cached scores of accts. It is registered as a ledger
// commit listener.
func (s *Service) Invalidate(accts []types.Account) {
	for _, a := range accts {
		s.cache.Remove(a)
	}
}
