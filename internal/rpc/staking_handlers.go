package rpc

import (
	"github.com/privia-labs/privia/pkg/types"
)

func (s *Server) handleStakingGetLog(req *Request) (interface{}, *Error) {
	var p LogParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	slice, err := s.staking.Log(p.Account, p.From, p.To)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return slice, nil
}

// score returns the current-cycle score of acct with the cycle number.
func (s *Server) score(acct types.Account) (ScoreResult, error) {
	current, err := s.staking.CurrentCycle()
	if err != nil {
		return ScoreResult{}, err
	}
	score, err := s.staking.Score(acct)
	if err != nil {
		return ScoreResult{}, err
	}
	return ScoreResult{Account: acct, Cycle: current.Number, Score: score}, nil
}

func (s *Server) handleStakingGetScore(req *Request) (interface{}, *Error) {
	var p AccountParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	res, err := s.score(p.Account)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return res, nil
}

func (s *Server) handleStakingGetRewards(req *Request) (interface{}, *Error) {
	var p RewardsParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	rewards, err := s.staking.Rewards(p.Account, p.From, p.To)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return RewardsResult{Account: p.Account, From: p.From, To: p.To, Rewards: rewards}, nil
}

func (s *Server) handleDiscountGet(req *Request) (interface{}, *Error) {
	var p DiscountParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	score, err := s.staking.Score(p.Account)
	if err != nil {
		return nil, s.errorFor(err)
	}
	pct := s.discount.Discount(p.Price, score)
	return DiscountResult{
		Account:  p.Account,
		Price:    p.Price,
		Score:    score,
		Discount: pct.StringFixed(2),
	}, nil
}

func (s *Server) handleCycleCurrent(_ *Request) (interface{}, *Error) {
	c, err := s.staking.CurrentCycle()
	if err != nil {
		return nil, s.errorFor(err)
	}
	return CycleResult(c), nil
}

func (s *Server) handleCycleDetails(req *Request) (interface{}, *Error) {
	var p CycleParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	c, err := s.staking.Cycles().Details(p.Number)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return CycleResult(c), nil
}

func (s *Server) handleCycleNextVoting(_ *Request) (interface{}, *Error) {
	c, err := s.staking.NextVotingCycle()
	if err != nil {
		return nil, s.errorFor(err)
	}
	return CycleResult(c), nil
}
