package rpc

import (
	"encoding/json"
	"errors"

	"github.com/privia-labs/privia/internal/cycle"
	"github.com/privia-labs/privia/internal/ledger"
	"github.com/privia-labs/privia/internal/staking"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
)

// maxTransactionsPage caps ledger_getTransactions.
const maxTransactionsPage = 1000

func isNotFound(err error) bool {
	return errors.Is(err, ledger.ErrTxNotFound) || errors.Is(err, storage.ErrNotFound)
}

func isBadArgument(err error) bool {
	return errors.Is(err, ledger.ErrInvalidConfig) ||
		errors.Is(err, cycle.ErrBeforeGenesis) ||
		errors.Is(err, cycle.ErrInvalidNumber) ||
		errors.Is(err, cycle.ErrCycleOutOfRange) ||
		errors.Is(err, staking.ErrInvalidRange)
}

// requireLedger refuses ledger calls before genesis has been applied.
func (s *Server) requireLedger() *Error {
	if !s.ledger.Initialized() {
		return s.errorFor(ledger.ErrNotInitialized)
	}
	return nil
}

// ── Token metadata ──────────────────────────────────────────────────────

func (s *Server) handleName(_ *Request) (interface{}, *Error) {
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	return s.ledger.Name(), nil
}

func (s *Server) handleSymbol(_ *Request) (interface{}, *Error) {
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	return s.ledger.Symbol(), nil
}

func (s *Server) handleDecimals(_ *Request) (interface{}, *Error) {
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	return s.ledger.Decimals(), nil
}

func (s *Server) handleFee(_ *Request) (interface{}, *Error) {
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	return s.ledger.Fee(), nil
}

func (s *Server) handleMetadata(_ *Request) (interface{}, *Error) {
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	return s.ledger.Metadata(), nil
}

func (s *Server) handleMintingAccount(_ *Request) (interface{}, *Error) {
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	// A nil *Account would be dropped by omitempty.
	acct := s.ledger.MintingAccount()
	if acct == nil {
		return json.RawMessage("null"), nil
	}
	return acct, nil
}

// ── Balances ────────────────────────────────────────────────────────────

func (s *Server) handleTotalSupply(_ *Request) (interface{}, *Error) {
	if err := s.requireLedger(); err != nil {
		return nil, err
	}
	supply, err := s.ledger.TotalSupply()
	if err != nil {
		return nil, s.errorFor(err)
	}
	return supply, nil
}

func (s *Server) handleBalanceOf(req *Request) (interface{}, *Error) {
	var p AccountParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	bal, err := s.ledger.BalanceOf(p.Account)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return bal, nil
}

func (s *Server) handleAllowance(req *Request) (interface{}, *Error) {
	var p AllowanceParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	a, err := s.ledger.Allowance(p.Account, p.Spender)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return a, nil
}

// ── Transaction log ─────────────────────────────────────────────────────

func (s *Server) handleGetTransaction(req *Request) (interface{}, *Error) {
	var p PositionParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	tx, err := s.ledger.Transaction(p.Position)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return TransactionResult{Position: p.Position, Transaction: tx}, nil
}

func (s *Server) handleGetTransactions(req *Request) (interface{}, *Error) {
	var p RangeParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.Length > maxTransactionsPage {
		p.Length = maxTransactionsPage
	}
	txs, err := s.ledger.Transactions(p.Start, p.Length)
	if err != nil {
		return nil, s.errorFor(err)
	}
	res := TransactionsResult{
		LogLength:    s.ledger.LogLength(),
		Transactions: make([]TransactionResult, len(txs)),
	}
	for i, tx := range txs {
		res.Transactions[i] = TransactionResult{Position: p.Start + uint64(i), Transaction: tx}
	}
	return res, nil
}

// ── Updates ─────────────────────────────────────────────────────────────

func (s *Server) handleTransfer(req *Request, caller types.Address) (interface{}, *Error) {
	var args ledger.TransferArgs
	if err := parseParams(req, &args); err != nil {
		return nil, err
	}
	pos, err := s.ledger.Transfer(caller, args)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return PositionResult{Position: pos}, nil
}

func (s *Server) handleApprove(req *Request, caller types.Address) (interface{}, *Error) {
	var args ledger.ApproveArgs
	if err := parseParams(req, &args); err != nil {
		return nil, err
	}
	pos, err := s.ledger.Approve(caller, args)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return PositionResult{Position: pos}, nil
}

func (s *Server) handleTransferFrom(req *Request, caller types.Address) (interface{}, *Error) {
	var args ledger.TransferFromArgs
	if err := parseParams(req, &args); err != nil {
		return nil, err
	}
	pos, err := s.ledger.TransferFrom(caller, args)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return PositionResult{Position: pos}, nil
}

func (s *Server) handleSplitBalance(req *Request, caller types.Address) (interface{}, *Error) {
	var p SplitParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	pos, err := s.ledger.SplitBalance(caller, p.FromSubaccount, p.Target)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return PositionResult{Position: pos}, nil
}

func (s *Server) handleUpdateConfig(req *Request, caller types.Address) (interface{}, *Error) {
	var u ledger.ConfigUpdate
	if err := parseParams(req, &u); err != nil {
		return nil, err
	}
	cfg, err := s.ledger.UpdateConfig(caller, u)
	if err != nil {
		return nil, s.errorFor(err)
	}
	return cfg, nil
}
