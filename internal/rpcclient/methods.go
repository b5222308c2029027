package rpcclient

import (
	"github.com/privia-labs/privia/internal/cycle"
	"github.com/privia-labs/privia/internal/ledger"
	"github.com/privia-labs/privia/internal/rpc"
	"github.com/privia-labs/privia/internal/staking"
	"github.com/privia-labs/privia/pkg/crypto"
	"github.com/privia-labs/privia/pkg/types"
)

// Name returns the token name.
func (c *Client) Name() (string, error) {
	var s string
	err := c.Call("icrc1_name", nil, &s)
	return s, err
}

// Symbol returns the token symbol.
func (c *Client) Symbol() (string, error) {
	var s string
	err := c.Call("icrc1_symbol", nil, &s)
	return s, err
}

// Decimals returns the token decimals.
func (c *Client) Decimals() (uint8, error) {
	var d uint8
	err := c.Call("icrc1_decimals", nil, &d)
	return d, err
}

// Fee returns the transfer fee.
func (c *Client) Fee() (types.Tokens, error) {
	var f types.Tokens
	err := c.Call("icrc1_fee", nil, &f)
	return f, err
}

// Metadata returns the token metadata.
func (c *Client) Metadata() ([]ledger.MetadataEntry, error) {
	var md []ledger.MetadataEntry
	err := c.Call("icrc1_metadata", nil, &md)
	return md, err
}

// TotalSupply returns the total supply.
func (c *Client) TotalSupply() (types.Tokens, error) {
	var s types.Tokens
	err := c.Call("icrc1_totalSupply", nil, &s)
	return s, err
}

// MintingAccount returns the minting account, nil when there is none.
func (c *Client) MintingAccount() (*types.Account, error) {
	var a *types.Account
	err := c.Call("icrc1_mintingAccount", nil, &a)
	return a, err
}

// SupportedStandards lists the standards the ledger implements.
func (c *Client) SupportedStandards() ([]ledger.Standard, error) {
	var s []ledger.Standard
	err := c.Call("icrc1_supportedStandards", nil, &s)
	return s, err
}

// BalanceOf returns the balance of acct.
func (c *Client) BalanceOf(acct types.Account) (types.Tokens, error) {
	var b types.Tokens
	err := c.Call("icrc1_balanceOf", rpc.AccountParam{Account: acct}, &b)
	return b, err
}

// Allowance returns what spender may take from acct.
func (c *Client) Allowance(acct, spender types.Account) (ledger.Allowance, error) {
	var a ledger.Allowance
	err := c.Call("icrc2_allowance", rpc.AllowanceParam{Account: acct, Spender: spender}, &a)
	return a, err
}

// Transaction returns the log entry at pos.
func (c *Client) Transaction(pos uint64) (rpc.TransactionResult, error) {
	var tx rpc.TransactionResult
	err := c.Call("ledger_getTransaction", rpc.PositionParam{Position: pos}, &tx)
	return tx, err
}

// Transactions returns up to length log entries from start.
func (c *Client) Transactions(start, length uint64) (rpc.TransactionsResult, error) {
	var res rpc.TransactionsResult
	err := c.Call("ledger_getTransactions", rpc.RangeParam{Start: start, Length: length}, &res)
	return res, err
}

// Transfer sends a signed icrc1_transfer and returns the log position.
func (c *Client) Transfer(signer crypto.Signer, args ledger.TransferArgs) (uint64, error) {
	var res rpc.PositionResult
	err := c.CallSigned("icrc1_transfer", args, signer, &res)
	return res.Position, err
}

// Approve sends a signed icrc2_approve.
func (c *Client) Approve(signer crypto.Signer, args ledger.ApproveArgs) (uint64, error) {
	var res rpc.PositionResult
	err := c.CallSigned("icrc2_approve", args, signer, &res)
	return res.Position, err
}

// TransferFrom sends a signed icrc2_transferFrom.
func (c *Client) TransferFrom(signer crypto.Signer, args ledger.TransferFromArgs) (uint64, error) {
	var res rpc.PositionResult
	err := c.CallSigned("icrc2_transferFrom", args, signer, &res)
	return res.Position, err
}

// SplitBalance sends half of the signer's balance to target.
func (c *Client) SplitBalance(signer crypto.Signer, fromSub *types.Subaccount, target types.Account) (uint64, error) {
	var res rpc.PositionResult
	err := c.CallSigned("ledger_splitBalance", rpc.SplitParam{FromSubaccount: fromSub, Target: target}, signer, &res)
	return res.Position, err
}

// UpdateConfig applies an administrative change; signer must own the
// minting account.
func (c *Client) UpdateConfig(signer crypto.Signer, u ledger.ConfigUpdate) (ledger.Configuration, error) {
	var cfg ledger.Configuration
	err := c.CallSigned("ledger_updateConfig", u, signer, &cfg)
	return cfg, err
}

// StakingLog returns the staking entries of acct in [from, to).
func (c *Client) StakingLog(acct types.Account, from, to *uint64) (staking.LogSlice, error) {
	var s staking.LogSlice
	err := c.Call("staking_getLog", rpc.LogParam{Account: acct, From: from, To: to}, &s)
	return s, err
}

// Score returns the current-cycle staking score of acct.
func (c *Client) Score(acct types.Account) (rpc.ScoreResult, error) {
	var s rpc.ScoreResult
	err := c.Call("staking_getScore", rpc.AccountParam{Account: acct}, &s)
	return s, err
}

// Rewards integrates the balance of acct over [from, to].
func (c *Client) Rewards(acct types.Account, from, to uint64) (rpc.RewardsResult, error) {
	var r rpc.RewardsResult
	err := c.Call("staking_getRewards", rpc.RewardsParam{Account: acct, From: from, To: to}, &r)
	return r, err
}

// Discount returns the discount acct earns on price.
func (c *Client) Discount(acct types.Account, price types.Tokens) (rpc.DiscountResult, error) {
	var d rpc.DiscountResult
	err := c.Call("discount_get", rpc.DiscountParam{Account: acct, Price: price}, &d)
	return d, err
}

// CurrentCycle returns the cycle containing the node's current time.
func (c *Client) CurrentCycle() (cycle.Cycle, error) {
	var cy cycle.Cycle
	err := c.Call("cycle_current", nil, &cy)
	return cy, err
}

// CycleDetails returns the boundaries of cycle n.
func (c *Client) CycleDetails(n uint64) (cycle.Cycle, error) {
	var cy cycle.Cycle
	err := c.Call("cycle_details", rpc.CycleParam{Number: n}, &cy)
	return cy, err
}

// NextVotingCycle returns the next voting cycle.
func (c *Client) NextVotingCycle() (cycle.Cycle, error) {
	var cy cycle.Cycle
	err := c.Call("cycle_nextVoting", nil, &cy)
	return cy, err
}
