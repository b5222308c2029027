package rpc

import (
	"encoding/json"

	"github.com/privia-labs/privia/internal/cycle"
	"github.com/privia-labs/privia/internal/ledger"
	"github.com/privia-labs/privia/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeRejected       = -32001 // ledger rejection, detail in data
	CodeUnauthorized   = -32002
	CodeUnavailable    = -32003 // ledger not initialized
)

// Request is a JSON-RPC 2.0 request. Update methods carry Auth; the
// signature covers Params exactly as sent.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Auth    *Auth           `json:"auth,omitempty"`
	ID      interface{}     `json:"id"`
}

// Auth authenticates the caller of an update method.
type Auth struct {
	PubKey    string `json:"pubkey"`    // hex, compressed secp256k1
	Signature string `json:"signature"` // hex, Schnorr over SigningDigest
	Nonce     uint64 `json:"nonce"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// ── Param types ─────────────────────────────────────────────────────────

// AccountParam is used by icrc1_balanceOf and staking_getScore.
type AccountParam struct {
	Account types.Account `json:"account"`
}

// AllowanceParam is used by icrc2_allowance.
type AllowanceParam struct {
	Account types.Account `json:"account"`
	Spender types.Account `json:"spender"`
}

// PositionParam is used by ledger_getTransaction.
type PositionParam struct {
	Position uint64 `json:"position"`
}

// RangeParam is used by ledger_getTransactions.
type RangeParam struct {
	Start  uint64 `json:"start"`
	Length uint64 `json:"length"`
}

// SplitParam is used by ledger_splitBalance.
type SplitParam struct {
	FromSubaccount *types.Subaccount `json:"from_subaccount,omitempty"`
	Target         types.Account     `json:"target"`
}

// LogParam is used by staking_getLog. Omitted bounds cover the whole log.
type LogParam struct {
	Account types.Account `json:"account"`
	From    *uint64       `json:"from,omitempty"`
	To      *uint64       `json:"to,omitempty"`
}

// RewardsParam is used by staking_getRewards.
type RewardsParam struct {
	Account types.Account `json:"account"`
	From    uint64        `json:"from"`
	To      uint64        `json:"to"`
}

// DiscountParam is used by discount_get.
type DiscountParam struct {
	Account types.Account `json:"account"`
	Price   types.Tokens  `json:"price"`
}

// CycleParam is used by cycle_details.
type CycleParam struct {
	Number uint64 `json:"number"`
}

// ── Result types ────────────────────────────────────────────────────────

// PositionResult is returned by update methods that record a transaction.
type PositionResult struct {
	Position uint64 `json:"position"`
}

// BalanceResult is returned by icrc1_balanceOf.
type BalanceResult struct {
	Account types.Account `json:"account"`
	Balance types.Tokens  `json:"balance"`
}

// SupplyResult is returned by icrc1_totalSupply.
type SupplyResult struct {
	TotalSupply types.Tokens `json:"total_supply"`
}

// TransactionResult is one log entry with its position.
type TransactionResult struct {
	Position uint64 `json:"position"`
	*ledger.Transaction
}

// TransactionsResult is returned by ledger_getTransactions.
type TransactionsResult struct {
	LogLength    uint64              `json:"log_length"`
	Transactions []TransactionResult `json:"transactions"`
}

// ScoreResult is returned by staking_getScore.
type ScoreResult struct {
	Account types.Account `json:"account"`
	Cycle   uint64        `json:"cycle"`
	Score   types.Tokens  `json:"score"`
}

// RewardsResult is returned by staking_getRewards.
type RewardsResult struct {
	Account types.Account `json:"account"`
	From    uint64        `json:"from"`
	To      uint64        `json:"to"`
	Rewards types.Tokens  `json:"rewards"`
}

// DiscountResult is returned by discount_get. Discount is a percentage
// with two decimals.
type DiscountResult struct {
	Account  types.Account `json:"account"`
	Price    types.Tokens  `json:"price"`
	Score    types.Tokens  `json:"score"`
	Discount string        `json:"discount"`
}

// CycleResult is returned by the cycle_* methods.
type CycleResult = cycle.Cycle
