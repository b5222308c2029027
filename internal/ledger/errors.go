package ledger

import (
	"errors"
	"fmt"

	"github.com/privia-labs/privia/pkg/types"
)

var (
	// ErrInvariantViolation marks a state the validation steps should have
	// ruled out. The operation is aborted without committing anything.
	ErrInvariantViolation = errors.New("ledger invariant violation")
	ErrNotInitialized     = errors.New("ledger not initialized")
	ErrAlreadyInitialized = errors.New("ledger already initialized")
	ErrUnauthorized       = errors.New("caller is not the minting account owner")
	ErrTxNotFound         = errors.New("transaction not found")
	ErrInvalidConfig      = errors.New("invalid configuration")

	errScanDone = errors.New("scan done")
)

// Generic error codes.
const (
	CodeMemoTooLong     uint64 = 0
	CodeApprovalFeeOwed uint64 = 1
	CodeNothingToSplit  uint64 = 2
)

// ErrorKind names a rejection reason.
type ErrorKind string

const (
	KindBadFee                 ErrorKind = "BadFee"
	KindBadBurn                ErrorKind = "BadBurn"
	KindInsufficientFunds      ErrorKind = "InsufficientFunds"
	KindTooOld                 ErrorKind = "TooOld"
	KindCreatedInFuture        ErrorKind = "CreatedInFuture"
	KindDuplicate              ErrorKind = "Duplicate"
	KindTemporarilyUnavailable ErrorKind = "TemporarilyUnavailable"
	KindGenericError           ErrorKind = "GenericError"
	KindAllowanceChanged       ErrorKind = "AllowanceChanged"
	KindExpired                ErrorKind = "Expired"
	KindInsufficientAllowance  ErrorKind = "InsufficientAllowance"
)

// Rejection is the structured detail of a refused operation. Only the
// fields relevant to Kind are set.
type Rejection struct {
	Kind             ErrorKind     `json:"kind"`
	ExpectedFee      *types.Tokens `json:"expected_fee,omitempty"`
	MinBurnAmount    *types.Tokens `json:"min_burn_amount,omitempty"`
	Balance          *types.Tokens `json:"balance,omitempty"`
	Allowance        *types.Tokens `json:"allowance,omitempty"`
	CurrentAllowance *types.Tokens `json:"current_allowance,omitempty"`
	DuplicateOf      *uint64       `json:"duplicate_of,omitempty"`
	LedgerTime       *uint64       `json:"ledger_time,omitempty"`
	ErrorCode        *uint64       `json:"error_code,omitempty"`
	Message          string        `json:"message,omitempty"`
}

func (r Rejection) String() string {
	switch r.Kind {
	case KindBadFee:
		return fmt.Sprintf("bad fee, expected %s", r.ExpectedFee)
	case KindBadBurn:
		return fmt.Sprintf("bad burn, minimum %s", r.MinBurnAmount)
	case KindInsufficientFunds:
		return fmt.Sprintf("insufficient funds, balance %s", r.Balance)
	case KindInsufficientAllowance:
		return fmt.Sprintf("insufficient allowance %s", r.Allowance)
	case KindAllowanceChanged:
		return fmt.Sprintf("allowance changed, current %s", r.CurrentAllowance)
	case KindDuplicate:
		return fmt.Sprintf("duplicate of transaction %d", *r.DuplicateOf)
	case KindCreatedInFuture:
		return fmt.Sprintf("created in future, ledger time %d", *r.LedgerTime)
	case KindExpired:
		return fmt.Sprintf("approval expired, ledger time %d", *r.LedgerTime)
	case KindGenericError:
		return fmt.Sprintf("error %d: %s", *r.ErrorCode, r.Message)
	default:
		return string(r.Kind)
	}
}

// TransferError is returned by Transfer.
type TransferError struct{ Rejection }

func (e *TransferError) Error() string { return "transfer rejected: " + e.Rejection.String() }

// ApproveError is returned by Approve. It never carries BadBurn or
// InsufficientFunds.
type ApproveError struct{ Rejection }

func (e *ApproveError) Error() string { return "approve rejected: " + e.Rejection.String() }

// TransferFromError is returned by TransferFrom.
type TransferFromError struct{ Rejection }

func (e *TransferFromError) Error() string { return "transfer_from rejected: " + e.Rejection.String() }

// RejectionOf extracts the rejection detail from any of the ledger's
// rejection errors.
func RejectionOf(err error) (Rejection, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Rejection, true
	}
	var ae *ApproveError
	if errors.As(err, &ae) {
		return ae.Rejection, true
	}
	var fe *TransferFromError
	if errors.As(err, &fe) {
		return fe.Rejection, true
	}
	return Rejection{}, false
}

func tokensPtr(t types.Tokens) *types.Tokens { return &t }

func uint64Ptr(v uint64) *uint64 { return &v }

func rejectBadFee(expected types.Tokens) Rejection {
	return Rejection{Kind: KindBadFee, ExpectedFee: tokensPtr(expected)}
}

func rejectInsufficientFunds(balance types.Tokens) Rejection {
	return Rejection{Kind: KindInsufficientFunds, Balance: tokensPtr(balance)}
}

func rejectGeneric(code uint64, msg string) Rejection {
	return Rejection{Kind: KindGenericError, ErrorCode: uint64Ptr(code), Message: msg}
}

// asApproveError converts a rejection from the shared pipeline. The
// pipeline never produces BadBurn or InsufficientFunds for approvals.
func asApproveError(r Rejection) error {
	if r.Kind == KindBadBurn || r.Kind == KindInsufficientFunds {
		return fmt.Errorf("%w: %s cannot be an approve error", ErrInvariantViolation, r.Kind)
	}
	return &ApproveError{r}
}
