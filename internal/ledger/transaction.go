package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/privia-labs/privia/pkg/crypto"
	"github.com/privia-labs/privia/pkg/types"
)

// Kind is the classification of a recorded transaction.
type Kind string

const (
	KindMint     Kind = "mint"
	KindBurn     Kind = "burn"
	KindTransfer Kind = "transfer"
	KindApprove  Kind = "approve"
)

// Transaction is a classified, recorded operation. Fields that do not
// apply to Kind are nil. Timestamp is assigned by the ledger.
type Transaction struct {
	Kind              Kind           `cbor:"1,keyasint" json:"kind"`
	From              *types.Account `cbor:"2,keyasint,omitempty" json:"from,omitempty"`
	To                *types.Account `cbor:"3,keyasint,omitempty" json:"to,omitempty"`
	Spender           *types.Account `cbor:"4,keyasint,omitempty" json:"spender,omitempty"`
	Amount            types.Tokens   `cbor:"5,keyasint" json:"amount"`
	Fee               *types.Tokens  `cbor:"6,keyasint,omitempty" json:"fee,omitempty"`
	Memo              []byte         `cbor:"7,keyasint,omitempty" json:"memo,omitempty"`
	CreatedAt         *uint64        `cbor:"8,keyasint,omitempty" json:"created_at_time,omitempty"`
	ExpectedAllowance *types.Tokens  `cbor:"9,keyasint,omitempty" json:"expected_allowance,omitempty"`
	ExpiresAt         *uint64        `cbor:"10,keyasint,omitempty" json:"expires_at,omitempty"`
	Timestamp         uint64         `cbor:"11,keyasint" json:"timestamp"`
}

// operation is a submitted request before classification.
type operation struct {
	From              types.Account
	To                *types.Account
	Spender           *types.Account
	Amount            types.Tokens
	Fee               *types.Tokens
	Memo              []byte
	CreatedAt         *uint64
	ExpectedAllowance *types.Tokens
	ExpiresAt         *uint64
	IsApproval        bool
}

// fingerprintFields fixes the field order hashed into a fingerprint.
type fingerprintFields struct {
	_                 struct{} `cbor:",toarray"`
	From              types.Account
	To                *types.Account
	Spender           *types.Account
	Amount            types.Tokens
	Fee               *types.Tokens
	Memo              []byte
	CreatedAt         *uint64
	ExpectedAllowance *types.Tokens
	ExpiresAt         *uint64
	IsApproval        bool
}

var fingerprintMode cbor.EncMode

func init() {
	var err error
	fingerprintMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// fingerprint hashes the pre-classification fields of op.
func (op *operation) fingerprint() (types.Hash, error) {
	data, err := fingerprintMode.Marshal(fingerprintFields{
		From:              op.From,
		To:                op.To,
		Spender:           op.Spender,
		Amount:            op.Amount,
		Fee:               op.Fee,
		Memo:              op.Memo,
		CreatedAt:         op.CreatedAt,
		ExpectedAllowance: op.ExpectedAllowance,
		ExpiresAt:         op.ExpiresAt,
		IsApproval:        op.IsApproval,
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("encode fingerprint: %w", err)
	}
	return crypto.Hash(data), nil
}

// TransferArgs are the arguments of Transfer.
type TransferArgs struct {
	FromSubaccount *types.Subaccount `json:"from_subaccount,omitempty"`
	To             types.Account     `json:"to"`
	Amount         types.Tokens      `json:"amount"`
	Fee            *types.Tokens     `json:"fee,omitempty"`
	Memo           []byte            `json:"memo,omitempty"`
	CreatedAt      *uint64           `json:"created_at_time,omitempty"`
}

// ApproveArgs are the arguments of Approve.
type ApproveArgs struct {
	FromSubaccount    *types.Subaccount `json:"from_subaccount,omitempty"`
	Spender           types.Account     `json:"spender"`
	Amount            types.Tokens      `json:"amount"`
	ExpectedAllowance *types.Tokens     `json:"expected_allowance,omitempty"`
	ExpiresAt         *uint64           `json:"expires_at,omitempty"`
	Fee               *types.Tokens     `json:"fee,omitempty"`
	Memo              []byte            `json:"memo,omitempty"`
	CreatedAt         *uint64           `json:"created_at_time,omitempty"`
}

// TransferFromArgs are the arguments of TransferFrom.
type TransferFromArgs struct {
	SpenderSubaccount *types.Subaccount `json:"spender_subaccount,omitempty"`
	From              types.Account     `json:"from"`
	To                types.Account     `json:"to"`
	Amount            types.Tokens      `json:"amount"`
	Fee               *types.Tokens     `json:"fee,omitempty"`
	Memo              []byte            `json:"memo,omitempty"`
	CreatedAt         *uint64           `json:"created_at_time,omitempty"`
}
