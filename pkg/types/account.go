package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// SubaccountSize is the length of a subaccount identifier.
const SubaccountSize = 32

// AccountKeySize is the length of Account.Key().
const AccountKeySize = AddressSize + SubaccountSize

// Subaccount distinguishes accounts of one owner. The all-zero subaccount
// is the owner's default account.
type Subaccount [SubaccountSize]byte

// IsZero reports whether s is the default subaccount.
func (s Subaccount) IsZero() bool {
	return s == Subaccount{}
}

// ParseSubaccount parses a hex subaccount of at most 32 bytes. Shorter
// values are left-padded with zeros.
func ParseSubaccount(s string) (Subaccount, error) {
	var sub Subaccount
	s = strings.TrimPrefix(s, "0x")
	if s == "" || len(s) > 2*SubaccountSize {
		return sub, fmt.Errorf("invalid subaccount %q", s)
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return sub, fmt.Errorf("invalid subaccount hex: %w", err)
	}
	copy(sub[SubaccountSize-len(raw):], raw)
	return sub, nil
}

// MarshalJSON encodes the subaccount as 64 hex characters.
func (s Subaccount) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(s[:]))
}

// UnmarshalJSON accepts the hex form, with or without leading zeros.
func (s *Subaccount) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSubaccount(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Account is an owner plus subaccount. It is comparable and used directly
// as a map key; an omitted subaccount and the zero subaccount are the same
// account.
type Account struct {
	Owner      Address
	Subaccount Subaccount
}

// NewAccount returns the default account of owner.
func NewAccount(owner Address) Account {
	return Account{Owner: owner}
}

// WithSubaccount returns the account of owner under sub. A nil sub is the
// default account.
func WithSubaccount(owner Address, sub *Subaccount) Account {
	a := Account{Owner: owner}
	if sub != nil {
		a.Subaccount = *sub
	}
	return a
}

// Key returns the fixed-size binary form used in storage keys. Keys sort
// in the same order as Compare.
func (a Account) Key() []byte {
	k := make([]byte, AccountKeySize)
	copy(k, a.Owner[:])
	copy(k[AddressSize:], a.Subaccount[:])
	return k
}

// AccountFromKey decodes the output of Key.
func AccountFromKey(k []byte) (Account, error) {
	if len(k) != AccountKeySize {
		return Account{}, fmt.Errorf("account key must be %d bytes, got %d", AccountKeySize, len(k))
	}
	var a Account
	copy(a.Owner[:], k[:AddressSize])
	copy(a.Subaccount[:], k[AddressSize:])
	return a, nil
}

// Compare orders accounts by owner, then subaccount.
func (a Account) Compare(b Account) int {
	if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
		return c
	}
	return bytes.Compare(a.Subaccount[:], b.Subaccount[:])
}

// String returns "<owner>" for default accounts and "<owner>.<hex>" with
// leading zero bytes of the subaccount trimmed otherwise.
func (a Account) String() string {
	if a.Subaccount.IsZero() {
		return a.Owner.String()
	}
	sub := strings.TrimLeft(hex.EncodeToString(a.Subaccount[:]), "0")
	return a.Owner.String() + "." + sub
}

// ParseAccount parses the String form of an account.
func ParseAccount(s string) (Account, error) {
	ownerStr, subStr, hasSub := strings.Cut(s, ".")
	owner, err := ParseAddress(ownerStr)
	if err != nil {
		return Account{}, err
	}
	a := Account{Owner: owner}
	if !hasSub {
		return a, nil
	}
	sub, err := ParseSubaccount(subStr)
	if err != nil {
		return Account{}, err
	}
	a.Subaccount = sub
	return a, nil
}

// MarshalJSON encodes the account as its string form.
func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes the string form of an account.
func (a *Account) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAccount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalCBOR encodes the account as a byte string of Key().
func (a Account) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.Key())
}

// UnmarshalCBOR decodes a byte string produced by MarshalCBOR.
func (a *Account) UnmarshalCBOR(data []byte) error {
	var k []byte
	if err := cbor.Unmarshal(data, &k); err != nil {
		return err
	}
	parsed, err := AccountFromKey(k)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
