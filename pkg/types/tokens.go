package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// ErrUnderflow is returned when a subtraction would go below zero.
var ErrUnderflow = errors.New("token amount underflow")

// ErrNegative is returned when a negative value is converted to Tokens.
var ErrNegative = errors.New("negative token amount")

// Tokens is an unsigned arbitrary-precision token amount. The zero value
// is 0. Values are immutable; every operation returns a new Tokens.
type Tokens struct {
	v *big.Int
}

// NewTokens returns n as Tokens.
func NewTokens(n uint64) Tokens {
	return Tokens{v: new(big.Int).SetUint64(n)}
}

// TokensFromBig copies b into Tokens. Negative values are rejected.
func TokensFromBig(b *big.Int) (Tokens, error) {
	if b.Sign() < 0 {
		return Tokens{}, fmt.Errorf("%w: %s", ErrNegative, b)
	}
	return Tokens{v: new(big.Int).Set(b)}, nil
}

// TokensFromBytes decodes a big-endian unsigned magnitude.
func TokensFromBytes(b []byte) Tokens {
	return Tokens{v: new(big.Int).SetBytes(b)}
}

// ParseTokens parses a base-10 unsigned integer.
func ParseTokens(s string) (Tokens, error) {
	s = strings.TrimSpace(s)
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Tokens{}, fmt.Errorf("invalid token amount %q", s)
	}
	return TokensFromBig(b)
}

func (t Tokens) big() *big.Int {
	if t.v == nil {
		return new(big.Int)
	}
	return t.v
}

// Big returns a copy of the value as a big.Int.
func (t Tokens) Big() *big.Int {
	return new(big.Int).Set(t.big())
}

// Bytes returns the big-endian unsigned magnitude.
func (t Tokens) Bytes() []byte {
	return t.big().Bytes()
}

// Add returns t + o.
func (t Tokens) Add(o Tokens) Tokens {
	return Tokens{v: new(big.Int).Add(t.big(), o.big())}
}

// Sub returns t - o, or ErrUnderflow if o > t.
func (t Tokens) Sub(o Tokens) (Tokens, error) {
	if t.Cmp(o) < 0 {
		return Tokens{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, t, o)
	}
	return Tokens{v: new(big.Int).Sub(t.big(), o.big())}, nil
}

// MulUint64 returns t * n.
func (t Tokens) MulUint64(n uint64) Tokens {
	return Tokens{v: new(big.Int).Mul(t.big(), new(big.Int).SetUint64(n))}
}

// DivUint64 returns t / n rounded down. It panics if n is zero.
func (t Tokens) DivUint64(n uint64) Tokens {
	return Tokens{v: new(big.Int).Quo(t.big(), new(big.Int).SetUint64(n))}
}

// Cmp compares t and o and returns -1, 0 or +1.
func (t Tokens) Cmp(o Tokens) int {
	return t.big().Cmp(o.big())
}

// Equal reports whether t == o.
func (t Tokens) Equal(o Tokens) bool {
	return t.Cmp(o) == 0
}

// IsZero reports whether t == 0.
func (t Tokens) IsZero() bool {
	return t.big().Sign() == 0
}

// Min returns the smaller of t and o.
func (t Tokens) Min(o Tokens) Tokens {
	if o.Cmp(t) < 0 {
		return o
	}
	return t
}

// String returns the base-10 representation.
func (t Tokens) String() string {
	return t.big().String()
}

// MarshalJSON encodes the amount as a decimal string so that values above
// 2^53 survive JavaScript clients.
func (t Tokens) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a decimal string or a JSON number.
func (t *Tokens) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = Tokens{}
		return nil
	}
	parsed, err := ParseTokens(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalCBOR encodes the amount as a CBOR integer or bignum.
func (t Tokens) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.big())
}

// UnmarshalCBOR decodes a CBOR integer or bignum.
func (t *Tokens) UnmarshalCBOR(data []byte) error {
	var b big.Int
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	parsed, err := TokensFromBig(&b)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
