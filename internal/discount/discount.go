// Package discount converts a staking score into a bounded percentage.
package discount

import (
	"errors"
	"math/big"

	"github.com/privia-labs/privia/pkg/types"
	"github.com/shopspring/decimal"
)

// DefaultMax is the discount ceiling, in percent.
var DefaultMax = decimal.NewFromInt(25)

// ErrNegativeMax is returned for a ceiling below zero.
var ErrNegativeMax = errors.New("discount ceiling must not be negative")

var tenThousand = big.NewInt(10_000)

// Calculator computes discounts capped at a ceiling, in percent.
type Calculator struct {
	max decimal.Decimal
}

// NewCalculator returns a calculator with the given ceiling.
func NewCalculator(ceiling decimal.Decimal) (*Calculator, error) {
	if ceiling.IsNegative() {
		return nil, ErrNegativeMax
	}
	return &Calculator{max: ceiling}, nil
}

// Max returns the ceiling.
func (c *Calculator) Max() decimal.Decimal { return c.max }

// Discount returns score/price as a percentage, rounded up to two decimal
// places and capped at the ceiling. A zero price yields zero.
func (c *Calculator) Discount(price, score types.Tokens) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	// ceil(score * 10000 / price) hundredths of a percent.
	num := new(big.Int).Mul(score.Big(), tenThousand)
	q, r := new(big.Int).QuoRem(num, price.Big(), new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	pct := decimal.NewFromBigInt(q, -2)
	if pct.GreaterThan(c.max) {
		return c.max
	}
	return pct
}
