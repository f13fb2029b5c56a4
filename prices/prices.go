// Package prices converts the integer price encodings used by the pool math
// (rational pairs, Q64.96 sqrt prices) into decimals for logging, tolerance
// checks and display. Nothing in here feeds back into trade sizing; the
// brokers stay on exact integer arithmetic.
package prices

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// places is the scale used for intermediate divisions. Spot prices of real
// pools fit comfortably; callers needing more should stay on big.Int.
const places = 24

var (
	q96 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 96), 0)

	ErrInvalidPrice = errors.New("price terms must be positive")
)

// FromRational returns num/den as a decimal.
func FromRational(num, den *big.Int) (decimal.Decimal, error) {
	if num == nil || den == nil || num.Sign() <= 0 || den.Sign() <= 0 {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), places), nil
}

// FromSqrtPriceX96 decodes a Q64.96 sqrt price into the pool's token1/token0
// spot price.
func FromSqrtPriceX96(sqrtPriceX96 *big.Int) (decimal.Decimal, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	sqrt := decimal.NewFromBigInt(sqrtPriceX96, 0).DivRound(q96, places)
	return sqrt.Mul(sqrt), nil
}

// RelativeError returns |got-want|/want.
func RelativeError(got, want decimal.Decimal) (decimal.Decimal, error) {
	if want.Sign() <= 0 {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return got.Sub(want).Abs().DivRound(want, places), nil
}

// WithinTolerance reports whether got is within the given relative tolerance
// of want.
func WithinTolerance(got, want, tolerance decimal.Decimal) (bool, error) {
	relErr, err := RelativeError(got, want)
	if err != nil {
		return false, err
	}
	return relErr.LessThanOrEqual(tolerance), nil
}
