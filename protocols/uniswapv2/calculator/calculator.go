package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	uniswapv2 "github.com/defistate/uniswap-broker-go/protocols/uniswapv2"
)

var (
	// basisPointDivisor is a constant representing 100% in basis points (10000).
	basisPointDivisor = big.NewInt(10000)

	one = big.NewInt(1)

	// ErrInvalidInput is returned when reserves, amounts or prices are
	// nil, zero or negative where a positive value is required.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTokenMismatch is returned when the specified input/output tokens do not match the pool's tokens.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrInsufficientLiquidity is returned when an amountOut is requested that is greater than or equal to the available reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap")
)

// calc holds reusable big.Int objects to avoid memory allocations during
// amount calculations. Instances are NOT safe for concurrent use by
// themselves; they are managed by calcPool.
type calc struct {
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int
}

var calcPool = sync.Pool{
	New: func() any {
		return &calc{
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
		}
	},
}

// GetAmountOut calculates the output amount for an exact-input swap against
// the pool, after the proportional fee is taken from amountIn.
func GetAmountOut(
	amountIn *big.Int,
	tokenIn common.Address,
	tokenOut common.Address,
	pool uniswapv2.Pool,
) (*big.Int, error) {
	c := calcPool.Get().(*calc)
	defer calcPool.Put(c)
	return c.getAmountOut(amountIn, tokenIn, tokenOut, pool)
}

// GetAmountIn calculates the input amount required to receive an exact
// amountOut from the pool.
func GetAmountIn(
	amountOut *big.Int,
	tokenIn common.Address,
	tokenOut common.Address,
	pool uniswapv2.Pool,
) (*big.Int, error) {
	c := calcPool.Get().(*calc)
	defer calcPool.Put(c)
	return c.getAmountIn(amountOut, tokenIn, tokenOut, pool)
}

// SimulateSwap applies an exact-input swap to the pool snapshot and returns
// the output amount together with the post-trade pool state.
func SimulateSwap(
	amountIn *big.Int,
	tokenIn common.Address,
	tokenOut common.Address,
	pool uniswapv2.Pool,
) (*big.Int, uniswapv2.Pool, error) {
	c := calcPool.Get().(*calc)
	defer calcPool.Put(c)

	amountOut, err := c.getAmountOut(amountIn, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, uniswapv2.Pool{}, err
	}

	next := pool
	if tokenIn == pool.Token0 {
		next.Reserve0 = new(big.Int).Add(pool.Reserve0, amountIn)
		next.Reserve1 = new(big.Int).Sub(pool.Reserve1, amountOut)
	} else {
		next.Reserve1 = new(big.Int).Add(pool.Reserve1, amountIn)
		next.Reserve0 = new(big.Int).Sub(pool.Reserve0, amountOut)
	}
	return amountOut, next, nil
}

// GetReserves orients the pool's reserves for the given trade direction.
func GetReserves(tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (reserveIn, reserveOut *big.Int, err error) {
	if tokenIn == pool.Token0 && tokenOut == pool.Token1 {
		return pool.Reserve0, pool.Reserve1, nil
	} else if tokenIn == pool.Token1 && tokenOut == pool.Token0 {
		return pool.Reserve1, pool.Reserve0, nil
	}
	return nil, nil, fmt.Errorf("%w: pair %s does not contain %s -> %s", ErrTokenMismatch, pool.Pair, tokenIn, tokenOut)
}

func (c *calc) getAmountOut(
	amountIn *big.Int,
	tokenIn common.Address,
	tokenOut common.Address,
	pool uniswapv2.Pool,
) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, fmt.Errorf("%w: amountIn must be non-nil and non-negative", ErrInvalidInput)
	}

	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: reserves must be positive", ErrInvalidInput)
	}

	// amountOut = amountIn * (10000-feeBps) * reserveOut / (reserveIn*10000 + amountIn*(10000-feeBps))
	c.feeMultiplier.Sub(basisPointDivisor, big.NewInt(int64(pool.FeeBps)))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(reserveOut, c.amountInWithFee)
	c.denominator.Mul(reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	return new(big.Int).Quo(c.numerator, c.denominator), nil
}

func (c *calc) getAmountIn(
	amountOut *big.Int,
	tokenIn common.Address,
	tokenOut common.Address,
	pool uniswapv2.Pool,
) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() < 0 {
		return nil, fmt.Errorf("%w: amountOut must be non-nil and non-negative", ErrInvalidInput)
	}

	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: reserves must be positive", ErrInvalidInput)
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	// amountIn = reserveIn * amountOut * 10000 / ((reserveOut - amountOut) * (10000-feeBps)) + 1
	c.numerator.Mul(reserveIn, amountOut)
	c.numerator.Mul(c.numerator, basisPointDivisor)
	c.feeMultiplier.Sub(basisPointDivisor, big.NewInt(int64(pool.FeeBps)))
	c.denominator.Sub(reserveOut, amountOut)
	c.denominator.Mul(c.denominator, c.feeMultiplier)

	amountIn := new(big.Int).Quo(c.numerator, c.denominator)
	return amountIn.Add(amountIn, one), nil
}

// GetMidPrice returns the pool's spot price of tokenIn expressed in units of
// tokenOut, as the rational pair (reserveOut, reserveIn).
func GetMidPrice(tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (num, den *big.Int, err error) {
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: reserves must be positive", ErrInvalidInput)
	}
	return new(big.Int).Set(reserveOut), new(big.Int).Set(reserveIn), nil
}
