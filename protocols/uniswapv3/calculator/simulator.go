package calculator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	uniswapv3 "github.com/defistate/uniswap-broker-go/protocols/uniswapv3"
)

var (
	ErrInvalidAmountIn   = errors.New("amountIn must be greater than zero")
	ErrTokenMismatch     = errors.New("token mismatch")
	ErrInvalidPriceLimit = errors.New("sqrt price limit out of range")

	// maxSwapAmount stands in for an unbounded input when sizing a swap
	// purely by price limit.
	maxSwapAmount = new(big.Int).Lsh(big.NewInt(1), 255)
)

// EncodeSqrtRatioX96 encodes the rational price amount1/amount0 as a Q64.96
// sqrt price: floor(sqrt(amount1 * 2^192 / amount0)).
func EncodeSqrtRatioX96(amount1, amount0 *big.Int) (*big.Int, error) {
	if amount1 == nil || amount0 == nil || amount1.Sign() <= 0 || amount0.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price terms must be positive", ErrInvalidPriceLimit)
	}
	ratio := new(big.Int).Lsh(amount1, 192)
	ratio.Quo(ratio, amount0)
	return ratio.Sqrt(ratio), nil
}

// SimulateExactIn walks the pool's liquidity segments for an exact-input
// swap and returns the output amount together with the post-trade pool
// state. A nil sqrtPriceLimitX96 means no limit beyond the tick range.
func SimulateExactIn(
	amountIn *big.Int,
	sqrtPriceLimitX96 *big.Int,
	tokenIn common.Address,
	pool uniswapv3.Pool,
) (amountOut *big.Int, newPool uniswapv3.Pool, err error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, uniswapv3.Pool{}, ErrInvalidAmountIn
	}
	zeroForOne := tokenIn == pool.Token0
	if !zeroForOne && tokenIn != pool.Token1 {
		return nil, uniswapv3.Pool{}, fmt.Errorf("%w: token %s is not in pool %s", ErrTokenMismatch, tokenIn, pool.Address)
	}
	if sqrtPriceLimitX96 == nil {
		if zeroForOne {
			sqrtPriceLimitX96 = MinSqrtRatio
		} else {
			sqrtPriceLimitX96 = MaxSqrtRatio
		}
	}

	_, amountOut, newPool, err = swapWithinLimit(pool, amountIn, sqrtPriceLimitX96, zeroForOne)
	return amountOut, newPool, err
}

// SimulateToPrice sizes the exact-input swap that moves the pool's sqrt
// price to sqrtPriceTargetX96, traversing as many liquidity segments as the
// target requires. The returned amountIn includes the fee; amountOut is
// what the swap yields. A pool already at the target returns a zero trade.
func SimulateToPrice(
	sqrtPriceTargetX96 *big.Int,
	pool uniswapv3.Pool,
) (zeroForOne bool, amountIn, amountOut *big.Int, newPool uniswapv3.Pool, err error) {
	if pool.SqrtPriceX96 == nil || pool.SqrtPriceX96.Sign() <= 0 {
		return false, nil, nil, uniswapv3.Pool{}, fmt.Errorf("%w: pool sqrt price must be positive", ErrInvalidPriceLimit)
	}
	if sqrtPriceTargetX96 == nil || sqrtPriceTargetX96.Cmp(MinSqrtRatio) <= 0 || sqrtPriceTargetX96.Cmp(MaxSqrtRatio) >= 0 {
		return false, nil, nil, uniswapv3.Pool{}, ErrInvalidPriceLimit
	}

	switch sqrtPriceTargetX96.Cmp(pool.SqrtPriceX96) {
	case 0:
		return false, new(big.Int), new(big.Int), pool, nil
	case -1:
		zeroForOne = true
	}

	amountIn, amountOut, newPool, err = swapWithinLimit(pool, nil, sqrtPriceTargetX96, zeroForOne)
	return zeroForOne, amountIn, amountOut, newPool, err
}

// swapWithinLimit is the core tick-walking loop. amountSpecified nil sizes
// the swap purely by the price limit. The returned amountIn is
// fee-inclusive.
func swapWithinLimit(
	pool uniswapv3.Pool,
	amountSpecified *big.Int,
	sqrtPriceLimitX96 *big.Int,
	zeroForOne bool,
) (amountIn, amountOut *big.Int, newPool uniswapv3.Pool, err error) {
	remaining := new(big.Int).Set(maxSwapAmount)
	if amountSpecified != nil {
		remaining.Set(amountSpecified)
	}

	var (
		sqrtPrice = new(big.Int).Set(pool.SqrtPriceX96)
		liquidity = new(big.Int).Set(pool.Liquidity)
		tick      = pool.Tick
	)
	amountIn = new(big.Int)
	amountOut = new(big.Int)

	for remaining.Sign() > 0 && sqrtPrice.Cmp(sqrtPriceLimitX96) != 0 {
		sqrtPriceStart := new(big.Int).Set(sqrtPrice)

		tickNext, initialized := nextInitializedTick(pool.Ticks, tick, zeroForOne)
		if !initialized {
			break
		}
		if tickNext < MinTick {
			tickNext = MinTick
		} else if tickNext > MaxTick {
			tickNext = MaxTick
		}

		sqrtPriceNext, err := SqrtRatioAtTick(tickNext)
		if err != nil {
			return nil, nil, uniswapv3.Pool{}, err
		}

		target := sqrtPriceNext
		if (zeroForOne && sqrtPriceNext.Cmp(sqrtPriceLimitX96) < 0) ||
			(!zeroForOne && sqrtPriceNext.Cmp(sqrtPriceLimitX96) > 0) {
			target = sqrtPriceLimitX96
		}

		step, err := computeSwapStep(sqrtPrice, target, liquidity, remaining, pool.Fee)
		if err != nil {
			// Zero liquidity in this segment; price can only jump to the
			// next initialized tick.
			if liquidity.Sign() == 0 {
				sqrtPrice.Set(target)
				step.sqrtPriceNextX96 = sqrtPrice
				step.amountIn = new(big.Int)
				step.amountOut = new(big.Int)
				step.feeAmount = new(big.Int)
			} else {
				break
			}
		}

		sqrtPrice.Set(step.sqrtPriceNextX96)
		consumed := new(big.Int).Add(step.amountIn, step.feeAmount)
		remaining.Sub(remaining, consumed)
		amountIn.Add(amountIn, consumed)
		amountOut.Add(amountOut, step.amountOut)

		if sqrtPrice.Cmp(sqrtPriceNext) == 0 {
			if net, ok := liquidityNetAt(pool.Ticks, tickNext); ok {
				delta := new(big.Int).Set(net)
				if zeroForOne {
					delta.Neg(delta)
				}
				liquidity, err = addLiquidityDelta(liquidity, delta)
				if err != nil {
					if errors.Is(err, ErrLiquidityUnderflow) {
						break
					}
					return nil, nil, uniswapv3.Pool{}, err
				}
			}
			if zeroForOne {
				tick = tickNext - 1
			} else {
				tick = tickNext
			}
		} else if sqrtPrice.Cmp(sqrtPriceStart) != 0 {
			tick, err = TickAtSqrtRatio(sqrtPrice)
			if err != nil {
				return nil, nil, uniswapv3.Pool{}, err
			}
		}
	}

	newPool = pool
	newPool.SqrtPriceX96 = sqrtPrice
	newPool.Tick = tick
	newPool.Liquidity = liquidity
	return amountIn, amountOut, newPool, nil
}
