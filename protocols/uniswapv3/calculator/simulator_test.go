package calculator

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uniswapv3 "github.com/defistate/uniswap-broker-go/protocols/uniswapv3"
)

var (
	token0 = common.HexToAddress("0x0000000000000000000000000000000000000A00")
	token1 = common.HexToAddress("0x0000000000000000000000000000000000000B00")
)

// priceOf translates a sqrt price back into a decimal token1/token0 price.
func priceOf(sqrtPriceX96 *big.Int) decimal.Decimal {
	sqrt := decimal.NewFromBigInt(sqrtPriceX96, 0).DivRound(decimal.NewFromBigInt(Q96, 0), 24)
	return sqrt.Mul(sqrt)
}

// rangePool builds a pool at the given price with a single liquidity
// position spanning [tickLower, tickUpper].
func rangePool(t *testing.T, priceNum, priceDen int64, tickLower, tickUpper int64, liquidity *big.Int) uniswapv3.Pool {
	t.Helper()

	sqrtPrice, err := EncodeSqrtRatioX96(big.NewInt(priceNum), big.NewInt(priceDen))
	require.NoError(t, err)
	tick, err := TickAtSqrtRatio(sqrtPrice)
	require.NoError(t, err)
	require.True(t, tickLower <= tick && tick < tickUpper, "price must start inside the range")

	return uniswapv3.Pool{
		Address:      common.HexToAddress("0x0000000000000000000000000000000000000Ccc"),
		Token0:       token0,
		Token1:       token1,
		Fee:          3000,
		TickSpacing:  60,
		Tick:         tick,
		Liquidity:    new(big.Int).Set(liquidity),
		SqrtPriceX96: sqrtPrice,
		Ticks: []uniswapv3.TickInfo{
			{Index: tickLower, LiquidityGross: new(big.Int).Set(liquidity), LiquidityNet: new(big.Int).Set(liquidity)},
			{Index: tickUpper, LiquidityGross: new(big.Int).Set(liquidity), LiquidityNet: new(big.Int).Neg(liquidity)},
		},
	}
}

func TestSimulateToPrice_LandsExactlyOnTarget(t *testing.T) {
	// Pool at price 10 with liquidity spanning roughly prices 8..15
	// (ticks 20760..27120); the target 13 sits inside the range.
	liquidity := new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18))
	pool := rangePool(t, 10, 1, 20760, 27120, liquidity)

	target, err := EncodeSqrtRatioX96(big.NewInt(13), big.NewInt(1))
	require.NoError(t, err)

	zeroForOne, amountIn, amountOut, moved, err := SimulateToPrice(target, pool)
	require.NoError(t, err)

	// raising token1/token0 means selling token1 into the pool
	assert.False(t, zeroForOne)
	assert.Positive(t, amountIn.Sign())
	assert.Positive(t, amountOut.Sign())

	// the price limit is inside the range, so the landing is exact
	assert.Zero(t, moved.SqrtPriceX96.Cmp(target))

	wantTick, err := TickAtSqrtRatio(target)
	require.NoError(t, err)
	assert.Equal(t, wantTick, moved.Tick)

	got := priceOf(moved.SqrtPriceX96)
	diff := got.Sub(decimal.NewFromInt(13)).Abs()
	assert.True(t, diff.LessThan(decimal.RequireFromString("0.000001")), "price %s", got)
}

func TestSimulateToPrice_AtTargetIsZeroTrade(t *testing.T) {
	liquidity := big.NewInt(1e18)
	pool := rangePool(t, 10, 1, 20760, 27120, liquidity)

	_, amountIn, amountOut, moved, err := SimulateToPrice(pool.SqrtPriceX96, pool)
	require.NoError(t, err)
	assert.Zero(t, amountIn.Sign())
	assert.Zero(t, amountOut.Sign())
	assert.Zero(t, moved.SqrtPriceX96.Cmp(pool.SqrtPriceX96))
}

func TestSimulateToPrice_ClampsAtRangeEdge(t *testing.T) {
	liquidity := big.NewInt(1e18)
	pool := rangePool(t, 10, 1, 20760, 27120, liquidity)

	// Target far below the position's lower bound: the walk drains the
	// range and stops at its edge with no liquidity left.
	target, err := EncodeSqrtRatioX96(big.NewInt(2), big.NewInt(1))
	require.NoError(t, err)

	zeroForOne, amountIn, _, moved, err := SimulateToPrice(target, pool)
	require.NoError(t, err)
	assert.True(t, zeroForOne)
	assert.Positive(t, amountIn.Sign())
	assert.Zero(t, moved.Liquidity.Sign())

	edge, err := SqrtRatioAtTick(20760)
	require.NoError(t, err)
	assert.Zero(t, moved.SqrtPriceX96.Cmp(edge))
}

func TestSimulateToPrice_CrossesSegments(t *testing.T) {
	// Inner position stacked on a wide outer one; moving to price 2
	// crosses the inner range's upper tick at 300.
	outer := new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))
	inner := new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))

	sqrtPrice, err := EncodeSqrtRatioX96(big.NewInt(1), big.NewInt(1))
	require.NoError(t, err)

	pool := uniswapv3.Pool{
		Token0:       token0,
		Token1:       token1,
		Fee:          3000,
		TickSpacing:  60,
		Tick:         0,
		Liquidity:    new(big.Int).Add(outer, inner),
		SqrtPriceX96: sqrtPrice,
		Ticks: []uniswapv3.TickInfo{
			{Index: -60000, LiquidityGross: new(big.Int).Set(outer), LiquidityNet: new(big.Int).Set(outer)},
			{Index: -300, LiquidityGross: new(big.Int).Set(inner), LiquidityNet: new(big.Int).Set(inner)},
			{Index: 300, LiquidityGross: new(big.Int).Set(inner), LiquidityNet: new(big.Int).Neg(inner)},
			{Index: 60000, LiquidityGross: new(big.Int).Set(outer), LiquidityNet: new(big.Int).Neg(outer)},
		},
	}

	target, err := EncodeSqrtRatioX96(big.NewInt(2), big.NewInt(1))
	require.NoError(t, err)

	zeroForOne, amountIn, _, moved, err := SimulateToPrice(target, pool)
	require.NoError(t, err)
	assert.False(t, zeroForOne)
	assert.Positive(t, amountIn.Sign())

	// exact landing past the crossed tick, with only the outer position live
	assert.Zero(t, moved.SqrtPriceX96.Cmp(target))
	assert.Zero(t, moved.Liquidity.Cmp(outer))
}

func TestSimulateExactIn_MatchesSizedTrade(t *testing.T) {
	liquidity := new(big.Int).Mul(big.NewInt(7), big.NewInt(1e18))
	pool := rangePool(t, 10, 1, 20760, 27120, liquidity)

	target, err := EncodeSqrtRatioX96(big.NewInt(13), big.NewInt(1))
	require.NoError(t, err)

	_, amountIn, amountOut, _, err := SimulateToPrice(target, pool)
	require.NoError(t, err)

	// Feeding the sized amount back through an exact-input swap with the
	// same price limit reproduces the landing and output.
	gotOut, moved, err := SimulateExactIn(amountIn, target, token1, pool)
	require.NoError(t, err)
	assert.Zero(t, gotOut.Cmp(amountOut))
	assert.Zero(t, moved.SqrtPriceX96.Cmp(target))
}

func TestSimulateExactIn_InvalidInputs(t *testing.T) {
	pool := rangePool(t, 10, 1, 20760, 27120, big.NewInt(1e18))

	_, _, err := SimulateExactIn(nil, nil, token0, pool)
	assert.ErrorIs(t, err, ErrInvalidAmountIn)

	_, _, err = SimulateExactIn(big.NewInt(0), nil, token0, pool)
	assert.ErrorIs(t, err, ErrInvalidAmountIn)

	stranger := common.HexToAddress("0x0000000000000000000000000000000000000D00")
	_, _, err = SimulateExactIn(big.NewInt(1), nil, stranger, pool)
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestSimulateToPrice_InvalidLimit(t *testing.T) {
	pool := rangePool(t, 10, 1, 20760, 27120, big.NewInt(1e18))

	_, _, _, _, err := SimulateToPrice(nil, pool)
	assert.ErrorIs(t, err, ErrInvalidPriceLimit)

	_, _, _, _, err = SimulateToPrice(big.NewInt(1), pool)
	assert.ErrorIs(t, err, ErrInvalidPriceLimit)

	_, _, _, _, err = SimulateToPrice(MaxSqrtRatio, pool)
	assert.ErrorIs(t, err, ErrInvalidPriceLimit)
}
