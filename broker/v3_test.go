package broker

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/uniswap-broker-go/protocols/uniswapv3"
	v3calculator "github.com/defistate/uniswap-broker-go/protocols/uniswapv3/calculator"
)

var poolAddr = common.HexToAddress("0x6666666666666666666666666666666666666666")

// v3Fake holds a pool at price 10 with one liquidity range around it.
func v3Fake(t *testing.T) *fakeChain {
	t.Helper()

	sqrtPrice, err := v3calculator.EncodeSqrtRatioX96(big.NewInt(10), big.NewInt(1))
	require.NoError(t, err)
	tick, err := v3calculator.TickAtSqrtRatio(sqrtPrice)
	require.NoError(t, err)

	liquidity := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return &fakeChain{
		sender: trader,
		pool: uniswapv3.Pool{
			Address:      poolAddr,
			Token0:       tokenA,
			Token1:       tokenB,
			Fee:          3000,
			TickSpacing:  60,
			Tick:         tick,
			Liquidity:    liquidity,
			SqrtPriceX96: sqrtPrice,
			Ticks: []uniswapv3.TickInfo{
				{Index: 20760, LiquidityGross: liquidity, LiquidityNet: new(big.Int).Set(liquidity)},
				{Index: 27120, LiquidityGross: liquidity, LiquidityNet: new(big.Int).Neg(liquidity)},
			},
		},
	}
}

func v3TestParams(chain *fakeChain) V3Params {
	return V3Params{
		Pool:             poolAddr,
		Router:           router,
		PriceNumerator:   big.NewInt(13),
		PriceDenominator: big.NewInt(1),
		MaxSpend0:        bigSpendCap(),
		MaxSpend1:        bigSpendCap(),
		Ticks:            chain.pool.Ticks,
		Recipient:        trader,
		Deadline:         time.Now().Add(time.Hour),
	}
}

func TestSwapV3ToPrice_LandsOnTarget(t *testing.T) {
	chain := v3Fake(t)
	b := New(chain, nopLogger)

	result, err := b.SwapV3ToPrice(context.Background(), v3TestParams(chain))
	require.NoError(t, err)

	// Raising the price sells token1 into the pool.
	assert.False(t, result.ZeroForOne)
	assert.False(t, result.Capped)
	assert.NotNil(t, result.Receipt)
	assert.Equal(t, []common.Address{tokenB}, chain.approvals)

	target, err := v3calculator.EncodeSqrtRatioX96(big.NewInt(13), big.NewInt(1))
	require.NoError(t, err)

	require.Len(t, chain.v3Swaps, 1)
	call := chain.v3Swaps[0]
	assert.Equal(t, tokenB, call.TokenIn)
	assert.Equal(t, tokenA, call.TokenOut)
	assert.Equal(t, result.AmountIn, call.AmountIn)
	assert.Zero(t, call.SqrtPriceLimitX96.Cmp(target))

	// The price limit stops the pool exactly on target.
	assert.Zero(t, chain.pool.SqrtPriceX96.Cmp(target))
}

func TestSwapV3ToPrice_AtTargetIsZeroTrade(t *testing.T) {
	chain := v3Fake(t)
	b := New(chain, nopLogger)

	params := v3TestParams(chain)
	params.PriceNumerator = big.NewInt(10)

	result, err := b.SwapV3ToPrice(context.Background(), params)
	require.NoError(t, err)

	assert.Zero(t, result.AmountIn.Sign())
	assert.Nil(t, result.Receipt)
	assert.Empty(t, chain.v3Swaps)
	assert.Empty(t, chain.approvals)
}

func TestSwapV3ToPrice_CapsAtMaxSpend(t *testing.T) {
	chain := v3Fake(t)
	b := New(chain, nopLogger)

	params := v3TestParams(chain)
	params.MaxSpend1 = big.NewInt(1_000_000)

	result, err := b.SwapV3ToPrice(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, result.Capped)
	assert.Equal(t, big.NewInt(1_000_000), result.AmountIn)
	require.Len(t, chain.v3Swaps, 1)
	assert.Equal(t, big.NewInt(1_000_000), chain.v3Swaps[0].AmountIn)

	target, err := v3calculator.EncodeSqrtRatioX96(big.NewInt(13), big.NewInt(1))
	require.NoError(t, err)
	assert.Negative(t, chain.pool.SqrtPriceX96.Cmp(target),
		"capped trade must stop short of the target")
}

func TestSwapV3ToPrice_DefaultsToWholeRangeTicks(t *testing.T) {
	chain := v3Fake(t)
	b := New(chain, nopLogger)

	params := v3TestParams(chain)
	params.Ticks = nil

	result, err := b.SwapV3ToPrice(context.Background(), params)
	require.NoError(t, err)
	require.NotNil(t, result.Receipt)

	target, err := v3calculator.EncodeSqrtRatioX96(big.NewInt(13), big.NewInt(1))
	require.NoError(t, err)
	assert.Zero(t, chain.pool.SqrtPriceX96.Cmp(target))
}

func TestSwapV3ToPrice_ExplicitSqrtTargetWins(t *testing.T) {
	chain := v3Fake(t)
	b := New(chain, nopLogger)

	target, err := v3calculator.EncodeSqrtRatioX96(big.NewInt(12), big.NewInt(1))
	require.NoError(t, err)

	params := v3TestParams(chain)
	params.SqrtPriceTargetX96 = target
	params.PriceNumerator = big.NewInt(99) // ignored

	_, err = b.SwapV3ToPrice(context.Background(), params)
	require.NoError(t, err)
	assert.Zero(t, chain.pool.SqrtPriceX96.Cmp(target))
}

func TestSwapV3ToPrice_BrokerContractMode(t *testing.T) {
	chain := v3Fake(t)
	b := New(chain, nopLogger)

	brokerAddr := common.HexToAddress("0x7777777777777777777777777777777777777777")
	params := v3TestParams(chain)
	params.Broker = brokerAddr
	params.TradingAsEOA = true

	result, err := b.SwapV3ToPrice(context.Background(), params)
	require.NoError(t, err)

	assert.NotNil(t, result.Receipt)
	assert.Empty(t, chain.v3Swaps, "direct router path must not run")
	require.Len(t, chain.v3BrokerCalls, 1)

	target, err := v3calculator.EncodeSqrtRatioX96(big.NewInt(13), big.NewInt(1))
	require.NoError(t, err)

	call := chain.v3BrokerCalls[0]
	assert.Equal(t, brokerAddr, call.broker)
	assert.True(t, call.tradingAsEOA)
	assert.Equal(t, poolAddr, call.pool)
	assert.Equal(t, router, call.router)
	assert.Zero(t, call.target.Cmp(target))
}

func TestSwapV3ToPrice_ParamValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*V3Params)
	}{
		{"missing pool", func(p *V3Params) { p.Pool = common.Address{} }},
		{"missing router", func(p *V3Params) { p.Router = common.Address{} }},
		{"nil price numerator", func(p *V3Params) { p.PriceNumerator = nil }},
		{"zero price denominator", func(p *V3Params) { p.PriceDenominator = new(big.Int) }},
		{"negative sqrt target", func(p *V3Params) { p.SqrtPriceTargetX96 = big.NewInt(-1) }},
		{"nil max spend", func(p *V3Params) { p.MaxSpend0 = nil }},
		{"negative max spend", func(p *V3Params) { p.MaxSpend1 = big.NewInt(-1) }},
		{"missing recipient", func(p *V3Params) { p.Recipient = common.Address{} }},
		{"expired deadline", func(p *V3Params) { p.Deadline = time.Now().Add(-time.Minute) }},
	}

	chain := v3Fake(t)
	b := New(chain, nopLogger)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := v3TestParams(chain)
			tt.mutate(&params)
			_, err := b.SwapV3ToPrice(context.Background(), params)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}
