package broker

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/uniswap-broker-go/protocols/uniswapv2"
)

var (
	tokenA   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB   = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pairAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	router   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	factory  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	trader   = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func bigSpendCap() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 100)
}

func v2Fake(reserveA, reserveB int64) *fakeChain {
	return &fakeChain{
		sender: trader,
		pair: uniswapv2.Pool{
			Pair:     pairAddr,
			Token0:   tokenA,
			Token1:   tokenB,
			Reserve0: big.NewInt(reserveA),
			Reserve1: big.NewInt(reserveB),
			FeeBps:   uniswapv2.DefaultFeeBps,
		},
	}
}

func v2TestParams() V2Params {
	return V2Params{
		Pair:       pairAddr,
		Router:     router,
		TokenA:     tokenA,
		TokenB:     tokenB,
		TruePriceA: big.NewInt(1000),
		TruePriceB: big.NewInt(1),
		MaxSpendA:  bigSpendCap(),
		MaxSpendB:  bigSpendCap(),
		Recipient:  trader,
		Deadline:   time.Now().Add(time.Hour),
	}
}

func pairRatio(pool uniswapv2.Pool) decimal.Decimal {
	return decimal.NewFromBigInt(pool.Reserve0, 0).
		DivRound(decimal.NewFromBigInt(pool.Reserve1, 0), 12)
}

func TestSwapV2ToPrice_RestoresPerturbedPool(t *testing.T) {
	// Ratio 990.1 against a true price of 1000: the broker must sell A.
	chain := v2Fake(10_000_000_000, 10_100_000)
	b := New(chain, nopLogger)

	result, err := b.SwapV2ToPrice(context.Background(), v2TestParams())
	require.NoError(t, err)

	assert.True(t, result.AToB)
	assert.False(t, result.Capped)
	assert.NotNil(t, result.Receipt)
	require.Len(t, chain.v2Swaps, 1)

	call := chain.v2Swaps[0]
	assert.Equal(t, []common.Address{tokenA, tokenB}, call.path)
	assert.Equal(t, trader, call.to)
	assert.Equal(t, result.AmountIn, call.amountIn)
	assert.Equal(t, []common.Address{tokenA}, chain.approvals)

	// The closed form lands within the pool fee's tolerance of the target.
	ratio := pairRatio(chain.pair)
	drift := ratio.Sub(decimal.NewFromInt(1000)).Abs().Div(decimal.NewFromInt(1000))
	assert.True(t, drift.LessThan(decimal.NewFromFloat(0.005)),
		"post-trade ratio %s drifts %s from target", ratio, drift)
}

func TestSwapV2ToPrice_AtTargetIsZeroTrade(t *testing.T) {
	chain := v2Fake(10_000_000_000, 10_000_000)
	b := New(chain, nopLogger)

	result, err := b.SwapV2ToPrice(context.Background(), v2TestParams())
	require.NoError(t, err)

	assert.Zero(t, result.AmountIn.Sign())
	assert.Nil(t, result.Receipt)
	assert.Empty(t, chain.v2Swaps)
	assert.Empty(t, chain.approvals)
}

func TestSwapV2ToPrice_CapsAtMaxSpend(t *testing.T) {
	chain := v2Fake(10_000_000_000, 10_100_000)
	b := New(chain, nopLogger)

	params := v2TestParams()
	params.MaxSpendA = big.NewInt(1_000)

	result, err := b.SwapV2ToPrice(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, result.Capped)
	assert.Equal(t, big.NewInt(1_000), result.AmountIn)
	require.Len(t, chain.v2Swaps, 1)
	assert.Equal(t, big.NewInt(1_000), chain.v2Swaps[0].amountIn)
}

func TestSwapV2ToPrice_ZeroCapSkipsTrade(t *testing.T) {
	chain := v2Fake(10_000_000_000, 10_100_000)
	b := New(chain, nopLogger)

	params := v2TestParams()
	params.MaxSpendA = new(big.Int)

	result, err := b.SwapV2ToPrice(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, result.Capped)
	assert.Zero(t, result.AmountIn.Sign())
	assert.Nil(t, result.Receipt)
	assert.Empty(t, chain.v2Swaps)
}

func TestSwapV2ToPrice_InsufficientBalance(t *testing.T) {
	chain := v2Fake(10_000_000_000, 10_100_000)
	chain.balances = map[common.Address]*big.Int{tokenA: big.NewInt(10)}
	b := New(chain, nopLogger)

	_, err := b.SwapV2ToPrice(context.Background(), v2TestParams())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, chain.v2Swaps)
}

func TestSwapV2ToPrice_TokenMismatch(t *testing.T) {
	chain := v2Fake(10_000_000_000, 10_100_000)
	b := New(chain, nopLogger)

	params := v2TestParams()
	params.TokenB = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	_, err := b.SwapV2ToPrice(context.Background(), params)
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestSwapV2ToPrice_ParamValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*V2Params)
	}{
		{"missing pair", func(p *V2Params) { p.Pair = common.Address{} }},
		{"missing router", func(p *V2Params) { p.Router = common.Address{} }},
		{"identical tokens", func(p *V2Params) { p.TokenB = p.TokenA }},
		{"nil true price", func(p *V2Params) { p.TruePriceA = nil }},
		{"zero true price", func(p *V2Params) { p.TruePriceB = new(big.Int) }},
		{"nil max spend", func(p *V2Params) { p.MaxSpendA = nil }},
		{"negative max spend", func(p *V2Params) { p.MaxSpendB = big.NewInt(-1) }},
		{"missing recipient", func(p *V2Params) { p.Recipient = common.Address{} }},
		{"unset deadline", func(p *V2Params) { p.Deadline = time.Time{} }},
		{"expired deadline", func(p *V2Params) { p.Deadline = time.Now().Add(-time.Minute) }},
	}

	b := New(v2Fake(10_000_000_000, 10_000_000), nopLogger)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := v2TestParams()
			tt.mutate(&params)
			_, err := b.SwapV2ToPrice(context.Background(), params)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestSwapV2ToPrice_BrokerContractMode(t *testing.T) {
	chain := v2Fake(10_000_000_000, 10_100_000)
	b := New(chain, nopLogger)

	brokerAddr := common.HexToAddress("0x5555555555555555555555555555555555555555")
	params := v2TestParams()
	params.Broker = brokerAddr
	params.Factory = factory
	params.TradingAsEOA = true

	result, err := b.SwapV2ToPrice(context.Background(), params)
	require.NoError(t, err)

	assert.NotNil(t, result.Receipt)
	assert.Empty(t, chain.v2Swaps, "direct router path must not run")
	require.Len(t, chain.v2BrokerCalls, 1)

	call := chain.v2BrokerCalls[0]
	assert.Equal(t, brokerAddr, call.broker)
	assert.True(t, call.tradingAsEOA)
	assert.Equal(t, factory, call.factory)
	assert.Equal(t, [2]common.Address{tokenA, tokenB}, call.tokens)
	assert.Equal(t, [2]*big.Int{big.NewInt(1000), big.NewInt(1)}, call.truePrices)
}

func TestSwapV2ToPrice_BrokerContractRequiresFactory(t *testing.T) {
	b := New(v2Fake(10_000_000_000, 10_100_000), nopLogger)

	params := v2TestParams()
	params.Broker = common.HexToAddress("0x5555555555555555555555555555555555555555")

	_, err := b.SwapV2ToPrice(context.Background(), params)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
