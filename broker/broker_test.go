package broker

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/defistate/uniswap-broker-go/chains"
	"github.com/defistate/uniswap-broker-go/contracts"
	"github.com/defistate/uniswap-broker-go/protocols/uniswapv2"
	v2calculator "github.com/defistate/uniswap-broker-go/protocols/uniswapv2/calculator"
	"github.com/defistate/uniswap-broker-go/protocols/uniswapv3"
	v3calculator "github.com/defistate/uniswap-broker-go/protocols/uniswapv3/calculator"
)

type v2SwapCall struct {
	router   common.Address
	amountIn *big.Int
	minOut   *big.Int
	path     []common.Address
	to       common.Address
	deadline *big.Int
}

type v2BrokerCall struct {
	broker       common.Address
	tradingAsEOA bool
	router       common.Address
	factory      common.Address
	tokens       [2]common.Address
	truePrices   [2]*big.Int
	maxSpend     [2]*big.Int
}

type v3BrokerCall struct {
	broker       common.Address
	tradingAsEOA bool
	pool         common.Address
	router       common.Address
	target       *big.Int
}

// fakeChain holds one V2 pair and one V3 pool in memory and applies swaps
// to them with the off-chain calculators.
type fakeChain struct {
	sender   common.Address
	balances map[common.Address]*big.Int

	pair uniswapv2.Pool
	pool uniswapv3.Pool

	approvals     []common.Address
	v2Swaps       []v2SwapCall
	v3Swaps       []contracts.ExactInputSingleParams
	v2BrokerCalls []v2BrokerCall
	v3BrokerCalls []v3BrokerCall
}

func okReceipt() *types.Receipt {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}
}

func (f *fakeChain) Sender() (common.Address, error) {
	return f.sender, nil
}

func (f *fakeChain) BalanceOf(_ context.Context, token, _ common.Address) (*big.Int, error) {
	if bal, ok := f.balances[token]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int).Lsh(big.NewInt(1), 200), nil
}

func (f *fakeChain) EnsureAllowance(_ context.Context, token, _ common.Address, _ *big.Int) error {
	f.approvals = append(f.approvals, token)
	return nil
}

func (f *fakeChain) PairSnapshot(_ context.Context, _ common.Address) (uniswapv2.Pool, error) {
	return f.pair, nil
}

func (f *fakeChain) SwapExactTokensForTokens(
	_ context.Context,
	router common.Address,
	amountIn, amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline *big.Int,
) (*types.Receipt, error) {
	tokenOut, _ := f.pair.Other(path[0])
	_, newPool, err := v2calculator.SimulateSwap(amountIn, path[0], tokenOut, f.pair)
	if err != nil {
		return nil, err
	}
	f.pair = newPool
	f.v2Swaps = append(f.v2Swaps, v2SwapCall{router, amountIn, amountOutMin, path, to, deadline})
	return okReceipt(), nil
}

func (f *fakeChain) V2BrokerSwapToPrice(
	_ context.Context,
	broker common.Address,
	tradingAsEOA bool,
	router, factory common.Address,
	swappedTokens [2]common.Address,
	truePrices, maxSpend [2]*big.Int,
	_ common.Address,
	_ *big.Int,
) (*types.Receipt, error) {
	f.v2BrokerCalls = append(f.v2BrokerCalls, v2BrokerCall{
		broker: broker, tradingAsEOA: tradingAsEOA,
		router: router, factory: factory,
		tokens: swappedTokens, truePrices: truePrices, maxSpend: maxSpend,
	})
	return okReceipt(), nil
}

func (f *fakeChain) PoolSnapshot(_ context.Context, _ common.Address) (uniswapv3.Pool, error) {
	return f.pool, nil
}

func (f *fakeChain) ExactInputSingle(
	_ context.Context,
	_ common.Address,
	params contracts.ExactInputSingleParams,
) (*types.Receipt, error) {
	_, newPool, err := v3calculator.SimulateExactIn(
		params.AmountIn, params.SqrtPriceLimitX96, params.TokenIn, f.pool)
	if err != nil {
		return nil, err
	}
	f.pool = newPool
	f.v3Swaps = append(f.v3Swaps, params)
	return okReceipt(), nil
}

func (f *fakeChain) V3BrokerSwapToPrice(
	_ context.Context,
	broker common.Address,
	tradingAsEOA bool,
	pool, swapRouter common.Address,
	sqrtRatioTargetX96 *big.Int,
	_ common.Address,
	_ *big.Int,
) (*types.Receipt, error) {
	f.v3BrokerCalls = append(f.v3BrokerCalls, v3BrokerCall{
		broker: broker, tradingAsEOA: tradingAsEOA,
		pool: pool, router: swapRouter, target: sqrtRatioTargetX96,
	})
	return okReceipt(), nil
}

var _ Chain = (*fakeChain)(nil)

var nopLogger = chains.NopLogger{}
