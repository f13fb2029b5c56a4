package broker

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	v2calculator "github.com/defistate/uniswap-broker-go/protocols/uniswapv2/calculator"
)

// V2Params describes one V2 swap-to-price request.
//
// TruePriceA and TruePriceB quote the external market rate of the pair as a
// ratio of token amounts: one unit of B trades for TruePriceA/TruePriceB
// units of A, which is also the reserve ratio the pool holds when its spot
// price matches the external market. MaxSpendA
// and MaxSpendB cap how much of each token the trade may consume; the cap on
// the token the sized trade does not sell is simply unused.
type V2Params struct {
	Pair    common.Address
	Router  common.Address
	Factory common.Address

	// Broker, when set, routes execution through the on-chain broker
	// contract, which re-sizes and swaps atomically at inclusion time.
	// TradingAsEOA then tells the contract to pull funds from the sender
	// rather than spend its own balance. When Broker is unset the client
	// sizes the trade itself and swaps directly through the router.
	Broker       common.Address
	TradingAsEOA bool

	TokenA common.Address
	TokenB common.Address

	TruePriceA *big.Int
	TruePriceB *big.Int
	MaxSpendA  *big.Int
	MaxSpendB  *big.Int

	Recipient common.Address
	Deadline  time.Time
}

func (p V2Params) validate() error {
	if p.Pair == (common.Address{}) && p.Broker == (common.Address{}) {
		return fmt.Errorf("%w: pair address not set", ErrInvalidParams)
	}
	if p.Router == (common.Address{}) {
		return fmt.Errorf("%w: router address not set", ErrInvalidParams)
	}
	if p.TokenA == p.TokenB {
		return fmt.Errorf("%w: token pair must be distinct", ErrInvalidParams)
	}
	if !positive(p.TruePriceA) || !positive(p.TruePriceB) {
		return fmt.Errorf("%w: true prices must be positive", ErrInvalidParams)
	}
	if !nonNegative(p.MaxSpendA) || !nonNegative(p.MaxSpendB) {
		return fmt.Errorf("%w: max spend caps must be set and non-negative", ErrInvalidParams)
	}
	if p.Recipient == (common.Address{}) {
		return fmt.Errorf("%w: recipient not set", ErrInvalidParams)
	}
	return nil
}

// V2Result reports what a V2 swap-to-price did.
type V2Result struct {
	// AToB is true when token A was sold for token B.
	AToB bool
	// AmountIn is the executed input size after max-spend capping. Zero when
	// the pool was already at the target.
	AmountIn *big.Int
	// ExpectedOut is the calculator's projection of the swap output given
	// the observed reserves.
	ExpectedOut *big.Int
	// Capped is true when the sized trade exceeded the max-spend bound.
	Capped bool
	// Receipt is nil when no transaction was needed.
	Receipt *types.Receipt
}

// SwapV2ToPrice moves the pair's spot price toward the supplied true price.
// The trade size comes from the closed-form constant-product solution, so
// the post-trade price lands within the pool fee's tolerance of the target.
// A pool already at the target returns a zero-trade result without touching
// the chain.
func (b *Broker) SwapV2ToPrice(ctx context.Context, params V2Params) (*V2Result, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	deadline, err := deadlineArg(params.Deadline)
	if err != nil {
		return nil, err
	}

	if params.Broker != (common.Address{}) {
		return b.swapV2ViaBroker(ctx, params, deadline)
	}

	pool, err := b.chain.PairSnapshot(ctx, params.Pair)
	if err != nil {
		return nil, err
	}
	if !pool.Contains(params.TokenA) || !pool.Contains(params.TokenB) {
		return nil, fmt.Errorf("%w: pair %s holds %s/%s", ErrTokenMismatch, params.Pair, pool.Token0, pool.Token1)
	}

	reserveA, reserveB, err := v2calculator.GetReserves(params.TokenA, params.TokenB, pool)
	if err != nil {
		return nil, err
	}

	aToB, amountIn, err := v2calculator.ComputeTradeToMoveMarket(
		params.TruePriceA, params.TruePriceB, reserveA, reserveB, pool.FeeBps)
	if err != nil {
		return nil, err
	}

	if amountIn.Sign() == 0 {
		b.logger.Info("Pool already at true price, no trade needed", "pair", params.Pair)
		return &V2Result{AmountIn: amountIn, ExpectedOut: new(big.Int)}, nil
	}

	tokenIn, tokenOut := params.TokenA, params.TokenB
	maxSpend := params.MaxSpendA
	if !aToB {
		tokenIn, tokenOut = params.TokenB, params.TokenA
		maxSpend = params.MaxSpendB
	}

	capped := amountIn.Cmp(maxSpend) > 0
	if capped {
		b.logger.Warn("Sized trade exceeds max spend, capping",
			"pair", params.Pair, "sized", amountIn, "cap", maxSpend)
		amountIn = new(big.Int).Set(maxSpend)
		if amountIn.Sign() == 0 {
			return &V2Result{AToB: aToB, AmountIn: amountIn, ExpectedOut: new(big.Int), Capped: true}, nil
		}
	}

	sender, err := b.chain.Sender()
	if err != nil {
		return nil, err
	}
	balance, err := b.chain.BalanceOf(ctx, tokenIn, sender)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amountIn) < 0 {
		return nil, fmt.Errorf("%w: need %s of %s, have %s", ErrInsufficientBalance, amountIn, tokenIn, balance)
	}

	expectedOut, err := v2calculator.GetAmountOut(amountIn, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}

	if err := b.chain.EnsureAllowance(ctx, tokenIn, params.Router, amountIn); err != nil {
		return nil, err
	}

	b.logger.Info("Executing V2 swap to price",
		"pair", params.Pair, "a_to_b", aToB,
		"amount_in", amountIn, "expected_out", expectedOut, "capped", capped)

	// Output is bounded by the max-spend cap and the price limit implied by
	// the sized input, so no separate slippage minimum is imposed.
	receipt, err := b.chain.SwapExactTokensForTokens(
		ctx, params.Router,
		amountIn, new(big.Int),
		[]common.Address{tokenIn, tokenOut},
		params.Recipient, deadline)
	if err != nil {
		return nil, err
	}

	return &V2Result{
		AToB:        aToB,
		AmountIn:    amountIn,
		ExpectedOut: expectedOut,
		Capped:      capped,
		Receipt:     receipt,
	}, nil
}

func (b *Broker) swapV2ViaBroker(ctx context.Context, params V2Params, deadline *big.Int) (*V2Result, error) {
	if params.Factory == (common.Address{}) {
		return nil, fmt.Errorf("%w: factory address required for broker-contract execution", ErrInvalidParams)
	}

	b.logger.Info("Executing V2 swap to price via broker contract",
		"broker", params.Broker, "trading_as_eoa", params.TradingAsEOA)

	receipt, err := b.chain.V2BrokerSwapToPrice(
		ctx, params.Broker, params.TradingAsEOA,
		params.Router, params.Factory,
		[2]common.Address{params.TokenA, params.TokenB},
		[2]*big.Int{params.TruePriceA, params.TruePriceB},
		[2]*big.Int{params.MaxSpendA, params.MaxSpendB},
		params.Recipient, deadline)
	if err != nil {
		return nil, err
	}
	return &V2Result{Receipt: receipt}, nil
}
