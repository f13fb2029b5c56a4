package broker

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/defistate/uniswap-broker-go/contracts"
	"github.com/defistate/uniswap-broker-go/protocols/uniswapv3"
	v3calculator "github.com/defistate/uniswap-broker-go/protocols/uniswapv3/calculator"
)

// V3Params describes one V3 swap-to-price request.
//
// The target price is the rational PriceNumerator/PriceDenominator, quoting
// token0 in token1. SqrtPriceTargetX96, when set, is used verbatim and the
// rational form is ignored.
type V3Params struct {
	Pool   common.Address
	Router common.Address

	// Broker, when set, routes execution through the on-chain broker
	// contract. TradingAsEOA then tells the contract to pull funds from the
	// sender rather than spend its own balance. When Broker is unset the
	// client sizes the trade itself and swaps through the router with the
	// target as the price limit.
	Broker       common.Address
	TradingAsEOA bool

	PriceNumerator     *big.Int
	PriceDenominator   *big.Int
	SqrtPriceTargetX96 *big.Int

	// MaxSpend0 and MaxSpend1 cap how much of each pool token the trade may
	// consume; the cap on the token the trade does not sell is unused.
	MaxSpend0 *big.Int
	MaxSpend1 *big.Int

	// Ticks supplies initialized-tick data for multi-range sizing. When
	// empty, sizing is limited to the pool's current liquidity range.
	Ticks []uniswapv3.TickInfo

	Recipient common.Address
	Deadline  time.Time
}

func (p V3Params) validate() error {
	if p.Pool == (common.Address{}) {
		return fmt.Errorf("%w: pool address not set", ErrInvalidParams)
	}
	if p.Router == (common.Address{}) {
		return fmt.Errorf("%w: router address not set", ErrInvalidParams)
	}
	if p.SqrtPriceTargetX96 == nil && (!positive(p.PriceNumerator) || !positive(p.PriceDenominator)) {
		return fmt.Errorf("%w: target price must be positive", ErrInvalidParams)
	}
	if !nonNegative(p.MaxSpend0) || !nonNegative(p.MaxSpend1) {
		return fmt.Errorf("%w: max spend caps must be set and non-negative", ErrInvalidParams)
	}
	if p.Recipient == (common.Address{}) {
		return fmt.Errorf("%w: recipient not set", ErrInvalidParams)
	}
	return nil
}

func (p V3Params) target() (*big.Int, error) {
	if p.SqrtPriceTargetX96 != nil {
		if p.SqrtPriceTargetX96.Sign() <= 0 {
			return nil, fmt.Errorf("%w: sqrt price target must be positive", ErrInvalidParams)
		}
		return p.SqrtPriceTargetX96, nil
	}
	return v3calculator.EncodeSqrtRatioX96(p.PriceNumerator, p.PriceDenominator)
}

// V3Result reports what a V3 swap-to-price did.
type V3Result struct {
	// ZeroForOne is true when token0 was sold for token1.
	ZeroForOne bool
	// AmountIn is the executed fee-inclusive input size after max-spend
	// capping. Zero when the pool was already at the target.
	AmountIn *big.Int
	// ExpectedOut is the simulator's projection of the swap output.
	ExpectedOut *big.Int
	// Capped is true when the sized trade exceeded the max-spend bound.
	Capped bool
	// Receipt is nil when no transaction was needed.
	Receipt *types.Receipt
}

// SwapV3ToPrice moves the pool's sqrt price to the supplied target. The
// router swap carries the target as its price limit, so the pool stops
// exactly on target even if the sized input would overshoot; when liquidity
// runs out before the target, the swap stops at the range edge.
func (b *Broker) SwapV3ToPrice(ctx context.Context, params V3Params) (*V3Result, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	deadline, err := deadlineArg(params.Deadline)
	if err != nil {
		return nil, err
	}
	target, err := params.target()
	if err != nil {
		return nil, err
	}

	if params.Broker != (common.Address{}) {
		return b.swapV3ViaBroker(ctx, params, target, deadline)
	}

	pool, err := b.chain.PoolSnapshot(ctx, params.Pool)
	if err != nil {
		return nil, err
	}
	pool.Ticks = params.Ticks
	if len(pool.Ticks) == 0 {
		// Without tick data, treat the current liquidity as one range
		// spanning the whole tick domain.
		pool.Ticks = []uniswapv3.TickInfo{
			{Index: v3calculator.MinTick, LiquidityGross: new(big.Int), LiquidityNet: new(big.Int)},
			{Index: v3calculator.MaxTick, LiquidityGross: new(big.Int), LiquidityNet: new(big.Int)},
		}
	}

	zeroForOne, amountIn, expectedOut, _, err := v3calculator.SimulateToPrice(target, pool)
	if err != nil {
		return nil, err
	}

	if amountIn.Sign() == 0 {
		b.logger.Info("Pool already at target price, no trade needed", "pool", params.Pool)
		return &V3Result{AmountIn: amountIn, ExpectedOut: expectedOut}, nil
	}

	tokenIn, tokenOut := pool.Token0, pool.Token1
	maxSpend := params.MaxSpend0
	if !zeroForOne {
		tokenIn, tokenOut = pool.Token1, pool.Token0
		maxSpend = params.MaxSpend1
	}

	capped := amountIn.Cmp(maxSpend) > 0
	if capped {
		b.logger.Warn("Sized trade exceeds max spend, capping",
			"pool", params.Pool, "sized", amountIn, "cap", maxSpend)
		amountIn = new(big.Int).Set(maxSpend)
		if amountIn.Sign() == 0 {
			return &V3Result{ZeroForOne: zeroForOne, AmountIn: amountIn, ExpectedOut: new(big.Int), Capped: true}, nil
		}
		expectedOut, _, err = v3calculator.SimulateExactIn(amountIn, target, tokenIn, pool)
		if err != nil {
			return nil, err
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

	if err := b.chain.EnsureAllowance(ctx, tokenIn, params.Router, amountIn); err != nil {
		return nil, err
	}

	b.logger.Info("Executing V3 swap to price",
		"pool", params.Pool, "zero_for_one", zeroForOne,
		"amount_in", amountIn, "expected_out", expectedOut, "capped", capped)

	receipt, err := b.chain.ExactInputSingle(ctx, params.Router, contracts.ExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               new(big.Int).SetUint64(pool.Fee),
		Recipient:         params.Recipient,
		Deadline:          deadline,
		AmountIn:          amountIn,
		AmountOutMinimum:  new(big.Int),
		SqrtPriceLimitX96: target,
	})
	if err != nil {
		return nil, err
	}

	return &V3Result{
		ZeroForOne:  zeroForOne,
		AmountIn:    amountIn,
		ExpectedOut: expectedOut,
		Capped:      capped,
		Receipt:     receipt,
	}, nil
}

func (b *Broker) swapV3ViaBroker(ctx context.Context, params V3Params, target, deadline *big.Int) (*V3Result, error) {
	b.logger.Info("Executing V3 swap to price via broker contract",
		"broker", params.Broker, "trading_as_eoa", params.TradingAsEOA)

	receipt, err := b.chain.V3BrokerSwapToPrice(
		ctx, params.Broker, params.TradingAsEOA,
		params.Pool, params.Router, target,
		params.Recipient, deadline)
	if err != nil {
		return nil, err
	}
	return &V3Result{Receipt: receipt}, nil
}
