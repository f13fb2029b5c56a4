// Package broker moves Uniswap pool prices to externally supplied true
// prices. The V2 path sizes the corrective trade with the closed-form
// constant-product formula and executes it through the router; the V3 path
// targets an exact sqrt price and lets the pool's price limit stop the swap
// on target. Both paths can alternatively drive an on-chain broker contract
// that sizes and swaps atomically in one transaction.
package broker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/defistate/uniswap-broker-go/chains"
	"github.com/defistate/uniswap-broker-go/contracts"
	"github.com/defistate/uniswap-broker-go/protocols/uniswapv2"
	"github.com/defistate/uniswap-broker-go/protocols/uniswapv3"
)

var (
	// ErrInvalidParams is returned when swap parameters fail validation
	// before anything touches the chain.
	ErrInvalidParams = errors.New("broker: invalid parameters")
	// ErrTokenMismatch is returned when the configured token pair does not
	// match the pool's tokens.
	ErrTokenMismatch = errors.New("broker: token pair does not match pool")
	// ErrInsufficientBalance is returned when the sender cannot fund the
	// sized trade even after max-spend capping.
	ErrInsufficientBalance = errors.New("broker: insufficient balance for trade")
)

// Chain is the subset of the Ethereum client the broker depends on.
type Chain interface {
	Sender() (common.Address, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) error

	PairSnapshot(ctx context.Context, pair common.Address) (uniswapv2.Pool, error)
	SwapExactTokensForTokens(
		ctx context.Context,
		router common.Address,
		amountIn, amountOutMin *big.Int,
		path []common.Address,
		to common.Address,
		deadline *big.Int,
	) (*types.Receipt, error)
	V2BrokerSwapToPrice(
		ctx context.Context,
		broker common.Address,
		tradingAsEOA bool,
		router, factory common.Address,
		swappedTokens [2]common.Address,
		truePrices, maxSpend [2]*big.Int,
		to common.Address,
		deadline *big.Int,
	) (*types.Receipt, error)

	PoolSnapshot(ctx context.Context, pool common.Address) (uniswapv3.Pool, error)
	ExactInputSingle(
		ctx context.Context,
		router common.Address,
		params contracts.ExactInputSingleParams,
	) (*types.Receipt, error)
	V3BrokerSwapToPrice(
		ctx context.Context,
		broker common.Address,
		tradingAsEOA bool,
		pool, swapRouter common.Address,
		sqrtRatioTargetX96 *big.Int,
		to common.Address,
		deadline *big.Int,
	) (*types.Receipt, error)
}

// Broker executes swap-to-price operations against one chain connection.
type Broker struct {
	chain  Chain
	logger chains.Logger
}

// New wires a broker to a chain connection.
func New(chain Chain, logger chains.Logger) *Broker {
	if logger == nil {
		logger = chains.NopLogger{}
	}
	return &Broker{chain: chain, logger: logger}
}

func deadlineArg(deadline time.Time) (*big.Int, error) {
	if deadline.IsZero() {
		return nil, fmt.Errorf("%w: deadline not set", ErrInvalidParams)
	}
	if !deadline.After(time.Now()) {
		return nil, fmt.Errorf("%w: deadline already passed", ErrInvalidParams)
	}
	return big.NewInt(deadline.Unix()), nil
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

func nonNegative(v *big.Int) bool {
	return v != nil && v.Sign() >= 0
}
